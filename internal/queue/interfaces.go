package queue

import (
	"context"

	"notifybell/internal/domain"
)

type Consumer interface {
	Start(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, payload []byte, routingKey string) error
}

// RoutingKey is the topic a producer event of kind is published under.
func RoutingKey(prefix string, kind domain.Kind) string {
	return prefix + "." + string(kind)
}
