//go:build integration

package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notifybell/internal/config"
	"notifybell/internal/domain"
	"notifybell/internal/model"
	"notifybell/internal/queue"
)

func TestPublisherIntegration(t *testing.T) {
	ctx := context.Background()
	amqpURL, cleanup := setupRabbitMQContainer(t, ctx)
	defer cleanup()

	cfg := &config.Config{
		RabbitMQURL:      amqpURL,
		RabbitExchange:   "notifications",
		RabbitQueue:      "notifications.publisher-test",
		RabbitRoutingKey: "notification.*",
	}

	publisher := NewPublisher(cfg, zap.NewNop())

	conn, err := amqp.Dial(amqpURL)
	require.NoError(t, err)
	defer conn.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	err = ch.ExchangeDeclare(cfg.RabbitExchange, "topic", true, false, false, false, nil)
	require.NoError(t, err)
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, nil)
	require.NoError(t, err)
	err = ch.QueueBind(cfg.RabbitQueue, cfg.RabbitRoutingKey, cfg.RabbitExchange, false, nil)
	require.NoError(t, err)

	deliveries, err := ch.Consume(cfg.RabbitQueue, "publisher-test", true, false, false, false, nil)
	require.NoError(t, err)

	event := model.Event{
		Kind:       domain.KindWebhookChange,
		Campus:     "pune",
		ChangeType: domain.ChangeDeleted,
		ChangedBy:  "a1",
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	err = publisher.Publish(ctx, body, queue.RoutingKey("notification", event.Kind))
	require.NoError(t, err)

	select {
	case msg := <-deliveries:
		var got model.Event
		require.NoError(t, json.Unmarshal(msg.Body, &got))
		require.Equal(t, "notification.webhook_change", msg.RoutingKey)
		require.Equal(t, event.Campus, got.Campus)
		require.Equal(t, event.Kind, got.Kind)
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout waiting for published message")
	}
}

// setupRabbitMQContainer is defined in testhelpers_integration.go
