//go:build integration

package e2e

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"notifybell/internal/domain"
	"notifybell/internal/http/dto"
	"notifybell/internal/http/resp"
	"notifybell/internal/model"
	"notifybell/internal/store/memory"
)

func TestPublishFlow(t *testing.T) {
	ctx := context.Background()
	amqpURL, cleanup := setupRabbitMQContainer(t, ctx)
	defer cleanup()

	cfg := testConfig()
	cfg.RabbitMQURL = amqpURL
	cfg.RabbitExchange = "notifications"
	cfg.RabbitQueue = "notifications.e2e"
	cfg.RabbitRoutingKey = "notification.*"
	cfg.RabbitConsumerTag = "notifybell-e2e"

	s := startStack(t, cfg, memory.New(zap.NewNop()))

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.consumer.Start(consumeCtx)
	}()
	require.NoError(t, waitForConsumer(ctx, amqpURL, cfg.RabbitQueue, 10*time.Second))

	stream := openStream(t, s, studentUser)
	first, err := stream.next(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, first.Count)

	res := call(t, s, adminUser, http.MethodPost, "/notifications/events", model.Event{
		Kind:    domain.KindLeaveApproved,
		Title:   "Leave approved",
		Message: "Your leave was approved",
		UserID:  studentUser.UserID,
	})
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	var accepted dto.EventAcceptedResponse
	decode(t, res, &accepted)
	require.Equal(t, resp.CodeQueued, accepted.Code)
	require.Equal(t, "notification.leave_approved", accepted.RoutingKey)

	stream.waitForCount(t, 1, 5*time.Second)

	res = call(t, s, studentUser, http.MethodGet, "/notifications", nil)
	var list dto.ListResponse
	decode(t, res, &list)
	require.Len(t, list.Notifications, 1)
	require.Equal(t, "Leave approved", list.Notifications[0].Title)
	require.Equal(t, adminUser.UserID, list.Notifications[0].CreatedBy)

	cancel()
	select {
	case <-time.After(3 * time.Second):
		t.Fatalf("consumer did not stop")
	case <-errCh:
	}
}

func waitForConsumer(ctx context.Context, amqpURL, queue string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			conn, err := amqp.Dial(amqpURL)
			if err != nil {
				continue
			}
			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				continue
			}
			q, err := ch.QueueInspect(queue)
			_ = ch.Close()
			_ = conn.Close()
			if err != nil {
				continue
			}
			if q.Consumers > 0 {
				return nil
			}
		}
	}
}

func setupRabbitMQContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5672/tcp"),
				wait.ForLog("Server startup complete"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}
