package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notifybell/internal/config"
	"notifybell/internal/domain"
	httpserver "notifybell/internal/http"
	"notifybell/internal/http/controller"
	"notifybell/internal/http/middleware"
	"notifybell/internal/metrics"
	"notifybell/internal/model"
	"notifybell/internal/poll"
	"notifybell/internal/queue"
	"notifybell/internal/queue/rabbitmq"
	"notifybell/internal/repository"
	"notifybell/internal/service/ingest"
	"notifybell/internal/service/notify"
	"notifybell/internal/sse"
)

const jwtSecret = "e2e-secret"

func ginTestMode() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:            ":0",
		JWTSecret:           jwtSecret,
		AllowedEmailDomain:  "school.org",
		DisplayLimit:        50,
		MaxDisplayLimit:     200,
		CountScanWindow:     100,
		PollInterval:        time.Hour,
		SSEHeartbeat:        5 * time.Second,
		StoreTimeout:        5 * time.Second,
		RabbitPublishPrefix: "notification",
		OTELServiceName:     "notifybell-e2e",
	}
}

type stack struct {
	server   *httptest.Server
	ingest   *ingest.Service
	consumer queue.Consumer
}

// startStack wires the same graph as the server binary around repo.
func startStack(t *testing.T, cfg *config.Config, repo repository.NotificationRepository) *stack {
	t.Helper()
	ginTestMode()

	logger := zap.NewNop()
	m := metrics.New()
	hub := sse.NewHub()
	inbox := notify.NewInbox(notify.NewService(repo, cfg, logger, m))
	poller := poll.New(inbox, hub, cfg, logger, m)
	ingestSvc := ingest.NewService(repo, poller, logger, m)
	publisher := rabbitmq.NewPublisher(cfg, logger)
	handler := controller.NewHandler(cfg, inbox, hub, poller, m, logger, publisher, ingestSvc)
	router := httpserver.NewRouter(cfg, handler, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &stack{
		server:   server,
		ingest:   ingestSvc,
		consumer: rabbitmq.NewConsumer(cfg, ingestSvc, logger),
	}
}

func bearer(t *testing.T, id domain.Identity) string {
	t.Helper()
	token, err := middleware.GenerateToken(jwtSecret, id, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func call(t *testing.T, s *stack, id domain.Identity, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, id))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func decode(t *testing.T, res *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

type sseStream struct {
	events chan sseEvent
}

type sseEvent struct {
	name string
	data string
}

// openStream subscribes id to its unread count stream until the test ends.
func openStream(t *testing.T, s *stack, id domain.Identity) *sseStream {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.server.URL+"/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer(t, id))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	t.Cleanup(func() { _ = res.Body.Close() })

	stream := &sseStream{events: make(chan sseEvent, 16)}
	go stream.read(res.Body)
	return stream
}

func (s *sseStream) read(body io.Reader) {
	defer close(s.events)
	reader := bufio.NewReader(body)
	var current sseEvent
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if current.data != "" {
				s.events <- current
			}
			current = sseEvent{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func (s *sseStream) next(timeout time.Duration) (model.UnreadUpdate, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return model.UnreadUpdate{}, io.EOF
		}
		if ev.name != "unread_count" {
			return model.UnreadUpdate{}, errors.New("unexpected event " + ev.name)
		}
		var update model.UnreadUpdate
		err := json.Unmarshal([]byte(ev.data), &update)
		return update, err
	case <-time.After(timeout):
		return model.UnreadUpdate{}, errors.New("timeout waiting for sse event")
	}
}

// waitForCount reads updates until one carries want.
func (s *sseStream) waitForCount(t *testing.T, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		require.Positive(t, remaining, "count %d never arrived", want)
		update, err := s.next(remaining)
		require.NoError(t, err)
		if update.Count == want {
			return
		}
	}
}
