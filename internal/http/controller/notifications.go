package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"notifybell/internal/config"
	"notifybell/internal/domain"
	"notifybell/internal/http/dto"
	"notifybell/internal/http/middleware"
	"notifybell/internal/http/resp"
	"notifybell/internal/metrics"
	"notifybell/internal/model"
	"notifybell/internal/poll"
	"notifybell/internal/queue"
	"notifybell/internal/service/ingest"
	"notifybell/internal/service/notify"
	"notifybell/internal/sse"
)

type Handler struct {
	cfg     *config.Config
	inbox   *notify.Inbox
	hub     *sse.Hub
	poller  *poll.Poller
	metrics *metrics.Metrics
	log     *zap.Logger
	pub     queue.Publisher
	ingest  *ingest.Service
}

func NewHandler(cfg *config.Config, inbox *notify.Inbox, hub *sse.Hub, poller *poll.Poller, m *metrics.Metrics, logger *zap.Logger, publisher queue.Publisher, ingestSvc *ingest.Service) *Handler {
	return &Handler{cfg: cfg, inbox: inbox, hub: hub, poller: poller, metrics: m, log: logger, pub: publisher, ingest: ingestSvc}
}

func (h *Handler) List(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "limit must be a non-negative integer"})
		return
	}

	records, err := h.inbox.List(c.Request.Context(), id, limit)
	if err != nil {
		h.writeError(c, err, "list notifications failed")
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(records, id.UserID))
}

func (h *Handler) UnreadCount(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.CountResponse{Count: h.inbox.UnreadCount(c.Request.Context(), id)})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "invalid json"})
		return
	}
	if !domain.IsValidKind(req.Kind) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: fmt.Sprintf("unknown kind %q", req.Kind)})
		return
	}

	// The write finishes even if the view that asked for it goes away.
	ctx, cancel := h.detached(c)
	defer cancel()
	if err := h.inbox.MarkRead(ctx, id, c.Param("id"), domain.Kind(req.Kind)); err != nil {
		h.writeError(c, err, "mark read failed")
		return
	}
	h.poller.NudgeSubject(id.UserID)
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "limit must be a non-negative integer"})
		return
	}

	ctx, cancel := h.detached(c)
	defer cancel()
	marked, err := h.inbox.MarkAllRead(ctx, id, limit)
	if marked > 0 {
		h.poller.NudgeSubject(id.UserID)
	}
	if err != nil {
		h.writeError(c, err, "mark all read failed")
		return
	}
	c.JSON(http.StatusOK, dto.MarkAllResponse{Marked: marked})
}

// PublishEvent queues a producer event for ingest. Without a broker the
// event is recorded in place.
func (h *Handler) PublishEvent(c *gin.Context) {
	var event model.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "invalid json"})
		return
	}
	if err := ingest.Validate(event); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: err.Error()})
		return
	}
	if id, ok := middleware.IdentityFrom(c); ok && event.CreatedBy == "" {
		event.CreatedBy = id.UserID
	}

	if h.cfg.RabbitMQURL == "" {
		h.recordEvent(c, event)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("event payload marshal failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to queue event"})
		return
	}

	prefix := h.cfg.RabbitPublishPrefix
	if prefix == "" {
		prefix = "notification"
	}
	routingKey := queue.RoutingKey(prefix, event.Kind)
	if err := h.pub.Publish(c.Request.Context(), payload, routingKey); err != nil {
		h.log.Error("publish event failed",
			zap.String("kind", string(event.Kind)),
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to queue event"})
		return
	}

	c.JSON(http.StatusAccepted, dto.EventAcceptedResponse{
		StatusResponse: dto.StatusResponse{Code: resp.CodeQueued, Message: "queued"},
		RoutingKey:     routingKey,
	})
}

func (h *Handler) recordEvent(c *gin.Context, event model.Event) {
	ctx, cancel := h.detached(c)
	defer cancel()
	id, err := h.ingest.Record(ctx, event)
	if err != nil {
		h.writeError(c, err, "record event failed")
		return
	}
	c.JSON(http.StatusCreated, dto.EventRecordedResponse{ID: id, Kind: event.Kind})
}

// Stream pushes the caller's unread count as server-sent events for as long
// as the view stays open.
func (h *Handler) Stream(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.log.Error("streaming unsupported", zap.String("user_id", id.UserID))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "streaming unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	flusher.Flush()

	ctx := c.Request.Context()
	client := sse.NewClient(id.UserID)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	h.metrics.OpenStreams.Inc()
	defer h.metrics.OpenStreams.Dec()

	watch := h.poller.Watch(ctx, id)
	defer watch.Stop()

	heartbeatEvery := h.cfg.SSEHeartbeat
	if heartbeatEvery <= 0 {
		heartbeatEvery = 15 * time.Second
	}
	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.hub.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				h.log.Debug("heartbeat write failed", zap.String("user_id", id.UserID), zap.Error(err))
				return
			}
			flusher.Flush()
		case update, ok := <-client.Ch:
			if !ok {
				return
			}
			if err := writeUnreadUpdate(c.Writer, update); err != nil {
				h.log.Debug("write unread update failed", zap.String("user_id", id.UserID), zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) detached(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(c.Request.Context())
	if h.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.cfg.StoreTimeout)
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidKind), errors.Is(err, domain.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: err.Error()})
	case errors.Is(err, domain.ErrMissingUser):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Code: resp.CodeUnauthorized, Message: "caller has no user id"})
	case errors.Is(err, domain.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: resp.CodeNotFound, Message: "notification not found"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.log.Error(msg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Code: resp.CodeStoreUnavailable, Message: "notification store unavailable"})
	default:
		h.log.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "internal error"})
	}
}

func identity(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.UserID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Code: resp.CodeUnauthorized, Message: "authentication required"})
		return domain.Identity{}, false
	}
	return id, true
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func writeUnreadUpdate(w http.ResponseWriter, update model.UnreadUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: unread_count\ndata: %s\n\n", payload)
	return err
}
