package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"notifybell/internal/config"
	"notifybell/internal/domain"
	"notifybell/internal/metrics"
	"notifybell/internal/model"
	"notifybell/internal/repository"
)

// Service merges the webhook-change and generic collections into one
// newest-first stream and keeps per-user read state. It trusts the user ids
// it is given.
type Service struct {
	store   repository.NotificationRepository
	log     *zap.Logger
	metrics *metrics.Metrics

	displayLimit int
	maxLimit     int
	scanWindow   int
}

func NewService(store repository.NotificationRepository, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:        store,
		log:          logger,
		metrics:      m,
		displayLimit: cfg.DisplayLimit,
		maxLimit:     cfg.MaxDisplayLimit,
		scanWindow:   cfg.CountScanWindow,
	}
}

// FetchForAdmin returns up to limit webhook changes and admin-relevant leave
// records, newest first. Any store failure fails the whole call.
func (s *Service) FetchForAdmin(ctx context.Context, limit int) ([]model.Notification, error) {
	ctx, span := otel.Tracer("notify").Start(ctx, "notify.fetch_for_admin")
	defer span.End()

	limit = s.clampLimit(limit)
	span.SetAttributes(attribute.Int("notify.limit", limit))

	records, err := s.adminRecords(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, s.unavailable("fetch_for_admin", err)
	}
	return mergeNewestFirst(records, limit), nil
}

// FetchForUser returns up to limit generic records owned by userID.
func (s *Service) FetchForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if userID == "" {
		return nil, domain.ErrMissingUser
	}
	ctx, span := otel.Tracer("notify").Start(ctx, "notify.fetch_for_user")
	defer span.End()

	limit = s.clampLimit(limit)
	span.SetAttributes(attribute.Int("notify.limit", limit))

	records, err := s.userRecords(ctx, userID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, s.unavailable("fetch_for_user", err)
	}
	return mergeNewestFirst(records, limit), nil
}

// MarkRead adds userID to the read set of one record. Repeating the call is
// a no-op.
func (s *Service) MarkRead(ctx context.Context, recordID, userID string, kind domain.Kind) error {
	if userID == "" {
		return domain.ErrMissingUser
	}
	if !domain.IsValidKind(string(kind)) {
		return domain.ErrInvalidKind
	}
	if recordID == "" {
		return domain.ErrRecordNotFound
	}

	ctx, span := otel.Tracer("notify").Start(ctx, "notify.mark_read")
	defer span.End()
	collection := domain.CollectionFor(kind)
	span.SetAttributes(
		attribute.String("notify.collection", string(collection)),
		attribute.String("notify.record_id", recordID),
	)

	err := s.store.AddReader(ctx, collection, recordID, userID)
	switch {
	case err == nil:
		s.metrics.MarkRead.WithLabelValues("ok").Inc()
		return nil
	case errors.Is(err, domain.ErrRecordNotFound):
		s.metrics.MarkRead.WithLabelValues("not_found").Inc()
		span.SetStatus(codes.Error, "not found")
		return fmt.Errorf("mark %s read in %s: %w", recordID, collection, domain.ErrRecordNotFound)
	default:
		s.metrics.MarkRead.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return s.unavailable("mark_read", err)
	}
}

// MarkAllRead marks every record of a listing that userID has not read yet
// and returns how many were marked. Records deleted in the meantime are
// skipped; a store failure stops the sweep.
func (s *Service) MarkAllRead(ctx context.Context, userID string, records []model.Notification) (int, error) {
	marked := 0
	for _, r := range records {
		if r.IsReadBy(userID) {
			continue
		}
		if err := s.MarkRead(ctx, r.ID, userID, r.Kind); err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				s.log.Warn("mark all read skipped missing record", zap.String("id", r.ID), zap.String("kind", string(r.Kind)))
				continue
			}
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// UnreadCountForAdmin counts admin-relevant records not read by userID
// within the most recent scan window of each source. The result is bounded
// by that window, not a global total. Store failures yield 0.
func (s *Service) UnreadCountForAdmin(ctx context.Context, userID string) int {
	if userID == "" {
		return 0
	}
	ctx, span := otel.Tracer("notify").Start(ctx, "notify.unread_count_admin")
	defer span.End()

	records, err := s.adminRecords(ctx, s.scanWindow)
	if err != nil {
		span.RecordError(err)
		s.degraded("admin", userID, err)
		return 0
	}
	return countUnread(records, userID)
}

// UnreadCountForUser is UnreadCountForAdmin for records owned by userID.
func (s *Service) UnreadCountForUser(ctx context.Context, userID string) int {
	if userID == "" {
		return 0
	}
	ctx, span := otel.Tracer("notify").Start(ctx, "notify.unread_count_user")
	defer span.End()

	records, err := s.userRecords(ctx, userID, s.scanWindow)
	if err != nil {
		span.RecordError(err)
		s.degraded("user", userID, err)
		return 0
	}
	return countUnread(records, userID)
}

// adminRecords fetches both admin sources concurrently. The first failure
// cancels the other fetch.
func (s *Service) adminRecords(ctx context.Context, limit int) ([]model.Notification, error) {
	var (
		webhooks []model.WebhookChange
		leaves   []model.GenericEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		webhooks, err = s.store.ListWebhookChanges(gctx, limit)
		if err != nil {
			return fmt.Errorf("list webhook changes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		leaves, err = s.store.ListGenericByKinds(gctx, domain.AdminGenericKinds, limit)
		if err != nil {
			return fmt.Errorf("list admin notifications: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]model.Notification, 0, len(webhooks)+len(leaves))
	for _, w := range webhooks {
		records = append(records, projectWebhookChange(w, now))
	}
	for _, l := range leaves {
		records = append(records, projectGeneric(l, adminFallbackTitle, now))
	}
	return records, nil
}

func (s *Service) userRecords(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	events, err := s.store.ListGenericByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user notifications: %w", err)
	}
	now := time.Now().UTC()
	records := make([]model.Notification, 0, len(events))
	for _, e := range events {
		if e.UserID != userID {
			s.log.Warn("store returned foreign notification", zap.String("id", e.ID), zap.String("user_id", userID))
			continue
		}
		records = append(records, projectGeneric(e, userFallbackTitle, now))
	}
	return records, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.displayLimit
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit
}

func (s *Service) unavailable(op string, err error) error {
	s.metrics.StoreFailures.WithLabelValues(op).Inc()
	s.log.Error("notification store failed", zap.String("operation", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func (s *Service) degraded(scope, userID string, err error) {
	s.metrics.StoreFailures.WithLabelValues("unread_count_" + scope).Inc()
	s.metrics.DegradedCounts.WithLabelValues(scope).Inc()
	s.log.Warn("unread count degraded to zero",
		zap.String("scope", scope),
		zap.String("user_id", userID),
		zap.Error(err),
	)
}
