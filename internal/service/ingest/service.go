package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"notifybell/internal/domain"
	"notifybell/internal/metrics"
	"notifybell/internal/model"
	"notifybell/internal/repository"
)

// Nudger is told which open views should refresh after a write.
type Nudger interface {
	NudgeSubject(userID string)
	NudgeAdmins()
}

type Service struct {
	store   repository.NotificationRepository
	nudger  Nudger
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(store repository.NotificationRepository, nudger Nudger, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, nudger: nudger, log: logger, metrics: m}
}

// Validate reports ErrInvalidEvent for events that cannot be recorded.
func Validate(event model.Event) error {
	if !domain.IsValidKind(string(event.Kind)) {
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidEvent, event.Kind)
	}
	if event.Kind == domain.KindWebhookChange {
		switch {
		case strings.TrimSpace(event.Campus) == "":
			return fmt.Errorf("%w: campus is required", domain.ErrInvalidEvent)
		case strings.TrimSpace(event.ChangedBy) == "":
			return fmt.Errorf("%w: changed_by is required", domain.ErrInvalidEvent)
		case !domain.IsValidChangeType(event.ChangeType):
			return fmt.Errorf("%w: change_type %q", domain.ErrInvalidEvent, event.ChangeType)
		}
		return nil
	}
	if strings.TrimSpace(event.Title) == "" || strings.TrimSpace(event.Message) == "" {
		return fmt.Errorf("%w: title and message are required", domain.ErrInvalidEvent)
	}
	return nil
}

// Record writes event as a new unread record and returns its id.
func (s *Service) Record(ctx context.Context, event model.Event) (string, error) {
	if err := Validate(event); err != nil {
		return "", err
	}

	ctx, span := otel.Tracer("ingest").Start(ctx, "ingest.record")
	defer span.End()
	span.SetAttributes(attribute.String("notify.kind", string(event.Kind)))

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var (
		id  string
		err error
	)
	if event.Kind == domain.KindWebhookChange {
		id, err = s.recordWebhookChange(ctx, event, ts)
	} else {
		id, err = s.recordGeneric(ctx, event, ts)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record failed")
		s.metrics.StoreFailures.WithLabelValues("record").Inc()
		return "", fmt.Errorf("record %s: %w: %w", event.Kind, domain.ErrStoreUnavailable, err)
	}

	s.metrics.Ingested.WithLabelValues(string(event.Kind)).Inc()
	s.log.Info("notification recorded",
		zap.String("id", id),
		zap.String("kind", string(event.Kind)),
		zap.String("user_id", event.UserID),
	)
	s.nudge(event)
	return id, nil
}

func (s *Service) recordWebhookChange(ctx context.Context, event model.Event, ts time.Time) (string, error) {
	created, err := s.store.CreateWebhookChange(ctx, model.WebhookChange{
		ID:            uuid.NewString(),
		ChangeType:    event.ChangeType,
		Campus:        event.Campus,
		ChangedBy:     event.ChangedBy,
		ChangedByName: event.ChangedByName,
		OldWebhookURL: event.OldWebhookURL,
		NewWebhookURL: event.NewWebhookURL,
		Timestamp:     ts,
		ReadBy:        []string{},
	})
	return created.ID, err
}

func (s *Service) recordGeneric(ctx context.Context, event model.Event, ts time.Time) (string, error) {
	created, err := s.store.CreateGenericEvent(ctx, model.GenericEvent{
		ID:             uuid.NewString(),
		Type:           string(event.Kind),
		Title:          event.Title,
		Message:        event.Message,
		CreatedAt:      ts,
		ReadBy:         []string{},
		RelatedLeaveID: event.RelatedLeaveID,
		UserID:         event.UserID,
		CreatedBy:      event.CreatedBy,
	})
	return created.ID, err
}

func (s *Service) nudge(event model.Event) {
	if s.nudger == nil {
		return
	}
	if domain.IsAdminRelevant(event.Kind) {
		s.nudger.NudgeAdmins()
	}
	if event.UserID != "" {
		s.nudger.NudgeSubject(event.UserID)
	}
}
