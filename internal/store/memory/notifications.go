package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"notifybell/internal/domain"
	"notifybell/internal/model"
)

func (s *Store) CreateWebhookChange(_ context.Context, change model.WebhookChange) (model.WebhookChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	change.ReadBy = slices.Clone(change.ReadBy)
	s.webhooks = append(s.webhooks, change)
	return change, nil
}

func (s *Store) CreateGenericEvent(_ context.Context, event model.GenericEvent) (model.GenericEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.ReadBy = slices.Clone(event.ReadBy)
	s.generic = append(s.generic, event)
	return event, nil
}

func (s *Store) ListWebhookChanges(_ context.Context, limit int) ([]model.WebhookChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]model.WebhookChange, 0, len(s.webhooks))
	for _, change := range s.webhooks {
		change.ReadBy = slices.Clone(change.ReadBy)
		result = append(result, change)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return truncate(result, limit), nil
}

func (s *Store) ListGenericByKinds(_ context.Context, kinds []domain.Kind, limit int) ([]model.GenericEvent, error) {
	return s.listGeneric(limit, func(e model.GenericEvent) bool {
		return slices.Contains(kinds, domain.Kind(e.Type))
	}), nil
}

func (s *Store) ListGenericByUser(_ context.Context, userID string, limit int) ([]model.GenericEvent, error) {
	return s.listGeneric(limit, func(e model.GenericEvent) bool {
		return e.UserID == userID
	}), nil
}

func (s *Store) listGeneric(limit int, match func(model.GenericEvent) bool) []model.GenericEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.GenericEvent
	for _, event := range s.generic {
		if !match(event) {
			continue
		}
		event.ReadBy = slices.Clone(event.ReadBy)
		result = append(result, event)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return truncate(result, limit)
}

func (s *Store) AddReader(_ context.Context, collection domain.Collection, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch collection {
	case domain.CollectionWebhookChanges:
		for i := range s.webhooks {
			if s.webhooks[i].ID == id {
				s.webhooks[i].ReadBy = addReader(s.webhooks[i].ReadBy, userID)
				return nil
			}
		}
	case domain.CollectionNotifications:
		for i := range s.generic {
			if s.generic[i].ID == id {
				s.generic[i].ReadBy = addReader(s.generic[i].ReadBy, userID)
				return nil
			}
		}
	}
	return domain.ErrRecordNotFound
}

func addReader(readBy []string, userID string) []string {
	if slices.Contains(readBy, userID) {
		return readBy
	}
	return append(readBy, userID)
}

func truncate[T any](records []T, limit int) []T {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
