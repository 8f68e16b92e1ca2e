package repository

import (
	"context"

	"notifybell/internal/domain"
	"notifybell/internal/model"
)

// NotificationRepository is the notification store. List methods return at
// most limit records, newest first. AddReader is an atomic set-union on a
// single document and returns domain.ErrRecordNotFound when the document
// does not exist in the collection.
type NotificationRepository interface {
	ListWebhookChanges(ctx context.Context, limit int) ([]model.WebhookChange, error)
	ListGenericByKinds(ctx context.Context, kinds []domain.Kind, limit int) ([]model.GenericEvent, error)
	ListGenericByUser(ctx context.Context, userID string, limit int) ([]model.GenericEvent, error)
	AddReader(ctx context.Context, collection domain.Collection, id, userID string) error

	CreateWebhookChange(ctx context.Context, change model.WebhookChange) (model.WebhookChange, error)
	CreateGenericEvent(ctx context.Context, event model.GenericEvent) (model.GenericEvent, error)
}
