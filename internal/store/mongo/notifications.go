package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"notifybell/internal/domain"
	"notifybell/internal/model"
)

func (s *Store) CreateWebhookChange(ctx context.Context, change model.WebhookChange) (model.WebhookChange, error) {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	if _, err := s.webhooks.InsertOne(ctx, webhookChangeFrom(change)); err != nil {
		s.log.Error("mongo insert webhook change failed",
			zap.String("campus", change.Campus),
			zap.String("change_type", change.ChangeType),
			zap.Error(err),
		)
		return model.WebhookChange{}, err
	}
	return change, nil
}

func (s *Store) CreateGenericEvent(ctx context.Context, event model.GenericEvent) (model.GenericEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := s.generic.InsertOne(ctx, genericEventFrom(event)); err != nil {
		s.log.Error("mongo insert notification failed",
			zap.String("type", event.Type),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		return model.GenericEvent{}, err
	}
	return event, nil
}

func (s *Store) ListWebhookChanges(ctx context.Context, limit int) ([]model.WebhookChange, error) {
	cursor, err := s.webhooks.Find(ctx, bson.M{}, newestFirst("timestamp", limit))
	if err != nil {
		s.log.Error("mongo find webhook changes failed", zap.Int("limit", limit), zap.Error(err))
		return nil, err
	}
	var docs []webhookChangeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		s.log.Error("mongo decode webhook changes failed", zap.Error(err))
		return nil, err
	}
	result := make([]model.WebhookChange, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.record())
	}
	return result, nil
}

func (s *Store) ListGenericByKinds(ctx context.Context, kinds []domain.Kind, limit int) ([]model.GenericEvent, error) {
	types := make([]string, 0, len(kinds))
	for _, k := range kinds {
		types = append(types, string(k))
	}
	return s.findGeneric(ctx, bson.M{"type": bson.M{"$in": types}}, limit)
}

func (s *Store) ListGenericByUser(ctx context.Context, userID string, limit int) ([]model.GenericEvent, error) {
	return s.findGeneric(ctx, bson.M{"user_id": userID}, limit)
}

func (s *Store) findGeneric(ctx context.Context, filter bson.M, limit int) ([]model.GenericEvent, error) {
	cursor, err := s.generic.Find(ctx, filter, newestFirst("created_at", limit))
	if err != nil {
		s.log.Error("mongo find notifications failed", zap.Any("filter", filter), zap.Int("limit", limit), zap.Error(err))
		return nil, err
	}
	var docs []genericEventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		s.log.Error("mongo decode notifications failed", zap.Error(err))
		return nil, err
	}
	result := make([]model.GenericEvent, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.record())
	}
	return result, nil
}

func (s *Store) AddReader(ctx context.Context, collection domain.Collection, id, userID string) error {
	var coll *mongo.Collection
	switch collection {
	case domain.CollectionWebhookChanges:
		coll = s.webhooks
	case domain.CollectionNotifications:
		coll = s.generic
	default:
		return fmt.Errorf("unknown collection %q", collection)
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		s.log.Error("mongo add reader failed",
			zap.String("collection", string(collection)),
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func newestFirst(field string, limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: field, Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}
