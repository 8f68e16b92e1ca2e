package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"notifybell/internal/domain"
)

type Store struct {
	webhooks *mongo.Collection
	generic  *mongo.Collection
	log      *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		webhooks: db.Collection(string(domain.CollectionWebhookChanges)),
		generic:  db.Collection(string(domain.CollectionNotifications)),
		log:      logger,
	}
}

// EnsureIndexes creates the indexes backing the three ordered queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.webhooks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("timestamp_desc"),
	}); err != nil {
		s.log.Error("mongo create webhook index failed", zap.Error(err))
		return err
	}
	if _, err := s.generic.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("type_created_at"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("user_created_at"),
		},
	}); err != nil {
		s.log.Error("mongo create notification indexes failed", zap.Error(err))
		return err
	}
	return nil
}
