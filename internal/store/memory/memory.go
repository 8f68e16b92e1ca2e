package memory

import (
	"sync"

	"go.uber.org/zap"
	"notifybell/internal/model"
)

type Store struct {
	mu       sync.Mutex
	webhooks []model.WebhookChange
	generic  []model.GenericEvent
	log      *zap.Logger
}

func New(logger *zap.Logger) *Store {
	return &Store{log: logger}
}
