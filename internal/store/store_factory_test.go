package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notifybell/internal/config"
	"notifybell/internal/store/memory"
)

func TestNewStoreFallsBackToMemory(t *testing.T) {
	repo, cleanup, err := NewStore(&config.Config{StoreTimeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	require.IsType(t, &memory.Store{}, repo)
}

func TestNewStoreMySQLUnreachable(t *testing.T) {
	cfg := &config.Config{
		MySQLDSN:     "notifybell:notifybell@tcp(127.0.0.1:1)/notifybell?timeout=200ms",
		StoreTimeout: time.Second,
	}
	_, _, err := NewStore(cfg, zap.NewNop())
	require.Error(t, err)
}
