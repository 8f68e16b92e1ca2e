package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"notifybell/internal/config"
	"notifybell/internal/queue"
	"notifybell/internal/sse"
)

// Watches is the view of the poller the app needs at shutdown.
type Watches interface {
	Watching() int
}

type App struct {
	cfg      *config.Config
	hub      *sse.Hub
	consumer queue.Consumer
	watches  Watches
	server   *http.Server
	logger   *zap.Logger

	// streams is the base context of every request. Cancelling it ends
	// open bell streams, which never go idle on their own.
	streams     context.Context
	stopStreams context.CancelFunc

	// hubCtx is independent of the run context; Shutdown cancels it after
	// the server drains so stream handlers can still unregister.
	hubCtx  context.Context
	stopHub context.CancelFunc

	wg sync.WaitGroup
}

func NewApp(cfg *config.Config, hub *sse.Hub, consumer queue.Consumer, watches Watches, router *gin.Engine, logger *zap.Logger) *App {
	streams, stop := context.WithCancel(context.Background())
	hubCtx, stopHub := context.WithCancel(context.Background())
	a := &App{
		cfg:         cfg,
		hub:         hub,
		consumer:    consumer,
		watches:     watches,
		logger:      logger,
		streams:     streams,
		stopStreams: stop,
		hubCtx:      hubCtx,
		stopHub:     stopHub,
	}
	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return a.streams },
	}
	return a
}

// Run serves HTTP and runs the hub and the ingest consumer until ctx is
// done or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.hub.Run(a.hubCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.consumer.Start(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("ingest consumer stopped", zap.Error(err))
		}
	}()

	a.logger.Info("notification bell listening", zap.String("addr", a.cfg.HTTPAddr))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes open streams, drains the server, stops the hub and waits
// for it and the consumer.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("graceful shutdown started", zap.Int("open_watches", a.watches.Watching()))
	a.stopStreams()
	shutdownErr := a.server.Shutdown(ctx)
	a.stopHub()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("graceful shutdown completed", zap.Int("open_watches", a.watches.Watching()))
		return shutdownErr
	case <-ctx.Done():
		if shutdownErr != nil {
			return shutdownErr
		}
		return ctx.Err()
	}
}

func (a *App) Logger() *zap.Logger {
	return a.logger
}
