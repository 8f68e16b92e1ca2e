//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"notifybell/internal/app"
	"notifybell/internal/config"
	"notifybell/internal/http"
	"notifybell/internal/http/controller"
	"notifybell/internal/logging"
	"notifybell/internal/metrics"
	"notifybell/internal/poll"
	"notifybell/internal/queue/rabbitmq"
	"notifybell/internal/service/ingest"
	"notifybell/internal/service/notify"
	"notifybell/internal/sse"
	"notifybell/internal/store"
)

func InitializeApp(cfg *config.Config) (*app.App, func(), error) {
	wire.Build(
		logging.New,
		metrics.New,
		store.NewStore,
		sse.NewHub,
		notify.NewService,
		notify.NewInbox,
		poll.New,
		wire.Bind(new(poll.Counter), new(*notify.Inbox)),
		wire.Bind(new(poll.Broadcaster), new(*sse.Hub)),
		ingest.NewService,
		wire.Bind(new(ingest.Nudger), new(*poll.Poller)),
		wire.Bind(new(rabbitmq.Recorder), new(*ingest.Service)),
		wire.Bind(new(app.Watches), new(*poll.Poller)),
		controller.NewHandler,
		http.NewRouter,
		rabbitmq.NewConsumer,
		rabbitmq.NewPublisher,
		app.NewApp,
	)
	return nil, nil, nil
}
