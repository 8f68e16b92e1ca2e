package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"notifybell/internal/config"
	"notifybell/internal/domain"
	"notifybell/internal/model"
	"notifybell/internal/queue"
)

// Recorder persists producer events.
type Recorder interface {
	Record(ctx context.Context, event model.Event) (string, error)
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second

	// requeueDelay holds a delivery the store failed to record before it
	// goes back on the queue.
	requeueDelay = 2 * time.Second
)

type noopConsumer struct{}

func (n *noopConsumer) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type Consumer struct {
	url          string
	recorder     Recorder
	logger       *zap.Logger
	timeout      time.Duration
	requeueDelay time.Duration
	exchange     string
	queue        string
	routingKey   string
	consumerTag  string
}

func NewConsumer(cfg *config.Config, recorder Recorder, logger *zap.Logger) queue.Consumer {
	if cfg.RabbitMQURL == "" {
		return &noopConsumer{}
	}
	return &Consumer{
		url:          cfg.RabbitMQURL,
		recorder:     recorder,
		logger:       logger,
		timeout:      cfg.StoreTimeout,
		requeueDelay: requeueDelay,
		exchange:     cfg.RabbitExchange,
		queue:        cfg.RabbitQueue,
		routingKey:   cfg.RabbitRoutingKey,
		consumerTag:  cfg.RabbitConsumerTag,
	}
}

// Start consumes until ctx is done, redialing with backoff whenever the
// broker connection drops.
func (r *Consumer) Start(ctx context.Context) error {
	backoff := minBackoff
	for {
		started := time.Now()
		err := r.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) > maxBackoff {
			backoff = minBackoff
		}
		r.logger.Warn("rabbitmq consumer interrupted, reconnecting",
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (r *Consumer) consume(ctx context.Context) error {
	ctx, span := otel.Tracer("rabbitmq").Start(ctx, "rabbitmq.consume_loop")
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", r.exchange),
		attribute.String("messaging.destination_kind", "exchange"),
		attribute.String("messaging.rabbitmq.routing_key", r.routingKey),
	)
	defer span.End()

	conn, err := amqp.Dial(r.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "channel failed")
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	deliveries, err := r.subscribe(ch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscribe failed")
		return err
	}

	r.logger.Info("RabbitMQ consumer started",
		zap.String("exchange", r.exchange),
		zap.String("queue", r.queue),
		zap.String("routing_key", r.routingKey),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				span.SetStatus(codes.Error, "deliveries closed")
				return errors.New("rabbitmq deliveries closed")
			}
			if err := r.handleMessage(ctx, msg); err != nil {
				span.RecordError(err)
				return err
			}
		}
	}
}

// subscribe declares the exchange and the durable ingest queue, binds them
// and starts a manual-ack consumer with a prefetch of 10.
func (r *Consumer) subscribe(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}
	if err := declareExchange(ch, r.exchange); err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(r.queue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, r.routingKey, r.exchange, false, nil); err != nil {
		return nil, fmt.Errorf("rabbitmq queue bind: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, r.consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}
	return deliveries, nil
}

func (r *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) error {
	var opts []trace.SpanStartOption
	if msg.Headers != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, amqpHeaderCarrier(msg.Headers))
	}
	if !trace.SpanContextFromContext(ctx).IsRemote() {
		// No producer trace; do not hang off the consume loop span.
		opts = append(opts, trace.WithNewRoot())
	}
	ctx, span := otel.Tracer("rabbitmq").Start(ctx, "rabbitmq.handle_message", opts...)
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", r.exchange),
		attribute.String("messaging.destination_kind", "exchange"),
		attribute.String("messaging.rabbitmq.routing_key", msg.RoutingKey),
	)
	defer span.End()

	var event model.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid json")
		r.logger.Error("rabbitmq invalid json", zap.Error(err))
		return msg.Ack(false)
	}

	recordCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	id, err := r.recorder.Record(recordCtx, event)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrInvalidEvent) {
			span.SetStatus(codes.Error, "invalid event")
			r.logger.Warn("rabbitmq invalid event dropped",
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
			return msg.Ack(false)
		}
		span.SetStatus(codes.Error, "record event failed")
		r.logger.Error("rabbitmq record event failed, requeueing",
			zap.Duration("delay", r.requeueDelay),
			zap.Error(err),
		)
		if r.requeueDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.requeueDelay):
			}
		}
		if nackErr := msg.Nack(false, true); nackErr != nil {
			r.logger.Error("rabbitmq nack failed", zap.Error(nackErr))
		}
		return nil
	}

	span.SetAttributes(attribute.String("notify.record_id", id))
	return msg.Ack(false)
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return nil
}
