// Package eventbus provides the durable topic-exchange event transport shared
// by the order and payment services. One Bus owns its connection and channel
// and republishes its topology after every reconnect.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/config"
)

// ErrNotConnected is returned by Publish while the broker connection is
// down. Messages are dropped, not queued; delivery is best-effort by
// contract.
var ErrNotConnected = errors.New("event bus not connected")

// Publisher is the event publication capability injected into the state
// machines.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// Handler processes one delivered event. A non-nil error nacks the message
// without requeue.
type Handler func(ctx context.Context, routingKey string, body []byte) error

type subscription struct {
	queue   string
	keys    []string
	handler Handler
}

// Bus is an owned AMQP connection manager with explicit lifecycle:
// Connect, Publish/Subscribe, Close.
type Bus struct {
	cfg    config.RabbitMQConfig
	logger *zap.Logger

	mu            sync.Mutex
	conn          *amqp.Connection
	ch            *amqp.Channel
	ready         bool
	subscriptions []subscription

	notifyClose chan *amqp.Error
	done        chan struct{}
	closeOnce   sync.Once
}

// New creates a Bus for the configured broker. Call Connect before use.
func New(cfg config.RabbitMQConfig, logger *zap.Logger) *Bus {
	return &Bus{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Connect dials the broker, declares the topic exchange, and starts the
// reconnect monitor. An initial dial failure still arms the monitor so the
// bus heals in the background.
func (b *Bus) Connect() error {
	if err := b.connect(); err != nil {
		go b.monitor()
		return fmt.Errorf("initial broker connection failed: %w", err)
	}
	go b.monitor()
	return nil
}

func (b *Bus) connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := amqp.Dial(b.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		b.cfg.Exchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,
	); err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	b.conn = conn
	b.ch = ch
	b.ready = true
	b.notifyClose = make(chan *amqp.Error, 1)
	conn.NotifyClose(b.notifyClose)

	for _, sub := range b.subscriptions {
		if err := b.setupSubscription(sub); err != nil {
			b.logger.Error("failed to restore subscription",
				zap.String("queue", sub.queue),
				zap.Error(err))
		}
	}

	b.logger.Info("connected to event broker",
		zap.String("exchange", b.cfg.Exchange))
	return nil
}

// monitor watches for connection loss and reconnects with exponential
// backoff plus jitter, capped at ReconnectMax. With MaxAttempts > 0 the bus
// gives up after that many consecutive failures and stays closed.
func (b *Bus) monitor() {
	for {
		b.mu.Lock()
		notify := b.notifyClose
		b.mu.Unlock()

		if notify == nil {
			// Never connected: go straight to the retry loop.
			if !b.reconnect() {
				return
			}
			continue
		}

		select {
		case <-b.done:
			return
		case amqpErr := <-notify:
			b.mu.Lock()
			b.ready = false
			b.mu.Unlock()
			if amqpErr != nil {
				b.logger.Warn("broker connection lost", zap.String("reason", amqpErr.Reason))
			}
			if !b.reconnect() {
				return
			}
		}
	}
}

// reconnect retries until connected, Close, or the attempt cap. Returns
// false when the monitor should stop.
func (b *Bus) reconnect() bool {
	for attempt := 1; ; attempt++ {
		if b.cfg.MaxAttempts > 0 && attempt > b.cfg.MaxAttempts {
			b.logger.Error("giving up on broker reconnect",
				zap.Int("attempts", b.cfg.MaxAttempts))
			return false
		}

		delay := reconnectDelay(attempt, b.cfg.ReconnectBase, b.cfg.ReconnectMax)
		select {
		case <-b.done:
			return false
		case <-time.After(delay):
		}

		if err := b.connect(); err != nil {
			b.logger.Warn("broker reconnect failed",
				zap.Int("attempt", attempt),
				zap.Duration("next_delay", reconnectDelay(attempt+1, b.cfg.ReconnectBase, b.cfg.ReconnectMax)),
				zap.Error(err))
			continue
		}
		return true
	}
}

// reconnectDelay computes the backoff before reconnect attempt n (1-based):
// base doubled per attempt, capped at max, with up to 50% added jitter.
func reconnectDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max <= 0 {
		max = 30 * time.Second
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	if delay+jitter > max {
		return max
	}
	return delay + jitter
}

// Publish marshals payload as JSON and publishes it to the topic exchange
// with persistent delivery. Returns ErrNotConnected while the broker is
// down; callers log and continue, they never fail their primary operation.
func (b *Bus) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		b.logger.Warn("broker not connected, dropping event",
			zap.String("routing_key", routingKey))
		return ErrNotConnected
	}

	if err := b.ch.Publish(
		b.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	b.logger.Info("event published", zap.String("routing_key", routingKey))
	return nil
}

// Subscribe binds a durable queue to the given routing keys and dispatches
// deliveries to handler. The subscription is re-established after every
// reconnect.
func (b *Bus) Subscribe(queue string, keys []string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscription{queue: queue, keys: keys, handler: handler}
	b.subscriptions = append(b.subscriptions, sub)

	if !b.ready {
		// Bound on the next successful connect.
		return nil
	}
	return b.setupSubscription(sub)
}

// setupSubscription declares and binds the queue and starts its consumer
// loop. Caller holds b.mu.
func (b *Bus) setupSubscription(sub subscription) error {
	q, err := b.ch.QueueDeclare(
		sub.queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", sub.queue, err)
	}

	for _, key := range sub.keys {
		if err := b.ch.QueueBind(q.Name, key, b.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", q.Name, key, err)
		}
	}

	deliveries, err := b.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	go b.dispatch(deliveries, sub.handler)

	b.logger.Info("subscribed",
		zap.String("queue", sub.queue),
		zap.Strings("routing_keys", sub.keys))
	return nil
}

func (b *Bus) dispatch(deliveries <-chan amqp.Delivery, handler Handler) {
	for d := range deliveries {
		if err := handler(context.Background(), d.RoutingKey, d.Body); err != nil {
			b.logger.Error("event handler failed",
				zap.String("routing_key", d.RoutingKey),
				zap.Error(err))
			d.Nack(false, false)
			continue
		}
		d.Ack(false)
	}
}

// Close stops the reconnect monitor and closes the connection.
func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.ready = false
		if b.conn != nil {
			err = b.conn.Close()
		}
	})
	return err
}
