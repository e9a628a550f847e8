package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/watchparty-tickets/internal/metrics"
	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// dialTimeout bounds the TCP connect and AMQP handshake of a publish.
// Publishing happens inside request handling, so an unreachable broker
// must fail fast.
const dialTimeout = 2 * time.Second

// Publisher sends ticket messages to RabbitMQ.  It dials the broker for
// every message, so a broker outage only costs the messages published
// while it lasts.  Errors are logged and returned; callers treat them
// as non fatal.
type Publisher struct {
	url string
	log *zap.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log}
}

// TicketReserved publishes a TicketReservedEvent.
func (p *Publisher) TicketReserved(ctx context.Context, t model.Ticket, e model.Event) error {
	return p.publish(ctx, TicketReservedQueue, NewTicketReservedEvent(t, e))
}

// TicketStatusChanged publishes a TicketStatusChangedEvent.
func (p *Publisher) TicketStatusChanged(ctx context.Context, t model.Ticket, from string) error {
	return p.publish(ctx, TicketStatusChangedQueue, NewTicketStatusChangedEvent(t, from))
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	err := p.send(ctx, queue, event)
	if err != nil {
		metrics.PublishFailures.WithLabelValues(queue).Inc()
		p.log.Warn("rabbitmq publish failed", zap.String("queue", queue), zap.Error(err))
	}
	return err
}

func (p *Publisher) send(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         queue,
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
