package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StartTicketConsumer connects to RabbitMQ, declares both ticket queues
// and appends every message as one line to the audit log at logPath.
// Staff use that file to match M-Pesa payments against reservations.
// It reconnects with exponential backoff and returns only when ctx is
// cancelled.  Malformed messages are rejected without requeueing so a
// bad payload cannot spin the loop.
func StartTicketConsumer(ctx context.Context, url, logPath string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	audit := &AuditLog{Path: logPath}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("ticket-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, audit, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("ticket-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

type delivery struct {
	queue string
	amqp.Delivery
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, audit *AuditLog, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("ticket-consumer: set QoS failed", zap.Error(err))
	}

	merged := make(chan delivery)
	done := make(chan struct{})
	defer close(done)
	for _, q := range []string{TicketReservedQueue, TicketStatusChangedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		go func(q string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- delivery{queue: q, Delivery: d}:
				case <-done:
					return
				}
			}
		}(q, msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d := <-merged:
			if err := audit.Handle(d.queue, d.Body); err != nil {
				log.Warn("ticket-consumer: handle message failed", zap.String("queue", d.queue), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// AuditLog appends ticket messages to a plain text file.
type AuditLog struct {
	Path string
}

// Handle decodes body according to the queue it came from and appends
// the formatted line.
func (a *AuditLog) Handle(queue string, body []byte) error {
	var line string
	switch queue {
	case TicketReservedQueue:
		var ev TicketReservedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line = FormatReserved(ev)
	case TicketStatusChangedQueue:
		var ev TicketStatusChangedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line = FormatStatusChanged(ev)
	default:
		return fmt.Errorf("unknown queue %q", queue)
	}
	return a.append(line)
}

func (a *AuditLog) append(line string) error {
	if dir := filepath.Dir(a.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(a.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatReserved renders a reservation as a single audit line.
func FormatReserved(ev TicketReservedEvent) string {
	phone := ev.MpesaPhone
	if phone == "" {
		phone = "-"
	}
	return fmt.Sprintf("[%s] Ticket reserved | code=%s | event=%q | date=%s %s | email=%s | phone=%s | quantity=%d | amount=%d",
		ev.ReservedAt, ev.Code, ev.EventTitle, ev.EventDate, ev.StartTime, ev.Email, phone, ev.Quantity, ev.Amount)
}

// FormatStatusChanged renders a status change as a single audit line.
func FormatStatusChanged(ev TicketStatusChangedEvent) string {
	return fmt.Sprintf("[%s] Ticket status changed | code=%s | event_id=%s | email=%s | quantity=%d | %s -> %s",
		ev.ChangedAt, ev.Code, ev.EventID, ev.Email, ev.Quantity, ev.From, ev.To)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
