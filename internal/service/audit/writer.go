package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	amqp "github.com/rabbitmq/amqp091-go"
)

// LogWriter writes each event as one structured log record.
type LogWriter struct {
	logger *slog.Logger
}

func NewLogWriter(logger *slog.Logger) *LogWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogWriter{logger: logger.With("component", "audit")}
}

func (w *LogWriter) Write(ctx context.Context, events []audit.Event) error {
	for _, e := range events {
		w.logger.InfoContext(ctx, "Audit event",
			"action", e.Action,
			"company_id", e.CompanyID,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"actor_id", e.ActorID,
			"description", e.Description,
			"occurred_at", e.OccurredAt,
		)
	}
	return nil
}

func (w *LogWriter) Close() error { return nil }

// publisher is the slice of *amqp.Channel the writer needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPWriter publishes events as persistent JSON messages to a topic exchange, routed
// by action (for example "audit.PAYROLL_RUN_PAID").
type AMQPWriter struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
}

// DialAMQP connects, opens a channel and declares the durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPWriter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	slog.Info("Audit AMQP writer connected", "exchange", exchange)
	return &AMQPWriter{conn: conn, ch: ch, exchange: exchange}, nil
}

func (w *AMQPWriter) Write(ctx context.Context, events []audit.Event) error {
	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode audit event: %w", err)
		}
		msg := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.OccurredAt,
			Type:         string(e.Action),
			Body:         body,
		}
		if err := w.ch.PublishWithContext(ctx, w.exchange, "audit."+string(e.Action), false, false, msg); err != nil {
			return fmt.Errorf("failed to publish audit event: %w", err)
		}
	}
	return nil
}

func (w *AMQPWriter) Close() error {
	var firstErr error
	if w.ch != nil {
		firstErr = w.ch.Close()
	}
	if w.conn != nil {
		if err := w.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StreamWriter forwards every event to next and then to the live SSE hub of its
// company. Hub delivery is best effort and never fails the batch.
type StreamWriter struct {
	next audit.Writer
	hub  *sse.Hub
}

func NewStreamWriter(next audit.Writer, hub *sse.Hub) *StreamWriter {
	return &StreamWriter{next: next, hub: hub}
}

func (w *StreamWriter) Write(ctx context.Context, events []audit.Event) error {
	err := w.next.Write(ctx, events)
	for _, e := range events {
		w.hub.Publish(sse.Event{CompanyID: e.CompanyID, Event: string(e.Action), Data: e})
	}
	return err
}

func (w *StreamWriter) Close() error { return w.next.Close() }
