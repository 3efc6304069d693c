package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const outcomeQueueName = "reservation.outcomes"

// Emitter publishes attempt outcomes. Implementations swallow their own
// errors; callers never see a failure from Emit.
type Emitter interface {
	Emit(event AttemptEvent)
}

// AMQPEmitter publishes events to a durable queue on a message broker.
type AMQPEmitter struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPEmitter dials the broker and declares the outcome queue (durable).
func NewAMQPEmitter(url string) (*AMQPEmitter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(outcomeQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	return &AMQPEmitter{conn: conn, ch: ch}, nil
}

// Emit publishes the event in a background goroutine with a short timeout.
// Publish errors are logged and dropped: audit is observational, the booking
// outcome is already decided.
func (e *AMQPEmitter) Emit(event AttemptEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		body, err := json.Marshal(event)
		if err != nil {
			log.Printf("audit: marshal event for attempt %s: %v", event.AttemptID, err)
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()

		err = e.ch.PublishWithContext(ctx, "", outcomeQueueName, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.EmittedAt,
			Body:         body,
		})
		if err != nil {
			log.Printf("audit: publish outcome for attempt %s: %v", event.AttemptID, err)
		}
	}()
}

func (e *AMQPEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ch.Close(); err != nil {
		_ = e.conn.Close()
		return err
	}
	return e.conn.Close()
}

// LogEmitter writes outcomes to the process log. Used when no broker is
// configured (local development, tests).
type LogEmitter struct{}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{}
}

func (LogEmitter) Emit(event AttemptEvent) {
	log.Printf("audit: attempt=%s outcome=%s resource=%s amount_cents=%d",
		event.AttemptID, event.Outcome, event.ResourceID, event.AmountCents)
}
