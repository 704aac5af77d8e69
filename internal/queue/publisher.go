package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// AuthEventsQueue is the durable queue auth events are routed to.
const AuthEventsQueue = "auth.events"

// Publisher publishes auth events.  Callers treat failures as non-fatal.
type Publisher interface {
    PublishAuthEvent(ctx context.Context, ev AuthEvent) error
}

// NopPublisher discards events.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishAuthEvent(context.Context, AuthEvent) error { return nil }

// RabbitPublisher publishes to RabbitMQ, dialing per message so that a
// broker outage never leaves a broken connection behind.
type RabbitPublisher struct {
    URL string
}

// NewPublisher returns a RabbitPublisher for url, or NopPublisher when url
// is empty.
func NewPublisher(url string) Publisher {
    if url == "" {
        return NopPublisher{}
    }
    return &RabbitPublisher{URL: url}
}

// PublishAuthEvent publishes ev to the auth.events queue as a persistent
// JSON message.
func (p *RabbitPublisher) PublishAuthEvent(ctx context.Context, ev AuthEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
    if err != nil {
        return fmt.Errorf("dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Idempotent; durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(AuthEventsQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("declare queue: %w", err)
    }

    return ch.PublishWithContext(ctx, "", AuthEventsQueue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
}
