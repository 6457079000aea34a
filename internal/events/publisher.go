package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClickEvent is published after a click has been durably counted in the
// store. The store counter stays authoritative; consumers only enrich.
type ClickEvent struct {
	Code       string    `json:"code"`
	Clicks     int64     `json:"clicks"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ClickPublisher publishes click events for downstream consumers.
type ClickPublisher interface {
	PublishClick(ctx context.Context, event ClickEvent) error
}

// AMQPPublisher publishes click events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher opens a channel on the given connection and declares
// the topic exchange.
func NewAMQPPublisher(conn *amqp.Connection, exchange string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{channel: ch, exchange: exchange}, nil
}

// PublishClick publishes the event with routing key "link.clicked".
func (p *AMQPPublisher) PublishClick(ctx context.Context, event ClickEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal click event: %w", err)
	}

	return p.channel.PublishWithContext(ctx,
		p.exchange,
		"link.clicked",
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

// Close releases the underlying channel.
func (p *AMQPPublisher) Close() error {
	return p.channel.Close()
}

var _ ClickPublisher = (*AMQPPublisher)(nil)
