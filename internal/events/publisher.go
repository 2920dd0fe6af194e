package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"fintrack/internal/logger"
	"fintrack/pkg/models"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

// Publisher sends transaction events to a durable direct exchange. The routing key is
// the queue name.
type Publisher struct {
	conn     *amqp091.Connection
	ch       channel
	exchange string
	queue    string
	now      func() time.Time
	log      zerolog.Logger
}

// Dial connects to url and declares the exchange, the queue and their binding.
func Dial(url, exchange, queue string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, exchange, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	p := newPublisher(ch, exchange, queue)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange, queue string) *Publisher {
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		queue:    queue,
		now:      time.Now,
		log:      logger.WithComponent("events"),
	}
}

func declare(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishSaved announces that ts were persisted.
func (p *Publisher) PublishSaved(ctx context.Context, ts []models.Transaction, confirmation string) error {
	msg := NewTransactionsSaved(ts, confirmation, p.now())
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, p.exchange, p.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.ID,
		Type:         msg.Kind,
		Timestamp:    msg.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.log.Info().
		Str("id", msg.ID).
		Int("count", msg.Count).
		Str("exchange", p.exchange).
		Str("queue", p.queue).
		Msg("Published transactions saved event")
	return nil
}

// Consume delivers messages from the queue to handler until ctx is done. Malformed
// messages are dropped and failed ones are requeued.
func (p *Publisher) Consume(ctx context.Context, handler func(*TransactionsSaved) error) error {
	deliveries, err := p.ch.Consume(p.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			msg, err := TransactionsSavedFromJSON(d.Body)
			if err != nil {
				p.log.Warn().Err(err).Msg("Dropping malformed message")
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(msg); err != nil {
				p.log.Error().Err(err).Str("id", msg.ID).Msg("Failed to handle message")
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
