package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wtppaul/course-catalog/internal/logger"
)

// Publisher delivers one event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error { return nil }

// AMQPPublisher publishes persistent JSON messages to durable queues named
// after the routing key, on the default exchange. The connection is opened
// lazily and reopened after a failure.
type AMQPPublisher struct {
	url string
	log *logger.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

func NewAMQPPublisher(url string, log *logger.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log, declared: map[string]bool{}}
}

func (p *AMQPPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", key, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if !p.declared[key] {
		if _, err := ch.QueueDeclare(key, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("declare queue %s: %w", key, err)
		}
		p.declared[key] = true
	}

	err = ch.PublishWithContext(ctx, "", key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.log.Infof("rabbitmq connected")
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	p.declared = map[string]bool{}
}

// Emit publishes and logs failures. Events are fire-and-forget: a broker
// outage never fails the operation that produced them.
func Emit(ctx context.Context, pub Publisher, log *logger.Logger, key string, event interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, key, event); err != nil {
		log.Errorf(err, "publish %s", key)
	}
}
