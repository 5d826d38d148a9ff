// Package mq publishes domain events to a RabbitMQ topic exchange.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Routing keys for booking events
const (
	KeyBookingCreated   = "booking.created"
	KeyBookingConfirmed = "booking.confirmed"
)

// EventPublisher is implemented by Publisher and NopPublisher
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// channel is the part of *amqp.Channel the publisher uses
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// session is one broker connection with its publishing channel
type session struct {
	conn io.Closer
	ch   channel
}

func (s *session) close() {
	_ = s.ch.Close()
	_ = s.conn.Close()
}

type dialFunc func() (*session, error)

// Publisher sends JSON messages to one topic exchange. A closed
// connection or channel is reopened on the next publish.
type Publisher struct {
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	dial     dialFunc
	sess     *session
	exchange string
	logger   *logrus.Logger
}

// NewPublisher dials RabbitMQ and declares a durable topic exchange
func NewPublisher(url, exchange string, logger *logrus.Logger) (*Publisher, error) {
	dial := func() (*session, error) {
		return dialExchange(url, exchange, logger)
	}
	sess, err := dial()
	if err != nil {
		return nil, err
	}
	return &Publisher{dial: dial, sess: sess, exchange: exchange, logger: logger}, nil
}

func dialExchange(url, exchange string, logger *logrus.Logger) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		// nil means the connection was closed on purpose
		if amqpErr := <-closed; amqpErr != nil {
			logger.WithError(amqpErr).Error("RabbitMQ connection lost, reconnecting on next publish")
		}
	}()

	return &session{conn: conn, ch: ch}, nil
}

// PublishJSON publishes v as a persistent JSON message under key
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil || p.sess.ch.IsClosed() {
		if err := p.reconnect(); err != nil {
			return err
		}
	}

	err = p.sess.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		if err := p.reconnect(); err != nil {
			return err
		}
		err = p.sess.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	}
	return err
}

// reconnect replaces the current session. Callers hold p.mu.
func (p *Publisher) reconnect() error {
	if p.sess != nil {
		p.sess.close()
		p.sess = nil
	}
	sess, err := p.dial()
	if err != nil {
		p.logger.WithError(err).Error("Failed to reconnect to RabbitMQ")
		return err
	}
	p.sess = sess
	p.logger.WithField("exchange", p.exchange).Info("Reconnected to RabbitMQ")
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil {
		return nil
	}
	_ = p.sess.ch.Close()
	err := p.sess.conn.Close()
	p.sess = nil
	return err
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
