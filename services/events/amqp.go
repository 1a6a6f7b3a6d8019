// Package eventsvc publishes auth events.
package eventsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/trezcool/tutortrack/core"
)

const dialAttempts = 6

// AMQPPublisher publishes events as JSON on a durable fanout exchange.
type AMQPPublisher struct {
	exchange string
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       *amqp.Channel
}

var _ core.EventPublisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher connects to the broker, backing off between attempts, and declares the exchange.
func NewAMQPPublisher(conf *core.Config, logger core.Logger) (*AMQPPublisher, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	wait := time.Second
	for i := 1; i <= dialAttempts; i++ {
		conn, err = amqp.Dial(conf.Events.AMQPURL)
		if err == nil {
			break
		}
		logger.Warn(fmt.Sprintf("connecting to rabbitmq (attempt %d/%d): %v", i, dialAttempts, err), err)
		if i < dialAttempts {
			time.Sleep(wait)
			wait *= 2
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "connecting to rabbitmq")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "opening channel")
	}
	err = ch.ExchangeDeclare(
		conf.Events.Exchange,
		"fanout",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "declaring exchange")
	}

	logger.Info("Connected to rabbitmq")
	return &AMQPPublisher{exchange: conf.Events.Exchange, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(_ context.Context, evt core.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(p.exchange, evt.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.At,
		Type:         evt.Type,
		Body:         body,
	})
	return errors.Wrap(err, "publishing event")
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}
