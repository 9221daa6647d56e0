// This file contains the implementation of AMPQPublisher. The publisher sends account lifecycle events to an
// AMQP 0.9.1 broker (RabbitMQ) on a single durable queue, so that services owning data keyed by user (comments,
// watch lists) can clean up after a deleted account.
//
// The publisher connects on creation, retrying until the connect timeout elapses. A connection lost later is
// re-dialled once on the next publish, bounded by the publish context, so a broker outage costs a request one
// failed dial rather than the whole retry window. Shutdown closes the channel and connection.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mflix-go/webserver/internal/log"
)

// ErrPublisherClosed is returned when publishing after Shutdown.
var ErrPublisherClosed = errors.New("publisher is shut down")

const connectRetryInterval = 250 * time.Millisecond

type AMPQPublisher struct {
	url            string
	queueName      string
	connectTimeout time.Duration
	logger         *log.Logger

	// mu guards the fields below. It is never held while dialling.
	mu         sync.Mutex
	connection *amqp.Connection
	channel    *amqp.Channel
	closed     bool
}

// NewAMPQPublisher connects to the broker at url and declares queueName, retrying until connectTimeout elapses or
// ctx is done.
func NewAMPQPublisher(ctx context.Context, url, queueName string, connectTimeout time.Duration, logger *log.Logger) (*AMPQPublisher, error) {
	p := &AMPQPublisher{
		url:            url,
		queueName:      queueName,
		connectTimeout: connectTimeout,
		logger:         logger,
	}

	connection, channel, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	p.connection, p.channel = connection, channel
	p.logger.Infof("Connected to RabbitMQ, publishing account events to %s", p.queueName)
	return p, nil
}

// connect dials the broker until it answers, connectTimeout elapses or ctx is done.
func (p *AMPQPublisher) connect(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	timeout := time.Now().Add(p.connectTimeout)
	for {
		connection, channel, err := p.dial(ctx)
		if err == nil {
			return connection, channel, nil
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if !time.Now().Before(timeout) {
			return nil, nil, err
		}

		p.logger.Infof("RabbitMQ not reachable yet (%v), retrying", err)
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(connectRetryInterval):
		}
	}
}

// dial makes a single attempt to connect, open a channel and declare the events queue.
// The TCP dial and the AMQP handshake are bounded by ctx and connectTimeout.
func (p *AMPQPublisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	connection, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      p.dialer(ctx),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := connection.Channel()
	if err != nil {
		connection.Close()
		return nil, nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = channel.QueueDeclare(p.queueName, true, false, false, false, nil)
	if err != nil {
		connection.Close()
		return nil, nil, fmt.Errorf("failed to declare queue %s: %w", p.queueName, err)
	}
	return connection, channel, nil
}

// dialer returns a net dial function honouring ctx. The deadline it sets on the socket covers the AMQP handshake;
// the client clears it once the connection is open.
func (p *AMPQPublisher) dialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: p.connectTimeout}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		deadline, ok := ctx.Deadline()
		if p.connectTimeout > 0 {
			if limit := time.Now().Add(p.connectTimeout); !ok || limit.Before(deadline) {
				deadline, ok = limit, true
			}
		}
		if ok {
			if err := conn.SetDeadline(deadline); err != nil {
				conn.Close()
				return nil, err
			}
		}
		return conn, nil
	}
}

// ensureChannel returns an open channel, re-dialling once if the connection was lost.
func (p *AMPQPublisher) ensureChannel(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPublisherClosed
	}
	if p.connection != nil && !p.connection.IsClosed() && p.channel != nil && !p.channel.IsClosed() {
		channel := p.channel
		p.mu.Unlock()
		return channel, nil
	}
	p.mu.Unlock()

	p.logger.Info("Reconnecting to RabbitMQ...")
	connection, channel, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		connection.Close()
		return nil, ErrPublisherClosed
	case p.connection != nil && !p.connection.IsClosed() && p.channel != nil && !p.channel.IsClosed():
		// another publish reconnected first
		connection.Close()
		return p.channel, nil
	}
	if p.connection != nil {
		p.connection.Close()
	}
	p.connection, p.channel = connection, channel
	return channel, nil
}

// Publish sends event as a persistent JSON message.
func (p *AMPQPublisher) Publish(ctx context.Context, event AccountEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	channel, err := p.ensureChannel(ctx)
	if errors.Is(err, ErrPublisherClosed) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to ensure connection: %w", err)
	}

	err = channel.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Shutdown closes the broker connection. Later publishes return ErrPublisherClosed.
func (p *AMPQPublisher) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.logger.Info("Shutting down AMQP publisher...")
	if p.channel != nil {
		p.channel.Close()
	}
	if p.connection != nil {
		p.connection.Close()
	}
	p.logger.Info("AMQP publisher shut down")
}
