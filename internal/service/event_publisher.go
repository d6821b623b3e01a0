// Package service publishes registry events to RabbitMQ.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/parking-rental/internal/queue"
	"github.com/iliyamo/parking-rental/internal/registry"
)

var (
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("event publisher closed")
	// ErrPublisherBusy is returned by Publish when the send buffer is full.
	ErrPublisherBusy = errors.New("event publisher buffer full")
)

const (
	defaultPublishTimeout = 3 * time.Second
	defaultRedialCooldown = 30 * time.Second
	defaultBufferSize     = 1024
)

// EventPublisher is a registry.EventSink that sends each event as a
// persistent JSON message to a durable queue.  Publish only enqueues; a
// single goroutine sends the queued messages in order, so a slow or hung
// broker never blocks the caller.  The broker connection is opened on first
// use and reopened after it drops.  After a failed dial or publish, messages
// are dropped without redialing until the cooldown has passed.
type EventPublisher struct {
	url       string
	queueName string
	timeout   time.Duration
	cooldown  time.Duration

	mu      sync.Mutex // guards closed and sends on pending
	closed  bool
	pending chan amqp.Publishing
	done    chan struct{}

	// owned by the run goroutine
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
	dropped int
}

var _ registry.EventSink = (*EventPublisher)(nil)

func NewEventPublisher(url, queueName string) *EventPublisher {
	return newEventPublisher(url, queueName, defaultPublishTimeout, defaultRedialCooldown, defaultBufferSize)
}

func newEventPublisher(url, queueName string, timeout, cooldown time.Duration, buffer int) *EventPublisher {
	p := &EventPublisher{
		url:       url,
		queueName: queueName,
		timeout:   timeout,
		cooldown:  cooldown,
		pending:   make(chan amqp.Publishing, buffer),
		done:      make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues ev for delivery and returns without waiting for the
// broker.  The registry does not roll back on the returned error.
func (p *EventPublisher) Publish(_ context.Context, ev registry.Event) error {
	msg, err := buildPublishing(queue.FromRegistry(ev))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.pending <- msg:
		return nil
	default:
		log.Printf("rabbitmq: buffer full, dropping %s %s", msg.Type, msg.MessageId)
		return ErrPublisherBusy
	}
}

func (p *EventPublisher) run() {
	defer close(p.done)
	defer p.reset()
	for msg := range p.pending {
		p.send(msg)
	}
}

func (p *EventPublisher) send(msg amqp.Publishing) {
	if time.Now().Before(p.retryAt) {
		p.dropped++
		return
	}
	if p.dropped > 0 {
		log.Printf("rabbitmq: dropped %d events while the broker was unreachable", p.dropped)
		p.dropped = 0
	}
	ch, err := p.channel()
	if err != nil {
		log.Printf("rabbitmq: %v", err)
		p.backOff()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, msg); err != nil {
		log.Printf("rabbitmq: publish %s failed: %v", msg.MessageId, err)
		p.backOff()
	}
}

func (p *EventPublisher) backOff() {
	p.reset()
	p.retryAt = time.Now().Add(p.cooldown)
	p.dropped++
}

// channel returns an open channel, dialing when needed.
func (p *EventPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *EventPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close stops accepting events, sends what is already queued and releases
// the broker connection.
func (p *EventPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.pending)
	}
	p.mu.Unlock()
	<-p.done
	return nil
}

func buildPublishing(ev queue.ParkingEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Kind,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}, nil
}
