package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher delivers resolved rounds to systems outside the room.
type Publisher interface {
	PublishResult(ctx context.Context, r RoundResult) error
}

type NopPublisher struct{}

func (NopPublisher) PublishResult(context.Context, RoundResult) error { return nil }

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, r RoundResult) error

func (f PublisherFunc) PublishResult(ctx context.Context, r RoundResult) error { return f(ctx, r) }

// Multi publishes to every publisher in order and joins their errors.
type Multi []Publisher

func (m Multi) PublishResult(ctx context.Context, r RoundResult) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishResult(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const (
	natsMaxReconnects = -1
	natsReconnectWait = 2 * time.Second
)

// NATSPublisher publishes each round as JSON on a fixed subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("quickdraw"),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	log.Info().Str("url", url).Str("subject", subject).Msg("connected to NATS")
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

func (p *NATSPublisher) PublishResult(ctx context.Context, r RoundResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding round result: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing round result: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

// Async decouples callers from slow publishers. Results are queued and
// delivered by one goroutine; when the queue is full the result is dropped.
type Async struct {
	next    Publisher
	queue   chan RoundResult
	timeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func NewAsync(next Publisher, buffer int, timeout time.Duration) *Async {
	a := &Async{
		next:    next,
		queue:   make(chan RoundResult, buffer),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) PublishResult(ctx context.Context, r RoundResult) error {
	select {
	case a.queue <- r:
		return nil
	default:
		log.Warn().Str("room", r.Room).Msg("result queue full, dropping round result")
		return errors.New("result queue full")
	}
}

func (a *Async) run() {
	defer close(a.done)
	for r := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.PublishResult(ctx, r); err != nil {
			log.Error().Err(err).Str("room", r.Room).Msg("publishing round result")
		}
		cancel()
	}
}

// Close stops accepting results and waits for queued ones to be delivered.
// PublishResult must not be called after Close.
func (a *Async) Close() {
	a.closeOnce.Do(func() { close(a.queue) })
	<-a.done
}
