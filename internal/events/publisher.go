// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// DefaultTopic is used when the configuration leaves the topic empty.
const DefaultTopic = "marquee.build.completed"

// ErrClosed is returned when publishing on a closed publisher.
var ErrClosed = errors.New("publisher is closed")

// Publisher sends warehouse events to one Watermill topic.
type Publisher struct {
	publisher message.Publisher
	topic     string
	logger    zerolog.Logger
	breaker   *gobreaker.CircuitBreaker[struct{}]

	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(threshold uint32, timeout time.Duration) Option {
	return func(p *Publisher) {
		p.breaker = newBreaker("events:"+p.topic, threshold, timeout, p.logger)
	}
}

// NewPublisher wraps an existing Watermill publisher.
func NewPublisher(pub message.Publisher, topic string, opts ...Option) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	p := &Publisher{
		publisher: pub,
		topic:     topic,
		logger:    logging.WithComponent("events"),
	}
	p.breaker = newBreaker("events:"+topic, defaultBreakerThreshold, defaultBreakerTimeout, p.logger)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewNATSPublisher connects a core NATS publisher for cfg.
// The connection retries in the background, so an unreachable server does
// not fail startup; publishes fail until it comes up.
func NewNATSPublisher(cfg *config.EventsConfig) (*Publisher, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	zl := logging.WithComponent("events")

	natsOpts := []natsgo.Option{
		natsgo.Name("marquee"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				zl.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			zl.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	return NewPublisher(pub, cfg.Topic, WithBreaker(cfg.BreakerThreshold, cfg.BreakerTimeout)), nil
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishBuildCompleted publishes the event for a successful run.
func (p *Publisher) PublishBuildCompleted(ctx context.Context, s *models.RunSummary) error {
	if s == nil {
		return errors.New("nil run summary")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	event := NewBuildCompleted(s)
	payload, err := Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.EventID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", event.Type)
	msg.Metadata.Set("run_id", event.RunID)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(p.topic, msg)
	})
	metrics.RecordEventPublish(err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Debug().Str("run_id", event.RunID).Str("topic", p.topic).Msg("Published build event")
	return nil
}

// Close shuts down the underlying publisher. It is safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// Noop discards events. It is used when events are disabled.
type Noop struct{}

func (Noop) PublishBuildCompleted(context.Context, *models.RunSummary) error { return nil }

func (Noop) Close() error { return nil }

// Sink is what the pipeline publishes to.
type Sink interface {
	PublishBuildCompleted(ctx context.Context, s *models.RunSummary) error
	Close() error
}

// Open returns the sink configured by cfg.
func Open(cfg *config.EventsConfig) (Sink, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	pub, err := NewNATSPublisher(cfg)
	if err != nil {
		return nil, err
	}
	return pub, nil
}
