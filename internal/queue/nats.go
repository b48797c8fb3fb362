package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
)

// Config holds the JetStream connection settings.
type Config struct {
	URL             string
	Stream          string
	Subject         string
	ConsumerName    string
	Concurrency     int
	ShutdownTimeout time.Duration
}

// Handler executes one command. Errors of kind ValidationFailed or NotFound
// terminate the message; any other error asks for redelivery.
type Handler func(ctx context.Context, cmd Command) error

func connect(cfg Config) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("gigakavun"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return nc, js, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, cfg Config) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: jetstream.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}
	return stream, nil
}

// Publisher sends commands to the work queue stream.
type Publisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects and makes sure the stream exists.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	nc, js, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := ensureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, err
	}
	return &Publisher{nc: nc, js: js, subject: cfg.Subject}, nil
}

// Dispatch validates and publishes cmd. The command id doubles as the JetStream
// message id so a retried publish is deduplicated by the server.
func (p *Publisher) Dispatch(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}
	if _, err := p.js.Publish(ctx, p.subject, data, jetstream.WithMsgID(cmd.ID)); err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldComponent: "queue",
		logger.FieldCommandID: cmd.ID,
	}).Debug(ctx, "Published %s command for %s", cmd.Kind, cmd.Target())
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

// Consumer pulls commands from the durable work queue consumer.
type Consumer struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	handler Handler
	config  Config

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewConsumer connects to NATS; call Start to begin consuming.
func NewConsumer(cfg Config, handler Handler) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("handler not set")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	nc, js, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js, handler: handler, config: cfg}, nil
}

// Start consumes until ctx is cancelled, then waits for in-flight commands up to
// the shutdown timeout.
func (c *Consumer) Start(ctx context.Context) error {
	ctx = logger.SetComponent(ctx, "queue")

	stream, err := ensureStream(ctx, c.js, c.config)
	if err != nil {
		return err
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          c.config.ConsumerName,
		Durable:       c.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
		AckWait:       10 * time.Minute,
		MaxAckPending: c.config.Concurrency,
		FilterSubject: c.config.Subject,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	sem := make(chan struct{}, c.config.Concurrency)
	c.running.Store(true)
	logger.With(logger.Fields{
		"stream":              c.config.Stream,
		"consumer":            c.config.ConsumerName,
		"concurrency":         c.config.Concurrency,
		logger.FieldComponent: "queue",
	}).Info(ctx, "Consumer started")

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		sem <- struct{}{}
		c.wg.Add(1)
		go func() {
			defer func() {
				<-sem
				c.wg.Done()
			}()
			handleMessage(ctx, msg, c.handler)
		}()
	})
	if err != nil {
		c.running.Store(false)
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	<-ctx.Done()
	logger.CtxInfo(ctx, "Context cancelled, stopping consumer")
	consumeCtx.Stop()
	c.running.Store(false)
	c.waitInFlight()
	return nil
}

func (c *Consumer) waitInFlight() {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	timeout := c.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		logger.GetDefault().Warnf("Consumer shutdown timed out after %s with commands in flight", timeout)
	}
}

// Stop closes the connection after Start has returned.
func (c *Consumer) Stop() {
	c.running.Store(false)
	if c.nc != nil {
		c.nc.Close()
	}
}

// IsRunning reports whether the consumer is pulling messages.
func (c *Consumer) IsRunning() bool {
	return c.running.Load()
}

// message is the part of jetstream.Msg the consumer needs.
type message interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

func handleMessage(ctx context.Context, msg message, handler Handler) {
	var cmd Command
	if err := json.Unmarshal(msg.Data(), &cmd); err != nil {
		logger.CtxWarn(ctx, "Dropping undecodable command: %v", err)
		_ = msg.Term()
		return
	}

	ctx = logger.WithField(ctx, logger.FieldCommandID, cmd.ID)
	if err := cmd.Validate(); err != nil {
		logger.CtxWarn(ctx, "Dropping invalid %s command: %v", cmd.Kind, err)
		_ = msg.Term()
		return
	}

	start := time.Now()
	err := handler(ctx, cmd)
	switch {
	case err == nil:
		_ = msg.Ack()
		logger.With(logger.Fields{
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		}).Info(ctx, "Command %s for %s completed", cmd.Kind, cmd.Target())
	case errors.Is(err, domain.ErrValidationFailed) || errors.Is(err, domain.ErrNotFound):
		_ = msg.Term()
		logger.CtxWarn(ctx, "Command %s for %s rejected: %v", cmd.Kind, cmd.Target(), err)
	default:
		_ = msg.Nak()
		logger.CtxWarn(ctx, "Command %s for %s failed, requesting redelivery: %v", cmd.Kind, cmd.Target(), err)
	}
}
