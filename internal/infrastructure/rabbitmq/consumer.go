package rabbitmq

import (
	"context"
	"time"

	"github.com/ecomshop/event-pipeline/internal/metrics"
	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
	"github.com/ecomshop/event-pipeline/internal/retry"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handler processes one delivery. Returning nil acknowledges the message;
// errors drive the per-message retry counter.
type Handler func(ctx context.Context, d amqp.Delivery) error

// resubscribeDelay spaces retries after the broker drops a subscription.
const resubscribeDelay = 2 * time.Second

// Consumer subscribes to one queue with prefetch 1 and resolves every
// delivery to exactly one of ack, or reject-to-dead-letter after the bounded
// in-process retry is exhausted. Requeue-on-error is deliberately not used:
// the dead-letter queue is the single overflow path, so a deterministic
// handler bug cannot cause an unbounded redelivery loop.
type Consumer struct {
	ch          Channel
	topo        *Topology
	cfg         Config
	backoff     *retry.Config
	resubscribe time.Duration
}

func NewConsumer(ch Channel, cfg Config) *Consumer {
	return &Consumer{
		ch:          ch,
		topo:        NewTopology(ch),
		cfg:         cfg,
		backoff:     retry.DefaultConfig(),
		resubscribe: resubscribeDelay,
	}
}

// SetBackoff replaces the retry pacing. Call before Consume.
func (c *Consumer) SetBackoff(cfg retry.Config) {
	c.backoff = &cfg
}

// Consume blocks until ctx is canceled. Topology is ensured first, then the
// channel is limited to a single unacknowledged message (fair dispatch).
// Broker-side subscription failures are logged and retried; they never
// terminate the loop.
func (c *Consumer) Consume(ctx context.Context, routingKey string, handler Handler, opts ...Option) error {
	o := buildOptions(routingKey, c.cfg.Exchange, opts)
	log := logger.WithComponent("consumer").With().
		Str("queue", o.queue).
		Str("routing_key", routingKey).
		Logger()

	if err := c.topo.Ensure(c.cfg, o.queue, o.exchange, routingKey); err != nil {
		return err
	}

	if err := c.ch.Qos(1, 0, false); err != nil {
		return err
	}

	log.Info().Msg("consumer started")

	for {
		deliveries, err := c.ch.Consume(o.queue, "", false, false, false, false, nil)
		if err != nil {
			log.Error().Err(err).Msg("subscribe failed; retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.resubscribe):
			}
			continue
		}

		if err := c.drain(ctx, deliveries, handler, o, log); err != nil {
			return err
		}

		log.Warn().Msg("delivery channel closed; resubscribing")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.resubscribe):
		}
	}
}

// drain pulls deliveries until the stream closes (nil) or ctx ends (ctx.Err).
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler, o options, log zerolog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.resolve(ctx, d, handler, o, log)
		}
	}
}

// resolve runs the handler under the bounded retry and settles the delivery
// exactly once: ack on success, reject without requeue (dead-letter) on
// exhaustion. On shutdown mid-processing the delivery is left unresolved and
// the broker requeues it when the channel closes.
func (c *Consumer) resolve(ctx context.Context, d amqp.Delivery, handler Handler, o options, log zerolog.Logger) {
	metrics.RecordMessageConsumed(o.queue)
	start := time.Now()

	cfg := *c.backoff
	if o.maxAttempts > 0 {
		cfg.MaxAttempts = o.maxAttempts
	}

	err := retry.Do(ctx, &cfg, func() error {
		return handler(ctx, d)
	}, func(attempt int, attemptErr error) {
		metrics.RecordHandlerRetry(o.queue)
		log.Warn().Err(attemptErr).
			Int("attempt", attempt).
			Int("max_retries", cfg.MaxAttempts).
			Str("message_id", d.MessageId).
			Msg("handler attempt failed")
	})

	metrics.RecordProcessing(o.queue, time.Since(start))

	if err != nil {
		if ctx.Err() != nil {
			log.Warn().Str("message_id", d.MessageId).Msg("shutdown mid-processing; broker will redeliver")
			return
		}
		metrics.RecordDLQMessage(o.queue, "retries_exhausted")
		log.Error().Err(err).
			Str("message_id", d.MessageId).
			Str("dlq", DLQName(o.queue)).
			Msg("retries exhausted, dead-lettering message")
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Msg("nack failed")
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Str("message_id", d.MessageId).Msg("ack failed")
		return
	}
	log.Debug().Str("message_id", d.MessageId).Msg("message processed")
}
