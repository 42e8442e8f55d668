package rabbitmq

import (
	"context"
	"encoding/json"

	appErrors "github.com/ecomshop/event-pipeline/internal/errors"
	"github.com/ecomshop/event-pipeline/internal/metrics"
	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
	"github.com/ecomshop/event-pipeline/internal/retry"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// FailureStore captures payloads whose publish exhausted every attempt, for
// out-of-band recovery. Implementations must not lose the body.
type FailureStore interface {
	Record(ctx context.Context, routingKey string, body []byte, attempts int, cause error) error
}

// Publisher serializes payloads and delivers them with bounded retry.
// Delivery is fire-and-forget per attempt; the retry loop is the only safety
// net against transient failures.
type Publisher struct {
	ch       Channel
	topo     *Topology
	cfg      Config
	failures FailureStore
	backoff  *retry.Config
}

func NewPublisher(ch Channel, cfg Config, failures FailureStore) *Publisher {
	return &Publisher{
		ch:       ch,
		topo:     NewTopology(ch),
		cfg:      cfg,
		failures: failures,
		backoff:  retry.DefaultConfig(),
	}
}

// SetBackoff replaces the retry pacing. Call before the first Publish.
func (p *Publisher) SetBackoff(cfg retry.Config) {
	p.backoff = &cfg
}

// Publish marshals payload to JSON and sends it persistent to the exchange.
// Queue declaration and binding happen first when the config toggles say so.
// A topology conflict is returned immediately; transient send failures are
// retried up to maxAttempts. After exhaustion the payload is handed to the
// failure store and nil is returned: the event is never silently dropped,
// but the caller is not expected to handle broker outages either.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any, opts ...Option) error {
	o := buildOptions(routingKey, p.cfg.Exchange, opts)
	log := logger.WithComponent("publisher").With().
		Str("routing_key", routingKey).
		Str("exchange", o.exchange).
		Logger()

	body, err := json.Marshal(payload)
	if err != nil {
		return appErrors.NewInvalidInput("payload is not serializable")
	}

	if err := p.topo.Ensure(p.cfg, o.queue, o.exchange, routingKey); err != nil {
		if appErrors.CodeOf(err) == appErrors.ErrCodeTopologyConflict {
			log.Error().Err(err).Msg("topology conflict")
		}
		return err
	}

	// Stable across retries so consumers can deduplicate.
	messageID := uuid.NewString()

	cfg := *p.backoff
	if o.maxAttempts > 0 {
		cfg.MaxAttempts = o.maxAttempts
	}

	err = retry.Do(ctx, &cfg, func() error {
		return p.ch.PublishWithContext(
			ctx,
			o.exchange,
			routingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				MessageId:    messageID,
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
			},
		)
	}, func(attempt int, attemptErr error) {
		metrics.RecordPublishRetry(routingKey)
		log.Warn().Err(attemptErr).Int("attempt", attempt).Int("max_attempts", cfg.MaxAttempts).
			Msg("publish attempt failed")
	})

	if err != nil {
		metrics.RecordPublishFailure(routingKey)
		failure := appErrors.NewPermanentPublishFailure("publish attempts exhausted", err)
		log.Error().Err(failure).Int("attempts", cfg.MaxAttempts).Msg("event permanently failed")

		if p.failures != nil {
			if recErr := p.failures.Record(ctx, routingKey, body, cfg.MaxAttempts, failure); recErr != nil {
				log.Error().Err(recErr).Msg("failure store record failed; payload only survives in logs")
			}
		}
		return nil
	}

	metrics.RecordEventPublished(routingKey)
	log.Debug().Str("message_id", messageID).Msg("event published")
	return nil
}
