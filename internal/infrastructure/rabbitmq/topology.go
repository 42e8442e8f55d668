package rabbitmq

import (
	"errors"
	"fmt"

	appErrors "github.com/ecomshop/event-pipeline/internal/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DeadLetterExchange is shared by every queue in the system.
	DeadLetterExchange = "dlx_exchange"

	// DLQSuffix derives a queue's dead-letter queue name.
	DLQSuffix = "_dlq"
)

// DLQName returns the paired dead-letter queue for a primary queue.
func DLQName(queue string) string {
	return queue + DLQSuffix
}

// Topology declares exchanges, queues, and bindings. All declarations are
// idempotent at the broker level; a redeclare with conflicting parameters
// surfaces as a TOPOLOGY_CONFLICT error and is never retried.
type Topology struct {
	ch Channel
}

func NewTopology(ch Channel) *Topology {
	return &Topology{ch: ch}
}

// DeclareExchange declares a direct/topic/fanout exchange.
func (t *Topology) DeclareExchange(name, kind string, durable, autoDelete bool) error {
	if err := t.ch.ExchangeDeclare(name, kind, durable, autoDelete, false, false, nil); err != nil {
		return classifyTopologyErr("declare exchange "+name, err)
	}
	return nil
}

// DeclareQueue declares a quorum queue with dead-letter routing to the shared
// dead-letter exchange, and independently declares and binds the paired
// <queue>_dlq queue with the same durability flag.
func (t *Topology) DeclareQueue(name string, durable, exclusive, autoDelete bool, extraArgs amqp.Table) error {
	args := amqp.Table{}
	for k, v := range extraArgs {
		args[k] = v
	}
	args["x-queue-type"] = "quorum"
	args["x-dead-letter-exchange"] = DeadLetterExchange
	args["x-dead-letter-routing-key"] = DLQName(name)

	if err := t.DeclareExchange(DeadLetterExchange, "direct", true, false); err != nil {
		return err
	}

	if _, err := t.ch.QueueDeclare(name, durable, autoDelete, exclusive, false, args); err != nil {
		return classifyTopologyErr("declare queue "+name, err)
	}

	dlq := DLQName(name)
	if _, err := t.ch.QueueDeclare(dlq, durable, autoDelete, exclusive, false, amqp.Table{"x-queue-type": "quorum"}); err != nil {
		return classifyTopologyErr("declare queue "+dlq, err)
	}
	if err := t.ch.QueueBind(dlq, dlq, DeadLetterExchange, false, nil); err != nil {
		return classifyTopologyErr("bind queue "+dlq, err)
	}

	return nil
}

// BindQueue binds a queue to an exchange under a routing key.
func (t *Topology) BindQueue(queue, exchange, routingKey string) error {
	if err := t.ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return classifyTopologyErr("bind queue "+queue, err)
	}
	return nil
}

// Ensure declares a queue and binds it, honoring the config toggles. Both
// publisher and consumer run this before touching the queue.
func (t *Topology) Ensure(cfg Config, queue, exchange, routingKey string) error {
	if cfg.DeclareQueue {
		if err := t.DeclareQueue(queue, true, false, false, nil); err != nil {
			return err
		}
	}
	if cfg.BindQueue {
		if err := t.BindQueue(queue, exchange, routingKey); err != nil {
			return err
		}
	}
	return nil
}

// classifyTopologyErr maps AMQP 406 (PRECONDITION_FAILED) onto the conflict
// error; anything else is broker trouble and stays retryable.
func classifyTopologyErr(op string, err error) error {
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) && amqpErr.Code == amqp.PreconditionFailed {
		return appErrors.NewTopologyConflict(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
