package rabbitmq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type exchangeDecl struct {
	name, kind string
	durable    bool
	autoDelete bool
}

type queueDecl struct {
	name      string
	durable   bool
	exclusive bool
	args      amqp.Table
}

type bindDecl struct {
	queue, key, exchange string
}

type publishRecord struct {
	exchange, key string
	msg           amqp.Publishing
}

type qosCall struct {
	count, size int
	global      bool
}

// fakeChannel records every call and can be scripted to fail.
type fakeChannel struct {
	mu sync.Mutex

	exchanges []exchangeDecl
	queues    []queueDecl
	binds     []bindDecl
	publishes []publishRecord
	qosCalls  []qosCall

	queueDeclareErr error
	publishErrs     []error              // consumed one per publish attempt; nil = success
	consumeErrs     []error              // consumed one per Consume call; nil = success
	streams         []chan amqp.Delivery // popped per Consume call before falling back to deliveries
	consumeCalls    int
	deliveries      chan amqp.Delivery
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 16)}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, exchangeDecl{name, kind, durable, autoDelete})
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queueDeclareErr != nil {
		return amqp.Queue{}, f.queueDeclareErr
	}
	f.queues = append(f.queues, queueDecl{name, durable, exclusive, args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binds = append(f.binds, bindDecl{name, key, exchange})
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.publishErrs) > 0 {
		err := f.publishErrs[0]
		f.publishErrs = f.publishErrs[1:]
		if err != nil {
			return err
		}
	}
	f.publishes = append(f.publishes, publishRecord{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qosCalls = append(f.qosCalls, qosCall{prefetchCount, prefetchSize, global})
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumeCalls++
	if len(f.consumeErrs) > 0 {
		err := f.consumeErrs[0]
		f.consumeErrs = f.consumeErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.streams) > 0 {
		s := f.streams[0]
		f.streams = f.streams[1:]
		return s, nil
	}
	return f.deliveries, nil
}

func (f *fakeChannel) consumeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consumeCalls
}

func (f *fakeChannel) declaredQueue(name string) (queueDecl, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.queues {
		if q.name == name {
			return q, true
		}
	}
	return queueDecl{}, false
}

// fakeAcknowledger plugs into amqp.Delivery for resolution tests.
type fakeAcknowledger struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	rejects int
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacks++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejects++
	f.requeue = requeue
	return nil
}
