package rabbitmq

// options are shared by Publish and Consume. Queue defaults to the routing
// key, exchange to the configured default; maxAttempts bounds publish
// attempts on the publisher side and handler invocations on the consumer
// side, and falls back to the backoff config when left at zero.
type options struct {
	queue       string
	exchange    string
	maxAttempts int
}

type Option func(*options)

func WithQueue(queue string) Option {
	return func(o *options) { o.queue = queue }
}

func WithExchange(exchange string) Option {
	return func(o *options) { o.exchange = exchange }
}

func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

func buildOptions(routingKey, defaultExchange string, opts []Option) options {
	o := options{
		queue:    routingKey,
		exchange: defaultExchange,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
