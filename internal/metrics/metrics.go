package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_events_published_total",
			Help: "Total number of events published to the broker",
		},
		[]string{"routing_key"},
	)

	publishRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_publish_retries_total",
			Help: "Total number of failed publish attempts that were retried",
		},
		[]string{"routing_key"},
	)

	publishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_publish_failures_total",
			Help: "Total number of publishes that exhausted all attempts",
		},
		[]string{"routing_key"},
	)

	messagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_consumed_total",
			Help: "Total number of messages delivered to a consumer",
		},
		[]string{"queue"},
	)

	handlerRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_handler_retries_total",
			Help: "Total number of failed handler invocations",
		},
		[]string{"queue"},
	)

	dlqMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_dlq_messages_total",
			Help: "Total number of messages rejected to the dead-letter queue",
		},
		[]string{"queue", "reason"},
	)

	processingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_message_processing_duration_seconds",
			Help:    "Message processing duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"queue"},
	)
)

func RecordEventPublished(routingKey string) {
	eventsPublishedTotal.WithLabelValues(routingKey).Inc()
}

func RecordPublishRetry(routingKey string) {
	publishRetriesTotal.WithLabelValues(routingKey).Inc()
}

func RecordPublishFailure(routingKey string) {
	publishFailuresTotal.WithLabelValues(routingKey).Inc()
}

func RecordMessageConsumed(queue string) {
	messagesConsumedTotal.WithLabelValues(queue).Inc()
}

func RecordHandlerRetry(queue string) {
	handlerRetriesTotal.WithLabelValues(queue).Inc()
}

func RecordDLQMessage(queue, reason string) {
	dlqMessagesTotal.WithLabelValues(queue, reason).Inc()
}

func RecordProcessing(queue string, d time.Duration) {
	processingDuration.WithLabelValues(queue).Observe(d.Seconds())
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
