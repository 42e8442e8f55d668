// PATH: internal/contracts/event/envelope.go
package event

import (
	"encoding/json"
	"strings"
	"time"

	appErrors "github.com/ecomshop/event-pipeline/internal/errors"
)

// Event names double as AMQP routing keys (and, by convention, queue names).
const (
	OrderCreated       = "order_created"
	InventoryProcessed = "inventory_processed"
)

// TimeLayout is RFC3339 with microsecond precision, always UTC.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Envelope is the canonical wire wrapper for every domain event.
// The timestamp is fixed at construction time, not at publish time, and the
// envelope is never mutated afterwards.
type Envelope[T any] struct {
	EventName string `json:"event_name"`
	Timestamp string `json:"timestamp"`
	Payload   T      `json:"payload"`
}

// New builds an envelope stamped with the current UTC time.
func New[T any](name string, payload T) Envelope[T] {
	return Envelope[T]{
		EventName: name,
		Timestamp: time.Now().UTC().Format(TimeLayout),
		Payload:   payload,
	}
}

// OrderCreatedPayload mirrors the order as placed. Items keep their request
// order.
type OrderCreatedPayload struct {
	OrderID string      `json:"order_id"`
	UserID  int64       `json:"user_id"`
	Total   float64     `json:"total"`
	Items   []OrderItem `json:"items"`
	Status  string      `json:"status,omitempty"`
}

type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// InventoryProcessedPayload carries only the correlation key; downstream
// services re-fetch authoritative state from their own store.
type InventoryProcessedPayload struct {
	OrderID string `json:"order_id"`
}

// Decode unmarshals an envelope body. Tolerant of extra fields from older
// producers; payload-level checks such as RequireOrderID are separate.
func Decode[T any](body []byte) (Envelope[T], error) {
	var env Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return env, appErrors.NewMalformedEnvelope("invalid envelope json")
	}
	return env, nil
}

// RequireOrderID extracts payload.order_id from a raw envelope body, failing
// fast when it is absent or blank.
func RequireOrderID(body []byte) (string, error) {
	env, err := Decode[struct {
		OrderID string `json:"order_id"`
	}](body)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(env.Payload.OrderID) == "" {
		return "", appErrors.NewMalformedEnvelope("order_id is missing in the payload")
	}
	return env.Payload.OrderID, nil
}
