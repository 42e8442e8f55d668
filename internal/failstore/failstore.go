package failstore

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
)

// Entry is one permanently-failed publish, kept for manual replay.
type Entry struct {
	RoutingKey string          `json:"routing_key"`
	Body       json.RawMessage `json:"body"`
	Attempts   int             `json:"attempts"`
	Reason     string          `json:"reason"`
	FailedAt   time.Time       `json:"failed_at"`
}

// Log records failures to the structured log only. The payload survives in
// the log stream, nowhere else.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (s *Log) Record(ctx context.Context, routingKey string, body []byte, attempts int, cause error) error {
	log := logger.WithComponent("failstore")
	log.Error().
		Str("routing_key", routingKey).
		RawJSON("body", body).
		Int("attempts", attempts).
		Err(cause).
		Msg("publish permanently failed")
	return nil
}

// File appends failures as JSON lines to a local file. Entries are replayed
// by feeding each line's body back through the publisher.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (s *File) Record(ctx context.Context, routingKey string, body []byte, attempts int, cause error) error {
	entry := Entry{
		RoutingKey: routingKey,
		Body:       body,
		Attempts:   attempts,
		Reason:     cause.Error(),
		FailedAt:   time.Now().UTC(),
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return err
	}
	return f.Sync()
}
