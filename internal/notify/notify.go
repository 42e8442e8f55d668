package notify

import (
	"context"

	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
)

// LogNotifier "sends" notifications by writing them to the structured log.
// It stands in for a mail/SMS provider; swap it behind domain.Notifier when
// a real channel is wired up.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, userID int64, title, body string) error {
	log := logger.WithComponent("notifier")
	log.Info().
		Int64("user_id", userID).
		Str("title", title).
		Str("body", body).
		Msg("notification delivered")
	return nil
}
