package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"video-inspection-console/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of sending, for dev and redis-less test
// setups where no bot token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	compLog := logger.With().Str("component", "NoopNotifier").Logger()
	return &NoopNotifier{log: &compLog}
}

func (n *NoopNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info().Str("text", text).Msg("notification (noop)")
	return nil
}
