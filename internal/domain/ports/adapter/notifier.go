package adapter

import "context"

// Notifier delivers operator-facing messages about terminal job
// states. Implementations must be safe to call from poll goroutines.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
