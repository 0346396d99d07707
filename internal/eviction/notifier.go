package eviction

import (
	"context"

	"github.com/darkodi/link-shortener/internal/logger"
)

// Notifier receives one call per evicted link
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Notifiers fans a notification out to each member in order
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n Notification) {
	for _, notifier := range ns {
		notifier.Notify(ctx, n)
	}
}

// LogNotifier writes evictions to the application log
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a notifier backed by log
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	l.log.Info("link evicted",
		"token", n.Token,
		"destination", n.Destination,
		"owner_id", n.OwnerID,
		"reason", string(n.Reason),
	)
}
