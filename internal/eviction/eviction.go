// Package eviction removes links that are no longer live.
package eviction

import (
	"context"
	"time"

	"github.com/darkodi/link-shortener/internal/clock"
	"github.com/darkodi/link-shortener/internal/logger"
	"github.com/darkodi/link-shortener/internal/model"
	"github.com/darkodi/link-shortener/internal/store"
)

// LinkRemover is the part of the link store the engine needs
type LinkRemover interface {
	RemoveWhere(ctx context.Context, pred func(ownerID string, link model.Link) bool) []store.Removed
}

// Notification describes one evicted link
type Notification struct {
	Token       string               `json:"token"`
	Destination string               `json:"destination"`
	OwnerID     string               `json:"owner_id"`
	Reason      model.EvictionReason `json:"reason"`
	EvictedAt   time.Time            `json:"evicted_at"`
}

// Engine sweeps the store for expired and exhausted links
type Engine struct {
	store    LinkRemover
	clock    clock.Clock
	notifier Notifier
	log      *logger.Logger
}

// NewEngine creates an eviction engine. notifier may be nil.
func NewEngine(s LinkRemover, clk clock.Clock, notifier Notifier, log *logger.Logger) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if notifier == nil {
		notifier = Notifiers{}
	}
	return &Engine{
		store:    s,
		clock:    clk,
		notifier: notifier,
		log:      log,
	}
}

// Sweep removes every non-live link and notifies once per removal.
// Running it again without the clock moving removes nothing.
func (e *Engine) Sweep(ctx context.Context) []Notification {
	now := e.clock.Now()

	removed := e.store.RemoveWhere(ctx, func(_ string, l model.Link) bool {
		return !l.IsLive(now)
	})
	if len(removed) == 0 {
		return nil
	}

	// the removal is committed; a cancelled caller must not drop its events
	notifyCtx := context.WithoutCancel(ctx)
	notes := make([]Notification, 0, len(removed))
	for _, r := range removed {
		n := Notification{
			Token:       r.Link.Token,
			Destination: r.Link.Destination,
			OwnerID:     r.OwnerID,
			Reason:      r.Link.EvictionReason(now),
			EvictedAt:   now,
		}
		notes = append(notes, n)
		e.notifier.Notify(notifyCtx, n)
	}

	e.log.Debug("eviction sweep", "removed", len(notes))
	return notes
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// returns immediately.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.Info("periodic eviction started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			e.log.Info("periodic eviction stopped")
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}
