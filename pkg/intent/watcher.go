package intent

import (
	"context"

	"go.uber.org/zap"
)

// RateFeed is a RateSource that announces changes. *price.Cache satisfies it.
type RateFeed interface {
	RateSource
	Subscribe() <-chan struct{}
	Unsubscribe(ch <-chan struct{})
}

// Watcher recomputes the view whenever the intent or the cached rates change
type Watcher struct {
	resolver Resolver
	rates    RateFeed
	actions  Actions
	log      *zap.SugaredLogger
}

func NewWatcher(resolver Resolver, rates RateFeed, actions Actions, log *zap.SugaredLogger) *Watcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Watcher{resolver: resolver, rates: rates, actions: actions, log: log}
}

// Run sends a fresh view on every change until ctx is done. Once the resolver
// closes the last intent keeps being repriced. Rate changes before the first
// intent are ignored.
func (w *Watcher) Run(ctx context.Context, views chan<- *View) error {
	ticks := w.rates.Subscribe()
	defer w.rates.Unsubscribe(ticks)

	updates := w.resolver.Updates()
	var current *Snapshot

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-updates:
			if !ok {
				if current == nil {
					return ErrResolverClosed
				}
				updates = nil
				continue
			}
			current = &s
		case <-ticks:
			if current == nil {
				continue
			}
		}

		if current.Intent == nil {
			continue
		}

		view, err := Derive(current.Intent, w.rates, current.Refreshing)
		if err != nil {
			w.log.Warnw("failed to derive intent view", "err", err)
			continue
		}
		view.Actions = w.actions

		select {
		case views <- view:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
