// Package poller periodically fetches gateway stats and keeps the last good
// snapshot available to readers.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fwhmon/fwhmon/pkg/log"
	"github.com/fwhmon/fwhmon/pkg/types"
)

// FetchFunc produces a fresh stats snapshot, typically a bound
// (*franklin.Client).GetStats.
type FetchFunc func(context.Context) (types.Stats, error)

// Poller runs FetchFunc on an interval. Fetch failures are logged and the
// previous snapshot stays served; the cloud API flakes often enough that a
// single miss must not blank the readings.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	onUpdate func(context.Context, types.Stats)

	mu      sync.RWMutex
	last    types.Stats
	fetched bool
}

// Option configures a Poller.
type Option func(*Poller)

// WithOnUpdate registers a callback invoked after every successful fetch.
func WithOnUpdate(fn func(context.Context, types.Stats)) Option {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

// New builds a poller. It does not start fetching until Run is called.
func New(fetch FetchFunc, interval time.Duration, opts ...Option) *Poller {
	p := &Poller{
		fetch:    fetch,
		interval: interval,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run fetches immediately and then on every interval tick until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	stats, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch stats", slog.Any("error", err))
		return
	}

	p.mu.Lock()
	p.last = stats
	p.fetched = true
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(ctx, stats)
	}
}

// Latest returns the most recent successful snapshot. ok is false until the
// first successful fetch.
func (p *Poller) Latest() (stats types.Stats, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.fetched
}
