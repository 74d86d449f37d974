package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwhmon/fwhmon/pkg/types"
)

func TestPoller(t *testing.T) {
	t.Run("fetches immediately and on ticks", func(t *testing.T) {
		var fetches atomic.Int64
		fetch := func(ctx context.Context) (types.Stats, error) {
			n := fetches.Add(1)
			s := types.EmptyStats()
			s.Current.BatterySOC = float64(n)
			return s, nil
		}

		var updates atomic.Int64
		p := New(fetch, 10*time.Millisecond, WithOnUpdate(func(ctx context.Context, s types.Stats) {
			updates.Add(1)
		}))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		require.Eventually(t, func() bool {
			return fetches.Load() >= 3
		}, time.Second, time.Millisecond)
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)

		stats, ok := p.Latest()
		require.True(t, ok)
		assert.GreaterOrEqual(t, stats.Current.BatterySOC, 3.0)
		assert.GreaterOrEqual(t, updates.Load(), int64(3))
	})

	t.Run("keeps the last good snapshot across failures", func(t *testing.T) {
		var fetches atomic.Int64
		fetch := func(ctx context.Context) (types.Stats, error) {
			if fetches.Add(1) > 1 {
				return types.Stats{}, errors.New("cloud hiccup")
			}
			s := types.EmptyStats()
			s.Current.BatterySOC = 82
			return s, nil
		}
		p := New(fetch, 5*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		require.Eventually(t, func() bool {
			return fetches.Load() >= 3
		}, time.Second, time.Millisecond)
		cancel()
		<-done

		stats, ok := p.Latest()
		require.True(t, ok)
		assert.Equal(t, 82.0, stats.Current.BatterySOC)
	})

	t.Run("latest is empty before the first fetch", func(t *testing.T) {
		p := New(func(ctx context.Context) (types.Stats, error) {
			return types.EmptyStats(), nil
		}, time.Minute)
		_, ok := p.Latest()
		assert.False(t, ok)
	})
}
