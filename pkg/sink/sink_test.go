package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwhmon/fwhmon/pkg/types"
)

type fakeSink struct {
	name       string
	publishErr error
	closeErr   error

	published []string
	closed    bool
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Publish(ctx context.Context, gatewayID string, stats types.Stats) error {
	f.published = append(f.published, gatewayID)
	return f.publishErr
}

func (f *fakeSink) Close() error {
	f.closed = true
	return f.closeErr
}

func TestSetPublish(t *testing.T) {
	t.Run("fans out to every sink", func(t *testing.T) {
		a := &fakeSink{name: "a"}
		b := &fakeSink{name: "b"}
		s := NewSet(a, b)

		s.Publish(context.Background(), "GW123", types.EmptyStats())
		assert.Equal(t, []string{"GW123"}, a.published)
		assert.Equal(t, []string{"GW123"}, b.published)
	})

	t.Run("one failing sink does not stop the rest", func(t *testing.T) {
		a := &fakeSink{name: "a", publishErr: errors.New("broker down")}
		b := &fakeSink{name: "b"}
		s := NewSet(a, b)

		s.Publish(context.Background(), "GW123", types.EmptyStats())
		assert.Len(t, b.published, 1)
	})
}

func TestSetClose(t *testing.T) {
	errA := errors.New("flush failed")
	a := &fakeSink{name: "a", closeErr: errA}
	b := &fakeSink{name: "b"}
	s := NewSet(a, b)

	err := s.Close()
	require.ErrorIs(t, err, errA)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
