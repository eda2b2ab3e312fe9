package httputil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreCapacity(t *testing.T) {
	s := NewSemaphore(2)

	require.NoError(t, s.Acquire(context.Background()))
	require.NoError(t, s.Acquire(context.Background()))

	// At capacity: the next acquire blocks until a slot frees or the
	// context expires.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Acquire(ctx), context.DeadlineExceeded)

	s.Release()
	require.NoError(t, s.Acquire(context.Background()))
}

func TestSemaphoreReleaseWithoutAcquire(t *testing.T) {
	s := NewSemaphore(1)
	// Must not panic or corrupt state: a full acquire cycle still works.
	s.Release()
	require.NoError(t, s.Acquire(context.Background()))
	s.Release()
}
