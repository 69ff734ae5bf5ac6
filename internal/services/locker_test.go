package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := newLocalLocker()

	release, ok, err := l.Acquire(ctx, "capture:PP-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "capture:PP-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = l.Acquire(ctx, "capture:PP-2", time.Minute)
	assert.True(t, ok)

	require.NoError(t, release(ctx))
	_, ok, _ = l.Acquire(ctx, "capture:PP-1", time.Minute)
	assert.True(t, ok)
}

func TestLocalLockerExpiredLease(t *testing.T) {
	ctx := context.Background()
	l := newLocalLocker()

	stale, ok, _ := l.Acquire(ctx, "k", time.Nanosecond)
	require.True(t, ok)
	time.Sleep(time.Millisecond)

	_, ok, _ = l.Acquire(ctx, "k", time.Minute)
	require.True(t, ok)

	// the expired holder must not free the new lease
	require.NoError(t, stale(ctx))
	_, ok, _ = l.Acquire(ctx, "k", time.Minute)
	assert.False(t, ok)
}
