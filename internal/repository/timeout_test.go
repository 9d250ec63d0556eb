package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBoundAppliesStoreTimeout(t *testing.T) {
	ctx, cancel := bound(context.Background(), 50*time.Millisecond)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok, "store calls must carry a deadline")
	require.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 30*time.Millisecond)
}

func TestBoundDefaultsZeroTimeout(t *testing.T) {
	ctx, cancel := bound(context.Background(), 0)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(DefaultStoreTimeout), deadline, time.Second)
}

func TestBoundKeepsEarlierDeadline(t *testing.T) {
	parent, parentCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer parentCancel()

	ctx, cancel := bound(parent, time.Hour)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}
