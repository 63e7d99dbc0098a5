package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldExpiryReleasesOrphanedHold(t *testing.T) {
	t.Skip("Integration test - requires redis")

	client, err := NewClient("localhost:6379", "", 0, 100*time.Millisecond)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.InitContainer(ctx, 9001))

	ok, err := client.HoldContainer(ctx, 9001, 1)
	require.NoError(t, err)
	require.True(t, ok)

	// A second holder is refused while the hold is live.
	ok, err = client.HoldContainer(ctx, 9001, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// Once the hold lapses the key reads as available again and the
	// database row lock decides between the contenders.
	time.Sleep(150 * time.Millisecond)
	ok, err = client.HoldContainer(ctx, 9001, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseClearsHold(t *testing.T) {
	t.Skip("Integration test - requires redis")

	client, err := NewClient("localhost:6379", "", 0, 30*time.Second)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.InitContainer(ctx, 9002))

	ok, err := client.HoldContainer(ctx, 9002, 1)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.ReleaseContainer(ctx, 9002))

	ok, err = client.HoldContainer(ctx, 9002, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}
