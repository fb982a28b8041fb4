package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-materials/internal/config"
	"github.com/phrazzld/scry-materials/internal/store"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping redis integration test")
	}

	client, err := NewClient(context.Background(), config.RedisConfig{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLeaseKey(t *testing.T) {
	assert.Equal(t, "scry:lease:video:abc", leaseKey("abc"))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{URL: "not a url"})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), config.RedisConfig{})
	assert.Error(t, err)
}

func TestLeaser_AcquireRelease(t *testing.T) {
	l := NewLeaser(testClient(t))
	ctx := context.Background()
	videoID := uuid.NewString()

	first, err := l.Acquire(ctx, videoID, time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, videoID, time.Minute)
	assert.ErrorIs(t, err, store.ErrLeaseHeld)

	require.NoError(t, first.Release(ctx))

	second, err := l.Acquire(ctx, videoID, time.Minute)
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestLeaser_StaleReleaseKeepsNewHolder(t *testing.T) {
	l := NewLeaser(testClient(t))
	ctx := context.Background()
	videoID := uuid.NewString()

	stale, err := l.Acquire(ctx, videoID, 50*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := l.Acquire(ctx, videoID, time.Minute)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, stale.Release(ctx), "releasing an expired lease is not an error")

	_, err = l.Acquire(ctx, videoID, time.Minute)
	assert.ErrorIs(t, err, store.ErrLeaseHeld, "stale release must not drop the new holder's lease")
}

func TestLeaser_RejectsNonPositiveTTL(t *testing.T) {
	l := &Leaser{}
	_, err := l.Acquire(context.Background(), "vid", 0)
	assert.Error(t, err)
}
