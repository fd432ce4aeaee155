package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache_LocalLeaderboard(t *testing.T) {
	c, err := NewCache(CacheConfig{LocalGCInterval: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.ZIncrBy(ctx, "leaderboard:wins", 1, "alice")
	require.NoError(t, err)
	_, err = c.ZIncrBy(ctx, "leaderboard:wins", 2, "bob")
	require.NoError(t, err)

	top, err := c.ZRevRangeWithScores(ctx, "leaderboard:wins", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []ZMember{{Member: "bob", Score: 2}, {Member: "alice", Score: 1}}, top)

	_, err = c.Get(ctx, "absent")
	assert.True(t, IsNotFound(err))
}

func TestNewPubSub_LocalRoundTrip(t *testing.T) {
	ps, err := NewPubSub(CacheConfig{LocalPubSubBuf: 8})
	require.NoError(t, err)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "battle:1")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "battle:1", "hello"))
	select {
	case msg := <-ch:
		assert.Equal(t, "battle:1", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
}
