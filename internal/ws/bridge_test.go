package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestBridgePublishDelivers(t *testing.T) {
	rdb := newTestRedis(t)
	b := NewBridge(rdb, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan []byte, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Listen(ctx, "room-1", func(p []byte) { delivered <- p })
	}()

	// Listen confirms its subscription before consuming, but give the
	// goroutine a moment to reach that point.
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(context.Background(), ChannelFor("room-1")).Result()
		return err == nil && n[ChannelFor("room-1")] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, b.Publish(context.Background(), "room-1", NewChatFrame("alice", "hi")))

	select {
	case p := <-delivered:
		var frame ChatFrame
		require.NoError(t, json.Unmarshal(p, &frame))
		assert.Equal(t, "chat_message", frame.Type)
		assert.Equal(t, "alice", frame.Sender)
		assert.Equal(t, "hi", frame.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not exit on cancel")
	}
}

func TestBridgeChannelsAreScopedPerRoom(t *testing.T) {
	rdb := newTestRedis(t)
	b := NewBridge(rdb, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan []byte, 4)
	go b.Listen(ctx, "room-a", func(p []byte) { delivered <- p })

	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(context.Background(), ChannelFor("room-a")).Result()
		return err == nil && n[ChannelFor("room-a")] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, b.Publish(context.Background(), "room-b", NewChatFrame("x", "other room")))
	require.NoError(t, b.Publish(context.Background(), "room-a", NewChatFrame("x", "this room")))

	select {
	case p := <-delivered:
		var frame ChatFrame
		require.NoError(t, json.Unmarshal(p, &frame))
		assert.Equal(t, "this room", frame.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
	}
	assert.Empty(t, delivered)
}
