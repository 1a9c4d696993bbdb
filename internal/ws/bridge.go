package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// channelPrefix namespaces per-room broker channels, distinct from the
// room store's record keys.
const channelPrefix = "game_updates:"

// ChannelFor returns the broker channel for one room.
func ChannelFor(roomID string) string { return channelPrefix + roomID }

// Bridge connects the local connection registry to the Redis pub/sub
// broker. Every state change is published here and comes back through a
// per-room listener — including on the process that produced it — so there
// is exactly one fan-out path.
type Bridge struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewBridge(rdb *redis.Client, log *zap.Logger) *Bridge {
	return &Bridge{rdb: rdb, log: log}
}

// Publish encodes msg and publishes it on the room's channel. Every
// process holding at least one connection for the room delivers it via its
// own listener.
func (b *Bridge) Publish(ctx context.Context, roomID string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message for room %s: %w", roomID, err)
	}
	if err := b.rdb.Publish(ctx, ChannelFor(roomID), data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", ChannelFor(roomID), err)
	}
	return nil
}

// Listen subscribes to the room's channel and hands every payload to
// deliver, until ctx is cancelled. The subscription is released on every
// exit path.
func (b *Bridge) Listen(ctx context.Context, roomID string, deliver func(payload []byte)) {
	channel := ChannelFor(roomID)
	pubsub := b.rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed so publishes racing the
	// first connection are not silently dropped.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			b.log.Error("subscribe failed", zap.String("channel", channel), zap.Error(err))
		}
		return
	}
	b.log.Info("listener subscribed", zap.String("channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("listener cancelled", zap.String("channel", channel))
			return
		case msg, ok := <-ch:
			if !ok {
				b.log.Warn("listener channel closed", zap.String("channel", channel))
				return
			}
			deliver([]byte(msg.Payload))
		}
	}
}
