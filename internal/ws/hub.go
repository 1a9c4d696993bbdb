package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hub is the per-process connection registry: room id → set of live
// clients. Registering the first client for a room starts that room's
// bridge listener; removing the last one cancels it, so broker
// subscriptions exist exactly while the room has local connections.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	cancels map[string]context.CancelFunc

	bridge *Bridge
	log    *zap.Logger

	// base context for listener goroutines; cancelling it stops them all
	// on shutdown.
	ctx context.Context
}

func NewHub(ctx context.Context, bridge *Bridge, log *zap.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]bool),
		cancels: make(map[string]context.CancelFunc),
		bridge:  bridge,
		log:     log,
		ctx:     ctx,
	}
}

// Register adds a client to its room's set and starts the room's bridge
// listener if this is the first local connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[c.roomID]
	if !ok {
		set = make(map[*Client]bool)
		h.rooms[c.roomID] = set
	}
	set[c] = true

	if _, running := h.cancels[c.roomID]; !running {
		ctx, cancel := context.WithCancel(h.ctx)
		h.cancels[c.roomID] = cancel
		roomID := c.roomID
		go h.bridge.Listen(ctx, roomID, func(payload []byte) {
			h.BroadcastLocal(roomID, payload)
		})
		h.log.Info("started bridge listener", zap.String("room_id", roomID))
	}
}

// Unregister removes a client; the last removal for a room cancels its
// bridge listener. Safe to call more than once for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[c.roomID]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.rooms, c.roomID)
		if cancel, ok := h.cancels[c.roomID]; ok {
			cancel()
			delete(h.cancels, c.roomID)
		}
		h.log.Info("stopped bridge listener", zap.String("room_id", c.roomID))
	}
}

// BroadcastLocal delivers payload to every client registered for the
// room. A client whose send fails is dropped from the registry without
// aborting delivery to the others.
func (h *Hub) BroadcastLocal(roomID string, payload []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var failed []*Client
	for _, c := range clients {
		if !c.enqueue(payload) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.log.Warn("dropping unresponsive connection", zap.String("room_id", roomID))
		h.Unregister(c)
		c.close()
	}
}

// RoomSize reports the number of local connections for a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// ListenerRunning reports whether a bridge listener is active for a room.
func (h *Hub) ListenerRunning(roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.cancels[roomID]
	return ok
}
