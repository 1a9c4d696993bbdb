package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arcanechess/backend/internal/room"
)

// Session implements the per-connection message protocol. One Session
// serves every connection; the per-connection state lives on the Client.
type Session struct {
	store    *room.Store
	bridge   *Bridge
	hub      *Hub
	validate *validator.Validate
	log      *zap.Logger
}

func NewSession(store *room.Store, bridge *Bridge, hub *Hub, log *zap.Logger) *Session {
	return &Session{
		store:    store,
		bridge:   bridge,
		hub:      hub,
		validate: validator.New(),
		log:      log,
	}
}

// ServeRoom upgrades the request and runs the connection until it drops.
// Registration happens before the room existence check so that a room
// created moments later still reaches an already-connected client.
func (s *Session) ServeRoom(c *gin.Context) {
	roomID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	client := newClient(conn, roomID, s.log)
	s.hub.Register(client)
	defer func() {
		s.hub.Unregister(client)
		client.close()
	}()

	go client.writePump()

	// The request context dies with the hijacked request; connection work
	// runs on its own context.
	ctx := context.Background()

	if _, err := s.store.Get(ctx, roomID); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			client.sendError("Game room not found.")
		} else {
			s.log.Error("room lookup on connect", zap.String("room_id", roomID), zap.Error(err))
			client.sendError("Failed to load game room.")
		}
		return
	}

	client.readPump(func(raw []byte) {
		s.HandleFrame(ctx, client, raw)
	})
}

// HandleFrame processes one inbound frame from one connection.
func (s *Session) HandleFrame(ctx context.Context, c *Client, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.sendError("Invalid JSON format.")
		return
	}

	switch frame.Type {
	case FrameMove:
		s.handleMove(ctx, c, frame.Payload)
	case FrameChat:
		s.handleChat(ctx, c, frame.Payload)
	default:
		c.sendError("Unknown message type.")
	}
}

func (s *Session) handleMove(ctx context.Context, c *Client, payload json.RawMessage) {
	var mv MovePayload
	if err := json.Unmarshal(payload, &mv); err != nil {
		c.sendError("Invalid JSON format.")
		return
	}
	if err := s.validate.Struct(&mv); err != nil {
		c.sendError("Missing move parameters (figure_id, new_row, new_col, player_id).")
		return
	}
	if _, err := uuid.Parse(mv.PlayerID); err != nil {
		c.sendError("Invalid player_id format.")
		return
	}
	c.playerID = mv.PlayerID

	rm, err := s.store.Get(ctx, c.roomID)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			c.sendError("Game room not found during move processing.")
		} else {
			s.log.Error("load room for move", zap.String("room_id", c.roomID), zap.Error(err))
			c.sendError("Failed to process move.")
		}
		return
	}

	// Rejected moves still mutate the board (the rejection is logged into
	// the game log), so both outcomes persist and broadcast the same way.
	res := rm.Board.ApplyMove(mv.FigureID, *mv.NewRow, *mv.NewCol, mv.PlayerID)

	updated, err := s.store.ReplaceBoard(ctx, c.roomID, rm.Board)
	if err != nil {
		s.log.Error("persist move", zap.String("room_id", c.roomID), zap.Error(err))
		c.sendError("Failed to process move.")
		return
	}

	// The requester additionally gets the rejection line privately.
	if !res.Applied {
		c.sendError(res.Detail)
	}

	if err := s.bridge.Publish(ctx, c.roomID, NewStateUpdate(updated.Board.Snapshot())); err != nil {
		s.log.Error("broadcast move", zap.String("room_id", c.roomID), zap.Error(err))
	}
	s.log.Info("move processed",
		zap.String("room_id", c.roomID),
		zap.String("figure_id", mv.FigureID),
		zap.Bool("applied", res.Applied),
		zap.String("reason", string(res.Reason)))
}

func (s *Session) handleChat(ctx context.Context, c *Client, payload json.RawMessage) {
	var chat ChatPayload
	if err := json.Unmarshal(payload, &chat); err != nil {
		c.sendError("Invalid JSON format.")
		return
	}
	if strings.TrimSpace(chat.Message) == "" {
		c.sendError("Chat message cannot be empty.")
		return
	}

	sender := c.playerID
	if sender == "" {
		sender = "Anonymous"
	}
	if err := s.bridge.Publish(ctx, c.roomID, NewChatFrame(sender, chat.Message)); err != nil {
		s.log.Error("broadcast chat", zap.String("room_id", c.roomID), zap.Error(err))
	}
}
