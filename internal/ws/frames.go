package ws

import (
	"encoding/json"

	"github.com/arcanechess/backend/internal/game"
	"github.com/arcanechess/backend/internal/room"
)

// Frame is one inbound session message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound frame types.
const (
	FrameMove = "move"
	FrameChat = "chat_message"
)

// MovePayload carries one move attempt. Rows/cols are pointers so a
// missing field is distinguishable from coordinate 0.
type MovePayload struct {
	FigureID string `json:"figure_id" validate:"required"`
	NewRow   *int   `json:"new_row" validate:"required"`
	NewCol   *int   `json:"new_col" validate:"required"`
	PlayerID string `json:"player_id" validate:"required"`
}

// ChatPayload carries one chat line; never stored, only relayed.
type ChatPayload struct {
	Message string `json:"message"`
}

// ErrorFrame is sent privately to one connection.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StateUpdate broadcasts the full serialized board after a move attempt.
type StateUpdate struct {
	Type  string         `json:"type"`
	State *game.Snapshot `json:"state"`
}

// ChatFrame relays a chat line to everyone in the room.
type ChatFrame struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// RoomUpdate announces a membership/status change (a second player
// joining) alongside the full board.
type RoomUpdate struct {
	Type       string         `json:"type"`
	RoomID     string         `json:"room_id"`
	Status     game.Status    `json:"status"`
	Player1ID  *string        `json:"player1_id"`
	Player2ID  *string        `json:"player2_id"`
	BoardState *game.Snapshot `json:"board_state"`
	Message    string         `json:"message"`
}

func NewErrorFrame(msg string) ErrorFrame {
	return ErrorFrame{Type: "error", Message: msg}
}

func NewStateUpdate(snap *game.Snapshot) StateUpdate {
	return StateUpdate{Type: "game_state_update", State: snap}
}

func NewChatFrame(sender, message string) ChatFrame {
	return ChatFrame{Type: "chat_message", Sender: sender, Message: message}
}

func NewRoomUpdate(rm *room.Room, message string) RoomUpdate {
	return RoomUpdate{
		Type:       "room_update",
		RoomID:     rm.ID,
		Status:     rm.Status,
		Player1ID:  rm.Player1ID,
		Player2ID:  rm.Player2ID,
		BoardState: rm.Board.Snapshot(),
		Message:    message,
	}
}
