package room

import (
	"encoding/json"
	"time"

	"github.com/arcanechess/backend/internal/game"
	"github.com/google/uuid"
)

// Room is one game session: two player seats, one board. The store owns
// the authoritative copy; anything held in memory is a private copy that
// only takes effect when written back through the store.
type Room struct {
	ID        string
	Name      string
	Player1ID *string
	Player2ID *string
	Status    game.Status
	Board     *game.Board
	CreatedAt int64
	UpdatedAt int64
	Version   int64
}

// roomWire is the stored/wire shape; the embedded board travels as its
// serialized snapshot.
type roomWire struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Player1ID  *string        `json:"player1_id"`
	Player2ID  *string        `json:"player2_id"`
	Status     game.Status    `json:"status"`
	BoardState *game.Snapshot `json:"board_state"`
	CreatedAt  int64          `json:"created_at"`
	UpdatedAt  int64          `json:"updated_at"`
	Version    int64          `json:"version"`
}

func (r *Room) MarshalJSON() ([]byte, error) {
	w := roomWire{
		ID:        r.ID,
		Name:      r.Name,
		Player1ID: r.Player1ID,
		Player2ID: r.Player2ID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
	if r.Board != nil {
		w.BoardState = r.Board.Snapshot()
	}
	return json.Marshal(w)
}

func (r *Room) UnmarshalJSON(data []byte) error {
	var w roomWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Room{
		ID:        w.ID,
		Name:      w.Name,
		Player1ID: w.Player1ID,
		Player2ID: w.Player2ID,
		Status:    w.Status,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
		Version:   w.Version,
	}
	if w.BoardState != nil {
		r.Board = game.FromSnapshot(w.BoardState)
	}
	return nil
}

// IsParticipant reports whether playerID holds either seat.
func (r *Room) IsParticipant(playerID string) bool {
	if r.Player1ID != nil && *r.Player1ID == playerID {
		return true
	}
	return r.Player2ID != nil && *r.Player2ID == playerID
}

// newRoom builds a fresh room with the creator seated as white.
func newRoom(name, creatorID string) *Room {
	board := game.NewBoard()
	creator := creatorID
	board.Players.White = &creator

	now := time.Now().Unix()
	return &Room{
		ID:        uuid.NewString(),
		Name:      name,
		Player1ID: &creator,
		Status:    game.StatusWaiting,
		Board:     board,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
