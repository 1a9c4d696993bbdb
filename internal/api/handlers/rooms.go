package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arcanechess/backend/internal/archive"
	"github.com/arcanechess/backend/internal/game"
	"github.com/arcanechess/backend/internal/room"
	"github.com/arcanechess/backend/internal/ws"
)

type createRoomRequest struct {
	RoomName string `json:"room_name" binding:"required"`
}

type joinRoomRequest struct {
	PlayerID string `json:"player_id" binding:"omitempty,uuid"`
}

type playerRequest struct {
	PlayerID string `json:"player_id" binding:"required,uuid"`
}

type moveRequest struct {
	FigureID string `json:"figure_id" binding:"required"`
	NewRow   *int   `json:"new_row" binding:"required"`
	NewCol   *int   `json:"new_col" binding:"required"`
	PlayerID string `json:"player_id" binding:"required,uuid"`
}

// roomBrief is the list-view shape: no board state.
type roomBrief struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    game.Status `json:"status"`
	Player1ID *string     `json:"player1_id"`
	Player2ID *string     `json:"player2_id"`
}

// roomFull includes the serialized board.
type roomFull struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     game.Status    `json:"status"`
	Player1ID  *string        `json:"player1_id"`
	Player2ID  *string        `json:"player2_id"`
	BoardState *game.Snapshot `json:"board_state"`
	CreatedAt  int64          `json:"created_at"`
	UpdatedAt  int64          `json:"updated_at"`
}

func brief(rm *room.Room) roomBrief {
	return roomBrief{
		ID:        rm.ID,
		Name:      rm.Name,
		Status:    rm.Status,
		Player1ID: rm.Player1ID,
		Player2ID: rm.Player2ID,
	}
}

func full(rm *room.Room) roomFull {
	out := roomFull{
		ID:        rm.ID,
		Name:      rm.Name,
		Status:    rm.Status,
		Player1ID: rm.Player1ID,
		Player2ID: rm.Player2ID,
		CreatedAt: rm.CreatedAt,
		UpdatedAt: rm.UpdatedAt,
	}
	if rm.Board != nil {
		out.BoardState = rm.Board.Snapshot()
	}
	return out
}

// CreateRoom creates a room and seats the caller as white. Until real
// authentication exists the player id is generated server-side and
// returned in the response.
func CreateRoom(store *room.Store, rec *archive.Recorder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "room_name is required"})
			return
		}

		playerID := uuid.NewString()
		rm, err := store.Create(c.Request.Context(), req.RoomName, playerID)
		if err != nil {
			log.Error("create room", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room."})
			return
		}
		rec.Record(c.Request.Context(), rm)

		c.JSON(http.StatusCreated, full(rm))
	}
}

// ListRooms returns brief info for every room.
func ListRooms(store *room.Store, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms, err := store.List(c.Request.Context())
		if err != nil {
			log.Error("list rooms", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rooms."})
			return
		}
		out := make([]roomBrief, 0, len(rooms))
		for _, rm := range rooms {
			out = append(out, brief(rm))
		}
		c.JSON(http.StatusOK, out)
	}
}

// GetRoom returns the full room, board included.
func GetRoom(store *room.Store, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rm, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, room.ErrRoomNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Room not found."})
				return
			}
			log.Error("get room", zap.String("room_id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load room."})
			return
		}
		c.JSON(http.StatusOK, full(rm))
	}
}

// JoinRoom seats the caller as black and announces the join to every
// connected client. The caller may supply its player id; otherwise one
// is generated.
func JoinRoom(store *room.Store, bridge *ws.Bridge, rec *archive.Recorder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req joinRoomRequest
		// An empty body is fine: the player id is then generated.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id must be a UUID"})
			return
		}
		playerID := req.PlayerID
		if playerID == "" {
			playerID = uuid.NewString()
		}

		roomID := c.Param("id")
		rm, err := store.Join(c.Request.Context(), roomID, playerID)
		if err != nil {
			switch {
			case errors.Is(err, room.ErrRoomNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Room not found."})
			case errors.Is(err, room.ErrRoomFull):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Room is already full."})
			case errors.Is(err, room.ErrDuplicatePlayer):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Player is already player1 in this room."})
			default:
				log.Error("join room", zap.String("room_id", roomID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room."})
			}
			return
		}
		rec.Record(c.Request.Context(), rm)

		update := ws.NewRoomUpdate(rm, fmt.Sprintf("Player %s joined the room.", playerID))
		if err := bridge.Publish(c.Request.Context(), roomID, update); err != nil {
			log.Error("announce join", zap.String("room_id", roomID), zap.Error(err))
		}

		c.JSON(http.StatusOK, full(rm))
	}
}

// MakeMove applies one move over HTTP. A rejected move persists its log
// entry and comes back as 400 with the rejection text; an applied move
// persists, broadcasts the new state and returns the full room.
func MakeMove(store *room.Store, bridge *ws.Bridge, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req moveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "figure_id, new_row, new_col and player_id are required"})
			return
		}

		roomID := c.Param("id")
		rm, err := store.Get(c.Request.Context(), roomID)
		if err != nil {
			if errors.Is(err, room.ErrRoomNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Game not found."})
				return
			}
			log.Error("load room for move", zap.String("room_id", roomID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load game."})
			return
		}

		res := rm.Board.ApplyMove(req.FigureID, *req.NewRow, *req.NewCol, req.PlayerID)

		updated, err := store.ReplaceBoard(c.Request.Context(), roomID, rm.Board)
		if err != nil {
			log.Error("persist move", zap.String("room_id", roomID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update game state."})
			return
		}

		if !res.Applied {
			c.JSON(http.StatusBadRequest, gin.H{"error": strings.TrimPrefix(res.Detail, "Error: ")})
			return
		}

		if err := bridge.Publish(c.Request.Context(), roomID, ws.NewStateUpdate(updated.Board.Snapshot())); err != nil {
			log.Error("broadcast move", zap.String("room_id", roomID), zap.Error(err))
		}

		c.JSON(http.StatusOK, full(updated))
	}
}

// Resign ends the game on behalf of a participant and broadcasts the
// final state.
func Resign(store *room.Store, bridge *ws.Bridge, rec *archive.Recorder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req playerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required and must be a UUID"})
			return
		}

		roomID := c.Param("id")
		rm, err := store.Resign(c.Request.Context(), roomID, req.PlayerID)
		if err != nil {
			switch {
			case errors.Is(err, room.ErrRoomNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Room not found."})
			case errors.Is(err, room.ErrNotParticipant):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Player is not a participant of this room."})
			default:
				log.Error("resign", zap.String("room_id", roomID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resign."})
			}
			return
		}
		rec.Record(c.Request.Context(), rm)

		if err := bridge.Publish(c.Request.Context(), roomID, ws.NewStateUpdate(rm.Board.Snapshot())); err != nil {
			log.Error("broadcast resign", zap.String("room_id", roomID), zap.Error(err))
		}

		c.JSON(http.StatusOK, full(rm))
	}
}

// DeleteRooms wipes every room record. Development helper.
func DeleteRooms(store *room.Store, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := store.DeleteAll(c.Request.Context())
		if err != nil {
			log.Error("delete rooms", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rooms."})
			return
		}
		log.Info("rooms wiped", zap.Int("count", n))
		c.Status(http.StatusNoContent)
	}
}
