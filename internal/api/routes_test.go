package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arcanechess/backend/internal/archive"
	"github.com/arcanechess/backend/internal/room"
	"github.com/arcanechess/backend/internal/ws"
)

func newTestRouter(t *testing.T) (*gin.Engine, *room.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := zap.NewNop()
	store := room.NewStore(rdb, log)
	bridge := ws.NewBridge(rdb, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := ws.NewHub(ctx, bridge, log)
	session := ws.NewSession(store, bridge, hub, log)
	rec := archive.NewRecorder(nil, log)

	router := gin.New()
	SetupRoutes(router, store, bridge, session, rec, log)
	return router, store
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var m map[string]any
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	}
	return w, m
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	w, m := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", m["status"])
}

func TestCreateRoomHTTP(t *testing.T) {
	router, _ := newTestRouter(t)

	w, m := doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{"room_name": "Open Challenge"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Open Challenge", m["name"])
	assert.Equal(t, "waiting", m["status"])
	assert.NotEmpty(t, m["player1_id"])
	assert.Nil(t, m["player2_id"])

	state, ok := m["board_state"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(8), state["board_size"])
	pieces, ok := state["board_pieces"].([]any)
	require.True(t, ok)
	assert.Len(t, pieces, 32)
}

func TestCreateRoomMissingName(t *testing.T) {
	router, _ := newTestRouter(t)
	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	w, m := doJSON(t, router, http.MethodGet, "/api/v1/rooms/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Room not found.", m["error"])
}

func TestListRooms(t *testing.T) {
	router, _ := newTestRouter(t)

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/rooms", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{"room_name": "Alpha"})

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created["id"], list[0]["id"])
	// List view carries no board.
	_, hasBoard := list[0]["board_state"]
	assert.False(t, hasBoard)
}

func TestJoinFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{"room_name": "Alpha"})
	roomID := created["id"].(string)

	w, joined := doJSON(t, router, http.MethodPost, "/api/v1/rooms/"+roomID+"/join", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "in_progress", joined["status"])
	assert.NotEmpty(t, joined["player2_id"])

	// Third player bounces.
	w, m := doJSON(t, router, http.MethodPost, "/api/v1/rooms/"+roomID+"/join", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Room is already full.", m["error"])
}

func TestJoinOwnRoomHTTP(t *testing.T) {
	router, _ := newTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{"room_name": "Alpha"})
	roomID := created["id"].(string)
	creator := created["player1_id"].(string)

	w, m := doJSON(t, router, http.MethodPost, "/api/v1/rooms/"+roomID+"/join", gin.H{"player_id": creator})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Player is already player1 in this room.", m["error"])
}

func TestMoveOverHTTP(t *testing.T) {
	router, store := newTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{"room_name": "Alpha"})
	roomID := created["id"].(string)
	white := created["player1_id"].(string)
	_, _ = doJSON(t, router, http.MethodPost, "/api/v1/rooms/"+roomID+"/join", nil)

	rm, err := store.Get(context.Background(), roomID)
	require.NoError(t, err)
	pawn := rm.Board.PieceAt(6, 0)

	w, m := doJSON(t, router, http.MethodPost, "/api/v1/games/"+roomID+"/move", gin.H{
		"figure_id": pawn.FigureID,
		"new_row":   4,
		"new_col":   0,
		"player_id": white,
	})
	require.Equal(t, http.StatusOK, w.Code)
	state := m["board_state"].(map[string]any)
	assert.Equal(t, "black", state["current_player"])
	assert.Equal(t, float64(1), state["turn_number"])
}

func TestMoveRejectedOverHTTP(t *testing.T) {
	router, store := newTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{"room_name": "Alpha"})
	roomID := created["id"].(string)
	_, joined := doJSON(t, router, http.MethodPost, "/api/v1/rooms/"+roomID+"/join", nil)
	black := joined["player2_id"].(string)

	rm, err := store.Get(context.Background(), roomID)
	require.NoError(t, err)
	pawn := rm.Board.PieceAt(1, 0)

	// Black moving first is out of turn.
	w, m := doJSON(t, router, http.MethodPost, "/api/v1/games/"+roomID+"/move", gin.H{
		"figure_id": pawn.FigureID,
		"new_row":   3,
		"new_col":   0,
		"player_id": black,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, m["error"], "turn")
	assert.NotContains(t, m["error"], "Error: ")

	// The rejection is persisted in the game log.
	got, err := store.Get(context.Background(), roomID)
	require.NoError(t, err)
	require.NotEmpty(t, got.Board.GameLog)
	assert.Contains(t, got.Board.GameLog[len(got.Board.GameLog)-1], "Error: ")
}

func TestMoveUnknownGame(t *testing.T) {
	router, _ := newTestRouter(t)

	w, m := doJSON(t, router, http.MethodPost, "/api/v1/games/nope/move", gin.H{
		"figure_id": "f",
		"new_row":   0,
		"new_col":   0,
		"player_id": "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Game not found.", m["error"])
}

func TestResignOverHTTP(t *testing.T) {
	router, store := newTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{"room_name": "Alpha"})
	roomID := created["id"].(string)
	white := created["player1_id"].(string)
	_, _ = doJSON(t, router, http.MethodPost, "/api/v1/rooms/"+roomID+"/join", nil)

	w, m := doJSON(t, router, http.MethodPost, "/api/v1/rooms/"+roomID+"/resign", gin.H{"player_id": white})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "resigned", m["status"])

	// Terminal: further moves are refused.
	rm, err := store.Get(context.Background(), roomID)
	require.NoError(t, err)
	pawn := rm.Board.PieceAt(6, 4)
	w, m = doJSON(t, router, http.MethodPost, "/api/v1/games/"+roomID+"/move", gin.H{
		"figure_id": pawn.FigureID,
		"new_row":   5,
		"new_col":   4,
		"player_id": white,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, m["error"], "over")
}

func TestResignOutsider(t *testing.T) {
	router, _ := newTestRouter(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{"room_name": "Alpha"})
	roomID := created["id"].(string)

	w, m := doJSON(t, router, http.MethodPost, "/api/v1/rooms/"+roomID+"/resign",
		gin.H{"player_id": "cccccccc-cccc-cccc-cccc-cccccccccccc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Player is not a participant of this room.", m["error"])
}

func TestDeleteRooms(t *testing.T) {
	router, _ := newTestRouter(t)

	for i := 0; i < 3; i++ {
		doJSON(t, router, http.MethodPost, "/api/v1/rooms", gin.H{"room_name": fmt.Sprintf("Room %d", i)})
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/rooms", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w2, _ := doJSON(t, router, http.MethodGet, "/api/v1/rooms", nil)
	assert.JSONEq(t, "[]", w2.Body.String())
}
