package game

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// BoardSize is the grid dimension on both axes.
const BoardSize = 8

// Seats binds each color to a player id; nil means the seat is open.
type Seats struct {
	White *string `json:"white"`
	Black *string `json:"black"`
}

// ColorOf resolves a player id to its bound color.
func (s Seats) ColorOf(playerID string) (Color, bool) {
	if s.White != nil && *s.White == playerID {
		return White, true
	}
	if s.Black != nil && *s.Black == playerID {
		return Black, true
	}
	return "", false
}

type coord struct{ row, col int }

// Board is the authoritative game snapshot for one room: the grid, the
// piece indexes, turn bookkeeping and the append-only logs. It does no I/O;
// callers persist it through the room store after every ApplyMove, accepted
// or rejected, so the log trail survives.
//
// Invariant: a piece occupies grid cell (r,c) iff byID maps its figure id
// to it and byCoord maps (r,c) to it.
type Board struct {
	Size           int
	CurrentPlayer  Color
	WhiteHand      []json.RawMessage
	BlackHand      []json.RawMessage
	WhiteDoubleAdd int
	BlackDoubleAdd int
	GameLog        []string
	MovesLog       []string
	CardsCount     int
	Status         Status
	DayNightCycle  string
	TurnNumber     int
	Players        Seats
	LastMoveAt     *int64

	grid    [BoardSize][BoardSize]*Piece
	byID    map[string]*Piece
	byCoord map[coord]*Piece
}

// NewBoard returns a board with the fixed initial layout, white to move,
// waiting for a second player.
func NewBoard() *Board {
	b := &Board{
		Size:          BoardSize,
		CurrentPlayer: White,
		WhiteHand:     []json.RawMessage{},
		BlackHand:     []json.RawMessage{},
		GameLog:       []string{},
		MovesLog:      []string{},
		Status:        StatusWaiting,
		DayNightCycle: "day",
		byID:          make(map[string]*Piece),
		byCoord:       make(map[coord]*Piece),
	}
	for _, p := range InitialPieces() {
		b.place(p)
	}
	return b
}

func (b *Board) place(p *Piece) {
	b.grid[p.Row][p.Col] = p
	b.byID[p.FigureID] = p
	b.byCoord[coord{p.Row, p.Col}] = p
}

func (b *Board) removePiece(p *Piece) {
	b.grid[p.Row][p.Col] = nil
	delete(b.byCoord, coord{p.Row, p.Col})
	delete(b.byID, p.FigureID)
}

// PieceAt returns the piece at (row, col), if any.
func (b *Board) PieceAt(row, col int) *Piece {
	return b.byCoord[coord{row, col}]
}

// PieceByID returns the tracked piece with the given figure id, if any.
func (b *Board) PieceByID(figureID string) *Piece {
	return b.byID[figureID]
}

// PieceCount returns the number of pieces still on the board.
func (b *Board) PieceCount() int { return len(b.byID) }

// RejectReason names why a move was not applied.
type RejectReason string

const (
	RejectNone          RejectReason = ""
	RejectGameOver      RejectReason = "game_over"
	RejectPieceNotFound RejectReason = "piece_not_found"
	RejectNotAPlayer    RejectReason = "not_a_player"
	RejectOutOfTurn     RejectReason = "out_of_turn"
	RejectWrongColor    RejectReason = "wrong_color"
	RejectOutOfBounds   RejectReason = "out_of_bounds"
	RejectOwnOccupied   RejectReason = "occupied_by_own_piece"
)

// MoveResult is the typed outcome of ApplyMove. Detail is the exact line
// appended to the game log, so protocol layers can relay it verbatim.
type MoveResult struct {
	Applied  bool
	Reason   RejectReason
	Detail   string
	Captured *Piece
}

func (b *Board) reject(reason RejectReason, format string, args ...any) MoveResult {
	line := "Error: " + fmt.Sprintf(format, args...)
	b.GameLog = append(b.GameLog, line)
	return MoveResult{Reason: reason, Detail: line}
}

// ApplyMove attempts to move the identified piece to (newRow, newCol) on
// behalf of playerID. It never returns an error: every invalid condition is
// recorded as a game-log entry and reported through the MoveResult, leaving
// the board otherwise unchanged. Validation is ordered and each failure is
// a terminal early exit.
func (b *Board) ApplyMove(figureID string, newRow, newCol int, playerID string) MoveResult {
	if b.Status.Terminal() {
		return b.reject(RejectGameOver, "Game is over (%s); no further moves are accepted.", b.Status)
	}

	piece := b.byID[figureID]
	if piece == nil {
		return b.reject(RejectPieceNotFound, "Piece with ID %s not found.", figureID)
	}

	color, ok := b.Players.ColorOf(playerID)
	if !ok {
		return b.reject(RejectNotAPlayer, "Player %s is not a registered player in this game.", playerID)
	}

	if color != b.CurrentPlayer {
		return b.reject(RejectOutOfTurn, "It's %s's turn, but %s player tried to move.", b.CurrentPlayer, color)
	}

	if piece.Color != color {
		return b.reject(RejectWrongColor, "%s player tried to move a %s piece.", color, piece.Color)
	}

	if newRow < 0 || newRow >= b.Size || newCol < 0 || newCol >= b.Size {
		return b.reject(RejectOutOfBounds, "Invalid coordinates (%d, %d) for piece %s.", newRow, newCol, piece.FigureID)
	}

	oldRow, oldCol := piece.Row, piece.Col

	var captured *Piece
	if target := b.byCoord[coord{newRow, newCol}]; target != nil {
		if target.Color == piece.Color {
			return b.reject(RejectOwnOccupied, "Destination (%d, %d) occupied by own piece %s (%s).",
				newRow, newCol, target.Name, target.FigureID)
		}
		captured = target
		b.removePiece(target)
		b.GameLog = append(b.GameLog, fmt.Sprintf("Piece %s (%s %s) took %s (%s %s) at (%d, %d).",
			piece.FigureID, piece.Name, piece.Color,
			target.FigureID, target.Name, target.Color, newRow, newCol))
	}

	b.grid[oldRow][oldCol] = nil
	delete(b.byCoord, coord{oldRow, oldCol})

	piece.Row = newRow
	piece.Col = newCol
	piece.IsFirstMove = false
	piece.WalkCount++

	b.byCoord[coord{newRow, newCol}] = piece
	b.grid[newRow][newCol] = piece

	b.MovesLog = append(b.MovesLog, fmt.Sprintf("%s %s from (%d,%d) to (%d,%d)",
		b.CurrentPlayer, piece.Name, oldRow, oldCol, newRow, newCol))

	b.CurrentPlayer = b.CurrentPlayer.Opponent()
	b.TurnNumber++
	now := time.Now().Unix()
	b.LastMoveAt = &now
	b.GameLog = append(b.GameLog, fmt.Sprintf(
		"Successful move: %s %s from (%d, %d) to (%d, %d). New current player: %s.",
		piece.Name, piece.Color, oldRow, oldCol, newRow, newCol, b.CurrentPlayer))

	return MoveResult{Applied: true, Captured: captured}
}

// Snapshot is the stable serialization of a Board, used both for storage
// and for the wire. The field set never varies for the same logical state.
type Snapshot struct {
	BoardSize      int               `json:"board_size"`
	BoardPieces    []*Piece          `json:"board_pieces"`
	CurrentPlayer  Color             `json:"current_player"`
	WhiteHand      []json.RawMessage `json:"white_hand"`
	BlackHand      []json.RawMessage `json:"black_hand"`
	WhiteDoubleAdd int               `json:"white_double_add"`
	BlackDoubleAdd int               `json:"black_double_add"`
	GameLog        []string          `json:"game_log"`
	MovesLog       []string          `json:"moves_log"`
	CardsCount     int               `json:"cards_count"`
	GameStatus     Status            `json:"game_status"`
	DayNightCycle  string            `json:"day_night_cycle"`
	TurnNumber     int               `json:"turn_number"`
	Players        Seats             `json:"players"`
	LastMoveAt     *int64            `json:"last_move_at"`
}

// Snapshot serializes the full board state. Pieces are deep-copied and
// emitted in (row, col) order so output is deterministic.
func (b *Board) Snapshot() *Snapshot {
	pieces := make([]*Piece, 0, len(b.byID))
	for _, p := range b.byID {
		pieces = append(pieces, p.Clone())
	}
	sort.Slice(pieces, func(i, j int) bool {
		if pieces[i].Row != pieces[j].Row {
			return pieces[i].Row < pieces[j].Row
		}
		return pieces[i].Col < pieces[j].Col
	})

	s := &Snapshot{
		BoardSize:      b.Size,
		BoardPieces:    pieces,
		CurrentPlayer:  b.CurrentPlayer,
		WhiteHand:      append([]json.RawMessage{}, b.WhiteHand...),
		BlackHand:      append([]json.RawMessage{}, b.BlackHand...),
		WhiteDoubleAdd: b.WhiteDoubleAdd,
		BlackDoubleAdd: b.BlackDoubleAdd,
		GameLog:        append([]string{}, b.GameLog...),
		MovesLog:       append([]string{}, b.MovesLog...),
		CardsCount:     b.CardsCount,
		GameStatus:     b.Status,
		DayNightCycle:  b.DayNightCycle,
		TurnNumber:     b.TurnNumber,
		Players:        b.Players,
	}
	if b.LastMoveAt != nil {
		v := *b.LastMoveAt
		s.LastMoveAt = &v
	}
	return s
}

// FromSnapshot rebuilds a live board, including both piece indexes, from a
// serialized snapshot.
func FromSnapshot(s *Snapshot) *Board {
	size := s.BoardSize
	if size == 0 {
		size = BoardSize
	}
	current := s.CurrentPlayer
	if current == "" {
		current = White
	}
	status := s.GameStatus
	if status == "" {
		status = StatusWaiting
	}
	cycle := s.DayNightCycle
	if cycle == "" {
		cycle = "day"
	}

	b := &Board{
		Size:           size,
		CurrentPlayer:  current,
		WhiteHand:      append([]json.RawMessage{}, s.WhiteHand...),
		BlackHand:      append([]json.RawMessage{}, s.BlackHand...),
		WhiteDoubleAdd: s.WhiteDoubleAdd,
		BlackDoubleAdd: s.BlackDoubleAdd,
		GameLog:        append([]string{}, s.GameLog...),
		MovesLog:       append([]string{}, s.MovesLog...),
		CardsCount:     s.CardsCount,
		Status:         status,
		DayNightCycle:  cycle,
		TurnNumber:     s.TurnNumber,
		Players:        s.Players,
		LastMoveAt:     s.LastMoveAt,
		byID:           make(map[string]*Piece),
		byCoord:        make(map[coord]*Piece),
	}
	if s.WhiteHand == nil {
		b.WhiteHand = []json.RawMessage{}
	}
	if s.BlackHand == nil {
		b.BlackHand = []json.RawMessage{}
	}
	for _, p := range s.BoardPieces {
		b.place(p.Clone())
	}
	return b
}

// Clone returns a deep, independent copy for speculative use.
func (b *Board) Clone() *Board {
	return FromSnapshot(b.Snapshot())
}
