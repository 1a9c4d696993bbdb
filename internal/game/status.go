package game

// Status is the coarse game lifecycle state shared by a room and its board.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
	StatusResigned   Status = "resigned"
	StatusDraw       Status = "draw"
	StatusCheck      Status = "check"
	StatusCheckmate  Status = "checkmate"
	StatusStalemate  Status = "stalemate"
)

// Terminal reports whether no further moves are accepted in this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusResigned, StatusDraw, StatusCheckmate, StatusStalemate:
		return true
	}
	return false
}

// Color identifies one of the two sides.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}
