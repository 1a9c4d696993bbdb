package archive

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/arcanechess/backend/internal/room"
)

// Recorder mirrors room lifecycle events into Postgres for after-the-fact
// queries (match history, win/loss tallies). Redis stays the source of
// truth for live play; every write here is best-effort and a nil db
// disables the recorder entirely.
type Recorder struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRecorder(db *sqlx.DB, log *zap.Logger) *Recorder {
	return &Recorder{db: db, log: log}
}

// Enabled reports whether an archive database is configured.
func (r *Recorder) Enabled() bool { return r != nil && r.db != nil }

type row struct {
	RoomID    string    `db:"room_id"`
	RoomName  string    `db:"room_name"`
	Player1ID *string   `db:"player1_id"`
	Player2ID *string   `db:"player2_id"`
	Status    string    `db:"status"`
	TurnCount int       `db:"turn_count"`
	UpdatedAt time.Time `db:"updated_at"`
}

const upsert = `
INSERT INTO match_archive (room_id, room_name, player1_id, player2_id, status, turn_count, updated_at)
VALUES (:room_id, :room_name, :player1_id, :player2_id, :status, :turn_count, :updated_at)
ON CONFLICT (room_id) DO UPDATE SET
    player1_id = EXCLUDED.player1_id,
    player2_id = EXCLUDED.player2_id,
    status     = EXCLUDED.status,
    turn_count = EXCLUDED.turn_count,
    updated_at = EXCLUDED.updated_at`

// Record upserts the room's current shape. Failures are logged, never
// propagated; archival must not affect live play.
func (r *Recorder) Record(ctx context.Context, rm *room.Room) {
	if !r.Enabled() {
		return
	}
	rec := row{
		RoomID:    rm.ID,
		RoomName:  rm.Name,
		Player1ID: rm.Player1ID,
		Player2ID: rm.Player2ID,
		Status:    string(rm.Status),
		UpdatedAt: time.Now().UTC(),
	}
	if rm.Board != nil {
		rec.TurnCount = rm.Board.TurnNumber
	}
	if _, err := r.db.NamedExecContext(ctx, upsert, &rec); err != nil {
		r.log.Warn("archive write failed", zap.String("room_id", rm.ID), zap.Error(err))
	}
}
