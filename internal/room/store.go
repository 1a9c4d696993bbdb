package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arcanechess/backend/internal/game"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// keyPrefix namespaces room records; distinct from the pub/sub channel
// namespace used by the ws bridge.
const keyPrefix = "room:"

// replaceRetries bounds the optimistic read-modify-write loop.
const replaceRetries = 3

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is already full")
	ErrDuplicatePlayer = errors.New("player is already player1 in this room")
	ErrNotParticipant  = errors.New("player is not a participant of this room")
	ErrVersionConflict = errors.New("room was modified concurrently")
)

// Store persists room records as JSON documents in Redis, one record per
// room under room:<id>. It is the single source of truth: every mutation
// goes through a read-modify-write here, which is what lets several server
// instances share one logical room.
type Store struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewStore(rdb *redis.Client, log *zap.Logger) *Store {
	return &Store{rdb: rdb, log: log}
}

func key(id string) string { return keyPrefix + id }

// Create builds a room around the fixed initial layout, seats the creator
// as white and persists it.
func (s *Store) Create(ctx context.Context, name, creatorID string) (*Room, error) {
	rm := newRoom(name, creatorID)
	if err := s.put(ctx, rm); err != nil {
		return nil, err
	}
	s.log.Info("room created", zap.String("room_id", rm.ID), zap.String("player1_id", creatorID))
	return rm, nil
}

// Get loads one room; ErrRoomNotFound if the id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Room, error) {
	raw, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", id, err)
	}
	var rm Room
	if err := json.Unmarshal(raw, &rm); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", id, err)
	}
	return &rm, nil
}

// List returns every stored room.
func (s *Store) List(ctx context.Context) ([]*Room, error) {
	rooms := []*Room{}
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue // deleted between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", iter.Val(), err)
		}
		var rm Room
		if err := json.Unmarshal(raw, &rm); err != nil {
			s.log.Warn("skipping undecodable room record", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		rooms = append(rooms, &rm)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan rooms: %w", err)
	}
	return rooms, nil
}

// Join seats playerID as black. The black seat transitions nil→set exactly
// once; there is no leaving or rejoining.
func (s *Store) Join(ctx context.Context, id, playerID string) (*Room, error) {
	rm, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rm.Player2ID != nil {
		return nil, ErrRoomFull
	}
	if rm.Player1ID != nil && *rm.Player1ID == playerID {
		return nil, ErrDuplicatePlayer
	}

	joined := playerID
	rm.Player2ID = &joined
	rm.Status = game.StatusInProgress
	rm.Board.Players.Black = &joined
	rm.Board.Status = game.StatusInProgress
	rm.UpdatedAt = time.Now().Unix()
	rm.Version++

	if err := s.put(ctx, rm); err != nil {
		return nil, err
	}
	s.log.Info("player joined room", zap.String("room_id", id), zap.String("player2_id", playerID))
	return rm, nil
}

// ReplaceBoard swaps the stored room's board for the given one. The swap
// runs inside a WATCH transaction on the room key with bounded retries, so
// two near-simultaneous moves cannot silently clobber each other; the
// loser re-reads and retries, and ErrVersionConflict surfaces only when
// the retries are exhausted.
func (s *Store) ReplaceBoard(ctx context.Context, id string, board *game.Board) (*Room, error) {
	var out *Room
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key(id)).Bytes()
		if err == redis.Nil {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		var rm Room
		if err := json.Unmarshal(raw, &rm); err != nil {
			return fmt.Errorf("decode room %s: %w", id, err)
		}

		rm.Board = board
		rm.UpdatedAt = time.Now().Unix()
		rm.Version++

		data, err := json.Marshal(&rm)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(id), data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		out = &rm
		return nil
	}

	for i := 0; i < replaceRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key(id))
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.log.Debug("board write-back raced, retrying", zap.String("room_id", id), zap.Int("attempt", i+1))
			continue
		}
		return nil, err
	}
	return nil, ErrVersionConflict
}

// Resign marks the room and its board resigned on behalf of playerID and
// appends the resignation to the game log.
func (s *Store) Resign(ctx context.Context, id, playerID string) (*Room, error) {
	rm, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rm.IsParticipant(playerID) {
		return nil, ErrNotParticipant
	}

	rm.Status = game.StatusResigned
	rm.Board.Status = game.StatusResigned
	rm.Board.GameLog = append(rm.Board.GameLog, fmt.Sprintf("Player %s resigned the game.", playerID))
	rm.UpdatedAt = time.Now().Unix()
	rm.Version++

	if err := s.put(ctx, rm); err != nil {
		return nil, err
	}
	s.log.Info("player resigned", zap.String("room_id", id), zap.String("player_id", playerID))
	return rm, nil
}

// DeleteAll removes every room record. Maintenance/test use only.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	keys := []string{}
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan rooms: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("delete rooms: %w", err)
	}
	s.log.Info("deleted all rooms", zap.Int("count", len(keys)))
	return len(keys), nil
}

func (s *Store) put(ctx context.Context, rm *Room) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key(rm.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("store room %s: %w", rm.ID, err)
	}
	return nil
}
