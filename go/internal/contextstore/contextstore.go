// Package contextstore persists who this client is in which room. A missing context is
// fatal for a session and sends the user back to the entry screen.
package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/roundsync/go/internal/kvstore"
	"github.com/mcdev12/roundsync/go/internal/models"
)

const (
	PlayerContextKey   = "chicken_game_player_context"
	HostContextKey     = "chicken_game_host_context"
	indicatorSeenSpace = "indicator_seen"
)

// ErrNoContext means no usable identity is stored.
var ErrNoContext = errors.New("no stored context")

type Store struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

func (s *Store) SavePlayer(ctx context.Context, pc models.PlayerContext) error {
	if pc.PlayerID == "" || pc.RoomID == "" {
		return fmt.Errorf("player context requires player and room ids")
	}
	if err := kvstore.SetJSON(ctx, s.kv, PlayerContextKey, pc); err != nil {
		return fmt.Errorf("failed to save player context: %w", err)
	}
	return nil
}

func (s *Store) LoadPlayer(ctx context.Context) (*models.PlayerContext, error) {
	var pc models.PlayerContext
	if err := s.load(ctx, PlayerContextKey, &pc); err != nil {
		return nil, err
	}
	if pc.PlayerID == "" || pc.RoomID == "" {
		return nil, ErrNoContext
	}
	return &pc, nil
}

func (s *Store) ClearPlayer(ctx context.Context) error {
	if err := s.kv.Remove(ctx, PlayerContextKey); err != nil {
		return fmt.Errorf("failed to clear player context: %w", err)
	}
	return nil
}

func (s *Store) SaveHost(ctx context.Context, hc models.HostContext) error {
	if hc.RoomID == "" {
		return fmt.Errorf("host context requires a room id")
	}
	if err := kvstore.SetJSON(ctx, s.kv, HostContextKey, hc); err != nil {
		return fmt.Errorf("failed to save host context: %w", err)
	}
	return nil
}

func (s *Store) LoadHost(ctx context.Context) (*models.HostContext, error) {
	var hc models.HostContext
	if err := s.load(ctx, HostContextKey, &hc); err != nil {
		return nil, err
	}
	if hc.RoomID == "" {
		return nil, ErrNoContext
	}
	return &hc, nil
}

func (s *Store) ClearHost(ctx context.Context) error {
	if err := s.kv.Remove(ctx, HostContextKey); err != nil {
		return fmt.Errorf("failed to clear host context: %w", err)
	}
	return nil
}

// IndicatorSeen reports whether the player already dismissed the indicator dialog in room.
func (s *Store) IndicatorSeen(ctx context.Context, roomID, playerID string) (bool, error) {
	var seen bool
	err := kvstore.GetJSON(ctx, s.kv, kvstore.Key(indicatorSeenSpace, roomID, playerID), &seen)
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read indicator flag: %w", err)
	}
	return seen, nil
}

func (s *Store) MarkIndicatorSeen(ctx context.Context, roomID, playerID string) error {
	if err := kvstore.SetJSON(ctx, s.kv, kvstore.Key(indicatorSeenSpace, roomID, playerID), true); err != nil {
		return fmt.Errorf("failed to mark indicator seen: %w", err)
	}
	return nil
}

// ClearIndicatorSeen drops the dialog flag, used when the player leaves the room.
func (s *Store) ClearIndicatorSeen(ctx context.Context, roomID, playerID string) error {
	if err := s.kv.Remove(ctx, kvstore.Key(indicatorSeenSpace, roomID, playerID)); err != nil {
		return fmt.Errorf("failed to clear indicator flag: %w", err)
	}
	return nil
}

// load maps a missing or unreadable entry to ErrNoContext. A corrupt context cannot be
// repaired, so it is treated as if it were never written.
func (s *Store) load(ctx context.Context, key string, out interface{}) error {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return ErrNoContext
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding unreadable stored context")
		return ErrNoContext
	}
	return nil
}
