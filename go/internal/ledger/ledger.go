// Package ledger keeps the durable per-round payoff history of one player in one room.
// A round is recorded at most once; later writes for the same round are ignored.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/roundsync/go/internal/kvstore"
	"github.com/mcdev12/roundsync/go/internal/models"
)

const keySpace = "chicken_game_payoff_history"

// KeyPrefix starts every ledger key, for tools that scan a shared store.
const KeyPrefix = keySpace + "_"

// Ledger is safe for concurrent use within a process. Share one per store.
type Ledger struct {
	kv    kvstore.Store
	clock clockwork.Clock
	mu    sync.Mutex
}

type Option func(*Ledger)

// WithClock sets the clock used to stamp RecordedAt.
func WithClock(clock clockwork.Clock) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

func New(kv kvstore.Store, opts ...Option) *Ledger {
	l := &Ledger{
		kv:    kv,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the storage key for one (room, player) ledger.
func Key(roomID, playerID string) string {
	return kvstore.Key(keySpace, roomID, playerID)
}

// Record stores payoff for roundNumber unless that round is already present. It reports
// whether a new record was written.
func (l *Ledger) Record(ctx context.Context, roomID, playerID string, roundNumber, payoff int) (bool, error) {
	if roundNumber < 1 {
		return false, fmt.Errorf("invalid round number %d", roundNumber)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	written := false
	err := kvstore.Update(ctx, l.kv, Key(roomID, playerID), func(current []byte, found bool) ([]byte, bool, error) {
		records, err := decode(current, found)
		if err != nil {
			return nil, false, err
		}

		for _, r := range records {
			if r.RoundNumber == roundNumber {
				if r.Payoff != payoff {
					log.Warn().
						Str("room_id", roomID).
						Str("player_id", playerID).
						Int("round", roundNumber).
						Int("kept_payoff", r.Payoff).
						Int("ignored_payoff", payoff).
						Msg("ignoring conflicting duplicate payoff")
				}
				return nil, false, nil
			}
		}

		records = append(records, models.PayoffRecord{
			RoundNumber: roundNumber,
			Payoff:      payoff,
			RecordedAt:  l.clock.Now().UTC(),
		})
		sortRecords(records)

		next, err := json.Marshal(records)
		if err != nil {
			return nil, false, err
		}
		written = true
		return next, true, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to persist payoff ledger: %w", err)
	}
	if !written {
		return false, nil
	}

	log.Debug().
		Str("room_id", roomID).
		Str("player_id", playerID).
		Int("round", roundNumber).
		Int("payoff", payoff).
		Msg("recorded payoff")
	return true, nil
}

// History returns every record ordered by round number ascending.
func (l *Ledger) History(ctx context.Context, roomID, playerID string) ([]models.PayoffRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx, roomID, playerID)
}

// Total is the sum of recorded payoffs, each round counted once.
func (l *Ledger) Total(ctx context.Context, roomID, playerID string) (int, error) {
	records, err := l.History(ctx, roomID, playerID)
	if err != nil {
		return 0, err
	}
	return Sum(records), nil
}

// Clear removes the ledger. Only an explicit exit should call it.
func (l *Ledger) Clear(ctx context.Context, roomID, playerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.kv.Remove(ctx, Key(roomID, playerID)); err != nil {
		return fmt.Errorf("failed to clear payoff ledger: %w", err)
	}
	log.Info().Str("room_id", roomID).Str("player_id", playerID).Msg("cleared payoff ledger")
	return nil
}

// Sum adds payoffs, counting each round number once with its first occurrence.
func Sum(records []models.PayoffRecord) int {
	seen := make(map[int]struct{}, len(records))
	total := 0
	for _, r := range records {
		if _, ok := seen[r.RoundNumber]; ok {
			continue
		}
		seen[r.RoundNumber] = struct{}{}
		total += r.Payoff
	}
	return total
}

// load reads and normalizes the stored list. Duplicates written by an older or concurrent
// writer collapse to the earliest entry for that round.
func (l *Ledger) load(ctx context.Context, roomID, playerID string) ([]models.PayoffRecord, error) {
	data, err := l.kv.Get(ctx, Key(roomID, playerID))
	found := err == nil
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to load payoff ledger: %w", err)
	}
	return decode(data, found)
}

func decode(data []byte, found bool) ([]models.PayoffRecord, error) {
	if !found {
		return []models.PayoffRecord{}, nil
	}
	var records []models.PayoffRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode payoff ledger: %w", err)
	}
	return dedupe(records), nil
}

func dedupe(records []models.PayoffRecord) []models.PayoffRecord {
	seen := make(map[int]struct{}, len(records))
	out := make([]models.PayoffRecord, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.RoundNumber]; ok {
			continue
		}
		seen[r.RoundNumber] = struct{}{}
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

func sortRecords(records []models.PayoffRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RoundNumber < records[j].RoundNumber
	})
}
