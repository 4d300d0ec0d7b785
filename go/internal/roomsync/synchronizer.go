// Package roomsync keeps a local copy of the authoritative room snapshot by polling the
// room service with a version cursor.
package roomsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/roundsync/go/clients"
	"github.com/mcdev12/roundsync/go/internal/models"
)

// Poller is what the synchronizer needs from the room service.
type Poller interface {
	PollState(ctx context.Context, roomID string, version int64, playerID string) (*models.PollResult, error)
}

// errMissingSnapshot is recorded when the service claims an update but sends no data.
var errMissingSnapshot = errors.New("state response has update but no snapshot")

// State is a read-only view of the synchronizer. Snapshot is the last good snapshot and is
// kept across failures so the UI can keep rendering it next to LastError.
type State struct {
	Snapshot  *models.RoomSnapshot
	Version   int64
	LastError string
	ErrorKind clients.ErrorKind
	UpdatedAt time.Time
}

// Synchronizer owns the version cursor for one room session. Only one poll is ever in
// flight; the next is scheduled once the previous settles.
//
// Every completion carries the epoch it was started under. Resync and shutdown bump the
// epoch, so a completion from before either is dropped instead of applied.
type Synchronizer struct {
	poller   Poller
	roomID   string
	playerID string
	cfg      Config
	clock    clockwork.Clock

	mu        sync.RWMutex
	epoch     uint64
	cursor    int64
	snapshot  *models.RoomSnapshot
	lastErr   string
	errKind   clients.ErrorKind
	updatedAt time.Time
	running   bool

	wake    chan struct{}
	changes chan struct{}
}

type Option func(*Synchronizer)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Synchronizer) {
		s.clock = clock
	}
}

// New builds a synchronizer for roomID. playerID may be empty for host sessions.
func New(poller Poller, roomID, playerID string, cfg Config, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		poller:   poller,
		roomID:   roomID,
		playerID: playerID,
		cfg:      cfg.withDefaults(),
		clock:    clockwork.NewRealClock(),
		wake:     make(chan struct{}, 1),
		changes:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) RoomID() string {
	return s.roomID
}

// Run polls until ctx is cancelled. It only returns an error if the synchronizer is
// already running.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("synchronizer for room %s already running", s.roomID)
	}
	s.running = true
	s.mu.Unlock()

	defer s.shutdown()

	log.Info().Str("room_id", s.roomID).Str("player_id", s.playerID).Msg("starting room synchronizer")

	for {
		epoch, version := s.begin()

		result, err := s.poll(ctx, version)
		if ctx.Err() != nil {
			log.Info().Str("room_id", s.roomID).Msg("room synchronizer stopped")
			return nil
		}

		delay := s.complete(epoch, result, err)

		timer := s.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			log.Info().Str("room_id", s.roomID).Msg("room synchronizer stopped")
			return nil
		case <-s.wake:
			stopAndDrainTimer(timer)
			log.Debug().Str("room_id", s.roomID).Msg("woken for early poll")
		case <-timer.Chan():
		}
	}
}

// Wake asks for the next poll to happen now. Extra wakes while one is pending coalesce.
func (s *Synchronizer) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Resync forgets the cursor and snapshot and polls again from version 0. Any poll still in
// flight is discarded when it lands.
func (s *Synchronizer) Resync() {
	s.mu.Lock()
	s.epoch++
	s.cursor = 0
	s.snapshot = nil
	s.lastErr = ""
	s.errKind = clients.ErrorKindNone
	s.updatedAt = s.clock.Now()
	s.mu.Unlock()

	log.Info().Str("room_id", s.roomID).Msg("resyncing room state")
	s.notify()
	s.Wake()
}

// State returns the current view.
func (s *Synchronizer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Snapshot:  s.snapshot,
		Version:   s.cursor,
		LastError: s.lastErr,
		ErrorKind: s.errKind,
		UpdatedAt: s.updatedAt,
	}
}

// Changes signals after every change to State. Signals coalesce; read State after each one.
func (s *Synchronizer) Changes() <-chan struct{} {
	return s.changes
}

func (s *Synchronizer) begin() (uint64, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch, s.cursor
}

func (s *Synchronizer) poll(ctx context.Context, version int64) (*models.PollResult, error) {
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	return s.poller.PollState(ctx, s.roomID, version, s.playerID)
}

// complete applies one poll outcome started under epoch and returns the delay before the
// next poll.
func (s *Synchronizer) complete(epoch uint64, result *models.PollResult, err error) time.Duration {
	s.mu.Lock()

	if epoch != s.epoch {
		s.mu.Unlock()
		log.Debug().
			Str("room_id", s.roomID).
			Uint64("epoch", epoch).
			Msg("dropping poll result from previous epoch")
		return s.cfg.ActiveDelay
	}

	if err == nil && result != nil && result.HasUpdate && result.Snapshot == nil {
		err = &clients.DecodeError{Endpoint: "state", Err: errMissingSnapshot}
	}
	if err == nil && result == nil {
		err = &clients.DecodeError{Endpoint: "state", Err: errMissingSnapshot}
	}

	if err != nil {
		kind := clients.Kind(err)
		s.lastErr = err.Error()
		s.errKind = kind
		s.updatedAt = s.clock.Now()
		s.mu.Unlock()

		if kind == clients.ErrorKindData {
			log.Error().Err(err).Str("room_id", s.roomID).Msg("malformed room state")
		} else {
			log.Warn().Err(err).Str("room_id", s.roomID).Str("kind", string(kind)).Msg("room state poll failed")
		}
		s.notify()
		return s.cfg.IdleDelay
	}

	if !result.HasUpdate {
		hadErr := s.lastErr != ""
		s.lastErr = ""
		s.errKind = clients.ErrorKindNone
		s.mu.Unlock()

		if hadErr {
			s.notify()
		}
		return s.cfg.IdleDelay
	}

	if result.Version < s.cursor {
		held := s.cursor
		s.mu.Unlock()
		log.Debug().
			Str("room_id", s.roomID).
			Int64("held", held).
			Int64("received", result.Version).
			Msg("discarding stale room state")
		return s.cfg.IdleDelay
	}

	prevRound := s.snapshot.RoundNumber()
	s.snapshot = result.Snapshot
	s.cursor = result.Version
	s.lastErr = ""
	s.errKind = clients.ErrorKindNone
	s.updatedAt = s.clock.Now()
	s.mu.Unlock()

	logEvent := log.Debug()
	if result.Snapshot.RoundNumber() != prevRound {
		logEvent = log.Info()
	}
	logEvent.
		Str("room_id", s.roomID).
		Int64("version", result.Version).
		Str("status", string(result.Snapshot.Room.Status)).
		Int("round", result.Snapshot.RoundNumber()).
		Msg("applied room state")

	s.notify()
	return s.cfg.ActiveDelay
}

func (s *Synchronizer) shutdown() {
	s.mu.Lock()
	s.epoch++
	s.running = false
	s.mu.Unlock()
}

func (s *Synchronizer) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
