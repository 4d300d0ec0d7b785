// Package session runs one client in one room: a player playing rounds or a host driving
// the game. It wires the synchronizer, the phase tracker, the ledger and the room service
// together and exposes a read-only view for rendering.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/roundsync/go/internal/models"
	"github.com/mcdev12/roundsync/go/internal/roomsync"
)

var (
	// ErrControlUnavailable is returned when a host control does not apply to the current
	// room state. No request is sent.
	ErrControlUnavailable = errors.New("control not available in the current room state")

	// ErrInvalidEntry is returned when a join code or nickname is empty.
	ErrInvalidEntry = errors.New("room code and nickname are required")

	// ErrRoomFinished is returned when joining a room whose game is over.
	ErrRoomFinished = errors.New("room has already finished")
)

// Config is shared by player and host sessions.
type Config struct {
	Sync  roomsync.Config `yaml:"polling"`
	Rules models.Rules    `yaml:"rules"`

	// RetryDelay spaces out retries of follow-up fetches (result, indicator, summary).
	// Defaults to the idle poll delay.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

func DefaultConfig() Config {
	return Config{
		Sync:  roomsync.DefaultConfig(),
		Rules: models.DefaultRules(),
	}
}

func (c Config) retryDelay() time.Duration {
	if c.RetryDelay > 0 {
		return c.RetryDelay
	}
	if c.Sync.IdleDelay > 0 {
		return c.Sync.IdleDelay
	}
	return roomsync.DefaultIdleDelay
}

type options struct {
	clock clockwork.Clock
}

type Option func(*options)

// WithClock drives the synchronizer and retry timers from clock.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// retryLoop calls reconcile on every signal from changes and, after a failed reconcile,
// again once delay has passed. It returns when ctx or stop is done.
func retryLoop(ctx context.Context, clock clockwork.Clock, delay time.Duration, changes <-chan struct{}, stop <-chan struct{}, reconcile func(context.Context) error) {
	var retry clockwork.Timer
	defer func() {
		if retry != nil {
			stopAndDrainTimer(retry)
		}
	}()

	for {
		var retryCh <-chan time.Time
		if retry != nil {
			retryCh = retry.Chan()
		}

		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-changes:
		case <-retryCh:
			retry = nil
		}

		if err := reconcile(ctx); err != nil && retry == nil && ctx.Err() == nil {
			retry = clock.NewTimer(delay)
		}
	}
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
