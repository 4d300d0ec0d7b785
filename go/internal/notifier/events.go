// Package notifier listens on push channels for room events. Events carry no state of
// their own; each recognized event for the session's room only asks the synchronizer to
// poll now.
package notifier

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType names a room event as published by the room service.
type EventType string

const (
	EventRoomStarted        EventType = "ROOM_STARTED"
	EventRoundStarted       EventType = "ROUND_STARTED"
	EventActionSubmitted    EventType = "ACTION_SUBMITTED"
	EventRoundReady         EventType = "ROUND_READY"
	EventRoundEnded         EventType = "ROUND_ENDED"
	EventMessagePhase       EventType = "MESSAGE_PHASE"
	EventIndicatorsAssigned EventType = "INDICATORS_ASSIGNED"
	EventGameEnded          EventType = "GAME_ENDED"
)

var knownEvents = map[EventType]struct{}{
	EventRoomStarted:        {},
	EventRoundStarted:       {},
	EventActionSubmitted:    {},
	EventRoundReady:         {},
	EventRoundEnded:         {},
	EventMessagePhase:       {},
	EventIndicatorsAssigned: {},
	EventGameEnded:          {},
}

func (t EventType) Known() bool {
	_, ok := knownEvents[t]
	return ok
}

// Envelope is the wire shape shared by every transport.
type Envelope struct {
	EventType EventType       `json:"event_type"`
	RoomID    string          `json:"room_id"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Waker is satisfied by the room synchronizer.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// Notifier is one push transport.
type Notifier interface {
	Run(ctx context.Context) error
}

// Dispatcher filters raw payloads down to wake-ups for one room.
type Dispatcher struct {
	roomID string
	waker  Waker

	mu     sync.Mutex
	counts map[EventType]int
}

func NewDispatcher(roomID string, waker Waker) *Dispatcher {
	return &Dispatcher{
		roomID: roomID,
		waker:  waker,
		counts: make(map[EventType]int),
	}
}

// Handle decodes payload and wakes the synchronizer when it is a known event for this
// room. Envelopes without a room id are assumed to come from a room-scoped channel.
func (d *Dispatcher) Handle(payload []byte) bool {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Debug().Err(err).Str("room_id", d.roomID).Msg("ignoring unparseable push message")
		return false
	}

	if env.RoomID != "" && env.RoomID != d.roomID {
		return false
	}
	if !env.EventType.Known() {
		log.Debug().Str("event_type", string(env.EventType)).Msg("ignoring unknown push event")
		return false
	}

	d.mu.Lock()
	d.counts[env.EventType]++
	d.mu.Unlock()

	log.Debug().Str("room_id", d.roomID).Str("event_type", string(env.EventType)).Msg("push event received")
	d.waker.Wake()
	return true
}

// Nudge wakes the synchronizer without an event, used after a transport reconnects and
// may have missed something.
func (d *Dispatcher) Nudge() {
	d.waker.Wake()
}

// Counts returns how many events of each type woke the synchronizer.
func (d *Dispatcher) Counts() map[EventType]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[EventType]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}
