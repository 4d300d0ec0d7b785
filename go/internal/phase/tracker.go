package phase

import (
	"sync"

	"github.com/mcdev12/roundsync/go/internal/models"
)

// Frame is one consistent observation: a snapshot, the local state of that snapshot's
// round and what they derive to.
type Frame struct {
	Snapshot *models.RoomSnapshot `json:"snapshot"`
	Local    Local                `json:"local"`
	Phase    Phase                `json:"phase"`
	Opponent OpponentMessage      `json:"opponent_message"`
}

// Tracker pairs the latest snapshot with the player's local round state. Both live under
// one lock, so a reader never sees a new round number next to the previous round's
// pending choice or result.
//
// Every mutator names the round it belongs to. A call for a round that is no longer current
// is ignored, which is how late network completions get dropped.
type Tracker struct {
	rules models.Rules

	mu       sync.RWMutex
	snapshot *models.RoomSnapshot
	local    Local
}

func NewTracker(rules models.Rules) *Tracker {
	return &Tracker{rules: rules}
}

// Apply installs snap. When the round number differs from the tracked one all local
// state is replaced in the same step. A nil snapshot (after a resync) keeps local state
// until real data arrives.
func (t *Tracker) Apply(snap *models.RoomSnapshot) (roundChanged bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot = snap
	if snap == nil {
		return false
	}

	n := snap.RoundNumber()
	if n != t.local.RoundNumber {
		t.local = Local{RoundNumber: n}
		return true
	}
	return false
}

// Frame returns the current consistent view.
func (t *Tracker) Frame() Frame {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frameLocked()
}

func (t *Tracker) frameLocked() Frame {
	in := t.inputLocked()
	return Frame{
		Snapshot: t.snapshot,
		Local:    t.local,
		Phase:    Derive(in),
		Opponent: OpponentStatus(in),
	}
}

func (t *Tracker) inputLocked() Input {
	return Input{Snapshot: t.snapshot, Local: t.local, Rules: t.rules}
}

// BeginSubmit records choice as pending for round. The phase flips to waiting_result at
// once, before the service confirms anything.
func (t *Tracker) BeginSubmit(round int, choice models.Choice) error {
	if !choice.Valid() {
		return ErrInvalidChoice
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkRoundLocked(round); err != nil {
		return err
	}
	if t.local.Submitting {
		return ErrSubmitInFlight
	}
	if Derive(t.inputLocked()) != ChoosingAction {
		return ErrNotChoosing
	}

	c := choice
	t.local.PendingAction = &c
	t.local.Submitting = true
	t.local.SubmitError = ""
	return nil
}

// SubmitSucceeded keeps the pending choice until the snapshot moves past the round.
func (t *Tracker) SubmitSucceeded(round int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.local.RoundNumber != round {
		return
	}
	t.local.Submitting = false
}

// SubmitFailed rolls the pending choice back so the player can choose again.
func (t *Tracker) SubmitFailed(round int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.local.RoundNumber != round {
		return
	}
	t.local.PendingAction = nil
	t.local.Submitting = false
	if err != nil {
		t.local.SubmitError = err.Error()
	}
}

// SetDraft stores the message being composed for round.
func (t *Tracker) SetDraft(round int, draft string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkRoundLocked(round); err != nil {
		return err
	}
	t.local.MessageDraft = draft
	t.local.MessageError = ""
	return nil
}

// BeginMessage validates content and marks a send as in flight. It returns the trimmed
// content to send.
func (t *Tracker) BeginMessage(round int, content string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkRoundLocked(round); err != nil {
		return "", err
	}
	if t.local.MessageSending {
		return "", ErrMessageInFlight
	}
	if Derive(t.inputLocked()) != ComposingMessage {
		return "", ErrNotComposing
	}

	trimmed, err := ValidateMessage(content)
	if err != nil {
		t.local.MessageError = err.Error()
		return "", err
	}

	t.local.MessageSending = true
	t.local.MessageError = ""
	return trimmed, nil
}

func (t *Tracker) MessageSent(round int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.local.RoundNumber != round {
		return
	}
	t.local.MessageSending = false
	t.local.MessageSent = true
	t.local.MessageDraft = ""
	t.local.MessageError = ""
}

// MessageFailed leaves the player composing with the error shown next to the draft.
func (t *Tracker) MessageFailed(round int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.local.RoundNumber != round {
		return
	}
	t.local.MessageSending = false
	if err != nil {
		t.local.MessageError = err.Error()
	}
}

// StoreResult caches result when it belongs to the tracked round. A second result for the
// same round is a no-op. It reports whether the result was stored.
func (t *Tracker) StoreResult(result *models.RoundResult) bool {
	if result == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if result.RoundNumber != t.local.RoundNumber || t.local.Result != nil {
		return false
	}
	r := *result
	t.local.Result = &r
	return true
}

// PendingResult reports the round whose result still has to be fetched, if any.
func (t *Tracker) PendingResult() (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.snapshot == nil || t.snapshot.Round == nil || t.snapshot.Finished() {
		return 0, false
	}
	round := t.snapshot.Round
	if round.Status != models.RoundStatusCompleted {
		return 0, false
	}
	if t.local.RoundNumber == round.RoundNumber && t.local.Result != nil {
		return 0, false
	}
	return round.RoundNumber, true
}

func (t *Tracker) checkRoundLocked(round int) error {
	if t.snapshot == nil || t.snapshot.Round == nil {
		return ErrNoRound
	}
	if t.snapshot.Round.RoundNumber != round || t.local.RoundNumber != round {
		return ErrRoundChanged
	}
	return nil
}
