// Package phase derives the player's game phase from the authoritative snapshot and the
// player's own unconfirmed state. Derive is pure; Tracker owns the local half.
package phase

import (
	"github.com/mcdev12/roundsync/go/internal/models"
)

// Phase is what the player is currently doing. Within one round phases only move forward:
// waiting_round, composing_message, choosing_action, waiting_result, showing_result.
type Phase string

const (
	WaitingGameStart Phase = "waiting_game_start"
	WaitingRound     Phase = "waiting_round"
	ComposingMessage Phase = "composing_message"
	ChoosingAction   Phase = "choosing_action"
	WaitingResult    Phase = "waiting_result"
	ShowingResult    Phase = "showing_result"
	Finished         Phase = "finished"
)

// OpponentMessage is the counterpart's message state while the player chooses in a
// message round.
type OpponentMessage string

const (
	OpponentNone   OpponentMessage = "none"
	OpponentTyping OpponentMessage = "typing"
	OpponentSent   OpponentMessage = "sent"
)

// Local is the per-round state that exists only on this client. It belongs to exactly one
// round and is replaced, never patched, when the round changes.
type Local struct {
	RoundNumber    int                 `json:"round_number"`
	PendingAction  *models.Choice      `json:"pending_action,omitempty"`
	Submitting     bool                `json:"submitting"`
	SubmitError    string              `json:"submit_error,omitempty"`
	Result         *models.RoundResult `json:"result,omitempty"`
	MessageDraft   string              `json:"message_draft"`
	MessageSending bool                `json:"message_sending"`
	MessageSent    bool                `json:"message_sent"`
	MessageError   string              `json:"message_error,omitempty"`
}

// Input is everything Derive looks at.
type Input struct {
	Snapshot *models.RoomSnapshot
	Local    Local
	Rules    models.Rules
}

// Derive maps input to exactly one phase. First matching rule wins.
func Derive(in Input) Phase {
	snap := in.Snapshot
	if snap == nil {
		return WaitingGameStart
	}

	switch snap.Room.Status {
	case models.RoomStatusFinished:
		return Finished
	case models.RoomStatusWaiting:
		return WaitingGameStart
	}

	round := snap.Round
	if round == nil {
		return WaitingRound
	}

	local := localFor(in.Local, round.RoundNumber)

	switch round.Status {
	case models.RoundStatusWaitingActions:
		if in.Rules.IsMessageRound(round) && !local.MessageSent {
			return ComposingMessage
		}
		if local.PendingAction != nil || round.HasChoice() {
			return WaitingResult
		}
		return ChoosingAction

	case models.RoundStatusReadyToPublish:
		return WaitingResult

	case models.RoundStatusCompleted:
		if local.Result != nil && local.Result.RoundNumber == round.RoundNumber {
			return ShowingResult
		}
		return WaitingResult

	default:
		return WaitingRound
	}
}

// OpponentStatus is meaningful only while choosing an action in a message round; it is
// none everywhere else.
func OpponentStatus(in Input) OpponentMessage {
	if Derive(in) != ChoosingAction {
		return OpponentNone
	}
	if !in.Rules.IsMessageRound(in.Snapshot.Round) {
		return OpponentNone
	}
	if in.Snapshot.Message.IsFromOpponent() {
		return OpponentSent
	}
	return OpponentTyping
}

// localFor drops local state recorded for another round.
func localFor(local Local, roundNumber int) Local {
	if local.RoundNumber != roundNumber {
		return Local{RoundNumber: roundNumber}
	}
	return local
}
