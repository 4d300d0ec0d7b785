package phase

import (
	"sort"

	"github.com/mcdev12/roundsync/go/internal/models"
)

// HostPhase is what the host console is showing.
type HostPhase string

const (
	HostRoomWaiting    HostPhase = "room_waiting"
	HostPreGame        HostPhase = "pre_game"
	HostRoundRunning   HostPhase = "round_running"
	HostRoundResult    HostPhase = "round_result"
	HostIndicatorPhase HostPhase = "indicator_phase"
	HostGameSummary    HostPhase = "game_summary"
)

// Controls says which host triggers make sense for the current snapshot. The service is
// still the judge; these only keep the console from offering dead buttons.
type Controls struct {
	CanStart            bool `json:"can_start"`
	CanPublish          bool `json:"can_publish"`
	CanNextRound        bool `json:"can_next_round"`
	CanAssignIndicators bool `json:"can_assign_indicators"`
	CanEnd              bool `json:"can_end"`
}

func HostControls(snap *models.RoomSnapshot, rules models.Rules) Controls {
	if snap == nil {
		return Controls{}
	}

	waiting := snap.Room.Status == models.RoomStatusWaiting
	playing := snap.Room.Status == models.RoomStatusPlaying
	round := snap.Round
	completed := playing && round != nil && round.Status == models.RoundStatusCompleted

	return Controls{
		CanStart:            waiting && snap.Room.PlayerCount >= 2 && snap.Room.PlayerCount%2 == 0,
		CanPublish:          playing && round != nil && round.Status == models.RoundStatusReadyToPublish,
		CanNextRound:        completed && round.RoundNumber < rules.TotalRounds,
		CanAssignIndicators: completed && round.RoundNumber == rules.IndicatorAfterRound && !snap.IndicatorsAssigned,
		CanEnd:              playing,
	}
}

func DeriveHost(snap *models.RoomSnapshot, rules models.Rules) HostPhase {
	if snap == nil {
		return HostRoomWaiting
	}

	switch snap.Room.Status {
	case models.RoomStatusFinished:
		return HostGameSummary
	case models.RoomStatusWaiting:
		if HostControls(snap, rules).CanStart {
			return HostPreGame
		}
		return HostRoomWaiting
	}

	if snap.Round == nil || snap.Round.Status != models.RoundStatusCompleted {
		return HostRoundRunning
	}
	if HostControls(snap, rules).CanAssignIndicators {
		return HostIndicatorPhase
	}
	return HostRoundResult
}

// PlayerRow is one player line on the host console. Submitted is nil when the snapshot does
// not say.
type PlayerRow struct {
	models.PlayerInfo
	Submitted *bool `json:"submitted"`
}

// OrderPlayers lists non-host players. While a round is still collecting actions the ones
// that have not acted come first; otherwise join order is kept.
func OrderPlayers(snap *models.RoomSnapshot) []PlayerRow {
	if snap == nil {
		return nil
	}

	submitted := make(map[string]bool)
	if snap.Round != nil {
		for _, s := range snap.Round.PlayerSubmissions {
			submitted[s.PlayerID] = s.Submitted
		}
	}

	players := snap.NonHostPlayers()
	rows := make([]PlayerRow, 0, len(players))
	for _, p := range players {
		row := PlayerRow{PlayerInfo: p}
		if v, ok := submitted[p.PlayerID]; ok {
			v := v
			row.Submitted = &v
		}
		rows = append(rows, row)
	}

	if !roundCollecting(snap.Round) {
		return rows
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return !hasSubmitted(rows[i]) && hasSubmitted(rows[j])
	})
	return rows
}

func roundCollecting(round *models.Round) bool {
	return round != nil &&
		round.Status == models.RoundStatusWaitingActions &&
		round.SubmittedActions < round.TotalPlayers
}

func hasSubmitted(row PlayerRow) bool {
	return row.Submitted == nil || *row.Submitted
}
