package models

import "time"

// PlayerContext binds a player identity to a room. Absent context forces re-entry.
type PlayerContext struct {
	PlayerID    string `json:"player_id"`
	RoomID      string `json:"room_id"`
	DisplayName string `json:"display_name"`
	RoomCode    string `json:"room_code"`
}

// HostContext binds the host identity to a room.
type HostContext struct {
	RoomID       string `json:"room_id"`
	RoomCode     string `json:"room_code"`
	HostPlayerID string `json:"host_player_id"`
}

// PayoffRecord is one ledger line, unique per (room, player, round).
type PayoffRecord struct {
	RoundNumber int       `json:"round_number"`
	Payoff      int       `json:"payoff"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// PlayerSummary is one ranked row of the end-of-game summary.
type PlayerSummary struct {
	DisplayName string `json:"display_name"`
	TotalPayoff int    `json:"total_payoff"`
}

// GameStats aggregates the choices made across the whole game.
type GameStats struct {
	AccelerateRatio float64 `json:"accelerate_ratio"`
	TurnRatio       float64 `json:"turn_ratio"`
}

// HistoryEntry is one round of a player's personal history in the summary.
type HistoryEntry struct {
	RoundNumber    int    `json:"round_number"`
	YourChoice     Choice `json:"your_choice,omitempty"`
	OpponentChoice Choice `json:"opponent_choice,omitempty"`
	Payoff         int    `json:"payoff"`
}

// GameSummary is returned once the room is FINISHED. Players are ranked by total payoff.
type GameSummary struct {
	Players           []PlayerSummary `json:"players"`
	Stats             GameStats       `json:"stats"`
	PlayerHistory     []HistoryEntry  `json:"player_history,omitempty"`
	PlayerTotalPayoff *int            `json:"player_total_payoff,omitempty"`
}

// RankOf returns the zero-based rank of displayName, or -1.
func (s *GameSummary) RankOf(displayName string) int {
	if s == nil {
		return -1
	}
	for i, p := range s.Players {
		if p.DisplayName == displayName {
			return i
		}
	}
	return -1
}
