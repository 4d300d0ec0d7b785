package models

// RoomStatus defines the lifecycle status of a room.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "WAITING"
	RoomStatusPlaying  RoomStatus = "PLAYING"
	RoomStatusFinished RoomStatus = "FINISHED"
)

// Room is the room header carried by every snapshot.
type Room struct {
	ID           string     `json:"room_id"`
	Code         string     `json:"code"`
	Status       RoomStatus `json:"status"`
	CurrentRound int        `json:"current_round,omitempty"`
	PlayerCount  int        `json:"player_count"`
}

// PlayerInfo is one seat in the room as reported by the server.
type PlayerInfo struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	IsHost      bool   `json:"is_host"`
}

// RoomSnapshot is the server-authoritative room state. It is replaced wholesale on every
// successful poll and never mutated in place.
type RoomSnapshot struct {
	Room               Room         `json:"room"`
	Round              *Round       `json:"round,omitempty"`
	Players            []PlayerInfo `json:"players,omitempty"`
	Message            Message      `json:"message"`
	IndicatorsAssigned bool         `json:"indicators_assigned"`
	IndicatorSymbol    string       `json:"indicator_symbol,omitempty"`
}

// RoundNumber returns the current round number, or 0 before play starts.
func (s *RoomSnapshot) RoundNumber() int {
	if s == nil || s.Round == nil {
		return 0
	}
	return s.Round.RoundNumber
}

// Finished reports whether the room has ended.
func (s *RoomSnapshot) Finished() bool {
	return s != nil && s.Room.Status == RoomStatusFinished
}

// NonHostPlayers returns the players that actually take part in rounds.
func (s *RoomSnapshot) NonHostPlayers() []PlayerInfo {
	if s == nil {
		return nil
	}
	players := make([]PlayerInfo, 0, len(s.Players))
	for _, p := range s.Players {
		if !p.IsHost {
			players = append(players, p)
		}
	}
	return players
}

// PollResult is the outcome of one version-gated state poll. Snapshot is only set when
// HasUpdate is true.
type PollResult struct {
	Version   int64
	HasUpdate bool
	Snapshot  *RoomSnapshot
}
