package models

// RoundStatus is the per-round sub-state machine. It only moves forward within a round
// and resets to waiting_actions when the round number increases.
type RoundStatus string

const (
	RoundStatusWaitingActions RoundStatus = "waiting_actions"
	RoundStatusReadyToPublish RoundStatus = "ready_to_publish"
	RoundStatusCompleted      RoundStatus = "completed"
)

// RoundPhase is the server's label for the kind of round being played.
type RoundPhase string

const (
	RoundPhaseNormal    RoundPhase = "NORMAL"
	RoundPhaseMessage   RoundPhase = "MESSAGE"
	RoundPhaseIndicator RoundPhase = "INDICATOR"
)

// Choice is a player's decision for a round.
type Choice string

const (
	ChoiceAccelerate Choice = "ACCELERATE"
	ChoiceTurn       Choice = "TURN"
)

// Valid reports whether c is one of the choices the service accepts.
func (c Choice) Valid() bool {
	return c == ChoiceAccelerate || c == ChoiceTurn
}

// PlayerSubmission says whether one player already acted in the current round.
type PlayerSubmission struct {
	PlayerID  string `json:"player_id"`
	Submitted bool   `json:"submitted"`
}

// Round is present in a snapshot only once play has started.
type Round struct {
	RoundNumber       int                `json:"round_number"`
	Phase             RoundPhase         `json:"phase,omitempty"`
	Status            RoundStatus        `json:"status"`
	SubmittedActions  int                `json:"submitted_actions"`
	TotalPlayers      int                `json:"total_players"`
	YourChoice        *Choice            `json:"your_choice"`
	PlayerSubmissions []PlayerSubmission `json:"player_submissions,omitempty"`
}

// HasChoice reports whether the server already recorded the local player's choice.
func (r *Round) HasChoice() bool {
	return r != nil && r.YourChoice != nil && *r.YourChoice != ""
}

// SubmissionRatio is the share of players that acted, clamped to [0, 1].
func (r *Round) SubmissionRatio() float64 {
	if r == nil {
		return 0
	}
	total := r.TotalPlayers
	if total < 1 {
		total = 1
	}
	ratio := float64(r.SubmittedActions) / float64(total)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// RoundResult is fetched once a round reaches completed.
type RoundResult struct {
	RoundNumber         int    `json:"round_number"`
	OpponentDisplayName string `json:"opponent_display_name"`
	YourChoice          Choice `json:"your_choice"`
	OpponentChoice      Choice `json:"opponent_choice"`
	YourPayoff          int    `json:"your_payoff"`
	OpponentPayoff      int    `json:"opponent_payoff"`
}
