package models

// RoundCategory describes what kind of interaction a round allows.
type RoundCategory string

const (
	RoundCategoryBasic       RoundCategory = "basic"
	RoundCategoryMessage     RoundCategory = "message"
	RoundCategoryCooperation RoundCategory = "cooperation"
	RoundCategoryUnknown     RoundCategory = "unknown"
)

// Rules holds the fixed shape of a game: how many rounds, which rounds carry a message
// exchange, and when indicators are handed out.
type Rules struct {
	TotalRounds         int   `yaml:"total_rounds" json:"total_rounds"`
	MessageRounds       []int `yaml:"message_rounds" json:"message_rounds"`
	IndicatorAfterRound int   `yaml:"indicator_after_round" json:"indicator_after_round"`
	CooperationRounds   []int `yaml:"cooperation_rounds" json:"cooperation_rounds"`
}

// DefaultRules returns the standard ten-round game.
func DefaultRules() Rules {
	return Rules{
		TotalRounds:         10,
		MessageRounds:       []int{5, 6},
		IndicatorAfterRound: 6,
		CooperationRounds:   []int{7, 8, 9, 10},
	}
}

// IsMessageRound reports whether round is designated for a message exchange, either by
// number or because the server labelled it so.
func (r Rules) IsMessageRound(round *Round) bool {
	if round == nil {
		return false
	}
	if round.Phase == RoundPhaseMessage {
		return true
	}
	return contains(r.MessageRounds, round.RoundNumber)
}

// IsCooperationRound reports whether players may discuss strategy in this round.
func (r Rules) IsCooperationRound(roundNumber int) bool {
	return contains(r.CooperationRounds, roundNumber)
}

// Category returns the category used for round headers.
func (r Rules) Category(roundNumber int) RoundCategory {
	switch {
	case contains(r.MessageRounds, roundNumber):
		return RoundCategoryMessage
	case contains(r.CooperationRounds, roundNumber):
		return RoundCategoryCooperation
	case roundNumber >= 1 && roundNumber <= r.TotalRounds:
		return RoundCategoryBasic
	default:
		return RoundCategoryUnknown
	}
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
