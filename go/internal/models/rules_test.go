package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRulesCategory(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		round int
		want  RoundCategory
	}{
		{1, RoundCategoryBasic},
		{4, RoundCategoryBasic},
		{5, RoundCategoryMessage},
		{6, RoundCategoryMessage},
		{7, RoundCategoryCooperation},
		{10, RoundCategoryCooperation},
		{0, RoundCategoryUnknown},
		{11, RoundCategoryUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.Category(tt.round), "round %d", tt.round)
	}
}

func TestRulesIsMessageRound(t *testing.T) {
	rules := DefaultRules()

	assert.False(t, rules.IsMessageRound(nil))
	assert.True(t, rules.IsMessageRound(&Round{RoundNumber: 5}))
	assert.False(t, rules.IsMessageRound(&Round{RoundNumber: 4}))
	assert.True(t, rules.IsMessageRound(&Round{RoundNumber: 2, Phase: RoundPhaseMessage}))
}

func TestRoundSubmissionRatio(t *testing.T) {
	assert.Equal(t, 0.0, (*Round)(nil).SubmissionRatio())
	assert.Equal(t, 0.5, (&Round{SubmittedActions: 2, TotalPlayers: 4}).SubmissionRatio())
	assert.Equal(t, 1.0, (&Round{SubmittedActions: 5, TotalPlayers: 4}).SubmissionRatio())
	assert.Equal(t, 1.0, (&Round{SubmittedActions: 1, TotalPlayers: 0}).SubmissionRatio())
}
