package tabulation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateRankingsRejectsDuplicateRanks(t *testing.T) {
	teamA, teamB := uuid.New(), uuid.New()
	err := validateRankings([]TeamRankingInput{
		{TeamID: teamA, Rank: 1},
		{TeamID: teamB, Rank: 1},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unique")
}

func TestValidateRankingsAcceptsUniqueRanks(t *testing.T) {
	teamA, teamB, teamC := uuid.New(), uuid.New(), uuid.New()
	err := validateRankings([]TeamRankingInput{
		{TeamID: teamA, Rank: 2},
		{TeamID: teamB, Rank: 1},
		{TeamID: teamC, Rank: 3},
	})
	assert.NoError(t, err)
}

func TestValidateRankingsEmptyIsValid(t *testing.T) {
	assert.NoError(t, validateRankings(nil))
}
