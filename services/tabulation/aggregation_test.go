package tabulation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFinalRanksAscendingByAverage(t *testing.T) {
	teamA, teamB, teamC := uuid.New(), uuid.New(), uuid.New()
	ranks := computeFinalRanks([]uuid.UUID{teamA, teamB, teamC}, []teamRankObservation{
		{teamID: teamA, rank: 1}, {teamID: teamA, rank: 1},
		{teamID: teamB, rank: 3}, {teamID: teamB, rank: 3},
		{teamID: teamC, rank: 2}, {teamID: teamC, rank: 2},
	})
	assert.Equal(t, 1, ranks[teamA]) // avg 1.0, best
	assert.Equal(t, 2, ranks[teamC]) // avg 2.0
	assert.Equal(t, 3, ranks[teamB]) // avg 3.0, worst
}

func TestComputeFinalRanksTieBrokenByTeamID(t *testing.T) {
	teamA, teamB := uuid.New(), uuid.New()
	lo, hi := teamA, teamB
	if lo.String() > hi.String() {
		lo, hi = hi, lo
	}
	ranks := computeFinalRanks([]uuid.UUID{lo, hi}, []teamRankObservation{
		{teamID: lo, rank: 1}, {teamID: hi, rank: 1},
	})
	require.Equal(t, 1, ranks[lo])
	require.Equal(t, 2, ranks[hi])
}

func TestComputeFinalRanksUnrankedTeamGetsNPlusOne(t *testing.T) {
	teamA, teamB := uuid.New(), uuid.New()
	ranks := computeFinalRanks([]uuid.UUID{teamA, teamB}, []teamRankObservation{
		{teamID: teamA, rank: 1},
	})
	assert.Equal(t, 1, ranks[teamA])
	assert.Equal(t, 2, ranks[teamB])
}

func TestComputeTotalSpeakerPointsSumsPerTeam(t *testing.T) {
	team := uuid.New()
	allocA := uuid.New()
	allocB := uuid.New()
	allocations := []Allocation{
		{ID: allocA, Role: RoleSpeaker, TeamID: &team},
		{ID: allocB, Role: RoleSpeaker, TeamID: &team},
	}
	scores := []speakerScoreObservation{
		{allocationID: allocA, score: 75},
		{allocationID: allocA, score: 77},
		{allocationID: allocB, score: 80},
	}
	totals := computeTotalSpeakerPoints(allocations, scores)
	assert.InDelta(t, 76+80, totals[team], 0.001)
}

func TestComputeTotalSpeakerPointsIgnoresNonSpeakers(t *testing.T) {
	team := uuid.New()
	adjAlloc := uuid.New()
	allocations := []Allocation{
		{ID: adjAlloc, Role: RoleVotingAdjudicator, TeamID: nil},
	}
	totals := computeTotalSpeakerPoints(allocations, []speakerScoreObservation{{allocationID: adjAlloc, score: 99}})
	assert.Empty(t, totals[team])
}
