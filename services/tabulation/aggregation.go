package tabulation

import (
	"sort"

	"github.com/google/uuid"
)

// teamRankObservation is one submitted voting ballot's ranking of one team.
type teamRankObservation struct {
	teamID uuid.UUID
	rank   int
}

// speakerScoreObservation is one submitted voting ballot's score for one
// speaker allocation.
type speakerScoreObservation struct {
	allocationID uuid.UUID
	score        float64
}

// computeFinalRanks implements spec §4.4.5 steps 1-2: average rank per
// team ascending, ties broken stably by team id; unranked teams get
// final_rank = N+1.
func computeFinalRanks(teamIDs []uuid.UUID, rankings []teamRankObservation) map[uuid.UUID]int {
	sums := make(map[uuid.UUID]float64)
	counts := make(map[uuid.UUID]int)
	for _, r := range rankings {
		sums[r.teamID] += float64(r.rank)
		counts[r.teamID]++
	}

	type avgEntry struct {
		teamID uuid.UUID
		avg    float64
		ranked bool
	}
	entries := make([]avgEntry, 0, len(teamIDs))
	rankedCount := 0
	for _, id := range teamIDs {
		if counts[id] > 0 {
			entries = append(entries, avgEntry{teamID: id, avg: sums[id] / float64(counts[id]), ranked: true})
			rankedCount++
		} else {
			entries = append(entries, avgEntry{teamID: id, ranked: false})
		}
	}

	ranked := make([]avgEntry, 0, rankedCount)
	unranked := make([]avgEntry, 0, len(entries)-rankedCount)
	for _, e := range entries {
		if e.ranked {
			ranked = append(ranked, e)
		} else {
			unranked = append(unranked, e)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].avg != ranked[j].avg {
			return ranked[i].avg < ranked[j].avg
		}
		return ranked[i].teamID.String() < ranked[j].teamID.String()
	})

	out := make(map[uuid.UUID]int, len(entries))
	for i, e := range ranked {
		out[e.teamID] = i + 1
	}
	for _, e := range unranked {
		out[e.teamID] = rankedCount + 1
	}
	return out
}

// computeTotalSpeakerPoints implements spec §4.4.5 step 3: per speaker
// allocation, mean score across submitted voting ballots; summed per team.
func computeTotalSpeakerPoints(allocations []Allocation, scores []speakerScoreObservation) map[uuid.UUID]float64 {
	sums := make(map[uuid.UUID]float64)
	counts := make(map[uuid.UUID]int)
	for _, s := range scores {
		sums[s.allocationID] += s.score
		counts[s.allocationID]++
	}

	teamTotals := make(map[uuid.UUID]float64)
	for _, a := range allocations {
		if a.Role != RoleSpeaker || a.TeamID == nil {
			continue
		}
		if counts[a.ID] == 0 {
			continue
		}
		mean := sums[a.ID] / float64(counts[a.ID])
		teamTotals[*a.TeamID] += mean
	}
	return teamTotals
}
