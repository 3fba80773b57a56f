package tabulation

import (
	"context"

	"github.com/google/uuid"
)

// RecomputeMatchResults reloads every submitted voting ballot's
// rankings and speaker scores for the match and persists final_rank
// and total_speaker_points on each team (spec §4.4.5). It runs outside
// the submission transaction by design — concurrent submissions may
// interleave, which spec §5 accepts as converging to the best current
// estimate.
func (r *Repo) RecomputeMatchResults(ctx context.Context, matchID uuid.UUID) error {
	teams, err := r.ListTeamsForMatch(ctx, matchID)
	if err != nil {
		return err
	}
	teamIDs := make([]uuid.UUID, len(teams))
	for i, t := range teams {
		teamIDs[i] = t.ID
	}

	allocations, err := r.ListAllocationsForMatch(ctx, matchID)
	if err != nil {
		return err
	}

	rankings, err := r.submittedVotingRankings(ctx, matchID)
	if err != nil {
		return err
	}
	scores, err := r.submittedVotingSpeakerScores(ctx, matchID)
	if err != nil {
		return err
	}

	finalRanks := computeFinalRanks(teamIDs, rankings)
	totals := computeTotalSpeakerPoints(allocations, scores)

	for _, id := range teamIDs {
		rank := finalRanks[id]
		total, hasTotal := totals[id]
		var totalPtr *float64
		if hasTotal {
			totalPtr = &total
		}
		if _, err := r.pool.Exec(ctx, `UPDATE match_teams SET final_rank = $2, total_speaker_points = $3, updated_at = now() WHERE id = $1`,
			id, rank, totalPtr); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) submittedVotingRankings(ctx context.Context, matchID uuid.UUID) ([]teamRankObservation, error) {
	rows, err := r.pool.Query(ctx, `SELECT tr.team_id, tr.rank
		FROM team_rankings tr
		JOIN ballots b ON b.id = tr.ballot_id
		WHERE b.match_id = $1 AND b.is_voting = true AND b.is_submitted = true`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []teamRankObservation
	for rows.Next() {
		var o teamRankObservation
		if err := rows.Scan(&o.teamID, &o.rank); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) submittedVotingSpeakerScores(ctx context.Context, matchID uuid.UUID) ([]speakerScoreObservation, error) {
	rows, err := r.pool.Query(ctx, `SELECT ss.allocation_id, ss.score
		FROM speaker_scores ss
		JOIN ballots b ON b.id = ss.ballot_id
		WHERE b.match_id = $1 AND b.is_voting = true AND b.is_submitted = true`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []speakerScoreObservation
	for rows.Next() {
		var o speakerScoreObservation
		if err := rows.Scan(&o.allocationID, &o.score); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
