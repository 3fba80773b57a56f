package tabulation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Performance assembles spec §4.4.7's performance tab for a user,
// optionally scoped to one event, from allocations/ballots/rankings.
func (r *Repo) Performance(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID) (PerformanceStats, error) {
	stats := PerformanceStats{UserID: userID, Rankings: map[int]int{}}

	totalRounds, err := r.countDistinctMatches(ctx, userID, eventID, nil)
	if err != nil {
		return PerformanceStats{}, err
	}
	stats.TotalRounds = totalRounds

	asSpeaker, err := r.countDistinctMatches(ctx, userID, eventID, []AllocationRole{RoleSpeaker})
	if err != nil {
		return PerformanceStats{}, err
	}
	stats.RoundsAsSpeaker = asSpeaker

	asAdj, err := r.countDistinctMatches(ctx, userID, eventID, []AllocationRole{RoleVotingAdjudicator, RoleNonVotingAdjudicator})
	if err != nil {
		return PerformanceStats{}, err
	}
	stats.RoundsAsAdjudicator = asAdj

	avgScore, hasScore, err := r.averageSpeakerScore(ctx, userID, eventID)
	if err != nil {
		return PerformanceStats{}, err
	}
	if hasScore {
		stats.AverageSpeakerScore = &avgScore
	}

	wins, losses, rankings, err := r.winsLossesAndRankings(ctx, userID, eventID)
	if err != nil {
		return PerformanceStats{}, err
	}
	stats.Wins = wins
	stats.Losses = losses
	stats.Rankings = rankings
	if wins+losses > 0 {
		rate := 100 * float64(wins) / float64(wins+losses)
		stats.WinRate = &rate
	}

	return stats, nil
}

func (r *Repo) countDistinctMatches(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID, roles []AllocationRole) (int, error) {
	query := `SELECT COUNT(DISTINCT a.match_id)
		FROM allocations a
		JOIN matches m ON m.id = a.match_id
		JOIN match_series s ON s.id = m.series_id
		WHERE a.user_id = $1`
	args := []any{userID}
	if eventID != nil {
		query += ` AND s.event_id = $2`
		args = append(args, *eventID)
	}
	if len(roles) > 0 {
		query += fmt.Sprintf(` AND a.role::text = ANY($%d)`, len(args)+1)
		args = append(args, rolesToStrings(roles))
	}
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repo) averageSpeakerScore(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID) (float64, bool, error) {
	query := `SELECT AVG(ss.score)
		FROM speaker_scores ss
		JOIN ballots b ON b.id = ss.ballot_id AND b.is_submitted = true
		JOIN allocations a ON a.id = ss.allocation_id AND a.role = 'speaker'
		JOIN matches m ON m.id = a.match_id
		JOIN match_series s ON s.id = m.series_id
		WHERE a.user_id = $1`
	args := []any{userID}
	if eventID != nil {
		query += ` AND s.event_id = $2`
		args = append(args, *eventID)
	}
	var avg *float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&avg); err != nil {
		return 0, false, err
	}
	if avg == nil {
		return 0, false, nil
	}
	return *avg, true, nil
}

func (r *Repo) winsLossesAndRankings(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID) (wins, losses int, rankings map[int]int, err error) {
	query := `SELECT tr.rank, tr.is_winner
		FROM team_rankings tr
		JOIN ballots b ON b.id = tr.ballot_id AND b.is_voting = true AND b.is_submitted = true
		JOIN allocations a ON a.team_id = tr.team_id AND a.role = 'speaker'
		JOIN matches m ON m.id = a.match_id
		JOIN match_series s ON s.id = m.series_id
		WHERE a.user_id = $1`
	args := []any{userID}
	if eventID != nil {
		query += ` AND s.event_id = $2`
		args = append(args, *eventID)
	}
	rows, queryErr := r.pool.Query(ctx, query, args...)
	if queryErr != nil {
		return 0, 0, nil, queryErr
	}
	defer rows.Close()

	rankings = map[int]int{}
	for rows.Next() {
		var rank int
		var isWinner bool
		if scanErr := rows.Scan(&rank, &isWinner); scanErr != nil {
			return 0, 0, nil, scanErr
		}
		rankings[rank]++
		if isWinner {
			wins++
		} else {
			losses++
		}
	}
	return wins, losses, rankings, rows.Err()
}

func rolesToStrings(roles []AllocationRole) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
