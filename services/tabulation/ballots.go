package tabulation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tabrela/tabrela/internal/apperr"
)

const ballotCols = `id, match_id, adjudicator_id, is_voting, is_submitted, submitted_at, notes, created_at, updated_at`

func scanBallot(row pgx.Row) (Ballot, error) {
	var b Ballot
	err := row.Scan(&b.ID, &b.MatchID, &b.AdjudicatorID, &b.IsVoting, &b.IsSubmitted, &b.SubmittedAt, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ballot{}, ErrNotFound
	}
	return b, err
}

// GetOrCreateBallot lazily creates the ballot if the adjudicator
// allocation exists but no ballot row does yet (spec §4.4.4).
func (r *Repo) GetOrCreateBallot(ctx context.Context, matchID, adjudicatorID uuid.UUID, isVoting bool) (Ballot, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO ballots (match_id, adjudicator_id, is_voting) VALUES ($1,$2,$3)
		ON CONFLICT (match_id, adjudicator_id) DO UPDATE SET match_id = ballots.match_id
		RETURNING `+ballotCols, matchID, adjudicatorID, isVoting)
	return scanBallot(row)
}

func (r *Repo) ListSpeakerScoresForBallot(ctx context.Context, ballotID uuid.UUID) ([]SpeakerScore, error) {
	rows, err := r.pool.Query(ctx, `SELECT ss.id, ss.ballot_id, ss.allocation_id, ss.score, ss.feedback, ss.created_at, ss.updated_at,
		COALESCE(u.username, a.guest_name, '') AS speaker_name
		FROM speaker_scores ss
		JOIN allocations a ON a.id = ss.allocation_id
		LEFT JOIN users u ON u.id = a.user_id
		WHERE ss.ballot_id = $1`, ballotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SpeakerScore
	for rows.Next() {
		var s SpeakerScore
		if err := rows.Scan(&s.ID, &s.BallotID, &s.AllocationID, &s.Score, &s.Feedback, &s.CreatedAt, &s.UpdatedAt, &s.SpeakerName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) ListTeamRankingsForBallot(ctx context.Context, ballotID uuid.UUID) ([]TeamRanking, error) {
	rows, err := r.pool.Query(ctx, `SELECT tr.id, tr.ballot_id, tr.team_id, tr.rank, tr.is_winner, tr.created_at, tr.updated_at,
		COALESCE(mt.team_name, '') AS team_name
		FROM team_rankings tr
		JOIN match_teams mt ON mt.id = tr.team_id
		WHERE tr.ballot_id = $1`, ballotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TeamRanking
	for rows.Next() {
		var t TeamRanking
		if err := rows.Scan(&t.ID, &t.BallotID, &t.TeamID, &t.Rank, &t.IsWinner, &t.CreatedAt, &t.UpdatedAt, &t.TeamName); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// validateRankings rejects duplicate team ranks (spec §4.4.4 step 3):
// sort then compare against a dedup set.
func validateRankings(rankings []TeamRankingInput) error {
	ranks := make([]int, 0, len(rankings))
	for _, r := range rankings {
		ranks = append(ranks, r.Rank)
	}
	sorted := append([]int(nil), ranks...)
	sort.Ints(sorted)
	seen := make(map[int]struct{}, len(sorted))
	for _, rk := range sorted {
		if _, ok := seen[rk]; ok {
			return apperr.Validationf("Rankings must be unique (no ties)")
		}
		seen[rk] = struct{}{}
	}
	return nil
}

// SubmitBallot implements spec §4.4.4's voting-adjudicator submission:
// validate, fetch-or-create the ballot, replace its scores/rankings,
// mark submitted — all inside one transaction.
func (r *Repo) SubmitBallot(ctx context.Context, matchID uuid.UUID, allocation Allocation, req SubmitBallotRequest) (Ballot, error) {
	if allocation.Role != RoleVotingAdjudicator {
		return Ballot{}, apperr.Forbiddenf("only voting adjudicators may submit a scored ballot")
	}
	if err := validateRankings(req.TeamRankings); err != nil {
		return Ballot{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Ballot{}, err
	}
	defer tx.Rollback(ctx)

	ballot, err := scanBallot(tx.QueryRow(ctx, `INSERT INTO ballots (match_id, adjudicator_id, is_voting) VALUES ($1,$2,true)
		ON CONFLICT (match_id, adjudicator_id) DO UPDATE SET match_id = ballots.match_id
		RETURNING `+ballotCols, matchID, *allocation.UserID))
	if err != nil {
		return Ballot{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM speaker_scores WHERE ballot_id = $1`, ballot.ID); err != nil {
		return Ballot{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM team_rankings WHERE ballot_id = $1`, ballot.ID); err != nil {
		return Ballot{}, err
	}

	for _, s := range req.SpeakerScores {
		if _, err := tx.Exec(ctx, `INSERT INTO speaker_scores (ballot_id, allocation_id, score, feedback) VALUES ($1,$2,$3,$4)`,
			ballot.ID, s.AllocationID, s.Score, s.Feedback); err != nil {
			return Ballot{}, err
		}
	}
	for _, t := range req.TeamRankings {
		if _, err := tx.Exec(ctx, `INSERT INTO team_rankings (ballot_id, team_id, rank, is_winner) VALUES ($1,$2,$3,$4)`,
			ballot.ID, t.TeamID, t.Rank, t.IsWinner); err != nil {
			return Ballot{}, err
		}
	}

	now := timeNow()
	submitted, err := scanBallot(tx.QueryRow(ctx, `UPDATE ballots SET is_submitted = true, submitted_at = $2, notes = $3, updated_at = now()
		WHERE id = $1 RETURNING `+ballotCols, ballot.ID, now, req.Notes))
	if err != nil {
		return Ballot{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Ballot{}, err
	}
	return submitted, nil
}

// SubmitFeedback handles non-voting adjudicators (and voting, as a
// fallback): stores notes only, marks submitted, writes no scores.
func (r *Repo) SubmitFeedback(ctx context.Context, matchID uuid.UUID, allocation Allocation, req SubmitFeedbackRequest) (Ballot, error) {
	now := timeNow()
	row := r.pool.QueryRow(ctx, `INSERT INTO ballots (match_id, adjudicator_id, is_voting, is_submitted, submitted_at, notes)
		VALUES ($1,$2,$3,true,$4,$5)
		ON CONFLICT (match_id, adjudicator_id) DO UPDATE SET is_submitted = true, submitted_at = $4, notes = $5, updated_at = now()
		RETURNING `+ballotCols, matchID, *allocation.UserID, allocation.Role == RoleVotingAdjudicator, now, req.Notes)
	return scanBallot(row)
}

func timeNow() time.Time { return timeNowFunc() }

// timeNowFunc is indirected so tests can deterministically override it;
// production code always uses the real wall clock.
var timeNowFunc = time.Now
