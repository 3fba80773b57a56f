package tabulation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("tabulation: not found")

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// IsCSRFTokenValid checks the shared csrf_tokens table, the same one
// Auth issues tokens into via /csrf-token.
func (r *Repo) IsCSRFTokenValid(ctx context.Context, token string) (bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM csrf_tokens WHERE token = $1 AND expires_at > now()`, token).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM admin_users WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *Repo) EventExists(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM events WHERE id = $1`, eventID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// --- Series ---

const seriesCols = `id, event_id, name, description, round_number, team_format, allow_reply_speeches, is_break_round, created_by, created_at, updated_at`

func scanSeries(row pgx.Row) (MatchSeries, error) {
	var s MatchSeries
	err := row.Scan(&s.ID, &s.EventID, &s.Name, &s.Description, &s.RoundNumber, &s.TeamFormat, &s.AllowReplySpeeches, &s.IsBreakRound, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return MatchSeries{}, ErrNotFound
	}
	return s, err
}

func (r *Repo) CreateSeries(ctx context.Context, req CreateSeriesRequest, createdBy uuid.UUID) (MatchSeries, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO match_series (event_id, name, description, round_number, team_format, allow_reply_speeches, is_break_round, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING `+seriesCols,
		req.EventID, req.Name, req.Description, req.RoundNumber, req.TeamFormat, req.AllowReplySpeeches, req.IsBreakRound, createdBy)
	return scanSeries(row)
}

func (r *Repo) GetSeries(ctx context.Context, id uuid.UUID) (MatchSeries, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+seriesCols+` FROM match_series WHERE id = $1`, id)
	return scanSeries(row)
}

func (r *Repo) ListSeries(ctx context.Context, eventID *uuid.UUID) ([]MatchSeries, error) {
	var rows pgx.Rows
	var err error
	if eventID != nil {
		rows, err = r.pool.Query(ctx, `SELECT `+seriesCols+` FROM match_series WHERE event_id = $1 ORDER BY round_number NULLS LAST, created_at`, *eventID)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+seriesCols+` FROM match_series ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- Matches ---

const matchCols = `id, series_id, room_name, motion, info_slide, status, scheduled_time, scores_released, rankings_released, created_at, updated_at`

func scanMatch(row pgx.Row) (Match, error) {
	var m Match
	err := row.Scan(&m.ID, &m.SeriesID, &m.RoomName, &m.Motion, &m.InfoSlide, &m.Status, &m.ScheduledTime, &m.ScoresReleased, &m.RankingsReleased, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Match{}, ErrNotFound
	}
	return m, err
}

// CreateMatch inserts the match and eagerly creates its fixed team
// slots per the series format, per spec §4.4.1.
func (r *Repo) CreateMatch(ctx context.Context, req CreateMatchRequest, format TeamFormat) (Match, []MatchTeam, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Match{}, nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `INSERT INTO matches (series_id, room_name, motion, info_slide, scheduled_time)
		VALUES ($1,$2,$3,$4,$5) RETURNING `+matchCols,
		req.SeriesID, req.RoomName, req.Motion, req.InfoSlide, req.ScheduledTime)
	match, err := scanMatch(row)
	if err != nil {
		return Match{}, nil, err
	}

	var teams []MatchTeam
	switch format {
	case FormatTwoTeam:
		for _, pos := range twoTeamPositions {
			t, err := insertTeamTwoTeam(ctx, tx, match.ID, pos)
			if err != nil {
				return Match{}, nil, err
			}
			teams = append(teams, t)
		}
	default:
		for _, pos := range fourTeamPositions {
			t, err := insertTeamFourTeam(ctx, tx, match.ID, pos)
			if err != nil {
				return Match{}, nil, err
			}
			teams = append(teams, t)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Match{}, nil, err
	}
	return match, teams, nil
}

func insertTeamTwoTeam(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, pos TwoTeamPosition) (MatchTeam, error) {
	var t MatchTeam
	err := tx.QueryRow(ctx, `INSERT INTO match_teams (match_id, two_team_position) VALUES ($1,$2)
		RETURNING id, match_id, two_team_position, four_team_position, team_name, institution, final_rank, total_speaker_points, created_at, updated_at`,
		matchID, pos).
		Scan(&t.ID, &t.MatchID, &t.TwoTeamPosition, &t.FourTeamPosition, &t.TeamName, &t.Institution, &t.FinalRank, &t.TotalSpeakerPoints, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func insertTeamFourTeam(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, pos FourTeamPosition) (MatchTeam, error) {
	var t MatchTeam
	err := tx.QueryRow(ctx, `INSERT INTO match_teams (match_id, four_team_position) VALUES ($1,$2)
		RETURNING id, match_id, two_team_position, four_team_position, team_name, institution, final_rank, total_speaker_points, created_at, updated_at`,
		matchID, pos).
		Scan(&t.ID, &t.MatchID, &t.TwoTeamPosition, &t.FourTeamPosition, &t.TeamName, &t.Institution, &t.FinalRank, &t.TotalSpeakerPoints, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *Repo) GetMatch(ctx context.Context, id uuid.UUID) (Match, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+matchCols+` FROM matches WHERE id = $1`, id)
	return scanMatch(row)
}

func (r *Repo) ListMatches(ctx context.Context, seriesID *uuid.UUID) ([]Match, error) {
	var rows pgx.Rows
	var err error
	if seriesID != nil {
		rows, err = r.pool.Query(ctx, `SELECT `+matchCols+` FROM matches WHERE series_id = $1 ORDER BY created_at`, *seriesID)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+matchCols+` FROM matches ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateMatch(ctx context.Context, id uuid.UUID, req UpdateMatchRequest) (Match, error) {
	row := r.pool.QueryRow(ctx, `UPDATE matches SET
		room_name = COALESCE($2, room_name),
		motion = COALESCE($3, motion),
		info_slide = COALESCE($4, info_slide),
		status = COALESCE($5, status),
		scheduled_time = COALESCE($6, scheduled_time),
		updated_at = now()
		WHERE id = $1 RETURNING `+matchCols,
		id, req.RoomName, req.Motion, req.InfoSlide, req.Status, req.ScheduledTime)
	return scanMatch(row)
}

// SetRelease applies the release-gating invariant: scores_released=true
// forces rankings_released=true (spec §4.4.6, coercion design).
func (r *Repo) SetRelease(ctx context.Context, id uuid.UUID, req ReleaseRequest) (Match, error) {
	current, err := r.GetMatch(ctx, id)
	if err != nil {
		return Match{}, err
	}
	scores := current.ScoresReleased
	if req.ScoresReleased != nil {
		scores = *req.ScoresReleased
	}
	rankings := current.RankingsReleased
	if req.RankingsReleased != nil {
		rankings = *req.RankingsReleased
	}
	if scores {
		rankings = true
	}
	row := r.pool.QueryRow(ctx, `UPDATE matches SET scores_released = $2, rankings_released = $3, updated_at = now()
		WHERE id = $1 RETURNING `+matchCols, id, scores, rankings)
	return scanMatch(row)
}

const teamCols = `id, match_id, two_team_position, four_team_position, team_name, institution, final_rank, total_speaker_points, created_at, updated_at`

func scanTeam(row pgx.Row) (MatchTeam, error) {
	var t MatchTeam
	err := row.Scan(&t.ID, &t.MatchID, &t.TwoTeamPosition, &t.FourTeamPosition, &t.TeamName, &t.Institution, &t.FinalRank, &t.TotalSpeakerPoints, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return MatchTeam{}, ErrNotFound
	}
	return t, err
}

func (r *Repo) GetTeam(ctx context.Context, id uuid.UUID) (MatchTeam, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+teamCols+` FROM match_teams WHERE id = $1`, id)
	return scanTeam(row)
}

func (r *Repo) ListTeamsForMatch(ctx context.Context, matchID uuid.UUID) ([]MatchTeam, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teamCols+` FROM match_teams WHERE match_id = $1 ORDER BY id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchTeam
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateTeam(ctx context.Context, id uuid.UUID, req UpdateTeamRequest) (MatchTeam, error) {
	row := r.pool.QueryRow(ctx, `UPDATE match_teams SET
		team_name = COALESCE($2, team_name),
		institution = COALESCE($3, institution),
		updated_at = now()
		WHERE id = $1 RETURNING `+teamCols, id, req.TeamName, req.Institution)
	return scanTeam(row)
}

// --- Allocation pool (spec §4.4.2) ---

type poolRow struct {
	UserID      uuid.UUID
	Username    string
	CheckedInAt time.Time
}

func (r *Repo) CheckedInUsersForEvent(ctx context.Context, eventID uuid.UUID) ([]poolRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT ar.user_id, u.username, ar.checked_in_at
		FROM attendance_records ar
		JOIN users u ON u.id = ar.user_id
		WHERE ar.event_id = $1 AND ar.is_checked_in = true
		ORDER BY u.username`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []poolRow
	for rows.Next() {
		var p poolRow
		if err := rows.Scan(&p.UserID, &p.Username, &p.CheckedInAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CurrentAllocationForUser finds the user's existing allocation in any
// match of the series — the model does not enforce uniqueness, so the
// first one (by creation order) is reported.
func (r *Repo) CurrentAllocationForUser(ctx context.Context, seriesID, userID uuid.UUID) (*CurrentAllocation, error) {
	var a CurrentAllocation
	err := r.pool.QueryRow(ctx, `SELECT a.match_id, m.room_name, a.role
		FROM allocations a
		JOIN matches m ON m.id = a.match_id
		WHERE m.series_id = $1 AND a.user_id = $2
		ORDER BY a.created_at LIMIT 1`, seriesID, userID).
		Scan(&a.MatchID, &a.RoomName, &a.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
