package tabulation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tabrela/tabrela/internal/apperr"
)

const allocationCols = `id, match_id, user_id, guest_name, role, team_id, two_team_speaker_role, four_team_speaker_role, is_chair, allocated_by, allocated_at, was_checked_in, created_at, updated_at`

func scanAllocation(row pgx.Row) (Allocation, error) {
	var a Allocation
	err := row.Scan(&a.ID, &a.MatchID, &a.UserID, &a.GuestName, &a.Role, &a.TeamID, &a.TwoTeamSpeakerRole, &a.FourTeamSpeakerRole, &a.IsChair, &a.AllocatedBy, &a.AllocatedAt, &a.WasCheckedIn, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Allocation{}, ErrNotFound
	}
	return a, err
}

func (r *Repo) GetAllocation(ctx context.Context, id uuid.UUID) (Allocation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+allocationCols+` FROM allocations WHERE id = $1`, id)
	return scanAllocation(row)
}

func (r *Repo) ListAllocationsForMatch(ctx context.Context, matchID uuid.UUID) ([]Allocation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+allocationCols+` FROM allocations WHERE match_id = $1 ORDER BY allocated_at`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AdjudicatorAllocation finds the caller's adjudicator allocation for a
// match (role in {voting, non_voting}), per spec §4.4.4's ballot lookup.
func (r *Repo) AdjudicatorAllocation(ctx context.Context, matchID, userID uuid.UUID) (Allocation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+allocationCols+` FROM allocations
		WHERE match_id = $1 AND user_id = $2 AND role IN ('voting_adjudicator','non_voting_adjudicator')
		LIMIT 1`, matchID, userID)
	return scanAllocation(row)
}

// wasCheckedIn snapshots attendance at allocation time — an audit
// artifact that never blocks allocation (spec §4.4.3).
func (r *Repo) wasCheckedIn(ctx context.Context, matchID uuid.UUID, userID *uuid.UUID) (bool, error) {
	if userID == nil {
		return false, nil
	}
	var checkedIn bool
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(ar.is_checked_in, false)
		FROM matches m
		JOIN match_series s ON s.id = m.series_id
		LEFT JOIN attendance_records ar ON ar.event_id = s.event_id AND ar.user_id = $2
		WHERE m.id = $1`, matchID, *userID).Scan(&checkedIn)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return checkedIn, err
}

// hasDuplicateAllocation implements the duplicate-prevention rule of
// spec §4.4.3: same user, same role, and (for speakers) same
// speaker-position field already allocated in this match. For
// adjudicators, any existing voting or non-voting adjudicator allocation
// of the same user counts as a duplicate.
func (r *Repo) hasDuplicateAllocation(ctx context.Context, matchID uuid.UUID, userID *uuid.UUID, role AllocationRole, twoPos *TwoTeamSpeakerRole, fourPos *FourTeamSpeakerRole) (bool, error) {
	if userID == nil {
		return false, nil
	}
	if role == RoleVotingAdjudicator || role == RoleNonVotingAdjudicator {
		var id uuid.UUID
		err := r.pool.QueryRow(ctx, `SELECT id FROM allocations
			WHERE match_id = $1 AND user_id = $2 AND role IN ('voting_adjudicator','non_voting_adjudicator')
			LIMIT 1`, matchID, *userID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return err == nil, err
	}

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM allocations
		WHERE match_id = $1 AND user_id = $2 AND role = $3
		AND two_team_speaker_role IS NOT DISTINCT FROM $4
		AND four_team_speaker_role IS NOT DISTINCT FROM $5
		LIMIT 1`, matchID, *userID, role, twoPos, fourPos).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CreateAllocation validates, inserts the allocation, eagerly creates a
// ballot for registered-user adjudicators, and appends history, per
// spec §4.4.3.
func (r *Repo) CreateAllocation(ctx context.Context, req CreateAllocationRequest, allocatedBy uuid.UUID) (Allocation, error) {
	if (req.UserID == nil) == (req.GuestName == nil) {
		return Allocation{}, apperr.Validationf("exactly one of user_id or guest_name is required")
	}
	if req.Role == RoleSpeaker {
		if req.TeamID == nil {
			return Allocation{}, apperr.Validationf("team_id is required for a speaker allocation")
		}
		if req.TwoTeamSpeakerRole == nil && req.FourTeamSpeakerRole == nil {
			return Allocation{}, apperr.Validationf("a speaker-position field is required for a speaker allocation")
		}
	}

	dup, err := r.hasDuplicateAllocation(ctx, req.MatchID, req.UserID, req.Role, req.TwoTeamSpeakerRole, req.FourTeamSpeakerRole)
	if err != nil {
		return Allocation{}, err
	}
	if dup {
		return Allocation{}, apperr.Conflictf("user already holds this allocation in the match")
	}

	wasCheckedIn, err := r.wasCheckedIn(ctx, req.MatchID, req.UserID)
	if err != nil {
		return Allocation{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Allocation{}, err
	}
	defer tx.Rollback(ctx)

	var a Allocation
	err = tx.QueryRow(ctx, `INSERT INTO allocations (match_id, user_id, guest_name, role, team_id, two_team_speaker_role, four_team_speaker_role, is_chair, allocated_by, was_checked_in)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+allocationCols,
		req.MatchID, req.UserID, req.GuestName, req.Role, req.TeamID, req.TwoTeamSpeakerRole, req.FourTeamSpeakerRole, req.IsChair, allocatedBy, wasCheckedIn).
		Scan(&a.ID, &a.MatchID, &a.UserID, &a.GuestName, &a.Role, &a.TeamID, &a.TwoTeamSpeakerRole, &a.FourTeamSpeakerRole, &a.IsChair, &a.AllocatedBy, &a.AllocatedAt, &a.WasCheckedIn, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Allocation{}, err
	}

	if a.UserID != nil && (a.Role == RoleVotingAdjudicator || a.Role == RoleNonVotingAdjudicator) {
		_, err = tx.Exec(ctx, `INSERT INTO ballots (match_id, adjudicator_id, is_voting) VALUES ($1,$2,$3)
			ON CONFLICT (match_id, adjudicator_id) DO NOTHING`, a.MatchID, *a.UserID, a.Role == RoleVotingAdjudicator)
		if err != nil {
			return Allocation{}, err
		}
	}

	newRole := a.Role
	_, err = tx.Exec(ctx, `INSERT INTO allocation_history (allocation_id, match_id, user_id, guest_name, action, new_role, new_team_id, changed_by)
		VALUES ($1,$2,$3,$4,'created',$5,$6,$7)`, a.ID, a.MatchID, a.UserID, a.GuestName, newRole, a.TeamID, allocatedBy)
	if err != nil {
		return Allocation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Allocation{}, err
	}
	return a, nil
}

// UpdateAllocation applies a partial update and appends before/after history.
func (r *Repo) UpdateAllocation(ctx context.Context, id uuid.UUID, req UpdateAllocationRequest, changedBy uuid.UUID) (Allocation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Allocation{}, err
	}
	defer tx.Rollback(ctx)

	before, err := scanAllocation(tx.QueryRow(ctx, `SELECT `+allocationCols+` FROM allocations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Allocation{}, err
	}

	row := tx.QueryRow(ctx, `UPDATE allocations SET
		role = COALESCE($2, role),
		team_id = COALESCE($3, team_id),
		two_team_speaker_role = COALESCE($4, two_team_speaker_role),
		four_team_speaker_role = COALESCE($5, four_team_speaker_role),
		is_chair = COALESCE($6, is_chair),
		updated_at = now()
		WHERE id = $1 RETURNING `+allocationCols,
		id, req.Role, req.TeamID, req.TwoTeamSpeakerRole, req.FourTeamSpeakerRole, req.IsChair)
	after, err := scanAllocation(row)
	if err != nil {
		return Allocation{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO allocation_history (allocation_id, match_id, user_id, guest_name, action, previous_role, new_role, previous_team_id, new_team_id, changed_by)
		VALUES ($1,$2,$3,$4,'updated',$5,$6,$7,$8,$9)`,
		after.ID, after.MatchID, after.UserID, after.GuestName, before.Role, after.Role, before.TeamID, after.TeamID, changedBy)
	if err != nil {
		return Allocation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Allocation{}, err
	}
	return after, nil
}

// SwapAllocations atomically exchanges role/team/speaker-position/
// is_chair between two allocation rows and appends mutual history
// entries, per spec §4.4.3.
func (r *Repo) SwapAllocations(ctx context.Context, id1, id2 uuid.UUID, changedBy uuid.UUID) (Allocation, Allocation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Allocation{}, Allocation{}, err
	}
	defer tx.Rollback(ctx)

	a1, err := scanAllocation(tx.QueryRow(ctx, `SELECT `+allocationCols+` FROM allocations WHERE id = $1 FOR UPDATE`, id1))
	if err != nil {
		return Allocation{}, Allocation{}, err
	}
	a2, err := scanAllocation(tx.QueryRow(ctx, `SELECT `+allocationCols+` FROM allocations WHERE id = $1 FOR UPDATE`, id2))
	if err != nil {
		return Allocation{}, Allocation{}, err
	}

	newA1, err := scanAllocation(tx.QueryRow(ctx, `UPDATE allocations SET role=$2, team_id=$3, two_team_speaker_role=$4, four_team_speaker_role=$5, is_chair=$6, updated_at=now()
		WHERE id=$1 RETURNING `+allocationCols, id1, a2.Role, a2.TeamID, a2.TwoTeamSpeakerRole, a2.FourTeamSpeakerRole, a2.IsChair))
	if err != nil {
		return Allocation{}, Allocation{}, err
	}
	newA2, err := scanAllocation(tx.QueryRow(ctx, `UPDATE allocations SET role=$2, team_id=$3, two_team_speaker_role=$4, four_team_speaker_role=$5, is_chair=$6, updated_at=now()
		WHERE id=$1 RETURNING `+allocationCols, id2, a1.Role, a1.TeamID, a1.TwoTeamSpeakerRole, a1.FourTeamSpeakerRole, a1.IsChair))
	if err != nil {
		return Allocation{}, Allocation{}, err
	}

	note1 := "swapped with allocation " + id2.String()
	note2 := "swapped with allocation " + id1.String()
	_, err = tx.Exec(ctx, `INSERT INTO allocation_history (allocation_id, match_id, user_id, guest_name, action, previous_role, new_role, previous_team_id, new_team_id, changed_by, notes)
		VALUES ($1,$2,$3,$4,'swapped',$5,$6,$7,$8,$9,$10)`,
		newA1.ID, newA1.MatchID, newA1.UserID, newA1.GuestName, a1.Role, newA1.Role, a1.TeamID, newA1.TeamID, changedBy, note1)
	if err != nil {
		return Allocation{}, Allocation{}, err
	}
	_, err = tx.Exec(ctx, `INSERT INTO allocation_history (allocation_id, match_id, user_id, guest_name, action, previous_role, new_role, previous_team_id, new_team_id, changed_by, notes)
		VALUES ($1,$2,$3,$4,'swapped',$5,$6,$7,$8,$9,$10)`,
		newA2.ID, newA2.MatchID, newA2.UserID, newA2.GuestName, a2.Role, newA2.Role, a2.TeamID, newA2.TeamID, changedBy, note2)
	if err != nil {
		return Allocation{}, Allocation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Allocation{}, Allocation{}, err
	}
	return newA1, newA2, nil
}

func (r *Repo) DeleteAllocation(ctx context.Context, id uuid.UUID, changedBy uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	a, err := scanAllocation(tx.QueryRow(ctx, `SELECT `+allocationCols+` FROM allocations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO allocation_history (allocation_id, match_id, user_id, guest_name, action, previous_role, previous_team_id, changed_by)
		VALUES ($1,$2,$3,$4,'deleted',$5,$6,$7)`, a.ID, a.MatchID, a.UserID, a.GuestName, a.Role, a.TeamID, changedBy)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM allocations WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repo) ListAllocationHistory(ctx context.Context, matchID uuid.UUID) ([]AllocationHistory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, allocation_id, match_id, user_id, guest_name, action, previous_role, new_role, previous_team_id, new_team_id, changed_by, changed_at, notes
		FROM allocation_history WHERE match_id = $1 ORDER BY changed_at DESC`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AllocationHistory
	for rows.Next() {
		var h AllocationHistory
		if err := rows.Scan(&h.ID, &h.AllocationID, &h.MatchID, &h.UserID, &h.GuestName, &h.Action, &h.PreviousRole, &h.NewRole, &h.PreviousTeamID, &h.NewTeamID, &h.ChangedBy, &h.ChangedAt, &h.Notes); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
