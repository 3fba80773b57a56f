package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("attendance: not found")

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

const eventCols = `id, title, description, event_type, event_date, location, created_by, is_locked, created_at, updated_at`

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.EventType, &e.EventDate, &e.Location,
		&e.CreatedBy, &e.IsLocked, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	return e, err
}

func (r *Repo) ListEvents(ctx context.Context) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventCols+` FROM events ORDER BY event_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventCols+` FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

func (r *Repo) CreateEvent(ctx context.Context, req CreateEventRequest, createdBy uuid.UUID) (Event, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO events (title, description, event_type, event_date, location, created_by)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+eventCols,
		req.Title, req.Description, req.EventType, req.EventDate, req.Location, createdBy)
	return scanEvent(row)
}

func (r *Repo) UpdateEvent(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (Event, error) {
	row := r.pool.QueryRow(ctx, `UPDATE events SET
		title = COALESCE($2, title),
		description = COALESCE($3, description),
		event_type = COALESCE($4, event_type),
		event_date = COALESCE($5, event_date),
		location = COALESCE($6, location),
		updated_at = now()
		WHERE id = $1 RETURNING `+eventCols,
		id, req.Title, req.Description, req.EventType, req.EventDate, req.Location)
	return scanEvent(row)
}

func (r *Repo) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

func (r *Repo) LockEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	row := r.pool.QueryRow(ctx, `UPDATE events SET is_locked = true, updated_at = now() WHERE id = $1 RETURNING `+eventCols, id)
	return scanEvent(row)
}

const recordCols = `id, event_id, user_id, is_available, is_checked_in, checked_in_by, checked_in_at, availability_set_at, created_at, updated_at`

func scanRecord(row pgx.Row) (AttendanceRecord, error) {
	var a AttendanceRecord
	err := row.Scan(&a.ID, &a.EventID, &a.UserID, &a.IsAvailable, &a.IsCheckedIn, &a.CheckedInBy,
		&a.CheckedInAt, &a.AvailabilitySetAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AttendanceRecord{}, ErrNotFound
	}
	return a, err
}

func (r *Repo) GetRecord(ctx context.Context, eventID, userID uuid.UUID) (AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordCols+` FROM attendance_records WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	return scanRecord(row)
}

func (r *Repo) ListRecordsForEvent(ctx context.Context, eventID uuid.UUID) ([]AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordCols+` FROM attendance_records WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AttendanceRecord
	for rows.Next() {
		a, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) ListAllRecords(ctx context.Context) ([]AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordCols+` FROM attendance_records`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AttendanceRecord
	for rows.Next() {
		a, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetAvailability upserts the caller's own row.
func (r *Repo) SetAvailability(ctx context.Context, eventID, userID uuid.UUID, isAvailable bool) (AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO attendance_records (event_id, user_id, is_available, availability_set_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (event_id, user_id) DO UPDATE SET is_available = $3, availability_set_at = now(), updated_at = now()
		RETURNING `+recordCols, eventID, userID, isAvailable)
	return scanRecord(row)
}

// CheckIn upserts the record with is_available=true and the given
// checked-in state, per spec §4.2.
func (r *Repo) CheckIn(ctx context.Context, eventID, userID uuid.UUID, isCheckedIn bool, adminID uuid.UUID) (AttendanceRecord, error) {
	var checkedInBy *uuid.UUID
	var checkedInAt *time.Time
	if isCheckedIn {
		checkedInBy = &adminID
		now := time.Now().UTC()
		checkedInAt = &now
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO attendance_records (event_id, user_id, is_available, is_checked_in, checked_in_by, checked_in_at)
		VALUES ($1,$2,true,$3,$4,$5)
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			is_available = true, is_checked_in = $3, checked_in_by = $4, checked_in_at = $5, updated_at = now()
		RETURNING `+recordCols, eventID, userID, isCheckedIn, checkedInBy, checkedInAt)
	return scanRecord(row)
}

// RevokeAvailability nulls check-in fields and sets is_available=false;
// idempotent.
func (r *Repo) RevokeAvailability(ctx context.Context, eventID, userID uuid.UUID) (AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO attendance_records (event_id, user_id, is_available, is_checked_in, checked_in_by, checked_in_at)
		VALUES ($1,$2,false,false,NULL,NULL)
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			is_available = false, is_checked_in = false, checked_in_by = NULL, checked_in_at = NULL, updated_at = now()
		RETURNING `+recordCols, eventID, userID)
	return scanRecord(row)
}

// UserRow is a (id, username) pair used by the matrix builder.
type UserRow struct {
	ID       uuid.UUID
	Username string
}

func (r *Repo) ListUsers(ctx context.Context) ([]UserRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, username FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
