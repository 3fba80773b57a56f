package merit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("merit: not found")

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

// UserRow is the subset of the users table the merit service reads
// directly (it does not own this table; Auth does).
type UserRow struct {
	ID            uuid.UUID
	Username      string
	Email         string
	RegNumber     string
	PhoneNumber   string
	YearJoined    int
	EmailVerified bool
	CreatedAt     time.Time
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (UserRow, error) {
	var u UserRow
	err := r.pool.QueryRow(ctx, `SELECT id, username, email, reg_number, phone_number, year_joined, email_verified, created_at
		FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.Email, &u.RegNumber, &u.PhoneNumber, &u.YearJoined, &u.EmailVerified, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserRow{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM admin_users WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// GetOrCreateMerit returns the user's merit row, zero-initializing it
// on first touch (spec §4.3).
func (r *Repo) GetOrCreateMerit(ctx context.Context, userID uuid.UUID) (UserMerit, error) {
	var m UserMerit
	err := r.pool.QueryRow(ctx, `INSERT INTO user_merits (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = user_merits.user_id
		RETURNING user_id, merit_points, created_at, updated_at`, userID).
		Scan(&m.UserID, &m.MeritPoints, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// AdjustMerit performs the read-current + write + write-history
// sequence atomically, per spec §5's transaction requirement.
func (r *Repo) AdjustMerit(ctx context.Context, userID uuid.UUID, adminID uuid.UUID, changeAmount int, reason string) (MeritHistory, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return MeritHistory{}, err
	}
	defer tx.Rollback(ctx)

	var previousTotal int
	err = tx.QueryRow(ctx, `INSERT INTO user_merits (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = user_merits.user_id
		RETURNING merit_points`, userID).Scan(&previousTotal)
	if err != nil {
		return MeritHistory{}, err
	}

	newTotal := previousTotal + changeAmount
	if _, err := tx.Exec(ctx, `UPDATE user_merits SET merit_points = $1, updated_at = now() WHERE user_id = $2`, newTotal, userID); err != nil {
		return MeritHistory{}, err
	}

	var h MeritHistory
	err = tx.QueryRow(ctx, `INSERT INTO merit_history (user_id, admin_id, change_amount, previous_total, new_total, reason)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, user_id, admin_id, change_amount, previous_total, new_total, reason, created_at`,
		userID, adminID, changeAmount, previousTotal, newTotal, reason).
		Scan(&h.ID, &h.UserID, &h.AdminID, &h.ChangeAmount, &h.PreviousTotal, &h.NewTotal, &h.Reason, &h.CreatedAt)
	if err != nil {
		return MeritHistory{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return MeritHistory{}, err
	}
	return h, nil
}

func (r *Repo) ListMeritHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]MeritHistory, error) {
	rows, err := r.pool.Query(ctx, `SELECT h.id, h.user_id, h.admin_id, u.username, h.change_amount, h.previous_total, h.new_total, h.reason, h.created_at
		FROM merit_history h LEFT JOIN users u ON u.id = h.admin_id
		WHERE h.user_id = $1 ORDER BY h.created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MeritHistory
	for rows.Next() {
		var h MeritHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.AdminID, &h.AdminUsername, &h.ChangeAmount, &h.PreviousTotal, &h.NewTotal, &h.Reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListVerifiedMerits returns verified users' merit rows, ordered
// merit_points desc, username asc, per spec §4.3 and the original's
// list_all_user_merits precision point.
func (r *Repo) ListVerifiedMerits(ctx context.Context) ([]struct {
	UserID      uuid.UUID
	Username    string
	MeritPoints int
}, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.username, COALESCE(m.merit_points, 0)
		FROM users u LEFT JOIN user_merits m ON m.user_id = u.id
		WHERE u.email_verified = true
		ORDER BY COALESCE(m.merit_points, 0) DESC, u.username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []struct {
		UserID      uuid.UUID
		Username    string
		MeritPoints int
	}
	for rows.Next() {
		var row struct {
			UserID      uuid.UUID
			Username    string
			MeritPoints int
		}
		if err := rows.Scan(&row.UserID, &row.Username, &row.MeritPoints); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// --- Awards ---

const awardCols = `id, user_id, title, description, tier, awarded_by, awarded_at, created_at, updated_at`

func scanAward(row pgx.Row) (Award, error) {
	var a Award
	err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.Tier, &a.AwardedBy, &a.AwardedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Award{}, ErrNotFound
	}
	return a, err
}

func (r *Repo) GetAward(ctx context.Context, id uuid.UUID) (Award, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+awardCols+` FROM awards WHERE id = $1`, id)
	return scanAward(row)
}

func (r *Repo) ListAwardsForUser(ctx context.Context, userID uuid.UUID) ([]Award, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+awardCols+` FROM awards WHERE user_id = $1
		ORDER BY CASE tier WHEN 'gold' THEN 3 WHEN 'silver' THEN 2 ELSE 1 END DESC, awarded_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Award
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) CreateAward(ctx context.Context, req CreateAwardRequest, awardedBy uuid.UUID) (Award, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Award{}, err
	}
	defer tx.Rollback(ctx)

	var a Award
	err = tx.QueryRow(ctx, `INSERT INTO awards (user_id, title, description, tier, awarded_by)
		VALUES ($1,$2,$3,$4,$5) RETURNING `+awardCols,
		req.UserID, req.Title, req.Description, req.Tier, awardedBy).
		Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &a.Tier, &a.AwardedBy, &a.AwardedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Award{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO award_history (award_id, user_id, admin_id, previous_tier, new_tier, reason)
		VALUES ($1,$2,$3,NULL,$4,$5)`, a.ID, a.UserID, awardedBy, a.Tier, "award created")
	if err != nil {
		return Award{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Award{}, err
	}
	return a, nil
}

// UpgradeAward applies the new tier (and optional title) under a row lock
// and appends history. It does not check the tier order; the handler runs
// validateUpgrade for the ascending-only rule before calling it.
func (r *Repo) UpgradeAward(ctx context.Context, id uuid.UUID, newTier AwardTier, newTitle *string, reason string, adminID uuid.UUID) (Award, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Award{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+awardCols+` FROM awards WHERE id = $1 FOR UPDATE`, id)
	current, err := scanAward(row)
	if err != nil {
		return Award{}, err
	}

	updated := current
	err = tx.QueryRow(ctx, `UPDATE awards SET tier = $2, title = COALESCE($3, title), updated_at = now()
		WHERE id = $1 RETURNING `+awardCols, id, newTier, newTitle).
		Scan(&updated.ID, &updated.UserID, &updated.Title, &updated.Description, &updated.Tier, &updated.AwardedBy, &updated.AwardedAt, &updated.CreatedAt, &updated.UpdatedAt)
	if err != nil {
		return Award{}, err
	}

	prevTier := current.Tier
	_, err = tx.Exec(ctx, `INSERT INTO award_history (award_id, user_id, admin_id, previous_tier, new_tier, reason)
		VALUES ($1,$2,$3,$4,$5,$6)`, id, current.UserID, adminID, prevTier, newTier, reason)
	if err != nil {
		return Award{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Award{}, err
	}
	return updated, nil
}

func (r *Repo) CurrentAwardTier(ctx context.Context, id uuid.UUID) (AwardTier, error) {
	var tier AwardTier
	err := r.pool.QueryRow(ctx, `SELECT tier FROM awards WHERE id = $1`, id).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return tier, err
}

func (r *Repo) EditAward(ctx context.Context, id uuid.UUID, req EditAwardRequest) (Award, error) {
	row := r.pool.QueryRow(ctx, `UPDATE awards SET
		title = COALESCE($2, title),
		description = COALESCE($3, description),
		tier = COALESCE($4, tier),
		updated_at = now()
		WHERE id = $1 RETURNING `+awardCols,
		id, req.Title, req.Description, req.Tier)
	return scanAward(row)
}

func (r *Repo) ListAwardHistory(ctx context.Context, userID uuid.UUID) ([]AwardHistory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, award_id, user_id, admin_id, previous_tier, new_tier, reason, created_at
		FROM award_history WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AwardHistory
	for rows.Next() {
		var a AwardHistory
		if err := rows.Scan(&a.ID, &a.AwardID, &a.UserID, &a.AdminID, &a.PreviousTier, &a.NewTier, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
