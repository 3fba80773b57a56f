package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by repo lookups that find no row.
var ErrNotFound = errors.New("auth: not found")

// Repo wraps the connection pool with the Auth service's queries.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &u.RegNumber,
		&u.YearJoined, &u.PhoneNumber, &u.EmailVerified, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

const userCols = `id, username, email, password_hash, salt, reg_number, year_joined, phone_number, email_verified, email_verified_at, created_at, updated_at`

func (r *Repo) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// ConflictingUser looks up an existing row for any of the four
// uniqueness keys, used by register to decide overwrite-vs-conflict.
func (r *Repo) ConflictingUser(ctx context.Context, username, email, regNumber, phoneNumber string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users
		WHERE username = $1 OR email = $2 OR reg_number = $3 OR phone_number = $4
		LIMIT 1`, username, email, regNumber, phoneNumber)
	return scanUser(row)
}

func (r *Repo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *Repo) InsertUser(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users
		(username, email, password_hash, salt, reg_number, year_joined, phone_number, email_verified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,false)
		RETURNING `+userCols,
		u.Username, u.Email, u.PasswordHash, u.Salt, u.RegNumber, u.YearJoined, u.PhoneNumber)
	return scanUser(row)
}

func (r *Repo) MarkEmailVerified(ctx context.Context, userID uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET email_verified = true, email_verified_at = now(), updated_at = now()
		WHERE id = $1 RETURNING `+userCols, userID)
	return scanUser(row)
}

func (r *Repo) UpdatePassword(ctx context.Context, userID uuid.UUID, hash, salt string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $1, salt = $2, updated_at = now() WHERE id = $3`,
		hash, salt, userID)
	return err
}

// --- Email verification tokens ---

func (r *Repo) UpsertEmailVerificationToken(ctx context.Context, userID uuid.UUID, otp string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM email_verification_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO email_verification_tokens (user_id, otp, attempts, expires_at, last_sent_at)
		VALUES ($1,$2,0,$3,now())`, userID, otp, expiresAt)
	return err
}

func (r *Repo) GetEmailVerificationToken(ctx context.Context, userID uuid.UUID) (EmailVerificationToken, error) {
	var t EmailVerificationToken
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, otp, attempts, expires_at, last_sent_at
		FROM email_verification_tokens WHERE user_id = $1 AND expires_at > now()`, userID).
		Scan(&t.ID, &t.UserID, &t.OTP, &t.Attempts, &t.ExpiresAt, &t.LastSentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return EmailVerificationToken{}, ErrNotFound
	}
	return t, err
}

func (r *Repo) IncrementEmailVerificationAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE email_verification_tokens SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}

func (r *Repo) DeleteEmailVerificationToken(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM email_verification_tokens WHERE user_id = $1`, userID)
	return err
}

// --- Password reset tokens ---

func (r *Repo) UpsertPasswordResetToken(ctx context.Context, userID uuid.UUID, email, otp string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE email = $1`, email)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO password_reset_tokens (user_id, email, otp, attempts, expires_at, used, last_sent_at)
		VALUES ($1,$2,$3,0,$4,false,now())`, userID, email, otp, expiresAt)
	return err
}

func (r *Repo) GetPasswordResetToken(ctx context.Context, email string) (PasswordResetToken, error) {
	var t PasswordResetToken
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, email, otp, attempts, expires_at, used, last_sent_at
		FROM password_reset_tokens WHERE email = $1 AND used = false AND expires_at > now()`, email).
		Scan(&t.ID, &t.UserID, &t.Email, &t.OTP, &t.Attempts, &t.ExpiresAt, &t.Used, &t.LastSentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PasswordResetToken{}, ErrNotFound
	}
	return t, err
}

func (r *Repo) IncrementPasswordResetAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE password_reset_tokens SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}

func (r *Repo) MarkPasswordResetUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE password_reset_tokens SET used = true WHERE id = $1`, id)
	return err
}

// --- Refresh tokens ---

func (r *Repo) InsertRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1,$2,$3)`,
		userID, tokenHash, expiresAt)
	return err
}

func (r *Repo) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (RefreshToken, error) {
	var t RefreshToken
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, token_hash, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = $1 AND expires_at > now()`, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshToken{}, ErrNotFound
	}
	return t, err
}

func (r *Repo) DeleteRefreshTokenByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	return err
}

func (r *Repo) DeleteAllRefreshTokensForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}

// --- CSRF tokens ---

func (r *Repo) InsertCSRFToken(ctx context.Context, userID *uuid.UUID, token string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO csrf_tokens (token, user_id, expires_at) VALUES ($1,$2,$3)`,
		token, userID, expiresAt)
	return err
}

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

// --- Admin roster ---

func (r *Repo) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM admin_users WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) PromoteUser(ctx context.Context, userID, grantedBy uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO admin_users (user_id, granted_by) VALUES ($1,$2)
		ON CONFLICT (user_id) DO NOTHING`, userID, grantedBy)
	return err
}

func (r *Repo) DemoteUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM admin_users WHERE user_id = $1`, userID)
	return err
}

// SweepExpiredTokens deletes expired rows from every TTL-bearing table.
// Run hourly by the cron job in service.go.
func (r *Repo) SweepExpiredTokens(ctx context.Context) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM email_verification_tokens WHERE expires_at <= now()`)
	batch.Queue(`DELETE FROM password_reset_tokens WHERE expires_at <= now()`)
	batch.Queue(`DELETE FROM csrf_tokens WHERE expires_at <= now()`)
	batch.Queue(`DELETE FROM refresh_tokens WHERE expires_at <= now()`)

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

type AdminListing struct {
	User
	IsAdmin bool
}

func (r *Repo) ListUsers(ctx context.Context) ([]AdminListing, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+`, (au.user_id IS NOT NULL) AS is_admin
		FROM users u LEFT JOIN admin_users au ON au.user_id = u.id
		ORDER BY u.username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminListing
	for rows.Next() {
		var l AdminListing
		if err := rows.Scan(&l.ID, &l.Username, &l.Email, &l.PasswordHash, &l.Salt, &l.RegNumber,
			&l.YearJoined, &l.PhoneNumber, &l.EmailVerified, &l.EmailVerifiedAt, &l.CreatedAt, &l.UpdatedAt, &l.IsAdmin); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
