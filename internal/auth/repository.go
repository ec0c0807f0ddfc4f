package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/database"
)

// Repository handles user and password reset persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserColumns is the users column list read by ScanUser.
const UserColumns = `id, email, username, password_hash, organization, contact_name, phone,
	sub_plan, sub_duration_months, sub_start_date, sub_end_date, sub_is_valid, sub_payment_id, sub_order_id,
	subscription_history, created_at, updated_at`

// ScanUser reads one users row selected with the standard column list.
func ScanUser(row pgx.Row) (*models.User, error) {
	var (
		u       models.User
		plan    *string
		months  *int
		start   *time.Time
		end     *time.Time
		valid   bool
		payID   *string
		orderID *string
		history []byte
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.Organization, &u.ContactName, &u.Phone,
		&plan, &months, &start, &end, &valid, &payID, &orderID,
		&history, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		s := &models.Subscription{Plan: *plan, IsValid: valid}
		if months != nil {
			s.DurationMonths = *months
		}
		if start != nil {
			s.StartDate = *start
		}
		if end != nil {
			s.EndDate = *end
		}
		if payID != nil {
			s.PaymentID = *payID
		}
		if orderID != nil {
			s.OrderID = *orderID
		}
		u.Subscription = s
	}
	u.SubscriptionHistory = []models.Subscription{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &u.SubscriptionHistory); err != nil {
			return nil, fmt.Errorf("decode subscription history: %w", err)
		}
	}
	return &u, nil
}

func (r *Repository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	u, err := ScanUser(r.pool.QueryRow(ctx, `SELECT `+UserColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByEmail returns a user by email, case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `lower(email) = lower($1)`, strings.TrimSpace(email))
}

// GetByLogin returns a user by email or username.
func (r *Repository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.getOne(ctx, `lower(email) = lower($1) OR username = $1`, strings.TrimSpace(login))
}

// CreateUserParams holds the fields of a new account.
type CreateUserParams struct {
	Email        string
	Username     string
	PasswordHash string
	Organization string
	ContactName  string
	Phone        string
}

// Create inserts a new user. A taken email or username is a validation error on that field.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	q := `INSERT INTO users (email, username, password_hash, organization, contact_name, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + UserColumns
	u, err := ScanUser(r.pool.QueryRow(ctx, q, p.Email, p.Username, p.PasswordHash, p.Organization, p.ContactName, p.Phone))
	if err != nil {
		if constraint, ok := database.UniqueViolation(err); ok {
			if strings.Contains(constraint, "username") {
				return nil, apperr.Invalid("username", "username already taken")
			}
			return nil, apperr.Invalid("email", "email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UpdateProfileParams holds mutable profile fields; nil leaves a field unchanged.
type UpdateProfileParams struct {
	Organization *string
	ContactName  *string
	Phone        *string
	Username     *string
}

// UpdateProfile applies the non-nil fields.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, p UpdateProfileParams) (*models.User, error) {
	q := `UPDATE users SET
		organization = COALESCE($2, organization),
		contact_name = COALESCE($3, contact_name),
		phone = COALESCE($4, phone),
		username = COALESCE($5, username),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + UserColumns
	u, err := ScanUser(r.pool.QueryRow(ctx, q, id, p.Organization, p.ContactName, p.Phone, p.Username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return nil, apperr.Invalid("username", "username already taken")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// CreatePasswordReset stores a reset token hash.
func (r *Repository) CreatePasswordReset(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO password_resets (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`
	if _, err := r.pool.Exec(ctx, q, userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

// ConsumePasswordReset marks an unexpired, unused token as used and sets the new
// password hash in one transaction. Returns the user the token belonged to.
func (r *Repository) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `UPDATE password_resets SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING user_id`, tokenHash, now).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, apperr.Invalid("token", "invalid or expired reset token")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("consume reset token: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash); err != nil {
		return uuid.Nil, fmt.Errorf("set password: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}
