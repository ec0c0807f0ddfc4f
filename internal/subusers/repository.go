package subusers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/database"
)

// Repository handles sub_users persistence. Every mutation is scoped by owner_id.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sub-users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, owner_id, email, password_hash, role, permissions, created_at, updated_at`

func scan(row pgx.Row) (*models.SubUser, error) {
	var s models.SubUser
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Email, &s.Password, &s.Role, &s.Permissions, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if s.Permissions == nil {
		s.Permissions = []string{}
	}
	return &s, nil
}

func one(row pgx.Row, op string) (*models.SubUser, error) {
	s, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("sub-user")
	}
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return nil, apperr.Invalid("email", "email already in use")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// Create inserts a sub-user.
func (r *Repository) Create(ctx context.Context, s *models.SubUser) (*models.SubUser, error) {
	q := `INSERT INTO sub_users (owner_id, email, password_hash, role, permissions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + columns
	return one(r.pool.QueryRow(ctx, q, s.OwnerID, s.Email, s.Password, s.Role, s.Permissions), "create sub-user")
}

// GetByEmail returns a sub-user by login email, for sign-in.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.SubUser, error) {
	return one(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM sub_users WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email)), "get sub-user")
}

// GetOwned returns a sub-user of ownerID.
func (r *Repository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.SubUser, error) {
	return one(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM sub_users WHERE id = $1 AND owner_id = $2`, id, ownerID),
		"get sub-user")
}

// ListByOwner returns the owner's sub-users, oldest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SubUser, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM sub_users WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sub-users: %w", err)
	}
	defer rows.Close()
	list := []models.SubUser{}
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Update writes email, password hash, role and permissions of an owned sub-user.
func (r *Repository) Update(ctx context.Context, s *models.SubUser) (*models.SubUser, error) {
	q := `UPDATE sub_users SET email = $3, password_hash = $4, role = $5, permissions = $6, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + columns
	return one(r.pool.QueryRow(ctx, q, s.ID, s.OwnerID, s.Email, s.Password, s.Role, s.Permissions), "update sub-user")
}

// Delete removes an owned sub-user.
func (r *Repository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sub_users WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete sub-user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("sub-user")
	}
	return nil
}
