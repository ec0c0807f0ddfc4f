package voting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
)

// ErrDuplicateVote is returned when the voter already has a vote in the event.
var ErrDuplicateVote = apperr.New(apperr.DuplicateVote, "this voter has already voted in this event")

// Repository handles vote persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a vote repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records a vote. One per voter per event: the unique (event_id, voter_id)
// constraint decides, so a conflicting insert writes nothing and returns ErrDuplicateVote.
func (r *Repository) Insert(ctx context.Context, v *models.Vote) error {
	const q = `INSERT INTO votes (id, event_id, voter_id, candidate)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (event_id, voter_id) DO NOTHING
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, v.EventID, v.VoterID, v.Candidate).Scan(&v.ID, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateVote
	}
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

// HasVoted reports whether voterID has a vote in the event.
func (r *Repository) HasVoted(ctx context.Context, eventID, voterID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM votes WHERE event_id = $1 AND voter_id = $2)`, eventID, voterID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

// ListByEvent returns every vote of the event, oldest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]models.Vote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, voter_id, candidate, created_at FROM votes WHERE event_id = $1 ORDER BY created_at, id`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()
	list := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.EventID, &v.VoterID, &v.Candidate, &v.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}
