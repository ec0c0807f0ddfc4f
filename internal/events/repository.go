package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/database"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, owner_id, date, start_time, stop_time, name, description,
	selected_data, file_data, candidate_images, expiry, link, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		e                        models.Event
		selected, roster, images []byte
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.Date, &e.StartTime, &e.StopTime, &e.Name, &e.Description,
		&selected, &roster, &images, &e.Expiry, &e.Link, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(selected, &e.SelectedData); err != nil {
		return nil, fmt.Errorf("decode selected_data: %w", err)
	}
	e.FileData = models.Rows{}
	if len(roster) > 0 {
		if err := json.Unmarshal(roster, &e.FileData); err != nil {
			return nil, fmt.Errorf("decode file_data: %w", err)
		}
	}
	e.CandidateImages = []models.CandidateImage{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &e.CandidateImages); err != nil {
			return nil, fmt.Errorf("decode candidate_images: %w", err)
		}
	}
	return &e, nil
}

// encodeJSONFields renders the row and image fields as JSON text. Rows keep their key order.
func encodeJSONFields(e *models.Event) (selected, roster, images string, err error) {
	fileData := e.FileData
	if fileData == nil {
		fileData = models.Rows{}
	}
	imgs := e.CandidateImages
	if imgs == nil {
		imgs = []models.CandidateImage{}
	}
	b1, err := json.Marshal(e.SelectedData)
	if err != nil {
		return "", "", "", fmt.Errorf("encode selected_data: %w", err)
	}
	b2, err := json.Marshal(fileData)
	if err != nil {
		return "", "", "", fmt.Errorf("encode file_data: %w", err)
	}
	b3, err := json.Marshal(imgs)
	if err != nil {
		return "", "", "", fmt.Errorf("encode candidate_images: %w", err)
	}
	return string(b1), string(b2), string(b3), nil
}

// Create inserts a new event. A taken id is a validation error on id.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	selected, roster, images, err := encodeJSONFields(e)
	if err != nil {
		return err
	}
	const q = `INSERT INTO events (id, owner_id, date, start_time, stop_time, name, description,
		selected_data, file_data, candidate_images, expiry, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::json, $9::json, $10::jsonb, $11, $12)
		RETURNING created_at, updated_at`
	err = r.pool.QueryRow(ctx, q, e.ID, e.OwnerID, e.Date, e.StartTime, e.StopTime, e.Name, e.Description,
		selected, roster, images, e.Expiry, e.Link).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return apperr.Invalid("id", "an event with this id already exists")
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Get returns an event by id regardless of owner, for the public voting paths.
func (r *Repository) Get(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("event")
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// GetOwned returns the event only if ownerID owns it. Absent and not-owned are the same miss.
func (r *Repository) GetOwned(ctx context.Context, id string, ownerID uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("event")
	}
	if err != nil {
		return nil, fmt.Errorf("get owned event: %w", err)
	}
	return e, nil
}

// ListByOwner returns the owner's events, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update replaces every mutable field of an owned event.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	selected, roster, images, err := encodeJSONFields(e)
	if err != nil {
		return err
	}
	const q = `UPDATE events SET date = $3, start_time = $4, stop_time = $5, name = $6, description = $7,
		selected_data = $8::json, file_data = $9::json, candidate_images = $10::jsonb,
		expiry = $11, link = $12, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING updated_at`
	err = r.pool.QueryRow(ctx, q, e.ID, e.OwnerID, e.Date, e.StartTime, e.StopTime, e.Name, e.Description,
		selected, roster, images, e.Expiry, e.Link).Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("event")
	}
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// DeleteWithVotes deletes an owned event and every vote cast in it in one transaction.
func (r *Repository) DeleteWithVotes(ctx context.Context, id string, ownerID uuid.UUID) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, apperr.NotFound("event")
	}
	tag, err = tx.Exec(ctx, `DELETE FROM votes WHERE event_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete votes: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return tag.RowsAffected(), nil
}
