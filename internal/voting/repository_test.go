package voting

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/events"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/database"
)

// Runs against a real PostgreSQL when TEST_DATABASE_URL is set.
func TestRepositoryAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, database.PoolOptions{MaxConns: 4}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, database.Migrate(ctx, pool, zap.NewNop()))

	ownerID := uuid.New()
	_, err = pool.Exec(ctx, `INSERT INTO users (id, email, username, password_hash) VALUES ($1, $2, $3, 'x')`,
		ownerID, ownerID.String()+"@example.com", ownerID.String())
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, ownerID) })

	eventRepo := events.NewRepository(pool)
	e := &models.Event{
		ID:           "it-" + uuid.NewString(),
		OwnerID:      ownerID,
		Date:         "2026-11-03",
		StartTime:    "09:00",
		StopTime:     "17:00",
		Name:         "Integration",
		Description:  "d",
		SelectedData: models.Rows{models.MustRow("zeta", 1, "Name", "A"), models.MustRow("Name", "B")},
		FileData:     models.Rows{models.MustRow("Name", "Ann", "ID", 100)},
		Expiry:       4102444800000,
		Link:         "https://vote.example.com/e/x",
	}
	require.NoError(t, eventRepo.Create(ctx, e))

	got, err := eventRepo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "Name"}, got.SelectedData[0].Keys(), "json column keeps key order")

	repo := NewRepository(pool)
	first := &models.Vote{EventID: e.ID, VoterID: "100", Candidate: "A"}
	require.NoError(t, repo.Insert(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	err = repo.Insert(ctx, &models.Vote{EventID: e.ID, VoterID: "100", Candidate: "B"})
	assert.ErrorIs(t, err, ErrDuplicateVote)

	require.NoError(t, repo.Insert(ctx, &models.Vote{EventID: e.ID, VoterID: "101", Candidate: "B"}))
	voted, err := repo.HasVoted(ctx, e.ID, "100")
	require.NoError(t, err)
	assert.True(t, voted)

	list, err := repo.ListByEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Candidate)

	removed, err := eventRepo.DeleteWithVotes(ctx, e.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	list, err = repo.ListByEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
