package voting

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
)

type fakeEvents map[string]*models.Event

func (f fakeEvents) Get(_ context.Context, id string) (*models.Event, error) {
	e, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("event")
	}
	return e, nil
}

// fakeVotes enforces one vote per (event, voter) the way the unique index does.
type fakeVotes struct {
	mu    sync.Mutex
	votes map[string]map[string]models.Vote
}

func newFakeVotes() *fakeVotes {
	return &fakeVotes{votes: map[string]map[string]models.Vote{}}
}

func (f *fakeVotes) Insert(_ context.Context, v *models.Vote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	byVoter := f.votes[v.EventID]
	if byVoter == nil {
		byVoter = map[string]models.Vote{}
		f.votes[v.EventID] = byVoter
	}
	if _, ok := byVoter[v.VoterID]; ok {
		return ErrDuplicateVote
	}
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	byVoter[v.VoterID] = *v
	return nil
}

func (f *fakeVotes) HasVoted(_ context.Context, eventID, voterID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.votes[eventID][voterID]
	return ok, nil
}

func (f *fakeVotes) count(eventID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.votes[eventID])
}

type sent struct {
	eventID string
	kind    string
	payload interface{}
}

type fakeFeed struct {
	mu   sync.Mutex
	msgs []sent
}

func (f *fakeFeed) Broadcast(eventID, kind string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{eventID, kind, payload})
}

var now = time.Date(2026, 11, 3, 12, 0, 0, 0, time.UTC)

func event(id string, roster models.Rows) *models.Event {
	return &models.Event{
		ID:           id,
		OwnerID:      uuid.New(),
		Name:         "Election",
		SelectedData: models.Rows{models.MustRow("Name", "A"), models.MustRow("Name", "B")},
		FileData:     roster,
		Expiry:       now.Add(time.Hour).UnixMilli(),
	}
}

func roster() models.Rows {
	return models.Rows{
		models.MustRow("Name", "Ann", "ID", "100"),
		models.MustRow("Name", "Bob", "ID", 200),
		models.MustRow("Name", "Cy", "ID", "300", "Class", "7B"),
	}
}

func newTestService(events fakeEvents) (*Service, *fakeVotes, *fakeFeed) {
	votes := newFakeVotes()
	feed := &fakeFeed{}
	svc := NewService(events, votes, feed, nil)
	svc.now = func() time.Time { return now }
	return svc, votes, feed
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestSecondVoteBySameVoterIsRejected(t *testing.T) {
	svc, votes, feed := newTestService(fakeEvents{"E1": event("E1", nil)})
	ctx := context.Background()

	v, err := svc.SubmitVote(ctx, "E1", raw(`"v1"`), "A")
	require.NoError(t, err)
	assert.Equal(t, "v1", v.VoterID)
	assert.Equal(t, "A", v.Candidate)

	_, err = svc.SubmitVote(ctx, "E1", raw(`"v1"`), "B")
	assert.True(t, apperr.Is(err, apperr.DuplicateVote))
	assert.Equal(t, 1, votes.count("E1"))

	require.Len(t, feed.msgs, 1)
	assert.Equal(t, "E1", feed.msgs[0].eventID)
	assert.Equal(t, EventVoteCast, feed.msgs[0].kind)
}

func TestAtMostOneVotePerPairUnderRepeatedSubmissions(t *testing.T) {
	svc, votes, _ := newTestService(fakeEvents{"E1": event("E1", nil)})
	ctx := context.Background()

	accepted := map[string]int{}
	for round := 0; round < 3; round++ {
		for i := 0; i < 5; i++ {
			voter := fmt.Sprintf("v%d", i)
			candidate := []string{"A", "B"}[(round+i)%2]
			if _, err := svc.SubmitVote(ctx, "E1", raw(`"`+voter+`"`), candidate); err == nil {
				accepted[voter]++
			} else {
				require.True(t, apperr.Is(err, apperr.DuplicateVote), "%v", err)
			}
		}
	}
	for voter, n := range accepted {
		assert.Equal(t, 1, n, voter)
	}
	assert.Equal(t, 5, votes.count("E1"))
}

func TestConcurrentSubmissionsKeepOneVote(t *testing.T) {
	svc, votes, _ := newTestService(fakeEvents{"E1": event("E1", nil)})

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SubmitVote(context.Background(), "E1", raw(`"same"`), "A"); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, votes.count("E1"))
}

func TestSubmitVoteValidation(t *testing.T) {
	closed := event("closed", nil)
	closed.Expiry = now.UnixMilli()
	events := fakeEvents{
		"open":     event("open", nil),
		"rostered": event("rostered", roster()),
		"closed":   closed,
	}

	tests := []struct {
		name      string
		eventID   string
		voter     string
		candidate string
		kind      apperr.Kind
	}{
		{"missing both", "open", `""`, "", apperr.MissingFields},
		{"null voter", "open", `null`, "A", apperr.MissingFields},
		{"unknown event", "nope", `"v1"`, "A", apperr.NotFoundOrUnauthorized},
		{"not on roster", "rostered", `"999"`, "A", apperr.Forbidden},
		{"not on ballot", "open", `"v1"`, "Z", apperr.Validation},
		{"at expiry", "closed", `"v1"`, "A", apperr.VotingClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, votes, _ := newTestService(events)
			_, err := svc.SubmitVote(context.Background(), tt.eventID, raw(tt.voter), tt.candidate)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "%v", err)
			assert.Equal(t, 0, votes.count(tt.eventID))
		})
	}
}

func TestSubmitVoteMissingFieldsListed(t *testing.T) {
	svc, _, _ := newTestService(fakeEvents{})
	_, err := svc.SubmitVote(context.Background(), "E1", nil, " ")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"voterId", "candidate"}, ae.Details["missing"])
}

func TestSubmitVoteRosterMatchAcceptsNumericID(t *testing.T) {
	svc, _, _ := newTestService(fakeEvents{"E1": event("E1", roster())})
	v, err := svc.SubmitVote(context.Background(), "E1", raw(`100`), "B")
	require.NoError(t, err)
	assert.Equal(t, "100", v.VoterID)
}

func TestNumericFormsOfRosterIDShareOneVote(t *testing.T) {
	svc, votes, _ := newTestService(fakeEvents{"E1": event("E1", roster())})
	ctx := context.Background()

	v, err := svc.SubmitVote(ctx, "E1", raw(`200.0`), "A")
	require.NoError(t, err)
	assert.Equal(t, "200", v.VoterID)

	_, err = svc.SubmitVote(ctx, "E1", raw(`2e2`), "B")
	assert.True(t, apperr.Is(err, apperr.DuplicateVote))
	assert.Equal(t, 1, votes.count("E1"))

	res, err := svc.VerifyID(ctx, "E1", raw(`2.00e2`))
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.True(t, res.HasVoted)
}

func TestVerifyIDNoMatchIsNotAnError(t *testing.T) {
	svc, _, _ := newTestService(fakeEvents{"E1": event("E1", roster())})

	res, err := svc.VerifyID(context.Background(), "E1", raw(`"999"`))
	require.NoError(t, err)
	assert.False(t, res.Verified)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"verified":false}`, string(b))
}

func TestVerifyIDIsIdempotentUntilVote(t *testing.T) {
	svc, _, _ := newTestService(fakeEvents{"E1": event("E1", roster())})
	ctx := context.Background()

	first, err := svc.VerifyID(ctx, "E1", raw(`"200"`))
	require.NoError(t, err)
	second, err := svc.VerifyID(ctx, "E1", raw(`"200"`))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, first.Verified)
	assert.False(t, first.HasVoted)
	assert.True(t, first.VotingOpen)
	assert.Equal(t, []string{"Name", "ID"}, first.Voter.Keys())

	_, err = svc.SubmitVote(ctx, "E1", raw(`"200"`), "A")
	require.NoError(t, err)

	after, err := svc.VerifyID(ctx, "E1", raw(`200`))
	require.NoError(t, err)
	assert.True(t, after.Verified)
	assert.True(t, after.HasVoted)
}

func TestVerifyIDErrors(t *testing.T) {
	svc, _, _ := newTestService(fakeEvents{"bare": event("bare", models.Rows{})})
	ctx := context.Background()

	_, err := svc.VerifyID(ctx, "bare", raw(`"100"`))
	assert.True(t, apperr.Is(err, apperr.NoRosterData))

	_, err = svc.VerifyID(ctx, "missing", raw(`"100"`))
	assert.True(t, apperr.Is(err, apperr.NotFoundOrUnauthorized))

	_, err = svc.VerifyID(ctx, "bare", nil)
	assert.True(t, apperr.Is(err, apperr.MissingFields))
}

func TestPublicViewHidesRoster(t *testing.T) {
	e := event("E1", roster())
	e.CandidateImages = []models.CandidateImage{{CandidateIndex: 1, Image: "/uploads/b.png"}}
	e.SelectedData = append(e.SelectedData, models.MustRow("Party", "Independent"))
	svc, _, _ := newTestService(fakeEvents{"E1": e})

	view, err := svc.PublicView(context.Background(), "E1")
	require.NoError(t, err)
	require.Len(t, view.Candidates, 3)
	assert.Equal(t, "A", view.Candidates[0].Name)
	assert.Equal(t, "", view.Candidates[0].Image)
	assert.Equal(t, "/uploads/b.png", view.Candidates[1].Image)
	assert.Equal(t, "Candidate 3", view.Candidates[2].Name)
	assert.True(t, view.HasRoster)
	assert.True(t, view.VotingOpen)

	b, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "Ann")
}
