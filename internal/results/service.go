package results

import (
	"context"

	"github.com/eventvote/backend/internal/models"
)

// VoteLister lists the votes of an event.
type VoteLister interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Vote, error)
}

// Entry is the result line of one candidate.
type Entry struct {
	Name  string `json:"name"`
	Votes int    `json:"votes"`
	Image string `json:"image"`
}

// Tally is the complete result of an event, one entry per candidate row in ballot order.
// Unlisted counts votes whose candidate is no longer on the ballot after an update.
type Tally struct {
	EventID    string  `json:"eventId"`
	Results    []Entry `json:"results"`
	TotalVotes int     `json:"totalVotes"`
	Unlisted   int     `json:"unlistedVotes"`
}

// Service aggregates votes into results. Events arrive already scoped to
// their owner by events.RequireOwnership.
type Service struct {
	votes VoteLister
}

// NewService creates a results service.
func NewService(votes VoteLister) *Service {
	return &Service{votes: votes}
}

// TallyEvent counts the votes of an already authorized event.
func (s *Service) TallyEvent(ctx context.Context, e *models.Event) (*Tally, error) {
	votes, err := s.votes.ListByEvent(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return Count(e, votes), nil
}

// VotesOf lists the votes of an already authorized event, oldest first.
func (s *Service) VotesOf(ctx context.Context, e *models.Event) ([]models.Vote, error) {
	list, err := s.votes.ListByEvent(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Vote{}
	}
	return list, nil
}

// Count builds the tally in one pass over votes. When two rows share a display
// name the first one collects the votes, so entry counts always sum to the
// listed votes.
func Count(e *models.Event, votes []models.Vote) *Tally {
	counts := make(map[string]int, len(e.SelectedData))
	for _, v := range votes {
		counts[v.Candidate]++
	}
	t := &Tally{EventID: e.ID, Results: make([]Entry, len(e.SelectedData)), TotalVotes: len(votes)}
	listed := 0
	for i, row := range e.SelectedData {
		name := models.CandidateName(row, i)
		n := counts[name]
		delete(counts, name)
		t.Results[i] = Entry{Name: name, Votes: n, Image: e.ImageFor(i)}
		listed += n
	}
	t.Unlisted = t.TotalVotes - listed
	return t
}
