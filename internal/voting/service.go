package voting

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
)

// EventVoteCast is the realtime message sent to an event room after each vote.
const EventVoteCast = "vote_cast"

// EventReader loads an event by id without owner scoping.
type EventReader interface {
	Get(ctx context.Context, id string) (*models.Event, error)
}

// VoteStore persists votes.
type VoteStore interface {
	Insert(ctx context.Context, v *models.Vote) error
	HasVoted(ctx context.Context, eventID, voterID string) (bool, error)
}

// Broadcaster fans a message out to the watchers of an event.
type Broadcaster interface {
	Broadcast(eventID, kind string, payload interface{})
}

// VerifyResult is the outcome of a roster check. An unverified result carries nothing else.
type VerifyResult struct {
	Verified   bool       `json:"verified"`
	Voter      models.Row `json:"voter"`
	HasVoted   bool       `json:"hasVoted"`
	VotingOpen bool       `json:"votingOpen"`
}

// MarshalJSON renders an unverified result as {"verified":false}.
func (r VerifyResult) MarshalJSON() ([]byte, error) {
	if !r.Verified {
		return []byte(`{"verified":false}`), nil
	}
	type full VerifyResult
	return json.Marshal(full(r))
}

// Service verifies voters and records votes.
type Service struct {
	events EventReader
	votes  VoteStore
	feed   Broadcaster
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a voting service. feed may be nil.
func NewService(events EventReader, votes VoteStore, feed Broadcaster, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{events: events, votes: votes, feed: feed, logger: logger, now: time.Now}
}

// VerifyID checks id against the event roster. No match is a valid answer, not an error.
func (s *Service) VerifyID(ctx context.Context, eventID string, id json.RawMessage) (*VerifyResult, error) {
	if idText(id) == "" {
		return nil, apperr.Missing(apperr.MissingFields, []string{"id"})
	}
	e, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(e.FileData) == 0 {
		return nil, apperr.New(apperr.NoRosterData, "no roster data for this event")
	}
	row, ok := MatchRoster(e.FileData, id)
	if !ok {
		return &VerifyResult{}, nil
	}
	voted, err := s.votes.HasVoted(ctx, e.ID, rosterID(row))
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Verified: true, Voter: row, HasVoted: voted, VotingOpen: e.VotingOpen(s.now())}, nil
}

// SubmitVote records one vote for voterID. When the event has a roster the voter
// must be on it and the vote is stored under the roster's form of the id. A second vote by the same voter fails with DuplicateVote.
func (s *Service) SubmitVote(ctx context.Context, eventID string, voterID json.RawMessage, candidate string) (*models.Vote, error) {
	voter := idText(voterID)
	candidate = strings.TrimSpace(candidate)
	var missing []string
	if voter == "" {
		missing = append(missing, "voterId")
	}
	if candidate == "" {
		missing = append(missing, "candidate")
	}
	if len(missing) > 0 {
		return nil, apperr.Missing(apperr.MissingFields, missing)
	}

	e, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(e.FileData) > 0 {
		row, ok := MatchRoster(e.FileData, voterID)
		if !ok {
			return nil, apperr.New(apperr.Forbidden, "voter id not found in roster")
		}
		voter = rosterID(row)
	}
	if !onBallot(e, candidate) {
		return nil, apperr.Invalid("candidate", "candidate is not on this event's ballot")
	}
	now := s.now()
	if !e.VotingOpen(now) {
		return nil, apperr.New(apperr.VotingClosed, "voting for this event has closed")
	}

	v := &models.Vote{EventID: e.ID, VoterID: voter, Candidate: candidate}
	if err := s.votes.Insert(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info("vote recorded", zap.String("event_id", e.ID), zap.String("candidate", candidate))
	if s.feed != nil {
		s.feed.Broadcast(e.ID, EventVoteCast, map[string]interface{}{
			"candidate": candidate,
			"timestamp": v.CreatedAt,
		})
	}
	return v, nil
}

// PublicView returns the voter-facing view of an event.
func (s *Service) PublicView(ctx context.Context, eventID string) (*models.PublicEvent, error) {
	e, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	candidates := make([]models.PublicCandidate, len(e.SelectedData))
	for i, row := range e.SelectedData {
		candidates[i] = models.PublicCandidate{
			Name:  models.CandidateName(row, i),
			Image: e.ImageFor(i),
			Row:   row,
		}
	}
	return &models.PublicEvent{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Date:        e.Date,
		StartTime:   e.StartTime,
		StopTime:    e.StopTime,
		Expiry:      e.Expiry,
		Candidates:  candidates,
		HasRoster:   len(e.FileData) > 0,
		VotingOpen:  e.VotingOpen(s.now()),
	}, nil
}

func onBallot(e *models.Event, candidate string) bool {
	for _, name := range models.CandidateNames(e.SelectedData) {
		if name == candidate {
			return true
		}
	}
	return false
}
