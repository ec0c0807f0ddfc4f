package models

import (
	"time"

	"github.com/google/uuid"
)

// CandidateImage links a selectedData row to a stored image reference.
type CandidateImage struct {
	CandidateIndex int    `json:"candidateIndex"`
	Image          string `json:"image"`
}

// Event is a voting contest owned by a user.
type Event struct {
	ID              string           `json:"id"`
	OwnerID         uuid.UUID        `json:"ownerId"`
	Date            string           `json:"date"`
	StartTime       string           `json:"startTime"`
	StopTime        string           `json:"stopTime"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	SelectedData    Rows             `json:"selectedData"`
	FileData        Rows             `json:"fileData"`
	CandidateImages []CandidateImage `json:"candidateImages"`
	Expiry          int64            `json:"expiry"`
	Link            string           `json:"link"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// VotingOpen reports whether votes are accepted at t.
func (e *Event) VotingOpen(t time.Time) bool {
	return t.UnixMilli() < e.Expiry
}

// ImageRefs returns every non-empty image reference.
func (e *Event) ImageRefs() []string {
	var out []string
	for _, ci := range e.CandidateImages {
		if ci.Image != "" {
			out = append(out, ci.Image)
		}
	}
	return out
}

// ImageFor returns the image reference for a selectedData index, or "".
func (e *Event) ImageFor(index int) string {
	for _, ci := range e.CandidateImages {
		if ci.CandidateIndex == index {
			return ci.Image
		}
	}
	return ""
}

// PublicCandidate is one entry of the voter-facing candidate list.
type PublicCandidate struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	Row   Row    `json:"row"`
}

// PublicEvent is the voter-facing view of an event; the roster is never exposed.
type PublicEvent struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Date        string            `json:"date"`
	StartTime   string            `json:"startTime"`
	StopTime    string            `json:"stopTime"`
	Expiry      int64             `json:"expiry"`
	Candidates  []PublicCandidate `json:"candidates"`
	HasRoster   bool              `json:"hasRoster"`
	VotingOpen  bool              `json:"votingOpen"`
}
