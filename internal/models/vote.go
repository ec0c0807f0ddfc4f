package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Vote is a single ballot. VoterID is the roster identifier typed by the voter,
// not an account id.
type Vote struct {
	ID        uuid.UUID `json:"id"`
	EventID   string    `json:"eventId"`
	VoterID   string    `json:"voterId"`
	Candidate string    `json:"candidate"`
	CreatedAt time.Time `json:"timestamp"`
}

// CandidateName returns the display name of selectedData row i (0-based):
// the row's name field matched case-insensitively, else "Candidate N".
func CandidateName(row Row, i int) string {
	if raw, ok := row.GetFold("name"); ok {
		if s := StringValue(raw); s != "" {
			return s
		}
	}
	return "Candidate " + strconv.Itoa(i+1)
}

// CandidateNames returns the display names of every selectedData row in order.
func CandidateNames(rows Rows) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = CandidateName(r, i)
	}
	return out
}
