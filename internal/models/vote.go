package models

import "time"

// VoteRecord is the per-user ledger row. An empty VotedEntryID means the user
// has no active vote, either never cast or cancelled by an admin.
type VoteRecord struct {
	UserID       string     `json:"userId"`
	VotedEntryID string     `json:"votedEntryId,omitempty"`
	VotedAt      *time.Time `json:"votedAt,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
}

func (v VoteRecord) HasVoted() bool {
	return v.VotedEntryID != ""
}

// Points moved by each ledger operation.
const (
	VotePoints   = 10
	AdjustPoints = 5
)
