package model

import "time"

// VoteDirection is the direction of a vote cast on a question or an answer.
type VoteDirection string

const (
	VoteUp   VoteDirection = "upvote"
	VoteDown VoteDirection = "downvote"
)

// Valid reports whether d is one of the two recognised directions.
func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// Question represents a posted question.
//
// VOTE BOOKKEEPING:
// Upvoters and Downvoters are the authoritative vote state — each holds the
// IDs of the users who currently hold that vote, and a user appears in at
// most one of the two. VoteScore is always derived from them
// (len(upvoters) - len(downvoters)) and recomputed on every vote mutation,
// never edited independently. Storing the derived score alongside the sets
// lets list queries sort by score without counting rows each time.
type Question struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Tags           []string  `json:"tags"`
	UserID         string    `json:"userId"`
	Upvoters       []string  `json:"upvotes"`
	Downvoters     []string  `json:"downvotes"`
	VoteScore      int       `json:"voteCount"`
	AcceptedAnswer string    `json:"acceptedAnswer,omitempty"` // answer ID, empty if none
	Views          int       `json:"views"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Author is populated on read paths for display. Not a stored column.
	Author *PublicUser `json:"user,omitempty"`
}
