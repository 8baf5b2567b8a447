package model

import "time"

// Answer represents an answer posted under a question.
//
// IsAccepted mirrors the owning question's AcceptedAnswer field: it is true
// for exactly the answer the question currently points at, and false for
// every other answer of that question. Both sides are updated together by
// the accept flow so readers of either record see a consistent picture.
//
// Vote bookkeeping works the same way as on Question: Upvoters/Downvoters
// are the source of truth, VoteScore is derived.
type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"questionId"`
	Content    string    `json:"content"`
	UserID     string    `json:"userId"`
	Upvoters   []string  `json:"upvotes"`
	Downvoters []string  `json:"downvotes"`
	VoteScore  int       `json:"voteCount"`
	IsAccepted bool      `json:"isAccepted"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Author is populated on read paths for display. Not a stored column.
	Author *PublicUser `json:"user,omitempty"`
}
