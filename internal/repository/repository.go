// Package repository defines the storage interfaces consumed by the service
// layer. The sqlite subpackage provides the real implementation; tests use
// hand-written in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/devforum/internal/model"
)

// QuestionListOptions narrows and pages a question listing.
type QuestionListOptions struct {
	Keyword string // substring match against the title, case-insensitive
	Tag     string // exact tag match
	Limit   int
	Offset  int
}

// VoteState is a voter's current standing on one entity, read inside the
// vote flow before the toggle decision is made.
type VoteState struct {
	HasUpvoted   bool
	HasDownvoted bool
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByUsernames resolves a batch of mention handles. Unknown handles are
	// simply absent from the result — resolving them is not an error.
	GetByUsernames(ctx context.Context, usernames []string) ([]model.User, error)
	// AdjustReputation adds delta (which may be negative) to the user's
	// reputation, clamping the result at zero. Returns the new balance.
	AdjustReputation(ctx context.Context, id string, delta int) (int, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id string) (*model.Question, error)
	List(ctx context.Context, opts QuestionListOptions) ([]model.Question, int, error)
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id string) error
	// IncrementViews bumps the view counter without touching updated_at.
	IncrementViews(ctx context.Context, id string) error
	// SetAcceptedAnswer points the question at answerID ("" clears it).
	SetAcceptedAnswer(ctx context.Context, id, answerID string) error
	// SetVoteScore persists the derived vote score without touching
	// updated_at (voting is not an edit).
	SetVoteScore(ctx context.Context, id string, score int) error
}

type AnswerRepository interface {
	Create(ctx context.Context, a *model.Answer) error
	GetByID(ctx context.Context, id string) (*model.Answer, error)
	// ListForQuestion returns the question's answers, accepted answer first,
	// then by vote score, then newest first.
	ListForQuestion(ctx context.Context, questionID string) ([]model.Answer, error)
	Update(ctx context.Context, a *model.Answer) error
	Delete(ctx context.Context, id string) error
	// SetAccepted flips the answer's accepted flag.
	SetAccepted(ctx context.Context, id string, accepted bool) error
	// SetVoteScore persists the derived vote score without touching
	// updated_at (voting is not an edit).
	SetVoteScore(ctx context.Context, id string, score int) error
}

// VoteEntity names the two votable entity kinds in the votes table.
type VoteEntity string

const (
	VoteEntityQuestion VoteEntity = "question"
	VoteEntityAnswer   VoteEntity = "answer"
)

// VoteRepository persists per-entity vote sets.
//
// The implementation stores one row per (entity, voter) pair, so the
// disjointness invariant — a voter is never simultaneously in the upvote and
// downvote set — is structural: a single row can only hold one direction.
type VoteRepository interface {
	// GetState reports whether voterID currently up- or downvotes the entity.
	GetState(ctx context.Context, entity VoteEntity, entityID, voterID string) (VoteState, error)
	// SetVote records voterID voting in the given direction, replacing any
	// previous vote on the same entity.
	SetVote(ctx context.Context, entity VoteEntity, entityID, voterID string, dir model.VoteDirection) error
	// ClearVote removes voterID's vote on the entity, if any.
	ClearVote(ctx context.Context, entity VoteEntity, entityID, voterID string) error
	// Voters returns the current upvoter and downvoter ID sets.
	Voters(ctx context.Context, entity VoteEntity, entityID string) (up, down []string, err error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	// ListForRecipient returns the user's notifications newest first, at most
	// limit records (callers pass the service-level cap).
	ListForRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error)
	// MarkRead sets the read flag. Marking an already-read record again is a
	// no-op, not an error.
	MarkRead(ctx context.Context, id string) error
	// MarkAllRead flags every unread record for the recipient and returns how
	// many rows actually changed.
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
}
