package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/devforum/internal/apperror"
	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/repository"
)

// Reputation deltas applied to the CONTENT AUTHOR when someone casts a new
// vote on their post. Answers are worth more than questions — writing a
// good answer is the harder contribution.
//
// THE ASYMMETRY IS DELIBERATE: reputation is credited whenever a direction
// is newly cast — a fresh vote, or a switch from the opposite direction —
// and is NOT reversed when the voter later removes a vote. Toggling off
// restores the post's score but never claws back the author's reputation,
// and a switch does not refund the earlier direction's delta either: an
// upvote-then-downvote leaves the author with +10 −2. Reputation never
// drops below zero; the floor is enforced in the repository's UPDATE so
// concurrent downvotes can't dip negative.
const (
	ReputationQuestionUpvote   = 5
	ReputationQuestionDownvote = -2
	ReputationAnswerUpvote     = 10
	ReputationAnswerDownvote   = -2
)

// VoteService handles vote toggling on questions and answers.
//
// VOTE SEMANTICS (the toggle):
//   - no existing vote + upvote      → upvote recorded
//   - existing upvote + upvote       → vote REMOVED (toggle off)
//   - existing upvote + downvote     → vote SWITCHED to downvote
//   - ...and symmetrically for downvotes.
//
// A user holds at most one vote per post. That invariant is structural:
// votes live in one row per (entity, user) with a direction column, so
// "upvoted AND downvoted" cannot be represented at all.
type VoteService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	users     repository.UserRepository
	votes     repository.VoteRepository
	locks     *keyedMutex
	logger    *slog.Logger
}

// NewVoteService creates a new VoteService.
func NewVoteService(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	users repository.UserRepository,
	votes repository.VoteRepository,
	logger *slog.Logger,
) *VoteService {
	return &VoteService{
		questions: questions,
		answers:   answers,
		users:     users,
		votes:     votes,
		locks:     newKeyedMutex(),
		logger:    logger,
	}
}

// VoteQuestion applies one vote action from userID to the question.
// Returns the question with refreshed voter lists and score, plus whether
// this action newly cast its direction — true for a fresh vote AND for a
// direction switch, false only for a toggle-off.
func (s *VoteService) VoteQuestion(ctx context.Context, userID, questionID string, direction model.VoteDirection) (*model.Question, bool, error) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return nil, false, apperror.ValidationFailed("id", "question ID is required")
	}
	if !direction.Valid() {
		return nil, false, apperror.ValidationFailed("direction", `direction must be "upvote" or "downvote"`)
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, false, err
	}

	isNew, score, err := s.applyVote(ctx, repository.VoteEntityQuestion, questionID, userID, direction)
	if err != nil {
		return nil, false, err
	}

	if err := s.questions.SetVoteScore(ctx, questionID, score); err != nil {
		return nil, false, fmt.Errorf("storing question vote score: %w", err)
	}

	if isNew {
		delta := ReputationQuestionUpvote
		if direction == model.VoteDown {
			delta = ReputationQuestionDownvote
		}
		s.creditAuthor(ctx, question.UserID, userID, delta)
	}

	// Re-read so the response carries the post-vote voter lists.
	updated, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, false, err
	}
	return updated, isNew, nil
}

// VoteAnswer applies one vote action from userID to the answer.
// Same toggle semantics as VoteQuestion, with the answer reputation deltas.
func (s *VoteService) VoteAnswer(ctx context.Context, userID, answerID string, direction model.VoteDirection) (*model.Answer, bool, error) {
	answerID = strings.TrimSpace(answerID)
	if answerID == "" {
		return nil, false, apperror.ValidationFailed("id", "answer ID is required")
	}
	if !direction.Valid() {
		return nil, false, apperror.ValidationFailed("direction", `direction must be "upvote" or "downvote"`)
	}

	answer, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		return nil, false, err
	}

	isNew, score, err := s.applyVote(ctx, repository.VoteEntityAnswer, answerID, userID, direction)
	if err != nil {
		return nil, false, err
	}

	if err := s.answers.SetVoteScore(ctx, answerID, score); err != nil {
		return nil, false, fmt.Errorf("storing answer vote score: %w", err)
	}

	if isNew {
		delta := ReputationAnswerUpvote
		if direction == model.VoteDown {
			delta = ReputationAnswerDownvote
		}
		s.creditAuthor(ctx, answer.UserID, userID, delta)
	}

	updated, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		return nil, false, err
	}
	return updated, isNew, nil
}

// applyVote runs the read-decide-write toggle under the entity's lock and
// returns whether a new vote was recorded, plus the recomputed score.
//
// WHY A LOCK AND NOT JUST SQL?
// The toggle needs the user's CURRENT vote to decide between insert, delete,
// and replace. Two racing requests from the same user reading "no vote"
// would both insert. The per-entity lock makes read-decide-write atomic;
// scoped per entity so votes on different posts never contend.
func (s *VoteService) applyVote(ctx context.Context, entity repository.VoteEntity, entityID, userID string, direction model.VoteDirection) (bool, int, error) {
	unlock := s.locks.Lock(string(entity) + ":" + entityID)
	defer unlock()

	state, err := s.votes.GetState(ctx, entity, entityID, userID)
	if err != nil {
		return false, 0, fmt.Errorf("reading vote state: %w", err)
	}

	sameDirection := (direction == model.VoteUp && state.HasUpvoted) ||
		(direction == model.VoteDown && state.HasDownvoted)

	var isNew bool
	if sameDirection {
		// Toggle off.
		if err := s.votes.ClearVote(ctx, entity, entityID, userID); err != nil {
			return false, 0, fmt.Errorf("clearing vote: %w", err)
		}
	} else {
		// Fresh vote or direction switch — INSERT OR REPLACE handles both.
		if err := s.votes.SetVote(ctx, entity, entityID, userID, direction); err != nil {
			return false, 0, fmt.Errorf("recording vote: %w", err)
		}
		// Either way the voter had not held THIS direction yet, so it
		// counts as a new vote: a switch earns the new direction's
		// reputation delta without refunding the old one.
		isNew = true
	}

	// Score is always derived from the voter rows, never incremented in
	// place, so it cannot drift from the stored votes.
	up, down, err := s.votes.Voters(ctx, entity, entityID)
	if err != nil {
		return false, 0, fmt.Errorf("recomputing vote score: %w", err)
	}

	s.logger.Info("vote applied",
		slog.String("entity", string(entity)),
		slog.String("entityID", entityID),
		slog.String("userID", userID),
		slog.String("direction", string(direction)),
		slog.Bool("new", isNew),
	)

	return isNew, len(up) - len(down), nil
}

// creditAuthor adjusts the content author's reputation for a new vote.
// Self-votes earn nothing, and a failed adjustment never fails the vote —
// the vote itself is already recorded.
func (s *VoteService) creditAuthor(ctx context.Context, authorID, voterID string, delta int) {
	if authorID == voterID {
		return
	}
	if _, err := s.users.AdjustReputation(ctx, authorID, delta); err != nil {
		s.logger.Error("failed to adjust reputation",
			slog.String("userID", authorID),
			slog.Int("delta", delta),
			slog.String("error", err.Error()),
		)
	}
}
