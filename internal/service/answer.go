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

// MaxAnswerLength bounds the body of an answer.
const MaxAnswerLength = 50000

// ReputationAccept is what an answer's author earns when the question's
// author accepts their answer.
const ReputationAccept = 15

// AnswerService handles business logic for answers, including acceptance.
type AnswerService struct {
	answers   repository.AnswerRepository
	questions repository.QuestionRepository
	users     repository.UserRepository
	notifier  *Notifier
	locks     *keyedMutex
	logger    *slog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(
	answers repository.AnswerRepository,
	questions repository.QuestionRepository,
	users repository.UserRepository,
	notifier *Notifier,
	logger *slog.Logger,
) *AnswerService {
	return &AnswerService{
		answers:   answers,
		questions: questions,
		users:     users,
		notifier:  notifier,
		locks:     newKeyedMutex(),
		logger:    logger,
	}
}

// Create validates and saves a new answer, notifies the question's author,
// and processes @-mentions in the body.
//
// Answering your own question is allowed (self-answers are a normal Q&A
// pattern) — the notifier suppresses the self-notification on its own.
func (s *AnswerService) Create(ctx context.Context, userID, questionID, content string) (*model.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "answer content is required")
	}
	if len(content) > MaxAnswerLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("answer must be %d characters or less", MaxAnswerLength))
	}

	// Confirm the question exists before writing anything.
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	answer := &model.Answer{
		QuestionID: questionID,
		UserID:     userID,
		Content:    content,
	}
	if err := s.answers.Create(ctx, answer); err != nil {
		s.logger.Error("failed to create answer",
			slog.String("questionID", questionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating answer: %w", err)
	}

	pub := author.Public()
	answer.Author = &pub

	s.logger.Info("answer created",
		slog.String("id", answer.ID),
		slog.String("questionID", questionID),
	)

	s.notifier.NotifyNewAnswer(ctx, question, answer, author)
	s.notifier.ProcessMentions(ctx, content, author, questionID, answer.ID, ContentAnswer)

	return answer, nil
}

// ListForQuestion returns all answers for a question, accepted answer first,
// then by vote score.
func (s *AnswerService) ListForQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return nil, apperror.ValidationFailed("questionID", "question ID is required")
	}

	answers, err := s.answers.ListForQuestion(ctx, questionID)
	if err != nil {
		s.logger.Error("failed to list answers",
			slog.String("questionID", questionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing answers: %w", err)
	}

	for i := range answers {
		if err := s.attachAuthor(ctx, &answers[i]); err != nil {
			return nil, err
		}
	}

	return answers, nil
}

// Update modifies an existing answer. Only its author may edit it.
// A changed body gets its mentions re-processed.
func (s *AnswerService) Update(ctx context.Context, userID, id, content string) (*model.Answer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "answer ID is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "answer content is required")
	}
	if len(content) > MaxAnswerLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("answer must be %d characters or less", MaxAnswerLength))
	}

	answer, err := s.answers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if answer.UserID != userID {
		return nil, apperror.Forbidden("only the answer's author may edit it")
	}

	contentChanged := content != answer.Content
	answer.Content = content

	if err := s.answers.Update(ctx, answer); err != nil {
		s.logger.Error("failed to update answer",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating answer: %w", err)
	}

	s.logger.Info("answer updated", slog.String("id", id))

	if contentChanged {
		if author, err := s.users.GetByID(ctx, userID); err == nil {
			s.notifier.ProcessMentions(ctx, content, author, answer.QuestionID, answer.ID, ContentAnswer)
		}
	}

	if err := s.attachAuthor(ctx, answer); err != nil {
		return nil, err
	}

	return answer, nil
}

// Delete removes an answer. Only its author may delete it.
// Deleting the currently accepted answer clears the question's accepted
// marker so the question shows as unanswered again.
func (s *AnswerService) Delete(ctx context.Context, userID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "answer ID is required")
	}

	answer, err := s.answers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if answer.UserID != userID {
		return apperror.Forbidden("only the answer's author may delete it")
	}

	if answer.IsAccepted {
		if err := s.questions.SetAcceptedAnswer(ctx, answer.QuestionID, ""); err != nil {
			return fmt.Errorf("clearing accepted answer: %w", err)
		}
	}

	if err := s.answers.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("answer deleted", slog.String("id", id))
	return nil
}

// Accept marks an answer as the accepted one for its question.
//
// RULES:
//   - Only the QUESTION's author may accept (not the answer's author, not
//     an admin) — apperror.Forbidden otherwise.
//   - A question has at most one accepted answer. Accepting answer B when
//     answer A was accepted un-marks A first; there is no window where two
//     answers are both accepted, because the whole transition runs under a
//     per-question lock.
//   - The answer's author earns +15 reputation. Re-accepting the SAME
//     answer grants the +15 again — acceptance reputation tracks accept
//     events, not accepted state.
//   - There is no standalone "unaccept": acceptance moves, it doesn't clear
//     (deleting the accepted answer is the only way it clears).
func (s *AnswerService) Accept(ctx context.Context, userID, answerID string) (*model.Answer, error) {
	answerID = strings.TrimSpace(answerID)
	if answerID == "" {
		return nil, apperror.ValidationFailed("id", "answer ID is required")
	}

	answer, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		return nil, err
	}

	// Serialise concurrent accepts on the same question. Without this,
	// two accepts racing on answers A and B could each un-mark the other's
	// "previous" and leave both rows accepted.
	unlock := s.locks.Lock("question:" + answer.QuestionID)
	defer unlock()

	question, err := s.questions.GetByID(ctx, answer.QuestionID)
	if err != nil {
		return nil, err
	}
	if question.UserID != userID {
		return nil, apperror.Forbidden("only the question's author may accept an answer")
	}

	if question.AcceptedAnswer != "" && question.AcceptedAnswer != answerID {
		if err := s.answers.SetAccepted(ctx, question.AcceptedAnswer, false); err != nil {
			return nil, fmt.Errorf("unmarking previous accepted answer: %w", err)
		}
	}

	if err := s.answers.SetAccepted(ctx, answerID, true); err != nil {
		return nil, fmt.Errorf("marking answer accepted: %w", err)
	}
	if err := s.questions.SetAcceptedAnswer(ctx, question.ID, answerID); err != nil {
		return nil, fmt.Errorf("recording accepted answer on question: %w", err)
	}
	answer.IsAccepted = true

	if _, err := s.users.AdjustReputation(ctx, answer.UserID, ReputationAccept); err != nil {
		s.logger.Error("failed to credit acceptance reputation",
			slog.String("userID", answer.UserID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("answer accepted",
		slog.String("answerID", answerID),
		slog.String("questionID", question.ID),
	)

	accepter, err := s.users.GetByID(ctx, userID)
	if err == nil {
		s.notifier.NotifyAccepted(ctx, question, answer, accepter)
	}

	if err := s.attachAuthor(ctx, answer); err != nil {
		return nil, err
	}

	return answer, nil
}

// attachAuthor populates a.Author from the users table.
func (s *AnswerService) attachAuthor(ctx context.Context, a *model.Answer) error {
	if a.Author != nil {
		return nil
	}
	author, err := s.users.GetByID(ctx, a.UserID)
	if err != nil {
		return fmt.Errorf("fetching answer author %s: %w", a.UserID, err)
	}
	pub := author.Public()
	a.Author = &pub
	return nil
}
