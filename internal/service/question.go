// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
// In a well-structured Go web app, code is organised into three layers:
//
//   Handler (HTTP layer)    → parses requests, writes responses
//   Service (Business layer) → validates, enforces rules, orchestrates
//   Repository (Data layer) → reads/writes to the database
//
// WHY A SEPARATE SERVICE LAYER?
// Without a service layer, handlers do everything: parse HTTP, validate data,
// call the database, format responses. This creates several problems:
//
//   1. TESTING: To test business logic, you'd need to create HTTP requests.
//      With a service layer, you test business logic with plain Go function calls.
//
//   2. REUSE: What if you need the same logic in a CLI tool or a background job?
//      Handlers are tied to HTTP. Services are not.
//
//   3. SEPARATION: Handlers should only know about HTTP (status codes, headers, JSON).
//      Services should only know about business rules (validation, permissions).
//      Neither should know about SQL or database details.
//
// THE DEPENDENCY CHAIN:
//   main.go creates:  DB → Repository → Service → Handler
//   At runtime:       Handler calls Service calls Repository calls DB
//
// DEPENDENCY INJECTION:
// Notice that QuestionService takes repository interfaces, NOT a *sqlite.DB
// (concrete type). This is called "programming to an interface."
//
// Benefits:
// - TESTING: In tests, we pass mock repositories (see question_test.go)
// - FLEXIBILITY: Swap SQLite for Postgres by changing one line in main.go
// - DECOUPLING: The service doesn't import the sqlite package at all
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

// Validation constants.
// Defining these as constants (not magic numbers in code) makes them:
// - Easy to find and change
// - Self-documenting (the name explains the purpose)
// - Referenceable in error messages
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 50000 // ~50KB of markdown
	MaxTags              = 5
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// QuestionService handles business logic for questions.
type QuestionService struct {
	questions repository.QuestionRepository
	users     repository.UserRepository
	notifier  *Notifier
	logger    *slog.Logger
}

// NewQuestionService creates a new QuestionService.
//
// CONSTRUCTOR PATTERN IN GO:
// Go doesn't have constructors like Java/Python. Instead, we use "New" functions.
// Convention: NewXxx returns *Xxx and takes all dependencies as parameters.
//
// This is where dependency injection happens — the caller decides WHICH
// repository implementation to use (SQLite, Postgres, mock for tests).
func NewQuestionService(
	questions repository.QuestionRepository,
	users repository.UserRepository,
	notifier *Notifier,
	logger *slog.Logger,
) *QuestionService {
	return &QuestionService{
		questions: questions,
		users:     users,
		notifier:  notifier,
		logger:    logger,
	}
}

// Create validates and saves a new question, then processes any @-mentions
// in its description.
//
// IMPORTANT DESIGN DECISIONS:
//
// 1. ACCEPT PRIMITIVES, NOT HTTP TYPES:
//    The method signature takes plain strings, NOT (*http.Request).
//    This means the service has ZERO knowledge of HTTP.
//
// 2. VALIDATE AT THE SERVICE LEVEL:
//    The handler does basic parsing (is the JSON valid?).
//    The service enforces business rules (is the title too long? is it empty?).
//
// 3. MENTIONS ARE BEST-EFFORT:
//    By the time ProcessMentions runs, the question is saved. A failure to
//    resolve or notify a mentioned user never fails the creation.
func (s *QuestionService) Create(ctx context.Context, userID, title, description string, tags []string) (*model.Question, error) {
	title = strings.TrimSpace(title)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "question title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("question title must be %d characters or less", MaxTitleLength))
	}
	if strings.TrimSpace(description) == "" {
		return nil, apperror.ValidationFailed("description", "question description is required")
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("question description must be %d characters or less", MaxDescriptionLength))
	}
	if len(tags) > MaxTags {
		return nil, apperror.ValidationFailed("tags",
			fmt.Sprintf("a question may have at most %d tags", MaxTags))
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	question := &model.Question{
		UserID:      userID,
		Title:       title,
		Description: description,
		Tags:        normalizeTags(tags),
	}

	if err := s.questions.Create(ctx, question); err != nil {
		s.logger.Error("failed to create question",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating question: %w", err)
	}

	pub := author.Public()
	question.Author = &pub

	s.logger.Info("question created",
		slog.String("id", question.ID),
		slog.String("userID", userID),
	)

	s.notifier.ProcessMentions(ctx, description, author, question.ID, "", ContentQuestion)

	return question, nil
}

// GetByID retrieves a question and records the view.
//
// WHY INCREMENT HERE AND NOT IN THE REPOSITORY?
// "Viewing a question counts as a view" is a business rule, not a storage
// detail. The repository's GetByID stays a pure read so other callers
// (acceptance checks, vote recomputation) don't inflate the counter.
func (s *QuestionService) GetByID(ctx context.Context, id string) (*model.Question, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "question ID is required")
	}

	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.questions.IncrementViews(ctx, id); err != nil {
		// A lost view count is not worth failing the read.
		s.logger.Warn("failed to increment views",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	} else {
		question.Views++
	}

	if err := s.attachAuthor(ctx, question); err != nil {
		return nil, err
	}

	return question, nil
}

// ListResult bundles one page of questions with the total match count so
// clients can render pagination.
type ListResult struct {
	Questions []model.Question `json:"questions"`
	Total     int              `json:"total"`
}

// List retrieves questions with optional keyword/tag filtering and pagination.
//
// The service enforces sane limits so callers can't request 1 million rows.
func (s *QuestionService) List(ctx context.Context, opts repository.QuestionListOptions) (*ListResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	opts.Keyword = strings.TrimSpace(opts.Keyword)
	opts.Tag = strings.TrimSpace(opts.Tag)

	questions, total, err := s.questions.List(ctx, opts)
	if err != nil {
		s.logger.Error("failed to list questions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing questions: %w", err)
	}

	for i := range questions {
		if err := s.attachAuthor(ctx, &questions[i]); err != nil {
			return nil, err
		}
	}

	return &ListResult{Questions: questions, Total: total}, nil
}

// Update modifies an existing question. Only the author may edit it.
//
// STRATEGY: "Fetch then update"
// 1. First, fetch the existing question (to confirm it exists and check ownership)
// 2. Apply changes to the fetched copy
// 3. Save the updated version
//
// If the description changed, its mentions are re-processed: users newly
// mentioned by the edit get notified. Users mentioned in BOTH versions get
// notified again — occurrences are what count, not history.
func (s *QuestionService) Update(ctx context.Context, userID, id, title, description string, tags []string) (*model.Question, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "question ID is required")
	}

	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if question.UserID != userID {
		return nil, apperror.Forbidden("only the question's author may edit it")
	}

	descriptionChanged := false

	if title = strings.TrimSpace(title); title != "" {
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("question title must be %d characters or less", MaxTitleLength))
		}
		question.Title = title
	}
	if strings.TrimSpace(description) != "" {
		if len(description) > MaxDescriptionLength {
			return nil, apperror.ValidationFailed("description",
				fmt.Sprintf("question description must be %d characters or less", MaxDescriptionLength))
		}
		descriptionChanged = description != question.Description
		question.Description = description
	}
	if tags != nil {
		if len(tags) > MaxTags {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("a question may have at most %d tags", MaxTags))
		}
		question.Tags = normalizeTags(tags)
	}

	if err := s.questions.Update(ctx, question); err != nil {
		s.logger.Error("failed to update question",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating question: %w", err)
	}

	s.logger.Info("question updated", slog.String("id", id))

	if descriptionChanged {
		if author, err := s.users.GetByID(ctx, userID); err == nil {
			s.notifier.ProcessMentions(ctx, question.Description, author, question.ID, "", ContentQuestion)
		}
	}

	if err := s.attachAuthor(ctx, question); err != nil {
		return nil, err
	}

	return question, nil
}

// Delete removes a question. Only the author may delete it.
// Answers, votes on them, and the question's own votes go with it
// (ON DELETE CASCADE at the schema level).
func (s *QuestionService) Delete(ctx context.Context, userID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "question ID is required")
	}

	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if question.UserID != userID {
		return apperror.Forbidden("only the question's author may delete it")
	}

	if err := s.questions.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("question deleted", slog.String("id", id))
	return nil
}

// attachAuthor populates q.Author from the users table.
func (s *QuestionService) attachAuthor(ctx context.Context, q *model.Question) error {
	if q.Author != nil {
		return nil
	}
	author, err := s.users.GetByID(ctx, q.UserID)
	if err != nil {
		return fmt.Errorf("fetching question author %s: %w", q.UserID, err)
	}
	pub := author.Public()
	q.Author = &pub
	return nil
}

// normalizeTags trims each tag, lowercases it, and drops empties and
// duplicates while preserving order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
