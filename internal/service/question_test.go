package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/devforum/internal/apperror"
	"github.com/sakif/devforum/internal/repository"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestQuestionCreate_Success(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")

	q, err := env.questionSvc.Create(context.Background(), author.ID,
		"how do channels work", "details here", []string{"go", "concurrency"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if q.ID == "" {
		t.Error("expected question to have an ID")
	}
	if q.Author == nil || q.Author.Username != "author" {
		t.Errorf("Author = %v, want author's public profile", q.Author)
	}
	if len(q.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 tags", q.Tags)
	}
}

func TestQuestionCreate_EmptyTitle(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")

	_, err := env.questionSvc.Create(context.Background(), author.ID, "  ", "details", nil)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestQuestionCreate_TitleTooLong(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")

	_, err := env.questionSvc.Create(context.Background(), author.ID,
		strings.Repeat("a", MaxTitleLength+1), "details", nil)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestQuestionCreate_NormalizesTags(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")

	q, err := env.questionSvc.Create(context.Background(), author.ID,
		"how do channels work", "details", []string{" Go ", "go", "", "Concurrency"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(q.Tags) != 2 || q.Tags[0] != "go" || q.Tags[1] != "concurrency" {
		t.Errorf("Tags = %v, want [go concurrency]", q.Tags)
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestQuestionGetByID_CountsView(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")
	q := env.seedQuestion(t, author, "how do channels work")

	ctx := context.Background()
	first, err := env.questionSvc.GetByID(ctx, q.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	second, err := env.questionSvc.GetByID(ctx, q.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if second.Views != first.Views+1 {
		t.Errorf("Views = %d then %d, want each read to count", first.Views, second.Views)
	}
}

func TestQuestionGetByID_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.questionSvc.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestQuestionList_KeywordFilter(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")
	env.seedQuestion(t, author, "how do channels work")
	env.seedQuestion(t, author, "what is a slice")

	result, err := env.questionSvc.List(context.Background(), repository.QuestionListOptions{Keyword: "channel"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Questions) != 1 {
		t.Fatalf("List() total=%d len=%d, want 1 match", result.Total, len(result.Questions))
	}
	if result.Questions[0].Title != "how do channels work" {
		t.Errorf("matched %q, want the channel question", result.Questions[0].Title)
	}
}

func TestQuestionList_TagFilter(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")

	ctx := context.Background()
	if _, err := env.questionSvc.Create(ctx, author.ID, "tagged", "details", []string{"go"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.questionSvc.Create(ctx, author.ID, "untagged", "details", nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := env.questionSvc.List(ctx, repository.QuestionListOptions{Tag: "go"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}
}

func TestQuestionList_ClampsBadPagination(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.questionSvc.List(context.Background(), repository.QuestionListOptions{Limit: -5, Offset: -10})
	if err != nil {
		t.Fatalf("List() should handle negative values gracefully, got error = %v", err)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestQuestionUpdate_WrongOwner(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")
	intruder := env.seedUser(t, "intruder")
	q := env.seedQuestion(t, author, "how do channels work")

	_, err := env.questionSvc.Update(context.Background(), intruder.ID, q.ID, "hijacked", "", nil)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestQuestionUpdate_PartialEdit(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")
	q := env.seedQuestion(t, author, "how do channels work")

	updated, err := env.questionSvc.Update(context.Background(), author.ID, q.ID, "new title", "", nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "new title" {
		t.Errorf("Title = %q, want %q", updated.Title, "new title")
	}
	if updated.Description != q.Description {
		t.Errorf("Description changed to %q, want untouched", updated.Description)
	}
}

func TestQuestionDelete_WrongOwner(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")
	intruder := env.seedUser(t, "intruder")
	q := env.seedQuestion(t, author, "how do channels work")

	err := env.questionSvc.Delete(context.Background(), intruder.ID, q.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestQuestionDelete_Success(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "author")
	q := env.seedQuestion(t, author, "how do channels work")

	ctx := context.Background()
	if err := env.questionSvc.Delete(ctx, author.ID, q.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err := env.questionSvc.GetByID(ctx, q.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}
}
