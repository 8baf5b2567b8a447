package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/devforum/internal/apperror"
	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/repository"
)

// QuestionStore implements repository.QuestionRepository.
type QuestionStore struct {
	db *DB
}

// NewQuestionStore creates a QuestionStore backed by db.
func NewQuestionStore(db *DB) *QuestionStore {
	return &QuestionStore{db: db}
}

// compile-time check that *QuestionStore implements repository.QuestionRepository
var _ repository.QuestionRepository = (*QuestionStore)(nil)

// Tags are stored as a JSON array in a TEXT column. SQLite has no native
// array type, and a join table buys nothing here — tags are only ever read
// and written as a unit with their question.
func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(raw), nil
}

func decodeTags(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return tags, nil
}

// Create inserts a new question.
func (s *QuestionStore) Create(ctx context.Context, q *model.Question) error {
	q.ID = xid.New().String()
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now

	tags, err := encodeTags(q.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: creating question: %w", err)
	}

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO questions (id, title, description, tags, user_id, accepted_answer, views, vote_score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, '', 0, 0, ?, ?)`,
		q.ID, q.Title, q.Description, tags, q.UserID, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating question: %w", err)
	}

	return nil
}

// GetByID retrieves a single question with its voter sets populated.
func (s *QuestionStore) GetByID(ctx context.Context, id string) (*model.Question, error) {
	var (
		q    model.Question
		tags string
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, title, description, tags, user_id, accepted_answer, views, vote_score, created_at, updated_at
		 FROM questions WHERE id = ?`,
		id,
	).Scan(
		&q.ID, &q.Title, &q.Description, &tags, &q.UserID,
		&q.AcceptedAnswer, &q.Views, &q.VoteScore, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}

	if q.Tags, err = decodeTags(tags); err != nil {
		return nil, fmt.Errorf("sqlite: question %s: %w", id, err)
	}

	q.Upvoters, q.Downvoters, err = NewVoteStore(s.db).Voters(ctx, repository.VoteEntityQuestion, id)
	if err != nil {
		return nil, err
	}

	return &q, nil
}

// List retrieves questions matching the filter, newest first, along with the
// total match count for pagination.
func (s *QuestionStore) List(ctx context.Context, opts repository.QuestionListOptions) ([]model.Question, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	// Both filters are optional; an empty pattern matches everything.
	// Tag matching leans on the JSON encoding: a stored tag appears as
	// "tag" inside the array text, quotes included.
	where := `WHERE title LIKE ? AND (? = '' OR tags LIKE ?)`
	keyword := "%" + opts.Keyword + "%"
	tagPattern := `%"` + opts.Tag + `"%`

	var total int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions `+where,
		keyword, opts.Tag, tagPattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting questions: %w", err)
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, title, description, tags, user_id, accepted_answer, views, vote_score, created_at, updated_at
		 FROM questions `+where+`
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		keyword, opts.Tag, tagPattern, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0, limit)
	for rows.Next() {
		var (
			q    model.Question
			tags string
		)
		if err := rows.Scan(
			&q.ID, &q.Title, &q.Description, &tags, &q.UserID,
			&q.AcceptedAnswer, &q.Views, &q.VoteScore, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		if q.Tags, err = decodeTags(tags); err != nil {
			return nil, 0, fmt.Errorf("sqlite: question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating questions: %w", err)
	}

	return questions, total, nil
}

// Update modifies a question's editable fields (title, description, tags).
func (s *QuestionStore) Update(ctx context.Context, q *model.Question) error {
	q.UpdatedAt = time.Now()

	tags, err := encodeTags(q.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: updating question %s: %w", q.ID, err)
	}

	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE questions SET title = ?, description = ?, tags = ?, updated_at = ? WHERE id = ?`,
		q.Title, q.Description, tags, q.UpdatedAt, q.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating question %s: %w", q.ID, err)
	}

	return requireRowsAffected(result, "question", q.ID)
}

// Delete removes a question; answers cascade via the foreign key.
func (s *QuestionStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting question %s: %w", id, err)
	}
	return requireRowsAffected(result, "question", id)
}

// IncrementViews bumps the view counter. Deliberately leaves updated_at
// alone — viewing is not an edit.
func (s *QuestionStore) IncrementViews(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE questions SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing views for %s: %w", id, err)
	}
	return requireRowsAffected(result, "question", id)
}

// SetAcceptedAnswer points the question at answerID; "" clears the reference.
func (s *QuestionStore) SetAcceptedAnswer(ctx context.Context, id, answerID string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE questions SET accepted_answer = ? WHERE id = ?`, answerID, id)
	if err != nil {
		return fmt.Errorf("sqlite: setting accepted answer for %s: %w", id, err)
	}
	return requireRowsAffected(result, "question", id)
}

// SetVoteScore persists the derived vote score.
func (s *QuestionStore) SetVoteScore(ctx context.Context, id string, score int) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE questions SET vote_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("sqlite: setting vote score for question %s: %w", id, err)
	}
	return requireRowsAffected(result, "question", id)
}

// requireRowsAffected translates "UPDATE/DELETE matched nothing" into a
// NotFound — one query instead of a SELECT-then-mutate pair.
func requireRowsAffected(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
