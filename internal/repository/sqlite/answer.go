package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/devforum/internal/apperror"
	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/repository"
)

// AnswerStore implements repository.AnswerRepository.
type AnswerStore struct {
	db *DB
}

// NewAnswerStore creates an AnswerStore backed by db.
func NewAnswerStore(db *DB) *AnswerStore {
	return &AnswerStore{db: db}
}

// compile-time check that *AnswerStore implements repository.AnswerRepository
var _ repository.AnswerRepository = (*AnswerStore)(nil)

// Create inserts a new answer under its question.
func (s *AnswerStore) Create(ctx context.Context, a *model.Answer) error {
	a.ID = xid.New().String()
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, content, user_id, is_accepted, vote_score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		a.ID, a.QuestionID, a.Content, a.UserID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating answer: %w", err)
	}

	return nil
}

// GetByID retrieves a single answer with its voter sets populated.
func (s *AnswerStore) GetByID(ctx context.Context, id string) (*model.Answer, error) {
	var a model.Answer
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, question_id, content, user_id, is_accepted, vote_score, created_at, updated_at
		 FROM answers WHERE id = ?`,
		id,
	).Scan(
		&a.ID, &a.QuestionID, &a.Content, &a.UserID,
		&a.IsAccepted, &a.VoteScore, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("answer", id)
		}
		return nil, fmt.Errorf("sqlite: getting answer %s: %w", id, err)
	}

	a.Upvoters, a.Downvoters, err = NewVoteStore(s.db).Voters(ctx, repository.VoteEntityAnswer, id)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// ListForQuestion returns all answers for a question: accepted answer first,
// then by vote score, then newest first — the display order the question
// page wants.
//
// Voter sets for the whole batch come from one extra query over the votes
// table rather than one query per answer.
func (s *AnswerStore) ListForQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, question_id, content, user_id, is_accepted, vote_score, created_at, updated_at
		 FROM answers
		 WHERE question_id = ?
		 ORDER BY is_accepted DESC, vote_score DESC, created_at DESC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers for question %s: %w", questionID, err)
	}
	defer rows.Close()

	answers := []model.Answer{}
	index := map[string]int{}
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(
			&a.ID, &a.QuestionID, &a.Content, &a.UserID,
			&a.IsAccepted, &a.VoteScore, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer row: %w", err)
		}
		a.Upvoters = []string{}
		a.Downvoters = []string{}
		index[a.ID] = len(answers)
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}

	if len(answers) == 0 {
		return answers, nil
	}

	voteRows, err := s.db.conn.QueryContext(ctx,
		`SELECT v.entity_id, v.user_id, v.direction
		 FROM votes v
		 JOIN answers a ON a.id = v.entity_id
		 WHERE v.entity_type = ? AND a.question_id = ?
		 ORDER BY v.created_at`,
		string(repository.VoteEntityAnswer), questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answer votes: %w", err)
	}
	defer voteRows.Close()

	for voteRows.Next() {
		var answerID, userID, direction string
		if err := voteRows.Scan(&answerID, &userID, &direction); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote row: %w", err)
		}
		i, ok := index[answerID]
		if !ok {
			continue
		}
		if direction == string(model.VoteUp) {
			answers[i].Upvoters = append(answers[i].Upvoters, userID)
		} else {
			answers[i].Downvoters = append(answers[i].Downvoters, userID)
		}
	}
	if err := voteRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answer votes: %w", err)
	}

	return answers, nil
}

// Update modifies an answer's content.
func (s *AnswerStore) Update(ctx context.Context, a *model.Answer) error {
	a.UpdatedAt = time.Now()

	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE answers SET content = ?, updated_at = ? WHERE id = ?`,
		a.Content, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating answer %s: %w", a.ID, err)
	}
	return requireRowsAffected(result, "answer", a.ID)
}

// Delete removes an answer.
func (s *AnswerStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM answers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting answer %s: %w", id, err)
	}
	return requireRowsAffected(result, "answer", id)
}

// SetAccepted flips the accepted flag on an answer.
func (s *AnswerStore) SetAccepted(ctx context.Context, id string, accepted bool) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE answers SET is_accepted = ? WHERE id = ?`, accepted, id)
	if err != nil {
		return fmt.Errorf("sqlite: marking answer %s accepted=%v: %w", id, accepted, err)
	}
	return requireRowsAffected(result, "answer", id)
}

// SetVoteScore persists the derived vote score.
func (s *AnswerStore) SetVoteScore(ctx context.Context, id string, score int) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE answers SET vote_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("sqlite: setting vote score for answer %s: %w", id, err)
	}
	return requireRowsAffected(result, "answer", id)
}
