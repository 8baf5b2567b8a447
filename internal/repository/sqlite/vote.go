package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/repository"
)

// VoteStore implements repository.VoteRepository.
//
// Vote state lives in its own table rather than as arrays on the question and
// answer rows. One row per (entity, voter) with the direction as a column
// makes the core invariant structural: the composite primary key guarantees a
// voter holds at most one vote per entity, so the upvote and downvote sets
// can never overlap no matter what the service layer does.
type VoteStore struct {
	db *DB
}

// NewVoteStore creates a VoteStore backed by db.
func NewVoteStore(db *DB) *VoteStore {
	return &VoteStore{db: db}
}

// compile-time check that *VoteStore implements repository.VoteRepository
var _ repository.VoteRepository = (*VoteStore)(nil)

// GetState reports the voter's current standing on the entity.
func (s *VoteStore) GetState(ctx context.Context, entity repository.VoteEntity, entityID, voterID string) (repository.VoteState, error) {
	var direction string
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT direction FROM votes WHERE entity_type = ? AND entity_id = ? AND user_id = ?`,
		string(entity), entityID, voterID,
	).Scan(&direction)

	if err == sql.ErrNoRows {
		return repository.VoteState{}, nil
	}
	if err != nil {
		return repository.VoteState{}, fmt.Errorf("sqlite: reading vote state: %w", err)
	}

	return repository.VoteState{
		HasUpvoted:   direction == string(model.VoteUp),
		HasDownvoted: direction == string(model.VoteDown),
	}, nil
}

// SetVote records a vote, replacing any previous vote by the same voter on
// the same entity. INSERT OR REPLACE keys on the composite primary key, so a
// direction switch is a single statement.
func (s *VoteStore) SetVote(ctx context.Context, entity repository.VoteEntity, entityID, voterID string, dir model.VoteDirection) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO votes (entity_type, entity_id, user_id, direction, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(entity), entityID, voterID, string(dir), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording vote: %w", err)
	}
	return nil
}

// ClearVote removes the voter's vote on the entity. Clearing a vote that
// doesn't exist is a no-op — the toggle flow has already decided what should
// happen, this just executes it.
func (s *VoteStore) ClearVote(ctx context.Context, entity repository.VoteEntity, entityID, voterID string) error {
	_, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM votes WHERE entity_type = ? AND entity_id = ? AND user_id = ?`,
		string(entity), entityID, voterID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing vote: %w", err)
	}
	return nil
}

// Voters returns the entity's current upvoter and downvoter ID sets.
func (s *VoteStore) Voters(ctx context.Context, entity repository.VoteEntity, entityID string) (up, down []string, err error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT user_id, direction FROM votes
		 WHERE entity_type = ? AND entity_id = ?
		 ORDER BY created_at`,
		string(entity), entityID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: listing voters: %w", err)
	}
	defer rows.Close()

	up = []string{}
	down = []string{}
	for rows.Next() {
		var userID, direction string
		if err := rows.Scan(&userID, &direction); err != nil {
			return nil, nil, fmt.Errorf("sqlite: scanning vote row: %w", err)
		}
		if direction == string(model.VoteUp) {
			up = append(up, userID)
		} else {
			down = append(down, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("sqlite: iterating votes: %w", err)
	}

	return up, down, nil
}
