package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/devforum/internal/apperror"
	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/repository"
)

// UserStore implements repository.UserRepository on top of the shared DB
// handle. Each repository gets its own store type so that method sets stay
// separate (Create on users vs Create on questions are different methods).
type UserStore struct {
	db *DB
}

// NewUserStore creates a UserStore backed by db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

const userColumns = `id, username, email, password_hash, avatar_url, reputation, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.AvatarURL, &u.Reputation, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user.
//
// The UNIQUE constraints on username and email do the duplicate detection for
// us; a constraint violation is translated into apperror.Conflict so the
// handler returns 409 instead of a generic 500.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, avatar_url, reputation, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.AvatarURL, user.Reputation, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		// modernc.org/sqlite reports constraint violations in the error text.
		// Checking the message is cruder than driver-specific error codes but
		// keeps this package driver-agnostic.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email (used by login).
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by their mention handle.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username: %w", err)
	}
	return user, nil
}

// GetByUsernames resolves a batch of mention handles in one query.
// Handles with no matching user are silently absent from the result.
func (s *UserStore) GetByUsernames(ctx context.Context, usernames []string) ([]model.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}

	// Build the IN (?, ?, ...) placeholder list. The values themselves still
	// go through parameters — only the placeholders are string-built.
	placeholders := strings.Repeat("?,", len(usernames))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(usernames))
	for i, name := range usernames {
		args[i] = name
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolving usernames: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, len(usernames))
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.AvatarURL, &u.Reputation, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// AdjustReputation applies a reputation delta with a floor of zero.
//
// The clamp happens inside the UPDATE itself (MAX(0, reputation + delta)), so
// the floor holds even when two downvotes land concurrently — each statement
// sees the committed balance and can never write a negative value.
func (s *UserStore) AdjustReputation(ctx context.Context, id string, delta int) (int, error) {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET reputation = MAX(0, reputation + ?) WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: adjusting reputation for %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, apperror.NotFound("user", id)
	}

	var balance int
	err = s.db.conn.QueryRowContext(ctx,
		`SELECT reputation FROM users WHERE id = ?`, id,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading reputation for %s: %w", id, err)
	}

	return balance, nil
}
