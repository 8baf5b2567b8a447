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

// NotificationStore implements repository.NotificationRepository.
type NotificationStore struct {
	db *DB
}

// NewNotificationStore creates a NotificationStore backed by db.
func NewNotificationStore(db *DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// compile-time check that *NotificationStore implements repository.NotificationRepository
var _ repository.NotificationRepository = (*NotificationStore)(nil)

// Create persists a new notification record, unread by definition.
func (s *NotificationStore) Create(ctx context.Context, n *model.Notification) error {
	n.ID = xid.New().String()
	n.Read = false
	n.CreatedAt = time.Now()

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, sender_id, type, question_id, answer_id, message, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		n.ID, n.RecipientID, n.SenderID, string(n.Kind),
		n.QuestionID, n.AnswerID, n.Message, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating notification: %w", err)
	}

	return nil
}

// GetByID retrieves a single notification.
func (s *NotificationStore) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	var (
		n    model.Notification
		kind string
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, recipient_id, sender_id, type, question_id, answer_id, message, read, created_at
		 FROM notifications WHERE id = ?`,
		id,
	).Scan(
		&n.ID, &n.RecipientID, &n.SenderID, &kind,
		&n.QuestionID, &n.AnswerID, &n.Message, &n.Read, &n.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("notification", id)
		}
		return nil, fmt.Errorf("sqlite: getting notification %s: %w", id, err)
	}

	n.Kind = model.NotificationKind(kind)
	return &n, nil
}

// ListForRecipient returns the user's notifications newest first, capped at
// limit.
func (s *NotificationStore) ListForRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, recipient_id, sender_id, type, question_id, answer_id, message, read, created_at
		 FROM notifications
		 WHERE recipient_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		recipientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0, limit)
	for rows.Next() {
		var (
			n    model.Notification
			kind string
		)
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.SenderID, &kind,
			&n.QuestionID, &n.AnswerID, &n.Message, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification row: %w", err)
		}
		n.Kind = model.NotificationKind(kind)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead sets the read flag on one record. Marking an already-read record
// is a no-op — the WHERE clause only checks existence, not the current flag,
// so repeated calls succeed without complaint.
func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: marking notification %s read: %w", id, err)
	}
	return requireRowsAffected(result, "notification", id)
}

// MarkAllRead flags every unread record for the recipient. The returned count
// is the number of rows that actually flipped, so calling it twice in a row
// yields (n, then 0).
func (s *NotificationStore) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE recipient_id = ? AND read = 0`,
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: marking all notifications read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// UnreadCount counts the recipient's unread notifications.
func (s *NotificationStore) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND read = 0`,
		recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unread notifications: %w", err)
	}
	return count, nil
}
