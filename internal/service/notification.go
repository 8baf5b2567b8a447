package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/devforum/internal/apperror"
	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/realtime"
	"github.com/sakif/devforum/internal/repository"
)

// MaxNotificationList caps how many notifications one fetch returns.
// Older records stay stored but are not served; the dropdown only ever
// shows the most recent ones.
const MaxNotificationList = 50

// NotificationService serves a user's notification inbox: listing, read
// state, and the unread badge count.
//
// Read-state changes are also pushed over the websocket so the SAME user's
// other open tabs stay in sync: mark a notification read on your laptop and
// the badge on your phone's open tab clears too.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	questions     repository.QuestionRepository
	hub           *realtime.Hub
	logger        *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	questions repository.QuestionRepository,
	hub *realtime.Hub,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		questions:     questions,
		hub:           hub,
		logger:        logger,
	}
}

// List returns the recipient's notifications, newest first, capped at
// MaxNotificationList, with sender info and question titles populated for
// display.
func (s *NotificationService) List(ctx context.Context, recipientID string) ([]model.Notification, error) {
	records, err := s.notifications.ListForRecipient(ctx, recipientID, MaxNotificationList)
	if err != nil {
		s.logger.Error("failed to list notifications",
			slog.String("recipientID", recipientID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	for i := range records {
		s.populate(ctx, &records[i])
	}

	return records, nil
}

// MarkRead flags one notification as read.
//
// RULES:
//   - Only the recipient may mark their own notification — Forbidden for
//     anyone else, even the sender.
//   - Marking an already-read record again succeeds silently (idempotent),
//     and still pushes, so a stale tab re-syncs either way.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "notification ID is required")
	}

	record, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if record.RecipientID != userID {
		return apperror.Forbidden("only the recipient may mark a notification read")
	}

	if err := s.notifications.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}

	s.hub.Push(userID, realtime.Message{
		Type: realtime.EventNotificationRead,
		Data: map[string]string{"id": id},
	})

	return nil
}

// MarkAllRead flags every unread notification for the user and returns how
// many actually changed. Calling it with nothing unread returns 0 — not an
// error.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}

	s.hub.Push(userID, realtime.Message{Type: realtime.EventAllRead})

	if n > 0 {
		s.logger.Info("notifications marked read",
			slog.String("userID", userID),
			slog.Int("count", n),
		)
	}

	return n, nil
}

// UnreadCount returns the badge number for the user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

// populate fills display fields best-effort; a deleted sender or question
// just leaves the field empty.
func (s *NotificationService) populate(ctx context.Context, n *model.Notification) {
	if sender, err := s.users.GetByID(ctx, n.SenderID); err == nil {
		pub := sender.Public()
		n.Sender = &pub
	}
	if n.QuestionID != "" {
		if q, err := s.questions.GetByID(ctx, n.QuestionID); err == nil {
			n.QuestionTitle = q.Title
		}
	}
}
