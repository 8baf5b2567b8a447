package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/devforum/internal/mention"
	"github.com/sakif/devforum/internal/model"
	"github.com/sakif/devforum/internal/realtime"
	"github.com/sakif/devforum/internal/repository"
)

// snippetLength is how many characters of a question title or mention text
// survive into a notification message before the ellipsis.
const snippetLength = 50

// Notifier turns domain events (new answer, accepted answer, mention) into
// persisted notification records and best-effort realtime pushes.
//
// THE ORDER IS ALWAYS: persist first, push second. Persistence is the
// source of truth; the push is a courtesy to open tabs. A failed push never
// fails the triggering request — by the time we push, the notification is
// already safely stored and will show up on the recipient's next fetch.
//
// THE ONE RULE APPLIED EVERYWHERE: you are never notified about your own
// actions. Answering your own question, accepting your own answer,
// mentioning yourself — all silently produce nothing. The suppression
// happens here, at creation, so a stored record never needs filtering.
type Notifier struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	questions     repository.QuestionRepository
	hub           *realtime.Hub
	logger        *slog.Logger
}

// NewNotifier creates a Notifier with all required dependencies.
func NewNotifier(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	questions repository.QuestionRepository,
	hub *realtime.Hub,
	logger *slog.Logger,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
		questions:     questions,
		hub:           hub,
		logger:        logger,
	}
}

// Notify persists n and pushes the populated record to the recipient's open
// sessions. Returns the stored record, or (nil, nil) when the event was
// suppressed because sender and recipient are the same user.
func (s *Notifier) Notify(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	if n.RecipientID == n.SenderID {
		return nil, nil
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Error("failed to create notification",
			slog.String("recipient", n.RecipientID),
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	s.populate(ctx, n)
	s.hub.Push(n.RecipientID, realtime.Message{Type: realtime.EventNotification, Data: n})

	s.logger.Info("notification created",
		slog.String("id", n.ID),
		slog.String("recipient", n.RecipientID),
		slog.String("kind", string(n.Kind)),
	)

	return n, nil
}

// populate fills the display-only fields (sender name/avatar, question
// title) so clients can render the record without extra round trips.
// Best-effort: a failed lookup leaves the field empty rather than failing
// the notification.
func (s *Notifier) populate(ctx context.Context, n *model.Notification) {
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

// NotifyNewAnswer tells the question's author that sender answered it.
func (s *Notifier) NotifyNewAnswer(ctx context.Context, q *model.Question, a *model.Answer, sender *model.User) {
	_, err := s.Notify(ctx, &model.Notification{
		RecipientID: q.UserID,
		SenderID:    sender.ID,
		Kind:        model.NotificationAnswer,
		QuestionID:  q.ID,
		AnswerID:    a.ID,
		Message:     fmt.Sprintf("%s answered your question: %q", sender.Username, truncate(q.Title, snippetLength)),
	})
	if err != nil {
		// The answer itself was created fine; a lost notification is not
		// worth failing the request over.
		s.logger.Error("new-answer notification failed", slog.String("error", err.Error()))
	}
}

// NotifyAccepted tells the answer's author that their answer was accepted.
func (s *Notifier) NotifyAccepted(ctx context.Context, q *model.Question, a *model.Answer, accepter *model.User) {
	_, err := s.Notify(ctx, &model.Notification{
		RecipientID: a.UserID,
		SenderID:    accepter.ID,
		Kind:        model.NotificationAccept,
		QuestionID:  q.ID,
		AnswerID:    a.ID,
		Message:     fmt.Sprintf("%s accepted your answer on: %q", accepter.Username, truncate(q.Title, snippetLength)),
	})
	if err != nil {
		s.logger.Error("accepted-answer notification failed", slog.String("error", err.Error()))
	}
}

// ContentKind says where a mention occurred, for the message template.
type ContentKind string

const (
	ContentQuestion ContentKind = "question"
	ContentAnswer   ContentKind = "answer"
)

// ProcessMentions scans text for @-mentions, resolves the handles against
// registered users, and notifies each resolved user.
//
// Resolution rules:
//   - unknown handles are silently dropped (no error, no notification)
//   - the author mentioning themselves is dropped (never notify yourself)
//   - repeated mentions of the same user are NOT deduplicated — writing
//     "@alice ... @alice" sends alice two notifications, one per occurrence
//
// Returns the notifications that were stored. Mention processing is
// best-effort: a failure here is logged and never fails the edit or post
// that contained the mentions.
func (s *Notifier) ProcessMentions(ctx context.Context, text string, sender *model.User, questionID, answerID string, kind ContentKind) []model.Notification {
	handles := mention.Extract(text)
	if len(handles) == 0 {
		return nil
	}

	resolved, err := s.users.GetByUsernames(ctx, handles)
	if err != nil {
		s.logger.Error("resolving mention handles failed", slog.String("error", err.Error()))
		return nil
	}

	byHandle := make(map[string]*model.User, len(resolved))
	for i := range resolved {
		byHandle[resolved[i].Username] = &resolved[i]
	}

	var created []model.Notification
	for _, handle := range handles {
		user, ok := byHandle[handle]
		if !ok || user.ID == sender.ID {
			continue
		}

		stored, err := s.Notify(ctx, &model.Notification{
			RecipientID: user.ID,
			SenderID:    sender.ID,
			Kind:        model.NotificationMention,
			QuestionID:  questionID,
			AnswerID:    answerID,
			Message: fmt.Sprintf("%s mentioned you in a %s: %q",
				sender.Username, kind, truncate(text, snippetLength)),
		})
		if err != nil {
			s.logger.Error("mention notification failed",
				slog.String("handle", handle),
				slog.String("error", err.Error()),
			)
			continue
		}
		if stored != nil {
			created = append(created, *stored)
		}
	}

	return created
}

// truncate cuts s to at most n characters, appending "..." when something
// was actually cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
