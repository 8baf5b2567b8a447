package model

import "time"

// NotificationKind identifies what triggered a notification. The values are
// part of the API contract — the frontend switches on them to pick an icon
// and a link target.
type NotificationKind string

const (
	// NotificationAnswer — someone answered the recipient's question.
	NotificationAnswer NotificationKind = "answer"
	// NotificationAccept — the recipient's answer was accepted.
	NotificationAccept NotificationKind = "accept"
	// NotificationMention — the recipient was @-mentioned in a question or answer.
	NotificationMention NotificationKind = "mention"
	// NotificationComment — someone commented on the recipient's answer.
	NotificationComment NotificationKind = "comment"
)

// Valid reports whether k is a recognised notification kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationAnswer, NotificationAccept, NotificationMention, NotificationComment:
		return true
	}
	return false
}

// Notification is a persisted alert addressed to a single user.
//
// INVARIANT: RecipientID != SenderID, always. Self-notifications are
// suppressed at creation time (see service.Notifier) rather than filtered
// out on read, so a stored record is always worth showing.
//
// QuestionID and AnswerID are optional context references: an "answer"
// notification carries both, a mention in a question body carries only the
// question. Records are created once and only ever mutated by the read-flag
// transition — the message text is rendered at creation and never edited.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient"`
	SenderID    string           `json:"sender"`
	Kind        NotificationKind `json:"type"`
	QuestionID  string           `json:"question,omitempty"`
	AnswerID    string           `json:"answer,omitempty"`
	Message     string           `json:"message"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`

	// Display fields populated on read/push paths so clients can render the
	// notification without extra lookups. Not stored columns.
	Sender        *PublicUser `json:"senderInfo,omitempty"`
	QuestionTitle string      `json:"questionTitle,omitempty"`
}
