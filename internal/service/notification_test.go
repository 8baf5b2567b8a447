package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/devforum/internal/apperror"
	"github.com/sakif/devforum/internal/model"
)

// seedNotification stores a notification directly through the notifier.
func seedNotification(t *testing.T, env *testEnv, sender, recipient *model.User, message string) *model.Notification {
	t.Helper()
	stored, err := env.notifier.Notify(context.Background(), &model.Notification{
		RecipientID: recipient.ID,
		SenderID:    sender.ID,
		Kind:        model.NotificationMention,
		Message:     message,
	})
	if err != nil {
		t.Fatalf("seeding notification: %v", err)
	}
	return stored
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestNotificationList_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	sender := env.seedUser(t, "sender")
	recipient := env.seedUser(t, "recipient")

	seedNotification(t, env, sender, recipient, "first")
	seedNotification(t, env, sender, recipient, "second")

	records, err := env.notificationSvc.List(context.Background(), recipient.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
	if records[0].Message != "second" || records[1].Message != "first" {
		t.Errorf("order = [%q, %q], want newest first", records[0].Message, records[1].Message)
	}
}

func TestNotificationList_CapsAtFifty(t *testing.T) {
	env := newTestEnv(t)
	sender := env.seedUser(t, "sender")
	recipient := env.seedUser(t, "recipient")

	for i := 0; i < MaxNotificationList+10; i++ {
		seedNotification(t, env, sender, recipient, fmt.Sprintf("message %d", i))
	}

	records, err := env.notificationSvc.List(context.Background(), recipient.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != MaxNotificationList {
		t.Errorf("List() returned %d records, want cap of %d", len(records), MaxNotificationList)
	}
}

func TestNotificationList_PopulatesSenderInfo(t *testing.T) {
	env := newTestEnv(t)
	sender := env.seedUser(t, "sender")
	recipient := env.seedUser(t, "recipient")
	seedNotification(t, env, sender, recipient, "hello")

	records, err := env.notificationSvc.List(context.Background(), recipient.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if records[0].Sender == nil || records[0].Sender.Username != "sender" {
		t.Errorf("Sender = %v, want sender's public profile", records[0].Sender)
	}
}

func TestNotificationList_Empty(t *testing.T) {
	env := newTestEnv(t)
	recipient := env.seedUser(t, "recipient")

	records, err := env.notificationSvc.List(context.Background(), recipient.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("List() returned %d records, want 0", len(records))
	}
}

// =========================================================================
// MARK READ TESTS
// =========================================================================

func TestMarkRead_Success(t *testing.T) {
	env := newTestEnv(t)
	sender := env.seedUser(t, "sender")
	recipient := env.seedUser(t, "recipient")
	n := seedNotification(t, env, sender, recipient, "hello")

	ctx := context.Background()
	if err := env.notificationSvc.MarkRead(ctx, recipient.ID, n.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	stored, err := env.notifications.GetByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("reading notification: %v", err)
	}
	if !stored.Read {
		t.Error("notification should be marked read")
	}
}

func TestMarkRead_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	sender := env.seedUser(t, "sender")
	recipient := env.seedUser(t, "recipient")
	n := seedNotification(t, env, sender, recipient, "hello")

	ctx := context.Background()
	if err := env.notificationSvc.MarkRead(ctx, recipient.ID, n.ID); err != nil {
		t.Fatalf("first MarkRead() error = %v", err)
	}
	if err := env.notificationSvc.MarkRead(ctx, recipient.ID, n.ID); err != nil {
		t.Errorf("second MarkRead() error = %v, want nil (idempotent)", err)
	}
}

func TestMarkRead_OnlyRecipient(t *testing.T) {
	env := newTestEnv(t)
	sender := env.seedUser(t, "sender")
	recipient := env.seedUser(t, "recipient")
	n := seedNotification(t, env, sender, recipient, "hello")

	// Not even the sender may mark it.
	err := env.notificationSvc.MarkRead(context.Background(), sender.ID, n.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestMarkRead_NotFound(t *testing.T) {
	env := newTestEnv(t)
	recipient := env.seedUser(t, "recipient")

	err := env.notificationSvc.MarkRead(context.Background(), recipient.ID, "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// MARK ALL READ / UNREAD COUNT TESTS
// =========================================================================

func TestMarkAllRead_ReturnsChangedCountThenZero(t *testing.T) {
	env := newTestEnv(t)
	sender := env.seedUser(t, "sender")
	recipient := env.seedUser(t, "recipient")

	for i := 0; i < 3; i++ {
		seedNotification(t, env, sender, recipient, fmt.Sprintf("message %d", i))
	}

	ctx := context.Background()
	n, err := env.notificationSvc.MarkAllRead(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if n != 3 {
		t.Errorf("first MarkAllRead() = %d, want 3", n)
	}

	// Nothing left unread: the second call changes zero rows, no error.
	n, err = env.notificationSvc.MarkAllRead(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("second MarkAllRead() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second MarkAllRead() = %d, want 0", n)
	}
}

func TestMarkAllRead_OnlyTouchesOwnNotifications(t *testing.T) {
	env := newTestEnv(t)
	sender := env.seedUser(t, "sender")
	r1 := env.seedUser(t, "r1")
	r2 := env.seedUser(t, "r2")
	seedNotification(t, env, sender, r1, "for r1")
	seedNotification(t, env, sender, r2, "for r2")

	ctx := context.Background()
	if _, err := env.notificationSvc.MarkAllRead(ctx, r1.ID); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}

	count, err := env.notificationSvc.UnreadCount(ctx, r2.ID)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("r2 unread count = %d, want 1 (untouched)", count)
	}
}

func TestUnreadCount(t *testing.T) {
	env := newTestEnv(t)
	sender := env.seedUser(t, "sender")
	recipient := env.seedUser(t, "recipient")

	ctx := context.Background()
	count, err := env.notificationSvc.UnreadCount(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("UnreadCount() = %d, want 0", count)
	}

	n1 := seedNotification(t, env, sender, recipient, "one")
	seedNotification(t, env, sender, recipient, "two")

	count, err = env.notificationSvc.UnreadCount(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("UnreadCount() = %d, want 2", count)
	}

	if err := env.notificationSvc.MarkRead(ctx, recipient.ID, n1.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	count, err = env.notificationSvc.UnreadCount(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("UnreadCount() = %d, want 1 after marking one read", count)
	}
}
