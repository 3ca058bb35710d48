package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInboxListNewestFirst(t *testing.T) {
	inbox := NewInbox(10)
	ctx := context.Background()

	first := New(LevelError, "Action failed", "one")
	first.CreatedAt = time.Now().Add(-time.Minute)
	second := New(LevelError, "Action failed", "two")

	if err := inbox.Notify(ctx, first); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if err := inbox.Notify(ctx, second); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	list := inbox.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(list))
	}
	if list[0].ID != second.ID {
		t.Errorf("expected newest first, got %q", list[0].Description)
	}
}

func TestInboxDropsOldest(t *testing.T) {
	inbox := NewInbox(2)
	ctx := context.Background()
	base := time.Now()

	var ids []string
	for i := 0; i < 3; i++ {
		n := New(LevelInfo, "t", "d")
		n.CreatedAt = base.Add(time.Duration(i) * time.Second)
		ids = append(ids, n.ID)
		_ = inbox.Notify(ctx, n)
	}

	if _, ok := inbox.Get(ids[0]); ok {
		t.Error("oldest notification should have been dropped")
	}
	if len(inbox.List()) != 2 {
		t.Errorf("expected 2 retained, got %d", len(inbox.List()))
	}
}

func TestInboxRetryRunsActionOnce(t *testing.T) {
	inbox := NewInbox(10)
	calls := 0
	n := New(LevelError, "Action failed", "retry me").WithRetry("Retry", func() { calls++ })
	_ = inbox.Notify(context.Background(), n)

	if err := inbox.Retry(n.ID); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected action to run once, ran %d", calls)
	}
	if err := inbox.Retry(n.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after retry, got %v", err)
	}
}

func TestInboxRetryWithoutAction(t *testing.T) {
	inbox := NewInbox(10)
	n := New(LevelInfo, "Saved", "nothing to do")
	_ = inbox.Notify(context.Background(), n)

	if err := inbox.Retry(n.ID); !errors.Is(err, ErrNoAction) {
		t.Errorf("expected ErrNoAction, got %v", err)
	}
	if _, ok := inbox.Get(n.ID); !ok {
		t.Error("notification without action should stay in inbox")
	}
}

func TestInboxDismiss(t *testing.T) {
	inbox := NewInbox(10)
	n := New(LevelInfo, "t", "d")
	_ = inbox.Notify(context.Background(), n)

	if err := inbox.Dismiss(n.ID); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}
	if err := inbox.Dismiss(n.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMultiCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	delivered := 0
	m := Multi{
		NotifierFunc(func(context.Context, Notification) error { delivered++; return nil }),
		nil,
		NotifierFunc(func(context.Context, Notification) error { return boom }),
		NotifierFunc(func(context.Context, Notification) error { delivered++; return nil }),
	}

	err := m.Notify(context.Background(), New(LevelInfo, "t", "d"))
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to contain boom, got %v", err)
	}
	if delivered != 2 {
		t.Errorf("expected 2 deliveries despite failure, got %d", delivered)
	}
}
