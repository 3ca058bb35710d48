package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisNotifier, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	notifier, err := NewRedisNotifier("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis notifier: %v", err)
	}
	return notifier, s
}

func TestNewRedisNotifier(t *testing.T) {
	notifier, s := setupTestRedis(t)
	defer s.Close()
	defer notifier.Close()

	if err := notifier.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisNotifierBadURL(t *testing.T) {
	if _, err := NewRedisNotifier("not a url"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestRedisNotifierPublishSubscribe(t *testing.T) {
	notifier, s := setupTestRedis(t)
	defer s.Close()
	defer notifier.Close()

	other, err := NewRedisNotifier("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create second notifier: %v", err)
	}
	defer other.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received, err := other.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	n := New(LevelError, "Action failed", "Your change couldn't be saved. Please try again.").
		WithRetry("Retry", func() {})
	n.MutationID = "edit-2"
	n.Cause = "network"

	if err := notifier.Notify(ctx, n); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	select {
	case got := <-received:
		if got.ID != n.ID {
			t.Errorf("expected id %s, got %s", n.ID, got.ID)
		}
		if got.MutationID != "edit-2" || got.Cause != "network" {
			t.Errorf("unexpected payload: %+v", got)
		}
		if got.Action == nil || got.Action.Label != "Retry" {
			t.Errorf("expected Retry action label, got %+v", got.Action)
		}
		if got.Retry() {
			t.Error("retry callback must not travel over redis")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for notification")
	}
}

func TestRedisNotifierSkipsOwnMessages(t *testing.T) {
	notifier, s := setupTestRedis(t)
	defer s.Close()
	defer notifier.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received, err := notifier.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	own := New(LevelInfo, "own", "skip me")
	if err := notifier.Notify(ctx, own); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	foreign := New(LevelInfo, "foreign", "deliver me")
	foreign.Origin = "another-instance"
	if err := notifier.Notify(ctx, foreign); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	select {
	case got := <-received:
		if got.ID != foreign.ID {
			t.Errorf("expected only the foreign notification, got %q", got.Title)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for notification")
	}
}
