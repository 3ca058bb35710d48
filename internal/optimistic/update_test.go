package optimistic

import (
	"context"
	"errors"
	"testing"
)

func TestUpdateExecuteSuccess(t *testing.T) {
	var order []string
	var got int
	update := NewUpdate(func(_ context.Context, n int) (int, error) {
		order = append(order, "write")
		return n * 2, nil
	}, func(r int) { got = r }, nil)

	result, err := update.Execute(context.Background(), 21, func() { order = append(order, "optimistic") })
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != 42 || got != 42 {
		t.Errorf("expected 42, got result=%d callback=%d", result, got)
	}
	if len(order) != 2 || order[0] != "optimistic" {
		t.Errorf("optimistic change must be applied before the write, got %v", order)
	}
	if update.Pending() {
		t.Error("Pending should be false after Execute")
	}
	if update.Err() != nil {
		t.Errorf("unexpected Err: %v", update.Err())
	}
}

func TestUpdateExecuteFailure(t *testing.T) {
	boom := errors.New("boom")
	var seen error
	var pendingDuringWrite bool

	var update *Update[string, struct{}]
	update = NewUpdate(func(context.Context, string) (struct{}, error) {
		pendingDuringWrite = update.Pending()
		return struct{}{}, boom
	}, nil, func(err error) { seen = err })

	_, err := update.Execute(context.Background(), "x", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !errors.Is(seen, boom) {
		t.Errorf("onError should see the failure, got %v", seen)
	}
	if !pendingDuringWrite {
		t.Error("Pending should be true while the write runs")
	}
	if !errors.Is(update.Err(), boom) {
		t.Errorf("Err should hold the last failure, got %v", update.Err())
	}
}
