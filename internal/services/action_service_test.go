package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"vantage/internal/models"
	"vantage/internal/notify"
	"vantage/internal/optimistic"
	"vantage/internal/repository"
)

const projectID = "7d1b2f4e-7f4a-4b8e-9f43-1f4c9a0c2b11"

func suggestedAction() *models.Action {
	risk := "risk-1"
	return &models.Action{
		ID:         "act-1",
		ProjectID:  projectID,
		RiskID:     &risk,
		Title:      "Escalate vendor delay",
		ActionType: models.ActionEmail,
		Status:     models.ActionSuggested,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestExecuteReturnsOptimisticActionAndCompletes(t *testing.T) {
	repo := newFakeActionRepo(suggestedAction())
	b := &recordingBroadcaster{}
	tracker := optimistic.New[models.Action](optimistic.WithSuccessGrace(10 * time.Millisecond))
	svc := NewActionService(repo, tracker, b, 20*time.Millisecond)

	got, err := svc.Execute(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got.Status != models.ActionExecuting {
		t.Errorf("expected executing, got %s", got.Status)
	}
	if got.ExecutedAt == nil {
		t.Error("expected executed_at to be set")
	}
	if _, ok := svc.Mutations()["action:act-1"]; !ok {
		t.Error("expected mutation to be tracked right after Execute")
	}

	svc.Wait()

	statuses := repo.statuses()
	if len(statuses) != 2 || statuses[0] != models.ActionExecuting || statuses[1] != models.ActionCompleted {
		t.Errorf("unexpected status writes %v", statuses)
	}
	if tracker.Len() != 0 {
		t.Errorf("expected tracker drained after grace, got %d", tracker.Len())
	}

	for _, s := range b.ofType(models.EventMutation) {
		if s.room != projectID {
			t.Errorf("mutation broadcast to wrong room %q", s.room)
		}
	}
	if n := len(b.ofType(models.EventMutation)); n < 3 {
		t.Errorf("expected pending, success and removal events, got %d", n)
	}
	if n := len(b.ofType(models.EventAction)); n != 1 {
		t.Errorf("expected one completion broadcast, got %d", n)
	}
}

func TestExecuteFailureRollsBackAndNotifies(t *testing.T) {
	repo := newFakeActionRepo(suggestedAction())
	repo.failUpdate = true
	b := &recordingBroadcaster{}
	inbox := notify.NewInbox(10)
	tracker := optimistic.New[models.Action](
		optimistic.WithNotifier(inbox),
		optimistic.WithScope(func(a models.Action) string { return a.ProjectID }),
	)
	svc := NewActionService(repo, tracker, b, time.Millisecond)

	if _, err := svc.Execute(context.Background(), "act-1"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	svc.Wait()

	if tracker.Len() != 0 {
		t.Errorf("failed mutation should be removed, got %d records", tracker.Len())
	}

	restored := b.ofType(models.EventAction)
	if len(restored) != 1 {
		t.Fatalf("expected previous action re-broadcast, got %d", len(restored))
	}

	list := inbox.List()
	if len(list) != 1 {
		t.Fatalf("expected one failure notification, got %d", len(list))
	}
	if list[0].MutationID != "action:act-1" {
		t.Errorf("unexpected mutation id %q", list[0].MutationID)
	}
	if list[0].Room != projectID {
		t.Errorf("failure notification should target the project room, got %q", list[0].Room)
	}

	repo.mu.Lock()
	repo.failUpdate = false
	repo.mu.Unlock()

	if err := inbox.Retry(list[0].ID); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(repo.statuses()) == 2 })
	svc.Wait()
}

func TestExecuteUnknownAction(t *testing.T) {
	svc := NewActionService(newFakeActionRepo(), optimistic.New[models.Action](), &recordingBroadcaster{}, time.Millisecond)

	_, err := svc.Execute(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(svc.Mutations()) != 0 {
		t.Error("nothing should be tracked for an unknown action")
	}
}

func TestCreateValidatesAndBroadcasts(t *testing.T) {
	repo := newFakeActionRepo()
	b := &recordingBroadcaster{}
	svc := NewActionService(repo, optimistic.New[models.Action](), b, time.Millisecond)

	_, err := svc.Create(context.Background(), "risk-1", models.ActionCreate{ProjectID: "nope", ActionType: "fax"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	created, err := svc.Create(context.Background(), "risk-1", models.ActionCreate{
		ProjectID:  projectID,
		Title:      "Book sync with vendor",
		ActionType: "calendar",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Status != models.ActionSuggested {
		t.Errorf("expected default status suggested, got %s", created.Status)
	}
	if got := b.ofType(models.EventAction); len(got) != 1 || got[0].room != projectID {
		t.Errorf("expected one action broadcast to the project room, got %+v", got)
	}
}
