package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"vantage/internal/models"
	"vantage/internal/repository"
)

var errStore = errors.New("store unavailable")

type fakeActionRepo struct {
	mu         sync.Mutex
	actions    map[string]*models.Action
	failUpdate bool
	updates    []models.ActionStatus
}

func newFakeActionRepo(actions ...*models.Action) *fakeActionRepo {
	r := &fakeActionRepo{actions: make(map[string]*models.Action)}
	for _, a := range actions {
		r.actions[a.ID] = a
	}
	return r
}

func (r *fakeActionRepo) Create(_ context.Context, action *models.Action) (*models.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if action.ID == "" {
		action.ID = "generated"
	}
	r.actions[action.ID] = action
	return action, nil
}

func (r *fakeActionRepo) GetByID(_ context.Context, id string) (*models.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeActionRepo) UpdateStatus(_ context.Context, id string, status models.ActionStatus, executedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		return errStore
	}
	a, ok := r.actions[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	if executedAt != nil {
		a.ExecutedAt = executedAt
	}
	r.updates = append(r.updates, status)
	return nil
}

func (r *fakeActionRepo) statuses() []models.ActionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ActionStatus(nil), r.updates...)
}

type sent struct {
	room  string
	event models.EventType
	raw   []byte
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sent
}

func (b *recordingBroadcaster) Broadcast(room string, message []byte) {
	var ev struct {
		Type models.EventType `json:"type"`
	}
	_ = json.Unmarshal(message, &ev)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sent{room: room, event: ev.Type, raw: message})
}

func (b *recordingBroadcaster) ofType(t models.EventType) []sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sent
	for _, s := range b.sent {
		if s.event == t {
			out = append(out, s)
		}
	}
	return out
}
