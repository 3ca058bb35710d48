package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound = errors.New("notification not found")
	ErrNoAction = errors.New("notification has no action")
)

// Inbox keeps undismissed notifications in memory so they can be listed,
// dismissed or retried over the API. The oldest entries are dropped once
// limit is reached.
type Inbox struct {
	mu    sync.Mutex
	items map[string]Notification
	limit int
}

func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = 100
	}
	return &Inbox{
		items: make(map[string]Notification),
		limit: limit,
	}
}

func (i *Inbox) Notify(_ context.Context, n Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.items[n.ID] = n
	for len(i.items) > i.limit {
		delete(i.items, i.oldestLocked())
	}
	return nil
}

func (i *Inbox) oldestLocked() string {
	var oldest string
	for id, n := range i.items {
		if oldest == "" || n.CreatedAt.Before(i.items[oldest].CreatedAt) ||
			(n.CreatedAt.Equal(i.items[oldest].CreatedAt) && id < oldest) {
			oldest = id
		}
	}
	return oldest
}

// List returns notifications newest first.
func (i *Inbox) List() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	result := make([]Notification, 0, len(i.items))
	for _, n := range i.items {
		result = append(result, n)
	}
	sort.Slice(result, func(a, b int) bool {
		if result[a].CreatedAt.Equal(result[b].CreatedAt) {
			return result[a].ID > result[b].ID
		}
		return result[a].CreatedAt.After(result[b].CreatedAt)
	})
	return result
}

func (i *Inbox) Get(id string) (Notification, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	n, ok := i.items[id]
	return n, ok
}

func (i *Inbox) Dismiss(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.items[id]; !ok {
		return ErrNotFound
	}
	delete(i.items, id)
	return nil
}

// Retry dismisses the notification and runs its action.
func (i *Inbox) Retry(id string) error {
	i.mu.Lock()
	n, ok := i.items[id]
	if !ok {
		i.mu.Unlock()
		return ErrNotFound
	}
	if n.retry == nil {
		i.mu.Unlock()
		return ErrNoAction
	}
	delete(i.items, id)
	i.mu.Unlock()

	n.Retry()
	return nil
}
