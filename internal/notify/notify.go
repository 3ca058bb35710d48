// Package notify delivers user-facing notifications such as the
// "Action failed" toast raised when an optimistic mutation is rolled back.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Action is the button offered next to a notification.
type Action struct {
	Label string `json:"label"`
}

// Notification is a dismissible message for the dashboard.
type Notification struct {
	ID          string    `json:"id"`
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Action      *Action   `json:"action,omitempty"`
	MutationID  string    `json:"mutation_id,omitempty"`
	Cause       string    `json:"cause,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// Room limits delivery to viewers of one project. Empty means everyone.
	Room string `json:"room,omitempty"`
	// Origin identifies the publishing instance when relayed through Redis.
	Origin string `json:"origin,omitempty"`

	retry func()
}

func New(level Level, title, description string) Notification {
	return Notification{
		ID:          ksuid.New().String(),
		Level:       level,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// WithRetry attaches an action button that invokes fn when triggered.
func (n Notification) WithRetry(label string, fn func()) Notification {
	n.Action = &Action{Label: label}
	n.retry = fn
	return n
}

// Retry runs the attached action. It reports false when none is attached.
func (n Notification) Retry() bool {
	if n.retry == nil {
		return false
	}
	n.retry()
	return true
}

// Notifier is anything that can surface a notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Multi fans a notification out to every notifier, collecting errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	event := l.logger.Info()
	if n.Level == LevelError {
		event = l.logger.Warn()
	}
	event.
		Str("notification_id", n.ID).
		Str("title", n.Title).
		Str("mutation_id", n.MutationID).
		Str("cause", n.Cause).
		Msg(n.Description)
	return nil
}
