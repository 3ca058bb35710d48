package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vantage/internal/middleware"
	"vantage/internal/models"
	"vantage/internal/optimistic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultCompleteAfter is how long an executing action takes to complete.
const DefaultCompleteAfter = 2 * time.Second

// ActionService executes mitigation actions optimistically: clients see the
// action as executing at once, and see it revert if the store rejects it.
type ActionService struct {
	repo          ActionRepository
	tracker       *optimistic.Tracker[models.Action]
	broadcaster   Broadcaster
	completeAfter time.Duration
	logger        zerolog.Logger

	wg sync.WaitGroup
}

// NewActionService wires the service and forwards tracker changes to the
// project rooms of broadcaster.
func NewActionService(repo ActionRepository, tracker *optimistic.Tracker[models.Action], broadcaster Broadcaster, completeAfter time.Duration) *ActionService {
	if completeAfter <= 0 {
		completeAfter = DefaultCompleteAfter
	}
	s := &ActionService{
		repo:          repo,
		tracker:       tracker,
		broadcaster:   broadcaster,
		completeAfter: completeAfter,
		logger:        log.Logger.With().Str("component", "actions").Logger(),
	}
	tracker.OnChange(s.publishMutation)
	return s
}

func mutationKey(actionID string) string {
	return "action:" + actionID
}

// mutationView is the wire form of a tracked action mutation.
type mutationView struct {
	ID        string            `json:"id"`
	Status    optimistic.Status `json:"status"`
	Removed   bool              `json:"removed"`
	Timestamp int64             `json:"timestamp"`
	Action    models.Action     `json:"action"`
}

func (s *ActionService) publishMutation(ev optimistic.Event[models.Action]) {
	msg, err := models.EncodeEvent(models.EventMutation, mutationView{
		ID:        ev.ID,
		Status:    ev.Record.Status,
		Removed:   ev.Removed,
		Timestamp: ev.Record.Timestamp.UnixMilli(),
		Action:    ev.Record.Data,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode mutation event")
		return
	}
	s.broadcaster.Broadcast(ev.Record.Data.ProjectID, msg)
}

func (s *ActionService) publishAction(action models.Action) {
	msg, err := models.EncodeEvent(models.EventAction, action)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode action event")
		return
	}
	s.broadcaster.Broadcast(action.ProjectID, msg)
}

// Create validates and stores a new action suggested for riskID.
func (s *ActionService) Create(ctx context.Context, riskID string, in models.ActionCreate) (*models.Action, error) {
	action, err := BuildAction(riskID, in)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, action)
	if err != nil {
		return nil, err
	}
	s.publishAction(*created)
	return created, nil
}

// Execute marks the action as executing and returns that optimistic view.
// The store write happens in the background; on failure the previous state
// is re-broadcast and a retryable notification is raised.
func (s *ActionService) Execute(ctx context.Context, id string) (*models.Action, error) {
	ctx, span := middleware.StartSpan(ctx, "ActionService.Execute",
		attribute.String("action.id", id),
	)
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		return nil, err
	}

	previous := *current
	executedAt := time.Now().UTC()
	executing := *current
	executing.Status = models.ActionExecuting
	executing.ExecutedAt = &executedAt

	s.tracker.Mutate(ctx, mutationKey(id), executing,
		func(ctx context.Context) error {
			if err := s.repo.UpdateStatus(ctx, id, models.ActionExecuting, &executedAt); err != nil {
				return fmt.Errorf("mark action executing: %w", err)
			}
			s.scheduleCompletion(executing)
			return nil
		},
		func() { s.publishAction(previous) },
	)

	return &executing, nil
}

// scheduleCompletion stands in for the real integration run.
func (s *ActionService) scheduleCompletion(action models.Action) {
	s.wg.Add(1)
	time.AfterFunc(s.completeAfter, func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.repo.UpdateStatus(ctx, action.ID, models.ActionCompleted, nil); err != nil {
			s.logger.Error().Err(err).Str("action_id", action.ID).Msg("failed to complete action")
			return
		}
		action.Status = models.ActionCompleted
		s.publishAction(action)
	})
}

// Mutations returns the currently tracked action mutations.
func (s *ActionService) Mutations() map[string]optimistic.Record[models.Action] {
	return s.tracker.Snapshot()
}

// Wait blocks until pending confirmations and completions have run.
func (s *ActionService) Wait() {
	s.tracker.Wait()
	s.wg.Wait()
}
