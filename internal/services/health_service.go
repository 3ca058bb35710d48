package services

import (
	"context"
	"time"

	"vantage/internal/models"
	"vantage/internal/optimistic"

	"github.com/rs/zerolog/log"
)

// metricView is the wire form of a health sample pushed to clients.
type metricView struct {
	Pending bool                `json:"pending"`
	Failed  bool                `json:"failed,omitempty"`
	Metric  models.HealthMetric `json:"metric"`
}

// HealthService records health samples and shows them to project viewers
// before the insert completes.
type HealthService struct {
	update      *optimistic.Update[*models.HealthMetric, *models.HealthMetric]
	broadcaster Broadcaster
	now         func() time.Time
}

func NewHealthService(repo HealthMetricRepository, broadcaster Broadcaster) *HealthService {
	s := &HealthService{broadcaster: broadcaster, now: time.Now}
	s.update = optimistic.NewUpdate(repo.RecordHealthMetric,
		func(m *models.HealthMetric) { s.publish(m, false, false) },
		func(err error) { log.Warn().Err(err).Msg("health metric insert failed") },
	)
	return s
}

func (s *HealthService) publish(m *models.HealthMetric, pending, failed bool) {
	msg, err := models.EncodeEvent(models.EventMetric, metricView{Pending: pending, Failed: failed, Metric: *m})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode metric event")
		return
	}
	s.broadcaster.Broadcast(m.ProjectID, msg)
}

// Record validates and stores a health sample for projectID.
func (s *HealthService) Record(ctx context.Context, projectID string, in models.HealthMetricCreate) (*models.HealthMetric, error) {
	metric, err := BuildHealthMetric(projectID, in, s.now())
	if err != nil {
		return nil, err
	}

	stored, err := s.update.Execute(ctx, metric, func() { s.publish(metric, true, false) })
	if err != nil {
		s.publish(metric, false, true)
		return nil, err
	}
	return stored, nil
}

// Pending reports whether an insert is in flight.
func (s *HealthService) Pending() bool {
	return s.update.Pending()
}
