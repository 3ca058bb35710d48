package services

import (
	"context"
	"time"

	"vantage/internal/models"
)

// ActionRepository is what the action service needs from storage.
type ActionRepository interface {
	Create(ctx context.Context, action *models.Action) (*models.Action, error)
	GetByID(ctx context.Context, id string) (*models.Action, error)
	UpdateStatus(ctx context.Context, id string, status models.ActionStatus, executedAt *time.Time) error
}

// HealthMetricRepository is what the health service needs from storage.
type HealthMetricRepository interface {
	RecordHealthMetric(ctx context.Context, metric *models.HealthMetric) (*models.HealthMetric, error)
}

// Broadcaster pushes an encoded event to every client watching room.
type Broadcaster interface {
	Broadcast(room string, message []byte)
}

// DiagnosisSource is what a diagnosis reads about a project.
type DiagnosisSource interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	HealthMetrics(ctx context.Context, projectID string, limit int) ([]*models.HealthMetric, error)
}

// OpenRiskLister lists the risks still open on a project.
type OpenRiskLister interface {
	ListOpen(ctx context.Context, projectID string) ([]*models.Risk, error)
}

// DemoStore persists a seeded demo project.
type DemoStore interface {
	Seed(ctx context.Context, seed *models.DemoSeed) error
}
