package api

import (
	"context"
	"net/http"

	"vantage/internal/models"
	"vantage/internal/notify"
	"vantage/internal/services"
)

// Handlers consume these rather than the concrete repositories and services
// so tests can substitute fakes.

type ProjectStore interface {
	List(ctx context.Context) ([]*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	HealthMetrics(ctx context.Context, projectID string, limit int) ([]*models.HealthMetric, error)
}

type RiskStore interface {
	List(ctx context.Context, projectID string) ([]*models.Risk, error)
}

type ActionStore interface {
	ListByRisk(ctx context.Context, riskID string) ([]*models.Action, error)
}

type ActionService interface {
	Create(ctx context.Context, riskID string, in models.ActionCreate) (*models.Action, error)
	Execute(ctx context.Context, id string) (*models.Action, error)
}

type HealthService interface {
	Record(ctx context.Context, projectID string, in models.HealthMetricCreate) (*models.HealthMetric, error)
}

type NotificationInbox interface {
	List() []notify.Notification
	Dismiss(id string) error
	Retry(id string) error
}

type RealtimeHandler interface {
	HandleProjectConnection(w http.ResponseWriter, r *http.Request)
}

type DiagnosisService interface {
	Diagnose(ctx context.Context, projectID string) (*services.Diagnosis, error)
}

type DemoSeeder interface {
	Seed(ctx context.Context, userID string) (*models.DemoResult, error)
}
