package repository

import (
	"context"
	"errors"
	"fmt"

	"vantage/internal/models"

	"gorm.io/gorm"
)

// DefaultMetricLimit is how many health samples a project view shows.
const DefaultMetricLimit = 12

// ProjectRepositoryImpl reads projects and their health history.
type ProjectRepositoryImpl struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepositoryImpl {
	return &ProjectRepositoryImpl{db: db}
}

// List returns projects, most recently updated first.
func (r *ProjectRepositoryImpl) List(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project

	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project

	err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project %s: %w", id, err)
	}

	return &project, nil
}

// HealthMetrics returns the latest samples for a project, newest first.
func (r *ProjectRepositoryImpl) HealthMetrics(ctx context.Context, projectID string, limit int) ([]*models.HealthMetric, error) {
	if limit <= 0 {
		limit = DefaultMetricLimit
	}

	var metrics []*models.HealthMetric
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch health metrics for project %s: %w", projectID, err)
	}

	return metrics, nil
}

// RecordHealthMetric inserts a sample and mirrors its score onto the
// project row in one transaction.
func (r *ProjectRepositoryImpl) RecordHealthMetric(ctx context.Context, metric *models.HealthMetric) (*models.HealthMetric, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(metric).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"health_score": metric.HealthScore}
		if metric.BudgetVelocity != nil {
			updates["budget_velocity"] = *metric.BudgetVelocity
		}
		return tx.Model(&models.Project{}).
			Where("id = ?", metric.ProjectID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store health metric: %w", err)
	}

	return metric, nil
}
