package repository

import (
	"context"
	"fmt"

	"vantage/internal/models"

	"gorm.io/gorm"
)

type RiskRepositoryImpl struct {
	db *gorm.DB
}

func NewRiskRepository(db *gorm.DB) *RiskRepositoryImpl {
	return &RiskRepositoryImpl{db: db}
}

// List returns risks newest first, optionally limited to one project.
func (r *RiskRepositoryImpl) List(ctx context.Context, projectID string) ([]*models.Risk, error) {
	var risks []*models.Risk

	query := r.db.WithContext(ctx).Order("detected_at DESC")
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	if err := query.Find(&risks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch risks: %w", err)
	}

	return risks, nil
}

// ListOpen returns a project's open risks, newest first.
func (r *RiskRepositoryImpl) ListOpen(ctx context.Context, projectID string) ([]*models.Risk, error) {
	var risks []*models.Risk

	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, models.RiskOpen).
		Order("detected_at DESC").
		Find(&risks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open risks: %w", err)
	}

	return risks, nil
}
