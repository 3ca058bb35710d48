package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vantage/internal/models"

	"gorm.io/gorm"
)

type ActionRepositoryImpl struct {
	db *gorm.DB
}

func NewActionRepository(db *gorm.DB) *ActionRepositoryImpl {
	return &ActionRepositoryImpl{db: db}
}

func (r *ActionRepositoryImpl) Create(ctx context.Context, action *models.Action) (*models.Action, error) {
	if err := r.db.WithContext(ctx).Create(action).Error; err != nil {
		return nil, fmt.Errorf("failed to create action: %w", err)
	}
	return action, nil
}

func (r *ActionRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Action, error) {
	var action models.Action

	err := r.db.WithContext(ctx).First(&action, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("action %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch action %s: %w", id, err)
	}

	return &action, nil
}

// ListByRisk returns the actions suggested for a risk, newest first.
func (r *ActionRepositoryImpl) ListByRisk(ctx context.Context, riskID string) ([]*models.Action, error) {
	var actions []*models.Action

	err := r.db.WithContext(ctx).
		Where("risk_id = ?", riskID).
		Order("created_at DESC").
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch actions for risk %s: %w", riskID, err)
	}

	return actions, nil
}

// UpdateStatus sets an action's status. executedAt is only written when
// non-nil.
func (r *ActionRepositoryImpl) UpdateStatus(ctx context.Context, id string, status models.ActionStatus, executedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if executedAt != nil {
		updates["executed_at"] = *executedAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.Action{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update action %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("action %s: %w", id, ErrNotFound)
	}

	return nil
}
