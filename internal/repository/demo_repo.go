package repository

import (
	"context"
	"fmt"

	"vantage/internal/models"

	"gorm.io/gorm"
)

// DemoRepositoryImpl writes demo projects.
type DemoRepositoryImpl struct {
	db *gorm.DB
}

func NewDemoRepository(db *gorm.DB) *DemoRepositoryImpl {
	return &DemoRepositoryImpl{db: db}
}

// Seed inserts the project and its children in one transaction.
// Child rows get the project's ID after it is created.
func (r *DemoRepositoryImpl) Seed(ctx context.Context, seed *models.DemoSeed) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(seed.Project).Error; err != nil {
			return fmt.Errorf("failed to create demo project: %w", err)
		}

		for _, m := range seed.Metrics {
			m.ProjectID = seed.Project.ID
		}
		for _, risk := range seed.Risks {
			risk.ProjectID = seed.Project.ID
		}
		for _, s := range seed.Stakeholders {
			s.ProjectID = seed.Project.ID
		}

		if len(seed.Metrics) > 0 {
			if err := tx.Create(&seed.Metrics).Error; err != nil {
				return fmt.Errorf("failed to create demo metrics: %w", err)
			}
		}
		if len(seed.Risks) > 0 {
			if err := tx.Create(&seed.Risks).Error; err != nil {
				return fmt.Errorf("failed to create demo risks: %w", err)
			}
		}
		if len(seed.Stakeholders) > 0 {
			if err := tx.Create(&seed.Stakeholders).Error; err != nil {
				return fmt.Errorf("failed to create demo stakeholders: %w", err)
			}
		}

		return nil
	})
}
