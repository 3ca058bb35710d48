package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a row of the projects table.
// IDs are UUIDs so the dashboard can validate them client-side.
type Project struct {
	ID                 string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name               string    `json:"name" gorm:"type:text;not null"`
	Description        *string   `json:"description" gorm:"type:text"`
	HealthScore        *float64  `json:"health_score"`
	BudgetVelocity     *float64  `json:"budget_velocity"`
	TimelineConfidence *float64  `json:"timeline_confidence"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime;index"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// HealthMetric is one recorded health sample for a project.
type HealthMetric struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID      string    `json:"project_id" gorm:"type:uuid;not null;index:idx_metric_project_time"`
	HealthScore    float64   `json:"health_score" gorm:"not null"`
	BudgetVelocity *float64  `json:"budget_velocity"`
	ResourceGaps   *int      `json:"resource_gaps"`
	VendorRisks    *int      `json:"vendor_risks"`
	RecordedAt     time.Time `json:"recorded_at" gorm:"not null;index:idx_metric_project_time"`

	Project *Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

func (m *HealthMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// HealthMetricCreate is the payload accepted by the health endpoint.
type HealthMetricCreate struct {
	HealthScore    *float64 `json:"healthScore"`
	BudgetVelocity *float64 `json:"budgetVelocity,omitempty"`
	ResourceGaps   *float64 `json:"resourceGaps,omitempty"`
	VendorRisks    *float64 `json:"vendorRisks,omitempty"`
	RecordedAt     *string  `json:"recordedAt,omitempty"`
}

func (HealthMetric) TableName() string {
	return "health_metrics"
}
