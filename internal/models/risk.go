package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RiskSeverity string

const (
	SeverityLow      RiskSeverity = "low"
	SeverityMedium   RiskSeverity = "medium"
	SeverityHigh     RiskSeverity = "high"
	SeverityCritical RiskSeverity = "critical"
)

type RiskStatus string

const (
	RiskOpen       RiskStatus = "open"
	RiskMonitoring RiskStatus = "monitoring"
	RiskMitigated  RiskStatus = "mitigated"
	RiskClosed     RiskStatus = "closed"
)

// Risk is a detected threat to a project's health.
type Risk struct {
	ID          string       `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID   string       `json:"project_id" gorm:"type:uuid;not null;index"`
	Title       string       `json:"title" gorm:"type:text;not null"`
	Description *string      `json:"description" gorm:"type:text"`
	Severity    RiskSeverity `json:"severity" gorm:"type:varchar(20);not null;default:'medium'"`
	Probability *float64     `json:"probability"`
	ImpactScore *float64     `json:"impact_score"`
	Status      RiskStatus   `json:"status" gorm:"type:varchar(20);not null;default:'open'"`
	DetectedAt  time.Time    `json:"detected_at" gorm:"not null;index"`
	MitigatedAt *time.Time   `json:"mitigated_at"`
}

func (r *Risk) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.DetectedAt.IsZero() {
		r.DetectedAt = time.Now().UTC()
	}
	return nil
}

type ActionType string

const (
	ActionEmail    ActionType = "email"
	ActionCalendar ActionType = "calendar"
	ActionSlack    ActionType = "slack"
	ActionJira     ActionType = "jira"
)

var ActionTypes = []ActionType{ActionEmail, ActionCalendar, ActionSlack, ActionJira}

type ActionStatus string

const (
	ActionSuggested ActionStatus = "suggested"
	ActionApproved  ActionStatus = "approved"
	ActionExecuting ActionStatus = "executing"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
)

var ActionStatuses = []ActionStatus{ActionSuggested, ActionApproved, ActionExecuting, ActionCompleted, ActionFailed}

// Action is a mitigation suggested for a risk.
type Action struct {
	ID          string       `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID   string       `json:"project_id" gorm:"type:uuid;not null;index"`
	RiskID      *string      `json:"risk_id" gorm:"type:uuid;index"`
	Title       string       `json:"title" gorm:"type:text;not null"`
	Description *string      `json:"description" gorm:"type:text"`
	ActionType  ActionType   `json:"action_type" gorm:"type:varchar(20);not null"`
	SuccessRate *float64     `json:"success_rate"`
	Cost        *float64     `json:"cost"`
	Status      ActionStatus `json:"status" gorm:"type:varchar(20);not null;default:'suggested'"`
	ExecutedAt  *time.Time   `json:"executed_at"`
	CreatedAt   time.Time    `json:"created_at" gorm:"column:created_at;autoCreateTime;index"`
}

func (a *Action) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ActionCreate is the payload accepted when suggesting an action for a risk.
type ActionCreate struct {
	ProjectID   string   `json:"projectId"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	ActionType  string   `json:"actionType"`
	SuccessRate *float64 `json:"successRate,omitempty"`
	Cost        *float64 `json:"cost,omitempty"`
	Status      *string  `json:"status,omitempty"`
	ExecutedAt  *string  `json:"executedAt,omitempty"`
}
