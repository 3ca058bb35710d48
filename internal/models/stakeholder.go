package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Stakeholder is a person whose engagement feeds a project's health.
type Stakeholder struct {
	ID              string     `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID       string     `json:"project_id" gorm:"type:uuid;not null;index"`
	Name            string     `json:"name" gorm:"type:text;not null"`
	Role            string     `json:"role" gorm:"type:text;not null"`
	Email           *string    `json:"email" gorm:"type:text"`
	EngagementScore *float64   `json:"engagement_score"`
	Sentiment       *Sentiment `json:"sentiment" gorm:"type:varchar(20)"`
	LastInteraction *time.Time `json:"last_interaction"`
}

func (s *Stakeholder) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// DemoSeed is everything written for one demo project.
type DemoSeed struct {
	Project      *Project
	Metrics      []*HealthMetric
	Risks        []*Risk
	Stakeholders []*Stakeholder
}

// DemoResult summarizes a seeded demo project.
type DemoResult struct {
	ProjectID     string `json:"projectId"`
	HealthMetrics int    `json:"healthMetrics"`
	Risks         int    `json:"risks"`
	Stakeholders  int    `json:"stakeholders"`
}
