package services

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"vantage/internal/models"

	"github.com/rs/zerolog/log"
)

const demoMetricDays = 12

// DemoService seeds a sample project the dashboard can be shown with.
type DemoService struct {
	store DemoStore
	now   func() time.Time
	rnd   func() float64
}

func NewDemoService(store DemoStore) *DemoService {
	return &DemoService{store: store, now: time.Now, rnd: rand.Float64}
}

// Seed writes a demo project with twelve days of health history,
// two open risks and three stakeholders.
func (s *DemoService) Seed(ctx context.Context, userID string) (*models.DemoResult, error) {
	seed := s.build()
	if err := s.store.Seed(ctx, seed); err != nil {
		return nil, err
	}

	log.Info().
		Str("project_id", seed.Project.ID).
		Str("user_id", userID).
		Msg("seeded demo project")

	return &models.DemoResult{
		ProjectID:     seed.Project.ID,
		HealthMetrics: len(seed.Metrics),
		Risks:         len(seed.Risks),
		Stakeholders:  len(seed.Stakeholders),
	}, nil
}

func (s *DemoService) build() *models.DemoSeed {
	now := s.now().UTC()

	seed := &models.DemoSeed{
		Project: &models.Project{
			Name:               "Epic EHR Implementation - Demo",
			Description:        ptr("Enterprise-wide Electronic Health Record system implementation (Demo Project)"),
			HealthScore:        ptr(87.3),
			BudgetVelocity:     ptr(15.2),
			TimelineConfidence: ptr(73.0),
		},
	}

	for i := 0; i < demoMetricDays; i++ {
		daysAgo := demoMetricDays - i
		seed.Metrics = append(seed.Metrics, &models.HealthMetric{
			HealthScore:    87.3 + s.rnd()*5 - 2.5,
			BudgetVelocity: ptr(15.2 + s.rnd()*3 - 1.5),
			ResourceGaps:   ptr(int(math.Floor(s.rnd() * 5))),
			VendorRisks:    ptr(int(math.Floor(s.rnd() * 3))),
			RecordedAt:     now.AddDate(0, 0, -daysAgo),
		})
	}

	seed.Risks = []*models.Risk{
		{
			Title:       "Vendor Resource Constraint",
			Description: ptr("Epic implementation team showing 23% increase in timeline estimates"),
			Severity:    models.SeverityHigh,
			Probability: ptr(0.68),
			ImpactScore: ptr(2400000.0),
			Status:      models.RiskOpen,
			DetectedAt:  now,
		},
		{
			Title:       "Budget Velocity Increase",
			Description: ptr("Spending 15% faster than planned, consuming contingency buffer"),
			Severity:    models.SeverityMedium,
			Probability: ptr(0.75),
			ImpactScore: ptr(320000.0),
			Status:      models.RiskOpen,
			DetectedAt:  now,
		},
	}

	seed.Stakeholders = []*models.Stakeholder{
		stakeholder("Dr. Sarah Chen", "Chief Medical Officer", "schen@demo.org", 92, models.SentimentPositive),
		stakeholder("Michael Torres", "CFO", "mtorres@demo.org", 78, models.SentimentNeutral),
		stakeholder("James Wilson", "CIO", "jwilson@demo.org", 95, models.SentimentPositive),
	}

	return seed
}

func stakeholder(name, role, email string, engagement float64, sentiment models.Sentiment) *models.Stakeholder {
	return &models.Stakeholder{
		Name:            name,
		Role:            role,
		Email:           ptr(email),
		EngagementScore: ptr(engagement),
		Sentiment:       ptr(sentiment),
	}
}

func ptr[T any](v T) *T { return &v }
