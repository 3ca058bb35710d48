package services

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"vantage/internal/models"

	"github.com/google/uuid"
)

// Issue is one field-level validation failure.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError carries every issue found in a payload.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Path+": "+issue.Message)
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

type issues []Issue

func (is *issues) add(path, format string, args ...any) {
	*is = append(*is, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (is issues) err() error {
	if len(is) == 0 {
		return nil
	}
	return &ValidationError{Issues: is}
}

func checkRange(is *issues, path string, v *float64, min, max float64) {
	if v != nil && (*v < min || *v > max) {
		is.add(path, "must be between %g and %g", min, max)
	}
}

func checkInt(is *issues, path string, v *float64) *int {
	if v == nil {
		return nil
	}
	if *v != math.Trunc(*v) {
		is.add(path, "must be an integer")
		return nil
	}
	n := int(*v)
	return &n
}

func parseDatetime(is *issues, path string, v *string) *time.Time {
	if v == nil {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		is.add(path, "must be an RFC3339 datetime")
		return nil
	}
	ts = ts.UTC()
	return &ts
}

// BuildHealthMetric validates in and returns the row to insert for projectID.
// A missing recordedAt defaults to now.
func BuildHealthMetric(projectID string, in models.HealthMetricCreate, now time.Time) (*models.HealthMetric, error) {
	var is issues

	if in.HealthScore == nil {
		is.add("healthScore", "is required")
	}
	checkRange(&is, "healthScore", in.HealthScore, 0, 100)
	gaps := checkInt(&is, "resourceGaps", in.ResourceGaps)
	vendor := checkInt(&is, "vendorRisks", in.VendorRisks)
	recordedAt := parseDatetime(&is, "recordedAt", in.RecordedAt)

	if err := is.err(); err != nil {
		return nil, err
	}

	metric := &models.HealthMetric{
		ProjectID:      projectID,
		HealthScore:    *in.HealthScore,
		BudgetVelocity: in.BudgetVelocity,
		ResourceGaps:   gaps,
		VendorRisks:    vendor,
		RecordedAt:     now.UTC(),
	}
	if recordedAt != nil {
		metric.RecordedAt = *recordedAt
	}
	return metric, nil
}

// BuildAction validates in and returns the action to insert for riskID.
func BuildAction(riskID string, in models.ActionCreate) (*models.Action, error) {
	var is issues

	if _, err := uuid.Parse(in.ProjectID); err != nil {
		is.add("projectId", "must be a UUID")
	}
	if strings.TrimSpace(in.Title) == "" {
		is.add("title", "must not be empty")
	}
	actionType := models.ActionType(in.ActionType)
	if !slices.Contains(models.ActionTypes, actionType) {
		is.add("actionType", "must be one of %v", models.ActionTypes)
	}
	checkRange(&is, "successRate", in.SuccessRate, 0, 100)

	status := models.ActionSuggested
	if in.Status != nil {
		status = models.ActionStatus(*in.Status)
		if !slices.Contains(models.ActionStatuses, status) {
			is.add("status", "must be one of %v", models.ActionStatuses)
		}
	}
	executedAt := parseDatetime(&is, "executedAt", in.ExecutedAt)

	if err := is.err(); err != nil {
		return nil, err
	}

	rid := riskID
	return &models.Action{
		ProjectID:   in.ProjectID,
		RiskID:      &rid,
		Title:       in.Title,
		Description: in.Description,
		ActionType:  actionType,
		SuccessRate: in.SuccessRate,
		Cost:        in.Cost,
		Status:      status,
		ExecutedAt:  executedAt,
	}, nil
}
