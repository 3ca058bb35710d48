package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vantage/internal/models"
)

const (
	// DefaultLineDelay paces streamed diagnosis lines.
	DefaultLineDelay = 50 * time.Millisecond

	diagnosisMetricLimit = 10
)

// DiagnosisService produces a scripted health diagnosis for a project.
type DiagnosisService struct {
	projects DiagnosisSource
	risks    OpenRiskLister
	delay    time.Duration
}

func NewDiagnosisService(projects DiagnosisSource, risks OpenRiskLister, delay time.Duration) *DiagnosisService {
	if delay < 0 {
		delay = 0
	}
	return &DiagnosisService{projects: projects, risks: risks, delay: delay}
}

// Diagnosis is a ready-to-stream report.
type Diagnosis struct {
	Lines []string
	delay time.Duration
}

// Diagnose loads the project and builds its report. A missing project
// surfaces the repository's not-found error.
func (s *DiagnosisService) Diagnose(ctx context.Context, projectID string) (*Diagnosis, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	metrics, err := s.projects.HealthMetrics(ctx, projectID, diagnosisMetricLimit)
	if err != nil {
		return nil, err
	}

	risks, err := s.risks.ListOpen(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &Diagnosis{Lines: DiagnosisLines(project, len(metrics), len(risks)), delay: s.delay}, nil
}

// Stream hands each line, newline terminated, to write. It waits the
// configured delay after every line and stops early when ctx ends.
func (d *Diagnosis) Stream(ctx context.Context, write func(chunk string) error) error {
	for _, line := range d.Lines {
		if err := write(line + "\n"); err != nil {
			return err
		}
		if d.delay == 0 {
			continue
		}
		timer := time.NewTimer(d.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// DiagnosisLines renders the report for a project with the given number
// of recent metrics and open risks.
func DiagnosisLines(project *models.Project, metrics, openRisks int) []string {
	score := "n/a"
	verdict := "✗ Project at risk"
	if project.HealthScore != nil {
		hs := *project.HealthScore
		score = strconv.FormatFloat(hs, 'f', -1, 64)
		switch {
		case hs >= 80:
			verdict = "✓ Project is healthy"
		case hs >= 60:
			verdict = "⚠ Project needs attention"
		}
	}

	riskLine := "✓ No critical risks detected"
	if openRisks > 0 {
		riskLine = "⚠ Immediate action required"
	}

	trend := "• Insufficient data for trend analysis"
	if metrics > 0 {
		trend = "• Health metrics stable"
	}

	plural := "s"
	if openRisks == 1 {
		plural = ""
	}

	text := fmt.Sprintf(`Analyzing %s...

Health Score: %s/100
%s

Active Risks: %d
%s

Recent Trends:
%s

Recommendations:
1. Monitor health score weekly
2. Address %d open risk%s
3. Review stakeholder engagement

Analysis complete.`, project.Name, score, verdict, openRisks, riskLine, trend, openRisks, plural)

	return strings.Split(text, "\n")
}
