package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vantage/internal/models"
	"vantage/internal/repository"
)

type fakeDiagnosisSource struct {
	project *models.Project
	metrics []*models.HealthMetric
	limit   int
}

func (f *fakeDiagnosisSource) GetByID(_ context.Context, id string) (*models.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.project, nil
}

func (f *fakeDiagnosisSource) HealthMetrics(_ context.Context, _ string, limit int) ([]*models.HealthMetric, error) {
	f.limit = limit
	return f.metrics, nil
}

type fakeOpenRisks []*models.Risk

func (f fakeOpenRisks) ListOpen(context.Context, string) ([]*models.Risk, error) {
	return f, nil
}

func TestDiagnosisLinesHealthyProject(t *testing.T) {
	text := strings.Join(DiagnosisLines(&models.Project{Name: "Atlas", HealthScore: ptr(87.3)}, 3, 0), "\n")

	for _, want := range []string{
		"Analyzing Atlas...",
		"Health Score: 87.3/100",
		"✓ Project is healthy",
		"Active Risks: 0",
		"✓ No critical risks detected",
		"• Health metrics stable",
		"2. Address 0 open risks",
		"Analysis complete.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("diagnosis missing %q:\n%s", want, text)
		}
	}
}

func TestDiagnosisLinesThresholds(t *testing.T) {
	tests := []struct {
		name    string
		score   *float64
		verdict string
	}{
		{"attention", ptr(60.0), "⚠ Project needs attention"},
		{"at risk", ptr(59.9), "✗ Project at risk"},
		{"no score", nil, "✗ Project at risk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := DiagnosisLines(&models.Project{Name: "p", HealthScore: tt.score}, 0, 1)
			if lines[3] != tt.verdict {
				t.Errorf("verdict = %q, want %q", lines[3], tt.verdict)
			}
		})
	}
}

func TestDiagnosisLinesSingleRisk(t *testing.T) {
	text := strings.Join(DiagnosisLines(&models.Project{Name: "p"}, 0, 1), "\n")

	for _, want := range []string{
		"⚠ Immediate action required",
		"• Insufficient data for trend analysis",
		"2. Address 1 open risk\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("diagnosis missing %q:\n%s", want, text)
		}
	}
}

func TestDiagnoseStreamsEveryLine(t *testing.T) {
	src := &fakeDiagnosisSource{
		project: &models.Project{ID: "p1", Name: "Atlas", HealthScore: ptr(72.0)},
		metrics: []*models.HealthMetric{{HealthScore: 72}},
	}
	svc := NewDiagnosisService(src, fakeOpenRisks{{ID: "r1"}, {ID: "r2"}}, 0)

	d, err := svc.Diagnose(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if src.limit != diagnosisMetricLimit {
		t.Errorf("metric limit = %d, want %d", src.limit, diagnosisMetricLimit)
	}

	var chunks []string
	err = d.Stream(context.Background(), func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(chunks) != len(d.Lines) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(d.Lines))
	}
	if chunks[0] != "Analyzing Atlas...\n" {
		t.Errorf("first chunk = %q", chunks[0])
	}
	if !strings.Contains(strings.Join(chunks, ""), "Active Risks: 2\n") {
		t.Error("stream missing open risk count")
	}
}

func TestDiagnoseUnknownProject(t *testing.T) {
	svc := NewDiagnosisService(&fakeDiagnosisSource{}, fakeOpenRisks{}, 0)

	if _, err := svc.Diagnose(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStreamStopsWhenContextEnds(t *testing.T) {
	svc := NewDiagnosisService(&fakeDiagnosisSource{project: &models.Project{ID: "p1"}}, fakeOpenRisks{}, DefaultLineDelay)
	d, err := svc.Diagnose(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	written := 0
	err = d.Stream(ctx, func(string) error {
		written++
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if written != 1 {
		t.Errorf("wrote %d chunks after cancel, want 1", written)
	}
}

func TestStreamReturnsWriteError(t *testing.T) {
	d := &Diagnosis{Lines: []string{"a", "b"}}
	err := d.Stream(context.Background(), func(string) error { return errStore })
	if !errors.Is(err, errStore) {
		t.Fatalf("err = %v, want errStore", err)
	}
}
