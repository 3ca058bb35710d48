package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"vantage/internal/health"
	"vantage/internal/middleware"
	"vantage/internal/models"
	"vantage/internal/notify"
	"vantage/internal/repository"
	"vantage/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Handler serves the dashboard API.
type Handler struct {
	projects      ProjectStore
	risks         RiskStore
	actions       ActionStore
	actionService ActionService
	healthService HealthService
	inbox         NotificationInbox
	realtime      RealtimeHandler
	diagnosis     DiagnosisService
	demo          DemoSeeder
}

func NewHandler(
	projects ProjectStore,
	risks RiskStore,
	actions ActionStore,
	actionService ActionService,
	healthService HealthService,
	inbox NotificationInbox,
	realtime RealtimeHandler,
	diagnosis DiagnosisService,
	demo DemoSeeder,
) *Handler {
	return &Handler{
		projects:      projects,
		risks:         risks,
		actions:       actions,
		actionService: actionService,
		healthService: healthService,
		inbox:         inbox,
		realtime:      realtime,
		diagnosis:     diagnosis,
		demo:          demo,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	body := map[string]interface{}{"error": message}
	if err != nil {
		body["detail"] = err.Error()
		middleware.AddSpanError(r.Context(), err)
	}
	writeJSON(w, status, body)
}

func writeInvalid(w http.ResponseWriter, issues []services.Issue) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  "Invalid payload",
		"issues": issues,
	})
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeInvalid(w, []services.Issue{{Path: "", Message: err.Error()}})
		return false
	}
	return true
}

// writeFailure maps service and store errors to responses.
func writeFailure(w http.ResponseWriter, r *http.Request, message string, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeInvalid(w, verr.Issues)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Not found", nil)
	default:
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg(message)
		writeError(w, r, http.StatusInternalServerError, message, err)
	}
}

// Project handlers

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		writeFailure(w, r, "Failed to list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	project, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		writeFailure(w, r, "Failed to fetch project", err)
		return
	}

	metrics, err := h.projects.HealthMetrics(r.Context(), id, repository.DefaultMetricLimit)
	if err != nil {
		writeFailure(w, r, "Failed to fetch health metrics", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project": project,
		"metrics": metrics,
	})
}

// RecordHealth serves both POST and PUT; each call inserts a new sample.
func (h *Handler) RecordHealth(w http.ResponseWriter, r *http.Request) {
	var in models.HealthMetricCreate
	if !decode(w, r, &in) {
		return
	}

	metric, err := h.healthService.Record(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeFailure(w, r, "Failed to store health metric", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "metric": metric})
}

// ComputeHealthScore returns the weighted score of the posted dimensions.
func (h *Handler) ComputeHealthScore(w http.ResponseWriter, r *http.Request) {
	var m health.Metrics
	if !decode(w, r, &m) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"score": health.Score(m)})
}

// Risk and action handlers

func (h *Handler) ListRisks(w http.ResponseWriter, r *http.Request) {
	risks, err := h.risks.List(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		writeFailure(w, r, "Failed to list risks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"risks": risks})
}

func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.actions.ListByRisk(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFailure(w, r, "Failed to list actions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"actions": actions})
}

func (h *Handler) CreateAction(w http.ResponseWriter, r *http.Request) {
	var in models.ActionCreate
	if !decode(w, r, &in) {
		return
	}

	action, err := h.actionService.Create(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeFailure(w, r, "Failed to create action", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "action": action})
}

// ExecuteAction answers with the optimistic executing state; confirmation
// and completion arrive over the project websocket.
func (h *Handler) ExecuteAction(w http.ResponseWriter, r *http.Request) {
	action, err := h.actionService.Execute(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "Action not found", nil)
		return
	}
	if err != nil {
		writeFailure(w, r, "Failed to update action", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "action": action})
}

// Notification handlers

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": h.inbox.List()})
}

func (h *Handler) RetryNotification(w http.ResponseWriter, r *http.Request) {
	err := h.inbox.Retry(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, notify.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Notification not found", nil)
	case errors.Is(err, notify.ErrNoAction):
		writeError(w, r, http.StatusConflict, "Notification has no action", nil)
	case err != nil:
		writeFailure(w, r, "Failed to retry", err)
	default:
		writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
	}
}

func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.inbox.Dismiss(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Notification not found", nil)
			return
		}
		writeFailure(w, r, "Failed to dismiss", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Diagnosis and demo handlers

// Diagnose streams a plain text report one line per chunk.
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.ProjectID == "" {
		writeError(w, r, http.StatusBadRequest, "Project ID required", nil)
		return
	}

	report, err := h.diagnosis.Diagnose(r.Context(), in.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Project not found", nil)
			return
		}
		writeFailure(w, r, "Internal server error", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	err = report.Stream(r.Context(), func(chunk string) error {
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("project_id", in.ProjectID).Msg("diagnosis stream ended early")
	}
}

// SeedDemo creates the demo project. The body is optional.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID string `json:"userId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	result, err := h.demo.Seed(r.Context(), in.UserID)
	if err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("demo seed failed")
		middleware.AddSpanError(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Demo project seeded successfully",
		"data":    result,
	})
}

// WebSocket endpoints

func (h *Handler) HandleProjectWebSocket(w http.ResponseWriter, r *http.Request) {
	h.realtime.HandleProjectConnection(w, r)
}
