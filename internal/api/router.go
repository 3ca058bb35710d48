package api

import (
	"net/http"

	"vantage/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// tracing first, then recovery, CORS and metrics
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.MetricsMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Project endpoints
	api.HandleFunc("/projects", h.ListProjects).Methods("GET")
	api.HandleFunc("/projects/{id}", h.GetProject).Methods("GET")
	api.HandleFunc("/projects/{id}/health", h.RecordHealth).Methods("POST", "PUT")
	api.HandleFunc("/health/score", h.ComputeHealthScore).Methods("POST")
	api.HandleFunc("/diagnose", h.Diagnose).Methods("POST")
	api.HandleFunc("/demo", h.SeedDemo).Methods("POST")

	// Risk and action endpoints
	api.HandleFunc("/risks", h.ListRisks).Methods("GET")
	api.HandleFunc("/risks/{id}/actions", h.ListActions).Methods("GET")
	api.HandleFunc("/risks/{id}/actions", h.CreateAction).Methods("POST")
	api.HandleFunc("/actions/{id}/execute", h.ExecuteAction).Methods("POST")

	// Notification endpoints
	api.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/retry", h.RetryNotification).Methods("POST")
	api.HandleFunc("/notifications/{id}", h.DismissNotification).Methods("DELETE")

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler())

	r.HandleFunc("/ws/projects/{id}", h.HandleProjectWebSocket)

	return r
}
