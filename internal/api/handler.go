package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reviewlens/reviewlens/internal/chat"
	"github.com/reviewlens/reviewlens/internal/config"
	"github.com/reviewlens/reviewlens/internal/dashboard"
	"github.com/reviewlens/reviewlens/internal/observability"
	"github.com/reviewlens/reviewlens/internal/schema"
)

// HealthCheck probes a backing dependency, typically the database.
type HealthCheck func(ctx context.Context) error

// ChatRunner is the question pipeline behind POST /api/chat.
type ChatRunner interface {
	Ask(ctx context.Context, question string) chat.Response
}

// DashboardBuilder assembles the fixed metric bundle for one dashboard.
type DashboardBuilder interface {
	Build(ctx context.Context, name string) (dashboard.Bundle, error)
}

// InsightWriter turns a metric bundle into narrative text.
type InsightWriter interface {
	Compose(ctx context.Context, bundle dashboard.Bundle) (string, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Health            HealthCheck
	DependencyTimeout time.Duration
	Registry          *schema.Registry
	Chat              ChatRunner
	Dashboards        DashboardBuilder
	Insights          InsightWriter
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		handleHealth(cfg, deps, w, r)
	})
	mux.HandleFunc("GET /api/tables", func(w http.ResponseWriter, r *http.Request) {
		handleListTables(deps, w, r)
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	mux.HandleFunc("POST /api/social-insights", func(w http.ResponseWriter, r *http.Request) {
		handleDashboardInsights(deps, dashboard.Social, w, r)
	})
	mux.HandleFunc("POST /api/trend-insights", func(w http.ResponseWriter, r *http.Request) {
		handleDashboardInsights(deps, dashboard.Trend, w, r)
	})
	mux.HandleFunc("POST /api/complaint-insights", func(w http.ResponseWriter, r *http.Request) {
		handleDashboardInsights(deps, dashboard.Complaint, w, r)
	})
	mux.Handle("GET /v1/metrics", promhttp.Handler())

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
		corsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func handleHealth(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": cfg.Service.Name, "db": "unconfigured"})
		return
	}
	timeout := deps.DependencyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	if err := deps.Health(ctx); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "unhealthy", "service": cfg.Service.Name, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": cfg.Service.Name, "db": "connected"})
}

// CheckDatabase pings the pool so health reflects real connectivity, not
// just process liveness.
func CheckDatabase(pinger interface {
	PingContext(ctx context.Context) error
}) HealthCheck {
	return func(ctx context.Context) error {
		return pinger.PingContext(ctx)
	}
}

// corsMiddleware mirrors the permissive browser policy the dashboard UI
// relies on.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
