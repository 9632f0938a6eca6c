// Package handler exposes the monitor's alerts and score history over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"dataguard/internal/monitor/models"
	"dataguard/internal/monitor/store"
	"dataguard/internal/platform/middleware"
	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
	"dataguard/pkg/platform/httputil"
)

// Service defines the monitor operations the handler needs.
type Service interface {
	ListAlerts(ctx context.Context, filter store.AlertFilter) ([]*models.Alert, error)
	Acknowledge(ctx context.Context, id domain.AlertID) (*models.Alert, error)
	ScoreWindow(ctx context.Context, scope domain.AssetID, n int) ([]models.ScoreSample, error)
}

// Handler handles monitor endpoints.
type Handler struct {
	logger  *slog.Logger
	monitor Service
}

// New creates a monitor Handler.
func New(monitor Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, monitor: monitor}
}

// Register registers the monitor routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/alerts", h.handleListAlerts)
	r.Post("/alerts/{alertID}/acknowledge", h.handleAcknowledge)
	r.Get("/scores", h.handleScores)
}

func (h *Handler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.AlertFilter{Limit: intQuery(q.Get("limit"))}
	if v := q.Get("acknowledged"); v != "" {
		acknowledged, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "acknowledged must be true or false"))
			return
		}
		filter.Acknowledged = &acknowledged
	}

	alerts, err := h.monitor.ListAlerts(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing alerts failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	alert, err := h.monitor.Acknowledge(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alert)
}

func (h *Handler) handleScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	scope := domain.AssetID(q.Get("assetId"))
	if scope == "" {
		scope = models.ScopeGlobal
	}
	n := intQuery(q.Get("limit"))
	if n <= 0 || n > 1000 {
		n = 120
	}

	window, err := h.monitor.ScoreWindow(ctx, scope, n)
	if err != nil {
		h.logger.ErrorContext(ctx, "reading score window failed",
			"request_id", middleware.GetRequestID(ctx),
			"scope", scope,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"scope": scope, "samples": window})
}

func intQuery(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
