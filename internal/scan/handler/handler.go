// Package handler exposes scan triggers over HTTP.
package handler

import (
	"context"
	"io"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"dataguard/internal/platform/middleware"
	"dataguard/internal/scan/service"
	"dataguard/pkg/domain"
	"dataguard/pkg/platform/httputil"
)

// Service defines the scan operations the handler needs.
type Service interface {
	TriggerScan(ctx context.Context, ruleType domain.RuleType, dataSourceID domain.DataSourceID, clearExisting bool) (service.Summary, error)
	RescanAll(ctx context.Context) (service.AllSummary, error)
}

// Handler handles scan endpoints.
type Handler struct {
	logger *slog.Logger
	scans  Service
}

// New creates a scan Handler.
func New(scans Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, scans: scans}
}

// Register registers the scan routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/rules/rescan-all", h.handleRescanAll)
	r.Post("/rules/{ruleType}/rescan", h.handleRescan)
}

// rescanRequest is the rescan payload. Both fields are optional.
type rescanRequest struct {
	ClearExisting bool   `json:"clearExisting"`
	DataSourceID  string `json:"dataSourceId"`
}

func (h *Handler) handleRescan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	ruleType, err := domain.ParseRuleType(chi.URLParam(r, "ruleType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req rescanRequest
	if r.ContentLength != 0 && r.Body != http.NoBody {
		var ok bool
		req, ok = httputil.DecodeAndPrepare[rescanRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
	} else if r.Body != nil {
		_, _ = io.Copy(io.Discard, r.Body)
	}

	summary, err := h.scans.TriggerScan(ctx, ruleType, domain.DataSourceID(req.DataSourceID), req.ClearExisting)
	if err != nil {
		h.logger.ErrorContext(ctx, "rescan failed",
			"request_id", requestID,
			"rule_type", ruleType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleRescanAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.scans.RescanAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "rescan-all failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
