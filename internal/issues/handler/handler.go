// Package handler exposes the issue lifecycle over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"dataguard/internal/issues/models"
	store "dataguard/internal/issues/store"
	"dataguard/internal/platform/middleware"
	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
	"dataguard/pkg/platform/httputil"
)

// Service defines the lifecycle operations the handler needs.
type Service interface {
	Get(ctx context.Context, id domain.IssueID) (*models.QualityIssue, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.QualityIssue, int, error)
	UpdateStatus(ctx context.Context, id domain.IssueID, to models.Status, note string) (*models.QualityIssue, error)
}

// Handler handles issue endpoints.
type Handler struct {
	logger *slog.Logger
	issues Service
}

// New creates an issue Handler.
func New(issues Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, issues: issues}
}

// Register registers the issue routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/issues", h.handleList)
	r.Get("/issues/{issueID}", h.handleGet)
	r.Patch("/issues/{issueID}/status", h.handleUpdateStatus)
}

// issueResponse is the wire form of an issue.
type issueResponse struct {
	ID                  string     `json:"id"`
	AssetID             string     `json:"assetId"`
	ColumnQualifiedName string     `json:"columnQualifiedName"`
	RuleType            string     `json:"ruleType"`
	Status              string     `json:"status"`
	Severity            string     `json:"severity"`
	Description         string     `json:"description"`
	ResolvedAt          *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func toResponse(issue *models.QualityIssue) issueResponse {
	return issueResponse{
		ID:                  issue.ID.String(),
		AssetID:             string(issue.AssetID),
		ColumnQualifiedName: issue.ColumnQualifiedName,
		RuleType:            string(issue.RuleType),
		Status:              string(issue.Status),
		Severity:            string(issue.Severity),
		Description:         issue.Description,
		ResolvedAt:          issue.ResolvedAt,
		CreatedAt:           issue.CreatedAt,
		UpdatedAt:           issue.UpdatedAt,
	}
}

type pagination struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type listResponse struct {
	Issues     []issueResponse `json:"issues"`
	Pagination pagination      `json:"pagination"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.ListFilter{
		Status:   models.Status(q.Get("status")),
		AssetID:  domain.AssetID(q.Get("assetId")),
		Page:     intQuery(q.Get("page")),
		PageSize: intQuery(q.Get("pageSize")),
	}
	if rt := q.Get("ruleType"); rt != "" {
		ruleType, err := domain.ParseRuleType(rt)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.RuleType = ruleType
	}
	filter.Normalize()

	issues, total, err := h.issues.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing issues failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := listResponse{
		Issues: make([]issueResponse, 0, len(issues)),
		Pagination: pagination{
			Total:    total,
			Page:     filter.Page,
			PageSize: filter.PageSize,
		},
	}
	for _, issue := range issues {
		out.Issues = append(out.Issues, toResponse(issue))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseIssueID(chi.URLParam(r, "issueID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	issue, err := h.issues.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(issue))
}

// updateStatusRequest is the PATCH payload.
type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	id, err := domain.ParseIssueID(chi.URLParam(r, "issueID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[updateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.Status == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "status is required"))
		return
	}

	issue, err := h.issues.UpdateStatus(ctx, id, models.Status(req.Status), req.Notes)
	if err != nil {
		h.logger.WarnContext(ctx, "status update rejected",
			"request_id", requestID,
			"issue_id", id,
			"target_status", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(issue))
}

func intQuery(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
