// Package handler exposes the rule registry over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"dataguard/internal/platform/middleware"
	"dataguard/internal/rules/models"
	store "dataguard/internal/rules/store"
	"dataguard/pkg/domain"
	dErrors "dataguard/pkg/domain-errors"
	"dataguard/pkg/platform/httputil"
	"dataguard/pkg/platform/sentinel"
)

// Service defines the registry operations the handler needs.
type Service interface {
	Upsert(ctx context.Context, def models.RuleDefinition) (*models.RuleDefinition, error)
	Get(ctx context.Context, ruleType domain.RuleType) (*models.RuleDefinition, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.RuleDefinition, int, error)
}

// Handler handles rule registry endpoints.
type Handler struct {
	logger *slog.Logger
	rules  Service
}

// New creates a rule Handler.
func New(rules Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, rules: rules}
}

// Register registers the rule routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/rules", h.handleList)
	r.Get("/rules/{ruleType}", h.handleGet)
	r.Put("/rules/{ruleType}", h.handleUpsert)
}

// ruleResponse is the wire form of a rule definition.
type ruleResponse struct {
	RuleType           string    `json:"ruleType"`
	DisplayName        string    `json:"displayName"`
	Enabled            bool      `json:"enabled"`
	SensitivityLevel   string    `json:"sensitivityLevel"`
	ColumnNameHints    []string  `json:"columnNameHints"`
	ValuePattern       string    `json:"valuePattern,omitempty"`
	RequiresEncryption bool      `json:"requiresEncryption"`
	RequiresMasking    bool      `json:"requiresMasking"`
	ComplianceTags     []string  `json:"complianceTags"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toResponse(def *models.RuleDefinition) ruleResponse {
	return ruleResponse{
		RuleType:           string(def.RuleType),
		DisplayName:        def.DisplayName,
		Enabled:            def.Enabled,
		SensitivityLevel:   string(def.Sensitivity),
		ColumnNameHints:    def.ColumnNameHints,
		ValuePattern:       def.ValuePattern,
		RequiresEncryption: def.RequiresEncryption,
		RequiresMasking:    def.RequiresMasking,
		ComplianceTags:     def.ComplianceTags,
		CreatedAt:          def.CreatedAt,
		UpdatedAt:          def.UpdatedAt,
	}
}

type pagination struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type listResponse struct {
	Rules      []ruleResponse `json:"rules"`
	Pagination pagination     `json:"pagination"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.ListFilter{
		Page:     intQuery(q.Get("page")),
		PageSize: intQuery(q.Get("pageSize")),
	}
	if v := q.Get("enabled"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "enabled must be true or false"))
			return
		}
		filter.Enabled = &enabled
	}
	filter.Normalize()

	defs, total, err := h.rules.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing rules failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := listResponse{
		Rules: make([]ruleResponse, 0, len(defs)),
		Pagination: pagination{
			Total:    total,
			Page:     filter.Page,
			PageSize: filter.PageSize,
		},
	}
	for _, def := range defs {
		out.Rules = append(out.Rules, toResponse(def))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleType, err := domain.ParseRuleType(chi.URLParam(r, "ruleType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	def, err := h.rules.Get(ctx, ruleType)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "rule %s not found", ruleType))
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(def))
}

// upsertRequest is the PUT payload. The rule type comes from the URL.
type upsertRequest struct {
	DisplayName        string   `json:"displayName"`
	Enabled            bool     `json:"enabled"`
	SensitivityLevel   string   `json:"sensitivityLevel"`
	ColumnNameHints    []string `json:"columnNameHints"`
	ValuePattern       string   `json:"valuePattern"`
	RequiresEncryption bool     `json:"requiresEncryption"`
	RequiresMasking    bool     `json:"requiresMasking"`
	ComplianceTags     []string `json:"complianceTags"`
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	ruleType, err := domain.ParseRuleType(chi.URLParam(r, "ruleType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[upsertRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	def, err := h.rules.Upsert(ctx, models.RuleDefinition{
		RuleType:           ruleType,
		DisplayName:        req.DisplayName,
		Enabled:            req.Enabled,
		Sensitivity:        models.SensitivityLevel(req.SensitivityLevel),
		ColumnNameHints:    req.ColumnNameHints,
		ValuePattern:       req.ValuePattern,
		RequiresEncryption: req.RequiresEncryption,
		RequiresMasking:    req.RequiresMasking,
		ComplianceTags:     req.ComplianceTags,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "rule upsert rejected",
			"request_id", requestID,
			"rule_type", ruleType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(def))
}

func intQuery(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
