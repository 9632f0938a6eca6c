package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"dataguard/internal/rules/service"
	"dataguard/internal/rules/store"
)

// HandlerSuite exercises the rule registry routes against a real service
// backed by the in-memory store, so the tests cover HTTP concerns without
// duplicating registry validation coverage.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func (s *HandlerSuite) SetupTest() {
	svc, err := service.New(store.NewInMemory(), slog.New(slog.DiscardHandler))
	require.NoError(s.T(), err)

	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) putRule(ruleType string, body map[string]any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPut, "/rules/"+ruleType, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) emailBody() map[string]any {
	return map[string]any{
		"displayName":        "Email Address",
		"enabled":            true,
		"sensitivityLevel":   "high",
		"columnNameHints":    []string{"email", "email_address"},
		"valuePattern":       `^[^@\s]+@[^@\s]+$`,
		"requiresEncryption": true,
		"complianceTags":     []string{"GDPR"},
	}
}

func (s *HandlerSuite) TestUpsertRoundTrip() {
	rec := s.putRule("email", s.emailBody())
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	var resp ruleResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(s.T(), "email", resp.RuleType)
	assert.Equal(s.T(), "Email Address", resp.DisplayName)
	assert.Equal(s.T(), "high", resp.SensitivityLevel)
	assert.Equal(s.T(), []string{"email", "email_address"}, resp.ColumnNameHints)
	assert.True(s.T(), resp.RequiresEncryption)
	assert.False(s.T(), resp.RequiresMasking)
	assert.False(s.T(), resp.CreatedAt.IsZero())

	getReq := httptest.NewRequest(http.MethodGet, "/rules/email", nil)
	getRec := httptest.NewRecorder()
	s.router.ServeHTTP(getRec, getReq)

	require.Equal(s.T(), http.StatusOK, getRec.Code)
	var fetched ruleResponse
	require.NoError(s.T(), json.NewDecoder(getRec.Body).Decode(&fetched))
	assert.Equal(s.T(), resp.RuleType, fetched.RuleType)
	assert.Equal(s.T(), resp.ValuePattern, fetched.ValuePattern)
}

func (s *HandlerSuite) TestUpsertInvalidJSON() {
	req := httptest.NewRequest(http.MethodPut, "/rules/email",
		bytes.NewReader([]byte("not valid json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestUpsertUnknownField() {
	body := s.emailBody()
	body["ruleType"] = "email" // comes from the URL, not the body
	rec := s.putRule("email", body)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code, rec.Body.String())
}

func (s *HandlerSuite) TestUpsertRejectsMissingDisplayName() {
	body := s.emailBody()
	delete(body, "displayName")
	rec := s.putRule("email", body)

	require.Equal(s.T(), http.StatusBadRequest, rec.Code)

	var errResp struct {
		Error string `json:"error"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(s.T(), "invalid_input", errResp.Error)
}

func (s *HandlerSuite) TestUpsertRejectsBadRuleTypeSlug() {
	rec := s.putRule("Not%20A%20Slug", s.emailBody())
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestGetUnknownRule() {
	req := httptest.NewRequest(http.MethodGet, "/rules/passport", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	require.Equal(s.T(), http.StatusNotFound, rec.Code)

	var errResp struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(s.T(), "not_found", errResp.Error)
	assert.Contains(s.T(), errResp.Description, "passport")
}

func (s *HandlerSuite) TestListWithEnabledFilter() {
	require.Equal(s.T(), http.StatusOK, s.putRule("email", s.emailBody()).Code)

	ssn := s.emailBody()
	ssn["displayName"] = "Social Security Number"
	ssn["enabled"] = false
	ssn["columnNameHints"] = []string{"ssn"}
	require.Equal(s.T(), http.StatusOK, s.putRule("ssn", ssn).Code)

	req := httptest.NewRequest(http.MethodGet, "/rules?enabled=true", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(s.T(), http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(s.T(), resp.Rules, 1)
	assert.Equal(s.T(), "email", resp.Rules[0].RuleType)
	assert.Equal(s.T(), 1, resp.Pagination.Total)
}

func (s *HandlerSuite) TestListPagination() {
	for _, rt := range []string{"email", "ssn", "phone"} {
		body := s.emailBody()
		body["columnNameHints"] = []string{rt}
		require.Equal(s.T(), http.StatusOK, s.putRule(rt, body).Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/rules?page=2&pageSize=2", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(s.T(), http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(s.T(), resp.Rules, 1)
	assert.Equal(s.T(), 3, resp.Pagination.Total)
	assert.Equal(s.T(), 2, resp.Pagination.Page)
	assert.Equal(s.T(), 2, resp.Pagination.PageSize)
}

func (s *HandlerSuite) TestListRejectsBadEnabledValue() {
	req := httptest.NewRequest(http.MethodGet, "/rules?enabled=maybe", nil)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}
