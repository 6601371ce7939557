package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voltora-energy/be-install-workflow/internal/platform/logger"
	"github.com/voltora-energy/be-install-workflow/internal/platform/middleware"
	"github.com/voltora-energy/be-install-workflow/internal/workflow"
)

// These tests cover the handler's own plumbing: method dispatch, required
// parameters, and the authentication/authorization boundary. All of them
// return before any service is reached, so the services can stay nil.
func newTestMux() *http.ServeMux {
	h := NewHTTPHandler(nil, nil, nil, nil, logger.Nop())
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func asActor(req *http.Request, role workflow.Role) *http.Request {
	ctx := middleware.WithActor(req.Context(), middleware.Actor{ID: "user-1", Role: role})
	return req.WithContext(ctx)
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux()

	for _, path := range []string{
		"/api/v1/workflow/reset",
		"/api/v1/workflow/step",
		"/api/v1/workflow/advance",
		"/api/v1/workflow/qc/request",
		"/api/v1/quotations/submit",
		"/api/v1/survey/complete",
	} {
		req := asActor(httptest.NewRequest(http.MethodGet, path, nil), workflow.RoleSuperAdmin)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestRequiredQueryParams(t *testing.T) {
	mux := newTestMux()

	for path, param := range map[string]string{
		"/api/v1/workflow":           "customer_id",
		"/api/v1/workflow/audit":     "customer_id",
		"/api/v1/quotations/get":     "id",
		"/api/v1/quotations/history": "quotation_id",
		"/api/v1/payments":           "customer_id",
		"/api/v1/payments/missing":   "customer_id",
	} {
		req := asActor(httptest.NewRequest(http.MethodGet, path, nil), workflow.RoleSuperAdmin)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), param)
	}
}

func TestUnauthenticated(t *testing.T) {
	mux := newTestMux()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflow",
		strings.NewReader(`{"customer_id":"cust-1"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOperationPolicy(t *testing.T) {
	mux := newTestMux()

	// Engineers cannot initialize workflows.
	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/workflow",
		strings.NewReader(`{"customer_id":"cust-1"}`)), workflow.RoleEngineer)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Sales executives cannot approve QC.
	req = asActor(httptest.NewRequest(http.MethodPost, "/api/v1/workflow/qc/approve",
		strings.NewReader(`{"customer_id":"cust-1"}`)), workflow.RoleSalesExecutive)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInvalidBody(t *testing.T) {
	mux := newTestMux()

	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/workflow",
		strings.NewReader(`{not json`)), workflow.RoleSuperAdmin)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidStepStatus(t *testing.T) {
	mux := newTestMux()

	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/workflow/step",
		strings.NewReader(`{"step_id":"step-1","status":"wat"}`)), workflow.RoleEngineer)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
