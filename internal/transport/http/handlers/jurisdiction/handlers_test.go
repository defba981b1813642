package jurisdictionhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"payadmin/internal/domain/auth"
	"payadmin/internal/domain/deduction"
	"payadmin/internal/transport/http/middleware"
)

type allowAllPerms struct{}

func (allowAllPerms) HasPermission(context.Context, string, string) (bool, error) {
	return true, nil
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	rules, err := deduction.NewRegistry(deduction.Builtin())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	router := chi.NewRouter()
	NewHandler(rules, allowAllPerms{}).RegisterRoutes(router)
	return router
}

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleID: "r1"})
	return req.WithContext(ctx)
}

func TestListCodes(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/jurisdictions/", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Success bool     `json:"success"`
		Data    []string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Success || len(envelope.Data) != 2 {
		t.Errorf("envelope %+v", envelope)
	}
}

func TestGetRulesUnknownCode(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/jurisdictions/ZZ", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestPreviewComputesDeductions(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/jurisdictions/KE/preview",
		`{"gross": 50000, "classification": "local"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data deduction.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Net != envelope.Data.Gross-envelope.Data.TotalDeductions {
		t.Errorf("net identity broken: %+v", envelope.Data)
	}
	if len(envelope.Data.Deductions) == 0 {
		t.Error("expected deduction lines")
	}
}

func TestPreviewNegativeGross(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/jurisdictions/KE/preview", `{"gross": -5}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}
