package jurisdictionhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"payadmin/internal/domain/auth"
	"payadmin/internal/domain/deduction"
	"payadmin/internal/transport/http/api"
	"payadmin/internal/transport/http/middleware"
)

type Handler struct {
	Rules *deduction.Registry
	Perms middleware.PermissionStore
}

func NewHandler(rules *deduction.Registry, perms middleware.PermissionStore) *Handler {
	return &Handler{Rules: rules, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/jurisdictions", func(r chi.Router) {
		read := middleware.RequirePermission(auth.PermJurisdictionRead, h.Perms)
		r.With(read).Get("/", h.handleListCodes)
		r.With(read).Get("/{code}", h.handleGetRules)
		r.With(read).Post("/{code}/preview", h.handlePreview)
	})
}

func (h *Handler) handleListCodes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Rules.Codes(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRules(w http.ResponseWriter, r *http.Request) {
	set, err := h.Rules.Get(strings.ToUpper(chi.URLParam(r, "code")))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "jurisdiction_not_found", "unknown jurisdiction", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, set, middleware.GetRequestID(r.Context()))
}

type previewRequest struct {
	Gross          deduction.Money `json:"gross"`
	Classification string          `json:"classification"`
	RuleOverrides  map[string]bool `json:"ruleOverrides"`
}

// handlePreview runs the deduction engine on an arbitrary gross amount so
// rule changes can be checked without touching a payrun.
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	set, err := h.Rules.Get(strings.ToUpper(chi.URLParam(r, "code")))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "jurisdiction_not_found", "unknown jurisdiction", middleware.GetRequestID(r.Context()))
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	class := deduction.Classification(strings.ToLower(req.Classification))
	if class == "" {
		class = deduction.ClassLocal
	}

	result, err := deduction.ComputePayItem(req.Gross, set, deduction.ForClassification(class, req.RuleOverrides))
	if errors.Is(err, deduction.ErrNegativeGross) {
		api.Fail(w, http.StatusBadRequest, "invalid_gross", "gross pay must not be negative", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "preview_failed", "failed to compute preview", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}
