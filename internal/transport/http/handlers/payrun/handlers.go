package payrunhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"payadmin/internal/domain/auth"
	"payadmin/internal/domain/core"
	"payadmin/internal/domain/deduction"
	"payadmin/internal/domain/payrun"
	"payadmin/internal/platform/metrics"
	"payadmin/internal/transport/http/api"
	"payadmin/internal/transport/http/middleware"
	"payadmin/internal/transport/http/shared"
)

type Handler struct {
	Service *payrun.Service
	Metrics *metrics.Collector
	Perms   middleware.PermissionStore
}

func NewHandler(service *payrun.Service, collector *metrics.Collector, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Metrics: collector, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payruns", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/{payrunID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/{payrunID}/recalculate", h.handleRecalculate)
		r.With(middleware.RequirePermission(auth.PermPayrollSubmit, h.Perms)).Post("/{payrunID}/submit", h.handleSubmit)
	})
}

type createPayrunRequest struct {
	PayGroupID  string `json:"payGroupId"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var req createPayrunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("payGroupId", req.PayGroupID, "pay group is required")
	start, startOK := v.Date("periodStart", req.PeriodStart)
	end, endOK := v.Date("periodEnd", req.PeriodEnd)
	if startOK && endOK {
		v.DateOrder("periodStart", start, "periodEnd", end)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	run, summary, err := h.Service.Create(r.Context(), user.TenantID, req.PayGroupID, start, end)
	if errors.Is(err, core.ErrPayGroupNotFound) {
		api.Fail(w, http.StatusNotFound, "paygroup_not_found", "pay group not found", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, deduction.ErrUnknownJurisdiction) {
		api.Fail(w, http.StatusUnprocessableEntity, "jurisdiction_not_found", "pay group has an unknown jurisdiction", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payrun_create_failed", "failed to create payrun", middleware.GetRequestID(r.Context()))
		return
	}

	if h.Metrics != nil {
		h.Metrics.PayrunComputed()
	}
	api.Created(w, map[string]any{"payrun": run, "summary": summary}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	runs, total, err := h.Service.List(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payrun_list_failed", "failed to list payruns", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	run, items, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "payrunID"))
	if errors.Is(err, payrun.ErrPayrunNotFound) {
		api.Fail(w, http.StatusNotFound, "payrun_not_found", "payrun not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payrun_get_failed", "failed to load payrun", middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, map[string]any{
		"payrun":  run,
		"items":   items,
		"summary": payrun.Summarize(items, nil),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	summary, err := h.Service.Recalculate(r.Context(), user.TenantID, chi.URLParam(r, "payrunID"))
	if errors.Is(err, payrun.ErrPayrunNotFound) {
		api.Fail(w, http.StatusNotFound, "payrun_not_found", "payrun not found", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, payrun.ErrNotDraft) {
		api.Fail(w, http.StatusConflict, "payrun_not_draft", "only a draft payrun can be recalculated", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payrun_recalculate_failed", "failed to recalculate payrun", middleware.GetRequestID(r.Context()))
		return
	}

	if h.Metrics != nil {
		h.Metrics.PayrunComputed()
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	steps, err := h.Service.Submit(r.Context(), user.TenantID, chi.URLParam(r, "payrunID"))
	switch {
	case errors.Is(err, payrun.ErrPayrunNotFound):
		api.Fail(w, http.StatusNotFound, "payrun_not_found", "payrun not found", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, payrun.ErrNotDraft):
		api.Fail(w, http.StatusConflict, "payrun_not_draft", "payrun was already submitted", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, payrun.ErrNoPayItems):
		api.Fail(w, http.StatusUnprocessableEntity, "payrun_empty", "payrun has no computed pay items", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, payrun.ErrNoApprovers):
		api.Fail(w, http.StatusUnprocessableEntity, "no_approvers", "pay group has no configured approver levels", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "payrun_submit_failed", "failed to submit payrun", middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, steps, middleware.GetRequestID(r.Context()))
}
