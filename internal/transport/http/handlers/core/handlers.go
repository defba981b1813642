package corehandler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"payadmin/internal/domain/auth"
	"payadmin/internal/domain/core"
	"payadmin/internal/domain/deduction"
	"payadmin/internal/platform/crypto"
	"payadmin/internal/transport/http/api"
	"payadmin/internal/transport/http/middleware"
	"payadmin/internal/transport/http/shared"
)

type Handler struct {
	Store  *core.Store
	Rules  *deduction.Registry
	Crypto *crypto.Service
	Perms  middleware.PermissionStore
}

func NewHandler(store *core.Store, rules *deduction.Registry, crypt *crypto.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Store: store, Rules: rules, Crypto: crypt, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
	})
	r.Route("/pay-groups", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayGroupsRead, h.Perms)).Get("/", h.handleListPayGroups)
		r.With(middleware.RequirePermission(auth.PermPayGroupsRead, h.Perms)).Get("/{payGroupID}", h.handleGetPayGroup)
		r.With(middleware.RequirePermission(auth.PermPayGroupsWrite, h.Perms)).Post("/", h.handleCreatePayGroup)
	})
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	employees, total, err := h.Store.ListEmployees(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employees_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

type createEmployeeRequest struct {
	FirstName        string          `json:"firstName"`
	LastName         string          `json:"lastName"`
	Email            string          `json:"email"`
	Classification   string          `json:"classification"`
	JurisdictionCode string          `json:"jurisdictionCode"`
	PayGroupID       string          `json:"payGroupId"`
	Salary           int64           `json:"salary"`
	RuleOverrides    map[string]bool `json:"ruleOverrides"`
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var req createEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("firstName", req.FirstName, "first name is required")
	v.Required("lastName", req.LastName, "last name is required")
	v.Required("email", req.Email, "email is required")
	v.Required("jurisdictionCode", req.JurisdictionCode, "jurisdiction code is required")
	v.Required("classification", req.Classification, "classification is required")
	v.Enum("classification", req.Classification,
		[]string{string(deduction.ClassLocal), string(deduction.ClassExpatriate), string(deduction.ClassExempt)},
		"must be one of local, expatriate, exempt")
	if req.Salary < 0 {
		v.Add("salary", "must not be negative")
	}
	if req.JurisdictionCode != "" {
		if _, err := h.Rules.Get(strings.ToUpper(req.JurisdictionCode)); err != nil {
			v.Add("jurisdictionCode", "unknown jurisdiction")
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	emp := core.Employee{
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Email:            strings.TrimSpace(strings.ToLower(req.Email)),
		Classification:   deduction.Classification(strings.ToLower(req.Classification)),
		JurisdictionCode: strings.ToUpper(req.JurisdictionCode),
		PayGroupID:       req.PayGroupID,
	}

	var salaryPlain *int64
	var salaryEnc []byte
	if h.Crypto != nil && h.Crypto.Configured() {
		enc, err := h.Crypto.Encrypt([]byte(strconv.FormatInt(req.Salary, 10)))
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to protect salary", middleware.GetRequestID(r.Context()))
			return
		}
		salaryEnc = enc
	} else {
		salaryPlain = &req.Salary
	}

	id, err := h.Store.CreateEmployee(r.Context(), user.TenantID, emp, salaryPlain, salaryEnc, req.RuleOverrides)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		return
	}

	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPayGroups(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	groups, err := h.Store.ListPayGroups(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "paygroups_list_failed", "failed to list pay groups", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, groups, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPayGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	group, err := h.Store.PayGroupByID(r.Context(), user.TenantID, chi.URLParam(r, "payGroupID"))
	if err == core.ErrPayGroupNotFound {
		api.Fail(w, http.StatusNotFound, "paygroup_not_found", "pay group not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "paygroup_get_failed", "failed to load pay group", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, group, middleware.GetRequestID(r.Context()))
}

type createPayGroupRequest struct {
	Name             string               `json:"name"`
	JurisdictionCode string               `json:"jurisdictionCode"`
	PayFrequency     string               `json:"payFrequency"`
	ApproverLevels   []core.ApproverLevel `json:"approverLevels"`
}

func (h *Handler) handleCreatePayGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var req createPayGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", req.Name, "name is required")
	v.Required("jurisdictionCode", req.JurisdictionCode, "jurisdiction code is required")
	v.Enum("payFrequency", req.PayFrequency, []string{"monthly", "weekly", "biweekly"},
		"must be one of monthly, weekly, biweekly")

	var set deduction.JurisdictionSet
	if req.JurisdictionCode != "" {
		found, err := h.Rules.Get(strings.ToUpper(req.JurisdictionCode))
		if err != nil {
			v.Add("jurisdictionCode", "unknown jurisdiction")
		} else {
			set = found
		}
	}
	for i, lvl := range req.ApproverLevels {
		if lvl.Level != i+1 {
			v.Add("approverLevels", "levels must be contiguous starting at 1")
			break
		}
		if strings.TrimSpace(lvl.ApproverID) == "" {
			v.Add("approverLevels", "each level needs an approver")
			break
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	freq := strings.ToLower(strings.TrimSpace(req.PayFrequency))
	if freq == "" {
		freq = "monthly"
	}
	group := core.PayGroup{
		Name:             strings.TrimSpace(req.Name),
		JurisdictionCode: set.Code,
		PayFrequency:     freq,
		Currency:         set.Currency,
		ApproverLevels:   req.ApproverLevels,
	}

	id, err := h.Store.CreatePayGroup(r.Context(), user.TenantID, group)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "paygroup_create_failed", "failed to create pay group", middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}
