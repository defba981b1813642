package approvalhandler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"payadmin/internal/domain/approval"
	"payadmin/internal/domain/auth"
	"payadmin/internal/platform/metrics"
	"payadmin/internal/transport/http/api"
	"payadmin/internal/transport/http/middleware"
)

type Handler struct {
	Service     *approval.Service
	Metrics     *metrics.Collector
	Perms       middleware.PermissionStore
	Idempotency *middleware.IdempotencyStore
}

func NewHandler(service *approval.Service, collector *metrics.Collector, perms middleware.PermissionStore, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Metrics: collector, Perms: perms, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	approve := middleware.RequirePermission(auth.PermPayrollApprove, h.Perms)
	read := middleware.RequirePermission(auth.PermPayrollRead, h.Perms)

	r.Route("/approvals", func(r chi.Router) {
		r.With(read).Get("/payruns/{payrunID}/steps", h.handleSteps)
		r.With(approve).Post("/steps/{stepID}/approve", h.handleApprove)
		r.With(approve).Post("/steps/{stepID}/reject", h.handleReject)
		r.With(approve).Post("/steps/{stepID}/delegate", h.handleDelegate)
	})
}

func (h *Handler) handleSteps(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	steps, status, err := h.Service.Steps(r.Context(), user.TenantID, chi.URLParam(r, "payrunID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "approval_steps_failed", "failed to load approval steps", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"steps": steps, "payrunStatus": status}, middleware.GetRequestID(r.Context()))
}

type actionRequest struct {
	Comments string `json:"comments"`
	ToUserID string `json:"toUserId"`
}

type actionResponse struct {
	Step         approval.Step         `json:"step"`
	PayrunStatus approval.PayrunStatus `json:"payrunStatus"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, "approve", func(tenantID, stepID string, req actionRequest, actor approval.Actor) (approval.Step, approval.PayrunStatus, error) {
		return h.Service.Approve(r.Context(), tenantID, stepID, req.Comments, actor)
	})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, "reject", func(tenantID, stepID string, req actionRequest, actor approval.Actor) (approval.Step, approval.PayrunStatus, error) {
		return h.Service.Reject(r.Context(), tenantID, stepID, req.Comments, actor)
	})
}

func (h *Handler) handleDelegate(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, "delegate", func(tenantID, stepID string, req actionRequest, actor approval.Actor) (approval.Step, approval.PayrunStatus, error) {
		if strings.TrimSpace(req.ToUserID) == "" {
			return approval.Step{}, "", errValidation
		}
		return h.Service.Delegate(r.Context(), tenantID, stepID, req.ToUserID, actor)
	})
}

var errValidation = errors.New("validation")

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request, endpoint string, run func(tenantID, stepID string, req actionRequest, actor approval.Actor) (approval.Step, approval.PayrunStatus, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	stepID := chi.URLParam(r, "stepID")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "failed to read request body", middleware.GetRequestID(r.Context()))
		return
	}
	var req actionRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(append([]byte(endpoint+":"+stepID+":"), body...))
	if idemKey != "" {
		stored, replay, err := h.Idempotency.Check(r.Context(), user.TenantID, user.UserID, endpoint, idemKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", middleware.GetRequestID(r.Context()))
			return
		}
		if err == nil && replay {
			var resp actionResponse
			if err := json.Unmarshal(stored, &resp); err == nil {
				api.Success(w, resp, middleware.GetRequestID(r.Context()))
				return
			}
		}
	}

	actor := approval.Actor{
		UserID:    user.UserID,
		RequestID: middleware.GetRequestID(r.Context()),
		IP:        clientIP(r),
	}
	step, status, err := run(user.TenantID, stepID, req, actor)
	if err != nil {
		h.failAction(w, r, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.ApprovalActioned()
	}

	resp := actionResponse{Step: step, PayrunStatus: status}
	if idemKey != "" {
		if payload, err := json.Marshal(resp); err == nil {
			_ = h.Idempotency.Save(r.Context(), user.TenantID, user.UserID, endpoint, idemKey, requestHash, payload)
		}
	}
	api.Success(w, resp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failAction(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, errValidation):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "toUserId is required", reqID)
	case errors.Is(err, approval.ErrStepNotFound):
		api.Fail(w, http.StatusNotFound, "step_not_found", "approval step not found", reqID)
	case errors.Is(err, approval.ErrNotCurrentStep):
		api.Fail(w, http.StatusConflict, "not_current_step", "a lower level must act first", reqID)
	case errors.Is(err, approval.ErrAlreadyActioned):
		api.Fail(w, http.StatusConflict, "already_actioned", "step was already actioned", reqID)
	case errors.Is(err, approval.ErrChainHalted):
		api.Fail(w, http.StatusConflict, "chain_halted", "approval chain was halted by a rejection", reqID)
	case errors.Is(err, approval.ErrNotAssignedApprover):
		api.Fail(w, http.StatusForbidden, "not_assigned", "only the assigned approver may delegate this step", reqID)
	case errors.Is(err, approval.ErrCommentsRequired):
		api.Fail(w, http.StatusBadRequest, "comments_required", "rejection requires comments", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "approval_action_failed", "failed to action approval step", reqID)
	}
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
