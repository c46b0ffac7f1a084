package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	delegation "tenantkit/contexts/identity-access/delegation-service"
	httpadapter "tenantkit/contexts/identity-access/delegation-service/adapters/http"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	delegationerrors "tenantkit/contexts/identity-access/delegation-service/domain/errors"
	"tenantkit/contexts/identity-access/delegation-service/ports"
	delegationhttp "tenantkit/contexts/identity-access/delegation-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "tenantkit/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	delegation delegation.Module
}

func New(delegationModule delegation.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		delegation: delegationModule,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/delegations/v1/delegations", s.handleCreateDelegation)
	s.mux.HandleFunc("GET /api/delegations/v1/delegations", s.handleListDelegations)
	s.mux.HandleFunc("GET /api/delegations/v1/delegations/stats", s.handleDelegationStats)
	s.mux.HandleFunc("GET /api/delegations/v1/delegations/{delegation_id}", s.handleGetDelegation)
	s.mux.HandleFunc("POST /api/delegations/v1/delegations/{delegation_id}/approve", s.handleApproveDelegation)
	s.mux.HandleFunc("POST /api/delegations/v1/delegations/{delegation_id}/reject", s.handleRejectDelegation)
	s.mux.HandleFunc("POST /api/delegations/v1/delegations/{delegation_id}/activate", s.handleActivateDelegation)
	s.mux.HandleFunc("POST /api/delegations/v1/delegations/{delegation_id}/revoke", s.handleRevokeDelegation)
	s.mux.HandleFunc("GET /api/delegations/v1/delegations/{delegation_id}/audit", s.handleListAuditLogs)
	s.mux.HandleFunc("POST /api/delegations/v1/delegations/check", s.handleCheckActiveDelegation)
}

func (s *Server) handleCreateDelegation(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req delegationhttp.CreateDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.delegation.Handler.CreateDelegationHandler(r.Context(), reqCtx, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListDelegations(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	resp, err := s.delegation.Handler.ListDelegationsHandler(r.Context(), reqCtx, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegationStats(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.delegation.Handler.DelegationStatsHandler(r.Context(), reqCtx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDelegation(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.delegation.Handler.GetDelegationHandler(r.Context(), reqCtx, r.PathValue("delegation_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApproveDelegation(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req delegationhttp.ApproveDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.delegation.Handler.ApproveDelegationHandler(r.Context(), reqCtx, r.PathValue("delegation_id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRejectDelegation(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req delegationhttp.RejectDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.delegation.Handler.RejectDelegationHandler(r.Context(), reqCtx, r.PathValue("delegation_id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActivateDelegation(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req delegationhttp.ActivateDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.delegation.Handler.ActivateDelegationHandler(r.Context(), reqCtx, r.PathValue("delegation_id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeDelegation(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req delegationhttp.RevokeDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.delegation.Handler.RevokeDelegationHandler(r.Context(), reqCtx, r.PathValue("delegation_id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	resp, err := s.delegation.Handler.ListAuditLogsHandler(r.Context(), reqCtx, r.PathValue("delegation_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckActiveDelegation(w http.ResponseWriter, r *http.Request) {
	reqCtx, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req delegationhttp.ActiveDelegationCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.delegation.Handler.CheckActiveDelegationHandler(r.Context(), reqCtx, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// requireIdentity extracts the tenant/user identity headers every route
// needs. Tenancy is always explicit; a request without both headers is
// rejected before any handler runs.
func (s *Server) requireIdentity(w http.ResponseWriter, r *http.Request) (httpadapter.RequestContext, bool) {
	tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "missing_tenant", "X-Tenant-Id header is required")
		return httpadapter.RequestContext{}, false
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return httpadapter.RequestContext{}, false
	}
	return httpadapter.RequestContext{
		TenantID:  tenantID,
		UserID:    userID,
		IPAddress: resolveClientIP(r),
		UserAgent: r.UserAgent(),
	}, true
}

func parseListFilter(r *http.Request) (ports.DelegationFilter, error) {
	query := r.URL.Query()
	filter := ports.DelegationFilter{
		Status:      entities.DelegationStatus(query.Get("status")),
		Type:        entities.DelegationType(query.Get("type")),
		DelegatorID: query.Get("delegator_id"),
		DelegateID:  query.Get("delegate_id"),
		ApproverID:  query.Get("approver_id"),
		Search:      query.Get("search"),
	}

	if raw := query.Get("emergency"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return ports.DelegationFilter{}, errors.New("emergency must be a boolean")
		}
		filter.Emergency = &value
	}
	if raw := query.Get("expired"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return ports.DelegationFilter{}, errors.New("expired must be a boolean")
		}
		filter.Expired = &value
	}
	if raw := query.Get("page"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return ports.DelegationFilter{}, errors.New("page must be an integer")
		}
		filter.Page = value
	}
	if raw := query.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return ports.DelegationFilter{}, errors.New("limit must be an integer")
		}
		filter.Limit = value
	}
	return filter, nil
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case delegationerrors.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, delegationerrors.ErrExpiryNotInFuture),
		errors.Is(err, delegationerrors.ErrReasonRequired),
		errors.Is(err, delegationerrors.ErrConfirmationRequired),
		errors.Is(err, delegationerrors.ErrInvalidDelegationType):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case delegationerrors.IsInvalidState(err):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case delegationerrors.IsForbidden(err):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, delegationhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func resolveClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
