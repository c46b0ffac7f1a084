package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/application/commands"
	"tenantkit/contexts/identity-access/delegation-service/application/queries"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	"tenantkit/contexts/identity-access/delegation-service/ports"
	httptransport "tenantkit/contexts/identity-access/delegation-service/transport/http"
)

// RequestContext carries the per-request identity and client metadata the
// platform server extracts from headers. Tenant and user ids are explicit on
// every call; there is no ambient tenant state.
type RequestContext struct {
	TenantID  string
	UserID    string
	IPAddress string
	UserAgent string
}

// Handler maps HTTP DTOs to application commands/queries.
type Handler struct {
	CreateDelegation   commands.CreateDelegationUseCase
	ApproveDelegation  commands.ApproveDelegationUseCase
	RejectDelegation   commands.RejectDelegationUseCase
	ActivateDelegation commands.ActivateDelegationUseCase
	RevokeDelegation   commands.RevokeDelegationUseCase
	GetDelegation      queries.GetDelegationUseCase
	ListDelegations    queries.ListDelegationsUseCase
	DelegationStats    queries.GetDelegationStatsUseCase
	CheckActive        queries.CheckActiveDelegationUseCase
	ListAuditLogs      queries.ListAuditLogsUseCase
	Clock              ports.Clock
	Logger             *slog.Logger
}

// CreateDelegationHandler records a new grant requested by the caller.
func (h Handler) CreateDelegationHandler(
	ctx context.Context,
	reqCtx RequestContext,
	request httptransport.CreateDelegationRequest,
) (httptransport.DelegationResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http delegation create received",
		"event", "delegation_http_create_received",
		"module", "identity-access/delegation-service",
		"layer", "transport",
		"tenant_id", reqCtx.TenantID,
		"delegator_id", reqCtx.UserID,
		"delegate_id", request.DelegateID,
	)

	view, err := h.CreateDelegation.Execute(ctx, commands.CreateDelegationCommand{
		TenantID:          reqCtx.TenantID,
		DelegatorID:       reqCtx.UserID,
		DelegateID:        request.DelegateID,
		ApproverID:        request.ApproverID,
		Type:              entities.DelegationType(request.DelegationType),
		PermissionIDs:     request.PermissionIDs,
		Title:             request.Title,
		Description:       request.Description,
		ExpiresAt:         request.ExpiresAt,
		RequiresApproval:  request.RequiresApproval,
		IsEmergency:       request.IsEmergency,
		IsRecurring:       request.IsRecurring,
		RecurrencePattern: request.RecurrencePattern,
		Metadata:          request.Metadata,
		Audit:             auditMeta(reqCtx),
	})
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return toDelegationResponse(view), nil
}

// ApproveDelegationHandler approves a pending grant on behalf of the caller.
func (h Handler) ApproveDelegationHandler(
	ctx context.Context,
	reqCtx RequestContext,
	delegationID string,
	request httptransport.ApproveDelegationRequest,
) (httptransport.DelegationResponse, error) {
	view, err := h.ApproveDelegation.Execute(ctx, commands.ApproveDelegationCommand{
		TenantID:     reqCtx.TenantID,
		DelegationID: delegationID,
		ActorID:      reqCtx.UserID,
		Notes:        request.Notes,
		Audit:        auditMeta(reqCtx),
	})
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return toDelegationResponse(view), nil
}

// RejectDelegationHandler rejects a pending grant with a mandatory reason.
func (h Handler) RejectDelegationHandler(
	ctx context.Context,
	reqCtx RequestContext,
	delegationID string,
	request httptransport.RejectDelegationRequest,
) (httptransport.DelegationResponse, error) {
	view, err := h.RejectDelegation.Execute(ctx, commands.RejectDelegationCommand{
		TenantID:     reqCtx.TenantID,
		DelegationID: delegationID,
		ActorID:      reqCtx.UserID,
		Reason:       request.Reason,
		Audit:        auditMeta(reqCtx),
	})
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return toDelegationResponse(view), nil
}

// ActivateDelegationHandler lets the delegate take up an approved grant.
func (h Handler) ActivateDelegationHandler(
	ctx context.Context,
	reqCtx RequestContext,
	delegationID string,
	request httptransport.ActivateDelegationRequest,
) (httptransport.DelegationResponse, error) {
	view, err := h.ActivateDelegation.Execute(ctx, commands.ActivateDelegationCommand{
		TenantID:     reqCtx.TenantID,
		DelegationID: delegationID,
		ActorID:      reqCtx.UserID,
		Confirm:      request.Confirm,
		Audit:        auditMeta(reqCtx),
	})
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return toDelegationResponse(view), nil
}

// RevokeDelegationHandler ends a grant early at a stakeholder's request.
func (h Handler) RevokeDelegationHandler(
	ctx context.Context,
	reqCtx RequestContext,
	delegationID string,
	request httptransport.RevokeDelegationRequest,
) (httptransport.DelegationResponse, error) {
	view, err := h.RevokeDelegation.Execute(ctx, commands.RevokeDelegationCommand{
		TenantID:     reqCtx.TenantID,
		DelegationID: delegationID,
		ActorID:      reqCtx.UserID,
		Reason:       request.Reason,
		Audit:        auditMeta(reqCtx),
	})
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return toDelegationResponse(view), nil
}

// GetDelegationHandler returns one delegation by id within the tenant.
func (h Handler) GetDelegationHandler(
	ctx context.Context,
	reqCtx RequestContext,
	delegationID string,
) (httptransport.DelegationResponse, error) {
	view, err := h.GetDelegation.Execute(ctx, reqCtx.TenantID, delegationID)
	if err != nil {
		return httptransport.DelegationResponse{}, err
	}
	return toDelegationResponse(view), nil
}

// ListDelegationsHandler runs the filtered, paginated tenant listing.
func (h Handler) ListDelegationsHandler(
	ctx context.Context,
	reqCtx RequestContext,
	filter ports.DelegationFilter,
) (httptransport.DelegationListResponse, error) {
	result, err := h.ListDelegations.Execute(ctx, reqCtx.TenantID, filter)
	if err != nil {
		return httptransport.DelegationListResponse{}, err
	}

	items := make([]httptransport.DelegationResponse, 0, len(result.Items))
	for _, view := range result.Items {
		items = append(items, toDelegationResponse(view))
	}
	return httptransport.DelegationListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	}, nil
}

// DelegationStatsHandler returns tenant-level aggregate counters.
func (h Handler) DelegationStatsHandler(
	ctx context.Context,
	reqCtx RequestContext,
) (httptransport.DelegationStatsResponse, error) {
	stats, err := h.DelegationStats.Execute(ctx, reqCtx.TenantID)
	if err != nil {
		return httptransport.DelegationStatsResponse{}, err
	}

	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return httptransport.DelegationStatsResponse{
		Total:                stats.Total,
		ByStatus:             byStatus,
		Emergency:            stats.Emergency,
		CreatedThisMonth:     stats.CreatedThisMonth,
		AverageDurationHours: stats.AverageDurationHours,
	}, nil
}

// CheckActiveDelegationHandler answers the authorization read path. The
// subject defaults to the caller; a body user_id checks on behalf of another
// member.
func (h Handler) CheckActiveDelegationHandler(
	ctx context.Context,
	reqCtx RequestContext,
	request httptransport.ActiveDelegationCheckRequest,
) (httptransport.ActiveDelegationCheckResponse, error) {
	subject := request.UserID
	if subject == "" {
		subject = reqCtx.UserID
	}

	active, err := h.CheckActive.Execute(ctx, reqCtx.TenantID, subject, request.PermissionIDs)
	if err != nil {
		return httptransport.ActiveDelegationCheckResponse{}, err
	}
	return httptransport.ActiveDelegationCheckResponse{
		UserID:              subject,
		HasActiveDelegation: active,
		CheckedAt:           h.now(),
	}, nil
}

// ListAuditLogsHandler returns a delegation's audit trail newest-first.
func (h Handler) ListAuditLogsHandler(
	ctx context.Context,
	reqCtx RequestContext,
	delegationID string,
) (httptransport.ListAuditLogsResponse, error) {
	views, err := h.ListAuditLogs.Execute(ctx, reqCtx.TenantID, delegationID)
	if err != nil {
		return httptransport.ListAuditLogsResponse{}, err
	}

	entries := make([]httptransport.AuditLogDTO, 0, len(views))
	for _, view := range views {
		entries = append(entries, httptransport.AuditLogDTO{
			AuditLogID:   view.Entry.AuditLogID,
			DelegationID: view.Entry.DelegationID,
			Actor:        toParticipantDTO(view.Actor),
			Action:       view.Entry.Action,
			Details:      view.Entry.Details,
			Metadata:     view.Entry.Metadata,
			IPAddress:    view.Entry.IPAddress,
			UserAgent:    view.Entry.UserAgent,
			CreatedAt:    view.Entry.CreatedAt,
		})
	}
	return httptransport.ListAuditLogsResponse{
		DelegationID: delegationID,
		Entries:      entries,
	}, nil
}

func (h Handler) now() time.Time {
	if h.Clock != nil {
		return h.Clock.Now()
	}
	return time.Now().UTC()
}

func auditMeta(reqCtx RequestContext) commands.AuditMeta {
	return commands.AuditMeta{
		IPAddress: reqCtx.IPAddress,
		UserAgent: reqCtx.UserAgent,
	}
}

func toParticipantDTO(participant application.ParticipantView) httptransport.ParticipantDTO {
	return httptransport.ParticipantDTO{
		UserID: participant.UserID,
		Name:   participant.Name,
		Email:  participant.Email,
	}
}

func toDelegationResponse(view application.DelegationView) httptransport.DelegationResponse {
	delegation := view.Delegation

	response := httptransport.DelegationResponse{
		DelegationID:      delegation.DelegationID,
		TenantID:          delegation.TenantID,
		Delegator:         toParticipantDTO(view.Delegator),
		Delegate:          toParticipantDTO(view.Delegate),
		DelegationType:    string(delegation.Type),
		PermissionIDs:     delegation.PermissionIDs,
		PermissionNames:   view.PermissionNames,
		Title:             delegation.Title,
		Description:       delegation.Description,
		Status:            string(delegation.Status),
		RequiresApproval:  delegation.RequiresApproval,
		IsEmergency:       delegation.IsEmergency,
		IsRecurring:       delegation.IsRecurring,
		RecurrencePattern: delegation.RecurrencePattern,
		ApprovalNotes:     delegation.ApprovalNotes,
		RejectionReason:   delegation.RejectionReason,
		RevocationReason:  delegation.RevocationReason,
		Metadata:          delegation.Metadata,
		RequestedAt:       delegation.RequestedAt,
		ApprovedAt:        delegation.ApprovedAt,
		RejectedAt:        delegation.RejectedAt,
		ActivatedAt:       delegation.ActivatedAt,
		RevokedAt:         delegation.RevokedAt,
		ExpiresAt:         delegation.ExpiresAt,
		IsActive:          view.IsActive,
		IsExpired:         view.IsExpired,
		DurationHours:     view.DurationHours,
		RemainingHours:    view.RemainingHours,
		Version:           delegation.Version,
	}
	if view.Approver != nil {
		approver := toParticipantDTO(*view.Approver)
		response.Approver = &approver
	}
	return response
}
