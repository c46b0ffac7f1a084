package unit

import (
	"context"
	"sync"
	"testing"
	"time"

	delegation "tenantkit/contexts/identity-access/delegation-service"
	httpadapter "tenantkit/contexts/identity-access/delegation-service/adapters/http"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "tenantkit/contexts/identity-access/delegation-service/domain/errors"
	"tenantkit/contexts/identity-access/delegation-service/ports"
	httptransport "tenantkit/contexts/identity-access/delegation-service/transport/http"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []ports.EventEnvelope
}

func (p *capturePublisher) PublishDelegationEvent(_ context.Context, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.EventType)
	}
	return types
}

func newTestModule() (delegation.Module, *capturePublisher) {
	publisher := &capturePublisher{}
	module := delegation.NewInMemoryModule(
		[]entities.User{
			{UserID: "u1", TenantID: "tenant-a", Name: "Dana Delegator", Email: "dana@tenant-a.test"},
			{UserID: "u2", TenantID: "tenant-a", Name: "Devin Delegate", Email: "devin@tenant-a.test"},
			{UserID: "u3", TenantID: "tenant-a", Name: "Avery Approver", Email: "avery@tenant-a.test"},
			{UserID: "u9", TenantID: "tenant-b", Name: "Blake Outsider", Email: "blake@tenant-b.test"},
		},
		[]entities.Permission{
			{PermissionID: "p1", Name: "reports.read"},
			{PermissionID: "p2", Name: "billing.manage"},
		},
		publisher,
		nil,
	)
	return module, publisher
}

func reqCtx(userID string) httpadapter.RequestContext {
	return httpadapter.RequestContext{
		TenantID:  "tenant-a",
		UserID:    userID,
		IPAddress: "203.0.113.10",
		UserAgent: "unit-test",
	}
}

func createDelegation(t *testing.T, module delegation.Module, req httptransport.CreateDelegationRequest) httptransport.DelegationResponse {
	t.Helper()
	if req.DelegateID == "" {
		req.DelegateID = "u2"
	}
	if req.DelegationType == "" {
		req.DelegationType = "permission_based"
		req.PermissionIDs = []string{"p1"}
	}
	if req.Title == "" {
		req.Title = "coverage during leave"
	}
	if req.ExpiresAt.IsZero() {
		req.ExpiresAt = time.Now().UTC().Add(72 * time.Hour)
	}

	resp, err := module.Handler.CreateDelegationHandler(context.Background(), reqCtx("u1"), req)
	if err != nil {
		t.Fatalf("create delegation failed: %v", err)
	}
	return resp
}

func TestDelegationFullLifecycle(t *testing.T) {
	module, _ := newTestModule()
	ctx := context.Background()

	created := createDelegation(t, module, httptransport.CreateDelegationRequest{
		ApproverID: "u3",
	})
	if created.Status != "pending" {
		t.Fatalf("expected pending after create, got %s", created.Status)
	}
	if created.Delegator.Name != "Dana Delegator" || created.Delegate.Name != "Devin Delegate" {
		t.Fatalf("expected hydrated participants, got %+v and %+v", created.Delegator, created.Delegate)
	}
	if len(created.PermissionNames) != 1 || created.PermissionNames[0] != "reports.read" {
		t.Fatalf("expected resolved permission names, got %v", created.PermissionNames)
	}

	approved, err := module.Handler.ApproveDelegationHandler(ctx, reqCtx("u3"), created.DelegationID,
		httptransport.ApproveDelegationRequest{Notes: "fine while dana is out"})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != "approved" || approved.ApprovedAt == nil {
		t.Fatalf("expected approved with timestamp, got %s", approved.Status)
	}
	if approved.IsActive {
		t.Fatalf("approved delegation must not confer access yet")
	}

	check, err := module.Handler.CheckActiveDelegationHandler(ctx, reqCtx("u2"),
		httptransport.ActiveDelegationCheckRequest{PermissionIDs: []string{"p1"}})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if check.HasActiveDelegation {
		t.Fatalf("approved but unactivated delegation must not grant access")
	}

	activated, err := module.Handler.ActivateDelegationHandler(ctx, reqCtx("u2"), created.DelegationID,
		httptransport.ActivateDelegationRequest{Confirm: true})
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if activated.Status != "active" || activated.ActivatedAt == nil {
		t.Fatalf("expected active with timestamp, got %s", activated.Status)
	}

	check, err = module.Handler.CheckActiveDelegationHandler(ctx, reqCtx("u2"),
		httptransport.ActiveDelegationCheckRequest{PermissionIDs: []string{"p1"}})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !check.HasActiveDelegation {
		t.Fatalf("active delegation covering p1 must grant access")
	}

	revoked, err := module.Handler.RevokeDelegationHandler(ctx, reqCtx("u1"), created.DelegationID,
		httptransport.RevokeDelegationRequest{Reason: "returned early"})
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if revoked.Status != "revoked" || revoked.RevokedAt == nil {
		t.Fatalf("expected revoked with timestamp, got %s", revoked.Status)
	}

	check, err = module.Handler.CheckActiveDelegationHandler(ctx, reqCtx("u2"),
		httptransport.ActiveDelegationCheckRequest{PermissionIDs: []string{"p1"}})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if check.HasActiveDelegation {
		t.Fatalf("revoked delegation must not grant access")
	}

	audit, err := module.Handler.ListAuditLogsHandler(ctx, reqCtx("u1"), created.DelegationID)
	if err != nil {
		t.Fatalf("audit list failed: %v", err)
	}
	if len(audit.Entries) != 4 {
		t.Fatalf("expected 4 audit entries, got %d", len(audit.Entries))
	}
	if audit.Entries[0].Action != "delegation_revoked" || audit.Entries[3].Action != "delegation_created" {
		t.Fatalf("expected newest-first audit trail, got %s .. %s", audit.Entries[0].Action, audit.Entries[3].Action)
	}
	if audit.Entries[1].Actor.UserID != "u2" {
		t.Fatalf("activation must be attributed to the delegate, got %s", audit.Entries[1].Actor.UserID)
	}
}

func TestDelegationApproveForbiddenForNonApprover(t *testing.T) {
	module, _ := newTestModule()
	created := createDelegation(t, module, httptransport.CreateDelegationRequest{ApproverID: "u3"})

	_, err := module.Handler.ApproveDelegationHandler(context.Background(), reqCtx("u2"), created.DelegationID,
		httptransport.ApproveDelegationRequest{})
	if !domainerrors.IsForbidden(err) {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	// Failed transition must not leave an orphan audit record.
	audit, auditErr := module.Handler.ListAuditLogsHandler(context.Background(), reqCtx("u1"), created.DelegationID)
	if auditErr != nil {
		t.Fatalf("audit list failed: %v", auditErr)
	}
	if len(audit.Entries) != 1 {
		t.Fatalf("expected only the creation audit entry, got %d", len(audit.Entries))
	}
}

func TestDelegationRejectRequiresReason(t *testing.T) {
	module, _ := newTestModule()
	created := createDelegation(t, module, httptransport.CreateDelegationRequest{ApproverID: "u3"})
	ctx := context.Background()

	_, err := module.Handler.RejectDelegationHandler(ctx, reqCtx("u3"), created.DelegationID,
		httptransport.RejectDelegationRequest{Reason: "   "})
	if err == nil || !domainerrors.IsInvalidState(err) {
		t.Fatalf("expected reason-required error, got %v", err)
	}

	rejected, err := module.Handler.RejectDelegationHandler(ctx, reqCtx("u3"), created.DelegationID,
		httptransport.RejectDelegationRequest{Reason: "scope too broad"})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != "rejected" || rejected.RejectionReason != "scope too broad" {
		t.Fatalf("expected rejected with reason, got %s / %q", rejected.Status, rejected.RejectionReason)
	}

	// Rejected is terminal.
	_, err = module.Handler.ApproveDelegationHandler(ctx, reqCtx("u3"), created.DelegationID,
		httptransport.ApproveDelegationRequest{})
	if !domainerrors.IsInvalidState(err) {
		t.Fatalf("expected invalid state approving a rejected delegation, got %v", err)
	}
}

func TestDelegationActivateGuards(t *testing.T) {
	module, _ := newTestModule()
	created := createDelegation(t, module, httptransport.CreateDelegationRequest{})
	ctx := context.Background()

	if created.Status != "approved" {
		t.Fatalf("self-service grant should start approved, got %s", created.Status)
	}

	_, err := module.Handler.ActivateDelegationHandler(ctx, reqCtx("u2"), created.DelegationID,
		httptransport.ActivateDelegationRequest{Confirm: false})
	if !domainerrors.IsInvalidState(err) {
		t.Fatalf("expected confirmation-required error, got %v", err)
	}

	_, err = module.Handler.ActivateDelegationHandler(ctx, reqCtx("u1"), created.DelegationID,
		httptransport.ActivateDelegationRequest{Confirm: true})
	if !domainerrors.IsForbidden(err) {
		t.Fatalf("expected forbidden when a non-delegate activates, got %v", err)
	}

	activated, err := module.Handler.ActivateDelegationHandler(ctx, reqCtx("u2"), created.DelegationID,
		httptransport.ActivateDelegationRequest{Confirm: true})
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if activated.Status != "active" {
		t.Fatalf("expected active, got %s", activated.Status)
	}

	_, err = module.Handler.ActivateDelegationHandler(ctx, reqCtx("u2"), created.DelegationID,
		httptransport.ActivateDelegationRequest{Confirm: true})
	if !domainerrors.IsInvalidState(err) {
		t.Fatalf("expected invalid state on double activation, got %v", err)
	}
}

func TestDelegationRevokeRequiresStakeholder(t *testing.T) {
	module, _ := newTestModule()
	created := createDelegation(t, module, httptransport.CreateDelegationRequest{})

	_, err := module.Handler.RevokeDelegationHandler(context.Background(), reqCtx("u3"), created.DelegationID,
		httptransport.RevokeDelegationRequest{Reason: "not my grant"})
	if !domainerrors.IsForbidden(err) {
		t.Fatalf("expected forbidden for a non-stakeholder, got %v", err)
	}
}

func TestDelegationCreateValidation(t *testing.T) {
	module, _ := newTestModule()
	ctx := context.Background()
	future := time.Now().UTC().Add(24 * time.Hour)

	cases := []struct {
		name    string
		req     httptransport.CreateDelegationRequest
		check   func(error) bool
		wantErr error
	}{
		{
			name: "unknown delegate",
			req: httptransport.CreateDelegationRequest{
				DelegateID: "missing", DelegationType: "full_access", Title: "x", ExpiresAt: future,
			},
			check: domainerrors.IsNotFound,
		},
		{
			name: "delegate from another tenant",
			req: httptransport.CreateDelegationRequest{
				DelegateID: "u9", DelegationType: "full_access", Title: "x", ExpiresAt: future,
			},
			check: domainerrors.IsNotFound,
		},
		{
			name: "unknown permission",
			req: httptransport.CreateDelegationRequest{
				DelegateID: "u2", DelegationType: "permission_based",
				PermissionIDs: []string{"p1", "missing"}, Title: "x", ExpiresAt: future,
			},
			check: domainerrors.IsNotFound,
		},
		{
			name: "expiry in the past",
			req: httptransport.CreateDelegationRequest{
				DelegateID: "u2", DelegationType: "full_access", Title: "x",
				ExpiresAt: time.Now().UTC().Add(-time.Hour),
			},
			check: domainerrors.IsInvalidState,
		},
		{
			name: "unknown delegation type",
			req: httptransport.CreateDelegationRequest{
				DelegateID: "u2", DelegationType: "cosmic", Title: "x", ExpiresAt: future,
			},
			check: domainerrors.IsInvalidState,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := module.Handler.CreateDelegationHandler(ctx, reqCtx("u1"), tc.req)
			if err == nil || !tc.check(err) {
				t.Fatalf("expected classified validation error, got %v", err)
			}
		})
	}
}

func TestDelegationTenantIsolation(t *testing.T) {
	module, _ := newTestModule()
	created := createDelegation(t, module, httptransport.CreateDelegationRequest{})

	otherTenant := httpadapter.RequestContext{TenantID: "tenant-b", UserID: "u9"}
	_, err := module.Handler.GetDelegationHandler(context.Background(), otherTenant, created.DelegationID)
	if !domainerrors.IsNotFound(err) {
		t.Fatalf("cross-tenant read must look like not found, got %v", err)
	}

	_, err = module.Handler.RevokeDelegationHandler(context.Background(), otherTenant, created.DelegationID,
		httptransport.RevokeDelegationRequest{Reason: "cross tenant"})
	if !domainerrors.IsNotFound(err) {
		t.Fatalf("cross-tenant write must look like not found, got %v", err)
	}
}

func TestDelegationListFilterAndPagination(t *testing.T) {
	module, _ := newTestModule()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		createDelegation(t, module, httptransport.CreateDelegationRequest{ApproverID: "u3"})
	}
	emergency := createDelegation(t, module, httptransport.CreateDelegationRequest{
		DelegationType: "full_access",
		IsEmergency:    true,
		Title:          "incident bridge",
	})

	all, err := module.Handler.ListDelegationsHandler(ctx, reqCtx("u1"), ports.DelegationFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if all.Total != 4 || len(all.Items) != 4 {
		t.Fatalf("expected 4 delegations, got total=%d items=%d", all.Total, len(all.Items))
	}
	if all.Items[0].DelegationID != emergency.DelegationID {
		t.Fatalf("expected newest-first ordering")
	}

	paged, err := module.Handler.ListDelegationsHandler(ctx, reqCtx("u1"), ports.DelegationFilter{Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(paged.Items) != 1 || paged.TotalPages != 2 {
		t.Fatalf("expected 1 item on page 2 of 2, got %d items, %d pages", len(paged.Items), paged.TotalPages)
	}

	isEmergency := true
	filtered, err := module.Handler.ListDelegationsHandler(ctx, reqCtx("u1"), ports.DelegationFilter{Emergency: &isEmergency})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if filtered.Total != 1 || filtered.Items[0].Title != "incident bridge" {
		t.Fatalf("expected the emergency grant only, got %d", filtered.Total)
	}

	pending, err := module.Handler.ListDelegationsHandler(ctx, reqCtx("u1"), ports.DelegationFilter{
		Status: entities.DelegationStatusPending,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if pending.Total != 3 {
		t.Fatalf("expected 3 pending delegations, got %d", pending.Total)
	}
}

func TestDelegationStats(t *testing.T) {
	module, _ := newTestModule()
	ctx := context.Background()

	createDelegation(t, module, httptransport.CreateDelegationRequest{ApproverID: "u3"})

	approved := createDelegation(t, module, httptransport.CreateDelegationRequest{})

	active := createDelegation(t, module, httptransport.CreateDelegationRequest{IsEmergency: true})
	if _, err := module.Handler.ActivateDelegationHandler(ctx, reqCtx("u2"), active.DelegationID,
		httptransport.ActivateDelegationRequest{Confirm: true}); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	if _, err := module.Handler.RevokeDelegationHandler(ctx, reqCtx("u1"), approved.DelegationID,
		httptransport.RevokeDelegationRequest{Reason: "no longer needed"}); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	stats, err := module.Handler.DelegationStatsHandler(ctx, reqCtx("u1"))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("expected total 3, got %d", stats.Total)
	}
	if stats.ByStatus["pending"] != 1 || stats.ByStatus["active"] != 1 || stats.ByStatus["revoked"] != 1 {
		t.Fatalf("unexpected status breakdown: %v", stats.ByStatus)
	}
	if stats.Emergency != 1 {
		t.Fatalf("expected 1 emergency delegation, got %d", stats.Emergency)
	}
	if stats.CreatedThisMonth != 3 {
		t.Fatalf("expected 3 created this month, got %d", stats.CreatedThisMonth)
	}
	if stats.AverageDurationHours < 71 || stats.AverageDurationHours > 73 {
		t.Fatalf("expected average duration near 72 hours, got %v", stats.AverageDurationHours)
	}
}

func TestDelegationOutboxRelayPublishesLifecycle(t *testing.T) {
	module, publisher := newTestModule()
	ctx := context.Background()

	created := createDelegation(t, module, httptransport.CreateDelegationRequest{ApproverID: "u3"})
	if _, err := module.Handler.ApproveDelegationHandler(ctx, reqCtx("u3"), created.DelegationID,
		httptransport.ApproveDelegationRequest{}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if err := module.Relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay pass failed: %v", err)
	}

	types := publisher.eventTypes()
	if len(types) != 2 || types[0] != "delegation.created" || types[1] != "delegation.approved" {
		t.Fatalf("expected created+approved events in order, got %v", types)
	}

	// A second pass finds nothing pending.
	if err := module.Relay.RunOnce(ctx); err != nil {
		t.Fatalf("second relay pass failed: %v", err)
	}
	if got := len(publisher.eventTypes()); got != 2 {
		t.Fatalf("expected no duplicate publishes, got %d events", got)
	}
}

func TestDelegationExpirySweep(t *testing.T) {
	module, _ := newTestModule()
	ctx := context.Background()

	active := createDelegation(t, module, httptransport.CreateDelegationRequest{
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	})
	if _, err := module.Handler.ActivateDelegationHandler(ctx, reqCtx("u2"), active.DelegationID,
		httptransport.ActivateDelegationRequest{Confirm: true}); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	pending := createDelegation(t, module, httptransport.CreateDelegationRequest{
		ApproverID: "u3",
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	})
	longLived := createDelegation(t, module, httptransport.CreateDelegationRequest{
		ExpiresAt: time.Now().UTC().Add(240 * time.Hour),
	})

	module.Store.NowFunc = func() time.Time {
		return time.Now().UTC().Add(2 * time.Hour)
	}

	expired, err := module.Sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("expected 2 expirations, got %d (%v)", len(expired), expired)
	}

	for _, id := range []string{active.DelegationID, pending.DelegationID} {
		view, err := module.Handler.GetDelegationHandler(ctx, reqCtx("u1"), id)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if view.Status != "expired" {
			t.Fatalf("expected %s expired, got %s", id, view.Status)
		}
	}

	untouched, err := module.Handler.GetDelegationHandler(ctx, reqCtx("u1"), longLived.DelegationID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if untouched.Status != "approved" {
		t.Fatalf("long-lived delegation must be untouched, got %s", untouched.Status)
	}

	// Sweep is idempotent: nothing left to expire.
	again, err := module.Sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected empty second sweep, got %v", again)
	}

	audit, err := module.Handler.ListAuditLogsHandler(ctx, reqCtx("u1"), active.DelegationID)
	if err != nil {
		t.Fatalf("audit list failed: %v", err)
	}
	if audit.Entries[0].Action != "delegation_expired" {
		t.Fatalf("expected expiry audit entry, got %s", audit.Entries[0].Action)
	}
	if audit.Entries[0].Actor.UserID != "u1" {
		t.Fatalf("expiry must be attributed to the delegator, got %s", audit.Entries[0].Actor.UserID)
	}
}

func TestDelegationExpiredBeforeTransitionIsRejected(t *testing.T) {
	module, _ := newTestModule()
	ctx := context.Background()

	created := createDelegation(t, module, httptransport.CreateDelegationRequest{
		ApproverID: "u3",
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	})

	module.Store.NowFunc = func() time.Time {
		return time.Now().UTC().Add(2 * time.Hour)
	}

	_, err := module.Handler.ApproveDelegationHandler(ctx, reqCtx("u3"), created.DelegationID,
		httptransport.ApproveDelegationRequest{})
	if !domainerrors.IsInvalidState(err) {
		t.Fatalf("expected invalid state approving an expired delegation, got %v", err)
	}
}
