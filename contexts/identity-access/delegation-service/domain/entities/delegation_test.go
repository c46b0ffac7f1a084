package entities

import (
	"testing"
	"time"
)

func TestInitialStatus(t *testing.T) {
	if got := InitialStatus(true, ""); got != DelegationStatusPending {
		t.Fatalf("expected pending when approval is required, got %s", got)
	}
	if got := InitialStatus(false, "approver-1"); got != DelegationStatusPending {
		t.Fatalf("expected pending when an approver is named, got %s", got)
	}
	if got := InitialStatus(false, "  "); got != DelegationStatusApproved {
		t.Fatalf("expected approved for a self-service grant, got %s", got)
	}
}

func TestIsExpiredBoundary(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := Delegation{ExpiresAt: expiry}

	if d.IsExpired(expiry.Add(-time.Second)) {
		t.Fatalf("delegation must not be expired before its expiry instant")
	}
	if !d.IsExpired(expiry) {
		t.Fatalf("delegation must be expired exactly at its expiry instant")
	}
	if !d.IsExpired(expiry.Add(time.Second)) {
		t.Fatalf("delegation must be expired past its expiry instant")
	}
}

func TestLifecycleGuards(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)

	approved := Delegation{Status: DelegationStatusApproved, ExpiresAt: future}
	if !approved.CanBeActivated(now) {
		t.Fatalf("approved unexpired delegation must be activatable")
	}
	if !approved.CanBeRevoked(now) {
		t.Fatalf("approved unexpired delegation must be revocable")
	}
	if approved.IsActive(now) {
		t.Fatalf("approved delegation must not confer access before activation")
	}

	active := Delegation{Status: DelegationStatusActive, ExpiresAt: future}
	if !active.IsActive(now) {
		t.Fatalf("active unexpired delegation must confer access")
	}
	if active.CanBeActivated(now) {
		t.Fatalf("active delegation must not be activatable again")
	}

	expired := Delegation{Status: DelegationStatusActive, ExpiresAt: now}
	if expired.IsActive(now) {
		t.Fatalf("expired delegation must not confer access")
	}
	if expired.CanBeRevoked(now) {
		t.Fatalf("expired delegation must not be revocable")
	}

	for _, status := range []DelegationStatus{DelegationStatusRejected, DelegationStatusRevoked, DelegationStatusExpired} {
		terminal := Delegation{Status: status, ExpiresAt: future}
		if !terminal.IsTerminal() {
			t.Fatalf("%s must be terminal", status)
		}
		if terminal.CanBeActivated(now) || terminal.CanBeRevoked(now) {
			t.Fatalf("%s must not allow further transitions", status)
		}
	}
}

func TestIsStakeholder(t *testing.T) {
	d := Delegation{DelegatorID: "u1", DelegateID: "u2", ApproverID: "u3"}

	for _, id := range []string{"u1", "u2", "u3"} {
		if !d.IsStakeholder(id) {
			t.Fatalf("expected %s to be a stakeholder", id)
		}
	}
	if d.IsStakeholder("u4") {
		t.Fatalf("unrelated member must not be a stakeholder")
	}
	if d.IsStakeholder("") {
		t.Fatalf("empty user id must not be a stakeholder")
	}

	noApprover := Delegation{DelegatorID: "u1", DelegateID: "u2"}
	if noApprover.IsStakeholder("") {
		t.Fatalf("empty user id must not match an empty approver id")
	}
}

func TestGrantsAny(t *testing.T) {
	permissionBased := Delegation{
		Type:          DelegationTypePermissionBased,
		PermissionIDs: []string{"p1", "p2"},
	}
	if !permissionBased.GrantsAny([]string{"p3", "p2"}) {
		t.Fatalf("expected intersection to match")
	}
	if permissionBased.GrantsAny([]string{"p3"}) {
		t.Fatalf("expected disjoint sets not to match")
	}
	if permissionBased.GrantsAny(nil) {
		t.Fatalf("empty request must never match")
	}

	fullAccess := Delegation{Type: DelegationTypeFullAccess}
	if !fullAccess.GrantsAny([]string{"anything"}) {
		t.Fatalf("full access must match any non-empty request")
	}
	if fullAccess.GrantsAny(nil) {
		t.Fatalf("full access must not match an empty request")
	}

	roleBased := Delegation{Type: DelegationTypeRoleBased, PermissionIDs: []string{"p1"}}
	if roleBased.GrantsAny([]string{"p1"}) {
		t.Fatalf("role based grants resolve elsewhere and must not match here")
	}
}

func TestRemainingHoursClampsAtZero(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := Delegation{
		RequestedAt: now.Add(-48 * time.Hour),
		ExpiresAt:   now.Add(-24 * time.Hour),
	}

	if got := d.DurationHours(); got != 24 {
		t.Fatalf("expected 24 duration hours, got %v", got)
	}
	if got := d.RemainingHours(now); got != 0 {
		t.Fatalf("expected remaining hours clamped to zero, got %v", got)
	}
}
