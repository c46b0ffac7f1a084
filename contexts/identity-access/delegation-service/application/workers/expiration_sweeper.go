package workers

import (
	"context"
	"log/slog"
	"time"

	application "tenantkit/contexts/identity-access/delegation-service/application"
	"tenantkit/contexts/identity-access/delegation-service/application/commands"
	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	"tenantkit/contexts/identity-access/delegation-service/ports"
)

// ExpirationSweeper promotes overdue non-terminal delegations to expired.
// Each delegation is its own unit of work: a failure on one row is logged
// and the pass continues, so a poisoned row cannot block the batch.
type ExpirationSweeper struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	BatchSize   int
	Logger      *slog.Logger
}

// RunOnce performs one sweep pass and returns the ids it expired. The host
// process owns the schedule; the sweeper itself has no timer.
func (s ExpirationSweeper) RunOnce(ctx context.Context) ([]string, error) {
	logger := application.ResolveLogger(s.Logger)

	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}
	limit := s.BatchSize
	if limit <= 0 {
		limit = 100
	}

	overdue, err := s.Repository.ListOverdue(ctx, now, limit)
	if err != nil {
		logger.Error("expiration sweep list failed",
			"event", "delegation_sweep_list_failed",
			"module", "identity-access/delegation-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return nil, err
	}

	expired := make([]string, 0, len(overdue))
	for _, delegation := range overdue {
		if err := s.expireOne(ctx, delegation, now); err != nil {
			logger.Error("expiration sweep item failed",
				"event", "delegation_sweep_item_failed",
				"module", "identity-access/delegation-service",
				"layer", "worker",
				"tenant_id", delegation.TenantID,
				"delegation_id", delegation.DelegationID,
				"error", err.Error(),
			)
			continue
		}
		expired = append(expired, delegation.DelegationID)
	}

	if len(expired) > 0 {
		logger.Info("expiration sweep completed",
			"event", "delegation_sweep_completed",
			"module", "identity-access/delegation-service",
			"layer", "worker",
			"expired_count", len(expired),
		)
	}
	return expired, nil
}

func (s ExpirationSweeper) expireOne(ctx context.Context, delegation entities.Delegation, now time.Time) error {
	auditLogID, err := s.IDGenerator.NewID(ctx)
	if err != nil {
		return err
	}
	outboxID, err := s.IDGenerator.NewID(ctx)
	if err != nil {
		return err
	}

	expectedStatus := delegation.Status
	expectedVersion := delegation.Version
	updated := delegation
	updated.Status = entities.DelegationStatusExpired
	updated.Version = expectedVersion + 1

	// No human actor initiated the transition; attribute it to the delegator.
	envelope, err := commands.DelegationEnvelope(outboxID, commands.EventDelegationExpired, updated, delegation.DelegatorID, now)
	if err != nil {
		return err
	}

	return s.Repository.ApplyTransition(ctx, ports.TransitionInput{
		TenantID:        delegation.TenantID,
		Delegation:      updated,
		ExpectedStatus:  expectedStatus,
		ExpectedVersion: expectedVersion,
		Audit: entities.AuditLog{
			AuditLogID:   auditLogID,
			DelegationID: delegation.DelegationID,
			TenantID:     delegation.TenantID,
			UserID:       delegation.DelegatorID,
			Action:       entities.AuditActionDelegationExpired,
			Details:      "delegation expired automatically",
			CreatedAt:    now.UTC(),
		},
		Envelope: envelope,
	})
}
