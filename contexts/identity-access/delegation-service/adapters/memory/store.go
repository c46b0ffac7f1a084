package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "tenantkit/contexts/identity-access/delegation-service/domain/errors"
	"tenantkit/contexts/identity-access/delegation-service/ports"

	"github.com/google/uuid"
)

// Store is an in-memory adapter implementing the repository, directory,
// catalog, clock, id-generator and outbox ports. It is intended for tests
// and local development wiring.
type Store struct {
	mu sync.RWMutex

	users       map[string]entities.User
	permissions map[string]entities.Permission
	delegations map[string]entities.Delegation
	auditLogs   []entities.AuditLog
	outbox      map[string]outboxRow

	// NowFunc overrides the clock for deterministic expiry tests.
	NowFunc func() time.Time
}

type outboxRow struct {
	ports.OutboxMessage
	PublishedAt *time.Time
}

// NewStore builds an in-memory adapter seeded with directory users and
// catalog permissions.
func NewStore(users []entities.User, permissions []entities.Permission) *Store {
	s := &Store{
		users:       make(map[string]entities.User),
		permissions: make(map[string]entities.Permission),
		delegations: make(map[string]entities.Delegation),
		outbox:      make(map[string]outboxRow),
	}
	for _, user := range users {
		s.users[user.UserID] = user
	}
	for _, permission := range permissions {
		s.permissions[permission.PermissionID] = permission
	}
	return s
}

func (s *Store) FindUser(_ context.Context, tenantID string, userID string) (entities.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok || user.TenantID != tenantID {
		return entities.User{}, false, nil
	}
	return user, true, nil
}

func (s *Store) ResolvePermissions(_ context.Context, permissionIDs []string) ([]entities.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Permission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		if permission, ok := s.permissions[id]; ok {
			items = append(items, permission)
		}
	}
	return items, nil
}

func (s *Store) CreateDelegation(_ context.Context, input ports.CreateDelegationInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.delegations[input.Delegation.DelegationID]; exists {
		return domainerrors.ErrStateConflict
	}
	s.delegations[input.Delegation.DelegationID] = cloneDelegation(input.Delegation)
	s.auditLogs = append(s.auditLogs, input.Audit)
	return s.appendOutbox(input.Envelope)
}

func (s *Store) GetDelegation(_ context.Context, tenantID string, delegationID string) (entities.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delegation, ok := s.delegations[delegationID]
	if !ok || delegation.TenantID != tenantID {
		return entities.Delegation{}, domainerrors.ErrDelegationNotFound
	}
	return cloneDelegation(delegation), nil
}

func (s *Store) ApplyTransition(_ context.Context, input ports.TransitionInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.delegations[input.Delegation.DelegationID]
	if !ok || current.TenantID != input.TenantID {
		return domainerrors.ErrDelegationNotFound
	}
	if current.Status != input.ExpectedStatus || current.Version != input.ExpectedVersion {
		return domainerrors.ErrStateConflict
	}
	s.delegations[input.Delegation.DelegationID] = cloneDelegation(input.Delegation)
	s.auditLogs = append(s.auditLogs, input.Audit)
	return s.appendOutbox(input.Envelope)
}

func (s *Store) ListDelegations(_ context.Context, tenantID string, filter ports.DelegationFilter) (ports.DelegationPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.Now()
	matched := make([]entities.Delegation, 0)
	for _, delegation := range s.delegations {
		if delegation.TenantID != tenantID {
			continue
		}
		if !matchesFilter(delegation, filter, now) {
			continue
		}
		matched = append(matched, cloneDelegation(delegation))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RequestedAt.After(matched[j].RequestedAt)
	})

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}

	return ports.DelegationPage{
		Items:      matched[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (s *Store) ListActiveByDelegate(_ context.Context, tenantID string, delegateID string, now time.Time) ([]entities.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Delegation, 0)
	for _, delegation := range s.delegations {
		if delegation.TenantID != tenantID || delegation.DelegateID != delegateID {
			continue
		}
		if !delegation.IsActive(now) {
			continue
		}
		items = append(items, cloneDelegation(delegation))
	}
	return items, nil
}

func (s *Store) GetDelegationStats(_ context.Context, tenantID string, now time.Time) (ports.DelegationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ports.DelegationStats{
		ByStatus: make(map[entities.DelegationStatus]int64),
	}
	var durationSum float64
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	for _, delegation := range s.delegations {
		if delegation.TenantID != tenantID {
			continue
		}
		stats.Total++
		stats.ByStatus[delegation.Status]++
		if delegation.IsEmergency {
			stats.Emergency++
		}
		if !delegation.RequestedAt.Before(monthStart) {
			stats.CreatedThisMonth++
		}
		durationSum += delegation.DurationHours()
	}
	if stats.Total > 0 {
		stats.AverageDurationHours = durationSum / float64(stats.Total)
	}
	return stats, nil
}

func (s *Store) ListAuditLogs(_ context.Context, tenantID string, delegationID string) ([]entities.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.AuditLog, 0)
	for _, entry := range s.auditLogs {
		if entry.TenantID != tenantID || entry.DelegationID != delegationID {
			continue
		}
		items = append(items, entry)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) ListOverdue(_ context.Context, now time.Time, limit int) ([]entities.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.Delegation, 0)
	for _, delegation := range s.delegations {
		if delegation.IsTerminal() {
			continue
		}
		if !delegation.IsExpired(now) {
			continue
		}
		items = append(items, cloneDelegation(delegation))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ExpiresAt.Before(items[j].ExpiresAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			rows = append(rows, row.OutboxMessage)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[outboxID]
	if !ok {
		return errors.New("outbox record not found")
	}
	value := publishedAt.UTC()
	row.PublishedAt = &value
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) appendOutbox(envelope ports.EventEnvelope) error {
	if _, exists := s.outbox[envelope.EventID]; exists {
		return domainerrors.ErrStateConflict
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.outbox[envelope.EventID] = outboxRow{
		OutboxMessage: ports.OutboxMessage{
			OutboxID:  envelope.EventID,
			EventType: envelope.EventType,
			TenantID:  envelope.TenantID,
			Payload:   payload,
			CreatedAt: envelope.OccurredAt.UTC(),
		},
	}
	return nil
}

func matchesFilter(delegation entities.Delegation, filter ports.DelegationFilter, now time.Time) bool {
	if filter.Status != "" && delegation.Status != filter.Status {
		return false
	}
	if filter.Type != "" && delegation.Type != filter.Type {
		return false
	}
	if filter.DelegatorID != "" && delegation.DelegatorID != filter.DelegatorID {
		return false
	}
	if filter.DelegateID != "" && delegation.DelegateID != filter.DelegateID {
		return false
	}
	if filter.ApproverID != "" && delegation.ApproverID != filter.ApproverID {
		return false
	}
	if filter.Emergency != nil && delegation.IsEmergency != *filter.Emergency {
		return false
	}
	if filter.Expired != nil && delegation.IsExpired(now) != *filter.Expired {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		title := strings.ToLower(delegation.Title)
		description := strings.ToLower(delegation.Description)
		if !strings.Contains(title, search) && !strings.Contains(description, search) {
			return false
		}
	}
	return true
}

func cloneDelegation(delegation entities.Delegation) entities.Delegation {
	cloned := delegation
	cloned.PermissionIDs = append([]string(nil), delegation.PermissionIDs...)
	if delegation.Metadata != nil {
		metadata := make(map[string]any, len(delegation.Metadata))
		for key, value := range delegation.Metadata {
			metadata[key] = value
		}
		cloned.Metadata = metadata
	}
	return cloned
}
