package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tenantkit/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "tenantkit/contexts/identity-access/delegation-service/domain/errors"
	"tenantkit/contexts/identity-access/delegation-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

var nonTerminalStatuses = []string{
	string(entities.DelegationStatusPending),
	string(entities.DelegationStatusApproved),
	string(entities.DelegationStatusActive),
}

// Repository implements the tenant-scoped repository, user directory,
// permission catalog and outbox ports against PostgreSQL.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateDelegation(ctx context.Context, input ports.CreateDelegationInput) error {
	row, err := delegationModelFromEntity(input.Delegation)
	if err != nil {
		return err
	}
	auditRow, err := auditModelFromEntity(input.Audit)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrStateConflict
			}
			return err
		}
		if err := tx.Create(&auditRow).Error; err != nil {
			return err
		}
		return insertOutboxEnvelopeTx(tx, input.Envelope)
	})
}

func (r *Repository) GetDelegation(ctx context.Context, tenantID string, delegationID string) (entities.Delegation, error) {
	var row delegationModel
	err := r.db.WithContext(ctx).
		Where("delegation_id = ? AND tenant_id = ?", strings.TrimSpace(delegationID), strings.TrimSpace(tenantID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Delegation{}, domainerrors.ErrDelegationNotFound
		}
		return entities.Delegation{}, err
	}
	return row.toEntity()
}

// ApplyTransition performs the guarded read-modify-write: the update matches
// the expected status and version or affects no rows, in which case the
// caller lost a concurrent race (or the row vanished from the tenant).
func (r *Repository) ApplyTransition(ctx context.Context, input ports.TransitionInput) error {
	row, err := delegationModelFromEntity(input.Delegation)
	if err != nil {
		return err
	}
	auditRow, err := auditModelFromEntity(input.Audit)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&delegationModel{}).
			Where("delegation_id = ? AND tenant_id = ? AND status = ? AND version = ?",
				row.DelegationID,
				strings.TrimSpace(input.TenantID),
				string(input.ExpectedStatus),
				input.ExpectedVersion,
			).
			Updates(delegationUpdates(row))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&delegationModel{}).
				Where("delegation_id = ? AND tenant_id = ?", row.DelegationID, strings.TrimSpace(input.TenantID)).
				Count(&count).
				Error; err != nil {
				return err
			}
			if count == 0 {
				return domainerrors.ErrDelegationNotFound
			}
			return domainerrors.ErrStateConflict
		}
		if err := tx.Create(&auditRow).Error; err != nil {
			return err
		}
		return insertOutboxEnvelopeTx(tx, input.Envelope)
	})
}

func (r *Repository) ListDelegations(ctx context.Context, tenantID string, filter ports.DelegationFilter) (ports.DelegationPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	tx := r.db.WithContext(ctx).
		Model(&delegationModel{}).
		Where("tenant_id = ?", strings.TrimSpace(tenantID))

	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}
	if filter.Type != "" {
		tx = tx.Where("delegation_type = ?", string(filter.Type))
	}
	if filter.DelegatorID != "" {
		tx = tx.Where("delegator_id = ?", strings.TrimSpace(filter.DelegatorID))
	}
	if filter.DelegateID != "" {
		tx = tx.Where("delegate_id = ?", strings.TrimSpace(filter.DelegateID))
	}
	if filter.ApproverID != "" {
		tx = tx.Where("approver_id = ?", strings.TrimSpace(filter.ApproverID))
	}
	if filter.Emergency != nil {
		tx = tx.Where("is_emergency = ?", *filter.Emergency)
	}
	if filter.Expired != nil {
		now := time.Now().UTC()
		if *filter.Expired {
			tx = tx.Where("expires_at <= ?", now)
		} else {
			tx = tx.Where("expires_at > ?", now)
		}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ports.DelegationPage{}, err
	}

	var rows []delegationModel
	if err := tx.Order("requested_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return ports.DelegationPage{}, err
	}

	items := make([]entities.Delegation, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return ports.DelegationPage{}, err
		}
		items = append(items, item)
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}

	return ports.DelegationPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (r *Repository) ListActiveByDelegate(ctx context.Context, tenantID string, delegateID string, now time.Time) ([]entities.Delegation, error) {
	var rows []delegationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegate_id = ? AND status = ? AND expires_at > ?",
			strings.TrimSpace(tenantID),
			strings.TrimSpace(delegateID),
			string(entities.DelegationStatusActive),
			now.UTC(),
		).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.Delegation, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) GetDelegationStats(ctx context.Context, tenantID string, now time.Time) (ports.DelegationStats, error) {
	tenant := strings.TrimSpace(tenantID)
	stats := ports.DelegationStats{
		ByStatus: make(map[entities.DelegationStatus]int64),
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := r.db.WithContext(ctx).
		Model(&delegationModel{}).
		Select("status, count(*) as count").
		Where("tenant_id = ?", tenant).
		Group("status").
		Scan(&counts).
		Error; err != nil {
		return ports.DelegationStats{}, err
	}
	for _, item := range counts {
		stats.ByStatus[entities.DelegationStatus(item.Status)] = item.Count
		stats.Total += item.Count
	}

	if err := r.db.WithContext(ctx).
		Model(&delegationModel{}).
		Where("tenant_id = ? AND is_emergency = ?", tenant, true).
		Count(&stats.Emergency).
		Error; err != nil {
		return ports.DelegationStats{}, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if err := r.db.WithContext(ctx).
		Model(&delegationModel{}).
		Where("tenant_id = ? AND requested_at >= ?", tenant, monthStart).
		Count(&stats.CreatedThisMonth).
		Error; err != nil {
		return ports.DelegationStats{}, err
	}

	// Lifetime average across every delegation regardless of status.
	var average *float64
	if err := r.db.WithContext(ctx).
		Model(&delegationModel{}).
		Select("AVG(EXTRACT(EPOCH FROM (expires_at - requested_at)) / 3600.0)").
		Where("tenant_id = ?", tenant).
		Scan(&average).
		Error; err != nil {
		return ports.DelegationStats{}, err
	}
	if average != nil {
		stats.AverageDurationHours = *average
	}
	return stats, nil
}

func (r *Repository) ListAuditLogs(ctx context.Context, tenantID string, delegationID string) ([]entities.AuditLog, error) {
	var rows []auditLogModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND delegation_id = ?", strings.TrimSpace(tenantID), strings.TrimSpace(delegationID)).
		Order("created_at DESC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.AuditLog, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]entities.Delegation, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []delegationModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status IN ? AND expires_at <= ?", nonTerminalStatuses, now.UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.Delegation, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) FindUser(ctx context.Context, tenantID string, userID string) (entities.User, bool, error) {
	var row userModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ?", strings.TrimSpace(userID), strings.TrimSpace(tenantID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.User{}, false, nil
		}
		return entities.User{}, false, err
	}
	return entities.User{
		UserID:   row.UserID,
		TenantID: row.TenantID,
		Name:     row.Name,
		Email:    row.Email,
	}, true, nil
}

func (r *Repository) ResolvePermissions(ctx context.Context, permissionIDs []string) ([]entities.Permission, error) {
	if len(permissionIDs) == 0 {
		return []entities.Permission{}, nil
	}
	var rows []permissionModel
	if err := r.db.WithContext(ctx).
		Where("permission_id IN ?", permissionIDs).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Permission, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Permission{
			PermissionID: row.PermissionID,
			Name:         row.Name,
			Description:  row.Description,
		})
	}
	return items, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			TenantID:  row.TenantID,
			Payload:   append([]byte(nil), row.Payload...),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("outbox record not found")
	}
	return nil
}

func insertOutboxEnvelopeTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:  strings.TrimSpace(envelope.EventID),
		EventType: strings.TrimSpace(envelope.EventType),
		TenantID:  strings.TrimSpace(envelope.TenantID),
		Payload:   payload,
		Status:    outboxStatusPending,
		CreatedAt: envelope.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrStateConflict
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
