package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rowfence/rowfence/modules/core/domain/entities/auditlog"
	"github.com/rowfence/rowfence/modules/core/infrastructure/persistence/models"
	"github.com/rowfence/rowfence/pkg/composables"
)

// AuditLogRepository is append-only. There is deliberately no update or
// delete method for audit rows.
type AuditLogRepository struct{}

func NewAuditLogRepository() auditlog.Repository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) Create(ctx context.Context, rec auditlog.Record) (auditlog.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return auditlog.Record{}, err
	}

	if err := rec.Validate(); err != nil {
		return auditlog.Record{}, err
	}

	oldValues, err := marshalJSONMap(rec.OldValues)
	if err != nil {
		return auditlog.Record{}, err
	}
	newValues, err := marshalJSONMap(rec.NewValues)
	if err != nil {
		return auditlog.Record{}, err
	}
	details, err := marshalJSONMap(rec.Details)
	if err != nil {
		return auditlog.Record{}, err
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, actor_id, action, table_name, record_id, old_values, new_values, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9::jsonb)
		RETURNING created_at
	`
	var tableName any
	if rec.TableName != "" {
		tableName = rec.TableName
	}
	var recordID any
	if rec.RecordID != uuid.Nil {
		recordID = rec.RecordID.String()
	}
	if err := tx.QueryRow(
		ctx,
		query,
		rec.ID.String(),
		rec.TenantID.String(),
		rec.ActorID.String(),
		rec.Action,
		tableName,
		recordID,
		string(oldValues),
		string(newValues),
		string(details),
	).Scan(&rec.CreatedAt); err != nil {
		return auditlog.Record{}, err
	}
	return rec, nil
}

func (r *AuditLogRepository) List(ctx context.Context, params auditlog.FindParams) ([]auditlog.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	if params.TenantID == uuid.Nil {
		return nil, fmt.Errorf("audit list requires a tenant id")
	}

	query := `
		SELECT id, tenant_id, actor_id, action, table_name, record_id, old_values, new_values, details, created_at
		FROM audit_logs
		WHERE tenant_id = $1
	`
	args := []any{params.TenantID.String()}
	idx := 2
	if params.TableName != "" {
		query += fmt.Sprintf(" AND table_name = $%d", idx)
		args = append(args, params.TableName)
		idx++
	}
	if params.RecordID != uuid.Nil {
		query += fmt.Sprintf(" AND record_id = $%d", idx)
		args = append(args, params.RecordID.String())
		idx++
	}
	query += " ORDER BY created_at DESC"
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, params.Limit)
		idx++
	}
	if params.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auditlog.Record
	for rows.Next() {
		var m models.AuditLog
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.ActorID,
			&m.Action,
			&m.TableName,
			&m.RecordID,
			&m.OldValues,
			&m.NewValues,
			&m.Details,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec, err := toDomainAuditRecord(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
