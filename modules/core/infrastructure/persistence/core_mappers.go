package persistence

import (
	"encoding/json"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/rowfence/rowfence/modules/core/domain/aggregates/principal"
	"github.com/rowfence/rowfence/modules/core/domain/entities/auditlog"
	"github.com/rowfence/rowfence/modules/core/domain/entities/tenant"
	"github.com/rowfence/rowfence/modules/core/infrastructure/persistence/models"
	"github.com/rowfence/rowfence/pkg/mapping"
)

func toDomainTenant(m models.Tenant) (*tenant.Tenant, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse tenant id")
	}
	settings := map[string]any{}
	if len(m.Settings) > 0 {
		if err := json.Unmarshal(m.Settings, &settings); err != nil {
			return nil, gerrors.Wrap(err, "decode tenant settings")
		}
	}
	return tenant.New(
		m.Name,
		m.Slug,
		tenant.WithID(id),
		tenant.WithTier(tenant.Tier(m.Tier)),
		tenant.WithSettings(settings),
		tenant.WithIsActive(m.IsActive),
		tenant.WithCreatedAt(m.CreatedAt),
		tenant.WithUpdatedAt(m.UpdatedAt),
	), nil
}

func toDomainPrincipal(m models.TenantUser) (*principal.Principal, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse principal id")
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse principal tenant id")
	}
	return principal.New(
		tenantID,
		m.Email,
		principal.Role(m.Role),
		principal.WithID(id),
		principal.WithName(mapping.SQLNullStringToValue(m.FirstName), mapping.SQLNullStringToValue(m.LastName)),
		principal.WithIsActive(m.IsActive),
		principal.WithCreatedAt(m.CreatedAt),
		principal.WithUpdatedAt(m.UpdatedAt),
	), nil
}

func toDomainAuditRecord(m models.AuditLog) (auditlog.Record, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return auditlog.Record{}, gerrors.Wrap(err, "parse audit id")
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return auditlog.Record{}, gerrors.Wrap(err, "parse audit tenant id")
	}
	actorID, err := uuid.Parse(m.ActorID)
	if err != nil {
		return auditlog.Record{}, gerrors.Wrap(err, "parse audit actor id")
	}

	rec := auditlog.Record{
		ID:        id,
		TenantID:  tenantID,
		ActorID:   actorID,
		Action:    m.Action,
		TableName: mapping.SQLNullStringToValue(m.TableName),
		CreatedAt: m.CreatedAt,
	}
	if m.RecordID.Valid {
		recordID, err := uuid.Parse(m.RecordID.String)
		if err != nil {
			return auditlog.Record{}, gerrors.Wrap(err, "parse audit record id")
		}
		rec.RecordID = recordID
	}
	for _, pair := range []struct {
		raw []byte
		dst *map[string]any
	}{
		{m.OldValues, &rec.OldValues},
		{m.NewValues, &rec.NewValues},
		{m.Details, &rec.Details},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		decoded := map[string]any{}
		if err := json.Unmarshal(pair.raw, &decoded); err != nil {
			return auditlog.Record{}, gerrors.Wrap(err, "decode audit payload")
		}
		*pair.dst = decoded
	}
	return rec, nil
}

func marshalJSONMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
