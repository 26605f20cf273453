package services

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/rowfence/rowfence/modules/core/domain/entities/auditlog"
	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/metrics"
)

// AuditService appends to the audit trail. Append failures propagate to the
// caller untouched: an unauditable mutation must abort its transaction.
type AuditService struct {
	repo auditlog.Repository
}

func NewAuditService(repo auditlog.Repository) *AuditService {
	return &AuditService{repo: repo}
}

// Record appends one entry using the ambient transaction.
func (s *AuditService) Record(ctx context.Context, rec auditlog.Record) (auditlog.Record, error) {
	if err := rec.Validate(); err != nil {
		return auditlog.Record{}, err
	}
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return auditlog.Record{}, gerrors.Wrap(err, "append audit record")
	}
	metrics.AuditAppendsTotal.Inc()
	return created, nil
}

// List returns audit entries for the active tenant. Non-bypass roles may only
// see their own tenant's trail regardless of the requested params.
func (s *AuditService) List(ctx context.Context, params auditlog.FindParams) ([]auditlog.Record, error) {
	opCtx, err := composables.UseOperationContext(ctx)
	if err != nil {
		return nil, err
	}
	if !opCtx.Role.BypassesTenantIsolation() || params.TenantID == uuid.Nil {
		params.TenantID = opCtx.TenantID
	}
	return s.repo.List(ctx, params)
}
