package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/rowfence/rowfence/modules/core/domain/aggregates/principal"
	"github.com/rowfence/rowfence/modules/core/domain/entities/auditlog"
	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/serrors"
)

// ContextService establishes operation contexts. Establishment is the only
// way to obtain one: callers cannot assemble a context value that skips the
// principal/tenant/role verification below.
type ContextService struct {
	principals principal.Repository
	audit      *AuditService
}

func NewContextService(principals principal.Repository, audit *AuditService) *ContextService {
	return &ContextService{principals: principals, audit: audit}
}

// Establish verifies that the principal exists in the tenant, is active, and
// actually holds the claimed role, then returns a derived context carrying
// the immutable OperationContext. A successful establish appends one
// context_switch audit record in the same transactional unit.
//
// The claimed role is compared against the stored role so a caller can never
// elevate itself; role changes go through a principal update by an admin and
// take effect on the next establish.
func (s *ContextService) Establish(ctx context.Context, principalID, tenantID uuid.UUID, claimedRole principal.Role) (context.Context, error) {
	if !claimedRole.IsValid() {
		return nil, serrors.NewInvalidContext("unknown role")
	}

	p, err := s.principals.GetByID(ctx, tenantID, principalID)
	if err != nil {
		// Unknown principal and wrong tenant are indistinguishable on purpose.
		return nil, serrors.NewInvalidContext("principal does not exist in tenant").WithCause(err)
	}
	if !p.IsActive() {
		return nil, serrors.NewInvalidContext("principal is inactive")
	}
	if p.Role() != claimedRole {
		return nil, serrors.NewInvalidContext("claimed role does not match stored role")
	}

	opCtx := composables.OperationContext{
		TenantID:    tenantID,
		PrincipalID: principalID,
		Role:        p.Role(),
	}
	established := composables.WithOperationContext(ctx, opCtx)

	err = composables.InTenantTx(established, func(txCtx context.Context) error {
		_, err := s.audit.Record(txCtx, auditlog.Record{
			TenantID: tenantID,
			ActorID:  principalID,
			Action:   auditlog.ActionContextSwitch,
			Details: map[string]any{
				"role": string(p.Role()),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	composables.UseLogger(established).
		WithField("tenant_id", tenantID).
		WithField("principal_id", principalID).
		WithField("role", p.Role()).
		Debug("operation context established")

	return established, nil
}

// Current returns the operation context of the current unit of work.
func (s *ContextService) Current(ctx context.Context) (composables.OperationContext, error) {
	return composables.UseOperationContext(ctx)
}
