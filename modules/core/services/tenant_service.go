package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/rowfence/rowfence/modules/core/domain/aggregates/principal"
	"github.com/rowfence/rowfence/modules/core/domain/entities/tenant"
	"github.com/rowfence/rowfence/modules/core/infrastructure/persistence"
	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/serrors"
)

// TenantService provisions tenants and their first admin principal. Tenants
// are never physically deleted.
type TenantService struct {
	tenants    tenant.Repository
	principals principal.Repository
}

func NewTenantService(tenants tenant.Repository, principals principal.Repository) *TenantService {
	return &TenantService{tenants: tenants, principals: principals}
}

// Provision creates a tenant with a globally unique slug.
func (s *TenantService) Provision(ctx context.Context, name, slug string, tier tenant.Tier) (*tenant.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" {
		return nil, serrors.NewValidationFailed("tenant name is required", "name")
	}
	if !tenant.ValidSlug(slug) {
		return nil, serrors.NewValidationFailed("slug must be lowercase alphanumerics and hyphens", "slug")
	}
	if !tier.IsValid() {
		return nil, serrors.NewValidationFailed("unknown subscription tier", "tier")
	}

	return composables.InTxResult(ctx, func(txCtx context.Context) (*tenant.Tenant, error) {
		created, err := s.tenants.Create(txCtx, tenant.New(name, slug, tenant.WithTier(tier)))
		if err != nil {
			if errors.Is(err, persistence.ErrSlugTaken) {
				return nil, serrors.NewUniqueConflict("tenant slug already in use")
			}
			return nil, err
		}
		return created, nil
	})
}

// CreateInitialAdmin seeds the first admin principal of a freshly provisioned
// tenant. Later principals are created through the access gateway.
func (s *TenantService) CreateInitialAdmin(ctx context.Context, tenantID uuid.UUID, email string) (*principal.Principal, error) {
	if strings.TrimSpace(email) == "" {
		return nil, serrors.NewValidationFailed("email is required", "email")
	}
	return composables.InTxResult(ctx, func(txCtx context.Context) (*principal.Principal, error) {
		created, err := s.principals.Create(txCtx, principal.New(tenantID, email, principal.RoleAdmin))
		if err != nil {
			if errors.Is(err, persistence.ErrEmailTaken) {
				return nil, serrors.NewUniqueConflict("email already in use within tenant")
			}
			return nil, err
		}
		return created, nil
	})
}

// Deactivate suspends a tenant. Rows stay in place; nothing is deleted.
func (s *TenantService) Deactivate(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return composables.InTxResult(ctx, func(txCtx context.Context) (*tenant.Tenant, error) {
		t, err := s.tenants.GetByID(txCtx, id)
		if err != nil {
			if errors.Is(err, tenant.ErrNotFound) {
				return nil, serrors.NewNotFound("tenant not found")
			}
			return nil, err
		}
		t.Deactivate()
		return s.tenants.Update(txCtx, t)
	})
}

func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return nil, serrors.NewNotFound("tenant not found")
		}
		return nil, err
	}
	return t, nil
}

func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, err := s.tenants.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return nil, serrors.NewNotFound("tenant not found")
		}
		return nil, err
	}
	return t, nil
}
