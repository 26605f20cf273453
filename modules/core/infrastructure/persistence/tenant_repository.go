package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rowfence/rowfence/modules/core/domain/entities/tenant"
	"github.com/rowfence/rowfence/modules/core/infrastructure/persistence/models"
	"github.com/rowfence/rowfence/pkg/composables"
)

var (
	ErrSlugTaken = fmt.Errorf("tenant slug already taken")
)

const (
	tenantFindQuery = `SELECT id, name, slug, tier, settings, is_active, created_at, updated_at FROM tenants`
)

type TenantRepository struct{}

func NewTenantRepository() tenant.Repository {
	return &TenantRepository{}
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return r.queryOne(ctx, tenantFindQuery+" WHERE id = $1", id.String())
}

func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return r.queryOne(ctx, tenantFindQuery+" WHERE slug = $1", strings.ToLower(strings.TrimSpace(slug)))
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := json.Marshal(t.Settings())
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tenants (id, name, slug, tier, settings, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)
		RETURNING id
	`
	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		t.ID().String(),
		t.Name(),
		strings.ToLower(strings.TrimSpace(t.Slug())),
		string(t.Tier()),
		string(settings),
		t.IsActive(),
		t.CreatedAt(),
		t.UpdatedAt(),
	).Scan(&idStr); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := json.Marshal(t.Settings())
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE tenants
		SET name = $1, tier = $2, settings = $3::jsonb, is_active = $4, updated_at = $5
		WHERE id = $6
		RETURNING id
	`
	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		t.Name(),
		string(t.Tier()),
		string(settings),
		t.IsActive(),
		t.UpdatedAt(),
		t.ID().String(),
	).Scan(&idStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, t.ID())
}

func (r *TenantRepository) queryOne(ctx context.Context, query string, args ...any) (*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var m models.Tenant
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&m.ID,
		&m.Name,
		&m.Slug,
		&m.Tier,
		&m.Settings,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, err
	}
	return toDomainTenant(m)
}
