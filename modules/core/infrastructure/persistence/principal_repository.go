package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rowfence/rowfence/modules/core/domain/aggregates/principal"
	"github.com/rowfence/rowfence/modules/core/infrastructure/persistence/models"
	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/mapping"
)

var (
	ErrEmailTaken = fmt.Errorf("email already taken within tenant")
)

const (
	principalFindQuery = `
		SELECT id, tenant_id, email, first_name, last_name, role, is_active, created_at, updated_at
		FROM tenant_users`
)

type PrincipalRepository struct{}

func NewPrincipalRepository() principal.Repository {
	return &PrincipalRepository{}
}

func (r *PrincipalRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*principal.Principal, error) {
	return r.queryOne(ctx, principalFindQuery+" WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String())
}

func (r *PrincipalRepository) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*principal.Principal, error) {
	return r.queryOne(
		ctx,
		principalFindQuery+" WHERE tenant_id = $1 AND lower(email) = $2",
		tenantID.String(),
		strings.ToLower(strings.TrimSpace(email)),
	)
}

func (r *PrincipalRepository) Create(ctx context.Context, p *principal.Principal) (*principal.Principal, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tenant_users (id, tenant_id, email, first_name, last_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		p.ID().String(),
		p.TenantID().String(),
		strings.ToLower(strings.TrimSpace(p.Email())),
		mapping.ValueToSQLNullString(p.FirstName()),
		mapping.ValueToSQLNullString(p.LastName()),
		string(p.Role()),
		p.IsActive(),
		p.CreatedAt(),
		p.UpdatedAt(),
	).Scan(&idStr); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return r.GetByID(ctx, p.TenantID(), p.ID())
}

func (r *PrincipalRepository) CountByTenantID(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(
		ctx,
		"SELECT COUNT(*) FROM tenant_users WHERE tenant_id = $1 AND is_active",
		tenantID.String(),
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PrincipalRepository) queryOne(ctx context.Context, query string, args ...any) (*principal.Principal, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	var m models.TenantUser
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&m.ID,
		&m.TenantID,
		&m.Email,
		&m.FirstName,
		&m.LastName,
		&m.Role,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, principal.ErrNotFound
		}
		return nil, err
	}
	return toDomainPrincipal(m)
}
