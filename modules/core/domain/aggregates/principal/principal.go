package principal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = fmt.Errorf("principal not found")
)

// Role is the closed set of roles a principal can hold within its tenant.
// Superadmin is the only role that crosses tenant boundaries.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleUser       Role = "user"
	RoleViewer     Role = "viewer"
)

var validRoles = map[Role]struct{}{
	RoleSuperadmin: {},
	RoleAdmin:      {},
	RoleManager:    {},
	RoleUser:       {},
	RoleViewer:     {},
}

func (r Role) IsValid() bool {
	_, ok := validRoles[r]
	return ok
}

// BypassesTenantIsolation reports whether the role sees rows of every tenant.
func (r Role) BypassesTenantIsolation() bool {
	return r == RoleSuperadmin
}

// IsTenantAdmin reports whether the role may mutate rows it does not own and
// manage other principals of the same tenant.
func (r Role) IsTenantAdmin() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// Roles returns the closed role set, for validation rules.
func Roles() []Role {
	return []Role{RoleSuperadmin, RoleAdmin, RoleManager, RoleUser, RoleViewer}
}

// Principal is a user scoped to exactly one tenant. The tenant binding is
// immutable after creation.
type Principal struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	email     string
	firstName string
	lastName  string
	role      Role
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Principal)

func WithID(id uuid.UUID) Option {
	return func(p *Principal) {
		p.id = id
	}
}

func WithName(first, last string) Option {
	return func(p *Principal) {
		p.firstName = first
		p.lastName = last
	}
}

func WithIsActive(isActive bool) Option {
	return func(p *Principal) {
		p.isActive = isActive
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(p *Principal) {
		p.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(p *Principal) {
		p.updatedAt = updatedAt
	}
}

func New(tenantID uuid.UUID, email string, role Role, opts ...Option) *Principal {
	p := &Principal{
		id:        uuid.New(),
		tenantID:  tenantID,
		email:     email,
		role:      role,
		isActive:  true,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Principal) ID() uuid.UUID {
	return p.id
}

func (p *Principal) TenantID() uuid.UUID {
	return p.tenantID
}

func (p *Principal) Email() string {
	return p.email
}

func (p *Principal) FirstName() string {
	return p.firstName
}

func (p *Principal) LastName() string {
	return p.lastName
}

func (p *Principal) Role() Role {
	return p.role
}

func (p *Principal) IsActive() bool {
	return p.isActive
}

func (p *Principal) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Principal) UpdatedAt() time.Time {
	return p.updatedAt
}

func (p *Principal) SetRole(role Role) {
	p.role = role
	p.updatedAt = time.Now()
}

func (p *Principal) Deactivate() {
	p.isActive = false
	p.updatedAt = time.Now()
}

// Repository is the lookup surface the context service needs. Principal
// mutations flow through the access gateway like any other entity type.
type Repository interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Principal, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Principal, error)
	Create(ctx context.Context, p *Principal) (*Principal, error)
	CountByTenantID(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
