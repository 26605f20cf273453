package tenant

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = fmt.Errorf("tenant not found")
	ErrInvalidSlug = fmt.Errorf("invalid tenant slug")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a lowercase alnum-and-hyphen slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Tier is the subscription tier of a tenant.
type Tier string

const (
	TierFree         Tier = "free"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierStarter, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// Tenant is the isolation boundary. Tenants are provisioned once and never
// physically deleted; entity rows reference them by id.
type Tenant struct {
	id        uuid.UUID
	name      string
	slug      string
	tier      Tier
	settings  map[string]any
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Tenant)

func WithID(id uuid.UUID) Option {
	return func(t *Tenant) {
		t.id = id
	}
}

func WithTier(tier Tier) Option {
	return func(t *Tenant) {
		t.tier = tier
	}
}

func WithSettings(settings map[string]any) Option {
	return func(t *Tenant) {
		t.settings = settings
	}
}

func WithIsActive(isActive bool) Option {
	return func(t *Tenant) {
		t.isActive = isActive
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(t *Tenant) {
		t.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(t *Tenant) {
		t.updatedAt = updatedAt
	}
}

func New(name, slug string, opts ...Option) *Tenant {
	t := &Tenant{
		id:        uuid.New(),
		name:      name,
		slug:      slug,
		tier:      TierFree,
		settings:  map[string]any{},
		isActive:  true,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tenant) ID() uuid.UUID {
	return t.id
}

func (t *Tenant) Name() string {
	return t.name
}

func (t *Tenant) Slug() string {
	return t.slug
}

func (t *Tenant) Tier() Tier {
	return t.tier
}

// Settings returns a copy so callers cannot mutate the entity in place.
func (t *Tenant) Settings() map[string]any {
	out := make(map[string]any, len(t.settings))
	for k, v := range t.settings {
		out[k] = v
	}
	return out
}

func (t *Tenant) IsActive() bool {
	return t.isActive
}

func (t *Tenant) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Tenant) UpdatedAt() time.Time {
	return t.updatedAt
}

func (t *Tenant) SetSetting(key string, value any) {
	t.settings[key] = value
	t.updatedAt = time.Now()
}

func (t *Tenant) SetTier(tier Tier) {
	t.tier = tier
	t.updatedAt = time.Now()
}

// Deactivate suspends the tenant. Rows remain; tenants are never physically
// deleted.
func (t *Tenant) Deactivate() {
	t.isActive = false
	t.updatedAt = time.Now()
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Create(ctx context.Context, t *Tenant) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) (*Tenant, error)
}
