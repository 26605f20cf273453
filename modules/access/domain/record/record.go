package record

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rowfence/rowfence/pkg/repo"
	"github.com/rowfence/rowfence/pkg/schema"
)

var (
	// ErrNotFound covers both a genuinely absent row and a row belonging to
	// another tenant. The two cases are intentionally indistinguishable.
	ErrNotFound = fmt.Errorf("record not found")
	// ErrUniqueViolation is returned by stores on unique constraint hits.
	ErrUniqueViolation = fmt.Errorf("unique constraint violation")
)

// Record is one row of a tenant-scoped entity. Values holds the schema
// columns, including ownership references and the custom_fields document.
type Record struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Values    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Value returns a named column value.
func (r Record) Value(name string) any {
	return r.Values[name]
}

// Store executes schema-driven statements against the relational store. All
// filters arrive as structured predicates; implementations never interpolate
// caller input into SQL text.
type Store interface {
	Select(ctx context.Context, entity schema.Entity, filters []repo.Filter) ([]Record, error)
	Get(ctx context.Context, entity schema.Entity, id uuid.UUID, filters []repo.Filter) (Record, error)
	Insert(ctx context.Context, entity schema.Entity, rec Record) (Record, error)
	Update(ctx context.Context, entity schema.Entity, id uuid.UUID, values map[string]any, filters []repo.Filter) (Record, error)
	Delete(ctx context.Context, entity schema.Entity, id uuid.UUID, filters []repo.Filter) error
}

// Transactor runs a function inside one transactional unit. The gateway uses
// it to commit a mutation and its audit record atomically.
type Transactor interface {
	InTx(ctx context.Context, fn func(context.Context) error) error
}
