package persistence

import (
	"context"

	"github.com/rowfence/rowfence/modules/access/domain/record"
	"github.com/rowfence/rowfence/pkg/composables"
)

// PgTransactor opens tenant-pinned pgx transactions via the composable
// transaction helpers. Nested use reuses the ambient transaction.
type PgTransactor struct{}

func NewPgTransactor() record.Transactor {
	return &PgTransactor{}
}

func (t *PgTransactor) InTx(ctx context.Context, fn func(context.Context) error) error {
	return composables.InTenantTx(ctx, fn)
}
