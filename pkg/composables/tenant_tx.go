package composables

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rowfence/rowfence/pkg/configuration"
	"github.com/rowfence/rowfence/pkg/constants"
)

// ApplyTenantRLS pins the transaction to the active tenant with a
// transaction-local session variable. Database row-security policies keyed
// on app.current_tenant then apply even if a predicate is ever missed in Go.
// Bypass roles skip the pin; their statements see every tenant.
func ApplyTenantRLS(ctx context.Context, tx pgx.Tx) error {
	if configuration.Use().RLSEnforce != "enforce" {
		return nil
	}
	opCtx, err := UseOperationContext(ctx)
	if err != nil {
		return fmt.Errorf("rls requires an operation context: %w", err)
	}
	if opCtx.Role.BypassesTenantIsolation() {
		return nil
	}
	_, err = tx.Exec(ctx, "SELECT set_config('app.current_tenant', $1, true)", opCtx.TenantID.String())
	if err != nil {
		return fmt.Errorf("failed to set rls tenant context: %w", err)
	}
	return nil
}

// InTenantTx runs fn inside a tenant-pinned transaction. An existing
// transaction in ctx is reused (after re-applying the tenant pin), so nested
// calls share one commit/rollback boundary.
func InTenantTx(ctx context.Context, fn func(context.Context) error) error {
	if existing, ok := ctx.Value(constants.TxKey).(pgx.Tx); ok && existing != nil {
		if err := ApplyTenantRLS(ctx, existing); err != nil {
			return err
		}
		return fn(ctx)
	}

	pool, err := UsePool(ctx)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	txCtx := WithTx(ctx, tx)
	if err := ApplyTenantRLS(txCtx, tx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}

	if err := fn(txCtx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// InTenantTxResult is InTenantTx for functions returning a value.
func InTenantTxResult[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := InTenantTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}
