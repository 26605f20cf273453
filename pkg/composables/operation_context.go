package composables

import (
	"context"

	"github.com/google/uuid"

	"github.com/rowfence/rowfence/modules/core/domain/aggregates/principal"
	"github.com/rowfence/rowfence/pkg/constants"
	"github.com/rowfence/rowfence/pkg/serrors"
)

// ErrNoActiveContext signals an operation attempted before a context was
// established. This is a programming error in the caller and fatal to the
// unit of work.
var ErrNoActiveContext = serrors.NewError(serrors.CodeNoActiveContext, "no active operation context")

// OperationContext identifies the acting principal for one unit of work.
// It is an immutable value: switching tenant or role means establishing a
// new context, never mutating this one. It must not be shared across
// concurrent units of work.
type OperationContext struct {
	TenantID    uuid.UUID
	PrincipalID uuid.UUID
	Role        principal.Role
}

// WithOperationContext binds an operation context to ctx for the remainder
// of the unit of work.
func WithOperationContext(ctx context.Context, opCtx OperationContext) context.Context {
	return context.WithValue(ctx, constants.OpContextKey, opCtx)
}

// UseOperationContext returns the operation context for the current unit of
// work, or ErrNoActiveContext when none was established.
func UseOperationContext(ctx context.Context) (OperationContext, error) {
	v := ctx.Value(constants.OpContextKey)
	if v == nil {
		return OperationContext{}, ErrNoActiveContext
	}
	return v.(OperationContext), nil
}

// UseTenantID is a shorthand for the tenant of the active operation context.
func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	opCtx, err := UseOperationContext(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return opCtx.TenantID, nil
}
