// Package itf provides fixtures shared by service tests.
package itf

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/rowfence/rowfence/modules/core/domain/aggregates/principal"
	"github.com/rowfence/rowfence/pkg/composables"
)

// TestContext builds contexts carrying an operation context without going
// through context establishment. Only tests construct these.
type TestContext struct {
	tenantID    uuid.UUID
	principalID uuid.UUID
	role        principal.Role
}

func NewTestContext() *TestContext {
	return &TestContext{
		tenantID:    uuid.New(),
		principalID: uuid.New(),
		role:        principal.RoleUser,
	}
}

func (tc *TestContext) WithTenant(id uuid.UUID) *TestContext {
	tc.tenantID = id
	return tc
}

func (tc *TestContext) WithPrincipal(id uuid.UUID) *TestContext {
	tc.principalID = id
	return tc
}

func (tc *TestContext) WithRole(role principal.Role) *TestContext {
	tc.role = role
	return tc
}

func (tc *TestContext) TenantID() uuid.UUID    { return tc.tenantID }
func (tc *TestContext) PrincipalID() uuid.UUID { return tc.principalID }

// Build returns a context holding the configured operation context and a
// discard logger.
func (tc *TestContext) Build() context.Context {
	logger, _ := test.NewNullLogger()
	ctx := composables.WithLogger(context.Background(), logrus.NewEntry(logger))
	return composables.WithOperationContext(ctx, composables.OperationContext{
		TenantID:    tc.tenantID,
		PrincipalID: tc.principalID,
		Role:        tc.role,
	})
}

// OpCtx is a shorthand for tests that only need the value, not a context.
func (tc *TestContext) OpCtx() composables.OperationContext {
	return composables.OperationContext{
		TenantID:    tc.tenantID,
		PrincipalID: tc.principalID,
		Role:        tc.role,
	}
}
