package policy_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowfence/rowfence/modules/core/domain/aggregates/principal"
	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/policy"
	"github.com/rowfence/rowfence/pkg/repo"
	"github.com/rowfence/rowfence/pkg/schema"
)

func newEvaluator(t *testing.T) *policy.Evaluator {
	t.Helper()
	e, err := policy.NewEvaluator(schema.Default())
	require.NoError(t, err)
	return e
}

func opCtx(role principal.Role) composables.OperationContext {
	return composables.OperationContext{
		TenantID:    uuid.New(),
		PrincipalID: uuid.New(),
		Role:        role,
	}
}

func TestAuthorize_ReadAlwaysCarriesTenantFilter(t *testing.T) {
	e := newEvaluator(t)
	ctx := opCtx(principal.RoleViewer)

	d, err := e.Authorize(ctx, "leads", policy.OpRead, nil)
	require.NoError(t, err)
	assert.True(t, d.Allow)
	require.Len(t, d.Filter, 1)
	assert.Equal(t, repo.Eq("tenant_id", ctx.TenantID), d.Filter[0])
}

func TestAuthorize_SuperadminBypassesTenantFilter(t *testing.T) {
	e := newEvaluator(t)

	d, err := e.Authorize(opCtx(principal.RoleSuperadmin), "leads", policy.OpRead, nil)
	require.NoError(t, err)
	assert.True(t, d.Allow)
	assert.Empty(t, d.Filter)
}

func TestAuthorize_CapabilityMatrix(t *testing.T) {
	e := newEvaluator(t)

	cases := []struct {
		role  principal.Role
		op    policy.Operation
		allow bool
	}{
		{principal.RoleViewer, policy.OpRead, true},
		{principal.RoleViewer, policy.OpInsert, false},
		{principal.RoleUser, policy.OpRead, true},
		{principal.RoleUser, policy.OpInsert, true},
		{principal.RoleManager, policy.OpInsert, true},
		{principal.RoleAdmin, policy.OpInsert, true},
		{principal.RoleSuperadmin, policy.OpInsert, true},
	}
	for _, tc := range cases {
		d, err := e.Authorize(opCtx(tc.role), "leads", tc.op, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.allow, d.Allow, "%s %s leads", tc.role, tc.op)
		if !d.Allow {
			assert.NotEmpty(t, d.Reason)
		}
	}
}

func TestAuthorize_PrincipalsAreAdminOnly(t *testing.T) {
	e := newEvaluator(t)

	for _, role := range []principal.Role{principal.RoleViewer, principal.RoleUser, principal.RoleManager} {
		d, err := e.Authorize(opCtx(role), "principals", policy.OpInsert, nil)
		require.NoError(t, err)
		assert.False(t, d.Allow, "%s should not create principals", role)
	}

	d, err := e.Authorize(opCtx(principal.RoleAdmin), "principals", policy.OpInsert, nil)
	require.NoError(t, err)
	assert.True(t, d.Allow)
}

func TestAuthorize_OwnershipGatesMutations(t *testing.T) {
	e := newEvaluator(t)
	ctx := opCtx(principal.RoleUser)
	other := uuid.New()

	owned := &policy.Candidate{ID: uuid.New(), Values: map[string]any{
		"assigned_to": ctx.PrincipalID,
		"created_by":  other,
	}}
	foreign := &policy.Candidate{ID: uuid.New(), Values: map[string]any{
		"assigned_to": other,
		"created_by":  other,
	}}

	d, err := e.Authorize(ctx, "leads", policy.OpUpdate, owned)
	require.NoError(t, err)
	assert.True(t, d.Allow)

	d, err = e.Authorize(ctx, "leads", policy.OpUpdate, foreign)
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.Contains(t, d.Reason, "not owned")

	d, err = e.Authorize(ctx, "leads", policy.OpDelete, foreign)
	require.NoError(t, err)
	assert.False(t, d.Allow)
}

func TestAuthorize_AssigneeOutranksCreator(t *testing.T) {
	// A creator who assigned the row to someone else no longer owns it.
	e := newEvaluator(t)
	ctx := opCtx(principal.RoleUser)

	reassigned := &policy.Candidate{ID: uuid.New(), Values: map[string]any{
		"assigned_to": uuid.New(),
		"created_by":  ctx.PrincipalID.String(),
	}}
	d, err := e.Authorize(ctx, "leads", policy.OpUpdate, reassigned)
	require.NoError(t, err)
	assert.False(t, d.Allow)

	d, err = e.Authorize(ctx, "leads", policy.OpDelete, reassigned)
	require.NoError(t, err)
	assert.False(t, d.Allow)
}

func TestAuthorize_CreatorOwnsWhenNoOwnerColumn(t *testing.T) {
	registry, err := schema.Parse([]byte(`
entities:
  notes:
    table: notes
    created_by_column: created_by
    columns:
      - { name: body, kind: text }
      - { name: created_by, kind: uuid }
`))
	require.NoError(t, err)
	e, err := policy.NewEvaluator(registry)
	require.NoError(t, err)

	ctx := opCtx(principal.RoleUser)
	own := &policy.Candidate{ID: uuid.New(), Values: map[string]any{"created_by": ctx.PrincipalID}}
	d, err := e.Authorize(ctx, "notes", policy.OpUpdate, own)
	require.NoError(t, err)
	assert.True(t, d.Allow)

	foreign := &policy.Candidate{ID: uuid.New(), Values: map[string]any{"created_by": uuid.New()}}
	d, err = e.Authorize(ctx, "notes", policy.OpDelete, foreign)
	require.NoError(t, err)
	assert.False(t, d.Allow)
}

func TestAuthorize_AdminMutatesUnownedRows(t *testing.T) {
	e := newEvaluator(t)
	ctx := opCtx(principal.RoleAdmin)

	foreign := &policy.Candidate{ID: uuid.New(), Values: map[string]any{
		"assigned_to": uuid.New(),
	}}
	d, err := e.Authorize(ctx, "leads", policy.OpUpdate, foreign)
	require.NoError(t, err)
	assert.True(t, d.Allow)
}

func TestAuthorize_ReadIgnoresOwnership(t *testing.T) {
	// Reads are tenant-scoped only; a user sees rows owned by colleagues.
	e := newEvaluator(t)
	d, err := e.Authorize(opCtx(principal.RoleUser), "leads", policy.OpRead, nil)
	require.NoError(t, err)
	assert.True(t, d.Allow)
	require.Len(t, d.Filter, 1)
	assert.Equal(t, "tenant_id", d.Filter[0].Field)
}

func TestAuthorize_SelfServicePrincipalUpdate(t *testing.T) {
	e := newEvaluator(t)
	ctx := opCtx(principal.RoleViewer)

	own := &policy.Candidate{ID: ctx.PrincipalID, Values: map[string]any{}}
	d, err := e.Authorize(ctx, "principals", policy.OpUpdate, own)
	require.NoError(t, err)
	assert.True(t, d.Allow)

	colleague := &policy.Candidate{ID: uuid.New(), Values: map[string]any{}}
	d, err = e.Authorize(ctx, "principals", policy.OpUpdate, colleague)
	require.NoError(t, err)
	assert.False(t, d.Allow)

	// Self-service covers update only.
	d, err = e.Authorize(ctx, "principals", policy.OpDelete, own)
	require.NoError(t, err)
	assert.False(t, d.Allow)
}

func TestAuthorize_MalformedRequests(t *testing.T) {
	e := newEvaluator(t)

	_, err := e.Authorize(opCtx(principal.RoleUser), "unknown", policy.OpRead, nil)
	require.Error(t, err)

	_, err = e.Authorize(opCtx(principal.RoleUser), "leads", "truncate", nil)
	require.Error(t, err)

	bad := opCtx("emperor")
	_, err = e.Authorize(bad, "leads", policy.OpRead, nil)
	require.Error(t, err)
}

func TestAuthorize_IsDeterministic(t *testing.T) {
	e := newEvaluator(t)
	ctx := opCtx(principal.RoleUser)
	cand := &policy.Candidate{ID: uuid.New(), Values: map[string]any{"assigned_to": uuid.New()}}

	first, err := e.Authorize(ctx, "leads", policy.OpUpdate, cand)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := e.Authorize(ctx, "leads", policy.OpUpdate, cand)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
