package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowfence/rowfence/modules/access/domain/record"
	"github.com/rowfence/rowfence/modules/access/services"
	"github.com/rowfence/rowfence/modules/core/domain/aggregates/principal"
	"github.com/rowfence/rowfence/modules/core/domain/entities/auditlog"
	coreservices "github.com/rowfence/rowfence/modules/core/services"
	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/eventbus"
	"github.com/rowfence/rowfence/pkg/itf"
	"github.com/rowfence/rowfence/pkg/policy"
	"github.com/rowfence/rowfence/pkg/repo"
	"github.com/rowfence/rowfence/pkg/schema"
	"github.com/rowfence/rowfence/pkg/serrors"
)

// memStore is an in-memory record.Store honoring equality filters the way
// the SQL store does.
type memStore struct {
	tables map[string]map[uuid.UUID]record.Record
}

func newMemStore() *memStore {
	return &memStore{tables: map[string]map[uuid.UUID]record.Record{}}
}

func (s *memStore) table(name string) map[uuid.UUID]record.Record {
	t, ok := s.tables[name]
	if !ok {
		t = map[uuid.UUID]record.Record{}
		s.tables[name] = t
	}
	return t
}

func (s *memStore) matches(entity schema.Entity, rec record.Record, filters []repo.Filter) bool {
	for _, f := range filters {
		var actual any
		switch f.Field {
		case entity.TenantColumn:
			actual = rec.TenantID
		case entity.IDColumn:
			actual = rec.ID
		default:
			actual = rec.Values[f.Field]
		}
		switch f.Op {
		case repo.OpEq:
			if !valuesEqual(actual, f.Value) {
				return false
			}
		case repo.OpNeq:
			if valuesEqual(actual, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func (s *memStore) Select(ctx context.Context, entity schema.Entity, filters []repo.Filter) ([]record.Record, error) {
	var out []record.Record
	for _, rec := range s.table(entity.Table) {
		if s.matches(entity, rec, filters) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memStore) Get(ctx context.Context, entity schema.Entity, id uuid.UUID, filters []repo.Filter) (record.Record, error) {
	rec, ok := s.table(entity.Table)[id]
	if !ok || !s.matches(entity, rec, filters) {
		return record.Record{}, record.ErrNotFound
	}
	return rec, nil
}

func (s *memStore) Insert(ctx context.Context, entity schema.Entity, rec record.Record) (record.Record, error) {
	if entity.Table == "tenant_users" {
		for _, existing := range s.table(entity.Table) {
			if existing.TenantID == rec.TenantID && valuesEqual(existing.Values["email"], rec.Values["email"]) {
				return record.Record{}, record.ErrUniqueViolation
			}
		}
	}
	s.table(entity.Table)[rec.ID] = rec
	return rec, nil
}

func (s *memStore) Update(ctx context.Context, entity schema.Entity, id uuid.UUID, values map[string]any, filters []repo.Filter) (record.Record, error) {
	rec, ok := s.table(entity.Table)[id]
	if !ok || !s.matches(entity, rec, filters) {
		return record.Record{}, record.ErrNotFound
	}
	merged := map[string]any{}
	for k, v := range rec.Values {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	rec.Values = merged
	s.table(entity.Table)[id] = rec
	return rec, nil
}

func (s *memStore) Delete(ctx context.Context, entity schema.Entity, id uuid.UUID, filters []repo.Filter) error {
	rec, ok := s.table(entity.Table)[id]
	if !ok || !s.matches(entity, rec, filters) {
		return record.ErrNotFound
	}
	delete(s.table(entity.Table), id)
	return nil
}

func (s *memStore) snapshot() map[string]map[uuid.UUID]record.Record {
	snap := map[string]map[uuid.UUID]record.Record{}
	for name, table := range s.tables {
		copied := map[uuid.UUID]record.Record{}
		for id, rec := range table {
			copied[id] = rec
		}
		snap[name] = copied
	}
	return snap
}

type memAuditRepo struct {
	records []auditlog.Record
	fail    bool
}

func (f *memAuditRepo) Create(ctx context.Context, r auditlog.Record) (auditlog.Record, error) {
	if f.fail {
		return auditlog.Record{}, fmt.Errorf("audit store down")
	}
	r.ID = uuid.New()
	f.records = append(f.records, r)
	return r, nil
}

func (f *memAuditRepo) List(ctx context.Context, params auditlog.FindParams) ([]auditlog.Record, error) {
	var out []auditlog.Record
	for _, r := range f.records {
		if r.TenantID == params.TenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

// memTransactor rolls the store and audit trail back when fn fails, matching
// the commit/rollback boundary of the real transactor.
type memTransactor struct {
	store *memStore
	audit *memAuditRepo
}

func (t *memTransactor) InTx(ctx context.Context, fn func(context.Context) error) error {
	storeSnap := t.store.snapshot()
	auditSnap := append([]auditlog.Record(nil), t.audit.records...)
	if err := fn(ctx); err != nil {
		t.store.tables = storeSnap
		t.audit.records = auditSnap
		return err
	}
	return nil
}

type gatewayFixture struct {
	gateway *services.Gateway
	store   *memStore
	audit   *memAuditRepo
	bus     eventbus.EventBus
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	registry := schema.Default()
	evaluator, err := policy.NewEvaluator(registry)
	require.NoError(t, err)

	store := newMemStore()
	audit := &memAuditRepo{}
	logger, _ := test.NewNullLogger()
	bus := eventbus.NewEventPublisher(logger)

	return &gatewayFixture{
		gateway: services.NewGateway(
			registry,
			evaluator,
			store,
			&memTransactor{store: store, audit: audit},
			coreservices.NewAuditService(audit),
			bus,
		),
		store: store,
		audit: audit,
		bus:   bus,
	}
}

func auditActions(audit *memAuditRepo) []string {
	out := make([]string, 0, len(audit.records))
	for _, r := range audit.records {
		out = append(out, r.Action)
	}
	return out
}

func TestGateway_InsertStampsOwnershipAndAudits(t *testing.T) {
	f := newGatewayFixture(t)
	tc := itf.NewTestContext().WithRole(principal.RoleUser)
	ctx := tc.Build()

	created, err := f.gateway.Insert(ctx, "leads", map[string]any{
		"title": "Enterprise deal",
		"stage": "new",
	})
	require.NoError(t, err)
	assert.Equal(t, tc.TenantID(), created.TenantID)
	assert.Equal(t, tc.PrincipalID(), created.Values["created_by"])
	assert.NotEqual(t, uuid.Nil, created.ID)

	require.Len(t, f.audit.records, 1)
	rec := f.audit.records[0]
	assert.Equal(t, auditlog.ActionInsert, rec.Action)
	assert.Equal(t, "leads", rec.TableName)
	assert.Equal(t, created.ID, rec.RecordID)
	assert.Nil(t, rec.OldValues)
	assert.Equal(t, "Enterprise deal", rec.NewValues["title"])
}

func TestGateway_ReadIsTenantScoped(t *testing.T) {
	f := newGatewayFixture(t)
	tenantA := itf.NewTestContext().WithRole(principal.RoleUser)
	tenantB := itf.NewTestContext().WithRole(principal.RoleUser)

	_, err := f.gateway.Insert(tenantA.Build(), "leads", map[string]any{"title": "A deal"})
	require.NoError(t, err)
	_, err = f.gateway.Insert(tenantB.Build(), "leads", map[string]any{"title": "B deal"})
	require.NoError(t, err)

	recs, err := f.gateway.Read("leads").All(tenantA.Build())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "A deal", recs[0].Values["title"])

	super := itf.NewTestContext().WithRole(principal.RoleSuperadmin)
	recs, err = f.gateway.Read("leads").All(super.Build())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestGateway_ReadIsRestartable(t *testing.T) {
	f := newGatewayFixture(t)
	tc := itf.NewTestContext().WithRole(principal.RoleUser)
	ctx := tc.Build()

	query := f.gateway.Read("leads")

	recs, err := query.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = f.gateway.Insert(ctx, "leads", map[string]any{"title": "late arrival"})
	require.NoError(t, err)

	// Re-running the same query observes the commit.
	recs, err = query.All(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestGateway_ReadFilters(t *testing.T) {
	f := newGatewayFixture(t)
	tc := itf.NewTestContext().WithRole(principal.RoleUser)
	ctx := tc.Build()

	_, err := f.gateway.Insert(ctx, "leads", map[string]any{"title": "won deal", "stage": "won"})
	require.NoError(t, err)
	_, err = f.gateway.Insert(ctx, "leads", map[string]any{"title": "open deal", "stage": "new"})
	require.NoError(t, err)

	recs, err := f.gateway.Read("leads", repo.Eq("stage", "won")).All(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "won deal", recs[0].Values["title"])
}

func TestGateway_ReadRejectsTenantFilter(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := itf.NewTestContext().WithRole(principal.RoleUser).Build()

	_, err := f.gateway.Read("leads", repo.Eq("tenant_id", uuid.New())).All(ctx)
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))

	_, err = f.gateway.Read("leads", repo.Eq("no_such_column", 1)).All(ctx)
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))
}

func TestGateway_RequiresOperationContext(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.gateway.Read("leads").All(context.Background())
	assert.ErrorIs(t, err, composables.ErrNoActiveContext)

	_, err = f.gateway.Insert(context.Background(), "leads", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, composables.ErrNoActiveContext)
}

func TestGateway_ViewerCannotWrite(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := itf.NewTestContext().WithRole(principal.RoleViewer).Build()

	_, err := f.gateway.Insert(ctx, "leads", map[string]any{"title": "x"})
	assert.True(t, serrors.HasCode(err, serrors.CodeForbidden))
	assert.Empty(t, f.audit.records)
}

func TestGateway_InsertValidatesPayload(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := itf.NewTestContext().WithRole(principal.RoleUser).Build()

	_, err := f.gateway.Insert(ctx, "leads", map[string]any{"title": "x", "stage": "imaginary"})
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))

	_, err = f.gateway.Insert(ctx, "contacts", map[string]any{"email": "a@b.c"})
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))

	assert.Empty(t, f.store.table("leads"))
	assert.Empty(t, f.audit.records)
}

func TestGateway_RejectsReservedColumns(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := itf.NewTestContext().WithRole(principal.RoleUser).Build()

	for _, field := range []string{"id", "tenant_id", "created_at", "updated_at", "created_by"} {
		_, err := f.gateway.Insert(ctx, "leads", map[string]any{"title": "x", field: "y"})
		assert.True(t, serrors.HasCode(err, serrors.CodeValidation), "field %s", field)
	}
}

func TestGateway_CreatedByIsImmutable(t *testing.T) {
	f := newGatewayFixture(t)
	tc := itf.NewTestContext().WithRole(principal.RoleUser)
	ctx := tc.Build()

	created, err := f.gateway.Insert(ctx, "leads", map[string]any{
		"title":       "deal",
		"assigned_to": tc.PrincipalID(),
	})
	require.NoError(t, err)

	// Provenance cannot be rewritten, not even by its owner.
	_, err = f.gateway.Update(ctx, "leads", created.ID, map[string]any{"created_by": uuid.New()})
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))
	assert.Equal(t, tc.PrincipalID(), f.store.table("leads")[created.ID].Values["created_by"])
}

func TestGateway_UpdateRequiresOwnership(t *testing.T) {
	f := newGatewayFixture(t)
	tenantID := uuid.New()
	owner := itf.NewTestContext().WithTenant(tenantID).WithRole(principal.RoleUser)
	colleague := itf.NewTestContext().WithTenant(tenantID).WithRole(principal.RoleUser)

	created, err := f.gateway.Insert(owner.Build(), "leads", map[string]any{
		"title":       "mine",
		"assigned_to": owner.PrincipalID(),
	})
	require.NoError(t, err)

	// A colleague in the same tenant sees the row but cannot mutate it.
	recs, err := f.gateway.Read("leads").All(colleague.Build())
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = f.gateway.Update(colleague.Build(), "leads", created.ID, map[string]any{"stage": "won"})
	assert.True(t, serrors.HasCode(err, serrors.CodeForbidden))
	assert.Equal(t, []string{auditlog.ActionInsert}, auditActions(f.audit))

	// The owner can.
	updated, err := f.gateway.Update(owner.Build(), "leads", created.ID, map[string]any{"stage": "won"})
	require.NoError(t, err)
	assert.Equal(t, "won", updated.Values["stage"])

	// An admin can regardless of ownership.
	admin := itf.NewTestContext().WithTenant(tenantID).WithRole(principal.RoleAdmin)
	_, err = f.gateway.Update(admin.Build(), "leads", created.ID, map[string]any{"stage": "lost"})
	require.NoError(t, err)
}

func TestGateway_AssigningAwayRelinquishesOwnership(t *testing.T) {
	f := newGatewayFixture(t)
	tenantID := uuid.New()
	creator := itf.NewTestContext().WithTenant(tenantID).WithRole(principal.RoleUser)
	assignee := itf.NewTestContext().WithTenant(tenantID).WithRole(principal.RoleUser)

	created, err := f.gateway.Insert(creator.Build(), "leads", map[string]any{
		"title":       "handed off",
		"assigned_to": assignee.PrincipalID(),
	})
	require.NoError(t, err)
	assert.Equal(t, creator.PrincipalID(), created.Values["created_by"])

	// Having created the row does not outrank its assignee.
	_, err = f.gateway.Update(creator.Build(), "leads", created.ID, map[string]any{"stage": "won"})
	assert.True(t, serrors.HasCode(err, serrors.CodeForbidden))
	err = f.gateway.Delete(creator.Build(), "leads", created.ID)
	assert.True(t, serrors.HasCode(err, serrors.CodeForbidden))

	updated, err := f.gateway.Update(assignee.Build(), "leads", created.ID, map[string]any{"stage": "won"})
	require.NoError(t, err)
	assert.Equal(t, "won", updated.Values["stage"])
}

func TestGateway_UpdateAcrossTenantsIsNotFound(t *testing.T) {
	f := newGatewayFixture(t)
	tenantA := itf.NewTestContext().WithRole(principal.RoleUser)
	tenantB := itf.NewTestContext().WithRole(principal.RoleAdmin)

	created, err := f.gateway.Insert(tenantA.Build(), "leads", map[string]any{"title": "A deal"})
	require.NoError(t, err)

	// Existence in another tenant is never confirmed, even to an admin.
	_, err = f.gateway.Update(tenantB.Build(), "leads", created.ID, map[string]any{"stage": "won"})
	assert.True(t, serrors.HasCode(err, serrors.CodeNotFound))

	err = f.gateway.Delete(tenantB.Build(), "leads", created.ID)
	assert.True(t, serrors.HasCode(err, serrors.CodeNotFound))
}

func TestGateway_UpdateValidatesMergedRow(t *testing.T) {
	f := newGatewayFixture(t)
	tc := itf.NewTestContext().WithRole(principal.RoleUser)
	ctx := tc.Build()

	created, err := f.gateway.Insert(ctx, "leads", map[string]any{
		"title":       "deal",
		"probability": 10,
		"assigned_to": tc.PrincipalID(),
	})
	require.NoError(t, err)

	// A partial payload keeps satisfying required_any via the existing title.
	updated, err := f.gateway.Update(ctx, "leads", created.ID, map[string]any{"probability": 90})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.Values["probability"])

	_, err = f.gateway.Update(ctx, "leads", created.ID, map[string]any{"probability": 500})
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))
}

func TestGateway_UpdateAuditsOldAndNewImages(t *testing.T) {
	f := newGatewayFixture(t)
	tc := itf.NewTestContext().WithRole(principal.RoleUser)
	ctx := tc.Build()

	created, err := f.gateway.Insert(ctx, "leads", map[string]any{
		"title":       "deal",
		"stage":       "new",
		"assigned_to": tc.PrincipalID(),
	})
	require.NoError(t, err)

	_, err = f.gateway.Update(ctx, "leads", created.ID, map[string]any{"stage": "won"})
	require.NoError(t, err)

	require.Len(t, f.audit.records, 2)
	rec := f.audit.records[1]
	assert.Equal(t, auditlog.ActionUpdate, rec.Action)
	assert.Equal(t, "new", rec.OldValues["stage"])
	assert.Equal(t, "won", rec.NewValues["stage"])
}

func TestGateway_DeleteAuditsOldImage(t *testing.T) {
	f := newGatewayFixture(t)
	tc := itf.NewTestContext().WithRole(principal.RoleUser)
	ctx := tc.Build()

	created, err := f.gateway.Insert(ctx, "leads", map[string]any{
		"title":       "doomed",
		"assigned_to": tc.PrincipalID(),
	})
	require.NoError(t, err)

	require.NoError(t, f.gateway.Delete(ctx, "leads", created.ID))
	assert.Empty(t, f.store.table("leads"))

	require.Len(t, f.audit.records, 2)
	rec := f.audit.records[1]
	assert.Equal(t, auditlog.ActionDelete, rec.Action)
	assert.Equal(t, "doomed", rec.OldValues["title"])
	assert.Nil(t, rec.NewValues)
}

func TestGateway_WriteAndAuditAreAtomic(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := itf.NewTestContext().WithRole(principal.RoleUser).Build()

	f.audit.fail = true
	_, err := f.gateway.Insert(ctx, "leads", map[string]any{"title": "ghost"})
	require.Error(t, err)

	// The row must not survive its failed audit append.
	assert.Empty(t, f.store.table("leads"))
	assert.Empty(t, f.audit.records)
}

func TestGateway_PrincipalEmailUniquePerTenant(t *testing.T) {
	f := newGatewayFixture(t)
	tenantA := itf.NewTestContext().WithRole(principal.RoleAdmin)
	tenantB := itf.NewTestContext().WithRole(principal.RoleAdmin)

	payload := map[string]any{"email": "dup@example.com", "role": "user"}

	_, err := f.gateway.Insert(tenantA.Build(), "principals", payload)
	require.NoError(t, err)

	_, err = f.gateway.Insert(tenantA.Build(), "principals", payload)
	assert.True(t, serrors.HasCode(err, serrors.CodeUniqueConflict))

	// The same email in another tenant is fine.
	_, err = f.gateway.Insert(tenantB.Build(), "principals", payload)
	require.NoError(t, err)
}

func TestGateway_SelfServicePrincipalUpdate(t *testing.T) {
	f := newGatewayFixture(t)
	tenantID := uuid.New()
	admin := itf.NewTestContext().WithTenant(tenantID).WithRole(principal.RoleAdmin)

	created, err := f.gateway.Insert(admin.Build(), "principals", map[string]any{
		"email": "viewer@example.com",
		"role":  "viewer",
	})
	require.NoError(t, err)

	// The viewer updates its own row despite having no write capability.
	viewer := itf.NewTestContext().
		WithTenant(tenantID).
		WithPrincipal(created.ID).
		WithRole(principal.RoleViewer)
	updated, err := f.gateway.Update(viewer.Build(), "principals", created.ID, map[string]any{
		"first_name": "Sam",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sam", updated.Values["first_name"])

	// But not anyone else's.
	other, err := f.gateway.Insert(admin.Build(), "principals", map[string]any{
		"email": "other@example.com",
		"role":  "user",
	})
	require.NoError(t, err)
	_, err = f.gateway.Update(viewer.Build(), "principals", other.ID, map[string]any{"first_name": "X"})
	assert.True(t, serrors.HasCode(err, serrors.CodeForbidden))
}

func TestGateway_SelfServiceCannotTouchRoleOrActivation(t *testing.T) {
	f := newGatewayFixture(t)
	tenantID := uuid.New()
	admin := itf.NewTestContext().WithTenant(tenantID).WithRole(principal.RoleAdmin)

	created, err := f.gateway.Insert(admin.Build(), "principals", map[string]any{
		"email": "viewer@example.com",
		"role":  "viewer",
	})
	require.NoError(t, err)

	viewer := itf.NewTestContext().
		WithTenant(tenantID).
		WithPrincipal(created.ID).
		WithRole(principal.RoleViewer)

	// A principal cannot grant itself a stronger role or flip its activation.
	_, err = f.gateway.Update(viewer.Build(), "principals", created.ID, map[string]any{"role": "admin"})
	assert.True(t, serrors.HasCode(err, serrors.CodeForbidden))
	_, err = f.gateway.Update(viewer.Build(), "principals", created.ID, map[string]any{"is_active": true})
	assert.True(t, serrors.HasCode(err, serrors.CodeForbidden))

	stored, err := f.gateway.Read("principals", repo.Eq("email", "viewer@example.com")).One(admin.Build())
	require.NoError(t, err)
	assert.Equal(t, "viewer", stored.Values["role"])

	// Role changes stay with tenant admins.
	updated, err := f.gateway.Update(admin.Build(), "principals", created.ID, map[string]any{"role": "manager"})
	require.NoError(t, err)
	assert.Equal(t, "manager", updated.Values["role"])
}

func TestGateway_SuperadminRoleIsNotGrantable(t *testing.T) {
	f := newGatewayFixture(t)
	admin := itf.NewTestContext().WithRole(principal.RoleAdmin)

	_, err := f.gateway.Insert(admin.Build(), "principals", map[string]any{
		"email": "boss@example.com",
		"role":  "superadmin",
	})
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))
	assert.Empty(t, f.store.table("tenant_users"))

	created, err := f.gateway.Insert(admin.Build(), "principals", map[string]any{
		"email": "boss@example.com",
		"role":  "user",
	})
	require.NoError(t, err)

	_, err = f.gateway.Update(admin.Build(), "principals", created.ID, map[string]any{"role": "superadmin"})
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))
	assert.Equal(t, "user", f.store.table("tenant_users")[created.ID].Values["role"])
}

func TestGateway_PublishesEventsAfterCommit(t *testing.T) {
	f := newGatewayFixture(t)
	tc := itf.NewTestContext().WithRole(principal.RoleUser)
	ctx := tc.Build()

	var created []record.CreatedEvent
	var deleted []record.DeletedEvent
	f.bus.Subscribe(func(e record.CreatedEvent) { created = append(created, e) })
	f.bus.Subscribe(func(e record.DeletedEvent) { deleted = append(deleted, e) })

	rec, err := f.gateway.Insert(ctx, "leads", map[string]any{
		"title":       "deal",
		"assigned_to": tc.PrincipalID(),
	})
	require.NoError(t, err)
	require.NoError(t, f.gateway.Delete(ctx, "leads", rec.ID))

	require.Len(t, created, 1)
	assert.Equal(t, "leads", created[0].EntityType)
	require.Len(t, deleted, 1)
	assert.Equal(t, rec.ID, deleted[0].RecordID)

	// Failed writes publish nothing.
	_, err = f.gateway.Insert(ctx, "leads", map[string]any{"title": "x", "stage": "bogus"})
	require.Error(t, err)
	assert.Len(t, created, 1)
}

func TestGateway_UnknownEntityType(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := itf.NewTestContext().WithRole(principal.RoleUser).Build()

	_, err := f.gateway.Read("spaceships").All(ctx)
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))

	_, err = f.gateway.Insert(ctx, "spaceships", map[string]any{})
	assert.True(t, serrors.HasCode(err, serrors.CodeValidation))
}

func TestGateway_ReadOne(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := itf.NewTestContext().WithRole(principal.RoleUser).Build()

	_, err := f.gateway.Read("leads", repo.Eq("stage", "won")).One(ctx)
	assert.True(t, serrors.HasCode(err, serrors.CodeNotFound))

	_, err = f.gateway.Insert(ctx, "leads", map[string]any{"title": "deal", "stage": "won"})
	require.NoError(t, err)

	rec, err := f.gateway.Read("leads", repo.Eq("stage", "won")).One(ctx)
	require.NoError(t, err)
	assert.Equal(t, "deal", rec.Values["title"])
}
