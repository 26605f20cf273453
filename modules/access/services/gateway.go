package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rowfence/rowfence/modules/access/domain/record"
	"github.com/rowfence/rowfence/modules/core/domain/entities/auditlog"
	coreservices "github.com/rowfence/rowfence/modules/core/services"
	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/eventbus"
	"github.com/rowfence/rowfence/pkg/metrics"
	"github.com/rowfence/rowfence/pkg/policy"
	"github.com/rowfence/rowfence/pkg/repo"
	"github.com/rowfence/rowfence/pkg/schema"
	"github.com/rowfence/rowfence/pkg/serrors"
)

// Gateway is the single entry point for entity reads and writes. Nothing
// else in the codebase talks to the record store: every operation passes the
// policy evaluator, and every mutation commits atomically with its audit
// record.
type Gateway struct {
	registry   *schema.Registry
	evaluator  *policy.Evaluator
	store      record.Store
	transactor record.Transactor
	audit      *coreservices.AuditService
	publisher  eventbus.EventBus
}

func NewGateway(
	registry *schema.Registry,
	evaluator *policy.Evaluator,
	store record.Store,
	transactor record.Transactor,
	audit *coreservices.AuditService,
	publisher eventbus.EventBus,
) *Gateway {
	return &Gateway{
		registry:   registry,
		evaluator:  evaluator,
		store:      store,
		transactor: transactor,
		audit:      audit,
		publisher:  publisher,
	}
}

// Read builds a restartable query. Each All call executes afresh against the
// store, so re-issuing observes whatever has been committed in between.
func (g *Gateway) Read(entityType string, filters ...repo.Filter) *ReadQuery {
	return &ReadQuery{gateway: g, entityType: entityType, filters: filters}
}

// ReadQuery is a lazy, finite, restartable read. It holds no store state.
type ReadQuery struct {
	gateway    *Gateway
	entityType string
	filters    []repo.Filter
}

// All executes the query and returns every visible row.
func (q *ReadQuery) All(ctx context.Context) ([]record.Record, error) {
	g := q.gateway

	opCtx, err := composables.UseOperationContext(ctx)
	if err != nil {
		return nil, err
	}
	entity, ok := g.registry.Entity(q.entityType)
	if !ok {
		return nil, serrors.NewValidationFailed("unknown entity type", q.entityType)
	}
	if err := g.checkCallerFilters(entity, q.filters); err != nil {
		return nil, err
	}

	decision, err := g.evaluator.Authorize(opCtx, q.entityType, policy.OpRead, nil)
	if err != nil {
		return nil, err
	}
	if !decision.Allow {
		metrics.DenialsTotal.WithLabelValues(q.entityType, string(policy.OpRead)).Inc()
		return nil, serrors.NewForbidden(decision.Reason)
	}

	// The mandatory policy filter is ANDed in front of the caller's filters
	// and can never be widened by them.
	merged := append(append([]repo.Filter{}, decision.Filter...), q.filters...)
	recs, err := g.store.Select(ctx, entity, merged)
	if err != nil {
		return nil, g.mapStoreError(err)
	}
	metrics.ReadsTotal.WithLabelValues(q.entityType).Inc()
	return recs, nil
}

// One executes the query and returns the single matching row.
func (q *ReadQuery) One(ctx context.Context) (record.Record, error) {
	recs, err := q.All(ctx)
	if err != nil {
		return record.Record{}, err
	}
	if len(recs) == 0 {
		return record.Record{}, serrors.NewNotFound("record not found")
	}
	return recs[0], nil
}

// Insert creates a new row of the entity type from the validated payload.
func (g *Gateway) Insert(ctx context.Context, entityType string, payload map[string]any) (record.Record, error) {
	return g.write(ctx, entityType, policy.OpInsert, uuid.Nil, payload)
}

// Update mutates the identified row with the payload columns.
func (g *Gateway) Update(ctx context.Context, entityType string, id uuid.UUID, payload map[string]any) (record.Record, error) {
	return g.write(ctx, entityType, policy.OpUpdate, id, payload)
}

// Delete removes the identified row.
func (g *Gateway) Delete(ctx context.Context, entityType string, id uuid.UUID) error {
	_, err := g.write(ctx, entityType, policy.OpDelete, id, nil)
	return err
}

func (g *Gateway) write(ctx context.Context, entityType string, op policy.Operation, id uuid.UUID, payload map[string]any) (record.Record, error) {
	opCtx, err := composables.UseOperationContext(ctx)
	if err != nil {
		return record.Record{}, err
	}
	entity, ok := g.registry.Entity(entityType)
	if !ok {
		return record.Record{}, serrors.NewValidationFailed("unknown entity type", entityType)
	}
	if err := g.checkReservedColumns(entity, payload); err != nil {
		return record.Record{}, err
	}

	var result record.Record
	var old record.Record

	err = g.transactor.InTx(ctx, func(txCtx context.Context) error {
		switch op {
		case policy.OpInsert:
			result, err = g.insertTx(txCtx, opCtx, entity, payload)
		case policy.OpUpdate:
			old, result, err = g.updateTx(txCtx, opCtx, entity, id, payload)
		case policy.OpDelete:
			old, err = g.deleteTx(txCtx, opCtx, entity, id)
		default:
			err = serrors.NewValidationFailed("unknown operation kind", string(op))
		}
		return err
	})
	if err != nil {
		if serrors.HasCode(err, serrors.CodeForbidden) {
			metrics.DenialsTotal.WithLabelValues(entityType, string(op)).Inc()
		}
		return record.Record{}, err
	}

	metrics.WritesTotal.WithLabelValues(entityType, string(op)).Inc()
	g.publishEvent(entityType, op, id, old, result)
	return result, nil
}

func (g *Gateway) insertTx(ctx context.Context, opCtx composables.OperationContext, entity schema.Entity, payload map[string]any) (record.Record, error) {
	decision, err := g.evaluator.Authorize(opCtx, entity.Type, policy.OpInsert, nil)
	if err != nil {
		return record.Record{}, err
	}
	if !decision.Allow {
		return record.Record{}, serrors.NewForbidden(decision.Reason)
	}
	if err := g.checkAdminColumns(opCtx, entity, payload); err != nil {
		return record.Record{}, err
	}

	values := copyValues(payload)
	if entity.CreatedByColumn != "" {
		values[entity.CreatedByColumn] = opCtx.PrincipalID
	}
	if violations := schema.ValidatePayload(entity, values); len(violations) > 0 {
		return record.Record{}, violationError(violations)
	}

	now := time.Now()
	rec := record.Record{
		ID:        uuid.New(),
		TenantID:  opCtx.TenantID,
		Values:    values,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := g.store.Insert(ctx, entity, rec)
	if err != nil {
		return record.Record{}, g.mapStoreError(err)
	}

	if err := g.auditWrite(ctx, opCtx, created.TenantID, entity, auditlog.ActionInsert, created.ID, nil, imageOf(created)); err != nil {
		return record.Record{}, err
	}
	return created, nil
}

func (g *Gateway) updateTx(ctx context.Context, opCtx composables.OperationContext, entity schema.Entity, id uuid.UUID, payload map[string]any) (record.Record, record.Record, error) {
	candidate, err := g.fetchCandidate(ctx, opCtx, entity, id)
	if err != nil {
		return record.Record{}, record.Record{}, err
	}

	decision, err := g.evaluator.Authorize(opCtx, entity.Type, policy.OpUpdate, &policy.Candidate{ID: candidate.ID, Values: candidate.Values})
	if err != nil {
		return record.Record{}, record.Record{}, err
	}
	if !decision.Allow {
		return record.Record{}, record.Record{}, serrors.NewForbidden(decision.Reason)
	}
	if err := g.checkAdminColumns(opCtx, entity, payload); err != nil {
		return record.Record{}, record.Record{}, err
	}

	// Structural rules see the row as it would look after the update, so a
	// partial payload cannot dodge a required-field rule nor fail one the
	// existing row already satisfies.
	merged := copyValues(candidate.Values)
	for k, v := range payload {
		merged[k] = v
	}
	if violations := schema.ValidatePayload(entity, merged); len(violations) > 0 {
		return record.Record{}, record.Record{}, violationError(violations)
	}

	updated, err := g.store.Update(ctx, entity, id, copyValues(payload), decision.Filter)
	if err != nil {
		return record.Record{}, record.Record{}, g.mapStoreError(err)
	}

	if err := g.auditWrite(ctx, opCtx, candidate.TenantID, entity, auditlog.ActionUpdate, id, imageOf(candidate), imageOf(updated)); err != nil {
		return record.Record{}, record.Record{}, err
	}
	return candidate, updated, nil
}

func (g *Gateway) deleteTx(ctx context.Context, opCtx composables.OperationContext, entity schema.Entity, id uuid.UUID) (record.Record, error) {
	candidate, err := g.fetchCandidate(ctx, opCtx, entity, id)
	if err != nil {
		return record.Record{}, err
	}

	decision, err := g.evaluator.Authorize(opCtx, entity.Type, policy.OpDelete, &policy.Candidate{ID: candidate.ID, Values: candidate.Values})
	if err != nil {
		return record.Record{}, err
	}
	if !decision.Allow {
		return record.Record{}, serrors.NewForbidden(decision.Reason)
	}

	if err := g.store.Delete(ctx, entity, id, decision.Filter); err != nil {
		return record.Record{}, g.mapStoreError(err)
	}

	if err := g.auditWrite(ctx, opCtx, candidate.TenantID, entity, auditlog.ActionDelete, id, imageOf(candidate), nil); err != nil {
		return record.Record{}, err
	}
	return candidate, nil
}

// fetchCandidate loads the row under the mandatory tenant filter. A row in
// another tenant and a missing row are the same NotFound: existence across
// tenants is never confirmed.
func (g *Gateway) fetchCandidate(ctx context.Context, opCtx composables.OperationContext, entity schema.Entity, id uuid.UUID) (record.Record, error) {
	readDecision, err := g.evaluator.Authorize(opCtx, entity.Type, policy.OpRead, nil)
	if err != nil {
		return record.Record{}, err
	}
	candidate, err := g.store.Get(ctx, entity, id, readDecision.Filter)
	if err != nil {
		return record.Record{}, g.mapStoreError(err)
	}
	return candidate, nil
}

// auditWrite appends the audit entry in the ambient transaction. The tenant
// recorded is the row's tenant, which differs from the context tenant only
// for the bypass role.
func (g *Gateway) auditWrite(ctx context.Context, opCtx composables.OperationContext, tenantID uuid.UUID, entity schema.Entity, action string, recordID uuid.UUID, oldValues, newValues map[string]any) error {
	if tenantID == uuid.Nil {
		tenantID = opCtx.TenantID
	}
	_, err := g.audit.Record(ctx, auditlog.Record{
		TenantID:  tenantID,
		ActorID:   opCtx.PrincipalID,
		Action:    action,
		TableName: entity.Table,
		RecordID:  recordID,
		OldValues: oldValues,
		NewValues: newValues,
	})
	return err
}

func (g *Gateway) publishEvent(entityType string, op policy.Operation, id uuid.UUID, old, result record.Record) {
	if g.publisher == nil {
		return
	}
	switch op {
	case policy.OpInsert:
		g.publisher.Publish(record.CreatedEvent{EntityType: entityType, Result: result})
	case policy.OpUpdate:
		g.publisher.Publish(record.UpdatedEvent{EntityType: entityType, Old: old, Result: result})
	case policy.OpDelete:
		g.publisher.Publish(record.DeletedEvent{EntityType: entityType, RecordID: id, Old: old})
	}
}

// checkCallerFilters rejects filters on undeclared columns and on the tenant
// column; tenant scoping belongs to the policy evaluator alone.
func (g *Gateway) checkCallerFilters(entity schema.Entity, filters []repo.Filter) error {
	for _, f := range filters {
		if f.Field == entity.TenantColumn {
			return serrors.NewValidationFailed("tenant scoping is not caller-controlled", f.Field)
		}
		if f.Field != entity.IDColumn && !entity.HasColumn(f.Field) {
			return serrors.NewValidationFailed("unknown filter field", f.Field)
		}
	}
	return nil
}

// checkReservedColumns rejects payload keys the gateway manages itself. The
// creator column is stamped on insert and immutable afterwards.
func (g *Gateway) checkReservedColumns(entity schema.Entity, payload map[string]any) error {
	reserved := []string{entity.IDColumn, entity.TenantColumn, "created_at", "updated_at"}
	if entity.CreatedByColumn != "" {
		reserved = append(reserved, entity.CreatedByColumn)
	}
	for _, col := range reserved {
		if _, ok := payload[col]; ok {
			return serrors.NewValidationFailed("field is managed by the gateway", col)
		}
	}
	return nil
}

// checkAdminColumns keeps admin-managed columns out of non-admin payloads.
// The self-service grant on principals never extends to role or activation.
func (g *Gateway) checkAdminColumns(opCtx composables.OperationContext, entity schema.Entity, payload map[string]any) error {
	if opCtx.Role.IsTenantAdmin() {
		return nil
	}
	for _, col := range entity.AdminColumns {
		if _, ok := payload[col]; ok {
			return serrors.NewForbidden(fmt.Sprintf("column %q is managed by tenant admins", col))
		}
	}
	return nil
}

func (g *Gateway) mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, record.ErrNotFound):
		return serrors.NewNotFound("record not found")
	case errors.Is(err, record.ErrUniqueViolation):
		return serrors.NewUniqueConflict("unique constraint violated")
	case errors.Is(err, composables.ErrNoActiveContext):
		return err
	default:
		var be *serrors.BaseError
		if errors.As(err, &be) {
			return err
		}
		return serrors.NewStorageUnavailable(err)
	}
}

func violationError(violations []schema.Violation) error {
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	return serrors.NewValidationFailed("payload failed structural validation", fields...)
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func imageOf(rec record.Record) map[string]any {
	image := copyValues(rec.Values)
	image["id"] = rec.ID.String()
	return image
}
