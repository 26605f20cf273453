package policy

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/google/uuid"

	"github.com/rowfence/rowfence/pkg/composables"
	"github.com/rowfence/rowfence/pkg/repo"
	"github.com/rowfence/rowfence/pkg/schema"
)

// Operation is the kind of access being evaluated.
type Operation string

const (
	OpRead   Operation = "read"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

func (o Operation) IsValid() bool {
	switch o {
	case OpRead, OpInsert, OpUpdate, OpDelete:
		return true
	}
	return false
}

func (o Operation) Mutating() bool {
	return o != OpRead
}

// Candidate is the row under consideration for update/delete decisions.
type Candidate struct {
	ID     uuid.UUID
	Values map[string]any
}

// Decision is the outcome of an authorization check. Filter is the residual
// predicate the gateway must AND into the store query; it is empty only for
// the tenant-isolation bypass role.
type Decision struct {
	Allow  bool
	Filter []repo.Filter
	Reason string
}

// Evaluator decides access for (entity type, operation, operation context,
// candidate row) tuples. It is a pure function of its inputs: the registry
// and the role matrix are loaded at construction and never change, and
// Authorize performs no I/O.
type Evaluator struct {
	registry *schema.Registry
	enforcer *casbin.Enforcer
}

func NewEvaluator(registry *schema.Registry) (*Evaluator, error) {
	enforcer, err := buildEnforcer(registry)
	if err != nil {
		return nil, err
	}
	return &Evaluator{registry: registry, enforcer: enforcer}, nil
}

// Authorize evaluates the request. A non-nil error means the request itself
// is malformed (unknown entity type or operation); policy denials come back
// as Decision{Allow: false} with a reason.
func (e *Evaluator) Authorize(opCtx composables.OperationContext, entityType string, op Operation, candidate *Candidate) (Decision, error) {
	if !op.IsValid() {
		return Decision{}, fmt.Errorf("policy: unknown operation %q", op)
	}
	entity, ok := e.registry.Entity(entityType)
	if !ok {
		return Decision{}, fmt.Errorf("policy: unknown entity type %q", entityType)
	}
	if !opCtx.Role.IsValid() {
		return Decision{}, fmt.Errorf("policy: unknown role %q", opCtx.Role)
	}

	// The tenant filter comes first and is never widened by entity rules.
	var filter []repo.Filter
	if !opCtx.Role.BypassesTenantIsolation() {
		filter = []repo.Filter{repo.Eq(entity.TenantColumn, opCtx.TenantID)}
	}

	allowed, err := e.enforcer.Enforce(roleSubject(opCtx.Role), entityType, string(op))
	if err != nil {
		return Decision{}, fmt.Errorf("policy: enforce: %w", err)
	}
	if !allowed && !e.selfServiceAllowed(entity, op, opCtx, candidate) {
		return Decision{
			Filter: filter,
			Reason: fmt.Sprintf("role %q may not %s %s", opCtx.Role, op, entityType),
		}, nil
	}

	if op.Mutating() && op != OpInsert {
		if ok, reason := e.ownershipAllowed(entity, opCtx, candidate); !ok {
			return Decision{Filter: filter, Reason: reason}, nil
		}
	}

	return Decision{Allow: true, Filter: filter}, nil
}

// selfServiceAllowed implements the principal self-update exception: any
// principal may update its own record even when its role has no write
// capability on the principal entity.
func (e *Evaluator) selfServiceAllowed(entity schema.Entity, op Operation, opCtx composables.OperationContext, candidate *Candidate) bool {
	if !entity.SelfScope || op != OpUpdate || candidate == nil {
		return false
	}
	return candidate.ID == opCtx.PrincipalID
}

// ownershipAllowed enforces ownership-scoped mutation: on entities carrying
// owner/assignee/creator columns, non-admins may only mutate rows they own.
// Reads are deliberately tenant-scoped only; the asymmetry is intended.
func (e *Evaluator) ownershipAllowed(entity schema.Entity, opCtx composables.OperationContext, candidate *Candidate) (bool, string) {
	if opCtx.Role.IsTenantAdmin() {
		return true, ""
	}
	if entity.SelfScope {
		if candidate != nil && candidate.ID == opCtx.PrincipalID {
			return true, ""
		}
		return false, "principals may only be modified by admins or themselves"
	}
	if !entity.OwnershipScoped() {
		return true, ""
	}
	if candidate == nil {
		return false, "ownership check requires the candidate row"
	}
	for _, col := range entity.OwnershipColumns() {
		if ownerMatches(candidate.Values[col], opCtx.PrincipalID) {
			return true, ""
		}
	}
	return false, fmt.Sprintf("row is not owned by principal %s", opCtx.PrincipalID)
}

func ownerMatches(value any, principalID uuid.UUID) bool {
	switch v := value.(type) {
	case uuid.UUID:
		return v == principalID
	case *uuid.UUID:
		return v != nil && *v == principalID
	case string:
		parsed, err := uuid.Parse(v)
		return err == nil && parsed == principalID
	case [16]byte:
		return uuid.UUID(v) == principalID
	default:
		return false
	}
}
