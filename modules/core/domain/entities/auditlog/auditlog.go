package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the core. Mutating gateway operations use the
// insert/update/delete actions; context establishment uses ActionContextSwitch.
const (
	ActionContextSwitch = "context_switch"
	ActionInsert        = "insert"
	ActionUpdate        = "update"
	ActionDelete        = "delete"
)

// Record is a single append-only audit entry. Records are never updated or
// deleted; the repository deliberately exposes no mutation beyond Create.
type Record struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	ActorID   uuid.UUID
	Action    string
	TableName string
	RecordID  uuid.UUID
	OldValues map[string]any
	NewValues map[string]any
	Details   map[string]any
	CreatedAt time.Time
}

func (r Record) Validate() error {
	if r.TenantID == uuid.Nil {
		return fmt.Errorf("audit record: tenant_id is required")
	}
	if r.ActorID == uuid.Nil {
		return fmt.Errorf("audit record: actor_id is required")
	}
	if r.Action == "" {
		return fmt.Errorf("audit record: action is required")
	}
	return nil
}

// FindParams narrows List results. TenantID is mandatory; reads of the audit
// trail are tenant-scoped like everything else.
type FindParams struct {
	TenantID  uuid.UUID
	TableName string
	RecordID  uuid.UUID
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, r Record) (Record, error)
	List(ctx context.Context, params FindParams) ([]Record, error)
}
