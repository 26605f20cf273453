package record

import (
	"github.com/google/uuid"
)

// CreatedEvent is published after a record insert commits.
type CreatedEvent struct {
	EntityType string
	Result     Record
}

// UpdatedEvent is published after a record update commits.
type UpdatedEvent struct {
	EntityType string
	Old        Record
	Result     Record
}

// DeletedEvent is published after a record delete commits.
type DeletedEvent struct {
	EntityType string
	RecordID   uuid.UUID
	Old        Record
}
