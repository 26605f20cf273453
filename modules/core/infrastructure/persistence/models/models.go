package models

import (
	"database/sql"
	"time"
)

type Tenant struct {
	ID        string
	Name      string
	Slug      string
	Tier      string
	Settings  []byte
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TenantUser struct {
	ID        string
	TenantID  string
	Email     string
	FirstName sql.NullString
	LastName  sql.NullString
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AuditLog struct {
	ID        string
	TenantID  string
	ActorID   string
	Action    string
	TableName sql.NullString
	RecordID  sql.NullString
	OldValues []byte
	NewValues []byte
	Details   []byte
	CreatedAt time.Time
}
