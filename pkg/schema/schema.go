package schema

import (
	"fmt"

	"github.com/rowfence/rowfence/pkg/repo"
)

// FieldKind is the storage kind of an entity column.
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindUUID      FieldKind = "uuid"
	KindNumber    FieldKind = "number"
	KindBool      FieldKind = "bool"
	KindTimestamp FieldKind = "timestamp"
	KindJSON      FieldKind = "json"
)

func (k FieldKind) IsValid() bool {
	switch k {
	case KindText, KindUUID, KindNumber, KindBool, KindTimestamp, KindJSON:
		return true
	}
	return false
}

type Column struct {
	Name string    `yaml:"name"`
	Kind FieldKind `yaml:"kind"`
}

// RuleKind is the kind of a structural validation rule.
type RuleKind string

const (
	// RuleRequiredAny requires at least one of Fields to be present and
	// non-empty.
	RuleRequiredAny RuleKind = "required_any"
	// RuleEnum restricts Field to the closed set Values.
	RuleEnum RuleKind = "enum"
	// RuleRange bounds a numeric Field inclusively by Min/Max.
	RuleRange RuleKind = "range"
)

type Rule struct {
	Kind   RuleKind `yaml:"kind"`
	Field  string   `yaml:"field,omitempty"`
	Fields []string `yaml:"fields,omitempty"`
	Values []string `yaml:"values,omitempty"`
	Min    *float64 `yaml:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty"`
}

// Entity describes one tenant-scoped entity type: its table, its scoping and
// ownership columns, and the structural constraints the gateway validates
// before writing.
type Entity struct {
	Type            string   `yaml:"-"`
	Table           string   `yaml:"table"`
	IDColumn        string   `yaml:"id_column"`
	TenantColumn    string   `yaml:"tenant_column"`
	OwnerColumns    []string `yaml:"owner_columns,omitempty"`
	CreatedByColumn string   `yaml:"created_by_column,omitempty"`
	Columns         []Column `yaml:"columns"`
	Rules           []Rule   `yaml:"rules,omitempty"`

	// AdminColumns may only be written by tenant admins, regardless of any
	// other grant on the entity.
	AdminColumns []string `yaml:"admin_columns,omitempty"`

	// SelfScope marks the entity whose rows represent principals themselves;
	// a principal may always update its own row.
	SelfScope bool `yaml:"self_scope,omitempty"`
}

// HasColumn reports whether name is a declared payload column.
func (e Entity) HasColumn(name string) bool {
	for _, c := range e.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// OwnershipColumns returns the columns that confer ownership of a row. The
// declared owner/assignee columns govern alone when the entity has any:
// creating a row and then assigning it away relinquishes it. The creator
// column counts only for entities without an owner column.
func (e Entity) OwnershipColumns() []string {
	if len(e.OwnerColumns) > 0 {
		return append([]string(nil), e.OwnerColumns...)
	}
	if e.CreatedByColumn != "" {
		return []string{e.CreatedByColumn}
	}
	return nil
}

// OwnershipScoped reports whether mutations of this entity are restricted to
// owners (and admins).
func (e Entity) OwnershipScoped() bool {
	return len(e.OwnershipColumns()) > 0
}

func (e Entity) validate() error {
	if !repo.ValidIdent(e.Table) {
		return fmt.Errorf("entity %q: invalid table name %q", e.Type, e.Table)
	}
	if !repo.ValidIdent(e.IDColumn) {
		return fmt.Errorf("entity %q: invalid id column %q", e.Type, e.IDColumn)
	}
	if !repo.ValidIdent(e.TenantColumn) {
		return fmt.Errorf("entity %q: invalid tenant column %q", e.Type, e.TenantColumn)
	}
	for _, c := range e.Columns {
		if !repo.ValidIdent(c.Name) {
			return fmt.Errorf("entity %q: invalid column name %q", e.Type, c.Name)
		}
		if !c.Kind.IsValid() {
			return fmt.Errorf("entity %q: column %q has unknown kind %q", e.Type, c.Name, c.Kind)
		}
	}
	for _, owner := range e.OwnerColumns {
		if !e.HasColumn(owner) {
			return fmt.Errorf("entity %q: owner column %q is not declared", e.Type, owner)
		}
	}
	if e.CreatedByColumn != "" && !repo.ValidIdent(e.CreatedByColumn) {
		return fmt.Errorf("entity %q: invalid created_by column %q", e.Type, e.CreatedByColumn)
	}
	for _, col := range e.AdminColumns {
		if !e.HasColumn(col) {
			return fmt.Errorf("entity %q: admin column %q is not declared", e.Type, col)
		}
	}
	for _, r := range e.Rules {
		switch r.Kind {
		case RuleRequiredAny:
			if len(r.Fields) == 0 {
				return fmt.Errorf("entity %q: required_any rule needs fields", e.Type)
			}
		case RuleEnum:
			if r.Field == "" || len(r.Values) == 0 {
				return fmt.Errorf("entity %q: enum rule needs a field and values", e.Type)
			}
		case RuleRange:
			if r.Field == "" || (r.Min == nil && r.Max == nil) {
				return fmt.Errorf("entity %q: range rule needs a field and a bound", e.Type)
			}
		default:
			return fmt.Errorf("entity %q: unknown rule kind %q", e.Type, r.Kind)
		}
	}
	return nil
}
