package repo

import (
	"fmt"
	"regexp"
	"strings"
)

// Op is a comparison operator in a structured filter predicate.
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpIn    Op = "in"
	OpILike Op = "ilike"
)

var sqlOps = map[Op]string{
	OpEq:    "=",
	OpNeq:   "<>",
	OpGt:    ">",
	OpGte:   ">=",
	OpLt:    "<",
	OpLte:   "<=",
	OpILike: "ILIKE",
}

// Filter is a single structured predicate. Filters are combined with logical
// AND. Queries never interpolate values into SQL text; values travel as
// positional parameters.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Filter    { return Filter{Field: field, Op: OpEq, Value: value} }
func Neq(field string, value any) Filter   { return Filter{Field: field, Op: OpNeq, Value: value} }
func Gt(field string, value any) Filter    { return Filter{Field: field, Op: OpGt, Value: value} }
func Gte(field string, value any) Filter   { return Filter{Field: field, Op: OpGte, Value: value} }
func Lt(field string, value any) Filter    { return Filter{Field: field, Op: OpLt, Value: value} }
func Lte(field string, value any) Filter   { return Filter{Field: field, Op: OpLte, Value: value} }
func ILike(field string, value any) Filter { return Filter{Field: field, Op: OpILike, Value: value} }

func In(field string, values ...any) Filter {
	return Filter{Field: field, Op: OpIn, Value: values}
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdent reports whether the string is a safe lowercase SQL identifier.
func ValidIdent(s string) bool {
	return identPattern.MatchString(s)
}

// ToSQL renders the filters as an AND-joined WHERE fragment, numbering
// placeholders from startIdx. Returns the fragment, the argument list, and
// an error on unsafe field names or unknown operators.
func ToSQL(filters []Filter, startIdx int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	idx := startIdx
	for _, f := range filters {
		if !ValidIdent(f.Field) {
			return "", nil, fmt.Errorf("invalid filter field %q", f.Field)
		}
		switch f.Op {
		case OpIn:
			values, ok := f.Value.([]any)
			if !ok || len(values) == 0 {
				return "", nil, fmt.Errorf("in filter on %q requires a non-empty value list", f.Field)
			}
			placeholders := make([]string, 0, len(values))
			for _, v := range values {
				placeholders = append(placeholders, fmt.Sprintf("$%d", idx))
				args = append(args, v)
				idx++
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", f.Field, strings.Join(placeholders, ", ")))
		default:
			op, ok := sqlOps[f.Op]
			if !ok {
				return "", nil, fmt.Errorf("unknown filter operator %q", f.Op)
			}
			parts = append(parts, fmt.Sprintf("%s %s $%d", f.Field, op, idx))
			args = append(args, f.Value)
			idx++
		}
	}
	return strings.Join(parts, " AND "), args, nil
}
