package schema

import (
	"fmt"
	"strconv"
)

// Violation is one failed structural constraint.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidatePayload checks a write payload against the entity's declared
// columns and rules. Unknown columns are violations: the gateway never
// forwards unvetted field names to the store.
func ValidatePayload(e Entity, payload map[string]any) []Violation {
	var out []Violation

	for field := range payload {
		if !e.HasColumn(field) {
			out = append(out, Violation{Field: field, Message: "unknown field"})
		}
	}

	for _, r := range e.Rules {
		switch r.Kind {
		case RuleRequiredAny:
			if !anyPresent(payload, r.Fields) {
				out = append(out, Violation{
					Field:   r.Fields[0],
					Message: fmt.Sprintf("at least one of %v is required", r.Fields),
				})
			}
		case RuleEnum:
			v, ok := stringValue(payload, r.Field)
			if !ok {
				continue
			}
			if !contains(r.Values, v) {
				out = append(out, Violation{
					Field:   r.Field,
					Message: fmt.Sprintf("must be one of %v", r.Values),
				})
			}
		case RuleRange:
			n, present, numeric := numberValue(payload, r.Field)
			if !present {
				continue
			}
			if !numeric {
				out = append(out, Violation{Field: r.Field, Message: "must be numeric"})
				continue
			}
			if r.Min != nil && n < *r.Min {
				out = append(out, Violation{Field: r.Field, Message: fmt.Sprintf("must be >= %v", *r.Min)})
			}
			if r.Max != nil && n > *r.Max {
				out = append(out, Violation{Field: r.Field, Message: fmt.Sprintf("must be <= %v", *r.Max)})
			}
		}
	}

	return out
}

func anyPresent(payload map[string]any, fields []string) bool {
	for _, f := range fields {
		v, ok := payload[f]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return true
	}
	return false
}

func stringValue(payload map[string]any, field string) (string, bool) {
	v, ok := payload[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// numberValue returns (value, present, numeric).
func numberValue(payload map[string]any, field string) (float64, bool, bool) {
	v, ok := payload[field]
	if !ok || v == nil {
		return 0, false, false
	}
	switch n := v.(type) {
	case int:
		return float64(n), true, true
	case int32:
		return float64(n), true, true
	case int64:
		return float64(n), true, true
	case float32:
		return float64(n), true, true
	case float64:
		return n, true, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, true, false
		}
		return f, true, true
	default:
		return 0, true, false
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
