package mapper

import "time"

// Validator checks a document before it is written. Violations abort the
// save cascade for that document's branch before any write for it.
type Validator interface {
	Validate(d *Document) []Violation
}

// SchemaValidator is the default Validator: required properties must be
// present and every present property must match its declared kind.
type SchemaValidator struct{}

func (SchemaValidator) Validate(d *Document) []Violation {
	var violations []Violation

	for i := range d.schema.Properties {
		p := &d.schema.Properties[i]
		v, ok := d.props[p.Name]
		if !ok {
			if p.Required {
				violations = append(violations, Violation{
					Property: p.Name,
					Message:  "is required",
				})
			}
			continue
		}
		if !kindMatches(p.Kind, v) {
			violations = append(violations, Violation{
				Property: p.Name,
				Message:  "must be of kind " + p.Kind.String(),
			})
		}
	}

	return violations
}

func kindMatches(kind Kind, v any) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt:
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case KindFloat:
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339, t)
			return err == nil
		}
		return false
	case KindStringList:
		switch list := v.(type) {
		case []string:
			return true
		case []any:
			for _, e := range list {
				if _, ok := e.(string); !ok {
					return false
				}
			}
			return true
		}
		return false
	}
	return false
}
