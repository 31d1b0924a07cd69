// Package condition parses and evaluates rule conditions such as
//
//	temperature > 90
//	vibration >= 4.5 AND running == true
//	defect_rate>2.5 && line_stopped != true
//
// A condition is parsed once into an Expr and then evaluated against the
// fields of each sample. A field the sample does not carry makes the whole
// condition false: a missing sensor never fires a rule.
package condition

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrSyntax       = errors.New("condition: syntax error")
	ErrTypeMismatch = errors.New("condition: type mismatch")
)

type Op string

const (
	OpGT Op = ">"
	OpLT Op = "<"
	OpGE Op = ">="
	OpLE Op = "<="
	OpEQ Op = "=="
	OpNE Op = "!="
)

type Kind int

const (
	KindNumber Kind = iota
	KindBool
)

func (k Kind) String() string {
	if k == KindBool {
		return "bool"
	}
	return "number"
}

type Literal struct {
	Kind   Kind
	Number float64
	Bool   bool
}

func (l Literal) String() string {
	if l.Kind == KindBool {
		return strconv.FormatBool(l.Bool)
	}
	return strconv.FormatFloat(l.Number, 'g', -1, 64)
}

type Comparison struct {
	Field string
	Op    Op
	Value Literal
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Value)
}

// Expr is a conjunction of comparisons.
type Expr struct {
	Terms []Comparison
}

func (e *Expr) String() string {
	parts := make([]string, len(e.Terms))
	for i, t := range e.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " AND ")
}

// Fields returns the distinct field names referenced, in order of appearance.
func (e *Expr) Fields() []string {
	seen := make(map[string]struct{}, len(e.Terms))
	out := make([]string, 0, len(e.Terms))
	for _, t := range e.Terms {
		if _, ok := seen[t.Field]; ok {
			continue
		}
		seen[t.Field] = struct{}{}
		out = append(out, t.Field)
	}
	return out
}

// Evaluate reports whether every comparison holds for fields.
// A referenced field that is absent yields (false, nil). A field whose value
// kind differs from the literal's yields ErrTypeMismatch.
func (e *Expr) Evaluate(fields map[string]any) (bool, error) {
	result := true
	for _, term := range e.Terms {
		raw, ok := fields[term.Field]
		if !ok || raw == nil {
			return false, nil
		}
		holds, err := term.eval(raw)
		if err != nil {
			return false, err
		}
		if !holds {
			// keep scanning so a later type error still surfaces
			result = false
		}
	}
	return result, nil
}

func (c Comparison) eval(raw any) (bool, error) {
	switch c.Value.Kind {
	case KindBool:
		v, ok := raw.(bool)
		if !ok {
			return false, fmt.Errorf("%w: field %q is %T, condition expects bool", ErrTypeMismatch, c.Field, raw)
		}
		if c.Op == OpEQ {
			return v == c.Value.Bool, nil
		}
		return v != c.Value.Bool, nil
	default:
		v, ok := toFloat(raw)
		if !ok {
			return false, fmt.Errorf("%w: field %q is %T, condition expects number", ErrTypeMismatch, c.Field, raw)
		}
		return compare(v, c.Op, c.Value.Number), nil
	}
}

func compare(v float64, op Op, threshold float64) bool {
	switch op {
	case OpGT:
		return v > threshold
	case OpGE:
		return v >= threshold
	case OpLT:
		return v < threshold
	case OpLE:
		return v <= threshold
	case OpEQ:
		return v == threshold
	case OpNE:
		return v != threshold
	default:
		return false
	}
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return math.NaN(), false
	}
}
