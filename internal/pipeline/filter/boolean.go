package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/signaldock/signaldock/internal/template"
)

// operatorFunc evaluates one boolean operator against a resolved value
// and the operator's configured comparison value.
type operatorFunc func(value, compare any) bool

var booleanOperators map[string]operatorFunc

func init() {
	booleanOperators = map[string]operatorFunc{
		"==":             opEquals,
		"equals":         opEquals,
		"!=":             opNotEquals,
		"not_equals":     opNotEquals,
		">":              opGreaterThan,
		"greater_than":   opGreaterThan,
		"<":              opLessThan,
		"less_than":      opLessThan,
		">=":             opGreaterEqual,
		"greater_equal":  opGreaterEqual,
		"<=":             opLessEqual,
		"less_equal":     opLessEqual,
		"contains":       opContains,
		"not_contains":   opNotContains,
		"starts_with":    opStartsWith,
		"ends_with":      opEndsWith,
		"matches":        opMatches,
		"is_true":        opIsTrue,
		"is_false":       opIsFalse,
		"is_null":        opIsNull,
		"is_not_null":    opIsNotNull,
	}
}

// unaryOperators skip the "value resolved but is nil" short-circuit,
// because is_null/is_not_null need to observe nil themselves.
var unaryOperators = map[string]bool{
	"is_true": true, "is_false": true, "is_null": true, "is_not_null": true,
}

type booleanFilter struct {
	field    string
	operator string
	compare  any
	op       operatorFunc
}

func newBooleanFilter(params map[string]any) (Filter, error) {
	field, _ := params["field"].(string)
	operator, _ := params["operator"].(string)
	if field == "" {
		return nil, fmt.Errorf("boolean filter: field is required")
	}
	op, ok := booleanOperators[operator]
	if !ok {
		return nil, fmt.Errorf("boolean filter: unknown operator %q", operator)
	}
	return &booleanFilter{
		field:    field,
		operator: operator,
		compare:  params["value"],
		op:       op,
	}, nil
}

// Evaluate resolves f.field against payload (falling back to
// payload["data"] if the root lookup misses, exactly as the dot-path
// resolver does for any other field reference) and applies the
// configured operator. Any failure — missing field for a binary
// operator, a type the operator can't compare — is fail-closed: false.
func (f *booleanFilter) Evaluate(payload map[string]any) (result bool) {
	defer func() {
		if recover() != nil {
			result = false
		}
	}()

	value, found := resolveField(payload, f.field)
	if !unaryOperators[f.operator] && !found {
		return false
	}
	return f.op(value, f.compare)
}

// resolveField looks up a dot-path first against the payload root, then
// against payload["data"] if the root lookup misses — mirroring the
// two-step fallback filters need because a pipeline payload carries
// both event envelope fields (source_type, event_type) and the
// source-specific data map under "data".
func resolveField(payload map[string]any, path string) (any, bool) {
	if v, ok := template.Lookup(payload, path); ok {
		return v, true
	}
	if nested, ok := payload["data"].(map[string]any); ok {
		if v, ok := template.Lookup(nested, path); ok {
			return v, true
		}
	}
	return nil, false
}

func opEquals(value, compare any) bool    { return fmt.Sprintf("%v", value) == fmt.Sprintf("%v", compare) }
func opNotEquals(value, compare any) bool { return !opEquals(value, compare) }

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func opGreaterThan(value, compare any) bool {
	a, aok := asFloat(value)
	b, bok := asFloat(compare)
	return aok && bok && a > b
}

func opLessThan(value, compare any) bool {
	a, aok := asFloat(value)
	b, bok := asFloat(compare)
	return aok && bok && a < b
}

func opGreaterEqual(value, compare any) bool {
	a, aok := asFloat(value)
	b, bok := asFloat(compare)
	return aok && bok && a >= b
}

func opLessEqual(value, compare any) bool {
	a, aok := asFloat(value)
	b, bok := asFloat(compare)
	return aok && bok && a <= b
}

func opContains(value, compare any) bool {
	return strings.Contains(fmt.Sprintf("%v", value), fmt.Sprintf("%v", compare))
}
func opNotContains(value, compare any) bool { return !opContains(value, compare) }

func opStartsWith(value, compare any) bool {
	return strings.HasPrefix(fmt.Sprintf("%v", value), fmt.Sprintf("%v", compare))
}

func opEndsWith(value, compare any) bool {
	return strings.HasSuffix(fmt.Sprintf("%v", value), fmt.Sprintf("%v", compare))
}

func opMatches(value, compare any) bool {
	re, err := regexp.Compile(fmt.Sprintf("%v", compare))
	if err != nil {
		return false
	}
	return re.MatchString(fmt.Sprintf("%v", value))
}

func opIsTrue(value, _ any) bool {
	b, ok := value.(bool)
	return ok && b
}

func opIsFalse(value, _ any) bool {
	b, ok := value.(bool)
	return ok && !b
}

func opIsNull(value, _ any) bool     { return value == nil }
func opIsNotNull(value, _ any) bool  { return value != nil }
