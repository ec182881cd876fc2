package workflow

import (
	"encoding/json"
	"strings"

	"grc-backoffice/internal/models"
)

const (
	OpEq       = "eq"
	OpNeq      = "neq"
	OpGt       = "gt"
	OpLt       = "lt"
	OpContains = "contains"
	OpIn       = "in"
)

func validOperator(op string) bool {
	switch op {
	case OpEq, OpNeq, OpGt, OpLt, OpContains, OpIn:
		return true
	}
	return false
}

// Snapshot flattens an entity into the field map conditions are evaluated against,
// using the entity's JSON field names.
func Snapshot(entity any) (map[string]any, error) {
	if m, ok := entity.(map[string]any); ok {
		return m, nil
	}
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate reports whether every condition holds for the snapshot. An empty list always holds.
func Evaluate(conditions []models.Condition, snapshot map[string]any) bool {
	for _, c := range conditions {
		if !EvaluateCondition(c, snapshot) {
			return false
		}
	}
	return true
}

// EvaluateCondition never fails: malformed conditions and unknown operators are false.
func EvaluateCondition(c models.Condition, snapshot map[string]any) bool {
	if c.Field == "" || c.Operator == "" {
		return false
	}
	actual, present := snapshot[c.Field]

	switch c.Operator {
	case OpEq:
		return present && strictEqual(actual, c.Value)
	case OpNeq:
		return !present || !strictEqual(actual, c.Value)
	case OpGt:
		cmp, ok := compare(actual, c.Value)
		return present && ok && cmp > 0
	case OpLt:
		cmp, ok := compare(actual, c.Value)
		return present && ok && cmp < 0
	case OpContains:
		s, ok := actual.(string)
		sub, subOK := c.Value.(string)
		return ok && subOK && strings.Contains(s, sub)
	case OpIn:
		list, ok := c.Value.([]any)
		if !ok || !present {
			return false
		}
		for _, v := range list {
			if strictEqual(actual, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// strictEqual compares scalars by type and value. Numbers of any Go numeric type compare
// by value; lists and objects are never equal.
func strictEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// compare orders two numbers or two strings. ok is false for any other pair.
func compare(a, b any) (cmp int, ok bool) {
	if af, isNum := toFloat(a); isNum {
		bf, isNum := toFloat(b)
		if !isNum {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return 0, false
	}
	return strings.Compare(as, bs), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
