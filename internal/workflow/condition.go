package workflow

import (
	"fmt"
	"strings"

	"github.com/flowgrid-ai/flowgrid/internal/types"
)

// evaluateCondition resolves the configured field against the run's scope
// (results and variables) and applies the operator. The exists operator
// succeeds on any resolvable field; every other operator fails the node when
// the field does not resolve.
func evaluateCondition(cfg *ConditionConfig, scope map[string]any) (bool, error) {
	value, found := lookupPath(scope, cfg.Field)

	if cfg.Operator == OperatorExists {
		return found, nil
	}
	if !found {
		return false, types.NewError(types.VALIDATION_FAILED,
			fmt.Sprintf("condition field %q did not resolve", cfg.Field))
	}

	switch cfg.Operator {
	case OperatorEquals:
		return looseEqual(value, cfg.Comparand), nil
	case OperatorNotEquals:
		return !looseEqual(value, cfg.Comparand), nil
	case OperatorGreaterThan:
		return compareNumeric(value, cfg.Comparand, func(a, b float64) bool { return a > b })
	case OperatorLessThan:
		return compareNumeric(value, cfg.Comparand, func(a, b float64) bool { return a < b })
	case OperatorContains:
		return evaluateContains(value, cfg.Comparand)
	default:
		return false, types.NewError(types.VALIDATION_FAILED,
			fmt.Sprintf("unknown condition operator %q", cfg.Operator))
	}
}

// looseEqual compares values with numeric coercion so that an int result and
// a float comparand from deserialized JSON still match.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareNumeric(a, b any, cmp func(a, b float64) bool) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false, types.NewError(types.VALIDATION_FAILED,
			fmt.Sprintf("cannot compare non-numeric values %v and %v", a, b))
	}
	return cmp(af, bf), nil
}

func evaluateContains(value, comparand any) (bool, error) {
	switch v := value.(type) {
	case string:
		return strings.Contains(v, fmt.Sprintf("%v", comparand)), nil
	case []any:
		for _, item := range v {
			if looseEqual(item, comparand) {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		key, ok := comparand.(string)
		if !ok {
			return false, nil
		}
		_, present := v[key]
		return present, nil
	default:
		return false, types.NewError(types.VALIDATION_FAILED,
			fmt.Sprintf("contains operator cannot inspect value of type %T", value))
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
