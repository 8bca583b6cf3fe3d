package engine

import "math"

// eqEpsilon guards the eq operator; exact float equality is useless on
// indicator output.
const eqEpsilon = 1e-9

// Snapshot maps indicator names to their value at one bar. A nil value
// means the indicator is still warming up.
type Snapshot map[string]*float64

// EvaluateConditions folds a condition list left-to-right: the first
// condition seeds the accumulator, each subsequent condition combines
// its own result via its Logic field. Mixed AND/OR chains are
// order-sensitive, so the fold order must never change.
func EvaluateConditions(conditions []Condition, curr, prev Snapshot) bool {
	if len(conditions) == 0 {
		return false
	}

	acc := evaluateCondition(conditions[0], curr, prev)
	for _, cond := range conditions[1:] {
		res := evaluateCondition(cond, curr, prev)
		if cond.Logic == LogicOr {
			acc = acc || res
		} else {
			acc = acc && res
		}
	}
	return acc
}

// evaluateCondition compares one indicator value against the condition
// threshold. A nil (warming-up) value always yields false.
func evaluateCondition(cond Condition, curr, prev Snapshot) bool {
	value := curr[cond.Indicator]
	if value == nil {
		return false
	}

	switch cond.Operator {
	case OpGt:
		return *value > cond.Value
	case OpLt:
		return *value < cond.Value
	case OpGte:
		return *value >= cond.Value
	case OpLte:
		return *value <= cond.Value
	case OpEq:
		return math.Abs(*value-cond.Value) <= eqEpsilon
	case OpCrossAbove, OpCrossBelow:
		if prev == nil {
			return false
		}
		prevValue := prev[cond.Indicator]
		if prevValue == nil {
			return false
		}
		if cond.Operator == OpCrossAbove {
			return *prevValue <= cond.Value && *value > cond.Value
		}
		return *prevValue >= cond.Value && *value < cond.Value
	default:
		return false
	}
}

// validOperator reports whether op is one of the supported operators.
func validOperator(op Operator) bool {
	switch op {
	case OpGt, OpLt, OpGte, OpLte, OpEq, OpCrossAbove, OpCrossBelow:
		return true
	}
	return false
}
