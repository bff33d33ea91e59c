package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"stratum-hq/reliq/pkg/rule"
)

// resolveOperand resolves a parsed operand against the execution context.
// This is the single resolution point for every operand kind.
func resolveOperand(op rule.Operand, ec *ExecutionContext) (any, error) {
	switch op.Kind {
	case rule.OperandLiteral:
		return op.Literal, nil

	case rule.OperandContextRef:
		// Explicit references resolve to nil when the path is absent.
		value, _ := ec.Get(op.Path)
		return value, nil

	case rule.OperandIdent:
		// Bare tokens fall back to their literal text when the path is
		// absent, so extracted constants compare as strings.
		if value, ok := ec.Get(op.Path); ok {
			return value, nil
		}
		return op.Text, nil

	case rule.OperandFunction:
		arg, err := resolveOperand(*op.Arg, ec)
		if err != nil {
			return nil, err
		}
		switch op.Function {
		case rule.FuncIsNumeric:
			return isNumericValue(arg), nil
		case rule.FuncIsAlphabetic:
			return isAlphabeticValue(arg), nil
		default:
			return nil, fmt.Errorf("unknown function: %q", op.Function)
		}

	case rule.OperandSentinel:
		switch op.Sentinel {
		case rule.SentinelTrue:
			return true, nil
		case rule.SentinelFalse:
			return false, nil
		default:
			return "", nil
		}

	default:
		return nil, fmt.Errorf("unknown operand kind: %q", op.Kind)
	}
}

// evaluateCondition evaluates one condition node against the context.
func evaluateCondition(cond *rule.Condition, ec *ExecutionContext) (bool, error) {
	if !cond.Complex {
		return evaluateSimple(cond, ec)
	}

	switch cond.Operator {
	case rule.OperatorAnd:
		for i := range cond.SubConditions {
			held, err := evaluateCondition(&cond.SubConditions[i], ec)
			if err != nil {
				return false, err
			}
			if !held {
				return false, nil
			}
		}
		return true, nil

	case rule.OperatorOr:
		for i := range cond.SubConditions {
			held, err := evaluateCondition(&cond.SubConditions[i], ec)
			if err != nil {
				return false, err
			}
			if held {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, &UnknownOperatorError{Operator: string(cond.Operator)}
	}
}

// evaluateSimple resolves both operands and applies the comparison operator.
// Both sides are normalized numerically first; if either side is not numeric,
// the comparison falls back to strings.
func evaluateSimple(cond *rule.Condition, ec *ExecutionContext) (bool, error) {
	left, err := resolveOperand(rule.ParseOperand(cond.Left), ec)
	if err != nil {
		return false, err
	}
	right, err := resolveOperand(rule.ParseOperand(cond.Right), ec)
	if err != nil {
		return false, err
	}

	leftNum, leftOK := toFloat(left)
	rightNum, rightOK := toFloat(right)
	if leftOK && rightOK {
		return compareNumeric(cond.Operator, leftNum, rightNum)
	}
	return compareString(cond.Operator, formatValue(left), formatValue(right))
}

func compareNumeric(op rule.Operator, left, right float64) (bool, error) {
	switch op {
	case rule.OperatorEqual:
		return left == right, nil
	case rule.OperatorNotEqual:
		return left != right, nil
	case rule.OperatorGreaterThan:
		return left > right, nil
	case rule.OperatorLessThan:
		return left < right, nil
	case rule.OperatorGreaterEqual:
		return left >= right, nil
	case rule.OperatorLessEqual:
		return left <= right, nil
	default:
		return false, &UnknownOperatorError{Operator: string(op)}
	}
}

func compareString(op rule.Operator, left, right string) (bool, error) {
	switch op {
	case rule.OperatorEqual:
		return left == right, nil
	case rule.OperatorNotEqual:
		return left != right, nil
	case rule.OperatorGreaterThan:
		return left > right, nil
	case rule.OperatorLessThan:
		return left < right, nil
	case rule.OperatorGreaterEqual:
		return left >= right, nil
	case rule.OperatorLessEqual:
		return left <= right, nil
	default:
		return false, &UnknownOperatorError{Operator: string(op)}
	}
}

// toFloat attempts a numeric interpretation of a resolved value.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// formatValue normalizes a resolved value for string comparison. Booleans map
// to the TRUE/FALSE sentinels so flag tests match either representation; nil
// maps to the empty string.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return rule.SentinelTrue
		}
		return rule.SentinelFalse
	default:
		return fmt.Sprint(val)
	}
}

func isNumericValue(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return false
		}
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	}
	_, ok := toFloat(v)
	return ok
}

func isAlphabeticValue(v any) bool {
	s, ok := v.(string)
	if !ok || s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}
