package engine

import "fmt"

// RuleNotFoundError indicates a lookup by an unknown rule id. Fatal to the
// calling operation.
type RuleNotFoundError struct {
	ID string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("rule not found: %q", e.ID)
}

// RuleSetNotFoundError indicates a lookup by an unknown rule set id. Fatal to
// the calling operation.
type RuleSetNotFoundError struct {
	ID string
}

func (e *RuleSetNotFoundError) Error() string {
	return fmt.Sprintf("rule set not found: %q", e.ID)
}

// UnknownOperatorError indicates a condition uses an operator the evaluator
// does not implement. It fails that condition's evaluation and is caught at
// the rule level.
type UnknownOperatorError struct {
	Operator string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator: %q", e.Operator)
}

// FormulaError indicates an unresolvable variable or malformed arithmetic in
// a calculate action. The action writes a nil result; the failure is logged,
// not propagated.
type FormulaError struct {
	Formula string
	Cause   error
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("formula %q: %v", e.Formula, e.Cause)
}

func (e *FormulaError) Unwrap() error {
	return e.Cause
}

// RegistrationError indicates malformed input to RegisterRule or
// CreateRuleSet. Fatal to the calling operation.
type RegistrationError struct {
	ID      string
	Message string
	Cause   error
}

func (e *RegistrationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("registration of %q failed: %s: %v", e.ID, e.Message, e.Cause)
	}
	return fmt.Sprintf("registration of %q failed: %s", e.ID, e.Message)
}

func (e *RegistrationError) Unwrap() error {
	return e.Cause
}
