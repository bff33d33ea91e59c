package rule

import "fmt"

// Operator represents a comparison or logical operator in a rule condition.
// The constant values are the literal serialization tokens.
type Operator string

const (
	OperatorEqual        Operator = "="
	OperatorNotEqual     Operator = "!="
	OperatorGreaterThan  Operator = ">"
	OperatorLessThan     Operator = "<"
	OperatorGreaterEqual Operator = ">="
	OperatorLessEqual    Operator = "<="
	OperatorAnd          Operator = "AND"
	OperatorOr           Operator = "OR"
	OperatorNot          Operator = "NOT"
)

// IsComparison returns true if the operator compares two operands.
func (o Operator) IsComparison() bool {
	switch o {
	case OperatorEqual, OperatorNotEqual, OperatorGreaterThan,
		OperatorLessThan, OperatorGreaterEqual, OperatorLessEqual:
		return true
	}
	return false
}

// IsLogical returns true if the operator combines sub-conditions.
func (o Operator) IsLogical() bool {
	return o == OperatorAnd || o == OperatorOr || o == OperatorNot
}

// Condition represents a boolean predicate over an execution context.
//
// A simple condition holds two operand tokens and a comparison operator.
// A complex condition holds an AND/OR operator and at least one sub-condition;
// its operand fields are empty.
type Condition struct {
	// Left is the left operand token (literal, $-path reference, function
	// form, or sentinel). Empty for complex conditions.
	Left string `json:"left_operand,omitempty"`

	// Operator is the comparison operator for simple conditions, or AND/OR
	// for complex conditions.
	Operator Operator `json:"operator"`

	// Right is the right operand token. Empty for complex conditions.
	Right string `json:"right_operand,omitempty"`

	// Complex marks this condition as a logical composition.
	Complex bool `json:"is_complex,omitempty"`

	// SubConditions holds the ordered children of a complex condition.
	// Non-empty iff Complex is true.
	SubConditions []Condition `json:"sub_conditions,omitempty"`
}

// Simple constructs a simple comparison condition.
func Simple(left string, op Operator, right string) Condition {
	return Condition{Left: left, Operator: op, Right: right}
}

// All constructs a complex AND condition over the given children.
func All(children ...Condition) Condition {
	return Condition{Operator: OperatorAnd, Complex: true, SubConditions: children}
}

// Any constructs a complex OR condition over the given children.
func Any(children ...Condition) Condition {
	return Condition{Operator: OperatorOr, Complex: true, SubConditions: children}
}

// Validate checks the structural invariants of the condition tree:
// a non-complex condition carries a comparison operator and no children;
// a complex condition carries AND or OR and at least one sub-condition.
func (c *Condition) Validate() error {
	if c.Complex {
		if c.Operator != OperatorAnd && c.Operator != OperatorOr {
			return fmt.Errorf("complex condition requires AND or OR operator, got %q", c.Operator)
		}
		if len(c.SubConditions) == 0 {
			return fmt.Errorf("complex condition requires at least one sub-condition")
		}
		for i := range c.SubConditions {
			if err := c.SubConditions[i].Validate(); err != nil {
				return fmt.Errorf("sub-condition %d: %w", i, err)
			}
		}
		return nil
	}

	if !c.Operator.IsComparison() {
		return fmt.Errorf("simple condition requires a comparison operator, got %q", c.Operator)
	}
	if len(c.SubConditions) > 0 {
		return fmt.Errorf("simple condition must not have sub-conditions")
	}
	return nil
}

// Canonical returns a normalized single-line form of the condition, used for
// structural de-duplication. Operand tokens are compared verbatim; children
// keep their declared order.
func (c *Condition) Canonical() string {
	if !c.Complex {
		return fmt.Sprintf("(%s %s %s)", c.Left, c.Operator, c.Right)
	}
	out := "(" + string(c.Operator)
	for i := range c.SubConditions {
		out += " " + c.SubConditions[i].Canonical()
	}
	return out + ")"
}

// Equal reports whether two condition trees are structurally identical.
func (c *Condition) Equal(other *Condition) bool {
	return c.Canonical() == other.Canonical()
}
