package rule

import "fmt"

// ActionType represents the kind of side effect an action performs.
// The constant values are the literal serialization tokens.
type ActionType string

const (
	// ActionAssign writes a resolved value to a context path.
	ActionAssign ActionType = "assign"

	// ActionCalculate evaluates an arithmetic formula and writes the result.
	ActionCalculate ActionType = "calculate"

	// ActionPerform records an external procedure reference. The engine
	// itself makes no call; the hook is an external collaborator.
	ActionPerform ActionType = "perform"

	// ActionDisplay records a resolved value for an external console/log
	// sink. The engine performs no I/O.
	ActionDisplay ActionType = "display"
)

// TargetConsole is the logical sink target used by display actions.
const TargetConsole = "console"

// Action represents a single side-effecting operation applied to an
// execution context when a rule fires.
type Action struct {
	// Type is the kind of action.
	Type ActionType `json:"action_type"`

	// Target is a context path, a performed procedure name, or a logical
	// sink such as "console".
	Target string `json:"target"`

	// Value is an optional literal or reference token, resolved at
	// execution time. Used by assign and display.
	Value string `json:"value,omitempty"`

	// Formula is the arithmetic expression for calculate actions.
	// Required iff Type is ActionCalculate.
	Formula string `json:"formula,omitempty"`
}

// Validate checks the action invariants.
func (a *Action) Validate() error {
	switch a.Type {
	case ActionAssign, ActionPerform, ActionDisplay:
		if a.Formula != "" {
			return fmt.Errorf("action %q must not carry a formula", a.Type)
		}
	case ActionCalculate:
		if a.Formula == "" {
			return fmt.Errorf("calculate action requires a formula")
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	if a.Target == "" {
		return fmt.Errorf("action %q requires a target", a.Type)
	}
	return nil
}

// EffectKey identifies an action for de-duplication purposes.
// Two actions with the same type and target are considered duplicates
// when merging rules.
func (a *Action) EffectKey() string {
	return string(a.Type) + "\x00" + a.Target
}
