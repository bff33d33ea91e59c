package rule

import "fmt"

// ExecutionOrder declares how the rules of a set are executed.
type ExecutionOrder string

const (
	// OrderSequential executes the listed rules in order against a shared
	// context: side effects of rule i are visible to rule i+1.
	OrderSequential ExecutionOrder = "sequential"

	// OrderParallel declares the listed rules independent: no ordering
	// guarantee or interdependence is assumed between them.
	OrderParallel ExecutionOrder = "parallel"
)

// RuleSet is a named, ordered grouping of rule ids with a declared execution
// order. A set references rules by id; the engine's registry owns the rules.
type RuleSet struct {
	// ID uniquely identifies the set.
	ID string `json:"rule_set_id"`

	// Name is a short human-readable name.
	Name string `json:"name"`

	// RuleIDs is the ordered list of member rule ids.
	RuleIDs []string `json:"rule_ids"`

	// Order declares sequential or parallel execution.
	Order ExecutionOrder `json:"execution_order"`

	// StopOnFirstMatch halts sequential execution after the first rule
	// whose conditions evaluated true.
	StopOnFirstMatch bool `json:"stop_on_first_match,omitempty"`
}

// Validate checks the rule set invariants.
func (s *RuleSet) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("rule set requires an id")
	}
	if len(s.RuleIDs) == 0 {
		return fmt.Errorf("rule set %s: requires at least one rule id", s.ID)
	}
	switch s.Order {
	case OrderSequential, OrderParallel:
	default:
		return fmt.Errorf("rule set %s: unknown execution order %q", s.ID, s.Order)
	}
	return nil
}
