package rule

import "fmt"

// Type classifies what a rule encodes.
type Type string

const (
	TypeValidation  Type = "validation"
	TypeCalculation Type = "calculation"
	TypeDecision    Type = "decision"
	TypeAssignment  Type = "assignment"
	TypeConditional Type = "conditional"
)

// Well-known metadata keys written by the extractor and the optimizer.
const (
	// MetaVariables lists the free variable names referenced by a
	// calculation rule's formula ([]string).
	MetaVariables = "variables"

	// MetaEvaluateSubject is the shared subject of rules extracted from a
	// multi-way selector block.
	MetaEvaluateSubject = "evaluate_subject"

	// MetaMergedFrom lists the original rule ids folded into a merged rule.
	MetaMergedFrom = "merged_from"

	// MetaCacheCandidate marks a rule the optimizer recommends caching.
	MetaCacheCandidate = "cache_candidate"
)

// Rule is one extracted business rule: an ordered condition list (logical AND
// across the list, empty means "always true"), actions to run when the
// conditions hold, and optional else-actions for when they do not.
//
// A rule is created once, by an extractor or an optimizer transform, and is
// immutable once registered in an engine; only its registry-owned lifecycle
// status changes after that.
type Rule struct {
	// ID uniquely identifies the rule within a working set.
	ID string `json:"id"`

	// Type classifies the rule.
	Type Type `json:"type"`

	// Name is a short human-readable name.
	Name string `json:"name"`

	// Description explains what the rule encodes.
	Description string `json:"description,omitempty"`

	// Source is free-text provenance (program, paragraph, line).
	Source string `json:"source,omitempty"`

	// Conditions is the ordered condition list. Every condition must hold
	// for the rule to fire. Empty means the rule always fires.
	Conditions []Condition `json:"conditions"`

	// Actions run when the conditions hold.
	Actions []Action `json:"actions"`

	// ElseActions run when the conditions evaluate false. May be empty.
	ElseActions []Action `json:"else_actions,omitempty"`

	// Metadata is an open key/value map for extraction and optimization
	// annotations (complexity score, variable set, merge provenance).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the rule's structural invariants, including every condition
// and action it carries.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule requires an id")
	}
	switch r.Type {
	case TypeValidation, TypeCalculation, TypeDecision, TypeAssignment, TypeConditional:
	default:
		return fmt.Errorf("rule %s: unknown rule type %q", r.ID, r.Type)
	}
	for i := range r.Conditions {
		if err := r.Conditions[i].Validate(); err != nil {
			return fmt.Errorf("rule %s: condition %d: %w", r.ID, i, err)
		}
	}
	for i := range r.Actions {
		if err := r.Actions[i].Validate(); err != nil {
			return fmt.Errorf("rule %s: action %d: %w", r.ID, i, err)
		}
	}
	for i := range r.ElseActions {
		if err := r.ElseActions[i].Validate(); err != nil {
			return fmt.Errorf("rule %s: else action %d: %w", r.ID, i, err)
		}
	}
	return nil
}

// HasConditions returns true if the rule has at least one condition.
func (r *Rule) HasConditions() bool {
	return len(r.Conditions) > 0
}

// SetMeta sets a metadata key, allocating the map on first use.
func (r *Rule) SetMeta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// Clone returns a deep copy of the rule. Condition trees, action lists and
// metadata are copied so the clone can be transformed independently.
func (r *Rule) Clone() *Rule {
	out := *r
	out.Conditions = cloneConditions(r.Conditions)
	out.Actions = append([]Action(nil), r.Actions...)
	out.ElseActions = append([]Action(nil), r.ElseActions...)
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func cloneConditions(conditions []Condition) []Condition {
	if conditions == nil {
		return nil
	}
	out := make([]Condition, len(conditions))
	for i := range conditions {
		out[i] = conditions[i]
		out[i].SubConditions = cloneConditions(conditions[i].SubConditions)
	}
	return out
}
