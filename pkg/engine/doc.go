// Package engine provides the runtime that evaluates mined business rules
// against execution contexts, applies their actions, and records a full
// decision trace.
//
// The engine owns a registry of rules and rule sets. Rules are immutable once
// registered; only their lifecycle status (active, inactive, draft,
// deprecated) changes afterward. Only active rules execute.
//
// # Execution Flow
//
//	ExecutionContext (one per data record)
//	       ↓
//	ExecuteRule / ExecuteRuleSet
//	       ↓
//	Resolve operands (literal, $path, function form, sentinel)
//	       ↓
//	Evaluate condition list (logical AND) → met?
//	  Yes → run actions        (assign, calculate, perform, display)
//	  No  → run else-actions   (if any)
//	       ↓
//	Result + trace events + per-rule statistics
//
// A failure inside one rule is caught, traced as rule_error, and reported in
// that rule's Result; it never aborts the remaining rules of a set. Only
// lookups by unknown id and malformed registration input are fatal to a call.
//
// Sequential rule sets guarantee that side effects of rule i are visible to
// rule i+1. Parallel sets give every rule an isolated snapshot of the context
// and merge writes afterward, last writer by declared order.
package engine
