// Package rule defines the language-neutral intermediate representation (IR)
// for business rules mined from procedural legacy source.
//
// The IR is the shared vocabulary between the extractor, the execution engine,
// and the optimizer: pure structure plus invariants, no behavior. All runtime
// semantics (operand resolution, comparison, action effects) live in pkg/engine.
//
// # Core Types
//
// Rule: one extracted business rule with conditions, actions and else-actions
//
// Condition: a boolean predicate, either a simple comparison or an AND/OR
// composition of sub-conditions
//
// Action: a side-effecting operation (assign, calculate, perform, display)
//
// Operand: the tagged-variant decomposition of a condition/action token
// (literal, context reference, bare identifier, function call, sentinel)
//
// RuleSet: a named, ordered grouping of rule ids with a declared execution order
//
// # Serialization
//
// Rules marshal to the exact record consumed by external rendering collaborators:
//
//	{id, type, name, description, source, conditions, actions, else_actions, metadata}
//
// using the literal operator tokens =, !=, >, <, >=, <= and the literal action
// type strings assign, calculate, perform, display.
package rule
