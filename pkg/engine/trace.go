package engine

import (
	"time"

	"stratum-hq/reliq/pkg/rule"
)

// EventType identifies the kind of a trace event.
type EventType string

const (
	EventRuleStart       EventType = "rule_start"
	EventRuleComplete    EventType = "rule_complete"
	EventRuleError       EventType = "rule_error"
	EventRuleSetStart    EventType = "rule_set_start"
	EventRuleSetComplete EventType = "rule_set_complete"
)

// TraceEvent is one ordered entry in a context's execution trace.
type TraceEvent struct {
	// Timestamp is the event time in RFC 3339 format with sub-second
	// precision.
	Timestamp string `json:"timestamp"`

	// Event is the event kind.
	Event EventType `json:"event"`

	// RuleID identifies the rule for rule-scoped events.
	RuleID string `json:"rule_id,omitempty"`

	// RuleSetID identifies the set for set-scoped events.
	RuleSetID string `json:"rule_set_id,omitempty"`

	// Result carries the full result payload on completion events.
	Result *Result `json:"result,omitempty"`

	// Error carries the failure message on rule_error events.
	Error string `json:"error,omitempty"`
}

func newEvent(event EventType) TraceEvent {
	return TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Event:     event,
	}
}

// Effect records one action's observable outcome.
type Effect struct {
	// Type is the action kind that produced the effect.
	Type rule.ActionType `json:"action_type"`

	// Target is the context path, procedure name, or sink the action
	// addressed.
	Target string `json:"target"`

	// Value is the resolved value written, displayed, or computed.
	// Nil for perform effects and for failed calculations.
	Value any `json:"value,omitempty"`
}

// Result is the structured outcome of one ExecuteRule call. Callers always
// receive a Result for a known rule id, never a crash: failures are folded
// into Executed=false plus an error message.
type Result struct {
	// RuleID identifies the executed rule.
	RuleID string `json:"rule_id"`

	// Executed reports whether the rule actually ran. False for
	// non-active rules and for rules that failed mid-evaluation.
	Executed bool `json:"executed"`

	// ConditionsMet reports whether the condition list held.
	ConditionsMet bool `json:"conditions_met"`

	// Reason explains why a rule did not execute (e.g. inactive status).
	Reason string `json:"reason,omitempty"`

	// Error is the failure message when evaluation or an action failed.
	Error string `json:"error,omitempty"`

	// Effects lists the action effects in execution order.
	Effects []Effect `json:"effects,omitempty"`

	// Elapsed is the wall-clock execution time.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// SetResult is the outcome of one ExecuteRuleSet call.
type SetResult struct {
	// RuleSetID identifies the executed set.
	RuleSetID string `json:"rule_set_id"`

	// Results holds one entry per executed rule, in execution order.
	// When StopOnFirstMatch halts the set early, later rules are absent.
	Results []*Result `json:"results"`

	// Stopped reports whether stop-on-first-match halted the set.
	Stopped bool `json:"stopped,omitempty"`

	// Elapsed is the wall-clock execution time for the whole set.
	Elapsed time.Duration `json:"elapsed_ns"`
}
