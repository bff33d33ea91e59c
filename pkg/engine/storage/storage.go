package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stratum-hq/reliq/pkg/engine"
)

// TraceRecord captures one completed execution for later analysis.
type TraceRecord struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// RuleID is set for single-rule executions.
	RuleID string `json:"rule_id,omitempty"`

	// RuleSetID is set for rule set executions.
	RuleSetID string `json:"rule_set_id,omitempty"`

	// RecordedAt is when the record was written.
	RecordedAt time.Time `json:"recorded_at"`

	// Executed and ConditionsMet mirror the execution result. For rule set
	// records they describe the set as a whole: Executed is true when every
	// member ran cleanly, ConditionsMet when at least one member matched.
	Executed      bool `json:"executed"`
	ConditionsMet bool `json:"conditions_met"`

	// Elapsed is the wall-clock duration of the execution.
	Elapsed time.Duration `json:"elapsed_ns"`

	// Trace is the ordered event log produced by the execution context.
	Trace []engine.TraceEvent `json:"trace,omitempty"`

	// Error holds the execution failure, if any.
	Error string `json:"error,omitempty"`
}

// RecordResult builds a trace record from a single-rule execution.
func RecordResult(res *engine.Result, trace []engine.TraceEvent) *TraceRecord {
	return &TraceRecord{
		ID:            uuid.NewString(),
		RuleID:        res.RuleID,
		RecordedAt:    time.Now().UTC(),
		Executed:      res.Executed,
		ConditionsMet: res.ConditionsMet,
		Elapsed:       res.Elapsed,
		Trace:         trace,
		Error:         res.Error,
	}
}

// RecordSetResult builds a trace record from a rule set execution.
func RecordSetResult(sr *engine.SetResult, trace []engine.TraceEvent) *TraceRecord {
	rec := &TraceRecord{
		ID:         uuid.NewString(),
		RuleSetID:  sr.RuleSetID,
		RecordedAt: time.Now().UTC(),
		Executed:   true,
		Elapsed:    sr.Elapsed,
		Trace:      trace,
	}
	for _, res := range sr.Results {
		if res.Error != "" {
			rec.Executed = false
			rec.Error = res.Error
		}
		if res.ConditionsMet {
			rec.ConditionsMet = true
		}
	}
	return rec
}

// Query filters trace records. Zero-valued fields match everything.
type Query struct {
	RuleID     string
	RuleSetID  string
	Since      time.Time
	Until      time.Time
	OnlyErrors bool
	Limit      int
	Offset     int
}

// Store is the persistence interface for trace records.
type Store interface {
	// Save appends a trace record.
	Save(ctx context.Context, rec *TraceRecord) error

	// Query returns records matching the filter, newest first.
	Query(ctx context.Context, q *Query) ([]*TraceRecord, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, q *Query) (int64, error)

	// Prune deletes records recorded before the cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases backend resources.
	Close() error
}

// StoreError describes a storage backend failure.
type StoreError struct {
	Backend string
	Op      string
	Cause   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("trace storage %s: %s failed: %v", e.Backend, e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func newStoreError(backend, op string, cause error) *StoreError {
	return &StoreError{Backend: backend, Op: op, Cause: cause}
}
