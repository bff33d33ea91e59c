package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"stratum-hq/reliq/pkg/rule"
)

// Status is the registry-owned lifecycle state of a registered rule.
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusDraft      Status = "draft"
	StatusDeprecated Status = "deprecated"
)

// Stats accumulates per-rule execution statistics. Every ExecuteRule call
// updates them, whatever the outcome; errors count toward TotalExecutions but
// not ConditionsMetCount.
type Stats struct {
	TotalExecutions    int64         `json:"total_executions"`
	ConditionsMetCount int64         `json:"conditions_met_count"`
	AvgDuration        time.Duration `json:"avg_duration_ns"`
}

// registeredRule pairs an immutable rule with its mutable lifecycle state and
// statistics. The rule itself never changes after registration.
type registeredRule struct {
	rule *rule.Rule

	mu     sync.Mutex
	status Status
	stats  Stats
}

func (r *registeredRule) currentStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *registeredRule) recordExecution(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.TotalExecutions++
	if res.Executed && res.ConditionsMet {
		r.stats.ConditionsMetCount++
	}
	n := r.stats.TotalExecutions
	r.stats.AvgDuration += (res.Elapsed - r.stats.AvgDuration) / time.Duration(n)
}

// Engine owns the rule registry, rule sets, and per-rule statistics.
// Registry mutation is serialized; execution of already-registered rules may
// proceed concurrently as long as each execution owns its own context.
type Engine struct {
	mu    sync.RWMutex
	rules map[string]*registeredRule
	sets  map[string]*rule.RuleSet

	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger used for execution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches a Prometheus metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		rules:  make(map[string]*registeredRule),
		sets:   make(map[string]*rule.RuleSet),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterRule adds a rule to the registry with status active. The rule is
// validated first; a duplicate id or invalid rule is a RegistrationError.
func (e *Engine) RegisterRule(r *rule.Rule) error {
	if r == nil {
		return &RegistrationError{Message: "rule cannot be nil"}
	}
	if err := r.Validate(); err != nil {
		return &RegistrationError{ID: r.ID, Message: "invalid rule", Cause: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.rules[r.ID]; exists {
		return &RegistrationError{ID: r.ID, Message: "rule id already registered"}
	}
	e.rules[r.ID] = &registeredRule{rule: r.Clone(), status: StatusActive}
	e.metrics.setRegistered(len(e.rules))

	return nil
}

// RegisterRules registers a batch of rules, stopping at the first failure.
func (e *Engine) RegisterRules(rules []rule.Rule) error {
	for i := range rules {
		if err := e.RegisterRule(&rules[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetRuleStatus transitions a rule's lifecycle status. Rules are never
// deleted; retiring a rule means marking it inactive or deprecated.
func (e *Engine) SetRuleStatus(id string, status Status) error {
	switch status {
	case StatusActive, StatusInactive, StatusDraft, StatusDeprecated:
	default:
		return &RegistrationError{ID: id, Message: fmt.Sprintf("unknown status %q", status)}
	}

	e.mu.RLock()
	reg, ok := e.rules[id]
	e.mu.RUnlock()
	if !ok {
		return &RuleNotFoundError{ID: id}
	}

	reg.mu.Lock()
	reg.status = status
	reg.mu.Unlock()

	return nil
}

// RuleStatus returns the current lifecycle status of a rule.
func (e *Engine) RuleStatus(id string) (Status, error) {
	e.mu.RLock()
	reg, ok := e.rules[id]
	e.mu.RUnlock()
	if !ok {
		return "", &RuleNotFoundError{ID: id}
	}
	return reg.currentStatus(), nil
}

// Rule returns a copy of a registered rule.
func (e *Engine) Rule(id string) (*rule.Rule, error) {
	e.mu.RLock()
	reg, ok := e.rules[id]
	e.mu.RUnlock()
	if !ok {
		return nil, &RuleNotFoundError{ID: id}
	}
	return reg.rule.Clone(), nil
}

// Rules returns copies of all registered rules, sorted by id.
func (e *Engine) Rules() []*rule.Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.rules))
	for id := range e.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*rule.Rule, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.rules[id].rule.Clone())
	}
	return out
}

// CreateRuleSet registers a rule set after validating its shape and checking
// that every member rule id is already registered.
func (e *Engine) CreateRuleSet(set *rule.RuleSet) error {
	if set == nil {
		return &RegistrationError{Message: "rule set cannot be nil"}
	}
	if err := set.Validate(); err != nil {
		return &RegistrationError{ID: set.ID, Message: "invalid rule set", Cause: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.sets[set.ID]; exists {
		return &RegistrationError{ID: set.ID, Message: "rule set id already registered"}
	}
	for _, rid := range set.RuleIDs {
		if _, ok := e.rules[rid]; !ok {
			return &RegistrationError{ID: set.ID, Message: fmt.Sprintf("member rule %q not registered", rid)}
		}
	}

	copied := *set
	copied.RuleIDs = append([]string(nil), set.RuleIDs...)
	e.sets[set.ID] = &copied

	return nil
}

// StatsSnapshot returns a copy of every rule's accumulated statistics.
func (e *Engine) StatsSnapshot() map[string]Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]Stats, len(e.rules))
	for id, reg := range e.rules {
		reg.mu.Lock()
		out[id] = reg.stats
		reg.mu.Unlock()
	}
	return out
}

// ExecuteRule executes one rule against the context, appending rule_start and
// rule_complete (or rule_error) trace events and updating statistics.
//
// A non-active rule yields a Result with Executed=false and a reason; that is
// not an error. An unknown id is a RuleNotFoundError, fatal to this call.
// Any failure inside evaluation is folded into the Result.
func (e *Engine) ExecuteRule(ctx context.Context, id string, ec *ExecutionContext) (*Result, error) {
	e.mu.RLock()
	reg, ok := e.rules[id]
	e.mu.RUnlock()
	if !ok {
		return nil, &RuleNotFoundError{ID: id}
	}

	start := time.Now()
	startEv := newEvent(EventRuleStart)
	startEv.RuleID = id
	ec.appendEvent(startEv)

	result := e.runRule(reg, ec)
	result.Elapsed = time.Since(start)

	var doneEv TraceEvent
	if result.Error != "" {
		doneEv = newEvent(EventRuleError)
		doneEv.Error = result.Error
	} else {
		doneEv = newEvent(EventRuleComplete)
	}
	doneEv.RuleID = id
	doneEv.Result = result
	ec.appendEvent(doneEv)

	reg.recordExecution(result)
	e.metrics.observeExecution(id, result, result.Elapsed)

	return result, nil
}

// runRule performs status gating, condition evaluation, and action execution.
// Panics are recovered into the result so one misbehaving rule can never take
// down a rule set.
func (e *Engine) runRule(reg *registeredRule, ec *ExecutionContext) (result *Result) {
	r := reg.rule
	result = &Result{RuleID: r.ID}

	defer func() {
		if rec := recover(); rec != nil {
			result.Executed = false
			result.Error = fmt.Sprintf("panic during rule execution: %v", rec)
			e.logger.Error("rule execution panic", "rule_id", r.ID, "panic", rec)
		}
	}()

	if status := reg.currentStatus(); status != StatusActive {
		result.Reason = fmt.Sprintf("rule %s is %s", r.ID, status)
		return result
	}

	// Empty condition list is vacuously true.
	met := true
	for i := range r.Conditions {
		held, err := evaluateCondition(&r.Conditions[i], ec)
		if err != nil {
			result.Error = err.Error()
			e.logger.Warn("condition evaluation failed",
				"rule_id", r.ID,
				"condition", i,
				"error", err,
			)
			return result
		}
		if !held {
			met = false
			break
		}
	}
	result.ConditionsMet = met

	actions := r.Actions
	if !met {
		actions = r.ElseActions
	}
	for i := range actions {
		effect, err := e.applyAction(&actions[i], ec)
		if err != nil {
			result.Error = err.Error()
			e.logger.Warn("action execution failed",
				"rule_id", r.ID,
				"action", i,
				"error", err,
			)
			return result
		}
		result.Effects = append(result.Effects, effect)
	}

	result.Executed = true
	return result
}

// applyAction applies one action to the context and returns its effect.
// Calculation failures are absorbed: the target is written nil, the failure
// is logged, and execution continues.
func (e *Engine) applyAction(a *rule.Action, ec *ExecutionContext) (Effect, error) {
	switch a.Type {
	case rule.ActionAssign:
		value, err := resolveOperand(rule.ParseOperand(a.Value), ec)
		if err != nil {
			return Effect{}, err
		}
		ec.Set(a.Target, value)
		return Effect{Type: a.Type, Target: a.Target, Value: value}, nil

	case rule.ActionCalculate:
		n, err := evaluateFormula(a.Formula, ec)
		if err != nil {
			ec.Set(a.Target, nil)
			e.logger.Warn("calculation failed, writing null result",
				"target", a.Target,
				"error", err,
			)
			return Effect{Type: a.Type, Target: a.Target}, nil
		}
		ec.Set(a.Target, n)
		return Effect{Type: a.Type, Target: a.Target, Value: n}, nil

	case rule.ActionPerform:
		// External procedure hook: recorded, never called from here.
		return Effect{Type: a.Type, Target: a.Target}, nil

	case rule.ActionDisplay:
		value, err := resolveOperand(rule.ParseOperand(a.Value), ec)
		if err != nil {
			return Effect{}, err
		}
		return Effect{Type: a.Type, Target: a.Target, Value: value}, nil

	default:
		return Effect{}, fmt.Errorf("unknown action type: %q", a.Type)
	}
}

// ExecuteRuleSet executes a registered rule set against the context.
//
// Sequential sets guarantee that effects of rule i are visible to rule i+1
// and honor stop-on-first-match. Parallel sets execute every rule against an
// isolated snapshot and merge writes back last-writer-by-declared-order;
// stop-on-first-match does not apply to parallel sets.
func (e *Engine) ExecuteRuleSet(ctx context.Context, id string, ec *ExecutionContext) (*SetResult, error) {
	e.mu.RLock()
	set, ok := e.sets[id]
	e.mu.RUnlock()
	if !ok {
		return nil, &RuleSetNotFoundError{ID: id}
	}

	start := time.Now()
	startEv := newEvent(EventRuleSetStart)
	startEv.RuleSetID = id
	ec.appendEvent(startEv)

	sr := &SetResult{RuleSetID: id}
	var err error
	if set.Order == rule.OrderParallel {
		err = e.executeParallel(ctx, set, ec, sr)
	} else {
		err = e.executeSequential(ctx, set, ec, sr)
	}
	if err != nil {
		return nil, err
	}

	sr.Elapsed = time.Since(start)
	doneEv := newEvent(EventRuleSetComplete)
	doneEv.RuleSetID = id
	ec.appendEvent(doneEv)

	return sr, nil
}

func (e *Engine) executeSequential(ctx context.Context, set *rule.RuleSet, ec *ExecutionContext, sr *SetResult) error {
	for _, rid := range set.RuleIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := e.ExecuteRule(ctx, rid, ec)
		if err != nil {
			return err
		}
		sr.Results = append(sr.Results, res)

		if set.StopOnFirstMatch && res.Executed && res.ConditionsMet {
			sr.Stopped = true
			return nil
		}
	}
	return nil
}

func (e *Engine) executeParallel(ctx context.Context, set *rule.RuleSet, ec *ExecutionContext, sr *SetResult) error {
	n := len(set.RuleIDs)
	snapshots := make([]*ExecutionContext, n)
	results := make([]*Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i, rid := range set.RuleIDs {
		snapshots[i] = ec.Snapshot()
		wg.Add(1)
		go func(i int, rid string, snap *ExecutionContext) {
			defer wg.Done()
			results[i], errs[i] = e.ExecuteRule(ctx, rid, snap)
		}(i, rid, snapshots[i])
	}
	wg.Wait()

	// Merge in declared order: trace events first, then writes, so the
	// last writer by declared order wins on conflicting targets.
	for i := range set.RuleIDs {
		if errs[i] != nil {
			return errs[i]
		}
		for _, ev := range snapshots[i].Trace() {
			ec.appendEvent(ev)
		}
		for _, eff := range results[i].Effects {
			if eff.Type == rule.ActionAssign || eff.Type == rule.ActionCalculate {
				ec.Set(eff.Target, eff.Value)
			}
		}
		sr.Results = append(sr.Results, results[i])
	}
	return nil
}
