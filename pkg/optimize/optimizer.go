package optimize

import (
	"context"
	"log/slog"

	"stratum-hq/reliq/pkg/engine"
	"stratum-hq/reliq/pkg/rule"
)

// defaultSampleSize bounds how many rules travel to the advice oracle.
const defaultSampleSize = 20

// Optimizer transforms rule lists using execution statistics and an advice
// oracle.
type Optimizer struct {
	advisor    Advisor
	logger     *slog.Logger
	sampleSize int
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSampleSize bounds the rule sample sent to the advisor.
func WithSampleSize(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.sampleSize = n
		}
	}
}

// New creates an optimizer. A nil advisor falls back to the built-in
// heuristics.
func New(advisor Advisor, opts ...Option) *Optimizer {
	o := &Optimizer{
		advisor:    advisor,
		logger:     slog.Default().With("component", "optimize"),
		sampleSize: defaultSampleSize,
	}
	if o.advisor == nil {
		o.advisor = HeuristicAdvisor{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OptimizeRules analyzes the rules, consults the advisor, and applies every
// valid recommendation in order. An advisor failure, an empty response, or
// a response referencing unknown rule ids degrades gracefully: invalid
// recommendations are skipped and, with nothing applicable, the input comes
// back unchanged.
func (o *Optimizer) OptimizeRules(ctx context.Context, rules []rule.Rule, stats map[string]engine.Stats) []rule.Rule {
	if len(rules) == 0 {
		return rules
	}

	analysis := Analyze(rules, stats)
	recs, err := o.advisor.Recommend(ctx, &AdviceRequest{
		Analysis:   analysis,
		RuleSample: sampleRules(rules, o.sampleSize),
	})
	if err != nil {
		o.logger.Warn("advisor unavailable, returning rules unchanged", "error", err)
		return rules
	}
	if len(recs) == 0 {
		return rules
	}

	out := append([]rule.Rule(nil), rules...)
	for _, rec := range recs {
		if !o.validRecommendation(out, rec) {
			o.logger.Warn("skipping invalid recommendation",
				"type", rec.Type,
				"rule_ids", rec.RuleIDs,
			)
			continue
		}

		before := len(out)
		switch rec.Type {
		case RecommendMerge:
			out = mergeRules(out, rec.RuleIDs)
		case RecommendReorder:
			out = reorderRules(out)
		case RecommendSimplify:
			out = simplifyRules(out, rec.RuleIDs)
		case RecommendRemove:
			out = removeRules(out, rec.RuleIDs)
		case RecommendCache:
			out = cacheRules(out, rec.RuleIDs)
		}
		o.logger.Info("applied recommendation",
			"type", rec.Type,
			"rule_ids", rec.RuleIDs,
			"rules_before", before,
			"rules_after", len(out),
		)
	}
	return out
}

// validRecommendation checks the shape of an advisor recommendation against
// the current rule list. Reorder takes no ids; merge needs at least two;
// everything else needs at least one, and every referenced id must exist.
func (o *Optimizer) validRecommendation(rules []rule.Rule, rec Recommendation) bool {
	if !wellFormedRecommendation(rec) {
		return false
	}

	known := make(map[string]bool, len(rules))
	for i := range rules {
		known[rules[i].ID] = true
	}
	for _, id := range rec.RuleIDs {
		if !known[id] {
			return false
		}
	}
	return true
}

// LearnFromExecution mines execution traces for common paths and timing
// bottlenecks, forwards the report to the advisor, and returns both the
// report and whatever well-formed recommendations came back. No rule list
// is in scope here, so only the shape is checked; ids are validated when
// the recommendations are applied. Advisor failure yields the report with
// no recommendations.
func (o *Optimizer) LearnFromExecution(ctx context.Context, traces [][]engine.TraceEvent) (*PatternReport, []Recommendation) {
	report := MinePatterns(traces)
	if report.TotalTraces == 0 {
		return report, nil
	}

	recs, err := o.advisor.Recommend(ctx, &AdviceRequest{Patterns: report})
	if err != nil {
		o.logger.Warn("advisor unavailable for pattern report", "error", err)
		return report, nil
	}

	kept := recs[:0]
	for _, rec := range recs {
		if !wellFormedRecommendation(rec) {
			o.logger.Warn("dropping malformed recommendation", "type", rec.Type, "rule_ids", rec.RuleIDs)
			continue
		}
		kept = append(kept, rec)
	}
	return report, kept
}

// wellFormedRecommendation checks a recommendation's shape without a rule
// list: the type must be known and carry enough ids for its transform.
func wellFormedRecommendation(rec Recommendation) bool {
	switch rec.Type {
	case RecommendReorder:
		return true
	case RecommendMerge:
		return len(rec.RuleIDs) >= 2
	case RecommendSimplify, RecommendRemove, RecommendCache:
		return len(rec.RuleIDs) > 0
	}
	return false
}

func sampleRules(rules []rule.Rule, n int) []rule.Rule {
	if len(rules) <= n {
		return rules
	}
	return rules[:n]
}
