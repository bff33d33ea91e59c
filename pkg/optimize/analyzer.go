package optimize

import (
	"time"

	"stratum-hq/reliq/pkg/engine"
	"stratum-hq/reliq/pkg/rule"
)

const (
	// bottleneckDuration flags rules whose average execution time is slow.
	bottleneckDuration = 100 * time.Millisecond

	// lowHitRate and lowHitMinExecutions flag rules that almost never
	// match once enough executions have been observed.
	lowHitRate          = 0.01
	lowHitMinExecutions = 100
)

// RuleAnalysis is the per-rule performance summary.
type RuleAnalysis struct {
	RuleID          string        `json:"rule_id"`
	TotalExecutions int64         `json:"total_executions"`
	HitRate         float64       `json:"hit_rate"`
	AvgDuration     time.Duration `json:"avg_duration_ns"`
	Bottleneck      bool          `json:"bottleneck"`
	Unused          bool          `json:"unused"`
}

// Analysis aggregates per-rule summaries with the flagged id lists the
// advice oracle cares about.
type Analysis struct {
	Rules       []RuleAnalysis `json:"rules"`
	Bottlenecks []string       `json:"bottlenecks,omitempty"`
	Unused      []string       `json:"unused,omitempty"`
}

// Analyze computes hit rates and flags bottleneck and unused rules. A rule
// with no recorded executions is an unused candidate for removal.
func Analyze(rules []rule.Rule, stats map[string]engine.Stats) *Analysis {
	a := &Analysis{}
	for i := range rules {
		r := &rules[i]
		st, ok := stats[r.ID]

		ra := RuleAnalysis{RuleID: r.ID}
		if !ok || st.TotalExecutions == 0 {
			ra.Unused = true
			a.Unused = append(a.Unused, r.ID)
			a.Rules = append(a.Rules, ra)
			continue
		}

		ra.TotalExecutions = st.TotalExecutions
		ra.HitRate = float64(st.ConditionsMetCount) / float64(st.TotalExecutions)
		ra.AvgDuration = st.AvgDuration

		if st.AvgDuration > bottleneckDuration {
			ra.Bottleneck = true
		}
		if st.TotalExecutions > lowHitMinExecutions && ra.HitRate < lowHitRate {
			ra.Bottleneck = true
		}
		if ra.Bottleneck {
			a.Bottlenecks = append(a.Bottlenecks, r.ID)
		}
		a.Rules = append(a.Rules, ra)
	}
	return a
}
