package optimize

import (
	"sort"
	"strings"
	"time"

	"stratum-hq/reliq/pkg/engine"
)

// patternBottleneckMean flags rules whose observed mean duration is slow
// enough to surface in the pattern report.
const patternBottleneckMean = 50 * time.Millisecond

// maxCommonPaths caps how many execution paths the report carries.
const maxCommonPaths = 10

// PathFrequency is one observed execution path with how often it occurred.
type PathFrequency struct {
	Path      []string `json:"path"`
	Count     int      `json:"count"`
	Frequency float64  `json:"frequency"`
}

// RuleTiming aggregates observed execution durations for one rule.
type RuleTiming struct {
	Mean  time.Duration `json:"mean_ns"`
	Max   time.Duration `json:"max_ns"`
	Count int           `json:"count"`
}

// PatternReport summarizes observed behavior across execution traces.
type PatternReport struct {
	TotalTraces int                   `json:"total_traces"`
	CommonPaths []PathFrequency       `json:"common_paths,omitempty"`
	Timings     map[string]RuleTiming `json:"timings,omitempty"`
	Bottlenecks []string              `json:"bottlenecks,omitempty"`
}

// MinePatterns reconstructs the completed-rule sequence of every trace,
// counts identical sequences to surface the most common execution paths,
// and aggregates per-rule timing to flag bottlenecks.
func MinePatterns(traces [][]engine.TraceEvent) *PatternReport {
	report := &PatternReport{
		TotalTraces: len(traces),
		Timings:     make(map[string]RuleTiming),
	}
	if len(traces) == 0 {
		return report
	}

	pathCounts := make(map[string]int)
	pathSeqs := make(map[string][]string)
	sums := make(map[string]time.Duration)

	for _, trace := range traces {
		var path []string
		for _, ev := range trace {
			if ev.Event != engine.EventRuleComplete || ev.RuleID == "" {
				continue
			}
			path = append(path, ev.RuleID)

			if ev.Result != nil {
				t := report.Timings[ev.RuleID]
				t.Count++
				sums[ev.RuleID] += ev.Result.Elapsed
				if ev.Result.Elapsed > t.Max {
					t.Max = ev.Result.Elapsed
				}
				report.Timings[ev.RuleID] = t
			}
		}
		if len(path) == 0 {
			continue
		}
		key := strings.Join(path, "|")
		pathCounts[key]++
		pathSeqs[key] = path
	}

	for id, t := range report.Timings {
		t.Mean = sums[id] / time.Duration(t.Count)
		report.Timings[id] = t
		if t.Mean > patternBottleneckMean {
			report.Bottlenecks = append(report.Bottlenecks, id)
		}
	}
	sort.Strings(report.Bottlenecks)

	keys := make([]string, 0, len(pathCounts))
	for key := range pathCounts {
		keys = append(keys, key)
	}
	// Most frequent first; ties break on the path text so output is stable.
	sort.Slice(keys, func(i, j int) bool {
		if pathCounts[keys[i]] != pathCounts[keys[j]] {
			return pathCounts[keys[i]] > pathCounts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > maxCommonPaths {
		keys = keys[:maxCommonPaths]
	}
	for _, key := range keys {
		report.CommonPaths = append(report.CommonPaths, PathFrequency{
			Path:      pathSeqs[key],
			Count:     pathCounts[key],
			Frequency: float64(pathCounts[key]) / float64(len(traces)),
		})
	}

	return report
}
