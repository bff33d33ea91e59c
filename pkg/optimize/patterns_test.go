package optimize

import (
	"context"
	"reflect"
	"testing"
	"time"

	"stratum-hq/reliq/pkg/engine"
)

func completedTrace(elapsed time.Duration, ruleIDs ...string) []engine.TraceEvent {
	var trace []engine.TraceEvent
	for _, id := range ruleIDs {
		trace = append(trace,
			engine.TraceEvent{Event: engine.EventRuleStart, RuleID: id},
			engine.TraceEvent{
				Event:  engine.EventRuleComplete,
				RuleID: id,
				Result: &engine.Result{RuleID: id, Executed: true, Elapsed: elapsed},
			},
		)
	}
	return trace
}

func TestMinePatterns_CommonPaths(t *testing.T) {
	traces := [][]engine.TraceEvent{
		completedTrace(time.Millisecond, "a", "b"),
		completedTrace(time.Millisecond, "a", "b"),
		completedTrace(time.Millisecond, "a", "b"),
		completedTrace(time.Millisecond, "a", "c"),
	}

	report := MinePatterns(traces)

	if report.TotalTraces != 4 {
		t.Errorf("TotalTraces = %d, want 4", report.TotalTraces)
	}
	if len(report.CommonPaths) != 2 {
		t.Fatalf("paths = %d, want 2", len(report.CommonPaths))
	}

	top := report.CommonPaths[0]
	if !reflect.DeepEqual(top.Path, []string{"a", "b"}) {
		t.Errorf("top path = %v, want [a b]", top.Path)
	}
	if top.Count != 3 || top.Frequency != 0.75 {
		t.Errorf("top path count=%d freq=%v, want 3 and 0.75", top.Count, top.Frequency)
	}
}

func TestMinePatterns_ErroredRulesExcludedFromPaths(t *testing.T) {
	trace := completedTrace(time.Millisecond, "a")
	trace = append(trace,
		engine.TraceEvent{Event: engine.EventRuleStart, RuleID: "b"},
		engine.TraceEvent{Event: engine.EventRuleError, RuleID: "b", Error: "boom"},
	)

	report := MinePatterns([][]engine.TraceEvent{trace})
	if len(report.CommonPaths) != 1 {
		t.Fatalf("paths = %d, want 1", len(report.CommonPaths))
	}
	if !reflect.DeepEqual(report.CommonPaths[0].Path, []string{"a"}) {
		t.Errorf("path = %v, want errored rule excluded", report.CommonPaths[0].Path)
	}
}

func TestMinePatterns_TimingAndBottlenecks(t *testing.T) {
	traces := [][]engine.TraceEvent{
		completedTrace(80*time.Millisecond, "slow"),
		completedTrace(120*time.Millisecond, "slow"),
		completedTrace(time.Millisecond, "fast"),
	}

	report := MinePatterns(traces)

	slow := report.Timings["slow"]
	if slow.Count != 2 {
		t.Errorf("slow count = %d, want 2", slow.Count)
	}
	if slow.Mean != 100*time.Millisecond {
		t.Errorf("slow mean = %v, want 100ms", slow.Mean)
	}
	if slow.Max != 120*time.Millisecond {
		t.Errorf("slow max = %v, want 120ms", slow.Max)
	}

	if !reflect.DeepEqual(report.Bottlenecks, []string{"slow"}) {
		t.Errorf("bottlenecks = %v, want [slow]", report.Bottlenecks)
	}
}

func TestMinePatterns_TopTenCap(t *testing.T) {
	var traces [][]engine.TraceEvent
	for i := 0; i < 12; i++ {
		traces = append(traces, completedTrace(time.Millisecond, string(rune('a'+i))))
	}

	report := MinePatterns(traces)
	if len(report.CommonPaths) != 10 {
		t.Errorf("paths = %d, want capped at 10", len(report.CommonPaths))
	}
}

func TestMinePatterns_Empty(t *testing.T) {
	report := MinePatterns(nil)
	if report.TotalTraces != 0 || len(report.CommonPaths) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestLearnFromExecution(t *testing.T) {
	o := New(scriptedAdvisor{recs: []Recommendation{
		{Type: RecommendCache, RuleIDs: []string{"a"}},
	}})

	traces := [][]engine.TraceEvent{completedTrace(time.Millisecond, "a")}
	report, recs := o.LearnFromExecution(context.Background(), traces)

	if report.TotalTraces != 1 {
		t.Errorf("TotalTraces = %d, want 1", report.TotalTraces)
	}
	if len(recs) != 1 || recs[0].Type != RecommendCache {
		t.Errorf("recs = %+v", recs)
	}
}

func TestLearnFromExecution_DropsMalformedRecommendations(t *testing.T) {
	o := New(scriptedAdvisor{recs: []Recommendation{
		{Type: RecommendationType("rewrite-everything"), RuleIDs: []string{"a"}},
		{Type: RecommendMerge, RuleIDs: []string{"a"}},
		{Type: RecommendRemove},
		{Type: RecommendCache, RuleIDs: []string{"a"}},
	}})

	traces := [][]engine.TraceEvent{completedTrace(time.Millisecond, "a")}
	_, recs := o.LearnFromExecution(context.Background(), traces)

	if len(recs) != 1 || recs[0].Type != RecommendCache {
		t.Errorf("recs = %+v, want only the cache recommendation", recs)
	}
}
