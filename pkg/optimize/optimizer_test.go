package optimize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"stratum-hq/reliq/pkg/engine"
	"stratum-hq/reliq/pkg/rule"
)

// scriptedAdvisor returns fixed recommendations, or an error.
type scriptedAdvisor struct {
	recs []Recommendation
	err  error
}

func (a scriptedAdvisor) Recommend(ctx context.Context, req *AdviceRequest) ([]Recommendation, error) {
	return a.recs, a.err
}

func testRules() []rule.Rule {
	return []rule.Rule{
		decisionRule("r1", []rule.Condition{rule.Simple("A", rule.OperatorEqual, "1")}, nil),
		decisionRule("r2", []rule.Condition{rule.Simple("B", rule.OperatorEqual, "2")}, nil),
		decisionRule("r3", []rule.Condition{rule.Simple("C", rule.OperatorEqual, "3")}, nil),
	}
}

func TestOptimizeRules_RemoveRecommendation(t *testing.T) {
	o := New(scriptedAdvisor{recs: []Recommendation{
		{Type: RecommendRemove, RuleIDs: []string{"r2"}},
	}})

	out := o.OptimizeRules(context.Background(), testRules(), nil)
	if len(out) != 2 {
		t.Fatalf("rules = %d, want 2", len(out))
	}
	for i := range out {
		if out[i].ID == "r2" {
			t.Errorf("removed rule still present")
		}
	}
}

func TestOptimizeRules_AdvisorErrorReturnsInputUnchanged(t *testing.T) {
	o := New(scriptedAdvisor{err: errors.New("oracle down")})

	in := testRules()
	out := o.OptimizeRules(context.Background(), in, nil)
	if !reflect.DeepEqual(in, out) {
		t.Errorf("rules changed despite advisor failure")
	}
}

func TestOptimizeRules_EmptyResponseReturnsInputUnchanged(t *testing.T) {
	o := New(scriptedAdvisor{})

	in := testRules()
	out := o.OptimizeRules(context.Background(), in, nil)
	if !reflect.DeepEqual(in, out) {
		t.Errorf("rules changed despite empty recommendations")
	}
}

func TestOptimizeRules_UnknownIDsAreRejected(t *testing.T) {
	o := New(scriptedAdvisor{recs: []Recommendation{
		{Type: RecommendRemove, RuleIDs: []string{"ghost"}},
		{Type: RecommendMerge, RuleIDs: []string{"r1"}},
		{Type: "explode", RuleIDs: []string{"r1"}},
	}})

	in := testRules()
	out := o.OptimizeRules(context.Background(), in, nil)
	if !reflect.DeepEqual(in, out) {
		t.Errorf("invalid recommendations were applied")
	}
}

func TestOptimizeRules_HeuristicRemovesUnused(t *testing.T) {
	o := New(nil)

	stats := map[string]engine.Stats{
		"r1": {TotalExecutions: 10, ConditionsMetCount: 5},
		"r3": {TotalExecutions: 4, ConditionsMetCount: 1},
	}
	out := o.OptimizeRules(context.Background(), testRules(), stats)
	if len(out) != 2 {
		t.Fatalf("rules = %d, want unused r2 removed", len(out))
	}
	for i := range out {
		if out[i].ID == "r2" {
			t.Errorf("unused rule survived")
		}
	}
}

func TestOptimizeRules_StructuralAdvisorKeepsEveryRule(t *testing.T) {
	rules := testRules()
	o := New(StructuralAdvisor{}, WithSampleSize(len(rules)))

	out := o.OptimizeRules(context.Background(), rules, nil)
	if len(out) != len(rules) {
		t.Fatalf("rules = %d, want %d", len(out), len(rules))
	}
	for i := range out {
		if out[i].ID != rules[i].ID {
			t.Errorf("rule %d = %s, want %s", i, out[i].ID, rules[i].ID)
		}
	}
}

func TestAnalyze(t *testing.T) {
	rules := testRules()
	stats := map[string]engine.Stats{
		"r1": {TotalExecutions: 200, ConditionsMetCount: 1, AvgDuration: time.Millisecond},
		"r2": {TotalExecutions: 50, ConditionsMetCount: 25, AvgDuration: 150 * time.Millisecond},
	}

	a := Analyze(rules, stats)

	if len(a.Rules) != 3 {
		t.Fatalf("analyses = %d, want 3", len(a.Rules))
	}
	// r1: 0.5% hit rate over 200 executions.
	if !reflect.DeepEqual(a.Bottlenecks, []string{"r1", "r2"}) {
		t.Errorf("bottlenecks = %v, want [r1 r2]", a.Bottlenecks)
	}
	if !reflect.DeepEqual(a.Unused, []string{"r3"}) {
		t.Errorf("unused = %v, want [r3]", a.Unused)
	}
	if a.Rules[0].HitRate != 0.005 {
		t.Errorf("r1 hit rate = %v, want 0.005", a.Rules[0].HitRate)
	}
}

func TestHTTPAdvisor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`[{"type":"cache","rule_ids":["r1"],"reason":"hot"}]`))
	}))
	defer srv.Close()

	a := NewHTTPAdvisor(HTTPAdvisorConfig{URL: srv.URL, Timeout: 2 * time.Second})
	recs, err := a.Recommend(context.Background(), &AdviceRequest{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Type != RecommendCache {
		t.Errorf("recs = %+v", recs)
	}
}

func TestHTTPAdvisor_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`here are my thoughts on your rules...`))
	}))
	defer srv.Close()

	a := NewHTTPAdvisor(HTTPAdvisorConfig{URL: srv.URL})
	if _, err := a.Recommend(context.Background(), &AdviceRequest{}); err == nil {
		t.Error("Recommend() = nil error for malformed response")
	}
}

func TestHTTPAdvisor_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewHTTPAdvisor(HTTPAdvisorConfig{URL: srv.URL})
	if _, err := a.Recommend(context.Background(), &AdviceRequest{}); err == nil {
		t.Error("Recommend() = nil error for 502 response")
	}
}
