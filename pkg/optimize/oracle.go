package optimize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stratum-hq/reliq/pkg/rule"
)

// RecommendationType names one of the supported optimization transforms.
type RecommendationType string

const (
	RecommendMerge    RecommendationType = "merge"
	RecommendReorder  RecommendationType = "reorder"
	RecommendSimplify RecommendationType = "simplify"
	RecommendRemove   RecommendationType = "remove"
	RecommendCache    RecommendationType = "cache"
)

// Recommendation is one optimization action suggested by an advisor.
type Recommendation struct {
	Type    RecommendationType `json:"type"`
	RuleIDs []string           `json:"rule_ids"`
	Reason  string             `json:"reason,omitempty"`
}

// AdviceRequest is the bounded summary sent to an advisor: the performance
// analysis, a sample of the rules, and optionally a mined pattern report.
type AdviceRequest struct {
	Analysis   *Analysis      `json:"analysis,omitempty"`
	RuleSample []rule.Rule    `json:"rule_sample,omitempty"`
	Patterns   *PatternReport `json:"patterns,omitempty"`
}

// Advisor produces optimization recommendations from an advice request.
// Implementations are treated as untrusted: callers validate every
// recommendation before acting on it.
type Advisor interface {
	Recommend(ctx context.Context, req *AdviceRequest) ([]Recommendation, error)
}

// HeuristicAdvisor derives recommendations directly from the analysis
// without any external call. It is the default advisor.
type HeuristicAdvisor struct{}

// Recommend suggests removing unused rules, caching hot high-hit rules, and
// reordering whenever a bottleneck was flagged.
func (HeuristicAdvisor) Recommend(ctx context.Context, req *AdviceRequest) ([]Recommendation, error) {
	if req == nil || req.Analysis == nil {
		return nil, nil
	}

	var recs []Recommendation
	if len(req.Analysis.Unused) > 0 {
		recs = append(recs, Recommendation{
			Type:    RecommendRemove,
			RuleIDs: req.Analysis.Unused,
			Reason:  "no recorded executions",
		})
	}
	for _, ra := range req.Analysis.Rules {
		if ra.TotalExecutions > lowHitMinExecutions && ra.HitRate > 0.9 {
			recs = append(recs, Recommendation{
				Type:    RecommendCache,
				RuleIDs: []string{ra.RuleID},
				Reason:  fmt.Sprintf("hit rate %.0f%% over %d executions", ra.HitRate*100, ra.TotalExecutions),
			})
		}
	}
	if len(req.Analysis.Bottlenecks) > 0 {
		recs = append(recs, Recommendation{
			Type:   RecommendReorder,
			Reason: "bottleneck rules detected",
		})
	}
	return recs, nil
}

// StructuralAdvisor recommends only transforms that need no execution
// statistics: a simplify pass over every sampled rule. Suited to contexts
// where rules were just extracted and have never run.
type StructuralAdvisor struct{}

func (StructuralAdvisor) Recommend(ctx context.Context, req *AdviceRequest) ([]Recommendation, error) {
	if req == nil || len(req.RuleSample) == 0 {
		return nil, nil
	}
	ids := make([]string, len(req.RuleSample))
	for i, r := range req.RuleSample {
		ids[i] = r.ID
	}
	return []Recommendation{{
		Type:    RecommendSimplify,
		RuleIDs: ids,
		Reason:  "structural pass, no execution statistics",
	}}, nil
}

// HTTPAdvisorConfig configures an HTTP advice oracle client.
type HTTPAdvisorConfig struct {
	// URL is the oracle endpoint; the request is POSTed as JSON.
	URL string

	// Timeout bounds the oracle call. Default: 30 seconds.
	Timeout time.Duration
}

// HTTPAdvisor consults an external advice oracle over HTTP. The oracle is
// untrusted; any response that is not a JSON recommendation list is treated
// as "no recommendations".
type HTTPAdvisor struct {
	config HTTPAdvisorConfig
	client *http.Client
}

// NewHTTPAdvisor creates an advisor for the given oracle endpoint.
func NewHTTPAdvisor(config HTTPAdvisorConfig) *HTTPAdvisor {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &HTTPAdvisor{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Recommend POSTs the advice request and decodes the recommendation list.
func (a *HTTPAdvisor) Recommend(ctx context.Context, req *AdviceRequest) ([]Recommendation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal advice request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build oracle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("oracle call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var recs []Recommendation
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode oracle response: %w", err)
	}
	return recs, nil
}
