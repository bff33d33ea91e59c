package optimize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"stratum-hq/reliq/pkg/rule"
)

// mergeRules combines the named rules into one. Every merged rule's full
// condition list becomes an AND group and the groups are joined with OR, so
// the merged rule fires whenever any original would have. An original with
// no conditions always fires, which makes the merged rule unconditional.
// Actions are unioned, de-duplicated by (type, target), keeping the first
// occurrence. Fewer than two resolvable ids returns the input unchanged.
func mergeRules(rules []rule.Rule, ids []string) []rule.Rule {
	targets := indexByID(rules, ids)
	if len(targets) < 2 {
		return rules
	}

	var groups []rule.Condition
	var actions []rule.Action
	seen := make(map[string]bool)
	var names []string
	unconditional := false

	insertAt := len(rules)
	for i := range rules {
		r := &rules[i]
		if !targets[r.ID] {
			continue
		}
		if i < insertAt {
			insertAt = i
		}
		names = append(names, r.Name)

		if len(r.Conditions) == 0 {
			// An always-firing original makes the whole merge
			// unconditional.
			unconditional = true
		} else {
			groups = append(groups, rule.Condition{
				Operator:      rule.OperatorAnd,
				Complex:       true,
				SubConditions: cloneConditionList(r.Conditions),
			})
		}
		for _, a := range r.Actions {
			key := a.EffectKey()
			if !seen[key] {
				seen[key] = true
				actions = append(actions, a)
			}
		}
	}

	merged := rule.Rule{
		ID:          fmt.Sprintf("merged_%s", uuid.NewString()[:8]),
		Type:        rule.TypeDecision,
		Name:        strings.Join(names, " + "),
		Description: fmt.Sprintf("merged from %s", strings.Join(ids, ", ")),
		Actions:     actions,
	}
	if !unconditional && len(groups) > 0 {
		merged.Conditions = []rule.Condition{{
			Operator:      rule.OperatorOr,
			Complex:       true,
			SubConditions: groups,
		}}
	}
	merged.SetMeta(rule.MetaMergedFrom, append([]string(nil), ids...))

	out := make([]rule.Rule, 0, len(rules)-len(targets)+1)
	for i := range rules {
		if targets[rules[i].ID] {
			if i == insertAt {
				out = append(out, merged)
			}
			continue
		}
		out = append(out, rules[i])
	}
	return out
}

// reorderRules sorts rules by a heuristic score: validation rules first,
// then score decreasing with condition count. Equal scores keep input order.
func reorderRules(rules []rule.Rule) []rule.Rule {
	out := append([]rule.Rule(nil), rules...)
	sort.SliceStable(out, func(i, j int) bool {
		return ruleScore(&out[i]) > ruleScore(&out[j])
	})
	return out
}

func ruleScore(r *rule.Rule) int {
	score := 50
	if r.Type == rule.TypeValidation {
		score = 100
	}
	return score - len(r.Conditions)
}

// simplifyRules removes structurally duplicate conditions and collapses
// consecutive assigns to the same target, keeping the last. The transform
// is idempotent.
func simplifyRules(rules []rule.Rule, ids []string) []rule.Rule {
	targets := indexByID(rules, ids)

	out := append([]rule.Rule(nil), rules...)
	for i := range out {
		if !targets[out[i].ID] {
			continue
		}
		r := out[i].Clone()
		r.Conditions = dedupConditions(r.Conditions)
		r.Actions = collapseAssigns(r.Actions)
		r.ElseActions = collapseAssigns(r.ElseActions)
		out[i] = *r
	}
	return out
}

func dedupConditions(conds []rule.Condition) []rule.Condition {
	if len(conds) < 2 {
		return conds
	}
	seen := make(map[string]bool)
	out := conds[:0]
	for _, c := range conds {
		key := c.Canonical()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func collapseAssigns(actions []rule.Action) []rule.Action {
	if len(actions) < 2 {
		return actions
	}
	var out []rule.Action
	for _, a := range actions {
		if a.Type == rule.ActionAssign && len(out) > 0 {
			last := &out[len(out)-1]
			if last.Type == rule.ActionAssign && last.Target == a.Target {
				*last = a
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// removeRules drops the named rules from the list.
func removeRules(rules []rule.Rule, ids []string) []rule.Rule {
	targets := indexByID(rules, ids)
	out := make([]rule.Rule, 0, len(rules))
	for i := range rules {
		if !targets[rules[i].ID] {
			out = append(out, rules[i])
		}
	}
	return out
}

// cacheRules marks the named rules as caching candidates. The engine does
// not cache by itself; the annotation is for downstream tooling.
func cacheRules(rules []rule.Rule, ids []string) []rule.Rule {
	targets := indexByID(rules, ids)
	out := append([]rule.Rule(nil), rules...)
	for i := range out {
		if targets[out[i].ID] {
			r := out[i].Clone()
			r.SetMeta(rule.MetaCacheCandidate, true)
			out[i] = *r
		}
	}
	return out
}

func indexByID(rules []rule.Rule, ids []string) map[string]bool {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	present := make(map[string]bool, len(ids))
	for i := range rules {
		if wanted[rules[i].ID] {
			present[rules[i].ID] = true
		}
	}
	return present
}

func cloneConditionList(conds []rule.Condition) []rule.Condition {
	carrier := rule.Rule{Conditions: conds}
	return carrier.Clone().Conditions
}
