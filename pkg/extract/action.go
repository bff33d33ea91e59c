package extract

import (
	"fmt"
	"regexp"
	"strings"

	"stratum-hq/reliq/pkg/rule"
)

var (
	moveRe     = regexp.MustCompile(`(?i)^MOVE\s+(.+?)\s+TO\s+([A-Za-z][A-Za-z0-9-]*)$`)
	performRe  = regexp.MustCompile(`(?i)^PERFORM\s+([A-Za-z0-9][A-Za-z0-9-]*)$`)
	displayRe  = regexp.MustCompile(`(?i)^DISPLAY\s+(.+)$`)
	addRe      = regexp.MustCompile(`(?i)^ADD\s+(\S+)\s+TO\s+([A-Za-z][A-Za-z0-9-]*)$`)
	subtractRe = regexp.MustCompile(`(?i)^SUBTRACT\s+(\S+)\s+FROM\s+([A-Za-z][A-Za-z0-9-]*)$`)
)

// parseActionLine recognizes the four action statement shapes. Shapes are
// tried in a fixed order; a line matching none of them produces no action.
func parseActionLine(line string) (rule.Action, bool) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	if line == "" {
		return rule.Action{}, false
	}

	if m := moveRe.FindStringSubmatch(line); m != nil {
		return rule.Action{Type: rule.ActionAssign, Target: m[2], Value: strings.TrimSpace(m[1])}, true
	}
	if m := performRe.FindStringSubmatch(line); m != nil {
		return rule.Action{Type: rule.ActionPerform, Target: m[1]}, true
	}
	if m := displayRe.FindStringSubmatch(line); m != nil {
		return rule.Action{Type: rule.ActionDisplay, Target: rule.TargetConsole, Value: strings.TrimSpace(m[1])}, true
	}
	if m := addRe.FindStringSubmatch(line); m != nil {
		return rule.Action{
			Type:    rule.ActionCalculate,
			Target:  m[2],
			Formula: fmt.Sprintf("%s + %s", m[2], m[1]),
		}, true
	}
	if m := subtractRe.FindStringSubmatch(line); m != nil {
		return rule.Action{
			Type:    rule.ActionCalculate,
			Target:  m[2],
			Formula: fmt.Sprintf("%s - %s", m[2], m[1]),
		}, true
	}

	return rule.Action{}, false
}

// parseActionLines parses every recognizable action in a slice of lines,
// preserving order and skipping the rest.
func parseActionLines(lines []string) []rule.Action {
	var actions []rule.Action
	for _, line := range lines {
		if a, ok := parseActionLine(line); ok {
			actions = append(actions, a)
		}
	}
	return actions
}
