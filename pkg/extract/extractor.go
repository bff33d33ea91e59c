package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"stratum-hq/reliq/pkg/rule"
)

var (
	paragraphRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*\.$`)
	computeRe   = regexp.MustCompile(`(?i)^COMPUTE\s+([A-Za-z][A-Za-z0-9-]*)\s*=\s*(.+)$`)

	thenRe          = regexp.MustCompile(`(?i)\bTHEN\b`)
	elseRe          = regexp.MustCompile(`(?i)\bELSE\b`)
	// Leading whitespace keeps hyphenated identifiers like WS-MOVE-FLAG
	// from matching.
	actionKeywordRe = regexp.MustCompile(`(?i)\s(MOVE|PERFORM|DISPLAY|ADD|SUBTRACT|COMPUTE)\b`)

	valNotNumericRe = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9-]*)\s+(?:IS\s+)?NOT\s+NUMERIC\b`)
	valNotAlphaRe   = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9-]*)\s+(?:IS\s+)?NOT\s+ALPHABETIC\b`)
	valEmptyRe      = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9-]*)\s+(?:IS\s+|=\s*)(?:EMPTY|BLANK|SPACES?)\b`)
	valFlagRe       = regexp.MustCompile(`(?i)\b(?:INVALID|ERROR)\b`)

	identRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9-]*`)
)

// Extractor scans legacy source text and produces rules.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an extractor. A nil logger falls back to the default.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With("component", "extract")}
}

// ExtractRules performs a single forward scan over the source and returns
// every rule it can recognize, in source order. Unrecognized lines are
// skipped; a block whose condition cannot be parsed yields no rule and is
// logged, never fatal.
//
// Rule ids are assigned sequentially as <program>_rule_<nnn>.
func (x *Extractor) ExtractRules(source, programName string) []rule.Rule {
	lines := strings.Split(source, "\n")

	var rules []rule.Rule
	paragraph := ""
	seq := 0
	nextID := func() string {
		seq++
		return fmt.Sprintf("%s_rule_%03d", programName, seq)
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}
		upper := strings.ToUpper(line)

		// Paragraph labels carry provenance only; they never affect what
		// gets extracted.
		if paragraphRe.MatchString(line) && !strings.HasPrefix(upper, "END-") {
			paragraph = strings.TrimSuffix(line, ".")
			continue
		}

		switch {
		case upper == "IF" || strings.HasPrefix(upper, "IF "):
			r, consumed := x.extractConditional(lines, i, programName, paragraph, nextID)
			if r != nil {
				rules = append(rules, *r)
			}
			i += consumed - 1

		case strings.HasPrefix(upper, "EVALUATE "):
			rs, consumed := x.extractSelector(lines, i, programName, paragraph, nextID)
			rules = append(rules, rs...)
			i += consumed - 1

		case computeRe.MatchString(line):
			rules = append(rules, x.extractComputation(line, i, programName, paragraph, nextID))

		case isValidationLine(upper) && !isActionKeywordLine(upper):
			r, consumed := x.extractValidation(lines, i, programName, paragraph, nextID)
			if r != nil {
				rules = append(rules, *r)
			}
			i += consumed - 1
		}
	}

	x.logger.Info("extraction complete",
		"program", programName,
		"lines", len(lines),
		"rules", len(rules),
	)
	return rules
}

// extractConditional handles IF ... [THEN] ... [ELSE ...] END-IF blocks.
// The whole block is gathered first, then split into condition text, then
// actions, and else actions.
func (x *Extractor) extractConditional(lines []string, start int, program, paragraph string, nextID func() string) (*rule.Rule, int) {
	block, consumed := gatherBlock(lines, start, "END-IF")

	text := strings.TrimSpace(block)
	text = strings.TrimSpace(text[2:]) // strip leading IF

	var condText, rest string
	if loc := thenRe.FindStringIndex(text); loc != nil {
		condText = text[:loc[0]]
		rest = text[loc[1]:]
	} else if nl := strings.Index(text, "\n"); nl >= 0 {
		// No THEN keyword: the first line is the condition, the remainder
		// the action clause.
		condText = text[:nl]
		rest = text[nl+1:]
	} else if loc := actionKeywordRe.FindStringSubmatchIndex(text); loc != nil {
		// Single-line block without THEN: the condition runs up to the
		// first action keyword.
		condText = text[:loc[2]]
		rest = text[loc[2]:]
	} else {
		condText = text
	}

	var thenPart, elsePart string
	if loc := elseRe.FindStringIndex(rest); loc != nil {
		thenPart = rest[:loc[0]]
		elsePart = rest[loc[1]:]
	} else {
		thenPart = rest
	}

	cond, err := parseConditionText(strings.TrimSuffix(strings.TrimSpace(condText), "."))
	if err != nil {
		x.logger.Debug("skipped conditional block",
			"program", program,
			"line", start+1,
			"error", err,
		)
		return nil, consumed
	}

	r := rule.Rule{
		ID:          nextID(),
		Type:        rule.TypeDecision,
		Name:        ruleName(paragraph, "decision", start+1),
		Description: fmt.Sprintf("if %s", strings.TrimSpace(condText)),
		Source:      fmt.Sprintf("%s:%d", program, start+1),
		Conditions:  []rule.Condition{*cond},
		Actions:     parseActionLines(strings.Split(thenPart, "\n")),
		ElseActions: parseActionLines(strings.Split(elsePart, "\n")),
	}
	return &r, consumed
}

// extractSelector handles EVALUATE ... WHEN ... END-EVALUATE blocks. Every
// WHEN clause becomes its own rule over the shared subject. WHEN OTHER is
// approximated as "subject matches no listed value" via a NOT_EQUALS
// wildcard; true exhaustive-else semantics would need every prior WHEN
// value.
func (x *Extractor) extractSelector(lines []string, start int, program, paragraph string, nextID func() string) ([]rule.Rule, int) {
	first := strings.TrimSpace(lines[start])
	subject := strings.TrimSuffix(strings.TrimSpace(first[len("EVALUATE"):]), ".")

	type clause struct {
		cond    rule.Condition
		name    string
		actions []string
		line    int
	}
	var clauses []clause

	consumed := 1
	for j := start + 1; j < len(lines); j++ {
		consumed++
		line := strings.TrimSpace(lines[j])
		upper := strings.ToUpper(line)

		if strings.HasPrefix(upper, "END-EVALUATE") {
			break
		}
		if strings.HasPrefix(upper, "WHEN ") {
			value := strings.TrimSuffix(strings.TrimSpace(line[len("WHEN"):]), ".")
			if strings.EqualFold(value, "OTHER") {
				clauses = append(clauses, clause{
					cond: rule.Simple(subject, rule.OperatorNotEqual, "*"),
					name: "otherwise",
					line: j + 1,
				})
			} else {
				clauses = append(clauses, clause{
					cond: rule.Simple(subject, rule.OperatorEqual, value),
					name: fmt.Sprintf("case %s", value),
					line: j + 1,
				})
			}
			continue
		}
		if len(clauses) > 0 {
			last := &clauses[len(clauses)-1]
			last.actions = append(last.actions, line)
		}
	}

	rules := make([]rule.Rule, 0, len(clauses))
	for _, c := range clauses {
		r := rule.Rule{
			ID:          nextID(),
			Type:        rule.TypeConditional,
			Name:        ruleName(paragraph, c.name, c.line),
			Description: fmt.Sprintf("evaluate %s %s", subject, c.name),
			Source:      fmt.Sprintf("%s:%d", program, c.line),
			Conditions:  []rule.Condition{c.cond},
			Actions:     parseActionLines(c.actions),
		}
		r.SetMeta(rule.MetaEvaluateSubject, subject)
		rules = append(rules, r)
	}
	return rules, consumed
}

// extractComputation handles COMPUTE target = formula statements. The free
// variables of the formula are recorded in metadata for dependency analysis.
func (x *Extractor) extractComputation(line string, idx int, program, paragraph string, nextID func() string) rule.Rule {
	m := computeRe.FindStringSubmatch(strings.TrimSuffix(strings.TrimSpace(line), "."))
	target, formula := m[1], strings.TrimSpace(m[2])

	r := rule.Rule{
		ID:          nextID(),
		Type:        rule.TypeCalculation,
		Name:        ruleName(paragraph, fmt.Sprintf("compute %s", target), idx+1),
		Description: fmt.Sprintf("%s = %s", target, formula),
		Source:      fmt.Sprintf("%s:%d", program, idx+1),
		Actions:     []rule.Action{{Type: rule.ActionCalculate, Target: target, Formula: formula}},
	}
	r.SetMeta(rule.MetaVariables, formulaVariables(formula))
	return r
}

// extractValidation handles lines asserting a field is invalid, not numeric,
// not alphabetic, or empty. The condition encodes the negated predicate; the
// following line contributes the rule's single action when it is an
// assignment or display.
func (x *Extractor) extractValidation(lines []string, start int, program, paragraph string, nextID func() string) (*rule.Rule, int) {
	line := strings.TrimSuffix(strings.TrimSpace(lines[start]), ".")

	var cond rule.Condition
	switch {
	case valNotNumericRe.MatchString(line):
		m := valNotNumericRe.FindStringSubmatch(line)
		cond = rule.Simple(fmt.Sprintf("IS_NUMERIC(%s)", m[1]), rule.OperatorEqual, "FALSE")
	case valNotAlphaRe.MatchString(line):
		m := valNotAlphaRe.FindStringSubmatch(line)
		cond = rule.Simple(fmt.Sprintf("IS_ALPHABETIC(%s)", m[1]), rule.OperatorEqual, "FALSE")
	case valEmptyRe.MatchString(line):
		m := valEmptyRe.FindStringSubmatch(line)
		cond = rule.Simple(m[1], rule.OperatorEqual, "EMPTY")
	default:
		// Invalid/error flag test on the first identifier-shaped token.
		field := firstField(line)
		if field == "" {
			x.logger.Debug("skipped validation line",
				"program", program,
				"line", start+1,
			)
			return nil, 1
		}
		cond = rule.Simple(field, rule.OperatorEqual, "TRUE")
	}

	consumed := 1
	var actions []rule.Action
	if start+1 < len(lines) {
		if a, ok := parseActionLine(lines[start+1]); ok && (a.Type == rule.ActionAssign || a.Type == rule.ActionDisplay) {
			actions = append(actions, a)
			consumed = 2
		}
	}

	r := rule.Rule{
		ID:          nextID(),
		Type:        rule.TypeValidation,
		Name:        ruleName(paragraph, "validation", start+1),
		Description: line,
		Source:      fmt.Sprintf("%s:%d", program, start+1),
		Conditions:  []rule.Condition{cond},
		Actions:     actions,
	}
	return &r, consumed
}

// gatherBlock collects lines from start up to and including the terminator
// keyword, or up to a statement-ending period, a blank line, or EOF. The
// returned text has the terminator removed.
func gatherBlock(lines []string, start int, terminator string) (string, int) {
	var collected []string
	consumed := 0
	for j := start; j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		consumed++
		if j > start && line == "" {
			break
		}
		upper := strings.ToUpper(line)
		if idx := strings.Index(upper, terminator); idx >= 0 {
			collected = append(collected, strings.TrimSpace(line[:idx]))
			break
		}
		collected = append(collected, line)
		if strings.HasSuffix(line, ".") {
			break
		}
	}
	return strings.Join(collected, "\n"), consumed
}

// isActionKeywordLine reports whether the line is an action statement. An
// action mentioning "ERROR" in a literal must not be mistaken for a
// validation check.
func isActionKeywordLine(upper string) bool {
	for _, kw := range []string{"MOVE ", "PERFORM ", "DISPLAY ", "ADD ", "SUBTRACT ", "COMPUTE "} {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

func isValidationLine(upper string) bool {
	return valNotNumericRe.MatchString(upper) ||
		valNotAlphaRe.MatchString(upper) ||
		valEmptyRe.MatchString(upper) ||
		valFlagRe.MatchString(upper)
}

// firstField returns the first identifier token that is not a recognized
// keyword.
func firstField(line string) string {
	skip := map[string]bool{
		"INVALID": true, "ERROR": true, "IS": true, "NOT": true,
		"IF": true, "THEN": true, "ELSE": true, "WHEN": true,
	}
	for _, tok := range identRe.FindAllString(line, -1) {
		if !skip[strings.ToUpper(tok)] {
			return tok
		}
	}
	return ""
}

// formulaVariables returns the distinct identifier tokens of a formula in
// first-appearance order.
func formulaVariables(formula string) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, tok := range identRe.FindAllString(formula, -1) {
		if !seen[tok] {
			seen[tok] = true
			vars = append(vars, tok)
		}
	}
	return vars
}

func ruleName(paragraph, kind string, line int) string {
	if paragraph != "" {
		return fmt.Sprintf("%s %s", paragraph, kind)
	}
	return fmt.Sprintf("%s at line %d", kind, line)
}
