package extract

import (
	"fmt"
	"regexp"
	"strings"

	"stratum-hq/reliq/pkg/rule"
)

// ConditionParseError reports condition text that matched no known shape.
// The enclosing block yields no rule; extraction continues.
type ConditionParseError struct {
	Text string
}

func (e *ConditionParseError) Error() string {
	return fmt.Sprintf("condition text matched no known shape: %q", e.Text)
}

var (
	andSplitRe = regexp.MustCompile(`(?i)\bAND\b`)
	orSplitRe  = regexp.MustCompile(`(?i)\bOR\b`)

	notNumericRe    = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z0-9-]*)\s+(?:IS\s+)?NOT\s+NUMERIC$`)
	numericRe       = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z0-9-]*)\s+(?:IS\s+)?NUMERIC$`)
	notAlphabeticRe = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z0-9-]*)\s+(?:IS\s+)?NOT\s+ALPHABETIC$`)
	alphabeticRe    = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z0-9-]*)\s+(?:IS\s+)?ALPHABETIC$`)
)

// parseConditionText turns raw condition text into a Condition.
//
// Logical splitting happens first: if the text contains AND it is split on
// every AND and the parts become sub-conditions of a complex AND condition;
// otherwise the same is done for OR. Mixed AND/OR text therefore splits on
// AND only, with OR left inside the parts. There is no precedence or
// parenthesis handling; conditions that need either will mis-parse and the
// caller is expected to review extracted rules.
func parseConditionText(text string) (*rule.Condition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ConditionParseError{Text: text}
	}

	if parts := splitLogical(text, andSplitRe); len(parts) > 1 {
		return parseComplex(rule.OperatorAnd, parts)
	}
	if parts := splitLogical(text, orSplitRe); len(parts) > 1 {
		return parseComplex(rule.OperatorOr, parts)
	}

	return parseSimpleText(text)
}

func parseComplex(op rule.Operator, parts []string) (*rule.Condition, error) {
	subs := make([]rule.Condition, 0, len(parts))
	for _, part := range parts {
		sub, err := parseConditionText(part)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	c := rule.Condition{Operator: op, Complex: true, SubConditions: subs}
	return &c, nil
}

func splitLogical(text string, re *regexp.Regexp) []string {
	parts := re.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseSimpleText(text string) (*rule.Condition, error) {
	// Class checks first so "X IS NOT NUMERIC" does not fall through to the
	// bare-token branch.
	if m := notNumericRe.FindStringSubmatch(text); m != nil {
		c := rule.Simple(fmt.Sprintf("IS_NUMERIC(%s)", m[1]), rule.OperatorEqual, "FALSE")
		return &c, nil
	}
	if m := numericRe.FindStringSubmatch(text); m != nil {
		c := rule.Simple(fmt.Sprintf("IS_NUMERIC(%s)", m[1]), rule.OperatorEqual, "TRUE")
		return &c, nil
	}
	if m := notAlphabeticRe.FindStringSubmatch(text); m != nil {
		c := rule.Simple(fmt.Sprintf("IS_ALPHABETIC(%s)", m[1]), rule.OperatorEqual, "FALSE")
		return &c, nil
	}
	if m := alphabeticRe.FindStringSubmatch(text); m != nil {
		c := rule.Simple(fmt.Sprintf("IS_ALPHABETIC(%s)", m[1]), rule.OperatorEqual, "TRUE")
		return &c, nil
	}

	if op, idx, width, ok := findComparison(text); ok {
		left := strings.TrimSpace(text[:idx])
		right := strings.TrimSpace(text[idx+width:])
		if left == "" || right == "" {
			return nil, &ConditionParseError{Text: text}
		}
		c := rule.Simple(left, op, right)
		return &c, nil
	}

	// A bare token is a boolean flag test.
	if !strings.ContainsAny(text, " \t") {
		c := rule.Simple(text, rule.OperatorEqual, "TRUE")
		return &c, nil
	}

	return nil, &ConditionParseError{Text: text}
}

// findComparison locates the first comparison operator, trying each pattern
// in a fixed priority order: equals, greater-than, less-than, greater-equal,
// less-equal, not-equals. Guards keep a bare "=" from matching inside ">=",
// "<=", or "!=".
func findComparison(text string) (op rule.Operator, idx, width int, ok bool) {
	for i := 0; i < len(text); i++ {
		if text[i] == '=' && !isOperatorChar(byteAt(text, i-1)) && byteAt(text, i+1) != '=' {
			return rule.OperatorEqual, i, 1, true
		}
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '>' && byteAt(text, i+1) != '=' && byteAt(text, i-1) != '<' {
			return rule.OperatorGreaterThan, i, 1, true
		}
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '<' && byteAt(text, i+1) != '=' && byteAt(text, i+1) != '>' {
			return rule.OperatorLessThan, i, 1, true
		}
	}
	if i := strings.Index(text, ">="); i >= 0 {
		return rule.OperatorGreaterEqual, i, 2, true
	}
	if i := strings.Index(text, "<="); i >= 0 {
		return rule.OperatorLessEqual, i, 2, true
	}
	if i := strings.Index(text, "!="); i >= 0 {
		return rule.OperatorNotEqual, i, 2, true
	}
	if i := strings.Index(text, "<>"); i >= 0 {
		return rule.OperatorNotEqual, i, 2, true
	}
	return "", 0, 0, false
}

func isOperatorChar(b byte) bool {
	return b == '<' || b == '>' || b == '!' || b == '='
}

func byteAt(s string, i int) byte {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}
