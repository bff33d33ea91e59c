package engine

import (
	"fmt"
	"regexp"
	"strconv"
)

// Formula evaluation is deliberately restricted: after variable substitution
// the expression may contain only numeric literals, + - * /, and parentheses.
// Formulas originate from untrusted extracted source, so no open evaluator is
// ever consulted.

// variablePattern matches variable-shaped tokens in a formula. Legacy
// identifiers may contain embedded hyphens (CUST-BALANCE), so a hyphen
// glued between alphanumerics continues the identifier while a spaced
// hyphen stays a subtraction operator.
var variablePattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9-]*`)

// substituteFormula replaces every variable-shaped token with its resolved
// numeric context value. An unresolved or non-numeric variable fails the
// whole substitution.
func substituteFormula(formula string, ec *ExecutionContext) (string, error) {
	var substErr error
	out := variablePattern.ReplaceAllStringFunc(formula, func(token string) string {
		value, ok := ec.Get(token)
		if !ok {
			if substErr == nil {
				substErr = fmt.Errorf("unresolved variable %q", token)
			}
			return token
		}
		n, ok := toFloat(value)
		if !ok {
			if substErr == nil {
				substErr = fmt.Errorf("variable %q is not numeric: %v", token, value)
			}
			return token
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	})
	if substErr != nil {
		return "", substErr
	}
	return out, nil
}

// evaluateFormula substitutes variables and evaluates the arithmetic result.
func evaluateFormula(formula string, ec *ExecutionContext) (float64, error) {
	substituted, err := substituteFormula(formula, ec)
	if err != nil {
		return 0, &FormulaError{Formula: formula, Cause: err}
	}
	result, err := evalArithmetic(substituted)
	if err != nil {
		return 0, &FormulaError{Formula: formula, Cause: err}
	}
	return result, nil
}

// evalArithmetic evaluates a pre-substituted arithmetic expression with a
// recursive-descent parser over + - * / ( ) and numeric literals.
func evalArithmetic(expr string) (float64, error) {
	p := &formulaParser{tokens: tokenizeArithmetic(expr)}
	if len(p.tokens) == 0 {
		return 0, fmt.Errorf("empty expression")
	}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, fmt.Errorf("unexpected token %q", p.tokens[p.pos])
	}
	return result, nil
}

func tokenizeArithmetic(expr string) []string {
	var tokens []string
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(expr) && (expr[i] >= '0' && expr[i] <= '9' || expr[i] == '.') {
				i++
			}
			tokens = append(tokens, expr[start:i])
		default:
			// Foreign characters become standalone tokens and fail
			// parsing with a clear message.
			tokens = append(tokens, string(c))
			i++
		}
	}
	return tokens
}

type formulaParser struct {
	tokens []string
	pos    int
}

func (p *formulaParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

// parseExpr handles + and - at the lowest precedence.
func (p *formulaParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case "+":
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case "-":
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

// parseTerm handles * and /.
func (p *formulaParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case "*":
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case "/":
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

// parseFactor handles numeric literals, parenthesized expressions, and unary
// minus.
func (p *formulaParser) parseFactor() (float64, error) {
	tok := p.peek()
	switch tok {
	case "":
		return 0, fmt.Errorf("unexpected end of expression")
	case "(":
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ")" {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	case "-":
		p.pos++
		inner, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -inner, nil
	}

	n, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token %q", tok)
	}
	p.pos++
	return n, nil
}
