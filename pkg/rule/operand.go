package rule

import (
	"strconv"
	"strings"
)

// OperandKind discriminates the tagged Operand variant.
type OperandKind string

const (
	// OperandLiteral is a quoted string or numeric literal.
	OperandLiteral OperandKind = "literal"

	// OperandContextRef is an explicit $-prefixed context path reference.
	OperandContextRef OperandKind = "context_ref"

	// OperandIdent is a bare token: resolved against the context when the
	// path exists, otherwise treated as its literal text.
	OperandIdent OperandKind = "ident"

	// OperandFunction is a recognized function form such as IS_NUMERIC(x).
	OperandFunction OperandKind = "function"

	// OperandSentinel is one of the TRUE / FALSE / EMPTY markers.
	OperandSentinel OperandKind = "sentinel"
)

// Recognized function names for OperandFunction.
const (
	FuncIsNumeric    = "IS_NUMERIC"
	FuncIsAlphabetic = "IS_ALPHABETIC"
)

// Sentinel values for OperandSentinel.
const (
	SentinelTrue  = "TRUE"
	SentinelFalse = "FALSE"
	SentinelEmpty = "EMPTY"
)

// Operand is the typed decomposition of a condition or action value token.
// Parsing happens once, here; resolution against a context happens in a
// single place in the engine, keyed off Kind.
type Operand struct {
	// Kind discriminates the variant.
	Kind OperandKind

	// Text is the raw token the operand was parsed from.
	Text string

	// Literal is the parsed literal value (string or float64) for
	// OperandLiteral.
	Literal any

	// Path is the context path for OperandContextRef and OperandIdent.
	Path string

	// Function and Arg describe an OperandFunction call. Arg is itself a
	// parsed operand so function arguments may reference the context.
	Function string
	Arg      *Operand

	// Sentinel is the marker name for OperandSentinel.
	Sentinel string
}

// ParseOperand decomposes a raw token into its tagged variant. The token is
// trimmed first; an empty token parses as the EMPTY sentinel.
func ParseOperand(token string) Operand {
	token = strings.TrimSpace(token)
	if token == "" {
		return Operand{Kind: OperandSentinel, Text: token, Sentinel: SentinelEmpty}
	}

	// Quoted string literal.
	if len(token) >= 2 {
		if (token[0] == '"' && token[len(token)-1] == '"') ||
			(token[0] == '\'' && token[len(token)-1] == '\'') {
			return Operand{Kind: OperandLiteral, Text: token, Literal: token[1 : len(token)-1]}
		}
	}

	// Numeric literal.
	if n, err := strconv.ParseFloat(token, 64); err == nil {
		return Operand{Kind: OperandLiteral, Text: token, Literal: n}
	}

	// Explicit context path reference.
	if strings.HasPrefix(token, "$") {
		return Operand{Kind: OperandContextRef, Text: token, Path: token[1:]}
	}

	// Function form: NAME(arg).
	if open := strings.IndexByte(token, '('); open > 0 && strings.HasSuffix(token, ")") {
		name := strings.ToUpper(strings.TrimSpace(token[:open]))
		if name == FuncIsNumeric || name == FuncIsAlphabetic {
			arg := ParseOperand(token[open+1 : len(token)-1])
			return Operand{Kind: OperandFunction, Text: token, Function: name, Arg: &arg}
		}
	}

	// Sentinels.
	switch strings.ToUpper(token) {
	case SentinelTrue:
		return Operand{Kind: OperandSentinel, Text: token, Sentinel: SentinelTrue}
	case SentinelFalse:
		return Operand{Kind: OperandSentinel, Text: token, Sentinel: SentinelFalse}
	case SentinelEmpty, "SPACES", "SPACE":
		return Operand{Kind: OperandSentinel, Text: token, Sentinel: SentinelEmpty}
	}

	// Bare identifier: context lookup with literal fallback.
	return Operand{Kind: OperandIdent, Text: token, Path: token}
}
