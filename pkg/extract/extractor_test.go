package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum-hq/reliq/pkg/rule"
)

func TestExtractConditional(t *testing.T) {
	x := NewExtractor(nil)

	source := `IF CUST-BALANCE > 10000 THEN MOVE "Y" TO APPROVED END-IF`
	rules := x.ExtractRules(source, "ACCT")

	require.Len(t, rules, 1)
	r := rules[0]
	assert.Equal(t, "ACCT_rule_001", r.ID)
	assert.Equal(t, rule.TypeDecision, r.Type)

	require.Len(t, r.Conditions, 1)
	cond := r.Conditions[0]
	assert.Equal(t, "CUST-BALANCE", cond.Left)
	assert.Equal(t, rule.OperatorGreaterThan, cond.Operator)
	assert.Equal(t, "10000", cond.Right)

	require.Len(t, r.Actions, 1)
	assert.Equal(t, rule.ActionAssign, r.Actions[0].Type)
	assert.Equal(t, "APPROVED", r.Actions[0].Target)
	assert.Equal(t, `"Y"`, r.Actions[0].Value)
	assert.Empty(t, r.ElseActions)
}

func TestExtractConditional_SingleLineWithoutThen(t *testing.T) {
	x := NewExtractor(nil)

	source := `IF ORDER-QTY > 5 MOVE "BULK" TO ORDER-CLASS END-IF`
	rules := x.ExtractRules(source, "ORD")

	require.Len(t, rules, 1)
	r := rules[0]

	require.Len(t, r.Conditions, 1)
	cond := r.Conditions[0]
	assert.Equal(t, "ORDER-QTY", cond.Left)
	assert.Equal(t, rule.OperatorGreaterThan, cond.Operator)
	assert.Equal(t, "5", cond.Right)

	require.Len(t, r.Actions, 1)
	assert.Equal(t, rule.ActionAssign, r.Actions[0].Type)
	assert.Equal(t, "ORDER-CLASS", r.Actions[0].Target)
	assert.Equal(t, `"BULK"`, r.Actions[0].Value)
}

func TestExtractConditional_MultilineWithElse(t *testing.T) {
	x := NewExtractor(nil)

	source := `
2000-CHECK-CREDIT.
IF CUST-BALANCE > 10000 AND CUST-STATUS = "A"
    MOVE "Y" TO APPROVED
    PERFORM 3000-NOTIFY
ELSE
    MOVE "N" TO APPROVED
END-IF
`
	rules := x.ExtractRules(source, "ACCT")
	require.Len(t, rules, 1)
	r := rules[0]

	assert.Equal(t, "2000-CHECK-CREDIT decision", r.Name)
	assert.Equal(t, "ACCT:3", r.Source)

	require.Len(t, r.Conditions, 1)
	cond := r.Conditions[0]
	require.True(t, cond.Complex)
	assert.Equal(t, rule.OperatorAnd, cond.Operator)
	require.Len(t, cond.SubConditions, 2)
	assert.Equal(t, "CUST-BALANCE", cond.SubConditions[0].Left)
	assert.Equal(t, rule.OperatorEqual, cond.SubConditions[1].Operator)

	require.Len(t, r.Actions, 2)
	assert.Equal(t, rule.ActionPerform, r.Actions[1].Type)
	assert.Equal(t, "3000-NOTIFY", r.Actions[1].Target)

	require.Len(t, r.ElseActions, 1)
	assert.Equal(t, `"N"`, r.ElseActions[0].Value)
}

func TestExtractConditional_UnparseableYieldsNoRule(t *testing.T) {
	x := NewExtractor(nil)

	source := `IF THEN MOVE "Y" TO APPROVED END-IF`
	rules := x.ExtractRules(source, "ACCT")
	assert.Empty(t, rules)
}

func TestExtractSelector(t *testing.T) {
	x := NewExtractor(nil)

	source := `
EVALUATE CUST-TYPE
    WHEN "P"
        MOVE 0.10 TO DISCOUNT-RATE
    WHEN OTHER
        MOVE 0.00 TO DISCOUNT-RATE
END-EVALUATE
`
	rules := x.ExtractRules(source, "DISC")
	require.Len(t, rules, 2)

	for _, r := range rules {
		assert.Equal(t, rule.TypeConditional, r.Type)
		assert.Equal(t, "CUST-TYPE", r.Metadata[rule.MetaEvaluateSubject])
		require.Len(t, r.Conditions, 1)
		assert.Equal(t, "CUST-TYPE", r.Conditions[0].Left)
		require.Len(t, r.Actions, 1)
		assert.Equal(t, "DISCOUNT-RATE", r.Actions[0].Target)
	}

	assert.Equal(t, rule.OperatorEqual, rules[0].Conditions[0].Operator)
	assert.Equal(t, `"P"`, rules[0].Conditions[0].Right)

	// WHEN OTHER approximates exhaustive-else as a wildcard mismatch.
	assert.Equal(t, rule.OperatorNotEqual, rules[1].Conditions[0].Operator)
	assert.Equal(t, "*", rules[1].Conditions[0].Right)
}

func TestExtractComputation(t *testing.T) {
	x := NewExtractor(nil)

	source := `COMPUTE TOTAL-AMOUNT = BASE-AMOUNT * QTY + TAX.`
	rules := x.ExtractRules(source, "BILL")
	require.Len(t, rules, 1)
	r := rules[0]

	assert.Equal(t, rule.TypeCalculation, r.Type)
	assert.Empty(t, r.Conditions)
	require.Len(t, r.Actions, 1)
	assert.Equal(t, rule.ActionCalculate, r.Actions[0].Type)
	assert.Equal(t, "TOTAL-AMOUNT", r.Actions[0].Target)
	assert.Equal(t, "BASE-AMOUNT * QTY + TAX", r.Actions[0].Formula)
	assert.Equal(t, []string{"BASE-AMOUNT", "QTY", "TAX"}, r.Metadata[rule.MetaVariables])
}

func TestExtractValidation(t *testing.T) {
	x := NewExtractor(nil)

	tests := []struct {
		name      string
		source    string
		wantLeft  string
		wantRight string
	}{
		{
			name:      "not numeric",
			source:    "CUSTOMER-ID NOT NUMERIC\n    MOVE \"E\" TO STATUS-CODE",
			wantLeft:  "IS_NUMERIC(CUSTOMER-ID)",
			wantRight: "FALSE",
		},
		{
			name:      "not alphabetic",
			source:    "CUST-NAME IS NOT ALPHABETIC\n    DISPLAY \"BAD NAME\"",
			wantLeft:  "IS_ALPHABETIC(CUST-NAME)",
			wantRight: "FALSE",
		},
		{
			name:      "empty check",
			source:    "WS-NAME = SPACES\n    MOVE \"E\" TO STATUS-CODE",
			wantLeft:  "WS-NAME",
			wantRight: "EMPTY",
		},
		{
			name:      "error flag",
			source:    "WS-ERROR-FLAG INVALID\n    DISPLAY \"INPUT REJECTED\"",
			wantLeft:  "WS-ERROR-FLAG",
			wantRight: "TRUE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := x.ExtractRules(tt.source, "VAL")
			require.Len(t, rules, 1)
			r := rules[0]

			assert.Equal(t, rule.TypeValidation, r.Type)
			require.Len(t, r.Conditions, 1)
			assert.Equal(t, tt.wantLeft, r.Conditions[0].Left)
			assert.Equal(t, rule.OperatorEqual, r.Conditions[0].Operator)
			assert.Equal(t, tt.wantRight, r.Conditions[0].Right)
			require.Len(t, r.Actions, 1)
		})
	}
}

func TestExtractValidation_IgnoresActionLiterals(t *testing.T) {
	x := NewExtractor(nil)

	// An action statement mentioning ERROR in a literal is not a validation.
	rules := x.ExtractRules(`MOVE "ERROR" TO WS-MESSAGE`, "VAL")
	assert.Empty(t, rules)
}

func TestExtractSkipsUnrecognizedLines(t *testing.T) {
	x := NewExtractor(nil)

	source := `
IDENTIFICATION DIVISION.
PROGRAM-ID. ACCT.
* comment line
WORKING-STORAGE SECTION.
01 CUST-BALANCE PIC 9(7)V99.
`
	rules := x.ExtractRules(source, "ACCT")
	assert.Empty(t, rules)
}

func TestExtractRuleIDsAreSequential(t *testing.T) {
	x := NewExtractor(nil)

	source := `
COMPUTE A = B + 1
COMPUTE C = D + 2
IF A > 5 THEN MOVE "Y" TO FLAG END-IF
`
	rules := x.ExtractRules(source, "SEQ")
	require.Len(t, rules, 3)
	assert.Equal(t, "SEQ_rule_001", rules[0].ID)
	assert.Equal(t, "SEQ_rule_002", rules[1].ID)
	assert.Equal(t, "SEQ_rule_003", rules[2].ID)
}

func TestParseConditionText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantOp   rule.Operator
		wantLeft string
	}{
		{"equals", "A = B", rule.OperatorEqual, "A"},
		{"greater", "AMOUNT > 100", rule.OperatorGreaterThan, "AMOUNT"},
		{"less", "AMOUNT < 100", rule.OperatorLessThan, "AMOUNT"},
		{"greater equal", "AMOUNT >= 100", rule.OperatorGreaterEqual, "AMOUNT"},
		{"less equal", "AMOUNT <= 100", rule.OperatorLessEqual, "AMOUNT"},
		{"not equal bang", "A != B", rule.OperatorNotEqual, "A"},
		{"not equal angle", "A <> B", rule.OperatorNotEqual, "A"},
		{"bare flag", "APPROVED-FLAG", rule.OperatorEqual, "APPROVED-FLAG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := parseConditionText(tt.text)
			require.NoError(t, err)
			require.False(t, cond.Complex)
			assert.Equal(t, tt.wantOp, cond.Operator)
			assert.Equal(t, tt.wantLeft, cond.Left)
		})
	}
}

func TestParseConditionText_BareFlagExpandsToTrueTest(t *testing.T) {
	cond, err := parseConditionText("APPROVED-FLAG")
	require.NoError(t, err)
	assert.Equal(t, "TRUE", cond.Right)
}

// Mixed AND/OR text splits on AND only; OR stays inside the parts. This
// matches the single-keyword split policy and carries no precedence.
func TestParseConditionText_MixedLogical(t *testing.T) {
	cond, err := parseConditionText("A = 1 AND B = 2 OR C = 3")
	require.NoError(t, err)

	require.True(t, cond.Complex)
	assert.Equal(t, rule.OperatorAnd, cond.Operator)
	require.Len(t, cond.SubConditions, 2)

	assert.False(t, cond.SubConditions[0].Complex)

	second := cond.SubConditions[1]
	require.True(t, second.Complex)
	assert.Equal(t, rule.OperatorOr, second.Operator)
	require.Len(t, second.SubConditions, 2)
}

func TestParseConditionText_Failures(t *testing.T) {
	for _, text := range []string{"", "   ", "SOME RANDOM WORDS", "= B", "A ="} {
		_, err := parseConditionText(text)
		assert.Error(t, err, "text %q", text)
	}
}

func TestParseActionLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantType   rule.ActionType
		wantTarget string
		wantValue  string
	}{
		{"move", `MOVE "Y" TO APPROVED`, rule.ActionAssign, "APPROVED", `"Y"`},
		{"move lowercase", `move ws-total to out-total.`, rule.ActionAssign, "out-total", "ws-total"},
		{"perform", "PERFORM 9000-CLEANUP", rule.ActionPerform, "9000-CLEANUP", ""},
		{"display", `DISPLAY "HELLO " WS-NAME`, rule.ActionDisplay, rule.TargetConsole, `"HELLO " WS-NAME`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := parseActionLine(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, a.Type)
			assert.Equal(t, tt.wantTarget, a.Target)
			assert.Equal(t, tt.wantValue, a.Value)
		})
	}
}

func TestParseActionLine_Arithmetic(t *testing.T) {
	a, ok := parseActionLine("ADD WS-FEE TO WS-TOTAL")
	require.True(t, ok)
	assert.Equal(t, rule.ActionCalculate, a.Type)
	assert.Equal(t, "WS-TOTAL", a.Target)
	assert.Equal(t, "WS-TOTAL + WS-FEE", a.Formula)

	a, ok = parseActionLine("SUBTRACT WS-DISCOUNT FROM WS-TOTAL")
	require.True(t, ok)
	assert.Equal(t, "WS-TOTAL - WS-DISCOUNT", a.Formula)
}

func TestParseActionLine_Unrecognized(t *testing.T) {
	for _, line := range []string{"", "STOP RUN", "01 WS-TOTAL PIC 9(5)", "GO TO 9999-EXIT"} {
		_, ok := parseActionLine(line)
		assert.False(t, ok, "line %q", line)
	}
}
