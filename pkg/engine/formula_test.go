package engine

import (
	"errors"
	"testing"
)

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    float64
		wantErr bool
	}{
		{"addition", "2 + 3", 5, false},
		{"precedence", "2 + 3 * 4", 14, false},
		{"parentheses", "(2 + 3) * 4", 20, false},
		{"division", "10 / 4", 2.5, false},
		{"unary minus", "-5 + 3", -2, false},
		{"nested parens", "((1 + 2) * (3 + 4))", 21, false},
		{"decimals", "1.5 * 2", 3, false},
		{"division by zero", "1 / 0", 0, true},
		{"empty", "", 0, true},
		{"dangling operator", "2 +", 0, true},
		{"unbalanced paren", "(2 + 3", 0, true},
		{"foreign character", "2 ^ 3", 0, true},
		{"trailing garbage", "2 3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalArithmetic(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("evalArithmetic(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("evalArithmetic(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateFormulaSubstitution(t *testing.T) {
	ec := NewExecutionContext(map[string]any{
		"BASE-RATE": float64(100),
		"TAX":       "5.5",
		"QTY":       3,
		"CUST-NAME": "Alice",
	})

	tests := []struct {
		name    string
		formula string
		want    float64
		wantErr bool
	}{
		{"single variable", "BASE-RATE + 10", 110, false},
		{"hyphenated identifier stays one variable", "BASE-RATE * QTY", 300, false},
		{"string numeric value", "TAX * 2", 11, false},
		{"unresolved variable", "MISSING + 1", 0, true},
		{"non-numeric variable", "CUST-NAME + 1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluateFormula(tt.formula, ec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("evaluateFormula(%q) error = %v, wantErr %v", tt.formula, err, tt.wantErr)
			}
			if tt.wantErr {
				var fe *FormulaError
				if !errors.As(err, &fe) {
					t.Errorf("error type = %T, want *FormulaError", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("evaluateFormula(%q) = %v, want %v", tt.formula, got, tt.want)
			}
		})
	}
}
