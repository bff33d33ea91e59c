package rule

import "testing"

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		wantErr   bool
	}{
		{
			name:      "simple comparison",
			condition: Simple("CUST-BALANCE", OperatorGreaterThan, "10000"),
			wantErr:   false,
		},
		{
			name:      "simple with logical operator",
			condition: Condition{Left: "A", Operator: OperatorAnd, Right: "B"},
			wantErr:   true,
		},
		{
			name:      "simple with NOT operator",
			condition: Condition{Left: "A", Operator: OperatorNot, Right: "B"},
			wantErr:   true,
		},
		{
			name: "complex AND with children",
			condition: All(
				Simple("A", OperatorEqual, "1"),
				Simple("B", OperatorEqual, "2"),
			),
			wantErr: false,
		},
		{
			name: "complex OR with single child",
			condition: Any(
				Simple("A", OperatorEqual, "1"),
			),
			wantErr: false,
		},
		{
			name:      "complex without children",
			condition: Condition{Operator: OperatorAnd, Complex: true},
			wantErr:   true,
		},
		{
			name:      "complex with comparison operator",
			condition: Condition{Operator: OperatorEqual, Complex: true, SubConditions: []Condition{Simple("A", OperatorEqual, "1")}},
			wantErr:   true,
		},
		{
			name: "nested invalid child",
			condition: All(
				Condition{Operator: OperatorAnd, Complex: true},
			),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.condition.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConditionCanonical(t *testing.T) {
	a := Simple("X", OperatorEqual, "1")
	b := Simple("X", OperatorEqual, "1")
	c := Simple("X", OperatorEqual, "2")

	if !a.Equal(&b) {
		t.Errorf("identical conditions should be equal")
	}
	if a.Equal(&c) {
		t.Errorf("different operands should not be equal")
	}

	nested1 := All(a, Any(b, c))
	nested2 := All(a, Any(b, c))
	if !nested1.Equal(&nested2) {
		t.Errorf("identical nested trees should be equal")
	}

	reordered := All(Any(b, c), a)
	if nested1.Equal(&reordered) {
		t.Errorf("reordered children should not compare equal")
	}
}
