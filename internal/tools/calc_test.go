package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"12 * 4", 48},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"7 % 3", 1},
		{"2 ^ 10", 1024},
		{"2 ** 3", 8},
		{"2 + 3 ^ 2", 11},
		{"2 * 3 ^ 2", 18},
		{"10 - 2 ^ 2", 6},
		{"2 ^ 3 ^ 2", 512},
		{"-2 ^ 2", -4},
		{"2 ^ -1", 0.5},
		{"(1 + 2) ^ 2 * 2", 18},
		{"-(3 - 5) * 2", 4},
		{"-5 + 2", -3},
		{"6 × 7", 42},
		{"9 ÷ 3", 3},
		{"sqrt(16)", 4},
		{"round(pi)", 3},
		{"1.5e2", 150},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluate_Rejects(t *testing.T) {
	tests := []struct {
		expr string
		want error
	}{
		{"", ErrUnsupportedExpression},
		{"os.Exit(1)", ErrUnsupportedExpression},
		{"x + 1", ErrUnsupportedExpression},
		{`"a" + "b"`, ErrUnsupportedExpression},
		{"func() {}", ErrUnsupportedExpression},
		{"1 << 4", ErrUnsupportedExpression},
		{"max(1, 2)", ErrUnsupportedExpression},
		{"1 / 0", ErrDivisionByZero},
		{"5 % 0", ErrDivisionByZero},
		{"sqrt(-1)", ErrUnsupportedExpression},
		{"1e400", ErrUnsupportedExpression},
		{"(1 + 2", ErrUnsupportedExpression},
		{"2 *", ErrUnsupportedExpression},
		{"1 2", ErrUnsupportedExpression},
		{"sqrt 4", ErrUnsupportedExpression},
		{"3 # 4", ErrUnsupportedExpression},
		{strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100), ErrUnsupportedExpression},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Evaluate(tt.expr)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCalculatorTool_Execute(t *testing.T) {
	out, err := NewCalculatorTool().Execute(context.Background(), map[string]any{"expression": "12 * 4"})
	require.NoError(t, err)
	assert.Equal(t, "12 * 4 = 48", out)
}
