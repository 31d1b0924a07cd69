package condition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		src   string
		terms []Comparison
	}{
		{
			src:   "temperature > 90",
			terms: []Comparison{{Field: "temperature", Op: OpGT, Value: Literal{Kind: KindNumber, Number: 90}}},
		},
		{
			src: "vibration>=4.5 AND running == true",
			terms: []Comparison{
				{Field: "vibration", Op: OpGE, Value: Literal{Kind: KindNumber, Number: 4.5}},
				{Field: "running", Op: OpEQ, Value: Literal{Kind: KindBool, Bool: true}},
			},
		},
		{
			src: "line.defect_rate < -1e-2 && door_open != FALSE and rpm <= 1200",
			terms: []Comparison{
				{Field: "line.defect_rate", Op: OpLT, Value: Literal{Kind: KindNumber, Number: -0.01}},
				{Field: "door_open", Op: OpNE, Value: Literal{Kind: KindBool, Bool: false}},
				{Field: "rpm", Op: OpLE, Value: Literal{Kind: KindNumber, Number: 1200}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.terms, expr.Terms)
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, src := range []string{
		"",
		"temperature",
		"temperature >",
		"temperature => 90",
		"temperature > hot",
		"90 > temperature",
		"temperature > 90 AND",
		"temperature > 90 OR humidity > 80",
		"running > true",
		"temperature > 9.0.1",
		"temperature & 90",
		"temperature > 90 # comment",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestEvaluate(t *testing.T) {
	expr := MustParse("temperature > 90")

	breach, err := expr.Evaluate(map[string]any{"temperature": 95.0})
	require.NoError(t, err)
	assert.True(t, breach)

	breach, err = expr.Evaluate(map[string]any{"temperature": 90.0})
	require.NoError(t, err)
	assert.False(t, breach)

	// integer inputs from Go callers are numbers too
	breach, err = expr.Evaluate(map[string]any{"temperature": 91})
	require.NoError(t, err)
	assert.True(t, breach)
}

func TestEvaluateMissingFieldFailsClosed(t *testing.T) {
	expr := MustParse("temperature > 90")

	breach, err := expr.Evaluate(map[string]any{})
	assert.NoError(t, err)
	assert.False(t, breach)

	breach, err = expr.Evaluate(map[string]any{"temperature": nil})
	assert.NoError(t, err)
	assert.False(t, breach)

	conj := MustParse("temperature > 90 AND humidity > 60")
	breach, err = conj.Evaluate(map[string]any{"temperature": 120.0})
	assert.NoError(t, err)
	assert.False(t, breach)
}

func TestEvaluateNoCoercion(t *testing.T) {
	_, err := MustParse("running == true").Evaluate(map[string]any{"running": 1.0})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = MustParse("temperature > 90").Evaluate(map[string]any{"temperature": true})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = MustParse("temperature > 90").Evaluate(map[string]any{"temperature": "95"})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	// a later type error still surfaces after an earlier false term
	_, err = MustParse("temperature > 90 AND running == true").
		Evaluate(map[string]any{"temperature": 10.0, "running": "yes"})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestEvaluateConjunctionAndNaN(t *testing.T) {
	expr := MustParse("vibration >= 4.5 AND running == true")

	breach, err := expr.Evaluate(map[string]any{"vibration": 4.5, "running": true})
	require.NoError(t, err)
	assert.True(t, breach)

	breach, err = expr.Evaluate(map[string]any{"vibration": 4.5, "running": false})
	require.NoError(t, err)
	assert.False(t, breach)

	nan := map[string]any{"x": math.NaN()}
	for src, want := range map[string]bool{
		"x > 0": false, "x < 0": false, "x == 0": false, "x != 0": true,
	} {
		got, err := MustParse(src).Evaluate(nan)
		require.NoError(t, err)
		assert.Equal(t, want, got, src)
	}
}

func TestExprStringAndFields(t *testing.T) {
	expr := MustParse("temperature>90 && running==true and temperature < 200")
	assert.Equal(t, "temperature > 90 AND running == true AND temperature < 200", expr.String())
	assert.Equal(t, []string{"temperature", "running"}, expr.Fields())
}
