package replcalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New()
	require.NoError(t, err)
	return eng
}

func Test_bare_expression_evaluates_with_precedence(t *testing.T) {
	eng := newEngine(t)
	out, err := eng.Eval("2 + 3 * 4")
	require.NoError(t, err)
	assert.Equal(t, "14", out)
}

func Test_parentheses_override_precedence(t *testing.T) {
	eng := newEngine(t)
	out, err := eng.Eval("(2 + 3) * 4")
	require.NoError(t, err)
	assert.Equal(t, "20", out)
}

func Test_left_associativity_of_subtraction(t *testing.T) {
	eng := newEngine(t)
	out, err := eng.Eval("10 - 2 - 3")
	require.NoError(t, err)
	assert.Equal(t, "5", out)
}

func Test_assignment_then_reference(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Eval("a := 5 * 3")
	require.NoError(t, err)

	out, err := eng.Eval("a + 1")
	require.NoError(t, err)
	assert.Equal(t, "16", out)
}

func Test_assignment_produces_no_output(t *testing.T) {
	eng := newEngine(t)
	out, err := eng.Eval("a := 5")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func Test_print_keyword_is_case_insensitive(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Eval("a := 7")
	require.NoError(t, err)

	out, err := eng.Eval("PRint a")
	require.NoError(t, err)
	assert.Equal(t, "7", out)
}

func Test_fractional_division(t *testing.T) {
	eng := newEngine(t)
	out, err := eng.Eval("5.6 / 2")
	require.NoError(t, err)
	assert.Equal(t, "2.8", out)
}

func Test_undefined_variable_reference_is_an_error(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Eval("print nope")
	assert.Error(t, err)
}

func Test_unrecognized_input_is_an_error(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Eval("2 $ 3")
	assert.Error(t, err)
}

func Test_new_engine_emits_a_data_tree(t *testing.T) {
	eng := newEngine(t)
	assert.NotEmpty(t, eng.Dump())
}
