package rpn

import (
	"testing"

	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, pattern string, mode Mode) (Program, *diag.Sink) {
	t.Helper()
	txt := source.New("test", pattern)
	frag := source.Span(txt, 0, source.Offset(len(pattern)))
	sink := diag.NewSink()
	prog := Compile(frag, mode, sink)
	return prog, sink
}

func Test_Compile_simple_literal_concat(t *testing.T) {
	prog, sink := compile(t, "ab", FullRegex)
	require.False(t, sink.HasErrors())
	require.Equal(t, Program{
		{Op: Literal, Op1: 'a'},
		{Op: Literal, Op1: 'b'},
		{Op: Concat},
	}, prog)
}

func Test_Compile_alternation(t *testing.T) {
	prog, sink := compile(t, "a|b", FullRegex)
	require.False(t, sink.HasErrors())
	require.Equal(t, Program{
		{Op: Literal, Op1: 'a'},
		{Op: Literal, Op1: 'b'},
		{Op: Join},
	}, prog)
}

func Test_Compile_star_and_plus(t *testing.T) {
	prog, sink := compile(t, "a*b+", FullRegex)
	require.False(t, sink.HasErrors())
	require.Equal(t, Program{
		{Op: Literal, Op1: 'a'},
		{Op: Close},
		{Op: Literal, Op1: 'b'},
		{Op: Plus},
		{Op: Concat},
	}, prog)
}

func Test_Compile_non_greedy_modifiers(t *testing.T) {
	prog, sink := compile(t, "a*?", FullRegex)
	require.False(t, sink.HasErrors())
	assert.Equal(t, NClose, prog[1].Op)
}

func Test_Compile_char_class_range(t *testing.T) {
	prog, sink := compile(t, "[a-c]", FullRegex)
	require.False(t, sink.HasErrors())
	require.Equal(t, Program{{Op: Range, Op1: 'a', Op2: 'c'}}, prog)
}

func Test_Compile_char_class_allows_single_char_range(t *testing.T) {
	// DESIGN.md item 5: spec.md requires only lo <= hi, original_source
	// requires lo < hi strictly.
	_, sink := compile(t, "[a-a]", FullRegex)
	assert.False(t, sink.HasErrors())
}

func Test_Compile_char_class_rejects_backwards_range(t *testing.T) {
	_, sink := compile(t, "[z-a]", FullRegex)
	assert.True(t, sink.HasErrors())
}

func Test_Compile_negated_char_class_actually_negates(t *testing.T) {
	// DESIGN.md item 4: original_source sets but never applies the negation
	// flag; this port applies it.
	prog, sink := compile(t, "[^a-dF-I]", FullRegex)
	require.False(t, sink.HasErrors())

	covered := map[byte]bool{}
	for _, inst := range prog {
		if inst.Op == Range {
			for b := int(inst.Op1); b <= int(inst.Op2); b++ {
				covered[byte(b)] = true
			}
		}
	}
	for _, excluded := range []byte{'a', 'b', 'c', 'd', 'F', 'G', 'H', 'I'} {
		assert.False(t, covered[excluded], "expected %q to be excluded by negation", excluded)
	}
	assert.True(t, covered['e'])
	assert.True(t, covered[0x01])
	assert.True(t, covered['\n'])
}

func Test_Compile_empty_char_class_is_error(t *testing.T) {
	_, sink := compile(t, "[]", FullRegex)
	assert.True(t, sink.HasErrors())
}

func Test_Compile_missing_closing_bracket_is_error(t *testing.T) {
	_, sink := compile(t, "[abc", FullRegex)
	assert.True(t, sink.HasErrors())
}

func Test_Compile_dot_excludes_newline(t *testing.T) {
	prog, sink := compile(t, ".", FullRegex)
	require.False(t, sink.HasErrors())
	for _, inst := range prog {
		if inst.Op == Range {
			assert.False(t, inst.Op1 <= '\n' && '\n' <= inst.Op2)
		}
	}
}

func Test_Compile_escape_shorthand_digit_class(t *testing.T) {
	prog, sink := compile(t, `\d`, FullRegex)
	require.False(t, sink.HasErrors())
	require.Equal(t, Program{{Op: Range, Op1: '0', Op2: '9'}}, prog)
}

// stackDepth replays prog the way a postfix stack machine would, using each
// opcode's pop/push arity, and returns the final stack depth. A well-formed
// program always finishes at depth 1; anything else means some consumer
// (internal/automaton.buildFragment, in particular) would pop an operand
// that was never pushed.
func stackDepth(prog Program) int {
	depth := 0
	for _, inst := range prog {
		switch inst.Op {
		case Literal, Range, Empty:
			depth++
		case Concat, Join:
			depth--
		}
	}
	return depth
}

func Test_Compile_empty_alternates_are_allowed(t *testing.T) {
	prog, sink := compile(t, "a|", FullRegex)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, 1, stackDepth(prog))

	prog2, sink2 := compile(t, "|a", FullRegex)
	assert.False(t, sink2.HasErrors())
	assert.Equal(t, 1, stackDepth(prog2))
}

func Test_Compile_unmatched_paren_is_error(t *testing.T) {
	_, sink := compile(t, "(a", FullRegex)
	assert.True(t, sink.HasErrors())
}

func Test_Compile_simple_string_mode_is_literal(t *testing.T) {
	prog, sink := compile(t, "a.b*", SimpleString)
	require.False(t, sink.HasErrors())
	require.Equal(t, Program{
		{Op: Literal, Op1: 'a'},
		{Op: Literal, Op1: '.'},
		{Op: Concat},
		{Op: Literal, Op1: 'b'},
		{Op: Concat},
		{Op: Literal, Op1: '*'},
		{Op: Concat},
	}, prog)
}

func Test_Compile_rejects_pattern_outside_7bit_range(t *testing.T) {
	prog, sink := compile(t, "café", SimpleString)
	assert.True(t, sink.HasErrors())
	assert.Nil(t, prog)
}
