package automaton

import (
	"testing"

	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/rpn"
	"github.com/dekarrin/yalr/internal/source"
	"github.com/dekarrin/yalr/internal/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, pattern string, mode rpn.Mode) rpn.Program {
	t.Helper()
	txt := source.New("test", pattern)
	frag := source.Span(txt, 0, source.Offset(len(pattern)))
	sink := diag.NewSink()
	prog := rpn.Compile(frag, mode, sink)
	require.False(t, sink.HasErrors(), "pattern %q failed to compile: %v", pattern, sink.Err())
	return prog
}

// Test_DFA_matches_literal_string_prefix covers spec.md's testable
// property 4: building a DFA from a set of pattern NFAs and running it on
// any pattern's literal-string prefix yields a match of that prefix whose
// accepted-symbol set contains the originating terminal.
func Test_DFA_matches_literal_string_prefix(t *testing.T) {
	fooProg := mustCompile(t, "foo", rpn.SimpleString)
	barProg := mustCompile(t, "bar", rpn.SimpleString)

	nfa := BuildNFA([]Pattern{
		{Symbol: 1, Prog: fooProg},
		{Symbol: 2, Prog: barProg},
	})
	dfa := nfa.ToDFA()

	matched, length, accepted := dfa.Match("foo")
	require.True(t, matched)
	assert.Equal(t, 3, length)
	assert.Contains(t, accepted, symbols.ID(1))
}

// Test_DFA_simple_string_idempotence covers testable property 5: for a
// simple-string pattern S, DFA.match(S) == (true, |S|).
func Test_DFA_simple_string_idempotence(t *testing.T) {
	for _, s := range []string{"a", "foo", "x-y-z", "=="} {
		prog := mustCompile(t, s, rpn.SimpleString)
		nfa := BuildNFA([]Pattern{{Symbol: 7, Prog: prog}})
		dfa := nfa.ToDFA()

		matched, length, _ := dfa.Match(s)
		require.True(t, matched, "pattern %q", s)
		assert.Equal(t, len(s), length, "pattern %q", s)
	}
}

// Test_DFA_S5_negated_char_class_plus is scenario S5 from spec.md: pattern
// [^a-dF-I]+ built into a DFA matches "eAZ\x7F\x01\n" with length 6 and
// rejects "c" and "G" at position 0.
func Test_DFA_S5_negated_char_class_plus(t *testing.T) {
	prog := mustCompile(t, "[^a-dF-I]+", rpn.FullRegex)
	nfa := BuildNFA([]Pattern{{Symbol: 1, Prog: prog}})
	dfa := nfa.ToDFA()

	matched, length, accepted := dfa.Match("eAZ\x7F\x01\n")
	require.True(t, matched)
	assert.Equal(t, 6, length)
	assert.Contains(t, accepted, symbols.ID(1))

	matchedC, _, _ := dfa.Match("c")
	assert.False(t, matchedC)

	matchedG, _, _ := dfa.Match("G")
	assert.False(t, matchedG)
}

func Test_DFA_longest_match_wins_over_shorter_alternative(t *testing.T) {
	ifProg := mustCompile(t, "if", rpn.SimpleString)
	identProg := mustCompile(t, `[a-z]+`, rpn.FullRegex)

	nfa := BuildNFA([]Pattern{
		{Symbol: 1, Prog: ifProg},
		{Symbol: 2, Prog: identProg},
	})
	dfa := nfa.ToDFA()

	matched, length, accepted := dfa.Match("iffy")
	require.True(t, matched)
	assert.Equal(t, 4, length)
	assert.Contains(t, accepted, symbols.ID(2))
}

func Test_DFA_declaration_order_tie_break(t *testing.T) {
	// Two patterns that match the exact same text: lowest symbol id wins.
	aProg := mustCompile(t, "abc", rpn.SimpleString)
	bProg := mustCompile(t, "abc", rpn.SimpleString)

	nfa := BuildNFA([]Pattern{
		{Symbol: 5, Prog: aProg},
		{Symbol: 3, Prog: bProg},
	})
	dfa := nfa.ToDFA()

	matched, length, accepted := dfa.Match("abc")
	require.True(t, matched)
	assert.Equal(t, 3, length)
	require.NotEmpty(t, accepted)
	assert.Equal(t, symbols.ID(3), accepted[0])
}

func Test_DFA_case_fold_matches_either_case(t *testing.T) {
	prog := mustCompile(t, "if", rpn.SimpleString)
	nfa := BuildNFA([]Pattern{{Symbol: 1, Prog: prog, Fold: true}})
	dfa := nfa.ToDFA()

	for _, s := range []string{"if", "IF", "If", "iF"} {
		matched, length, _ := dfa.Match(s)
		assert.True(t, matched, "expected %q to match case-fold pattern", s)
		assert.Equal(t, 2, length)
	}
}

func Test_DFA_no_match_returns_false(t *testing.T) {
	prog := mustCompile(t, "foo", rpn.SimpleString)
	nfa := BuildNFA([]Pattern{{Symbol: 1, Prog: prog}})
	dfa := nfa.ToDFA()

	matched, _, _ := dfa.Match("xyz")
	assert.False(t, matched)
}

// Test_DFA_trailing_alternation_bar_matches_empty_or_left covers a pattern
// like "a|" where the right branch contributes nothing: BuildNFA must not
// panic on the unbalanced-looking Join, and the built DFA must accept both
// "a" and the empty string.
func Test_DFA_trailing_alternation_bar_matches_empty_or_left(t *testing.T) {
	prog := mustCompile(t, "a|", rpn.FullRegex)
	nfa := BuildNFA([]Pattern{{Symbol: 1, Prog: prog}})
	dfa := nfa.ToDFA()

	matched, length, _ := dfa.Match("a")
	require.True(t, matched)
	assert.Equal(t, 1, length)

	matchedEmpty, length, _ := dfa.Match("")
	require.True(t, matchedEmpty)
	assert.Equal(t, 0, length)
}

// Test_DFA_leading_alternation_bar_matches_empty_or_right is the mirror
// case, "|a": the left branch is empty.
func Test_DFA_leading_alternation_bar_matches_empty_or_right(t *testing.T) {
	prog := mustCompile(t, "|a", rpn.FullRegex)
	nfa := BuildNFA([]Pattern{{Symbol: 1, Prog: prog}})
	dfa := nfa.ToDFA()

	matched, length, _ := dfa.Match("a")
	require.True(t, matched)
	assert.Equal(t, 1, length)

	matchedEmpty, length, _ := dfa.Match("")
	require.True(t, matchedEmpty)
	assert.Equal(t, 0, length)
}
