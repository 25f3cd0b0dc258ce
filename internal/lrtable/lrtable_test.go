package lrtable

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/dekarrin/yalr/internal/analyzer"
	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/gramparse"
	"github.com/dekarrin/yalr/internal/source"
	"github.com/dekarrin/yalr/internal/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, src string) (*Table, *diag.Sink) {
	t.Helper()
	txt := source.New("g.yalr", src)
	sink := diag.NewSink()
	file := gramparse.Parse(txt, sink)
	require.False(t, sink.HasErrors(), "fixture failed to parse")
	g := analyzer.Analyze(file, sink)
	require.True(t, g.Success, "fixture failed to analyze")
	tbl := Build(g, sink)
	return tbl, sink
}

const exprGrammar = `
term PLUS '+' @prec=1 @assoc=left ;
term STAR '*' @prec=2 @assoc=left ;
term NUM r:[0-9]+ ;
goal rule Expr {
	=> Expr PLUS Expr ;
	=> Expr STAR Expr ;
	=> NUM ;
}
`

func Test_start_state_accepts_on_end_of_input(t *testing.T) {
	tbl, sink := build(t, exprGrammar)
	require.False(t, sink.HasErrors())
	require.NotEmpty(t, tbl.States)

	dollar, ok := tbl.Grammar.Symbols.Find("$")
	require.True(t, ok)

	var sawAccept bool
	for _, st := range tbl.States {
		if act, ok := st.Actions[dollar.ID]; ok && act.Type == ActionAccept {
			sawAccept = true
		}
	}
	assert.True(t, sawAccept, "some state should accept on $")
}

func Test_precedence_resolves_shift_reduce_conflict(t *testing.T) {
	tbl, sink := build(t, exprGrammar)
	require.False(t, sink.HasErrors())

	var unresolved int
	for _, c := range tbl.Conflicts {
		if c.Kind == "shift/reduce" && !c.Resolved {
			unresolved++
		}
	}
	assert.Zero(t, unresolved, "STAR's higher precedence should resolve every PLUS-vs-STAR shift/reduce conflict")
}

func Test_no_precedence_shift_reduce_conflict_is_an_error(t *testing.T) {
	_, sink := build(t, `
term PLUS '+' ;
goal rule Expr {
	=> Expr PLUS Expr ;
	=> PLUS ;
}
`)
	assert.True(t, sink.HasErrors())
}

func Test_left_associativity_prefers_reduce_on_tie(t *testing.T) {
	tbl, sink := build(t, `
term PLUS '+' @prec=1 @assoc=left ;
term NUM r:[0-9]+ ;
goal rule Expr {
	=> Expr PLUS Expr ;
	=> NUM ;
}
`)
	require.False(t, sink.HasErrors())

	plus, ok := tbl.Grammar.Symbols.Find("PLUS")
	require.True(t, ok)

	var sawReduce bool
	for _, st := range tbl.States {
		if act, ok := st.Actions[plus.ID]; ok && act.Type == ActionReduce {
			sawReduce = true
		}
	}
	assert.True(t, sawReduce, "left-associative PLUS should reduce rather than shift on a PLUS lookahead")
}

func Test_follow_of_goal_rule_contains_dollar(t *testing.T) {
	tbl, sink := build(t, `
term A 'a' ;
goal rule X { => A ; }
`)
	require.False(t, sink.HasErrors())
	x, ok := tbl.Grammar.Symbols.Find("X")
	require.True(t, ok)
	dollar, ok := tbl.Grammar.Symbols.Find("$")
	require.True(t, ok)
	assert.True(t, tbl.Follow[x.ID][dollar.ID])
}

func Test_epsilon_free_grammar_has_no_epsilon_symbols(t *testing.T) {
	tbl, sink := build(t, `
term A 'a' ;
goal rule X { => A ; }
`)
	require.False(t, sink.HasErrors())
	for sym, ok := range tbl.Epsilon {
		assert.False(t, ok, "symbol %d should not be marked epsilon-producing", sym)
	}
}

func Test_goto_on_rule_symbol_advances_state(t *testing.T) {
	tbl, sink := build(t, exprGrammar)
	require.False(t, sink.HasErrors())
	expr, ok := tbl.Grammar.Symbols.Find("Expr")
	require.True(t, ok)

	start := tbl.States[0]
	target, ok := start.Gotos[expr.ID]
	require.True(t, ok, "start state should have a goto on Expr")
	assert.NotEqual(t, start.ID, target)
}

func Test_reduce_reduce_tie_keeps_earlier_production(t *testing.T) {
	// AsIdent and AsTag both derive a bare NAME and neither production
	// carries a precedence, so NAME is reducible to either Thing alternative
	// with an equal (unset) precedence: a genuine reduce/reduce tie on
	// lookahead $.
	tbl, sink := build(t, `
term NAME r:[a-z]+ ;
goal rule Thing {
	=> AsIdent ;
	=> AsTag ;
}
rule AsIdent { => NAME ; }
rule AsTag { => NAME ; }
`)
	require.False(t, sink.HasErrors())

	var tie *Conflict
	for i, c := range tbl.Conflicts {
		if c.Kind == "reduce/reduce" {
			tie = &tbl.Conflicts[i]
		}
	}
	require.NotNil(t, tie, "NAME should reduce/reduce between AsIdent and AsTag")
	assert.True(t, tie.Resolved)

	installed := tbl.States[tie.State].Actions[tie.Symbol]
	assert.Equal(t, tie.Chosen.Prod, installed.Prod, "the table should keep whichever reduce Conflict.Chosen names")
	assert.Less(t, int(tie.Chosen.Prod), int(tie.Rejected.Prod), "the tie should keep AsIdent's production, declared before AsTag's")
}

func Test_prod_by_id_reachable_for_every_reduce_action(t *testing.T) {
	tbl, sink := build(t, exprGrammar)
	require.False(t, sink.HasErrors())
	for _, st := range tbl.States {
		for _, act := range st.Actions {
			if act.Type != ActionReduce {
				continue
			}
			_, ok := findProd(tbl.Grammar.Productions, act.Prod)
			assert.True(t, ok, "reduce action should reference a real production")
		}
	}
}

func Test_write_state_file_mentions_every_state_and_conflict(t *testing.T) {
	tbl, sink := build(t, exprGrammar)
	require.False(t, sink.HasErrors())

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteStateFile(&buf))
	out := buf.String()

	for _, st := range tbl.States {
		assert.Contains(t, out, fmt.Sprintf("state %d:", st.ID))
	}
	if len(tbl.Conflicts) > 0 {
		assert.Contains(t, out, "conflicts:")
	}
}

func findProd(prods []symbols.Production, id symbols.ProdID) (symbols.Production, bool) {
	for _, p := range prods {
		if p.ID == id {
			return p, true
		}
	}
	return symbols.Production{}, false
}
