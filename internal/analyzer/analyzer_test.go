package analyzer

import (
	"testing"

	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/gramparse"
	"github.com/dekarrin/yalr/internal/options"
	"github.com/dekarrin/yalr/internal/source"
	"github.com/dekarrin/yalr/internal/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string) (*Grammar, *diag.Sink) {
	t.Helper()
	txt := source.New("g.yalr", src)
	sink := diag.NewSink()
	file := gramparse.Parse(txt, sink)
	require.False(t, sink.HasErrors(), "fixture failed to parse")
	g := Analyze(file, sink)
	return g, sink
}

const miniGrammar = `
term PLUS '+' ;
term NUM r:[0-9]+ ;
goal rule Expr {
	=> Expr PLUS Expr ;
	=> NUM ;
}
`

func Test_minimal_grammar_produces_goal_prime_and_dollar(t *testing.T) {
	g, sink := analyze(t, miniGrammar)
	require.False(t, sink.HasErrors())
	require.True(t, g.Success)

	dollar, ok := g.Symbols.Find("$")
	require.True(t, ok)
	assert.Equal(t, symbols.Terminal, dollar.Kind)

	prime, ok := g.Symbols.Find("Expr'")
	require.True(t, ok)
	assert.Equal(t, symbols.Rule, prime.Kind)

	target, ok := findProd(g.Productions, g.TargetProd)
	require.True(t, ok)
	assert.Equal(t, prime.ID, target.Rule)
	require.Len(t, target.RHS, 1)
	expr, _ := g.Symbols.Find("Expr")
	assert.Equal(t, expr.ID, target.RHS[0].Symbol)
}

func findProd(prods []symbols.Production, id symbols.ProdID) (symbols.Production, bool) {
	for _, p := range prods {
		if p.ID == id {
			return p, true
		}
	}
	return symbols.Production{}, false
}

func Test_duplicate_terminal_name_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
term PLUS '+' ;
term PLUS '-' ;
goal rule Expr { => PLUS ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_duplicate_goal_rule_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
term A 'a' ;
goal rule X { => A ; }
goal rule Y { => A ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_lexeme_term_gets_string_type_and_canned_action(t *testing.T) {
	g, sink := analyze(t, `
term <@lexeme> IDENT r:[a-z]+ ;
goal rule X { => IDENT ; }
`)
	require.False(t, sink.HasErrors())
	ident, ok := g.Symbols.Find("IDENT")
	require.True(t, ok)
	assert.Equal(t, "string", ident.TypeStr)
	assert.Equal(t, lexemeAction, ident.Action)
}

func Test_lexeme_term_with_explicit_action_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
term <@lexeme> IDENT r:[a-z]+ <%{ return x; }%>
goal rule X { => IDENT ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_void_terminal_with_action_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
term PLUS '+' <%{ return 1; }%>
goal rule X { => PLUS ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_inline_literal_reused_across_rules_is_one_terminal(t *testing.T) {
	g, sink := analyze(t, `
goal rule Expr {
	=> Expr '+' Expr ;
	=> NUM ;
}
term NUM r:[0-9]+ ;
rule Sum { => Expr '+' Expr ; }
`)
	require.False(t, sink.HasErrors())

	var plusIDs []symbols.ID
	for _, p := range g.Productions {
		for _, item := range p.RHS {
			sym, ok := g.Symbols.FindID(item.Symbol)
			if ok && sym.IsInline {
				plusIDs = append(plusIDs, item.Symbol)
			}
		}
	}
	require.NotEmpty(t, plusIDs)
	for _, id := range plusIDs {
		assert.Equal(t, plusIDs[0], id, "every '+' use should resolve to the same synthetic terminal")
	}
}

// Test_inline_literal_S3_is_named_0TERM1 is scenario S3: the first inline
// terminal synthesized for a bare quoted literal is named "0TERM1", not
// "0TERM0".
func Test_inline_literal_S3_is_named_0TERM1(t *testing.T) {
	g, sink := analyze(t, `
goal rule A { => 'bar' ; }
`)
	require.False(t, sink.HasErrors())

	_, ok := g.Symbols.Find("0TERM1")
	assert.True(t, ok, "expected first inline terminal to be named 0TERM1")
}

func Test_pattern_matching_empty_string_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
term BAD r:[0-9]* ;
goal rule X { => BAD ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_alias_on_void_item_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
term PLUS '+' ;
goal rule X { => p:PLUS ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_unknown_symbol_in_rule_body_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
goal rule X { => Bogus ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_skip_symbol_cannot_appear_in_rule_body(t *testing.T) {
	_, sink := analyze(t, `
skip WS r:[\ \t]+ ;
term A 'a' ;
goal rule X { => A WS ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_termset_expands_to_one_production_per_member(t *testing.T) {
	g, sink := analyze(t, `
term PLUS '+' ;
term MINUS '-' ;
termset AddOp @assoc=left PLUS MINUS ;
term NUM r:[0-9]+ ;
goal rule Expr {
	=> Expr AddOp Expr ;
	=> NUM ;
}
`)
	require.False(t, sink.HasErrors())

	addOp, ok := g.Symbols.Find("AddOp")
	require.True(t, ok)
	assert.Equal(t, symbols.Rule, addOp.Kind)

	var members int
	for _, p := range g.Productions {
		if p.Rule == addOp.ID {
			members++
		}
	}
	assert.Equal(t, 2, members)

	plus, _ := g.Symbols.Find("PLUS")
	minus, _ := g.Symbols.Find("MINUS")
	assert.Equal(t, symbols.AssocLeft, plus.Associativity)
	assert.True(t, plus.AssociativitySet)
	assert.Equal(t, symbols.AssocLeft, minus.Associativity)
}

func Test_termset_does_not_override_explicit_term_associativity(t *testing.T) {
	g, sink := analyze(t, `
term PLUS '+' @assoc=right ;
term MINUS '-' ;
termset AddOp @assoc=left PLUS MINUS ;
term NUM r:[0-9]+ ;
goal rule Expr {
	=> Expr AddOp Expr ;
	=> NUM ;
}
`)
	require.False(t, sink.HasErrors())
	plus, _ := g.Symbols.Find("PLUS")
	assert.Equal(t, symbols.AssocRight, plus.Associativity)
}

func Test_precedence_statement_sets_terminal_precedence(t *testing.T) {
	g, sink := analyze(t, `
term PLUS '+' ;
term STAR '*' ;
precedence 1 PLUS ;
precedence 2 STAR ;
term NUM r:[0-9]+ ;
goal rule Expr {
	=> Expr PLUS Expr ;
	=> Expr STAR Expr ;
	=> NUM ;
}
`)
	require.False(t, sink.HasErrors())
	plus, _ := g.Symbols.Find("PLUS")
	star, _ := g.Symbols.Find("STAR")
	assert.Equal(t, 1, plus.Precedence)
	assert.Equal(t, 2, star.Precedence)
}

func Test_precedence_statement_conflicting_with_explicit_term_prec_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
term PLUS '+' @prec=5 ;
precedence 1 PLUS ;
goal rule X { => PLUS ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_rule_alternative_implied_precedence_is_rightmost_terminal(t *testing.T) {
	g, sink := analyze(t, `
term PLUS '+' @prec=3 ;
term NUM r:[0-9]+ ;
goal rule Expr {
	=> Expr PLUS NUM ;
	=> NUM ;
}
`)
	require.False(t, sink.HasErrors())
	var altProd symbols.Production
	found := false
	for _, p := range g.Productions {
		if len(p.RHS) == 3 {
			altProd, found = p, true
		}
	}
	require.True(t, found)
	assert.Equal(t, symbols.NoPrecedence, altProd.EffectivePrecedence())
}

func Test_explicit_alternative_prec_overrides_rightmost_terminal(t *testing.T) {
	g, sink := analyze(t, `
term PLUS '+' @prec=3 ;
term NUM r:[0-9]+ ;
goal rule Expr {
	=> Expr PLUS NUM @prec=9 ;
	=> NUM ;
}
`)
	require.False(t, sink.HasErrors())
	var altProd symbols.Production
	for _, p := range g.Productions {
		if len(p.RHS) == 3 {
			altProd = p
		}
	}
	assert.Equal(t, 9, altProd.EffectivePrecedence())
}

func Test_lexer_case_freezes_after_first_pattern(t *testing.T) {
	_, sink := analyze(t, `
term A 'a' ;
option lexer.case cfold ;
goal rule X { => A ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_lexer_case_option_before_any_pattern_is_honored(t *testing.T) {
	g, sink := analyze(t, `
option lexer.case cfold ;
term A 'a' ;
goal rule X { => A ; }
`)
	require.False(t, sink.HasErrors())
	assert.Equal(t, symbols.CaseFold, g.Options.Case())
}

func Test_duplicate_pattern_text_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
term A 'same' ;
term B 'same' ;
goal rule X { => A ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_parser_class_and_option_duplicate_is_an_error(t *testing.T) {
	_, sink := analyze(t, `
parser class Foo ;
option parser.class Bar ;
term A 'a' ;
goal rule X { => A ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_code_main_option_accepts_recognized_bool_spelling(t *testing.T) {
	g, sink := analyze(t, `
option code.main yes ;
term A 'a' ;
goal rule X { => A ; }
`)
	require.False(t, sink.HasErrors())
	assert.True(t, g.Options.Bool(options.CodeMain))
}

func Test_code_main_option_rejects_unrecognized_value(t *testing.T) {
	_, sink := analyze(t, `
option code.main sorta ;
term A 'a' ;
goal rule X { => A ; }
`)
	assert.True(t, sink.HasErrors())
}

func Test_verbatim_blocks_collected_in_order(t *testing.T) {
	g, sink := analyze(t, `
verbatim file.top <%{ // first }%>
verbatim file.top <%{ // second }%>
term A 'a' ;
goal rule X { => A ; }
`)
	require.False(t, sink.HasErrors())
	blocks, ok := g.Verbatim["file.top"]
	require.True(t, ok)
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0], "first")
	assert.Contains(t, blocks[1], "second")
}

func Test_missing_goal_rule_is_an_error(t *testing.T) {
	g, sink := analyze(t, `
term A 'a' ;
rule X { => A ; }
`)
	assert.True(t, sink.HasErrors())
	assert.False(t, g.Success)
}
