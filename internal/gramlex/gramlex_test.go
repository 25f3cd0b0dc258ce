package gramlex

import (
	"testing"

	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) ([]Token, *diag.Sink) {
	t.Helper()
	txt := source.New("g.yalr", src)
	sink := diag.NewSink()
	toks := New(txt, sink).All()
	return toks, sink
}

func Test_keywords_and_identifiers(t *testing.T) {
	toks, sink := lexAll(t, "parser class Foo ;")
	require.False(t, sink.HasErrors())
	require.Len(t, toks, 4)
	assert.Equal(t, KwParser, toks[0].Kind)
	assert.Equal(t, KwClass, toks[1].Kind)
	assert.Equal(t, Ident, toks[2].Kind)
	assert.Equal(t, "Foo", toks[2].Text)
	assert.Equal(t, Semicolon, toks[3].Kind)
}

func Test_single_quoted_literal(t *testing.T) {
	toks, sink := lexAll(t, `'foo\'s'`)
	require.False(t, sink.HasErrors())
	require.Len(t, toks, 1)
	assert.Equal(t, SQuoted, toks[0].Kind)
	assert.Equal(t, `foo\'s`, toks[0].Text)
}

func Test_regex_pattern_prefixes(t *testing.T) {
	for _, prefix := range []string{"r", "rm", "rf"} {
		toks, sink := lexAll(t, prefix+`:[a-z]+`)
		require.False(t, sink.HasErrors(), prefix)
		require.Len(t, toks, 1, prefix)
		assert.Equal(t, Pattern, toks[0].Kind, prefix)
		assert.Equal(t, prefix+":[a-z]+", toks[0].Text, prefix)
	}
}

func Test_regex_pattern_stops_at_unescaped_whitespace(t *testing.T) {
	toks, sink := lexAll(t, `r:[a-z]+ ;`)
	require.False(t, sink.HasErrors())
	require.Len(t, toks, 2)
	assert.Equal(t, "r:[a-z]+", toks[0].Text)
	assert.Equal(t, Semicolon, toks[1].Kind)
}

func Test_type_and_action_blocks(t *testing.T) {
	toks, sink := lexAll(t, `<int> <%{ return 1; }%>`)
	require.False(t, sink.HasErrors())
	require.Len(t, toks, 2)
	assert.Equal(t, Type, toks[0].Kind)
	assert.Equal(t, "int", toks[0].Text)
	assert.Equal(t, Action, toks[1].Kind)
	assert.Equal(t, " return 1; ", toks[1].Text)
}

func Test_nested_angle_brackets_in_type(t *testing.T) {
	toks, sink := lexAll(t, `<map<string,int>>`)
	require.False(t, sink.HasErrors())
	require.Len(t, toks, 1)
	assert.Equal(t, "map<string,int>", toks[0].Text)
}

func Test_at_words(t *testing.T) {
	toks, sink := lexAll(t, `@assoc=left @prec=10 @cmatch @cfold @lexeme`)
	require.False(t, sink.HasErrors())
	require.Len(t, toks, 9)
	assert.Equal(t, AtWord, toks[0].Kind)
	assert.Equal(t, "@assoc", toks[0].Text)
	assert.Equal(t, Equals, toks[1].Kind)
	assert.Equal(t, KwLeft, toks[2].Kind)
}

func Test_line_and_block_comments_are_skipped(t *testing.T) {
	toks, sink := lexAll(t, "term // a comment\nA 'a' ; /* block\ncomment */ term B 'b' ;")
	require.False(t, sink.HasErrors())
	require.Len(t, toks, 8)
	assert.Equal(t, KwTerm, toks[0].Kind)
	assert.Equal(t, "A", toks[1].Text)
}

func Test_dotted_identifiers_lex_as_one_token(t *testing.T) {
	toks, sink := lexAll(t, "option parser.class MyParser ; verbatim file.top <%{ x }%>")
	require.False(t, sink.HasErrors())
	assert.Equal(t, "parser.class", toks[1].Text)
	assert.Equal(t, "file.top", toks[5].Text)
}

func Test_unterminated_single_quote_reports_error(t *testing.T) {
	_, sink := lexAll(t, `'unterminated`)
	assert.True(t, sink.HasErrors())
}

func Test_arrow_and_braces(t *testing.T) {
	toks, sink := lexAll(t, `rule X { => A B ; }`)
	require.False(t, sink.HasErrors())
	kinds := make([]Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []Kind{KwRule, Ident, LBrace, Arrow, Ident, Ident, Semicolon, RBrace}, kinds)
}
