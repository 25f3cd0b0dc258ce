// Package gramparse is a hand-written recursive-descent parser over the
// internal/gramlex token stream, producing an internal/ast.File per the
// grammar-DSL surface in spec.md §6. Grammar shapes and their error
// recovery ("record an error, skip to the next recognized statement
// keyword") are ported from original_source's src/parser.hpp yalr_parser,
// generalized to the token-stream-consuming style of
// internal/ictiobus/fishi.go's CreateBootstrapGrammarFromLexerStream.
package gramparse

import (
	"github.com/dekarrin/yalr/internal/ast"
	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/gramlex"
	"github.com/dekarrin/yalr/internal/source"
)

// statementKeywords is used for error-recovery resynchronization: on a
// parse error, the parser skips tokens until one of these starts again.
var statementKeywords = map[gramlex.Kind]bool{
	gramlex.KwParser:        true,
	gramlex.KwLexer:         true,
	gramlex.KwNamespace:     true,
	gramlex.KwOption:        true,
	gramlex.KwTerm:          true,
	gramlex.KwSkip:          true,
	gramlex.KwGoal:          true,
	gramlex.KwRule:          true,
	gramlex.KwTermset:       true,
	gramlex.KwAssociativity: true,
	gramlex.KwPrecedence:    true,
	gramlex.KwVerbatim:      true,
}

type parser struct {
	toks []gramlex.Token
	pos  int
	sink *diag.Sink
}

// Parse scans and parses txt's content in full, recording every lexical and
// syntax error into sink, and returns the resulting statement list (which
// may be incomplete if errors occurred).
func Parse(txt *source.Text, sink *diag.Sink) *ast.File {
	toks := gramlex.New(txt, sink).All()
	p := &parser{toks: toks, sink: sink}
	return p.parseFile()
}

func (p *parser) cur() gramlex.Token {
	if p.pos >= len(p.toks) {
		if len(p.toks) == 0 {
			return gramlex.Token{Kind: gramlex.EOF}
		}
		last := p.toks[len(p.toks)-1]
		return gramlex.Token{Kind: gramlex.EOF, At: last.At}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) gramlex.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return gramlex.Token{Kind: gramlex.EOF}
	}
	return p.toks[idx]
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) advance() gramlex.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) accept(k gramlex.Kind) (gramlex.Token, bool) {
	if p.cur().Kind == k {
		return p.advance(), true
	}
	return gramlex.Token{}, false
}

func (p *parser) expect(k gramlex.Kind, what string) (gramlex.Token, bool) {
	if tok, ok := p.accept(k); ok {
		return tok, true
	}
	p.sink.Errorf(p.cur().At, "expecting %s", what)
	return gramlex.Token{}, false
}

// syncToStatement discards tokens until one starts a recognized statement
// (or input runs out), so one error doesn't cascade into unrelated ones.
func (p *parser) syncToStatement() {
	for !p.eof() && !statementKeywords[p.cur().Kind] {
		p.advance()
	}
}

func (p *parser) parseFile() *ast.File {
	f := &ast.File{}
	for !p.eof() {
		start := p.pos
		var stmt ast.Statement
		switch p.cur().Kind {
		case gramlex.KwParser:
			stmt = p.parseParserClass()
		case gramlex.KwLexer:
			stmt = p.parseLexerClass()
		case gramlex.KwNamespace:
			stmt = p.parseNamespace()
		case gramlex.KwOption:
			stmt = p.parseOption()
		case gramlex.KwTerm:
			stmt = p.parseTerm()
		case gramlex.KwSkip:
			stmt = p.parseSkip()
		case gramlex.KwGoal, gramlex.KwRule:
			stmt = p.parseRule()
		case gramlex.KwTermset:
			stmt = p.parseTermset()
		case gramlex.KwAssociativity:
			stmt = p.parseAssociativity()
		case gramlex.KwPrecedence:
			stmt = p.parsePrecedence()
		case gramlex.KwVerbatim:
			stmt = p.parseVerbatim()
		default:
			p.sink.Errorf(p.cur().At, "expecting a statement (parser, lexer, namespace, option, term, skip, rule, termset, associativity, precedence, verbatim)")
			p.advance()
			p.syncToStatement()
			continue
		}
		if stmt != nil {
			f.Statements = append(f.Statements, stmt)
		}
		if p.pos == start {
			// Defensive: guarantee forward progress even if a sub-parser
			// returned nil without consuming anything.
			p.advance()
		}
	}
	return f
}

func fragFrom(start, end gramlex.Token) source.Fragment {
	if start.At.Text == nil {
		return end.At
	}
	return source.Span(start.At.Text, start.At.Start, end.At.End)
}

func (p *parser) parseParserClass() ast.Statement {
	kw := p.advance() // 'parser'
	if _, ok := p.expect(gramlex.KwClass, "'class'"); !ok {
		p.syncToStatement()
		return nil
	}
	name, ok := p.expect(gramlex.Ident, "identifier")
	if !ok {
		p.syncToStatement()
		return nil
	}
	semi, ok := p.expect(gramlex.Semicolon, "';'")
	if !ok {
		p.syncToStatement()
		return nil
	}
	return &ast.ParserClassStmt{Name: name.Text, At_: fragFrom(kw, semi)}
}

func (p *parser) parseLexerClass() ast.Statement {
	kw := p.advance() // 'lexer'
	if _, ok := p.expect(gramlex.KwClass, "'class'"); !ok {
		p.syncToStatement()
		return nil
	}
	name, ok := p.expect(gramlex.Ident, "identifier")
	if !ok {
		p.syncToStatement()
		return nil
	}
	semi, ok := p.expect(gramlex.Semicolon, "';'")
	if !ok {
		p.syncToStatement()
		return nil
	}
	return &ast.LexerClassStmt{Name: name.Text, At_: fragFrom(kw, semi)}
}

func (p *parser) parseNamespace() ast.Statement {
	kw := p.advance() // 'namespace'
	var name string
	var quoted bool
	if tok, ok := p.accept(gramlex.DQuoted); ok {
		name, quoted = tok.Text, true
	} else if tok, ok := p.accept(gramlex.Ident); ok {
		name = tok.Text
	} else {
		p.sink.Errorf(p.cur().At, "expecting identifier or quoted string")
		p.syncToStatement()
		return nil
	}
	semi, ok := p.expect(gramlex.Semicolon, "';'")
	if !ok {
		p.syncToStatement()
		return nil
	}
	return &ast.NamespaceStmt{Name: name, IsQuoted: quoted, At_: fragFrom(kw, semi)}
}

func (p *parser) parseOption() ast.Statement {
	kw := p.advance() // 'option'
	name, ok := p.expect(gramlex.Ident, "option name")
	if !ok {
		p.syncToStatement()
		return nil
	}
	value := p.cur()
	switch value.Kind {
	case gramlex.Ident, gramlex.Int, gramlex.SQuoted, gramlex.DQuoted:
		p.advance()
	default:
		p.sink.Errorf(p.cur().At, "expecting option value")
		p.syncToStatement()
		return nil
	}
	semi, ok := p.expect(gramlex.Semicolon, "';'")
	if !ok {
		p.syncToStatement()
		return nil
	}
	return &ast.OptionStmt{Name: name.Text, Value: value.Text, At_: fragFrom(kw, semi)}
}

// parsePattern accepts either a single-quoted string pattern or a
// r:/rm:/rf: regex pattern token.
func (p *parser) parsePattern() (ast.Pattern, bool) {
	if tok, ok := p.accept(gramlex.SQuoted); ok {
		return ast.Pattern{IsString: true, Raw: tok.Text, At: tok.At}, true
	}
	if tok, ok := p.accept(gramlex.Pattern); ok {
		return ast.Pattern{IsString: false, Raw: tok.Text, At: tok.At}, true
	}
	p.sink.Errorf(p.cur().At, "expecting a pattern ('...', r:..., rm:... or rf:...)")
	return ast.Pattern{}, false
}

func (p *parser) parsePrecRef() (ast.PrecRef, bool) {
	if tok, ok := p.accept(gramlex.Int); ok {
		n := 0
		for _, c := range tok.Text {
			n = n*10 + int(c-'0')
		}
		return ast.PrecRef{Kind: ast.PrecNumber, Num: n, At: tok.At}, true
	}
	if tok, ok := p.accept(gramlex.Ident); ok {
		return ast.PrecRef{Kind: ast.PrecIdent, Name: tok.Text, At: tok.At}, true
	}
	if tok, ok := p.accept(gramlex.SQuoted); ok {
		return ast.PrecRef{Kind: ast.PrecLiteral, Name: tok.Text, At: tok.At}, true
	}
	if tok, ok := p.accept(gramlex.DQuoted); ok {
		return ast.PrecRef{Kind: ast.PrecLiteral, Name: tok.Text, At: tok.At}, true
	}
	p.sink.Errorf(p.cur().At, "expecting a precedence level (integer, identifier, or quoted literal)")
	return ast.PrecRef{}, false
}

func (p *parser) parseAssocKind() (ast.AssocKind, bool) {
	if _, ok := p.accept(gramlex.KwLeft); ok {
		return ast.AssocLeft, true
	}
	if _, ok := p.accept(gramlex.KwRight); ok {
		return ast.AssocRight, true
	}
	p.sink.Errorf(p.cur().At, "expecting 'left' or 'right'")
	return ast.AssocNone, false
}

// parseItem parses `(ALIAS:)? (IDENT | '...')`.
func (p *parser) parseItem() (ast.Item, bool) {
	var alias string
	if p.cur().Kind == gramlex.Ident && p.peekAt(1).Kind == gramlex.Colon {
		alias = p.advance().Text
		p.advance() // ':'
	}
	if tok, ok := p.accept(gramlex.Ident); ok {
		return ast.Item{Alias: alias, Name: tok.Text, At: tok.At}, true
	}
	if tok, ok := p.accept(gramlex.SQuoted); ok {
		return ast.Item{Alias: alias, Literal: tok.Text, IsQuoted: true, At: tok.At}, true
	}
	return ast.Item{}, false
}

// parseItemList parses zero or more items for a rule alternative (items
// may carry an alias).
func (p *parser) parseItemList() []ast.Item {
	var items []ast.Item
	for p.cur().Kind == gramlex.Ident || p.cur().Kind == gramlex.SQuoted {
		item, ok := p.parseItem()
		if !ok {
			break
		}
		items = append(items, item)
	}
	return items
}

// parseItemListNoAlias parses one or more items for termset/associativity/
// precedence statements, where aliases are not part of the grammar.
func (p *parser) parseItemListNoAlias() []ast.Item {
	var items []ast.Item
	for p.cur().Kind == gramlex.Ident || p.cur().Kind == gramlex.SQuoted {
		tok := p.advance()
		if tok.Kind == gramlex.Ident {
			items = append(items, ast.Item{Name: tok.Text, At: tok.At})
		} else {
			items = append(items, ast.Item{Literal: tok.Text, IsQuoted: true, At: tok.At})
		}
	}
	return items
}

// parseTermTrailers consumes the optional @assoc=, @prec= and @cmatch/
// @cfold modifiers shared by term and termset statements, in any order.
func (p *parser) parseTermTrailers() (assoc ast.AssocKind, prec ast.PrecRef, hasPrec bool, caseKind ast.CaseKind) {
	for p.cur().Kind == gramlex.AtWord {
		at := p.cur().Text
		switch at {
		case "@assoc":
			p.advance()
			if _, ok := p.expect(gramlex.Equals, "'='"); !ok {
				return
			}
			a, ok := p.parseAssocKind()
			if !ok {
				return
			}
			assoc = a
		case "@prec":
			p.advance()
			if _, ok := p.expect(gramlex.Equals, "'='"); !ok {
				return
			}
			pr, ok := p.parsePrecRef()
			if !ok {
				return
			}
			prec, hasPrec = pr, true
		case "@cmatch":
			p.advance()
			caseKind = ast.CaseMatch
		case "@cfold":
			p.advance()
			caseKind = ast.CaseFold
		default:
			p.sink.Errorf(p.cur().At, "unexpected modifier %q", at)
			p.advance()
		}
	}
	return
}

func (p *parser) parseTerm() ast.Statement {
	kw := p.advance() // 'term'
	var typ string
	if tok, ok := p.accept(gramlex.Type); ok {
		typ = tok.Text
	}
	name, ok := p.expect(gramlex.Ident, "identifier")
	if !ok {
		p.syncToStatement()
		return nil
	}
	pattern, ok := p.parsePattern()
	if !ok {
		p.syncToStatement()
		return nil
	}
	assoc, prec, hasPrec, caseKind := p.parseTermTrailers()

	var action string
	var hasAction bool
	var end gramlex.Token
	if tok, ok := p.accept(gramlex.Action); ok {
		action, hasAction, end = tok.Text, true, tok
	} else {
		semi, ok := p.expect(gramlex.Semicolon, "';' or action block")
		if !ok {
			p.syncToStatement()
			return nil
		}
		end = semi
	}

	stmt := &ast.TermStmt{
		Type: typ, Name: name.Text, Pattern: pattern,
		Assoc: assoc, Case: caseKind, Action: action, HasAction: hasAction,
		At_: fragFrom(kw, end),
	}
	if hasPrec {
		stmt.Prec = prec
	}
	return stmt
}

func (p *parser) parseSkip() ast.Statement {
	kw := p.advance() // 'skip'
	name, ok := p.expect(gramlex.Ident, "identifier")
	if !ok {
		p.syncToStatement()
		return nil
	}
	pattern, ok := p.parsePattern()
	if !ok {
		p.syncToStatement()
		return nil
	}
	var caseKind ast.CaseKind
	if p.cur().Kind == gramlex.AtWord {
		switch p.cur().Text {
		case "@cmatch":
			p.advance()
			caseKind = ast.CaseMatch
		case "@cfold":
			p.advance()
			caseKind = ast.CaseFold
		default:
			p.sink.Errorf(p.cur().At, "a skip may only carry @cmatch or @cfold")
			p.advance()
		}
	}
	semi, ok := p.expect(gramlex.Semicolon, "';'")
	if !ok {
		p.syncToStatement()
		return nil
	}
	return &ast.SkipStmt{Name: name.Text, Pattern: pattern, Case: caseKind, At_: fragFrom(kw, semi)}
}

func (p *parser) parseAlternative() (ast.Alternative, bool) {
	arrow, ok := p.accept(gramlex.Arrow)
	if !ok {
		return ast.Alternative{}, false
	}
	items := p.parseItemList()

	var prec ast.PrecRef
	if p.cur().Kind == gramlex.AtWord && p.cur().Text == "@prec" {
		p.advance()
		if _, ok := p.expect(gramlex.Equals, "'='"); ok {
			if pr, ok := p.parsePrecRef(); ok {
				prec = pr
			}
		}
	}

	var action string
	var hasAction bool
	var end gramlex.Token
	if tok, ok := p.accept(gramlex.Action); ok {
		action, hasAction, end = tok.Text, true, tok
	} else {
		semi, ok := p.expect(gramlex.Semicolon, "';' or action block")
		if !ok {
			return ast.Alternative{}, false
		}
		end = semi
	}

	return ast.Alternative{
		Items: items, Prec: prec, Action: action, HasAction: hasAction,
		At: fragFrom(arrow, end),
	}, true
}

func (p *parser) parseRule() ast.Statement {
	var isGoal bool
	var start gramlex.Token
	if tok, ok := p.accept(gramlex.KwGoal); ok {
		isGoal, start = true, tok
	}
	kw, ok := p.expect(gramlex.KwRule, "'rule'")
	if !ok {
		p.syncToStatement()
		return nil
	}
	if !isGoal {
		start = kw
	}

	var typ string
	if tok, ok := p.accept(gramlex.Type); ok {
		typ = tok.Text
	}
	name, ok := p.expect(gramlex.Ident, "identifier")
	if !ok {
		p.syncToStatement()
		return nil
	}
	if _, ok := p.expect(gramlex.LBrace, "'{'"); !ok {
		p.syncToStatement()
		return nil
	}

	var alts []ast.Alternative
	for p.cur().Kind == gramlex.Arrow {
		alt, ok := p.parseAlternative()
		if !ok {
			break
		}
		alts = append(alts, alt)
	}

	end, ok := p.expect(gramlex.RBrace, "'}'")
	if !ok {
		p.syncToStatement()
		return nil
	}

	return &ast.RuleStmt{
		IsGoal: isGoal, Type: typ, Name: name.Text, Alternatives: alts,
		At_: fragFrom(start, end),
	}
}

func (p *parser) parseTermset() ast.Statement {
	kw := p.advance() // 'termset'
	var typ string
	if tok, ok := p.accept(gramlex.Type); ok {
		typ = tok.Text
	}
	name, ok := p.expect(gramlex.Ident, "identifier")
	if !ok {
		p.syncToStatement()
		return nil
	}
	assoc, prec, hasPrec, _ := p.parseTermTrailers()
	members := p.parseItemListNoAlias()
	if len(members) == 0 {
		p.sink.Errorf(p.cur().At, "expecting at least one member symbol")
	}

	var action string
	var hasAction bool
	var end gramlex.Token
	if tok, ok := p.accept(gramlex.Action); ok {
		action, hasAction, end = tok.Text, true, tok
	} else {
		semi, ok := p.expect(gramlex.Semicolon, "';' or action block")
		if !ok {
			p.syncToStatement()
			return nil
		}
		end = semi
	}

	stmt := &ast.TermsetStmt{
		Type: typ, Name: name.Text, Assoc: assoc, Members: members,
		Action: action, HasAction: hasAction, At_: fragFrom(kw, end),
	}
	if hasPrec {
		stmt.Prec = prec
	}
	return stmt
}

func (p *parser) parseAssociativity() ast.Statement {
	kw := p.advance() // 'associativity'
	assoc, ok := p.parseAssocKind()
	if !ok {
		p.syncToStatement()
		return nil
	}
	symbols := p.parseItemListNoAlias()
	if len(symbols) == 0 {
		p.sink.Errorf(p.cur().At, "expecting at least one symbol")
	}
	semi, ok := p.expect(gramlex.Semicolon, "';'")
	if !ok {
		p.syncToStatement()
		return nil
	}
	return &ast.AssociativityStmt{Assoc: assoc, Symbols: symbols, At_: fragFrom(kw, semi)}
}

func (p *parser) parsePrecedence() ast.Statement {
	kw := p.advance() // 'precedence'
	level, ok := p.parsePrecRef()
	if !ok {
		p.syncToStatement()
		return nil
	}
	symbols := p.parseItemListNoAlias()
	if len(symbols) == 0 {
		p.sink.Errorf(p.cur().At, "expecting at least one symbol")
	}
	semi, ok := p.expect(gramlex.Semicolon, "';'")
	if !ok {
		p.syncToStatement()
		return nil
	}
	return &ast.PrecedenceStmt{Level: level, Symbols: symbols, At_: fragFrom(kw, semi)}
}

var validLocations = map[string]ast.VerbatimLocation{
	"file.top": ast.LocFileTop, "file.bottom": ast.LocFileBottom,
	"namespace.top": ast.LocNamespaceTop, "namespace.bottom": ast.LocNamespaceBottom,
	"lexer.top": ast.LocLexerTop, "lexer.bottom": ast.LocLexerBottom,
	"parser.top": ast.LocParserTop, "parser.bottom": ast.LocParserBottom,
}

func (p *parser) parseVerbatim() ast.Statement {
	kw := p.advance() // 'verbatim'
	locTok, ok := p.expect(gramlex.Ident, "a verbatim location")
	if !ok {
		p.syncToStatement()
		return nil
	}
	loc, known := validLocations[locTok.Text]
	if !known {
		p.sink.Errorf(locTok.At, "unknown verbatim location %q", locTok.Text)
	}
	action, ok := p.expect(gramlex.Action, "action block")
	if !ok {
		p.syncToStatement()
		return nil
	}
	return &ast.VerbatimStmt{Location: loc, Action: action.Text, At_: fragFrom(kw, action)}
}
