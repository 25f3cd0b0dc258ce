// Package gramlex hand-scans the grammar DSL (spec.md §6) into a flat token
// stream for internal/gramparse to consume. The character-level matchers
// (keyword, identifier, quoted string, pattern, type, action block) are
// ported from original_source's src/parser.hpp, whose yalr_parser interleaves
// scanning and parsing; here scanning is pulled out into its own pass, with
// token-kind naming modeled on internal/ictiobus/fishi.go's tcXxx token
// class idiom.
package gramlex

import (
	"strings"

	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/source"
)

// Kind identifies the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota

	KwParser
	KwLexer
	KwClass
	KwNamespace
	KwOption
	KwTerm
	KwSkip
	KwGoal
	KwRule
	KwTermset
	KwAssociativity
	KwPrecedence
	KwVerbatim
	KwLeft
	KwRight

	Ident
	Int
	SQuoted  // '...' - inline terminal literal or string pattern
	DQuoted  // "..." - qstring form of namespace/prec references
	Pattern  // r:..., rm:..., rf:... - regex pattern, prefix retained in Text
	Type     // <...> contents, angle brackets stripped
	Action   // <%{ ... }%> contents, delimiters stripped
	AtWord   // @assoc, @prec, @cmatch, @cfold, @lexeme

	LBrace
	RBrace
	Semicolon
	Equals
	Arrow // =>
	Colon
)

var keywords = map[string]Kind{
	"parser":        KwParser,
	"lexer":         KwLexer,
	"class":         KwClass,
	"namespace":     KwNamespace,
	"option":        KwOption,
	"term":          KwTerm,
	"skip":          KwSkip,
	"goal":          KwGoal,
	"rule":          KwRule,
	"termset":       KwTermset,
	"associativity": KwAssociativity,
	"precedence":    KwPrecedence,
	"verbatim":      KwVerbatim,
	"left":          KwLeft,
	"right":         KwRight,
}

// Token is one lexed unit of the grammar DSL.
type Token struct {
	Kind Kind
	Text string
	At   source.Fragment
}

// Lexer scans a source.Text into a Token stream on demand.
type Lexer struct {
	text *source.Text
	s    string
	pos  int
	sink *diag.Sink
}

// New creates a Lexer over txt, recording lexical errors into sink.
func New(txt *source.Text, sink *diag.Sink) *Lexer {
	return &Lexer{text: txt, s: txt.Content, sink: sink}
}

func (l *Lexer) eof() bool { return l.pos >= len(l.s) }

func (l *Lexer) peek() byte {
	if l.eof() {
		return 0
	}
	return l.s[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	p := l.pos + off
	if p < 0 || p >= len(l.s) {
		return 0
	}
	return l.s[p]
}

func (l *Lexer) frag(start int) source.Fragment {
	return source.Span(l.text, source.Offset(start), source.Offset(l.pos))
}

// skipTrivia consumes whitespace and `//`/`/* */` comments, mirroring
// original_source's yalr_parser::skip.
func (l *Lexer) skipTrivia() {
	for !l.eof() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.pos++
		case c == '/' && l.peekAt(1) == '/':
			l.pos += 2
			for !l.eof() && l.peek() != '\n' {
				l.pos++
			}
		case c == '/' && l.peekAt(1) == '*':
			l.pos += 2
			for !l.eof() && !(l.peek() == '*' && l.peekAt(1) == '/') {
				l.pos++
			}
			if !l.eof() {
				l.pos += 2
			}
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Next scans and returns the next token, or a Kind == EOF token once the
// input is exhausted.
func (l *Lexer) Next() Token {
	l.skipTrivia()
	start := l.pos
	if l.eof() {
		return Token{Kind: EOF, At: l.frag(start)}
	}

	c := l.peek()
	switch {
	case c == '{':
		l.pos++
		return Token{Kind: LBrace, Text: "{", At: l.frag(start)}
	case c == '}':
		l.pos++
		return Token{Kind: RBrace, Text: "}", At: l.frag(start)}
	case c == ';':
		l.pos++
		return Token{Kind: Semicolon, Text: ";", At: l.frag(start)}
	case c == ':':
		l.pos++
		return Token{Kind: Colon, Text: ":", At: l.frag(start)}
	case c == '=' && l.peekAt(1) == '>':
		l.pos += 2
		return Token{Kind: Arrow, Text: "=>", At: l.frag(start)}
	case c == '=':
		l.pos++
		return Token{Kind: Equals, Text: "=", At: l.frag(start)}
	case c == '<' && l.peekAt(1) == '%' && l.peekAt(2) == '{':
		return l.scanAction(start)
	case c == '<':
		return l.scanType(start)
	case c == '\'':
		return l.scanSingleQuoted(start)
	case c == '"':
		return l.scanDoubleQuoted(start)
	case c == '@':
		return l.scanAtWord(start)
	case isDigit(c):
		return l.scanInt(start)
	case isIdentStart(c):
		return l.scanIdentOrPattern(start)
	default:
		l.pos++
		l.sink.Errorf(l.frag(start), "unexpected character %q", c)
		return l.Next()
	}
}

func (l *Lexer) scanType(start int) Token {
	l.pos++ // consume '<'
	depth := 1
	contentStart := l.pos
	for !l.eof() && depth > 0 {
		switch l.peek() {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				text := l.s[contentStart:l.pos]
				l.pos++
				return Token{Kind: Type, Text: text, At: l.frag(start)}
			}
		}
		l.pos++
	}
	l.sink.Errorf(l.frag(start), "unterminated type, expected closing '>'")
	return Token{Kind: Type, Text: l.s[contentStart:l.pos], At: l.frag(start)}
}

func (l *Lexer) scanAction(start int) Token {
	l.pos += 3 // consume '<%{'
	contentStart := l.pos
	for !l.eof() {
		if l.peek() == '}' && l.peekAt(1) == '%' && l.peekAt(2) == '>' {
			text := l.s[contentStart:l.pos]
			l.pos += 3
			return Token{Kind: Action, Text: text, At: l.frag(start)}
		}
		l.pos++
	}
	l.sink.Errorf(l.frag(start), "unterminated action block, expected '}%%>'")
	return Token{Kind: Action, Text: l.s[contentStart:l.pos], At: l.frag(start)}
}

func (l *Lexer) scanSingleQuoted(start int) Token {
	l.pos++ // consume opening '
	var sb strings.Builder
	for {
		if l.eof() {
			l.sink.Errorf(l.frag(start), "unterminated single-quoted string at end of input")
			break
		}
		c := l.peek()
		if c == '\\' {
			sb.WriteByte(c)
			l.pos++
			if !l.eof() {
				sb.WriteByte(l.peek())
				l.pos++
			}
			continue
		}
		if c == '\'' {
			l.pos++
			break
		}
		if c == '\n' {
			l.sink.Errorf(l.frag(start), "unescaped newline in single-quoted string")
			break
		}
		sb.WriteByte(c)
		l.pos++
	}
	return Token{Kind: SQuoted, Text: sb.String(), At: l.frag(start)}
}

func (l *Lexer) scanDoubleQuoted(start int) Token {
	l.pos++ // consume opening "
	var sb strings.Builder
	for {
		if l.eof() {
			l.sink.Errorf(l.frag(start), "unterminated double-quoted string at end of input")
			break
		}
		c := l.peek()
		if c == '\\' {
			sb.WriteByte(c)
			l.pos++
			if !l.eof() {
				sb.WriteByte(l.peek())
				l.pos++
			}
			continue
		}
		if c == '"' {
			l.pos++
			break
		}
		if c == '\n' {
			l.sink.Errorf(l.frag(start), "unescaped newline in double-quoted string")
			break
		}
		sb.WriteByte(c)
		l.pos++
	}
	return Token{Kind: DQuoted, Text: sb.String(), At: l.frag(start)}
}

// scanAtWord scans `@` followed by an identifier: `@assoc`, `@prec`,
// `@cmatch`, `@cfold`, `@lexeme`.
func (l *Lexer) scanAtWord(start int) Token {
	l.pos++ // consume '@'
	contentStart := l.pos
	for !l.eof() && isIdentCont(l.peek()) {
		l.pos++
	}
	if l.pos == contentStart {
		l.sink.Errorf(l.frag(start), "expected identifier after '@'")
	}
	return Token{Kind: AtWord, Text: "@" + l.s[contentStart:l.pos], At: l.frag(start)}
}

func (l *Lexer) scanInt(start int) Token {
	for !l.eof() && isDigit(l.peek()) {
		l.pos++
	}
	return Token{Kind: Int, Text: l.s[start:l.pos], At: l.frag(start)}
}

// scanIdentOrPattern scans an identifier, a keyword, or (when the
// identifier is exactly "r", "rm" or "rf" immediately followed by ':') a
// regex pattern per spec.md §6: patterns begin with `'`, `r:`, `rm:` or
// `rf:`. A regex pattern runs to the next unescaped whitespace, matching
// original_source's match_regex.
func (l *Lexer) scanIdentOrPattern(start int) Token {
	for !l.eof() && isIdentCont(l.peek()) {
		l.pos++
	}
	// Dotted names (option names like "parser.class", verbatim locations
	// like "file.top") lex as one identifier: a '.' immediately followed by
	// another identifier-start character extends the word.
	for l.peek() == '.' && isIdentStart(l.peekAt(1)) {
		l.pos++
		for !l.eof() && isIdentCont(l.peek()) {
			l.pos++
		}
	}
	word := l.s[start:l.pos]

	if (word == "r" || word == "rm" || word == "rf") && l.peek() == ':' {
		return l.scanPattern(start, word)
	}

	if kw, ok := keywords[word]; ok {
		return Token{Kind: kw, Text: word, At: l.frag(start)}
	}
	return Token{Kind: Ident, Text: word, At: l.frag(start)}
}

func (l *Lexer) scanPattern(start int, prefix string) Token {
	l.pos++ // consume ':'
	bodyStart := l.pos
	for !l.eof() {
		c := l.peek()
		if c == '\\' {
			l.pos += 2
			continue
		}
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			break
		}
		l.pos++
	}
	body := l.s[bodyStart:l.pos]
	return Token{Kind: Pattern, Text: prefix + ":" + body, At: l.frag(start)}
}

// All scans the entire input and returns the resulting tokens, excluding
// the final EOF sentinel.
func (l *Lexer) All() []Token {
	var toks []Token
	for {
		tok := l.Next()
		if tok.Kind == EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}
