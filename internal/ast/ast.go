// Package ast defines the statement tree produced by internal/gramparse:
// one node type per grammar-DSL statement shape from spec.md §6. Node
// shapes are ported from original_source's src/ast.hpp, widened to cover
// the options/termset/associativity/precedence/verbatim statements that
// ast.hpp's grammar predates.
package ast

import "github.com/dekarrin/yalr/internal/source"

// Statement is any top-level grammar-DSL statement.
type Statement interface {
	Fragment() source.Fragment
	stmtNode()
}

// File is the full ordered statement stream parsed from one input source.
type File struct {
	Statements []Statement
}

// PrecKind distinguishes the three ways a precedence level can be written:
// a bare integer, an identifier naming another symbol's level, or a quoted
// literal naming an inline terminal's level.
type PrecKind int

const (
	PrecNone PrecKind = iota
	PrecNumber
	PrecIdent
	PrecLiteral
)

// PrecRef is an `@prec=...` or `precedence ...` level reference.
type PrecRef struct {
	Kind PrecKind
	Num  int
	Name string // set for PrecIdent and PrecLiteral
	At   source.Fragment
}

// AssocKind is the `left`/`right` spelling used by both `@assoc=` and the
// `associativity` statement.
type AssocKind int

const (
	AssocNone AssocKind = iota
	AssocLeft
	AssocRight
)

// CaseKind is the `@cmatch`/`@cfold` spelling attached to a pattern.
type CaseKind int

const (
	CaseNone CaseKind = iota
	CaseMatch
	CaseFold
)

// Pattern is a `'...'`, `r:...`, `rm:...` or `rf:...` pattern literal. For
// string patterns Raw is the text with the quotes stripped; for regex
// patterns Raw keeps its `r:`/`rm:`/`rf:` prefix, which internal/analyzer
// strips when classifying the pattern.
type Pattern struct {
	IsString bool // true for '...' patterns, false for r:/rm:/rf:
	Raw      string
	At       source.Fragment
}

// Item is one element of a rule alternative or a termset/associativity/
// precedence symbol list: `(ALIAS:)? (IDENT | '...')`.
type Item struct {
	Alias    string // empty if no "ALIAS:" prefix was given
	Name     string // identifier form; empty when Literal is set
	Literal  string // quoted-literal form (an inline terminal); empty when Name is set
	IsQuoted bool
	At       source.Fragment
}

// ParserClassStmt is `parser class NAME ;`.
type ParserClassStmt struct {
	Name string
	At_  source.Fragment
}

func (s *ParserClassStmt) Fragment() source.Fragment { return s.At_ }
func (s *ParserClassStmt) stmtNode()                 {}

// LexerClassStmt is `lexer class NAME ;`.
type LexerClassStmt struct {
	Name string
	At_  source.Fragment
}

func (s *LexerClassStmt) Fragment() source.Fragment { return s.At_ }
func (s *LexerClassStmt) stmtNode()                 {}

// NamespaceStmt is `namespace NAME_OR_QSTRING ;`.
type NamespaceStmt struct {
	Name     string
	IsQuoted bool
	At_      source.Fragment
}

func (s *NamespaceStmt) Fragment() source.Fragment { return s.At_ }
func (s *NamespaceStmt) stmtNode()                 {}

// OptionStmt is `option NAME VALUE ;`.
type OptionStmt struct {
	Name  string
	Value string
	At_   source.Fragment
}

func (s *OptionStmt) Fragment() source.Fragment { return s.At_ }
func (s *OptionStmt) stmtNode()                 {}

// TermStmt is `term <TYPE>? NAME PATTERN (@assoc=...)? (@prec=...)?
// (@cmatch|@cfold)? (;|ACTION)`.
type TermStmt struct {
	Type       string // empty if untyped; "@lexeme" is a legal literal value
	Name       string
	Pattern    Pattern
	Assoc      AssocKind
	Prec       PrecRef
	Case       CaseKind
	Action     string
	HasAction  bool
	At_        source.Fragment
}

func (s *TermStmt) Fragment() source.Fragment { return s.At_ }
func (s *TermStmt) stmtNode()                 {}

// SkipStmt is `skip NAME PATTERN (@cmatch|@cfold)? ;`.
type SkipStmt struct {
	Name    string
	Pattern Pattern
	Case    CaseKind
	At_     source.Fragment
}

func (s *SkipStmt) Fragment() source.Fragment { return s.At_ }
func (s *SkipStmt) stmtNode()                 {}

// Alternative is one `=> item* (@prec=...)? (;|ACTION)` arm of a rule.
type Alternative struct {
	Items     []Item
	Prec      PrecRef
	Action    string
	HasAction bool
	At        source.Fragment
}

// RuleStmt is `(goal)? rule <TYPE>? NAME { alternative+ }`.
type RuleStmt struct {
	IsGoal       bool
	Type         string
	Name         string
	Alternatives []Alternative
	At_          source.Fragment
}

func (s *RuleStmt) Fragment() source.Fragment { return s.At_ }
func (s *RuleStmt) stmtNode()                 {}

// TermsetStmt is `termset <TYPE>? NAME (@assoc=...)? (@prec=...)? item+
// (;|ACTION)`.
type TermsetStmt struct {
	Type      string
	Name      string
	Assoc     AssocKind
	Prec      PrecRef
	Members   []Item
	Action    string
	HasAction bool
	At_       source.Fragment
}

func (s *TermsetStmt) Fragment() source.Fragment { return s.At_ }
func (s *TermsetStmt) stmtNode()                 {}

// AssociativityStmt is `associativity (left|right) item+ ;`.
type AssociativityStmt struct {
	Assoc   AssocKind
	Symbols []Item
	At_     source.Fragment
}

func (s *AssociativityStmt) Fragment() source.Fragment { return s.At_ }
func (s *AssociativityStmt) stmtNode()                 {}

// PrecedenceStmt is `precedence (N|IDENT|'...') item+ ;`.
type PrecedenceStmt struct {
	Level   PrecRef
	Symbols []Item
	At_     source.Fragment
}

func (s *PrecedenceStmt) Fragment() source.Fragment { return s.At_ }
func (s *PrecedenceStmt) stmtNode()                 {}

// VerbatimLocation is one of the eight recognized `verbatim` insertion
// points.
type VerbatimLocation string

const (
	LocFileTop        VerbatimLocation = "file.top"
	LocFileBottom      VerbatimLocation = "file.bottom"
	LocNamespaceTop    VerbatimLocation = "namespace.top"
	LocNamespaceBottom VerbatimLocation = "namespace.bottom"
	LocLexerTop        VerbatimLocation = "lexer.top"
	LocLexerBottom     VerbatimLocation = "lexer.bottom"
	LocParserTop       VerbatimLocation = "parser.top"
	LocParserBottom    VerbatimLocation = "parser.bottom"
)

// ValidVerbatimLocations enumerates the closed set of locations, for
// error messages and for internal/gramparse's validation.
var ValidVerbatimLocations = []VerbatimLocation{
	LocFileTop, LocFileBottom,
	LocNamespaceTop, LocNamespaceBottom,
	LocLexerTop, LocLexerBottom,
	LocParserTop, LocParserBottom,
}

// VerbatimStmt is `verbatim LOCATION ACTION`.
type VerbatimStmt struct {
	Location VerbatimLocation
	Action   string
	At_      source.Fragment
}

func (s *VerbatimStmt) Fragment() source.Fragment { return s.At_ }
func (s *VerbatimStmt) stmtNode()                 {}
