// Package options implements the grammar-level `option NAME VALUE ;`
// statement table: a small set of named, typed, enumerated settings with
// either single-set-then-frozen or always-overwritable semantics. Ported
// from original_source's src/include/options.hpp.
package options

import (
	"fmt"

	"github.com/dekarrin/yalr/internal/symbols"
)

// Name is one of the recognized option names.
type Name string

const (
	ParserClass   Name = "parser.class"
	LexerClass    Name = "lexer.class"
	CodeNamespace Name = "code.namespace"
	LexerCase     Name = "lexer.case"
	CodeMain      Name = "code.main"
)

// kind distinguishes the two set-semantics original_source's option
// hierarchy supports: sv_once_option (fails on a second set) and the
// resettable bool_option/lexer_case_option (always accepts).
type kind int

const (
	onceString kind = iota
	multiBool
	multiCase
)

type slot struct {
	name    Name
	kind    kind
	isSet   bool
	strVal  string
	boolVal bool
	caseVal symbols.CaseMode
}

// Table holds the current value of every recognized option, seeded with
// original_source's exact defaults: lexer.class="Lexer",
// parser.class="Parser", code.namespace="YalrParser", lexer.case=cmatch,
// code.main=false.
type Table struct {
	slots map[Name]*slot

	// caseFrozen becomes true the first time any pattern is classified
	// (DESIGN.md Open Question 2); a later `option lexer.case ...` after
	// that point is an error rather than a silent override.
	caseFrozen bool
}

// NewTable returns a Table populated with default values.
func NewTable() *Table {
	t := &Table{slots: make(map[Name]*slot)}
	t.slots[ParserClass] = &slot{name: ParserClass, kind: onceString, strVal: "Parser"}
	t.slots[LexerClass] = &slot{name: LexerClass, kind: onceString, strVal: "Lexer"}
	t.slots[CodeNamespace] = &slot{name: CodeNamespace, kind: onceString, strVal: "YalrParser"}
	t.slots[LexerCase] = &slot{name: LexerCase, kind: multiCase, caseVal: symbols.CaseMatch}
	t.slots[CodeMain] = &slot{name: CodeMain, kind: multiBool}
	return t
}

// Valid reports whether name is a recognized option.
func (t *Table) Valid(name string) bool {
	_, ok := t.slots[Name(name)]
	return ok
}

// Set applies VALUE to the named option. It returns an error describing why
// the set was rejected: an unknown option name, a second set of a
// single-set option, an unparseable value for a typed option, or (for
// lexer.case specifically) a set attempted after FreezeCase has been
// called.
func (t *Table) Set(name, value string) error {
	s, ok := t.slots[Name(name)]
	if !ok {
		return fmt.Errorf("unknown option %q", name)
	}

	switch s.kind {
	case onceString:
		if s.isSet {
			return fmt.Errorf("option %q has already been set", name)
		}
		s.strVal = value
		s.isSet = true
	case multiBool:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("option %q: %w", name, err)
		}
		s.boolVal = b
		s.isSet = true
	case multiCase:
		if s.name == LexerCase && t.caseFrozen {
			return fmt.Errorf("option %q cannot be changed after patterns have been classified", name)
		}
		cm, ok := symbols.ParseCaseMode(value)
		if !ok {
			return fmt.Errorf("option %q: value must be one of cmatch, cfold, got %q", name, value)
		}
		s.caseVal = cm
		s.isSet = true
	}
	return nil
}

// parseBool diverges from original_source's bool_option, which silently
// treats any value other than its true-spellings as false. spec.md enumerates
// code.main's value set explicitly (`bool strings yes/no/true/false/1/0`), so
// a value outside that set is treated as an option error here rather than
// silently coerced to false (DESIGN.md divergence).
func parseBool(value string) (bool, error) {
	switch value {
	case "yes", "YES", "true", "TRUE", "1":
		return true, nil
	case "no", "NO", "false", "FALSE", "0":
		return false, nil
	default:
		return false, fmt.Errorf("value must be a boolean (yes/no/true/false/1/0), got %q", value)
	}
}

// String returns the current value of a string option.
func (t *Table) String(name Name) string {
	return t.slots[name].strVal
}

// Bool returns the current value of a bool option.
func (t *Table) Bool(name Name) bool {
	return t.slots[name].boolVal
}

// Case returns the current lexer.case value.
func (t *Table) Case() symbols.CaseMode {
	return t.slots[LexerCase].caseVal
}

// FreezeCase marks lexer.case as no longer changeable. internal/analyzer
// calls this the first time it resolves any pattern's case mode.
func (t *Table) FreezeCase() {
	t.caseFrozen = true
}

// CaseFrozen reports whether FreezeCase has already been called.
func (t *Table) CaseFrozen() bool {
	return t.caseFrozen
}

// KnownNames returns every recognized option name, for error messages that
// want to suggest valid alternatives.
func (t *Table) KnownNames() []string {
	names := make([]string, 0, len(t.slots))
	for n := range t.slots {
		names = append(names, string(n))
	}
	return names
}
