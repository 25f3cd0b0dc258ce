// Package symbols holds the grammar's symbol table and production list: the
// data model every later phase (the analyzer, the table generator, the
// emitter) reads from and writes into.
package symbols

import (
	"fmt"

	"github.com/dekarrin/yalr/internal/source"
)

// ID is a dense, monotonically assigned symbol identifier. Fresh symbols get
// the next unused ID in declaration order; IDs are never reused.
type ID int

// Kind tags which of the three concrete symbol payloads a Symbol carries.
type Kind int

const (
	Invalid Kind = iota
	Terminal
	Skip
	Rule
)

func (k Kind) String() string {
	switch k {
	case Terminal:
		return "terminal"
	case Skip:
		return "skip"
	case Rule:
		return "rule"
	default:
		return "invalid"
	}
}

// PatternKind distinguishes a literal-string pattern from a regex pattern.
// There is deliberately no "ecma" member here: see DESIGN.md item 6.
type PatternKind int

const (
	PatternNone PatternKind = iota
	PatternString
	PatternRegex
)

// CaseMode controls whether a pattern, or the lexer as a whole, matches case
// exactly ("match") or case-insensitively ("fold").
type CaseMode int

const (
	CaseUnset CaseMode = iota
	CaseMatch
	CaseFold
)

func (c CaseMode) String() string {
	switch c {
	case CaseMatch:
		return "cmatch"
	case CaseFold:
		return "cfold"
	default:
		return "unset"
	}
}

// ParseCaseMode parses the "cmatch"/"cfold" option values.
func ParseCaseMode(s string) (CaseMode, bool) {
	switch s {
	case "cmatch":
		return CaseMatch, true
	case "cfold":
		return CaseFold, true
	default:
		return CaseUnset, false
	}
}

// Assoc is a terminal's declared associativity, used to break shift/reduce
// ties of equal precedence.
type Assoc int

const (
	AssocUnset Assoc = iota
	AssocLeft
	AssocRight
)

func (a Assoc) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	default:
		return "unset"
	}
}

// NoPrecedence marks a terminal or production that never had a precedence
// assigned. It compares lower than any explicitly set precedence, matching
// original_source's low_prec sentinel.
const NoPrecedence = -99

// Symbol is a single entry in the symbol table. Only the fields relevant to
// its Kind are meaningful; this flattens what original_source models as a
// tagged union (symbols.hpp's symbol_data variant) into one struct, the way
// grammar/item.go flattens LR0Item/LR1Item rather than using an interface
// per item shape.
type Symbol struct {
	ID   ID
	Kind Kind
	// Name is the symbol's declared name (its token name for terminals and
	// skips, or the nonterminal name for rules).
	Name string
	At   source.Fragment

	// IsInline is true for terminals synthesized from a bare quoted literal
	// appearing directly in a rule body or precedence/associativity
	// statement, rather than from an explicit "term" declaration.
	IsInline bool

	// TypeStr is the Go type of this symbol's semantic value, or "" for a
	// symbol with no value (void).
	TypeStr string

	// Action is the verbatim Go expression text of a terminal's semantic
	// action (the `<%{ ... }%>` block), or "" if none was given.
	Action string

	// Associativity and Precedence apply to terminals only. An unset
	// precedence leaves Precedence at 0 with PrecedenceSet false
	// (EffectivePrecedence then reports NoPrecedence), so that an explicit
	// precedence of 0 is distinguishable from "never set". AssociativitySet distinguishes
	// an explicit `@assoc=` / `associativity` declaration from the
	// AssocUnset zero value, the same way PrecedenceSet does for Precedence.
	Associativity    Assoc
	AssociativitySet bool
	Precedence       int
	PrecedenceSet    bool

	// PatternKind, Pattern, and CaseMode describe a terminal's or skip's
	// lexical pattern. Pattern holds the pattern text with its prefix
	// already stripped (quotes removed for strings). PatternAt is the
	// fragment of just the pattern literal, for diagnostics that should
	// point at the pattern rather than the whole declaration.
	PatternKind PatternKind
	Pattern     string
	PatternAt   source.Fragment
	Case        CaseMode

	// IsGoal is true for exactly one Rule symbol: the grammar's start
	// symbol, declared with "goal".
	IsGoal bool
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s(%d, %q)", s.Kind, s.ID, s.Name)
}

// Table is the grammar's symbol table: every terminal, skip, and rule
// symbol, addressable both by name and by ID, plus a secondary "key" index
// used for pattern-text aliases (so that a bare quoted literal used in a
// rule body can be resolved back to the terminal that already claims that
// exact pattern). Grounded on original_source's symbol_table
// (symbols.hpp): dual key_map/id_map lookup, and an add() that fails softly
// rather than overwriting on a name collision.
type Table struct {
	byName map[string]ID
	byID   map[ID]*Symbol
	nextID ID
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	return &Table{
		byName: make(map[string]ID),
		byID:   make(map[ID]*Symbol),
	}
}

// Add inserts sym under key. If key is already in use, Add does nothing and
// returns (false, the existing symbol); otherwise sym is assigned a fresh
// ID, inserted, and (true, sym) is returned. This mirrors
// original_source's symbol_table::add, which returns a (bool, symbol) pair
// rather than erroring directly, leaving the caller to decide how to report
// the collision.
func (t *Table) Add(key string, sym Symbol) (inserted bool, existing Symbol) {
	if id, ok := t.byName[key]; ok {
		return false, *t.byID[id]
	}
	sym.ID = t.nextID
	t.nextID++
	stored := sym
	t.byName[key] = stored.ID
	t.byID[stored.ID] = &stored
	return true, stored
}

// RegisterKey adds an additional lookup key (typically a pattern-text
// alias) for an already-registered symbol. If the key is already taken, it
// does nothing and returns (false, whichever symbol already holds it);
// otherwise the alias is installed and (true, sym) is returned.
func (t *Table) RegisterKey(key string, sym Symbol) (inserted bool, existing Symbol) {
	if id, ok := t.byName[key]; ok {
		return false, *t.byID[id]
	}
	t.byName[key] = sym.ID
	return true, sym
}

// Find looks up a symbol by name or alias key.
func (t *Table) Find(key string) (Symbol, bool) {
	id, ok := t.byName[key]
	if !ok {
		return Symbol{}, false
	}
	return *t.byID[id], true
}

// FindID looks up a symbol by its ID.
func (t *Table) FindID(id ID) (Symbol, bool) {
	sym, ok := t.byID[id]
	if !ok {
		return Symbol{}, false
	}
	return *sym, true
}

// Update replaces the stored symbol for sym.ID with sym. It panics if
// sym.ID was never assigned by this table, since that indicates a caller
// bug, not a user-facing error condition.
func (t *Table) Update(sym Symbol) {
	if _, ok := t.byID[sym.ID]; !ok {
		panic(fmt.Sprintf("symbols: Update called with unregistered ID %d", sym.ID))
	}
	stored := sym
	t.byID[sym.ID] = &stored
}

// All returns every symbol in the table, ordered by ID (declaration order).
func (t *Table) All() []Symbol {
	out := make([]Symbol, 0, len(t.byID))
	for id := ID(0); id < t.nextID; id++ {
		if sym, ok := t.byID[id]; ok {
			out = append(out, *sym)
		}
	}
	return out
}

// OfKind returns every symbol of the given kind, in declaration order.
func (t *Table) OfKind(k Kind) []Symbol {
	var out []Symbol
	for _, sym := range t.All() {
		if sym.Kind == k {
			out = append(out, sym)
		}
	}
	return out
}

// Goal returns the grammar's goal rule symbol, if one has been registered.
func (t *Table) Goal() (Symbol, bool) {
	for _, sym := range t.All() {
		if sym.Kind == Rule && sym.IsGoal {
			return sym, true
		}
	}
	return Symbol{}, false
}

// Item is one symbol reference inside a production's right-hand side, with
// an optional alias used to name it in the production's semantic action
// (mirroring original_source's prod_item{sym, alias}).
type Item struct {
	Symbol ID
	Alias  string
}

// ProdID is a dense, monotonically assigned production identifier.
type ProdID int

// Production is one flattened alternative of a rule: a left-hand-side rule
// symbol, a right-hand-side sequence of Items, an optional semantic action,
// and a resolved precedence used to break shift/reduce and reduce/reduce
// conflicts. Grounded on original_source's production (production.hpp).
type Production struct {
	ID            ProdID
	Rule          ID // the LHS rule symbol's ID
	RHS           []Item
	Action        string
	Precedence    int
	PrecedenceSet bool
	At            source.Fragment
}

// EffectivePrecedence returns p.Precedence if set, otherwise NoPrecedence.
func (p Production) EffectivePrecedence() int {
	if p.PrecedenceSet {
		return p.Precedence
	}
	return NoPrecedence
}

func (s Symbol) EffectivePrecedence() int {
	if s.PrecedenceSet {
		return s.Precedence
	}
	return NoPrecedence
}
