// Package emit builds the code-emission template-data tree: a plain Go
// tree of structs, slices, and maps that an external template renderer
// (not part of this module) walks to produce a concrete parser in some
// target language. Grounded on original_source/src/lib/codegen.cpp's
// generate_code/generate_state_data and
// src/include/templates/lexer.hpp's pattern-table shape. Deliberately
// built from primitives rather than a JSON library: the whole point of
// the tree is to be renderable by a template engine in any target
// language, not just Go.
package emit

import (
	"fmt"
	"sort"

	"github.com/dekarrin/yalr/internal/analyzer"
	"github.com/dekarrin/yalr/internal/ast"
	"github.com/dekarrin/yalr/internal/lrtable"
	"github.com/dekarrin/yalr/internal/symbols"
)

const (
	undefTokenValue = -1
	skipTokenValue  = -10
)

// Header carries the build provenance that generated output traditionally
// stamps into a comment block at the top of the file.
type Header struct {
	Version   string
	Timestamp string
}

// PatternEntry is one row of the lexer's pattern table, ordered by symbol
// ID (declaration order). Matcher is one of "string", "fold_string", or
// "regex", mirroring the three matcher kinds templates/lexer.hpp
// distinguishes.
type PatternEntry struct {
	Matcher  string
	Pattern  string
	Flags    string
	Token    string
	IsGlobal bool
}

// ActionEntry is one non-empty ACTION[state, terminal] cell.
type ActionEntry struct {
	Terminal string
	Kind     string // "shift", "reduce", "accept"
	State    int // for "shift"
	ProdID   int // for "reduce"
	PopCount int // for "reduce"
}

// GotoEntry is one non-empty GOTO[state, rule] cell.
type GotoEntry struct {
	Rule  string
	State int
}

// StateEntry is one row of the generated parser's state table.
type StateEntry struct {
	ID      int
	Actions []ActionEntry
	Gotos   []GotoEntry
}

// ItemType describes one RHS symbol of a reduced production, in reverse
// pop order (the order values come off the parser's state/value stack),
// for splicing into a semantic action as a named local.
type ItemType struct {
	Index int
	Type  string
	Alias string
}

// ReduceFunc is the per-production data needed to emit one reduce thunk.
type ReduceFunc struct {
	ProdID       int
	RuleType     string
	Symbol       string
	ItemTypes    []ItemType
	Block        string
	HasSemAction bool
}

// Data is the complete template-data tree for one grammar.
type Data struct {
	Namespace       string
	ParserClass     string
	LexerClass      string
	Header          Header
	Enums           map[string]int
	Types           []string
	SemanticActions map[string]string
	Patterns        []PatternEntry
	States          []StateEntry
	ReduceFuncs     []ReduceFunc
	Verbatim        map[string][]string
}

// Build walks an analyzed grammar and its SLR table into a Data tree.
// header lets the caller supply a version string and timestamp (emit does
// not read the clock itself, so that runs stay reproducible).
func Build(g *analyzer.Grammar, tbl *lrtable.Table, header Header) *Data {
	d := &Data{
		Namespace:       g.Options.String("code.namespace"),
		ParserClass:     g.Options.String("parser.class"),
		LexerClass:      g.Options.String("lexer.class"),
		Header:          header,
		Enums:           buildEnums(g),
		Types:           buildTypes(g),
		SemanticActions: buildSemanticActions(g),
		Patterns:        buildPatterns(g),
		States:          buildStates(g, tbl),
		ReduceFuncs:     buildReduceFuncs(g),
		Verbatim:        buildVerbatim(g),
	}
	return d
}

func buildEnums(g *analyzer.Grammar) map[string]int {
	enums := map[string]int{
		"undef": undefTokenValue,
		"skip":  skipTokenValue,
	}
	for _, sym := range g.Symbols.OfKind(symbols.Terminal) {
		enums[sym.Name] = int(sym.ID)
	}
	return enums
}

func buildTypes(g *analyzer.Grammar) []string {
	seen := map[string]bool{}
	for _, sym := range g.Symbols.All() {
		if sym.TypeStr == "" {
			continue
		}
		seen[sym.TypeStr] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func buildSemanticActions(g *analyzer.Grammar) map[string]string {
	actions := map[string]string{}
	for _, sym := range g.Symbols.OfKind(symbols.Terminal) {
		if sym.Action != "" {
			actions[sym.Name] = sym.Action
		}
	}
	return actions
}

func buildPatterns(g *analyzer.Grammar) []PatternEntry {
	var out []PatternEntry
	for _, sym := range g.Symbols.All() {
		if sym.PatternKind == symbols.PatternNone {
			continue
		}
		entry := PatternEntry{
			Pattern:  sym.Pattern,
			Token:    sym.Name,
			IsGlobal: sym.Kind == symbols.Skip,
		}
		switch sym.PatternKind {
		case symbols.PatternString:
			if sym.Case == symbols.CaseFold {
				entry.Matcher = "fold_string"
			} else {
				entry.Matcher = "string"
			}
		case symbols.PatternRegex:
			entry.Matcher = "regex"
			if sym.Case == symbols.CaseFold {
				entry.Flags = "i"
			}
		}
		out = append(out, entry)
	}
	return out
}

func buildStates(g *analyzer.Grammar, tbl *lrtable.Table) []StateEntry {
	out := make([]StateEntry, 0, len(tbl.States))
	for _, st := range tbl.States {
		entry := StateEntry{ID: st.ID}

		var termIDs []symbols.ID
		for id := range st.Actions {
			termIDs = append(termIDs, id)
		}
		sort.Slice(termIDs, func(i, j int) bool { return termIDs[i] < termIDs[j] })
		for _, id := range termIDs {
			act := st.Actions[id]
			sym, _ := g.Symbols.FindID(id)
			ae := ActionEntry{Terminal: sym.Name}
			switch act.Type {
			case lrtable.ActionShift:
				ae.Kind = "shift"
				ae.State = act.State
			case lrtable.ActionReduce:
				ae.Kind = "reduce"
				ae.ProdID = int(act.Prod)
				ae.PopCount = act.PopCount
			case lrtable.ActionAccept:
				ae.Kind = "accept"
			}
			entry.Actions = append(entry.Actions, ae)
		}

		var ruleIDs []symbols.ID
		for id := range st.Gotos {
			ruleIDs = append(ruleIDs, id)
		}
		sort.Slice(ruleIDs, func(i, j int) bool { return ruleIDs[i] < ruleIDs[j] })
		for _, id := range ruleIDs {
			sym, _ := g.Symbols.FindID(id)
			entry.Gotos = append(entry.Gotos, GotoEntry{Rule: sym.Name, State: st.Gotos[id]})
		}

		out = append(out, entry)
	}
	return out
}

func buildReduceFuncs(g *analyzer.Grammar) []ReduceFunc {
	out := make([]ReduceFunc, 0, len(g.Productions))
	for _, prod := range g.Productions {
		if prod.ID == g.TargetProd {
			// The target production S' -> S is an internal bookkeeping
			// production; it is never reduced by a generated parser, only
			// used to seed the accept action.
			continue
		}
		rule, _ := g.Symbols.FindID(prod.Rule)

		var itemTypes []ItemType
		for i := len(prod.RHS) - 1; i >= 0; i-- {
			item := prod.RHS[i]
			sym, _ := g.Symbols.FindID(item.Symbol)
			itemTypes = append(itemTypes, ItemType{
				Index: i,
				Type:  sym.TypeStr,
				Alias: item.Alias,
			})
		}

		out = append(out, ReduceFunc{
			ProdID:       int(prod.ID),
			RuleType:     rule.TypeStr,
			Symbol:       rule.Name,
			ItemTypes:    itemTypes,
			Block:        prod.Action,
			HasSemAction: prod.Action != "",
		})
	}
	return out
}

func buildVerbatim(g *analyzer.Grammar) map[string][]string {
	out := map[string][]string{}
	for _, loc := range ast.ValidVerbatimLocations {
		if blocks, ok := g.Verbatim[loc]; ok {
			out[string(loc)] = blocks
		}
	}
	return out
}

// String is a debugging aid: a terse one-line summary of the tree's names
// and element counts, not the shape a real renderer consumes.
func (d *Data) String() string {
	return fmt.Sprintf("Data{namespace=%q parser=%q lexer=%q states=%d reducefuncs=%d patterns=%d}",
		d.Namespace, d.ParserClass, d.LexerClass, len(d.States), len(d.ReduceFuncs), len(d.Patterns))
}
