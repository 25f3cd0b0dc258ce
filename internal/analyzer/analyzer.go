// Package analyzer turns a parsed internal/ast.File into a fully resolved
// grammar: a symbol table with every terminal's pattern classified and every
// precedence/associativity resolved, plus a flattened production list ready
// for internal/lrtable. It runs in the two passes spec.md §4.4 describes:
// Pass I registers every symbol and classifies every pattern in declaration
// order, Pass II resolves the references that can only be resolved once
// every symbol exists (rule items, termset/precedence/associativity
// targets). Grounded on original_source's analyzer_pass_1.cpp/
// analyzer_pass_2.cpp, adapted to the single left-to-right walk Pass I needs
// here (see DESIGN.md item 7 for why this differs from the original's
// lazier per-reference classification).
package analyzer

import (
	"fmt"
	"strings"

	"github.com/dekarrin/yalr/internal/ast"
	"github.com/dekarrin/yalr/internal/automaton"
	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/options"
	"github.com/dekarrin/yalr/internal/rpn"
	"github.com/dekarrin/yalr/internal/source"
	"github.com/dekarrin/yalr/internal/symbols"
)

// dollarName and primeSuffix are spellings no grammar source can produce:
// "$" is never a valid identifier character and "'" cannot appear inside
// one, so neither can collide with a user-declared symbol.
const (
	dollarName  = "$"
	primeSuffix = "'"
)

// lexemeAction is the canned action substituted for a `@lexeme` terminal and
// for a termset member with no explicit action but a declared type.
const lexemeAction = "return lexeme"

// Grammar is the fully analyzed grammar: the finalized symbol table, the
// flattened production list, the ID of the synthetic target production, and
// the collected verbatim-code blocks. This is what internal/lrtable and
// internal/emit consume.
type Grammar struct {
	Options     *options.Table
	Symbols     *symbols.Table
	Productions []symbols.Production
	TargetProd  symbols.ProdID
	Verbatim    map[ast.VerbatimLocation][]string

	// Success is false if any error was recorded against the sink passed to
	// Analyze; Productions and TargetProd should not be relied upon in that
	// case, though Symbols and Options are populated as far as analysis got.
	Success bool
}

type termEntry struct {
	id   symbols.ID
	stmt *ast.TermStmt
}

type ruleEntry struct {
	id   symbols.ID
	stmt *ast.RuleStmt
}

type termsetEntry struct {
	id   symbols.ID
	stmt *ast.TermsetStmt
}

type analyzer struct {
	sink *diag.Sink
	opts *options.Table
	syms *symbols.Table

	prodNext symbols.ProdID
	prods    []symbols.Production
	verbatim map[ast.VerbatimLocation][]string

	goalSeen  bool
	inlineNum int

	termStmts    []termEntry
	ruleStmts    []ruleEntry
	termsetStmts []termsetEntry
	assocStmts   []*ast.AssociativityStmt
	precStmts    []*ast.PrecedenceStmt
}

// Analyze runs both passes over file's statements and returns the resulting
// Grammar. Analyze always returns a non-nil Grammar; check Success before
// using Productions/TargetProd.
func Analyze(file *ast.File, sink *diag.Sink) *Grammar {
	a := &analyzer{
		sink:      sink,
		opts:      options.NewTable(),
		syms:      symbols.NewTable(),
		verbatim:  make(map[ast.VerbatimLocation][]string),
		inlineNum: 1,
	}
	a.passOne(file)
	a.passTwo()
	a.validatePatterns()

	g := &Grammar{
		Options:  a.opts,
		Symbols:  a.syms,
		Verbatim: a.verbatim,
	}
	if !sink.HasErrors() {
		a.finalize(g)
	} else {
		g.Productions = a.prods
	}
	g.Success = !sink.HasErrors()
	return g
}

// passOne walks every statement once, in declaration order, registering
// every symbol and resolving everything that doesn't require another
// symbol to already exist: class/namespace/option statements (applied
// immediately, since later duplicate-set errors depend on declaration
// order) and pattern classification (since lexer.case freezes on first
// classification, also an order-dependent effect).
func (a *analyzer) passOne(file *ast.File) {
	for _, stmt := range file.Statements {
		switch s := stmt.(type) {
		case *ast.ParserClassStmt:
			a.setOption(string(options.ParserClass), s.Name, s.Fragment())
		case *ast.LexerClassStmt:
			a.setOption(string(options.LexerClass), s.Name, s.Fragment())
		case *ast.NamespaceStmt:
			a.setOption(string(options.CodeNamespace), s.Name, s.Fragment())
		case *ast.OptionStmt:
			if !a.opts.Valid(s.Name) {
				a.sink.Errorf(s.Fragment(), "unknown option %q", s.Name)
				continue
			}
			a.setOption(s.Name, s.Value, s.Fragment())
		case *ast.TermStmt:
			a.registerTerm(s)
		case *ast.SkipStmt:
			a.registerSkip(s)
		case *ast.RuleStmt:
			a.registerRule(s)
		case *ast.TermsetStmt:
			a.registerTermset(s)
		case *ast.AssociativityStmt:
			a.assocStmts = append(a.assocStmts, s)
		case *ast.PrecedenceStmt:
			a.precStmts = append(a.precStmts, s)
		case *ast.VerbatimStmt:
			a.registerVerbatim(s)
		}
	}
}

func (a *analyzer) setOption(name, value string, at source.Fragment) {
	if err := a.opts.Set(name, value); err != nil {
		a.sink.Errorf(at, "%s", err)
	}
}

func (a *analyzer) registerTerm(s *ast.TermStmt) {
	typ := s.Type
	action := s.Action
	hasAction := s.HasAction

	switch {
	case typ == "@lexeme":
		if hasAction {
			a.sink.Errorf(s.Fragment(), "terminal %q: @lexeme cannot carry an explicit action", s.Name)
		}
		typ, action, hasAction = "string", lexemeAction, true
	case typ == "" && hasAction:
		a.sink.Errorf(s.Fragment(), "terminal %q: a void (untyped) terminal cannot carry an action", s.Name)
	}

	kind, pattern, mode := a.classifyPattern(s.Pattern, s.Case)
	sym := symbols.Symbol{
		Kind:        symbols.Terminal,
		Name:        s.Name,
		At:          s.Fragment(),
		TypeStr:     typ,
		Action:      action,
		PatternKind: kind,
		Pattern:     pattern,
		PatternAt:   s.Pattern.At,
		Case:        mode,
	}
	inserted, existing := a.syms.Add(s.Name, sym)
	if !inserted {
		a.sink.Errorf(s.Fragment(), "terminal %q already declared", s.Name)
		return
	}
	a.termStmts = append(a.termStmts, termEntry{id: existing.ID, stmt: s})
}

func (a *analyzer) registerSkip(s *ast.SkipStmt) {
	kind, pattern, mode := a.classifyPattern(s.Pattern, s.Case)
	sym := symbols.Symbol{
		Kind:        symbols.Skip,
		Name:        s.Name,
		At:          s.Fragment(),
		PatternKind: kind,
		Pattern:     pattern,
		PatternAt:   s.Pattern.At,
		Case:        mode,
	}
	if inserted, _ := a.syms.Add(s.Name, sym); !inserted {
		a.sink.Errorf(s.Fragment(), "skip %q already declared", s.Name)
	}
}

func (a *analyzer) registerRule(s *ast.RuleStmt) {
	if s.IsGoal {
		if a.goalSeen {
			a.sink.Errorf(s.Fragment(), "a grammar may declare at most one goal rule")
		}
		a.goalSeen = true
	}
	sym := symbols.Symbol{
		Kind:    symbols.Rule,
		Name:    s.Name,
		At:      s.Fragment(),
		TypeStr: s.Type,
		IsGoal:  s.IsGoal,
	}
	inserted, existing := a.syms.Add(s.Name, sym)
	if !inserted {
		a.sink.Errorf(s.Fragment(), "rule %q already declared", s.Name)
		return
	}
	a.ruleStmts = append(a.ruleStmts, ruleEntry{id: existing.ID, stmt: s})
}

func (a *analyzer) registerTermset(s *ast.TermsetStmt) {
	sym := symbols.Symbol{
		Kind:    symbols.Rule,
		Name:    s.Name,
		At:      s.Fragment(),
		TypeStr: s.Type,
	}
	inserted, existing := a.syms.Add(s.Name, sym)
	if !inserted {
		a.sink.Errorf(s.Fragment(), "symbol %q already declared", s.Name)
		return
	}
	a.termsetStmts = append(a.termsetStmts, termsetEntry{id: existing.ID, stmt: s})
}

func (a *analyzer) registerVerbatim(s *ast.VerbatimStmt) {
	if s.Location == "" {
		return // gramparse already reported the unknown-location error
	}
	a.verbatim[s.Location] = append(a.verbatim[s.Location], s.Action)
}

// classifyPattern resolves patt's PatternKind, pattern text (prefix and
// quotes stripped), and effective CaseMode, then freezes lexer.case: the
// first pattern classified in the file, in declaration order, is what
// freezes it (DESIGN.md item 2), regardless of whether it came from a term
// or a skip.
func (a *analyzer) classifyPattern(patt ast.Pattern, caseKind ast.CaseKind) (symbols.PatternKind, string, symbols.CaseMode) {
	defaultMode := a.opts.Case()
	a.opts.FreezeCase()

	if patt.IsString {
		mode := defaultMode
		switch caseKind {
		case ast.CaseMatch:
			mode = symbols.CaseMatch
		case ast.CaseFold:
			mode = symbols.CaseFold
		}
		return symbols.PatternString, unescapeQuoted(patt.Raw), mode
	}

	raw := patt.Raw
	prefix, mode := "", defaultMode
	switch {
	case strings.HasPrefix(raw, "rm:"):
		prefix, mode = "rm:", symbols.CaseMatch
	case strings.HasPrefix(raw, "rf:"):
		prefix, mode = "rf:", symbols.CaseFold
	case strings.HasPrefix(raw, "r:"):
		prefix = "r:"
	default:
		a.sink.Errorf(patt.At, "unrecognized pattern prefix in %q: expected \"'\", \"r:\", \"rm:\" or \"rf:\"", raw)
	}
	switch caseKind {
	case ast.CaseMatch:
		mode = symbols.CaseMatch
	case ast.CaseFold:
		mode = symbols.CaseFold
	}
	return symbols.PatternRegex, raw[len(prefix):], mode
}

func unescapeQuoted(raw string) string {
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			i++
			sb.WriteByte(raw[i])
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func toSymbolAssoc(k ast.AssocKind) symbols.Assoc {
	switch k {
	case ast.AssocLeft:
		return symbols.AssocLeft
	case ast.AssocRight:
		return symbols.AssocRight
	default:
		return symbols.AssocUnset
	}
}

// passTwo resolves everything that depends on the full symbol table
// existing: a term's own @assoc/@prec trailers (which may reference a
// symbol declared later in the file), the standalone precedence/
// associativity statements, termset expansion, and rule alternatives.
func (a *analyzer) passTwo() {
	a.resolveTermTrailers()
	a.applyPrecedenceStatements()
	a.applyAssociativityStatements()
	a.expandTermsets()
	a.resolveRules()
}

func (a *analyzer) resolveTermTrailers() {
	for _, e := range a.termStmts {
		sym, ok := a.syms.FindID(e.id)
		if !ok {
			continue
		}
		changed := false
		if e.stmt.Assoc != ast.AssocNone {
			sym.Associativity, sym.AssociativitySet = toSymbolAssoc(e.stmt.Assoc), true
			changed = true
		}
		if e.stmt.Prec.Kind != ast.PrecNone {
			if v, ok := a.resolvePrecRef(e.stmt.Prec); ok {
				sym.Precedence, sym.PrecedenceSet = v, true
				changed = true
			}
		}
		if changed {
			a.syms.Update(sym)
		}
	}
}

// resolvePrecRef resolves a `@prec=` or `precedence` level reference to its
// integer value. A bare number is returned directly; an identifier or
// quoted literal is resolved against a symbol that must already carry a
// precedence of its own.
func (a *analyzer) resolvePrecRef(ref ast.PrecRef) (int, bool) {
	switch ref.Kind {
	case ast.PrecNumber:
		return ref.Num, true
	case ast.PrecIdent:
		sym, ok := a.syms.Find(ref.Name)
		if !ok {
			a.sink.Errorf(ref.At, "unknown symbol %q in precedence reference", ref.Name)
			return 0, false
		}
		if !sym.PrecedenceSet {
			a.sink.Errorf(ref.At, "symbol %q has no precedence to reference", ref.Name)
			return 0, false
		}
		return sym.Precedence, true
	case ast.PrecLiteral:
		sym, ok := a.syms.Find(ref.Name)
		if !ok {
			a.sink.Errorf(ref.At, "literal %q has not been used as a terminal yet, so it has no precedence to reference", ref.Name)
			return 0, false
		}
		if !sym.PrecedenceSet {
			a.sink.Errorf(ref.At, "literal %q has no precedence to reference", ref.Name)
			return 0, false
		}
		return sym.Precedence, true
	default:
		return 0, false
	}
}

// resolveAssocPrecTarget resolves one item of an associativity/precedence/
// termset symbol list to the terminal it names, auto-registering a fresh
// inline terminal for a bare quoted literal the same way a rule body would.
func (a *analyzer) resolveAssocPrecTarget(item ast.Item) (symbols.ID, bool) {
	if item.IsQuoted {
		return a.resolveInlineTerminal(item.Literal, item.At), true
	}
	sym, ok := a.syms.Find(item.Name)
	if !ok {
		a.sink.Errorf(item.At, "unknown symbol %q", item.Name)
		return 0, false
	}
	if sym.Kind != symbols.Terminal {
		a.sink.Errorf(item.At, "only terminals may carry precedence or associativity, %q is a %s", item.Name, sym.Kind)
		return 0, false
	}
	return sym.ID, true
}

func (a *analyzer) applyPrecedenceStatements() {
	for _, s := range a.precStmts {
		level, ok := a.resolvePrecRef(s.Level)
		if !ok {
			continue
		}
		for _, item := range s.Symbols {
			id, ok := a.resolveAssocPrecTarget(item)
			if !ok {
				continue
			}
			sym, _ := a.syms.FindID(id)
			if sym.PrecedenceSet {
				a.sink.Errorf(item.At, "%q already has a precedence", sym.Name)
				continue
			}
			sym.Precedence, sym.PrecedenceSet = level, true
			a.syms.Update(sym)
		}
	}
}

func (a *analyzer) applyAssociativityStatements() {
	for _, s := range a.assocStmts {
		assoc := toSymbolAssoc(s.Assoc)
		for _, item := range s.Symbols {
			id, ok := a.resolveAssocPrecTarget(item)
			if !ok {
				continue
			}
			sym, _ := a.syms.FindID(id)
			if sym.AssociativitySet {
				a.sink.Errorf(item.At, "%q already has an associativity", sym.Name)
				continue
			}
			sym.Associativity, sym.AssociativitySet = assoc, true
			a.syms.Update(sym)
		}
	}
}

// resolveInlineTerminal looks up (or, on first use, registers) the
// synthetic terminal standing in for a bare quoted literal. Repeated uses
// of the same literal text across the grammar resolve to one terminal,
// the way original_source's symbol_table keys string patterns back to the
// symbol that already claims them.
func (a *analyzer) resolveInlineTerminal(literal string, at source.Fragment) symbols.ID {
	if sym, ok := a.syms.Find(literal); ok {
		return sym.ID
	}
	defaultMode := a.opts.Case()
	a.opts.FreezeCase()

	name := fmt.Sprintf("0TERM%d", a.inlineNum)
	a.inlineNum++
	sym := symbols.Symbol{
		Kind:        symbols.Terminal,
		Name:        name,
		At:          at,
		IsInline:    true,
		PatternKind: symbols.PatternString,
		Pattern:     unescapeQuoted(literal),
		PatternAt:   at,
		Case:        defaultMode,
	}
	_, stored := a.syms.Add(name, sym)
	a.syms.RegisterKey(literal, stored)
	return stored.ID
}

func (a *analyzer) resolveItem(item ast.Item) (symbols.ID, bool) {
	if item.IsQuoted {
		return a.resolveInlineTerminal(item.Literal, item.At), true
	}
	sym, ok := a.syms.Find(item.Name)
	if !ok {
		a.sink.Errorf(item.At, "unknown symbol %q", item.Name)
		return 0, false
	}
	if sym.Kind == symbols.Skip {
		a.sink.Errorf(item.At, "skip %q cannot appear in a rule", item.Name)
		return 0, false
	}
	return sym.ID, true
}

// impliedPrecedence resolves a production's effective precedence: an
// explicit `@prec=` wins; otherwise it is the precedence of the right-most
// RHS item that is a terminal (set or not - the search stops there), or no
// precedence at all if the RHS has no terminal.
func (a *analyzer) impliedPrecedence(rhs []symbols.Item, explicit ast.PrecRef) (int, bool) {
	if explicit.Kind != ast.PrecNone {
		return a.resolvePrecRef(explicit)
	}
	for i := len(rhs) - 1; i >= 0; i-- {
		sym, ok := a.syms.FindID(rhs[i].Symbol)
		if !ok || sym.Kind != symbols.Terminal {
			continue
		}
		if sym.PrecedenceSet {
			return sym.Precedence, true
		}
		return 0, false
	}
	return 0, false
}

func (a *analyzer) nextProdID() symbols.ProdID {
	id := a.prodNext
	a.prodNext++
	return id
}

func (a *analyzer) expandTermsets() {
	for _, e := range a.termsetStmts {
		s := e.stmt
		var tsAssoc symbols.Assoc
		var tsAssocSet bool
		if s.Assoc != ast.AssocNone {
			tsAssoc, tsAssocSet = toSymbolAssoc(s.Assoc), true
		}
		var tsPrec int
		var tsPrecSet bool
		if s.Prec.Kind != ast.PrecNone {
			if v, ok := a.resolvePrecRef(s.Prec); ok {
				tsPrec, tsPrecSet = v, true
			}
		}

		for _, member := range s.Members {
			id, ok := a.resolveAssocPrecTarget(member)
			if !ok {
				continue
			}
			if tsAssocSet {
				sym, _ := a.syms.FindID(id)
				if !sym.AssociativitySet {
					sym.Associativity, sym.AssociativitySet = tsAssoc, true
					a.syms.Update(sym)
				}
			}
			if tsPrecSet {
				sym, _ := a.syms.FindID(id)
				if !sym.PrecedenceSet {
					sym.Precedence, sym.PrecedenceSet = tsPrec, true
					a.syms.Update(sym)
				}
			}

			var action string
			switch {
			case s.HasAction:
				action = s.Action
			case s.Type != "":
				action = lexemeAction
			}

			prod := symbols.Production{
				ID:     a.nextProdID(),
				Rule:   e.id,
				RHS:    []symbols.Item{{Symbol: id}},
				Action: action,
				At:     member.At,
			}
			if v, ok := a.impliedPrecedence(prod.RHS, ast.PrecRef{}); ok {
				prod.Precedence, prod.PrecedenceSet = v, true
			}
			a.prods = append(a.prods, prod)
		}
	}
}

func (a *analyzer) resolveRules() {
	for _, e := range a.ruleStmts {
		for _, alt := range e.stmt.Alternatives {
			var rhs []symbols.Item
			for _, item := range alt.Items {
				id, ok := a.resolveItem(item)
				if !ok {
					continue
				}
				if item.Alias != "" {
					sym, _ := a.syms.FindID(id)
					if sym.TypeStr == "" {
						a.sink.Errorf(item.At, "cannot alias %q: it has no value (void type)", item.Name)
					}
				}
				rhs = append(rhs, symbols.Item{Symbol: id, Alias: item.Alias})
			}
			prod := symbols.Production{
				ID:   a.nextProdID(),
				Rule: e.id,
				RHS:  rhs,
				At:   alt.At,
			}
			if alt.HasAction {
				prod.Action = alt.Action
			}
			if v, ok := a.impliedPrecedence(rhs, alt.Prec); ok {
				prod.Precedence, prod.PrecedenceSet = v, true
			}
			a.prods = append(a.prods, prod)
		}
	}
}

// validatePatterns compiles every declared pattern through internal/rpn,
// surfacing pattern errors (bad escapes, empty classes, dangling ranges)
// before table generation ever runs, flags two symbols that declare the
// exact same pattern text as a duplicate definition, and runs each pattern
// the rest of the way through internal/automaton (RPN -> NFA -> DFA, the
// same pipeline the emitted lexer ultimately runs) to catch a pattern that
// matches the empty string before it ever reaches a real lexer.
func (a *analyzer) validatePatterns() {
	seen := make(map[string]symbols.Symbol)
	for _, sym := range a.syms.All() {
		if sym.Kind != symbols.Terminal && sym.Kind != symbols.Skip {
			continue
		}
		if sym.PatternKind == symbols.PatternNone {
			continue
		}

		mode := rpn.FullRegex
		if sym.PatternKind == symbols.PatternString {
			mode = rpn.SimpleString
		}
		prog := rpn.Compile(sym.PatternAt, mode, a.sink)
		if prog != nil {
			a.validateNotEmptyMatch(sym, prog)
		}

		key := fmt.Sprintf("%d\x00%s\x00%s", sym.PatternKind, sym.Pattern, sym.Case)
		if existing, dup := seen[key]; dup {
			if !sym.IsInline && !existing.IsInline {
				a.sink.Errorf(sym.At, "%q's pattern duplicates %q's", sym.Name, existing.Name)
			}
			continue
		}
		seen[key] = sym
	}
}

// validateNotEmptyMatch builds sym's compiled pattern into a DFA and rejects
// one that accepts the empty string: a lexer that matched such a pattern
// would never consume any input and would loop forever at that position.
func (a *analyzer) validateNotEmptyMatch(sym symbols.Symbol, prog rpn.Program) {
	nfa := automaton.BuildNFA([]automaton.Pattern{{Symbol: sym.ID, Prog: prog, Fold: sym.Case == symbols.CaseFold}})
	dfa := nfa.ToDFA()
	if matched, length, _ := dfa.Match(""); matched && length == 0 {
		a.sink.Errorf(sym.PatternAt, "%q's pattern matches the empty string", sym.Name)
	}
}

// finalize adds the end-of-input pseudo-terminal and synthesizes the
// goal-prime rule and its single target production `S' -> S` once a
// grammar passes both passes cleanly. The end-of-input terminal is not part
// of the target production's RHS.
func (a *analyzer) finalize(g *Grammar) {
	goal, ok := a.syms.Goal()
	if !ok {
		a.sink.Errorf(source.Fragment{}, "grammar has no goal rule")
		g.Productions = a.prods
		g.Success = false
		return
	}

	dollar := symbols.Symbol{Kind: symbols.Terminal, Name: dollarName, PatternKind: symbols.PatternNone}
	a.syms.Add(dollarName, dollar)

	primeName := goal.Name + primeSuffix
	prime := symbols.Symbol{Kind: symbols.Rule, Name: primeName, TypeStr: goal.TypeStr}
	_, primeSym := a.syms.Add(primeName, prime)

	target := symbols.Production{
		ID:   a.nextProdID(),
		Rule: primeSym.ID,
		RHS:  []symbols.Item{{Symbol: goal.ID}},
	}
	a.prods = append(a.prods, target)

	g.Productions = a.prods
	g.TargetProd = target.ID
}
