// Package lrtable builds the SLR(1) ACTION/GOTO table from an analyzed
// grammar. Grounded on original_source's src/lib/algo/slr_tablegen.cpp
// (Aho, Sethi, Ullman, "Compilers: Principles, Techniques, and Tools",
// section 4.7): closure/goto construction via BFS over LR(0) item sets,
// FIRST/FOLLOW via fixed-point iteration, and shift/reduce and
// reduce/reduce conflict resolution by precedence and associativity.
package lrtable

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dekarrin/rosed"
	"github.com/dekarrin/yalr/internal/analyzer"
	"github.com/dekarrin/yalr/internal/diag"
	"github.com/dekarrin/yalr/internal/symbols"
	"github.com/dekarrin/yalr/internal/util"
	"github.com/google/uuid"
)

const dollarName = "$"

// ActionType distinguishes the kinds of entries an ACTION table cell can
// hold.
type ActionType int

const (
	ActionError ActionType = iota
	ActionShift
	ActionReduce
	ActionAccept
)

func (t ActionType) String() string {
	switch t {
	case ActionShift:
		return "shift"
	case ActionReduce:
		return "reduce"
	case ActionAccept:
		return "accept"
	default:
		return "error"
	}
}

// Action is one ACTION table cell.
type Action struct {
	Type ActionType

	// State is the target state, set when Type is ActionShift.
	State int

	// Prod is the production to reduce by, set when Type is ActionReduce.
	Prod symbols.ProdID

	// PopCount is the number of states to pop before reducing, set when
	// Type is ActionReduce. It is always len(RHS) of the reduced
	// production, computed once here so internal/emit never has to
	// re-derive (and risk off-by-one on) the pop count itself.
	PopCount int
}

func (a Action) String() string {
	switch a.Type {
	case ActionShift:
		return fmt.Sprintf("shift %d", a.State)
	case ActionReduce:
		return fmt.Sprintf("reduce %d", a.Prod)
	case ActionAccept:
		return "accept"
	default:
		return "error"
	}
}

// Item is an LR(0) item: a production together with how far its dot has
// advanced through the right-hand side.
type Item struct {
	Prod symbols.ProdID
	Pos  int
}

// State is one state of the LR(0) viable-prefix automaton, decorated with
// its SLR ACTION (on terminals) and GOTO (on rule symbols) rows.
type State struct {
	ID      int
	Items   []Item
	Actions map[symbols.ID]Action
	Gotos   map[symbols.ID]int
}

// Conflict records a shift/reduce or reduce/reduce ambiguity encountered
// while building the ACTION table, and how (or whether) it was resolved.
// Kept for the -d trace and for state-file rendering; it is not itself an
// error unless Resolved is false.
type Conflict struct {
	State    int
	Symbol   symbols.ID
	Kind     string // "shift/reduce" or "reduce/reduce"
	Chosen   Action
	Rejected Action
	Resolved bool
}

// symbolSet is a FIRST/FOLLOW set, built on util.KeySet (the teacher's
// generic set type, carried from internal/ictiobus/util; internal/automaton
// also uses it for its NFA state sets).
type symbolSet = util.KeySet[symbols.ID]

func newSymbolSet() symbolSet { return util.NewKeySet[symbols.ID]() }

// addChanged adds id to s, reporting whether s did not already contain it,
// the way the FIRST/FOLLOW fixed-point loop needs to detect convergence.
func addChanged(s symbolSet, id symbols.ID) bool {
	if s.Has(id) {
		return false
	}
	s.Add(id)
	return true
}

// addSetChanged adds every element of o to s, reporting whether s grew.
func addSetChanged(s, o symbolSet) bool {
	changed := false
	for _, id := range o.Elements() {
		if addChanged(s, id) {
			changed = true
		}
	}
	return changed
}

// Table is the complete SLR(1) parse table for a grammar, plus the
// FIRST/FOLLOW/epsilon sets used to derive its reduce actions and the
// conflicts encountered while resolving them.
type Table struct {
	// RunID identifies this particular table-generation run. It is stamped
	// into the -S state file header so two dumps from separate runs of the
	// same grammar are never mistaken for each other.
	RunID uuid.UUID

	Grammar   *analyzer.Grammar
	States    []State
	First     map[symbols.ID]symbolSet
	Follow    map[symbols.ID]symbolSet
	Epsilon   map[symbols.ID]bool
	Conflicts []Conflict

	prodByID map[symbols.ProdID]symbols.Production
}

// Build constructs the SLR(1) ACTION/GOTO table for g. Unresolvable
// shift/reduce conflicts (no precedence or associativity to break the tie)
// are reported through sink; reduce/reduce conflicts are always resolved
// (higher-precedence production wins ties going to whichever production
// was found first) and never reported as errors, matching
// original_source's behavior.
func Build(g *analyzer.Grammar, sink *diag.Sink) *Table {
	prodByID := make(map[symbols.ProdID]symbols.Production, len(g.Productions))
	prodsByRule := make(map[symbols.ID][]symbols.ProdID)
	for _, p := range g.Productions {
		prodByID[p.ID] = p
		prodsByRule[p.Rule] = append(prodsByRule[p.Rule], p.ID)
	}

	t := &Table{Grammar: g, prodByID: prodByID, RunID: uuid.New()}

	closure := func(seed []Item) []Item {
		seen := make(map[Item]bool)
		seenRule := make(map[symbols.ID]bool)
		queue := append([]Item(nil), seed...)
		var out []Item
		for len(queue) > 0 {
			it := queue[0]
			queue = queue[1:]
			if seen[it] {
				continue
			}
			seen[it] = true
			out = append(out, it)

			prod := prodByID[it.Prod]
			if it.Pos >= len(prod.RHS) {
				continue
			}
			next := prod.RHS[it.Pos].Symbol
			sym, ok := g.Symbols.FindID(next)
			if !ok || sym.Kind != symbols.Rule {
				continue
			}
			if seenRule[next] {
				continue
			}
			seenRule[next] = true
			for _, pid := range prodsByRule[next] {
				queue = append(queue, Item{Prod: pid, Pos: 0})
			}
		}
		return out
	}

	gotoSet := func(items []Item, x symbols.ID) []Item {
		var moved []Item
		for _, it := range items {
			prod := prodByID[it.Prod]
			if it.Pos < len(prod.RHS) && prod.RHS[it.Pos].Symbol == x {
				moved = append(moved, Item{Prod: it.Prod, Pos: it.Pos + 1})
			}
		}
		if len(moved) == 0 {
			return nil
		}
		return closure(moved)
	}

	keyOf := func(items []Item) string {
		sorted := append([]Item(nil), items...)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Prod != sorted[j].Prod {
				return sorted[i].Prod < sorted[j].Prod
			}
			return sorted[i].Pos < sorted[j].Pos
		})
		var b strings.Builder
		for _, it := range sorted {
			fmt.Fprintf(&b, "%d:%d,", it.Prod, it.Pos)
		}
		return b.String()
	}

	start := closure([]Item{{Prod: g.TargetProd, Pos: 0}})

	stateIndex := map[string]int{keyOf(start): 0}
	states := []State{{ID: 0, Items: start, Actions: map[symbols.ID]Action{}, Gotos: map[symbols.ID]int{}}}

	allSyms := g.Symbols.All()
	queue := []int{0}
	for len(queue) > 0 {
		sid := queue[0]
		queue = queue[1:]
		curItems := states[sid].Items

		// Shifts and gotos are computed before reduces, so that every
		// shift/reduce conflict is resolved while adding the reduce side.
		for _, sym := range allSyms {
			if sym.Kind == symbols.Skip {
				continue
			}
			is := gotoSet(curItems, sym.ID)
			if len(is) == 0 {
				continue
			}
			k := keyOf(is)
			target, ok := stateIndex[k]
			if !ok {
				target = len(states)
				states = append(states, State{ID: target, Items: is, Actions: map[symbols.ID]Action{}, Gotos: map[symbols.ID]int{}})
				stateIndex[k] = target
				queue = append(queue, target)
			}
			if sym.Kind == symbols.Rule {
				states[sid].Gotos[sym.ID] = target
			} else {
				states[sid].Actions[sym.ID] = Action{Type: ActionShift, State: target}
			}
		}
	}
	t.States = states

	t.computeFirstFollow()
	t.computeReduceActions(sink)

	return t
}

func (t *Table) computeFirstFollow() {
	g := t.Grammar
	first := make(map[symbols.ID]symbolSet)
	follow := make(map[symbols.ID]symbolSet)
	epsilon := make(map[symbols.ID]bool)

	targetProd := t.prodByID[g.TargetProd]
	dollar, _ := g.Symbols.Find(dollarName)

	for _, sym := range g.Symbols.All() {
		switch sym.Kind {
		case symbols.Terminal:
			fs := newSymbolSet()
			fs.Add(sym.ID)
			first[sym.ID] = fs
		case symbols.Rule:
			first[sym.ID] = newSymbolSet()
			f := newSymbolSet()
			if sym.ID == targetProd.Rule {
				f.Add(dollar.ID)
			}
			follow[sym.ID] = f
		}
	}

	updated := true
	for updated {
		updated = false
		for _, prod := range t.prodByID {
			isEpsilon := true
			for _, item := range prod.RHS {
				if sf := first[item.Symbol]; sf.Len() > 0 {
					if addSetChanged(first[prod.Rule], sf) {
						updated = true
					}
				}
				if !epsilon[item.Symbol] {
					isEpsilon = false
					break
				}
			}
			if isEpsilon && !epsilon[prod.Rule] {
				epsilon[prod.Rule] = true
				updated = true
			}

			// Follow propagates backwards through the RHS: FOLLOW(LHS) is
			// added to FOLLOW of the rightmost symbol, then propagation
			// continues through symbols that can produce epsilon, stopping
			// at (and switching to the FIRST set of) the first symbol that
			// cannot.
			aux := follow[prod.Rule]
			var tempset symbolSet
			usingTemp := false
			for i := len(prod.RHS) - 1; i >= 0; i-- {
				sid := prod.RHS[i].Symbol
				sym, _ := g.Symbols.FindID(sid)
				if sym.Kind == symbols.Rule {
					if addSetChanged(follow[sid], aux) {
						updated = true
					}
				}
				if epsilon[sid] {
					if !usingTemp {
						tempset = newSymbolSet()
						addSetChanged(tempset, aux)
						usingTemp = true
					}
					addSetChanged(tempset, first[sid])
					aux = tempset
				} else {
					aux = first[sid]
					usingTemp = false
				}
			}
		}
	}

	t.First = first
	t.Follow = follow
	t.Epsilon = epsilon
}

func (t *Table) computeReduceActions(sink *diag.Sink) {
	g := t.Grammar
	dollar, _ := g.Symbols.Find(dollarName)

	for si := range t.States {
		state := &t.States[si]
		for _, item := range state.Items {
			prod := t.prodByID[item.Prod]
			if item.Pos < len(prod.RHS) {
				continue
			}
			if item.Prod == g.TargetProd {
				state.Actions[dollar.ID] = Action{Type: ActionAccept}
				continue
			}
			for followSym := range t.Follow[prod.Rule] {
				sym, ok := g.Symbols.FindID(followSym)
				if !ok || sym.Kind != symbols.Terminal {
					continue
				}
				reduceAct := Action{Type: ActionReduce, Prod: item.Prod, PopCount: len(prod.RHS)}
				existing, has := state.Actions[followSym]
				if !has {
					state.Actions[followSym] = reduceAct
					continue
				}
				t.resolveConflict(state, followSym, existing, reduceAct, sink)
			}
		}
	}
}

func (t *Table) resolveConflict(state *State, sym symbols.ID, existing, incoming Action, sink *diag.Sink) {
	symSym, _ := t.Grammar.Symbols.FindID(sym)
	newProd := t.prodByID[incoming.Prod]

	if existing.Type == ActionShift {
		termPrec := symSym.EffectivePrecedence()
		prodPrec := newProd.EffectivePrecedence()

		willShift := termPrec > prodPrec || (termPrec == prodPrec && symSym.Associativity == symbols.AssocRight)
		willReduce := prodPrec > termPrec || (termPrec == prodPrec && symSym.Associativity == symbols.AssocLeft)

		c := Conflict{State: state.ID, Symbol: sym, Kind: "shift/reduce", Chosen: existing, Rejected: incoming}
		switch {
		case !willShift && !willReduce:
			c.Resolved = false
			sink.Errorf(newProd.At, "shift/reduce conflict on %q in state %d has no precedence or associativity to resolve it (against production %d)", symSym.Name, state.ID, incoming.Prod)
		case willShift:
			c.Resolved = true
		case willReduce:
			state.Actions[sym] = incoming
			c.Chosen, c.Rejected = incoming, existing
			c.Resolved = true
		}
		t.Conflicts = append(t.Conflicts, c)
		return
	}

	// Reduce/reduce: the higher-precedence production wins. A tie (including
	// the common case of neither production having a precedence) keeps
	// whichever production was already installed, i.e. the one whose item
	// came first in this state's item set.
	oldProd := t.prodByID[existing.Prod]
	c := Conflict{State: state.ID, Symbol: sym, Kind: "reduce/reduce", Chosen: existing, Rejected: incoming, Resolved: true}
	if newProd.EffectivePrecedence() > oldProd.EffectivePrecedence() {
		state.Actions[sym] = incoming
		c.Chosen, c.Rejected = incoming, existing
	}
	t.Conflicts = append(t.Conflicts, c)
}

// String renders the state table as a human-readable grid, one row per
// state, one column per terminal (including "$") and per rule.
func (t *Table) String() string {
	g := t.Grammar
	var termCols []symbols.Symbol
	var ruleCols []symbols.Symbol
	for _, sym := range g.Symbols.All() {
		switch sym.Kind {
		case symbols.Terminal:
			termCols = append(termCols, sym)
		case symbols.Rule:
			ruleCols = append(ruleCols, sym)
		}
	}

	headers := []string{"state"}
	for _, sym := range termCols {
		headers = append(headers, sym.Name)
	}
	for _, sym := range ruleCols {
		headers = append(headers, sym.Name)
	}

	data := [][]string{headers}
	for _, st := range t.States {
		row := []string{fmt.Sprintf("%d", st.ID)}
		for _, sym := range termCols {
			if act, ok := st.Actions[sym.ID]; ok {
				row = append(row, act.String())
			} else {
				row = append(row, "")
			}
		}
		for _, sym := range ruleCols {
			if gt, ok := st.Gotos[sym.ID]; ok {
				row = append(row, fmt.Sprintf("%d", gt))
			} else {
				row = append(row, "")
			}
		}
		data = append(data, row)
	}

	return rosed.Edit("").
		InsertTableOpts(0, data, 20, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}

// WriteStateFile writes a full human-readable dump of the table: the
// production list tagged with resolved precedence, one block per LR state
// listing its item set and its action/goto rows, and a trailing conflict
// report. Grounded on original_source's pretty_print family in
// slr_tablegen.cpp, reproducing its shape rather than its literal text.
func (t *Table) WriteStateFile(w io.Writer) error {
	g := t.Grammar

	bw := &errWriter{w: w}
	bw.printf("run %s\n\n", t.RunID)
	bw.printf("productions:\n")
	for _, prod := range g.Productions {
		rule, _ := g.Symbols.FindID(prod.Rule)
		bw.printf("  [%d] %s =>", prod.ID, rule.Name)
		for _, item := range prod.RHS {
			sym, _ := g.Symbols.FindID(item.Symbol)
			bw.printf(" %s", sym.Name)
		}
		if prod.PrecedenceSet {
			bw.printf("  (prec %d)", prod.Precedence)
		}
		bw.printf("\n")
	}

	bw.printf("\nstates:\n")
	for _, st := range t.States {
		bw.printf("state %d:\n", st.ID)
		for _, item := range st.Items {
			bw.printf("  %s\n", t.formatItem(item))
		}

		var termIDs []symbols.ID
		for id := range st.Actions {
			termIDs = append(termIDs, id)
		}
		sort.Slice(termIDs, func(i, j int) bool { return termIDs[i] < termIDs[j] })
		for _, id := range termIDs {
			sym, _ := g.Symbols.FindID(id)
			bw.printf("  on %s: %s\n", sym.Name, st.Actions[id])
		}

		var ruleIDs []symbols.ID
		for id := range st.Gotos {
			ruleIDs = append(ruleIDs, id)
		}
		sort.Slice(ruleIDs, func(i, j int) bool { return ruleIDs[i] < ruleIDs[j] })
		for _, id := range ruleIDs {
			sym, _ := g.Symbols.FindID(id)
			bw.printf("  goto %s: %d\n", sym.Name, st.Gotos[id])
		}
	}

	if len(t.Conflicts) > 0 {
		bw.printf("\nconflicts:\n")
		for _, c := range t.Conflicts {
			sym, _ := g.Symbols.FindID(c.Symbol)
			status := "resolved"
			if !c.Resolved {
				status = "UNRESOLVED"
			}
			bw.printf("  state %d, %s on %q: kept %s, dropped %s (%s)\n",
				c.State, c.Kind, sym.Name, c.Chosen, c.Rejected, status)
		}
	}

	return bw.err
}

func (t *Table) formatItem(item Item) string {
	prod := t.prodByID[item.Prod]
	rule, _ := t.Grammar.Symbols.FindID(prod.Rule)
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s =>", item.Prod, rule.Name)
	for i, rhsItem := range prod.RHS {
		if i == item.Pos {
			b.WriteString(" .")
		}
		sym, _ := t.Grammar.Symbols.FindID(rhsItem.Symbol)
		fmt.Fprintf(&b, " %s", sym.Name)
	}
	if item.Pos >= len(prod.RHS) {
		b.WriteString(" .")
	}
	return b.String()
}

// errWriter lets WriteStateFile's body read linearly, deferring error
// checks to a single check at the end instead of after every printf.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
