// Package automaton builds byte-oriented Thompson NFAs from compiled regex
// programs, turns them into DFAs via subset construction, and runs the
// resulting DFA with longest-match semantics. Ported from
// original_source's src/include/codegen/fsm.hpp (data shapes) and
// src/lib/codegen/dfa_builder.cpp (the subset-construction algorithm).
package automaton

import (
	"github.com/dekarrin/yalr/internal/rpn"
	"github.com/dekarrin/yalr/internal/symbols"
)

// StateID identifies a state within a single NFA or DFA. IDs are only
// unique within the machine that assigned them.
type StateID int

const epsilon = -1 // sentinel key used nowhere a real byte can appear

// NFAState is one state of a Thompson construction: a set of byte-keyed
// transitions plus a separate list of epsilon transitions, and, if
// accepting, the single symbol it accepts. Mirrors fsm.hpp's nfa_state.
type NFAState struct {
	ID          StateID
	Transitions map[byte][]StateID
	Epsilon     []StateID
	Accepting   bool
	Accepts     symbols.ID
}

// NFA is a complete nondeterministic automaton: every terminal/skip pattern
// compiled and unioned under one start state via epsilon transitions.
type NFA struct {
	States map[StateID]*NFAState
	Start  StateID
	nextID StateID
}

func newNFA() *NFA {
	return &NFA{States: make(map[StateID]*NFAState)}
}

func (n *NFA) newState() *NFAState {
	st := &NFAState{ID: n.nextID, Transitions: make(map[byte][]StateID)}
	n.States[st.ID] = st
	n.nextID++
	return st
}

func (n *NFA) addEpsilon(from, to StateID) {
	st := n.States[from]
	st.Epsilon = append(st.Epsilon, to)
}

func (n *NFA) addByte(from StateID, b byte, to StateID) {
	st := n.States[from]
	st.Transitions[b] = append(st.Transitions[b], to)
}

// fragment is a partially built piece of NFA with exactly one dangling
// accept state (Thompson's construction invariant: every fragment has one
// entry and one un-accepting exit state, until patched into something
// larger or finally marked as the whole pattern's accept state).
type fragment struct {
	start StateID
	end   StateID
}

// foldByte returns the opposite-case byte for ASCII letters, or b itself
// for anything else.
func foldByte(b byte) byte {
	switch {
	case b >= 'a' && b <= 'z':
		return b - ('a' - 'A')
	case b >= 'A' && b <= 'Z':
		return b + ('a' - 'A')
	default:
		return b
	}
}

func (n *NFA) literalFrag(b byte, fold bool) fragment {
	s, e := n.newState(), n.newState()
	n.addByte(s.ID, b, e.ID)
	if fold {
		fb := foldByte(b)
		if fb != b {
			n.addByte(s.ID, fb, e.ID)
		}
	}
	return fragment{s.ID, e.ID}
}

func (n *NFA) rangeFrag(lo, hi byte, fold bool) fragment {
	s, e := n.newState(), n.newState()
	for b := int(lo); b <= int(hi); b++ {
		n.addByte(s.ID, byte(b), e.ID)
		if fold {
			fb := foldByte(byte(b))
			if fb != byte(b) {
				n.addByte(s.ID, fb, e.ID)
			}
		}
	}
	return fragment{s.ID, e.ID}
}

func (n *NFA) concatFrag(a, b fragment) fragment {
	n.addEpsilon(a.end, b.start)
	return fragment{a.start, b.end}
}

func (n *NFA) unionFrag(a, b fragment) fragment {
	s, e := n.newState(), n.newState()
	n.addEpsilon(s.ID, a.start)
	n.addEpsilon(s.ID, b.start)
	n.addEpsilon(a.end, e.ID)
	n.addEpsilon(b.end, e.ID)
	return fragment{s.ID, e.ID}
}

// starFrag, plusFrag and optionFrag all build the same shape regardless of
// whether the source pattern used the greedy or non-greedy modifier: a DFA
// only recognizes a language, it has no notion of "which submatch", so
// greedy/non-greedy only matters to a backtracking engine trying to report
// submatches, which this lexer generator never does (spec.md's DFA engine
// only ever reports whole-pattern longest match).
func (n *NFA) starFrag(f fragment) fragment {
	s, e := n.newState(), n.newState()
	n.addEpsilon(s.ID, f.start)
	n.addEpsilon(s.ID, e.ID)
	n.addEpsilon(f.end, f.start)
	n.addEpsilon(f.end, e.ID)
	return fragment{s.ID, e.ID}
}

func (n *NFA) plusFrag(f fragment) fragment {
	s, e := n.newState(), n.newState()
	n.addEpsilon(s.ID, f.start)
	n.addEpsilon(f.end, f.start)
	n.addEpsilon(f.end, e.ID)
	return fragment{s.ID, e.ID}
}

func (n *NFA) optionFrag(f fragment) fragment {
	s, e := n.newState(), n.newState()
	n.addEpsilon(s.ID, f.start)
	n.addEpsilon(s.ID, e.ID)
	n.addEpsilon(f.end, e.ID)
	return fragment{s.ID, e.ID}
}

// emptyFrag builds a fragment matching the empty string: one epsilon
// transition and nothing else, the fragment rpn.Empty compiles to for the
// missing branch of an alternation like "a|" or "|a".
func (n *NFA) emptyFrag() fragment {
	s, e := n.newState(), n.newState()
	n.addEpsilon(s.ID, e.ID)
	return fragment{s.ID, e.ID}
}

// buildFragment compiles a single rpn.Program into one NFA fragment via the
// standard postfix-stack-machine evaluation.
func (n *NFA) buildFragment(prog rpn.Program, fold bool) fragment {
	var stack []fragment
	pop := func() fragment {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return f
	}
	for _, inst := range prog {
		switch inst.Op {
		case rpn.Literal:
			stack = append(stack, n.literalFrag(inst.Op1, fold))
		case rpn.Range:
			stack = append(stack, n.rangeFrag(inst.Op1, inst.Op2, fold))
		case rpn.Concat:
			b, a := pop(), pop()
			stack = append(stack, n.concatFrag(a, b))
		case rpn.Join:
			b, a := pop(), pop()
			stack = append(stack, n.unionFrag(a, b))
		case rpn.Close, rpn.NClose:
			stack = append(stack, n.starFrag(pop()))
		case rpn.Plus, rpn.NPlus:
			stack = append(stack, n.plusFrag(pop()))
		case rpn.Option, rpn.NOption:
			stack = append(stack, n.optionFrag(pop()))
		case rpn.Empty:
			stack = append(stack, n.emptyFrag())
		}
	}
	return pop()
}

// Pattern pairs a compiled RPN program with the symbol it accepts and
// whether that symbol folds case.
type Pattern struct {
	Symbol symbols.ID
	Prog   rpn.Program
	Fold   bool
}

// BuildNFA unions the NFAs of every given pattern under one fresh start
// state connected by epsilon transitions, exactly as original_source's
// nfa_machine union-in construction does for combining per-pattern
// machines into the lexer's overall NFA.
func BuildNFA(patterns []Pattern) *NFA {
	n := newNFA()
	start := n.newState()
	n.Start = start.ID

	for _, p := range patterns {
		frag := n.buildFragment(p.Prog, p.Fold)
		n.addEpsilon(start.ID, frag.start)
		acceptState := n.States[frag.end]
		acceptState.Accepting = true
		acceptState.Accepts = p.Symbol
	}
	return n
}
