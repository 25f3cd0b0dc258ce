package automaton

import (
	"sort"

	"github.com/dekarrin/yalr/internal/symbols"
	"github.com/dekarrin/yalr/internal/util"
)

// DFAState is one state of a deterministic automaton built by subset
// construction: a byte-keyed transition table and, if accepting, the set of
// every symbol any NFA state folded into it accepts. Mirrors fsm.hpp's
// dfa_state.
type DFAState struct {
	ID          StateID
	Transitions map[byte]StateID
	Accepting   bool
	// Accepts is ordered by ascending symbols.ID (declaration order), so
	// Accepts[0] is always the longest-match winner per spec.md's
	// declaration-order tie-break rule.
	Accepts []symbols.ID
}

// DFA is a complete deterministic automaton.
type DFA struct {
	States map[StateID]*DFAState
	Start  StateID
}

// nfaStateSet is a subset-construction worklist item: the set of NFA states
// one DFA state folds together. Built on util.KeySet, the teacher's generic
// set type, the same way internal/lrtable's symbolSet is.
type nfaStateSet = util.KeySet[StateID]

func setKey(s nfaStateSet) string {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	out := make([]byte, 0, len(ids)*4)
	for _, id := range ids {
		out = append(out, byte(id), byte(id>>8), byte(id>>16), byte(id>>24), ',')
	}
	return string(out)
}

// epsilonClose mutates set in place to include every NFA state reachable
// from it via zero or more epsilon transitions, using a worklist exactly
// the way original_source's epsilon_close does.
func epsilonClose(set nfaStateSet, nfa *NFA) {
	queue := make([]StateID, 0, len(set))
	for id := range set {
		queue = append(queue, id)
	}
	seen := make(map[StateID]bool)
	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		st := nfa.States[cur]
		for _, to := range st.Epsilon {
			set[to] = true
			if !seen[to] {
				queue = append(queue, to)
			}
		}
	}
}

// ToDFA performs subset construction on the NFA, producing a DFA whose
// accepting states aggregate every symbol accepted by any NFA state in
// their underlying set. Ported from dfa_builder.cpp's build_dfa.
func (n *NFA) ToDFA() *DFA {
	start := nfaStateSet{n.Start: true}
	epsilonClose(start, n)

	type transMap map[byte]nfaStateSet

	discovered := make(map[string]nfaStateSet)
	transitionsOf := make(map[string]transMap)

	queue := []nfaStateSet{start}
	discovered[setKey(start)] = start

	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		key := setKey(cur)
		if _, done := transitionsOf[key]; done {
			continue
		}

		tm := transMap{}
		for id := range cur {
			st := n.States[id]
			for b, dests := range st.Transitions {
				for _, d := range dests {
					if tm[b] == nil {
						tm[b] = nfaStateSet{}
					}
					tm[b][d] = true
				}
			}
		}
		for b, destSet := range tm {
			epsilonClose(destSet, n)
			dkey := setKey(destSet)
			if _, ok := discovered[dkey]; !ok {
				discovered[dkey] = destSet
				queue = append(queue, destSet)
			}
			tm[b] = discovered[dkey]
		}
		transitionsOf[key] = tm
	}

	idOf := make(map[string]StateID)
	var nextID StateID
	for key := range transitionsOf {
		idOf[key] = nextID
		nextID++
	}

	dfa := &DFA{States: make(map[StateID]*DFAState), Start: idOf[setKey(start)]}
	for key, set := range discovered {
		id, ok := idOf[key]
		if !ok {
			continue
		}
		ds := &DFAState{ID: id, Transitions: make(map[byte]StateID)}
		for b, destSet := range transitionsOf[key] {
			ds.Transitions[b] = idOf[setKey(destSet)]
		}

		acceptSet := map[symbols.ID]bool{}
		for nid := range set {
			nst := n.States[nid]
			if nst.Accepting {
				acceptSet[nst.Accepts] = true
			}
		}
		if len(acceptSet) > 0 {
			ds.Accepting = true
			for sid := range acceptSet {
				ds.Accepts = append(ds.Accepts, sid)
			}
			sort.Slice(ds.Accepts, func(i, j int) bool { return ds.Accepts[i] < ds.Accepts[j] })
		}
		dfa.States[id] = ds
	}

	return dfa
}

// Match runs the DFA over input starting at offset 0, advancing as far as
// possible and remembering the last position at which the current state was
// accepting. It returns whether any accepting position was reached, the
// length of the longest matched prefix, and the accepted symbols at that
// position ordered by declaration order (lowest id first, the winner per
// spec.md's tie-break rule). This is "longest match with tie-break" from
// spec.md §4.3.
func (d *DFA) Match(input string) (matched bool, length int, accepted []symbols.ID) {
	state := d.Start
	lastAcceptLen := -1
	var lastAccepted []symbols.ID

	if st := d.States[state]; st.Accepting {
		lastAcceptLen = 0
		lastAccepted = st.Accepts
	}

	for i := 0; i < len(input); i++ {
		st := d.States[state]
		next, ok := st.Transitions[input[i]]
		if !ok {
			break
		}
		state = next
		if nst := d.States[state]; nst.Accepting {
			lastAcceptLen = i + 1
			lastAccepted = nst.Accepts
		}
	}

	if lastAcceptLen < 0 {
		return false, 0, nil
	}
	return true, lastAcceptLen, lastAccepted
}
