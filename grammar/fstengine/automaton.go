package fstengine

import "sort"

// epsilon is the reserved ilabel/olabel value denoting an epsilon transition
// in the reference engine's automata. Real symbolic labels (bytes, runes,
// interned tokens) are always non-negative, so -1 never collides with one.
const epsilon int64 = -1

type arc struct {
	ilabel, olabel int64
	weight         int
	to             int
}

type state struct {
	arcs []arc
}

// automaton is the concrete backing store for fstengine.Fst in the reference
// engine: an explicit state/arc list over the tropical (min-plus) semiring.
type automaton struct {
	states []state
	start  int
	final  map[int]int // state -> final weight; absence means non-final

	inSym, outSym SymbolTable

	buildCur int // convenience cursor used only while linearly constructing a string FST
}

func newAutomaton() *automaton {
	return &automaton{final: map[int]int{}}
}

// newEpsilonAcceptor returns the single-state FST accepting only the empty
// string with weight One (0).
func newEpsilonAcceptor() *automaton {
	a := newAutomaton()
	a.addState()
	a.start = 0
	a.final[0] = 0
	a.buildCur = 0
	return a
}

func (a *automaton) addState() int {
	a.states = append(a.states, state{})
	return len(a.states) - 1
}

func (a *automaton) addArc(from int, il, ol int64, w int, to int) {
	a.states[from].arcs = append(a.states[from].arcs, arc{ilabel: il, olabel: ol, weight: w, to: to})
}

// appendArc grows a linear chain: it adds a new state, an arc labeled
// (il,ol) from the current terminal state to it with weight w, and makes
// the new state the (only) final state.
func (a *automaton) appendArc(il, ol int64, w int) {
	delete(a.final, a.buildCur)
	next := a.addState()
	a.addArc(a.buildCur, il, ol, w, next)
	a.final[next] = 0
	a.buildCur = next
}

func (a *automaton) Clone() Fst {
	cp := &automaton{
		states: make([]state, len(a.states)),
		start:  a.start,
		final:  map[int]int{},
		inSym:  a.inSym,
		outSym: a.outSym,
	}
	for i := range a.states {
		cp.states[i].arcs = append([]arc(nil), a.states[i].arcs...)
	}
	for k, v := range a.final {
		cp.final[k] = v
	}
	return cp
}

func asAutomaton(f Fst) *automaton {
	a, ok := f.(*automaton)
	if !ok {
		panic("fstengine: value did not originate from this Engine")
	}
	return a
}

func (a *automaton) isFinal(s int) (int, bool) {
	w, ok := a.final[s]
	return w, ok
}

func (a *automaton) alphabet() map[int64]bool {
	labels := map[int64]bool{}
	for _, st := range a.states {
		for _, ar := range st.arcs {
			if ar.ilabel != epsilon {
				labels[ar.ilabel] = true
			}
			if ar.olabel != epsilon {
				labels[ar.olabel] = true
			}
		}
	}
	return labels
}

func (a *automaton) sortedAlphabet() []int64 {
	alpha := a.alphabet()
	out := make([]int64, 0, len(alpha))
	for l := range alpha {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// isAcceptor reports whether every arc has ilabel == olabel.
func (a *automaton) isAcceptor() bool {
	for _, st := range a.states {
		for _, ar := range st.arcs {
			if ar.ilabel != ar.olabel {
				return false
			}
		}
	}
	return true
}

// isUnweighted reports whether every arc and final weight is One (0).
func (a *automaton) isUnweighted() bool {
	for _, st := range a.states {
		for _, ar := range st.arcs {
			if ar.weight != 0 {
				return false
			}
		}
	}
	for _, w := range a.final {
		if w != 0 {
			return false
		}
	}
	return true
}
