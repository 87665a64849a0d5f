package fstengine

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RefEngine is a deterministic, self-contained implementation of Engine
// backed by explicit state/arc automata over the tropical semiring. It is
// not meant to be a production FST library — determinization and
// minimization use straightforward subset/partition-refinement algorithms
// rather than the optimized ones a real library would ship — but it
// implements every operation's documented contract well enough to compile
// and test real grammars.
type RefEngine struct {
	canonByte SymbolTable
	canonUtf8 SymbolTable
}

// NewRefEngine constructs a ready-to-use reference engine.
func NewRefEngine() *RefEngine {
	return &RefEngine{
		canonByte: &refSymbolTable{name: "*ByteSymbolTable"},
		canonUtf8: &refSymbolTable{name: "*Utf8SymbolTable"},
	}
}

func (e *RefEngine) CanonicalByteSymbolTable() SymbolTable { return e.canonByte }
func (e *RefEngine) CanonicalUtf8SymbolTable() SymbolTable { return e.canonUtf8 }

func (e *RefEngine) NumStates(f Fst) int {
	return len(asAutomaton(f).states)
}

func (e *RefEngine) SymbolTables(f Fst) (in, out SymbolTable) {
	a := asAutomaton(f)
	return a.inSym, a.outSym
}

func (e *RefEngine) SetSymbolTables(f Fst, in, out SymbolTable) (Fst, error) {
	a := asAutomaton(f.Clone())
	a.inSym, a.outSym = in, out
	return a, nil
}

func (e *RefEngine) IsUnweightedAcceptor(f Fst) bool {
	a := asAutomaton(f)
	return a.isAcceptor() && a.isUnweighted()
}

// --- construction -----------------------------------------------------

func (e *RefEngine) StringFst(mode StringMode, text string, symtab SymbolTable, intern func(string) int64) (Fst, error) {
	a := newEpsilonAcceptor()
	if mode == ModeUtf8 {
		text = norm.NFC.String(text)
	}
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == '[' {
			j := i + 1
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated bracketed token in string literal")
			}
			sym := string(runes[i+1 : j])
			if sym == "" {
				return nil, fmt.Errorf("empty bracketed token in string literal")
			}
			lbl := intern(sym)
			a.appendArc(lbl, lbl, 0)
			i = j + 1
			continue
		}

		switch mode {
		case ModeSymbolTable:
			if symtab == nil {
				return nil, fmt.Errorf("StringFst: symbol table mode requires a symbol table")
			}
			if r == ' ' {
				i++
				continue
			}
			j := i
			for j < len(runes) && runes[j] != ' ' && runes[j] != '[' {
				j++
			}
			sym := string(runes[i:j])
			st := symtab.(*refSymbolTable)
			lbl := st.findOrAdd(sym)
			a.appendArc(lbl, lbl, 0)
			i = j
		case ModeUtf8:
			a.appendArc(int64(r), int64(r), 0)
			i++
		default: // ModeByte
			for _, b := range []byte(string(r)) {
				a.appendArc(int64(b), int64(b), 0)
			}
			i++
		}
	}
	return a, nil
}

func (e *RefEngine) StringFile(path string, mode StringMode) (Fst, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("StringFile: %w", err)
	}
	var union Fst
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lineFst, err := e.StringFst(mode, line, nil, func(string) int64 {
			return 0
		})
		if err != nil {
			return nil, err
		}
		if union == nil {
			union = lineFst
		} else {
			union, err = e.Union(union, lineFst)
			if err != nil {
				return nil, err
			}
		}
	}
	if union == nil {
		return newAutomaton(), nil
	}
	return union, nil
}

func (e *RefEngine) LoadFst(path string) (Fst, error) {
	return nil, fmt.Errorf("LoadFst: no FST at %q (reference engine has no on-disk FST format)", path)
}

func (e *RefEngine) LoadFstFromFar(farPath, name string) (Fst, error) {
	return nil, fmt.Errorf("LoadFstFromFar: archive %q has no entry %q", farPath, name)
}

func (e *RefEngine) LoadSymbolTable(path string) (SymbolTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadSymbolTable: %w", err)
	}
	st := &refSymbolTable{name: path}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		lbl, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		st.add(fields[0], lbl)
	}
	return st, nil
}

// --- algebra ------------------------------------------------------------

func (e *RefEngine) Concat(af, bf Fst) (Fst, error) {
	a := asAutomaton(af.Clone())
	b := asAutomaton(bf.Clone())
	out := newAutomaton()
	offset := len(a.states)
	out.states = append(out.states, a.states...)
	out.states = append(out.states, b.states...)
	out.start = a.start
	// rewrite b's arc targets by offset
	for i := range b.states {
		idx := offset + i
		newArcs := make([]arc, len(b.states[i].arcs))
		for k, ar := range b.states[i].arcs {
			ar.to += offset
			newArcs[k] = ar
		}
		out.states[idx].arcs = newArcs
	}
	for s, w := range a.final {
		out.addArc(s, epsilon, epsilon, w, offset+b.start)
	}
	for s, w := range b.final {
		out.final[offset+s] = w
	}
	return out, nil
}

func (e *RefEngine) unionLike(af, bf Fst) (*automaton, int, int) {
	a := asAutomaton(af.Clone())
	b := asAutomaton(bf.Clone())
	out := newAutomaton()
	newStart := out.addState()
	offsetA := len(out.states)
	out.states = append(out.states, a.states...)
	offsetB := len(out.states)
	out.states = append(out.states, b.states...)
	for i := range a.states {
		idx := offsetA + i
		newArcs := make([]arc, len(a.states[i].arcs))
		for k, ar := range a.states[i].arcs {
			ar.to += offsetA
			newArcs[k] = ar
		}
		out.states[idx].arcs = newArcs
	}
	for i := range b.states {
		idx := offsetB + i
		newArcs := make([]arc, len(b.states[i].arcs))
		for k, ar := range b.states[i].arcs {
			ar.to += offsetB
			newArcs[k] = ar
		}
		out.states[idx].arcs = newArcs
	}
	out.start = newStart
	out.addArc(newStart, epsilon, epsilon, 0, offsetA+a.start)
	out.addArc(newStart, epsilon, epsilon, 0, offsetB+b.start)
	for s, w := range a.final {
		out.final[offsetA+s] = w
	}
	for s, w := range b.final {
		out.final[offsetB+s] = w
	}
	return out, offsetA, offsetB
}

func (e *RefEngine) Union(a, b Fst) (Fst, error) {
	out, _, _ := e.unionLike(a, b)
	return out, nil
}

func (e *RefEngine) UnionDelayed(a, b Fst) (Fst, error) {
	return e.Union(a, b)
}

func (e *RefEngine) Invert(f Fst) (Fst, error) {
	a := asAutomaton(f.Clone())
	for i := range a.states {
		for k := range a.states[i].arcs {
			a.states[i].arcs[k].ilabel, a.states[i].arcs[k].olabel =
				a.states[i].arcs[k].olabel, a.states[i].arcs[k].ilabel
		}
	}
	a.inSym, a.outSym = a.outSym, a.inSym
	return a, nil
}

func (e *RefEngine) Project(f Fst, side Side) (Fst, error) {
	a := asAutomaton(f.Clone())
	for i := range a.states {
		for k := range a.states[i].arcs {
			if side == SideInput {
				a.states[i].arcs[k].olabel = a.states[i].arcs[k].ilabel
			} else {
				a.states[i].arcs[k].ilabel = a.states[i].arcs[k].olabel
			}
		}
	}
	return a, nil
}

func (e *RefEngine) ArcSort(f Fst, side Side) (Fst, error) {
	a := asAutomaton(f.Clone())
	for i := range a.states {
		arcs := a.states[i].arcs
		sort.SliceStable(arcs, func(x, y int) bool {
			if side == SideOutput {
				return arcs[x].olabel < arcs[y].olabel
			}
			return arcs[x].ilabel < arcs[y].ilabel
		})
	}
	return a, nil
}

func (e *RefEngine) RmWeight(f Fst) (Fst, error) {
	a := asAutomaton(f.Clone())
	for i := range a.states {
		for k := range a.states[i].arcs {
			a.states[i].arcs[k].weight = 0
		}
	}
	for s := range a.final {
		a.final[s] = 0
	}
	return a, nil
}

func (e *RefEngine) ApplyWeight(f Fst, weightText string) (Fst, error) {
	w, err := strconv.Atoi(strings.TrimSpace(weightText))
	if err != nil {
		return nil, fmt.Errorf("ApplyWeight: invalid weight %q: %w", weightText, err)
	}
	a := asAutomaton(f.Clone())
	weightFst := newEpsilonAcceptor()
	weightFst.final[weightFst.start] = w
	return e.Concat(a, weightFst)
}

func (e *RefEngine) RmEpsilon(f Fst) (Fst, error) {
	a := asAutomaton(f.Clone())
	out := newAutomaton()
	out.states = make([]state, len(a.states))
	out.start = a.start
	for s := range a.states {
		closure := epsilonClosure(a, s)
		for cs, cw := range closure {
			if w, ok := a.isFinal(cs); ok {
				if prev, exists := out.final[s]; !exists || cw+w < prev {
					out.final[s] = cw + w
				}
			}
			for _, ar := range a.states[cs].arcs {
				if ar.ilabel == epsilon && ar.olabel == epsilon {
					continue
				}
				out.states[s].arcs = append(out.states[s].arcs, arc{
					ilabel: ar.ilabel, olabel: ar.olabel, weight: ar.weight + cw, to: ar.to,
				})
			}
		}
	}
	return out, nil
}

func epsilonClosure(a *automaton, start int) map[int]int {
	dist := map[int]int{start: 0}
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ar := range a.states[cur].arcs {
			if ar.ilabel != epsilon || ar.olabel != epsilon {
				continue
			}
			nd := dist[cur] + ar.weight
			if prev, ok := dist[ar.to]; !ok || nd < prev {
				dist[ar.to] = nd
				queue = append(queue, ar.to)
			}
		}
	}
	return dist
}

// Determinize implements subset construction for acceptors (and, best
// effort, for transducers by treating (ilabel,olabel) pairs as the
// determinization alphabet). Input is assumed epsilon-free; callers
// typically RmEpsilon first, which Optimize does automatically.
func (e *RefEngine) Determinize(f Fst) (Fst, error) {
	a := asAutomaton(f.Clone())
	type setKey string
	key := func(states []int) setKey {
		sorted := append([]int(nil), states...)
		sort.Ints(sorted)
		parts := make([]string, len(sorted))
		for i, s := range sorted {
			parts[i] = strconv.Itoa(s)
		}
		return setKey(strings.Join(parts, ","))
	}

	out := newAutomaton()
	startSet := []int{a.start}
	seen := map[setKey]int{key(startSet): out.addState()}
	out.start = seen[key(startSet)]
	queue := [][]int{startSet}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curIdx := seen[key(cur)]

		bestFinal, isFinal := -1, false
		for _, s := range cur {
			if w, ok := a.isFinal(s); ok {
				if !isFinal || w < bestFinal {
					bestFinal, isFinal = w, true
				}
			}
		}
		if isFinal {
			out.final[curIdx] = bestFinal
		}

		grouped := map[[2]int64][]int{}
		bestWeight := map[[2]int64]int{}
		for _, s := range cur {
			for _, ar := range a.states[s].arcs {
				lk := [2]int64{ar.ilabel, ar.olabel}
				grouped[lk] = append(grouped[lk], ar.to)
				if prev, ok := bestWeight[lk]; !ok || ar.weight < prev {
					bestWeight[lk] = ar.weight
				}
			}
		}
		for lk, dests := range grouped {
			k := key(dests)
			idx, ok := seen[k]
			if !ok {
				idx = out.addState()
				seen[k] = idx
				queue = append(queue, dests)
			}
			out.addArc(curIdx, lk[0], lk[1], bestWeight[lk], idx)
		}
	}
	return out, nil
}

// Minimize performs Moore-style partition refinement on a deterministic
// acceptor/transducer.
func (e *RefEngine) Minimize(f Fst) (Fst, error) {
	a := asAutomaton(f.Clone())
	n := len(a.states)
	if n == 0 {
		return a, nil
	}
	class := make([]int, n)
	for i := 0; i < n; i++ {
		if _, ok := a.isFinal(i); ok {
			class[i] = 1
		} else {
			class[i] = 0
		}
	}

	for iter := 0; iter < n+1; iter++ {
		type sig struct {
			class int
			trans string
		}
		sigOf := func(s int) sig {
			var parts []string
			for _, ar := range a.states[s].arcs {
				parts = append(parts, fmt.Sprintf("%d:%d:%d:%d", ar.ilabel, ar.olabel, ar.weight, class[ar.to]))
			}
			sort.Strings(parts)
			return sig{class: class[s], trans: strings.Join(parts, "|")}
		}
		sigs := make(map[sig]int)
		newClass := make([]int, n)
		next := 0
		for s := 0; s < n; s++ {
			sg := sigOf(s)
			id, ok := sigs[sg]
			if !ok {
				id = next
				sigs[sg] = id
				next++
			}
			newClass[s] = id
		}
		if next == maxInt(class)+1 && classesEqual(class, newClass) {
			class = newClass
			break
		}
		class = newClass
	}

	out := newAutomaton()
	repIdx := map[int]int{}
	numClasses := maxInt(class) + 1
	for c := 0; c < numClasses; c++ {
		repIdx[c] = out.addState()
	}
	out.start = repIdx[class[a.start]]
	addedArc := map[string]bool{}
	for s := 0; s < n; s++ {
		c := class[s]
		if w, ok := a.isFinal(s); ok {
			if prev, exists := out.final[repIdx[c]]; !exists || w < prev {
				out.final[repIdx[c]] = w
			}
		}
		for _, ar := range a.states[s].arcs {
			tc := class[ar.to]
			sig := fmt.Sprintf("%d:%d:%d:%d:%d", c, ar.ilabel, ar.olabel, ar.weight, tc)
			if addedArc[sig] {
				continue
			}
			addedArc[sig] = true
			out.addArc(repIdx[c], ar.ilabel, ar.olabel, ar.weight, repIdx[tc])
		}
	}
	return out, nil
}

func maxInt(xs []int) int {
	m := 0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func classesEqual(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (e *RefEngine) TopSort(f Fst) (Fst, error) {
	a := asAutomaton(f.Clone())
	n := len(a.states)
	indeg := make([]int, n)
	for _, st := range a.states {
		for _, ar := range st.arcs {
			indeg[ar.to]++
		}
	}
	var order []int
	queue := []int{}
	for s := 0; s < n; s++ {
		if indeg[s] == 0 {
			queue = append(queue, s)
		}
	}
	visited := make([]bool, n)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		order = append(order, cur)
		for _, ar := range a.states[cur].arcs {
			indeg[ar.to]--
			if indeg[ar.to] == 0 {
				queue = append(queue, ar.to)
			}
		}
	}
	for s := 0; s < n; s++ {
		if !visited[s] {
			order = append(order, s) // cyclic: leave remaining in original relative order
		}
	}
	remap := make([]int, n)
	for newIdx, old := range order {
		remap[old] = newIdx
	}
	out := newAutomaton()
	out.states = make([]state, n)
	out.start = remap[a.start]
	for old, st := range a.states {
		ni := remap[old]
		for _, ar := range st.arcs {
			out.states[ni].arcs = append(out.states[ni].arcs, arc{
				ilabel: ar.ilabel, olabel: ar.olabel, weight: ar.weight, to: remap[ar.to],
			})
		}
	}
	for old, w := range a.final {
		out.final[remap[old]] = w
	}
	return out, nil
}

func (e *RefEngine) Expand(f Fst) (Fst, error) {
	return f.Clone(), nil
}

func (e *RefEngine) Optimize(f Fst) (Fst, error) {
	rm, err := e.RmEpsilon(f)
	if err != nil {
		return nil, err
	}
	det, err := e.Determinize(rm)
	if err != nil {
		return nil, err
	}
	return e.Minimize(det)
}

func (e *RefEngine) RelabelArcs(f Fst, remap map[int64]int64) (Fst, error) {
	a := asAutomaton(f.Clone())
	for i := range a.states {
		for k := range a.states[i].arcs {
			if nl, ok := remap[a.states[i].arcs[k].ilabel]; ok {
				a.states[i].arcs[k].ilabel = nl
			}
			if nl, ok := remap[a.states[i].arcs[k].olabel]; ok {
				a.states[i].arcs[k].olabel = nl
			}
		}
	}
	return a, nil
}

// --- composition-family operations ---------------------------------------

func (e *RefEngine) Compose(af, bf Fst, sortSide Side) (Fst, error) {
	a := asAutomaton(af)
	b := asAutomaton(bf)
	if sortSide == SideInput {
		var err error
		af, err = e.ArcSort(af, SideOutput)
		if err != nil {
			return nil, err
		}
		a = asAutomaton(af)
	} else if sortSide == SideOutput {
		var err error
		bf, err = e.ArcSort(bf, SideInput)
		if err != nil {
			return nil, err
		}
		b = asAutomaton(bf)
	}

	out := newAutomaton()
	type pair struct{ x, y int }
	idx := map[pair]int{}
	get := func(p pair) int {
		if i, ok := idx[p]; ok {
			return i
		}
		i := out.addState()
		idx[p] = i
		return i
	}
	start := pair{a.start, b.start}
	out.start = get(start)
	queue := []pair{start}
	visited := map[pair]bool{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		curIdx := get(cur)

		if wa, oka := a.isFinal(cur.x); oka {
			if wb, okb := b.isFinal(cur.y); okb {
				out.final[curIdx] = wa + wb
			}
		}

		for _, ax := range a.states[cur.x].arcs {
			if ax.olabel == epsilon {
				np := pair{ax.to, cur.y}
				ni := get(np)
				out.addArc(curIdx, ax.ilabel, epsilon, ax.weight, ni)
				if !visited[np] {
					queue = append(queue, np)
				}
				continue
			}
			for _, by := range b.states[cur.y].arcs {
				if by.ilabel == epsilon {
					continue
				}
				if ax.olabel != by.ilabel {
					continue
				}
				np := pair{ax.to, by.to}
				ni := get(np)
				out.addArc(curIdx, ax.ilabel, by.olabel, ax.weight+by.weight, ni)
				if !visited[np] {
					queue = append(queue, np)
				}
			}
		}
		for _, by := range b.states[cur.y].arcs {
			if by.ilabel == epsilon {
				np := pair{cur.x, by.to}
				ni := get(np)
				out.addArc(curIdx, epsilon, by.olabel, by.weight, ni)
				if !visited[np] {
					queue = append(queue, np)
				}
			}
		}
	}
	return out, nil
}

func (e *RefEngine) Rewrite(left, right Fst) (Fst, error) {
	l := asAutomaton(left.Clone())
	r := asAutomaton(right.Clone())
	out := newAutomaton()
	offset := len(l.states)
	out.states = append(out.states, l.states...)
	rStates := make([]state, len(r.states))
	for i, st := range r.states {
		na := make([]arc, len(st.arcs))
		for k, a := range st.arcs {
			a.to += offset
			na[k] = a
		}
		rStates[i] = state{arcs: na}
	}
	out.states = append(out.states, rStates...)
	out.start = l.start
	for s, w := range l.final {
		out.addArc(s, epsilon, epsilon, w, offset+r.start)
	}
	for s, w := range r.final {
		out.final[offset+s] = w
	}
	return out, nil
}

func (e *RefEngine) Difference(af, bf Fst) (Fst, error) {
	if !e.IsUnweightedAcceptor(bf) {
		var err error
		bf, err = e.Optimize(bf)
		if err != nil {
			return nil, err
		}
		if !e.IsUnweightedAcceptor(bf) {
			return nil, fmt.Errorf("Difference: right-hand side must be an unweighted acceptor")
		}
	}
	a := asAutomaton(af)
	detB, err := e.Determinize(bf)
	if err != nil {
		return nil, err
	}
	b := asAutomaton(detB)

	alphabet := map[int64]bool{}
	for l := range a.alphabet() {
		alphabet[l] = true
	}
	for l := range b.alphabet() {
		alphabet[l] = true
	}

	dead := len(b.states)
	comp := newAutomaton()
	comp.states = make([]state, len(b.states)+1)
	comp.start = b.start
	for s, st := range b.states {
		for _, ar := range st.arcs {
			comp.states[s].arcs = append(comp.states[s].arcs, ar)
		}
		byLabel := map[int64]bool{}
		for _, ar := range st.arcs {
			byLabel[ar.ilabel] = true
		}
		for l := range alphabet {
			if !byLabel[l] {
				comp.states[s].arcs = append(comp.states[s].arcs, arc{ilabel: l, olabel: l, to: dead})
			}
		}
	}
	for l := range alphabet {
		comp.states[dead].arcs = append(comp.states[dead].arcs, arc{ilabel: l, olabel: l, to: dead})
	}
	for s := 0; s <= dead; s++ {
		if _, ok := b.isFinal(s); !ok {
			comp.final[s] = 0
		}
	}

	return e.Compose(a, comp, SideBoth)
}

func (e *RefEngine) LenientlyCompose(l, r, sigmaStar Fst) (Fst, error) {
	strict, err := e.Compose(l, r, SideBoth)
	if err != nil {
		return nil, err
	}
	if len(asAutomaton(strict).states) > 0 {
		return strict, nil
	}
	return e.Compose(l, sigmaStar, SideBoth)
}

func (e *RefEngine) Closure(f Fst, kind ClosureKind, min, max int) (Fst, error) {
	switch kind {
	case ClosureStar:
		return e.closureStar(f)
	case ClosurePlus:
		star, err := e.closureStar(f)
		if err != nil {
			return nil, err
		}
		return e.Concat(f, star)
	case ClosureQuestion:
		return e.Union(f, newEpsilonAcceptor())
	case ClosureRange:
		if min < 0 || min > max {
			return nil, fmt.Errorf("repetition bounds reversed: %d > %d", min, max)
		}
		return e.closureRange(f, min, max)
	default:
		return nil, fmt.Errorf("unknown closure kind %d", kind)
	}
}

func (e *RefEngine) closureStar(f Fst) (Fst, error) {
	a := asAutomaton(f.Clone())
	out := newAutomaton()
	start := out.addState()
	offset := len(out.states)
	out.states = append(out.states, a.states...)
	for i := range a.states {
		idx := offset + i
		newArcs := make([]arc, len(a.states[i].arcs))
		for k, ar := range a.states[i].arcs {
			ar.to += offset
			newArcs[k] = ar
		}
		out.states[idx].arcs = newArcs
	}
	out.start = start
	out.final[start] = 0
	out.addArc(start, epsilon, epsilon, 0, offset+a.start)
	for s, w := range a.final {
		out.final[offset+s] = 0
		out.addArc(offset+s, epsilon, epsilon, w, start)
	}
	return out, nil
}

func (e *RefEngine) closureRange(f Fst, min, max int) (Fst, error) {
	if max == 0 {
		return newEpsilonAcceptor(), nil
	}
	var result Fst = newEpsilonAcceptor()
	var err error
	for i := 0; i < min; i++ {
		result, err = e.Concat(result, f)
		if err != nil {
			return nil, err
		}
	}
	optionalTail, err := e.closureOptionalCount(f, max-min)
	if err != nil {
		return nil, err
	}
	return e.Concat(result, optionalTail)
}

// closureOptionalCount returns an FST accepting between 0 and n copies of f.
func (e *RefEngine) closureOptionalCount(f Fst, n int) (Fst, error) {
	if n <= 0 {
		return newEpsilonAcceptor(), nil
	}
	inner, err := e.closureOptionalCount(f, n-1)
	if err != nil {
		return nil, err
	}
	tail, err := e.Concat(f, inner)
	if err != nil {
		return nil, err
	}
	return e.Union(newEpsilonAcceptor(), tail)
}

// Replace expands root's arcs whose ilabel is a key of nonTerminalLabels by
// splicing in labelToFst[label] in place of the arc, recursively. Cycles
// (a replaced FST whose expansion contains any arc carrying a label that is
// already being expanded) are rejected.
func (e *RefEngine) Replace(rootFst Fst, labelToFst map[int64]Fst, nonTerminalLabels map[int64]bool) (Fst, error) {
	return e.replaceRec(rootFst, labelToFst, nonTerminalLabels, map[int64]bool{})
}

func (e *RefEngine) replaceRec(f Fst, labelToFst map[int64]Fst, nonTerminal map[int64]bool, onStack map[int64]bool) (Fst, error) {
	a := asAutomaton(f.Clone())
	out := newAutomaton()
	out.states = make([]state, len(a.states))
	out.start = a.start
	for s, w := range a.final {
		out.final[s] = w
	}

	for s, st := range a.states {
		for _, ar := range st.arcs {
			if nonTerminal[ar.ilabel] {
				if onStack[ar.ilabel] {
					return nil, fmt.Errorf("Replace: cyclic dependency on label %d", ar.ilabel)
				}
				sub, ok := labelToFst[ar.ilabel]
				if !ok {
					return nil, fmt.Errorf("Replace: no FST registered for label %d", ar.ilabel)
				}
				onStack[ar.ilabel] = true
				expanded, err := e.replaceRec(sub, labelToFst, nonTerminal, onStack)
				delete(onStack, ar.ilabel)
				if err != nil {
					return nil, err
				}
				exp := asAutomaton(expanded)
				offset := len(out.states)
				out.states = append(out.states, exp.states...)
				for i := range exp.states {
					idx := offset + i
					newArcs := make([]arc, len(exp.states[i].arcs))
					for k, ear := range exp.states[i].arcs {
						ear.to += offset
						newArcs[k] = ear
					}
					out.states[idx].arcs = newArcs
				}
				out.addArc(s, epsilon, epsilon, ar.weight, offset+exp.start)
				for es, ew := range exp.final {
					out.addArc(offset+es, epsilon, epsilon, ew, ar.to)
				}
			} else {
				out.states[s].arcs = append(out.states[s].arcs, ar)
			}
		}
	}
	return out, nil
}
