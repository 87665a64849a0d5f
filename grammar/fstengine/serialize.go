package fstengine

import "github.com/dekarrin/rezi"

// Serializer is implemented by an Engine whose Fst and SymbolTable values
// can be marshaled to and from bytes. It is kept separate from Engine
// itself because the evaluator never needs it — only the archive writer and
// reader do, at the edges of a compilation.
type Serializer interface {
	MarshalFst(f Fst) ([]byte, error)
	UnmarshalFst(data []byte) (Fst, error)
	MarshalSymbolTable(s SymbolTable) ([]byte, error)
	UnmarshalSymbolTable(data []byte) (SymbolTable, error)
}

// wireArc, wireState, and wireAutomaton are the exported-field mirrors of
// arc/state/automaton that rezi's reflective binary codec can walk; the
// automaton fields themselves stay unexported so nothing outside this
// package can build a malformed one by hand.
type wireArc struct {
	ILabel, OLabel int64
	Weight         int
	To             int
}

type wireState struct {
	Arcs []wireArc
}

type wireAutomaton struct {
	States                []wireState
	Start                 int
	Final                 map[int]int
	InSymName, OutSymName string
}

// MarshalFst encodes f for storage in an archive. A non-canonical symbol
// table attached to f is not round-tripped — only the two canonical tables
// are recognized by name on the way back in — since the reference engine
// has no archive-wide symbol table registry to resolve an arbitrary one
// against.
func (e *RefEngine) MarshalFst(f Fst) ([]byte, error) {
	a := asAutomaton(f)
	w := wireAutomaton{Start: a.start, Final: map[int]int{}}
	for k, v := range a.final {
		w.Final[k] = v
	}
	for _, st := range a.states {
		ws := wireState{}
		for _, ar := range st.arcs {
			ws.Arcs = append(ws.Arcs, wireArc{ILabel: ar.ilabel, OLabel: ar.olabel, Weight: ar.weight, To: ar.to})
		}
		w.States = append(w.States, ws)
	}
	if a.inSym != nil {
		w.InSymName = a.inSym.Name()
	}
	if a.outSym != nil {
		w.OutSymName = a.outSym.Name()
	}
	return rezi.EncBinary(w)
}

// UnmarshalFst decodes bytes produced by MarshalFst back into an Fst bound
// to this engine instance.
func (e *RefEngine) UnmarshalFst(data []byte) (Fst, error) {
	var w wireAutomaton
	if _, err := rezi.DecBinary(data, &w); err != nil {
		return nil, err
	}
	a := newAutomaton()
	a.start = w.Start
	for k, v := range w.Final {
		a.final[k] = v
	}
	for _, ws := range w.States {
		s := state{}
		for _, wa := range ws.Arcs {
			s.arcs = append(s.arcs, arc{ilabel: wa.ILabel, olabel: wa.OLabel, weight: wa.Weight, to: wa.To})
		}
		a.states = append(a.states, s)
	}
	a.inSym = e.resolveCanonicalByName(w.InSymName)
	a.outSym = e.resolveCanonicalByName(w.OutSymName)
	return a, nil
}

func (e *RefEngine) resolveCanonicalByName(name string) SymbolTable {
	switch name {
	case "":
		return nil
	case e.canonByte.Name():
		return e.canonByte
	case e.canonUtf8.Name():
		return e.canonUtf8
	default:
		return &refSymbolTable{name: name}
	}
}

// wireSymbolTable is the exported-field mirror of refSymbolTable.
type wireSymbolTable struct {
	Name    string
	BySym   map[string]int64
	NextVal int64
}

// MarshalSymbolTable encodes s, including the distinguished
// *StringFstSymbolTable archive entry holding every interned bracketed
// token.
func (e *RefEngine) MarshalSymbolTable(s SymbolTable) ([]byte, error) {
	rs, ok := s.(*refSymbolTable)
	if !ok {
		return nil, errNotRefSymbolTable
	}
	w := wireSymbolTable{Name: rs.name, BySym: map[string]int64{}, NextVal: rs.next}
	for k, v := range rs.bySym {
		w.BySym[k] = v
	}
	return rezi.EncBinary(w)
}

// UnmarshalSymbolTable decodes bytes produced by MarshalSymbolTable.
func (e *RefEngine) UnmarshalSymbolTable(data []byte) (SymbolTable, error) {
	var w wireSymbolTable
	if _, err := rezi.DecBinary(data, &w); err != nil {
		return nil, err
	}
	rs := &refSymbolTable{name: w.Name, next: w.NextVal}
	for k, v := range w.BySym {
		rs.add(k, v)
	}
	return rs, nil
}

var errNotRefSymbolTable = fstEngineError("fstengine: symbol table did not originate from this Engine")

type fstEngineError string

func (e fstEngineError) Error() string { return string(e) }
