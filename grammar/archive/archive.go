// Package archive implements the exporter: serialization of a compiled
// grammar's exported FSTs, plus the process-wide label symbol table, into a
// single keyed archive file (a FAR-shaped container), and a reader/Manager
// pair for consuming one at rewrite time.
package archive

import (
	"fmt"
	"os"
	"sort"

	"github.com/dekarrin/rezi"
	"github.com/google/uuid"

	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/label"
)

// SymbolTableEntryName is the distinguished archive entry holding every
// symbol interned by the LabelInterner over the course of a compilation.
const SymbolTableEntryName = "*StringFstSymbolTable"

// wireEntry is one named blob in the archive: either a serialized Fst or
// the serialized distinguished symbol table, discriminated by Kind.
type wireEntry struct {
	Name string
	Kind uint8
	Data []byte
}

const (
	kindFst uint8 = iota
	kindSymbolTable
)

// wireArchive is the exported-field shape rezi encodes the whole file as.
// BuildID is a fresh random identifier stamped on every write, letting a
// consumer (e.g. a build cache) tell two archives of the same name apart
// without comparing their full contents.
type wireArchive struct {
	BuildID string
	Entries []wireEntry
}

// Writer accumulates exported FSTs for one compilation and serializes them
// to a single .far file.
type Writer struct {
	engine  fstengine.Engine
	ser     fstengine.Serializer
	names   []string
	fsts    map[string]fstengine.Fst
	buildID string
}

// NewWriter returns a Writer bound to engine, which must also implement
// fstengine.Serializer.
func NewWriter(engine fstengine.Engine) (*Writer, error) {
	ser, ok := engine.(fstengine.Serializer)
	if !ok {
		return nil, fmt.Errorf("archive: engine %T does not support serialization", engine)
	}
	return &Writer{engine: engine, ser: ser, fsts: make(map[string]fstengine.Fst), buildID: uuid.NewString()}, nil
}

// BuildID returns the identifier this Writer will stamp onto its archive.
func (w *Writer) BuildID() string { return w.buildID }

// Put registers name -> f for export. Duplicate names overwrite; callers
// are expected to have already checked for clashes at the namespace level.
func (w *Writer) Put(name string, f fstengine.Fst) {
	if _, exists := w.fsts[name]; !exists {
		w.names = append(w.names, name)
	}
	w.fsts[name] = f
}

// WriteFile top-sorts every registered FST (preserving the observed
// behavior of the original tool, a workaround for a downstream consumer
// bug rather than a correctness requirement of this compiler), serializes
// it alongside the label interner's current symbol table under the
// distinguished entry name, and writes the result to path.
func (w *Writer) WriteFile(path string, interner *label.Interner) error {
	data, err := w.Bytes(interner)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Bytes produces the serialized archive without touching the filesystem.
func (w *Writer) Bytes(interner *label.Interner) ([]byte, error) {
	ar := wireArchive{BuildID: w.buildID}

	if interner != nil {
		entries := interner.Entries()
		sort.Slice(entries, func(i, j int) bool { return entries[i].Label < entries[j].Label })
		pairs := make([]fstengine.LabelEntry, len(entries))
		for i, e := range entries {
			pairs[i] = fstengine.LabelEntry{Label: e.Label, Symbol: e.Symbol}
		}
		symtab := fstengine.NewSymbolTableFromPairs(SymbolTableEntryName, pairs)
		data, err := w.ser.MarshalSymbolTable(symtab)
		if err != nil {
			return nil, fmt.Errorf("archive: marshaling %s: %w", SymbolTableEntryName, err)
		}
		ar.Entries = append(ar.Entries, wireEntry{Name: SymbolTableEntryName, Kind: kindSymbolTable, Data: data})
	}

	names := append([]string(nil), w.names...)
	sort.Strings(names)
	for _, name := range names {
		sorted, err := w.engine.TopSort(w.fsts[name])
		if err != nil {
			return nil, fmt.Errorf("archive: top-sorting %q before export: %w", name, err)
		}
		data, err := w.ser.MarshalFst(sorted)
		if err != nil {
			return nil, fmt.Errorf("archive: marshaling %q: %w", name, err)
		}
		ar.Entries = append(ar.Entries, wireEntry{Name: name, Kind: kindFst, Data: data})
	}

	return rezi.EncBinary(ar)
}
