package archive

import (
	"fmt"
	"os"

	"github.com/dekarrin/rezi"

	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/label"
)

// Reader is a decoded archive: every Fst entry plus, if present, the
// distinguished label symbol table. It satisfies eval.ArchiveReader.
type Reader struct {
	fsts        map[string]fstengine.Fst
	labelPairs  []label.ForeignEntry
	hasLabelTab bool
	buildID     string
}

// Open reads and decodes the archive at path. A missing file is returned as
// an *os.PathError, distinguishable via os.IsNotExist, since a not-yet-built
// companion archive is an expected condition the first time a chain of
// imports is compiled.
func Open(path string, engine fstengine.Engine) (*Reader, error) {
	ser, ok := engine.(fstengine.Serializer)
	if !ok {
		return nil, fmt.Errorf("archive: engine %T does not support serialization", engine)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ar wireArchive
	if _, err := rezi.DecBinary(raw, &ar); err != nil {
		return nil, fmt.Errorf("archive: decoding %s: %w", path, err)
	}

	r := &Reader{fsts: make(map[string]fstengine.Fst), buildID: ar.BuildID}
	for _, e := range ar.Entries {
		switch e.Kind {
		case kindSymbolTable:
			st, err := ser.UnmarshalSymbolTable(e.Data)
			if err != nil {
				return nil, fmt.Errorf("archive: decoding entry %q: %w", e.Name, err)
			}
			src, ok := st.(interface{ LabelEntries() []fstengine.LabelEntry })
			if !ok {
				return nil, fmt.Errorf("archive: entry %q's symbol table cannot enumerate its pairs", e.Name)
			}
			for _, p := range src.LabelEntries() {
				r.labelPairs = append(r.labelPairs, label.ForeignEntry{Label: p.Label, Symbol: p.Symbol})
			}
			r.hasLabelTab = true
		case kindFst:
			f, err := ser.UnmarshalFst(e.Data)
			if err != nil {
				return nil, fmt.Errorf("archive: decoding entry %q: %w", e.Name, err)
			}
			r.fsts[e.Name] = f
		default:
			return nil, fmt.Errorf("archive: entry %q has unknown kind %d", e.Name, e.Kind)
		}
	}
	return r, nil
}

// SymbolTableEntries implements eval.ArchiveReader.
func (r *Reader) SymbolTableEntries() ([]label.ForeignEntry, bool) {
	return r.labelPairs, r.hasLabelTab
}

// Fsts implements eval.ArchiveReader.
func (r *Reader) Fsts() map[string]fstengine.Fst { return r.fsts }

// Fst returns one named entry from the archive.
func (r *Reader) Fst(name string) (fstengine.Fst, bool) {
	f, ok := r.fsts[name]
	return f, ok
}

// BuildID returns the identifier stamped on the archive when it was written.
func (r *Reader) BuildID() string { return r.buildID }

// Names returns every Fst entry name carried by the archive.
func (r *Reader) Names() []string {
	out := make([]string, 0, len(r.fsts))
	for name := range r.fsts {
		out = append(out, name)
	}
	return out
}
