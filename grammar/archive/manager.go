package archive

import (
	"fmt"

	"github.com/dekarrin/grmc/grammar/fstengine"
)

// Manager holds a set of FSTs loaded from one archive and performs rewrites
// via composition, mirroring the compiled grammar's output being reused by
// a downstream tool without re-running the compiler.
type Manager struct {
	engine fstengine.Engine
	r      *Reader
}

// LoadManager opens the archive at path and returns a ready-to-use Manager.
func LoadManager(path string, engine fstengine.Engine) (*Manager, error) {
	r, err := Open(path, engine)
	if err != nil {
		return nil, err
	}
	return &Manager{engine: engine, r: r}, nil
}

// Fst returns one named FST from the archive.
func (m *Manager) Fst(name string) (fstengine.Fst, bool) {
	return m.r.Fst(name)
}

// Names lists every FST entry carried by the archive.
func (m *Manager) Names() []string { return m.r.Names() }

// BuildID returns the archive's stamped build identifier.
func (m *Manager) BuildID() string { return m.r.BuildID() }

// Rewrite composes input through the named rule (compiling input as a byte
// string FST) and renders the result's output tape as text. The named rule
// must exist in the archive; rewriting is undefined (but not an error) on a
// rule whose FST is not functional — ShortestOutputPath simply returns one
// accepting path.
func (m *Manager) Rewrite(name, input string) (string, error) {
	rule, ok := m.r.Fst(name)
	if !ok {
		return "", fmt.Errorf("archive: no such rule %q", name)
	}
	inputFst, err := m.engine.StringFst(fstengine.ModeByte, input, nil, func(string) int64 { return 0 })
	if err != nil {
		return "", fmt.Errorf("archive: compiling input string: %w", err)
	}
	composed, err := m.engine.Compose(inputFst, rule, fstengine.SideBoth)
	if err != nil {
		return "", fmt.Errorf("archive: composing input with %q: %w", name, err)
	}
	extractor, ok := m.engine.(fstengine.PathExtractor)
	if !ok {
		return "", fmt.Errorf("archive: engine %T cannot extract output paths", m.engine)
	}
	out, ok := extractor.ShortestOutputPath(composed)
	if !ok {
		return "", fmt.Errorf("archive: %q does not accept %q", name, input)
	}
	return out, nil
}
