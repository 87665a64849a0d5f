// Package label implements the process-wide private-use label interner
// shared by every grammar compiled in a single run. Labels below the
// private-use range are reserved for literal byte/rune values; everything
// the compiler itself names (bracketed tokens, symbol-table entries pulled
// in from an import) is allocated out of the private range, so it collides
// with a literal codepoint only if the source itself uses private-use
// codepoints from that range.
package label

import (
	"fmt"
	"sync"
)

// PrivateStart is the first label value handed out to interned symbols. It
// is the start of Unicode's Supplementary Private Use Area-A, so literal
// byte and UTF-8 arcs alias an interned symbol only if the source text
// contains private-use codepoints from U+F0000 upward.
const PrivateStart int64 = 0xF0000

// Interner maps symbol names to private-use labels and back, and tracks a
// remap table produced by Merge so label identity can be preserved when
// archives compiled in different processes are combined.
type Interner struct {
	mu       sync.Mutex
	bySymbol map[string]int64
	byLabel  map[int64]string
	next     int64
	remap    map[int64]int64
}

// New returns an empty Interner with its private range starting at
// PrivateStart.
func New() *Interner {
	return &Interner{
		bySymbol: make(map[string]int64),
		byLabel:  make(map[int64]string),
		next:     PrivateStart,
	}
}

// Intern returns the label for symbol, allocating a new one if symbol has
// not been seen before. Repeated calls with the same symbol always return
// the same label (injectivity of the symbol -> label mapping).
func (in *Interner) Intern(symbol string) int64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	if lbl, ok := in.bySymbol[symbol]; ok {
		return lbl
	}
	lbl := in.next
	in.next++
	in.bySymbol[symbol] = lbl
	in.byLabel[lbl] = symbol
	return lbl
}

// LookupSymbol returns the symbol interned at label, if any.
func (in *Interner) LookupSymbol(lbl int64) (string, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	s, ok := in.byLabel[lbl]
	return s, ok
}

// LookupLabel returns the label already assigned to symbol, if any, without
// allocating one.
func (in *Interner) LookupLabel(symbol string) (int64, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	lbl, ok := in.bySymbol[symbol]
	return lbl, ok
}

// ForeignTable is the minimal shape Merge needs from an imported archive's
// symbol table: a list of (label, symbol) pairs in the foreign numbering.
type ForeignTable interface {
	Entries() []ForeignEntry
}

// ForeignEntry is one (label, symbol) pair as numbered in a foreign symbol
// table, prior to merging into this process's Interner.
type ForeignEntry struct {
	Label  int64
	Symbol string
}

// MergeResult reports, for every foreign label considered, whether it now
// maps to a different label in this Interner's numbering and so needs its
// arcs relabeled.
type MergeResult struct {
	// Remap maps a foreign label to its equivalent label in this Interner.
	// A foreign label present here with a different value than itself
	// requires the importer to relabel arcs.
	Remap map[int64]int64
}

// Merge absorbs a foreign symbol table into this Interner. For every
// (symbol, label) pair in the foreign table, the following 2x2 decision on
// (symbol already known here, label already taken here) applies:
//
//	no,  no  -> adopt the pair as-is; bump the free-label counter past it
//	           if necessary
//	no,  yes -> the foreign label collides with an unrelated local symbol;
//	           assign symbol a fresh local label and remap foreign->new
//	yes, no  -> symbol already has a local label; remap foreign->existing
//	yes, yes -> if the foreign pair matches the local one exactly, nothing
//	           to do; if the foreign label is already owned locally by a
//	           different symbol, the merge cannot be resolved and fails;
//	           otherwise remap foreign->existing
//
// An error is returned only in the unresolvable yes/yes case. The
// accumulated remap table is retained on the Interner and can be read back
// with Remap until ClearRemap is called.
func (in *Interner) Merge(foreign ForeignTable) (MergeResult, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	result := MergeResult{Remap: make(map[int64]int64)}
	for _, e := range foreign.Entries() {
		existingLabel, symbolKnown := in.bySymbol[e.Symbol]
		owner, labelKnown := in.byLabel[e.Label]

		switch {
		case !symbolKnown && !labelKnown:
			in.bySymbol[e.Symbol] = e.Label
			in.byLabel[e.Label] = e.Symbol
			if e.Label >= in.next {
				in.next = e.Label + 1
			}
		case !symbolKnown && labelKnown:
			fresh := in.next
			in.next++
			in.bySymbol[e.Symbol] = fresh
			in.byLabel[fresh] = e.Symbol
			result.Remap[e.Label] = fresh
		case symbolKnown && !labelKnown:
			result.Remap[e.Label] = existingLabel
		default: // symbolKnown && labelKnown
			if existingLabel == e.Label {
				continue
			}
			if owner != e.Symbol {
				return result, fmt.Errorf("label merge conflict: symbol %q and label %d already bound to different entries", e.Symbol, e.Label)
			}
			result.Remap[e.Label] = existingLabel
		}
	}

	if in.remap == nil {
		in.remap = make(map[int64]int64)
	}
	for k, v := range result.Remap {
		in.remap[k] = v
	}
	return result, nil
}

// Remap returns the label a foreign label should be rewritten to, given
// every Merge call made since the last ClearRemap, and whether any rewrite
// is needed at all.
func (in *Interner) Remap(foreignLabel int64) (int64, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	local, ok := in.remap[foreignLabel]
	return local, ok
}

// CollectRemap returns a copy of the full accumulated remap table built up
// by Merge calls since the last ClearRemap, for callers that need to apply
// it to an arbitrary set of arcs in one pass rather than looking up labels
// one at a time.
func (in *Interner) CollectRemap() map[int64]int64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make(map[int64]int64, len(in.remap))
	for k, v := range in.remap {
		out[k] = v
	}
	return out
}

// ClearRemap discards the accumulated remap table, e.g. once an importer has
// finished relabeling the arcs of one imported archive.
func (in *Interner) ClearRemap() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.remap = nil
}

// Reset discards all interned symbols and returns the Interner to its
// initial empty state. Nothing in the compiler calls it automatically;
// callers that run independent compilations in one process (such as tests)
// call it between them to avoid leaking labels across unrelated grammars.
func (in *Interner) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.bySymbol = make(map[string]int64)
	in.byLabel = make(map[int64]string)
	in.next = PrivateStart
	in.remap = nil
}

// Entries returns every (label, symbol) pair currently interned, in no
// particular order. Satisfies ForeignTable so one Interner's table can seed
// another's Merge in tests.
func (in *Interner) Entries() []ForeignEntry {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]ForeignEntry, 0, len(in.bySymbol))
	for s, l := range in.bySymbol {
		out = append(out, ForeignEntry{Label: l, Symbol: s})
	}
	return out
}

// global is the process-wide interner shared by every grammar compiled in
// this process, matching the specification's requirement that label
// identity be stable across a single compiler invocation's imports.
var global = New()

// Global returns the process-wide Interner.
func Global() *Interner { return global }
