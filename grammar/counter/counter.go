// Package counter implements the IdentifierCounter pre-pass used for
// dead-value elimination: a single walk over a file's top-level statements
// that tracks, for every rule name, how many unqualified references to it
// remain, so the evaluator can drop a binding from its local environment
// the moment nothing will read it again.
package counter

import (
	"fmt"

	"github.com/dekarrin/grmc/grammar/syntax"
)

// Infinite marks a name whose count never reaches zero — exported rules,
// which may be referenced from outside the file by the archive itself.
const Infinite = -1

// Counter tracks reference counts for every rule defined at the top level
// of one file.
type Counter struct {
	counts map[string]int
}

// New runs the counter pre-pass over stmts and returns the populated
// Counter. Every Rule's lhs is seeded at 0 (or Infinite if exported) before
// any reference is counted, so forward references within the same file are
// counted correctly regardless of definition order.
func New(stmts []syntax.Statement) (*Counter, error) {
	c := &Counter{counts: make(map[string]int)}

	for _, stmt := range stmts {
		if rule, ok := stmt.(*syntax.Rule); ok {
			if rule.Exported {
				c.counts[rule.Name] = Infinite
			} else {
				c.counts[rule.Name] = 0
			}
		}
	}

	for _, stmt := range stmts {
		rule, ok := stmt.(*syntax.Rule)
		if !ok {
			continue
		}
		if err := c.walk(rule.RHS); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// walk recurses through expr incrementing the count of every unqualified
// Identifier reference it finds. Dotted (namespace-qualified) identifiers
// are not subject to dead-value elimination: they name imported bindings
// with their own lifetime managed by the import's own namespace.
func (c *Counter) walk(expr syntax.Expr) error {
	switch n := expr.(type) {
	case *syntax.Identifier:
		if len(n.Namespace()) > 0 {
			return nil
		}
		return c.Increment(n.Leaf())
	case *syntax.FuncCall:
		for _, a := range n.Args {
			if err := c.walk(a); err != nil {
				return err
			}
		}
		return nil
	case *syntax.Concat:
		for _, p := range n.Parts {
			if err := c.walk(p); err != nil {
				return err
			}
		}
		return nil
	case *syntax.BinOp:
		if err := c.walk(n.Left); err != nil {
			return err
		}
		return c.walk(n.Right)
	case *syntax.Repetition:
		return c.walk(n.Operand)
	case *syntax.Weight:
		return c.walk(n.Operand)
	case *syntax.StringFst:
		if n.SymTab != nil {
			return c.walk(n.SymTab)
		}
		return nil
	case *syntax.ModeLit:
		return nil
	default:
		return fmt.Errorf("counter: unhandled expression node %T", expr)
	}
}

// Increment records one more unqualified reference to name. An unknown name
// is a compiler bug (a reference the parser let through to something never
// defined) and is reported as an error rather than panicking, so the
// caller can fold it into ordinary diagnostic reporting.
func (c *Counter) Increment(name string) error {
	count, ok := c.counts[name]
	if !ok {
		return fmt.Errorf("counter: reference to unknown identifier %q", name)
	}
	if count == Infinite {
		return nil
	}
	c.counts[name] = count + 1
	return nil
}

// Decrement records that one pending reference to name has been consumed by
// the evaluator. It returns true if more references remain (the binding
// must be kept) and false once the count has reached zero (the evaluator
// should erase the binding from its environment). An exported name always
// returns true.
func (c *Counter) Decrement(name string) bool {
	count, ok := c.counts[name]
	if !ok {
		return false
	}
	if count == Infinite {
		return true
	}
	if count <= 0 {
		return false
	}
	count--
	c.counts[name] = count
	return count > 0
}

// Count returns the current reference count for name, and whether name is
// tracked at all.
func (c *Counter) Count(name string) (int, bool) {
	n, ok := c.counts[name]
	return n, ok
}
