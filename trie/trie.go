// Package trie implements the in-memory radix (Patricia) trie that
// accumulates hwdb match patterns and their key/value property pairs ahead
// of serialization. The split/descend algorithm is a direct port of
// trie_insert from the reference udevadm-hwdb.c, generalized from
// NUL-terminated C strings to Go byte slices, in the same spirit as this
// lineage's shortNode/fullNode branch-out-at-mismatch insert (see
// DESIGN.md).
package trie

import (
	"github.com/kaysievers/hwdbc/pool"

	"github.com/cockroachdb/errors"
)

// MemoryError wraps an allocation failure from the backing pool. It is
// always fatal to the enclosing build.
type MemoryError struct {
	err error
}

func (e *MemoryError) Error() string { return "trie: " + e.err.Error() }
func (e *MemoryError) Unwrap() error { return e.err }

// Stats mirrors the nodes/children/values counter-trio the reference
// implementation keeps on struct trie, used for sizing and diagnostics.
type Stats struct {
	Nodes    int
	Children int
	Values   int
}

// Trie owns a single root Node and the Pool backing every string it
// references. The Pool is exclusively owned by the Trie and outlives every
// offset it issued for the Trie's lifetime.
type Trie struct {
	Pool *pool.Pool
	root *Node

	stats Stats
}

// New creates an empty Trie: a root node with an empty prefix, no children,
// no values, backed by a fresh Pool with the given byte ceiling (0 =
// unbounded).
func New(maxPoolBytes int) *Trie {
	t := &Trie{
		Pool: pool.New(maxPoolBytes),
		root: &Node{},
	}
	t.stats.Nodes = 1
	return t
}

// Root returns the trie's root node, primarily for traversal by the
// serializer and by tests.
func (t *Trie) Root() *Node { return t.root }

// Stats returns the current node/children/value counters.
func (t *Trie) Stats() Stats { return t.stats }

// Insert locates or creates the unique node whose path from the root spells
// exactly pattern, then records key -> value at that node, overwriting any
// previously stored value for that same key.
//
// pattern, key, and value must not contain a NUL byte; the pool appends its
// own terminator and trie traversal uses len(prefix) as the end-of-prefix
// marker instead of scanning for an embedded NUL.
func (t *Trie) Insert(pattern, key, value []byte) error {
	node := t.root
	i := 0

	for {
		prefix := node.Prefix(t.Pool)

		// Prefix-match phase: find the first mismatch between prefix and
		// pattern[i:], or discover prefix matches in full.
		p := 0
		for p < len(prefix) {
			if i+p >= len(pattern) || prefix[p] != pattern[i+p] {
				break
			}
			p++
		}

		if p < len(prefix) {
			// Split: move node's children/values/prefix-tail into a new
			// child keyed by prefix[p], and shrink node's own prefix to
			// the common head prefix[:p].
			if err := t.splitNode(node, prefix, p); err != nil {
				return err
			}
		}
		i += p

		// Descent phase.
		if i == len(pattern) {
			created, err := node.addValue(t.Pool, key, value)
			if err != nil {
				return t.wrapMemoryError(err)
			}
			if created {
				t.stats.Values++
			}
			return nil
		}

		c := pattern[i]
		if idx, found := node.lookupChild(c); found {
			node = node.children[idx].child
			i++
			continue
		}

		// New leaf: prefix is the untouched remainder of pattern.
		leaf := &Node{}
		if len(pattern) > i+1 {
			off, err := t.Pool.Add(pattern[i+1:])
			if err != nil {
				return t.wrapMemoryError(err)
			}
			leaf.prefix = off
		}
		node.addChild(c, leaf)
		t.stats.Nodes++
		t.stats.Children++
		if _, err := leaf.addValue(t.Pool, key, value); err != nil {
			return t.wrapMemoryError(err)
		}
		t.stats.Values++
		return nil
	}
}

// splitNode allocates a new child carrying node's current children, values,
// and prefix tail (from p+1 onward, skipping the discriminator byte
// prefix[p]), then shrinks node to the common head prefix[:p] with that new
// child as its sole outgoing edge.
func (t *Trie) splitNode(node *Node, prefix []byte, p int) error {
	child := &Node{
		children: node.children,
		values:   node.values,
	}
	if p+1 < len(prefix) {
		off, err := t.Pool.Add(prefix[p+1:])
		if err != nil {
			return t.wrapMemoryError(err)
		}
		child.prefix = off
	}

	var headOff pool.Offset
	if p > 0 {
		off, err := t.Pool.Add(prefix[:p])
		if err != nil {
			return t.wrapMemoryError(err)
		}
		headOff = off
	}

	node.prefix = headOff
	node.children = nil
	node.values = nil
	node.addChild(prefix[p], child)

	t.stats.Nodes++
	t.stats.Children++
	return nil
}

func (t *Trie) wrapMemoryError(err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{err: errors.Wrap(err, "trie insert")}
}
