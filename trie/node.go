package trie

import (
	"bytes"
	"sort"

	"github.com/kaysievers/hwdbc/pool"
)

// childEdge is a single outgoing edge, keyed by its discriminator byte.
type childEdge struct {
	c     byte
	child *Node
}

// valueEntry is a (key, value) property pair attached to the node where a
// pattern terminates.
type valueEntry struct {
	key   pool.Offset
	value pool.Offset
}

// Node is one node of the radix trie. Its children are kept sorted and
// unique by discriminator, its values sorted and unique by key, and its
// prefix is split only at the first byte where an inserted pattern diverges
// from it. A child's discriminator may equal a byte of the prefix (a node
// with prefix "b" can have a child keyed on 'b').
type Node struct {
	prefix   pool.Offset
	children []childEdge
	values   []valueEntry
}

// Prefix returns the node's prefix bytes, looked up in p.
func (n *Node) Prefix(p *pool.Pool) []byte {
	return p.Get(n.prefix)
}

// PrefixOffset returns the pool offset of the node's prefix, for callers
// (the serializer) that need the offset itself rather than its bytes.
func (n *Node) PrefixOffset() pool.Offset {
	return n.prefix
}

// ChildCount returns the number of outgoing edges.
func (n *Node) ChildCount() int { return len(n.children) }

// ValueCount returns the number of property entries at this node.
func (n *Node) ValueCount() int { return len(n.values) }

// ChildAt returns the i-th child edge in sorted order.
func (n *Node) ChildAt(i int) (disc byte, child *Node) {
	e := n.children[i]
	return e.c, e.child
}

// ValueAt returns the i-th value entry (key offset, value offset) in sorted
// key order.
func (n *Node) ValueAt(i int) (key, value pool.Offset) {
	v := n.values[i]
	return v.key, v.value
}

// lookupChild finds the child keyed by c via binary search, since children
// are always kept sorted by discriminator.
func (n *Node) lookupChild(c byte) (int, bool) {
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].c >= c
	})
	if i < len(n.children) && n.children[i].c == c {
		return i, true
	}
	return i, false
}

// addChild inserts a new child at the sorted position for discriminator c.
// c must not already be present; callers (insert's split/descend steps)
// only ever add a discriminator once.
func (n *Node) addChild(c byte, child *Node) {
	i, found := n.lookupChild(c)
	if found {
		// Should never happen given the call sites in Insert; guard
		// against silently corrupting the uniqueness invariant.
		n.children[i].child = child
		return
	}
	n.children = append(n.children, childEdge{})
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = childEdge{c: c, child: child}
}

// addValue interns key/value and inserts or overwrites the (key, value)
// entry, keeping values sorted by the pool bytes of key. It reports whether
// a new entry was created, as opposed to an existing key's value being
// overwritten, so callers can keep accurate value counters.
func (n *Node) addValue(p *pool.Pool, key, value []byte) (created bool, err error) {
	koff, err := p.Add(key)
	if err != nil {
		return false, err
	}
	voff, err := p.Add(value)
	if err != nil {
		return false, err
	}

	kb := key
	i := sort.Search(len(n.values), func(i int) bool {
		return bytes.Compare(p.Get(n.values[i].key), kb) >= 0
	})
	if i < len(n.values) && bytes.Equal(p.Get(n.values[i].key), kb) {
		n.values[i].value = voff
		return false, nil
	}
	n.values = append(n.values, valueEntry{})
	copy(n.values[i+1:], n.values[i:])
	n.values[i] = valueEntry{key: koff, value: voff}
	return true, nil
}
