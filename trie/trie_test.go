package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSingleRecord inserts a single pattern with one property and checks it
// ends up reachable by walking prefixes/discriminators from the root and
// carries exactly one value entry.
func TestSingleRecord(t *testing.T) {
	tr := New(0)
	require.NoError(t, tr.Insert([]byte("usb:v1234p5678"), []byte("MODULE"), []byte("foo")))

	node := walk(t, tr, "usb:v1234p5678")
	require.NotNil(t, node)
	require.Equal(t, 1, node.ValueCount())
	k, v := node.ValueAt(0)
	assert.Equal(t, "MODULE", string(tr.Pool.Get(k)))
	assert.Equal(t, "foo", string(tr.Pool.Get(v)))
}

// TestSplit checks that inserting "abc" then "abd" produces a branch node
// reached via edge 'a' with prefix "b" (path "ab") and two single-value leaf
// children keyed on 'c' and 'd'.
func TestSplit(t *testing.T) {
	tr := New(0)
	require.NoError(t, tr.Insert([]byte("abc"), []byte("K"), []byte("1")))
	require.NoError(t, tr.Insert([]byte("abd"), []byte("K"), []byte("2")))

	root := tr.Root()
	require.Equal(t, 1, root.ChildCount())
	disc, branch := root.ChildAt(0)
	assert.Equal(t, byte('a'), disc)
	assert.Equal(t, "b", string(branch.Prefix(tr.Pool)))
	require.Equal(t, 2, branch.ChildCount())

	dc, cChild := branch.ChildAt(0)
	assert.Equal(t, byte('c'), dc)
	assert.Equal(t, 1, cChild.ValueCount())

	dd, dChild := branch.ChildAt(1)
	assert.Equal(t, byte('d'), dd)
	assert.Equal(t, 1, dChild.ValueCount())
}

// TestOverwrite checks that re-inserting the same (pattern, key) with a new
// value overwrites in place, leaving exactly one value entry.
func TestOverwrite(t *testing.T) {
	tr := New(0)
	require.NoError(t, tr.Insert([]byte("x"), []byte("K"), []byte("1")))
	require.NoError(t, tr.Insert([]byte("x"), []byte("K"), []byte("2")))

	node := walk(t, tr, "x")
	require.Equal(t, 1, node.ValueCount())
	_, v := node.ValueAt(0)
	assert.Equal(t, "2", string(tr.Pool.Get(v)))
}

// TestEmptyValue checks that an empty value line yields a value entry whose
// value offset addresses the empty string.
func TestEmptyValue(t *testing.T) {
	tr := New(0)
	require.NoError(t, tr.Insert([]byte("x"), []byte("K"), []byte("")))

	node := walk(t, tr, "x")
	require.Equal(t, 1, node.ValueCount())
	_, v := node.ValueAt(0)
	assert.Equal(t, "", string(tr.Pool.Get(v)))
}

func TestValuesSortedAndUniqueByKey(t *testing.T) {
	tr := New(0)
	require.NoError(t, tr.Insert([]byte("x"), []byte("ZEBRA"), []byte("1")))
	require.NoError(t, tr.Insert([]byte("x"), []byte("APPLE"), []byte("2")))
	require.NoError(t, tr.Insert([]byte("x"), []byte("MANGO"), []byte("3")))

	node := walk(t, tr, "x")
	require.Equal(t, 3, node.ValueCount())
	var keys []string
	for i := 0; i < node.ValueCount(); i++ {
		k, _ := node.ValueAt(i)
		keys = append(keys, string(tr.Pool.Get(k)))
	}
	assert.Equal(t, []string{"APPLE", "MANGO", "ZEBRA"}, keys)
}

func TestChildrenSortedAndUniqueByDiscriminator(t *testing.T) {
	tr := New(0)
	require.NoError(t, tr.Insert([]byte("zc"), []byte("K"), []byte("1")))
	require.NoError(t, tr.Insert([]byte("ac"), []byte("K"), []byte("2")))
	require.NoError(t, tr.Insert([]byte("mc"), []byte("K"), []byte("3")))

	root := tr.Root()
	require.Equal(t, 3, root.ChildCount())
	var discs []byte
	for i := 0; i < root.ChildCount(); i++ {
		d, _ := root.ChildAt(i)
		discs = append(discs, d)
	}
	assert.Equal(t, []byte{'a', 'm', 'z'}, discs)
}

func TestPathConcatenationReproducesPattern(t *testing.T) {
	// The concatenation of discriminators and node prefixes along a
	// root-to-terminal path must equal the inserted pattern.
	tr := New(0)
	patterns := []string{"usb:v1234p5678", "usb:v1234p9999", "usb:v0001*", "pci:v0000ABCD"}
	for _, p := range patterns {
		require.NoError(t, tr.Insert([]byte(p), []byte("K"), []byte("v")))
	}
	for _, p := range patterns {
		assert.Equal(t, p, reconstructPath(tr, tr.Root(), p, 0), "pattern %q must be reconstructible", p)
	}
}

func TestEmptyTrieHasEmptyRoot(t *testing.T) {
	// An empty build still has a valid root with empty prefix, no
	// children, no values.
	tr := New(0)
	root := tr.Root()
	assert.Equal(t, 0, root.ChildCount())
	assert.Equal(t, 0, root.ValueCount())
	assert.Equal(t, "", string(root.Prefix(tr.Pool)))
}

func TestMemoryErrorOnPoolCeiling(t *testing.T) {
	tr := New(4)
	err := tr.Insert([]byte("much too long a pattern"), []byte("K"), []byte("v"))
	require.Error(t, err)
	var memErr *MemoryError
	assert.ErrorAs(t, err, &memErr)
}

// walk descends node-by-node following pattern, splitting at each edge
// exactly the way a reader of the compiled trie would, to locate the
// terminal node for assertions. It fails the test if the path doesn't
// exist.
func walk(t *testing.T, tr *Trie, pattern string) *Node {
	t.Helper()
	node := tr.Root()
	i := 0
	pb := []byte(pattern)
	for {
		prefix := node.Prefix(tr.Pool)
		require.LessOrEqual(t, i+len(prefix), len(pb), "prefix overruns pattern")
		require.Equal(t, string(prefix), string(pb[i:i+len(prefix)]), "prefix mismatch while walking %q", pattern)
		i += len(prefix)
		if i == len(pb) {
			return node
		}
		c := pb[i]
		idx, found := node.lookupChild(c)
		require.True(t, found, "no child for %q at %q", string(c), pattern)
		node = node.children[idx].child
		i++
	}
}

func reconstructPath(tr *Trie, node *Node, pattern string, i int) string {
	prefix := node.Prefix(tr.Pool)
	out := string(prefix)
	i += len(prefix)
	if i >= len(pattern) {
		return out
	}
	c := pattern[i]
	idx, found := node.lookupChild(c)
	if !found {
		return out
	}
	return out + string(c) + reconstructPath(tr, node.children[idx].child, pattern, i+1)
}
