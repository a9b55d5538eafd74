package wire

import (
	"bufio"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/kaysievers/hwdbc/pool"
	"github.com/kaysievers/hwdbc/trie"
)

// flushThreshold mirrors accdb.IdealBatchSize's buffered-flush convention:
// the bufio.Writer backing the write pass is sized so large builds don't
// hold the whole nodes region in memory before it reaches the OS.
const flushThreshold = 100 * 1024

// Write serializes t to a temporary file adjacent to path, then atomically
// renames it into place with mode 0444. It returns the header actually
// written. ctx is checked once before the write pass begins; there is no
// mid-write cancellation point.
func Write(ctx context.Context, t *trie.Trie, path string) (*Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sizer := &sizePass{}
	sizer.walk(t.Root())
	stringsBase := HeaderSize + sizer.total

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".hwdbc-*")
	if err != nil {
		return nil, ioErrorf(path, err, "creating temp file")
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	bw := bufio.NewWriterSize(tmp, flushThreshold)
	if _, err := bw.Write(make([]byte, HeaderSize)); err != nil {
		_ = tmp.Close()
		return nil, ioErrorf(path, err, "writing header placeholder")
	}

	wp := &writePass{
		w:           bw,
		pool:        t.Pool,
		off:         HeaderSize,
		stringsBase: uint64(stringsBase),
	}
	rootOff, err := wp.walk(t.Root())
	if err != nil {
		_ = tmp.Close()
		return nil, ioErrorf(path, err, "writing nodes region")
	}

	strings := t.Pool.Bytes()
	if _, err := bw.Write(strings); err != nil {
		_ = tmp.Close()
		return nil, ioErrorf(path, err, "writing strings region")
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return nil, ioErrorf(path, err, "flushing")
	}

	h := &Header{
		ToolVersion:    ToolVersion,
		FileSize:       uint64(stringsBase) + uint64(len(strings)),
		HeaderSize:     HeaderSize,
		NodeSize:       NodeSize,
		ChildEntrySize: ChildEntrySize,
		ValueEntrySize: ValueEntrySize,
		NodesLen:       uint64(sizer.total),
		StringsLen:     uint64(len(strings)),
		NodesRootOff:   rootOff,
	}
	hdr := h.Marshal()
	if _, err := tmp.WriteAt(hdr[:], 0); err != nil {
		_ = tmp.Close()
		return nil, ioErrorf(path, err, "writing header")
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, ioErrorf(path, err, "fsync")
	}
	if err := tmp.Chmod(0o444); err != nil {
		_ = tmp.Close()
		return nil, ioErrorf(path, err, "chmod")
	}
	if err := tmp.Close(); err != nil {
		return nil, ioErrorf(path, err, "closing temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, ioErrorf(path, err, "renaming into place")
	}
	return h, nil
}

// sizePass walks the trie post-order, computing the byte length of the
// nodes region exactly as trie_store_nodes_size does in the reference
// implementation.
type sizePass struct {
	total int
}

func (s *sizePass) walk(n *trie.Node) int {
	size := NodeSize + n.ChildCount()*ChildEntrySize + n.ValueCount()*ValueEntrySize
	for i := 0; i < n.ChildCount(); i++ {
		_, child := n.ChildAt(i)
		s.walk(child)
	}
	s.total += size
	return size
}

// writePass walks the trie post-order, writing each subtree before the
// node referencing it, so every child_off is known by the time its parent
// record is emitted, mirroring the children-first recursion of
// TrieDB.commit's buffered batch writes.
type writePass struct {
	w           *bufio.Writer
	pool        *pool.Pool
	off         int
	stringsBase uint64
}

// walk writes n's subtree and returns n's own absolute file offset.
func (w *writePass) walk(n *trie.Node) (uint64, error) {
	childOffs := make([]uint64, n.ChildCount())
	for i := 0; i < n.ChildCount(); i++ {
		_, child := n.ChildAt(i)
		off, err := w.walk(child)
		if err != nil {
			return 0, err
		}
		childOffs[i] = off
	}

	nodeOff := uint64(w.off)
	if err := w.writeNode(n, childOffs); err != nil {
		return 0, err
	}
	return nodeOff, nil
}

func (w *writePass) writeNode(n *trie.Node, childOffs []uint64) error {
	var rec [NodeSize]byte
	binary.LittleEndian.PutUint64(rec[0:8], w.stringOff(n.PrefixOffset()))
	rec[8] = byte(n.ChildCount())
	binary.LittleEndian.PutUint64(rec[16:24], uint64(n.ValueCount()))
	if err := w.write(rec[:]); err != nil {
		return err
	}

	for i := 0; i < n.ChildCount(); i++ {
		disc, _ := n.ChildAt(i)
		var ce [ChildEntrySize]byte
		ce[0] = disc
		binary.LittleEndian.PutUint64(ce[8:16], childOffs[i])
		if err := w.write(ce[:]); err != nil {
			return err
		}
	}

	for i := 0; i < n.ValueCount(); i++ {
		key, value := n.ValueAt(i)
		var ve [ValueEntrySize]byte
		binary.LittleEndian.PutUint64(ve[0:8], w.stringOff(key))
		binary.LittleEndian.PutUint64(ve[8:16], w.stringOff(value))
		if err := w.write(ve[:]); err != nil {
			return err
		}
	}
	return nil
}

// stringOff converts an in-pool offset into the absolute file offset of
// the string it addresses: the in-pool offset plus the base offset of the
// strings region within the file.
func (w *writePass) stringOff(off pool.Offset) uint64 {
	return w.stringsBase + uint64(off)
}

func (w *writePass) write(b []byte) error {
	n, err := w.w.Write(b)
	w.off += n
	return err
}
