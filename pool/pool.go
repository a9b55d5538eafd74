// Package pool implements the append-only, deduplicating string arena that
// backs every node prefix, property key, and property value in a trie.Trie.
package pool

import (
	"golang.org/x/crypto/blake2b"

	"github.com/cockroachdb/errors"
)

// Offset identifies a NUL-terminated byte sequence inside a Pool. Offset 0
// is the sentinel for the empty string: Pool always begins with a single
// zero byte so that Offset(0) is a valid, empty, NUL-terminated string.
type Offset uint64

// ErrOutOfMemory is returned by Add when the pool's configured byte ceiling
// would be exceeded. It is the in-process analogue of the reference
// implementation's realloc failure: fatal to the enclosing build.
var ErrOutOfMemory = errors.New("pool: out of memory")

// ErrFrozen is returned by Add once Freeze has been called.
var ErrFrozen = errors.New("pool: frozen")

// digest is a 128-bit content hash used as the dedup index key so the index
// does not have to retain a second copy of every interned string.
type digest [16]byte

// Pool is a growable byte buffer plus a hash-indexed map used for
// deduplication. It is not safe for concurrent use.
type Pool struct {
	buf    []byte
	index  map[digest][]Offset
	frozen bool
	maxLen int // 0 means unbounded

	// diagnostics
	addCount   int
	dedupCount int
	addBytes   int
	dedupBytes int
}

// New creates an empty Pool. maxBytes, if non-zero, bounds the pool's total
// size; Add returns ErrOutOfMemory once adding a string would cross it.
func New(maxBytes int) *Pool {
	p := &Pool{
		buf:    make([]byte, 1, 4096),
		index:  make(map[digest][]Offset),
		maxLen: maxBytes,
	}
	p.buf[0] = 0
	return p
}

// Add interns b, NUL-terminated, and returns a stable Offset to its first
// byte. Identical byte sequences return the same Offset. Offsets are
// monotone within a build only when no dedup hit occurred; callers must not
// rely on monotonicity otherwise.
func (p *Pool) Add(b []byte) (Offset, error) {
	if p.frozen {
		return 0, errors.WithStack(ErrFrozen)
	}
	if len(b) == 0 {
		p.addCount++
		return 0, nil
	}

	p.addCount++
	p.addBytes += len(b)

	sum := blake2b.Sum256(b)
	var d digest
	copy(d[:], sum[:16])

	for _, off := range p.index[d] {
		if p.contentAt(off, len(b)) == string(b) {
			p.dedupCount++
			p.dedupBytes += len(b)
			return off, nil
		}
	}

	need := len(b) + 1
	if p.maxLen != 0 && len(p.buf)+need > p.maxLen {
		return 0, errors.Wrapf(ErrOutOfMemory, "adding %d bytes would exceed %d byte pool ceiling", need, p.maxLen)
	}

	off := Offset(len(p.buf))
	p.buf = append(p.buf, b...)
	p.buf = append(p.buf, 0)
	p.index[d] = append(p.index[d], off)
	return off, nil
}

// contentAt returns the n bytes stored at off, without the NUL terminator,
// for dedup-candidate verification.
func (p *Pool) contentAt(off Offset, n int) string {
	start := int(off)
	end := start + n
	if end > len(p.buf) {
		return ""
	}
	return string(p.buf[start:end])
}

// Freeze marks the pool immutable. Subsequent Add calls return ErrFrozen.
func (p *Pool) Freeze() {
	p.frozen = true
}

// Frozen reports whether Freeze has been called.
func (p *Pool) Frozen() bool {
	return p.frozen
}

// Bytes returns the pool's contiguous byte image. Valid at any time, but
// only stable for serialization after Freeze.
func (p *Pool) Bytes() []byte {
	return p.buf
}

// Len returns the current size of the pool's byte image.
func (p *Pool) Len() int {
	return len(p.buf)
}

// Get returns the NUL-terminated byte sequence stored at off, excluding the
// terminator, for use by trie comparators. It panics if off does not point
// at a valid NUL-terminated string, which indicates a programming error
// (corrupt offset), not a recoverable runtime condition.
func (p *Pool) Get(off Offset) []byte {
	i := int(off)
	if i < 0 || i > len(p.buf) {
		panic("pool: offset out of range")
	}
	end := i
	for end < len(p.buf) && p.buf[end] != 0 {
		end++
	}
	if end == len(p.buf) {
		panic("pool: unterminated string at offset")
	}
	return p.buf[i:end]
}

// Stats summarizes pool activity for diagnostics. It is a read at any point
// in the build, not only after Freeze.
type Stats struct {
	Bytes      int
	AddCount   int
	AddBytes   int
	DedupCount int
	DedupBytes int
}

// Stats returns the current dedup/sizing statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		Bytes:      len(p.buf),
		AddCount:   p.addCount,
		AddBytes:   p.addBytes,
		DedupCount: p.dedupCount,
		DedupBytes: p.dedupBytes,
	}
}
