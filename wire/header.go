// Package wire implements the on-disk binary format: a fixed-size
// little-endian header followed by a post-order nodes region and a
// verbatim strings region, plus the writer that produces it atomically and
// a verification-only decoder used by tests.
package wire

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Signature is the fixed 8-byte ASCII tag identifying the format.
const Signature = "HWDBC001"

// ToolVersion is the compiler version recorded in every header.
const ToolVersion = 1

// On-disk record sizes: 7 bytes of zero padding between children_count
// (u8) and values_count (u64) in a node record, and between c (u8) and
// child_off (u64) in a child entry, keeping every multi-byte field
// naturally aligned.
const (
	HeaderSize     = 80
	NodeSize       = 24
	ChildEntrySize = 16
	ValueEntrySize = 16
)

// IOError wraps a failure reading, writing, or renaming a wire-format
// file. It is always fatal to the enclosing build.
type IOError struct {
	Path string
	err  error
}

func (e *IOError) Error() string { return "wire: " + e.Path + ": " + e.err.Error() }
func (e *IOError) Unwrap() error { return e.err }

func ioErrorf(path string, err error, format string, args ...any) error {
	return &IOError{Path: path, err: errors.Wrapf(err, format, args...)}
}

// NewIOError wraps err as an IOError for path, for callers outside this
// package reporting a failure reading or writing a wire-format file (for
// example, the root package's input-file open step).
func NewIOError(path string, err error) *IOError {
	return &IOError{Path: path, err: err}
}

// Header is the fixed 80-byte preamble at the start of every compiled
// file.
type Header struct {
	ToolVersion    uint64
	FileSize       uint64
	HeaderSize     uint64
	NodeSize       uint64
	ChildEntrySize uint64
	ValueEntrySize uint64
	NodesLen       uint64
	StringsLen     uint64
	NodesRootOff   uint64
}

// Marshal encodes h into the 80-byte on-disk header layout.
func (h *Header) Marshal() [HeaderSize]byte {
	var buf [HeaderSize]byte
	copy(buf[0:8], Signature)
	binary.LittleEndian.PutUint64(buf[8:16], h.ToolVersion)
	binary.LittleEndian.PutUint64(buf[16:24], h.FileSize)
	binary.LittleEndian.PutUint64(buf[24:32], h.HeaderSize)
	binary.LittleEndian.PutUint64(buf[32:40], h.NodeSize)
	binary.LittleEndian.PutUint64(buf[40:48], h.ChildEntrySize)
	binary.LittleEndian.PutUint64(buf[48:56], h.ValueEntrySize)
	binary.LittleEndian.PutUint64(buf[56:64], h.NodesLen)
	binary.LittleEndian.PutUint64(buf[64:72], h.StringsLen)
	binary.LittleEndian.PutUint64(buf[72:80], h.NodesRootOff)
	return buf
}

// UnmarshalHeader decodes the 80-byte on-disk header layout, validating
// the signature.
func UnmarshalHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, errors.Newf("wire: header truncated: got %d bytes, want %d", len(buf), HeaderSize)
	}
	if string(buf[0:8]) != Signature {
		return nil, errors.Newf("wire: bad signature %q", buf[0:8])
	}
	h := &Header{
		ToolVersion:    binary.LittleEndian.Uint64(buf[8:16]),
		FileSize:       binary.LittleEndian.Uint64(buf[16:24]),
		HeaderSize:     binary.LittleEndian.Uint64(buf[24:32]),
		NodeSize:       binary.LittleEndian.Uint64(buf[32:40]),
		ChildEntrySize: binary.LittleEndian.Uint64(buf[40:48]),
		ValueEntrySize: binary.LittleEndian.Uint64(buf[48:56]),
		NodesLen:       binary.LittleEndian.Uint64(buf[56:64]),
		StringsLen:     binary.LittleEndian.Uint64(buf[64:72]),
		NodesRootOff:   binary.LittleEndian.Uint64(buf[72:80]),
	}
	return h, nil
}
