package wire

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// DecodedNode is an in-memory reconstruction of one on-disk node, used only
// to verify round-trip and determinism properties in tests. It is not a
// query engine.
type DecodedNode struct {
	Prefix   []byte
	Children []DecodedChild
	Values   []DecodedValue
}

// DecodedChild pairs a discriminator byte with the decoded subtree it
// leads to.
type DecodedChild struct {
	Disc  byte
	Child *DecodedNode
}

// DecodedValue is one decoded (key, value) property pair.
type DecodedValue struct {
	Key, Value []byte
}

// Decode parses the full file image in buf and returns the decoded tree
// rooted at the header's nodes_root_off, walking it exactly the way
// gaissmai/bart's dumper.go walks a compressed trie for printing, adapted
// here to decode fixed-size binary records instead of emitting text.
func Decode(buf []byte) (*DecodedNode, error) {
	h, err := UnmarshalHeader(buf)
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) != h.FileSize {
		return nil, errors.Newf("wire: file size mismatch: header says %d, got %d bytes", h.FileSize, len(buf))
	}
	d := &decoder{buf: buf, h: h}
	return d.node(h.NodesRootOff)
}

type decoder struct {
	buf []byte
	h   *Header
}

func (d *decoder) node(off uint64) (*DecodedNode, error) {
	if off+NodeSize > uint64(len(d.buf)) {
		return nil, errors.Newf("wire: node offset %d out of range", off)
	}
	rec := d.buf[off : off+NodeSize]
	prefixOff := binary.LittleEndian.Uint64(rec[0:8])
	childCount := int(rec[8])
	valueCount := int(binary.LittleEndian.Uint64(rec[16:24]))

	prefix, err := d.str(prefixOff)
	if err != nil {
		return nil, err
	}
	out := &DecodedNode{Prefix: prefix}

	cursor := off + NodeSize
	for i := 0; i < childCount; i++ {
		if cursor+ChildEntrySize > uint64(len(d.buf)) {
			return nil, errors.Newf("wire: child entry at %d out of range", cursor)
		}
		ce := d.buf[cursor : cursor+ChildEntrySize]
		disc := ce[0]
		childOff := binary.LittleEndian.Uint64(ce[8:16])
		child, err := d.node(childOff)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, DecodedChild{Disc: disc, Child: child})
		cursor += ChildEntrySize
	}

	for i := 0; i < valueCount; i++ {
		if cursor+ValueEntrySize > uint64(len(d.buf)) {
			return nil, errors.Newf("wire: value entry at %d out of range", cursor)
		}
		ve := d.buf[cursor : cursor+ValueEntrySize]
		keyOff := binary.LittleEndian.Uint64(ve[0:8])
		valueOff := binary.LittleEndian.Uint64(ve[8:16])
		key, err := d.str(keyOff)
		if err != nil {
			return nil, err
		}
		value, err := d.str(valueOff)
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, DecodedValue{Key: key, Value: value})
		cursor += ValueEntrySize
	}
	return out, nil
}

// str reads a NUL-terminated string at an absolute file offset.
func (d *decoder) str(off uint64) ([]byte, error) {
	stringsStart := d.h.HeaderSize + d.h.NodesLen
	stringsEnd := stringsStart + d.h.StringsLen
	if off < stringsStart || off >= stringsEnd {
		return nil, errors.Newf("wire: string offset %d outside strings region [%d, %d)", off, stringsStart, stringsEnd)
	}
	end := off
	for end < uint64(len(d.buf)) && d.buf[end] != 0 {
		end++
	}
	if end >= uint64(len(d.buf)) {
		return nil, errors.Newf("wire: unterminated string at offset %d", off)
	}
	return d.buf[off:end], nil
}

// Collect flattens a decoded tree into {pattern -> {key -> value}}.
func Collect(root *DecodedNode) map[string]map[string]string {
	out := make(map[string]map[string]string)
	var walk func(n *DecodedNode, path []byte)
	walk = func(n *DecodedNode, path []byte) {
		full := append(append([]byte(nil), path...), n.Prefix...)
		if len(n.Values) > 0 {
			props := make(map[string]string, len(n.Values))
			for _, v := range n.Values {
				props[string(v.Key)] = string(v.Value)
			}
			out[string(full)] = props
		}
		for _, c := range n.Children {
			walk(c.Child, append(append([]byte(nil), full...), c.Disc))
		}
	}
	walk(root, nil)
	return out
}
