// Package record implements the line-oriented text format that drives
// trie.Trie inserts: comments, blank-line record boundaries, match lines,
// and space-prefixed KEY=VALUE property lines. It is a direct port of
// import_file from the reference udevadm-hwdb.c, generalized to resolve
// multi-match records explicitly via Mode instead of silently matching
// only the historical single-match-buffer behavior.
package record

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// Mode selects how a record with more than one match line is handled.
type Mode int

const (
	// ModeFaithful retains only the first match line of a record, exactly
	// reproducing the reference implementation's single-slot match buffer.
	ModeFaithful Mode = iota
	// ModeCrossProduct inserts every (Mi, Kj, Vj) combination when a
	// record has more than one match line.
	ModeCrossProduct
)

// Inserter is the subset of trie.Trie's behavior Scan needs. Decoupling
// from *trie.Trie keeps record free of a dependency on the trie package's
// internals and makes Scan directly testable with a fake.
type Inserter interface {
	Insert(pattern, key, value []byte) error
}

// MalformedLineError describes a value line that failed to parse. Scan
// never returns one: it reports the condition through onMalformed and
// continues, tolerating the bad line at its own granularity rather than
// failing the whole file.
type MalformedLineError struct {
	File string
	Line int
	Text string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("record: malformed line %d in %s: %q", e.Line, e.File, e.Text)
}

// MalformedFunc is invoked for every line Scan skips because it cannot be
// parsed as a property line.
type MalformedFunc func(*MalformedLineError)

// Scan reads file's text-format content from r and inserts every
// (pattern, key, value) triple it finds into ins, in the order encountered.
// It returns an error only when reading r fails or ins.Insert fails;
// malformed value lines are reported via onMalformed (which may be nil) and
// otherwise ignored.
func Scan(r io.Reader, file string, mode Mode, ins Inserter, onMalformed MalformedFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var matches [][]byte
	lineNo := 0

	flush := func() {
		matches = matches[:0]
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()

		switch {
		case len(line) == 0:
			flush()
			continue
		case line[0] == '#':
			continue
		case line[0] != ' ':
			if len(matches) == 0 || mode == ModeCrossProduct {
				matches = append(matches, append([]byte(nil), line...))
			} else {
				// ModeFaithful: a record's match buffer holds only the
				// first match line; subsequent match lines before any
				// value line are dropped, mirroring the C single-slot
				// buffer that never resets until a blank line.
			}
			continue
		}

		if len(matches) == 0 {
			continue
		}

		key, value, ok := splitValueLine(line[1:])
		if !ok {
			if onMalformed != nil {
				onMalformed(&MalformedLineError{File: file, Line: lineNo, Text: string(line)})
			}
			continue
		}

		for _, m := range matches {
			if err := ins.Insert(m, key, value); err != nil {
				return errors.Wrapf(err, "record: inserting from %s:%d", file, lineNo)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "record: reading %s", file)
	}
	return nil
}

// splitValueLine splits a KEY=VALUE line (the leading space already
// stripped) at the first '='. It reports false if no '=' is present.
func splitValueLine(line []byte) (key, value []byte, ok bool) {
	for i, b := range line {
		if b == '=' {
			return line[:i], line[i+1:], true
		}
	}
	return nil, nil, false
}
