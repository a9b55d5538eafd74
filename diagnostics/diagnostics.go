// Package diagnostics defines the structured build-statistics sink, a
// stand-in for the log_debug statistics the reference udevadm-hwdb.c tool
// prints at the end of a build (strings in total/dedup'ed, nodes/children/
// values counts).
package diagnostics

import (
	"github.com/kaysievers/hwdbc/trie"
)

// Stats combines the pool's dedup counters with the trie's
// node/children/value counters.
type Stats struct {
	Nodes      int
	Children   int
	Values     int
	PoolBytes  int
	AddCount   int
	AddBytes   int
	DedupCount int
	DedupBytes int
}

// FromBuild assembles Stats from a finished trie and its pool.
func FromBuild(t *trie.Trie) Stats {
	ts := t.Stats()
	ps := t.Pool.Stats()
	return Stats{
		Nodes:      ts.Nodes,
		Children:   ts.Children,
		Values:     ts.Values,
		PoolBytes:  ps.Bytes,
		AddCount:   ps.AddCount,
		AddBytes:   ps.AddBytes,
		DedupCount: ps.DedupCount,
		DedupBytes: ps.DedupBytes,
	}
}

// Sink receives progress and completion callbacks during a build. A nil
// method receiver is never invoked; callers needing a no-op sink should use
// NopSink.
type Sink interface {
	OnFileStart(path string)
	OnFileDone(path string)
	OnMalformedLine(path string, line int, text string)
	OnBuildComplete(Stats)
}

// NopSink discards every callback.
type NopSink struct{}

func (NopSink) OnFileStart(string)                  {}
func (NopSink) OnFileDone(string)                   {}
func (NopSink) OnMalformedLine(string, int, string) {}
func (NopSink) OnBuildComplete(Stats)               {}

// MalformedLine records one OnMalformedLine callback for later inspection.
type MalformedLine struct {
	Path string
	Line int
	Text string
}

// CollectingSink records every callback it receives, for use in tests that
// need to assert on diagnostics without wiring a real logger.
type CollectingSink struct {
	FilesStarted []string
	FilesDone    []string
	Malformed    []MalformedLine
	Final        Stats
}

func (s *CollectingSink) OnFileStart(path string) {
	s.FilesStarted = append(s.FilesStarted, path)
}

func (s *CollectingSink) OnFileDone(path string) {
	s.FilesDone = append(s.FilesDone, path)
}

func (s *CollectingSink) OnMalformedLine(path string, line int, text string) {
	s.Malformed = append(s.Malformed, MalformedLine{Path: path, Line: line, Text: text})
}

func (s *CollectingSink) OnBuildComplete(stats Stats) {
	s.Final = stats
}
