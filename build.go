// Package hwdbc compiles hardware property records into the binary index
// format defined by the wire package. It is the orchestration layer tying
// together record.Scan, trie.Trie, and wire.Write: read every input file in
// order, insert what they describe into one trie, then serialize it.
package hwdbc

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/kaysievers/hwdbc/diagnostics"
	"github.com/kaysievers/hwdbc/record"
	"github.com/kaysievers/hwdbc/trie"
	"github.com/kaysievers/hwdbc/wire"
)

// Build reads cfg.InputFiles in order, inserts every record into one
// trie.Trie, and serializes it to cfg.OutputPath. It stops at the first
// IOError or MemoryError; malformed input lines are reported through
// cfg.Diagnostics and otherwise ignored.
func Build(ctx context.Context, cfg Config) (*Result, error) {
	sink := cfg.sink()
	tr := trie.New(cfg.MaxPoolBytes)

	for _, path := range cfg.InputFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sink.OnFileStart(path)
		if err := scanFile(path, cfg.Mode, tr, sink); err != nil {
			return nil, err
		}
		sink.OnFileDone(path)
	}

	tr.Pool.Freeze()

	hdr, err := wire.Write(ctx, tr, cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	stats := diagnostics.FromBuild(tr)
	sink.OnBuildComplete(stats)

	return &Result{Header: hdr, Stats: stats}, nil
}

func scanFile(path string, mode record.Mode, tr *trie.Trie, sink diagnostics.Sink) error {
	f, err := os.Open(path)
	if err != nil {
		return wire.NewIOError(path, err)
	}
	defer f.Close()

	onMalformed := func(e *record.MalformedLineError) {
		sink.OnMalformedLine(e.File, e.Line, e.Text)
	}
	if err := record.Scan(f, path, mode, tr, onMalformed); err != nil {
		return errors.Wrapf(err, "hwdbc: scanning %s", path)
	}
	return nil
}
