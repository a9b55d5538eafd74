package hwdbc

import (
	"github.com/kaysievers/hwdbc/diagnostics"
	"github.com/kaysievers/hwdbc/record"
)

// Config configures one call to Build.
type Config struct {
	// InputFiles are read in order; every (pattern, key, value) they
	// yield is inserted into one trie before serialization begins.
	InputFiles []string

	// OutputPath is where the compiled binary index is atomically
	// written.
	OutputPath string

	// Mode selects how a record with more than one match line is
	// handled. The zero value is record.ModeFaithful, matching the
	// historical single-match-buffer behavior consumers already depend
	// on.
	Mode record.Mode

	// MaxPoolBytes caps the string pool's total size; 0 means unbounded.
	MaxPoolBytes int

	// Diagnostics receives build progress and final statistics. A nil
	// Diagnostics is treated as diagnostics.NopSink.
	Diagnostics diagnostics.Sink
}

func (c Config) sink() diagnostics.Sink {
	if c.Diagnostics == nil {
		return diagnostics.NopSink{}
	}
	return c.Diagnostics
}
