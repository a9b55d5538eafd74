package hwdbc

import (
	"github.com/kaysievers/hwdbc/diagnostics"
	"github.com/kaysievers/hwdbc/wire"
)

// Result is returned by a successful Build.
type Result struct {
	// Header is the on-disk header actually written.
	Header *wire.Header
	// Stats carries the node/children/value and pool dedup counters for
	// the completed build.
	Stats diagnostics.Stats
}
