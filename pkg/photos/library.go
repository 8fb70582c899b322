// Package photos abstracts the photo library the scan enumerates. The engine
// only ever sees batches of PhotoSample values; where they come from (a
// device library, a sync export, a manifest file) is the provider's concern.
package photos

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placescan/internal/model"
)

// ErrAccessDenied is returned by Authorize when the library cannot be read.
// It is terminal for a scan: the user must grant access outside the engine.
var ErrAccessDenied = eris.New("photos: library access denied")

// DefaultBatchSize is the enumeration batch size used when callers pass 0.
// Batches in the 100-500 range keep progress reporting responsive without
// thrashing the channel between enumerator and clusterer.
const DefaultBatchSize = 200

// Library enumerates photo samples in capture order.
type Library interface {
	// Authorize checks that the library is readable. A scan never starts
	// without it succeeding.
	Authorize(ctx context.Context) error

	// Enumerate streams samples in batches to fn. When since is non-nil only
	// photos captured strictly after it are delivered (incremental mode).
	// Enumeration stops on the first fn error or context cancellation.
	Enumerate(ctx context.Context, since *time.Time, batchSize int, fn func(batch []model.PhotoSample) error) error
}
