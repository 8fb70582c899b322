// Package scan drives the photo-to-place discovery pipeline: phase 1
// enumerates and clusters the photo library, phase 2 resolves clusters to
// regions one at a time with durable checkpoints, so a killed or cancelled
// scan resumes without repeating work.
package scan

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/placescan/internal/cluster"
	"github.com/sells-group/placescan/internal/model"
	"github.com/sells-group/placescan/internal/progress"
	"github.com/sells-group/placescan/internal/region"
	"github.com/sells-group/placescan/pkg/photos"
)

// ErrScanActive is returned when a scan or resume is requested while another
// scan is running. At most one scan is active per coordinator.
var ErrScanActive = eris.New("scan: another scan is already active")

// ErrNoPendingScan is returned by Resume when no resumable progress exists.
var ErrNoPendingScan = eris.New("scan: no resumable progress")

// checkpointInterval is the number of resolved clusters between progress
// saves.
const checkpointInterval = 10

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCellSize overrides the clustering grid cell size in degrees.
func WithCellSize(deg float64) Option {
	return func(c *Coordinator) { c.cellSize = deg }
}

// WithBatchSize overrides the phase-1 enumeration batch size.
func WithBatchSize(n int) Option {
	return func(c *Coordinator) { c.batchSize = n }
}

// Coordinator owns the scan state machine. It is safe for concurrent use:
// control methods (Cancel, EnterBackground, Subscribe) may be called from
// any goroutine while Scan or Resume runs on another.
type Coordinator struct {
	library  photos.Library
	resolver *region.Resolver
	store    progress.Store

	cellSize  float64
	batchSize int

	mu         sync.Mutex
	cancelFn   context.CancelFunc
	running    bool
	background bool

	bcast *broadcaster
	log   *zap.Logger
}

// New creates a Coordinator over the given collaborators.
func New(library photos.Library, resolver *region.Resolver, store progress.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		library:   library,
		resolver:  resolver,
		store:     store,
		cellSize:  model.DefaultCellSizeDeg,
		batchSize: photos.DefaultBatchSize,
		bcast:     newBroadcaster(),
		log:       zap.L().With(zap.String("component", "scan.coordinator")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe returns a channel of state transitions. The current state is
// delivered immediately; slow consumers miss intermediate states rather than
// blocking the scan.
func (c *Coordinator) Subscribe() <-chan State {
	return c.bcast.subscribe()
}

// CurrentState returns the most recently emitted state.
func (c *Coordinator) CurrentState() State {
	return c.bcast.current()
}

// Cancel requests a controlled stop. The running scan checkpoints at the
// next cluster boundary; already-resolved clusters are never lost.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelFn != nil {
		c.cancelFn()
	}
}

// Expire is the app-lifecycle expiration hook: the host is about to suspend
// the process, so checkpoint and stop exactly as an explicit cancel would.
func (c *Coordinator) Expire() {
	c.Cancel()
}

// EnterBackground relabels a running scan as backgrounded. This is pure state
// relabeling for the benefit of observers; resolution continues unchanged.
func (c *Coordinator) EnterBackground() {
	c.setBackground(true)
}

// EnterForeground relabels a backgrounded scan as scanning.
func (c *Coordinator) EnterForeground() {
	c.setBackground(false)
}

func (c *Coordinator) setBackground(bg bool) {
	c.mu.Lock()
	c.background = bg
	c.mu.Unlock()

	cur := c.bcast.current()
	if bg && cur.Phase == PhaseScanning {
		cur.Phase = PhaseBackgrounded
		c.bcast.publish(cur)
	} else if !bg && cur.Phase == PhaseBackgrounded {
		cur.Phase = PhaseScanning
		c.bcast.publish(cur)
	}
}

// HasPendingScan reports whether resumable progress from a prior scan exists.
func (c *Coordinator) HasPendingScan(ctx context.Context) bool {
	p, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn("pending scan check failed", zap.Error(err))
		return false
	}
	return p != nil
}

// Reset discards any persisted progress. It fails if a scan is running.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrScanActive
	}
	c.mu.Unlock()
	return c.store.Clear(ctx)
}

// Scan runs a full scan: enumerate and cluster the library (phase 1), then
// resolve each cluster to a region (phase 2). Keys present in existing are
// counted as already visited and excluded from the emitted locations. In
// incremental mode only photos captured after the last completed scan are
// enumerated. Scan blocks until completion, cancellation, or error.
func (c *Coordinator) Scan(ctx context.Context, existing map[model.LocationKey]bool, incremental bool) error {
	scanCtx, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer c.end()

	c.bcast.publish(State{Phase: PhaseRequestingPermission})
	if err := c.library.Authorize(scanCtx); err != nil {
		c.bcast.publish(State{Phase: PhaseError, Message: err.Error()})
		return eris.Wrap(err, "scan: library authorization")
	}

	var since *time.Time
	if incremental {
		since, err = c.store.LastScanTime(scanCtx)
		if err != nil {
			c.log.Warn("incremental watermark unavailable, running full scan", zap.Error(err))
			since = nil
		}
	}

	cl, err := c.collect(scanCtx, since)
	if err != nil {
		if scanCtx.Err() != nil {
			// Cancelled during collection: nothing persisted yet, nothing to
			// resume.
			c.bcast.publish(State{Phase: PhaseIdle})
			return nil
		}
		c.bcast.publish(State{Phase: PhaseError, Message: err.Error()})
		return err
	}

	pending := cl.Clusters()
	p := &model.ScanProgress{
		Version:           model.CurrentProgressVersion,
		ScanID:            uuid.NewString(),
		ProcessedGridKeys: make(map[string]bool, len(pending)),
		PendingClusters:   pending,
		TotalClusterCount: len(pending),
		Stats: model.ImportStatistics{
			TotalPhotosScanned:    cl.Located() + cl.Dropped(),
			PhotosWithLocation:    cl.Located(),
			PhotosWithoutLocation: cl.Dropped(),
			ClustersCreated:       cl.Len(),
		},
		StartedAt: time.Now().UTC(),
	}

	// Persist the full cluster list before phase 2 so a kill between phases
	// resumes without re-running enumeration.
	c.save(scanCtx, p)

	c.log.Info("collection complete",
		zap.String("scan_id", p.ScanID),
		zap.Int("photos", p.Stats.TotalPhotosScanned),
		zap.Int("clusters", len(pending)),
	)

	return c.runPhase2(scanCtx, p, existing)
}

// Resume continues a previously checkpointed scan from its pending clusters,
// skipping phase 1 entirely.
func (c *Coordinator) Resume(ctx context.Context, existing map[model.LocationKey]bool) error {
	scanCtx, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer c.end()

	p, err := c.store.Load(scanCtx)
	if err != nil {
		c.log.Warn("progress load failed, treating as no pending scan", zap.Error(err))
		p = nil
	}
	if p == nil {
		return ErrNoPendingScan
	}

	c.log.Info("resuming scan",
		zap.String("scan_id", p.ScanID),
		zap.Int("processed", len(p.ProcessedGridKeys)),
		zap.Int("pending", len(p.PendingClusters)),
	)

	return c.runPhase2(scanCtx, p, existing)
}

// begin acquires the single-active-scan guard and derives the cancellable
// scan context.
func (c *Coordinator) begin(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil, ErrScanActive
	}
	scanCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancelFn = cancel
	return scanCtx, nil
}

func (c *Coordinator) end() {
	c.mu.Lock()
	if c.cancelFn != nil {
		c.cancelFn()
		c.cancelFn = nil
	}
	c.running = false
	c.mu.Unlock()
}

// collect runs phase 1: a worker enumerates the library in batches into a
// bounded channel while the coordinator folds them into the clusterer and
// reports progress, keeping library I/O off the state-emitting loop.
func (c *Coordinator) collect(ctx context.Context, since *time.Time) (*cluster.Clusterer, error) {
	cl := cluster.New(c.cellSize)
	batches := make(chan []model.PhotoSample, 4)

	g, enumCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		return c.library.Enumerate(enumCtx, since, c.batchSize, func(batch []model.PhotoSample) error {
			cp := make([]model.PhotoSample, len(batch))
			copy(cp, batch)
			select {
			case batches <- cp:
				return nil
			case <-enumCtx.Done():
				return enumCtx.Err()
			}
		})
	})

	photosProcessed := 0
	for batch := range batches {
		cl.Add(batch)
		photosProcessed += len(batch)
		c.bcast.publish(State{Phase: PhaseCollecting, PhotosProcessed: photosProcessed})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scan: photo enumeration")
	}
	return cl, nil
}

// runPhase2 resolves pending clusters sequentially, folding matches into the
// deduplicated location accumulator and checkpointing every
// checkpointInterval clusters. Cancellation is honored between clusters; a
// resolution it aborts mid-flight is discarded and its cluster stays pending
// so a resume re-resolves it.
func (c *Coordinator) runPhase2(ctx context.Context, p *model.ScanProgress, existing map[model.LocationKey]bool) error {
	agg := NewAggregator(p.Stats)

	// Rehydrate the accumulator in its persisted first-seen order.
	acc := make(map[string]*model.DiscoveredLocation, len(p.PartialResults))
	order := make([]string, 0, len(p.PartialResults))
	for i := range p.PartialResults {
		d := p.PartialResults[i]
		key := d.Key.String()
		acc[key] = &d
		order = append(order, key)
	}
	alreadyVisited := p.AlreadyVisited

	checkpoint := func(saveCtx context.Context, remaining []model.PhotoCluster) {
		p.PendingClusters = remaining
		p.PartialResults = p.PartialResults[:0]
		for _, k := range order {
			p.PartialResults = append(p.PartialResults, *acc[k])
		}
		p.Stats = agg.Snapshot()
		p.AlreadyVisited = alreadyVisited
		c.save(saveCtx, p)
	}

	// stop persists everything not yet processed and the accumulator as it
	// stands. Saves use an uncancelled context so the checkpoint itself is
	// not aborted.
	stop := func(remaining []model.PhotoCluster) {
		checkpoint(context.WithoutCancel(ctx), remaining)
		c.log.Info("scan stopped, progress checkpointed",
			zap.String("scan_id", p.ScanID),
			zap.Int("processed", len(p.ProcessedGridKeys)),
			zap.Int("remaining", len(remaining)),
		)
		c.bcast.publish(State{Phase: PhaseIdle})
	}

	pending := p.PendingClusters
	for i := 0; i < len(pending); i++ {
		if ctx.Err() != nil || c.resolver.Pace(ctx) != nil {
			stop(pending[i:])
			return nil
		}

		cl := pending[i]
		resolved := c.resolver.Resolve(ctx, cl)
		if resolved == nil && ctx.Err() != nil {
			// Cancellation landed while the lookup was in flight, so the nil
			// is an aborted resolution, not a genuine miss. The cluster stays
			// pending and a resume re-resolves it.
			stop(pending[i:])
			return nil
		}
		if resolved == nil {
			agg.RecordUnmatched(cl)
		} else {
			agg.RecordMatched(resolved.CountryCode)
			key := resolved.Key()
			if existing[key] {
				alreadyVisited++
			} else if d, ok := acc[key.String()]; ok {
				d.Fold(cl.PhotoCount, cl.EarliestCapturedAt)
			} else {
				acc[key.String()] = model.NewDiscoveredLocation(*resolved, cl)
				order = append(order, key.String())
			}
		}

		p.ProcessedGridKeys[cl.GridKey] = true

		if (i+1)%checkpointInterval == 0 {
			checkpoint(ctx, pending[i+1:])
		}

		c.bcast.publish(State{
			Phase:             c.phase2Label(),
			ClustersProcessed: len(p.ProcessedGridKeys),
			TotalClusters:     p.TotalClusterCount,
			LocationsFound:    len(acc),
		})
	}

	// Completion: emit locations sorted by descending photo count, stable
	// over first-seen order for ties, and clear the checkpoint.
	locations := make([]model.DiscoveredLocation, 0, len(order))
	for _, k := range order {
		locations = append(locations, *acc[k])
	}
	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].PhotoCount > locations[j].PhotoCount
	})

	stats := agg.Snapshot()
	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn("clearing progress failed", zap.Error(err))
	}
	if err := c.store.SetLastScanTime(ctx, time.Now().UTC()); err != nil {
		c.log.Warn("recording scan watermark failed", zap.Error(err))
	}

	c.log.Info("scan complete",
		zap.String("scan_id", p.ScanID),
		zap.Int("locations", len(locations)),
		zap.Int("already_visited", alreadyVisited),
		zap.Int("unmatched", stats.ClustersUnmatched),
	)

	c.bcast.publish(State{
		Phase:          PhaseCompleted,
		Locations:      locations,
		TotalFound:     len(locations),
		AlreadyVisited: alreadyVisited,
		Stats:          &stats,
	})
	return nil
}

func (c *Coordinator) phase2Label() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.background {
		return PhaseBackgrounded
	}
	return PhaseScanning
}

// save persists a checkpoint best-effort: a failed save is logged and the
// scan continues in memory rather than aborting.
func (c *Coordinator) save(ctx context.Context, p *model.ScanProgress) {
	if err := c.store.Save(ctx, p); err != nil {
		c.log.Warn("progress save failed, continuing in memory",
			zap.String("scan_id", p.ScanID),
			zap.Error(err),
		)
	}
}
