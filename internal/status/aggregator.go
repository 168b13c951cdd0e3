package status

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/bell"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/events"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/track"
)

var statusLog = logging.ForComponent(logging.CompStatus)

// Aggregator runs tracker scans and the events detector, merges the results
// into an immutable Snapshot, and publishes it by atomic pointer swap.
// Refreshes are serialized per process; readers always observe either the
// previous complete snapshot or the new one.
type Aggregator struct {
	cat      *catalog.Catalog
	trackers track.Set
	detector *events.Detector
	bell     *bell.Machine
	cache    *handle.Cache

	// isLeader gates bell emission and durable cache writes; only the
	// elected refresh driver performs them.
	isLeader func() bool

	refreshMu sync.Mutex
	group     singleflight.Group
	limiter   *rate.Limiter
	current   atomic.Pointer[Snapshot]
	seeded    bool

	// onDriven, when set, runs after each refresh this process drove.
	onDriven func()
}

// OnDriven registers a callback invoked after every leader-driven refresh,
// once durable state has been persisted. Call before the first refresh.
func (a *Aggregator) OnDriven(fn func()) {
	a.onDriven = fn
}

// NewAggregator wires the aggregator. demandPerMinute caps explicit
// refresh demands; the periodic loop is not limited. A nil isLeader means
// this process always drives.
func NewAggregator(cat *catalog.Catalog, trackers track.Set, detector *events.Detector, machine *bell.Machine, cache *handle.Cache, isLeader func() bool, demandPerMinute int) *Aggregator {
	if isLeader == nil {
		isLeader = func() bool { return true }
	}
	if demandPerMinute <= 0 {
		demandPerMinute = 30
	}
	return &Aggregator{
		cat:      cat,
		trackers: trackers,
		detector: detector,
		bell:     machine,
		cache:    cache,
		isLeader: isLeader,
		limiter:  rate.NewLimiter(rate.Limit(float64(demandPerMinute)/60.0), demandPerMinute),
	}
}

// Snapshot returns the last published snapshot, nil before the first
// refresh completes.
func (a *Aggregator) Snapshot() *Snapshot {
	return a.current.Load()
}

// Refresh performs one full scan-classify-merge cycle and publishes the
// result. Concurrent callers serialize; each still gets a snapshot built
// after their call started.
func (a *Aggregator) Refresh(ctx context.Context) (*Snapshot, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	sessions := a.cat.Load()
	ids := make([]string, len(sessions))
	names := make(map[string]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
		names[s.ID] = s.Alias
	}

	// Tracker scans fan out; each writes its own slot so no locking is
	// needed on the way back in.
	scans := make([]map[string]bool, len(a.trackers))
	g, gctx := errgroup.WithContext(ctx)
	for i, tr := range a.trackers {
		g.Go(func() error {
			scans[i] = tr.Scan(gctx, sessions)
			return nil
		})
	}
	_ = g.Wait() // trackers never return errors; absence is the failure mode

	if err := ctx.Err(); err != nil {
		// Cancelled mid-probe: discard the partial cycle.
		return a.current.Load(), err
	}

	results := a.detector.ScanAll(ids)

	if a.isLeader() {
		if !a.seeded {
			a.bell.InitFromCurrent(results)
			a.seeded = true
		} else {
			a.bell.Observe(results, names)
		}
		if err := a.cache.PersistAll(); err != nil {
			statusLog.Warn("handle_cache_persist_failed", slog.String("error", err.Error()))
		}
		if a.onDriven != nil {
			a.onDriven()
		}
	}

	snap := a.merge(sessions, scans, results)
	a.current.Store(snap)
	return snap, nil
}

// merge builds the snapshot: kind presence is the union across trackers,
// the icon comes solely from the detector.
func (a *Aggregator) merge(sessions []catalog.Session, scans []map[string]bool, results map[string]events.Result) *Snapshot {
	merged := make(map[string]SessionStatus, len(sessions))
	for _, s := range sessions {
		kinds := map[handle.Kind]bool{}
		for i, tr := range a.trackers {
			if scans[i][s.ID] {
				kinds[tr.Kind()] = true
			}
		}
		res := results[s.ID]
		merged[s.ID] = SessionStatus{
			Kinds: kinds,
			Icon:  iconFor(res.State),
			At:    res.At,
		}
	}
	return &Snapshot{Taken: time.Now(), Sessions: merged}
}

// Demand requests an immediate refresh. Demands are rate-limited and
// concurrent demands coalesce into a single cycle.
func (a *Aggregator) Demand(ctx context.Context) (*Snapshot, error) {
	if !a.limiter.Allow() {
		statusLog.Debug("refresh_demand_rate_limited")
		return a.current.Load(), nil
	}
	snap, err, _ := a.group.Do("refresh", func() (any, error) {
		return a.Refresh(ctx)
	})
	if snap == nil {
		return nil, err
	}
	return snap.(*Snapshot), err
}

// MarkFocused forwards a user focus action to the bell machine. Exposed
// here so callers need not reach into the machine directly.
func (a *Aggregator) MarkFocused(sessionID string) {
	a.bell.MarkFocused(sessionID)
}
