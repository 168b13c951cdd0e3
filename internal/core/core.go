// Package core wires the catalog, trackers, detector, bell machine and
// aggregator into the single facade the command layer consumes.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/bell"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/config"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/events"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/meta"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/probe"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/statedb"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/status"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/track"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/view"
)

var coreLog = logging.ForComponent(logging.CompCore)

const (
	heartbeatInterval = 10 * time.Second
	leaderTimeout     = 30 * time.Second
	deadCleanupAfter  = 2 * time.Minute
)

// Core owns every long-lived component and exposes the operations the
// command layer calls.
type Core struct {
	cfg      config.Config
	store    *meta.Store
	cat      *catalog.Catalog
	cache    *handle.Cache
	pids     *handle.PIDCache
	detector *events.Detector
	trackers track.Set
	agg      *status.Aggregator
	loop     *status.Loop

	db       *statedb.DB // nil when coordination is unavailable
	isLeader atomic.Bool

	knownIDs atomic.Pointer[map[string]struct{}]
}

// New builds a Core from configuration. The only fatal error is an
// uncreatable data directory; everything else degrades.
func New(cfg config.Config) (*Core, error) {
	return newCore(cfg, nil)
}

// newCore accepts pre-built trackers for tests; nil means build the
// exec-probe trackers from configuration.
func newCore(cfg config.Config, trackers track.Set) (*Core, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	store := meta.NewStore(filepath.Join(cfg.DataDir, "meta.json"))
	cat := catalog.New(cfg.SessionsDir, store)
	cache := handle.NewCache(filepath.Join(cfg.DataDir, "handles.json"))
	pids := handle.NewPIDCache(filepath.Join(cfg.DataDir, "term-pids"))

	if trackers == nil {
		trackers = buildTrackers(cfg, cache, pids)
	}
	cache.LoadAll(trackers)

	detector := events.NewDetector(cfg.EventsDir(), cfg.StalenessCutoff())
	machine := bell.NewMachine(store, bell.NewNotifier(cfg.Notify))

	c := &Core{
		cfg:      cfg,
		store:    store,
		cat:      cat,
		cache:    cache,
		pids:     pids,
		detector: detector,
		trackers: trackers,
	}

	// Coordination failure is not fatal: a single instance runs fine as
	// its own driver.
	db, err := statedb.Open(filepath.Join(cfg.DataDir, "state.db"))
	if err == nil {
		err = db.Migrate()
	}
	if err == nil {
		err = db.Register()
	}
	if err != nil {
		coreLog.Warn("statedb_unavailable", slog.String("error", err.Error()))
		if db != nil {
			_ = db.Close()
		}
		db = nil
		c.isLeader.Store(true)
	} else {
		c.db = db
		leader, err := db.ElectLeader(leaderTimeout)
		if err != nil {
			coreLog.Warn("leader_election_failed", slog.String("error", err.Error()))
		}
		c.isLeader.Store(leader)
	}

	c.agg = status.NewAggregator(cat, trackers, detector, machine, cache, c.Leader, cfg.Refresh.DemandPerMinute)
	if c.db != nil {
		// Stamp each driven refresh so followers can see how fresh the
		// shared durable state is without probing themselves.
		c.agg.OnDriven(func() {
			if err := c.db.Touch(); err != nil {
				coreLog.Warn("statedb_touch_failed", slog.String("error", err.Error()))
			}
		})
	}
	c.loop = status.NewLoop(c.agg, cfg.RefreshInterval())

	known := make(map[string]struct{})
	for _, s := range cat.Load() {
		known[s.ID] = struct{}{}
	}
	c.knownIDs.Store(&known)
	return c, nil
}

func buildTrackers(cfg config.Config, cache *handle.Cache, pids *handle.PIDCache) track.Set {
	proc := probe.ExecProcessProber{}
	windows := probe.ExecWindowProber{
		ListCommand:  cfg.Probes.WindowList,
		FocusCommand: cfg.Probes.WindowFocus,
	}
	tabs := probe.ExecTabProber{
		ListCommand:  cfg.Probes.BrowserTabs,
		FocusCommand: cfg.Probes.BrowserFocus,
	}

	var set track.Set
	if !cfg.Trackers.Terminal.Disabled {
		set = append(set, track.NewTerminal(cache, pids, proc, windows, cfg.Trackers.Terminal))
	}
	if !cfg.Trackers.Editor.Disabled {
		set = append(set, track.NewEditor(cache, windows, proc, cfg.Trackers.Editor))
	}
	if !cfg.Trackers.Explorer.Disabled {
		set = append(set, track.NewExplorer(cache, windows, proc, cfg.Trackers.Explorer))
	}
	if !cfg.Trackers.Browser.Disabled && len(cfg.Probes.BrowserTabs) > 0 {
		set = append(set, track.NewBrowser(cache, tabs, cfg.Trackers.Browser))
	}
	return set
}

// Leader reports whether this process currently drives refreshes.
func (c *Core) Leader() bool {
	return c.isLeader.Load()
}

// DriverRefreshedAt returns when the elected driver last completed a
// refresh, zero when unknown or when coordination is unavailable.
func (c *Core) DriverRefreshedAt() time.Time {
	if c.db == nil {
		return time.Time{}
	}
	ns, err := c.db.LastRefreshed()
	if err != nil || ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Instances counts processes with a fresh heartbeat, this one included.
// Returns 1 when coordination is unavailable.
func (c *Core) Instances() int {
	if c.db == nil {
		return 1
	}
	n, err := c.db.AliveCount(leaderTimeout)
	if err != nil {
		return 1
	}
	return n
}

// Sessions enumerates the catalog.
func (c *Core) Sessions() []catalog.Session {
	return c.cat.Load()
}

// Snapshot returns the last published status snapshot (nil before the
// first refresh).
func (c *Core) Snapshot() *status.Snapshot {
	return c.agg.Snapshot()
}

// Refresh demands an immediate refresh cycle and returns its snapshot.
func (c *Core) Refresh(ctx context.Context) (*status.Snapshot, error) {
	return c.agg.Demand(ctx)
}

// Sort orders sessions for display. An empty primaryOrder uses the
// configured default.
func (c *Core) Sort(sessions []catalog.Session, primaryOrder string, override *view.ColumnSort) []catalog.Session {
	if primaryOrder == "" {
		primaryOrder = c.cfg.Sort.PrimaryOrder
	}
	return view.Sort(sessions, c.agg.Snapshot(), primaryOrder, override)
}

// Reconcile relocates presentation state in a rebuilt order.
func (c *Core) Reconcile(prevSelection []string, prevCurrent, prevScrollID string, order []catalog.Session) view.Position {
	return view.Reconcile(prevSelection, prevCurrent, prevScrollID, order)
}

// Filter fuzzy-matches sessions against a query.
func (c *Core) Filter(sessions []catalog.Session, query string) []catalog.Session {
	return view.Filter(sessions, query)
}

// FocusOrLaunch raises the session's live resource of the given kind, or
// launches a fresh one when nothing is alive. Never spawns a duplicate
// over a live handle.
func (c *Core) FocusOrLaunch(ctx context.Context, sessionID string, kind handle.Kind) error {
	tr := c.trackers.ByKind(kind)
	if tr == nil {
		return fmt.Errorf("tracker %s is disabled", kind)
	}
	s, ok := catalog.ByID(c.cat.Load())[sessionID]
	if !ok {
		return fmt.Errorf("unknown session %q", sessionID)
	}

	alive := tr.Scan(ctx, []catalog.Session{s})[sessionID]
	if alive {
		if err := tr.Focus(ctx, sessionID); err != nil {
			return fmt.Errorf("focus %s for %s: %w", kind, sessionID, err)
		}
		c.agg.MarkFocused(sessionID)
		c.loop.Kick()
		return nil
	}

	if err := tr.Launch(ctx, s); err != nil {
		return fmt.Errorf("launch %s for %s: %w", kind, sessionID, err)
	}
	c.loop.Kick()
	return nil
}

// Pin sets or clears a session's pin flag.
func (c *Core) Pin(sessionID string, pinned bool) error {
	return c.store.Update(sessionID, func(m *meta.SessionMeta) { m.Pinned = pinned })
}

// Archive sets or clears a session's archive flag.
func (c *Core) Archive(sessionID string, archived bool) error {
	return c.store.Update(sessionID, func(m *meta.SessionMeta) { m.Archived = archived })
}

// SetTab assigns a session to a tab/group.
func (c *Core) SetTab(sessionID, tab string) error {
	return c.store.Update(sessionID, func(m *meta.SessionMeta) { m.Tab = tab })
}

// Run drives the background daemon: the refresh loop, catalog watching and
// cross-process heartbeats. Blocks until ctx cancels.
func (c *Core) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.loop.Run(gctx) })

	watcher, err := catalog.NewWatcher(c.cfg.SessionsDir)
	if err != nil {
		coreLog.Warn("catalog_watch_unavailable", slog.String("error", err.Error()))
	} else {
		g.Go(func() error {
			watcher.Start()
			return nil
		})
		g.Go(func() error {
			defer watcher.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-watcher.Changed():
					c.pruneRemoved()
					c.loop.Kick()
				}
			}
		})
	}

	if c.db != nil {
		g.Go(func() error { return c.heartbeatLoop(gctx) })
	}

	err = g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// heartbeatLoop keeps this process's heartbeat fresh and re-runs the
// election, so leadership fails over when the driver dies.
func (c *Core) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.db.Heartbeat(); err != nil {
				coreLog.Warn("heartbeat_failed", slog.String("error", err.Error()))
				continue
			}
			_ = c.db.CleanDead(deadCleanupAfter)
			leader, err := c.db.ElectLeader(leaderTimeout)
			if err != nil {
				coreLog.Warn("leader_election_failed", slog.String("error", err.Error()))
				continue
			}
			if leader != c.isLeader.Load() {
				coreLog.Info("leadership_changed", slog.Bool("leader", leader))
			}
			c.isLeader.Store(leader)
		}
	}
}

// pruneRemoved drops per-session state for ids no longer in the catalog.
func (c *Core) pruneRemoved() {
	current := c.cat.Load()
	now := make(map[string]struct{}, len(current))
	for _, s := range current {
		now[s.ID] = struct{}{}
	}

	prev := c.knownIDs.Swap(&now)
	if prev == nil {
		return
	}
	for id := range *prev {
		if _, ok := now[id]; ok {
			continue
		}
		coreLog.Info("session_removed", slog.String("session", id))
		c.cache.RemoveSession(id)
		c.detector.Forget(id)
		_ = c.pids.Remove(id)
		_ = c.store.Delete(id)
	}
}

// Close releases cross-process state. Safe after Run returns.
func (c *Core) Close() {
	if c.Leader() {
		if err := c.cache.PersistAll(); err != nil {
			coreLog.Warn("handle_cache_persist_failed", slog.String("error", err.Error()))
		}
	}
	if c.db != nil {
		_ = c.db.ResignLeader()
		_ = c.db.Unregister()
		_ = c.db.Close()
	}
}
