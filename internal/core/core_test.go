package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/config"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/probe"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/track"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/view"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	root := t.TempDir()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.SessionsDir = filepath.Join(root, "sessions")
	cfg.Notify.Disabled = true
	return cfg
}

func writeSession(t *testing.T, cfg config.Config, id string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.SessionsDir, 0o755))
	desc := fmt.Sprintf(`{"id":%q,"work_dir":"/work/%s","summary":"%s","updated_at":%d}`,
		id, id, id, time.Now().Unix())
	path := filepath.Join(cfg.SessionsDir, id+".json")
	require.NoError(t, os.WriteFile(path, []byte(desc), 0o644))
	return path
}

// editorFixture builds a Core whose only tracker is an editor over fake
// probes, so focus/launch behavior is observable without real windows.
func editorFixture(t *testing.T, windows *probe.FakeWindowProber) *Core {
	t.Helper()
	cfg := testConfig(t)
	writeSession(t, cfg, "s1")

	proc := probe.NewFakeProcessProber()
	proc.Spawn(10, "code")
	cache := handle.NewCache(filepath.Join(cfg.DataDir, "handles.json"))
	editor := track.NewEditor(cache, windows, proc, config.KindSettings{
		TitleMarkers: []string{" - Visual Studio Code"},
		Launch:       []string{"true", "{dir}"},
	})

	c, err := newCore(cfg, track.Set{editor})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewBecomesLeaderStandalone(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.Leader(), "sole instance drives refreshes")
}

func TestSessionsAndSortUseConfiguredOrder(t *testing.T) {
	cfg := testConfig(t)
	writeSession(t, cfg, "alpha")
	writeSession(t, cfg, "beta")
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	sessions := c.Sessions()
	require.Len(t, sessions, 2)

	ordered := c.Sort(sessions, "alias", nil)
	assert.Equal(t, "alpha", ordered[0].ID)

	pos := c.Reconcile([]string{"beta"}, "beta", "alpha", ordered)
	assert.Equal(t, []string{"beta"}, pos.Selection)
	assert.Equal(t, "beta", pos.Current)
	assert.Equal(t, 0, pos.ScrollIndex)
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	writeSession(t, cfg, "s1")
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Same(t, snap, c.Snapshot())
}

func TestFocusOrLaunchFocusesLiveWindow(t *testing.T) {
	windows := &probe.FakeWindowProber{Windows: []probe.Window{
		{ID: "0x1", PID: 10, Title: "s1 - Visual Studio Code"},
	}}
	c := editorFixture(t, windows)

	// Two calls against a live window: both focus, neither launches a
	// duplicate.
	require.NoError(t, c.FocusOrLaunch(context.Background(), "s1", handle.KindEditor))
	require.NoError(t, c.FocusOrLaunch(context.Background(), "s1", handle.KindEditor))
	assert.Equal(t, []string{"0x1", "0x1"}, windows.FocusCalls())
}

func TestFocusOrLaunchLaunchesWhenAbsent(t *testing.T) {
	windows := &probe.FakeWindowProber{}
	c := editorFixture(t, windows)

	require.NoError(t, c.FocusOrLaunch(context.Background(), "s1", handle.KindEditor))
	assert.Empty(t, windows.FocusCalls(), "nothing live to focus")
}

func TestFocusOrLaunchRejectsUnknownSessionAndKind(t *testing.T) {
	windows := &probe.FakeWindowProber{}
	c := editorFixture(t, windows)

	assert.Error(t, c.FocusOrLaunch(context.Background(), "nope", handle.KindEditor))
	assert.Error(t, c.FocusOrLaunch(context.Background(), "s1", handle.KindBrowser))
}

func TestPinArchiveTabRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	writeSession(t, cfg, "s1")
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Pin("s1", true))
	require.NoError(t, c.SetTab("s1", "work"))

	sessions := c.Sessions()
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Pinned)
	assert.Equal(t, "work", sessions[0].Tab)

	require.NoError(t, c.Archive("s1", true))
	sessions = c.Sessions()
	assert.True(t, sessions[0].Archived)
}

func TestPruneRemovedDropsSessionState(t *testing.T) {
	cfg := testConfig(t)
	writeSession(t, cfg, "s1")
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Pin("s1", true))
	require.NoError(t, os.Remove(filepath.Join(cfg.SessionsDir, "s1.json")))

	c.pruneRemoved()
	assert.Empty(t, c.store.Get("s1").Tab)
	assert.False(t, c.store.Get("s1").Pinned, "meta record gone with the session")
}

func TestRunStopsOnCancellation(t *testing.T) {
	cfg := testConfig(t)
	writeSession(t, cfg, "s1")
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Snapshot() != nil },
		2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestRefreshStampsDriverTimestamp(t *testing.T) {
	cfg := testConfig(t)
	writeSession(t, cfg, "s1")
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.Leader())
	assert.True(t, c.DriverRefreshedAt().IsZero())

	before := time.Now()
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)

	at := c.DriverRefreshedAt()
	require.False(t, at.IsZero())
	assert.False(t, at.Before(before.Add(-time.Second)))
	assert.GreaterOrEqual(t, c.Instances(), 1)
}

func TestRunConsumesCatalogChanges(t *testing.T) {
	cfg := testConfig(t)
	writeSession(t, cfg, "keep")
	path := writeSession(t, cfg, "gone")
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Pin("gone", true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Snapshot() != nil },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(path))

	// The watcher debounces, then the change consumer prunes the
	// removed session's durable metadata.
	require.Eventually(t, func() bool { return !c.store.Get("gone").Pinned },
		3*time.Second, 25*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestSortDefaultsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sort.PrimaryOrder = view.OrderAlias
	writeSession(t, cfg, "zeta")
	writeSession(t, cfg, "alpha")
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	ordered := c.Sort(c.Sessions(), "", nil)
	assert.Equal(t, "alpha", ordered[0].ID)
}
