package events

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
}

func eventLine(typ string, ts time.Time) string {
	return fmt.Sprintf(`{"type":%q,"ts":%d}`, typ, ts.Unix())
}

func newTestDetector(t *testing.T, at time.Time) (*Detector, string) {
	t.Helper()
	dir := t.TempDir()
	d := NewDetector(dir, 30*time.Minute)
	d.now = func() time.Time { return at }
	return d, dir
}

func TestMissingLogReportsUnknown(t *testing.T) {
	d, _ := newTestDetector(t, time.Now())
	assert.Equal(t, StateUnknown, d.Status("nope").State)
}

func TestWorkingAndIdleClassification(t *testing.T) {
	now := time.Now()
	d, _ := newTestDetector(t, now)
	path := d.LogPath("s1")

	appendLine(t, path, eventLine(TypeTurnStart, now.Add(-2*time.Minute)))
	appendLine(t, path, eventLine(TypeToolExecutionStart, now.Add(-1*time.Minute)))
	assert.Equal(t, StateWorking, d.Status("s1").State)

	appendLine(t, path, eventLine(TypeAskUser, now))
	res := d.Status("s1")
	assert.Equal(t, StateIdle, res.State)
	assert.Equal(t, now.Unix(), res.At.Unix())
}

func TestStalenessReportsUnknownNotIdle(t *testing.T) {
	start := time.Now()
	d, _ := newTestDetector(t, start)
	path := d.LogPath("s1")

	appendLine(t, path, eventLine(TypeToolExecutionStart, start))
	assert.Equal(t, StateWorking, d.Status("s1").State)

	// 31 minutes of silence: neither working nor idle.
	d.now = func() time.Time { return start.Add(31 * time.Minute) }
	res := d.Status("s1")
	assert.Equal(t, StateUnknown, res.State)
	assert.Equal(t, start.Unix(), res.At.Unix(), "last event time still reported")
}

func TestIdleSinceMarksEpisodeStart(t *testing.T) {
	now := time.Now()
	d, _ := newTestDetector(t, now)
	path := d.LogPath("s1")

	first := now.Add(-10 * time.Minute)
	appendLine(t, path, eventLine(TypeTurnStart, now.Add(-11*time.Minute)))
	appendLine(t, path, eventLine(TypeAskUser, first))
	res := d.Status("s1")
	require.Equal(t, StateIdle, res.State)
	assert.Equal(t, first.Unix(), res.IdleSince.Unix())

	// Consecutive idle events extend the same episode.
	appendLine(t, path, eventLine(TypeTurnEnd, now.Add(-5*time.Minute)))
	res = d.Status("s1")
	assert.Equal(t, first.Unix(), res.IdleSince.Unix())

	// A working period opens a fresh episode.
	appendLine(t, path, eventLine(TypeTurnStart, now.Add(-2*time.Minute)))
	appendLine(t, path, eventLine(TypeAskUser, now))
	res = d.Status("s1")
	require.Equal(t, StateIdle, res.State)
	assert.Equal(t, now.Unix(), res.IdleSince.Unix())
}

func TestUnknownTypesAndMalformedLinesIgnored(t *testing.T) {
	now := time.Now()
	d, _ := newTestDetector(t, now)
	path := d.LogPath("s1")

	appendLine(t, path, eventLine(TypeTurnStart, now))
	appendLine(t, path, `{"type":"telemetry.flush","ts":1}`)
	appendLine(t, path, `this is not json`)
	assert.Equal(t, StateWorking, d.Status("s1").State)
}

func TestIncrementalReadsDoNotRescan(t *testing.T) {
	now := time.Now()
	d, _ := newTestDetector(t, now)
	path := d.LogPath("s1")

	appendLine(t, path, eventLine(TypeAskUser, now))
	assert.Equal(t, StateIdle, d.Status("s1").State)

	// Appending a working event flips the state on the next incremental read.
	appendLine(t, path, eventLine(TypeTurnStart, now))
	assert.Equal(t, StateWorking, d.Status("s1").State)

	// No new data: state holds.
	assert.Equal(t, StateWorking, d.Status("s1").State)
}

func TestPartialLastLineNotConsumed(t *testing.T) {
	now := time.Now()
	d, _ := newTestDetector(t, now)
	path := d.LogPath("s1")

	appendLine(t, path, eventLine(TypeTurnStart, now))
	// A writer mid-append: no trailing newline yet.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"ask.u`)
	require.NoError(t, err)
	f.Close()

	assert.Equal(t, StateWorking, d.Status("s1").State)

	// The writer finishes the line; the full event is now seen.
	f, err = os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(fmt.Sprintf(`ser","ts":%d}`+"\n", now.Unix()))
	require.NoError(t, err)
	f.Close()

	assert.Equal(t, StateIdle, d.Status("s1").State)
}

func TestTruncatedLogResetsCursor(t *testing.T) {
	now := time.Now()
	d, _ := newTestDetector(t, now)
	path := d.LogPath("s1")

	appendLine(t, path, eventLine(TypeTurnStart, now))
	assert.Equal(t, StateWorking, d.Status("s1").State)

	require.NoError(t, os.WriteFile(path, []byte(eventLine(TypeAskUser, now)+"\n"), 0o644))
	assert.Equal(t, StateIdle, d.Status("s1").State)
}

func TestForget(t *testing.T) {
	now := time.Now()
	d, _ := newTestDetector(t, now)
	path := d.LogPath("s1")

	appendLine(t, path, eventLine(TypeTurnStart, now))
	require.Equal(t, StateWorking, d.Status("s1").State)

	d.Forget("s1")
	require.NoError(t, os.Remove(path))
	assert.Equal(t, StateUnknown, d.Status("s1").State)
}

func TestScanAll(t *testing.T) {
	now := time.Now()
	d, _ := newTestDetector(t, now)

	appendLine(t, d.LogPath("a"), eventLine(TypeTurnStart, now))
	appendLine(t, d.LogPath("b"), eventLine(TypeAskUser, now))

	results := d.ScanAll([]string{"a", "b", "c"})
	assert.Equal(t, StateWorking, results["a"].State)
	assert.Equal(t, StateIdle, results["b"].State)
	assert.Equal(t, StateUnknown, results["c"].State)
}

func TestFollowStreamsClassifiedEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s1.jsonl")
	now := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := Follow(ctx, path)
	require.NoError(t, err)

	// File created after Follow starts.
	time.Sleep(100 * time.Millisecond)
	appendLine(t, path, eventLine(TypeToolExecutionStart, now))
	appendLine(t, path, `{"type":"telemetry.flush","ts":1}`)
	appendLine(t, path, eventLine(TypeAskUser, now))

	var got []Classified
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case c := <-ch:
			got = append(got, c)
		case <-timeout:
			t.Fatalf("timed out with %d events", len(got))
		}
	}
	assert.Equal(t, StateWorking, got[0].State)
	assert.Equal(t, StateIdle, got[1].State)
}
