package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/meta"
)

func writeDescriptor(t *testing.T, dir, id, workDir, summary string, updatedAt int64) {
	t.Helper()
	content := fmt.Sprintf(`{"id":%q,"work_dir":%q,"summary":%q,"updated_at":%d}`,
		id, workDir, summary, updatedAt)
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(content), 0o644))
}

func TestLoadSessions(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(work, ".git"), 0o755))

	writeDescriptor(t, dir, "s1", work, "fix the parser", 1700000000)
	writeDescriptor(t, dir, "s2", "/tmp/other", "", 1700000100)

	c := New(dir, nil)
	sessions := ByID(c.Load())
	require.Len(t, sessions, 2)

	s1 := sessions["s1"]
	assert.Equal(t, "fix the parser", s1.Alias)
	assert.Equal(t, filepath.Base(work), s1.Folder)
	assert.True(t, s1.IsGitRepo)
	assert.Equal(t, time.Unix(1700000000, 0), s1.LastModified)

	// Empty summary falls back to the folder name.
	s2 := sessions["s2"]
	assert.Equal(t, "other", s2.Alias)
	assert.False(t, s2.IsGitRepo)
}

func TestLoadSkipsMalformedDescriptor(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "good", "/tmp/x", "ok", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("nope"), 0o644))

	sessions := New(dir, nil).Load()
	require.Len(t, sessions, 1)
	assert.Equal(t, "good", sessions[0].ID)
}

func TestLoadMissingDirectory(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Empty(t, c.Load())
}

func TestMetaMerge(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "s1", "/tmp/x", "summary", 1)

	store := meta.NewStore(filepath.Join(t.TempDir(), "meta.json"))
	require.NoError(t, store.Put("s1", meta.SessionMeta{Pinned: true, Tab: "main"}))

	sessions := New(dir, store).Load()
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Pinned)
	assert.Equal(t, "main", sessions[0].Tab)
}

func TestWatcherSignalsOnDescriptorWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	go w.Start()
	defer w.Stop()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeDescriptor(t, dir, "s1", "/tmp/x", "hello", 1)

	select {
	case <-w.Changed():
	case <-time.After(3 * time.Second):
		t.Fatal("no change signal after descriptor write")
	}
}
