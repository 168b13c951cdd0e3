// Package handle persists opaque OS-resource references per session per
// resource kind, and garbage-collects entries whose underlying resource is
// gone.
package handle

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
)

var cacheLog = logging.ForComponent(logging.CompHandle)

// Kind identifies one class of OS resource tracked per session.
type Kind string

const (
	KindTerminal Kind = "terminal"
	KindEditor   Kind = "editor"
	KindExplorer Kind = "explorer"
	KindBrowser  Kind = "browser"
)

// Kinds lists every resource kind in display order.
var Kinds = []Kind{KindTerminal, KindEditor, KindExplorer, KindBrowser}

// TrackedHandle is one live OS resource bound to a session. Which fields are
// populated depends on the kind: terminals carry a PID, editors and explorers
// a window id (plus the owning PID when known), browsers a tab anchor.
type TrackedHandle struct {
	SessionID string `json:"session_id"`
	Kind      Kind   `json:"kind"`

	PID       int    `json:"pid,omitempty"`
	ProcName  string `json:"proc_name,omitempty"` // recorded at registration, guards PID reuse
	WindowID  string `json:"window_id,omitempty"`
	TabAnchor string `json:"tab_anchor,omitempty"`

	// OriginFolder re-matches a resource after restart when the raw handle
	// alone cannot be trusted.
	OriginFolder string `json:"origin_folder,omitempty"`

	LastValidated time.Time `json:"last_validated"`
}

// Validator reports whether a persisted handle still resolves to a live
// resource. Implemented by the trackers, which own the per-kind probes.
type Validator interface {
	Validate(h TrackedHandle) bool
}

type cacheFile struct {
	Handles []TrackedHandle `json:"handles"`
}

// Cache is the durable handle store. At most one handle exists per
// (session id, kind): Register replaces, never appends.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]TrackedHandle // key: sessionID + "/" + kind
}

func key(sessionID string, kind Kind) string {
	return sessionID + "/" + string(kind)
}

// NewCache creates an empty cache backed by the file at path.
// Call LoadAll to populate it from disk.
func NewCache(path string) *Cache {
	return &Cache{
		path:    path,
		entries: map[string]TrackedHandle{},
	}
}

// LoadAll reads the persisted file and validates every entry once, dropping
// failures silently: that is garbage collection, not a fault. An unparseable
// file degrades to an empty cache.
func (c *Cache) LoadAll(v Validator) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}

	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		cacheLog.Warn("handle_file_unparseable",
			slog.String("path", c.path),
			slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for _, h := range f.Handles {
		if h.SessionID == "" || h.Kind == "" {
			dropped++
			continue
		}
		if v != nil && !v.Validate(h) {
			dropped++
			continue
		}
		c.entries[key(h.SessionID, h.Kind)] = h
	}
	if dropped > 0 {
		cacheLog.Debug("handle_load_gc", slog.Int("dropped", dropped), slog.Int("kept", len(c.entries)))
	}
}

// Register stores a handle, replacing any previous one for the same
// (session, kind).
func (c *Cache) Register(h TrackedHandle) {
	h.LastValidated = time.Now()
	c.mu.Lock()
	c.entries[key(h.SessionID, h.Kind)] = h
	c.mu.Unlock()
}

// Lookup returns the handle for (session, kind), if any.
func (c *Cache) Lookup(sessionID string, kind Kind) (TrackedHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.entries[key(sessionID, kind)]
	return h, ok
}

// Touch refreshes the LastValidated timestamp of an existing entry.
func (c *Cache) Touch(sessionID string, kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.entries[key(sessionID, kind)]; ok {
		h.LastValidated = time.Now()
		c.entries[key(sessionID, kind)] = h
	}
}

// Invalidate removes the handle for (session, kind).
func (c *Cache) Invalidate(sessionID string, kind Kind) {
	c.mu.Lock()
	delete(c.entries, key(sessionID, kind))
	c.mu.Unlock()
}

// RemoveSession drops every handle bound to a session (session deleted from
// the catalog).
func (c *Cache) RemoveSession(sessionID string) {
	c.mu.Lock()
	for _, kind := range Kinds {
		delete(c.entries, key(sessionID, kind))
	}
	c.mu.Unlock()
}

// PersistAll writes the current entries atomically (tmp + rename).
func (c *Cache) PersistAll() error {
	c.mu.Lock()
	handles := make([]TrackedHandle, 0, len(c.entries))
	for _, h := range c.entries {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cacheFile{Handles: handles}, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
