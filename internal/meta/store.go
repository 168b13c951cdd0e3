// Package meta persists per-session user state: pin and archive flags, tab
// membership, and the bell notification record. One JSON file holds all
// sessions so a restart never re-fires a bell for an episode already
// notified.
package meta

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
)

var metaLog = logging.ForComponent(logging.CompBell)

// Bell notification states.
const (
	BellEligible   = "eligible"
	BellNotified   = "notified"
	BellSuppressed = "suppressed"
)

// SessionMeta is the durable per-session record.
type SessionMeta struct {
	Pinned   bool   `json:"pinned,omitempty"`
	Archived bool   `json:"archived,omitempty"`
	Tab      string `json:"tab,omitempty"`

	// BellEpisode identifies the idle episode last notified: the unix-nano
	// timestamp of the idle-transition event that triggered it.
	BellEpisode int64 `json:"bell_episode,omitempty"`

	// BellState is eligible, notified or suppressed. Empty means eligible.
	BellState string `json:"bell_state,omitempty"`
}

type storeFile struct {
	Sessions map[string]SessionMeta `json:"sessions"`
}

// Store is a thread-safe, file-backed map of SessionMeta keyed by session id.
type Store struct {
	path string

	mu       sync.Mutex
	sessions map[string]SessionMeta
}

// NewStore loads the store at path. A missing file starts empty; an
// unparseable file also starts empty, logged for diagnostics only.
func NewStore(path string) *Store {
	s := &Store{
		path:     path,
		sessions: map[string]SessionMeta{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		metaLog.Warn("meta_file_unparseable",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return s
	}
	if f.Sessions != nil {
		s.sessions = f.Sessions
	}
	return s
}

// Get returns the meta record for a session (zero value if unknown).
func (s *Store) Get(id string) SessionMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Put stores the meta record for a session and persists immediately.
func (s *Store) Put(id string, m SessionMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = m
	return s.saveLocked()
}

// Update applies fn to the session's record and persists the result.
func (s *Store) Update(id string, fn func(*SessionMeta)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.sessions[id]
	fn(&m)
	s.sessions[id] = m
	return s.saveLocked()
}

// Delete removes a session's record (no-op if absent).
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return nil
	}
	delete(s.sessions, id)
	return s.saveLocked()
}

// All returns a copy of every record keyed by session id.
func (s *Store) All() map[string]SessionMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]SessionMeta, len(s.sessions))
	for id, m := range s.sessions {
		out[id] = m
	}
	return out
}

// saveLocked writes the file atomically (tmp + rename). Caller holds s.mu.
func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(storeFile{Sessions: s.sessions}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
