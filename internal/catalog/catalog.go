// Package catalog reads the session workspace descriptors written by the
// agent CLI. The descriptors are external input: this program never writes
// them. User-owned state (pins, archive, tabs) is merged in from the meta
// store at load time.
package catalog

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/meta"
)

var catLog = logging.ForComponent(logging.CompCatalog)

// Session is one unit of isolated agent work bound to a working directory.
type Session struct {
	ID           string
	WorkDir      string
	Alias        string // display alias/summary
	Folder       string // base name of WorkDir
	IsGitRepo    bool
	Pinned       bool
	Archived     bool
	Tab          string
	LastModified time.Time
}

// descriptor mirrors the on-disk workspace descriptor JSON.
type descriptor struct {
	ID        string `json:"id"`
	WorkDir   string `json:"work_dir"`
	Summary   string `json:"summary"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Catalog enumerates sessions from a directory of descriptor files.
type Catalog struct {
	dir  string
	meta *meta.Store
}

// New creates a catalog over dir, enriching sessions from the meta store.
func New(dir string, metaStore *meta.Store) *Catalog {
	return &Catalog{dir: dir, meta: metaStore}
}

// Dir returns the sessions directory being read.
func (c *Catalog) Dir() string {
	return c.dir
}

// Load reads every descriptor file. A missing directory yields an empty
// list; a malformed descriptor is skipped with a diagnostic log entry.
func (c *Catalog) Load() []Session {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}

	var sessions []Session
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		s, ok := c.loadOne(path, entry)
		if !ok {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func (c *Catalog) loadOne(path string, entry os.DirEntry) (Session, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, false
	}

	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		catLog.Warn("descriptor_unparseable",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return Session{}, false
	}

	if d.ID == "" {
		d.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	modified := time.Unix(d.UpdatedAt, 0)
	if d.UpdatedAt == 0 {
		if info, err := entry.Info(); err == nil {
			modified = info.ModTime()
		}
	}

	alias := strings.TrimSpace(d.Summary)
	folder := filepath.Base(d.WorkDir)
	if alias == "" {
		alias = folder
	}

	s := Session{
		ID:           d.ID,
		WorkDir:      d.WorkDir,
		Alias:        alias,
		Folder:       folder,
		IsGitRepo:    isGitRepo(d.WorkDir),
		LastModified: modified,
	}

	if c.meta != nil {
		m := c.meta.Get(d.ID)
		s.Pinned = m.Pinned
		s.Archived = m.Archived
		s.Tab = m.Tab
	}

	return s, true
}

// ByID returns the loaded sessions keyed by id.
func ByID(sessions []Session) map[string]Session {
	out := make(map[string]Session, len(sessions))
	for _, s := range sessions {
		out[s.ID] = s
	}
	return out
}

func isGitRepo(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
