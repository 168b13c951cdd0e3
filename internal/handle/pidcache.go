package handle

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// PIDCache is the terminal-PID cache file: one "sessionID<TAB>pid" pair per
// line, human-editable. It survives restarts so a terminal launched in a
// previous run can be re-matched by process id.
type PIDCache struct {
	path string

	mu   sync.Mutex
	pids map[string]int
}

// NewPIDCache loads the file at path. Missing or malformed lines are
// skipped; an unreadable file starts empty.
func NewPIDCache(path string) *PIDCache {
	c := &PIDCache{path: path, pids: map[string]int{}}

	f, err := os.Open(path)
	if err != nil {
		return c
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), "\t", 2)
		if len(fields) != 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil || pid <= 0 {
			continue
		}
		c.pids[fields[0]] = pid
	}
	return c
}

// Get returns the recorded PID for a session, or 0.
func (c *PIDCache) Get(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pids[sessionID]
}

// Set records a PID for a session and persists.
func (c *PIDCache) Set(sessionID string, pid int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pids[sessionID] = pid
	return c.saveLocked()
}

// Remove drops a session's entry and persists.
func (c *PIDCache) Remove(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pids[sessionID]; !ok {
		return nil
	}
	delete(c.pids, sessionID)
	return c.saveLocked()
}

func (c *PIDCache) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	for id, pid := range c.pids {
		fmt.Fprintf(&b, "%s\t%d\n", id, pid)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
