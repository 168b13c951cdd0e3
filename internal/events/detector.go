package events

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
)

var evLog = logging.ForComponent(logging.CompEvents)

// Result is the detector's answer for one session.
type Result struct {
	State State
	At    time.Time // timestamp of the last classified event (zero when unknown)

	// IdleSince is the timestamp of the working→idle transition that opened
	// the current idle episode. Zero unless State is idle. Consecutive idle
	// events extend the episode without changing this value, so it serves
	// as a stable episode identifier.
	IdleSince time.Time
}

// cursor tracks incremental progress through one session's log.
// Never shared across sessions.
type cursor struct {
	offset    int64
	state     State
	at        time.Time
	idleSince time.Time
}

// Detector classifies each session as working or idle-awaiting-input from
// its event log, with a staleness cutoff beyond which it reports unknown.
type Detector struct {
	dir       string
	staleness time.Duration
	now       func() time.Time

	mu      sync.Mutex
	cursors map[string]*cursor
}

// NewDetector creates a detector over the events directory.
func NewDetector(dir string, staleness time.Duration) *Detector {
	return &Detector{
		dir:       dir,
		staleness: staleness,
		now:       time.Now,
		cursors:   map[string]*cursor{},
	}
}

// LogPath returns the event log path for a session.
func (d *Detector) LogPath(sessionID string) string {
	return filepath.Join(d.dir, sessionID+".jsonl")
}

// Status reads any new log lines for the session and returns its state.
// A missing log file reports unknown, never an error: newly created
// sessions have no log yet.
func (d *Detector) Status(sessionID string) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur := d.cursors[sessionID]
	if cur == nil {
		cur = &cursor{state: StateUnknown}
		d.cursors[sessionID] = cur
	}

	d.advanceLocked(sessionID, cur)

	if cur.state == StateUnknown {
		return Result{State: StateUnknown}
	}
	if d.now().Sub(cur.at) > d.staleness {
		// Too old to trust: the session was likely abandoned.
		return Result{State: StateUnknown, At: cur.at}
	}
	return Result{State: cur.state, At: cur.at, IdleSince: cur.idleSince}
}

// ScanAll returns the status of every given session.
func (d *Detector) ScanAll(sessionIDs []string) map[string]Result {
	out := make(map[string]Result, len(sessionIDs))
	for _, id := range sessionIDs {
		out[id] = d.Status(id)
	}
	return out
}

// Forget drops the cursor for a removed session.
func (d *Detector) Forget(sessionID string) {
	d.mu.Lock()
	delete(d.cursors, sessionID)
	d.mu.Unlock()
}

// advanceLocked consumes complete new lines since the saved offset.
// A shrunken file means truncation or replacement; the cursor resets.
func (d *Detector) advanceLocked(sessionID string, cur *cursor) {
	path := d.LogPath(sessionID)

	f, err := os.Open(path)
	if err != nil {
		cur.offset = 0
		cur.state = StateUnknown
		cur.at = time.Time{}
		cur.idleSince = time.Time{}
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if info.Size() < cur.offset {
		evLog.Debug("event_log_truncated", slog.String("session", sessionID))
		cur.offset = 0
		cur.state = StateUnknown
		cur.at = time.Time{}
		cur.idleSince = time.Time{}
	}
	if info.Size() == cur.offset {
		return
	}

	if _, err := f.Seek(cur.offset, io.SeekStart); err != nil {
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return
	}

	// Only consume complete lines; a writer may be mid-append on the last.
	consumed := 0
	for {
		nl := bytes.IndexByte(data[consumed:], '\n')
		if nl < 0 {
			break
		}
		line := data[consumed : consumed+nl]
		consumed += nl + 1

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		state, ok := Classify(e.Type)
		if !ok {
			continue
		}
		if state == StateIdle {
			if cur.state != StateIdle {
				cur.idleSince = e.Time()
			}
		} else {
			cur.idleSince = time.Time{}
		}
		cur.state = state
		cur.at = e.Time()
	}
	cur.offset += int64(consumed)
}
