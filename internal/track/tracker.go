// Package track implements per-kind resource trackers: each one validates
// cached OS handles, rediscovers lost resources by a kind-specific
// heuristic, and registers what it finds back into the handle cache.
package track

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
)

var trackLog = logging.ForComponent(logging.CompTrack)

// ErrNoResource is returned by Focus when the session has no live resource
// of the tracker's kind.
var ErrNoResource = fmt.Errorf("no live resource")

// Tracker owns liveness for one resource kind.
type Tracker interface {
	Kind() handle.Kind

	// Scan reports, per session id, whether a live resource of this kind
	// exists. Probe failures read as absent, never as errors.
	Scan(ctx context.Context, sessions []catalog.Session) map[string]bool

	// Focus raises the session's existing resource. ErrNoResource when
	// there is nothing to raise.
	Focus(ctx context.Context, sessionID string) error

	// Launch starts a fresh resource for the session. Callers must try
	// Focus first; launching over a live handle creates duplicates.
	Launch(ctx context.Context, s catalog.Session) error

	// Validate implements handle.Validator for the startup cache sweep.
	Validate(h handle.TrackedHandle) bool
}

// Set dispatches handle validation to the tracker owning each kind.
type Set []Tracker

// ByKind returns the tracker for a kind, nil when disabled or unknown.
func (s Set) ByKind(kind handle.Kind) Tracker {
	for _, t := range s {
		if t.Kind() == kind {
			return t
		}
	}
	return nil
}

// Validate dispatches to the owning tracker. Handles of kinds with no
// tracker are treated as dead so the cache sweep drops them.
func (s Set) Validate(h handle.TrackedHandle) bool {
	t := s.ByKind(h.Kind)
	if t == nil {
		return false
	}
	return t.Validate(h)
}

// launchCommand expands a launch template and starts it detached, returning
// the child PID. Template placeholders: {dir}, {title}, {anchor}.
func launchCommand(ctx context.Context, template []string, s catalog.Session, anchor string) (int, error) {
	if len(template) == 0 {
		return 0, fmt.Errorf("launch: no command configured")
	}
	argv := make([]string, len(template))
	for i, arg := range template {
		arg = strings.ReplaceAll(arg, "{dir}", s.WorkDir)
		arg = strings.ReplaceAll(arg, "{title}", s.Alias)
		arg = strings.ReplaceAll(arg, "{anchor}", anchor)
		argv[i] = arg
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if info, err := os.Stat(s.WorkDir); err == nil && info.IsDir() {
		cmd.Dir = s.WorkDir
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("launch %q: %w", argv[0], err)
	}
	pid := cmd.Process.Pid
	// Reap in the background so the child never zombies.
	go func() { _ = cmd.Wait() }()
	return pid, nil
}
