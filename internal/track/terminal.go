package track

import (
	"context"
	"log/slog"
	"time"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/config"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/probe"
)

// Terminal tracks terminal processes per session. Liveness is PID-bound:
// the process must exist and its name must match what was recorded at
// registration, guarding against PID reuse.
type Terminal struct {
	cache   *handle.Cache
	pids    *handle.PIDCache
	proc    probe.ProcessProber
	windows probe.WindowProber // used by Focus only; may be nil
	cfg     config.KindSettings
}

func NewTerminal(cache *handle.Cache, pids *handle.PIDCache, proc probe.ProcessProber, windows probe.WindowProber, cfg config.KindSettings) *Terminal {
	return &Terminal{cache: cache, pids: pids, proc: proc, windows: windows, cfg: cfg}
}

func (t *Terminal) Kind() handle.Kind { return handle.KindTerminal }

func (t *Terminal) Validate(h handle.TrackedHandle) bool {
	if h.PID <= 0 {
		return false
	}
	name, ok := t.proc.Alive(h.PID)
	if !ok {
		return false
	}
	return h.ProcName == "" || name == h.ProcName
}

func (t *Terminal) Scan(_ context.Context, sessions []catalog.Session) map[string]bool {
	out := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if h, ok := t.cache.Lookup(s.ID, handle.KindTerminal); ok {
			if t.Validate(h) {
				t.cache.Touch(s.ID, handle.KindTerminal)
				out[s.ID] = true
				continue
			}
			t.cache.Invalidate(s.ID, handle.KindTerminal)
			if t.pids.Get(s.ID) == h.PID {
				_ = t.pids.Remove(s.ID)
			}
		}

		// Discovery: the pid file survives restarts that lose the cache.
		pid := t.pids.Get(s.ID)
		if pid <= 0 {
			continue
		}
		name, alive := t.proc.Alive(pid)
		if !alive {
			continue
		}
		t.cache.Register(handle.TrackedHandle{
			SessionID:     s.ID,
			Kind:          handle.KindTerminal,
			PID:           pid,
			ProcName:      name,
			OriginFolder:  s.Folder,
			LastValidated: time.Now(),
		})
		out[s.ID] = true
	}
	return out
}

func (t *Terminal) Focus(ctx context.Context, sessionID string) error {
	h, ok := t.cache.Lookup(sessionID, handle.KindTerminal)
	if !ok || !t.Validate(h) {
		return ErrNoResource
	}
	if t.windows == nil {
		return ErrNoResource
	}
	windows, err := t.windows.ListWindows(ctx)
	if err != nil {
		return ErrNoResource
	}
	for _, w := range windows {
		if w.PID == h.PID {
			return t.windows.Focus(ctx, w.ID)
		}
	}
	return ErrNoResource
}

func (t *Terminal) Launch(ctx context.Context, s catalog.Session) error {
	pid, err := launchCommand(ctx, t.cfg.Launch, s, "")
	if err != nil {
		return err
	}
	name, _ := t.proc.Alive(pid)
	t.cache.Register(handle.TrackedHandle{
		SessionID:     s.ID,
		Kind:          handle.KindTerminal,
		PID:           pid,
		ProcName:      name,
		OriginFolder:  s.Folder,
		LastValidated: time.Now(),
	})
	if err := t.pids.Set(s.ID, pid); err != nil {
		trackLog.Warn("terminal_pid_persist_failed",
			slog.String("session", s.ID),
			slog.String("error", err.Error()))
	}
	return nil
}
