package track

import (
	"context"
	"time"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/config"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/probe"
)

// Editor tracks editor windows per session. Liveness is window-bound: the
// window reference must still resolve and its owning process must be alive.
// Discovery matches window titles against the configured editor markers
// plus the session's folder or alias, after stripping title decoration.
type Editor struct {
	cache   *handle.Cache
	windows probe.WindowProber
	proc    probe.ProcessProber
	cfg     config.KindSettings
}

func NewEditor(cache *handle.Cache, windows probe.WindowProber, proc probe.ProcessProber, cfg config.KindSettings) *Editor {
	return &Editor{cache: cache, windows: windows, proc: proc, cfg: cfg}
}

func (t *Editor) Kind() handle.Kind { return handle.KindEditor }

func (t *Editor) Validate(h handle.TrackedHandle) bool {
	if h.WindowID == "" {
		return false
	}
	windows, err := t.windows.ListWindows(context.Background())
	if err != nil {
		return false
	}
	return t.windowAlive(h, windows)
}

func (t *Editor) windowAlive(h handle.TrackedHandle, windows []probe.Window) bool {
	for _, w := range windows {
		if w.ID != h.WindowID {
			continue
		}
		if h.PID > 0 {
			if _, ok := t.proc.Alive(h.PID); !ok {
				return false
			}
		}
		return true
	}
	return false
}

func (t *Editor) Scan(ctx context.Context, sessions []catalog.Session) map[string]bool {
	windows, err := t.windows.ListWindows(ctx)
	if err != nil {
		windows = nil
	}

	out := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if h, ok := t.cache.Lookup(s.ID, handle.KindEditor); ok {
			if t.windowAlive(h, windows) {
				t.cache.Touch(s.ID, handle.KindEditor)
				out[s.ID] = true
				continue
			}
			t.cache.Invalidate(s.ID, handle.KindEditor)
		}

		w, found := t.discover(s, windows)
		if !found {
			continue
		}
		t.cache.Register(handle.TrackedHandle{
			SessionID:     s.ID,
			Kind:          handle.KindEditor,
			WindowID:      w.ID,
			PID:           w.PID,
			OriginFolder:  s.Folder,
			LastValidated: time.Now(),
		})
		out[s.ID] = true
	}
	return out
}

// discover finds an editor window for the session: the title must carry an
// editor marker and mention the session's folder (or alias).
func (t *Editor) discover(s catalog.Session, windows []probe.Window) (probe.Window, bool) {
	for _, w := range windows {
		title := NormalizeTitle(w.Title)
		if !titleHasMarker(title, t.cfg.TitleMarkers) {
			continue
		}
		if containsFold(title, s.Folder) || containsFold(title, s.Alias) {
			return w, true
		}
	}
	return probe.Window{}, false
}

func (t *Editor) Focus(ctx context.Context, sessionID string) error {
	h, ok := t.cache.Lookup(sessionID, handle.KindEditor)
	if !ok {
		return ErrNoResource
	}
	return t.windows.Focus(ctx, h.WindowID)
}

func (t *Editor) Launch(ctx context.Context, s catalog.Session) error {
	// The window id is unknowable at spawn time; the next scan discovers
	// and registers it.
	_, err := launchCommand(ctx, t.cfg.Launch, s, "")
	return err
}
