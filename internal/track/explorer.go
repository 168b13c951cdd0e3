package track

import (
	"context"
	"strings"
	"time"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/config"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/probe"
)

// Explorer tracks file-manager windows per session. File managers title
// their windows with the directory name, so discovery is an exact (folded)
// title match on the session folder.
type Explorer struct {
	cache   *handle.Cache
	windows probe.WindowProber
	proc    probe.ProcessProber
	cfg     config.KindSettings
}

func NewExplorer(cache *handle.Cache, windows probe.WindowProber, proc probe.ProcessProber, cfg config.KindSettings) *Explorer {
	return &Explorer{cache: cache, windows: windows, proc: proc, cfg: cfg}
}

func (t *Explorer) Kind() handle.Kind { return handle.KindExplorer }

func (t *Explorer) Validate(h handle.TrackedHandle) bool {
	if h.WindowID == "" {
		return false
	}
	windows, err := t.windows.ListWindows(context.Background())
	if err != nil {
		return false
	}
	return t.windowAlive(h, windows)
}

func (t *Explorer) windowAlive(h handle.TrackedHandle, windows []probe.Window) bool {
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

func (t *Explorer) Scan(ctx context.Context, sessions []catalog.Session) map[string]bool {
	windows, err := t.windows.ListWindows(ctx)
	if err != nil {
		windows = nil
	}

	out := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if h, ok := t.cache.Lookup(s.ID, handle.KindExplorer); ok {
			if t.windowAlive(h, windows) {
				t.cache.Touch(s.ID, handle.KindExplorer)
				out[s.ID] = true
				continue
			}
			t.cache.Invalidate(s.ID, handle.KindExplorer)
		}

		w, found := t.discover(s, windows)
		if !found {
			continue
		}
		t.cache.Register(handle.TrackedHandle{
			SessionID:     s.ID,
			Kind:          handle.KindExplorer,
			WindowID:      w.ID,
			PID:           w.PID,
			OriginFolder:  s.Folder,
			LastValidated: time.Now(),
		})
		out[s.ID] = true
	}
	return out
}

func (t *Explorer) discover(s catalog.Session, windows []probe.Window) (probe.Window, bool) {
	if s.Folder == "" {
		return probe.Window{}, false
	}
	for _, w := range windows {
		if strings.EqualFold(NormalizeTitle(w.Title), s.Folder) {
			return w, true
		}
	}
	return probe.Window{}, false
}

func (t *Explorer) Focus(ctx context.Context, sessionID string) error {
	h, ok := t.cache.Lookup(sessionID, handle.KindExplorer)
	if !ok {
		return ErrNoResource
	}
	return t.windows.Focus(ctx, h.WindowID)
}

func (t *Explorer) Launch(ctx context.Context, s catalog.Session) error {
	_, err := launchCommand(ctx, t.cfg.Launch, s, "")
	return err
}
