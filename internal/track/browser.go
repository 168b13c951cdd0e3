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

// anchorPrefix marks a browser tab as belonging to a session: launched tabs
// carry "cb:<session id>" in their title. The marker is what makes the tab
// findable again across restarts; tab order and focus state never matter.
const anchorPrefix = "cb:"

// TabAnchor returns the title marker identifying a session's browser tab.
func TabAnchor(sessionID string) string {
	return anchorPrefix + sessionID
}

// Browser tracks browser tabs per session via a UI-level tab query.
type Browser struct {
	cache *handle.Cache
	tabs  probe.TabProber
	cfg   config.KindSettings
}

func NewBrowser(cache *handle.Cache, tabs probe.TabProber, cfg config.KindSettings) *Browser {
	return &Browser{cache: cache, tabs: tabs, cfg: cfg}
}

func (t *Browser) Kind() handle.Kind { return handle.KindBrowser }

func (t *Browser) Validate(h handle.TrackedHandle) bool {
	if t.tabs == nil {
		return false
	}
	tabs, err := t.tabs.ListTabs(context.Background())
	if err != nil {
		return false
	}
	_, found := findAnchor(tabs, h.SessionID)
	return found
}

func findAnchor(tabs []probe.Tab, sessionID string) (probe.Tab, bool) {
	marker := TabAnchor(sessionID)
	for _, tab := range tabs {
		if strings.Contains(tab.Title, marker) {
			return tab, true
		}
	}
	return probe.Tab{}, false
}

func (t *Browser) Scan(ctx context.Context, sessions []catalog.Session) map[string]bool {
	out := make(map[string]bool, len(sessions))
	if t.tabs == nil {
		return out
	}
	tabs, err := t.tabs.ListTabs(ctx)
	if err != nil {
		tabs = nil
	}

	for _, s := range sessions {
		tab, found := findAnchor(tabs, s.ID)
		if !found {
			t.cache.Invalidate(s.ID, handle.KindBrowser)
			continue
		}
		// Re-register unconditionally: tab ids drift as the browser moves
		// tabs between windows.
		t.cache.Register(handle.TrackedHandle{
			SessionID:     s.ID,
			Kind:          handle.KindBrowser,
			TabAnchor:     tab.ID,
			OriginFolder:  s.Folder,
			LastValidated: time.Now(),
		})
		out[s.ID] = true
	}
	return out
}

func (t *Browser) Focus(ctx context.Context, sessionID string) error {
	if t.tabs == nil {
		return ErrNoResource
	}
	h, ok := t.cache.Lookup(sessionID, handle.KindBrowser)
	if !ok {
		return ErrNoResource
	}
	return t.tabs.FocusTab(ctx, h.TabAnchor)
}

func (t *Browser) Launch(ctx context.Context, s catalog.Session) error {
	_, err := launchCommand(ctx, t.cfg.Launch, s, TabAnchor(s.ID))
	return err
}
