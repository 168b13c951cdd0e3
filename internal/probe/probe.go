// Package probe defines the OS probing boundary: process liveness, window
// enumeration and browser-tab queries. All implementations degrade to
// "nothing found" on failure; callers never branch on probe errors.
package probe

import "context"

// Window is one top-level OS window.
type Window struct {
	ID    string // opaque window reference (e.g. X11 window id)
	PID   int    // owning process id (0 when unknown)
	Title string // raw title, possibly decorated
}

// Tab is one browser tab, located by a UI-level query across all open
// browser windows. Order and foreground state are irrelevant.
type Tab struct {
	ID    string // opaque tab reference usable for focusing
	Title string
}

// ProcessProber answers whether a process id is alive and what its process
// name is. The name comparison guards against PID reuse.
type ProcessProber interface {
	// Alive returns the process name and true when pid exists.
	Alive(pid int) (name string, ok bool)
}

// WindowProber enumerates and focuses top-level windows.
type WindowProber interface {
	ListWindows(ctx context.Context) ([]Window, error)
	Focus(ctx context.Context, windowID string) error
}

// TabProber enumerates and focuses browser tabs.
type TabProber interface {
	ListTabs(ctx context.Context) ([]Tab, error)
	FocusTab(ctx context.Context, tabID string) error
}
