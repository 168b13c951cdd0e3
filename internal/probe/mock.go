package probe

import (
	"context"
	"sync"
)

// FakeProcessProber is an in-memory ProcessProber for tests.
type FakeProcessProber struct {
	mu    sync.Mutex
	Procs map[int]string // pid -> process name
}

func NewFakeProcessProber() *FakeProcessProber {
	return &FakeProcessProber{Procs: map[int]string{}}
}

func (f *FakeProcessProber) Alive(pid int) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.Procs[pid]
	return name, ok
}

// Kill removes a process, simulating an exit.
func (f *FakeProcessProber) Kill(pid int) {
	f.mu.Lock()
	delete(f.Procs, pid)
	f.mu.Unlock()
}

// Spawn adds a process.
func (f *FakeProcessProber) Spawn(pid int, name string) {
	f.mu.Lock()
	f.Procs[pid] = name
	f.mu.Unlock()
}

// FakeWindowProber is an in-memory WindowProber for tests. Focus calls are
// recorded for assertions.
type FakeWindowProber struct {
	mu      sync.Mutex
	Windows []Window
	Focused []string
	Err     error
}

func (f *FakeWindowProber) ListWindows(context.Context) ([]Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]Window, len(f.Windows))
	copy(out, f.Windows)
	return out, nil
}

func (f *FakeWindowProber) Focus(_ context.Context, windowID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Focused = append(f.Focused, windowID)
	return nil
}

// SetWindows replaces the window list.
func (f *FakeWindowProber) SetWindows(ws []Window) {
	f.mu.Lock()
	f.Windows = ws
	f.mu.Unlock()
}

// FocusCalls returns the focus history.
func (f *FakeWindowProber) FocusCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Focused))
	copy(out, f.Focused)
	return out
}

// FakeTabProber is an in-memory TabProber for tests.
type FakeTabProber struct {
	mu      sync.Mutex
	Tabs    []Tab
	Focused []string
	Err     error
}

func (f *FakeTabProber) ListTabs(context.Context) ([]Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]Tab, len(f.Tabs))
	copy(out, f.Tabs)
	return out, nil
}

func (f *FakeTabProber) FocusTab(_ context.Context, tabID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Focused = append(f.Focused, tabID)
	return nil
}

// SetTabs replaces the tab list.
func (f *FakeTabProber) SetTabs(tabs []Tab) {
	f.mu.Lock()
	f.Tabs = tabs
	f.mu.Unlock()
}
