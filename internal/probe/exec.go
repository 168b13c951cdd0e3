package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
)

var probeLog = logging.ForComponent(logging.CompTrack)

// ExecProcessProber checks liveness via the OS process table.
type ExecProcessProber struct{}

// Alive reports whether pid exists and returns its executable name.
// Reads /proc/<pid>/comm where available, falling back to ps for macOS.
func (ExecProcessProber) Alive(pid int) (string, bool) {
	if pid <= 0 {
		return "", false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return "", false
	}
	// Signal 0 probes existence without delivering anything.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return "", false
	}

	if data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid)); err == nil {
		return strings.TrimSpace(string(data)), true
	}

	out, err := exec.Command("ps", "-o", "comm=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		// Process answered the signal but the name is unavailable
		// (permissions). Report alive with an empty name.
		return "", true
	}
	return filepath.Base(strings.TrimSpace(string(out))), true
}

// ExecWindowProber shells out to a window-list command (wmctrl -lp format)
// and a focus command template.
type ExecWindowProber struct {
	ListCommand  []string // produces one window per line
	FocusCommand []string // {window} substitutes the window id
}

// ListWindows runs the configured command and parses its output. A failed
// or missing command yields no windows, not an error the caller must handle:
// the error return exists for logging only.
func (p ExecWindowProber) ListWindows(ctx context.Context) ([]Window, error) {
	if len(p.ListCommand) == 0 {
		return nil, nil
	}
	out, err := exec.CommandContext(ctx, p.ListCommand[0], p.ListCommand[1:]...).Output()
	if err != nil {
		probeLog.Debug("window_list_failed",
			slog.String("command", p.ListCommand[0]),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("window list command: %w", err)
	}
	return ParseWindowList(string(out)), nil
}

// Focus raises the window via the focus command template.
func (p ExecWindowProber) Focus(ctx context.Context, windowID string) error {
	if len(p.FocusCommand) == 0 {
		return fmt.Errorf("no window focus command configured")
	}
	args := substitute(p.FocusCommand, "{window}", windowID)
	if err := exec.CommandContext(ctx, args[0], args[1:]...).Run(); err != nil {
		return fmt.Errorf("window focus command: %w", err)
	}
	return nil
}

// ParseWindowList parses wmctrl -lp output:
//
//	0x03000003 -1 1234 hostname Window Title Words
//
// Lines that don't fit the shape are skipped.
func ParseWindowList(out string) []Window {
	var windows []Window
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		pid, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		title := ""
		if len(fields) > 4 {
			title = strings.Join(fields[4:], " ")
		}
		windows = append(windows, Window{ID: fields[0], PID: pid, Title: title})
	}
	return windows
}

// ExecTabProber shells out to a tab-list command (brotab-style output) and
// a focus command template. An empty ListCommand disables browser probing.
type ExecTabProber struct {
	ListCommand  []string // produces "<tab-id>\t<title>" per line
	FocusCommand []string // {tab} substitutes the tab id
}

func (p ExecTabProber) ListTabs(ctx context.Context) ([]Tab, error) {
	if len(p.ListCommand) == 0 {
		return nil, nil
	}
	out, err := exec.CommandContext(ctx, p.ListCommand[0], p.ListCommand[1:]...).Output()
	if err != nil {
		probeLog.Debug("tab_list_failed",
			slog.String("command", p.ListCommand[0]),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("tab list command: %w", err)
	}
	return ParseTabList(string(out)), nil
}

func (p ExecTabProber) FocusTab(ctx context.Context, tabID string) error {
	if len(p.FocusCommand) == 0 {
		return fmt.Errorf("no tab focus command configured")
	}
	args := substitute(p.FocusCommand, "{tab}", tabID)
	if err := exec.CommandContext(ctx, args[0], args[1:]...).Run(); err != nil {
		return fmt.Errorf("tab focus command: %w", err)
	}
	return nil
}

// ParseTabList parses tab-separated tab listings. The first field is the tab
// id, the second the title; extra fields (e.g. brotab's URL column) are
// ignored.
func ParseTabList(out string) []Tab {
	var tabs []Tab
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 {
			continue
		}
		tabs = append(tabs, Tab{ID: fields[0], Title: fields[1]})
	}
	return tabs
}

func substitute(template []string, placeholder, value string) []string {
	out := make([]string, len(template))
	for i, arg := range template {
		out[i] = strings.ReplaceAll(arg, placeholder, value)
	}
	return out
}
