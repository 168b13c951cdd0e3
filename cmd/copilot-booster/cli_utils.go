package main

import (
	"flag"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/status"
)

var (
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pinStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
)

// normalizeArgs reorders args so flags come before positional arguments.
// Go's flag package stops parsing at the first non-flag argument, which means
// "focus my-session --kind editor" silently ignores --kind. This function
// moves all flags to the front so they get parsed correctly.
func normalizeArgs(fs *flag.FlagSet, args []string) []string {
	// Build set of known boolean flags (don't need a value argument)
	boolFlags := make(map[string]bool)
	fs.VisitAll(func(f *flag.Flag) {
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			boolFlags[f.Name] = true
		}
	})

	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" terminates flag processing
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		if strings.HasPrefix(arg, "-") && arg != "-" {
			flags = append(flags, arg)

			name := strings.TrimLeft(arg, "-")

			// Handle --flag=value (value is part of the arg, nothing to move)
			if strings.Contains(name, "=") {
				continue
			}

			// If it's not a bool flag, the next arg is its value
			if !boolFlags[name] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}
	return append(flags, positional...)
}

// truncate shortens s to the given display width, appending "…" when cut.
// Width-aware so CJK and emoji don't break column alignment.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// pad right-pads s with spaces to the given display width.
func pad(s string, width int) string {
	return runewidth.FillRight(truncate(s, width), width)
}

// isTTY reports whether stdout is a terminal; piped output skips styling.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// statusIcon renders the activity indicator for a session.
func statusIcon(icon status.Icon) string {
	switch icon {
	case status.IconWorking:
		return workingStyle.Render("●")
	case status.IconIdle:
		return idleStyle.Render("◉")
	default:
		return dimStyle.Render("○")
	}
}

// kindLetters renders the live-resource set as a compact column, one letter
// per kind: t(erminal), e(ditor), f(iles), b(rowser).
func kindLetters(s status.SessionStatus) string {
	letters := []struct {
		kind handle.Kind
		char string
	}{
		{handle.KindTerminal, "t"},
		{handle.KindEditor, "e"},
		{handle.KindExplorer, "f"},
		{handle.KindBrowser, "b"},
	}
	var b strings.Builder
	for _, l := range letters {
		if s.Alive(l.kind) {
			b.WriteString(l.char)
		} else {
			b.WriteString("-")
		}
	}
	return b.String()
}
