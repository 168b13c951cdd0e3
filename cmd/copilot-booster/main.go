package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/config"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
)

const Version = "0.3.1"

// Table column widths for list command output
const (
	tableColAlias  = 24
	tableColFolder = 18
	tableColPath   = 40
)

// init sets up color profile for consistent terminal colors across environments
func init() {
	initColorProfile()
}

// initColorProfile configures lipgloss color profile based on terminal capabilities.
// Prefers TrueColor for best visuals, falls back to ANSI256 for compatibility.
func initColorProfile() {
	// Allow user override via environment variable
	// COPILOT_BOOSTER_COLOR: truecolor, 256, 16, none
	if colorEnv := os.Getenv("COPILOT_BOOSTER_COLOR"); colorEnv != "" {
		switch strings.ToLower(colorEnv) {
		case "truecolor", "true", "24bit":
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		case "256", "ansi256":
			lipgloss.SetColorProfile(termenv.ANSI256)
			return
		case "16", "ansi", "basic":
			lipgloss.SetColorProfile(termenv.ANSI)
			return
		case "none", "off", "ascii":
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
	}

	// Explicit TrueColor support
	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	// Check TERM for capability hints
	term := os.Getenv("TERM")
	trueColorTerms := []string{
		"xterm-256color",
		"screen-256color",
		"tmux-256color",
		"xterm-direct",
		"alacritty",
		"kitty",
		"wezterm",
	}
	for _, t := range trueColorTerms {
		if strings.Contains(term, t) || term == t {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}

	// Fallback: ANSI256 works in SSH, basic terminals, and older emulators
	lipgloss.SetColorProfile(termenv.ANSI256)
}

func setupLogging(cfg config.Config) {
	debugMode := cfg.Logging.Debug || os.Getenv("COPILOT_BOOSTER_DEBUG") != ""
	logging.Init(logging.Config{
		LogDir:     cfg.LogDir(),
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 10,
		Compress:   true,
		Debug:      debugMode,
	})
}

func printHelp() {
	fmt.Println("Usage: copilot-booster [--config <path>] <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  list, ls        List sessions with live-resource and agent status")
	fmt.Println("  status          Show one session's detailed status")
	fmt.Println("  refresh         Force a refresh cycle and print the result")
	fmt.Println("  focus           Focus (or launch) a session resource")
	fmt.Println("  pin, unpin      Pin a session to the top of the list")
	fmt.Println("  archive         Archive or restore a session")
	fmt.Println("  tab             Assign a session to a tab group")
	fmt.Println("  daemon          Run the background refresh daemon")
	fmt.Println("  watch           Stream a session's agent activity live")
	fmt.Println("  version         Print the version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  copilot-booster list --sort running")
	fmt.Println("  copilot-booster focus 1a2b3c --kind editor")
	fmt.Println("  copilot-booster daemon")
}

// extractConfigFlag pulls a global --config/-c flag out of the argument
// list before subcommand dispatch.
func extractConfigFlag(args []string) (string, []string) {
	var path string
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" || arg == "-c":
			if i+1 < len(args) {
				i++
				path = args[i]
			}
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		default:
			rest = append(rest, arg)
		}
	}
	return path, rest
}

func main() {
	cfgPath, args := extractConfigFlag(os.Args[1:])
	cfg := config.Load(cfgPath)
	setupLogging(cfg)
	defer logging.Shutdown()

	if len(args) == 0 {
		printHelp()
		return
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Printf("copilot-booster v%s\n", Version)
	case "help", "--help", "-h":
		printHelp()
	case "list", "ls":
		handleList(cfg, args[1:])
	case "status":
		handleStatus(cfg, args[1:])
	case "refresh":
		handleRefresh(cfg, args[1:])
	case "focus":
		handleFocus(cfg, args[1:])
	case "pin":
		handlePin(cfg, args[1:], true)
	case "unpin":
		handlePin(cfg, args[1:], false)
	case "archive":
		handleArchive(cfg, args[1:])
	case "tab":
		handleTab(cfg, args[1:])
	case "daemon":
		handleDaemon(cfg, args[1:])
	case "watch":
		handleWatch(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printHelp()
		os.Exit(1)
	}
}
