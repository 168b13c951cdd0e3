package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/config"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/core"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/events"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/handle"
)

func newCore(cfg config.Config) *core.Core {
	c, err := core.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return c
}

// handleFocus raises (or launches) a session resource.
func handleFocus(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("focus", flag.ExitOnError)
	kind := fs.String("kind", "terminal", "Resource kind: terminal, editor, explorer or browser")
	fs.Usage = func() {
		fmt.Println("Usage: copilot-booster focus <session-id> [--kind <kind>]")
		fmt.Println()
		fmt.Println("Focus the session's live resource, launching one if nothing is alive.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	valid := false
	for _, k := range handle.Kinds {
		if string(k) == *kind {
			valid = true
		}
	}
	if !valid {
		fmt.Fprintf(os.Stderr, "Error: unknown kind %q\n", *kind)
		os.Exit(1)
	}

	c := newCore(cfg)
	defer c.Close()

	if err := c.FocusOrLaunch(context.Background(), fs.Arg(0), handle.Kind(*kind)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// handlePin pins or unpins a session.
func handlePin(cfg config.Config, args []string, pinned bool) {
	if len(args) != 1 {
		fmt.Println("Usage: copilot-booster pin|unpin <session-id>")
		os.Exit(1)
	}
	c := newCore(cfg)
	defer c.Close()

	if err := c.Pin(args[0], pinned); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// handleArchive archives or restores a session.
func handleArchive(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	restore := fs.Bool("restore", false, "Restore instead of archive")
	fs.Usage = func() {
		fmt.Println("Usage: copilot-booster archive <session-id> [--restore]")
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	c := newCore(cfg)
	defer c.Close()

	if err := c.Archive(fs.Arg(0), !*restore); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// handleTab assigns a session to a tab group (empty name clears it).
func handleTab(cfg config.Config, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Println("Usage: copilot-booster tab <session-id> [<tab-name>]")
		os.Exit(1)
	}
	tab := ""
	if len(args) == 2 {
		tab = args[1]
	}
	c := newCore(cfg)
	defer c.Close()

	if err := c.SetTab(args[0], tab); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// handleWatch streams a session's classified activity live.
func handleWatch(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println("Usage: copilot-booster watch <session-id>")
		fmt.Println()
		fmt.Println("Stream the session's agent activity as it happens. The event log")
		fmt.Println("may not exist yet; events appear once the agent starts writing.")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	path := filepath.Join(cfg.EventsDir(), fs.Arg(0)+".jsonl")
	ch, err := events.Follow(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for c := range ch {
		// Pad before styling so ANSI codes don't skew the column.
		state := fmt.Sprintf("%-7s", string(c.State))
		if isTTY() {
			switch c.State {
			case events.StateWorking:
				state = workingStyle.Render(state)
			case events.StateIdle:
				state = idleStyle.Render(state)
			}
		}
		fmt.Printf("%s  %s  %s\n", c.Event.Time().Format("15:04:05"), state, c.Event.Type)
	}
}

// handleDaemon runs the background refresh daemon until interrupted.
func handleDaemon(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	c := newCore(cfg)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if isTTY() {
		fmt.Printf("copilot-booster v%s daemon started (leader: %v, instances: %d)\n",
			Version, c.Leader(), c.Instances())
	}
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: daemon failed: %v\n", err)
		os.Exit(1)
	}
}
