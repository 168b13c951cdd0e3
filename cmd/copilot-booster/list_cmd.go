package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/config"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/core"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/status"
)

type sessionJSON struct {
	ID           string    `json:"id"`
	Alias        string    `json:"alias"`
	Folder       string    `json:"folder"`
	Path         string    `json:"path"`
	Pinned       bool      `json:"pinned,omitempty"`
	Archived     bool      `json:"archived,omitempty"`
	Tab          string    `json:"tab,omitempty"`
	Status       string    `json:"status"`
	Resources    []string  `json:"resources,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// handleList lists sessions with live-resource and agent status.
func handleList(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	filterQuery := fs.String("filter", "", "Fuzzy-filter by alias, folder or path")
	sortOrder := fs.String("sort", "", "Order: running, alias or created")
	showArchived := fs.Bool("archived", false, "Include archived sessions")

	fs.Usage = func() {
		fmt.Println("Usage: copilot-booster list [options]")
		fmt.Println()
		fmt.Println("List sessions with live-resource and agent status.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  copilot-booster list --sort running")
		fmt.Println("  copilot-booster list --filter billing --json")
	}

	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}

	c, err := core.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	snap, err := c.Refresh(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: refresh failed: %v\n", err)
		os.Exit(1)
	}

	sessions := c.Sessions()
	if !*showArchived {
		kept := sessions[:0]
		for _, s := range sessions {
			if !s.Archived {
				kept = append(kept, s)
			}
		}
		sessions = kept
	}
	if *filterQuery != "" {
		sessions = c.Filter(sessions, *filterQuery)
	}
	sessions = c.Sort(sessions, *sortOrder, nil)

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return
	}

	if *jsonOutput {
		printSessionsJSON(sessions, snap)
		return
	}

	fmt.Printf("  %s %-*s %-*s %s\n", "    ", tableColAlias, "ALIAS", tableColFolder, "FOLDER", "PATH")
	fmt.Println(strings.Repeat("-", tableColAlias+tableColFolder+tableColPath+10))
	for _, s := range sessions {
		st := snap.Status(s.ID)
		pin := " "
		if s.Pinned {
			pin = pinStyle.Render("»")
		}
		fmt.Printf("%s %s %s %s %s\n",
			pin,
			statusIcon(st.Icon),
			kindLetters(st),
			pad(s.Alias, tableColAlias),
			pad(s.Folder, tableColFolder)+" "+truncate(s.WorkDir, tableColPath))
	}
	fmt.Printf("\nTotal: %d sessions\n", len(sessions))
}

func printSessionsJSON(sessions []catalog.Session, snap *status.Snapshot) {
	out := make([]sessionJSON, len(sessions))
	for i, s := range sessions {
		st := snap.Status(s.ID)
		var resources []string
		for kind, alive := range st.Kinds {
			if alive {
				resources = append(resources, string(kind))
			}
		}
		out[i] = sessionJSON{
			ID:           s.ID,
			Alias:        s.Alias,
			Folder:       s.Folder,
			Path:         s.WorkDir,
			Pinned:       s.Pinned,
			Archived:     s.Archived,
			Tab:          s.Tab,
			Status:       string(st.Icon),
			Resources:    resources,
			LastModified: s.LastModified,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to format JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

// handleStatus shows one session's detailed status.
func handleStatus(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Println("Usage: copilot-booster status <session-id>")
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	id := fs.Arg(0)

	c, err := core.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	snap, err := c.Refresh(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: refresh failed: %v\n", err)
		os.Exit(1)
	}

	s, ok := catalog.ByID(c.Sessions())[id]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown session %q\n", id)
		os.Exit(1)
	}
	st := snap.Status(id)

	if *jsonOutput {
		printSessionsJSON([]catalog.Session{s}, snap)
		return
	}

	fmt.Printf("%s %s\n", statusIcon(st.Icon), s.Alias)
	fmt.Printf("  id:        %s\n", s.ID)
	fmt.Printf("  path:      %s\n", s.WorkDir)
	fmt.Printf("  agent:     %s\n", st.Icon)
	if !st.At.IsZero() {
		fmt.Printf("  last seen: %s\n", st.At.Format(time.RFC3339))
	}
	fmt.Printf("  resources: %s\n", kindLetters(st))
	if s.Pinned {
		fmt.Println("  pinned")
	}
	if s.Archived {
		fmt.Println("  archived")
	}
	if s.Tab != "" {
		fmt.Printf("  tab:       %s\n", s.Tab)
	}
	if at := c.DriverRefreshedAt(); !at.IsZero() {
		fmt.Printf("  driver:    refreshed %s\n", at.Format(time.RFC3339))
	}
}

// handleRefresh forces one refresh cycle.
func handleRefresh(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	c, err := core.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	snap, err := c.Refresh(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: refresh failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Refreshed %d sessions at %s\n",
		len(snap.Sessions), snap.Taken.Format(time.RFC3339))
}
