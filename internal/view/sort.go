// Package view computes the stable display order for the session list and
// carries selection, current row, and scroll anchor across full rebuilds by
// session identity rather than row index.
package view

import (
	"sort"
	"strings"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/status"
)

// Primary order modes.
const (
	OrderCreated = "created" // last-modified descending (default)
	OrderAlias   = "alias"   // alphabetical by display alias
	OrderRunning = "running" // working sessions first, then recency
)

// Column identifies a sortable list column.
type Column string

const (
	ColumnAlias    Column = "alias"
	ColumnFolder   Column = "folder"
	ColumnModified Column = "modified"
)

// ColumnSort is an explicit per-column override. It replaces only the
// tie-break comparison; pinned-first and the running tier still apply.
type ColumnSort struct {
	Column     Column
	Descending bool
}

// Sort returns the sessions in display order. The input is not modified.
// Tiers, in descending priority: pinned before unpinned; when primaryOrder
// is "running", working sessions (per snapshot) before the rest; remaining
// ties broken by primaryOrder mode or the column override. Stable, so
// sorting an already-sorted list is a no-op.
func Sort(sessions []catalog.Session, snap *status.Snapshot, primaryOrder string, override *ColumnSort) []catalog.Session {
	out := make([]catalog.Session, len(sessions))
	copy(out, sessions)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if primaryOrder == OrderRunning {
			ra, rb := snap.Running(a.ID), snap.Running(b.ID)
			if ra != rb {
				return ra
			}
		}
		if override != nil {
			return lessByColumn(a, b, *override)
		}
		return lessByMode(a, b, primaryOrder)
	})
	return out
}

func lessByMode(a, b catalog.Session, primaryOrder string) bool {
	switch primaryOrder {
	case OrderAlias:
		return strings.ToLower(a.Alias) < strings.ToLower(b.Alias)
	default: // created, running and anything unrecognized fall back to recency
		return a.LastModified.After(b.LastModified)
	}
}

func lessByColumn(a, b catalog.Session, cs ColumnSort) bool {
	var less bool
	switch cs.Column {
	case ColumnFolder:
		less = strings.ToLower(a.Folder) < strings.ToLower(b.Folder)
	case ColumnModified:
		less = a.LastModified.Before(b.LastModified)
	default:
		less = strings.ToLower(a.Alias) < strings.ToLower(b.Alias)
	}
	if cs.Descending {
		return !less && !equalByColumn(a, b, cs.Column)
	}
	return less
}

func equalByColumn(a, b catalog.Session, col Column) bool {
	switch col {
	case ColumnFolder:
		return strings.EqualFold(a.Folder, b.Folder)
	case ColumnModified:
		return a.LastModified.Equal(b.LastModified)
	default:
		return strings.EqualFold(a.Alias, b.Alias)
	}
}
