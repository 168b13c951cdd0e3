package view

import "github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"

// Position is the presentation state carried across a list rebuild.
type Position struct {
	// Selection holds the selected session ids, in selection order.
	Selection []string

	// Current is the focused session id, empty for none.
	Current string

	// ScrollIndex is the row the viewport should anchor on in the new
	// order.
	ScrollIndex int
}

// Reconcile relocates the previous selection, current row, and scroll
// anchor in a freshly rebuilt order. Everything is matched by session
// identity: ids no longer present are dropped from the selection silently,
// and a vanished current id yields no current rather than an error. A
// vanished scroll anchor falls back to the current row, then to the top.
func Reconcile(prevSelection []string, prevCurrent, prevScrollID string, order []catalog.Session) Position {
	index := make(map[string]int, len(order))
	for i, s := range order {
		index[s.ID] = i
	}

	var pos Position
	for _, id := range prevSelection {
		if _, ok := index[id]; ok {
			pos.Selection = append(pos.Selection, id)
		}
	}
	if _, ok := index[prevCurrent]; ok {
		pos.Current = prevCurrent
	}

	if i, ok := index[prevScrollID]; ok {
		pos.ScrollIndex = i
	} else if i, ok := index[pos.Current]; ok {
		pos.ScrollIndex = i
	}
	return pos
}
