package track

import "strings"

// Agent CLIs decorate window titles while running: Braille spinner frames
// (U+2800-U+28FF) during activity and asterisk done markers when a task
// completes. Discovery must see through the decoration or a working
// session's window would never match its alias.

// NormalizeTitle strips status decoration from a window title: Braille
// spinner runes, done markers, and leading bullet/whitespace noise.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if r >= 0x2800 && r <= 0x28FF {
			continue
		}
		if isDoneMarker(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), " \t•·-–—")
}

func isDoneMarker(r rune) bool {
	switch r {
	case '✳', '✻', '✽', '✶', '✢':
		return true
	}
	return false
}

// titleHasMarker reports whether the title carries any of the configured
// marker substrings. An empty marker list matches nothing.
func titleHasMarker(title string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(title, m) {
			return true
		}
	}
	return false
}

// containsFold is a case-insensitive substring test.
func containsFold(s, substr string) bool {
	return substr != "" && strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
