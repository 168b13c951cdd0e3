package view

import (
	"github.com/sahilm/fuzzy"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/catalog"
)

// filterSource implements fuzzy.Source over the session list.
type filterSource []catalog.Session

func (s filterSource) String(i int) string {
	sess := s[i]
	return sess.Alias + " " + sess.Folder + " " + sess.WorkDir
}

func (s filterSource) Len() int { return len(s) }

// Filter fuzzy-matches the query against alias, folder and working
// directory, returning matches best-first. An empty query returns the input
// order unchanged.
func Filter(sessions []catalog.Session, query string) []catalog.Session {
	if query == "" {
		out := make([]catalog.Session, len(sessions))
		copy(out, sessions)
		return out
	}

	matches := fuzzy.FindFrom(query, filterSource(sessions))
	out := make([]catalog.Session, 0, len(matches))
	for _, m := range matches {
		out = append(out, sessions[m.Index])
	}
	return out
}
