// Package bell turns working→idle transitions into at-most-one desktop
// notification per idle episode. The durable record lives in the meta store,
// so a restart never re-fires for an episode already notified.
package bell

import (
	"log/slog"

	"github.com/rogerbarreto/copilot-booster-sub003/internal/events"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/logging"
	"github.com/rogerbarreto/copilot-booster-sub003/internal/meta"
)

var bellLog = logging.ForComponent(logging.CompBell)

// Machine drives the per-session bell state: eligible → notified when an
// idle episode opens, notified → suppressed when the user focuses the
// session, and back to eligible once the agent works again.
type Machine struct {
	store    *meta.Store
	notifier Notifier
}

// NewMachine creates a bell machine over the meta store. A nil notifier
// records transitions without posting anything.
func NewMachine(store *meta.Store, notifier Notifier) *Machine {
	return &Machine{store: store, notifier: notifier}
}

// InitFromCurrent seeds the record for sessions found already idle at
// startup. They are marked notified without firing: the user was not
// watching when the transition happened, and a stale bell storm on every
// launch would train them to ignore the real ones.
func (m *Machine) InitFromCurrent(results map[string]events.Result) {
	for id, res := range results {
		if res.State != events.StateIdle {
			continue
		}
		episode := res.IdleSince.UnixNano()
		rec := m.store.Get(id)
		if rec.BellEpisode == episode && doneFor(rec.BellState) {
			continue
		}
		m.record(id, meta.BellNotified, episode)
	}
}

// Observe processes one refresh's classification. names maps session id to
// the display name used in the notification; missing ids fall back to the
// id itself.
func (m *Machine) Observe(results map[string]events.Result, names map[string]string) {
	for id, res := range results {
		switch res.State {
		case events.StateWorking:
			rec := m.store.Get(id)
			if doneFor(rec.BellState) {
				m.record(id, meta.BellEligible, rec.BellEpisode)
			}
		case events.StateIdle:
			episode := res.IdleSince.UnixNano()
			rec := m.store.Get(id)
			if rec.BellEpisode == episode && doneFor(rec.BellState) {
				continue
			}
			m.fire(id, names[id], episode)
		}
	}
}

// MarkFocused suppresses the bell for a session the user just focused.
// Suppression only outlives the current episode in the sense that no second
// notification fires for it; the next episode re-arms as usual.
func (m *Machine) MarkFocused(id string) {
	rec := m.store.Get(id)
	if rec.BellState != meta.BellNotified {
		return
	}
	m.record(id, meta.BellSuppressed, rec.BellEpisode)
}

func (m *Machine) fire(id, name string, episode int64) {
	if name == "" {
		name = id
	}
	if m.notifier != nil {
		if err := m.notifier.Notify(name, "awaiting your input"); err != nil {
			// Still mark notified: retrying a failed toast each refresh
			// would hammer the notifier for as long as the session idles.
			bellLog.Warn("notify_failed",
				slog.String("session", id),
				slog.String("error", err.Error()))
		}
	}
	bellLog.Debug("bell_fired", slog.String("session", id), slog.Int64("episode", episode))
	m.record(id, meta.BellNotified, episode)
}

func (m *Machine) record(id, state string, episode int64) {
	err := m.store.Update(id, func(sm *meta.SessionMeta) {
		sm.BellState = state
		sm.BellEpisode = episode
	})
	if err != nil {
		bellLog.Warn("bell_state_persist_failed",
			slog.String("session", id),
			slog.String("error", err.Error()))
	}
}

// doneFor reports whether the state already consumed its episode's
// notification.
func doneFor(state string) bool {
	return state == meta.BellNotified || state == meta.BellSuppressed
}
