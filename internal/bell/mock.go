package bell

import "sync"

// FakeNotifier is an in-memory Notifier for tests. Calls are recorded for
// assertions.
type FakeNotifier struct {
	mu    sync.Mutex
	Calls []Notification
	Err   error
}

// Notification is one recorded FakeNotifier call.
type Notification struct {
	Title string
	Body  string
}

func (f *FakeNotifier) Notify(title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Notification{Title: title, Body: body})
	return f.Err
}

// Count returns the number of notifications posted.
func (f *FakeNotifier) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
