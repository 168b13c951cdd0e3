package events

import (
	"context"
	"encoding/json"

	"github.com/hpcloud/tail"
)

// Classified pairs a log event with the state it implies.
type Classified struct {
	Event Event
	State State
}

// Follow tails a session's event log and streams classified events until the
// context is cancelled. The file may not exist yet; it is picked up when
// created. Unclassifiable and malformed lines are skipped.
func Follow(ctx context.Context, path string) (<-chan Classified, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan Classified, 16)
	go func() {
		defer close(ch)
		defer func() { _ = t.Stop() }()

		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-t.Lines:
				if !ok {
					return
				}
				if line.Err != nil {
					continue
				}
				var e Event
				if err := json.Unmarshal([]byte(line.Text), &e); err != nil {
					continue
				}
				state, ok := Classify(e.Type)
				if !ok {
					continue
				}
				select {
				case ch <- Classified{Event: e, State: state}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
