// Package realtime carries task status events from pipeline stages to
// subscribers. Delivery is best effort: the task row is the source of truth
// and a late subscriber recovers the terminal state from it.
package realtime

import (
	"context"
	"fmt"
)

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// StatusEvent is one status change of a task. Step is empty for done and
// Error is null unless the task failed. Both keys are always present.
type StatusEvent struct {
	TaskID uint    `json:"-"`
	Status string  `json:"status"`
	Step   string  `json:"step"`
	Error  *string `json:"error"`
}

func Running(taskID uint, step string) StatusEvent {
	return StatusEvent{TaskID: taskID, Status: StatusRunning, Step: step}
}

func Done(taskID uint) StatusEvent {
	return StatusEvent{TaskID: taskID, Status: StatusDone}
}

func Failed(taskID uint, step string, err error) StatusEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return StatusEvent{TaskID: taskID, Status: StatusFailed, Step: step, Error: &msg}
}

// Terminal reports whether no event can follow ev.
func (ev StatusEvent) Terminal() bool {
	return ev.Status == StatusDone || ev.Status == StatusFailed
}

// Channel is the pub/sub channel name of a task.
func Channel(taskID uint) string { return fmt.Sprintf("task:%d", taskID) }

// Follow calls fn for every event on ch until a terminal one has been
// delivered, ch closes or ctx ends. It returns the last event seen.
func Follow(ctx context.Context, ch <-chan StatusEvent, fn func(StatusEvent) error) (StatusEvent, error) {
	var last StatusEvent
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return last, nil
			}
			last = ev
			if fn != nil {
				if err := fn(ev); err != nil {
					return last, err
				}
			}
			if ev.Terminal() {
				return last, nil
			}
		}
	}
}
