package scanner

import (
	"fmt"
	"sync/atomic"
)

// Dispatcher hands out each path exactly once to whichever worker asks first.
// Once exhausted it keeps answering false; nothing is ever re-queued.
type Dispatcher struct {
	paths   []string
	workers int
	next    atomic.Int64
}

// NewDispatcher creates a dispatcher over a copy of paths for the given worker count
func NewDispatcher(paths []string, workers int) (*Dispatcher, error) {
	if workers < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", workers)
	}
	return &Dispatcher{
		paths:   append([]string(nil), paths...),
		workers: workers,
	}, nil
}

// Next takes the next undispatched job
func (d *Dispatcher) Next() (Job, bool) {
	i := d.next.Add(1) - 1
	if i >= int64(len(d.paths)) {
		return Job{}, false
	}
	return Job{Index: int(i), Path: d.paths[i]}, true
}

// Remaining reports how many jobs have not been handed out yet
func (d *Dispatcher) Remaining() int {
	taken := d.next.Load()
	if taken >= int64(len(d.paths)) {
		return 0
	}
	return len(d.paths) - int(taken)
}

// Workers returns the worker count the dispatcher was created for
func (d *Dispatcher) Workers() int {
	return d.workers
}
