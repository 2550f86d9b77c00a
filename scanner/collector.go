package scanner

import (
	"errors"
	"fmt"
	"sync"

	"imgdup/types"
)

// Collector contract violations. All of them abort the run.
var (
	ErrDuplicateOutcome  = errors.New("duplicate outcome")
	ErrUnknownPath       = errors.New("outcome for a path that was not dispatched")
	ErrCollectorFrozen   = errors.New("collector already frozen")
	ErrIncompleteResults = errors.New("incomplete results")
)

// Collector records exactly one outcome per input path from concurrent workers
type Collector struct {
	mu       sync.Mutex
	settings types.HashSettings
	paths    []string
	order    map[string]int
	outcomes []types.Outcome
	recorded []bool
	count    int
	frozen   bool
}

// NewCollector prepares a collector for paths, given in discovery order
func NewCollector(paths []string, settings types.HashSettings) (*Collector, error) {
	c := &Collector{
		settings: settings,
		paths:    append([]string(nil), paths...),
		order:    make(map[string]int, len(paths)),
		outcomes: make([]types.Outcome, len(paths)),
		recorded: make([]bool, len(paths)),
	}
	for i, path := range paths {
		if _, dup := c.order[path]; dup {
			return nil, fmt.Errorf("%w: %s listed twice", ErrDuplicateOutcome, path)
		}
		c.order[path] = i
	}
	return c, nil
}

// Submit records the outcome for one path
func (c *Collector) Submit(outcome types.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return fmt.Errorf("%w: %s", ErrCollectorFrozen, outcome.Path)
	}
	i, ok := c.order[outcome.Path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPath, outcome.Path)
	}
	if c.recorded[i] {
		return fmt.Errorf("%w: %s", ErrDuplicateOutcome, outcome.Path)
	}

	c.outcomes[i] = outcome
	c.recorded[i] = true
	c.count++
	return nil
}

// Len returns the number of recorded outcomes
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Freeze stops accepting outcomes and returns them in discovery order
func (c *Collector) Freeze() (*types.ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count != len(c.outcomes) {
		for i, ok := range c.recorded {
			if !ok {
				return nil, fmt.Errorf("%w: %d of %d paths have no outcome, first is %s",
					ErrIncompleteResults, len(c.outcomes)-c.count, len(c.outcomes), c.paths[i])
			}
		}
	}
	c.frozen = true
	return types.NewResultSet(c.settings, c.outcomes)
}
