package types

import "fmt"

// ResultSet is the frozen, discovery-ordered collection of outcomes for a run.
// It is read-only once built and can be shared between goroutines.
type ResultSet struct {
	settings HashSettings
	entries  []Entry
	index    map[string]int
}

// NewResultSet freezes outcomes, given in discovery order, into a result set
func NewResultSet(settings HashSettings, outcomes []Outcome) (*ResultSet, error) {
	rs := &ResultSet{
		settings: settings,
		entries:  make([]Entry, len(outcomes)),
		index:    make(map[string]int, len(outcomes)),
	}
	for i, o := range outcomes {
		if _, dup := rs.index[o.Path]; dup {
			return nil, fmt.Errorf("duplicate outcome for %s", o.Path)
		}
		rs.index[o.Path] = i
		rs.entries[i] = Entry{Outcome: o}
	}
	return rs, nil
}

// Settings returns the hash settings the result set was produced with
func (rs *ResultSet) Settings() HashSettings {
	return rs.settings
}

// Len returns the number of entries
func (rs *ResultSet) Len() int {
	return len(rs.entries)
}

// At returns the entry at position i in discovery order
func (rs *ResultSet) At(i int) Entry {
	return rs.entries[i]
}

// Entries returns the entries in discovery order.
// The returned slice is a copy; edge slices are shared and must not be modified.
func (rs *ResultSet) Entries() []Entry {
	out := make([]Entry, len(rs.entries))
	copy(out, rs.entries)
	return out
}

// Lookup finds the entry for a path
func (rs *ResultSet) Lookup(path string) (Entry, bool) {
	i, ok := rs.index[path]
	if !ok {
		return Entry{}, false
	}
	return rs.entries[i], true
}

// Successes returns the positions of entries that carry a fingerprint
func (rs *ResultSet) Successes() []int {
	var idx []int
	for i, e := range rs.entries {
		if e.OK() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Failures returns the number of entries that failed to hash
func (rs *ResultSet) Failures() int {
	n := 0
	for _, e := range rs.entries {
		if !e.OK() {
			n++
		}
	}
	return n
}

// WithEdges returns a copy of the result set where entry i carries edges[i].
// The receiver is left untouched.
func (rs *ResultSet) WithEdges(edges [][]Edge) (*ResultSet, error) {
	if len(edges) != len(rs.entries) {
		return nil, fmt.Errorf("got edges for %d entries, result set has %d", len(edges), len(rs.entries))
	}

	out := &ResultSet{
		settings: rs.settings,
		entries:  make([]Entry, len(rs.entries)),
		index:    rs.index,
	}
	for i, e := range rs.entries {
		if !e.OK() && len(edges[i]) > 0 {
			return nil, fmt.Errorf("failed image %s cannot carry similarity edges", e.Path)
		}
		out.entries[i] = Entry{Outcome: e.Outcome, Edges: edges[i]}
	}
	return out, nil
}
