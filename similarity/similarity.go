// Package similarity links every pair of fingerprinted images whose
// normalised Hamming distance is within a threshold.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"imgdup/types"
)

// ErrMixedWidths is returned when successful outcomes carry fingerprints of different widths
var ErrMixedWidths = errors.New("fingerprints of different widths")

// Options tunes how the pairwise comparison is spread out
type Options struct {
	// Workers is the number of goroutines comparing pairs; values below 1 mean 1
	Workers int
}

// pair is one admitted comparison, by position in the fingerprint slice
type pair struct {
	a, b     int
	distance int
}

// Group returns a copy of rs where every successful entry lists the other
// entries within threshold, sorted by ascending difference then path.
// The threshold is inclusive. Failures never get edges. rs is not modified
// and the result does not depend on opts.Workers.
func Group(rs *types.ResultSet, threshold float64, opts Options) (*types.ResultSet, error) {
	if rs == nil {
		return nil, errors.New("nil result set")
	}
	if math.IsNaN(threshold) {
		return nil, errors.New("threshold is NaN")
	}

	positions := rs.Successes()
	fingerprints := make([]types.Fingerprint, len(positions))
	paths := make([]string, len(positions))
	for k, i := range positions {
		entry := rs.At(i)
		fingerprints[k] = entry.Info.Fingerprint
		paths[k] = entry.Path
		if fingerprints[k].Width() != fingerprints[0].Width() {
			return nil, fmt.Errorf("%w: %s has %d bits, %s has %d", ErrMixedWidths,
				paths[0], fingerprints[0].Width(), paths[k], fingerprints[k].Width())
		}
	}

	edges := make([][]types.Edge, rs.Len())
	if threshold < 0 || len(fingerprints) < 2 {
		return rs.WithEdges(edges)
	}

	width := fingerprints[0].Width()
	if width == 0 {
		return nil, fmt.Errorf("%s has an empty fingerprint", paths[0])
	}
	maxDistance := maxAdmissibleDistance(threshold, width)

	var (
		pairs []pair
		err   error
	)
	if maxDistance == 0 {
		pairs = exactPairs(fingerprints)
	} else {
		pairs, err = comparePairs(fingerprints, maxDistance, opts.Workers)
		if err != nil {
			return nil, err
		}
	}

	for _, p := range pairs {
		difference := float64(p.distance) / float64(width)
		ia, ib := positions[p.a], positions[p.b]
		edges[ia] = append(edges[ia], types.Edge{Path: paths[p.b], Distance: p.distance, Difference: difference})
		edges[ib] = append(edges[ib], types.Edge{Path: paths[p.a], Distance: p.distance, Difference: difference})
	}
	for _, list := range edges {
		sortEdges(list)
	}

	return rs.WithEdges(edges)
}

// maxAdmissibleDistance returns the largest distance d with d/width <= threshold,
// using the same division as types.Fingerprint.Difference
func maxAdmissibleDistance(threshold float64, width int) int {
	if threshold >= 1 {
		return width
	}
	d := int(math.Floor(threshold * float64(width)))
	for d < width && float64(d+1)/float64(width) <= threshold {
		d++
	}
	for d > 0 && float64(d)/float64(width) > threshold {
		d--
	}
	return d
}

// exactPairs buckets bit-identical fingerprints and pairs up every bucket
func exactPairs(fingerprints []types.Fingerprint) []pair {
	buckets := make(map[string][]int)
	var order []string
	for k, fp := range fingerprints {
		key := fp.Key()
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], k)
	}

	var pairs []pair
	for _, key := range order {
		members := buckets[key]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				pairs = append(pairs, pair{a: members[i], b: members[j]})
			}
		}
	}
	return pairs
}

// aggregator merges the pairs found by each worker
type aggregator struct {
	mu    sync.Mutex
	pairs []pair
}

func (a *aggregator) add(pairs []pair) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pairs = append(a.pairs, pairs...)
}

// comparePairs checks all unordered pairs, striding rows across workers
func comparePairs(fingerprints []types.Fingerprint, maxDistance, workers int) ([]pair, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(fingerprints) {
		workers = len(fingerprints)
	}

	agg := &aggregator{}
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			var local []pair
			for i := w; i < len(fingerprints); i += workers {
				for j := i + 1; j < len(fingerprints); j++ {
					d, err := fingerprints[i].Distance(fingerprints[j])
					if err != nil {
						return err
					}
					if d <= maxDistance {
						local = append(local, pair{a: i, b: j, distance: d})
					}
				}
			}
			agg.add(local)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return agg.pairs, nil
}

func sortEdges(edges []types.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Difference != edges[j].Difference {
			return edges[i].Difference < edges[j].Difference
		}
		return edges[i].Path < edges[j].Path
	})
}
