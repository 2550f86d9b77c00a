package similarity

import (
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"strconv"
	"testing"

	"imgdup/testsupport"
	"imgdup/types"
)

var settings64 = types.HashSettings{Resolution: 8, Mode: types.ModeAccurate}

func buildResultSet(t *testing.T, outcomes ...types.Outcome) *types.ResultSet {
	t.Helper()
	rs, err := types.NewResultSet(settings64, outcomes)
	if err != nil {
		t.Fatalf("NewResultSet: %v", err)
	}
	return rs
}

func success(t *testing.T, path string, bits uint64) types.Outcome {
	t.Helper()
	return types.Success(path, types.ImageInfo{Fingerprint: testsupport.Fingerprint64(t, bits)})
}

func randomResultSet(t *testing.T, n int, seed uint64) *types.ResultSet {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 1))
	base := rng.Uint64()
	outcomes := make([]types.Outcome, 0, n)
	for i := 0; i < n; i++ {
		path := "img" + strconv.Itoa(i) + ".jpg"
		if i%11 == 5 {
			outcomes = append(outcomes, types.Failure(path, errors.New("unreadable")))
			continue
		}
		// flip a handful of bits so plenty of pairs land near each other
		bits := base
		for f := rng.IntN(12); f > 0; f-- {
			bits ^= 1 << uint(rng.IntN(64))
		}
		outcomes = append(outcomes, success(t, path, bits))
	}
	return buildResultSet(t, outcomes...)
}

func group(t *testing.T, rs *types.ResultSet, threshold float64, workers int) *types.ResultSet {
	t.Helper()
	out, err := Group(rs, threshold, Options{Workers: workers})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	return out
}

func TestGroupDuplicatePairAndDistantImage(t *testing.T) {
	rs := buildResultSet(t,
		success(t, "A.jpg", 0),
		success(t, "B.jpg", 0),
		success(t, "C.jpg", 0x00000000FFFFFFFF),
	)

	out := group(t, rs, 0.1, 4)

	a, _ := out.Lookup("A.jpg")
	b, _ := out.Lookup("B.jpg")
	c, _ := out.Lookup("C.jpg")

	wantA := []types.Edge{{Path: "B.jpg", Distance: 0, Difference: 0}}
	wantB := []types.Edge{{Path: "A.jpg", Distance: 0, Difference: 0}}
	if !reflect.DeepEqual(a.Edges, wantA) {
		t.Errorf("A edges = %+v, want %+v", a.Edges, wantA)
	}
	if !reflect.DeepEqual(b.Edges, wantB) {
		t.Errorf("B edges = %+v, want %+v", b.Edges, wantB)
	}
	if c.HasSimilars() {
		t.Errorf("C should have no similars, got %+v", c.Edges)
	}

	wide := group(t, rs, 0.5, 1)
	c, _ = wide.Lookup("C.jpg")
	if len(c.Edges) != 2 || c.Edges[0].Difference != 0.5 || c.Edges[0].Path != "A.jpg" {
		t.Errorf("C edges at 0.5 = %+v, want A and B at 0.5", c.Edges)
	}
}

func TestGroupEdgesAreSymmetric(t *testing.T) {
	rs := randomResultSet(t, 60, 42)
	out := group(t, rs, 0.1, 3)

	for _, entry := range out.Entries() {
		for _, edge := range entry.Edges {
			other, ok := out.Lookup(edge.Path)
			if !ok {
				t.Fatalf("edge to unknown path %s", edge.Path)
			}
			found := false
			for _, back := range other.Edges {
				if back.Path == entry.Path {
					found = true
					if back.Difference != edge.Difference || back.Distance != edge.Distance {
						t.Errorf("%s<->%s: %v vs %v", entry.Path, edge.Path, edge, back)
					}
				}
			}
			if !found {
				t.Errorf("%s lists %s but not the reverse", entry.Path, edge.Path)
			}
		}
	}
}

func TestGroupEdgesSortedByDifferenceThenPath(t *testing.T) {
	out := group(t, randomResultSet(t, 40, 7), 0.2, 2)
	for _, entry := range out.Entries() {
		for i := 1; i < len(entry.Edges); i++ {
			prev, cur := entry.Edges[i-1], entry.Edges[i]
			if prev.Difference > cur.Difference ||
				(prev.Difference == cur.Difference && prev.Path >= cur.Path) {
				t.Fatalf("%s edges out of order: %+v", entry.Path, entry.Edges)
			}
		}
	}
}

func TestGroupIndependentOfWorkerCount(t *testing.T) {
	rs := randomResultSet(t, 80, 3)
	for _, threshold := range []float64{0, 0.05, 0.15, 1} {
		want := group(t, rs, threshold, 1).Entries()
		for _, workers := range []int{2, 8, 13, 200} {
			got := group(t, rs, threshold, workers).Entries()
			if !reflect.DeepEqual(got, want) {
				t.Errorf("threshold %v: %d workers differ from 1 worker", threshold, workers)
			}
		}
	}
}

func TestGroupThresholdIsInclusive(t *testing.T) {
	rs := buildResultSet(t,
		success(t, "a.png", 0),
		success(t, "b.png", 0b111),
	)
	exact := 3.0 / 64.0

	if out := group(t, rs, exact, 1); !out.At(0).HasSimilars() {
		t.Errorf("distance exactly at threshold should be included")
	}
	below := math.Nextafter(exact, 0)
	if out := group(t, rs, below, 1); out.At(0).HasSimilars() {
		t.Errorf("distance just above threshold should be excluded")
	}
}

func TestGroupIsPureAndIdempotent(t *testing.T) {
	rs := randomResultSet(t, 30, 11)
	before := rs.Entries()

	first := group(t, rs, 0.1, 4)
	second := group(t, rs, 0.1, 4)

	if !reflect.DeepEqual(first.Entries(), second.Entries()) {
		t.Errorf("repeated grouping differs")
	}
	if !reflect.DeepEqual(rs.Entries(), before) {
		t.Errorf("input result set was modified")
	}
	for _, entry := range rs.Entries() {
		if entry.HasSimilars() {
			t.Fatalf("input entry %s gained edges", entry.Path)
		}
	}
}

func TestExactBucketingMatchesPairwise(t *testing.T) {
	rs := randomResultSet(t, 70, 5)
	var fps []types.Fingerprint
	for _, i := range rs.Successes() {
		fps = append(fps, rs.At(i).Info.Fingerprint)
	}

	bucketed := exactPairs(fps)
	compared, err := comparePairs(fps, 0, 1)
	if err != nil {
		t.Fatalf("comparePairs: %v", err)
	}

	set := func(pairs []pair) map[[2]int]bool {
		m := make(map[[2]int]bool, len(pairs))
		for _, p := range pairs {
			m[[2]int{p.a, p.b}] = true
		}
		return m
	}
	if !reflect.DeepEqual(set(bucketed), set(compared)) {
		t.Errorf("bucketing found %d pairs, pairwise found %d", len(bucketed), len(compared))
	}
}

func TestGroupFailuresCarryNoEdges(t *testing.T) {
	rs := buildResultSet(t,
		success(t, "a.jpg", 1),
		types.Failure("broken.jpg", errors.New("cannot decode")),
		success(t, "b.jpg", 1),
	)
	out := group(t, rs, 1, 2)

	broken, _ := out.Lookup("broken.jpg")
	if broken.HasSimilars() {
		t.Errorf("failure has edges: %+v", broken.Edges)
	}
	for _, entry := range out.Entries() {
		for _, edge := range entry.Edges {
			if edge.Path == "broken.jpg" {
				t.Errorf("%s links to a failure", entry.Path)
			}
		}
	}
	if out.Len() != 3 || out.Failures() != 1 {
		t.Errorf("failures must be retained, got len=%d failures=%d", out.Len(), out.Failures())
	}
}

func TestGroupThresholdExtremes(t *testing.T) {
	rs := randomResultSet(t, 20, 9)
	successes := len(rs.Successes())

	for _, entry := range group(t, rs, -0.5, 4).Entries() {
		if entry.HasSimilars() {
			t.Fatalf("negative threshold produced edges for %s", entry.Path)
		}
	}
	for _, entry := range group(t, rs, 1.5, 4).Entries() {
		if entry.OK() && len(entry.Edges) != successes-1 {
			t.Fatalf("%s has %d edges, want %d", entry.Path, len(entry.Edges), successes-1)
		}
	}
}

func TestGroupRejectsInvalidInput(t *testing.T) {
	wide, err := types.NewFingerprint([]uint64{0, 0}, 128)
	if err != nil {
		t.Fatalf("NewFingerprint: %v", err)
	}
	rs := buildResultSet(t,
		success(t, "a.jpg", 0),
		types.Success("b.jpg", types.ImageInfo{Fingerprint: wide}),
	)
	if _, err := Group(rs, 0.1, Options{}); !errors.Is(err, ErrMixedWidths) {
		t.Errorf("mixed widths: got %v, want ErrMixedWidths", err)
	}
	if _, err := Group(randomResultSet(t, 3, 1), math.NaN(), Options{}); err == nil {
		t.Errorf("NaN threshold should be rejected")
	}
	if _, err := Group(nil, 0.1, Options{}); err == nil {
		t.Errorf("nil result set should be rejected")
	}
}

func TestMaxAdmissibleDistance(t *testing.T) {
	tests := []struct {
		threshold float64
		width     int
		want      int
	}{
		{0, 64, 0},
		{0.03, 64, 1},
		{3.0 / 64.0, 64, 3},
		{0.1, 64, 6},
		{0.5, 64, 32},
		{1, 64, 64},
		{0.3, 10, 3},
	}
	for _, tt := range tests {
		if got := maxAdmissibleDistance(tt.threshold, tt.width); got != tt.want {
			t.Errorf("maxAdmissibleDistance(%v, %d) = %d, want %d", tt.threshold, tt.width, got, tt.want)
		}
	}
}
