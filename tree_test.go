package searchtree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBox struct {
	rect Rect
}

func (b *testBox) Bounds() Rect {
	return b.rect
}

func box(x, y, w, h float64) *testBox {
	return &testBox{rect: Rect{X: x, Y: y, Width: w, Height: h}}
}

func newRectTree() *Tree[*testBox, Rect] {
	return New[*testBox, Rect](RectPredicate[*testBox]{})
}

func TestAddThenRemoveRestoresQueries(t *testing.T) {
	tr := newRectTree()
	for _, b := range []*testBox{box(10, 10, 5, 5), box(70, 10, 5, 5), box(10, 70, 5, 5), box(70, 70, 5, 5)} {
		tr.Add(b)
	}
	tr.Rebalance()

	probe := Rect{X: 60, Y: 0, Width: 40, Height: 40}
	before := tr.NearbyValues(probe)

	extra := box(75, 15, 4, 4)
	tr.Add(extra)
	tr.Rebalance()
	require.Contains(t, tr.NearbyValues(probe), extra)

	tr.Remove(extra)
	tr.Rebalance()
	assert.ElementsMatch(t, before, tr.NearbyValues(probe))
}

func TestRemoveTakesEffectWithoutRebalance(t *testing.T) {
	tr := newRectTree()
	stays := box(10, 10, 5, 5)
	goes := box(80, 80, 5, 5)
	tr.Add(stays)
	tr.Add(goes)
	tr.Rebalance()

	tr.Remove(goes)

	got := tr.NearbyValues(Rect{X: 0, Y: 0, Width: 100, Height: 100})
	assert.Contains(t, got, stays)
	assert.NotContains(t, got, goes)
}

func TestNearbyValuesDeduplicates(t *testing.T) {
	tr := newRectTree()

	// straddler spans the center seam and ends up in all four quadrants
	straddler := box(40, 40, 20, 20)
	corners := []*testBox{box(0, 0, 10, 10), box(90, 0, 10, 10), box(0, 90, 10, 10), box(90, 90, 10, 10)}
	tr.Add(straddler)
	for _, b := range corners {
		tr.Add(b)
	}
	tr.Rebalance()

	got := tr.NearbyValues(Rect{X: 0, Y: 0, Width: 100, Height: 100})
	require.Len(t, got, 5)
	assert.ElementsMatch(t, append(corners, straddler), got)
}

func TestTilingTheRootRegionFindsEverything(t *testing.T) {
	tr := newRectTree()
	rng := rand.New(rand.NewSource(42))

	boxes := make([]*testBox, 60)
	for i := range boxes {
		boxes[i] = box(rng.Float64()*95, rng.Float64()*95, 2+rng.Float64()*8, 2+rng.Float64()*8)
		tr.Add(boxes[i])
	}
	tr.Rebalance()

	quads := RectPredicate[*testBox]{}.QuadrantsFromData(tr.root.region, nil)
	found := make(map[*testBox]struct{})
	for _, code := range regionCodes {
		for _, v := range tr.NearbyValues(quads.Region(code)) {
			found[v] = struct{}{}
		}
	}
	assert.Len(t, found, len(boxes))
}

func TestEmptyTreeOperations(t *testing.T) {
	tr := newRectTree()

	assert.Empty(t, tr.NearbyValues(Rect{X: 0, Y: 0, Width: 100, Height: 100}))
	tr.Remove(box(0, 0, 1, 1))
	tr.Rebalance()
	tr.Clear()
	assert.Zero(t, tr.Len())
	assert.Empty(t, tr.Values())
}

func TestAddWithoutPredicateIsNoop(t *testing.T) {
	tr := New[*testBox, Rect](nil)
	b := box(10, 10, 5, 5)

	tr.Add(b)
	assert.Zero(t, tr.Len())

	tr.SetPredicate(RectPredicate[*testBox]{})
	tr.Add(b)
	tr.Rebalance()
	assert.Equal(t, 1, tr.Len())
	assert.Contains(t, tr.NearbyValues(Rect{X: 0, Y: 0, Width: 20, Height: 20}), b)
}

func TestClearKeepsTreeUsable(t *testing.T) {
	tr := newRectTree()
	for i := 0; i < 5; i++ {
		tr.Add(box(float64(i)*20, float64(i)*20, 5, 5))
	}
	tr.Rebalance()
	require.Equal(t, 5, tr.Len())

	tr.Clear()
	assert.Zero(t, tr.Len())
	assert.Empty(t, tr.NearbyValues(Rect{X: 0, Y: 0, Width: 100, Height: 100}))

	b := box(30, 30, 5, 5)
	tr.Add(b)
	tr.Rebalance()
	assert.Contains(t, tr.NearbyValues(Rect{X: 25, Y: 25, Width: 15, Height: 15}), b)
}

func TestCloneIsIndependent(t *testing.T) {
	tr := newRectTree()
	boxes := []*testBox{
		box(5, 5, 4, 4), box(80, 5, 4, 4), box(5, 80, 4, 4),
		box(80, 80, 4, 4), box(40, 40, 4, 4), box(60, 20, 4, 4),
	}
	for _, b := range boxes {
		tr.Add(b)
	}
	tr.Rebalance()

	clone := tr.Clone()
	require.ElementsMatch(t, tr.Values(), clone.Values())

	extra := box(50, 50, 4, 4)
	tr.Add(extra)
	assert.NotContains(t, clone.Values(), extra)

	clone.Remove(boxes[0])
	assert.Contains(t, tr.Values(), boxes[0])
	assert.NotContains(t, clone.Values(), boxes[0])
}

// TestNearbyValuesMatchesLoop cross-checks the tree against a brute
// force scan while the boxes drift between rebalances. Node granularity
// makes the tree a superset, so the check is containment, not equality.
func TestNearbyValuesMatchesLoop(t *testing.T) {
	const count = 400
	rng := rand.New(rand.NewSource(1313131313))

	tr := newRectTree()
	boxes := make([]*testBox, count)
	for i := range boxes {
		boxes[i] = box(rng.Float64()*980, rng.Float64()*980, 4+rng.Float64()*16, 4+rng.Float64()*16)
		tr.Add(boxes[i])
	}

	for round := 0; round < 5; round++ {
		tr.Rebalance()

		for probe := 0; probe < 20; probe++ {
			query := Rect{X: rng.Float64() * 950, Y: rng.Float64() * 950, Width: 50, Height: 50}
			got := tr.NearbyValues(query)

			gotSet := make(map[*testBox]struct{}, len(got))
			for _, v := range got {
				gotSet[v] = struct{}{}
			}
			require.Len(t, gotSet, len(got), "duplicate values in query result")

			for _, b := range boxes {
				if b.rect.Intersects(query) {
					require.Contains(t, gotSet, b, "round %d missed a box overlapping %+v", round, query)
				}
			}
		}

		for _, b := range boxes {
			b.rect.X += (rng.Float64() - 0.5) * 40
			b.rect.Y += (rng.Float64() - 0.5) * 40
		}
	}
}

func generateTree(count int) *Tree[*testBox, Rect] {
	rng := rand.New(rand.NewSource(1313131313))
	tr := newRectTree()
	for n := 0; n < count; n++ {
		tr.Add(box(rng.Float64()*10000, rng.Float64()*10000, 2+rng.Float64()*6, 2+rng.Float64()*6))
	}
	tr.Rebalance()
	return tr
}

func treeQuery(b *testing.B, count int) {
	tr := generateTree(count)
	query := Rect{X: 4500, Y: 4500, Width: 200, Height: 200}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		tr.NearbyValues(query)
	}
}

func BenchmarkNearbyValuesTree_1000(b *testing.B)   { treeQuery(b, 1000) }
func BenchmarkNearbyValuesTree_10000(b *testing.B)  { treeQuery(b, 10000) }
func BenchmarkNearbyValuesTree_100000(b *testing.B) { treeQuery(b, 100000) }

func loopQuery(b *testing.B, count int) {
	rng := rand.New(rand.NewSource(1313131313))
	boxes := make([]*testBox, count)
	for n := 0; n < count; n++ {
		boxes[n] = box(rng.Float64()*10000, rng.Float64()*10000, 2+rng.Float64()*6, 2+rng.Float64()*6)
	}
	query := Rect{X: 4500, Y: 4500, Width: 200, Height: 200}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		hits := make([]*testBox, 0)
		for _, bx := range boxes {
			if bx.rect.Intersects(query) {
				hits = append(hits, bx)
			}
		}
		_ = hits
	}
}

func BenchmarkNearbyValuesLoop_1000(b *testing.B)   { loopQuery(b, 1000) }
func BenchmarkNearbyValuesLoop_10000(b *testing.B)  { loopQuery(b, 10000) }
func BenchmarkNearbyValuesLoop_100000(b *testing.B) { loopQuery(b, 100000) }

func rebalanceBench(b *testing.B, count int) {
	tr := generateTree(count)

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		tr.Rebalance()
	}
}

func BenchmarkRebalance_1000(b *testing.B)  { rebalanceBench(b, 1000) }
func BenchmarkRebalance_10000(b *testing.B) { rebalanceBench(b, 10000) }
