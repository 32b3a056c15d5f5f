// Package searchtree implements a generic two-dimensional search tree (a
// quadtree) over an opaque region type. The tree never computes geometry
// itself: a Predicate supplies every region construction, membership, and
// overlap test, so any geometry with a four-way decomposition can back it.
package searchtree

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// RegionCode identifies one quadrant of a subdivided node. The codes are
// disjoint bit flags so a single mask can tag a value as sitting in
// several quadrants at once.
type RegionCode uint8

const (
	UpperLeft RegionCode = 1 << iota
	UpperRight
	LowerLeft
	LowerRight
)

// allRegions is the mask with every quadrant set.
const allRegions = UpperLeft | UpperRight | LowerLeft | LowerRight

// regionCodes fixes the order child slots are stored and visited in.
var regionCodes = [4]RegionCode{UpperLeft, UpperRight, LowerLeft, LowerRight}

func (c RegionCode) String() string {
	if c == 0 {
		return "None"
	}
	parts := make([]string, 0, 4)
	if c&UpperLeft != 0 {
		parts = append(parts, "UpperLeft")
	}
	if c&UpperRight != 0 {
		parts = append(parts, "UpperRight")
	}
	if c&LowerLeft != 0 {
		parts = append(parts, "LowerLeft")
	}
	if c&LowerRight != 0 {
		parts = append(parts, "LowerRight")
	}
	return strings.Join(parts, "|")
}

// Quadrants carries the four child region descriptors a Predicate
// produces when a node subdivides.
type Quadrants[R any] struct {
	UpperLeft  R
	UpperRight R
	LowerLeft  R
	LowerRight R
}

// Region returns the descriptor for a single quadrant code.
func (q Quadrants[R]) Region(code RegionCode) R {
	switch code {
	case UpperLeft:
		return q.UpperLeft
	case UpperRight:
		return q.UpperRight
	case LowerLeft:
		return q.LowerLeft
	case LowerRight:
		return q.LowerRight
	default:
		panic("invalid region code")
	}
}

// Predicate supplies all geometry the tree needs. Implementations must be
// deterministic functions of their inputs with no hidden state.
//
// The tree expects, but does not verify, that a value accepted by a
// region also satisfies at least one of the quadrants built from that
// region. Values violating this are kept as orphans on the nearest node
// rather than dropped.
type Predicate[V comparable, R any] interface {
	// NilRegion returns the empty region used to initialize nodes that
	// hold no data yet.
	NilRegion() R
	// RegionFromData returns a region covering every value in values. The
	// tree calls it for the root only, with its full membership.
	RegionFromData(values []V) R
	// QuadrantsFromData splits parent into four child regions. The
	// returned descriptors are fresh values; the tree assigns them to the
	// child nodes itself.
	QuadrantsFromData(parent R, values []V) Quadrants[R]
	// Satisfies reports whether v belongs inside region. It routes
	// insertions and prunes stale members during a rebalance.
	Satisfies(region R, v V) bool
	// Overlaps reports whether two regions share extent. It must be
	// symmetric.
	Overlaps(a, b R) bool
}

// Tree indexes a set of values by region and answers overlap queries
// through a caller-supplied Predicate. It has no internal locking: at
// most one goroutine may be inside any method at a time. See Rebalancer
// for running the rebalance pass off the critical path.
type Tree[V comparable, R any] struct {
	root *node[V, R]
	pred Predicate[V, R]
}

// New returns an empty tree using pred for all geometry. The predicate
// may be nil; Add is a no-op until one is set.
func New[V comparable, R any](pred Predicate[V, R]) *Tree[V, R] {
	return &Tree[V, R]{pred: pred}
}

// SetPredicate replaces the active predicate and propagates it to every
// existing node. Regions computed by the old predicate are kept as-is;
// call Rebalance afterwards if the geometry semantics changed.
func (t *Tree[V, R]) SetPredicate(pred Predicate[V, R]) {
	t.pred = pred
	if t.root != nil {
		t.root.setPredicate(pred)
	}
}

// Add indexes v, creating the root lazily on the first call. Add never
// restructures: v lands in every child region it satisfies, or stays as
// an orphan on the deepest node reached, until the next Rebalance.
func (t *Tree[V, R]) Add(v V) {
	if t.pred == nil {
		return
	}
	if t.root == nil {
		t.root = newNode[V, R](t.pred)
	}
	t.root.add(v)
}

// Remove drops v from every node holding it. Removing a value that was
// never added is a no-op.
func (t *Tree[V, R]) Remove(v V) {
	if t.root == nil {
		return
	}
	t.root.remove(v)
}

// Clear drops every value and child node. The tree stays usable.
func (t *Tree[V, R]) Clear() {
	if t.root != nil {
		t.root.clear()
	}
}

// NearbyValues returns every value stored in a node whose region
// overlaps query, de-duplicated, in no particular order. The result can
// be a superset of the values whose own extent overlaps query: whole
// node sets are returned, and regions are only as current as the last
// Rebalance.
func (t *Tree[V, R]) NearbyValues(query R) []V {
	if t.root == nil || t.pred == nil {
		return nil
	}
	found := make(map[V]struct{})
	t.root.nearbyValues(query, found)
	return setToSlice(found)
}

// Rebalance rebuilds the root region from the current membership and
// restructures every node under it. It is the only operation that
// changes topology.
//
// Values the fresh root region rejects would be lost to the prune pass;
// they are kept on the root as orphans instead, and the retention is
// logged.
func (t *Tree[V, R]) Rebalance() {
	if t.root == nil || t.pred == nil {
		return
	}
	t.root.buildRootRegion()

	var strays []V
	all := make(map[V]struct{})
	t.root.collect(all)
	for v := range all {
		if !t.pred.Satisfies(t.root.region, v) {
			strays = append(strays, v)
		}
	}

	t.root.rebalance()

	if len(strays) > 0 {
		log.Warnln("Retaining", len(strays), "values outside the root region")
		for _, v := range strays {
			t.root.add(v)
		}
	}
}

// Clone returns a deep copy of the tree's nodes and values. The clones
// share only the predicate. Region descriptors copy by assignment, so a
// predicate using pointer-backed regions shares those too.
func (t *Tree[V, R]) Clone() *Tree[V, R] {
	clone := &Tree[V, R]{pred: t.pred}
	if t.root != nil {
		clone.root = t.root.clone()
	}
	return clone
}

// Len reports the number of distinct values indexed. It walks the whole
// tree.
func (t *Tree[V, R]) Len() int {
	if t.root == nil {
		return 0
	}
	all := make(map[V]struct{})
	t.root.collect(all)
	return len(all)
}

// Values returns the distinct indexed values in no particular order.
func (t *Tree[V, R]) Values() []V {
	if t.root == nil {
		return nil
	}
	all := make(map[V]struct{})
	t.root.collect(all)
	return setToSlice(all)
}
