package searchtree

// minDataSize is the membership size at or below which a node never
// needs children.
const minDataSize = 3

// node is the recursive engine behind Tree. A node either holds values
// itself or routes them into up to four children; values satisfying no
// child region stay in the local set as orphans.
type node[V comparable, R any] struct {
	pred     Predicate[V, R]
	region   R
	data     map[V]struct{}
	children [4]*node[V, R]
}

func newNode[V comparable, R any](pred Predicate[V, R]) *node[V, R] {
	return &node[V, R]{
		pred:   pred,
		region: pred.NilRegion(),
		data:   make(map[V]struct{}),
	}
}

func (n *node[V, R]) hasChildren() bool {
	for _, c := range n.children {
		if c != nil {
			return true
		}
	}
	return false
}

// add routes v into every child whose region accepts it, so a value
// spanning a seam legitimately lives in more than one quadrant. With no
// children, or when no child accepts, v lands in the local set.
func (n *node[V, R]) add(v V) {
	if !n.hasChildren() {
		n.data[v] = struct{}{}
		return
	}

	routed := false
	for _, c := range n.children {
		if c != nil && n.pred.Satisfies(c.region, v) {
			c.add(v)
			routed = true
		}
	}

	if !routed {
		n.data[v] = struct{}{}
	}
}

// remove erases v everywhere below this node. Every child is visited:
// routing by region would miss copies left behind by stale geometry.
func (n *node[V, R]) remove(v V) {
	for _, c := range n.children {
		if c != nil {
			c.remove(v)
		}
	}
	delete(n.data, v)
}

func (n *node[V, R]) clear() {
	n.deleteChildren()
	n.data = make(map[V]struct{})
}

func (n *node[V, R]) deleteChildren() {
	for i := range n.children {
		n.children[i] = nil
	}
}

func (n *node[V, R]) setPredicate(pred Predicate[V, R]) {
	n.walk(func(c *node[V, R]) {
		c.pred = pred
	})
}

// walk visits n and every node below it, parents first.
func (n *node[V, R]) walk(fn func(*node[V, R])) {
	fn(n)
	for _, c := range n.children {
		if c != nil {
			c.walk(fn)
		}
	}
}

// collect accumulates the transitive membership under n into out.
func (n *node[V, R]) collect(out map[V]struct{}) {
	for _, c := range n.children {
		if c != nil {
			c.collect(out)
		}
	}
	for v := range n.data {
		out[v] = struct{}{}
	}
}

// nearbyValues gathers into out every local set whose node region
// overlaps query. Children are always visited; a child region need not
// be contained in its parent's, and orphans sit above them.
func (n *node[V, R]) nearbyValues(query R, out map[V]struct{}) {
	for _, c := range n.children {
		if c != nil {
			c.nearbyValues(query, out)
		}
	}
	if n.pred.Overlaps(n.region, query) {
		for v := range n.data {
			out[v] = struct{}{}
		}
	}
}

// buildRootRegion recomputes this node's region from its full transitive
// membership. Only the root needs it, ahead of a rebalance pass.
func (n *node[V, R]) buildRootRegion() {
	all := make(map[V]struct{})
	n.collect(all)
	n.region = n.pred.RegionFromData(setToSlice(all))
}

// rebalance restructures the subtree under n against its current region,
// top down: prune values the region no longer accepts, collapse to a
// leaf when the remainder is small or the quadrants do not discriminate
// it, otherwise refresh the four children and push every value back down
// before rebalancing each child in turn.
func (n *node[V, R]) rebalance() {
	all := make(map[V]struct{})
	n.collect(all)

	// Values falling outside this node's region were re-homed by the
	// parent's re-add pass; the copies here are stale.
	for v := range all {
		if !n.pred.Satisfies(n.region, v) {
			delete(all, v)
		}
	}

	if len(all) <= minDataSize {
		n.deleteChildren()
		n.data = all
		return
	}

	values := setToSlice(all)
	quads := n.pred.QuadrantsFromData(n.region, values)

	if !n.shouldSubdivide(quads, values) {
		n.deleteChildren()
		n.data = all
		return
	}

	for i, code := range regionCodes {
		if n.children[i] == nil {
			n.children[i] = newNode[V, R](n.pred)
		}
		n.children[i].region = quads.Region(code)
	}

	// Children keep their old entries across the re-add; each child's own
	// rebalance prunes the ones its fresh region rejects.
	n.data = make(map[V]struct{})
	for _, v := range values {
		n.add(v)
	}

	for _, c := range n.children {
		c.rebalance()
	}
}

// shouldSubdivide reports whether the candidate quadrants discriminate
// the data. When every value satisfies all four quadrants the children
// would hold identical sets, so the node stays a leaf no matter how
// large the set is.
func (n *node[V, R]) shouldSubdivide(quads Quadrants[R], values []V) bool {
	for _, v := range values {
		var mask RegionCode
		for _, code := range regionCodes {
			if n.pred.Satisfies(quads.Region(code), v) {
				mask |= code
			}
		}
		if mask != allRegions {
			return true
		}
	}
	return false
}

// clone deep-copies the subtree. Regions copy by assignment and the
// predicate is shared.
func (n *node[V, R]) clone() *node[V, R] {
	out := &node[V, R]{
		pred:   n.pred,
		region: n.region,
		data:   make(map[V]struct{}, len(n.data)),
	}
	for v := range n.data {
		out.data[v] = struct{}{}
	}
	for i, c := range n.children {
		if c != nil {
			out.children[i] = c.clone()
		}
	}
	return out
}

func setToSlice[V comparable](set map[V]struct{}) []V {
	out := make([]V, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
