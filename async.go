package searchtree

// Rebalancer runs a tree's rebalance pass on its own goroutine so the
// caller can overlap it with work that does not touch the tree. At most
// one pass is in flight; Wait is the barrier the caller must cross
// before the next mutation or query round. There is no cancellation: a
// started pass always runs to completion.
//
// Rebalancer methods must themselves be called from a single goroutine,
// the same one that otherwise mutates and queries the tree.
type Rebalancer[V comparable, R any] struct {
	tree *Tree[V, R]
	done chan struct{}
}

// NewRebalancer returns a Rebalancer driving t.
func NewRebalancer[V comparable, R any](t *Tree[V, R]) *Rebalancer[V, R] {
	return &Rebalancer[V, R]{tree: t}
}

// Start launches a rebalance pass in the background. It is a no-op while
// a previous pass has not been joined by Wait.
func (r *Rebalancer[V, R]) Start() {
	if r.done != nil {
		return
	}
	r.done = make(chan struct{})
	go func(done chan struct{}) {
		r.tree.Rebalance()
		close(done)
	}(r.done)
}

// Wait blocks until the in-flight pass, if any, has finished. After Wait
// returns the tree is safe to mutate and query again.
func (r *Rebalancer[V, R]) Wait() {
	if r.done == nil {
		return
	}
	<-r.done
	r.done = nil
}

// Running reports whether a started pass is still executing.
func (r *Rebalancer[V, R]) Running() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}
