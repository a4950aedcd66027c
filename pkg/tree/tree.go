package tree

import "sync"

// Tree owns the root node and the lock guarding structural mutation.
// It is the single logical structure shared by all search workers.
type Tree[M Move] struct {
	// mu guards the one structural write every node goes through
	// exactly once: populating its edge vector at expansion time.
	// Visit/value/virtual-loss counters are atomic fields on Node
	// and need no lock (mirrors the teacher's all-atomic NodeStats).
	mu   sync.RWMutex
	root *Node[M]
}

// New creates a tree with a fresh, unexpanded root.
func New[M Move]() *Tree[M] {
	return &Tree[M]{root: NewRoot[M]()}
}

// Root returns the current root node.
func (t *Tree[M]) Root() *Node[M] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// SetRoot replaces the root, used for tree reuse (Advance) and reset.
func (t *Tree[M]) SetRoot(root *Node[M]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = root
	root.parent = nil
	root.parentEdge = nil
}

// Advance promotes the child reached via move to be the new root,
// releasing the old root's other children (and their subtrees) for
// garbage collection. Returns false if move does not name a child of
// the current root with a materialized child node.
func (t *Tree[M]) Advance(move M) (*Node[M], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.root.edges {
		e := &t.root.edges[i]
		if e.Move != move {
			continue
		}
		child := e.Child()
		if child == nil {
			return nil, false
		}
		child.parent = nil
		child.parentEdge = nil
		t.root = child
		return child, true
	}
	return nil, false
}

// Extend creates node's child-edge vector from legal moves and their
// priors (already normalized by the caller). It fails with
// ErrAlreadyExtended if some other worker already extended this node,
// leaving the existing edge vector in place.
func (t *Tree[M]) Extend(node *Node[M], moves []M, priors []float32) error {
	if len(moves) != len(priors) {
		panic("tree: Extend called with mismatched moves/priors lengths")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if node.flags.Load()&flagExpanded != 0 {
		return ErrAlreadyExtended
	}

	if len(moves) == 0 {
		// Spec 4.1: a node with no legal moves becomes terminal
		// instead of being extended; callers must branch on the
		// move list themselves and call MarkTerminal in this case.
		panic("tree: Extend called with no legal moves, call MarkTerminal instead")
	}

	edges := make([]Edge[M], len(moves))
	for i := range moves {
		edges[i] = Edge[M]{Move: moves[i], Prior: priors[i]}
	}
	node.edges = edges
	node.flags.Store((node.flags.Load() &^ flagExpanding) | flagExpanded)
	return nil
}

// MarkTerminal fixes node's value and flags it terminal. Terminal
// nodes are never expanded; spec 4.1 "Terminal handling".
func (t *Tree[M]) MarkTerminal(node *Node[M], value Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	node.terminalValue = float32(value)
	node.flags.Store((node.flags.Load() &^ flagExpanding) | flagTerminal)
}

// ClaimExpansion attempts to become the sole expander of node. On
// success the caller must eventually call Extend or MarkTerminal, or
// UnclaimExpansion if the expansion is abandoned.
// until then every other worker reaching node observes a collision.
func (t *Tree[M]) ClaimExpansion(node *Node[M]) bool {
	return node.claimExpansion()
}

// UnclaimExpansion releases a claim taken by ClaimExpansion without
// ever calling Extend or MarkTerminal, used when an iteration aborts
// before it can finish expanding the node (spec §7: an aborted
// iteration must not leave the tree in a state that blocks the
// retry). Node must still be unexpanded and non-terminal.
func (t *Tree[M]) UnclaimExpansion(node *Node[M]) {
	node.unclaimExpansion()
}

// MaterializeChild returns edge's child, creating it (parented to
// parent) on first visit. Safe for concurrent callers; at most one of
// them gets created==true.
func (t *Tree[M]) MaterializeChild(parent *Node[M], edge *Edge[M]) (child *Node[M], created bool) {
	return edge.materialize(parent)
}

// Selector scores one child edge of parent for selection purposes.
// childVisits/childVL/childQ describe the edge's child node (zero
// values if the edge has never been traversed).
type Selector func(parentVisits, parentVL int32, prior float32, childVisits, childVL int32, childQ Result) float64

// BestChild returns the index of the edge maximizing selector, ties
// broken by insertion order (ie. the first maximizer wins). Returns
// -1 if node has no edges.
func BestChild[M Move](node *Node[M], selector Selector, fpuReduction float64) int {
	if len(node.edges) == 0 {
		return -1
	}

	parentVisits, parentVL := node.N(), node.VirtualLoss()
	parentQ := node.Q()

	best := -1
	bestScore := 0.0
	for i := range node.edges {
		e := &node.edges[i]
		var childVisits, childVL int32
		var q Result

		if child := e.Child(); child != nil {
			if child.Terminal() {
				// child.TerminalValue() is fixed in the child's own
				// side-to-move perspective; the parent must score it
				// from its own perspective, one ply flipped.
				q = -child.TerminalValue()
				childVisits = child.N()
				childVL = child.VirtualLoss()
			} else {
				childVisits, childVL = child.N(), child.VirtualLoss()
				if childVisits == 0 {
					q = fpuQ(parentQ, fpuReduction)
				} else {
					// child.Q() is W/N in the child's own perspective
					// (backupPath flips sign every ply); negate it back
					// into the parent's frame before selection, the same
					// frame fpuQ already uses for unvisited children.
					q = -child.Q()
				}
			}
		} else {
			q = fpuQ(parentQ, fpuReduction)
		}

		score := selector(parentVisits, parentVL, e.Prior, childVisits, childVL, q)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

// PUCTSelector builds a Selector implementing spec 4.1's PUCT rule
// with exploration constant cpuct.
func PUCTSelector(cpuct float64) Selector {
	return func(parentVisits, parentVL int32, prior float32, childVisits, childVL int32, childQ Result) float64 {
		return puctScore(parentVisits, parentVL, prior, childVisits, childVL, childQ, cpuct)
	}
}

// VisitCountSelector picks the child with the most real visits
// (N-VL), used for the final best-move choice rather than during
// search.
func VisitCountSelector() Selector {
	return func(_, _ int32, _ float32, childVisits, childVL int32, childQ Result) float64 {
		return float64(childVisits - childVL)
	}
}

// RLock/RUnlock expose the tree's read lock to callers that want a
// consistent view across several BestChild calls. The search worker's
// gather walk does not take it; it relies on the atomic node fields.
func (t *Tree[M]) RLock()   { t.mu.RLock() }
func (t *Tree[M]) RUnlock() { t.mu.RUnlock() }
