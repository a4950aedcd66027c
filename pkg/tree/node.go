package tree

import (
	"math"
	"sync/atomic"
)

// Edge represents a move from a parent node towards a (possibly not
// yet materialized) child. The prior probability is fixed at
// expansion time; the child pointer starts nil and is set exactly
// once, the first time the edge is selected.
type Edge[M Move] struct {
	Move  M
	Prior float32

	child atomic.Pointer[Node[M]]
}

// Child returns the edge's child node, or nil if the edge has never
// been traversed.
func (e *Edge[M]) Child() *Node[M] {
	return e.child.Load()
}

// materialize atomically creates the child node for this edge the
// first time it is selected. Returns the (possibly pre-existing)
// child and whether this call created it.
func (e *Edge[M]) materialize(parent *Node[M]) (*Node[M], bool) {
	child := newNode[M](parent, e)
	if e.child.CompareAndSwap(nil, child) {
		return child, true
	}
	return e.child.Load(), false
}

// Node state bits, mirroring the teacher's CanExpand/ExpandingMask/
// ExpandedMask/TerminalMask flags. Stored in a single atomic word so
// a worker can tell "unexpanded", "being extended" and "expanded" or
// "terminal" apart with a lock-free read.
const (
	flagExpanding uint32 = 1 << iota
	flagExpanded
	flagTerminal
)

// Node is a position reached from the root by a sequence of edges.
// N, W and VL are accessed with atomic operations so that concurrent
// workers can update them without taking the tree-wide lock; only the
// edge-vector (created once, at expansion) needs that lock, see
// Tree.Extend.
type Node[M Move] struct {
	parent     *Node[M] // non-owning; nil for the root
	parentEdge *Edge[M] // nil for the root

	edges []Edge[M] // owned; populated once by Tree.Extend

	n  atomic.Int32 // visit count N
	w  atomic.Int64 // value sum W, fixed point with 1e6 scale
	vl atomic.Int32 // virtual loss VL

	flags         atomic.Uint32
	terminalValue float32 // valid once flagTerminal is set
}

func newNode[M Move](parent *Node[M], parentEdge *Edge[M]) *Node[M] {
	return &Node[M]{parent: parent, parentEdge: parentEdge}
}

// NewRoot creates a detached root node, ready for Tree.Extend or
// Tree.MarkTerminal.
func NewRoot[M Move]() *Node[M] {
	return &Node[M]{}
}

// Parent returns the non-owning back-reference, nil for the root.
func (n *Node[M]) Parent() *Node[M] { return n.parent }

// ParentEdge returns the edge this node was reached through, nil for
// the root.
func (n *Node[M]) ParentEdge() *Edge[M] { return n.parentEdge }

// Edges returns the node's child edges. Only valid once Expanded()
// is true; the slice is never mutated after that point.
func (n *Node[M]) Edges() []Edge[M] { return n.edges }

// N returns the visit count.
func (n *Node[M]) N() int32 { return n.n.Load() }

// W returns the raw value sum.
func (n *Node[M]) W() Result { return Result(n.w.Load()) / wScale }

// Q returns W/N, or 0 if unvisited.
func (n *Node[M]) Q() Result {
	visits := n.n.Load()
	if visits == 0 {
		return 0
	}
	return n.W() / Result(visits)
}

const wScale = 1e6

// VirtualLoss returns the current virtual-loss count.
func (n *Node[M]) VirtualLoss() int32 { return n.vl.Load() }

// AddVirtualLoss atomically increments VL by k.
func (n *Node[M]) AddVirtualLoss(k int32) { n.vl.Add(k) }

// RemoveVirtualLoss atomically decrements VL by k. VL is clamped at
// zero defensively; a correct caller never drives it negative.
func (n *Node[M]) RemoveVirtualLoss(k int32) {
	if n.vl.Add(-k) < 0 {
		n.vl.Store(0)
	}
}

// Backup applies one visit with the given value: N += 1, W += value.
// Sign flipping across plies is the caller's responsibility (it walks
// parent by parent and flips once per step).
func (n *Node[M]) Backup(value Result) {
	n.n.Add(1)
	n.w.Add(int64(value * wScale))
}

// Terminal reports whether the node is a fixed-value leaf.
func (n *Node[M]) Terminal() bool {
	return n.flags.Load()&flagTerminal != 0
}

// TerminalValue returns the fixed value of a terminal node, from that
// node's own perspective. Only meaningful if Terminal() is true.
func (n *Node[M]) TerminalValue() Result { return Result(n.terminalValue) }

// Expanded reports whether the child-edge vector has been populated.
func (n *Node[M]) Expanded() bool {
	return n.flags.Load()&flagExpanded != 0
}

// claimExpansion attempts to become the single worker that expands
// this node, returning false if another worker already holds the
// claim or the node is already expanded/terminal. This is the
// lock-free equivalent of the design notes' "being-extended flag set
// under exclusive lock": a single atomic CAS gives the same mutual
// exclusion without serializing unrelated reads behind the tree lock.
func (n *Node[M]) claimExpansion() bool {
	for {
		f := n.flags.Load()
		if f&(flagExpanding|flagExpanded|flagTerminal) != 0 {
			return false
		}
		if n.flags.CompareAndSwap(f, f|flagExpanding) {
			return true
		}
	}
}

// Expanding reports whether some worker currently holds the
// expansion claim on this node (collision condition for everyone
// else).
func (n *Node[M]) Expanding() bool {
	return n.flags.Load()&flagExpanding != 0
}

// unclaimExpansion clears a claim taken by claimExpansion without
// ever extending or marking the node terminal, the undo half of the
// claim CAS for an aborted expansion.
func (n *Node[M]) unclaimExpansion() {
	for {
		f := n.flags.Load()
		if n.flags.CompareAndSwap(f, f&^flagExpanding) {
			return
		}
	}
}

// RealVisits returns N minus VL, the count a selector should reason
// about (matches the teacher's NodeStats.RealVisits).
func (n *Node[M]) RealVisits() int32 {
	return n.n.Load() - n.vl.Load()
}

// fpuQ returns the Q value used for an unvisited child: the parent's
// own Q reduced by fpuReduction (First Play Urgency), per spec 4.1.
func fpuQ(parentQ Result, fpuReduction float64) Result {
	return parentQ - Result(fpuReduction)
}

// puctScore computes Q + C*P*sqrt(Np+VLp)/(1+Ni+VLi) for one child,
// folding virtual loss into both numerator and denominator as spec
// 4.1 describes.
func puctScore(parentVisits, parentVL int32, prior float32, childVisits, childVL int32, q Result, cpuct float64) float64 {
	exploration := cpuct * float64(prior) *
		math.Sqrt(float64(parentVisits+parentVL)) / float64(1+childVisits+childVL)
	return float64(q) + exploration
}
