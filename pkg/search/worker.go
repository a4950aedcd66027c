package search

import (
	"math/rand"

	"github.com/xqzero/ccsearch/pkg/evalcache"
	"github.com/xqzero/ccsearch/pkg/network"
	"github.com/xqzero/ccsearch/pkg/position"
	"github.com/xqzero/ccsearch/pkg/tree"
)

// leafKind classifies how gatherOne resolved one minibatch slot,
// spec §4.3 step 2's three cases (a)/(b)/(c).
type leafKind int

const (
	leafExpand leafKind = iota
	leafTerminal
	leafCollision
)

// gatheredLeaf is one minibatch entry accumulated during step 2,
// carrying just enough to drive steps 4-6 without re-walking the tree.
type gatheredLeaf[M comparable] struct {
	node      *tree.Node[M]
	kind      leafKind
	depth     int32
	value     tree.Result // valid for leafTerminal / leafCollision(=0)
	moves     []M         // valid for leafExpand
	compIndex int         // valid for leafExpand, index into the Computation's inputs
	isRoot    bool        // whether this leaf is the tree's root (Dirichlet noise applies only here)
}

// worker runs the seven-step iteration loop against a shared
// Controller, each with its own position cursor and RNG, grounded on
// the teacher's per-goroutine ops.Clone()+threadRand pair in
// mcts.Search.
type worker[M comparable, P position.Clonable[M, P]] struct {
	id   int
	ctrl *Controller[M, P]
	pos  P
	rnd  *rand.Rand

	// scratch: leaves is reused across iterations; historyBuf and
	// prefetchBuf only seed each walk's history slice and are never
	// grown here, so every walk allocates its own.
	leaves      []gatheredLeaf[M]
	historyBuf  []uint64
	prefetchBuf []uint64
}

func newWorker[M comparable, P position.Clonable[M, P]](id int, ctrl *Controller[M, P], pos P, seed int64) *worker[M, P] {
	return &worker[M, P]{
		id:   id,
		ctrl: ctrl,
		pos:  pos,
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

// run executes iterations until the controller's stop conditions fire.
func (w *worker[M, P]) run() {
	consecutiveFailures := 0
	for {
		if w.ctrl.shouldStop() {
			break
		}

		if err := w.iterate(); err != nil {
			consecutiveFailures++
			log.Warn().Err(err).Int("worker", w.id).Msg("search iteration failed")
			if consecutiveFailures >= maxIterationRetries {
				log.Error().Int("worker", w.id).Msg("giving up after repeated network failures")
				w.ctrl.requestStop(StopReasonError)
				break
			}
			continue
		}
		consecutiveFailures = 0

		if w.id == 0 {
			w.ctrl.afterIteration()
		}
	}
}

// iterate runs the seven-step pipeline once.
func (w *worker[M, P]) iterate() error {
	w.leaves = w.leaves[:0]
	comp := evalcache.NewComputation(w.ctrl.cache, w.ctrl.net)

	// Step 2: gather minibatch.
	collisions := 0
	miniBatch := max(1, w.ctrl.opts.MiniBatchSize)
	for i := 0; i < miniBatch; i++ {
		leaf := w.gatherOne(comp)
		w.leaves = append(w.leaves, leaf)
		if leaf.kind == leafCollision {
			collisions++
			w.ctrl.metrics.AddCollision()
			if w.ctrl.opts.AllowedNodeCollisions > 0 && collisions >= w.ctrl.opts.AllowedNodeCollisions {
				break
			}
		}
	}

	// Step 3: prefetch.
	if budget := w.ctrl.opts.MaxPrefetchBatch - comp.PendingBatchSize(); budget > 0 {
		w.prefetch(comp, budget)
	}

	// Step 4: compute.
	batched := comp.PendingBatchSize() > 0
	if err := comp.ComputePending(); err != nil {
		// Undo virtual loss for every gathered leaf and release any
		// expansion claim taken in step 2, per spec §7: an aborted
		// iteration must not leave the tree with dangling virtual loss
		// or a node stuck Expanding() forever for the retry.
		for i := range w.leaves {
			leaf := &w.leaves[i]
			w.unwindVirtualLoss(leaf)
			if leaf.kind == leafExpand {
				w.ctrl.treeInst.UnclaimExpansion(leaf.node)
			}
		}
		return ErrNetworkComputationFailure
	}
	if batched {
		w.ctrl.metrics.AddNetworkBatch()
	}

	// Step 5: fetch + extend.
	for i := range w.leaves {
		leaf := &w.leaves[i]
		if leaf.kind != leafExpand {
			continue
		}
		result := comp.GetResult(leaf.compIndex)
		w.extend(leaf, result)
	}

	// Step 6: backup.
	playouts := int64(0)
	for i := range w.leaves {
		leaf := &w.leaves[i]
		backupPath(leaf.node, leaf.value)
		if leaf.kind != leafCollision {
			playouts++
		}
	}

	// Step 7: update counters.
	w.ctrl.totalPlayouts.Add(playouts)
	for i := int64(0); i < playouts; i++ {
		w.ctrl.metrics.AddPlayout()
	}
	return nil
}

// gatherOne walks from the tree's current root once, applying virtual
// loss along the way, stopping at the first unexpanded edge, terminal
// node, or in-progress expansion (spec §4.3 step 2).
func (w *worker[M, P]) gatherOne(comp *evalcache.Computation) gatheredLeaf[M] {
	root := w.ctrl.treeInst.Root()
	node := root
	depth := int32(0)
	history := w.historyBuf[:0]

	for {
		if node.Terminal() {
			w.unwind(depth)
			return gatheredLeaf[M]{node: node, kind: leafTerminal, depth: depth, value: node.TerminalValue(), isRoot: node == root}
		}

		if node.Expanded() {
			idx := tree.BestChild(node, w.ctrl.selector, w.ctrl.opts.FpuReduction)
			edges := node.Edges()
			edge := &edges[idx]
			child, _ := w.ctrl.treeInst.MaterializeChild(node, edge)
			history = append(history, w.pos.Hash())
			w.pos.MakeMove(edge.Move)
			depth++
			child.AddVirtualLoss(1)
			node = child
			continue
		}

		if w.ctrl.treeInst.ClaimExpansion(node) {
			outcome, over := w.pos.Terminal()
			if over {
				value := tree.Result(position.ResultValue(outcome))
				w.ctrl.treeInst.MarkTerminal(node, value)
				w.unwind(depth)
				return gatheredLeaf[M]{node: node, kind: leafTerminal, depth: depth, value: value, isRoot: node == root}
			}

			moves := w.pos.LegalMoves()
			if len(moves) == 0 {
				// Contract violation by the position model (Terminal
				// should already have reported this); fall back to a
				// draw rather than leaving the node stuck expanding.
				log.Warn().Msg("LegalMoves empty but Terminal() reported ongoing")
				w.ctrl.treeInst.MarkTerminal(node, 0)
				w.unwind(depth)
				return gatheredLeaf[M]{node: node, kind: leafTerminal, depth: depth, value: 0, isRoot: node == root}
			}

			key := evalcache.Key(w.pos.Hash(), history, w.ctrl.opts.CacheHistoryLength)
			encoded := w.pos.Encode()
			hit, idx := comp.AddInput(key, encoded)
			if hit {
				w.ctrl.metrics.AddCacheHit()
			}
			w.unwind(depth)
			return gatheredLeaf[M]{node: node, kind: leafExpand, depth: depth, moves: moves, compIndex: idx, isRoot: node == root}
		}

		if node.Expanding() {
			w.unwind(depth)
			return gatheredLeaf[M]{node: node, kind: leafCollision, depth: depth, value: 0, isRoot: node == root}
		}
		// Flags changed between the claim attempt and this check
		// (another worker finished expanding or marked terminal);
		// loop back around and reclassify node.
	}
}

// unwind restores w.pos to the tree root after a gather walk of the
// given depth, without ever cloning the position.
func (w *worker[M, P]) unwind(depth int32) {
	for i := int32(0); i < depth; i++ {
		w.pos.Unmake()
	}
}

// unwindVirtualLoss removes the virtual loss a gathered leaf's path
// carries, used when an iteration is aborted before backup runs.
func (w *worker[M, P]) unwindVirtualLoss(leaf *gatheredLeaf[M]) {
	for node := leaf.node; node != nil && node.Parent() != nil; node = node.Parent() {
		node.RemoveVirtualLoss(1)
	}
}

// extend materializes priors from a computed (policy, value) result
// and calls Tree.Extend, mixing in root Dirichlet noise when leaf is
// the tree root and DirichletNoise is enabled (spec §4.1 Expansion).
func (w *worker[M, P]) extend(leaf *gatheredLeaf[M], result network.EvalResult) {
	legalIdx := make([]int, len(leaf.moves))
	for i := range legalIdx {
		legalIdx[i] = i
	}
	priors := tree.NormalizePriors(result.Policy, legalIdx, w.ctrl.opts.PolicySoftmaxTemp)

	if leaf.isRoot && w.ctrl.opts.DirichletNoise {
		noise := tree.DirichletNoise(len(priors), w.ctrl.opts.DirichletAlpha, w.rnd.Float64)
		tree.MixDirichletNoise(priors, noise, w.ctrl.opts.DirichletEps)
	}

	if err := w.ctrl.treeInst.Extend(leaf.node, leaf.moves, priors); err != nil {
		// Another worker raced this expansion to completion first;
		// the tree already reflects a valid extension, nothing to do.
		leaf.value = leaf.node.Q()
		return
	}
	leaf.value = tree.Result(result.Value)
}

// prefetch speculatively descends the current best-child path from
// the tree root using a scratch position copy, adding cache-miss
// positions to comp without creating tree nodes (spec §4.3 step 3).
// It stops at the first not-yet-materialized edge: this is a single
// speculative leaf per call, one path deep, deliberately simple since
// the spec leaves the exact prefetch shape open.
func (w *worker[M, P]) prefetch(comp *evalcache.Computation, budget int) {
	node := w.ctrl.treeInst.Root()
	if !node.Expanded() || node.Terminal() {
		return
	}

	pos := w.pos.Clone()
	history := w.prefetchBuf[:0]
	added := 0

	for added < budget {
		if !node.Expanded() || node.Terminal() {
			return
		}
		idx := tree.BestChild(node, w.ctrl.selector, w.ctrl.opts.FpuReduction)
		edges := node.Edges()
		edge := &edges[idx]

		history = append(history, pos.Hash())
		pos.MakeMove(edge.Move)

		child := edge.Child()
		if child == nil {
			key := evalcache.Key(pos.Hash(), history, w.ctrl.opts.CacheHistoryLength)
			comp.AddInput(key, pos.Encode())
			added++
			return
		}
		node = child
	}
}

// backupPath walks from leaf to root, applying Backup with the sign
// flipped at every ply and removing the virtual loss added to every
// non-root node during descent (spec §4.3 step 6).
func backupPath[M comparable](leaf *tree.Node[M], value tree.Result) {
	v := value
	for node := leaf; node != nil; node = node.Parent() {
		node.Backup(v)
		if node.Parent() != nil {
			node.RemoveVirtualLoss(1)
		}
		v = -v
	}
}
