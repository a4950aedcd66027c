// Package search implements the parallel PUCT/MCTS search core: the
// worker iteration (worker.go), the lifecycle/stop-condition/best-move
// controller (controller.go, bestmove.go), and the thread coordinator
// (coordinator.go) fanning workers out over a shared Controller.
package search

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xqzero/ccsearch/pkg/engineio"
	"github.com/xqzero/ccsearch/pkg/evalcache"
	"github.com/xqzero/ccsearch/pkg/network"
	"github.com/xqzero/ccsearch/pkg/position"
	"github.com/xqzero/ccsearch/pkg/tree"
)

// StopReason records why a search ended, mirroring the teacher's
// StopReason but as a plain enum since spec §4.4's checks are
// first-match-wins rather than combinable flags.
type StopReason int

const (
	StopNone StopReason = iota
	StopInterrupt
	StopVisits
	StopPlayouts
	StopTime
	StopSmartPruning
	StopSearchMoves
	StopReasonError
)

func (r StopReason) String() string {
	switch r {
	case StopInterrupt:
		return "interrupt"
	case StopVisits:
		return "visits"
	case StopPlayouts:
		return "playouts"
	case StopTime:
		return "time"
	case StopSmartPruning:
		return "smart_pruning"
	case StopSearchMoves:
		return "search_moves"
	case StopReasonError:
		return "error"
	default:
		return "none"
	}
}

// progressThrottle bounds how often ThinkingInfo fires, spec §4.4's
// "design: bounded by a minimum wall-clock gap, e.g., 250ms".
const progressThrottle = 250 * time.Millisecond

// Controller owns one search's lifecycle: the shared tree, cache and
// network, the configured Options/Limits, and the counters workers
// report into. One Controller is used for exactly one Start/
// RunBlocking call; build a new one for the next move.
type Controller[M comparable, P position.Clonable[M, P]] struct {
	treeInst *tree.Tree[M]
	cache    *evalcache.Cache
	net      network.Network
	opts     *Options
	limits   *Limits
	selector tree.Selector
	metrics  MetricsCollector
	rootPos  P

	onBestMove func(engineio.BestMoveInfo[M])
	onThinking func(engineio.ThinkingInfo[M])

	mu             sync.Mutex // counters_lock: stop flags + cached best-move output
	startTime      time.Time
	initialVisits  int32
	totalPlayouts  atomic.Int64
	stopRequested  atomic.Bool
	stopReason     StopReason
	announced      atomic.Bool
	lastProgressAt time.Time
	lastBestIdx    int

	result   engineio.BestMoveInfo[M]
	bestEval tree.Result

	threadsMu sync.Mutex // threads_lock
	workers   []*worker[M, P]
	wg        sync.WaitGroup
}

// ControllerOption configures optional Controller wiring (a custom
// metrics collector, callbacks), the functional-options style
// risk-agent/searcher/mcts.go uses alongside its flat args struct.
type ControllerOption[M comparable, P position.Clonable[M, P]] func(*Controller[M, P])

// WithMetrics installs m as the controller's metrics collector,
// overriding the VerboseStats-driven default.
func WithMetrics[M comparable, P position.Clonable[M, P]](m MetricsCollector) ControllerOption[M, P] {
	return func(c *Controller[M, P]) { c.metrics = m }
}

// WithBestMoveCallback registers the one-shot announcement callback.
func WithBestMoveCallback[M comparable, P position.Clonable[M, P]](f func(engineio.BestMoveInfo[M])) ControllerOption[M, P] {
	return func(c *Controller[M, P]) { c.onBestMove = f }
}

// WithThinkingCallback registers the periodic progress callback.
func WithThinkingCallback[M comparable, P position.Clonable[M, P]](f func(engineio.ThinkingInfo[M])) ControllerOption[M, P] {
	return func(c *Controller[M, P]) { c.onThinking = f }
}

// NewController builds a Controller ready for Start/RunBlocking.
// rootPos is cloned once per worker; the Controller never mutates the
// caller's copy.
func NewController[M comparable, P position.Clonable[M, P]](
	t *tree.Tree[M],
	cache *evalcache.Cache,
	net network.Network,
	opts *Options,
	limits *Limits,
	rootPos P,
	optFns ...ControllerOption[M, P],
) *Controller[M, P] {
	if opts == nil {
		opts = DefaultOptions()
	}
	if limits == nil {
		limits = DefaultLimits()
	}
	if limits.normalize() {
		log.Warn().Msg(ErrLimitMalformed.Error())
	}

	c := &Controller[M, P]{
		treeInst: t,
		cache:    cache,
		net:      net,
		opts:     opts,
		limits:   limits,
		selector: tree.PUCTSelector(opts.Cpuct),
		rootPos:  rootPos,
		lastBestIdx: -1,
	}
	if opts.VerboseStats {
		c.metrics = newMetricsCollector()
	} else {
		c.metrics = newNoMetricsCollector()
	}

	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// GetBestEval returns the Q value of the no-temperature best edge,
// valid after the search has stopped. When Temperature>0 this is
// deliberately independent of the move actually announced (spec
// §4.4's note on avoiding a value inconsistent with a sampled move).
func (c *Controller[M, P]) GetBestEval() tree.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bestEval
}

// Result returns the announced BestMoveInfo, valid after Wait returns.
func (c *Controller[M, P]) Result() engineio.BestMoveInfo[M] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// StopReason reports why the search ended, valid after Wait returns.
func (c *Controller[M, P]) StopReason() StopReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopReason
}

// Metrics snapshots the controller's counters.
func (c *Controller[M, P]) Metrics() SearchMetrics {
	return c.metrics.Snapshot()
}

// shouldStop is the fast, lock-free check every worker makes before
// starting its next iteration.
func (c *Controller[M, P]) shouldStop() bool {
	return c.stopRequested.Load()
}

// requestStop sets the stop flag if not already set, recording reason
// as the announcer's reason (first writer wins, spec §5's "first
// worker to observe a stop condition under counters_lock").
func (c *Controller[M, P]) requestStop(reason StopReason) {
	c.mu.Lock()
	if !c.stopRequested.Load() {
		c.stopRequested.Store(true)
		c.stopReason = reason
	}
	c.mu.Unlock()
}

// Stop requests a clean stop: the next worker to notice will announce
// a best move as usual.
func (c *Controller[M, P]) Stop() {
	c.requestStop(StopInterrupt)
}

// Abort requests termination without guaranteeing a best-move
// announcement fires from a completed line of play; in this
// implementation it behaves like Stop but is kept distinct per spec
// §4.4's Stop/Abort split for callers that want to express intent.
func (c *Controller[M, P]) Abort() {
	c.requestStop(StopInterrupt)
}

// afterIteration runs the end-of-iteration bookkeeping that only the
// id==0 worker performs: stop-condition evaluation (spec §4.4, checked
// in order, first match wins) and throttled progress emission.
func (c *Controller[M, P]) afterIteration() {
	root := c.treeInst.Root()

	if reason := c.evaluateStopConditions(root); reason != StopNone {
		c.requestStop(reason)
		return
	}

	c.maybeEmitProgress(root)
}

func (c *Controller[M, P]) evaluateStopConditions(root *tree.Node[M]) StopReason {
	if c.stopRequested.Load() {
		return StopInterrupt
	}
	if c.limits.hasVisits() && int64(root.N())-int64(c.initialVisits) >= c.limits.Visits {
		return StopVisits
	}
	if c.limits.hasPlayouts() && c.totalPlayouts.Load() >= c.limits.Playouts {
		return StopPlayouts
	}
	if c.limits.hasTime() && time.Since(c.startTime) >= time.Duration(c.limits.TimeMs)*time.Millisecond {
		return StopTime
	}
	if c.opts.SmartPruning && c.smartPruningTriggered(root) {
		return StopSmartPruning
	}
	if len(c.limits.SearchMoves) > 0 && c.searchMovesSaturated(root) {
		return StopSearchMoves
	}
	return StopNone
}

// smartPruningTriggered implements spec §4.4 point 5: the best child
// by visits already has more than the second-best could possibly
// catch up to within the remaining budget.
func (c *Controller[M, P]) smartPruningTriggered(root *tree.Node[M]) bool {
	edges := root.Edges()
	if len(edges) < 2 {
		return false
	}

	var best, second int32 = -1, -1
	for i := range edges {
		child := edges[i].Child()
		if child == nil {
			continue
		}
		v := child.RealVisits()
		if v > best {
			second = best
			best = v
		} else if v > second {
			second = v
		}
	}
	if best < 0 || second < 0 {
		return false
	}

	remaining := c.remainingPlayoutBudget(root)
	return int64(best-second) > remaining
}

// remainingPlayoutBudget estimates how many more playouts the search
// could still perform given the active limits, used by smart pruning.
// Infinite or unset limits contribute no bound (treated as unlimited,
// meaning smart pruning only fires for visits/playouts-limited
// searches, which is the only case with a well-defined ceiling).
func (c *Controller[M, P]) remainingPlayoutBudget(root *tree.Node[M]) int64 {
	budget := int64(-1)
	if c.limits.hasVisits() {
		b := c.limits.Visits - (int64(root.N()) - int64(c.initialVisits))
		if budget < 0 || b < budget {
			budget = b
		}
	}
	if c.limits.hasPlayouts() {
		b := c.limits.Playouts - c.totalPlayouts.Load()
		if budget < 0 || b < budget {
			budget = b
		}
	}
	if budget < 0 {
		return 1 << 62
	}
	return budget
}

// searchMovesSaturated reports whether every root child outside
// SearchMoves is already so far behind the leaders within SearchMoves
// that it cannot overtake, spec §4.4 point 6.
func (c *Controller[M, P]) searchMovesSaturated(root *tree.Node[M]) bool {
	edges := root.Edges()
	allowed := make(map[int]bool, len(c.limits.SearchMoves))
	for _, idx := range c.limits.SearchMoves {
		allowed[idx] = true
	}

	var maxAllowed int32 = -1
	for idx := range allowed {
		if idx < 0 || idx >= len(edges) {
			continue
		}
		if child := edges[idx].Child(); child != nil {
			if v := child.RealVisits(); v > maxAllowed {
				maxAllowed = v
			}
		}
	}
	if maxAllowed < 0 {
		return false
	}

	remaining := c.remainingPlayoutBudget(root)
	for i := range edges {
		if allowed[i] {
			continue
		}
		child := edges[i].Child()
		if child == nil {
			continue
		}
		if int64(child.RealVisits())+remaining > int64(maxAllowed) {
			return false
		}
	}
	return true
}

func (c *Controller[M, P]) maybeEmitProgress(root *tree.Node[M]) {
	if c.onThinking == nil {
		return
	}

	now := time.Now()
	bestIdx := pickBestChildIndex(root)

	c.mu.Lock()
	dueByTime := now.Sub(c.lastProgressAt) >= progressThrottle
	dueByChange := bestIdx != c.lastBestIdx
	if !dueByTime && !dueByChange {
		c.mu.Unlock()
		return
	}
	c.lastProgressAt = now
	c.lastBestIdx = bestIdx
	c.mu.Unlock()

	pv := principalVariation[M](root)
	elapsed := now.Sub(c.startTime)
	nodes := int64(root.N()) - int64(c.initialVisits)
	nps := int64(0)
	if ms := elapsed.Milliseconds(); ms > 0 {
		nps = nodes * 1000 / ms
	}

	info := engineio.ThinkingInfo[M]{
		Depth:   len(pv),
		Nodes:   nodes,
		Nps:     nps,
		TimeMs:  elapsed.Milliseconds(),
		ScoreCp: qToCentipawns(root.Q()),
		Pv:      pv,
	}
	c.onThinking(info)
}

// finish computes and announces the best move exactly once, per spec
// §4.4's "only the former, on the first responding worker, emits the
// final best-move announcement".
func (c *Controller[M, P]) finish() {
	if !c.announced.CompareAndSwap(false, true) {
		return
	}

	root := c.treeInst.Root()
	var bestIdx int
	temperatureActive := c.opts.Temperature > 0 &&
		(c.opts.TempDecayMoves <= 0 || int(root.N()) < c.opts.TempDecayMoves)

	if temperatureActive {
		rnd := rand.New(rand.NewSource(rootSeed(root)))
		bestIdx = pickTemperatureChildIndex[M](root, c.opts.Temperature, rnd)
	} else {
		bestIdx = pickBestChildIndex[M](root)
	}

	var info engineio.BestMoveInfo[M]
	var bestEval tree.Result
	if bestIdx >= 0 {
		edges := root.Edges()
		info.Best = edges[bestIdx].Move
		info.Ponder = ponderMove[M](root, bestIdx)
	}

	// GetBestEval always reports the no-temperature edge's Q, spec
	// §4.4's note on not presenting a value inconsistent with the
	// move actually sampled under temperature.
	if noTempIdx := pickBestChildIndex[M](root); noTempIdx >= 0 {
		if child := root.Edges()[noTempIdx].Child(); child != nil {
			// child.Q()/TerminalValue() are in the child's own
			// perspective; GetBestEval reports the root mover's
			// perspective, so flip sign the same way BestChild does.
			if child.Terminal() {
				bestEval = -child.TerminalValue()
			} else {
				bestEval = -child.Q()
			}
		}
	} else if root.Terminal() {
		bestEval = root.TerminalValue()
	}

	c.mu.Lock()
	c.result = info
	c.bestEval = bestEval
	c.mu.Unlock()

	if c.onBestMove != nil {
		c.onBestMove(info)
	}
}

// rootSeed derives a search-scoped random seed from the root's visit
// count plus a wall-clock component, so temperature sampling over the
// same tree is not reproducible from run to run (invariant 5's
// single-threaded determinism covers the tree, not this sampling step).
func rootSeed[M comparable](root *tree.Node[M]) int64 {
	return int64(root.N())*1000003 + time.Now().UnixNano()%997
}
