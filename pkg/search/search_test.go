package search

import (
	"errors"
	"testing"
	"time"

	"github.com/xqzero/ccsearch/pkg/evalcache"
	"github.com/xqzero/ccsearch/pkg/network"
	"github.com/xqzero/ccsearch/pkg/position"
	"github.com/xqzero/ccsearch/pkg/tree"
)

// uniformStub returns a Stub that reports a two-entry uniform policy
// and zero value for any input; two entries cover every Stones
// position, which has at most two legal moves for NormalizePriors'
// legalIdx to pick out.
func uniformStub() *network.Stub {
	return network.NewStub(func(encoded []float32) network.EvalResult {
		return network.EvalResult{Policy: []float32{1, 1}, Value: 0}
	})
}

// TestTerminalRootAnnouncesNullMove is spec scenario S1: a root that
// is already over must short-circuit before any worker runs.
func TestTerminalRootAnnouncesNullMove(t *testing.T) {
	tr := tree.New[position.Take]()
	cache := evalcache.New(16)
	net := uniformStub()
	pos := position.NewStones(0) // side to move has nothing to take: a loss

	c := NewController[position.Take, *position.Stones](tr, cache, net, DefaultOptions(), DefaultLimits().SetVisits(10), pos)
	result := c.RunBlocking(1)

	if result.Best != position.Take(0) {
		t.Fatalf("Best = %v, want the null move", result.Best)
	}
	if got := c.GetBestEval(); got != -1 {
		t.Fatalf("GetBestEval() = %v, want -1", got)
	}
	if net.Calls() != 0 {
		t.Fatalf("net.Calls() = %d, want 0", net.Calls())
	}
	if c.Metrics().Playouts != 0 {
		t.Fatalf("Metrics().Playouts = %d, want 0", c.Metrics().Playouts)
	}
}

// TestSingleLegalReply is spec scenario S2: with exactly one legal
// move, a 1-visit search must return it.
func TestSingleLegalReply(t *testing.T) {
	tr := tree.New[position.Take]()
	cache := evalcache.New(16)
	net := uniformStub()
	pos := position.NewStones(1) // only Take(1) is legal

	c := NewController[position.Take, *position.Stones](tr, cache, net, DefaultOptions(), DefaultLimits().SetVisits(1), pos)
	result := c.RunBlocking(1)

	if result.Best != position.Take(1) {
		t.Fatalf("Best = %v, want Take(1)", result.Best)
	}
}

// TestStopByTime is spec scenario S3: a time-limited search must
// return within [time_ms, time_ms + slack for one in-flight
// iteration].
func TestStopByTime(t *testing.T) {
	tr := tree.New[position.Take]()
	cache := evalcache.New(64)
	net := uniformStub()
	pos := position.NewStones(1_000_000) // large enough to never run dry

	limits := DefaultLimits().SetTimeMs(100)
	c := NewController[position.Take, *position.Stones](tr, cache, net, DefaultOptions(), limits, pos)

	start := time.Now()
	c.RunBlocking(1)
	elapsed := time.Since(start)

	if elapsed < 100*time.Millisecond {
		t.Fatalf("elapsed = %v, want >= 100ms", elapsed)
	}
	if elapsed > 400*time.Millisecond {
		t.Fatalf("elapsed = %v, want within a bounded slack of 100ms", elapsed)
	}
	if c.StopReason() != StopTime {
		t.Fatalf("StopReason() = %v, want StopTime", c.StopReason())
	}
}

// TestInvariantRootNMeetsOrExceedsPlayouts checks property 3: root.N
// minus the initial visit count is never less than total_playouts,
// since collisions may inflate N without counting as a playout.
func TestInvariantRootNMeetsOrExceedsPlayouts(t *testing.T) {
	tr := tree.New[position.Take]()
	cache := evalcache.New(64)
	net := uniformStub()
	pos := position.NewStones(50)

	opts := DefaultOptions().SetVerboseStats(true)
	c := NewController[position.Take, *position.Stones](tr, cache, net, opts, DefaultLimits().SetVisits(200), pos)
	c.RunBlocking(2)

	root := c.treeInst.Root()
	playouts := c.Metrics().Playouts
	if int64(root.N()) < playouts {
		t.Fatalf("root.N()=%d < total_playouts=%d", root.N(), playouts)
	}
}

// TestInvariantVirtualLossRestsAtZero checks property 2: once every
// worker has exited, no node should be left carrying virtual loss.
func TestInvariantVirtualLossRestsAtZero(t *testing.T) {
	tr := tree.New[position.Take]()
	cache := evalcache.New(64)
	net := uniformStub()
	pos := position.NewStones(50)

	c := NewController[position.Take, *position.Stones](tr, cache, net, DefaultOptions(), DefaultLimits().SetVisits(200), pos)
	c.RunBlocking(4)

	var walk func(n *tree.Node[position.Take])
	walk = func(n *tree.Node[position.Take]) {
		if n.VirtualLoss() != 0 {
			t.Fatalf("node has VL=%d at rest", n.VirtualLoss())
		}
		if !n.Expanded() {
			return
		}
		for i := range n.Edges() {
			if child := n.Edges()[i].Child(); child != nil {
				walk(child)
			}
		}
	}
	walk(c.treeInst.Root())
}

// TestSingleLegalReplyAcrossThreadCounts is a degenerate instance of
// spec scenario S6 (multi-threaded equivalence): with only one legal
// move available, every thread count must agree on it.
func TestSingleLegalReplyAcrossThreadCounts(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		tr := tree.New[position.Take]()
		cache := evalcache.New(64)
		net := uniformStub()
		pos := position.NewStones(1)

		opts := DefaultOptions().SetAllowedNodeCollisions(0) // unbounded
		c := NewController[position.Take, *position.Stones](tr, cache, net, opts, DefaultLimits().SetPlayouts(20), pos)
		result := c.RunBlocking(n)

		if result.Best != position.Take(1) {
			t.Fatalf("threads=%d: Best = %v, want Take(1)", n, result.Best)
		}
	}
}

// failOnceNetwork fails its first Evaluate call, then behaves like
// uniformStub forever after, used to exercise the retry-then-recover
// path spec §7 requires for a transient network failure.
type failOnceNetwork struct {
	failed bool
}

func (n *failOnceNetwork) Evaluate(batch [][]float32) ([]network.EvalResult, error) {
	if !n.failed {
		n.failed = true
		return nil, errors.New("transient backend failure")
	}
	results := make([]network.EvalResult, len(batch))
	for i := range results {
		results[i] = network.EvalResult{Policy: []float32{1, 1}, Value: 0}
	}
	return results, nil
}

func (n *failOnceNetwork) Close() error { return nil }

// TestNetworkFailureReleasesExpansionClaim guards against the
// expansion claim leaking when ComputePending fails: without
// releasing the claim taken in gatherOne's step 2, the root would be
// stuck Expanding() forever, every later gather would collide on it,
// and the search would never materialize a real move even after the
// network recovers.
func TestNetworkFailureReleasesExpansionClaim(t *testing.T) {
	tr := tree.New[position.Take]()
	cache := evalcache.New(16)
	net := &failOnceNetwork{}
	pos := position.NewStones(5)

	c := NewController[position.Take, *position.Stones](tr, cache, net, DefaultOptions(), DefaultLimits().SetVisits(50), pos)
	result := c.RunBlocking(1)

	root := c.treeInst.Root()
	if root.Expanding() {
		t.Fatal("root is still Expanding() after the failed iteration's retry succeeded")
	}
	if !root.Expanded() {
		t.Fatal("root was never expanded: the claim from the failed iteration was never released")
	}
	var zero position.Take
	if result.Best == zero {
		t.Fatal("Best is the zero move: search never recovered a real move after the transient failure")
	}
}

// TestTreeReuseAdvance checks property 6: advancing the tree to a
// materialized child preserves that subtree's visit count and severs
// the parent back-reference.
func TestTreeReuseAdvance(t *testing.T) {
	tr := tree.New[position.Take]()
	root := tr.Root()
	root.Backup(0)
	if err := tr.Extend(root, []position.Take{1, 2}, []float32{0.5, 0.5}); err != nil {
		t.Fatal(err)
	}
	edges := root.Edges()
	child, _ := tr.MaterializeChild(root, &edges[0])
	child.Backup(0.3)
	child.Backup(0.6)

	wantN := child.N()
	newRoot, ok := tr.Advance(position.Take(1))
	if !ok {
		t.Fatal("Advance failed to find the child reached by Take(1)")
	}
	if newRoot.N() != wantN {
		t.Fatalf("newRoot.N() = %d, want %d", newRoot.N(), wantN)
	}
	if newRoot.Parent() != nil {
		t.Fatal("new root must have no parent back-reference")
	}
}
