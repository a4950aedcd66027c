package search

import (
	"time"

	"github.com/xqzero/ccsearch/pkg/engineio"
	"github.com/xqzero/ccsearch/pkg/position"
	"github.com/xqzero/ccsearch/pkg/tree"
)

// Start spawns n workers sharing this controller and returns
// immediately; call Wait to block for completion, or use RunBlocking
// to do both. n is clamped to at least 1, the single-worker case being
// the degenerate sequential search (spec §5).
func (c *Controller[M, P]) Start(n int) {
	if n < 1 {
		n = 1
	}

	c.startTime = time.Now()
	c.metrics.Start()

	root := c.treeInst.Root()
	c.initialVisits = root.N()

	// Spec §8 scenario S1: a root that is already terminal (or becomes
	// so on a zero-cost check) must produce its null-move announcement
	// with no worker loop and no network call at all.
	if c.checkRootTerminal(root) {
		c.finish()
		return
	}

	c.threadsMu.Lock()
	c.workers = make([]*worker[M, P], n)
	for i := 0; i < n; i++ {
		c.workers[i] = newWorker[M, P](i, c, c.rootPos.Clone(), int64(i)+1)
	}
	c.threadsMu.Unlock()

	c.wg.Add(n)
	for _, w := range c.workers {
		go func(w *worker[M, P]) {
			defer c.wg.Done()
			w.run()
		}(w)
	}
}

// checkRootTerminal marks root terminal (if the position model says
// so) without consuming a worker iteration, letting Start short-circuit
// before spawning anything.
func (c *Controller[M, P]) checkRootTerminal(root *tree.Node[M]) bool {
	if root.Terminal() {
		return true
	}
	outcome, over := c.rootPos.Terminal()
	if !over {
		return false
	}
	c.treeInst.MarkTerminal(root, tree.Result(position.ResultValue(outcome)))
	return true
}

// Wait blocks until every worker has exited its loop, then announces
// the best move if Start's short-circuit path didn't already.
func (c *Controller[M, P]) Wait() {
	c.wg.Wait()
	c.finish()
}

// RunBlocking is Start(n) followed by Wait(), the synchronous shape
// most callers want.
func (c *Controller[M, P]) RunBlocking(n int) engineio.BestMoveInfo[M] {
	c.Start(n)
	c.Wait()
	return c.Result()
}
