package evalcache

import (
	"github.com/xqzero/ccsearch/pkg/network"
)

// input tracks one AddInput call's resolution: a cache hit has its
// entry set immediately, a miss records its position in the pending
// network batch instead.
type input struct {
	hit      bool
	entry    Entry
	batchIdx int    // valid only if !hit
	key      uint64 // valid only if !hit, used to write through on ComputePending
}

// Computation is one iteration's caching batched evaluator: spec 4.2.
// It is bound to a shared Cache and Network, accumulates cache misses
// into a single batch, and distributes the network's reply back to
// every input that asked for it, writing every result through to the
// cache.
type Computation struct {
	cache   *Cache
	net     network.Network
	inputs  []input
	batch   [][]float32
	results []network.EvalResult
}

// NewComputation creates a computation bound to cache and net, ready for
// AddInput calls. A new Computation is created per search iteration
// (spec 4.3 step 1).
func NewComputation(cache *Cache, net network.Network) *Computation {
	return &Computation{cache: cache, net: net}
}

// AddInput looks up key in the cache; on a hit it records the cached
// result and returns (true, index). On a miss it queues encoded for
// the next ComputePending call and returns (false, index). index is
// this input's position, the argument GetResult expects back.
func (c *Computation) AddInput(key uint64, encoded []float32) (hit bool, index int) {
	index = len(c.inputs)
	if e, ok := c.cache.Get(key); ok {
		c.inputs = append(c.inputs, input{hit: true, entry: e})
		return true, index
	}
	idx := len(c.batch)
	c.batch = append(c.batch, encoded)
	c.inputs = append(c.inputs, input{hit: false, batchIdx: idx, key: key})
	return false, index
}

// PendingBatchSize returns how many cache misses are queued, the
// number that will actually reach the network on ComputePending.
func (c *Computation) PendingBatchSize() int {
	return len(c.batch)
}

// ComputePending issues exactly one network call over every queued
// miss (spec 4.2), if there is at least one, and writes every result
// through to the cache.
func (c *Computation) ComputePending() error {
	if len(c.batch) == 0 {
		return nil
	}

	results, err := c.net.Evaluate(c.batch)
	if err != nil {
		return err
	}
	c.results = results

	for _, in := range c.inputs {
		if !in.hit {
			c.cache.Put(in.key, entryFromResult(results[in.batchIdx]))
		}
	}
	return nil
}

// GetResult returns the (policy, value) for the i-th AddInput call:
// the cached entry for a hit, or the network's result from the last
// ComputePending for a miss.
func (c *Computation) GetResult(i int) network.EvalResult {
	in := c.inputs[i]
	if in.hit {
		return resultFromEntry(in.entry)
	}
	return c.results[in.batchIdx]
}
