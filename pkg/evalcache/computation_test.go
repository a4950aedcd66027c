package evalcache

import (
	"testing"

	"github.com/xqzero/ccsearch/pkg/network"
)

func TestAddInputMissThenHit(t *testing.T) {
	cache := New(16)
	net := network.NewStub(func(encoded []float32) network.EvalResult {
		return network.EvalResult{Policy: []float32{0.5, 0.5}, Value: 0.25}
	})

	comp := NewComputation(cache, net)
	if hit, _ := comp.AddInput(1, []float32{1, 2, 3}); hit {
		t.Fatalf("expected miss on empty cache")
	}
	if got := comp.PendingBatchSize(); got != 1 {
		t.Fatalf("PendingBatchSize() = %d, want 1", got)
	}

	if err := comp.ComputePending(); err != nil {
		t.Fatalf("ComputePending: %v", err)
	}
	if net.Calls() != 1 {
		t.Fatalf("Calls() = %d, want 1", net.Calls())
	}

	result := comp.GetResult(0)
	if result.Value != 0.25 {
		t.Fatalf("GetResult(0).Value = %v, want 0.25", result.Value)
	}

	if _, ok := cache.Get(1); !ok {
		t.Fatalf("expected ComputePending to write through to cache")
	}

	comp2 := NewComputation(cache, net)
	if hit, _ := comp2.AddInput(1, []float32{1, 2, 3}); !hit {
		t.Fatalf("expected hit after write-through")
	}
	if got := comp2.PendingBatchSize(); got != 0 {
		t.Fatalf("PendingBatchSize() = %d, want 0 on an all-hit computation", got)
	}
	if err := comp2.ComputePending(); err != nil {
		t.Fatalf("ComputePending on empty batch: %v", err)
	}
	if net.Calls() != 1 {
		t.Fatalf("Calls() = %d, want still 1 (no batch to compute)", net.Calls())
	}
}

func TestComputePendingBatchesMultipleMisses(t *testing.T) {
	cache := New(16)
	net := network.NewStub(func(encoded []float32) network.EvalResult {
		return network.EvalResult{Policy: []float32{1}, Value: encoded[0]}
	})

	comp := NewComputation(cache, net)
	keys := []uint64{10, 20, 30}
	for i, k := range keys {
		if hit, _ := comp.AddInput(k, []float32{float32(i)}); hit {
			t.Fatalf("input %d: expected miss", i)
		}
	}
	if got := comp.PendingBatchSize(); got != 3 {
		t.Fatalf("PendingBatchSize() = %d, want 3", got)
	}

	if err := comp.ComputePending(); err != nil {
		t.Fatalf("ComputePending: %v", err)
	}
	if net.Calls() != 1 {
		t.Fatalf("Calls() = %d, want exactly 1 batched call", net.Calls())
	}

	for i := range keys {
		got := comp.GetResult(i).Value
		if got != float32(i) {
			t.Fatalf("GetResult(%d).Value = %v, want %v", i, got, i)
		}
	}
	if cache.Len() != 3 {
		t.Fatalf("cache.Len() = %d, want 3 after write-through", cache.Len())
	}
}

func TestComputePendingNoopOnAllHits(t *testing.T) {
	cache := New(16)
	cache.Put(42, Entry{Policy: []float32{1}, Value: 0.9})

	net := network.NewStub(nil)
	comp := NewComputation(cache, net)
	if hit, _ := comp.AddInput(42, []float32{0}); !hit {
		t.Fatalf("expected hit on pre-populated cache")
	}
	if err := comp.ComputePending(); err != nil {
		t.Fatalf("ComputePending: %v", err)
	}
	if net.Calls() != 0 {
		t.Fatalf("Calls() = %d, want 0 when every input was a hit", net.Calls())
	}
	if got := comp.GetResult(0).Value; got != 0.9 {
		t.Fatalf("GetResult(0).Value = %v, want 0.9", got)
	}
}

func TestKeyFoldsHistory(t *testing.T) {
	base := Key(100, nil, 0)
	if base != 100 {
		t.Fatalf("Key with no history = %d, want passthrough 100", base)
	}

	withHistory := Key(100, []uint64{1, 2, 3}, 2)
	if withHistory == base {
		t.Fatalf("Key with history should differ from the bare position hash")
	}

	again := Key(100, []uint64{1, 2, 3}, 2)
	if again != withHistory {
		t.Fatalf("Key is not deterministic for identical inputs")
	}

	shorterHistory := Key(100, []uint64{1, 2, 3}, 1)
	if shorterHistory == withHistory {
		t.Fatalf("different historyLen should change the folded key")
	}
}

func TestCachePutEvictsWithinCapacity(t *testing.T) {
	cache := New(shardCount) // 1 entry per shard
	for i := uint64(0); i < 4; i++ {
		// Every key is a multiple of shardCount, so all land in shard 0.
		cache.Put(i*shardCount, Entry{Value: float32(i)})
	}
	if got := cache.Len(); got != 1 {
		t.Fatalf("cache.Len() = %d, want 1 (one-entry shard evicts on each new key)", got)
	}
}
