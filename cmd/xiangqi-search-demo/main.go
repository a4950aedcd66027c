// Command xiangqi-search-demo drives the search core end to end
// against the toy Stones position, the way examples/chess/main.go
// drives the teacher's ucb.Mcts against dragontoothmg: build a
// controller, register the two callbacks, run, print what came back.
// Stones is not Chinese Chess; it exists to exercise every package
// (tree, evalcache, network, position, search, engineio) without a
// real board and neural backend.
package main

import (
	"flag"
	"fmt"

	"github.com/xqzero/ccsearch/pkg/engineio"
	"github.com/xqzero/ccsearch/pkg/evalcache"
	"github.com/xqzero/ccsearch/pkg/network"
	"github.com/xqzero/ccsearch/pkg/position"
	"github.com/xqzero/ccsearch/pkg/search"
	"github.com/xqzero/ccsearch/pkg/tree"
)

func main() {
	stones := flag.Int("stones", 21, "pile size for the Stones demo position")
	threads := flag.Int("threads", 4, "number of search worker goroutines")
	visits := flag.Int64("visits", 20000, "visit limit, -1 for none")
	timeMs := flag.Int64("time", -1, "time limit in milliseconds, -1 for none")
	temperature := flag.Float64("temperature", 0, "root move sampling temperature, 0 for the no-temperature rule")
	verbose := flag.Bool("verbose", false, "enable per-search metrics collection")
	cache := flag.String("cache", "", "directory for a badger-backed persistent cache, empty to use memory only")
	flag.Parse()

	net, err := network.Create("stub", nil)
	if err != nil {
		fmt.Println("failed to create network backend:", err)
		return
	}
	defer net.Close()

	evalCache, closeCache := openCache(*cache)
	if closeCache != nil {
		defer closeCache()
	}

	tr := tree.New[position.Take]()
	pos := position.NewStones(*stones)

	opts := search.DefaultOptions().
		SetTemperature(*temperature).
		SetVerboseStats(*verbose)
	limits := search.DefaultLimits()
	if *visits >= 0 {
		limits.SetVisits(*visits)
	}
	if *timeMs >= 0 {
		limits.SetTimeMs(*timeMs)
	}

	ctrl := search.NewController[position.Take, *position.Stones](
		tr, evalCache, net, opts, limits, pos,
		search.WithThinkingCallback[position.Take, *position.Stones](func(info engineio.ThinkingInfo[position.Take]) {
			fmt.Println(engineio.FormatThinking(info))
		}),
		search.WithBestMoveCallback[position.Take, *position.Stones](func(info engineio.BestMoveInfo[position.Take]) {
			fmt.Println(engineio.FormatBestMove(info))
		}),
	)

	ctrl.RunBlocking(*threads)

	m := ctrl.Metrics()
	fmt.Printf("stop reason: %s, playouts: %d, network batches: %d, cache hits: %d\n",
		ctrl.StopReason(), m.Playouts, m.NetworkBatches, m.CacheHits)
}

// openCache builds either an in-memory cache or, when dir is set, a
// badger-backed one preloaded from disk and snapshotted back to it on
// exit, per pkg/evalcache/persist.go's opt-in persistence.
func openCache(dir string) (*evalcache.Cache, func()) {
	if dir == "" {
		return evalcache.New(1 << 16), nil
	}

	pc, err := evalcache.NewBadgerBackedCache(dir, 1<<16)
	if err != nil {
		fmt.Println("failed to open persistent cache, falling back to memory:", err)
		return evalcache.New(1 << 16), nil
	}
	if err := pc.Load(); err != nil {
		fmt.Println("failed to load persistent cache:", err)
	}
	return pc.Cache, func() {
		if err := pc.Snapshot(); err != nil {
			fmt.Println("failed to snapshot persistent cache:", err)
		}
		pc.Close()
	}
}
