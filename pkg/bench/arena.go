// Package bench plays a series of games between two search.Options
// configurations and tallies the results, the way a tuning change
// gets measured against a baseline before it ships. Grounded on the
// teacher's versus-arena tournament (parallel workers, atomic
// win/draw counters, per-worker game distribution), adapted to run
// through search.Controller and a position.Clonable position instead
// of a generic MCTS/position pair, and to read the winner straight
// off Position.Terminal's Outcome instead of reconstructing it from
// move-count parity.
package bench

import (
	"math/rand"
	"sync"
	"time"

	"github.com/xqzero/ccsearch/pkg/evalcache"
	"github.com/xqzero/ccsearch/pkg/position"
	"github.com/xqzero/ccsearch/pkg/search"
	"github.com/xqzero/ccsearch/pkg/tree"
)

const defaultCacheCapacity = 1 << 14

// Arena plays NGames games between Agent1 and Agent2, split evenly
// across NThreads worker goroutines, choosing at random for each game
// which agent moves first.
type Arena[M comparable, P position.Clonable[M, P]] struct {
	Stats
	Agent1   AgentConfig
	Agent2   AgentConfig
	NGames   int
	NThreads int
	newPos   func() P

	wg sync.WaitGroup
}

// NewArena builds an Arena with the teacher's defaults (100 games, 2
// worker threads); callers override via Setup. newPos must return a
// fresh starting position each call, since every game mutates its own
// copy via MakeMove rather than cloning a shared board.
func NewArena[M comparable, P position.Clonable[M, P]](agent1, agent2 AgentConfig, newPos func() P) *Arena[M, P] {
	return &Arena[M, P]{
		Agent1:   agent1,
		Agent2:   agent2,
		NGames:   100,
		NThreads: 2,
		newPos:   newPos,
	}
}

func (a *Arena[M, P]) Setup(nGames, nThreads int) {
	a.NGames = nGames
	a.NThreads = nThreads
}

// Run plays every game to completion and blocks until all worker
// goroutines are done, returning the final Summary. listener may be
// nil.
func (a *Arena[M, P]) Run(listener Listener) Summary {
	if listener == nil {
		listener = NoopListener{}
	}

	perWorker := a.NGames / a.NThreads
	rest := a.NGames % a.NThreads

	for i := 0; i < a.NThreads; i++ {
		n := perWorker
		if i < rest {
			n++
		}
		a.wg.Add(1)
		go a.worker(i, n, listener)
	}
	a.wg.Wait()

	summary := Summary{
		TotalGames: a.Total(),
		Agent1Wins: a.Agent1Wins(),
		Agent2Wins: a.Agent2Wins(),
		Draws:      a.Draws(),
		Workers:    a.NThreads,
	}
	listener.OnSummary(summary)
	return summary
}

func (a *Arena[M, P]) worker(id, nGames int, listener Listener) {
	defer a.wg.Done()
	rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	for g := 0; g < nGames; g++ {
		agent1First := rnd.Intn(2) == 0
		result := a.playGame(id, g, agent1First, listener)
		a.Stats.record(result)
		listener.OnGameFinished(GameProgress{
			WorkerID: id, GameIndex: g,
			Agent1Wins: a.Agent1Wins(), Agent2Wins: a.Agent2Wins(), Draws: a.Draws(),
		})
	}
}

// playGame runs one game on a single shared position, each agent
// searching in turn and advancing its own persistent tree by the move
// actually played by either side (spec's tree-reuse Advance, exercised
// here the same way a real match would reuse it ply to ply).
func (a *Arena[M, P]) playGame(workerID, gameIndex int, agent1First bool, listener Listener) MatchResult {
	first := newAgentState[M, P](a.Agent1)
	second := newAgentState[M, P](a.Agent2)
	if !agent1First {
		first, second = second, first
	}

	pos := a.newPos()
	moveNum := 0

	for {
		outcome, over := pos.Terminal()
		if over {
			return resultFor(outcome, moveNum, agent1First)
		}

		toMove := first
		if moveNum%2 == 1 {
			toMove = second
		}

		move := toMove.selectMove(pos)
		pos.MakeMove(move)
		first.advance(move)
		second.advance(move)
		moveNum++

		listener.OnMoveMade(GameProgress{WorkerID: workerID, GameIndex: gameIndex, MoveNum: moveNum})
	}
}

// resultFor converts the outcome Position.Terminal reports for the
// side stuck to move (the side that just lost, drew, or won from its
// own perspective) into which configured agent that was.
func resultFor(outcome position.Outcome, moveNum int, agent1First bool) MatchResult {
	if outcome == position.Draw {
		return Draw
	}
	agent1ToMove := (moveNum%2 == 0) == agent1First
	sideToMoveWon := outcome == position.Win
	if agent1ToMove == sideToMoveWon {
		return Agent1Win
	}
	return Agent2Win
}

// agentState is one agent's live search state for a single game: its
// own tree and cache, carried across moves via Tree.Advance so later
// searches reuse the subtree the opponent's reply landed in.
type agentState[M comparable, P position.Clonable[M, P]] struct {
	cfg   AgentConfig
	tree  *tree.Tree[M]
	cache *evalcache.Cache
}

func newAgentState[M comparable, P position.Clonable[M, P]](cfg AgentConfig) *agentState[M, P] {
	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &agentState[M, P]{cfg: cfg, tree: tree.New[M](), cache: evalcache.New(capacity)}
}

func (s *agentState[M, P]) selectMove(pos P) M {
	ctrl := search.NewController[M, P](s.tree, s.cache, s.cfg.Net, s.cfg.Options, s.cfg.Limits, pos)
	return ctrl.RunBlocking(s.cfg.Threads).Best
}

// advance keeps the tree anchored to the move actually played,
// whichever side played it, falling back to a fresh tree when the
// move fell outside the materialized frontier (eg. the opponent's
// reply was never expanded on this agent's side of the search).
func (s *agentState[M, P]) advance(m M) {
	if _, ok := s.tree.Advance(m); !ok {
		s.tree = tree.New[M]()
	}
}
