package bench

import (
	"sync/atomic"

	"github.com/xqzero/ccsearch/pkg/network"
	"github.com/xqzero/ccsearch/pkg/search"
)

// MatchResult names which configured agent won a single game, or that
// it was drawn.
type MatchResult int

const (
	Agent1Win MatchResult = 1
	Agent2Win MatchResult = -1
	Draw      MatchResult = 0
)

// Stats accumulates match results across every worker goroutine in an
// Arena run, mirrored after the teacher's atomic win/draw counters.
type Stats struct {
	agent1Wins uint32
	agent2Wins uint32
	draws      uint32
}

func (s *Stats) record(r MatchResult) {
	switch r {
	case Agent1Win:
		atomic.AddUint32(&s.agent1Wins, 1)
	case Agent2Win:
		atomic.AddUint32(&s.agent2Wins, 1)
	default:
		atomic.AddUint32(&s.draws, 1)
	}
}

func (s *Stats) Total() int      { return s.Agent1Wins() + s.Agent2Wins() + s.Draws() }
func (s *Stats) Agent1Wins() int { return int(atomic.LoadUint32(&s.agent1Wins)) }
func (s *Stats) Agent2Wins() int { return int(atomic.LoadUint32(&s.agent2Wins)) }
func (s *Stats) Draws() int      { return int(atomic.LoadUint32(&s.draws)) }

// AgentConfig names one side of a match: the search Options and
// Limits under test, the thread count it searches with, and the
// network backend it evaluates against. CacheCapacity defaults to a
// modest in-memory size when zero; arenas comparing tuning changes
// typically give both agents the same Net (identical weights) and
// differ only in Options.
type AgentConfig struct {
	Options       *search.Options
	Limits        *search.Limits
	Threads       int
	Net           network.Network
	CacheCapacity int
}

// GameProgress is reported to a Listener after every move and every
// finished game.
type GameProgress struct {
	WorkerID   int
	GameIndex  int
	MoveNum    int
	Agent1Wins int
	Agent2Wins int
	Draws      int
}

// Summary is the final tally of an Arena run.
type Summary struct {
	TotalGames int `json:"total_games"`
	Agent1Wins int `json:"agent1_wins"`
	Agent2Wins int `json:"agent2_wins"`
	Draws      int `json:"draws"`
	Workers    int `json:"workers"`
}
