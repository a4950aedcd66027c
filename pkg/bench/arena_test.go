package bench

import (
	"testing"

	"github.com/xqzero/ccsearch/pkg/network"
	"github.com/xqzero/ccsearch/pkg/position"
	"github.com/xqzero/ccsearch/pkg/search"
)

func uniformStub() *network.Stub {
	return network.NewStub(func(encoded []float32) network.EvalResult {
		return network.EvalResult{Policy: []float32{1, 1}, Value: 0}
	})
}

func oneVisitConfig() AgentConfig {
	return AgentConfig{
		Options: search.DefaultOptions(),
		Limits:  search.DefaultLimits().SetVisits(4),
		Threads: 1,
		Net:     uniformStub(),
	}
}

// TestArenaPlaysEveryGame checks that Run distributes and completes
// exactly NGames games across every worker, a Stones(5) pile being
// short enough to finish in a handful of plies regardless of which
// agent moves first.
func TestArenaPlaysEveryGame(t *testing.T) {
	arena := NewArena[position.Take, *position.Stones](
		oneVisitConfig(), oneVisitConfig(),
		func() *position.Stones { return position.NewStones(5) },
	)
	arena.Setup(8, 2)

	summary := arena.Run(nil)
	if summary.TotalGames != 8 {
		t.Fatalf("TotalGames = %d, want 8", summary.TotalGames)
	}
	if got := summary.Agent1Wins + summary.Agent2Wins + summary.Draws; got != 8 {
		t.Fatalf("wins+draws = %d, want 8", got)
	}
}

// TestArenaUnevenSplitCoversEveryGame checks the worker-distribution
// remainder: 7 games over 3 threads must not drop or double-count any
// game (perWorker=2, rest=1, one worker plays 3).
func TestArenaUnevenSplitCoversEveryGame(t *testing.T) {
	arena := NewArena[position.Take, *position.Stones](
		oneVisitConfig(), oneVisitConfig(),
		func() *position.Stones { return position.NewStones(3) },
	)
	arena.Setup(7, 3)

	summary := arena.Run(nil)
	if summary.TotalGames != 7 {
		t.Fatalf("TotalGames = %d, want 7", summary.TotalGames)
	}
}

// TestResultForAgent1ToMoveLoss checks the outcome-to-MatchResult
// mapping directly: a Loss outcome for the side to move, with agent1
// having gone first and an even number of moves played (so agent1 is
// again the side to move), means agent1 lost.
func TestResultForAgent1ToMoveLoss(t *testing.T) {
	got := resultFor(position.Loss, 4, true)
	if got != Agent2Win {
		t.Fatalf("resultFor = %v, want Agent2Win", got)
	}
}

func TestResultForAgent2ToMoveLoss(t *testing.T) {
	got := resultFor(position.Loss, 3, true)
	if got != Agent1Win {
		t.Fatalf("resultFor = %v, want Agent1Win (odd moveNum flips the side to move to agent2, which just lost)", got)
	}
}

func TestResultForDrawIgnoresMoveParity(t *testing.T) {
	if got := resultFor(position.Draw, 7, false); got != Draw {
		t.Fatalf("resultFor = %v, want Draw", got)
	}
}

func TestStatsRecordIsConcurrencySafe(t *testing.T) {
	var s Stats
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				s.record(Agent1Win)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	if s.Agent1Wins() != 400 {
		t.Fatalf("Agent1Wins() = %d, want 400", s.Agent1Wins())
	}
}
