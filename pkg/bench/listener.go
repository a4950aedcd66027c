package bench

import (
	"fmt"
	"sync"

	"github.com/muesli/termenv"
)

// Listener observes an Arena run. OnMoveMade fires after every ply,
// OnGameFinished after every completed game, OnSummary exactly once
// at the end.
type Listener interface {
	OnMoveMade(GameProgress)
	OnGameFinished(GameProgress)
	OnSummary(Summary)
}

// NoopListener discards everything, the default for callers that only
// want the returned Summary.
type NoopListener struct{}

func (NoopListener) OnMoveMade(GameProgress)     {}
func (NoopListener) OnGameFinished(GameProgress) {}
func (NoopListener) OnSummary(Summary)           {}

// TermListener prints one colorized line per finished game and a bold
// summary line at the end, the way cmd/xiangqi-search-demo colorizes
// search output via pkg/engineio/format.go's termenv profile.
type TermListener struct {
	mu      sync.Mutex
	profile termenv.Profile
}

func NewTermListener() *TermListener {
	return &TermListener{profile: termenv.ColorProfile()}
}

func (l *TermListener) OnMoveMade(GameProgress) {}

func (l *TermListener) OnGameFinished(p GameProgress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := termenv.String(fmt.Sprintf(
		"worker %d game %d finished: %d-%d-%d",
		p.WorkerID, p.GameIndex, p.Agent1Wins, p.Agent2Wins, p.Draws,
	)).Foreground(l.profile.Color("8"))
	fmt.Println(line)
}

func (l *TermListener) OnSummary(s Summary) {
	line := termenv.String(fmt.Sprintf(
		"%d games, %d workers: agent1 %d, agent2 %d, draws %d",
		s.TotalGames, s.Workers, s.Agent1Wins, s.Agent2Wins, s.Draws,
	)).Bold()
	fmt.Println(line)
}
