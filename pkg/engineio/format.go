package engineio

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// profile is the termenv color profile detected once at package init,
// the way a UCI-adjacent terminal front-end would colorize its own
// info lines without depending on the search core for it.
var profile = termenv.ColorProfile()

// FormatThinking renders a ThinkingInfo line for a terminal: the
// score colored green when the side to move stands better, red when
// worse, and the PV dimmed. Intended for cmd/xiangqi-search-demo, not
// for a real UCI "info" line (which has no color).
func FormatThinking[M comparable](info ThinkingInfo[M]) string {
	score := termenv.String(fmt.Sprintf("%+d", info.ScoreCp))
	switch {
	case info.ScoreCp > 0:
		score = score.Foreground(profile.Color("2")) // green
	case info.ScoreCp < 0:
		score = score.Foreground(profile.Color("1")) // red
	}

	pvStrs := make([]string, len(info.Pv))
	for i, m := range info.Pv {
		pvStrs[i] = fmt.Sprintf("%v", m)
	}
	pv := termenv.String(strings.Join(pvStrs, " ")).Faint()

	return fmt.Sprintf(
		"depth %d nodes %d nps %d time %dms score %s pv %s",
		info.Depth, info.Nodes, info.Nps, info.TimeMs, score, pv,
	)
}

// FormatBestMove renders the final announcement line.
func FormatBestMove[M comparable](info BestMoveInfo[M]) string {
	best := termenv.String(fmt.Sprintf("%v", info.Best)).Bold()
	var zero M
	if info.Ponder == zero {
		return fmt.Sprintf("bestmove %s", best)
	}
	return fmt.Sprintf("bestmove %s ponder %v", best, info.Ponder)
}
