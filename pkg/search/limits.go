package search

// Limits bounds a single search, the fluent-builder counterpart of
// the teacher's Limits/DefaultLimits pair, extended with SearchMoves
// per original_source/src/mcts/search.h's SearchLimits.searchmoves
// (spec.md §9 open question (b)).
type Limits struct {
	Visits      int64
	Playouts    int64
	TimeMs      int64
	Infinite    bool
	SearchMoves []int // root edge indices for the searchmoves stop condition; empty disables it. Selection is not restricted to them.
}

const (
	NoLimit = int64(-1)
)

// DefaultLimits returns an infinite search: every scalar limit
// disabled, matching the teacher's DefaultLimits()'s Infinite default.
func DefaultLimits() *Limits {
	return &Limits{
		Visits:   NoLimit,
		Playouts: NoLimit,
		TimeMs:   NoLimit,
		Infinite: true,
	}
}

func (l *Limits) SetVisits(v int64) *Limits {
	l.Visits = v
	l.Infinite = false
	return l
}

func (l *Limits) SetPlayouts(p int64) *Limits {
	l.Playouts = p
	l.Infinite = false
	return l
}

func (l *Limits) SetTimeMs(ms int64) *Limits {
	l.TimeMs = ms
	l.Infinite = false
	return l
}

func (l *Limits) SetInfinite(v bool) *Limits {
	l.Infinite = v
	return l
}

func (l *Limits) SetSearchMoves(idx []int) *Limits {
	l.SearchMoves = idx
	return l
}

// normalize applies spec §7's LimitMalformed rule: if every scalar
// limit is disabled and Infinite was left false (a malformed caller
// intent, not a deliberate infinite search), treat it as infinite
// instead of a zero-length search. Returns whether normalization fired,
// for callers that want to log the ErrLimitMalformed warning.
func (l *Limits) normalize() bool {
	if l.Infinite {
		return false
	}
	if l.Visits < 0 && l.Playouts < 0 && l.TimeMs < 0 {
		l.Infinite = true
		return true
	}
	return false
}

func (l *Limits) hasVisits() bool   { return !l.Infinite && l.Visits >= 0 }
func (l *Limits) hasPlayouts() bool { return !l.Infinite && l.Playouts >= 0 }
func (l *Limits) hasTime() bool     { return !l.Infinite && l.TimeMs >= 0 }
