package search

import (
	"os"

	"github.com/rs/zerolog"
)

// log is a package-level logger, overridable by a host process via
// SetLogger, mirroring risk-agent/searcher/mcts.go's use of the
// global zerolog/log logger. It carries the malformed-limits warning
// from NewController and the failed-iteration and give-up messages
// from the worker loop; search start/stop and the stop reason are not
// logged.
var log zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "search").Logger()

// SetLogger replaces the package-level logger used for lifecycle
// events. Safe to call before starting any controller; not safe to
// call concurrently with an in-progress search.
func SetLogger(l zerolog.Logger) {
	log = l
}
