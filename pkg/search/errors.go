package search

import "errors"

// Sentinel errors, spec §7. Checked with errors.Is at call sites.
var (
	ErrInvalidPosition          = errors.New("search: invalid root position")
	ErrUnknownBackend           = errors.New("search: unknown network backend")
	ErrBackendInitFailure       = errors.New("search: network backend init failed")
	ErrNetworkComputationFailure = errors.New("search: network computation failed")
	ErrAlreadyExtended           = errors.New("search: node already extended")
	ErrLimitMalformed            = errors.New("search: all limits negative and infinite=false")
)

// maxIterationRetries bounds the retry-then-abort behavior spec §7
// prescribes for ErrNetworkComputationFailure: after this many
// consecutive failed iterations a worker gives up and signals stop
// with whatever the tree has accumulated so far.
const maxIterationRetries = 3
