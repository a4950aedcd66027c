package network

import "errors"

// ErrUnknownBackend is returned by Create when name was never
// registered, matching NetworkFactory::Create's "Unknown backend"
// exception.
var ErrUnknownBackend = errors.New("network: unknown backend")

// ErrBackendInitFailure wraps any error a Factory returns while
// constructing a Network, surfaced before search begins per spec §7.
var ErrBackendInitFailure = errors.New("network: backend init failure")
