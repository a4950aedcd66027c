package tree

import "errors"

// ErrAlreadyExtended is returned by Tree.Extend when the node's
// child-edge vector has already been created, either by a previous
// call or by a concurrent worker. The search worker does not treat it
// as fatal: it backs up the node's current Q instead of the network
// value.
var ErrAlreadyExtended = errors.New("tree: node already extended")
