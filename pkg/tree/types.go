// Package tree implements the search tree data model: nodes, edges,
// virtual loss accounting, PUCT selection and expansion with prior
// normalization.
package tree

// Move identifies an edge. Implementations must use a zero value that
// never denotes a real move on the board, since a few operations (eg.
// reporting a missing ponder move) return the zero value to mean "none".
type Move comparable

// Result is a value in [-1, 1] from the mover's perspective, matching
// the network's value head and terminal-position scoring.
type Result float64
