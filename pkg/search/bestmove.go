package search

import (
	"math"
	"math/rand"

	"github.com/xqzero/ccsearch/pkg/tree"
)

// qToCentipawns converts a [-1,1] Q value to the centipawn-equivalent
// units ThinkingInfo reports, using the same logistic scale UCI engines
// conventionally use (400 centipawns ≈ one "pawn" of win probability).
func qToCentipawns(q tree.Result) int {
	const scale = 400.0
	clamped := math.Max(-0.999999, math.Min(0.999999, float64(q)))
	return int(scale * math.Log((1+clamped)/(1-clamped)))
}

// pickBestChildIndex returns the index of root's child edge chosen
// under the no-temperature rule: highest visit count, ties broken by
// Q then insertion order (spec §4.4). An edge whose child is not
// materialized counts as zero visits. Returns -1 if root has no child
// edges.
func pickBestChildIndex[M comparable](root *tree.Node[M]) int {
	edges := root.Edges()
	best := -1
	var bestVisits int32 = -1
	var bestQ tree.Result

	for i := range edges {
		child := edges[i].Child()
		var visits int32
		var q tree.Result
		if child != nil {
			visits = child.RealVisits()
			// child.Q()/TerminalValue() are in the child's own
			// side-to-move perspective; negate into root's perspective
			// before comparing, same convention as tree.BestChild.
			if child.Terminal() {
				q = -child.TerminalValue()
			} else {
				q = -child.Q()
			}
		}

		switch {
		case visits > bestVisits:
			best, bestVisits, bestQ = i, visits, q
		case visits == bestVisits && best != -1 && q > bestQ:
			best, bestQ = i, q
		}
	}
	return best
}

// pickTemperatureChildIndex samples a root child with probability
// proportional to N_i^(1/T), falling back to the no-temperature rule
// when at most one child has been visited (spec §4.4).
func pickTemperatureChildIndex[M comparable](root *tree.Node[M], temperature float64, rnd *rand.Rand) int {
	edges := root.Edges()
	weights := make([]float64, len(edges))
	var total float64
	visited := 0

	for i := range edges {
		child := edges[i].Child()
		if child == nil {
			continue
		}
		v := float64(child.RealVisits())
		if v <= 0 {
			continue
		}
		visited++
		w := math.Pow(v, 1/temperature)
		weights[i] = w
		total += w
	}

	if visited <= 1 || total <= 0 {
		return pickBestChildIndex(root)
	}

	r := rnd.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// ponderMove returns the most-visited grandchild along bestIdx, or the
// zero move if best has no materialized child or that child has none.
func ponderMove[M comparable](root *tree.Node[M], bestIdx int) M {
	var zero M
	if bestIdx < 0 {
		return zero
	}
	edges := root.Edges()
	child := edges[bestIdx].Child()
	if child == nil || !child.Expanded() {
		return zero
	}
	grandIdx := pickBestChildIndex(child)
	if grandIdx < 0 || child.Edges()[grandIdx].Child() == nil {
		return zero
	}
	return child.Edges()[grandIdx].Move
}

// principalVariation follows the most-visited child repeatedly from
// root, stopping at an unexpanded or terminal node (spec §4.4).
func principalVariation[M comparable](root *tree.Node[M]) []M {
	var pv []M
	node := root
	for node.Expanded() && !node.Terminal() {
		idx := pickBestChildIndex(node)
		if idx < 0 {
			break
		}
		edge := &node.Edges()[idx]
		child := edge.Child()
		pv = append(pv, edge.Move)
		if child == nil {
			break
		}
		node = child
	}
	return pv
}
