package tree

import "testing"

type move int

func TestExtendAndBackupInvariant(t *testing.T) {
	tr := New[move]()
	root := tr.Root()
	root.Backup(0) // the visit that created the root

	if err := tr.Extend(root, []move{1, 2, 3}, []float32{0.5, 0.3, 0.2}); err != nil {
		t.Fatalf("Extend: %v", err)
	}

	for i := range root.Edges() {
		child, _ := tr.MaterializeChild(root, &root.edges[i])
		// Backup is per node; walk to the root with the sign flipped,
		// the way backupPath in pkg/search does.
		child.Backup(0.5)
		root.Backup(-0.5)
	}

	// Invariant 1: N(parent) == 1 + sum(children N)
	var childSum int32
	for i := range root.Edges() {
		if c := root.edges[i].Child(); c != nil {
			childSum += c.N()
		}
	}
	if root.N() != 1+childSum {
		t.Fatalf("invariant violated: root.N=%d, 1+childSum=%d", root.N(), 1+childSum)
	}
}

func TestDoubleExtendFails(t *testing.T) {
	tr := New[move]()
	root := tr.Root()
	if err := tr.Extend(root, []move{1}, []float32{1}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Extend(root, []move{1}, []float32{1}); err != ErrAlreadyExtended {
		t.Fatalf("expected ErrAlreadyExtended, got %v", err)
	}
}

func TestVirtualLossRoundTrips(t *testing.T) {
	tr := New[move]()
	root := tr.Root()
	root.AddVirtualLoss(2)
	if root.VirtualLoss() != 2 {
		t.Fatalf("expected VL=2, got %d", root.VirtualLoss())
	}
	root.RemoveVirtualLoss(2)
	if root.VirtualLoss() != 0 {
		t.Fatalf("invariant 2 violated: VL at rest = %d", root.VirtualLoss())
	}
	_ = tr
}

func TestBestChildPrefersHigherPriorWhenUnvisited(t *testing.T) {
	tr := New[move]()
	root := tr.Root()
	root.Backup(0)
	if err := tr.Extend(root, []move{1, 2}, []float32{0.9, 0.1}); err != nil {
		t.Fatal(err)
	}

	idx := BestChild(root, PUCTSelector(1.5), 0.1)
	if root.Edges()[idx].Move != move(1) {
		t.Fatalf("expected move 1 (higher prior) to be picked first, got %v", root.Edges()[idx].Move)
	}
}

// TestBestChildPicksWinningTerminalOverLosingOne is spec scenario S4's
// asymmetric-value case: a child terminal in a Loss for its own side
// to move is a win for the parent and must be preferred over a child
// terminal in a Win for its own side to move, even though the raw
// TerminalValue of the first is the lower number.
func TestBestChildPicksWinningTerminalOverLosingOne(t *testing.T) {
	tr := New[move]()
	root := tr.Root()
	root.Backup(0)
	if err := tr.Extend(root, []move{1, 2}, []float32{0.5, 0.5}); err != nil {
		t.Fatal(err)
	}
	edges := root.Edges()
	losing, _ := tr.MaterializeChild(root, &edges[0])  // bad for its own mover
	winning, _ := tr.MaterializeChild(root, &edges[1]) // good for its own mover
	tr.MarkTerminal(losing, -1)
	tr.MarkTerminal(winning, 1)

	idx := BestChild(root, PUCTSelector(1.5), 0.1)
	if root.Edges()[idx].Move != move(1) {
		t.Fatalf("BestChild picked move %v, want move 1 (the child that is a loss for its own mover, a win for the parent)", root.Edges()[idx].Move)
	}
}

func TestTerminalNodeNeverExtended(t *testing.T) {
	tr := New[move]()
	root := tr.Root()
	tr.MarkTerminal(root, -1)
	if !root.Terminal() {
		t.Fatal("expected root to be terminal")
	}
	if root.TerminalValue() != -1 {
		t.Fatalf("expected terminal value -1, got %v", root.TerminalValue())
	}
}

func TestNormalizePriorsSumsToOne(t *testing.T) {
	raw := []float32{0.1, 0.4, 0.2, 0.3}
	legal := []int{0, 2, 3}
	priors := NormalizePriors(raw, legal, 1.0)

	var sum float32
	for _, p := range priors {
		sum += p
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("priors do not sum to 1: %v (sum=%v)", priors, sum)
	}
}

func TestAdvanceReusesSubtree(t *testing.T) {
	tr := New[move]()
	root := tr.Root()
	root.Backup(0)
	if err := tr.Extend(root, []move{1, 2}, []float32{0.5, 0.5}); err != nil {
		t.Fatal(err)
	}
	child, _ := tr.MaterializeChild(root, &root.edges[0])
	child.Backup(0.7)
	child.Backup(0.2)

	wantN := child.N()
	newRoot, ok := tr.Advance(move(1))
	if !ok {
		t.Fatal("Advance failed to find child")
	}
	if newRoot.N() != wantN {
		t.Fatalf("invariant 6 violated: new root N=%d, want %d", newRoot.N(), wantN)
	}
	if newRoot.Parent() != nil {
		t.Fatal("new root must have no parent back-reference")
	}
}
