package network

import "sync/atomic"

// Stub is a deterministic Network used by tests: it returns a fixed
// policy/value pair (or one derived by a user-supplied function of
// the input), with no randomness, so single- and multi-threaded
// searches against it are directly comparable (spec 8 scenario S6).
type Stub struct {
	calls atomic.Int64
	// Eval, if set, computes the result for one encoded input.
	// Defaults to a uniform policy with value 0.
	Eval func(encoded []float32) EvalResult
}

// NewStub creates a Stub with the given per-input evaluator.
func NewStub(eval func(encoded []float32) EvalResult) *Stub {
	return &Stub{Eval: eval}
}

func (s *Stub) Evaluate(batch [][]float32) ([]EvalResult, error) {
	s.calls.Add(1)
	results := make([]EvalResult, len(batch))
	for i, input := range batch {
		if s.Eval != nil {
			results[i] = s.Eval(input)
			continue
		}
		results[i] = EvalResult{Policy: []float32{1}, Value: 0}
	}
	return results, nil
}

func (s *Stub) Close() error { return nil }

// Calls returns the number of Evaluate invocations, used by tests to
// assert how many network batches a search issued (eg. S1 requires
// zero).
func (s *Stub) Calls() int64 { return s.calls.Load() }

func init() {
	Register("stub", 0, func(map[string]string) (Network, error) {
		return NewStub(nil), nil
	})
}
