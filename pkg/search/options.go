package search

// Option name strings, the UCI-adjacent equivalent of
// original_source/src/mcts/params.cc's kMiniBatchSizeStr and friends:
// exported so a host protocol loop can register these names for its
// own option-setting commands without pkg/search knowing about any
// particular protocol.
const (
	OptionMiniBatchSize         = "MiniBatchSize"
	OptionMaxPrefetchBatch      = "MaxPrefetchBatch"
	OptionCpuct                 = "Cpuct"
	OptionTemperature           = "Temperature"
	OptionTempDecayMoves        = "TempDecayMoves"
	OptionDirichletNoise        = "DirichletNoise"
	OptionVerboseStats          = "VerboseStats"
	OptionSmartPruning          = "SmartPruning"
	OptionFpuReduction          = "FpuReduction"
	OptionCacheHistoryLength    = "CacheHistoryLength"
	OptionPolicySoftmaxTemp     = "PolicySoftmaxTemp"
	OptionAllowedNodeCollisions = "AllowedNodeCollisions"
)

// Options carries every tunable in spec §6, verbatim. Zero value is
// not meaningful for most fields; use DefaultOptions().
type Options struct {
	MiniBatchSize         int
	MaxPrefetchBatch      int
	Cpuct                 float64
	Temperature           float64
	TempDecayMoves        int
	DirichletNoise        bool
	DirichletAlpha        float64
	DirichletEps          float64
	VerboseStats          bool
	SmartPruning          bool
	FpuReduction          float64
	CacheHistoryLength    int
	PolicySoftmaxTemp     float64
	AllowedNodeCollisions int
}

// DefaultOptions returns the option set a fresh Controller starts
// with, in the fluent-builder style of the teacher's DefaultLimits.
func DefaultOptions() *Options {
	return &Options{
		MiniBatchSize:         32,
		MaxPrefetchBatch:      0,
		Cpuct:                 1.5,
		Temperature:           0,
		TempDecayMoves:        0,
		DirichletNoise:        false,
		DirichletAlpha:        0.3,
		DirichletEps:          0.25,
		VerboseStats:          false,
		SmartPruning:          true,
		FpuReduction:          0.25,
		CacheHistoryLength:    0,
		PolicySoftmaxTemp:     1,
		AllowedNodeCollisions: 32,
	}
}

func (o *Options) SetMiniBatchSize(n int) *Options {
	o.MiniBatchSize = n
	return o
}

func (o *Options) SetMaxPrefetchBatch(n int) *Options {
	o.MaxPrefetchBatch = n
	return o
}

func (o *Options) SetCpuct(c float64) *Options {
	o.Cpuct = c
	return o
}

func (o *Options) SetTemperature(t float64) *Options {
	o.Temperature = t
	return o
}

func (o *Options) SetTempDecayMoves(n int) *Options {
	o.TempDecayMoves = n
	return o
}

func (o *Options) SetDirichletNoise(enabled bool, alpha, eps float64) *Options {
	o.DirichletNoise = enabled
	o.DirichletAlpha = alpha
	o.DirichletEps = eps
	return o
}

func (o *Options) SetVerboseStats(v bool) *Options {
	o.VerboseStats = v
	return o
}

func (o *Options) SetSmartPruning(v bool) *Options {
	o.SmartPruning = v
	return o
}

func (o *Options) SetFpuReduction(v float64) *Options {
	o.FpuReduction = v
	return o
}

func (o *Options) SetCacheHistoryLength(n int) *Options {
	o.CacheHistoryLength = n
	return o
}

func (o *Options) SetPolicySoftmaxTemp(t float64) *Options {
	o.PolicySoftmaxTemp = t
	return o
}

func (o *Options) SetAllowedNodeCollisions(n int) *Options {
	o.AllowedNodeCollisions = n
	return o
}
