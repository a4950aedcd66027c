package tree

import "math"

// NormalizePriors extracts the policy values for legalIdx from the
// raw network policy vector, raises each to the power 1/softmaxTemp
// (the probability-space form of dividing logits by softmaxTemp), and
// renormalizes to sum to 1, per spec 4.1 "Expansion". softmaxTemp<=0
// is treated as 1 (no sharpening).
func NormalizePriors(rawPolicy []float32, legalIdx []int, softmaxTemp float64) []float32 {
	if softmaxTemp <= 0 {
		softmaxTemp = 1
	}

	priors := make([]float32, len(legalIdx))
	var sum float64
	for i, idx := range legalIdx {
		p := math.Max(float64(rawPolicy[idx]), 0)
		p = math.Pow(p, 1/softmaxTemp)
		priors[i] = float32(p)
		sum += p
	}

	if sum <= 0 {
		// Degenerate policy (eg. all-zero): fall back to uniform so
		// priors still sum to 1 as the invariant requires.
		uniform := float32(1) / float32(len(priors))
		for i := range priors {
			priors[i] = uniform
		}
		return priors
	}

	for i := range priors {
		priors[i] = float32(float64(priors[i]) / sum)
	}
	return priors
}

// DirichletNoise samples a Dirichlet(alpha) distribution of length n
// using n independent Gamma(alpha,1) draws normalized to sum to 1,
// the standard construction for Dirichlet sampling.
func DirichletNoise(n int, alpha float64, sample func() float64) []float32 {
	if n == 0 {
		return nil
	}
	draws := make([]float64, n)
	var sum float64
	for i := range draws {
		draws[i] = gammaSample(alpha, sample)
		sum += draws[i]
	}
	noise := make([]float32, n)
	for i := range draws {
		noise[i] = float32(draws[i] / sum)
	}
	return noise
}

// MixDirichletNoise applies P' = (1-eps)*P + eps*noise in place, the
// root-only exploration boost from spec 4.1.
func MixDirichletNoise(priors []float32, noise []float32, eps float64) {
	for i := range priors {
		priors[i] = float32((1-eps)*float64(priors[i]) + eps*float64(noise[i]))
	}
}

// gammaSample draws from Gamma(alpha, 1) via Marsaglia & Tsang's
// squeeze method for alpha>=1, falling back to the boosting trick
// (Gamma(alpha+1)*U^(1/alpha)) for alpha<1. sample must return
// uniform values in [0,1); callers normally pass rand.Float64.
func gammaSample(alpha float64, sample func() float64) float64 {
	if alpha < 1 {
		u := sample()
		if u == 0 {
			u = 1e-12
		}
		return gammaSample(alpha+1, sample) * math.Pow(u, 1/alpha)
	}

	d := alpha - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = normalSample(sample)
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := sample()
		if u == 0 {
			u = 1e-12
		}
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// normalSample draws a standard normal via the Box-Muller transform
// from two uniform samples.
func normalSample(sample func() float64) float64 {
	u1 := sample()
	if u1 == 0 {
		u1 = 1e-12
	}
	u2 := sample()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
