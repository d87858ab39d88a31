package risk

import (
	"math"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

// Forecast uncertainty tuning. Belief intervals start wide and narrow
// with repeated observation; projecting forward widens them again.
const (
	stdFloor       = 0.02 // residual uncertainty that never decays
	stdBase        = 0.23 // extra width at zero observations
	stdPerTimestep = 0.02 // widening per projected timestep
	stdCap         = 0.5
	zScore95       = 1.96
)

// PredictRisk projects the belief at p forward by the given number of
// timesteps. The projection assumes independent per-step spread
// attempts and never undercuts the current belief.
func (m *Model) PredictRisk(p core.Position, k Kind, timesteps int) float64 {
	if timesteps <= 0 {
		return m.Get(p, k)
	}
	switch k {
	case Fire:
		return m.projectChannel(p, Fire, m.params.Spread.Fire, timesteps)
	case Flood:
		return m.projectChannel(p, Flood, m.params.Spread.Flood, timesteps)
	case Collapse:
		return m.projectChannel(p, Collapse, m.params.Spread.DebrisNearFire, timesteps)
	default:
		f := m.PredictRisk(p, Fire, timesteps)
		fl := m.PredictRisk(p, Flood, timesteps)
		c := m.PredictRisk(p, Collapse, timesteps)
		return 1.0 - (1.0-f)*(1.0-fl)*(1.0-c)
	}
}

func (m *Model) projectChannel(p core.Position, k Kind, rate float64, timesteps int) float64 {
	current := m.Get(p, k)
	forecast := 1.0 - math.Pow(1.0-rate, float64(timesteps))
	return math.Max(current, forecast)
}

// ConfidenceInterval is a belief estimate with explicit uncertainty
// bounds. Confidence is the coverage level of [Lower, Upper].
type ConfidenceInterval struct {
	Mean       float64
	Lower      float64
	Upper      float64
	StdDev     float64
	Confidence float64
}

// GetRiskWithConfidence returns the current belief at p with a 95%
// interval whose width shrinks as observations accumulate.
func (m *Model) GetRiskWithConfidence(p core.Position, k Kind) ConfidenceInterval {
	mean := m.Get(p, k)
	std := m.beliefStdDev(p, 0)
	return interval(mean, std)
}

// PredictRiskWithConfidence projects the belief forward and widens the
// interval with the horizon: further out means less certainty.
func (m *Model) PredictRiskWithConfidence(p core.Position, k Kind, timesteps int) ConfidenceInterval {
	mean := m.PredictRisk(p, k, timesteps)
	std := m.beliefStdDev(p, timesteps)
	return interval(mean, std)
}

func (m *Model) beliefStdDev(p core.Position, horizon int) float64 {
	count := m.obsCount[p]
	std := stdFloor + stdBase*math.Exp(-float64(count)/m.params.ConfidenceScale)
	std += stdPerTimestep * float64(horizon)
	return math.Min(std, stdCap)
}

func interval(mean, std float64) ConfidenceInterval {
	return ConfidenceInterval{
		Mean:       mean,
		Lower:      clamp01(mean - zScore95*std),
		Upper:      clamp01(mean + zScore95*std),
		StdDev:     std,
		Confidence: 0.95,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Assessment summarizes combined risk across the whole grid.
type Assessment struct {
	Average  float64
	Max      float64
	Variance float64
}

// AssessEnvironment computes mean, max, and variance of the combined
// belief over every cell. The coordinator keys protocol selection on
// these statistics.
func (m *Model) AssessEnvironment() Assessment {
	n := m.width * m.height
	if n == 0 {
		return Assessment{}
	}

	var sum, maxRisk float64
	values := make([]float64, 0, n)
	for x := 0; x < m.width; x++ {
		for y := 0; y < m.height; y++ {
			r := m.Get(core.Position{X: x, Y: y}, Combined)
			values = append(values, r)
			sum += r
			if r > maxRisk {
				maxRisk = r
			}
		}
	}

	mean := sum / float64(n)
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	return Assessment{Average: mean, Max: maxRisk, Variance: variance}
}

// AssessEnvironmentWithConfidence summarizes a batch of risk readings
// (typically the combined risks at the current survivor positions) and
// wraps the mean in a 95% interval using the standard error of the
// sample mean. An empty batch falls back to the grid-wide assessment.
func (m *Model) AssessEnvironmentWithConfidence(samples []float64) (Assessment, ConfidenceInterval) {
	n := len(samples)
	if n == 0 {
		a := m.AssessEnvironment()
		return a, interval(a.Average, 0)
	}

	var sum, max float64
	for _, v := range samples {
		sum += v
		if v > max {
			max = v
		}
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range samples {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(n)

	stderr := 0.0
	if n > 1 {
		stderr = math.Sqrt(variance / float64(n))
	}
	a := Assessment{Average: mean, Max: max, Variance: variance}
	return a, interval(mean, stderr)
}
