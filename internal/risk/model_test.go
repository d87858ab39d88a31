package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

func newTestModel(size int) *Model {
	return NewModel(DefaultParams(), size, size)
}

func observeAt(t *testing.T, m *Model, g *core.Grid, p core.Position) {
	t.Helper()
	cell := g.CellAt(p)
	require.NotNil(t, cell)
	var neighbors []*core.Cell
	for _, n := range g.Neighbors(p, true) {
		neighbors = append(neighbors, g.CellAt(n))
	}
	m.Observe(cell, neighbors)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	bad := DefaultParams()
	bad.PriorFire = 1.1
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.UpdateRate = 0
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.ConfidenceScale = 0
	assert.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.Spread.Flood = -0.1
	assert.Error(t, bad.Validate())
}

func TestPriorsBeforeObservation(t *testing.T) {
	m := newTestModel(10)
	p := core.Position{X: 3, Y: 3}

	assert.InDelta(t, 0.1, m.Get(p, Fire), 1e-9)
	assert.InDelta(t, 0.1, m.Get(p, Flood), 1e-9)
	assert.InDelta(t, 0.05, m.Get(p, Collapse), 1e-9)

	want := 1.0 - 0.9*0.9*0.95
	assert.InDelta(t, want, m.Get(p, Combined), 1e-9)
}

func TestDirectObservationForcesCertainty(t *testing.T) {
	g := core.NewGrid(10, 10, 1)
	m := newTestModel(10)
	p := core.Position{X: 4, Y: 4}

	g.AddFire(p)
	observeAt(t, m, g, p)
	assert.Equal(t, 1.0, m.Get(p, Fire))

	// Flood extinguishes the fire and forces fire belief to zero.
	g.AddFlood(p)
	observeAt(t, m, g, p)
	assert.Equal(t, 0.0, m.Get(p, Fire))
	assert.Equal(t, 1.0, m.Get(p, Flood))
}

func TestSafeZoneForcesZeroRisk(t *testing.T) {
	g := core.NewGrid(10, 10, 1)
	m := newTestModel(10)
	p := core.Position{X: 2, Y: 2}

	g.AddSafeZone(p)
	observeAt(t, m, g, p)
	assert.Equal(t, 0.0, m.Get(p, Fire))
	assert.Equal(t, 0.0, m.Get(p, Flood))
	assert.Equal(t, 0.0, m.Get(p, Collapse))
}

func TestDebrisForcesCollapseCertainty(t *testing.T) {
	g := core.NewGrid(10, 10, 1)
	m := newTestModel(10)
	p := core.Position{X: 6, Y: 6}

	g.AddDebris(p)
	observeAt(t, m, g, p)
	assert.Equal(t, 1.0, m.Get(p, Collapse))
}

func TestNeighborFireRaisesBelief(t *testing.T) {
	g := core.NewGrid(10, 10, 1)
	m := newTestModel(10)
	p := core.Position{X: 5, Y: 5}

	g.AddFire(core.Position{X: 5, Y: 6})
	before := m.Get(p, Fire)
	observeAt(t, m, g, p)
	after := m.Get(p, Fire)

	// One burning neighbor: evidence 1-(1-0.03)^1 = 0.03 blended at 0.3.
	want := before*0.7 + 0.03*0.3
	assert.InDelta(t, want, after, 1e-9)
}

func TestQuietCellDecaysTowardPrior(t *testing.T) {
	g := core.NewGrid(10, 10, 1)
	m := newTestModel(10)
	p := core.Position{X: 5, Y: 5}

	// Inflate the belief, then observe a quiet neighborhood repeatedly.
	m.fireRisk[p] = 0.9
	for i := 0; i < 40; i++ {
		observeAt(t, m, g, p)
	}
	assert.InDelta(t, 0.1, m.Get(p, Fire), 0.01)
}

func TestCombinedRiskComposition(t *testing.T) {
	m := newTestModel(10)
	p := core.Position{X: 1, Y: 1}
	m.fireRisk[p] = 0.5
	m.floodRisk[p] = 0.2
	m.collapseRisk[p] = 0.1

	want := 1.0 - 0.5*0.8*0.9
	assert.InDelta(t, want, m.Get(p, Combined), 1e-9)
}

func TestConfidenceGrowsWithObservations(t *testing.T) {
	g := core.NewGrid(10, 10, 1)
	m := newTestModel(10)
	p := core.Position{X: 3, Y: 3}

	assert.Zero(t, m.Confidence(p))

	observeAt(t, m, g, p)
	c1 := m.Confidence(p)
	assert.InDelta(t, 1.0-math.Exp(-1.0/5.0), c1, 1e-9)

	for i := 0; i < 30; i++ {
		observeAt(t, m, g, p)
	}
	assert.Greater(t, m.Confidence(p), 0.99)
	assert.Less(t, m.Confidence(p), 1.0)
}

func TestGradientPointsTowardRisk(t *testing.T) {
	g := core.NewGrid(10, 10, 1)
	m := newTestModel(10)
	p := core.Position{X: 5, Y: 5}

	m.fireRisk[core.Position{X: 6, Y: 5}] = 1.0

	gx, gy := m.Gradient(p, g)
	assert.Greater(t, gx, 0.0)
	assert.InDelta(t, 1.0, math.Hypot(gx, gy), 1e-9)
}

func TestPredictRiskNeverUndercutsBelief(t *testing.T) {
	m := newTestModel(10)
	p := core.Position{X: 2, Y: 2}
	m.fireRisk[p] = 0.95

	assert.InDelta(t, 0.95, m.PredictRisk(p, Fire, 1), 1e-9)

	// Low current belief: the spread forecast dominates at long horizons.
	q := core.Position{X: 7, Y: 7}
	long := m.PredictRisk(q, Fire, 100)
	want := 1.0 - math.Pow(0.97, 100)
	assert.InDelta(t, want, long, 1e-9)
	assert.GreaterOrEqual(t, long, m.Get(q, Fire))
}

func TestConfidenceIntervalBounds(t *testing.T) {
	g := core.NewGrid(10, 10, 1)
	m := newTestModel(10)
	p := core.Position{X: 4, Y: 4}

	ci := m.GetRiskWithConfidence(p, Combined)
	assert.Equal(t, 0.95, ci.Confidence)
	assert.GreaterOrEqual(t, ci.Lower, 0.0)
	assert.LessOrEqual(t, ci.Upper, 1.0)
	assert.LessOrEqual(t, ci.Lower, ci.Mean)
	assert.GreaterOrEqual(t, ci.Upper, ci.Mean)

	wide := ci.Upper - ci.Lower
	for i := 0; i < 20; i++ {
		observeAt(t, m, g, p)
	}
	narrow := m.GetRiskWithConfidence(p, Combined)
	assert.Less(t, narrow.Upper-narrow.Lower, wide)
}

func TestPredictionIntervalWidensWithHorizon(t *testing.T) {
	m := newTestModel(10)
	p := core.Position{X: 4, Y: 4}

	near := m.PredictRiskWithConfidence(p, Fire, 1)
	far := m.PredictRiskWithConfidence(p, Fire, 10)
	assert.Greater(t, far.StdDev, near.StdDev)
	assert.LessOrEqual(t, far.StdDev, stdCap)
}

func TestAssessEnvironment(t *testing.T) {
	m := newTestModel(4)
	a := m.AssessEnvironment()

	prior := 1.0 - 0.9*0.9*0.95
	assert.InDelta(t, prior, a.Average, 1e-9)
	assert.InDelta(t, prior, a.Max, 1e-9)
	assert.InDelta(t, 0.0, a.Variance, 1e-9)

	m.fireRisk[core.Position{X: 0, Y: 0}] = 1.0
	a = m.AssessEnvironment()
	assert.Greater(t, a.Average, prior)
	assert.Greater(t, a.Variance, 0.0)
	assert.InDelta(t, 1.0, a.Max, 1e-9)

	_, ci := m.AssessEnvironmentWithConfidence(nil)
	assert.InDelta(t, a.Average, ci.Mean, 1e-9)
	assert.LessOrEqual(t, ci.Lower, ci.Mean)
}

func TestAssessEnvironmentWithConfidenceSamples(t *testing.T) {
	m := newTestModel(4)
	samples := []float64{0.2, 0.4, 0.6}

	a, ci := m.AssessEnvironmentWithConfidence(samples)

	assert.InDelta(t, 0.4, a.Average, 1e-9)
	assert.InDelta(t, 0.6, a.Max, 1e-9)
	assert.InDelta(t, 2.0/75.0, a.Variance, 1e-9)
	assert.InDelta(t, 0.4, ci.Mean, 1e-9)
	assert.Less(t, ci.Lower, ci.Mean)
	assert.Greater(t, ci.Upper, ci.Mean)

	// A single reading carries no spread information.
	_, ci = m.AssessEnvironmentWithConfidence([]float64{0.5})
	assert.InDelta(t, 0.5, ci.Lower, 1e-9)
	assert.InDelta(t, 0.5, ci.Upper, 1e-9)
}

func TestHighRiskCells(t *testing.T) {
	m := newTestModel(6)
	m.fireRisk[core.Position{X: 1, Y: 2}] = 1.0
	m.floodRisk[core.Position{X: 4, Y: 4}] = 0.95

	cells := m.HighRiskCells(0.9)
	assert.Equal(t, []core.Position{{X: 1, Y: 2}, {X: 4, Y: 4}}, cells)
}
