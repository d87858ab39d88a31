// Package risk implements per-agent Bayesian hazard belief tracking.
// A model is a belief tracker, not a predictor: it quantifies what an
// agent currently believes about fire, flood, and collapse risk, and
// how confident that belief is.
package risk

import (
	"fmt"
	"math"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

// Kind selects a risk channel.
type Kind int

const (
	Fire Kind = iota
	Flood
	Collapse
	Combined
)

func (k Kind) String() string {
	switch k {
	case Fire:
		return "fire"
	case Flood:
		return "flood"
	case Collapse:
		return "collapse"
	default:
		return "combined"
	}
}

// Params holds priors and update tuning.
type Params struct {
	PriorFire     float64
	PriorFlood    float64
	PriorCollapse float64

	// UpdateRate is the blend weight of new evidence against the
	// previous belief.
	UpdateRate float64

	Spread core.SpreadRates

	// ConfidenceScale controls how fast confidence saturates with
	// observation count.
	ConfidenceScale float64
}

// DefaultParams returns the standard priors and rates.
func DefaultParams() Params {
	return Params{
		PriorFire:       0.1,
		PriorFlood:      0.1,
		PriorCollapse:   0.05,
		UpdateRate:      0.3,
		Spread:          core.DefaultSpreadRates(),
		ConfidenceScale: 5.0,
	}
}

// Validate reports parameter errors before a model is built.
func (p Params) Validate() error {
	priors := []struct {
		name  string
		value float64
	}{
		{"fire prior", p.PriorFire},
		{"flood prior", p.PriorFlood},
		{"collapse prior", p.PriorCollapse},
	}
	for _, f := range priors {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", f.name, f.value)
		}
	}
	if p.UpdateRate <= 0 || p.UpdateRate > 1 {
		return fmt.Errorf("update rate must be in (0,1], got %v", p.UpdateRate)
	}
	if p.ConfidenceScale <= 0 {
		return fmt.Errorf("confidence scale must be positive, got %v", p.ConfidenceScale)
	}
	rates := []struct {
		name  string
		value float64
	}{
		{"fire spread rate", p.Spread.Fire},
		{"fire-to-debris spread rate", p.Spread.FireToDebris},
		{"flood spread rate", p.Spread.Flood},
		{"collapse-near-fire rate", p.Spread.DebrisNearFire},
	}
	for _, f := range rates {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", f.name, f.value)
		}
	}
	return nil
}

// Model tracks hazard beliefs over grid positions.
type Model struct {
	params Params

	width, height int

	fireRisk     map[core.Position]float64
	floodRisk    map[core.Position]float64
	collapseRisk map[core.Position]float64

	obsCount map[core.Position]int
}

// NewModel creates a model and seeds every cell with the priors.
func NewModel(params Params, width, height int) *Model {
	m := &Model{
		params:       params,
		width:        width,
		height:       height,
		fireRisk:     make(map[core.Position]float64, width*height),
		floodRisk:    make(map[core.Position]float64, width*height),
		collapseRisk: make(map[core.Position]float64, width*height),
		obsCount:     make(map[core.Position]int, width*height),
	}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			p := core.Position{X: x, Y: y}
			m.fireRisk[p] = params.PriorFire
			m.floodRisk[p] = params.PriorFlood
			m.collapseRisk[p] = params.PriorCollapse
		}
	}
	return m
}

// Observe folds one cell observation into the beliefs. Direct
// observations force certainty; otherwise neighbor hazards drive a
// weighted update and quiet cells decay toward the priors.
func (m *Model) Observe(cell *core.Cell, neighbors []*core.Cell) {
	p := cell.Pos
	m.obsCount[p]++
	m.fireRisk[p] = m.fireUpdate(cell, neighbors)
	m.floodRisk[p] = m.floodUpdate(cell, neighbors)
	m.collapseRisk[p] = m.collapseUpdate(cell, neighbors)
}

func (m *Model) fireUpdate(cell *core.Cell, neighbors []*core.Cell) float64 {
	if cell.HasFire {
		return 1.0
	}
	if cell.HasFlood || cell.IsSafeZone {
		return 0.0
	}

	burning := 0
	for _, n := range neighbors {
		if n.HasFire {
			burning++
		}
	}

	current := m.Get(cell.Pos, Fire)
	if burning == 0 {
		return m.decay(current, m.params.PriorFire)
	}

	// P(fire next step | n burning neighbors) = 1 - (1-rate)^n,
	// treating each neighbor as an independent spread attempt.
	rate := m.params.Spread.Fire
	if cell.HasDebris {
		rate = m.params.Spread.FireToDebris
	}
	spread := 1.0 - math.Pow(1.0-rate, float64(burning))
	return m.blend(current, spread)
}

func (m *Model) floodUpdate(cell *core.Cell, neighbors []*core.Cell) float64 {
	if cell.HasFlood {
		return 1.0
	}
	if cell.IsSafeZone {
		return 0.0
	}

	flooded := 0
	for _, n := range neighbors {
		if n.HasFlood {
			flooded++
		}
	}

	current := m.Get(cell.Pos, Flood)
	if flooded == 0 {
		return m.decay(current, m.params.PriorFlood)
	}
	spread := 1.0 - math.Pow(1.0-m.params.Spread.Flood, float64(flooded))
	return m.blend(current, spread)
}

func (m *Model) collapseUpdate(cell *core.Cell, neighbors []*core.Cell) float64 {
	if cell.HasDebris {
		return 1.0
	}
	if cell.IsSafeZone || cell.HasSurvivor {
		return 0.0
	}

	// Fire weakens structures, so collapse keys on burning neighbors.
	burning := 0
	for _, n := range neighbors {
		if n.HasFire {
			burning++
		}
	}

	current := m.Get(cell.Pos, Collapse)
	if burning == 0 {
		return m.decay(current, m.params.PriorCollapse)
	}
	collapse := 1.0 - math.Pow(1.0-m.params.Spread.DebrisNearFire, float64(burning))
	return m.blend(current, collapse)
}

func (m *Model) decay(current, prior float64) float64 {
	return current*(1.0-m.params.UpdateRate) + prior*m.params.UpdateRate
}

func (m *Model) blend(current, evidence float64) float64 {
	return current*(1.0-m.params.UpdateRate) + evidence*m.params.UpdateRate
}

// Get returns the belief for one channel at p. Combined is the
// probability of at least one hazard assuming channel independence.
func (m *Model) Get(p core.Position, k Kind) float64 {
	switch k {
	case Fire:
		return m.lookup(m.fireRisk, p, m.params.PriorFire)
	case Flood:
		return m.lookup(m.floodRisk, p, m.params.PriorFlood)
	case Collapse:
		return m.lookup(m.collapseRisk, p, m.params.PriorCollapse)
	default:
		f := m.lookup(m.fireRisk, p, m.params.PriorFire)
		fl := m.lookup(m.floodRisk, p, m.params.PriorFlood)
		c := m.lookup(m.collapseRisk, p, m.params.PriorCollapse)
		return 1.0 - (1.0-f)*(1.0-fl)*(1.0-c)
	}
}

func (m *Model) lookup(risks map[core.Position]float64, p core.Position, prior float64) float64 {
	if v, ok := risks[p]; ok {
		return v
	}
	return prior
}

// AllRisks returns every channel at p.
func (m *Model) AllRisks(p core.Position) map[Kind]float64 {
	return map[Kind]float64{
		Fire:     m.Get(p, Fire),
		Flood:    m.Get(p, Flood),
		Collapse: m.Get(p, Collapse),
		Combined: m.Get(p, Combined),
	}
}

// Confidence maps observation count to [0,1); repeated observations
// saturate toward full confidence.
func (m *Model) Confidence(p core.Position) float64 {
	count := m.obsCount[p]
	return 1.0 - math.Exp(-float64(count)/m.params.ConfidenceScale)
}

// ObservationCount returns how many times p has been observed.
func (m *Model) ObservationCount(p core.Position) int {
	return m.obsCount[p]
}

// Gradient returns the normalized direction of increasing combined
// risk around p. Agents move against it to evade hazards.
func (m *Model) Gradient(p core.Position, g *core.Grid) (float64, float64) {
	neighbors := g.Neighbors(p, false)
	if len(neighbors) == 0 {
		return 0, 0
	}

	var gx, gy float64
	for _, n := range neighbors {
		r := m.Get(n, Combined)
		gx += r * float64(n.X-p.X)
		gy += r * float64(n.Y-p.Y)
	}

	mag := math.Sqrt(gx*gx + gy*gy)
	if mag > 0 {
		gx /= mag
		gy /= mag
	}
	return gx, gy
}

// HighRiskCells returns known positions whose combined belief is at
// or above the threshold, in deterministic order.
func (m *Model) HighRiskCells(threshold float64) []core.Position {
	out := make([]core.Position, 0)
	for x := 0; x < m.width; x++ {
		for y := 0; y < m.height; y++ {
			p := core.Position{X: x, Y: y}
			if m.Get(p, Combined) >= threshold {
				out = append(out, p)
			}
		}
	}
	return out
}
