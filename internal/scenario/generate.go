package scenario

import (
	"fmt"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

// GenParams controls scenario generation.
type GenParams struct {
	Width        int
	Height       int
	NumSurvivors int
	NumSafeZones int
	NumFires     int
	NumFloods    int
	NumDebris    int
}

// DefaultGenParams returns the standard 40x30 scenario shape.
func DefaultGenParams() GenParams {
	return GenParams{
		Width:        40,
		Height:       30,
		NumSurvivors: 8,
		NumSafeZones: 2,
		NumFires:     3,
		NumFloods:    2,
		NumDebris:    5,
	}
}

// EasyGenParams is a small scenario with sparse hazards.
func EasyGenParams() GenParams {
	return GenParams{
		Width:        20,
		Height:       15,
		NumSurvivors: 4,
		NumSafeZones: 2,
		NumFires:     1,
		NumFloods:    1,
		NumDebris:    2,
	}
}

// HardGenParams is a dense scenario that keeps all three protocols busy.
func HardGenParams() GenParams {
	return GenParams{
		Width:        50,
		Height:       40,
		NumSurvivors: 16,
		NumSafeZones: 3,
		NumFires:     8,
		NumFloods:    5,
		NumDebris:    12,
	}
}

const (
	safeZoneMargin      = 3
	survivorMargin      = 5
	minSurvivorDistance = 5
	placementAttempts   = 1000
)

// Generator produces deterministic scenarios from a seed.
type Generator struct {
	seed int64
	rng  *rand.Rand
}

// NewGenerator creates a generator for the given seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Standard generates the structured scenario layout: safe zones in the
// corners, survivors kept clear of them, hazards scattered across the
// interior, agents starting next to the first safe zone.
func (gen *Generator) Standard(p GenParams) Scenario {
	s := Scenario{
		Name:   fmt.Sprintf("standard-%d", gen.seed),
		Width:  p.Width,
		Height: p.Height,
		Seed:   gen.seed,
	}

	s.SafeZones = gen.safeZones(p)
	s.Survivors = gen.survivors(p, s.SafeZones)
	s.Fires = gen.scatter(p, p.NumFires, s.SafeZones, s.Survivors, nil)
	s.Floods = gen.scatter(p, p.NumFloods, s.SafeZones, s.Survivors, s.Fires)
	s.Debris = gen.scatter(p, p.NumDebris, s.SafeZones, s.Survivors, nil)
	s.AgentStarts = agentStarts(s.SafeZones)
	return s
}

// Clustered generates a scenario whose hazards follow simplex noise fields,
// producing contiguous burn and flood regions instead of uniform scatter.
func (gen *Generator) Clustered(p GenParams) Scenario {
	s := Scenario{
		Name:   fmt.Sprintf("clustered-%d", gen.seed),
		Width:  p.Width,
		Height: p.Height,
		Seed:   gen.seed,
	}

	s.SafeZones = gen.safeZones(p)
	s.Survivors = gen.survivors(p, s.SafeZones)

	fireNoise := opensimplex.NewNormalized(gen.seed)
	floodNoise := opensimplex.NewNormalized(gen.seed + 1)
	debrisNoise := opensimplex.NewNormalized(gen.seed + 2)

	s.Fires = gen.noisePicks(p, p.NumFires, fireNoise, s.SafeZones, s.Survivors, nil)
	s.Floods = gen.noisePicks(p, p.NumFloods, floodNoise, s.SafeZones, s.Survivors, s.Fires)
	s.Debris = gen.noisePicks(p, p.NumDebris, debrisNoise, s.SafeZones, s.Survivors, nil)
	s.AgentStarts = agentStarts(s.SafeZones)
	return s
}

func (gen *Generator) safeZones(p GenParams) []core.Position {
	corners := []core.Position{
		{X: safeZoneMargin, Y: safeZoneMargin},
		{X: p.Width - safeZoneMargin - 1, Y: safeZoneMargin},
		{X: safeZoneMargin, Y: p.Height - safeZoneMargin - 1},
		{X: p.Width - safeZoneMargin - 1, Y: p.Height - safeZoneMargin - 1},
	}
	n := p.NumSafeZones
	if n > len(corners) {
		n = len(corners)
	}
	gen.rng.Shuffle(len(corners), func(i, j int) {
		corners[i], corners[j] = corners[j], corners[i]
	})
	return corners[:n]
}

func (gen *Generator) survivors(p GenParams, zones []core.Position) []core.Position {
	var survivors []core.Position
	taken := map[core.Position]bool{}
	for _, z := range zones {
		taken[z] = true
	}

	for attempts := 0; len(survivors) < p.NumSurvivors && attempts < placementAttempts; attempts++ {
		pos := core.Position{
			X: survivorMargin + gen.rng.Intn(p.Width-2*survivorMargin),
			Y: survivorMargin + gen.rng.Intn(p.Height-2*survivorMargin),
		}
		if taken[pos] {
			continue
		}
		minDist := p.Width + p.Height
		for _, z := range zones {
			if d := pos.Manhattan(z); d < minDist {
				minDist = d
			}
		}
		if minDist > minSurvivorDistance {
			survivors = append(survivors, pos)
			taken[pos] = true
		}
	}
	return survivors
}

// scatter places count hazards uniformly inside the border, avoiding the
// given occupied sets.
func (gen *Generator) scatter(p GenParams, count int, avoid ...[]core.Position) []core.Position {
	taken := map[core.Position]bool{}
	for _, set := range avoid {
		for _, pos := range set {
			taken[pos] = true
		}
	}

	var out []core.Position
	for attempts := 0; len(out) < count && attempts < placementAttempts; attempts++ {
		pos := core.Position{
			X: 1 + gen.rng.Intn(p.Width-2),
			Y: 1 + gen.rng.Intn(p.Height-2),
		}
		if taken[pos] {
			continue
		}
		out = append(out, pos)
		taken[pos] = true
	}
	return out
}

// noisePicks chooses the count interior cells with the highest noise value,
// so hazards of one kind clump together.
func (gen *Generator) noisePicks(p GenParams, count int, noise opensimplex.Noise, avoid ...[]core.Position) []core.Position {
	taken := map[core.Position]bool{}
	for _, set := range avoid {
		for _, pos := range set {
			taken[pos] = true
		}
	}

	type cand struct {
		pos core.Position
		val float64
	}
	var cands []cand
	for x := 1; x < p.Width-1; x++ {
		for y := 1; y < p.Height-1; y++ {
			pos := core.Position{X: x, Y: y}
			if taken[pos] {
				continue
			}
			v := noise.Eval2(float64(x)*0.1, float64(y)*0.1)
			cands = append(cands, cand{pos, v})
		}
	}
	// Selection sort of the top picks keeps this simple for small counts.
	var out []core.Position
	for len(out) < count && len(cands) > 0 {
		best := 0
		for i := range cands {
			if cands[i].val > cands[best].val {
				best = i
			}
		}
		out = append(out, cands[best].pos)
		cands[best] = cands[len(cands)-1]
		cands = cands[:len(cands)-1]
	}
	return out
}

func agentStarts(zones []core.Position) AgentStarts {
	if len(zones) == 0 {
		return AgentStarts{
			Explorer: core.Position{X: 5, Y: 5},
			Rescue:   core.Position{X: 5, Y: 6},
			Support:  core.Position{X: 6, Y: 5},
		}
	}
	base := zones[0]
	return AgentStarts{
		Explorer: base.Add(1, 0),
		Rescue:   base.Add(0, 1),
		Support:  base.Add(1, 1),
	}
}
