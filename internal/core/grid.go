package core

import "math/rand"

// Cell is a single grid square. Hazard flags are mutated only through
// Grid methods so the position index sets stay consistent.
type Cell struct {
	Pos         Position
	HasFire     bool
	HasFlood    bool
	HasDebris   bool
	HasSurvivor bool
	IsSafeZone  bool
	Explored    bool
}

// IsPassable reports whether an agent can move through the cell.
// Fire and debris block movement; flood is passable but costly,
// which the pathfinder handles via terrain penalties.
func (c *Cell) IsPassable() bool {
	return !c.HasFire && !c.HasDebris
}

// IsHazardous reports whether the cell contains any hazard.
func (c *Cell) IsHazardous() bool {
	return c.HasFire || c.HasFlood || c.HasDebris
}

// SpreadRates controls optional hazard propagation.
type SpreadRates struct {
	Fire           float64 // per-step spread probability to a neighbor
	FireToDebris   float64 // fire spreads faster into debris
	Flood          float64
	DebrisNearFire float64 // structural collapse near fire
}

// DefaultSpreadRates returns the standard propagation probabilities.
func DefaultSpreadRates() SpreadRates {
	return SpreadRates{
		Fire:           0.03,
		FireToDebris:   0.08,
		Flood:          0.03,
		DebrisNearFire: 0.01,
	}
}

// suppression is an active hazard-suppression mark on a cell.
type suppression struct {
	reduction float64
	remaining int
}

// Grid is the disaster environment: cell state, entity indexes, and
// hazard dynamics. It holds no agent logic.
type Grid struct {
	Width, Height int
	Timestep      int

	cells [][]Cell

	survivorPos map[Position]bool
	safeZonePos map[Position]bool
	firePos     map[Position]bool
	floodPos    map[Position]bool
	debrisPos   map[Position]bool

	suppressions map[Position]suppression

	// SpreadEnabled turns on hazard propagation. Off by default:
	// static hazards keep long scenarios solvable.
	SpreadEnabled bool
	Rates         SpreadRates

	rng *rand.Rand
}

// NewGrid creates an empty grid. The seed drives hazard propagation
// only; a fixed seed gives reproducible dynamics.
func NewGrid(width, height int, seed int64) *Grid {
	g := &Grid{
		Width:        width,
		Height:       height,
		cells:        make([][]Cell, width),
		survivorPos:  make(map[Position]bool),
		safeZonePos:  make(map[Position]bool),
		firePos:      make(map[Position]bool),
		floodPos:     make(map[Position]bool),
		debrisPos:    make(map[Position]bool),
		suppressions: make(map[Position]suppression),
		Rates:        DefaultSpreadRates(),
		rng:          rand.New(rand.NewSource(seed)),
	}
	for x := 0; x < width; x++ {
		g.cells[x] = make([]Cell, height)
		for y := 0; y < height; y++ {
			g.cells[x][y] = Cell{Pos: Position{X: x, Y: y}}
		}
	}
	return g
}

// InBounds checks grid bounds.
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// CellAt returns the cell at p, or nil when out of bounds.
func (g *Grid) CellAt(p Position) *Cell {
	if !g.InBounds(p) {
		return nil
	}
	return &g.cells[p.X][p.Y]
}

// Neighbors returns in-bounds neighbor positions. Cardinal directions
// only unless diagonal is set.
func (g *Grid) Neighbors(p Position, diagonal bool) []Position {
	out := make([]Position, 0, 8)
	for _, d := range cardinalDirs {
		n := p.Add(d.X, d.Y)
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	if diagonal {
		for _, d := range diagonalDirs {
			n := p.Add(d.X, d.Y)
			if g.InBounds(n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// AddFire ignites a cell. Fails on flooded cells: fire cannot exist in
// water.
func (g *Grid) AddFire(p Position) bool {
	c := g.CellAt(p)
	if c == nil || c.HasFlood {
		return false
	}
	c.HasFire = true
	g.firePos[p] = true
	return true
}

// AddFlood floods a cell, extinguishing any fire there.
func (g *Grid) AddFlood(p Position) bool {
	c := g.CellAt(p)
	if c == nil {
		return false
	}
	if c.HasFire {
		g.RemoveFire(p)
	}
	c.HasFlood = true
	g.floodPos[p] = true
	return true
}

// AddDebris marks a collapse. Fails on survivor cells and safe zones.
func (g *Grid) AddDebris(p Position) bool {
	c := g.CellAt(p)
	if c == nil || c.HasSurvivor || c.IsSafeZone {
		return false
	}
	c.HasDebris = true
	g.debrisPos[p] = true
	return true
}

// AddSurvivor places a survivor. Fails on debris and fire cells.
func (g *Grid) AddSurvivor(p Position) bool {
	c := g.CellAt(p)
	if c == nil || c.HasDebris || c.HasFire {
		return false
	}
	c.HasSurvivor = true
	g.survivorPos[p] = true
	return true
}

// AddSafeZone designates an evacuation zone and clears all hazards so
// the zone is always passable.
func (g *Grid) AddSafeZone(p Position) bool {
	c := g.CellAt(p)
	if c == nil {
		return false
	}
	c.IsSafeZone = true
	g.safeZonePos[p] = true
	c.HasFire = false
	c.HasFlood = false
	c.HasDebris = false
	delete(g.firePos, p)
	delete(g.floodPos, p)
	delete(g.debrisPos, p)
	return true
}

// RemoveFire clears fire from a cell.
func (g *Grid) RemoveFire(p Position) {
	if c := g.CellAt(p); c != nil && c.HasFire {
		c.HasFire = false
		delete(g.firePos, p)
	}
}

// RemoveSurvivor clears a survivor marker (picked up by an agent).
func (g *Grid) RemoveSurvivor(p Position) {
	if c := g.CellAt(p); c != nil && c.HasSurvivor {
		c.HasSurvivor = false
		delete(g.survivorPos, p)
	}
}

// Survivors returns survivor positions in deterministic order.
func (g *Grid) Survivors() []Position { return sortedKeys(g.survivorPos) }

// SafeZones returns safe-zone positions in deterministic order.
func (g *Grid) SafeZones() []Position { return sortedKeys(g.safeZonePos) }

// Fires returns fire positions in deterministic order.
func (g *Grid) Fires() []Position { return sortedKeys(g.firePos) }

// Floods returns flood positions in deterministic order.
func (g *Grid) Floods() []Position { return sortedKeys(g.floodPos) }

// Debris returns debris positions in deterministic order.
func (g *Grid) Debris() []Position { return sortedKeys(g.debrisPos) }

func sortedKeys(m map[Position]bool) []Position {
	out := make([]Position, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	SortPositions(out)
	return out
}

// AddSuppression marks the square area of the given radius around
// center as suppressed for duration timesteps. Overlapping marks keep
// the stronger reduction and the longer remaining time.
func (g *Grid) AddSuppression(center Position, radius int, reduction float64, duration int) {
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			p := center.Add(dx, dy)
			if !g.InBounds(p) {
				continue
			}
			s, ok := g.suppressions[p]
			if !ok || reduction > s.reduction {
				s.reduction = reduction
			}
			if duration > s.remaining {
				s.remaining = duration
			}
			g.suppressions[p] = s
		}
	}
}

// SuppressionAt returns the active risk reduction at p, zero when none.
func (g *Grid) SuppressionAt(p Position) float64 {
	return g.suppressions[p].reduction
}

// PropagateHazards advances the environment clock one timestep. With
// SpreadEnabled it also spreads fire and flood to neighbors and
// generates debris near fires; by default hazards are static.
func (g *Grid) PropagateHazards() {
	g.Timestep++
	g.tickSuppressions()
	if !g.SpreadEnabled {
		return
	}
	g.spreadFires()
	g.spreadFloods()
	g.collapseNearFires()
}

func (g *Grid) tickSuppressions() {
	for p, s := range g.suppressions {
		s.remaining--
		if s.remaining <= 0 {
			delete(g.suppressions, p)
			continue
		}
		g.suppressions[p] = s
	}
}

func (g *Grid) spreadFires() {
	for _, p := range g.Fires() {
		for _, n := range g.Neighbors(p, false) {
			c := g.CellAt(n)
			if c.HasFire || c.HasFlood || c.IsSafeZone {
				continue
			}
			rate := g.Rates.Fire
			if c.HasDebris {
				rate = g.Rates.FireToDebris
			}
			if g.rng.Float64() < rate {
				g.AddFire(n)
			}
		}
	}
}

func (g *Grid) spreadFloods() {
	for _, p := range g.Floods() {
		for _, n := range g.Neighbors(p, false) {
			c := g.CellAt(n)
			if c.HasFlood || c.IsSafeZone {
				continue
			}
			if g.rng.Float64() < g.Rates.Flood {
				g.AddFlood(n)
			}
		}
	}
}

func (g *Grid) collapseNearFires() {
	for _, p := range g.Fires() {
		for _, n := range g.Neighbors(p, false) {
			c := g.CellAt(n)
			if c.HasDebris || c.HasSurvivor || c.IsSafeZone {
				continue
			}
			if g.rng.Float64() < g.Rates.DebrisNearFire {
				g.AddDebris(n)
			}
		}
	}
}

// StateSummary holds entity counts for logging and metrics.
type StateSummary struct {
	Timestep  int
	Fires     int
	Floods    int
	Debris    int
	Survivors int
	SafeZones int
}

// Summary returns current entity counts.
func (g *Grid) Summary() StateSummary {
	return StateSummary{
		Timestep:  g.Timestep,
		Fires:     len(g.firePos),
		Floods:    len(g.floodPos),
		Debris:    len(g.debrisPos),
		Survivors: len(g.survivorPos),
		SafeZones: len(g.safeZonePos),
	}
}
