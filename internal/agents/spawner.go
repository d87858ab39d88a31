package agents

import (
	"fmt"
	"math/rand"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/comms"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/logging"
)

// SpawnerConfig bounds how aggressively the team grows.
type SpawnerConfig struct {
	MaxAgents     int
	SpawnCooldown int

	// Initial ID counters follow the standard starting roster of two
	// explorers, three rescuers and one support agent.
	NextExplorerID int
	NextRescueID   int
	NextSupportID  int
}

// DefaultSpawnerConfig returns the standard spawning limits.
func DefaultSpawnerConfig() SpawnerConfig {
	return SpawnerConfig{
		MaxAgents:      20,
		SpawnCooldown:  20,
		NextExplorerID: 3,
		NextRescueID:   4,
		NextSupportID:  2,
	}
}

// Spawner grows the team mid-run when exploration lags or rescuers are
// outnumbered by survivors.
type Spawner struct {
	cfg           SpawnerConfig
	lastSpawn     int
	spawnedByRole map[core.Role]int
	logger        logging.Logger
	rng           *rand.Rand
}

// NewSpawner creates a spawner with the given limits.
func NewSpawner(cfg SpawnerConfig, logger logging.Logger, rng *rand.Rand) *Spawner {
	return &Spawner{
		cfg:           cfg,
		lastSpawn:     -cfg.SpawnCooldown,
		spawnedByRole: map[core.Role]int{},
		logger:        logger,
		rng:           rng,
	}
}

// Evaluate decides whether a new agent is needed and which role it should
// have. Returns false when the team is at capacity, the cooldown has not
// elapsed, or no trigger fires.
func (s *Spawner) Evaluate(agents []*Agent, g *core.Grid, timestep int) (core.Role, bool) {
	if len(agents) >= s.cfg.MaxAgents {
		return 0, false
	}
	if timestep-s.lastSpawn < s.cfg.SpawnCooldown {
		return 0, false
	}

	counts := map[core.Role]int{}
	exploredCells := 0
	for _, a := range agents {
		counts[a.Role]++
		exploredCells += len(a.Explored)
	}
	totalCells := g.Width * g.Height
	coverage := 0.0
	if totalCells > 0 {
		coverage = float64(exploredCells) / float64(totalCells)
	}

	if timestep > 50 && coverage < 0.40 && counts[core.RoleExplorer] < 4 {
		return core.RoleExplorer, true
	}

	survivors := len(g.Survivors())
	if survivors > 0 && counts[core.RoleRescue] < 8 {
		if counts[core.RoleRescue] == 0 || float64(survivors)/float64(counts[core.RoleRescue]) > 4 {
			return core.RoleRescue, true
		}
	}

	if len(agents) >= 10 && counts[core.RoleSupport] < 2 {
		return core.RoleSupport, true
	}

	return 0, false
}

// Spawn creates and registers a new agent of the given role at a safe
// position. Returns nil when no safe spawn point exists.
func (s *Spawner) Spawn(role core.Role, g *core.Grid, net *comms.Network, t Tuning) *Agent {
	pos, ok := s.spawnPosition(g)
	if !ok {
		s.logger.Warn("no safe spawn position available", "role", role)
		return nil
	}

	var id string
	switch role {
	case core.RoleExplorer:
		id = fmt.Sprintf("EXP-%d", s.cfg.NextExplorerID)
		s.cfg.NextExplorerID++
	case core.RoleRescue:
		id = fmt.Sprintf("RES-%d", s.cfg.NextRescueID)
		s.cfg.NextRescueID++
	case core.RoleSupport:
		id = fmt.Sprintf("SUP-%d", s.cfg.NextSupportID)
		s.cfg.NextSupportID++
	default:
		return nil
	}

	a := New(id, role, pos, t, s.logger, rand.New(rand.NewSource(s.rng.Int63())))
	if net != nil {
		a.SetNetwork(net)
	}
	s.lastSpawn = g.Timestep
	s.spawnedByRole[role]++
	s.logger.Info("agent spawned", "agent", id, "role", role, "pos", pos)
	return a
}

// spawnPosition prefers hazard-free cells next to safe zones, then random
// probes across the grid.
func (s *Spawner) spawnPosition(g *core.Grid) (core.Position, bool) {
	for _, zone := range g.SafeZones() {
		for _, n := range g.Neighbors(zone, true) {
			if c := g.CellAt(n); c != nil && c.IsPassable() && !c.IsHazardous() {
				return n, true
			}
		}
	}

	for i := 0; i < 50; i++ {
		p := core.Position{X: s.rng.Intn(g.Width), Y: s.rng.Intn(g.Height)}
		if c := g.CellAt(p); c != nil && c.IsPassable() && !c.IsHazardous() {
			return p, true
		}
	}
	return core.Position{}, false
}

// Stats reports how many agents were spawned per role.
func (s *Spawner) Stats() map[core.Role]int {
	out := make(map[core.Role]int, len(s.spawnedByRole))
	for r, n := range s.spawnedByRole {
		out[r] = n
	}
	return out
}
