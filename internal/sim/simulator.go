// Package sim runs the disaster rescue simulation loop.
//
// Each timestep hazards propagate, agents perceive and update the
// shared risk model, the coordinator selects a protocol and allocates
// survivors, and every agent decides and executes one action. The
// loop ends when all survivors are rescued or the timestep budget is
// exhausted.
package sim

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/agents"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/algo"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/audit"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/comms"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/logging"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/risk"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/scenario"
)

// Config configures a simulation run.
type Config struct {
	// Scenario to simulate.
	Scenario scenario.Scenario

	// ForceMode pins the coordination protocol. ModeHybrid lets the
	// coordinator pick per timestep.
	ForceMode algo.Mode

	// EnableSpawning allows mid-run agent reinforcement.
	EnableSpawning bool

	// EnableSpread turns on hazard propagation.
	EnableSpread bool

	// MaxTimesteps bounds the run.
	MaxTimesteps int

	// CommRange is the agent-to-agent message range in cells.
	CommRange int

	// Tuning is shared by every agent, initial roster and spawned.
	Tuning agents.Tuning

	// Allocator parameterizes all three allocation protocols.
	Allocator algo.AllocatorParams

	// Risk parameterizes the shared Bayesian belief model.
	Risk risk.Params

	// Logger receives per-timestep events. Nil means silent.
	Logger logging.Logger
}

// DefaultConfig returns the standard run parameters.
func DefaultConfig() Config {
	return Config{
		ForceMode:      algo.ModeHybrid,
		EnableSpawning: true,
		MaxTimesteps:   1000,
		CommRange:      15,
		Tuning:         agents.DefaultTuning(),
		Allocator:      algo.DefaultAllocatorParams(),
		Risk:           risk.DefaultParams(),
		Logger:         logging.NoOpLogger{},
	}
}

// Validate reports configuration errors before any state is built.
func (c Config) Validate() error {
	if err := c.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	if c.MaxTimesteps <= 0 {
		return fmt.Errorf("max timesteps must be positive, got %d", c.MaxTimesteps)
	}
	if c.CommRange <= 0 {
		return fmt.Errorf("communication range must be positive, got %d", c.CommRange)
	}
	if err := c.Tuning.Validate(); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	if err := c.Allocator.Validate(); err != nil {
		return fmt.Errorf("allocator: %w", err)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk model: %w", err)
	}
	return nil
}

// ParseMode maps a protocol name from the CLI to a Mode. "hybrid" and
// "auto" both select adaptive switching.
func ParseMode(name string) (algo.Mode, error) {
	switch name {
	case "centralized":
		return algo.ModeCentralized, nil
	case "auction":
		return algo.ModeAuction, nil
	case "coalition":
		return algo.ModeCoalition, nil
	case "hybrid", "auto", "":
		return algo.ModeHybrid, nil
	default:
		return algo.ModeHybrid, fmt.Errorf("unknown coordination mode %q", name)
	}
}

// Metrics summarizes a finished run.
type Metrics struct {
	Timesteps          int
	InitialSurvivors   int
	SurvivorsRescued   int
	SurvivorsRemaining int
	CellsExplored      int
	FinalAgentCount    int
	AgentsSpawned      int
	ModeSwitches       int
	FinalFires         int
	FinalFloods        int
}

// RescueRate is the fraction of initial survivors brought to safety.
func (m Metrics) RescueRate() float64 {
	if m.InitialSurvivors == 0 {
		return 0
	}
	return float64(m.SurvivorsRescued) / float64(m.InitialSurvivors)
}

// Simulator holds the world state and all coordination machinery for
// one run. It is not safe for concurrent use.
type Simulator struct {
	cfg Config

	grid        *core.Grid
	model       *risk.Model
	net         *comms.Network
	coordinator *algo.Coordinator
	spawner     *agents.Spawner
	team        []*agents.Agent
	trail       *audit.Trail

	// current carries the previous timestep's allocation so the
	// auction protocol can reallocate incrementally.
	current core.Allocation

	timestep         int
	initialSurvivors int
	totalRescued     int
	totalExplored    int
	spawned          int

	logger logging.Logger
	rng    *rand.Rand
}

// New builds a simulator from the configured scenario. The initial
// roster is two explorers, three rescue agents, and one support
// agent, placed at the scenario's start positions.
func New(cfg Config) (*Simulator, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim config: %w", err)
	}

	grid := cfg.Scenario.BuildGrid()
	grid.SpreadEnabled = cfg.EnableSpread

	s := &Simulator{
		cfg:              cfg,
		grid:             grid,
		model:            risk.NewModel(cfg.Risk, grid.Width, grid.Height),
		net:              comms.NewNetwork(cfg.CommRange, true),
		coordinator:      algo.NewCoordinator(algo.NewAllocator(cfg.Allocator)),
		trail:            audit.NewTrail(),
		initialSurvivors: len(cfg.Scenario.Survivors),
		logger:           cfg.Logger,
		rng:              rand.New(rand.NewSource(cfg.Scenario.Seed)),
	}

	starts := cfg.Scenario.AgentStarts
	roster := []struct {
		id   string
		role core.Role
		pos  core.Position
	}{
		{"EXP-1", core.RoleExplorer, starts.Explorer},
		{"EXP-2", core.RoleExplorer, starts.Explorer},
		{"RES-1", core.RoleRescue, starts.Rescue},
		{"RES-2", core.RoleRescue, starts.Rescue},
		{"RES-3", core.RoleRescue, starts.Rescue},
		{"SUP-1", core.RoleSupport, starts.Support},
	}
	for _, r := range roster {
		a := agents.New(r.id, r.role, r.pos, cfg.Tuning, cfg.Logger,
			rand.New(rand.NewSource(s.rng.Int63())))
		a.SetNetwork(s.net)
		s.team = append(s.team, a)
	}

	if cfg.EnableSpawning {
		s.spawner = agents.NewSpawner(agents.DefaultSpawnerConfig(), cfg.Logger,
			rand.New(rand.NewSource(s.rng.Int63())))
	}

	s.logger.Info("simulation initialized",
		"grid", fmt.Sprintf("%dx%d", grid.Width, grid.Height),
		"survivors", s.initialSurvivors,
		"safe_zones", len(cfg.Scenario.SafeZones),
		"agents", len(s.team),
		"mode", cfg.ForceMode.String())

	return s, nil
}

// Timestep returns the number of completed timesteps.
func (s *Simulator) Timestep() int { return s.timestep }

// Grid exposes the world state for rendering and tests.
func (s *Simulator) Grid() *core.Grid { return s.grid }

// Model exposes the shared risk beliefs.
func (s *Simulator) Model() *risk.Model { return s.model }

// Agents returns the current roster, initial plus spawned.
func (s *Simulator) Agents() []*agents.Agent { return s.team }

// Trail returns the decision audit trail accumulated so far.
func (s *Simulator) Trail() *audit.Trail { return s.trail }

// Done reports whether every survivor has been rescued. A survivor
// still on an agent's back does not count until it is dropped at a
// safe zone.
func (s *Simulator) Done() bool {
	if len(s.grid.Survivors()) > 0 {
		return false
	}
	for _, a := range s.team {
		if a.Carrying {
			return false
		}
	}
	return true
}

// Step executes one timestep: hazard propagation, perception,
// coordination, then sequential agent actions.
func (s *Simulator) Step() {
	s.grid.PropagateHazards()
	s.net.AdvanceTimestep()

	survivors := s.grid.Survivors()

	if s.spawner != nil {
		s.maybeSpawn(survivors)
	}

	for _, a := range s.team {
		a.Perceive(s.grid, s.model)
	}

	snapshots := s.snapshots()

	var allocation core.Allocation
	if len(survivors) > 0 {
		allocation = s.coordinate(survivors, snapshots)
	} else {
		allocation = core.Allocation{}
	}
	s.current = allocation

	ctx := agents.Context{Allocation: allocation, Agents: snapshots}
	for _, a := range s.team {
		action := a.DecideAction(s.grid, s.model, ctx)
		ok, result := a.ExecuteAction(action, s.grid)
		s.logger.Debug("action executed",
			"agent", a.ID, "action", action.String(),
			"pos", a.Pos.String(), "ok", ok, "result", result)
	}

	s.totalRescued = 0
	s.totalExplored = 0
	for _, a := range s.team {
		s.totalRescued += a.SurvivorsRescued
		s.totalExplored += len(a.Explored)
	}

	s.timestep++
}

// maybeSpawn consults the spawner and registers any reinforcement.
func (s *Simulator) maybeSpawn(survivors []core.Position) {
	role, ok := s.spawner.Evaluate(s.team, s.grid, s.timestep)
	if !ok {
		return
	}
	a := s.spawner.Spawn(role, s.grid, s.net, s.cfg.Tuning)
	if a == nil {
		return
	}
	s.team = append(s.team, a)
	s.spawned++
	trigger := spawnTrigger(role, len(survivors))
	s.trail.RecordAgentSpawn(a.ID, role.String(), trigger, s.timestep)
	s.logger.Info("agent spawned",
		"agent", a.ID, "role", role.String(), "pos", a.Pos.String())
}

func spawnTrigger(role core.Role, survivors int) string {
	switch role {
	case core.RoleExplorer:
		return "exploration coverage below target"
	case core.RoleRescue:
		return fmt.Sprintf("%d survivors outnumber rescue capacity", survivors)
	default:
		return "large team operating without enough support"
	}
}

// coordinate assesses the environment, selects a protocol, and
// allocates survivors, recording each decision on the audit trail.
func (s *Simulator) coordinate(survivors []core.Position, snapshots []core.AgentSnapshot) core.Allocation {
	riskAt := func(p core.Position) float64 { return s.model.Get(p, risk.Combined) }
	dist := func(a, b core.Position) float64 { return float64(a.Manhattan(b)) }

	explored := 0
	for _, a := range s.team {
		explored += len(a.Explored)
	}
	assessment := s.coordinator.AssessEnvironment(survivors, snapshots, riskAt,
		explored, s.grid.Width*s.grid.Height)
	samples := make([]float64, len(survivors))
	for i, p := range survivors {
		samples[i] = riskAt(p)
	}
	taskAssessment, conf := s.model.AssessEnvironmentWithConfidence(samples)

	prev := s.coordinator.CurrentMode
	mode := s.coordinator.SelectMode(assessment, s.timestep, s.cfg.ForceMode)
	if mode != prev {
		s.trail.RecordModeSwitch(prev.String(), mode.String(),
			assessment.AvgRisk, conf.StdDev, s.timestep)
		s.logger.Info("coordination mode switched",
			"from", prev.String(), "to", mode.String(),
			"avg_risk", assessment.AvgRisk,
			"uncertainty", assessment.UncertaintyLevel())
	}
	if s.timestep%10 == 0 {
		s.trail.RecordRiskAssessment(taskAssessment, s.timestep)
	}

	allocation := s.coordinator.AllocateTasks(mode, snapshots, survivors, riskAt, dist, s.current)
	s.recordAllocationChanges(allocation, mode, snapshots, riskAt)
	return allocation
}

// recordAllocationChanges audits survivor handoffs between agents and
// coalition pairings.
func (s *Simulator) recordAllocationChanges(allocation core.Allocation, mode algo.Mode, snapshots []core.AgentSnapshot, riskAt algo.RiskFunc) {
	for agentID, tasks := range allocation {
		for _, task := range tasks {
			prevAgent := s.current.AgentFor(task)
			if prevAgent != "" && prevAgent != agentID {
				s.trail.RecordTaskReallocation(task, prevAgent, agentID,
					"coordinator reassigned task", s.timestep)
			}
		}
	}
	if mode != algo.ModeCoalition {
		return
	}
	for _, c := range algo.Coalitions(allocation, snapshots) {
		if s.current.AgentFor(c.Survivor) == c.Rescue {
			continue // coalition already on record
		}
		s.trail.RecordCoalitionFormation(c.Survivor, c.Rescue, c.Support,
			riskAt(c.Survivor), s.timestep)
	}
}

func (s *Simulator) snapshots() []core.AgentSnapshot {
	out := make([]core.AgentSnapshot, len(s.team))
	for i, a := range s.team {
		out[i] = a.Snapshot()
	}
	return out
}

// Run steps the simulation until every survivor is rescued, the
// timestep budget runs out, or ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) (Metrics, error) {
	for s.timestep < s.cfg.MaxTimesteps && !s.Done() {
		select {
		case <-ctx.Done():
			return s.Metrics(), ctx.Err()
		default:
		}
		s.Step()
	}

	m := s.Metrics()
	s.logger.Info("simulation finished",
		"timesteps", m.Timesteps,
		"rescued", m.SurvivorsRescued,
		"remaining", m.SurvivorsRemaining,
		"explored", m.CellsExplored,
		"agents", m.FinalAgentCount)
	return m, nil
}

// Metrics snapshots the run counters.
func (s *Simulator) Metrics() Metrics {
	return Metrics{
		Timesteps:          s.timestep,
		InitialSurvivors:   s.initialSurvivors,
		SurvivorsRescued:   s.totalRescued,
		SurvivorsRemaining: len(s.grid.Survivors()),
		CellsExplored:      s.totalExplored,
		FinalAgentCount:    len(s.team),
		AgentsSpawned:      s.spawned,
		ModeSwitches:       len(s.coordinator.ModeHistory),
		FinalFires:         len(s.grid.Fires()),
		FinalFloods:        len(s.grid.Floods()),
	}
}
