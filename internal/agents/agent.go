package agents

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/algo"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/comms"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/logging"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/risk"
)

// Tuning holds the behavioral knobs shared by all roles. Risk thresholds cap
// how dangerous a cell a role will still target; the weights trade distance
// against risk when scoring candidate targets.
type Tuning struct {
	RiskThresholdExplorer float64
	RiskThresholdRescue   float64
	RiskThresholdSupport  float64

	CuriosityWeight    float64
	UrgencyWeight      float64
	CoordinationWeight float64

	// ReplanBlockedThreshold forces a replan after this many consecutive
	// failed moves.
	ReplanBlockedThreshold int

	SuppressCooldown    int
	SuppressDuration    int
	SuppressRadius      int
	SuppressReduction   float64
	SuppressRiskTrigger float64
	SuppressAssistRange int
}

// DefaultTuning returns the standard role parameters.
func DefaultTuning() Tuning {
	return Tuning{
		RiskThresholdExplorer:  0.7,
		RiskThresholdRescue:    0.6,
		RiskThresholdSupport:   0.8,
		CuriosityWeight:        0.8,
		UrgencyWeight:          0.9,
		CoordinationWeight:     0.7,
		ReplanBlockedThreshold: 5,
		SuppressCooldown:       10,
		SuppressDuration:       5,
		SuppressRadius:         1,
		SuppressReduction:      0.3,
		SuppressRiskTrigger:    0.4,
		SuppressAssistRange:    3,
	}
}

// Validate reports tuning errors before any agent is built.
func (t Tuning) Validate() error {
	unit := []struct {
		name  string
		value float64
	}{
		{"explorer risk threshold", t.RiskThresholdExplorer},
		{"rescue risk threshold", t.RiskThresholdRescue},
		{"support risk threshold", t.RiskThresholdSupport},
		{"curiosity weight", t.CuriosityWeight},
		{"urgency weight", t.UrgencyWeight},
		{"coordination weight", t.CoordinationWeight},
		{"suppression reduction", t.SuppressReduction},
		{"suppression risk trigger", t.SuppressRiskTrigger},
	}
	for _, f := range unit {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", f.name, f.value)
		}
	}
	if t.ReplanBlockedThreshold < 1 {
		return fmt.Errorf("replan blocked threshold must be at least 1, got %d", t.ReplanBlockedThreshold)
	}
	if t.SuppressCooldown < 0 || t.SuppressRadius < 0 || t.SuppressAssistRange < 0 {
		return fmt.Errorf("suppression cooldown, radius, and assist range must be non-negative")
	}
	if t.SuppressDuration < 1 {
		return fmt.Errorf("suppression duration must be at least 1, got %d", t.SuppressDuration)
	}
	return nil
}

// Context carries the per-timestep inputs an agent's decision cycle needs
// beyond the grid and risk model.
type Context struct {
	// Allocation is the coordinator's current survivor assignment.
	Allocation core.Allocation
	// Agents snapshots every team member, used by support agents for
	// monitoring.
	Agents []core.AgentSnapshot
}

// Agent is a single team member. Role-specific behavior lives in the
// strategy; everything else (position, beliefs, plan, metrics) is shared.
type Agent struct {
	ID       string
	Role     core.Role
	Pos      core.Position
	Carrying bool

	StepsTaken       int
	BlockedSteps     int
	SurvivorsRescued int
	CellsExplored    int

	Assigned []core.Position
	Explored map[core.Position]bool

	KnownSurvivors []core.Position
	knownSurvivors map[core.Position]bool

	plan     []*PlanStep
	strategy roleStrategy
	tuning   Tuning

	net    *comms.Network
	logger logging.Logger
	rng    *rand.Rand

	// support state
	monitored        []core.AgentSnapshot
	suppressCooldown int
}

// roleStrategy supplies the per-role decision cycle. Implementations share
// the Agent's helpers for escape, replanning and plan stepping.
type roleStrategy interface {
	decide(a *Agent, g *core.Grid, m *risk.Model, ctx Context) Action
	pathQuery(a *Agent, g *core.Grid, m *risk.Model) algo.PathQuery
}

// New creates an agent of the given role. The logger and rng are injected so
// runs stay reproducible; pass logging.NoOpLogger{} to silence an agent.
func New(id string, role core.Role, pos core.Position, t Tuning, logger logging.Logger, rng *rand.Rand) *Agent {
	a := &Agent{
		ID:             id,
		Role:           role,
		Pos:            pos,
		Explored:       map[core.Position]bool{},
		knownSurvivors: map[core.Position]bool{},
		tuning:         t,
		logger:         logger,
		rng:            rng,
	}
	switch role {
	case core.RoleExplorer:
		a.strategy = explorerStrategy{}
	case core.RoleRescue:
		a.strategy = rescueStrategy{}
	case core.RoleSupport:
		a.strategy = supportStrategy{}
	}
	return a
}

// SetNetwork attaches the team communication network.
func (a *Agent) SetNetwork(net *comms.Network) {
	a.net = net
	if net != nil {
		net.Register(a.ID)
	}
}

// Network returns the attached communication network, or nil.
func (a *Agent) Network() *comms.Network { return a.net }

// Snapshot returns a read-only view of the agent for coordination and
// rendering.
func (a *Agent) Snapshot() core.AgentSnapshot {
	return core.AgentSnapshot{
		ID:       a.ID,
		Pos:      a.Pos,
		Role:     a.Role,
		Load:     len(a.Assigned),
		Carrying: a.Carrying,
	}
}

// PlanLength reports the remaining steps in the current plan.
func (a *Agent) PlanLength() int { return len(a.plan) }

// Perceive marks the current cell explored and folds the local observation
// into the shared risk model. Survivors and hazards seen on neighboring
// cells are remembered.
func (a *Agent) Perceive(g *core.Grid, m *risk.Model) {
	cell := g.CellAt(a.Pos)
	if cell == nil {
		return
	}
	a.Explored[a.Pos] = true

	neighbors := g.Neighbors(a.Pos, true)
	cells := make([]*core.Cell, 0, len(neighbors))
	for _, n := range neighbors {
		if c := g.CellAt(n); c != nil {
			cells = append(cells, c)
		}
	}
	m.Observe(cell, cells)

	for _, c := range cells {
		if c.HasSurvivor && !a.knownSurvivors[c.Pos] {
			a.knownSurvivors[c.Pos] = true
			a.KnownSurvivors = append(a.KnownSurvivors, c.Pos)
		}
	}
}

// DecideAction runs one decision cycle and returns the action to execute
// this timestep.
func (a *Agent) DecideAction(g *core.Grid, m *risk.Model, ctx Context) Action {
	return a.strategy.decide(a, g, m, ctx)
}

// MoveTo attempts a one-step move onto target. An agent standing on an
// impassable cell may escape onto any existing cell; rescue and support
// agents may enter hazardous cells as a last resort.
func (a *Agent) MoveTo(target core.Position, g *core.Grid) bool {
	if a.Pos == target {
		return true
	}
	cell := g.CellAt(target)

	if cur := g.CellAt(a.Pos); cur != nil && !cur.IsPassable() {
		if cell != nil {
			a.arrive(target)
			return true
		}
		a.BlockedSteps++
		return false
	}

	if cell == nil || !cell.IsPassable() {
		if cell != nil && (a.Role == core.RoleRescue || a.Role == core.RoleSupport) {
			a.arrive(target)
			return true
		}
		a.BlockedSteps++
		return false
	}

	a.arrive(target)
	return true
}

func (a *Agent) arrive(target core.Position) {
	a.Pos = target
	a.StepsTaken++
	a.BlockedSteps = 0
}

// ExecuteAction applies the action against the grid and returns whether it
// succeeded plus a short description for the event log.
func (a *Agent) ExecuteAction(action Action, g *core.Grid) (bool, string) {
	switch action.Type {
	case ActionMove:
		if a.MoveTo(action.Target, g) {
			return true, "moved"
		}
		return false, "blocked"

	case ActionPickup:
		cell := g.CellAt(action.Target)
		if cell != nil && cell.HasSurvivor && a.Pos == action.Target {
			a.Carrying = true
			g.RemoveSurvivor(action.Target)
			return true, "picked up survivor"
		}
		return false, "cannot pick up survivor"

	case ActionDrop:
		cell := g.CellAt(action.Target)
		if cell != nil && cell.IsSafeZone && a.Carrying && a.Pos == action.Target {
			a.Carrying = false
			a.SurvivorsRescued++
			return true, "dropped survivor at safe zone"
		}
		return false, "cannot drop survivor"

	case ActionTransport:
		if a.MoveTo(action.Target, g) {
			return true, "transporting"
		}
		return false, "blocked during transport"

	case ActionExplore:
		if a.MoveTo(action.Target, g) {
			a.CellsExplored++
			return true, "explored"
		}
		return false, "cannot reach exploration target"

	case ActionSuppress:
		g.AddSuppression(a.Pos, a.tuning.SuppressRadius, a.tuning.SuppressReduction, a.tuning.SuppressDuration)
		return true, "hazard suppression active"

	case ActionWait:
		return true, "waiting"
	}
	return false, "unknown action"
}

// escapeAction handles the trapped case: the agent stands on an impassable
// cell and must get off it before anything else. It prefers the first
// passable neighbor, then the lowest-risk existing neighbor, then waits.
func (a *Agent) escapeAction(g *core.Grid, m *risk.Model) (Action, bool) {
	cur := g.CellAt(a.Pos)
	if cur == nil || cur.IsPassable() {
		return Action{}, false
	}
	a.logger.Warn("agent trapped in impassable cell", "agent", a.ID, "pos", a.Pos)

	neighbors := g.Neighbors(a.Pos, true)
	for _, n := range neighbors {
		if c := g.CellAt(n); c != nil && c.IsPassable() {
			return Action{Type: ActionMove, Target: n}, true
		}
	}

	best := core.Position{}
	bestRisk := math.Inf(1)
	found := false
	for _, n := range neighbors {
		if g.CellAt(n) == nil {
			continue
		}
		if r := m.Get(n, risk.Combined); r < bestRisk {
			bestRisk = r
			best = n
			found = true
		}
	}
	if found {
		return Action{Type: ActionMove, Target: best}, true
	}
	return waitAction(), true
}

// shouldReplan reports whether the current plan must be discarded and why.
func (a *Agent) shouldReplan(g *core.Grid) (bool, string) {
	if a.BlockedSteps >= a.tuning.ReplanBlockedThreshold {
		return true, "blocked too long"
	}
	if len(a.plan) == 0 {
		return true, "no active plan"
	}
	first := a.plan[0]
	if first.Type == ActionPickup {
		if cell := g.CellAt(first.Target); cell == nil || !cell.HasSurvivor {
			return true, "survivor no longer present"
		}
	}
	return false, ""
}

// stepAlong advances one cell along the step's cached path, computing the
// route on first use. ok is false when no route exists or the path is spent.
func (a *Agent) stepAlong(step *PlanStep, q algo.PathQuery) (core.Position, bool) {
	if !step.pathSet {
		path, cost := algo.FindPath(a.Pos, step.Target, q)
		step.path = path
		step.pathSet = true
		if path != nil {
			a.logger.Debug("path computed", "agent", a.ID, "target", step.Target, "len", len(path), "cost", cost)
		}
	}
	if len(step.path) > 1 {
		next := step.path[1]
		step.path = step.path[1:]
		return next, true
	}
	return core.Position{}, false
}

// popPlan consumes and returns the head of the plan.
func (a *Agent) popPlan() *PlanStep {
	step := a.plan[0]
	a.plan = a.plan[1:]
	return step
}

func (a *Agent) clearPlan() { a.plan = nil }

// firstPassableNeighbor returns the first diagonal-inclusive neighbor the
// agent could step onto, if any.
func (a *Agent) firstPassableNeighbor(g *core.Grid) (core.Position, bool) {
	for _, n := range g.Neighbors(a.Pos, true) {
		if c := g.CellAt(n); c != nil && c.IsPassable() {
			return n, true
		}
	}
	return core.Position{}, false
}

// suppressedRisk prices a cell's combined risk net of any active hazard
// suppression there.
func suppressedRisk(p core.Position, g *core.Grid, m *risk.Model) float64 {
	r := m.Get(p, risk.Combined) - g.SuppressionAt(p)
	if r < 0 {
		return 0
	}
	return r
}
