package agents

import (
	"math"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/algo"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/risk"
)

// explorerStrategy pushes the frontier between known and unknown cells,
// feeding observations into the shared risk model as it goes.
type explorerStrategy struct{}

func (explorerStrategy) decide(a *Agent, g *core.Grid, m *risk.Model, _ Context) Action {
	if esc, ok := a.escapeAction(g, m); ok {
		return esc
	}

	if replan, reason := a.shouldReplan(g); replan {
		if reason != "no active plan" {
			a.logger.Debug("replanning", "agent", a.ID, "reason", reason)
		}
		a.plan = planExploration(a, g, m)
	}

	if len(a.plan) > 0 {
		step := a.plan[0]
		if step.Type != ActionExplore && step.Type != ActionMove {
			a.popPlan()
			return Action{Type: step.Type, Target: step.Target}
		}

		if a.Pos == step.Target {
			a.popPlan()
			if len(a.plan) > 0 {
				next := a.popPlan()
				return Action{Type: next.Type, Target: next.Target}
			}
			return waitAction()
		}

		next, ok := a.stepAlong(step, explorerStrategy{}.pathQuery(a, g, m))
		if !ok {
			a.clearPlan()
			return waitAction()
		}
		return Action{Type: ActionExplore, Target: next}
	}

	return waitAction()
}

// planExploration picks a frontier target and wraps it in a one-step plan,
// falling back to a random patrol when the map is fully known.
func planExploration(a *Agent, g *core.Grid, m *risk.Model) []*PlanStep {
	frontier := explorationFrontier(a, g)
	if len(frontier) == 0 {
		return patrolPlan(a, g, m, a.tuning.RiskThresholdExplorer)
	}

	target, ok := selectFrontierTarget(a, m, frontier)
	if !ok {
		return nil
	}
	a.logger.Debug("exploration target chosen", "agent", a.ID, "target", target)
	return []*PlanStep{{Type: ActionExplore, Target: target}}
}

// explorationFrontier lists passable unexplored cells adjacent to cells this
// agent has already explored.
func explorationFrontier(a *Agent, g *core.Grid) []core.Position {
	seen := map[core.Position]bool{}
	var frontier []core.Position
	for p := range a.Explored {
		for _, n := range g.Neighbors(p, false) {
			if a.Explored[n] || seen[n] {
				continue
			}
			if c := g.CellAt(n); c != nil && c.IsPassable() {
				seen[n] = true
				frontier = append(frontier, n)
			}
		}
	}
	core.SortPositions(frontier)
	return frontier
}

// selectFrontierTarget scores frontier cells by distance and risk, weighted
// by curiosity, skipping anything above the explorer's risk threshold.
func selectFrontierTarget(a *Agent, m *risk.Model, frontier []core.Position) (core.Position, bool) {
	best := core.Position{}
	bestScore := math.Inf(1)
	found := false
	for _, target := range frontier {
		r := m.Get(target, risk.Combined)
		if r > a.tuning.RiskThresholdExplorer {
			continue
		}
		d := float64(a.Pos.Manhattan(target))
		score := d*(1.0-a.tuning.CuriosityWeight) + r*100*a.tuning.CuriosityWeight
		if score < bestScore {
			bestScore = score
			best = target
			found = true
		}
	}
	return best, found
}

// patrolPlan wanders to a random safe neighbor when there is nothing left to
// explore.
func patrolPlan(a *Agent, g *core.Grid, m *risk.Model, threshold float64) []*PlanStep {
	var targets []core.Position
	for _, n := range g.Neighbors(a.Pos, true) {
		c := g.CellAt(n)
		if c == nil || !c.IsPassable() {
			continue
		}
		if m.Get(n, risk.Combined) < threshold {
			targets = append(targets, n)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	target := targets[a.rng.Intn(len(targets))]
	return []*PlanStep{{Type: ActionMove, Target: target}}
}

// pathQuery prices routes for exploration: any existing cell is traversable,
// with steep surcharges for fire and debris so hazards are a last resort.
func (explorerStrategy) pathQuery(a *Agent, g *core.Grid, m *risk.Model) algo.PathQuery {
	return algo.PathQuery{
		IsPassable: func(p core.Position) bool { return g.CellAt(p) != nil },
		Neighbors:  func(p core.Position) []core.Position { return g.Neighbors(p, false) },
		TerrainCost: func(p core.Position) float64 {
			return hazardTerrainCost(g.CellAt(p), 100, 50)
		},
		RiskCost: func(p core.Position) float64 {
			return algo.RiskCostFor(suppressedRisk(p, g, m))
		},
	}
}

// hazardTerrainCost is the base terrain cost plus role-specific surcharges
// for fire and debris cells.
func hazardTerrainCost(c *core.Cell, firePenalty, debrisPenalty float64) float64 {
	cost := algo.TerrainCostFor(c)
	if c == nil || math.IsInf(cost, 1) {
		return cost
	}
	if c.HasFire {
		cost += firePenalty
	}
	if c.HasDebris {
		cost += debrisPenalty
	}
	return cost
}
