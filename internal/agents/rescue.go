package agents

import (
	"math"
	"sort"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/algo"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/risk"
)

// rescueStrategy carries survivors to safe zones, following coordinator
// assignments when it has them and hunting reachable survivors otherwise.
type rescueStrategy struct{}

func (s rescueStrategy) decide(a *Agent, g *core.Grid, m *risk.Model, ctx Context) Action {
	if esc, ok := a.escapeAction(g, m); ok {
		return esc
	}

	if tasks, ok := ctx.Allocation[a.ID]; ok {
		a.Assigned = tasks
	}

	if replan, reason := a.shouldReplan(g); replan {
		if reason != "no active plan" {
			a.logger.Debug("replanning", "agent", a.ID, "reason", reason)
		}
		a.plan = planRescue(a, g, m)
	}

	if len(a.plan) > 0 {
		step := a.plan[0]
		if step.Type != ActionMove && step.Type != ActionTransport {
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

		next, ok := a.stepAlong(step, s.pathQuery(a, g, m))
		if !ok {
			// Goal unreachable right now. Drop the plan, nudge off the
			// current cell if possible and let the next cycle pick an
			// alternative target.
			a.logger.Debug("no route to goal", "agent", a.ID, "target", step.Target)
			a.clearPlan()
			a.BlockedSteps++
			if n, ok := a.firstPassableNeighbor(g); ok {
				return Action{Type: ActionMove, Target: n}
			}
			return waitAction()
		}
		return Action{Type: step.Type, Target: next}
	}

	return waitAction()
}

// planRescue builds the full move/pickup/transport/drop sequence for the
// chosen survivor, or a delivery plan when already carrying one.
func planRescue(a *Agent, g *core.Grid, m *risk.Model) []*PlanStep {
	if a.Carrying {
		return planDelivery(a, g, m)
	}

	survivor, ok := selectRescueTarget(a, g, m)
	if !ok {
		return nil
	}
	zones := g.SafeZones()
	if len(zones) == 0 {
		a.logger.Error("no safe zones available", "agent", a.ID)
		return nil
	}
	zone := nearestByManhattan(survivor, zones)

	var plan []*PlanStep
	if a.Pos != survivor {
		plan = append(plan, &PlanStep{Type: ActionMove, Target: survivor})
	}
	plan = append(plan,
		&PlanStep{Type: ActionPickup, Target: survivor},
		&PlanStep{Type: ActionTransport, Target: zone},
		&PlanStep{Type: ActionDrop, Target: zone},
	)
	a.logger.Debug("rescue planned", "agent", a.ID, "survivor", survivor, "zone", zone)
	return plan
}

// planDelivery routes the carried survivor to the cheapest reachable safe
// zone, falling back to the first zone when none is reachable.
func planDelivery(a *Agent, g *core.Grid, m *risk.Model) []*PlanStep {
	zones := g.SafeZones()
	if len(zones) == 0 {
		return nil
	}

	q := algo.PathQuery{
		IsPassable: func(p core.Position) bool {
			c := g.CellAt(p)
			return c != nil && c.IsPassable()
		},
		Neighbors:   func(p core.Position) []core.Position { return g.Neighbors(p, false) },
		TerrainCost: func(p core.Position) float64 { return algo.TerrainCostFor(g.CellAt(p)) },
		RiskCost: func(p core.Position) float64 {
			return algo.RiskCostFor(m.Get(p, risk.Combined))
		},
	}
	zone, _, _, ok := algo.FindNearestGoal(a.Pos, zones, q)
	if !ok {
		zone = zones[0]
	}

	return []*PlanStep{
		{Type: ActionTransport, Target: zone},
		{Type: ActionDrop, Target: zone},
	}
}

// selectRescueTarget picks the survivor to rescue: assigned tasks that still
// stand, then any survivor, preferring reachable ones scored by distance and
// risk under the urgency weight.
func selectRescueTarget(a *Agent, g *core.Grid, m *risk.Model) (core.Position, bool) {
	survivors := g.Survivors()
	present := map[core.Position]bool{}
	for _, p := range survivors {
		present[p] = true
	}

	var candidates []core.Position
	for _, p := range a.Assigned {
		if present[p] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = survivors
	}
	if len(candidates) == 0 {
		return core.Position{}, false
	}

	q := rescueStrategy{}.pathQuery(a, g, m)
	if target, ok := bestReachable(a, m, candidates, q); ok {
		return target, true
	}

	// Every candidate is cut off; widen to survivors outside the
	// assignment.
	assigned := map[core.Position]bool{}
	for _, p := range a.Assigned {
		assigned[p] = true
	}
	var unassigned []core.Position
	for _, p := range survivors {
		if !assigned[p] {
			unassigned = append(unassigned, p)
		}
	}
	if target, ok := bestReachable(a, m, unassigned, q); ok {
		return target, true
	}

	// Nothing reachable at all. Keep a goal anyway so the agent works
	// toward it as hazards shift.
	return candidates[0], true
}

func bestReachable(a *Agent, m *risk.Model, candidates []core.Position, q algo.PathQuery) (core.Position, bool) {
	type scored struct {
		score float64
		pos   core.Position
	}
	var reachable []scored
	for _, p := range candidates {
		path, _ := algo.FindPath(a.Pos, p, q)
		if path == nil {
			continue
		}
		d := float64(a.Pos.Manhattan(p))
		r := m.Get(p, risk.Combined)
		score := d*(1.0-a.tuning.UrgencyWeight) + r*100*a.tuning.UrgencyWeight
		reachable = append(reachable, scored{score, p})
	}
	if len(reachable) == 0 {
		return core.Position{}, false
	}
	sort.SliceStable(reachable, func(i, j int) bool { return reachable[i].score < reachable[j].score })
	return reachable[0].pos, true
}

func nearestByManhattan(from core.Position, targets []core.Position) core.Position {
	best := targets[0]
	bestDist := math.MaxInt
	for _, t := range targets {
		if d := from.Manhattan(t); d < bestDist {
			bestDist = d
			best = t
		}
	}
	return best
}

// pathQuery prices routes for rescue work: all cells traversable, fire and
// debris heavily surcharged so they are crossed only when nothing else
// works.
func (rescueStrategy) pathQuery(a *Agent, g *core.Grid, m *risk.Model) algo.PathQuery {
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
