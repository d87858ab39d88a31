package agents

import (
	"sort"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/algo"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/risk"
)

// supportStrategy shadows rescue agents through dangerous ground, scouts
// moderately risky areas, and suppresses hazards near active rescues.
type supportStrategy struct{}

func (s supportStrategy) decide(a *Agent, g *core.Grid, m *risk.Model, ctx Context) Action {
	if a.suppressCooldown > 0 {
		a.suppressCooldown--
	}

	if esc, ok := a.escapeAction(g, m); ok {
		return esc
	}

	a.monitored = a.monitored[:0]
	for _, snap := range ctx.Agents {
		if snap.ID != a.ID {
			a.monitored = append(a.monitored, snap)
		}
	}

	if act, ok := s.suppressAction(a, g, m); ok {
		return act
	}

	if replan, reason := a.shouldReplan(g); replan {
		if reason != "no active plan" {
			a.logger.Debug("replanning", "agent", a.ID, "reason", reason)
		}
		a.plan = planSupport(a, g, m)
	}

	if len(a.plan) > 0 {
		step := a.popPlan()
		if step.Type == ActionMove && a.Pos != step.Target {
			next, ok := a.stepAlong(step, s.pathQuery(a, g, m))
			if !ok {
				return waitAction()
			}
			return Action{Type: ActionMove, Target: next}
		}
		return Action{Type: step.Type, Target: step.Target}
	}

	// Nothing specific to do; drift toward low-risk ground.
	if plan := patrolPlan(a, g, m, a.tuning.RiskThresholdSupport); len(plan) > 0 {
		return Action{Type: ActionMove, Target: plan[0].Target}
	}
	return waitAction()
}

// suppressAction fires when local risk crosses the trigger while a rescue
// agent works nearby or a survivor sits on an adjacent cell.
func (s supportStrategy) suppressAction(a *Agent, g *core.Grid, m *risk.Model) (Action, bool) {
	if a.suppressCooldown > 0 {
		return Action{}, false
	}
	if suppressedRisk(a.Pos, g, m) < a.tuning.SuppressRiskTrigger {
		return Action{}, false
	}

	assisting := false
	for _, snap := range a.monitored {
		if snap.Role == core.RoleRescue && a.Pos.Manhattan(snap.Pos) <= a.tuning.SuppressAssistRange {
			assisting = true
			break
		}
	}
	if !assisting {
		for _, n := range g.Neighbors(a.Pos, true) {
			if c := g.CellAt(n); c != nil && c.HasSurvivor {
				assisting = true
				break
			}
		}
	}
	if !assisting {
		return Action{}, false
	}

	a.suppressCooldown = a.tuning.SuppressCooldown
	a.logger.Info("suppressing hazards", "agent", a.ID, "pos", a.Pos)
	return Action{Type: ActionSuppress, Target: a.Pos}, true
}

// planSupport positions near the rescue agent most in need, else scouts a
// moderately risky area.
func planSupport(a *Agent, g *core.Grid, m *risk.Model) []*PlanStep {
	if target, ok := supportTarget(a, g, m); ok {
		a.logger.Debug("support positioning", "agent", a.ID, "target", target)
		return []*PlanStep{{Type: ActionMove, Target: target}}
	}

	if risky := riskyAreas(a, g, m); len(risky) > 0 {
		return []*PlanStep{{Type: ActionMove, Target: risky[0]}}
	}
	return nil
}

// supportTarget picks a cell next to the monitored rescue agent with the
// highest risk-weighted priority, keeping a respectful distance.
func supportTarget(a *Agent, g *core.Grid, m *risk.Model) (core.Position, bool) {
	best := core.Position{}
	bestPriority := -1.0
	found := false
	for _, snap := range a.monitored {
		if snap.Role != core.RoleRescue {
			continue
		}
		d := a.Pos.Manhattan(snap.Pos)
		if d < 3 {
			continue
		}
		r := m.Get(snap.Pos, risk.Combined)
		priority := r*a.tuning.CoordinationWeight - float64(d)*(1.0-a.tuning.CoordinationWeight)
		if priority > bestPriority {
			bestPriority = priority
			best = nearbyPassable(snap.Pos, g)
			found = true
		}
	}
	return best, found
}

// nearbyPassable returns a passable neighbor of target, or target itself.
func nearbyPassable(target core.Position, g *core.Grid) core.Position {
	for _, n := range g.Neighbors(target, true) {
		if c := g.CellAt(n); c != nil && c.IsPassable() {
			return n
		}
	}
	return target
}

// riskyAreas samples the grid for moderate-risk cells worth scouting,
// nearest first.
func riskyAreas(a *Agent, g *core.Grid, m *risk.Model) []core.Position {
	var risky []core.Position
	for x := 0; x < g.Width; x += 5 {
		for y := 0; y < g.Height; y += 5 {
			p := core.Position{X: x, Y: y}
			c := g.CellAt(p)
			if c == nil || !c.IsPassable() {
				continue
			}
			r := m.Get(p, risk.Combined)
			if r > 0.3 && r < a.tuning.RiskThresholdSupport {
				risky = append(risky, p)
			}
		}
	}
	sort.SliceStable(risky, func(i, j int) bool {
		return a.Pos.Manhattan(risky[i]) < a.Pos.Manhattan(risky[j])
	})
	if len(risky) > 5 {
		risky = risky[:5]
	}
	return risky
}

// pathQuery prices routes with the highest risk tolerance of the three
// roles: smaller hazard surcharges and risk discounted to a third.
func (supportStrategy) pathQuery(a *Agent, g *core.Grid, m *risk.Model) algo.PathQuery {
	return algo.PathQuery{
		IsPassable: func(p core.Position) bool { return g.CellAt(p) != nil },
		Neighbors:  func(p core.Position) []core.Position { return g.Neighbors(p, false) },
		TerrainCost: func(p core.Position) float64 {
			return hazardTerrainCost(g.CellAt(p), 50, 25)
		},
		RiskCost: func(p core.Position) float64 {
			return algo.RiskCostFor(suppressedRisk(p, g, m)) * 0.3
		},
	}
}
