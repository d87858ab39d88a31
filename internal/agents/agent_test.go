package agents

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/logging"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/risk"
)

func newTestAgent(id string, role core.Role, pos core.Position) *Agent {
	return New(id, role, pos, DefaultTuning(), logging.NoOpLogger{}, rand.New(rand.NewSource(1)))
}

func newTestWorld(w, h int) (*core.Grid, *risk.Model) {
	g := core.NewGrid(w, h, 7)
	m := risk.NewModel(risk.DefaultParams(), w, h)
	return g, m
}

func TestTuningValidate(t *testing.T) {
	require.NoError(t, DefaultTuning().Validate())

	bad := DefaultTuning()
	bad.RiskThresholdRescue = 1.3
	assert.Error(t, bad.Validate())

	bad = DefaultTuning()
	bad.CuriosityWeight = -0.2
	assert.Error(t, bad.Validate())

	bad = DefaultTuning()
	bad.ReplanBlockedThreshold = 0
	assert.Error(t, bad.Validate())

	bad = DefaultTuning()
	bad.SuppressDuration = 0
	assert.Error(t, bad.Validate())

	bad = DefaultTuning()
	bad.SuppressRadius = -1
	assert.Error(t, bad.Validate())
}

func TestMoveToBlockedByFire(t *testing.T) {
	g, _ := newTestWorld(3, 3)
	require.True(t, g.AddFire(core.Position{X: 1, Y: 0}))

	exp := newTestAgent("EXP-1", core.RoleExplorer, core.Position{X: 0, Y: 0})
	assert.False(t, exp.MoveTo(core.Position{X: 1, Y: 0}, g))
	assert.Equal(t, 1, exp.BlockedSteps)
	assert.Equal(t, core.Position{X: 0, Y: 0}, exp.Pos)
}

func TestMoveToRescueEntersHazard(t *testing.T) {
	g, _ := newTestWorld(3, 3)
	require.True(t, g.AddFire(core.Position{X: 1, Y: 0}))

	res := newTestAgent("RES-1", core.RoleRescue, core.Position{X: 0, Y: 0})
	assert.True(t, res.MoveTo(core.Position{X: 1, Y: 0}, g))
	assert.Equal(t, core.Position{X: 1, Y: 0}, res.Pos)
	assert.Equal(t, 0, res.BlockedSteps)
	assert.Equal(t, 1, res.StepsTaken)
}

func TestTrappedAgentEscapes(t *testing.T) {
	g, m := newTestWorld(3, 3)
	pos := core.Position{X: 1, Y: 1}
	require.True(t, g.AddFire(pos))

	exp := newTestAgent("EXP-1", core.RoleExplorer, pos)
	act := exp.DecideAction(g, m, Context{})
	require.Equal(t, ActionMove, act.Type)

	cell := g.CellAt(act.Target)
	require.NotNil(t, cell)
	assert.True(t, cell.IsPassable())

	ok, _ := exp.ExecuteAction(act, g)
	assert.True(t, ok)
	assert.Equal(t, act.Target, exp.Pos)
}

func TestExplorerTargetsFrontier(t *testing.T) {
	g, m := newTestWorld(5, 5)
	exp := newTestAgent("EXP-1", core.RoleExplorer, core.Position{X: 2, Y: 2})
	exp.Perceive(g, m)

	act := exp.DecideAction(g, m, Context{})
	require.Equal(t, ActionExplore, act.Type)
	assert.Equal(t, 1, exp.Pos.Manhattan(act.Target))

	ok, _ := exp.ExecuteAction(act, g)
	require.True(t, ok)
	assert.Equal(t, 1, exp.CellsExplored)
}

func TestExplorerSkipsRiskyFrontier(t *testing.T) {
	g, m := newTestWorld(5, 5)
	floodPos := core.Position{X: 1, Y: 2}
	require.True(t, g.AddFlood(floodPos))

	// Another agent already observed the flooded cell, so its risk is
	// known with certainty even though it is still passable.
	m.Observe(g.CellAt(floodPos), nil)
	require.Greater(t, m.Get(floodPos, risk.Combined), 0.7)

	exp := newTestAgent("EXP-1", core.RoleExplorer, core.Position{X: 2, Y: 2})
	exp.Perceive(g, m)

	act := exp.DecideAction(g, m, Context{})
	require.Equal(t, ActionExplore, act.Type)
	assert.NotEqual(t, floodPos, act.Target)
}

func TestRescueFullCycle(t *testing.T) {
	g, m := newTestWorld(7, 1)
	survivor := core.Position{X: 3, Y: 0}
	zone := core.Position{X: 6, Y: 0}
	require.True(t, g.AddSurvivor(survivor))
	require.True(t, g.AddSafeZone(zone))

	res := newTestAgent("RES-1", core.RoleRescue, core.Position{X: 0, Y: 0})

	rescued := false
	for i := 0; i < 20 && !rescued; i++ {
		act := res.DecideAction(g, m, Context{})
		ok, _ := res.ExecuteAction(act, g)
		require.True(t, ok, "action %v failed at step %d", act, i)
		rescued = res.SurvivorsRescued == 1
	}

	assert.True(t, rescued)
	assert.False(t, res.Carrying)
	assert.Empty(t, g.Survivors())
	assert.Equal(t, core.Position{X: 6, Y: 0}, res.Pos)
}

func TestRescuePrefersAssignedSurvivor(t *testing.T) {
	g, m := newTestWorld(10, 1)
	near := core.Position{X: 2, Y: 0}
	far := core.Position{X: 8, Y: 0}
	require.True(t, g.AddSurvivor(near))
	require.True(t, g.AddSurvivor(far))
	require.True(t, g.AddSafeZone(core.Position{X: 9, Y: 0}))

	res := newTestAgent("RES-1", core.RoleRescue, core.Position{X: 0, Y: 0})
	alloc := core.Allocation{"RES-1": {far}}

	act := res.DecideAction(g, m, Context{Allocation: alloc})
	require.Equal(t, ActionMove, act.Type)
	assert.Equal(t, core.Position{X: 1, Y: 0}, act.Target)
	assert.Equal(t, []core.Position{far}, res.Assigned)
}

func TestRescueReplansWhenSurvivorGone(t *testing.T) {
	g, m := newTestWorld(7, 1)
	s1 := core.Position{X: 1, Y: 0}
	s2 := core.Position{X: 4, Y: 0}
	require.True(t, g.AddSurvivor(s1))
	require.True(t, g.AddSurvivor(s2))
	require.True(t, g.AddSafeZone(core.Position{X: 6, Y: 0}))

	res := newTestAgent("RES-1", core.RoleRescue, core.Position{X: 0, Y: 0})

	act := res.DecideAction(g, m, Context{})
	require.Equal(t, ActionMove, act.Type)
	ok, _ := res.ExecuteAction(act, g)
	require.True(t, ok)
	require.Equal(t, s1, res.Pos)

	// Another agent got there first. The stale pickup fails, the plan
	// drains, and the next replan goes after the remaining survivor.
	g.RemoveSurvivor(s1)

	for i := 0; i < 30 && res.SurvivorsRescued == 0; i++ {
		act := res.DecideAction(g, m, Context{})
		res.ExecuteAction(act, g)
	}
	assert.Equal(t, 1, res.SurvivorsRescued)
	assert.Empty(t, g.Survivors())
}

func TestPickupRequiresColocation(t *testing.T) {
	g, _ := newTestWorld(3, 3)
	survivor := core.Position{X: 2, Y: 2}
	require.True(t, g.AddSurvivor(survivor))

	res := newTestAgent("RES-1", core.RoleRescue, core.Position{X: 0, Y: 0})
	ok, _ := res.ExecuteAction(Action{Type: ActionPickup, Target: survivor}, g)
	assert.False(t, ok)
	assert.False(t, res.Carrying)
}

func TestDropRequiresSafeZone(t *testing.T) {
	g, _ := newTestWorld(3, 3)
	res := newTestAgent("RES-1", core.RoleRescue, core.Position{X: 0, Y: 0})
	res.Carrying = true

	ok, _ := res.ExecuteAction(Action{Type: ActionDrop, Target: res.Pos}, g)
	assert.False(t, ok)
	assert.True(t, res.Carrying)
	assert.Equal(t, 0, res.SurvivorsRescued)
}

func TestSupportSuppressesNearRescue(t *testing.T) {
	g, m := newTestWorld(5, 5)
	pos := core.Position{X: 2, Y: 2}
	require.True(t, g.AddFlood(pos))

	sup := newTestAgent("SUP-1", core.RoleSupport, pos)
	sup.Perceive(g, m)

	ctx := Context{Agents: []core.AgentSnapshot{
		{ID: "RES-1", Pos: core.Position{X: 3, Y: 2}, Role: core.RoleRescue},
	}}
	act := sup.DecideAction(g, m, ctx)
	require.Equal(t, ActionSuppress, act.Type)

	ok, _ := sup.ExecuteAction(act, g)
	require.True(t, ok)
	assert.InDelta(t, 0.3, g.SuppressionAt(pos), 1e-9)

	// Cooldown blocks an immediate second suppression.
	act = sup.DecideAction(g, m, ctx)
	assert.NotEqual(t, ActionSuppress, act.Type)
}

func TestSupportSuppressesNextToSurvivor(t *testing.T) {
	g, m := newTestWorld(5, 5)
	pos := core.Position{X: 2, Y: 2}
	require.True(t, g.AddFlood(pos))
	require.True(t, g.AddSurvivor(core.Position{X: 2, Y: 3}))

	sup := newTestAgent("SUP-1", core.RoleSupport, pos)
	sup.Perceive(g, m)

	act := sup.DecideAction(g, m, Context{})
	assert.Equal(t, ActionSuppress, act.Type)
}

func TestSupportNoSuppressWithoutTrigger(t *testing.T) {
	g, m := newTestWorld(5, 5)
	pos := core.Position{X: 2, Y: 2}
	require.True(t, g.AddFlood(pos))

	sup := newTestAgent("SUP-1", core.RoleSupport, pos)
	sup.Perceive(g, m)

	// High risk but no rescue agent nearby and no adjacent survivor.
	act := sup.DecideAction(g, m, Context{})
	assert.NotEqual(t, ActionSuppress, act.Type)
}

func TestSupportShadowsRescueAgent(t *testing.T) {
	g, m := newTestWorld(6, 6)
	sup := newTestAgent("SUP-1", core.RoleSupport, core.Position{X: 1, Y: 4})

	rescuePos := core.Position{X: 4, Y: 4}
	ctx := Context{Agents: []core.AgentSnapshot{
		{ID: "RES-1", Pos: rescuePos, Role: core.RoleRescue},
	}}
	act := sup.DecideAction(g, m, ctx)
	require.Equal(t, ActionMove, act.Type)
	assert.Equal(t, 1, sup.Pos.Manhattan(act.Target))
}

func TestSupportKeepsDistance(t *testing.T) {
	g, m := newTestWorld(6, 6)
	sup := newTestAgent("SUP-1", core.RoleSupport, core.Position{X: 3, Y: 4})

	// Too close to shadow; with uniform low risk there is nothing to
	// scout either, so the agent patrols or waits.
	ctx := Context{Agents: []core.AgentSnapshot{
		{ID: "RES-1", Pos: core.Position{X: 4, Y: 4}, Role: core.RoleRescue},
	}}
	act := sup.DecideAction(g, m, ctx)
	assert.Contains(t, []ActionType{ActionMove, ActionWait}, act.Type)
	assert.NotEqual(t, ActionSuppress, act.Type)
}

func TestPerceiveRecordsSurvivors(t *testing.T) {
	g, m := newTestWorld(4, 4)
	survivor := core.Position{X: 1, Y: 2}
	require.True(t, g.AddSurvivor(survivor))

	exp := newTestAgent("EXP-1", core.RoleExplorer, core.Position{X: 1, Y: 1})
	exp.Perceive(g, m)

	assert.True(t, exp.Explored[exp.Pos])
	assert.Equal(t, []core.Position{survivor}, exp.KnownSurvivors)

	// Repeat perception does not duplicate the sighting.
	exp.Perceive(g, m)
	assert.Len(t, exp.KnownSurvivors, 1)
}

func TestSnapshot(t *testing.T) {
	res := newTestAgent("RES-1", core.RoleRescue, core.Position{X: 2, Y: 3})
	res.Assigned = []core.Position{{X: 1, Y: 1}, {X: 2, Y: 2}}
	res.Carrying = true

	snap := res.Snapshot()
	assert.Equal(t, "RES-1", snap.ID)
	assert.Equal(t, core.RoleRescue, snap.Role)
	assert.Equal(t, core.Position{X: 2, Y: 3}, snap.Pos)
	assert.Equal(t, 2, snap.Load)
	assert.True(t, snap.Carrying)
}
