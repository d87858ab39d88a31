package algo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

func manhattanDist(a, b core.Position) float64 {
	return float64(a.Manhattan(b))
}

func flatRisk(v float64) RiskFunc {
	return func(core.Position) float64 { return v }
}

func riskFromMap(m map[core.Position]float64) RiskFunc {
	return func(p core.Position) float64 { return m[p] }
}

func TestAllocatorParamsValidate(t *testing.T) {
	require.NoError(t, DefaultAllocatorParams().Validate())

	p := DefaultAllocatorParams()
	p.MaxSurvivorsPerAgent = 0
	assert.Error(t, p.Validate())

	p = DefaultAllocatorParams()
	p.RiskThreshold = 1.2
	assert.Error(t, p.Validate())

	p = DefaultAllocatorParams()
	p.DistanceWeight = -0.6
	assert.Error(t, p.Validate())

	p = DefaultAllocatorParams()
	p.StealFactor = 0
	assert.Error(t, p.Validate())

	p = DefaultAllocatorParams()
	p.MaxAuctionIterations = 0
	assert.Error(t, p.Validate())
}

func TestGreedyAssignsNearestAgent(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 0, Y: 0}},
		{ID: "RES-2", Role: core.RoleRescue, Pos: core.Position{X: 20, Y: 20}},
	}
	survivors := []core.Position{{X: 1, Y: 1}, {X: 19, Y: 19}}

	got := al.Allocate(agents, survivors, flatRisk(0.1), manhattanDist)
	assert.Equal(t, []core.Position{{X: 1, Y: 1}}, got["RES-1"])
	assert.Equal(t, []core.Position{{X: 19, Y: 19}}, got["RES-2"])
}

func TestGreedyRespectsCapacity(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 0, Y: 0}},
	}
	survivors := []core.Position{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 2, Y: 0}}

	got := al.Allocate(agents, survivors, flatRisk(0.1), manhattanDist)
	assert.Len(t, got["RES-1"], 2)
	assert.Equal(t, 2, got.TotalAssigned())
}

func TestGreedySkipsHighRiskSurvivors(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 0, Y: 0}},
	}
	risky := core.Position{X: 1, Y: 0}
	safe := core.Position{X: 5, Y: 5}
	risks := map[core.Position]float64{risky: 0.9, safe: 0.2}

	got := al.Allocate(agents, []core.Position{risky, safe}, riskFromMap(risks), manhattanDist)
	assert.Equal(t, []core.Position{safe}, got["RES-1"])
}

func TestGreedyIgnoresNonRescueAgents(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	agents := []core.AgentSnapshot{
		{ID: "EXP-1", Role: core.RoleExplorer, Pos: core.Position{X: 0, Y: 0}},
		{ID: "SUP-1", Role: core.RoleSupport, Pos: core.Position{X: 1, Y: 1}},
	}
	got := al.Allocate(agents, []core.Position{{X: 2, Y: 2}}, flatRisk(0.1), manhattanDist)
	assert.Empty(t, got)
}

func TestGreedyUniqueness(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 0, Y: 0}},
		{ID: "RES-2", Role: core.RoleRescue, Pos: core.Position{X: 1, Y: 0}},
	}
	s := core.Position{X: 2, Y: 0}

	got := al.Allocate(agents, []core.Position{s}, flatRisk(0.1), manhattanDist)
	assert.Equal(t, 1, got.TotalAssigned())
	assert.Equal(t, []core.Position{s}, got["RES-2"])
}

func TestAuctionWinnerHasLowestScore(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 10, Y: 0}},
		{ID: "RES-2", Role: core.RoleRescue, Pos: core.Position{X: 2, Y: 0}},
	}
	s := core.Position{X: 0, Y: 0}

	got := al.AllocateAuction(agents, []core.Position{s}, flatRisk(0.1), manhattanDist)
	assert.Equal(t, []core.Position{s}, got["RES-2"])
	assert.Empty(t, got["RES-1"])
}

func TestAuctionLoadPenaltySpreadsWork(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	// Both agents are equidistant from the second survivor; RES-1's
	// load penalty from winning the first tips it to RES-2.
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 5, Y: 0}},
		{ID: "RES-2", Role: core.RoleRescue, Pos: core.Position{X: 7, Y: 0}},
	}
	s1 := core.Position{X: 5, Y: 0}
	s2 := core.Position{X: 6, Y: 0}

	got := al.AllocateAuction(agents, []core.Position{s1, s2}, flatRisk(0.0), manhattanDist)
	assert.Equal(t, []core.Position{s1}, got["RES-1"])
	assert.Equal(t, []core.Position{s2}, got["RES-2"])
}

func TestAuctionSkipsOversubscribed(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 0, Y: 0}},
	}
	survivors := []core.Position{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}

	got := al.AllocateAuction(agents, survivors, flatRisk(0.1), manhattanDist)
	assert.Equal(t, 2, got.TotalAssigned())
}

func TestIterativeAuctionStealsOnlyWithClearImprovement(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	s := core.Position{X: 0, Y: 0}
	current := core.Allocation{"RES-1": {s}, "RES-2": nil}

	// RES-2 at distance 10 vs incumbent 11: inside the hysteresis band,
	// clearly short of the 10% steal bar.
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 11, Y: 0}},
		{ID: "RES-2", Role: core.RoleRescue, Pos: core.Position{X: 10, Y: 0}},
	}
	got := al.AllocateIterativeAuction(agents, []core.Position{s}, flatRisk(0.0), manhattanDist, current)
	assert.Equal(t, []core.Position{s}, got["RES-1"])

	// At distance 2 the challenger clears the bar and takes the task.
	agents[1].Pos = core.Position{X: 2, Y: 0}
	got = al.AllocateIterativeAuction(agents, []core.Position{s}, flatRisk(0.0), manhattanDist, current)
	assert.Empty(t, got["RES-1"])
	assert.Equal(t, []core.Position{s}, got["RES-2"])
}

func TestIterativeAuctionAssignsOrphans(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	s := core.Position{X: 3, Y: 3}
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 0, Y: 0}},
	}

	got := al.AllocateIterativeAuction(agents, []core.Position{s}, flatRisk(0.1), manhattanDist, nil)
	assert.Equal(t, []core.Position{s}, got["RES-1"])
}

func TestReallocateOnFailure(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	s := core.Position{X: 5, Y: 5}
	allocation := core.Allocation{"RES-1": {s}, "RES-2": nil}
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 0, Y: 0}},
		{ID: "RES-2", Role: core.RoleRescue, Pos: core.Position{X: 6, Y: 5}},
	}

	newAgent, ok := al.ReallocateOnFailure(allocation, "RES-1", s, agents, flatRisk(0.1), manhattanDist)
	require.True(t, ok)
	assert.Equal(t, "RES-2", newAgent)
	assert.Empty(t, allocation["RES-1"])
	assert.Equal(t, []core.Position{s}, allocation["RES-2"])
}

func TestReallocateOnFailureNoCandidate(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	s := core.Position{X: 5, Y: 5}
	allocation := core.Allocation{"RES-1": {s}}
	agents := []core.AgentSnapshot{
		{ID: "RES-1", Role: core.RoleRescue, Pos: core.Position{X: 0, Y: 0}},
	}

	_, ok := al.ReallocateOnFailure(allocation, "RES-1", s, agents, flatRisk(0.1), manhattanDist)
	assert.False(t, ok)
	assert.Empty(t, allocation["RES-1"])
}

func TestValidateAllocation(t *testing.T) {
	al := NewAllocator(DefaultAllocatorParams())
	s1 := core.Position{X: 1, Y: 1}
	s2 := core.Position{X: 2, Y: 2}

	ok := core.Allocation{"RES-1": {s1, s2}}
	assert.NoError(t, al.ValidateAllocation(ok, []core.Position{s1, s2}))

	missing := core.Allocation{"RES-1": {s1}}
	assert.Error(t, al.ValidateAllocation(missing, []core.Position{s1, s2}))

	over := core.Allocation{"RES-1": {s1, s2, {X: 3, Y: 3}}}
	assert.Error(t, al.ValidateAllocation(over, []core.Position{s1, s2, {X: 3, Y: 3}}))
}
