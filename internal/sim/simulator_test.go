package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/algo"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/audit"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/scenario"
)

// solvableScenario is a small hazard-free world with one survivor a few
// cells from the safe zone.
func solvableScenario() scenario.Scenario {
	return scenario.Scenario{
		Name:      "solvable",
		Width:     10,
		Height:    8,
		Seed:      7,
		SafeZones: []core.Position{{X: 1, Y: 1}},
		Survivors: []core.Position{{X: 5, Y: 4}},
		AgentStarts: scenario.AgentStarts{
			Explorer: core.Position{X: 2, Y: 1},
			Rescue:   core.Position{X: 1, Y: 2},
			Support:  core.Position{X: 2, Y: 2},
		},
	}
}

// distantScenario puts the survivor far enough from the team that no
// rescue cycle can complete within a small timestep budget. Distance is
// the only reliable barrier here: rescue agents may enter hazardous
// cells, so walls of debris do not stop them.
func distantScenario() scenario.Scenario {
	return scenario.Scenario{
		Name:      "distant",
		Width:     40,
		Height:    8,
		Seed:      7,
		SafeZones: []core.Position{{X: 1, Y: 1}},
		Survivors: []core.Position{{X: 38, Y: 6}},
		AgentStarts: scenario.AgentStarts{
			Explorer: core.Position{X: 2, Y: 1},
			Rescue:   core.Position{X: 1, Y: 2},
			Support:  core.Position{X: 2, Y: 2},
		},
	}
}

func testConfig(sc scenario.Scenario) Config {
	cfg := DefaultConfig()
	cfg.Scenario = sc
	cfg.EnableSpawning = false
	cfg.MaxTimesteps = 200
	return cfg
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		name string
		want algo.Mode
		ok   bool
	}{
		{"centralized", algo.ModeCentralized, true},
		{"auction", algo.ModeAuction, true},
		{"coalition", algo.ModeCoalition, true},
		{"hybrid", algo.ModeHybrid, true},
		{"auto", algo.ModeHybrid, true},
		{"", algo.ModeHybrid, true},
		{"quantum", algo.ModeHybrid, false},
	}
	for _, tc := range cases {
		mode, err := ParseMode(tc.name)
		if tc.ok {
			require.NoError(t, err, tc.name)
			assert.Equal(t, tc.want, mode, tc.name)
		} else {
			assert.Error(t, err, tc.name)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig(solvableScenario())
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.MaxTimesteps = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.CommRange = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Scenario.SafeZones = nil
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Tuning.UrgencyWeight = 1.5
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Allocator.RiskThreshold = -0.1
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Risk.UpdateRate = 0
	assert.Error(t, bad.Validate())
}

func TestNewBuildsInitialRoster(t *testing.T) {
	s, err := New(testConfig(solvableScenario()))
	require.NoError(t, err)

	team := s.Agents()
	require.Len(t, team, 6)

	ids := make([]string, len(team))
	for i, a := range team {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"EXP-1", "EXP-2", "RES-1", "RES-2", "RES-3", "SUP-1"}, ids)
	assert.Equal(t, core.Position{X: 1, Y: 2}, team[2].Pos)
	assert.Equal(t, core.RoleSupport, team[5].Role)
}

func TestStepAdvancesWorld(t *testing.T) {
	s, err := New(testConfig(solvableScenario()))
	require.NoError(t, err)

	s.Step()

	assert.Equal(t, 1, s.Timestep())
	assert.Equal(t, 1, s.Grid().Timestep)
	// Every agent perceived its own cell.
	assert.GreaterOrEqual(t, s.Metrics().CellsExplored, 3)
}

func TestRunRescuesAllSurvivors(t *testing.T) {
	cfg := testConfig(solvableScenario())
	cfg.ForceMode = algo.ModeCentralized

	s, err := New(cfg)
	require.NoError(t, err)

	m, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, s.Done())
	assert.Equal(t, 1, m.SurvivorsRescued)
	assert.Equal(t, 0, m.SurvivorsRemaining)
	assert.Equal(t, 1, m.InitialSurvivors)
	assert.InDelta(t, 1.0, m.RescueRate(), 1e-9)
	assert.Less(t, m.Timesteps, cfg.MaxTimesteps)
}

func TestDoneRequiresDelivery(t *testing.T) {
	cfg := testConfig(solvableScenario())
	cfg.ForceMode = algo.ModeCentralized

	s, err := New(cfg)
	require.NoError(t, err)

	// Step until the survivor leaves the grid, i.e. the moment of
	// pickup.
	for i := 0; i < cfg.MaxTimesteps && len(s.Grid().Survivors()) > 0; i++ {
		s.Step()
	}
	require.Empty(t, s.Grid().Survivors())

	carrying := 0
	for _, a := range s.Agents() {
		if a.Carrying {
			carrying++
		}
	}
	require.Equal(t, 1, carrying)
	assert.False(t, s.Done())
	assert.Equal(t, 0, s.Metrics().SurvivorsRescued)

	// The run only completes once the survivor is dropped at a safe
	// zone.
	for i := 0; i < cfg.MaxTimesteps && !s.Done(); i++ {
		s.Step()
	}
	assert.True(t, s.Done())
	assert.Equal(t, 1, s.Metrics().SurvivorsRescued)
}

func TestRunStopsAtTimestepBudget(t *testing.T) {
	cfg := testConfig(distantScenario())
	cfg.MaxTimesteps = 25

	s, err := New(cfg)
	require.NoError(t, err)

	m, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 25, m.Timesteps)
	assert.Equal(t, 1, m.SurvivorsRemaining)
	assert.Equal(t, 0, m.SurvivorsRescued)
}

func TestRunHonorsContextCancel(t *testing.T) {
	s, err := New(testConfig(distantScenario()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuditTrailRecordsDecisions(t *testing.T) {
	s, err := New(testConfig(distantScenario()))
	require.NoError(t, err)

	for i := 0; i < 11; i++ {
		s.Step()
	}

	counts := s.Trail().CountByType()
	// Periodic assessments land on timesteps 0 and 10.
	assert.Equal(t, 2, counts[audit.RiskAssessment])
}

func TestSpawningDisabledAddsNoAgents(t *testing.T) {
	s, err := New(testConfig(distantScenario()))
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		s.Step()
	}

	assert.Len(t, s.Agents(), 6)
	assert.Equal(t, 0, s.Metrics().AgentsSpawned)
}

func TestMetricsRescueRateZeroSurvivors(t *testing.T) {
	var m Metrics
	assert.Equal(t, 0.0, m.RescueRate())
}
