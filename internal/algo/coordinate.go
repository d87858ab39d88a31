package algo

import (
	"fmt"
	"math"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

// Mode is a coordination protocol.
type Mode int

const (
	ModeCentralized Mode = iota // greedy constraint-based allocation
	ModeAuction                 // Contract Net bidding
	ModeCoalition               // risk-aware team formation
	ModeHybrid                  // automatic switching
)

func (m Mode) String() string {
	switch m {
	case ModeCentralized:
		return "centralized"
	case ModeAuction:
		return "auction"
	case ModeCoalition:
		return "coalition"
	default:
		return "hybrid"
	}
}

// Uncertainty classification thresholds.
const (
	lowAvgRisk      = 0.3
	lowVariance     = 0.1
	moderateAvgRisk = 0.6
	moderateMaxRisk = 0.8

	coalitionRiskCutoff = 0.7
)

// EnvAssessment captures the environmental statistics that drive
// protocol selection. Risk statistics are taken over survivor
// positions, not the whole grid: the protocol choice should track the
// danger of the actual work.
type EnvAssessment struct {
	AvgRisk             float64
	MaxRisk             float64
	RiskVariance        float64
	TaskCount           int
	AgentCount          int
	TaskComplexity      float64
	ExplorationCoverage float64
}

// UncertaintyLevel classifies the assessment as LOW, MODERATE, or
// HIGH.
func (a EnvAssessment) UncertaintyLevel() string {
	switch {
	case a.AvgRisk < lowAvgRisk && a.RiskVariance < lowVariance:
		return "LOW"
	case a.AvgRisk < moderateAvgRisk && a.MaxRisk < moderateMaxRisk:
		return "MODERATE"
	default:
		return "HIGH"
	}
}

// RecommendedMode maps uncertainty to a protocol: centralized when
// calm, auction when conditions shift, coalitions when dangerous.
func (a EnvAssessment) RecommendedMode() Mode {
	switch a.UncertaintyLevel() {
	case "LOW":
		return ModeCentralized
	case "MODERATE":
		return ModeAuction
	default:
		return ModeCoalition
	}
}

// ModeChange records one protocol switch.
type ModeChange struct {
	Timestep int
	Mode     Mode
	Reason   string
}

// Coordinator selects the coordination protocol each timestep and
// dispatches allocation to it.
type Coordinator struct {
	allocator *Allocator

	CurrentMode Mode
	ModeHistory []ModeChange
}

// NewCoordinator wraps an allocator with adaptive protocol selection.
func NewCoordinator(allocator *Allocator) *Coordinator {
	return &Coordinator{
		allocator:   allocator,
		CurrentMode: ModeCentralized,
	}
}

// AssessEnvironment computes survivor-risk statistics and task
// complexity. exploredCells/totalCells feed the coverage figure used
// by the spawner and metrics.
func (c *Coordinator) AssessEnvironment(survivors []core.Position, agents []core.AgentSnapshot, riskAt RiskFunc, exploredCells, totalCells int) EnvAssessment {
	var avg, maxRisk, variance float64
	if len(survivors) > 0 {
		risks := make([]float64, len(survivors))
		for i, s := range survivors {
			risks[i] = riskAt(s)
			avg += risks[i]
			if risks[i] > maxRisk {
				maxRisk = risks[i]
			}
		}
		avg /= float64(len(risks))
		variance = sampleVariance(risks, avg)
	}

	coverage := 0.0
	if totalCells > 0 {
		coverage = float64(exploredCells) / float64(totalCells)
	}

	return EnvAssessment{
		AvgRisk:             avg,
		MaxRisk:             maxRisk,
		RiskVariance:        variance,
		TaskCount:           len(survivors),
		AgentCount:          len(rescueOnly(agents)),
		TaskComplexity:      c.estimateComplexity(survivors, agents, riskAt),
		ExplorationCoverage: coverage,
	}
}

// estimateComplexity scores the workload in [0,1] from task overload,
// average risk, and spatial dispersion of the survivors.
func (c *Coordinator) estimateComplexity(survivors []core.Position, agents []core.AgentSnapshot, riskAt RiskFunc) float64 {
	if len(survivors) == 0 {
		return 0
	}

	rescuers := rescueOnly(agents)
	overload := 1.0
	if len(rescuers) > 0 {
		overload = math.Min(float64(len(survivors))/float64(len(rescuers))/5.0, 1.0)
	}

	var avgRisk float64
	for _, s := range survivors {
		avgRisk += riskAt(s)
	}
	avgRisk /= float64(len(survivors))

	dispersion := 0.0
	if len(survivors) > 1 {
		var sum float64
		var pairs int
		for i := 0; i < len(survivors); i++ {
			for j := i + 1; j < len(survivors); j++ {
				sum += float64(survivors[i].Manhattan(survivors[j]))
				pairs++
			}
		}
		dispersion = math.Min(sum/float64(pairs)/50.0, 1.0)
	}

	return math.Min(0.4*overload+0.4*avgRisk+0.2*dispersion, 1.0)
}

// SelectMode picks the protocol for this timestep. forceMode overrides
// the recommendation unless it is ModeHybrid, which means "decide for
// me". Switches are appended to ModeHistory with their reason.
func (c *Coordinator) SelectMode(assessment EnvAssessment, timestep int, forceMode Mode) Mode {
	selected := forceMode
	reason := "operator-specified mode"
	if forceMode == ModeHybrid {
		selected = assessment.RecommendedMode()
		reason = fmt.Sprintf("uncertainty %s, avg risk %.2f", assessment.UncertaintyLevel(), assessment.AvgRisk)
	}

	if selected != c.CurrentMode {
		c.ModeHistory = append(c.ModeHistory, ModeChange{
			Timestep: timestep,
			Mode:     selected,
			Reason:   reason,
		})
	}
	c.CurrentMode = selected
	return selected
}

// AllocateTasks dispatches to the selected protocol. current carries
// the previous timestep's allocation so the auction can reallocate
// instead of starting cold.
func (c *Coordinator) AllocateTasks(mode Mode, agents []core.AgentSnapshot, survivors []core.Position, riskAt RiskFunc, dist DistanceFunc, current core.Allocation) core.Allocation {
	switch mode {
	case ModeAuction:
		if len(current) > 0 {
			return c.allocator.AllocateIterativeAuction(agents, survivors, riskAt, dist, current)
		}
		return c.allocator.AllocateAuction(agents, survivors, riskAt, dist)
	case ModeCoalition:
		return c.AllocateWithCoalitions(agents, survivors, riskAt, dist)
	default:
		return c.allocator.Allocate(agents, survivors, riskAt, dist)
	}
}

// Coalition pairs a rescue agent with a support agent on one
// high-risk survivor.
type Coalition struct {
	Rescue   string
	Support  string
	Survivor core.Position
}

// AllocateWithCoalitions handles high-risk survivors with rescue plus
// support pairs and falls back to a single-round auction for the
// rest. Support pairing is first-available: support agents are
// interchangeable for hazard suppression, so proximity matching is
// not worth its cost here.
func (c *Coordinator) AllocateWithCoalitions(agents []core.AgentSnapshot, survivors []core.Position, riskAt RiskFunc, dist DistanceFunc) core.Allocation {
	allocation := make(core.Allocation)
	var rescuers, supports []core.AgentSnapshot
	for _, a := range agents {
		switch a.Role {
		case core.RoleRescue:
			rescuers = append(rescuers, a)
			allocation[a.ID] = nil
		case core.RoleSupport:
			supports = append(supports, a)
			allocation[a.ID] = nil
		}
	}

	var highRisk, normal []core.Position
	for _, s := range survivors {
		if riskAt(s) > coalitionRiskCutoff {
			highRisk = append(highRisk, s)
		} else {
			normal = append(normal, s)
		}
	}

	supportTaken := make(map[string]bool)
	for _, s := range highRisk {
		bestRescue := ""
		bestDist := math.Inf(1)
		for _, agent := range rescuers {
			if len(allocation[agent.ID]) >= c.allocator.Params.MaxSurvivorsPerAgent {
				continue
			}
			if d := dist(agent.Pos, s); d < bestDist {
				bestDist = d
				bestRescue = agent.ID
			}
		}
		if bestRescue == "" {
			continue
		}
		allocation[bestRescue] = append(allocation[bestRescue], s)

		for _, sup := range supports {
			if !supportTaken[sup.ID] {
				allocation[sup.ID] = append(allocation[sup.ID], s)
				supportTaken[sup.ID] = true
				break
			}
		}
	}

	if len(normal) > 0 {
		auctioned := c.allocator.AllocateAuction(rescuers, normal, riskAt, dist)
		for id, tasks := range auctioned {
			allocation[id] = append(allocation[id], tasks...)
		}
	}

	return allocation
}

// Coalitions reconstructs the rescue/support pairings from a
// coalition-mode allocation, for logging and audit.
func Coalitions(allocation core.Allocation, agents []core.AgentSnapshot) []Coalition {
	roleOf := make(map[string]core.Role, len(agents))
	for _, a := range agents {
		roleOf[a.ID] = a.Role
	}

	supportFor := make(map[core.Position]string)
	for id, tasks := range allocation {
		if roleOf[id] != core.RoleSupport {
			continue
		}
		for _, s := range tasks {
			supportFor[s] = id
		}
	}

	var out []Coalition
	for id, tasks := range allocation {
		if roleOf[id] != core.RoleRescue {
			continue
		}
		for _, s := range tasks {
			if sup, ok := supportFor[s]; ok {
				out = append(out, Coalition{Rescue: id, Support: sup, Survivor: s})
			}
		}
	}
	return out
}

// CoordinationStats summarizes protocol usage over a run.
type CoordinationStats struct {
	CurrentMode      Mode
	ModeSwitches     int
	ModeDistribution map[Mode]int
}

// Stats returns coordination counters for the end-of-run summary.
func (c *Coordinator) Stats() CoordinationStats {
	dist := make(map[Mode]int)
	for _, h := range c.ModeHistory {
		dist[h.Mode]++
	}
	return CoordinationStats{
		CurrentMode:      c.CurrentMode,
		ModeSwitches:     len(c.ModeHistory),
		ModeDistribution: dist,
	}
}

// sampleVariance uses the n-1 denominator; a single sample has no
// spread.
func sampleVariance(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values)-1)
}
