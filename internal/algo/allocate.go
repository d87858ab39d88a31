package algo

import (
	"fmt"
	"math"
	"sort"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/comms"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

// RiskFunc returns the combined risk belief at a position.
type RiskFunc func(core.Position) float64

// DistanceFunc measures distance between two positions.
type DistanceFunc func(a, b core.Position) float64

// AllocatorParams are the constraint and scoring knobs shared by all
// allocation protocols.
type AllocatorParams struct {
	MaxSurvivorsPerAgent int
	RiskThreshold        float64
	DistanceWeight       float64
	RiskWeight           float64

	// StealFactor is the score improvement required before the
	// iterative auction moves a task to another agent. 0.9 means a
	// challenger must beat the incumbent by 10%.
	StealFactor float64

	MaxAuctionIterations int
}

// DefaultAllocatorParams returns the standard constraint set.
func DefaultAllocatorParams() AllocatorParams {
	return AllocatorParams{
		MaxSurvivorsPerAgent: 2,
		RiskThreshold:        0.65,
		DistanceWeight:       0.6,
		RiskWeight:           0.4,
		StealFactor:          0.9,
		MaxAuctionIterations: 5,
	}
}

// Validate reports parameter errors before any allocation runs.
func (p AllocatorParams) Validate() error {
	if p.MaxSurvivorsPerAgent < 1 {
		return fmt.Errorf("max survivors per agent must be at least 1, got %d", p.MaxSurvivorsPerAgent)
	}
	if p.RiskThreshold < 0 || p.RiskThreshold > 1 {
		return fmt.Errorf("risk threshold must be in [0,1], got %v", p.RiskThreshold)
	}
	if p.DistanceWeight < 0 || p.RiskWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative, got distance %v risk %v", p.DistanceWeight, p.RiskWeight)
	}
	if p.StealFactor <= 0 || p.StealFactor > 1 {
		return fmt.Errorf("steal factor must be in (0,1], got %v", p.StealFactor)
	}
	if p.MaxAuctionIterations < 1 {
		return fmt.Errorf("auction iterations must be at least 1, got %d", p.MaxAuctionIterations)
	}
	return nil
}

// Assignment is one scored (agent, survivor) pairing. Lower priority
// is better.
type Assignment struct {
	AgentID  string
	Survivor core.Position
	Distance float64
	Risk     float64
	Priority float64
}

func (a Assignment) String() string {
	return fmt.Sprintf("%s -> (%d,%d) (d=%.1f, r=%.2f)", a.AgentID, a.Survivor.X, a.Survivor.Y, a.Distance, a.Risk)
}

// Allocator assigns survivors to rescue agents under capacity,
// uniqueness, and risk constraints. It is a constraint optimizer:
// it seeks the best feasible allocation, not just any feasible one.
type Allocator struct {
	Params AllocatorParams
}

// NewAllocator creates an allocator with the given constraints.
func NewAllocator(params AllocatorParams) *Allocator {
	return &Allocator{Params: params}
}

func (al *Allocator) priority(distance, riskValue float64) float64 {
	// Risk is scaled to the same magnitude as grid distances.
	return al.Params.DistanceWeight*distance + al.Params.RiskWeight*riskValue*100
}

func rescueOnly(agents []core.AgentSnapshot) []core.AgentSnapshot {
	out := make([]core.AgentSnapshot, 0, len(agents))
	for _, a := range agents {
		if a.Role == core.RoleRescue {
			out = append(out, a)
		}
	}
	return out
}

// Allocate runs the centralized greedy protocol: score every feasible
// (agent, survivor) pair, then assign in priority order while
// capacity and uniqueness hold. Survivors above the risk threshold
// are deferred rather than assigned.
func (al *Allocator) Allocate(agents []core.AgentSnapshot, survivors []core.Position, riskAt RiskFunc, dist DistanceFunc) core.Allocation {
	rescuers := rescueOnly(agents)
	if len(rescuers) == 0 || len(survivors) == 0 {
		return core.Allocation{}
	}

	var candidates []Assignment
	for _, agent := range rescuers {
		for _, s := range survivors {
			r := riskAt(s)
			if r > al.Params.RiskThreshold {
				continue
			}
			d := dist(agent.Pos, s)
			candidates = append(candidates, Assignment{
				AgentID:  agent.ID,
				Survivor: s,
				Distance: d,
				Risk:     r,
				Priority: al.priority(d, r),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority < candidates[j].Priority
	})

	allocation := make(core.Allocation, len(rescuers))
	load := make(map[string]int, len(rescuers))
	for _, agent := range rescuers {
		allocation[agent.ID] = nil
	}

	assigned := make(map[core.Position]bool)
	for _, c := range candidates {
		if assigned[c.Survivor] {
			continue
		}
		if load[c.AgentID] >= al.Params.MaxSurvivorsPerAgent {
			continue
		}
		allocation[c.AgentID] = append(allocation[c.AgentID], c.Survivor)
		assigned[c.Survivor] = true
		load[c.AgentID]++
	}

	return allocation
}

// AllocateAuction runs a single-round sequential auction: each
// survivor is announced in turn and every eligible rescuer bids; the
// lowest bid score wins. Survivors with no valid bids stay unassigned
// until the next cycle.
func (al *Allocator) AllocateAuction(agents []core.AgentSnapshot, survivors []core.Position, riskAt RiskFunc, dist DistanceFunc) core.Allocation {
	rescuers := rescueOnly(agents)
	if len(rescuers) == 0 || len(survivors) == 0 {
		return core.Allocation{}
	}

	allocation := make(core.Allocation, len(rescuers))
	load := make(map[string]int, len(rescuers))
	for _, agent := range rescuers {
		allocation[agent.ID] = nil
	}

	for _, s := range survivors {
		var bids []comms.TaskBid
		for _, agent := range rescuers {
			if load[agent.ID] >= al.Params.MaxSurvivorsPerAgent {
				continue
			}
			r := riskAt(s)
			if r > al.Params.RiskThreshold {
				continue
			}
			d := dist(agent.Pos, s)
			bids = append(bids, comms.TaskBid{
				AgentID:      agent.ID,
				Task:         s,
				Cost:         d,
				Capability:   1.0,
				Risk:         r,
				ExpectedTime: int(d) + 10, // travel plus pickup and drop
				CurrentLoad:  load[agent.ID],
			})
		}
		if len(bids) == 0 {
			continue
		}

		sort.SliceStable(bids, func(i, j int) bool {
			return bids[i].Score(al.Params.DistanceWeight, al.Params.RiskWeight) <
				bids[j].Score(al.Params.DistanceWeight, al.Params.RiskWeight)
		})
		winner := bids[0]
		allocation[winner.AgentID] = append(allocation[winner.AgentID], s)
		load[winner.AgentID]++
	}

	return allocation
}

// AllocateIterativeAuction refines an existing allocation by letting
// agents steal tasks they can serve markedly better. A switch needs a
// score below StealFactor times the incumbent's, which damps
// oscillation between near-equal bidders.
func (al *Allocator) AllocateIterativeAuction(agents []core.AgentSnapshot, survivors []core.Position, riskAt RiskFunc, dist DistanceFunc, current core.Allocation) core.Allocation {
	rescuers := rescueOnly(agents)

	var allocation core.Allocation
	if len(current) > 0 {
		allocation = current.Clone()
	} else {
		allocation = make(core.Allocation, len(rescuers))
		for _, agent := range rescuers {
			allocation[agent.ID] = nil
		}
	}

	holder := make(map[core.Position]string)
	for id, tasks := range allocation {
		for _, s := range tasks {
			holder[s] = id
		}
	}

	posOf := make(map[string]core.Position, len(rescuers))
	for _, agent := range rescuers {
		posOf[agent.ID] = agent.Pos
	}

	improved := true
	for iter := 0; improved && iter < al.Params.MaxAuctionIterations; iter++ {
		improved = false

		for _, s := range survivors {
			incumbent := holder[s]

			incumbentScore := math.Inf(1)
			if incumbent != "" {
				if p, ok := posOf[incumbent]; ok {
					incumbentScore = al.priority(dist(p, s), riskAt(s))
				}
			}

			bestAgent := incumbent
			bestScore := incumbentScore

			for _, agent := range rescuers {
				if agent.ID != incumbent && len(allocation[agent.ID]) >= al.Params.MaxSurvivorsPerAgent {
					continue
				}
				r := riskAt(s)
				if r > al.Params.RiskThreshold {
					continue
				}
				score := al.priority(dist(agent.Pos, s), r)
				if score < bestScore*al.Params.StealFactor {
					bestScore = score
					bestAgent = agent.ID
				}
			}

			if bestAgent != incumbent {
				if incumbent != "" {
					allocation[incumbent] = removePosition(allocation[incumbent], s)
				}
				allocation[bestAgent] = append(allocation[bestAgent], s)
				holder[s] = bestAgent
				improved = true
			}
		}
	}

	return allocation
}

// ReallocateOnFailure moves a survivor off an agent that cannot reach
// it. Returns the new agent and ok false when no eligible agent
// remains; the survivor is then dropped from the allocation entirely.
func (al *Allocator) ReallocateOnFailure(allocation core.Allocation, failedAgent string, survivor core.Position, agents []core.AgentSnapshot, riskAt RiskFunc, dist DistanceFunc) (string, bool) {
	allocation[failedAgent] = removePosition(allocation[failedAgent], survivor)

	bestAgent := ""
	bestPriority := math.Inf(1)
	for _, agent := range rescueOnly(agents) {
		if agent.ID == failedAgent {
			continue
		}
		if len(allocation[agent.ID]) >= al.Params.MaxSurvivorsPerAgent {
			continue
		}
		r := riskAt(survivor)
		if r > al.Params.RiskThreshold {
			continue
		}
		p := al.priority(dist(agent.Pos, survivor), r)
		if p < bestPriority {
			bestPriority = p
			bestAgent = agent.ID
		}
	}

	if bestAgent == "" {
		return "", false
	}
	allocation[bestAgent] = append(allocation[bestAgent], survivor)
	return bestAgent, true
}

// ValidateAllocation checks completeness and capacity. The error
// names the first violated constraint.
func (al *Allocator) ValidateAllocation(allocation core.Allocation, survivors []core.Position) error {
	assigned := make(map[core.Position]bool)
	for _, tasks := range allocation {
		for _, s := range tasks {
			assigned[s] = true
		}
	}

	unassigned := 0
	for _, s := range survivors {
		if !assigned[s] {
			unassigned++
		}
	}
	if unassigned > 0 {
		return fmt.Errorf("%d survivors unassigned", unassigned)
	}

	for id, tasks := range allocation {
		if len(tasks) > al.Params.MaxSurvivorsPerAgent {
			return fmt.Errorf("agent %s exceeds capacity: %d > %d", id, len(tasks), al.Params.MaxSurvivorsPerAgent)
		}
	}
	return nil
}

func removePosition(list []core.Position, p core.Position) []core.Position {
	out := list[:0]
	for _, v := range list {
		if v != p {
			out = append(out, v)
		}
	}
	return out
}
