// Package audit records why coordination decisions were made: mode switches,
// allocations, coalitions, spawns and reallocations, each with a natural
// language explanation and a confidence interval. The trail is the basis for
// post-run review of a mission.
package audit

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/risk"
)

// DecisionType classifies what kind of decision a record explains.
type DecisionType int

const (
	// TaskAllocation records an auction or greedy assignment outcome.
	TaskAllocation DecisionType = iota
	// CoalitionFormation records a rescue/support pairing.
	CoalitionFormation
	// ModeSwitch records a coordination mode change.
	ModeSwitch
	// AgentSpawn records a mid-run team expansion.
	AgentSpawn
	// RiskAssessment records a periodic environment assessment.
	RiskAssessment
	// TaskReallocation records a task moved after a failure.
	TaskReallocation
)

// String returns the stable identifier used in logs and storage.
func (t DecisionType) String() string {
	switch t {
	case TaskAllocation:
		return "task_allocation"
	case CoalitionFormation:
		return "coalition_formation"
	case ModeSwitch:
		return "coordination_mode_switch"
	case AgentSpawn:
		return "agent_spawn"
	case RiskAssessment:
		return "risk_assessment"
	case TaskReallocation:
		return "task_reallocation"
	default:
		return "unknown"
	}
}

// Alternative is an option that was considered but not chosen.
type Alternative struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Record is one explained decision.
type Record struct {
	ID       string
	Type     DecisionType
	Timestep int

	Explanation     string
	Confidence      risk.ConfidenceInterval
	Factors         map[string]any
	Alternatives    []Alternative
	ChosenAction    string
	ExpectedOutcome string
	ActualOutcome   string
}

// NaturalLanguage renders the record for operator display.
func (r Record) NaturalLanguage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(r.Type.String()), r.Explanation)
	fmt.Fprintf(&b, "Chosen action: %s\n", r.ChosenAction)
	fmt.Fprintf(&b, "Confidence: %.2f (95%% CI: [%.2f, %.2f])\n", r.Confidence.Mean, r.Confidence.Lower, r.Confidence.Upper)
	fmt.Fprintf(&b, "Expected outcome: %s", r.ExpectedOutcome)
	if len(r.Factors) > 0 {
		b.WriteString("\nKey factors:")
		keys := make([]string, 0, len(r.Factors))
		for k := range r.Factors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  - %s: %v", k, r.Factors[k])
		}
	}
	if n := len(r.Alternatives); n > 0 {
		fmt.Fprintf(&b, "\nAlternatives considered: %d", n)
	}
	return b.String()
}

// Trail accumulates decision records for a run.
type Trail struct {
	records []Record
}

// NewTrail creates an empty audit trail.
func NewTrail() *Trail {
	return &Trail{}
}

// Add appends a prebuilt record, assigning an ID if missing.
func (t *Trail) Add(r Record) Record {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	t.records = append(t.records, r)
	return r
}

// Len reports the number of recorded decisions.
func (t *Trail) Len() int { return len(t.records) }

// All returns a copy of every record in insertion order.
func (t *Trail) All() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Recent returns the latest count records, newest last.
func (t *Trail) Recent(count int) []Record {
	if count > len(t.records) {
		count = len(t.records)
	}
	out := make([]Record, count)
	copy(out, t.records[len(t.records)-count:])
	return out
}

// CountByType tallies records per decision type.
func (t *Trail) CountByType() map[DecisionType]int {
	out := map[DecisionType]int{}
	for _, r := range t.records {
		out[r.Type]++
	}
	return out
}

// riskInterval builds a 95% interval around a mean risk estimate.
func riskInterval(mean, std float64) risk.ConfidenceInterval {
	return risk.ConfidenceInterval{
		Mean:       mean,
		Lower:      math.Max(0, mean-1.96*std),
		Upper:      math.Min(1, mean+1.96*std),
		StdDev:     std,
		Confidence: 0.95,
	}
}

// RecordModeSwitch explains a coordination mode change driven by the current
// risk picture.
func (t *Trail) RecordModeSwitch(oldMode, newMode string, avgRisk, riskStd float64, timestep int) Record {
	var reason string
	switch newMode {
	case "centralized":
		reason = fmt.Sprintf("low environmental risk (%.2f) allows centralized optimization", avgRisk)
	case "auction":
		reason = fmt.Sprintf("moderate risk (%.2f) favors distributed auction allocation", avgRisk)
	case "coalition":
		reason = fmt.Sprintf("high risk (%.2f) requires coalition formation for safety", avgRisk)
	default:
		reason = fmt.Sprintf("risk assessment (%.2f) triggered a mode change", avgRisk)
	}

	return t.Add(Record{
		Type:        ModeSwitch,
		Timestep:    timestep,
		Explanation: fmt.Sprintf("switched from %s to %s: %s", oldMode, newMode, reason),
		Confidence:  riskInterval(avgRisk, riskStd),
		Factors: map[string]any{
			"average_risk": avgRisk,
			"risk_std_dev": riskStd,
			"old_mode":     oldMode,
			"new_mode":     newMode,
		},
		ChosenAction:    fmt.Sprintf("switch to %s", newMode),
		ExpectedOutcome: fmt.Sprintf("coordination tuned for %.2f risk level", avgRisk),
	})
}

// RecordTaskAllocation explains an auction outcome. Losing bids become the
// counterfactual alternatives, best score first.
func (t *Trail) RecordTaskAllocation(task core.Position, winner string, bids map[string]float64, timestep int) Record {
	mean, std := bidSpread(bids)
	conf := risk.ConfidenceInterval{
		Mean:       mean,
		Lower:      mean - 1.96*std,
		Upper:      mean + 1.96*std,
		StdDev:     std,
		Confidence: 0.95,
	}

	alts := make([]Alternative, 0, len(bids))
	for agent, score := range bids {
		if agent == winner {
			continue
		}
		alts = append(alts, Alternative{
			Description: fmt.Sprintf("assign %v to %s (score %.2f)", task, agent, score),
			Score:       score,
		})
	}
	sort.Slice(alts, func(i, j int) bool { return alts[i].Score < alts[j].Score })

	return t.Add(Record{
		Type:        TaskAllocation,
		Timestep:    timestep,
		Explanation: fmt.Sprintf("survivor at %v assigned to %s on the lowest of %d bids", task, winner, len(bids)),
		Confidence:  conf,
		Factors: map[string]any{
			"task":          task.String(),
			"winner":        winner,
			"bid_count":     len(bids),
			"winning_score": bids[winner],
		},
		Alternatives:    alts,
		ChosenAction:    fmt.Sprintf("assign %v to %s", task, winner),
		ExpectedOutcome: "survivor evacuated by the cheapest capable agent",
	})
}

// RecordCoalitionFormation explains a rescue/support pairing on a high-risk
// survivor.
func (t *Trail) RecordCoalitionFormation(task core.Position, rescuer, support string, taskRisk float64, timestep int) Record {
	return t.Add(Record{
		Type:     CoalitionFormation,
		Timestep: timestep,
		Explanation: fmt.Sprintf("survivor at %v carries risk %.2f; paired %s with %s for the approach",
			task, taskRisk, rescuer, support),
		Confidence: riskInterval(taskRisk, 0.05),
		Factors: map[string]any{
			"task":      task.String(),
			"rescuer":   rescuer,
			"support":   support,
			"task_risk": taskRisk,
		},
		ChosenAction:    fmt.Sprintf("form coalition {%s, %s}", rescuer, support),
		ExpectedOutcome: "support agent shadows the rescue through the hazard",
	})
}

// RecordAgentSpawn explains a mid-run team expansion.
func (t *Trail) RecordAgentSpawn(agentID, role, trigger string, timestep int) Record {
	return t.Add(Record{
		Type:        AgentSpawn,
		Timestep:    timestep,
		Explanation: fmt.Sprintf("spawned %s (%s): %s", agentID, role, trigger),
		Confidence:  riskInterval(0.5, 0.1),
		Factors: map[string]any{
			"agent_id": agentID,
			"role":     role,
			"trigger":  trigger,
		},
		ChosenAction:    fmt.Sprintf("spawn %s", agentID),
		ExpectedOutcome: "workload rebalanced across the larger team",
	})
}

// RecordRiskAssessment captures a periodic environment assessment.
func (t *Trail) RecordRiskAssessment(a risk.Assessment, timestep int) Record {
	return t.Add(Record{
		Type:        RiskAssessment,
		Timestep:    timestep,
		Explanation: fmt.Sprintf("environment risk: avg %.2f, max %.2f, variance %.3f", a.Average, a.Max, a.Variance),
		Confidence:  riskInterval(a.Average, math.Sqrt(a.Variance)),
		Factors: map[string]any{
			"average_risk": a.Average,
			"max_risk":     a.Max,
			"variance":     a.Variance,
		},
		ChosenAction:    "assess environment",
		ExpectedOutcome: "coordination mode matched to current uncertainty",
	})
}

// RecordTaskReallocation explains a task moved off a failed agent.
func (t *Trail) RecordTaskReallocation(task core.Position, fromAgent, toAgent, trigger string, timestep int) Record {
	action := fmt.Sprintf("reassign %v from %s to %s", task, fromAgent, toAgent)
	outcome := "task recovered by another rescuer"
	if toAgent == "" {
		action = fmt.Sprintf("drop %v from %s", task, fromAgent)
		outcome = "task returned to the pool for the next cycle"
	}
	return t.Add(Record{
		Type:        TaskReallocation,
		Timestep:    timestep,
		Explanation: fmt.Sprintf("task at %v reallocated: %s", task, trigger),
		Confidence:  riskInterval(0.5, 0.15),
		Factors: map[string]any{
			"task":    task.String(),
			"from":    fromAgent,
			"to":      toAgent,
			"trigger": trigger,
		},
		ChosenAction:    action,
		ExpectedOutcome: outcome,
	})
}

func bidSpread(bids map[string]float64) (mean, std float64) {
	if len(bids) == 0 {
		return 0, 0
	}
	for _, v := range bids {
		mean += v
	}
	mean /= float64(len(bids))
	if len(bids) < 2 {
		return mean, 0
	}
	for _, v := range bids {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(bids)))
	return mean, std
}
