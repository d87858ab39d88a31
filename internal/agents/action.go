// Package agents implements the rescue team: a single Agent type whose
// behavior is supplied by a per-role strategy, plus the spawner that grows
// the team when the workload outpaces it.
package agents

import (
	"fmt"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

// ActionType identifies what an agent does in a single timestep.
type ActionType int

const (
	// ActionWait does nothing this turn.
	ActionWait ActionType = iota
	// ActionMove steps toward an adjacent target cell.
	ActionMove
	// ActionPickup loads a co-located survivor.
	ActionPickup
	// ActionDrop unloads a carried survivor at a safe zone.
	ActionDrop
	// ActionTransport steps toward a target while carrying a survivor.
	ActionTransport
	// ActionExplore steps toward a frontier cell, marking it explored.
	ActionExplore
	// ActionSuppress dampens hazard risk around the agent's position.
	ActionSuppress
)

// String returns a readable action name.
func (t ActionType) String() string {
	switch t {
	case ActionWait:
		return "wait"
	case ActionMove:
		return "move"
	case ActionPickup:
		return "pickup"
	case ActionDrop:
		return "drop"
	case ActionTransport:
		return "transport"
	case ActionExplore:
		return "explore"
	case ActionSuppress:
		return "suppress"
	default:
		return "unknown"
	}
}

// Action is a single-step command produced by an agent's decision cycle.
// Movement actions target an adjacent cell; Pickup and Drop target the
// agent's own cell.
type Action struct {
	Type   ActionType
	Target core.Position
}

func (a Action) String() string {
	return fmt.Sprintf("%s->%v", a.Type, a.Target)
}

// waitAction is the universal fallback when nothing else applies.
func waitAction() Action {
	return Action{Type: ActionWait}
}

// PlanStep is one entry of an agent's multi-step plan. Movement steps cache
// the residual path toward Target so the route is priced once and then
// consumed one cell per timestep.
type PlanStep struct {
	Type   ActionType
	Target core.Position

	path    []core.Position
	pathSet bool
}

func (s *PlanStep) String() string {
	return fmt.Sprintf("%s->%v", s.Type, s.Target)
}
