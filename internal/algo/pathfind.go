// Package algo holds the stateless planning layer: risk-aware A*
// pathfinding, task allocation protocols, and the hybrid coordinator
// that switches between them.
package algo

import (
	"container/heap"
	"math"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

// Pathfinding cost tuning.
const (
	TerrainPenaltyDebris = 5.0
	TerrainPenaltyFlood  = 3.0
	RiskPenaltyMult      = 10.0
	HeuristicRiskWeight  = 1.0
)

// PathQuery injects environment access into the search. The planner is
// stateless: each agent supplies callbacks over its own beliefs, so
// two agents can price the same cell differently.
type PathQuery struct {
	IsPassable  func(core.Position) bool
	Neighbors   func(core.Position) []core.Position
	TerrainCost func(core.Position) float64
	RiskCost    func(core.Position) float64
}

// pathNode for the open-set priority queue.
type pathNode struct {
	pos    core.Position
	g      float64 // cost so far
	f      float64 // g + h
	parent *pathNode
	index  int // heap index
}

type pathHeap []*pathNode

func (h pathHeap) Len() int           { return len(h) }
func (h pathHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h pathHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *pathHeap) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// FindPath runs A* from start to goal. Step cost is
// 1 + terrain + risk; the heuristic inflates Manhattan distance by the
// local risk factor, trading optimality for stronger hazard avoidance.
// Returns (nil, +Inf) when start or goal is impassable or no route
// exists.
func FindPath(start, goal core.Position, q PathQuery) ([]core.Position, float64) {
	if !q.IsPassable(start) || !q.IsPassable(goal) {
		return nil, math.Inf(1)
	}

	open := &pathHeap{}
	heap.Init(open)
	heap.Push(open, &pathNode{
		pos: start,
		g:   0,
		f:   float64(start.Manhattan(goal)),
	})

	closed := make(map[core.Position]bool)
	gCosts := map[core.Position]float64{start: 0}

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)

		if current.pos == goal {
			return reconstructPath(current), current.g
		}

		if closed[current.pos] {
			continue
		}
		closed[current.pos] = true

		for _, next := range q.Neighbors(current.pos) {
			if closed[next] || !q.IsPassable(next) {
				continue
			}

			riskCost := q.RiskCost(next)
			tentativeG := current.g + 1.0 + q.TerrainCost(next) + riskCost

			if prev, seen := gCosts[next]; seen && tentativeG >= prev {
				continue
			}
			gCosts[next] = tentativeG

			// Risk-weighted heuristic: overestimates near hazards so
			// the search prefers safer detours.
			baseH := float64(next.Manhattan(goal))
			h := baseH * (1.0 + HeuristicRiskWeight*riskCost/RiskPenaltyMult)

			heap.Push(open, &pathNode{
				pos:    next,
				g:      tentativeG,
				f:      tentativeG + h,
				parent: current,
			})
		}
	}

	return nil, math.Inf(1)
}

// FindNearestGoal searches every candidate goal and returns the one
// with the cheapest risk-aware path. ok is false when none is
// reachable.
func FindNearestGoal(start core.Position, goals []core.Position, q PathQuery) (best core.Position, path []core.Position, cost float64, ok bool) {
	cost = math.Inf(1)
	for _, goal := range goals {
		p, c := FindPath(start, goal, q)
		if len(p) > 0 && c < cost {
			best, path, cost, ok = goal, p, c, true
		}
	}
	return best, path, cost, ok
}

func reconstructPath(node *pathNode) []core.Position {
	var path []core.Position
	for n := node; n != nil; n = n.parent {
		path = append(path, n.pos)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// TerrainCostFor prices a cell's terrain for planning. Debris is a
// heavy obstacle, flood a moderate one; fire never reaches here
// because impassable cells are filtered first.
func TerrainCostFor(c *core.Cell) float64 {
	if c == nil {
		return math.Inf(1)
	}
	if c.HasDebris {
		return TerrainPenaltyDebris
	}
	if c.HasFlood {
		return TerrainPenaltyFlood
	}
	return 0
}

// RiskCostFor converts a belief probability into a path penalty.
func RiskCostFor(riskValue float64) float64 {
	return riskValue * RiskPenaltyMult
}
