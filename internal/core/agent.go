package core

// Role classifies agents by capability.
type Role int

const (
	RoleExplorer Role = iota
	RoleRescue
	RoleSupport
)

func (r Role) String() string {
	switch r {
	case RoleExplorer:
		return "EXPLORER"
	case RoleRescue:
		return "RESCUE"
	case RoleSupport:
		return "SUPPORT"
	default:
		return "UNKNOWN"
	}
}

// AgentSnapshot is the read-only view of one agent handed to the
// allocation and coordination layer. Built once per timestep so
// planning sees a consistent roster.
type AgentSnapshot struct {
	ID       string
	Pos      Position
	Role     Role
	Load     int // assigned survivors not yet delivered
	Carrying bool
}

// Allocation maps agent IDs to their assigned survivor positions.
type Allocation map[string][]Position

// Clone deep-copies an allocation.
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for id, tasks := range a {
		out[id] = append([]Position(nil), tasks...)
	}
	return out
}

// TotalAssigned counts assigned survivors across all agents.
func (a Allocation) TotalAssigned() int {
	n := 0
	for _, tasks := range a {
		n += len(tasks)
	}
	return n
}

// AgentFor returns the agent a survivor is assigned to, or "" when
// unassigned.
func (a Allocation) AgentFor(p Position) string {
	for id, tasks := range a {
		for _, t := range tasks {
			if t == p {
				return id
			}
		}
	}
	return ""
}
