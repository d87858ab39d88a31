// Package comms implements range-limited message passing between
// agents, including the Contract Net exchange used for auctions.
package comms

import (
	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

// MessageType identifies what a message carries.
type MessageType int

const (
	TaskRequest MessageType = iota // call for proposals
	TaskBidMsg
	TaskAward
	TaskReject
	HelpRequest
	StatusUpdate
	CoalitionInvite
	CoalitionAccept
	CoalitionReject
	TaskComplete
	CancelTask
)

func (t MessageType) String() string {
	switch t {
	case TaskRequest:
		return "task_request"
	case TaskBidMsg:
		return "task_bid"
	case TaskAward:
		return "task_award"
	case TaskReject:
		return "task_reject"
	case HelpRequest:
		return "help_request"
	case StatusUpdate:
		return "status_update"
	case CoalitionInvite:
		return "coalition_invite"
	case CoalitionAccept:
		return "coalition_accept"
	case CoalitionReject:
		return "coalition_reject"
	case TaskComplete:
		return "task_complete"
	case CancelTask:
		return "cancel_task"
	default:
		return "unknown"
	}
}

// Message is one agent-to-agent exchange. Receiver "" means broadcast.
type Message struct {
	Type     MessageType
	Sender   string
	Receiver string
	Payload  any
	Sent     int // timestep the network accepted the message
	Priority float64
	TTL      int
}

// Expired reports whether the message outlived its TTL.
func (m Message) Expired(now int) bool {
	return now-m.Sent > m.TTL
}

// DefaultTTL is the default message lifetime in timesteps.
const DefaultTTL = 10

// DefaultRange is the default transmission range (Manhattan).
const DefaultRange = 15

// Network routes messages between registered agents. Directed messages
// are range limited; broadcasts reach everyone when enabled.
type Network struct {
	Range           int
	EnableBroadcast bool

	queues map[string][]Message
	now    int
	sent   int
	byType map[MessageType]int
}

// NewNetwork creates a network with the given transmission range.
func NewNetwork(commRange int, enableBroadcast bool) *Network {
	return &Network{
		Range:           commRange,
		EnableBroadcast: enableBroadcast,
		queues:          make(map[string][]Message),
		byType:          make(map[MessageType]int),
	}
}

// Register adds an agent to the network. Idempotent.
func (n *Network) Register(agentID string) {
	if _, ok := n.queues[agentID]; !ok {
		n.queues[agentID] = nil
	}
}

// Send routes a message. Directed messages are dropped silently when
// the receiver is out of range or unknown; out-of-range delivery
// failure is normal operation, not an error.
func (n *Network) Send(msg Message, positions map[string]core.Position) {
	msg.Sent = n.now
	if msg.TTL == 0 {
		msg.TTL = DefaultTTL
	}

	if msg.Receiver == "" {
		if !n.EnableBroadcast {
			return
		}
		for id := range n.queues {
			if id == msg.Sender {
				continue
			}
			n.queues[id] = append(n.queues[id], msg)
		}
		n.record(msg)
		return
	}

	senderPos, okS := positions[msg.Sender]
	receiverPos, okR := positions[msg.Receiver]
	if !okS || !okR {
		return
	}
	if senderPos.Manhattan(receiverPos) > n.Range {
		return
	}
	if _, ok := n.queues[msg.Receiver]; !ok {
		return
	}
	n.queues[msg.Receiver] = append(n.queues[msg.Receiver], msg)
	n.record(msg)
}

func (n *Network) record(msg Message) {
	n.sent++
	n.byType[msg.Type]++
}

// Receive drains an agent's queue, optionally filtered by type.
// Delivery is single-shot: returned messages leave the queue, and a
// typed receive leaves other types queued.
func (n *Network) Receive(agentID string, filter ...MessageType) []Message {
	queue, ok := n.queues[agentID]
	if !ok {
		return nil
	}

	live := queue[:0]
	for _, m := range queue {
		if !m.Expired(n.now) {
			live = append(live, m)
		}
	}

	if len(filter) == 0 {
		out := append([]Message(nil), live...)
		n.queues[agentID] = nil
		return out
	}

	want := filter[0]
	var out []Message
	var rest []Message
	for _, m := range live {
		if m.Type == want {
			out = append(out, m)
		} else {
			rest = append(rest, m)
		}
	}
	n.queues[agentID] = rest
	return out
}

// Peek returns pending messages without consuming them.
func (n *Network) Peek(agentID string, filter ...MessageType) []Message {
	var out []Message
	for _, m := range n.queues[agentID] {
		if m.Expired(n.now) {
			continue
		}
		if len(filter) > 0 && m.Type != filter[0] {
			continue
		}
		out = append(out, m)
	}
	return out
}

// PendingCount returns how many messages wait for an agent.
func (n *Network) PendingCount(agentID string) int {
	return len(n.queues[agentID])
}

// AdvanceTimestep moves the network clock and expires stale messages.
func (n *Network) AdvanceTimestep() {
	n.now++
	for id, queue := range n.queues {
		live := queue[:0]
		for _, m := range queue {
			if !m.Expired(n.now) {
				live = append(live, m)
			}
		}
		n.queues[id] = live
	}
}

// Stats summarizes network traffic.
type Stats struct {
	TotalSent  int
	ByType     map[MessageType]int
	Pending    int
	Registered int
	Timestep   int
}

// NetworkStats returns traffic counters.
func (n *Network) NetworkStats() Stats {
	pending := 0
	for _, q := range n.queues {
		pending += len(q)
	}
	byType := make(map[MessageType]int, len(n.byType))
	for k, v := range n.byType {
		byType[k] = v
	}
	return Stats{
		TotalSent:  n.sent,
		ByType:     byType,
		Pending:    pending,
		Registered: len(n.queues),
		Timestep:   n.now,
	}
}
