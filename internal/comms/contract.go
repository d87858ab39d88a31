package comms

import (
	"sort"

	"github.com/AbhayankarBellur/multi-agent-rescue-system/internal/core"
)

// TaskBid is an agent's proposal for a rescue task. Lower score wins.
type TaskBid struct {
	AgentID      string
	Task         core.Position // survivor position
	Cost         float64
	Capability   float64
	Risk         float64
	ExpectedTime int
	CurrentLoad  int
}

// Score combines cost, risk, and load into one comparable value.
// Risk is scaled to the same magnitude as grid distances, and a small
// load penalty spreads work across bidders.
func (b TaskBid) Score(costWeight, riskWeight float64) float64 {
	loadPenalty := float64(b.CurrentLoad) * 0.1
	return costWeight*b.Cost + riskWeight*b.Risk*100 + loadPenalty
}

// ContractNet runs the announce/bid/award exchange over a network.
// The manager announces a task, collects bids, and awards to the best
// scorer.
type ContractNet struct {
	network        *Network
	BiddingTimeout int

	activeCFPs   map[core.Position]int    // task -> announcement timestep
	awardedTasks map[core.Position]string // task -> agent
}

// NewContractNet wraps a network with Contract Net bookkeeping.
func NewContractNet(network *Network) *ContractNet {
	return &ContractNet{
		network:        network,
		BiddingTimeout: 3,
		activeCFPs:     make(map[core.Position]int),
		awardedTasks:   make(map[core.Position]string),
	}
}

// AnnounceTask broadcasts a call for proposals.
func (c *ContractNet) AnnounceTask(managerID string, task core.Position, priority float64, positions map[string]core.Position) {
	c.network.Send(Message{
		Type:     TaskRequest,
		Sender:   managerID,
		Receiver: "",
		Payload:  task,
		Priority: priority,
	}, positions)
	c.activeCFPs[task] = c.network.now
}

// SubmitBid sends a bid back to the manager.
func (c *ContractNet) SubmitBid(managerID string, bid TaskBid, positions map[string]core.Position) {
	c.network.Send(Message{
		Type:     TaskBidMsg,
		Sender:   bid.AgentID,
		Receiver: managerID,
		Payload:  bid,
		Priority: 1.0 / (bid.Score(0.6, 0.4) + 0.01),
	}, positions)
}

// EvaluateBids picks the winner and records the award. Returns ok
// false when no bids arrived.
func (c *ContractNet) EvaluateBids(task core.Position, bids []TaskBid) (string, bool) {
	if len(bids) == 0 {
		return "", false
	}
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].Score(0.6, 0.4) < bids[j].Score(0.6, 0.4)
	})
	winner := bids[0].AgentID
	c.awardedTasks[task] = winner
	return winner, true
}

// AwardTask notifies the winner and closes the CFP.
func (c *ContractNet) AwardTask(managerID string, task core.Position, winnerID string, positions map[string]core.Position) {
	c.network.Send(Message{
		Type:     TaskAward,
		Sender:   managerID,
		Receiver: winnerID,
		Payload:  task,
		Priority: 1.0,
	}, positions)
	delete(c.activeCFPs, task)
}

// TaskAgent returns who holds a task, if awarded.
func (c *ContractNet) TaskAgent(task core.Position) (string, bool) {
	id, ok := c.awardedTasks[task]
	return id, ok
}

// CompleteTask broadcasts completion and releases the award.
func (c *ContractNet) CompleteTask(agentID string, task core.Position, positions map[string]core.Position) {
	c.network.Send(Message{
		Type:    TaskComplete,
		Sender:  agentID,
		Payload: task,
	}, positions)
	delete(c.awardedTasks, task)
}
