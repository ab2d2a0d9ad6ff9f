package dpos

import (
	"log"
	"time"

	"github.com/liamzebedee/tinydpos-go/core"
)

// Node wires the governance engine to the network: inbound signed actions are
// applied to the engine, and the periodic election trigger proposes producer
// schedules which are gossiped to peers on acceptance.
type Node struct {
	Gov  *Governance
	Peer *PeerCore

	// How often the election trigger fires.
	ElectionInterval time.Duration

	stop chan struct{}
	log  *log.Logger
}

func NewNode(gov *Governance, peer *PeerCore, electionInterval time.Duration) *Node {
	n := &Node{
		Gov:              gov,
		Peer:             peer,
		ElectionInterval: electionInterval,
		stop:             make(chan struct{}),
		log:              core.NewLogger("node", ""),
	}

	// Inbound actions from peers.
	n.Peer.OnGovernanceAction = func(sa *SignedAction) error {
		n.log.Printf("Applying action kind=%s account=%s\n", sa.Action.Kind, sa.Action.Account)
		return n.Gov.ApplyAction(sa)
	}

	// Accepted schedules are gossiped to the network.
	n.Gov.SetScheduleProposer(ScheduleProposerFunc(func(schedule []ScheduleEntry) bool {
		n.log.Printf("New producer schedule proposed size=%d\n", len(schedule))
		go n.Peer.GossipSchedule(schedule)
		return true
	}))

	return n
}

func (n *Node) Start() {
	go n.electionLoop()
	go n.Peer.Start()
}

// electionLoop is the time-gated trigger for the schedule elector. Votes and
// elections share the engine's transactional lock, so a pass never overlaps a
// vote transition.
func (n *Node) electionLoop() {
	ticker := time.NewTicker(n.ElectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			err := n.Gov.UpdateElectedProducers(core.Timestamp())
			if err != nil {
				n.log.Printf("Election pass failed: %s\n", err)
			}
		}
	}
}

func (n *Node) Shutdown() {
	close(n.stop)
}
