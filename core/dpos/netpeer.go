package dpos

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pion/stun"

	"github.com/liamzebedee/tinydpos-go/core"
)

var peerLogger = core.NewLogger("peer", "")

type Peer struct {
	// Full base URL of the peer, eg. http://192.168.1.10:8121
	Url string `json:"url"`
}

type PeerConfig struct {
	address        string
	port           string
	bootstrapPeers []string
}

func NewPeerConfig(address string, port string, bootstrapPeers []string) PeerConfig {
	return PeerConfig{
		address:        address,
		port:           port,
		bootstrapPeers: bootstrapPeers,
	}
}

// PeerCore connects a node to the rest of the permissioned network: it
// accepts signed governance actions, and gossips accepted producer schedules.
type PeerCore struct {
	config PeerConfig
	server *PeerServer

	peers []Peer

	// OnGovernanceAction is invoked for each signed action received from a
	// peer. An error rejects the message.
	OnGovernanceAction func(sa *SignedAction) error

	// OnProposedSchedule is invoked when a peer gossips a schedule.
	OnProposedSchedule func(schedule []ScheduleEntry)

	log *log.Logger
}

func NewPeerCore(config PeerConfig) *PeerCore {
	p := &PeerCore{
		config: config,
		server: NewPeerServer(config),
		peers:  []Peer{},
		log:    peerLogger,
	}

	p.server.RegisterMessageHandler("action", func(message []byte) (interface{}, error) {
		var msg ActionMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return nil, err
		}
		if p.OnGovernanceAction == nil {
			return nil, nil
		}
		if err := p.OnGovernanceAction(&msg.Action); err != nil {
			return nil, err
		}
		return nil, nil
	})

	p.server.RegisterMessageHandler("proposed_schedule", func(message []byte) (interface{}, error) {
		var msg ProposedScheduleMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return nil, err
		}
		packed, err := hex.DecodeString(msg.Packed)
		if err != nil {
			return nil, err
		}
		schedule, err := UnpackSchedule(packed)
		if err != nil {
			return nil, err
		}
		if p.OnProposedSchedule != nil {
			p.OnProposedSchedule(schedule)
		}
		return nil, nil
	})

	p.server.RegisterMessageHandler("heartbeat", func(message []byte) (interface{}, error) {
		var msg HeartbeatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return nil, err
		}
		p.addPeer(msg.Url)
		return HeartbeatMessage{Type: "heartbeat", Url: p.ExternalUrl()}, nil
	})

	return p
}

type ActionMessage struct {
	Type   string       `json:"type"` // "action"
	Action SignedAction `json:"action"`
}

type ProposedScheduleMessage struct {
	Type   string `json:"type"` // "proposed_schedule"
	Packed string `json:"packed"`
}

type HeartbeatMessage struct {
	Type string `json:"type"` // "heartbeat"
	Url  string `json:"url"`
}

func (p *PeerCore) Start() {
	p.server.Start()
}

func (p *PeerCore) ExternalUrl() string {
	return fmt.Sprintf("http://%s:%s", p.config.address, p.config.port)
}

func (p *PeerCore) Peers() []Peer {
	return p.peers
}

func (p *PeerCore) addPeer(url string) {
	if url == "" || url == p.ExternalUrl() {
		return
	}
	for _, peer := range p.peers {
		if peer.Url == url {
			return
		}
	}
	p.peers = append(p.peers, Peer{Url: url})
	p.log.Printf("Added peer url=%s\n", url)
}

// Bootstrap dials the configured peers and exchanges heartbeats.
func (p *PeerCore) Bootstrap(peerAddresses []string) {
	for _, addr := range peerAddresses {
		p.addPeer(addr)
	}

	for _, peer := range p.peers {
		res, err := SendMessageToPeer(peer.Url, HeartbeatMessage{Type: "heartbeat", Url: p.ExternalUrl()})
		if err != nil {
			p.log.Printf("Failed to heartbeat peer %s: %s\n", peer.Url, err)
			continue
		}

		var reply HeartbeatMessage
		if err := json.Unmarshal(res, &reply); err != nil {
			continue
		}
		p.addPeer(reply.Url)
	}
}

// GossipSchedule sends an accepted producer schedule to every known peer.
func (p *PeerCore) GossipSchedule(schedule []ScheduleEntry) {
	packed, err := PackSchedule(schedule)
	if err != nil {
		p.log.Printf("Failed to pack schedule: %s\n", err)
		return
	}

	msg := ProposedScheduleMessage{
		Type:   "proposed_schedule",
		Packed: hex.EncodeToString(packed),
	}

	for _, peer := range p.peers {
		_, err := SendMessageToPeer(peer.Url, msg)
		if err != nil {
			p.log.Printf("Failed to gossip schedule to peer %s: %s\n", peer.Url, err)
		}
	}
}

// SubmitAction sends a signed governance action to a peer's inbox.
func (p *PeerCore) SubmitAction(peerUrl string, sa *SignedAction) error {
	_, err := SendMessageToPeer(peerUrl, ActionMessage{Type: "action", Action: *sa})
	return err
}

// DiscoverExternalIP resolves our external IP by asking a public STUN server.
func DiscoverExternalIP() (string, error) {
	c, err := stun.Dial("udp4", "stun.l.google.com:19302")
	if err != nil {
		return "", err
	}
	defer c.Close()

	message := stun.MustBuild(stun.TransactionID, stun.BindingRequest)

	var ip string
	var cbErr error
	err = c.Do(message, func(res stun.Event) {
		if res.Error != nil {
			cbErr = res.Error
			return
		}
		var xorAddr stun.XORMappedAddress
		if err := xorAddr.GetFrom(res.Message); err != nil {
			cbErr = err
			return
		}
		ip = xorAddr.IP.String()
	})
	if err != nil {
		return "", err
	}
	if cbErr != nil {
		return "", cbErr
	}

	return ip, nil
}
