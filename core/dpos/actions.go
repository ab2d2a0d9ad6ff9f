package dpos

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/liamzebedee/tinydpos-go/core"
)

// Action kinds accepted over the wire.
const (
	ActionRegisterProducer   = "register_producer"
	ActionDeregisterProducer = "deregister_producer"
	ActionVoteProducer       = "vote_producer"
	ActionRegisterProxy      = "register_proxy"
	ActionSetStake           = "set_stake"
)

// GovernanceAction is one governance operation named by an account. Only the
// fields relevant to the kind are set.
type GovernanceAction struct {
	Kind    string      `json:"kind"`
	Account AccountName `json:"account"`

	// register_producer
	ProducerKey string `json:"producer_key,omitempty"`
	URL         string `json:"url,omitempty"`
	Location    uint16 `json:"location,omitempty"`

	// vote_producer
	Proxy     AccountName   `json:"proxy,omitempty"`
	Producers []AccountName `json:"producers,omitempty"`

	// register_proxy
	IsProxy bool `json:"is_proxy,omitempty"`

	// set_stake
	Stake int64 `json:"stake,omitempty"`
}

// Envelope is the canonical byte encoding signed by the acting account.
func (a *GovernanceAction) Envelope() []byte {
	buf, err := json.Marshal(a)
	if err != nil {
		panic(err)
	}
	return buf
}

// SignedAction carries an action plus the acting account's signature over the
// action envelope.
type SignedAction struct {
	Action GovernanceAction `json:"action"`
	Pubkey string           `json:"pubkey"`
	Sig    string           `json:"sig"`
}

// SignAction signs an action with the wallet of the account it names.
func SignAction(wallet *core.Wallet, action GovernanceAction) (*SignedAction, error) {
	sig, err := wallet.Sign(action.Envelope())
	if err != nil {
		return nil, err
	}
	return &SignedAction{
		Action: action,
		Pubkey: wallet.PubkeyStr(),
		Sig:    hex.EncodeToString(sig),
	}, nil
}

// requireAuth verifies the signature over the action envelope and that the
// signing key belongs to the account the action names.
func requireAuth(sa *SignedAction) error {
	sig, err := hex.DecodeString(sa.Sig)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", ErrAuthorization)
	}
	if !core.VerifySignature(sa.Pubkey, sig, sa.Action.Envelope()) {
		return fmt.Errorf("%w: invalid signature", ErrAuthorization)
	}
	if addressForPubkey(sa.Pubkey) != sa.Action.Account {
		return fmt.Errorf("%w: missing authority of %s", ErrAuthorization, sa.Action.Account)
	}
	return nil
}

// addressForPubkey mirrors core.Wallet.Address for a hex-encoded pubkey.
func addressForPubkey(pubkeyStr string) string {
	firstHash := sha256.Sum256([]byte(pubkeyStr))
	secondHash := sha256.Sum256(firstHash[:])
	return hex.EncodeToString(secondHash[:])
}

// ApplyAction authorizes and executes one signed governance action.
func (g *Governance) ApplyAction(sa *SignedAction) error {
	if err := requireAuth(sa); err != nil {
		return err
	}

	action := &sa.Action
	switch action.Kind {
	case ActionRegisterProducer:
		return g.RegisterProducer(action.Account, action.ProducerKey, action.URL, action.Location)
	case ActionDeregisterProducer:
		return g.DeregisterProducer(action.Account)
	case ActionVoteProducer:
		return g.VoteProducer(action.Account, action.Proxy, action.Producers)
	case ActionRegisterProxy:
		return g.RegisterProxy(action.Account, action.IsProxy)
	case ActionSetStake:
		return g.SetStake(action.Account, action.Stake)
	default:
		return fmt.Errorf("%w: unknown action kind '%s'", ErrValidation, action.Kind)
	}
}
