package dpos

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liamzebedee/tinydpos-go/core"
)

func TestSignedActionRoundtrip(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	wallet, err := core.CreateRandomWallet()
	if err != nil {
		t.Fatalf("Failed to create wallet: %s", err)
	}

	sa, err := SignAction(wallet, GovernanceAction{
		Kind:    ActionSetStake,
		Account: wallet.Address(),
		Stake:   1000,
	})
	assert.Nil(err)

	assert.Nil(gov.ApplyAction(sa))

	voter, err := gov.GetVoter(wallet.Address())
	assert.Nil(err)
	assert.Equal(int64(1000), voter.Staked)
}

func TestSignedActionWrongAccount(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	wallet, err := core.CreateRandomWallet()
	if err != nil {
		t.Fatalf("Failed to create wallet: %s", err)
	}

	// Signed with alice's key, naming someone else's account.
	sa, err := SignAction(wallet, GovernanceAction{
		Kind:    ActionSetStake,
		Account: "mallory",
		Stake:   1000,
	})
	assert.Nil(err)

	err = gov.ApplyAction(sa)
	assert.True(errors.Is(err, ErrAuthorization))
}

func TestSignedActionTampered(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	wallet, err := core.CreateRandomWallet()
	if err != nil {
		t.Fatalf("Failed to create wallet: %s", err)
	}

	sa, err := SignAction(wallet, GovernanceAction{
		Kind:    ActionSetStake,
		Account: wallet.Address(),
		Stake:   1000,
	})
	assert.Nil(err)

	// Mutating the action after signing invalidates the envelope.
	sa.Action.Stake = 1_000_000
	err = gov.ApplyAction(sa)
	assert.True(errors.Is(err, ErrAuthorization))
}

func TestApplyActionUnknownKind(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	wallet, err := core.CreateRandomWallet()
	if err != nil {
		t.Fatalf("Failed to create wallet: %s", err)
	}

	sa, err := SignAction(wallet, GovernanceAction{
		Kind:    "mint_tokens",
		Account: wallet.Address(),
	})
	assert.Nil(err)

	err = gov.ApplyAction(sa)
	assert.True(errors.Is(err, ErrValidation))
}

func TestApplyActionDispatch(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	wallet, err := core.CreateRandomWallet()
	if err != nil {
		t.Fatalf("Failed to create wallet: %s", err)
	}
	account := wallet.Address()

	apply := func(action GovernanceAction) error {
		sa, err := SignAction(wallet, action)
		if err != nil {
			t.Fatalf("Failed to sign action: %s", err)
		}
		return gov.ApplyAction(sa)
	}

	assert.Nil(apply(GovernanceAction{Kind: ActionRegisterProducer, Account: account, ProducerKey: "key1"}))
	assert.Nil(apply(GovernanceAction{Kind: ActionSetStake, Account: account, Stake: 1000}))
	assert.Nil(apply(GovernanceAction{Kind: ActionVoteProducer, Account: account, Producers: []AccountName{account}}))
	assert.Nil(apply(GovernanceAction{Kind: ActionDeregisterProducer, Account: account}))

	prod, _ := gov.GetProducer(account)
	assert.False(prod.IsActive)
	assert.Greater(prod.TotalVotes, 0.0)
}
