package dpos

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterProducer(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	err := gov.RegisterProducer("alice", "key1", "https://alice.example", 840)
	assert.Nil(err)

	prod, err := gov.GetProducer("alice")
	assert.Nil(err)
	assert.Equal("key1", prod.ProducerKey)
	assert.Equal("https://alice.example", prod.URL)
	assert.Equal(uint16(840), prod.Location)
	assert.True(prod.IsActive)
	assert.Equal(0.0, prod.TotalVotes)
}

func TestRegisterProducerValidation(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	err := gov.RegisterProducer("alice", "key1", strings.Repeat("u", MaxURLLength), 0)
	assert.True(errors.Is(err, ErrValidation))

	err = gov.RegisterProducer("alice", "", "https://alice.example", 0)
	assert.True(errors.Is(err, ErrValidation))
}

func TestReRegisterPreservesVotes(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)
	registerTestProducers(t, gov, 10)
	if err := gov.SetStake("alice", 1000); err != nil {
		t.Fatal(err)
	}
	assert.Nil(gov.VoteProducer("alice", "", []AccountName{"p01"}))

	before, _ := gov.GetProducer("p01")
	assert.Greater(before.TotalVotes, 0.0)

	assert.Nil(gov.DeregisterProducer("p01"))
	prod, _ := gov.GetProducer("p01")
	assert.False(prod.IsActive)
	assert.Equal(before.TotalVotes, prod.TotalVotes)

	// Re-registration rotates the key and reactivates, keeping the votes.
	assert.Nil(gov.RegisterProducer("p01", "key-rotated", "https://p01.example", 0))
	prod, _ = gov.GetProducer("p01")
	assert.True(prod.IsActive)
	assert.Equal("key-rotated", prod.ProducerKey)
	assert.Equal(before.TotalVotes, prod.TotalVotes)
}

func TestDeregisterMissingProducer(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	err := gov.DeregisterProducer("ghost")
	assert.True(errors.Is(err, ErrNotFound))
}

func TestRegisterProxyCreatesVoter(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	assert.Nil(gov.RegisterProxy("carol", true))

	voter, err := gov.GetVoter("carol")
	assert.Nil(err)
	assert.True(voter.IsProxy)
	assert.Equal(int64(0), voter.Staked)
}

func TestRegisterProxyNoEffect(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	assert.Nil(gov.RegisterProxy("carol", true))
	err := gov.RegisterProxy("carol", true)
	assert.True(errors.Is(err, ErrValidation))

	assert.Nil(gov.RegisterProxy("carol", false))
	err = gov.RegisterProxy("carol", false)
	assert.True(errors.Is(err, ErrValidation))
}

func TestDelegatorCannotBecomeProxy(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)
	assert.Nil(gov.RegisterProxy("carol", true))
	assert.Nil(gov.SetStake("bob", 500))
	assert.Nil(gov.VoteProducer("bob", "carol", nil))

	err := gov.RegisterProxy("bob", true)
	assert.True(errors.Is(err, ErrValidation))
}

func TestSetStake(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)

	// First stake creates the voter record.
	assert.Nil(gov.SetStake("alice", 1000))
	voter, err := gov.GetVoter("alice")
	assert.Nil(err)
	assert.Equal(int64(1000), voter.Staked)
	assert.Equal(0.0, voter.LastVoteWeight)

	err = gov.SetStake("alice", -1)
	assert.True(errors.Is(err, ErrValidation))
}
