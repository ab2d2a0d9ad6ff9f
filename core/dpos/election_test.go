package dpos

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingProposer struct {
	schedules [][]ScheduleEntry
	accept    bool
}

func (r *recordingProposer) ProposeSchedule(schedule []ScheduleEntry) bool {
	r.schedules = append(r.schedules, schedule)
	return r.accept
}

func TestElectionTopProducers(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)
	producers := registerTestProducers(t, gov, 25)

	// One voter per producer, stake growing with the index, so the vote
	// ranking follows the producer number.
	for i, name := range producers {
		voter := fmt.Sprintf("v%02d", i+1)
		if err := gov.SetStake(voter, int64((i+1)*1000)); err != nil {
			t.Fatal(err)
		}
		assert.Nil(gov.VoteProducer(voter, "", []AccountName{name}))
	}

	proposer := &recordingProposer{accept: true}
	gov.SetScheduleProposer(proposer)

	assert.Nil(gov.UpdateElectedProducers(42))

	if len(proposer.schedules) != 1 {
		t.Fatalf("Expected 1 proposed schedule, got %d", len(proposer.schedules))
	}
	schedule := proposer.schedules[0]
	assert.Equal(ScheduleSize, len(schedule))

	// The 4 least-voted producers miss out; the schedule is reordered by
	// producer name, independent of vote totals.
	assert.Equal(AccountName("p05"), schedule[0].Owner)
	assert.Equal(AccountName("p25"), schedule[len(schedule)-1].Owner)
	assert.Equal("key-p05", schedule[0].ProducerKey)
	assert.True(sort.SliceIsSorted(schedule, func(i, j int) bool {
		return schedule[i].Owner < schedule[j].Owner
	}))

	gs, _ := gov.State()
	assert.Equal(uint16(ScheduleSize), gs.LastProducerScheduleSize)
	assert.Equal(uint64(42), gs.LastProducerScheduleUpdate)
}

func TestElectionExcludesInactiveAndUnvoted(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)
	registerTestProducers(t, gov, 5)
	if err := gov.SetStake("alice", 1000); err != nil {
		t.Fatal(err)
	}
	assert.Nil(gov.VoteProducer("alice", "", []AccountName{"p01", "p02", "p03"}))
	assert.Nil(gov.DeregisterProducer("p02"))

	proposer := &recordingProposer{accept: true}
	gov.SetScheduleProposer(proposer)
	assert.Nil(gov.UpdateElectedProducers(42))

	// p02 is deactivated, p04 and p05 have no votes.
	if len(proposer.schedules) != 1 {
		t.Fatalf("Expected 1 proposed schedule, got %d", len(proposer.schedules))
	}
	owners := []AccountName{}
	for _, entry := range proposer.schedules[0] {
		owners = append(owners, entry.Owner)
	}
	assert.Equal([]AccountName{"p01", "p03"}, owners)
}

func TestElectionShrinkProtection(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)
	registerTestProducers(t, gov, 3)
	if err := gov.SetStake("alice", 1000); err != nil {
		t.Fatal(err)
	}
	assert.Nil(gov.VoteProducer("alice", "", []AccountName{"p01", "p02", "p03"}))

	proposer := &recordingProposer{accept: true}
	gov.SetScheduleProposer(proposer)

	assert.Nil(gov.UpdateElectedProducers(42))
	gs, _ := gov.State()
	assert.Equal(uint16(3), gs.LastProducerScheduleSize)

	// Losing a producer must not shrink the accepted schedule; the pass is
	// discarded but the attempt is still recorded.
	assert.Nil(gov.DeregisterProducer("p03"))
	assert.Nil(gov.UpdateElectedProducers(43))

	assert.Equal(1, len(proposer.schedules))
	gs, _ = gov.State()
	assert.Equal(uint16(3), gs.LastProducerScheduleSize)
	assert.Equal(uint64(43), gs.LastProducerScheduleUpdate)
}

func TestElectionRejectedProposal(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)
	registerTestProducers(t, gov, 3)
	if err := gov.SetStake("alice", 1000); err != nil {
		t.Fatal(err)
	}
	assert.Nil(gov.VoteProducer("alice", "", []AccountName{"p01", "p02", "p03"}))

	proposer := &recordingProposer{accept: false}
	gov.SetScheduleProposer(proposer)
	assert.Nil(gov.UpdateElectedProducers(42))

	// The proposal was offered but rejected; bookkeeping records the attempt
	// without adopting the size.
	assert.Equal(1, len(proposer.schedules))
	gs, _ := gov.State()
	assert.Equal(uint16(0), gs.LastProducerScheduleSize)
	assert.Equal(uint64(42), gs.LastProducerScheduleUpdate)
}

func TestElectionWithoutProposer(t *testing.T) {
	assert := assert.New(t)
	gov := newTestGovernance(t)
	registerTestProducers(t, gov, 3)

	assert.Nil(gov.UpdateElectedProducers(42))

	gs, _ := gov.State()
	assert.Equal(uint16(0), gs.LastProducerScheduleSize)
	assert.Equal(uint64(42), gs.LastProducerScheduleUpdate)
}
