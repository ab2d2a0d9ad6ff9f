package dpos

// AccountName identifies an account on the network. Account names sort
// lexicographically; producer vote lists are kept strictly ascending.
type AccountName = string

const (
	// MaxVoteProducers is the maximum number of producers one voter may vote for.
	MaxVoteProducers = 30

	// ScheduleSize is the number of producers elected into the active schedule.
	ScheduleSize = 21

	// VoteVariation is the floor share of stake credited for voting at all.
	// A voter spreading votes across the whole producer set earns full credit;
	// a voter backing a single producer earns only this fraction.
	VoteVariation = 0.1

	// MaxURLLength bounds the registration url metadata.
	MaxURLLength = 512
)

type GovernanceConfig struct {
	// Stake which must be activated (voted with) before the network latches
	// its activation timestamp.
	MinActivatedStake int64
}

// A voter either votes directly for up to MaxVoteProducers producers, or
// delegates its whole weight to a proxy. Both Proxy set and Producers
// non-empty is invalid; both empty means "no vote".
type Voter struct {
	Owner AccountName

	// Stake owned by the voter. Maintained by the staking ledger.
	Staked int64

	// The proxy this voter delegates to, or "" for none.
	Proxy AccountName

	// Producers this voter votes for, strictly ascending, unique.
	Producers []AccountName

	// Aggregate stake delegated to this voter by others. Only meaningful
	// when IsProxy.
	ProxiedVoteWeight float64

	// The weight last applied to this voter's targets. Stays 0 for a pure
	// delegator, whose weight flows through the proxy instead.
	LastVoteWeight float64

	// Whether this voter accepts delegation.
	IsProxy bool

	// Whether this voter's stake is currently counted in the network's
	// activated-stake total. Set on the first effective vote, cleared on full
	// withdrawal.
	Activated bool
}

type Producer struct {
	Owner AccountName

	// Registration metadata.
	ProducerKey string
	URL         string
	Location    uint16

	// Accumulated vote weight, clamped to >= 0.
	TotalVotes float64

	// Deactivated producers are excluded from election and cannot receive
	// new votes.
	IsActive bool
}

func (p *Producer) Active() bool {
	return p.IsActive
}

// GovernanceState is the process-wide singleton mutated by every vote
// transition and every accepted schedule.
type GovernanceState struct {
	// Sum of stake belonging to voters who have cast at least one nonzero
	// vote, directly or through an activated proxy.
	TotalActivatedStake int64

	// Running sum of all weight deltas ever applied. Bookkeeping, not a
	// current total.
	TotalProducerVoteWeight float64

	// Latched once, the first time TotalActivatedStake crosses the
	// configured minimum. Irreversible.
	ThreshActivatedStakeTime uint64

	// Election bookkeeping.
	LastProducerScheduleUpdate uint64
	LastProducerScheduleSize   uint16
}

// ScheduleEntry is one elected producer: its account and signing key.
type ScheduleEntry struct {
	Owner       AccountName `json:"owner" bencode:"owner"`
	ProducerKey string      `json:"producer_key" bencode:"producer_key"`
}

// ScheduleProposer is the consensus boundary which receives a proposed
// producer schedule. Returning false rejects the proposal; governance
// bookkeeping is then left unchanged.
type ScheduleProposer interface {
	ProposeSchedule(schedule []ScheduleEntry) bool
}

// ScheduleProposerFunc adapts a function to the ScheduleProposer interface.
type ScheduleProposerFunc func(schedule []ScheduleEntry) bool

func (f ScheduleProposerFunc) ProposeSchedule(schedule []ScheduleEntry) bool {
	return f(schedule)
}
