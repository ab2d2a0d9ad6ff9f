package dpos

import (
	"database/sql"
	"log"
	"sync"

	"github.com/liamzebedee/tinydpos-go/core"
)

// Governance is the voting state-transition engine. It owns the voter and
// producer registries and the governance singleton, all backed by the SQL
// database, and emits proposed producer schedules to the consensus boundary.
//
// Execution is single-threaded and transactional: every action runs inside
// one database transaction and either commits wholly or not at all.
type Governance struct {
	db     *sql.DB
	config GovernanceConfig

	// The consensus boundary receiving proposed schedules. Optional; with no
	// proposer configured every election pass is treated as rejected.
	proposer ScheduleProposer

	// Now supplies the current time in unix milliseconds. Overridable so
	// replays and tests can pin the activation timestamp.
	Now func() uint64

	// Serializes actions: one transition at a time, election passes included.
	mu sync.Mutex

	log *log.Logger
}

func NewGovernanceFromDB(db *sql.DB, config GovernanceConfig) *Governance {
	return &Governance{
		db:     db,
		config: config,
		Now:    core.Timestamp,
		log:    core.NewLogger("gov", ""),
	}
}

func (g *Governance) SetScheduleProposer(p ScheduleProposer) {
	g.proposer = p
}

// withTx runs one governance action with exclusive access to the registries.
// Any error rolls the whole action back; registry rows and the governance
// singleton are left exactly as before the call.
func (g *Governance) withTx(fn func(tx *sql.Tx) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	tx, err := g.db.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (g *Governance) checkNetworkActivation(gs *GovernanceState) {
	if gs.TotalActivatedStake >= g.config.MinActivatedStake && gs.ThreshActivatedStakeTime == 0 {
		gs.ThreshActivatedStakeTime = g.Now()
		g.log.Printf("Network activation threshold crossed stake=%d\n", gs.TotalActivatedStake)
	}
}

// GetVoter returns the voter record, or nil if the account has never staked
// or registered as a proxy.
func (g *Governance) GetVoter(owner AccountName) (*Voter, error) {
	var voter *Voter
	err := g.withTx(func(tx *sql.Tx) error {
		var err error
		voter, err = getVoter(tx, owner)
		return err
	})
	return voter, err
}

// GetProducer returns the producer record, or nil if unregistered.
func (g *Governance) GetProducer(owner AccountName) (*Producer, error) {
	var producer *Producer
	err := g.withTx(func(tx *sql.Tx) error {
		var err error
		producer, err = getProducer(tx, owner)
		return err
	})
	return producer, err
}

// State returns a copy of the governance singleton.
func (g *Governance) State() (*GovernanceState, error) {
	var gs *GovernanceState
	err := g.withTx(func(tx *sql.Tx) error {
		var err error
		gs, err = getGovernanceState(tx)
		return err
	})
	return gs, err
}

// TopProducers returns up to limit active producers with positive vote
// totals, in descending vote order.
func (g *Governance) TopProducers(limit int) ([]Producer, error) {
	var producers []Producer
	err := g.withTx(func(tx *sql.Tx) error {
		var err error
		producers, err = topProducers(tx, limit)
		return err
	})
	return producers, err
}
