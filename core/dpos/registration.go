package dpos

import (
	"database/sql"
	"fmt"
)

// RegisterProducer creates or updates a producer candidate. Re-registration
// updates the key and metadata and re-activates the producer without
// resetting its accumulated votes.
func (g *Governance) RegisterProducer(owner AccountName, producerKey string, url string, location uint16) error {
	if len(url) >= MaxURLLength {
		return fmt.Errorf("%w: url too long", ErrValidation)
	}
	if producerKey == "" {
		return fmt.Errorf("%w: public key should not be the default value", ErrValidation)
	}

	return g.withTx(func(tx *sql.Tx) error {
		prod, err := getProducer(tx, owner)
		if err != nil {
			return err
		}

		if prod != nil {
			prod.ProducerKey = producerKey
			prod.IsActive = true
			prod.URL = url
			prod.Location = location
		} else {
			prod = &Producer{
				Owner:       owner,
				TotalVotes:  0,
				ProducerKey: producerKey,
				IsActive:    true,
				URL:         url,
				Location:    location,
			}
		}

		return putProducer(tx, prod)
	})
}

// DeregisterProducer deactivates a producer. The record and its vote total
// survive; the producer is excluded from election and from new votes.
func (g *Governance) DeregisterProducer(owner AccountName) error {
	return g.withTx(func(tx *sql.Tx) error {
		prod, err := getProducer(tx, owner)
		if err != nil {
			return err
		}
		if prod == nil {
			return fmt.Errorf("%w: producer not found", ErrNotFound)
		}

		prod.IsActive = false
		return putProducer(tx, prod)
	})
}

// RegisterProxy flips whether an account accepts delegated votes. Accounts
// which delegate to a proxy themselves cannot become one, and a change that
// has no effect is rejected. Delegators must refresh their vote for the
// proxy's weight to update.
func (g *Governance) RegisterProxy(account AccountName, isProxy bool) error {
	return g.withTx(func(tx *sql.Tx) error {
		voter, err := getVoter(tx, account)
		if err != nil {
			return err
		}

		if voter != nil {
			if isProxy == voter.IsProxy {
				return fmt.Errorf("%w: action has no effect", ErrValidation)
			}
			if isProxy && voter.Proxy != "" {
				return fmt.Errorf("%w: account that uses a proxy is not allowed to become a proxy", ErrValidation)
			}
			voter.IsProxy = isProxy
		} else {
			voter = &Voter{
				Owner:     account,
				Producers: []AccountName{},
				IsProxy:   isProxy,
			}
		}

		return putVoter(tx, voter)
	})
}

// SetStake is the staking-ledger boundary: it maintains the voter's staked
// amount, creating the voter record on first stake, and re-evaluates the
// voter's existing vote without activation side effects.
func (g *Governance) SetStake(account AccountName, staked int64) error {
	if staked < 0 {
		return fmt.Errorf("%w: stake must be non-negative", ErrValidation)
	}

	return g.withTx(func(tx *sql.Tx) error {
		voter, err := getVoter(tx, account)
		if err != nil {
			return err
		}
		if voter == nil {
			voter = &Voter{
				Owner:     account,
				Producers: []AccountName{},
			}
		}
		voter.Staked = staked
		if err := putVoter(tx, voter); err != nil {
			return err
		}

		gs, err := getGovernanceState(tx)
		if err != nil {
			return err
		}
		if err := g.updateVotes(tx, gs, account, voter.Proxy, voter.Producers, false); err != nil {
			return err
		}
		return putGovernanceState(tx, gs)
	})
}
