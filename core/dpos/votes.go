package dpos

import (
	"database/sql"
	"fmt"
	"sort"
)

// Proxy chains in valid state are one link deep (a proxy cannot itself
// delegate), so any deeper recursion means the registries are corrupt.
const maxProxyChainDepth = 8

// VoteProducer casts or replaces the vote of voterName. The voter either
// names a proxy, or up to MaxVoteProducers producers sorted ascending and
// unique. An empty vote (no proxy, no producers) withdraws.
//
// Every producer previously voted for has the prior vote weight reversed;
// every producer newly voted for gains the new weight. A prior proxy has its
// proxied weight decremented, a new proxy incremented. If voting through a
// proxy, producer totals do not change until the proxy refreshes its own vote.
//
// The transition is atomic: it either commits wholly or leaves every registry
// row and the governance singleton untouched.
func (g *Governance) VoteProducer(voterName AccountName, proxy AccountName, producers []AccountName) error {
	return g.withTx(func(tx *sql.Tx) error {
		gs, err := getGovernanceState(tx)
		if err != nil {
			return err
		}
		if err := g.updateVotes(tx, gs, voterName, proxy, producers, true); err != nil {
			return err
		}
		return putGovernanceState(tx, gs)
	})
}

// updateVotes is the single-voter state transition. voting distinguishes an
// explicit vote action from the internal re-evaluation pass triggered by
// stake changes; only explicit votes move activation accounting.
func (g *Governance) updateVotes(tx *sql.Tx, gs *GovernanceState, voterName AccountName, proxy AccountName, producers []AccountName, voting bool) error {
	// Validate input.
	if proxy != "" {
		if len(producers) > 0 {
			return fmt.Errorf("%w: cannot vote for producers and proxy at same time", ErrValidation)
		}
		if voterName == proxy {
			return fmt.Errorf("%w: cannot proxy to self", ErrValidation)
		}
	} else {
		if len(producers) > MaxVoteProducers {
			return fmt.Errorf("%w: attempt to vote for too many producers", ErrValidation)
		}
		for i := 1; i < len(producers); i++ {
			if !(producers[i-1] < producers[i]) {
				return fmt.Errorf("%w: producer votes must be unique and sorted", ErrValidation)
			}
		}
	}

	// Staking creates the voter record.
	voter, err := getVoter(tx, voterName)
	if err != nil {
		return err
	}
	if voter == nil {
		return fmt.Errorf("%w: user must stake before they can vote", ErrNotFound)
	}
	if proxy != "" && voter.IsProxy {
		return fmt.Errorf("%w: account registered as a proxy is not allowed to use a proxy", ErrValidation)
	}

	totalStaked := voter.Staked
	if proxy != "" {
		pxy, err := getVoter(tx, proxy)
		if err != nil {
			return err
		}
		if pxy == nil {
			return fmt.Errorf("%w: invalid proxy specified", ErrNotFound)
		}
		if voting && !pxy.IsProxy {
			return fmt.Errorf("%w: proxy not found", ErrNotFound)
		}
		totalStaked = int64(float64(totalStaked) + pxy.ProxiedVoteWeight)
	}

	totalProds, err := countProducers(tx)
	if err != nil {
		return err
	}
	newVoteWeight := inverseVoteWeight(totalStaked, float64(len(producers)), float64(totalProds), VoteVariation)

	// Activation accounting. A voter's stake counts as activated from its
	// first effective vote (direct, or through a proxy that has itself voted)
	// until full withdrawal. The Activated flag tracks the contribution: a
	// delegator's own vote weight never leaves zero, so the weight cannot
	// stand in for "has contributed", and without the flag each
	// delegate/withdraw cycle would re-add the stake without ever releasing it.
	if !voter.Activated && len(producers) > 0 && voting {
		gs.TotalActivatedStake += voter.Staked
		if voter.ProxiedVoteWeight > 0 {
			gs.TotalActivatedStake += int64(voter.ProxiedVoteWeight)
		}
		voter.Activated = true
		g.checkNetworkActivation(gs)
	} else if !voter.Activated && proxy != "" && voting {
		prx, err := getVoter(tx, proxy)
		if err != nil {
			return err
		}
		if prx != nil && prx.LastVoteWeight > 0 {
			gs.TotalActivatedStake += voter.Staked
			voter.Activated = true
			g.checkNetworkActivation(gs)
		}
	} else if len(producers) == 0 && proxy == "" && voting && voter.Activated {
		// Full withdrawal releases the voter's stake from the activated total.
		gs.TotalActivatedStake -= voter.Staked
		if voter.ProxiedVoteWeight > 0 {
			gs.TotalActivatedStake -= int64(voter.ProxiedVoteWeight)
		}
		voter.Activated = false
	}

	type producerDelta struct {
		weight float64
		isNew  bool
	}
	producerDeltas := map[AccountName]*producerDelta{}
	delta := func(name AccountName) *producerDelta {
		d, ok := producerDeltas[name]
		if !ok {
			d = &producerDelta{}
			producerDeltas[name] = d
		}
		return d
	}

	// Reverse the prior effect.
	if voter.LastVoteWeight > 0 {
		if voter.Proxy != "" {
			oldProxy, err := getVoter(tx, voter.Proxy)
			if err != nil {
				return err
			}
			if oldProxy == nil {
				return fmt.Errorf("%w: old proxy not found", ErrInvariant)
			}
			oldProxy.ProxiedVoteWeight -= voter.LastVoteWeight
			if err := putVoter(tx, oldProxy); err != nil {
				return err
			}
			if err := g.propagateWeightChange(tx, oldProxy, 0); err != nil {
				return err
			}
		} else {
			for _, p := range voter.Producers {
				d := delta(p)
				d.weight -= voter.LastVoteWeight
				d.isNew = false
			}
		}
	}

	// Apply the new effect.
	if proxy != "" {
		newProxy, err := getVoter(tx, proxy)
		if err != nil {
			return err
		}
		if newProxy == nil {
			return fmt.Errorf("%w: invalid proxy specified", ErrNotFound)
		}
		if voting && !newProxy.IsProxy {
			return fmt.Errorf("%w: proxy not found", ErrNotFound)
		}

		if voting {
			newProxy.ProxiedVoteWeight += float64(voter.Staked)
		} else {
			// Re-evaluation after a stake change refreshes the delegated
			// weight to the voter's current stake outright.
			newProxy.ProxiedVoteWeight = float64(voter.Staked)
		}
		if err := putVoter(tx, newProxy); err != nil {
			return err
		}

		if newProxy.LastVoteWeight > 0 {
			if err := g.propagateWeightChange(tx, newProxy, 0); err != nil {
				return err
			}
		}
	} else {
		if newVoteWeight >= 0 {
			// The voter left its proxy: remove the delegated stake and
			// propagate the proxy's reduced weight.
			if voter.Proxy != "" {
				oldProxy, err := getVoter(tx, voter.Proxy)
				if err != nil {
					return err
				}
				if oldProxy == nil {
					return fmt.Errorf("%w: old proxy not found", ErrInvariant)
				}
				oldProxy.ProxiedVoteWeight -= float64(voter.Staked)
				if err := putVoter(tx, oldProxy); err != nil {
					return err
				}
				if err := g.propagateWeightChange(tx, oldProxy, 0); err != nil {
					return err
				}
			}
			if voting {
				for _, p := range producers {
					d := delta(p)
					d.weight += newVoteWeight
					d.isNew = true
				}
			} else {
				// Stake changed under an already-activated direct voter.
				if voter.LastVoteWeight > 0 {
					if err := g.propagateWeightChange(tx, voter, 0); err != nil {
						return err
					}
				}
			}
		}
	}

	// Apply accumulated deltas, in producer order for deterministic float
	// accumulation.
	names := make([]AccountName, 0, len(producerDeltas))
	for name := range producerDeltas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pd := producerDeltas[name]
		prod, err := getProducer(tx, name)
		if err != nil {
			return err
		}
		if prod == nil {
			if pd.isNew {
				return fmt.Errorf("%w: producer %s is not registered", ErrNotFound, name)
			}
			// A previously-voted producer vanished from the registry;
			// producers are never deleted, so only reversal deltas may
			// skip.
			continue
		}

		if voting && pd.isNew && !prod.Active() {
			return fmt.Errorf("%w: producer %s is not currently registered", ErrValidation, name)
		}

		prod.TotalVotes += pd.weight
		if prod.TotalVotes < 0 {
			// Floating point arithmetics can give small negative numbers.
			prod.TotalVotes = 0
		}
		gs.TotalProducerVoteWeight += pd.weight

		if err := putProducer(tx, prod); err != nil {
			return err
		}
	}

	// Persist the voter record.
	voter.LastVoteWeight = newVoteWeight
	voter.Producers = producers
	if voter.Producers == nil {
		voter.Producers = []AccountName{}
	}
	voter.Proxy = proxy
	return putVoter(tx, voter)
}

// propagateWeightChange recomputes a voter's weight after its available stake
// changed and cascades it: upstream through the voter's own proxy, or onto the
// voter's producers. Unlike updateVotes this overwrites producer totals
// outright rather than applying deltas.
func (g *Governance) propagateWeightChange(tx *sql.Tx, voter *Voter, depth int) error {
	if depth > maxProxyChainDepth {
		return fmt.Errorf("%w: proxy chain deeper than %d", ErrInvariant, maxProxyChainDepth)
	}
	if voter.Proxy != "" && voter.IsProxy {
		return fmt.Errorf("%w: account registered as a proxy is not allowed to use a proxy", ErrInvariant)
	}

	activeProds, err := countActiveProducers(tx)
	if err != nil {
		return err
	}
	totalProds, err := countProducers(tx)
	if err != nil {
		return err
	}

	totalStake := int64(float64(voter.Staked) + voter.ProxiedVoteWeight)
	newWeight := inverseVoteWeight(totalStake, float64(activeProds), float64(totalProds), VoteVariation)

	if voter.Proxy != "" {
		proxy, err := getVoter(tx, voter.Proxy)
		if err != nil {
			return err
		}
		if proxy == nil {
			return fmt.Errorf("%w: proxy not found", ErrInvariant)
		}
		proxy.ProxiedVoteWeight = float64(voter.Staked)
		if err := putVoter(tx, proxy); err != nil {
			return err
		}

		if err := g.propagateWeightChange(tx, proxy, depth+1); err != nil {
			return err
		}
	} else {
		for _, acnt := range voter.Producers {
			prod, err := getProducer(tx, acnt)
			if err != nil {
				return err
			}
			if prod == nil {
				return fmt.Errorf("%w: producer %s not found", ErrInvariant, acnt)
			}
			prod.TotalVotes = newWeight
			if err := putProducer(tx, prod); err != nil {
				return err
			}
		}
	}

	voter.LastVoteWeight = newWeight
	return putVoter(tx, voter)
}
