package dpos

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInverseVoteWeightZeroTargets(t *testing.T) {
	assert := assert.New(t)

	// No producers voted for, or none registered, carries no weight.
	assert.Equal(0.0, inverseVoteWeight(1000, 0, 10, VoteVariation))
	assert.Equal(0.0, inverseVoteWeight(1000, 3, 0, VoteVariation))
	assert.Equal(0.0, inverseVoteWeight(0, 3, 10, VoteVariation))
}

func TestInverseVoteWeightScenario(t *testing.T) {
	assert := assert.New(t)

	// 1000 staked, voting for 3 of 10 registered producers:
	// (0.9*sin(pi/2 * 0.3) + 0.1) * 1000
	w := inverseVoteWeight(1000, 3, 10, VoteVariation)
	assert.InDelta(508.591449765592, w, 1e-9)
}

func TestInverseVoteWeightBounds(t *testing.T) {
	assert := assert.New(t)

	staked := int64(1_000_000)

	// Full spread earns the entire stake as weight.
	full := inverseVoteWeight(staked, 30, 30, VoteVariation)
	assert.InDelta(float64(staked), full, 1e-6)

	// Any nonzero vote earns at least the variation floor, at most the stake.
	single := inverseVoteWeight(staked, 1, 30, VoteVariation)
	assert.Greater(single, VoteVariation*float64(staked))
	assert.Less(single, float64(staked))
}

func TestInverseVoteWeightMonotonic(t *testing.T) {
	assert := assert.New(t)

	prev := 0.0
	for voted := 1; voted <= 30; voted++ {
		w := inverseVoteWeight(1000, float64(voted), 30, VoteVariation)
		assert.Greater(w, prev, "weight must grow with vote spread (voted=%d)", voted)
		prev = w
	}
}

func TestInverseVoteWeightTotalProducersCapped(t *testing.T) {
	assert := assert.New(t)

	// Registered producer counts above the vote cap do not dilute weight.
	capped := inverseVoteWeight(1000, 3, MaxVoteProducers, VoteVariation)
	beyond := inverseVoteWeight(1000, 3, 100, VoteVariation)
	assert.Equal(capped, beyond)
}

func TestPortableSin(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0.0, portableSin(0))

	samples := []float64{
		0.1, 0.25, 0.471238898038469, 1.0, halfPi, 2.0, 3.0, pi, 4.5, 10.0,
	}
	for _, x := range samples {
		assert.InDelta(math.Sin(x), portableSin(x), 1e-9, "sin(%f)", x)
		assert.InDelta(-math.Sin(x), portableSin(-x), 1e-9, "sin(-%f)", x)
	}
}
