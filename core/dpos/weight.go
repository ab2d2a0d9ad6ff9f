package dpos

// Vote weight calculation.
//
// A voter's stake is converted into a vote weight which rewards spreading
// votes across many producers instead of concentrating them. The maximum
// weight is reached by voting for the whole registered producer set (up to
// the 30 producer cap); voting for a single producer earns only the
// VoteVariation floor.

const halfPi = 3.14159265358979323846 / 2

// inverseVoteWeight converts staked tokens into a vote weight.
//
//	weight = (k*sin(pi/2 * voted/total) + variation) * staked, k = 1 - variation
//
// votedProducers is the number of producers the voter backs, totalProducers
// the number of registered producers (capped at MaxVoteProducers). Zero
// targets carry zero weight.
func inverseVoteWeight(staked int64, votedProducers float64, totalProducers float64, variation float64) float64 {
	if votedProducers == 0.0 {
		return 0
	}
	if totalProducers == 0.0 {
		// No registered producers; nothing to weight against.
		return 0
	}
	if totalProducers > MaxVoteProducers {
		totalProducers = MaxVoteProducers
	}

	k := 1 - variation

	return (k*portableSin(float64(halfPi*(votedProducers/totalProducers))) + variation) * float64(staked)
}

// Taylor coefficients of sin around 0, through x^17.
const (
	sinC3  = -1.0 / 6
	sinC5  = 1.0 / 120
	sinC7  = -1.0 / 5040
	sinC9  = 1.0 / 362880
	sinC11 = -1.0 / 39916800
	sinC13 = 1.0 / 6227020800
	sinC15 = -1.0 / 1307674368000
	sinC17 = 1.0 / 355687428096000
)

const pi = 3.14159265358979323846

// portableSin is a software sine. Vote weights feed consensus state, so every
// validating node must compute bit-identical results; the platform libm makes
// no such guarantee across architectures. This evaluates the Taylor polynomial
// through x^17 after range reduction to [-pi/2, pi/2], with every intermediate
// forced to float64 so the compiler cannot contract operations into FMAs.
// Absolute error is below 1e-11 on the reduced range.
func portableSin(x float64) float64 {
	neg := false
	if x < 0 {
		x = -x
		neg = true
	}

	// Reduce to y in [-pi/2, pi/2] with x = k*pi + y, sin(x) = (-1)^k sin(y).
	k := float64(int64(float64(x/pi) + 0.5))
	y := float64(x - float64(k*pi))
	if int64(k)%2 == 1 {
		neg = !neg
	}

	y2 := float64(y * y)
	q := sinC17
	q = float64(float64(q*y2) + sinC15)
	q = float64(float64(q*y2) + sinC13)
	q = float64(float64(q*y2) + sinC11)
	q = float64(float64(q*y2) + sinC9)
	q = float64(float64(q*y2) + sinC7)
	q = float64(float64(q*y2) + sinC5)
	q = float64(float64(q*y2) + sinC3)
	s := float64(y + float64(y*float64(y2*q)))

	if neg {
		return -s
	}
	return s
}
