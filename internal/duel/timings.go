package duel

import (
	"math/rand/v2"
	"time"
)

// Timings are the phase delays of one round.
type Timings struct {
	Countdown time.Duration
	Ready     time.Duration
	SteadyMin time.Duration
	SteadyMax time.Duration
	Result    time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		Countdown: 1000 * time.Millisecond,
		Ready:     1000 * time.Millisecond,
		SteadyMin: 1000 * time.Millisecond,
		SteadyMax: 3000 * time.Millisecond,
		Result:    3000 * time.Millisecond,
	}
}

// JitterFunc picks the steady→draw delay from [min, max).
type JitterFunc func(min, max time.Duration) time.Duration

func uniformJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}
