package metrics

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

const bootstrapSeed = uint64(12345)

type bootstrap struct {
	level      float64
	iterations int
}

// interval estimates a percentile confidence interval for score by
// resampling label pairs with replacement. A linear congruential generator
// with a fixed seed keeps the result deterministic.
func (b bootstrap) interval(trueLabels, predicted []any, score func(t, p []any) (float64, error)) (float64, float64, error) {
	n := len(trueLabels)
	if n == 0 {
		return 0, 0, fmt.Errorf("no labels")
	}
	level, iterations := b.level, b.iterations
	if level <= 0 || level >= 1 {
		level = DefaultLevel
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	seed := bootstrapSeed
	lcg := func() uint64 {
		seed = seed*6364136223846793005 + 1442695040888963407
		return seed
	}

	scores := make(stats.Float64Data, iterations)
	bt := make([]any, n)
	bp := make([]any, n)
	for i := 0; i < iterations; i++ {
		for j := 0; j < n; j++ {
			idx := int((lcg() >> 33) % uint64(n))
			bt[j], bp[j] = trueLabels[idx], predicted[idx]
		}
		s, err := score(bt, bp)
		if err != nil {
			return 0, 0, err
		}
		scores[i] = s
	}

	alpha := (1 - level) / 2
	low, err := stats.Percentile(scores, 100*alpha)
	if err != nil {
		return 0, 0, fmt.Errorf("lower percentile: %w", err)
	}
	high, err := stats.Percentile(scores, 100*(1-alpha))
	if err != nil {
		return 0, 0, fmt.Errorf("upper percentile: %w", err)
	}
	return low, high, nil
}
