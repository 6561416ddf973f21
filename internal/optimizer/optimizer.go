// Package optimizer recommends the next question difficulty from a learner's
// recent performance.
//
// Each candidate level is scored as
//
//	efficiency[category(score)][target] - transitionCost(target-current) + 0.1*trend
//
// and the highest score wins, earliest level first on ties. Results are memoized
// per (current level, score rounded to two decimals); history is not part of the key.
package optimizer

import (
	"math"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

const (
	// DefaultTargetPerformance seeds the simulated performance in Sequence.
	DefaultTargetPerformance = 0.7
	// DefaultNoiseSpread is the standard deviation of the simulated performance drift.
	DefaultNoiseSpread = 0.1

	trendWeight        = 0.1
	defaultTransition  = 0.5
	trendWindow        = 3
	recommendWindow    = 10
	maxConfidence      = 0.95
	confidenceBoost    = 0.2
	defaultConfidence  = 0.5
	noHistoryReasoning = "no history"
)

// efficiency is indexed by [performance category][target level].
var efficiency = [4][4]float64{
	{0.9, 0.7, 0.3, 0.1}, // high (>= 0.8)
	{0.8, 0.9, 0.6, 0.3}, // good (>= 0.6)
	{0.6, 0.8, 0.8, 0.5}, // average (>= 0.4)
	{0.4, 0.6, 0.7, 0.6}, // poor
}

// transitionCosts is indexed by signed level delta (target - current).
var transitionCosts = map[int]float64{
	0:  0,
	1:  0.1,
	-1: 0.05,
	2:  0.3,
	-2: 0.2,
	3:  0.5,
	-3: 0.4,
}

type cacheKey struct {
	level int
	score string
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithRand sets the random source used by Sequence.
func WithRand(r *rand.Rand) Option {
	return func(o *Optimizer) {
		o.rng = r
	}
}

// WithNoiseSpread sets the standard deviation of Sequence's performance drift.
func WithNoiseSpread(spread float64) Option {
	return func(o *Optimizer) {
		if spread >= 0 {
			o.spread = spread
		}
	}
}

// WithMaxCacheEntries caps the memoization cache. When the cap is reached the
// cache is emptied before the next insert. Zero means unbounded.
func WithMaxCacheEntries(n int) Option {
	return func(o *Optimizer) {
		if n >= 0 {
			o.maxCache = n
		}
	}
}

// Optimizer computes difficulty recommendations. It is safe for concurrent use.
type Optimizer struct {
	mu       sync.Mutex
	cache    map[cacheKey]question.Difficulty
	rng      *rand.Rand
	spread   float64
	maxCache int
}

// New creates an optimizer.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		cache:  make(map[cacheKey]question.Difficulty),
		spread: DefaultNoiseSpread,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// OptimalNext returns the difficulty with the best estimated learning value.
// An unknown current difficulty is treated as intermediate.
func (o *Optimizer) OptimalNext(current question.Difficulty, score float64, history []float64) question.Difficulty {
	level := current.Level()
	if level < 0 {
		level = question.Intermediate.Level()
	}
	// FormatFloat rounds the exact binary value, so 0.595 keys as "0.59" and
	// 0.125 as "0.12".
	key := cacheKey{level: level, score: strconv.FormatFloat(score, 'f', 2, 64)}

	o.mu.Lock()
	defer o.mu.Unlock()

	if d, ok := o.cache[key]; ok {
		return d
	}

	best := question.FromLevel(optimalLevel(level, score, history))
	if o.maxCache > 0 && len(o.cache) >= o.maxCache {
		o.cache = make(map[cacheKey]question.Difficulty)
	}
	o.cache[key] = best
	return best
}

// CacheSize reports the number of memoized recommendations.
func (o *Optimizer) CacheSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.cache)
}

// ResetCache drops every memoized recommendation.
func (o *Optimizer) ResetCache() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cache = make(map[cacheKey]question.Difficulty)
}

// Sequence simulates a quiz of count questions starting at start. The
// simulated performance begins at target and drifts by a normal draw per step.
func (o *Optimizer) Sequence(count int, start question.Difficulty, target float64) []question.Difficulty {
	if count <= 0 {
		return []question.Difficulty{}
	}

	seq := make([]question.Difficulty, 0, count)
	seq = append(seq, start)

	current := start
	simulated := target
	for i := 1; i < count; i++ {
		simulated = clamp(simulated+o.noise(), 0, 1)
		current = o.OptimalNext(current, simulated, nil)
		seq = append(seq, current)
	}
	return seq
}

func (o *Optimizer) noise() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.NormFloat64() * o.spread
}

func optimalLevel(current int, score float64, history []float64) int {
	category := performanceCategory(score)
	trend := trendFactor(history)

	best := current
	bestValue := math.Inf(-1)
	for target := range len(efficiency[category]) {
		value := efficiency[category][target] - transitionCost(target-current) + trendWeight*trend
		if value > bestValue {
			bestValue = value
			best = target
		}
	}
	return best
}

func performanceCategory(score float64) int {
	switch {
	case score >= 0.8:
		return 0
	case score >= 0.6:
		return 1
	case score >= 0.4:
		return 2
	default:
		return 3
	}
}

func transitionCost(delta int) float64 {
	if c, ok := transitionCosts[delta]; ok {
		return c
	}
	return defaultTransition
}

func trendFactor(history []float64) float64 {
	if len(history) < trendWindow {
		return 1.0
	}
	recent := history[len(history)-trendWindow:]
	trend := (recent[len(recent)-1] - recent[0]) / float64(len(recent)-1)
	return clamp(1.0+trend, 0.5, 1.5)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
