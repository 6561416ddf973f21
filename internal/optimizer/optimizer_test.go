package optimizer_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/question"
)

func TestOptimalNext(t *testing.T) {
	tests := []struct {
		name    string
		current question.Difficulty
		score   float64
		want    question.Difficulty
	}{
		{"high score on beginner stays", question.Beginner, 0.9, question.Beginner},
		{"high score on intermediate steps down", question.Intermediate, 0.85, question.Beginner},
		{"low score on advanced stays", question.Advanced, 0.3, question.Advanced},
		{"good score on intermediate stays", question.Intermediate, 0.6, question.Intermediate},
		{"poor score on beginner steps up", question.Beginner, 0.2, question.Intermediate},
		{"poor score on expert steps down", question.Expert, 0.3, question.Advanced},
		{"average score on intermediate", question.Intermediate, 0.5, question.Intermediate},
		{"top score on expert never exceeds expert", question.Expert, 0.95, question.Beginner},
		{"unknown current treated as intermediate", question.Difficulty("x"), 0.6, question.Intermediate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := optimizer.New()
			assert.Equal(t, tt.want, o.OptimalNext(tt.current, tt.score, nil))
		})
	}
}

func TestOptimalNext_CategoryBoundaryIsInclusive(t *testing.T) {
	// 0.8 belongs to the high band: from intermediate that favours beginner,
	// while the good band (0.79) keeps intermediate.
	o := optimizer.New()
	assert.Equal(t, question.Beginner, o.OptimalNext(question.Intermediate, 0.8, nil))
	assert.Equal(t, question.Intermediate, o.OptimalNext(question.Intermediate, 0.79, nil))
}

func TestOptimalNext_Memoized(t *testing.T) {
	o := optimizer.New()

	first := o.OptimalNext(question.Intermediate, 0.7, nil)
	require.Equal(t, 1, o.CacheSize())

	second := o.OptimalNext(question.Intermediate, 0.7, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, o.CacheSize(), "repeated call should be served from cache")

	// Scores that round to the same cent share an entry.
	o.OptimalNext(question.Intermediate, 0.701, nil)
	assert.Equal(t, 1, o.CacheSize())

	o.OptimalNext(question.Advanced, 0.7, nil)
	assert.Equal(t, 2, o.CacheSize())
}

func TestOptimalNext_CacheIgnoresHistory(t *testing.T) {
	o := optimizer.New()
	a := o.OptimalNext(question.Beginner, 0.5, []float64{0.1, 0.5, 0.9})
	b := o.OptimalNext(question.Beginner, 0.5, []float64{0.9, 0.5, 0.1})
	assert.Equal(t, a, b)
	assert.Equal(t, 1, o.CacheSize())
}

func TestOptimalNext_CacheKeyRoundsHalfToDecimal(t *testing.T) {
	o := optimizer.New()

	// 0.595 is stored just below the half, so it rounds to 0.59 (average)
	// and must not share an entry with 0.6 (good).
	assert.Equal(t, question.Intermediate, o.OptimalNext(question.Beginner, 0.595, nil))
	assert.Equal(t, question.Beginner, o.OptimalNext(question.Beginner, 0.6, nil))
	assert.Equal(t, 2, o.CacheSize())

	// 0.125 is exact; it rounds to even (0.12) and so does 0.12.
	o.ResetCache()
	o.OptimalNext(question.Beginner, 0.125, nil)
	o.OptimalNext(question.Beginner, 0.12, nil)
	assert.Equal(t, 1, o.CacheSize())
	o.OptimalNext(question.Beginner, 0.13, nil)
	assert.Equal(t, 2, o.CacheSize())
}

func TestResetCache(t *testing.T) {
	o := optimizer.New()
	o.OptimalNext(question.Beginner, 0.1, nil)
	o.OptimalNext(question.Beginner, 0.2, nil)
	require.Equal(t, 2, o.CacheSize())

	o.ResetCache()
	assert.Zero(t, o.CacheSize())
}

func TestWithMaxCacheEntries(t *testing.T) {
	o := optimizer.New(optimizer.WithMaxCacheEntries(2))
	o.OptimalNext(question.Beginner, 0.1, nil)
	o.OptimalNext(question.Beginner, 0.2, nil)
	require.Equal(t, 2, o.CacheSize())

	o.OptimalNext(question.Beginner, 0.3, nil)
	assert.Equal(t, 1, o.CacheSize())
}

func TestSequence(t *testing.T) {
	o := optimizer.New(optimizer.WithRand(rand.New(rand.NewPCG(1, 2))))

	seq := o.Sequence(10, question.Intermediate, optimizer.DefaultTargetPerformance)
	require.Len(t, seq, 10)
	assert.Equal(t, question.Intermediate, seq[0])
	for _, d := range seq {
		assert.True(t, d.Valid(), "invalid difficulty %q", d)
	}
}

func TestSequence_Deterministic(t *testing.T) {
	a := optimizer.New(optimizer.WithRand(rand.New(rand.NewPCG(7, 7))))
	b := optimizer.New(optimizer.WithRand(rand.New(rand.NewPCG(7, 7))))

	assert.Equal(t,
		a.Sequence(20, question.Beginner, 0.5),
		b.Sequence(20, question.Beginner, 0.5),
	)
}

func TestSequence_ZeroSpread(t *testing.T) {
	// Without noise the simulated performance stays in the good band, where
	// intermediate is a fixed point.
	o := optimizer.New(optimizer.WithNoiseSpread(0))
	seq := o.Sequence(4, question.Intermediate, 0.7)
	assert.Equal(t, []question.Difficulty{
		question.Intermediate, question.Intermediate, question.Intermediate, question.Intermediate,
	}, seq)
}

func TestSequence_Empty(t *testing.T) {
	o := optimizer.New()
	assert.Empty(t, o.Sequence(0, question.Beginner, 0.7))
	assert.Equal(t, []question.Difficulty{question.Expert}, o.Sequence(1, question.Expert, 0.7))
}
