package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/question"
)

func TestAnalyzeProgression(t *testing.T) {
	o := optimizer.New()
	seq := []question.Difficulty{
		question.Beginner,
		question.Intermediate,
		question.Intermediate,
		question.Advanced,
	}
	scores := []float64{0.9, 0.7, 0.8, 0.6}

	r := o.AnalyzeProgression(seq, scores)
	require.Empty(t, r.Error)

	assert.InDelta(t, 0.75, r.AveragePerformance, 1e-9)
	assert.InDelta(t, 0.0125, r.PerformanceVariance, 1e-9)
	assert.Equal(t, 2, r.DifficultyChanges)
	// efficiencies: [high][0]=0.9, [good][1]=0.9, [high][1]=0.7, [good][2]=0.6
	assert.InDelta(t, 3.1/4, r.OptimalEfficiency, 1e-9)
	// jumps 1+0+1 over 3 deltas
	assert.InDelta(t, 1-2.0/9, r.ProgressionSmoothness, 1e-9)
}

func TestAnalyzeProgression_SingleStep(t *testing.T) {
	r := optimizer.New().AnalyzeProgression([]question.Difficulty{question.Expert}, []float64{0.3})
	require.Empty(t, r.Error)
	assert.Zero(t, r.ProgressionSmoothness)
	assert.Zero(t, r.DifficultyChanges)
	assert.InDelta(t, 0.6, r.OptimalEfficiency, 1e-9)
}

func TestAnalyzeProgression_Malformed(t *testing.T) {
	o := optimizer.New()

	r := o.AnalyzeProgression([]question.Difficulty{question.Beginner, question.Expert}, []float64{0.5})
	assert.Contains(t, r.Error, "length mismatch")
	assert.Zero(t, r.AveragePerformance)

	r = o.AnalyzeProgression(nil, nil)
	assert.Equal(t, "empty sequence", r.Error)
}

func TestRecommend_NoHistory(t *testing.T) {
	rec := optimizer.New().Recommend(nil)
	assert.Equal(t, question.Intermediate, rec.Difficulty)
	assert.Equal(t, 0.5, rec.Confidence)
	assert.Equal(t, "no history", rec.Reasoning)
	assert.Nil(t, rec.PerformanceByDifficulty)
}

func TestRecommend(t *testing.T) {
	o := optimizer.New()
	rec := o.Recommend([]optimizer.Entry{
		{Difficulty: question.Beginner, Score: 0.5},
		{Difficulty: question.Intermediate, Score: 0.8},
		{Difficulty: question.Intermediate, Score: 0.6},
	})

	// intermediate averages 0.7 (good band), which keeps intermediate.
	assert.Equal(t, question.Intermediate, rec.Difficulty)
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
	assert.Equal(t, "Based on 70.0% performance in intermediate questions", rec.Reasoning)
	assert.InDelta(t, 0.5, rec.PerformanceByDifficulty[question.Beginner], 1e-9)
	assert.InDelta(t, 0.7, rec.PerformanceByDifficulty[question.Intermediate], 1e-9)
}

func TestRecommend_ConfidenceCapped(t *testing.T) {
	rec := optimizer.New().Recommend([]optimizer.Entry{{Difficulty: question.Advanced, Score: 1}})
	assert.Equal(t, 0.95, rec.Confidence)
}

func TestRecommend_UsesLastTenEntries(t *testing.T) {
	history := []optimizer.Entry{{Difficulty: question.Expert, Score: 1}}
	for range 10 {
		history = append(history, optimizer.Entry{Difficulty: question.Beginner, Score: 0.3})
	}

	rec := optimizer.New().Recommend(history)
	_, hasExpert := rec.PerformanceByDifficulty[question.Expert]
	assert.False(t, hasExpert, "entries older than the window must be ignored")
	assert.Len(t, rec.PerformanceByDifficulty, 1)
}

func TestRecommend_TieGoesToFirstSeen(t *testing.T) {
	rec := optimizer.New().Recommend([]optimizer.Entry{
		{Difficulty: question.Advanced, Score: 0.5},
		{Difficulty: question.Beginner, Score: 0.5},
	})
	assert.Contains(t, rec.Reasoning, "advanced")
}
