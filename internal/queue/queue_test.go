package queue_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/question"
	"github.com/p-n-ai/pai-quiz/internal/queue"
)

type stubRecommender struct {
	target  question.Difficulty
	calls   int
	current question.Difficulty
	score   float64
}

func (s *stubRecommender) OptimalNext(current question.Difficulty, score float64, _ []float64) question.Difficulty {
	s.calls++
	s.current = current
	s.score = score
	return s.target
}

func q(id string, d question.Difficulty) question.Question {
	return question.Question{ID: id, Text: id, Type: question.ShortAnswer, Subject: "Math", Topic: "T", Difficulty: d, CorrectAnswer: "x"}
}

func ids(qs []question.Question) []string {
	out := make([]string, len(qs))
	for i, item := range qs {
		out[i] = item.ID
	}
	return out
}

func drain(t *testing.T, qu *queue.Queue) []string {
	t.Helper()
	var out []string
	for {
		item, ok := qu.Next()
		if !ok {
			return out
		}
		out = append(out, item.ID)
	}
}

func TestAddMany_PreservesOrder(t *testing.T) {
	qu := queue.New(nil, false)
	qu.AddMany([]question.Question{q("a", question.Beginner), q("b", question.Expert)}, false)

	assert.Equal(t, []string{"a", "b"}, ids(qu.PeekMany(5)))
	stats := qu.Stats()
	assert.Equal(t, 2, stats.TotalAdded)
	assert.Equal(t, 2, stats.CurrentSize)
	assert.Equal(t, 1, stats.DifficultyDistribution[question.Beginner])
	assert.Equal(t, 1, stats.DifficultyDistribution[question.Expert])
	assert.Equal(t, 0, stats.DifficultyDistribution[question.Advanced])
}

func TestAddMany_RandomizeLeavesInputAlone(t *testing.T) {
	input := []question.Question{
		q("a", question.Beginner), q("b", question.Beginner), q("c", question.Beginner),
		q("d", question.Beginner), q("e", question.Beginner), q("f", question.Beginner),
	}
	qu := queue.New(nil, false, queue.WithRand(rand.New(rand.NewPCG(3, 4))))
	qu.AddMany(input, true)

	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, ids(input))
	assert.ElementsMatch(t, ids(input), ids(qu.PeekMany(10)))
}

func TestAddPriority(t *testing.T) {
	qu := queue.New(nil, false)
	qu.AddMany([]question.Question{q("a", question.Beginner), q("b", question.Beginner)}, false)

	qu.AddPriority(q("urgent", question.Expert), queue.PriorityHigh)
	front, ok := qu.Peek()
	require.True(t, ok)
	assert.Equal(t, "urgent", front.ID)

	qu.AddPriority(q("later", question.Expert), "medium")
	qu.AddPriority(q("whatever", question.Expert), "HIGH")
	assert.Equal(t, []string{"urgent", "a", "b", "later", "whatever"}, ids(qu.PeekMany(10)))
	assert.Equal(t, 5, qu.Stats().TotalAdded)
}

func TestInsertAt(t *testing.T) {
	tests := []struct {
		name     string
		position int
		want     []string
	}{
		{"front", 0, []string{"x", "a", "b"}},
		{"middle", 1, []string{"a", "x", "b"}},
		{"end", 2, []string{"a", "b", "x"}},
		{"negative clamps to end", -1, []string{"a", "b", "x"}},
		{"beyond clamps to end", 7, []string{"a", "b", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qu := queue.New(nil, false)
			qu.AddMany([]question.Question{q("a", question.Beginner), q("b", question.Beginner)}, false)
			qu.InsertAt(q("x", question.Advanced), tt.position)
			assert.Equal(t, tt.want, ids(qu.PeekMany(10)))
			assert.Equal(t, 3, qu.Stats().CurrentSize)
		})
	}
}

func TestNext_Empty(t *testing.T) {
	qu := queue.New(nil, true)
	_, ok := qu.Next()
	assert.False(t, ok)
	assert.Zero(t, qu.Stats().TotalServed)
}

func TestNext_UpdatesCounters(t *testing.T) {
	qu := queue.New(nil, false)
	qu.AddMany([]question.Question{q("a", question.Beginner), q("b", question.Beginner)}, false)

	item, ok := qu.Next()
	require.True(t, ok)
	assert.Equal(t, "a", item.ID)
	assert.Equal(t, 1, qu.Stats().TotalServed)
	assert.Equal(t, 1, qu.Stats().CurrentSize)
}

func TestPeek_DoesNotMutate(t *testing.T) {
	qu := queue.New(nil, false)
	qu.AddMany([]question.Question{q("a", question.Beginner), q("b", question.Advanced)}, false)
	before := qu.Status()

	qu.Peek()
	peeked := qu.PeekMany(1)
	peeked[0].ID = "changed"
	assert.Empty(t, qu.PeekMany(0))
	assert.Equal(t, []string{"a", "b"}, ids(qu.PeekMany(99)))

	assert.Equal(t, before, qu.Status())
}

func TestRecordAnswer_TrimsHistory(t *testing.T) {
	qu := queue.New(nil, false)
	for i := range 12 {
		qu.RecordAnswer(q("x", question.Beginner), i%2 == 0, 1.5)
	}

	history := qu.History()
	require.Len(t, history, 10)
	// answers 2..11: even indices are correct
	assert.Equal(t, []float64{1, 0, 1, 0, 1, 0, 1, 0, 1, 0}, history)
	assert.Len(t, qu.Answered(), 12)
	assert.Equal(t, question.Beginner, qu.Answered()[0].Difficulty)
	assert.Equal(t, 1.5, qu.Answered()[0].TimeTaken)
}

func TestNext_AdaptiveStablePartition(t *testing.T) {
	rec := &stubRecommender{target: question.Beginner}
	qu := queue.New(rec, true)
	qu.AddMany([]question.Question{
		q("b1", question.Beginner),
		q("a1", question.Advanced),
		q("i1", question.Intermediate),
		q("b2", question.Beginner),
	}, false)

	for range 3 {
		qu.RecordAnswer(q("done", question.Advanced), false, 3)
	}

	item, ok := qu.Next()
	require.True(t, ok)
	assert.Equal(t, "b1", item.ID)
	assert.Equal(t, []string{"b2", "a1", "i1"}, ids(qu.PeekMany(10)))

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, question.Advanced, rec.current)
	assert.Equal(t, 0.0, rec.score)
}

func TestNext_AdaptiveNeedsThreeSamples(t *testing.T) {
	rec := &stubRecommender{target: question.Expert}
	qu := queue.New(rec, true)
	qu.AddMany([]question.Question{q("b", question.Beginner), q("e", question.Expert)}, false)
	qu.RecordAnswer(q("x", question.Beginner), true, 1)
	qu.RecordAnswer(q("y", question.Beginner), true, 1)

	item, _ := qu.Next()
	assert.Equal(t, "b", item.ID)
	assert.Zero(t, rec.calls)
}

func TestNext_NonAdaptiveNeverReorders(t *testing.T) {
	rec := &stubRecommender{target: question.Expert}
	qu := queue.New(rec, false)
	qu.AddMany([]question.Question{q("b", question.Beginner), q("e", question.Expert)}, false)
	for range 3 {
		qu.RecordAnswer(q("x", question.Beginner), true, 1)
	}

	assert.Equal(t, []string{"b", "e"}, drain(t, qu))
	assert.Zero(t, rec.calls)
}

func TestNext_AdaptiveWithOptimizer(t *testing.T) {
	// Perfect scores on beginner questions keep the optimizer on beginner.
	qu := queue.New(optimizer.New(), true)
	qu.AddMany([]question.Question{
		q("b1", question.Beginner),
		q("a1", question.Advanced),
		q("i1", question.Intermediate),
		q("b2", question.Beginner),
	}, false)
	for range 3 {
		qu.RecordAnswer(q("warmup", question.Beginner), true, 2)
	}

	item, ok := qu.Next()
	require.True(t, ok)
	assert.Equal(t, "b1", item.ID)
	assert.Equal(t, []string{"b2", "a1", "i1"}, ids(qu.PeekMany(10)))
}

func TestNext_InsertionOrderWithoutHistory(t *testing.T) {
	qu := queue.New(optimizer.New(), true)
	qu.AddMany([]question.Question{
		q("beginner", question.Beginner),
		q("intermediate", question.Intermediate),
		q("advanced", question.Advanced),
	}, false)

	assert.Equal(t, []string{"beginner", "intermediate", "advanced"}, drain(t, qu))
}

func TestStatus(t *testing.T) {
	qu := queue.New(&stubRecommender{target: question.Beginner}, true)
	for i := range 7 {
		qu.AddMany([]question.Question{q("q", question.FromLevel(i%4))}, false)
	}
	for i := range 6 {
		qu.RecordAnswer(q("x", question.Beginner), i < 3, 1)
	}

	st := qu.Status()
	assert.Equal(t, 7, st.QueueSize)
	assert.True(t, st.AdaptiveMode)
	assert.Equal(t, []float64{1, 1, 0, 0, 0}, st.PerformanceTrend)
	assert.Equal(t, []question.Difficulty{
		question.Beginner, question.Intermediate, question.Advanced, question.Expert, question.Beginner,
	}, st.NextDifficulties)
	assert.Equal(t, 7, st.Stats.TotalAdded)
}

func TestClear(t *testing.T) {
	qu := queue.New(&stubRecommender{target: question.Beginner}, true)
	qu.AddMany([]question.Question{q("a", question.Beginner), q("b", question.Expert)}, false)
	qu.Next()
	qu.RecordAnswer(q("a", question.Beginner), true, 1)

	qu.Clear()

	st := qu.Status()
	assert.Zero(t, st.Stats.TotalAdded)
	assert.Zero(t, st.Stats.TotalServed)
	assert.Zero(t, st.Stats.CurrentSize)
	for _, d := range question.Difficulties {
		assert.Zero(t, st.Stats.DifficultyDistribution[d])
	}
	assert.Empty(t, st.PerformanceTrend)
	assert.Empty(t, qu.History())
	assert.Empty(t, qu.Answered())
	for _, n := range []int{0, 1, 5} {
		assert.Empty(t, qu.PeekMany(n))
	}
}

func TestShuffle_PreservesElements(t *testing.T) {
	qu := queue.New(nil, false, queue.WithRand(rand.New(rand.NewPCG(9, 9))))
	items := []question.Question{
		q("a", question.Beginner), q("b", question.Intermediate), q("c", question.Advanced),
		q("d", question.Expert), q("e", question.Beginner),
	}
	qu.AddMany(items, false)
	before := qu.Stats()

	qu.Shuffle()

	assert.Equal(t, 5, qu.Len())
	assert.ElementsMatch(t, ids(items), ids(qu.PeekMany(10)))
	assert.Equal(t, before, qu.Stats())
}
