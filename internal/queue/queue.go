// Package queue implements the per-session sequencing queue: a deque of
// pending questions that biases itself toward the difficulty the optimizer
// currently recommends.
//
// A Queue is not safe for concurrent use; callers serialize access per session.
package queue

import (
	"math/rand/v2"
	"slices"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

const (
	// PriorityHigh places a question at the front of the queue.
	PriorityHigh = "high"

	historyLimit   = 10
	adaptiveWindow = 3
	statusTrend    = 5
	statusUpcoming = 5
)

// Recommender picks the next difficulty from recent performance.
type Recommender interface {
	OptimalNext(current question.Difficulty, score float64, history []float64) question.Difficulty
}

// AnsweredRecord is one entry in the answered log.
type AnsweredRecord struct {
	Question   question.Question   `json:"question"`
	IsCorrect  bool                `json:"is_correct"`
	TimeTaken  float64             `json:"time_taken"`
	Difficulty question.Difficulty `json:"difficulty"`
}

// Stats holds the running counters.
type Stats struct {
	TotalAdded             int                         `json:"total_added"`
	TotalServed            int                         `json:"total_served"`
	CurrentSize            int                         `json:"current_size"`
	DifficultyDistribution map[question.Difficulty]int `json:"difficulty_distribution"`
}

func newStats() Stats {
	return Stats{
		DifficultyDistribution: map[question.Difficulty]int{
			question.Beginner:     0,
			question.Intermediate: 0,
			question.Advanced:     0,
			question.Expert:       0,
		},
	}
}

func (s Stats) clone() Stats {
	out := s
	out.DifficultyDistribution = make(map[question.Difficulty]int, len(s.DifficultyDistribution))
	for k, v := range s.DifficultyDistribution {
		out.DifficultyDistribution[k] = v
	}
	return out
}

// Status is a read-only diagnostic snapshot.
type Status struct {
	QueueSize        int                   `json:"queue_size"`
	PerformanceTrend []float64             `json:"performance_trend"`
	AdaptiveMode     bool                  `json:"adaptive_mode"`
	Stats            Stats                 `json:"stats"`
	NextDifficulties []question.Difficulty `json:"next_difficulties"`
}

// Option configures a Queue.
type Option func(*Queue)

// WithRand sets the random source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(q *Queue) {
		q.rng = r
	}
}

// Queue is an ordered sequence of pending questions. Index 0 is served next.
type Queue struct {
	items       []question.Question
	answered    []AnsweredRecord
	history     []float64
	adaptive    bool
	stats       Stats
	recommender Recommender
	rng         *rand.Rand
}

// New creates a queue. Adaptive reordering needs a non-nil recommender.
func New(recommender Recommender, adaptive bool, opts ...Option) *Queue {
	q := &Queue{
		adaptive:    adaptive && recommender != nil,
		recommender: recommender,
		stats:       newStats(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.rng == nil {
		q.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return q
}

// AddMany appends questions to the tail, optionally in shuffled order.
// The caller's slice is never reordered.
func (q *Queue) AddMany(questions []question.Question, randomize bool) {
	batch := slices.Clone(questions)
	if randomize {
		q.rng.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
	}
	for _, item := range batch {
		q.items = append(q.items, item)
		q.track(item)
	}
}

// AddPriority puts item at the front when priority is "high", otherwise at the tail.
func (q *Queue) AddPriority(item question.Question, priority string) {
	if priority == PriorityHigh {
		q.items = slices.Insert(q.items, 0, item)
	} else {
		q.items = append(q.items, item)
	}
	q.track(item)
}

// InsertAt inserts item at position. Positions outside [0, Len()] append.
func (q *Queue) InsertAt(item question.Question, position int) {
	if position < 0 || position > len(q.items) {
		q.items = append(q.items, item)
	} else {
		q.items = slices.Insert(q.items, position, item)
	}
	q.track(item)
}

func (q *Queue) track(item question.Question) {
	q.stats.TotalAdded++
	q.stats.CurrentSize = len(q.items)
	if item.Difficulty.Valid() {
		q.stats.DifficultyDistribution[item.Difficulty]++
	}
}

// Next pops the front question. In adaptive mode with at least three
// performance samples the queue is reordered first. ok is false when empty.
func (q *Queue) Next() (item question.Question, ok bool) {
	if len(q.items) == 0 {
		return question.Question{}, false
	}
	if q.adaptive && len(q.history) >= adaptiveWindow {
		q.reorder()
	}
	item = q.items[0]
	q.items[0] = question.Question{}
	q.items = q.items[1:]
	q.stats.TotalServed++
	q.stats.CurrentSize = len(q.items)
	return item, true
}

// Peek returns the front question without removing it.
func (q *Queue) Peek() (question.Question, bool) {
	if len(q.items) == 0 {
		return question.Question{}, false
	}
	return q.items[0], true
}

// PeekMany returns up to n questions from the front.
func (q *Queue) PeekMany(n int) []question.Question {
	if n <= 0 {
		return []question.Question{}
	}
	n = min(n, len(q.items))
	return slices.Clone(q.items[:n])
}

// RecordAnswer logs an answer and updates the rolling performance history.
func (q *Queue) RecordAnswer(item question.Question, isCorrect bool, timeTaken float64) {
	q.answered = append(q.answered, AnsweredRecord{
		Question:   item,
		IsCorrect:  isCorrect,
		TimeTaken:  timeTaken,
		Difficulty: item.Difficulty,
	})

	score := 0.0
	if isCorrect {
		score = 1.0
	}
	q.history = append(q.history, score)
	if len(q.history) > historyLimit {
		q.history = slices.Clone(q.history[len(q.history)-historyLimit:])
	}
}

// reorder moves the questions matching the recommended difficulty to the
// front, keeping relative order within both groups.
func (q *Queue) reorder() {
	recent := q.history[len(q.history)-adaptiveWindow:]
	var sum float64
	for _, v := range recent {
		sum += v
	}
	mean := sum / float64(len(recent))

	current := question.Intermediate
	if n := len(q.answered); n > 0 {
		current = q.answered[n-1].Difficulty
	}

	target := q.recommender.OptimalNext(current, mean, slices.Clone(q.history))

	matching := make([]question.Question, 0, len(q.items))
	var others []question.Question
	for _, item := range q.items {
		if item.Difficulty == target {
			matching = append(matching, item)
		} else {
			others = append(others, item)
		}
	}
	q.items = append(matching, others...)
}

// Status returns a diagnostic snapshot.
func (q *Queue) Status() Status {
	trend := q.history
	if len(trend) > statusTrend {
		trend = trend[len(trend)-statusTrend:]
	}

	upcoming := make([]question.Difficulty, 0, statusUpcoming)
	for _, item := range q.items[:min(statusUpcoming, len(q.items))] {
		upcoming = append(upcoming, item.Difficulty)
	}

	return Status{
		QueueSize:        len(q.items),
		PerformanceTrend: append([]float64{}, trend...),
		AdaptiveMode:     q.adaptive,
		Stats:            q.stats.clone(),
		NextDifficulties: upcoming,
	}
}

// Stats returns a copy of the running counters.
func (q *Queue) Stats() Stats {
	return q.stats.clone()
}

// Len returns the number of pending questions.
func (q *Queue) Len() int {
	return len(q.items)
}

// History returns a copy of the rolling performance history.
func (q *Queue) History() []float64 {
	return append([]float64{}, q.history...)
}

// Answered returns a copy of the answered log.
func (q *Queue) Answered() []AnsweredRecord {
	return slices.Clone(q.answered)
}

// Adaptive reports whether adaptive reordering is enabled.
func (q *Queue) Adaptive() bool {
	return q.adaptive
}

// Clear empties the queue, the answered log and the history, and zeroes the counters.
func (q *Queue) Clear() {
	q.items = nil
	q.answered = nil
	q.history = nil
	q.stats = newStats()
}

// Shuffle permutes the pending questions in place.
func (q *Queue) Shuffle() {
	q.rng.Shuffle(len(q.items), func(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] })
}
