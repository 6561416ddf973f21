package optimizer

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

// Report summarizes how well a difficulty progression matched the learner.
// When the inputs are malformed only Error is set.
type Report struct {
	AveragePerformance    float64 `json:"average_performance"`
	PerformanceVariance   float64 `json:"performance_variance"`
	DifficultyChanges     int     `json:"difficulty_changes"`
	OptimalEfficiency     float64 `json:"optimal_efficiency"`
	ProgressionSmoothness float64 `json:"progression_smoothness"`
	Error                 string  `json:"error,omitempty"`
}

// AnalyzeProgression scores an actual difficulty sequence against the
// performance observed at each step. The two slices must have equal length.
func (o *Optimizer) AnalyzeProgression(seq []question.Difficulty, scores []float64) Report {
	if len(seq) != len(scores) {
		return Report{Error: fmt.Sprintf("sequence and scores length mismatch (%d != %d)", len(seq), len(scores))}
	}
	if len(seq) == 0 {
		return Report{Error: "empty sequence"}
	}

	data := stats.Float64Data(scores)
	mean, err := data.Mean()
	if err != nil {
		return Report{Error: err.Error()}
	}
	variance, err := data.PopulationVariance()
	if err != nil {
		return Report{Error: err.Error()}
	}

	r := Report{
		AveragePerformance:  mean,
		PerformanceVariance: variance,
	}

	levels := make([]int, len(seq))
	var total float64
	for i, d := range seq {
		levels[i] = levelOf(d)
		total += efficiency[performanceCategory(scores[i])][levels[i]]
		if i > 0 && seq[i] != seq[i-1] {
			r.DifficultyChanges++
		}
	}
	r.OptimalEfficiency = total / float64(len(seq))

	if len(levels) > 1 {
		var jumps int
		for i := 1; i < len(levels); i++ {
			jumps += int(math.Abs(float64(levels[i] - levels[i-1])))
		}
		deltas := len(levels) - 1
		r.ProgressionSmoothness = 1.0 - float64(jumps)/float64(3*deltas)
	}
	return r
}

// Entry is one answered question in a learner's history.
type Entry struct {
	Difficulty question.Difficulty `json:"difficulty"`
	Score      float64             `json:"score"`
}

// Recommendation is the outcome of Recommend.
type Recommendation struct {
	Difficulty              question.Difficulty            `json:"recommended_difficulty"`
	Confidence              float64                        `json:"confidence"`
	Reasoning               string                         `json:"reasoning"`
	PerformanceByDifficulty map[question.Difficulty]float64 `json:"performance_by_difficulty,omitempty"`
}

// Recommend picks the difficulty the learner performs best at over the last
// ten entries and asks OptimalNext where to go from there. Ties go to the
// difficulty seen first in that window.
func (o *Optimizer) Recommend(history []Entry) Recommendation {
	if len(history) == 0 {
		return Recommendation{
			Difficulty: question.Intermediate,
			Confidence: defaultConfidence,
			Reasoning:  noHistoryReasoning,
		}
	}

	if len(history) > recommendWindow {
		history = history[len(history)-recommendWindow:]
	}

	var order []question.Difficulty
	grouped := make(map[question.Difficulty]stats.Float64Data)
	for _, e := range history {
		if _, ok := grouped[e.Difficulty]; !ok {
			order = append(order, e.Difficulty)
		}
		grouped[e.Difficulty] = append(grouped[e.Difficulty], e.Score)
	}

	averages := make(map[question.Difficulty]float64, len(grouped))
	for d, scores := range grouped {
		avg, _ := scores.Mean()
		averages[d] = avg
	}

	best := order[0]
	for _, d := range order[1:] {
		if averages[d] > averages[best] {
			best = d
		}
	}
	bestScore := averages[best]

	return Recommendation{
		Difficulty:              o.OptimalNext(best, bestScore, nil),
		Confidence:              math.Min(maxConfidence, bestScore+confidenceBoost),
		Reasoning:               fmt.Sprintf("Based on %.1f%% performance in %s questions", bestScore*100, best),
		PerformanceByDifficulty: averages,
	}
}

func levelOf(d question.Difficulty) int {
	if l := d.Level(); l >= 0 {
		return l
	}
	return question.Intermediate.Level()
}
