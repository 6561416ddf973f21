package session

import (
	"github.com/montanaflynn/stats"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

const noAnswersMsg = "No answers submitted yet"

// Stats summarizes a session's answers.
func (m *Manager) Stats(id string) (Stats, error) {
	s, err := m.get(id)
	if err != nil {
		return Stats{}, err
	}

	s.mu.Lock()
	answered := s.queue.Answered()
	out := Stats{
		PerformanceTrend: s.queue.History(),
		QueueStatus:      s.queue.Status(),
	}
	s.mu.Unlock()

	if len(answered) == 0 {
		out.Message = noAnswersMsg
		return out, nil
	}

	out.TotalQuestions = len(answered)
	out.DifficultyBreakdown = make(map[question.Difficulty]Breakdown)
	topics := make(map[string]Breakdown)
	times := make(stats.Float64Data, 0, len(answered))

	for _, a := range answered {
		if a.IsCorrect {
			out.CorrectAnswers++
		}
		times = append(times, a.TimeTaken)

		b := out.DifficultyBreakdown[a.Difficulty]
		b.Total++
		t := topics[a.Question.Topic]
		t.Total++
		if a.IsCorrect {
			b.Correct++
			t.Correct++
		}
		out.DifficultyBreakdown[a.Difficulty] = b
		topics[a.Question.Topic] = t
	}

	out.IncorrectAnswers = out.TotalQuestions - out.CorrectAnswers
	out.Accuracy = float64(out.CorrectAnswers) / float64(out.TotalQuestions)
	out.AverageTimePerQuestion, _ = times.Mean()

	out.TopicPerformance = make(map[string]float64, len(topics))
	for topic, t := range topics {
		out.TopicPerformance[topic] = float64(t.Correct) / float64(t.Total)
	}
	return out, nil
}
