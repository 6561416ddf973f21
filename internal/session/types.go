// Package session hosts quiz sessions: each session owns a sequencing queue
// fed from the shared question index or from freshly generated questions.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/question"
	"github.com/p-n-ai/pai-quiz/internal/queue"
)

const (
	DefaultSubject       = "General"
	DefaultQuestionCount = 5
	MaxQuestionCount     = 50
)

var (
	ErrSessionNotFound      = errors.New("quiz session not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrInvalidConfiguration = errors.New("invalid quiz configuration")
)

// Configuration controls how a quiz is assembled and served.
type Configuration struct {
	Subject            string                `json:"subject"`
	Topics             []string              `json:"topics,omitempty"`
	DifficultyLevels   []question.Difficulty `json:"difficulty_levels,omitempty"`
	QuestionCount      int                   `json:"question_count"`
	TimeLimit          int                   `json:"time_limit,omitempty"` // minutes
	RandomizeQuestions bool                  `json:"randomize_questions"`
	RandomizeOptions   bool                  `json:"randomize_options"`
	AdaptiveDifficulty bool                  `json:"adaptive_difficulty"`
}

// DefaultConfiguration returns the settings used when a request leaves them out.
func DefaultConfiguration() Configuration {
	return Configuration{
		Subject:            DefaultSubject,
		QuestionCount:      DefaultQuestionCount,
		RandomizeQuestions: true,
		RandomizeOptions:   true,
		AdaptiveDifficulty: true,
	}
}

// Validate fills an empty subject and checks bounds. Errors wrap ErrInvalidConfiguration.
func (c *Configuration) Validate() error {
	if c.Subject == "" {
		c.Subject = DefaultSubject
	}
	if c.QuestionCount == 0 {
		c.QuestionCount = DefaultQuestionCount
	}
	if c.QuestionCount < 1 || c.QuestionCount > MaxQuestionCount {
		return fmt.Errorf("%w: question_count must be between 1 and %d, got %d",
			ErrInvalidConfiguration, MaxQuestionCount, c.QuestionCount)
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("%w: time_limit must not be negative", ErrInvalidConfiguration)
	}
	for _, d := range c.DifficultyLevels {
		if !d.Valid() {
			return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidConfiguration, d)
		}
	}
	return nil
}

// CreateRequest asks for a new quiz.
type CreateRequest struct {
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	SourceText    string        `json:"source_text,omitempty"`
	Configuration Configuration `json:"configuration"`
	CreatedBy     string        `json:"created_by,omitempty"`
}

// Quiz describes a created session. Questions are learner-facing views.
type Quiz struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Configuration Configuration     `json:"configuration"`
	CreatedBy     string            `json:"created_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Questions     []question.Public `json:"questions"`
}

// NextResult is the outcome of Next. Question is nil once the queue is empty.
type NextResult struct {
	Question    *question.Public `json:"question"`
	Remaining   int              `json:"remaining_questions"`
	Completed   bool             `json:"completed"`
	Message     string           `json:"message,omitempty"`
	QueueStatus queue.Status     `json:"queue_status"`
}

// SubmitRequest is one submitted answer. TimeTaken is in seconds.
type SubmitRequest struct {
	QuestionID string          `json:"question_id"`
	Answer     question.Answer `json:"answer"`
	TimeTaken  float64         `json:"time_taken"`
}

// Feedback reports the evaluation of a submitted answer.
type Feedback struct {
	IsCorrect     bool         `json:"is_correct"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	CorrectOption string       `json:"correct_option,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	TimeTaken     float64      `json:"time_taken"`
	QueueStatus   queue.Status `json:"queue_status"`
}

// Breakdown counts answers within one difficulty.
type Breakdown struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Stats summarizes a session's answered questions.
type Stats struct {
	TotalQuestions         int                               `json:"total_questions"`
	CorrectAnswers         int                               `json:"correct_answers"`
	IncorrectAnswers       int                               `json:"incorrect_answers"`
	Accuracy               float64                           `json:"accuracy"`
	AverageTimePerQuestion float64                           `json:"average_time_per_question"`
	DifficultyBreakdown    map[question.Difficulty]Breakdown `json:"difficulty_breakdown,omitempty"`
	TopicPerformance       map[string]float64                `json:"topic_performance,omitempty"`
	PerformanceTrend       []float64                         `json:"performance_trend"`
	QueueStatus            queue.Status                      `json:"queue_status"`
	Message                string                            `json:"message,omitempty"`
}
