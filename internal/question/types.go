// Package question defines the question record shared by the index, the
// sequencing queue and the hosting service.
package question

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Difficulty is an ordered difficulty level.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Expert       Difficulty = "expert"
)

// Difficulties lists every level in ascending order.
var Difficulties = []Difficulty{Beginner, Intermediate, Advanced, Expert}

// Level returns the ordinal of d (0..3), or -1 for an unknown value.
func (d Difficulty) Level() int {
	switch d {
	case Beginner:
		return 0
	case Intermediate:
		return 1
	case Advanced:
		return 2
	case Expert:
		return 3
	default:
		return -1
	}
}

// Valid reports whether d is one of the four known levels.
func (d Difficulty) Valid() bool {
	return d.Level() >= 0
}

func (d Difficulty) String() string {
	return string(d)
}

// FromLevel returns the difficulty for an ordinal. Out-of-range ordinals are
// clamped to the nearest level.
func FromLevel(level int) Difficulty {
	if level < 0 {
		level = 0
	}
	if level >= len(Difficulties) {
		level = len(Difficulties) - 1
	}
	return Difficulties[level]
}

// ParseDifficulty parses a difficulty name case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// Type is the answer format of a question.
type Type string

const (
	MultipleChoice Type = "multiple_choice"
	TrueFalse      Type = "true_false"
	ShortAnswer    Type = "short_answer"
	FillBlank      Type = "fill_blank"
)

// Types lists every question type.
var Types = []Type{MultipleChoice, TrueFalse, ShortAnswer, FillBlank}

// Valid reports whether t is a known question type.
func (t Type) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, FillBlank:
		return true
	}
	return false
}

// ParseType parses a question type name.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown question type %q", s)
	}
	return t, nil
}

// Option is a multiple-choice option.
type Option struct {
	Text        string `json:"text" yaml:"text"`
	IsCorrect   bool   `json:"is_correct" yaml:"is_correct"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Question is a single quiz question.
type Question struct {
	ID            string     `json:"id" yaml:"id"`
	Text          string     `json:"text" yaml:"text"`
	Type          Type       `json:"question_type" yaml:"type"`
	Subject       string     `json:"subject" yaml:"subject"`
	Topic         string     `json:"topic" yaml:"topic"`
	Difficulty    Difficulty `json:"difficulty" yaml:"difficulty"`
	Options       []Option   `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer string     `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty"`
	Explanation   string     `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Tags          []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	SourceText    string     `json:"source_text,omitempty" yaml:"source_text,omitempty"`
	AIGenerated   bool       `json:"ai_generated" yaml:"ai_generated,omitempty"`
	CreatedBy     string     `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at" yaml:"-"`
	UsageCount    int        `json:"usage_count" yaml:"-"`
	SuccessRate   float64    `json:"success_rate" yaml:"-"`
}

// NewID returns a fresh question identifier.
func NewID() string {
	return uuid.NewString()
}

// CorrectOption returns the first option flagged correct.
func (q Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o, true
		}
	}
	return Option{}, false
}

// Validate checks the fields every component relies on.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is required")
	}
	if !q.Type.Valid() {
		return fmt.Errorf("invalid question type %q", q.Type)
	}
	if q.Subject == "" || q.Topic == "" {
		return fmt.Errorf("subject and topic are required")
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("invalid difficulty %q", q.Difficulty)
	}
	if q.Type == MultipleChoice {
		if len(q.Options) < 2 {
			return fmt.Errorf("multiple choice question needs at least 2 options")
		}
		if _, ok := q.CorrectOption(); !ok {
			return fmt.Errorf("multiple choice question has no correct option")
		}
	} else if strings.TrimSpace(q.CorrectAnswer) == "" {
		return fmt.Errorf("correct_answer is required for %s questions", q.Type)
	}
	return nil
}

// PublicOption is an option without its correctness flag.
type PublicOption struct {
	Text string `json:"text"`
}

// Public is the learner-facing view of a question.
type Public struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Type       Type           `json:"question_type"`
	Options    []PublicOption `json:"options,omitempty"`
	Difficulty Difficulty     `json:"difficulty"`
	Topic      string         `json:"topic"`
}

// Public strips answers and explanations.
func (q Question) Public() Public {
	p := Public{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Type,
		Difficulty: q.Difficulty,
		Topic:      q.Topic,
	}
	for _, o := range q.Options {
		p.Options = append(p.Options, PublicOption{Text: o.Text})
	}
	return p
}

// Filter selects questions from a repository.
type Filter struct {
	Subject     string     `json:"subject,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	Type        Type       `json:"question_type,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	AIGenerated *bool      `json:"ai_generated,omitempty"`
	Limit       int        `json:"limit,omitempty"`
}

// Match reports whether q satisfies every set field of f. Limit is ignored.
func (f Filter) Match(q Question) bool {
	if f.Subject != "" && q.Subject != f.Subject {
		return false
	}
	if f.Topic != "" && q.Topic != f.Topic {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	if f.Type != "" && q.Type != f.Type {
		return false
	}
	if f.AIGenerated != nil && q.AIGenerated != *f.AIGenerated {
		return false
	}
	for _, tag := range f.Tags {
		found := false
		for _, have := range q.Tags {
			if strings.EqualFold(have, tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts any casing of a difficulty name.
func (d *Difficulty) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = ""
		return nil
	}
	parsed, err := ParseDifficulty(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
