package generator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

const sourceExcerptLen = 200

type aiOption struct {
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation"`
}

type aiReply struct {
	Question      string     `json:"question"`
	Options       []aiOption `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	Explanation   string     `json:"explanation"`
	Difficulty    string     `json:"difficulty"`
	Subject       string     `json:"subject"`
	Topic         string     `json:"topic"`
}

// parseReply pulls the outermost JSON object out of a model reply, checks it
// against the schema for t and turns it into a question.
func parseReply(content string, t question.Type, source, subject string) (question.Question, error) {
	match := jsonObject.FindString(content)
	if match == "" {
		return question.Question{}, fmt.Errorf("no JSON object in reply")
	}

	var doc any
	if err := json.Unmarshal([]byte(match), &doc); err != nil {
		return question.Question{}, fmt.Errorf("decode reply: %w", err)
	}
	if err := validate(t, doc); err != nil {
		return question.Question{}, err
	}

	var reply aiReply
	if err := json.Unmarshal([]byte(match), &reply); err != nil {
		return question.Question{}, fmt.Errorf("decode reply: %w", err)
	}

	difficulty, err := question.ParseDifficulty(reply.Difficulty)
	if err != nil {
		difficulty = question.Intermediate
	}
	if reply.Subject == "" {
		reply.Subject = subject
	}
	if reply.Topic == "" {
		reply.Topic = "General"
	}

	q := question.Question{
		ID:          question.NewID(),
		Text:        strings.TrimSpace(reply.Question),
		Type:        t,
		Subject:     reply.Subject,
		Topic:       reply.Topic,
		Difficulty:  difficulty,
		Explanation: reply.Explanation,
		SourceText:  excerpt(source),
		AIGenerated: true,
		CreatedAt:   time.Now(),
	}
	if t == question.MultipleChoice {
		for _, o := range reply.Options {
			q.Options = append(q.Options, question.Option{
				Text:        o.Text,
				IsCorrect:   o.IsCorrect,
				Explanation: o.Explanation,
			})
		}
	} else {
		q.CorrectAnswer = strings.TrimSpace(reply.CorrectAnswer)
	}

	if err := q.Validate(); err != nil {
		return question.Question{}, fmt.Errorf("generated question rejected: %w", err)
	}
	return q, nil
}

// excerpt keeps the first 200 characters of the source material.
func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= sourceExcerptLen {
		return s
	}
	return string(r[:sourceExcerptLen]) + "..."
}
