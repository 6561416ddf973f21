package generator

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const systemPrompt = "You are an experienced teacher who writes clear, accurate quiz questions."

var prompts = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type promptData struct {
	Text       string
	Subject    string
	Difficulty question.Difficulty
	TypeLabel  string
}

func templateFor(t question.Type) string {
	switch t {
	case question.TrueFalse:
		return "true_false.tmpl"
	case question.ShortAnswer, question.FillBlank:
		return "open_answer.tmpl"
	default:
		return "multiple_choice.tmpl"
	}
}

func renderPrompt(chunk string, t question.Type, subject string, difficulty question.Difficulty) (string, error) {
	data := promptData{
		Text:       chunk,
		Subject:    subject,
		Difficulty: difficulty,
		TypeLabel:  "short-answer",
	}
	if t == question.FillBlank {
		data.TypeLabel = "fill-in-the-blank"
	}

	var sb strings.Builder
	if err := prompts.ExecuteTemplate(&sb, templateFor(t), data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t, err)
	}
	return sb.String(), nil
}
