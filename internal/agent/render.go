package agent

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-quiz/internal/chat"
	"github.com/p-n-ai/pai-quiz/internal/question"
	"github.com/p-n-ai/pai-quiz/internal/session"
)

const helpText = `Commands:
/quiz [subject] - start a quiz, e.g. /quiz Science
/next - show the next question
/stats - your results so far
/end - stop the current quiz
/help - this list

Answer multiple choice questions with the option number or its text.`

func welcome(msg chat.InboundMessage) string {
	name := msg.FirstName
	if name == "" {
		name = msg.Username
	}
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`Hi %s!

I run short quizzes that adapt to how you are doing: get questions right and they get harder, miss a few and they ease off.

Send /quiz to start, or /quiz followed by a subject.`, name)
}

// renderQuestion formats a served question. remaining < 0 omits the counter.
func renderQuestion(q question.Public, n, remaining int) chat.OutboundMessage {
	var b strings.Builder
	if n > 0 {
		fmt.Fprintf(&b, "Question %d", n)
	} else {
		b.WriteString("Question")
	}
	fmt.Fprintf(&b, " (%s", q.Difficulty)
	if q.Topic != "" {
		fmt.Fprintf(&b, ", %s", q.Topic)
	}
	b.WriteString(")\n\n")
	b.WriteString(q.Text)

	var choices []string
	switch q.Type {
	case question.MultipleChoice:
		b.WriteString("\n")
		for i, o := range q.Options {
			label := fmt.Sprintf("%d. %s", i+1, o.Text)
			b.WriteString("\n" + label)
			choices = append(choices, label)
		}
	case question.TrueFalse:
		choices = []string{"True", "False"}
	}

	if remaining > 0 {
		fmt.Fprintf(&b, "\n\n%d more after this one.", remaining)
	}
	return chat.OutboundMessage{Text: b.String(), Choices: choices}
}

func renderFeedback(fb session.Feedback) string {
	var b strings.Builder
	if fb.IsCorrect {
		b.WriteString("Correct!")
	} else {
		b.WriteString("Not quite.")
		switch {
		case fb.CorrectOption != "":
			fmt.Fprintf(&b, " The answer is: %s", fb.CorrectOption)
		case fb.CorrectAnswer != "":
			fmt.Fprintf(&b, " The answer is: %s", fb.CorrectAnswer)
		}
	}
	if fb.Explanation != "" {
		b.WriteString("\n" + fb.Explanation)
	}
	return b.String()
}

func renderStats(st session.Stats) string {
	if st.TotalQuestions == 0 {
		return "No answers yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Answered: %d\nCorrect: %d (%.0f%%)\nAverage time: %.1fs",
		st.TotalQuestions, st.CorrectAnswers, st.Accuracy*100, st.AverageTimePerQuestion)

	var parts []string
	for _, d := range question.Difficulties {
		if bd, ok := st.DifficultyBreakdown[d]; ok {
			parts = append(parts, fmt.Sprintf("%s %d/%d", d, bd.Correct, bd.Total))
		}
	}
	if len(parts) > 0 {
		b.WriteString("\nBy level: " + strings.Join(parts, ", "))
	}
	return b.String()
}
