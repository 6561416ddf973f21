package bank

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

// Columns is the header row every bank sheet must start with.
var Columns = []string{"topic", "difficulty", "type", "text", "options", "correct_answer", "explanation", "tags"}

// loadWorkbook reads one question per row. The sheet name is the subject.
// Multiple-choice options are separated by "|" and the option equal to
// correct_answer is marked correct.
func (l *Loader) loadWorkbook(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		l.report(path, fmt.Sprintf("invalid workbook: %v", err))
		return nil
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			l.report(path, fmt.Sprintf("sheet %s: %v", sheet, err))
			continue
		}
		if len(rows) == 0 {
			continue
		}
		cols, err := headerIndex(rows[0])
		if err != nil {
			l.report(path, fmt.Sprintf("sheet %s: %v", sheet, err))
			continue
		}
		for i, row := range rows[1:] {
			if blank(row) {
				continue
			}
			q, err := rowQuestion(sheet, row, cols)
			if err != nil {
				l.report(path, fmt.Sprintf("sheet %s row %d: %v", sheet, i+2, err))
				continue
			}
			l.add(path, q)
		}
	}
	return nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"topic", "difficulty", "type", "text"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	return cols, nil
}

func rowQuestion(subject string, row []string, cols map[string]int) (question.Question, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	d, err := question.ParseDifficulty(cell("difficulty"))
	if err != nil {
		return question.Question{}, err
	}
	t, err := question.ParseType(cell("type"))
	if err != nil {
		return question.Question{}, err
	}
	q := question.Question{
		Text:          cell("text"),
		Type:          t,
		Subject:       strings.TrimSpace(subject),
		Topic:         cell("topic"),
		Difficulty:    d,
		CorrectAnswer: cell("correct_answer"),
		Explanation:   cell("explanation"),
		Tags:          mergeTags(nil, strings.Split(cell("tags"), ",")),
		CreatedBy:     "bank",
	}
	if t == question.MultipleChoice {
		for _, text := range strings.Split(cell("options"), "|") {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			q.Options = append(q.Options, question.Option{
				Text:      text,
				IsCorrect: strings.EqualFold(text, q.CorrectAnswer),
			})
		}
		q.CorrectAnswer = ""
	}
	return q, q.Validate()
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
