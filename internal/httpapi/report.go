package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-quiz/internal/question"
	"github.com/p-n-ai/pai-quiz/internal/queue"
	"github.com/p-n-ai/pai-quiz/internal/session"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	answersSheet    = "Answers"
	summarySheet    = "Summary"
)

var answerHeader = []any{"#", "Question", "Topic", "Difficulty", "Type", "Correct", "Time (s)"}

// quizReport handles GET /api/v1/quizzes/{id}/report.xlsx.
func (s *Server) quizReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	quiz, err := s.sessions.Quiz(id)
	if err != nil {
		fail(w, err)
		return
	}
	answered, err := s.sessions.Answered(id)
	if err != nil {
		fail(w, err)
		return
	}
	st, err := s.sessions.Stats(id)
	if err != nil {
		fail(w, err)
		return
	}

	f, err := buildReport(quiz, answered, st)
	if err != nil {
		fail(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		slog.Warn("failed to write quiz report", "quiz_id", id, "error", err)
	}
}

// buildReport lays out one row per answered question plus a summary sheet.
func buildReport(quiz session.Quiz, answered []queue.AnsweredRecord, st session.Stats) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", answersSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming report sheet: %w", err)
	}
	if err := f.SetSheetRow(answersSheet, "A1", &answerHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing report header: %w", err)
	}
	for i, a := range answered {
		row := []any{i + 1, a.Question.Text, a.Question.Topic, string(a.Difficulty), string(a.Question.Type), yesNo(a.IsCorrect), a.TimeTaken}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(answersSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing report row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("adding summary sheet: %w", err)
	}
	summary := [][]any{
		{"Quiz", quiz.Title},
		{"Subject", quiz.Configuration.Subject},
		{"Answered", st.TotalQuestions},
		{"Correct", st.CorrectAnswers},
		{"Accuracy", st.Accuracy},
		{"Average time (s)", st.AverageTimePerQuestion},
	}
	for _, d := range question.Difficulties {
		if b, ok := st.DifficultyBreakdown[d]; ok {
			summary = append(summary, []any{string(d), fmt.Sprintf("%d/%d", b.Correct, b.Total)})
		}
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing summary: %w", err)
		}
	}
	return f, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
