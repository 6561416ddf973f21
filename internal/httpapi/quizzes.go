package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/p-n-ai/pai-quiz/internal/session"
)

// createQuiz handles POST /api/v1/quizzes.
func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request) {
	req := session.CreateRequest{Configuration: session.DefaultConfiguration()}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	quiz, err := s.sessions.Create(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

// nextQuestion handles GET /api/v1/quizzes/{id}/next.
func (s *Server) nextQuestion(w http.ResponseWriter, r *http.Request) {
	res, err := s.sessions.Next(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// submitAnswer handles POST /api/v1/quizzes/{id}/answers.
func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req session.SubmitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "question_id is required")
		return
	}

	fb, err := s.sessions.SubmitAnswer(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (s *Server) quizStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Stats(mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) quizStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Status(mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) quizRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.sessions.Recommend(mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// endQuiz handles DELETE /api/v1/quizzes/{id}.
func (s *Server) endQuiz(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.End(r.Context(), mux.Vars(r)["id"]); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Quiz session ended successfully"})
}
