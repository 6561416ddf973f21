package httpapi

import (
	"fmt"
	"net/http"

	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/question"
)

const maxSequenceLength = 100

type nextRequest struct {
	CurrentDifficulty question.Difficulty `json:"current_difficulty"`
	PerformanceScore  float64             `json:"performance_score"`
	History           []float64           `json:"history,omitempty"`
}

type sequenceRequest struct {
	Count             int                 `json:"count"`
	StartDifficulty   question.Difficulty `json:"start_difficulty"`
	TargetPerformance *float64            `json:"target_performance,omitempty"`
}

type analyzeRequest struct {
	Sequence []question.Difficulty `json:"sequence"`
	Scores   []float64             `json:"scores"`
}

type recommendRequest struct {
	History []optimizer.Entry `json:"history"`
}

func validScore(v float64) bool {
	return v >= 0 && v <= 1
}

// difficultyNext handles POST /api/v1/difficulty/next.
func (s *Server) difficultyNext(w http.ResponseWriter, r *http.Request) {
	var req nextRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.CurrentDifficulty.Valid() {
		writeError(w, http.StatusBadRequest, "current_difficulty is required")
		return
	}
	if !validScore(req.PerformanceScore) {
		writeError(w, http.StatusBadRequest, "performance_score must be within [0, 1]")
		return
	}

	next := s.optimizer.OptimalNext(req.CurrentDifficulty, req.PerformanceScore, req.History)
	writeJSON(w, http.StatusOK, map[string]question.Difficulty{"next_difficulty": next})
}

// difficultySequence handles POST /api/v1/difficulty/sequence.
func (s *Server) difficultySequence(w http.ResponseWriter, r *http.Request) {
	req := sequenceRequest{StartDifficulty: question.Beginner}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Count < 1 || req.Count > maxSequenceLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", maxSequenceLength))
		return
	}
	if !req.StartDifficulty.Valid() {
		writeError(w, http.StatusBadRequest, "start_difficulty is invalid")
		return
	}
	target := optimizer.DefaultTargetPerformance
	if req.TargetPerformance != nil {
		target = *req.TargetPerformance
	}
	if !validScore(target) {
		writeError(w, http.StatusBadRequest, "target_performance must be within [0, 1]")
		return
	}

	seq := s.optimizer.Sequence(req.Count, req.StartDifficulty, target)
	writeJSON(w, http.StatusOK, map[string][]question.Difficulty{"sequence": seq})
}

// difficultyAnalyze handles POST /api/v1/difficulty/analyze.
func (s *Server) difficultyAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report := s.optimizer.AnalyzeProgression(req.Sequence, req.Scores)
	if report.Error != "" {
		writeError(w, http.StatusUnprocessableEntity, report.Error)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// difficultyRecommend handles POST /api/v1/difficulty/recommend.
func (s *Server) difficultyRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.optimizer.Recommend(req.History))
}
