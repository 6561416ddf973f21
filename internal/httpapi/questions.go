package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/p-n-ai/pai-quiz/internal/index"
	"github.com/p-n-ai/pai-quiz/internal/question"
	"github.com/p-n-ai/pai-quiz/internal/store"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

type treeResponse struct {
	TreeStructure *index.Structure `json:"tree_structure"`
	Statistics    index.Statistics `json:"statistics"`
}

type searchCriteria struct {
	Subject    string              `json:"subject,omitempty"`
	Topic      string              `json:"topic,omitempty"`
	Difficulty question.Difficulty `json:"difficulty,omitempty"`
}

type searchResponse struct {
	Questions      []question.Question `json:"questions"`
	TotalFound     int                 `json:"total_found"`
	SearchCriteria searchCriteria      `json:"search_criteria"`
}

// questionTree handles GET /api/v1/questions/tree.
func (s *Server) questionTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, treeResponse{
		TreeStructure: s.index.Structure(),
		Statistics:    s.index.Statistics(),
	})
}

// searchQuestions handles GET /api/v1/questions/search.
func (s *Server) searchQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := index.QueryOptions{
		Subject: q.Get("subject"),
		Topic:   q.Get("topic"),
		Limit:   defaultSearchLimit,
	}
	if v := q.Get("difficulty"); v != "" {
		d, err := question.ParseDifficulty(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Difficulty = d
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSearchLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit))
			return
		}
		opts.Limit = n
	}

	found := s.index.Query(opts)
	writeJSON(w, http.StatusOK, searchResponse{
		Questions:  found,
		TotalFound: len(found),
		SearchCriteria: searchCriteria{
			Subject:    opts.Subject,
			Topic:      opts.Topic,
			Difficulty: opts.Difficulty,
		},
	})
}

// addQuestion handles POST /api/v1/questions.
func (s *Server) addQuestion(w http.ResponseWriter, r *http.Request) {
	var q question.Question
	if err := decode(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := q.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.ID == "" {
		q.ID = question.NewID()
	} else if _, exists := s.index.Find(q.ID); exists {
		writeError(w, http.StatusConflict, fmt.Sprintf("question %s already exists", q.ID))
		return
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}

	if s.store != nil {
		if err := s.store.Save(r.Context(), q); err != nil {
			fail(w, err)
			return
		}
	}
	s.index.Insert(q)

	slog.Info("question added", "id", q.ID, "subject", q.Subject, "topic", q.Topic)
	writeJSON(w, http.StatusCreated, q)
}

// deleteQuestion handles DELETE /api/v1/questions/{id}.
func (s *Server) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.index.Find(id); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("question %s not found", id))
		return
	}
	if s.store != nil {
		if err := s.store.Delete(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
			fail(w, err)
			return
		}
	}
	s.index.Remove(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}
