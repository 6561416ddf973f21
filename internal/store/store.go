// Package store persists the question bank.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

// ErrNotFound is returned when a question id is unknown to the store.
var ErrNotFound = errors.New("question not found")

// QuestionStore persists questions and their usage statistics.
type QuestionStore interface {
	Save(ctx context.Context, q question.Question) error
	SaveMany(ctx context.Context, qs []question.Question) error
	Get(ctx context.Context, id string) (question.Question, error)
	List(ctx context.Context, f question.Filter) ([]question.Question, error)
	Delete(ctx context.Context, id string) error
	RecordUsage(ctx context.Context, id string, correct bool) error
}

// MemoryStore is an in-memory QuestionStore.
type MemoryStore struct {
	mu        sync.RWMutex
	questions map[string]question.Question
	order     []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{questions: make(map[string]question.Question)}
}

// Save inserts q, or replaces the stored question with the same id.
func (s *MemoryStore) Save(_ context.Context, q question.Question) error {
	if q.ID == "" {
		q.ID = question.NewID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		s.order = append(s.order, q.ID)
	}
	s.questions[q.ID] = q
	return nil
}

func (s *MemoryStore) SaveMany(ctx context.Context, qs []question.Question) error {
	for _, q := range qs {
		if err := s.Save(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return question.Question{}, ErrNotFound
	}
	return cloneQuestion(q), nil
}

// List returns matching questions in insertion order.
func (s *MemoryStore) List(_ context.Context, f question.Filter) ([]question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []question.Question{}
	for _, id := range s.order {
		q := s.questions[id]
		if !f.Match(q) {
			continue
		}
		out = append(out, cloneQuestion(q))
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return ErrNotFound
	}
	delete(s.questions, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// RecordUsage bumps the usage counter and folds the outcome into the success rate.
func (s *MemoryStore) RecordUsage(_ context.Context, id string, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return ErrNotFound
	}
	q.SuccessRate = updatedRate(q.SuccessRate, q.UsageCount, correct)
	q.UsageCount++
	s.questions[id] = q
	return nil
}

func updatedRate(rate float64, uses int, correct bool) float64 {
	hit := 0.0
	if correct {
		hit = 1
	}
	return (rate*float64(uses) + hit) / float64(uses+1)
}

func cloneQuestion(q question.Question) question.Question {
	q.Options = slices.Clone(q.Options)
	q.Tags = slices.Clone(q.Tags)
	return q
}
