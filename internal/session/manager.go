package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-quiz/internal/generator"
	"github.com/p-n-ai/pai-quiz/internal/index"
	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/question"
	"github.com/p-n-ai/pai-quiz/internal/queue"
	"github.com/p-n-ai/pai-quiz/internal/store"
)

const (
	generationScope = "quiz"
	completedMsg    = "Quiz completed"
)

// Index is the part of index.Tree the manager needs.
type Index interface {
	Insert(q question.Question)
	Query(opts index.QueryOptions) []question.Question
	Find(id string) (question.Question, bool)
}

// Generator produces questions from study material.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) ([]question.Question, error)
}

// Optimizer drives adaptive reordering and recommendations.
type Optimizer interface {
	queue.Recommender
	Recommend(history []optimizer.Entry) optimizer.Recommendation
}

// Config holds dependencies for the manager. Store, Events and Broadcaster are optional.
type Config struct {
	Index       Index
	Store       store.QuestionStore
	Generator   Generator
	Optimizer   Optimizer
	Events      EventLogger
	Broadcaster Broadcaster
	IdleTTL     time.Duration // 0 disables the reaper
	Rand        *rand.Rand
}

// session is one live quiz. mu serializes every queue operation.
type session struct {
	mu         sync.Mutex
	quiz       Quiz
	queue      *queue.Queue
	current    *question.Question
	lastActive time.Time
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	index       Index
	store       store.QuestionStore
	generator   Generator
	optimizer   Optimizer
	events      EventLogger
	broadcaster Broadcaster
	idleTTL     time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	idx := cfg.Index
	if idx == nil {
		idx = index.New()
	}
	opt := cfg.Optimizer
	if opt == nil {
		opt = optimizer.New()
	}
	return &Manager{
		sessions:    make(map[string]*session),
		index:       idx,
		store:       cfg.Store,
		generator:   cfg.Generator,
		optimizer:   opt,
		events:      events,
		broadcaster: cfg.Broadcaster,
		idleTTL:     cfg.IdleTTL,
		rng:         rng,
		now:         time.Now,
	}
}

// Create assembles a quiz and registers its session.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Quiz, error) {
	cfg := req.Configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		questions []question.Question
		source    string
		err       error
	)
	if req.SourceText != "" {
		source = "source_text"
		questions, err = m.generate(ctx, req.SourceText, cfg, req.CreatedBy)
	} else {
		source = "index"
		questions = m.fromIndex(cfg)
		if len(questions) == 0 {
			slog.Info("no indexed questions match, generating placeholder quiz", "subject", cfg.Subject)
			source = "placeholder"
			text := fmt.Sprintf("This is sample content for %s quiz generation.", cfg.Subject)
			questions, err = m.generate(ctx, text, cfg, req.CreatedBy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("building quiz questions: %w", err)
	}

	rng := m.sessionRand()
	if cfg.RandomizeOptions {
		for i := range questions {
			questions[i] = shuffleOptions(questions[i], rng)
		}
	}

	q := queue.New(m.optimizer, cfg.AdaptiveDifficulty, queue.WithRand(rng))
	q.AddMany(questions, cfg.RandomizeQuestions)

	now := m.now()
	quiz := Quiz{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Description:   req.Description,
		Configuration: cfg,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		Questions:     make([]question.Public, 0, len(questions)),
	}
	for _, item := range questions {
		quiz.Questions = append(quiz.Questions, item.Public())
	}

	m.mu.Lock()
	m.sessions[quiz.ID] = &session{quiz: quiz, queue: q, lastActive: now}
	m.mu.Unlock()

	slog.Info("quiz created",
		"quiz_id", quiz.ID,
		"questions", len(questions),
		"subject", cfg.Subject,
		"source", source,
	)
	m.emit(quiz.ID, quiz.CreatedBy, EventQuizCreated, map[string]any{
		"question_count": len(questions),
		"subject":        cfg.Subject,
		"adaptive":       cfg.AdaptiveDifficulty,
		"source":         source,
	})

	return &quiz, nil
}

// fromIndex queries the shared index. A "General" subject matches every subject.
func (m *Manager) fromIndex(cfg Configuration) []question.Question {
	opts := index.QueryOptions{Limit: cfg.QuestionCount}
	if cfg.Subject != DefaultSubject {
		opts.Subject = cfg.Subject
	}
	if len(cfg.DifficultyLevels) > 0 {
		opts.Difficulty = cfg.DifficultyLevels[0]
	}
	if len(cfg.Topics) == 0 {
		return m.index.Query(opts)
	}

	var out []question.Question
	for _, topic := range cfg.Topics {
		opts.Topic = topic
		opts.Limit = cfg.QuestionCount - len(out)
		out = append(out, m.index.Query(opts)...)
		if len(out) >= cfg.QuestionCount {
			break
		}
	}
	return out
}

// generate asks the generator for questions and files them in the index and store.
func (m *Manager) generate(ctx context.Context, text string, cfg Configuration, createdBy string) ([]question.Question, error) {
	if m.generator == nil {
		return nil, fmt.Errorf("no question generator configured")
	}
	req := generator.Request{
		Text:    text,
		Count:   cfg.QuestionCount,
		Subject: cfg.Subject,
		Scope:   generationScope,
		UserID:  createdBy,
	}
	if len(cfg.DifficultyLevels) > 0 {
		req.Difficulty = cfg.DifficultyLevels[0]
	}
	questions, err := m.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	for i := range questions {
		if createdBy != "" {
			questions[i].CreatedBy = createdBy
		}
		m.index.Insert(questions[i])
	}
	if m.store != nil && len(questions) > 0 {
		if err := m.store.SaveMany(ctx, questions); err != nil {
			slog.Warn("failed to persist generated questions", "count", len(questions), "error", err)
		}
	}
	return questions, nil
}

// Next serves the next question of a session.
func (m *Manager) Next(_ context.Context, id string) (NextResult, error) {
	s, err := m.get(id)
	if err != nil {
		return NextResult{}, err
	}

	s.mu.Lock()
	s.lastActive = m.now()
	item, ok := s.queue.Next()
	if ok {
		served := item
		s.current = &served
	} else {
		s.current = nil
	}
	res := NextResult{
		Remaining:   s.queue.Len(),
		QueueStatus: s.queue.Status(),
	}
	userID := s.quiz.CreatedBy
	s.mu.Unlock()

	if !ok {
		res.Completed = true
		res.Message = completedMsg
		return res, nil
	}

	pub := item.Public()
	res.Question = &pub
	m.emit(id, userID, EventQuestionServed, map[string]any{
		"question_id": item.ID,
		"difficulty":  string(item.Difficulty),
		"remaining":   res.Remaining,
	})
	return res, nil
}

// Current returns the question last served by Next and not yet answered.
func (m *Manager) Current(id string) (question.Question, bool, error) {
	s, err := m.get(id)
	if err != nil {
		return question.Question{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return question.Question{}, false, nil
	}
	return *s.current, true, nil
}

// SubmitAnswer evaluates an answer and feeds the result to the session's queue.
func (m *Manager) SubmitAnswer(ctx context.Context, id string, req SubmitRequest) (Feedback, error) {
	s, err := m.get(id)
	if err != nil {
		return Feedback{}, err
	}
	q, ok := m.index.Find(req.QuestionID)
	if !ok {
		return Feedback{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, req.QuestionID)
	}

	correct, err := question.Evaluate(q, req.Answer)
	if err != nil {
		slog.Warn("answer could not be evaluated", "quiz_id", id, "question_id", q.ID, "error", err)
	}
	timeTaken := max(req.TimeTaken, 0)

	s.mu.Lock()
	s.lastActive = m.now()
	s.queue.RecordAnswer(q, correct, timeTaken)
	if s.current != nil && s.current.ID == q.ID {
		s.current = nil
	}
	status := s.queue.Status()
	userID := s.quiz.CreatedBy
	s.mu.Unlock()

	if m.store != nil {
		if err := m.store.RecordUsage(ctx, q.ID, correct); err != nil {
			slog.Warn("failed to record question usage", "question_id", q.ID, "error", err)
		}
	}

	fb := Feedback{
		IsCorrect:     correct,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		TimeTaken:     timeTaken,
		QueueStatus:   status,
	}
	if q.Type == question.MultipleChoice {
		if opt, ok := q.CorrectOption(); ok {
			fb.CorrectOption = opt.Text
		}
	}

	m.emit(id, userID, EventAnswerSubmitted, map[string]any{
		"question_id": q.ID,
		"is_correct":  correct,
		"difficulty":  string(q.Difficulty),
		"time_taken":  timeTaken,
	})
	return fb, nil
}

// Status returns the queue diagnostics of a session.
func (m *Manager) Status(id string) (queue.Status, error) {
	s, err := m.get(id)
	if err != nil {
		return queue.Status{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Status(), nil
}

// Quiz returns the description of a live session.
func (m *Manager) Quiz(id string) (Quiz, error) {
	s, err := m.get(id)
	if err != nil {
		return Quiz{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz, nil
}

// Answered returns the answered log of a session, oldest first.
func (m *Manager) Answered(id string) ([]queue.AnsweredRecord, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Answered(), nil
}

// Recommend suggests a difficulty from the session's answered log.
func (m *Manager) Recommend(id string) (optimizer.Recommendation, error) {
	answered, err := m.Answered(id)
	if err != nil {
		return optimizer.Recommendation{}, err
	}
	history := make([]optimizer.Entry, len(answered))
	for i, a := range answered {
		history[i] = optimizer.Entry{Difficulty: a.Difficulty, Score: score(a.IsCorrect)}
	}
	return m.optimizer.Recommend(history), nil
}

// End tears a session down.
func (m *Manager) End(_ context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	m.teardown(id, s)
	return nil
}

// teardown clears a session already removed from the map.
func (m *Manager) teardown(id string, s *session) {
	s.mu.Lock()
	answered := len(s.queue.Answered())
	s.queue.Clear()
	s.current = nil
	userID := s.quiz.CreatedBy
	s.mu.Unlock()

	slog.Info("quiz ended", "quiz_id", id, "answered", answered)
	m.emit(id, userID, EventQuizEnded, map[string]any{"answered": answered})
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *Manager) emit(sessionID, userID, eventType string, data map[string]any) {
	event := Event{
		SessionID: sessionID,
		UserID:    userID,
		EventType: eventType,
		Data:      data,
		CreatedAt: m.now(),
	}
	if err := m.events.LogEvent(event); err != nil {
		slog.Warn("failed to log quiz event", "type", eventType, "quiz_id", sessionID, "error", err)
	}
	if m.broadcaster != nil {
		m.broadcaster.Publish(sessionID, event)
	}
}

// sessionRand derives an independent random source for one session.
func (m *Manager) sessionRand() *rand.Rand {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return rand.New(rand.NewPCG(m.rng.Uint64(), m.rng.Uint64()))
}

func shuffleOptions(q question.Question, rng *rand.Rand) question.Question {
	if len(q.Options) < 2 {
		return q
	}
	opts := append([]question.Option(nil), q.Options...)
	rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	q.Options = opts
	return q
}

func score(correct bool) float64 {
	if correct {
		return 1
	}
	return 0
}
