// Package agent runs quizzes over chat: it turns chat commands and replies
// into quiz session operations and renders the results as chat messages.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/chat"
	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/question"
	"github.com/p-n-ai/pai-quiz/internal/session"
)

const (
	defaultQuestionCount = 5
	technicalErrorMsg    = "Sorry, something went wrong on our side. Please try again in a moment."
	noQuizMsg            = "You have no quiz running. Send /quiz to start one."
)

// Quizzes is the part of session.Manager the engine drives.
type Quizzes interface {
	Create(ctx context.Context, req session.CreateRequest) (*session.Quiz, error)
	Next(ctx context.Context, id string) (session.NextResult, error)
	Current(id string) (question.Question, bool, error)
	SubmitAnswer(ctx context.Context, id string, req session.SubmitRequest) (session.Feedback, error)
	Stats(id string) (session.Stats, error)
	Recommend(id string) (optimizer.Recommendation, error)
	End(ctx context.Context, id string) error
}

// EngineConfig holds dependencies for the agent engine.
type EngineConfig struct {
	Sessions      Quizzes
	QuestionCount int // questions per chat quiz (default 5)
	Adaptive      bool
}

// chatQuiz is the quiz a chat user is taking.
type chatQuiz struct {
	quizID   string
	served   int
	servedAt time.Time
}

// Engine is the chat quiz processor. Each chat user has at most one quiz.
type Engine struct {
	sessions Quizzes
	count    int
	adaptive bool

	mu     sync.Mutex
	active map[string]*chatQuiz
	now    func() time.Time
}

// NewEngine creates a new agent engine.
func NewEngine(cfg EngineConfig) *Engine {
	count := cfg.QuestionCount
	if count == 0 {
		count = defaultQuestionCount
	}
	return &Engine{
		sessions: cfg.Sessions,
		count:    count,
		adaptive: cfg.Adaptive,
		active:   make(map[string]*chatQuiz),
		now:      time.Now,
	}
}

// ProcessMessage handles an incoming message and returns the reply.
func (e *Engine) ProcessMessage(ctx context.Context, msg chat.InboundMessage) (chat.OutboundMessage, error) {
	slog.Info("processing message",
		"channel", msg.Channel,
		"user_id", msg.UserID,
		"text_len", len(msg.Text),
	)

	var (
		reply chat.OutboundMessage
		err   error
	)
	if strings.HasPrefix(msg.Text, "/") {
		reply, err = e.handleCommand(ctx, msg)
	} else {
		reply, err = e.handleAnswer(ctx, msg)
	}
	reply.Channel = msg.Channel
	reply.UserID = msg.UserID
	return reply, err
}

func (e *Engine) handleCommand(ctx context.Context, msg chat.InboundMessage) (chat.OutboundMessage, error) {
	cmd, arg, _ := strings.Cut(msg.Text, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/start":
		return text(welcome(msg)), nil
	case "/help":
		return text(helpText), nil
	case "/quiz":
		return e.startQuiz(ctx, msg.UserID, arg)
	case "/next":
		return e.next(ctx, msg.UserID)
	case "/stats":
		return e.stats(msg.UserID)
	case "/end":
		return e.end(ctx, msg.UserID)
	default:
		return text(fmt.Sprintf("Unknown command: %s\nSend /help to see what I can do.", cmd)), nil
	}
}

// ActiveQuiz returns the quiz id a user is taking.
func (e *Engine) ActiveQuiz(userID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cq, ok := e.active[userID]
	if !ok {
		return "", false
	}
	return cq.quizID, true
}

func (e *Engine) lookup(userID string) (*chatQuiz, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cq, ok := e.active[userID]
	if !ok {
		return nil, false
	}
	copied := *cq
	return &copied, true
}

func (e *Engine) forget(userID, quizID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cq, ok := e.active[userID]; ok && cq.quizID == quizID {
		delete(e.active, userID)
	}
}

func (e *Engine) markServed(userID, quizID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	cq, ok := e.active[userID]
	if !ok || cq.quizID != quizID {
		return 0
	}
	cq.served++
	cq.servedAt = e.now()
	return cq.served
}

func (e *Engine) startQuiz(ctx context.Context, userID, subject string) (chat.OutboundMessage, error) {
	if cq, ok := e.lookup(userID); ok {
		if err := e.sessions.End(ctx, cq.quizID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
			slog.Warn("failed to end previous chat quiz", "quiz_id", cq.quizID, "error", err)
		}
		e.forget(userID, cq.quizID)
	}

	cfg := session.DefaultConfiguration()
	cfg.QuestionCount = e.count
	cfg.AdaptiveDifficulty = e.adaptive
	if subject != "" {
		cfg.Subject = subject
	}

	quiz, err := e.sessions.Create(ctx, session.CreateRequest{
		Title:         cfg.Subject + " quiz",
		Configuration: cfg,
		CreatedBy:     userID,
	})
	if err != nil {
		slog.Error("failed to create chat quiz", "user_id", userID, "subject", cfg.Subject, "error", err)
		return text(technicalErrorMsg), nil
	}

	e.mu.Lock()
	e.active[userID] = &chatQuiz{quizID: quiz.ID}
	e.mu.Unlock()

	header := fmt.Sprintf("Starting a %s quiz with %d questions. Reply with the option number or type your answer.",
		cfg.Subject, len(quiz.Questions))
	out, err := e.serve(ctx, userID, quiz.ID)
	if err != nil {
		return out, err
	}
	out.Text = header + "\n\n" + out.Text
	return out, nil
}

func (e *Engine) next(ctx context.Context, userID string) (chat.OutboundMessage, error) {
	cq, ok := e.lookup(userID)
	if !ok {
		return text(noQuizMsg), nil
	}

	// An unanswered question is shown again rather than skipped.
	current, pending, err := e.sessions.Current(cq.quizID)
	if err != nil {
		return e.sessionGone(userID, cq.quizID, err), nil
	}
	if pending {
		return renderQuestion(current.Public(), cq.served, -1), nil
	}
	return e.serve(ctx, userID, cq.quizID)
}

// serve pulls the next question. A drained queue finishes the quiz.
func (e *Engine) serve(ctx context.Context, userID, quizID string) (chat.OutboundMessage, error) {
	res, err := e.sessions.Next(ctx, quizID)
	if err != nil {
		return e.sessionGone(userID, quizID, err), nil
	}
	if res.Completed {
		return e.finish(ctx, userID, quizID)
	}
	n := e.markServed(userID, quizID)
	return renderQuestion(*res.Question, n, res.Remaining), nil
}

func (e *Engine) handleAnswer(ctx context.Context, msg chat.InboundMessage) (chat.OutboundMessage, error) {
	cq, ok := e.lookup(msg.UserID)
	if !ok {
		return text(noQuizMsg), nil
	}
	current, pending, err := e.sessions.Current(cq.quizID)
	if err != nil {
		return e.sessionGone(msg.UserID, cq.quizID, err), nil
	}
	if !pending {
		return text("There is no question waiting for an answer. Send /next for the next one."), nil
	}

	elapsed := 0.0
	if !cq.servedAt.IsZero() {
		elapsed = e.now().Sub(cq.servedAt).Seconds()
	}
	fb, err := e.sessions.SubmitAnswer(ctx, cq.quizID, session.SubmitRequest{
		QuestionID: current.ID,
		Answer:     parseAnswer(current, msg.Text),
		TimeTaken:  elapsed,
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return e.sessionGone(msg.UserID, cq.quizID, err), nil
		}
		slog.Error("failed to submit chat answer", "quiz_id", cq.quizID, "error", err)
		return text(technicalErrorMsg), nil
	}

	nextMsg, err := e.serve(ctx, msg.UserID, cq.quizID)
	if err != nil {
		return nextMsg, err
	}
	nextMsg.Text = renderFeedback(fb) + "\n\n" + nextMsg.Text
	return nextMsg, nil
}

func (e *Engine) stats(userID string) (chat.OutboundMessage, error) {
	cq, ok := e.lookup(userID)
	if !ok {
		return text(noQuizMsg), nil
	}
	st, err := e.sessions.Stats(cq.quizID)
	if err != nil {
		return e.sessionGone(userID, cq.quizID, err), nil
	}
	out := renderStats(st)
	if rec, err := e.sessions.Recommend(cq.quizID); err == nil && st.TotalQuestions > 0 {
		out += fmt.Sprintf("\nSuggested level: %s (%s)", rec.Difficulty, rec.Reasoning)
	}
	return text(out), nil
}

func (e *Engine) end(ctx context.Context, userID string) (chat.OutboundMessage, error) {
	cq, ok := e.lookup(userID)
	if !ok {
		return text(noQuizMsg), nil
	}
	st, err := e.sessions.Stats(cq.quizID)
	if err != nil {
		return e.sessionGone(userID, cq.quizID, err), nil
	}
	if err := e.sessions.End(ctx, cq.quizID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		slog.Error("failed to end chat quiz", "quiz_id", cq.quizID, "error", err)
		return text(technicalErrorMsg), nil
	}
	e.forget(userID, cq.quizID)
	return text("Quiz ended.\n\n" + renderStats(st)), nil
}

func (e *Engine) finish(ctx context.Context, userID, quizID string) (chat.OutboundMessage, error) {
	st, err := e.sessions.Stats(quizID)
	if err != nil {
		return e.sessionGone(userID, quizID, err), nil
	}
	if err := e.sessions.End(ctx, quizID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		slog.Warn("failed to end finished chat quiz", "quiz_id", quizID, "error", err)
	}
	e.forget(userID, quizID)
	return text("That was the last question!\n\n" + renderStats(st) + "\n\nSend /quiz to play again."), nil
}

// sessionGone handles a quiz that vanished, typically reaped after idling.
func (e *Engine) sessionGone(userID, quizID string, err error) chat.OutboundMessage {
	e.forget(userID, quizID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return text("Your quiz has expired. Send /quiz to start a new one.")
	}
	slog.Error("chat quiz operation failed", "quiz_id", quizID, "error", err)
	return text(technicalErrorMsg)
}

// parseAnswer maps a chat reply onto the answer shape the question expects.
// Multiple choice accepts an option number, a keyboard label ("2. Paris") or the option text.
func parseAnswer(q question.Question, reply string) question.Answer {
	reply = strings.TrimSpace(reply)
	switch q.Type {
	case question.MultipleChoice:
		if opt, ok := optionByNumber(q.Options, reply); ok {
			return question.TextAnswer(opt)
		}
		return question.TextAnswer(reply)
	case question.TrueFalse:
		switch strings.ToLower(reply) {
		case "true", "t", "yes", "y", "betul", "benar":
			return question.BoolAnswer(true)
		case "false", "f", "no", "n", "salah":
			return question.BoolAnswer(false)
		}
		return question.TextAnswer(reply)
	default:
		return question.TextAnswer(reply)
	}
}

func optionByNumber(options []question.Option, reply string) (string, bool) {
	for _, o := range options {
		if o.Text == reply {
			return o.Text, true
		}
	}
	digits := reply
	if i := strings.IndexAny(reply, ".)"); i > 0 {
		digits = reply[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(digits))
	if err != nil || n < 1 || n > len(options) {
		return "", false
	}
	return options[n-1].Text, true
}

func text(s string) chat.OutboundMessage {
	return chat.OutboundMessage{Text: s}
}
