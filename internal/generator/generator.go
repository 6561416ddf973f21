// Package generator turns study material into quiz questions, either through
// an AI provider or, with none configured, from key-term templates.
package generator

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-quiz/internal/ai"
	"github.com/p-n-ai/pai-quiz/internal/question"
)

const (
	DefaultCount   = 5
	DefaultSubject = "General"
	maxReplyTokens = 500
	temperature    = 0.7
)

// ErrBudgetExceeded is returned when the caller has spent their daily tokens.
var ErrBudgetExceeded = errors.New("AI token budget exceeded")

// Completer is the part of ai.Router the generator needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Cache stores generated batches. *cache.Cache satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Request describes one generation job.
type Request struct {
	Text       string              `json:"text"`
	Count      int                 `json:"count"`
	Subject    string              `json:"subject"`
	Types      []question.Type     `json:"types,omitempty"`
	Difficulty question.Difficulty `json:"difficulty,omitempty"`

	// Budget accounting, not part of the cache key.
	Scope  string `json:"-"`
	UserID string `json:"-"`
}

func (r Request) normalized() Request {
	if r.Count <= 0 {
		r.Count = DefaultCount
	}
	if r.Subject == "" {
		r.Subject = DefaultSubject
	}
	if len(r.Types) == 0 {
		r.Types = []question.Type{question.MultipleChoice, question.TrueFalse}
	}
	return r
}

// Config wires the generator's collaborators. Every field is optional.
type Config struct {
	Completer Completer
	Cache     Cache
	CacheTTL  time.Duration
	Budget    ai.BudgetChecker
}

// Generator authors questions from text.
type Generator struct {
	completer Completer
	cache     Cache
	ttl       time.Duration
	budget    ai.BudgetChecker
}

// New creates a Generator. Without a Completer it runs offline.
func New(cfg Config) *Generator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Generator{
		completer: cfg.Completer,
		cache:     cfg.Cache,
		ttl:       cfg.CacheTTL,
		budget:    cfg.Budget,
	}
}

// Online reports whether an AI provider backs the generator.
func (g *Generator) Online() bool {
	return g.completer != nil
}

// Generate returns up to req.Count questions. In AI mode one chunk of the
// text yields at most one question and chunks that fail are skipped, so
// fewer questions than requested is normal.
func (g *Generator) Generate(ctx context.Context, req Request) ([]question.Question, error) {
	req = req.normalized()

	if g.completer == nil {
		return Offline(req.Text, req.Count, req.Subject), nil
	}

	key := cacheKey(req)
	if g.cache != nil {
		var cached []question.Question
		found, err := g.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			slog.Warn("generation cache read failed", "error", err)
		} else if found {
			slog.Debug("generation cache hit", "key", key, "questions", len(cached))
			return freshIDs(cached), nil
		}
	}

	if g.budget != nil {
		ok, err := g.budget.Check(ctx, req.Scope, req.UserID)
		if err != nil {
			slog.Warn("budget check failed", "error", err)
		} else if !ok {
			return nil, ErrBudgetExceeded
		}
	}

	chunks := SplitText(req.Text, MaxChunkLen)
	if len(chunks) > req.Count {
		chunks = chunks[:req.Count]
	}

	var (
		out    []question.Question
		seen   = make(map[string]struct{})
		tokens int
	)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := req.Types[i%len(req.Types)]

		q, used, err := g.single(ctx, chunk, t, req)
		tokens += used
		if err != nil {
			slog.Warn("question generation failed, skipping chunk",
				"chunk", i+1,
				"type", t,
				"error", err,
			)
			continue
		}

		fp := question.Fingerprint(q)
		if _, dup := seen[fp]; dup {
			slog.Debug("dropping duplicate generated question", "chunk", i+1)
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, q)
	}

	if g.budget != nil && tokens > 0 {
		if err := g.budget.Record(ctx, req.Scope, req.UserID, tokens); err != nil {
			slog.Warn("budget record failed", "error", err)
		}
	}

	slog.Info("questions generated",
		"requested", req.Count,
		"chunks", len(chunks),
		"generated", len(out),
		"tokens", tokens,
	)

	if g.cache != nil && len(out) > 0 {
		if err := g.cache.SetJSON(ctx, key, out, g.ttl); err != nil {
			slog.Warn("generation cache write failed", "error", err)
		}
	}
	return out, nil
}

func (g *Generator) single(ctx context.Context, chunk string, t question.Type, req Request) (question.Question, int, error) {
	prompt, err := renderPrompt(chunk, t, req.Subject, req.Difficulty)
	if err != nil {
		return question.Question{}, 0, err
	}

	resp, err := g.completer.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxReplyTokens,
		Temperature: temperature,
		Task:        ai.TaskGeneration,
		Schema:      schemaFor(t),
	})
	if err != nil {
		return question.Question{}, 0, err
	}

	q, err := parseReply(resp.Content, t, chunk, req.Subject)
	return q, resp.TotalTokens(), err
}

func cacheKey(req Request) string {
	data, err := json.Marshal(req)
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", req))
	}
	sum := blake2b.Sum256(data)
	return "quiz:gen:" + hex.EncodeToString(sum[:16])
}

// freshIDs gives cached questions new identities so two sessions built from
// the same cached batch never share question ids.
func freshIDs(qs []question.Question) []question.Question {
	out := slices.Clone(qs)
	now := time.Now()
	for i := range out {
		out[i].ID = question.NewID()
		out[i].CreatedAt = now
	}
	return out
}
