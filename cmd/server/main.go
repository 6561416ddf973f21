package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/agent"
	"github.com/p-n-ai/pai-quiz/internal/ai"
	"github.com/p-n-ai/pai-quiz/internal/bank"
	"github.com/p-n-ai/pai-quiz/internal/chat"
	"github.com/p-n-ai/pai-quiz/internal/generator"
	"github.com/p-n-ai/pai-quiz/internal/httpapi"
	"github.com/p-n-ai/pai-quiz/internal/index"
	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/platform/cache"
	"github.com/p-n-ai/pai-quiz/internal/platform/config"
	"github.com/p-n-ai/pai-quiz/internal/platform/database"
	"github.com/p-n-ai/pai-quiz/internal/question"
	"github.com/p-n-ai/pai-quiz/internal/session"
	"github.com/p-n-ai/pai-quiz/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	checks := make(map[string]httpapi.Check)

	var (
		questions store.QuestionStore = store.NewMemoryStore()
		events    session.EventLogger = session.NopEventLogger{}
	)
	if cfg.Database.URL != "" {
		db, err := database.Open(ctx, database.Options{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			Migrate:         cfg.Database.Migrate,
			ConnectAttempts: 5,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		pg, err := store.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		questions = pg
		events = session.NewPostgresEventLogger(db.Pool)
		checks["database"] = db.HealthCheck
		slog.Info("question bank backed by PostgreSQL")
	}

	var (
		budget   ai.BudgetChecker
		genCache generator.Cache
	)
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return err
		}
		defer c.Close()
		budget = ai.NewRedisBudget(c.Client, cfg.AI.DailyBudget)
		genCache = c
		checks["cache"] = c.HealthCheck
	} else {
		mem := ai.NewInMemoryBudget()
		mem.SetDefault(cfg.AI.DailyBudget)
		budget = mem
	}

	tree := index.New()
	n, err := loadBank(ctx, cfg.Quiz.BankPath, questions, tree)
	if err != nil {
		return err
	}
	slog.Info("question index ready", "questions", n)

	opt := optimizer.New(
		optimizer.WithNoiseSpread(cfg.Quiz.NoiseSpread),
		optimizer.WithMaxCacheEntries(cfg.Quiz.OptimizerCacheCap),
	)

	genCfg := generator.Config{
		Cache:    genCache,
		CacheTTL: time.Duration(cfg.Cache.GenerationTTL) * time.Minute,
		Budget:   budget,
	}
	if cfg.HasAIProvider() {
		router, err := newAIRouter(ctx, cfg.AI)
		if err != nil {
			return err
		}
		genCfg.Completer = router
		slog.Info("AI question generation enabled", "providers", router.Names())
	} else {
		slog.Info("no AI provider configured, using offline question generation")
	}

	hub := session.NewHub()
	sessions := session.NewManager(session.Config{
		Index:       tree,
		Store:       questions,
		Generator:   generator.New(genCfg),
		Optimizer:   opt,
		Events:      events,
		Broadcaster: hub,
		IdleTTL:     time.Duration(cfg.Quiz.SessionIdleTTL) * time.Minute,
	})
	go sessions.RunReaper(ctx)

	gw := chat.NewGateway()
	if cfg.Telegram.BotToken != "" {
		tg, err := chat.NewTelegramChannel(cfg.Telegram.BotToken)
		if err != nil {
			return err
		}
		gw.Register("telegram", tg)

		engine := agent.NewEngine(agent.EngineConfig{Sessions: sessions, Adaptive: true})
		if err := gw.StartAll(ctx, chatHandler(ctx, engine, gw)); err != nil {
			return err
		}
		defer gw.StopAll()
	}

	api := httpapi.New(httpapi.Config{
		Sessions:    sessions,
		Index:       tree,
		Store:       questions,
		Optimizer:   opt,
		Hub:         hub,
		CORSOrigins: cfg.Server.CORSOrigins,
		Checks:      checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newAIRouter registers every configured provider in fallback order.
func newAIRouter(ctx context.Context, cfg config.AIConfig) (*ai.Router, error) {
	router := ai.NewRouter()

	if cfg.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey, ai.WithDefaultModel(cfg.OpenAI.Model)))
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.Anthropic.APIKey, ai.WithAnthropicModel(cfg.Anthropic.Model))
		if err != nil {
			return nil, err
		}
		router.Register("anthropic", p)
	}
	if cfg.Google.APIKey != "" {
		p, err := ai.NewGoogleProvider(ctx, cfg.Google.APIKey, ai.WithGoogleModel(cfg.Google.Model))
		if err != nil {
			return nil, err
		}
		router.Register("google", p)
	}
	if cfg.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey))
	}
	if cfg.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model))
	}
	if cfg.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL, cfg.Ollama.Model))
	}

	if !router.HasProvider() {
		return nil, ai.ErrNoProvider
	}
	return router, nil
}

// loadBank files the bank's questions in the store, then indexes everything
// the store holds. A missing bank path is not an error.
func loadBank(ctx context.Context, path string, qs store.QuestionStore, tree *index.Tree) (int, error) {
	if path != "" {
		loader, err := bank.NewLoader(path)
		if err != nil {
			slog.Warn("question bank not loaded", "path", path, "error", err)
		} else {
			for _, p := range loader.Problems() {
				slog.Warn("question bank problem", "problem", p.String())
			}
			if err := qs.SaveMany(ctx, loader.Questions()); err != nil {
				return 0, fmt.Errorf("saving bank questions: %w", err)
			}
			slog.Info("question bank loaded", "path", path, "questions", loader.Stats().Total)
		}
	}

	all, err := qs.List(ctx, question.Filter{})
	if err != nil {
		return 0, fmt.Errorf("listing stored questions: %w", err)
	}
	for _, q := range all {
		tree.Insert(q)
	}
	return len(all), nil
}

// chatHandler answers inbound chat messages through the quiz engine.
func chatHandler(ctx context.Context, engine *agent.Engine, gw *chat.Gateway) func(chat.InboundMessage) {
	return func(msg chat.InboundMessage) {
		if err := gw.SendTyping(ctx, msg.Channel, msg.UserID); err != nil {
			slog.Debug("typing indicator failed", "error", err)
		}
		reply, err := engine.ProcessMessage(ctx, msg)
		if err != nil {
			slog.Error("failed to process chat message", "user_id", msg.UserID, "error", err)
			return
		}
		if err := gw.Send(ctx, reply); err != nil {
			slog.Error("failed to send chat reply", "user_id", msg.UserID, "error", err)
		}
	}
}
