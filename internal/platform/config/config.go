// Package config loads application configuration from environment variables.
// All variables use the QUIZ_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	AI       AIConfig
	Telegram TelegramConfig
	Quiz     QuizConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	Host        string
	CORSOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL keeps the
// question bank in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Migrate  bool
}

// CacheConfig holds Dragonfly/Redis connection settings.
type CacheConfig struct {
	URL           string
	GenerationTTL int // minutes
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	OpenAI      OpenAIConfig
	Anthropic   AnthropicConfig
	DeepSeek    DeepSeekConfig
	Google      GoogleConfig
	Ollama      OllamaConfig
	OpenRouter  OpenRouterConfig
	DailyBudget int64 // tokens per user per day, 0 = unlimited
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// AnthropicConfig holds Anthropic provider settings.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
	Model  string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
	Model   string
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey string
	Model  string
}

// TelegramConfig holds Telegram Bot API settings. The bot is disabled when
// the token is empty.
type TelegramConfig struct {
	BotToken string
}

// QuizConfig holds quiz engine settings.
type QuizConfig struct {
	BankPath          string
	SessionIdleTTL    int // minutes, 0 disables the reaper
	OptimizerCacheCap int
	NoiseSpread       float64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with QUIZ_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        envInt("QUIZ_SERVER_PORT", 8080),
			Host:        envStr("QUIZ_SERVER_HOST", "0.0.0.0"),
			CORSOrigins: envList("QUIZ_SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:      envStr("QUIZ_DATABASE_URL", ""),
			MaxConns: envInt("QUIZ_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("QUIZ_DATABASE_MIN_CONNS", 5),
			Migrate:  envBool("QUIZ_DATABASE_MIGRATE", true),
		},
		Cache: CacheConfig{
			URL:           envStr("QUIZ_CACHE_URL", ""),
			GenerationTTL: envInt("QUIZ_CACHE_GENERATION_TTL", 60),
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{
				APIKey: envStr("QUIZ_AI_OPENAI_API_KEY", ""),
				Model:  envStr("QUIZ_AI_OPENAI_MODEL", "gpt-4o-mini"),
			},
			Anthropic: AnthropicConfig{
				APIKey: envStr("QUIZ_AI_ANTHROPIC_API_KEY", ""),
				Model:  envStr("QUIZ_AI_ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("QUIZ_AI_DEEPSEEK_API_KEY", ""),
			},
			Google: GoogleConfig{
				APIKey: envStr("QUIZ_AI_GOOGLE_API_KEY", ""),
				Model:  envStr("QUIZ_AI_GOOGLE_MODEL", "gemini-2.0-flash"),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("QUIZ_AI_OLLAMA_ENABLED", false),
				URL:     envStr("QUIZ_AI_OLLAMA_URL", "http://localhost:11434"),
				Model:   envStr("QUIZ_AI_OLLAMA_MODEL", "llama3.1"),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("QUIZ_AI_OPENROUTER_API_KEY", ""),
				Model:  envStr("QUIZ_AI_OPENROUTER_MODEL", "openai/gpt-4o-mini"),
			},
			DailyBudget: int64(envInt("QUIZ_AI_DAILY_TOKEN_BUDGET", 0)),
		},
		Telegram: TelegramConfig{
			BotToken: envStr("QUIZ_TELEGRAM_BOT_TOKEN", ""),
		},
		Quiz: QuizConfig{
			BankPath:          envStr("QUIZ_BANK_PATH", "./banks"),
			SessionIdleTTL:    envInt("QUIZ_SESSION_IDLE_TTL", 120),
			OptimizerCacheCap: envInt("QUIZ_OPTIMIZER_CACHE_CAP", 10000),
			NoiseSpread:       envFloat("QUIZ_OPTIMIZER_NOISE_SPREAD", 0.1),
		},
		Log: LogConfig{
			Level:  envStr("QUIZ_LOG_LEVEL", "info"),
			Format: envStr("QUIZ_LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("QUIZ_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("QUIZ_DATABASE_MIN_CONNS (%d) exceeds QUIZ_DATABASE_MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Quiz.SessionIdleTTL < 0 {
		return fmt.Errorf("QUIZ_SESSION_IDLE_TTL must not be negative, got %d", c.Quiz.SessionIdleTTL)
	}
	if c.Quiz.OptimizerCacheCap < 0 {
		return fmt.Errorf("QUIZ_OPTIMIZER_CACHE_CAP must not be negative, got %d", c.Quiz.OptimizerCacheCap)
	}
	if c.Quiz.NoiseSpread < 0 || c.Quiz.NoiseSpread > 1 {
		return fmt.Errorf("QUIZ_OPTIMIZER_NOISE_SPREAD must be within [0, 1], got %g", c.Quiz.NoiseSpread)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("QUIZ_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.OpenAI.APIKey != "" ||
		c.AI.Anthropic.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.Google.APIKey != "" ||
		c.AI.OpenRouter.APIKey != "" ||
		c.AI.Ollama.Enabled
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
