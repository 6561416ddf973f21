package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BudgetChecker checks and records token usage against daily budgets.
// Scope names the surface a request comes from ("http", "telegram").
type BudgetChecker interface {
	// Check returns true if the scope/user has budget remaining.
	Check(ctx context.Context, scope, userID string) (bool, error)
	// Record records token usage for a scope/user.
	Record(ctx context.Context, scope, userID string, tokens int) error
	// Usage returns current usage for a scope/user.
	Usage(ctx context.Context, scope, userID string) (used int64, budget int64, err error)
}

// InMemoryBudget is an in-memory budget tracker for single-process deployments.
type InMemoryBudget struct {
	mu       sync.RWMutex
	fallback int64            // applied when no per-user budget is set, 0 = unlimited
	budgets  map[string]int64 // key -> budget limit
	usage    map[string]int64 // key -> tokens used
}

// NewInMemoryBudget creates a new in-memory budget tracker.
func NewInMemoryBudget() *InMemoryBudget {
	return &InMemoryBudget{
		budgets: make(map[string]int64),
		usage:   make(map[string]int64),
	}
}

// SetDefault sets the budget applied to users without an explicit one.
func (b *InMemoryBudget) SetDefault(tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fallback = tokens
}

// SetBudget sets the token budget for a scope/user.
func (b *InMemoryBudget) SetBudget(scope, userID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.budgets[budgetKey(scope, userID)] = tokens
}

func (b *InMemoryBudget) limit(key string) int64 {
	if budget, ok := b.budgets[key]; ok {
		return budget
	}
	return b.fallback
}

func (b *InMemoryBudget) Check(_ context.Context, scope, userID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	key := budgetKey(scope, userID)
	budget := b.limit(key)
	if budget <= 0 {
		// No budget set means unlimited.
		return true, nil
	}
	return b.usage[key] < budget, nil
}

func (b *InMemoryBudget) Record(_ context.Context, scope, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[budgetKey(scope, userID)] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, scope, userID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	key := budgetKey(scope, userID)
	return b.usage[key], b.limit(key), nil
}

// RedisBudget tracks usage in Dragonfly/Redis with one counter per user per
// UTC day, so every replica shares the same view.
type RedisBudget struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

// NewRedisBudget creates a shared budget tracker. A limit of 0 disables
// enforcement but still records usage.
func NewRedisBudget(client *redis.Client, dailyLimit int64) *RedisBudget {
	return &RedisBudget{client: client, limit: dailyLimit, now: time.Now}
}

func (b *RedisBudget) key(scope, userID string) string {
	return "quiz:budget:" + budgetKey(scope, userID) + ":" + b.now().UTC().Format("2006-01-02")
}

func (b *RedisBudget) used(ctx context.Context, key string) (int64, error) {
	v, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read budget: %w", err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse budget counter: %w", err)
	}
	return n, nil
}

func (b *RedisBudget) Check(ctx context.Context, scope, userID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, err := b.used(ctx, b.key(scope, userID))
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, scope, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	key := b.key(scope, userID)
	pipe := b.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record budget: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, scope, userID string) (int64, int64, error) {
	used, err := b.used(ctx, b.key(scope, userID))
	if err != nil {
		return 0, 0, err
	}
	return used, b.limit, nil
}

func budgetKey(scope, userID string) string {
	return scope + ":" + userID
}
