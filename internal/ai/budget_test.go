package ai

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestInMemoryBudget_NoBudgetSet(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget()

	ok, err := b.Check(ctx, "http", "user1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (no budget means unlimited)")
	}
}

func TestInMemoryBudget_WithinBudget(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget()
	b.SetBudget("http", "user1", 1000)

	if err := b.Record(ctx, "http", "user1", 500); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(ctx, "http", "user1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (500 < 1000)")
	}
}

func TestInMemoryBudget_OverBudget(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget()
	b.SetBudget("http", "user1", 100)

	if err := b.Record(ctx, "http", "user1", 150); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(ctx, "http", "user1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ok {
		t.Error("Check() = true, want false (150 >= 100)")
	}
}

func TestInMemoryBudget_ExactBudget(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget()
	b.SetBudget("http", "user1", 100)

	if err := b.Record(ctx, "http", "user1", 100); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(ctx, "http", "user1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ok {
		t.Error("Check() = true, want false (100 >= 100, budget exhausted)")
	}
}

func TestInMemoryBudget_MultipleRecords(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget()
	b.SetBudget("http", "user1", 1000)

	records := []int{100, 200, 300}
	for _, tokens := range records {
		if err := b.Record(ctx, "http", "user1", tokens); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	used, budget, err := b.Usage(ctx, "http", "user1")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if used != 600 {
		t.Errorf("used = %d, want 600", used)
	}
	if budget != 1000 {
		t.Errorf("budget = %d, want 1000", budget)
	}
}

func TestInMemoryBudget_NegativeTokens(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget()

	err := b.Record(ctx, "http", "user1", -10)
	if err == nil {
		t.Fatal("Record() should return error for negative tokens")
	}
}

func TestInMemoryBudget_IsolatedUsers(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget()
	b.SetBudget("http", "user1", 100)
	b.SetBudget("http", "user2", 200)

	b.Record(ctx, "http", "user1", 90)
	b.Record(ctx, "http", "user2", 50)

	ok1, _ := b.Check(ctx, "http", "user1")
	ok2, _ := b.Check(ctx, "http", "user2")

	if !ok1 {
		t.Error("user1 should be within budget (90 < 100)")
	}
	if !ok2 {
		t.Error("user2 should be within budget (50 < 200)")
	}
}

func TestInMemoryBudget_Default(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBudget()
	b.SetDefault(100)
	b.SetBudget("http", "vip", 1000)

	if err := b.Record(ctx, "http", "user1", 100); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := b.Record(ctx, "http", "vip", 100); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if ok, _ := b.Check(ctx, "http", "user1"); ok {
		t.Error("Check() = true, want false (default budget spent)")
	}
	if ok, _ := b.Check(ctx, "http", "vip"); !ok {
		t.Error("Check() = false, want true (explicit budget wins)")
	}
	if _, budget, _ := b.Usage(ctx, "http", "someone"); budget != 100 {
		t.Errorf("budget = %d, want default 100", budget)
	}
}

func TestRedisBudget_Key(t *testing.T) {
	b := NewRedisBudget(nil, 10)
	b.now = func() time.Time { return time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC) }

	if got := b.key("telegram", "42"); got != "quiz:budget:telegram:42:2025-03-04" {
		t.Errorf("key() = %q", got)
	}
}

func TestRedisBudget_Unlimited(t *testing.T) {
	b := NewRedisBudget(nil, 0)
	ok, err := b.Check(context.Background(), "http", "u")
	if err != nil || !ok {
		t.Errorf("Check() = %v, %v; want true, nil without a limit", ok, err)
	}
}

func TestRedisBudget_Live(t *testing.T) {
	url := os.Getenv("QUIZ_TEST_CACHE_URL")
	if url == "" {
		t.Skip("QUIZ_TEST_CACHE_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	b := NewRedisBudget(client, 50)
	user := "budget-test-" + time.Now().Format("150405.000000")
	defer client.Del(ctx, b.key("http", user))

	if err := b.Record(ctx, "http", user, 60); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	ok, err := b.Check(ctx, "http", user)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ok {
		t.Error("Check() = true, want false after exceeding budget")
	}
	used, budget, err := b.Usage(ctx, "http", user)
	if err != nil || used != 60 || budget != 50 {
		t.Errorf("Usage() = %d, %d, %v; want 60, 50, nil", used, budget, err)
	}
}
