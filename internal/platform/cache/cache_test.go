package cache

import (
	"os"
	"testing"
	"time"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	url := os.Getenv("QUIZ_TEST_CACHE_URL")
	if url == "" {
		t.Skip("QUIZ_TEST_CACHE_URL not set")
	}

	ctx := t.Context()
	c, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	key := "pai-quiz:test:" + t.Name()
	defer c.Delete(ctx, key)

	type payload struct {
		Subject string `json:"subject"`
		Count   int    `json:"count"`
	}

	var got payload
	found, err := c.GetJSON(ctx, key, &got)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if found {
		t.Fatal("GetJSON() found a key that was never set")
	}

	if err := c.SetJSON(ctx, key, payload{Subject: "Math", Count: 3}, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	found, err = c.GetJSON(ctx, key, &got)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if !found || got.Subject != "Math" || got.Count != 3 {
		t.Errorf("GetJSON() = %+v (found=%v), want Math/3", got, found)
	}
}
