package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPlan(t *testing.T) {
	out, err := execute(t, "plan", "--count", "5", "--start", "intermediate", "--seed", "42", "--json")
	require.NoError(t, err)

	var got struct {
		Sequence []string `json:"sequence"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Sequence, 5)
	assert.Equal(t, "intermediate", got.Sequence[0])
}

func TestPlan_Deterministic(t *testing.T) {
	a, err := execute(t, "plan", "--count", "8", "--seed", "7")
	require.NoError(t, err)
	b, err := execute(t, "plan", "--count", "8", "--seed", "7")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, strings.Split(strings.TrimSpace(a), "\n"), 8)
}

func TestPlan_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"count too high", []string{"plan", "--count", "101"}},
		{"count zero", []string{"plan", "--count", "0"}},
		{"bad start", []string{"plan", "--start", "legendary"}},
		{"bad target", []string{"plan", "--target", "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestNext(t *testing.T) {
	out, err := execute(t, "next", "beginner", "0.95", "--noise", "0")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	_, err = execute(t, "next", "beginner", "1.2")
	assert.Error(t, err)
	_, err = execute(t, "next", "beginner")
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	out, err := execute(t, "analyze", "beginner:1", "intermediate:0.5", "intermediate:0", "--json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.InDelta(t, 0.5, report["average_performance"], 1e-9)
	assert.EqualValues(t, 1, report["difficulty_changes"])

	_, err = execute(t, "analyze", "beginner")
	assert.Error(t, err)
}

func TestRecommend(t *testing.T) {
	out, err := execute(t, "recommend")
	require.NoError(t, err)
	assert.Contains(t, out, "Recommended: intermediate")
	assert.Contains(t, out, "no history")

	out, err = execute(t, "recommend", "beginner:1", "beginner:1", "advanced:0", "--json")
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.NotEmpty(t, rec["recommended_difficulty"])
	assert.Contains(t, rec["reasoning"], "beginner")
}

const validBank = `subject: Geography
questions:
  - text: "What is the capital of France?"
    type: multiple_choice
    difficulty: beginner
    options:
      - text: Paris
        is_correct: true
      - text: Lyon
  - text: "The Nile flows north."
    type: true_false
    difficulty: intermediate
    correct_answer: "true"
`

func writeBank(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	return dir
}

func TestBankValidate(t *testing.T) {
	dir := writeBank(t, "geo.questions.yaml", validBank)
	out, err := execute(t, "bank", "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 questions, 0 problems")
}

func TestBankValidate_ReportsProblems(t *testing.T) {
	dir := writeBank(t, "bad.questions.yaml", "subject: Geography\nquestions:\n  - text: q\n    type: essay\n    difficulty: beginner\n")
	out, err := execute(t, "bank", "validate", dir)
	require.Error(t, err)
	assert.Contains(t, out, "bad.questions.yaml")
}

func TestBankStats(t *testing.T) {
	dir := writeBank(t, "geo.questions.yaml", validBank)
	out, err := execute(t, "bank", "stats", dir, "--json")
	require.NoError(t, err)

	var st struct {
		Total     int            `json:"total"`
		BySubject map[string]int `json:"by_subject"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.BySubject["Geography"])
}
