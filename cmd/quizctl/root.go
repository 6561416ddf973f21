package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/question"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizctl",
		Short:         "Adaptive quiz planning and question bank tools",
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("json", false, "Print results as JSON")
	root.PersistentFlags().Float64("noise", 0.1, "Standard deviation of simulated performance drift")
	root.PersistentFlags().Int64("seed", 0, "Random seed for simulations (0 picks one)")

	root.AddCommand(newPlanCmd())
	root.AddCommand(newNextCmd())
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newRecommendCmd())
	root.AddCommand(newBankCmd())
	return root
}

// newOptimizer builds an optimizer from the persistent flags.
func newOptimizer(cmd *cobra.Command) *optimizer.Optimizer {
	spread, _ := cmd.Flags().GetFloat64("noise")
	seed, _ := cmd.Flags().GetInt64("seed")
	opts := []optimizer.Option{optimizer.WithNoiseSpread(spread)}
	if seed != 0 {
		opts = append(opts, optimizer.WithRand(rand.New(rand.NewPCG(uint64(seed), uint64(seed)))))
	}
	return optimizer.New(opts...)
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseEntry reads a "difficulty:score" pair.
func parseEntry(s string) (optimizer.Entry, error) {
	d, sc, ok := strings.Cut(s, ":")
	if !ok {
		return optimizer.Entry{}, fmt.Errorf("invalid entry %q, want difficulty:score", s)
	}
	difficulty, err := question.ParseDifficulty(d)
	if err != nil {
		return optimizer.Entry{}, err
	}
	score, err := parseScore(sc)
	if err != nil {
		return optimizer.Entry{}, fmt.Errorf("entry %q: %w", s, err)
	}
	return optimizer.Entry{Difficulty: difficulty, Score: score}, nil
}

func parseScore(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q", s)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("score %g outside [0, 1]", v)
	}
	return v, nil
}
