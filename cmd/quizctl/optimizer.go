package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-quiz/internal/optimizer"
	"github.com/p-n-ai/pai-quiz/internal/question"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Simulate a difficulty sequence for a quiz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			startFlag, _ := cmd.Flags().GetString("start")
			target, _ := cmd.Flags().GetFloat64("target")

			if count < 1 || count > 100 {
				return fmt.Errorf("count must be between 1 and 100, got %d", count)
			}
			start, err := question.ParseDifficulty(startFlag)
			if err != nil {
				return err
			}
			if target < 0 || target > 1 {
				return fmt.Errorf("target must be within [0, 1], got %g", target)
			}

			seq := newOptimizer(cmd).Sequence(count, start, target)
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, map[string]any{"sequence": seq})
			}
			for i, d := range seq {
				fmt.Fprintf(out, "%3d  %s\n", i+1, d)
			}
			return nil
		},
	}
	cmd.Flags().Int("count", 10, "Number of questions")
	cmd.Flags().String("start", string(question.Beginner), "Starting difficulty")
	cmd.Flags().Float64("target", optimizer.DefaultTargetPerformance, "Simulated starting performance")
	return cmd
}

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next <current-difficulty> <score> [history-score...]",
		Short: "Pick the next difficulty after a scored question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := question.ParseDifficulty(args[0])
			if err != nil {
				return err
			}
			score, err := parseScore(args[1])
			if err != nil {
				return err
			}
			var history []float64
			for _, a := range args[2:] {
				h, err := parseScore(a)
				if err != nil {
					return err
				}
				history = append(history, h)
			}

			next := newOptimizer(cmd).OptimalNext(current, score, history)
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), map[string]any{"next_difficulty": next})
			}
			fmt.Fprintln(cmd.OutOrStdout(), next)
			return nil
		},
	}
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <difficulty:score>...",
		Short: "Score how well a difficulty progression fit the learner",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq := make([]question.Difficulty, 0, len(args))
			scores := make([]float64, 0, len(args))
			for _, a := range args {
				e, err := parseEntry(a)
				if err != nil {
					return err
				}
				seq = append(seq, e.Difficulty)
				scores = append(scores, e.Score)
			}

			report := newOptimizer(cmd).AnalyzeProgression(seq, scores)
			if report.Error != "" {
				return fmt.Errorf("analysis failed: %s", report.Error)
			}
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, report)
			}
			fmt.Fprintf(out, "Average performance:    %.3f\n", report.AveragePerformance)
			fmt.Fprintf(out, "Performance variance:   %.3f\n", report.PerformanceVariance)
			fmt.Fprintf(out, "Difficulty changes:     %d\n", report.DifficultyChanges)
			fmt.Fprintf(out, "Optimal efficiency:     %.3f\n", report.OptimalEfficiency)
			fmt.Fprintf(out, "Progression smoothness: %.3f\n", report.ProgressionSmoothness)
			return nil
		},
	}
}

func newRecommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend [difficulty:score...]",
		Short: "Recommend a difficulty from answer history",
		RunE: func(cmd *cobra.Command, args []string) error {
			history := make([]optimizer.Entry, 0, len(args))
			for _, a := range args {
				e, err := parseEntry(a)
				if err != nil {
					return err
				}
				history = append(history, e)
			}

			rec := newOptimizer(cmd).Recommend(history)
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, rec)
			}
			fmt.Fprintf(out, "Recommended: %s (confidence %.2f)\n", rec.Difficulty, rec.Confidence)
			fmt.Fprintf(out, "Reasoning:   %s\n", rec.Reasoning)
			if len(rec.PerformanceByDifficulty) > 0 {
				var parts []string
				for _, d := range question.Difficulties {
					if v, ok := rec.PerformanceByDifficulty[d]; ok {
						parts = append(parts, fmt.Sprintf("%s=%.2f", d, v))
					}
				}
				fmt.Fprintf(out, "Performance: %s\n", strings.Join(parts, " "))
			}
			return nil
		},
	}
}
