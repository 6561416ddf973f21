package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-quiz/internal/bank"
	"github.com/p-n-ai/pai-quiz/internal/question"
)

func newBankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Inspect question bank files",
	}
	cmd.AddCommand(newBankValidateCmd())
	cmd.AddCommand(newBankStatsCmd())
	return cmd
}

func newBankValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Check bank files against the schema and question rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := bank.NewLoader(args[0])
			if err != nil {
				return fmt.Errorf("load bank: %w", err)
			}
			out := cmd.OutOrStdout()
			problems := loader.Problems()
			if wantJSON(cmd) {
				if err := printJSON(out, map[string]any{
					"questions": len(loader.Questions()),
					"problems":  problems,
				}); err != nil {
					return err
				}
			} else {
				for _, p := range problems {
					fmt.Fprintln(out, p.String())
				}
				fmt.Fprintf(out, "%d questions, %d problems\n", len(loader.Questions()), len(problems))
			}
			if len(problems) > 0 {
				return fmt.Errorf("bank has %d problems", len(problems))
			}
			return nil
		},
	}
}

func newBankStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <path>",
		Short: "Count bank questions by subject, difficulty and type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := bank.NewLoader(args[0])
			if err != nil {
				return fmt.Errorf("load bank: %w", err)
			}
			st := loader.Stats()
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, st)
			}

			fmt.Fprintf(out, "Total: %d\n\nSubjects:\n", st.Total)
			for _, s := range st.Subjects {
				fmt.Fprintf(out, "  %-20s %d\n", s, st.BySubject[s])
			}
			fmt.Fprintln(out, "\nDifficulty:")
			for _, d := range question.Difficulties {
				fmt.Fprintf(out, "  %-20s %d\n", d, st.ByDifficulty[d])
			}
			fmt.Fprintln(out, "\nType:")
			for _, t := range question.Types {
				fmt.Fprintf(out, "  %-20s %d\n", t, st.ByType[t])
			}
			return nil
		},
	}
}
