package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/quiz"
)

var quizCmd = &cobra.Command{
	Use:   "quiz <exam.json>",
	Short: "Take an exam interactively in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offline, _ := cmd.Flags().GetBool("offline")

		ex, err := exam.Load(args[0])
		if err != nil {
			return err
		}
		ev, closeFn, err := newEvaluator(cmd, offline)
		if err != nil {
			return err
		}
		defer closeFn()

		sheet, err := quiz.Run(cmd.Context(), ex, ev)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Score: %.2f / %d\n", sheet.Points, sheet.MaxPoints)
		return nil
	},
}

func init() {
	quizCmd.Flags().Bool("offline", false, "Score open answers heuristically without calling the backend")
}
