package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/examforge/internal/evaluate"
	"github.com/abhisek/examforge/internal/exam"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <exam.json> <answers.json>",
	Short: "Score an answer sheet against an exam",
	Long:  "Scores answers keyed by item ID. The answers file is a JSON object mapping item IDs to answer text.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		offline, _ := cmd.Flags().GetBool("offline")

		ex, err := exam.Load(args[0])
		if err != nil {
			return err
		}
		answers, err := loadAnswers(args[1])
		if err != nil {
			return err
		}

		ev, closeFn, err := newEvaluator(cmd, offline)
		if err != nil {
			return err
		}
		defer closeFn()

		sheet := ev.EvaluateAll(cmd.Context(), ex, answers)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sheet)
	},
}

// newEvaluator builds an evaluator backed by the configured provider,
// or a heuristic-only one when offline is set.
func newEvaluator(cmd *cobra.Command, offline bool) (*evaluate.Evaluator, func(), error) {
	opts := []evaluate.Option{
		evaluate.WithLogger(logger),
		evaluate.WithPromptConfig(cfg.Generate.Prompt),
	}
	if offline {
		return evaluate.New(nil, cfg.Evaluate, opts...), func() {}, nil
	}

	s, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	provider, err := newProvider(cmd.Context(), s)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return evaluate.New(provider, cfg.Evaluate, opts...), func() { s.Close() }, nil
}

func loadAnswers(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	var answers map[string]string
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	return answers, nil
}

func init() {
	evaluateCmd.Flags().Bool("offline", false, "Score open answers heuristically without calling the backend")
}
