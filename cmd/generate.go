package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/generate"
	"github.com/abhisek/examforge/internal/store"
)

var generateCmd = &cobra.Command{
	Use:   "generate <source-file>",
	Short: "Generate an exam from a source text file (- for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quotaFlag, _ := cmd.Flags().GetString("quota")
		overridePath, _ := cmd.Flags().GetString("prompt")
		title, _ := cmd.Flags().GetString("title")
		out, _ := cmd.Flags().GetString("output")

		quota, err := exam.ParseQuota(quotaFlag)
		if err != nil {
			return err
		}
		source, err := readSource(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		override := ""
		if overridePath != "" {
			data, err := os.ReadFile(overridePath)
			if err != nil {
				return fmt.Errorf("read prompt override: %w", err)
			}
			override = string(data)
		}
		if title == "" {
			title = titleFromPath(args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		orch, err := newOrchestrator(cmd.Context(), s)
		if err != nil {
			return err
		}

		ex, err := generateExam(cmd.Context(), orch, title, args[0], source, quota, override)
		if err != nil {
			return err
		}
		return writeExam(cmd.OutOrStdout(), out, ex)
	},
}

func newOrchestrator(ctx context.Context, s *store.Store) (*generate.Orchestrator, error) {
	provider, err := newProvider(ctx, s)
	if err != nil {
		return nil, err
	}
	return generate.New(provider, cfg.Generate,
		generate.WithLogger(logger),
		generate.WithTraceSink(generate.NewStoreSink(s.EventRepo())),
	), nil
}

// generateExam runs one generation and packages the result.
func generateExam(ctx context.Context, orch *generate.Orchestrator, title, sourceName, source string, quota exam.QuotaSpec, override string) (*exam.Exam, error) {
	res, err := orch.Generate(generate.WithTitle(ctx, title), source, quota, override)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		logger.Warn("exam is short", zap.String("title", title), zap.Error(err))
	}
	return &exam.Exam{
		Title:     title,
		Source:    sourceName,
		CreatedAt: time.Now().UTC(),
		Quota:     quota.Clone(),
		Shortfall: res.Shortfall,
		Items:     res.Items,
	}, nil
}

func readSource(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}

func titleFromPath(path string) string {
	if path == "-" {
		return "Untitled exam"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeExam(stdout io.Writer, path string, ex *exam.Exam) error {
	if path != "" {
		return ex.Save(path)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(ex)
}

func init() {
	generateCmd.Flags().StringP("quota", "q", "multiple_choice=3,true_false=2", "Question quota, e.g. mc=3,tf=2,short=1")
	generateCmd.Flags().String("prompt", "", "File whose contents replace the built-in draft prompt")
	generateCmd.Flags().StringP("title", "t", "", "Exam title (default: source file name)")
	generateCmd.Flags().StringP("output", "o", "", "Write the exam JSON to this file instead of stdout")
}
