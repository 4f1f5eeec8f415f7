package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/generate"
)

var batchCmd = &cobra.Command{
	Use:   "batch <source-file>...",
	Short: "Generate one exam per source file, several at a time",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quotaFlag, _ := cmd.Flags().GetString("quota")
		outDir, _ := cmd.Flags().GetString("out-dir")
		jobs, _ := cmd.Flags().GetInt("jobs")

		quota, err := exam.ParseQuota(quotaFlag)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
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

		written, err := runBatch(cmd.Context(), orch, args, outDir, quota, jobs)
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return err
	},
}

// runBatch generates an exam for each source and writes it to outDir as
// <name>.json. A failing source does not stop the others. It returns the
// paths written, in source order.
func runBatch(ctx context.Context, orch *generate.Orchestrator, sources []string, outDir string, quota exam.QuotaSpec, jobs int) ([]string, error) {
	names := outputNames(sources)
	paths := make([]string, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, src := range sources {
		g.Go(func() error {
			data, err := os.ReadFile(src)
			if err != nil {
				errs[i] = fmt.Errorf("read source: %w", err)
				return nil
			}
			title := titleFromPath(src)
			ex, err := generateExam(ctx, orch, title, src, string(data), quota, "")
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src, err)
				return nil
			}
			out := filepath.Join(outDir, names[i]+".json")
			if err := ex.Save(out); err != nil {
				errs[i] = fmt.Errorf("%s: %w", src, err)
				return nil
			}
			paths[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var written []string
	var failed []string
	for i := range sources {
		if errs[i] != nil {
			logger.Error("batch item failed", zap.String("source", sources[i]), zap.Error(errs[i]))
			failed = append(failed, sources[i])
			continue
		}
		written = append(written, paths[i])
	}
	if len(failed) > 0 {
		return written, fmt.Errorf("%d of %d sources failed: %s", len(failed), len(sources), strings.Join(failed, ", "))
	}
	return written, nil
}

// outputNames maps each source to a distinct output base name. Sources
// sharing a title get -2, -3, ... suffixes in source order.
func outputNames(sources []string) []string {
	names := make([]string, len(sources))
	taken := make(map[string]bool, len(sources))
	for _, src := range sources {
		taken[strings.ToLower(titleFromPath(src))] = true
	}
	seen := make(map[string]bool, len(sources))
	for i, src := range sources {
		name := titleFromPath(src)
		if seen[strings.ToLower(name)] {
			base := name
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s-%d", base, n)
				if !taken[strings.ToLower(name)] {
					break
				}
			}
			taken[strings.ToLower(name)] = true
		}
		seen[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func init() {
	batchCmd.Flags().StringP("quota", "q", "multiple_choice=3,true_false=2", "Question quota applied to every source")
	batchCmd.Flags().StringP("out-dir", "o", ".", "Directory for the generated exam files")
	batchCmd.Flags().IntP("jobs", "j", 4, "Number of sources generated concurrently")
}
