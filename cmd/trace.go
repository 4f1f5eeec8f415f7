package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examforge/internal/llm"
	"github.com/abhisek/examforge/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect generation runs and backend calls",
}

var traceRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		w := cmd.OutOrStdout()

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.EventRepo().QueryGenerations(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query generations: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "No generation runs found.")
			return nil
		}

		fmt.Fprintf(w, "%-5s  %-19s  %-24s  %-8s  %-5s  %-5s  %-10s  %s\n",
			"ID", "Timestamp", "Title", "Tier", "Model", "Synth", "Ms", "Shortfall")
		fmt.Fprintln(w, strings.Repeat("\u2500", 100))
		for _, r := range runs {
			tier := r.WinningTier
			if tier == "" {
				tier = "-"
			}
			fmt.Fprintf(w, "%-5d  %-19s  %-24s  %-8s  %-5d  %-5d  %-10d  %s\n",
				r.ID,
				r.Timestamp.Local().Format(timeLayout),
				truncate(r.Title, 24),
				tier,
				r.ModelItems,
				r.SynthItems,
				r.DurationMs,
				r.Shortfall,
			)
		}
		return nil
	},
}

var traceRunCmd = &cobra.Command{
	Use:   "run <id|session>",
	Short: "Show one generation run with its prompts, replies and backend calls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		r, err := s.EventRepo().GetGeneration(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get generation: %w", err)
		}
		if r == nil {
			return fmt.Errorf("generation %s not found", args[0])
		}

		fmt.Fprintf(w, "ID:        %d\n", r.ID)
		fmt.Fprintf(w, "Session:   %s\n", r.SessionID)
		fmt.Fprintf(w, "Time:      %s\n", r.Timestamp.Local().Format(timeLayout))
		fmt.Fprintf(w, "Title:     %s\n", r.Title)
		fmt.Fprintf(w, "Model:     %s\n", r.Model)
		fmt.Fprintf(w, "Quota:     %s (%d items)\n", r.Quota, r.Requested)
		fmt.Fprintf(w, "Items:     %d from model, %d synthesized\n", r.ModelItems, r.SynthItems)
		if r.Shortfall != "" {
			fmt.Fprintf(w, "Shortfall: %s\n", r.Shortfall)
		}
		fmt.Fprintf(w, "States:    %s\n", r.States)
		fmt.Fprintf(w, "Tier:      %s\n", r.WinningTier)
		fmt.Fprintf(w, "Tiers:     %s\n", r.TierOutcomes)
		fmt.Fprintf(w, "Duration:  %dms\n", r.DurationMs)
		if r.ErrorMessage != "" {
			fmt.Fprintf(w, "Errors:    %s\n", r.ErrorMessage)
		}

		section(w, "DRAFT PROMPT", r.DraftPrompt)
		section(w, "DRAFT REPLY", r.DraftText)
		section(w, "CONVERT PROMPT", r.ConvertPrompt)
		section(w, "CONVERT REPLY", r.ConvertText)

		calls, err := s.EventRepo().QueryLLMEvents(ctx, store.QueryOpts{SessionID: r.SessionID})
		if err != nil {
			return fmt.Errorf("query calls: %w", err)
		}
		if len(calls) > 0 {
			fmt.Fprintln(w, "\nBackend calls:")
			printCalls(w, calls)
		}
		return nil
	},
}

var traceCallsCmd = &cobra.Command{
	Use:   "calls",
	Short: "List recent backend calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		w := cmd.OutOrStdout()

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Fprintln(w, "No backend calls found.")
			return nil
		}
		printCalls(w, events)
		return nil
	},
}

var traceCallCmd = &cobra.Command{
	Use:   "call <id>",
	Short: "View full request/response for a backend call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}
		w := cmd.OutOrStdout()

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		fmt.Fprintf(w, "ID:        %d\n", e.ID)
		fmt.Fprintf(w, "Session:   %s\n", e.SessionID)
		fmt.Fprintf(w, "Time:      %s\n", e.Timestamp.Local().Format(timeLayout))
		fmt.Fprintf(w, "Provider:  %s\n", e.Provider)
		fmt.Fprintf(w, "Model:     %s\n", e.Model)
		fmt.Fprintf(w, "Purpose:   %s\n", e.Purpose)
		fmt.Fprintf(w, "Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
		fmt.Fprintf(w, "Latency:   %dms\n", e.LatencyMs)
		fmt.Fprintf(w, "Success:   %v\n", e.Success)
		fmt.Fprintf(w, "Cached:    %v\n", e.Cached)
		if e.ErrorMessage != "" {
			fmt.Fprintf(w, "Error:     %s\n", e.ErrorMessage)
		}

		section(w, "REQUEST", e.RequestBody)
		section(w, "RESPONSE", e.ResponseBody)
		return nil
	},
}

func printCalls(w io.Writer, events []store.LLMEventRecord) {
	fmt.Fprintf(w, "%-5s  %-19s  %-10s  %-28s  %-6s  %-6s  %-7s  %s\n",
		"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
	fmt.Fprintln(w, strings.Repeat("\u2500", 100))

	for _, e := range events {
		ok := "✓"
		if !e.Success {
			ok = "✗"
		}
		if e.Cached {
			ok += " (cached)"
		}
		fmt.Fprintf(w, "%-5d  %-19s  %-10s  %-28s  %-6d  %-6d  %-7d  %s\n",
			e.ID,
			e.Timestamp.Local().Format(timeLayout),
			e.Purpose,
			truncate(e.Model, 28),
			e.InputTokens,
			e.OutputTokens,
			e.LatencyMs,
			ok,
		)
	}
}

func section(w io.Writer, title, body string) {
	sep := strings.Repeat("\u2500", 60)
	fmt.Fprintln(w)
	fmt.Fprintln(w, sep)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, sep)
	if body == "" {
		body = "(not captured)"
	}
	fmt.Fprintln(w, body)
}

var traceStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		stats, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		if len(stats) == 0 {
			fmt.Fprintln(w, "No LLM usage recorded yet.")
			return nil
		}

		// Usage by purpose.
		fmt.Fprintln(w, "Usage by Purpose")
		fmt.Fprintln(w, strings.Repeat("\u2500", 72))
		fmt.Fprintf(w, "%-16s  %6s  %10s  %10s  %10s  %8s\n",
			"Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")
		fmt.Fprintln(w, strings.Repeat("\u2500", 72))

		var totalCalls, totalIn, totalOut int
		for _, st := range stats {
			total := st.InputTokens + st.OutputTokens
			fmt.Fprintf(w, "%-16s  %6d  %10d  %10d  %10d  %8d\n",
				st.Purpose, st.Calls, st.InputTokens, st.OutputTokens, total, st.AvgLatencyMs)
			totalCalls += st.Calls
			totalIn += st.InputTokens
			totalOut += st.OutputTokens
		}

		fmt.Fprintln(w, strings.Repeat("\u2500", 72))
		fmt.Fprintf(w, "%-16s  %6d  %10d  %10d  %10d\n",
			"TOTAL", totalCalls, totalIn, totalOut, totalIn+totalOut)

		// Cost by model.
		modelUsage, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		if len(modelUsage) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Estimated Cost (USD)")
			fmt.Fprintln(w, strings.Repeat("\u2500", 72))
			fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %10s\n",
				"Model", "Calls", "Input", "Output", "Cost")
			fmt.Fprintln(w, strings.Repeat("\u2500", 72))

			var totalCost float64
			var unknownModels []string
			for _, mu := range modelUsage {
				cost := llm.LookupCost(mu.Model)
				if cost == nil {
					unknownModels = append(unknownModels, mu.Model)
					fmt.Fprintf(w, "%-32s  %6d  %10d  %10d  %10s\n",
						truncate(mu.Model, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, "?")
					continue
				}
				c := cost.Cost(mu.InputTokens, mu.OutputTokens)
				totalCost += c
				fmt.Fprintf(w, "%-32s  %6d  %10d  %10d  %9s\n",
					truncate(mu.Model, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, formatCost(c))
			}

			fmt.Fprintln(w, strings.Repeat("\u2500", 72))
			label := "TOTAL"
			if len(unknownModels) > 0 {
				label = "TOTAL (partial)"
			}
			fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %9s\n",
				label, "", "", "", formatCost(totalCost))

			if len(unknownModels) > 0 {
				fmt.Fprintf(w, "\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
			}
		}

		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	traceRunsCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	traceCallsCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	traceCallsCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (draft, convert, evaluate)")

	traceCmd.AddCommand(traceRunsCmd)
	traceCmd.AddCommand(traceRunCmd)
	traceCmd.AddCommand(traceCallsCmd)
	traceCmd.AddCommand(traceCallCmd)
	traceCmd.AddCommand(traceStatsCmd)
}
