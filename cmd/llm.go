package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/llm"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
)

func newLLMCmd() *cobra.Command {
	llmCmd := &cobra.Command{
		Use:   "llm",
		Short: "Inspect AI grading calls",
	}
	llmCmd.AddCommand(newLLMListCmd(), newLLMViewCmd(), newLLMStatsCmd())
	return llmCmd
}

func newLLMListCmd() *cobra.Command {
	var (
		limit   int
		purpose string
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "List recent model calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			calls, err := e.repo.QueryLLMCalls(cmd.Context(), limit, purpose)
			if err != nil {
				return fmt.Errorf("query calls: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(calls) == 0 {
				fmt.Fprintln(out, "No LLM calls found.")
				return nil
			}

			fmt.Fprintf(out, "%-5s  %-19s  %-20s  %-28s  %-6s  %-6s  %-7s  %s\n",
				"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
			fmt.Fprintln(out, strings.Repeat("─", 106))
			for _, c := range calls {
				ok := "✓"
				if !c.Success {
					ok = "✗"
				}
				fmt.Fprintf(out, "%-5d  %-19s  %-20s  %-28s  %-6d  %-6d  %-7d  %s\n",
					c.ID,
					c.CreatedAt.In(e.loc).Format("2006-01-02 15:04:05"),
					truncate(c.Purpose, 20),
					truncate(c.Model, 28),
					c.InputTokens,
					c.OutputTokens,
					c.LatencyMs,
					ok,
				)
			}
			return nil
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 20, "Number of calls to show")
	c.Flags().StringVarP(&purpose, "purpose", "p", "", "Filter by purpose (free-text-grading, free-text-regrading)")
	return c
}

func newLLMViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <id>",
		Short: "View the full request and response of a model call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: invalid ID %q", review.ErrInvalidInput, args[0])
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := e.repo.GetLLMCall(cmd.Context(), id)
			if err != nil {
				return err
			}
			printLLMCall(cmd.OutOrStdout(), c, e)
			return nil
		},
	}
}

func printLLMCall(w io.Writer, c store.LLMCallRecord, e *env) {
	sep := strings.Repeat("─", 60)
	fmt.Fprintf(w, "ID:        %d\n", c.ID)
	fmt.Fprintf(w, "Time:      %s\n", c.CreatedAt.In(e.loc).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Model:     %s\n", c.Model)
	fmt.Fprintf(w, "Purpose:   %s\n", c.Purpose)
	fmt.Fprintf(w, "Tokens:    %d in / %d out\n", c.InputTokens, c.OutputTokens)
	fmt.Fprintf(w, "Latency:   %dms\n", c.LatencyMs)
	fmt.Fprintf(w, "Success:   %v\n", c.Success)
	if c.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:     %s\n", c.ErrorMessage)
	}

	for _, part := range []struct{ name, body string }{
		{"REQUEST", c.RequestBody},
		{"RESPONSE", c.ResponseBody},
	} {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sep)
		fmt.Fprintln(w, part.name)
		fmt.Fprintln(w, sep)
		if part.body != "" {
			fmt.Fprintln(w, part.body)
		} else {
			fmt.Fprintln(w, "(not captured)")
		}
	}
}

func newLLMStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregated token usage and estimated cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			byPurpose, err := e.repo.LLMUsageByPurpose(ctx)
			if err != nil {
				return fmt.Errorf("query usage: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(byPurpose) == 0 {
				fmt.Fprintln(out, "No LLM usage recorded yet.")
				return nil
			}
			printUsageByPurpose(out, byPurpose)

			byModel, err := e.repo.LLMUsageByModel(ctx)
			if err != nil {
				return fmt.Errorf("query model usage: %w", err)
			}
			if len(byModel) > 0 {
				fmt.Fprintln(out)
				printCostByModel(out, byModel)
			}
			return nil
		},
	}
}

func printUsageByPurpose(w io.Writer, stats []store.LLMUsage) {
	fmt.Fprintln(w, "Usage by Purpose")
	fmt.Fprintln(w, strings.Repeat("─", 76))
	fmt.Fprintf(w, "%-20s  %6s  %10s  %10s  %10s  %8s\n",
		"Purpose", "Calls", "Input", "Output", "Total", "Avg Ms")
	fmt.Fprintln(w, strings.Repeat("─", 76))

	var totalCalls, totalIn, totalOut int
	for _, st := range stats {
		fmt.Fprintf(w, "%-20s  %6d  %10d  %10d  %10d  %8.0f\n",
			truncate(st.Key, 20), st.Calls, st.InputTokens, st.OutputTokens, st.InputTokens+st.OutputTokens, st.AvgLatencyMs)
		totalCalls += st.Calls
		totalIn += st.InputTokens
		totalOut += st.OutputTokens
	}
	fmt.Fprintln(w, strings.Repeat("─", 76))
	fmt.Fprintf(w, "%-20s  %6d  %10d  %10d  %10d\n",
		"TOTAL", totalCalls, totalIn, totalOut, totalIn+totalOut)
}

func printCostByModel(w io.Writer, usage []store.LLMUsage) {
	fmt.Fprintln(w, "Estimated Cost (USD)")
	fmt.Fprintln(w, strings.Repeat("─", 76))
	fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
	fmt.Fprintln(w, strings.Repeat("─", 76))

	var (
		totalCost float64
		unknown   []string
	)
	for _, mu := range usage {
		cost := llm.LookupCost(mu.Key)
		if cost == nil {
			unknown = append(unknown, mu.Key)
			fmt.Fprintf(w, "%-32s  %6d  %10d  %10d  %10s\n",
				truncate(mu.Key, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, "?")
			continue
		}
		c := cost.Cost(mu.InputTokens, mu.OutputTokens)
		totalCost += c
		fmt.Fprintf(w, "%-32s  %6d  %10d  %10d  %10s\n",
			truncate(mu.Key, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, formatCost(c))
	}

	fmt.Fprintln(w, strings.Repeat("─", 76))
	label := "TOTAL"
	if len(unknown) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(totalCost))
	if len(unknown) > 0 {
		fmt.Fprintf(w, "\nPricing unavailable for: %s\n", strings.Join(unknown, ", "))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}
