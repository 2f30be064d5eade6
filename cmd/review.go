package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/app"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/scheduling"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newEnrollCmd() *cobra.Command {
	var learner, itemRef string
	c := &cobra.Command{
		Use:   "enroll",
		Short: "Start reviewing an item (GATE_1, due tomorrow)",
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item", itemRef)
			if err != nil {
				return err
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			l, err := e.resolveLearner(ctx, learner)
			if err != nil {
				return err
			}
			st, created, err := e.svc.Enroll(ctx, l.ID, itemID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintf(out, "Item %d is already enrolled (%s).\n", itemID, describeState(st))
				return nil
			}
			fmt.Fprintf(out, "Enrolled item %d: %s\n", itemID, describeState(st))
			return nil
		},
	}
	c.Flags().StringVarP(&learner, "learner", "l", "", "Learner ID or name")
	c.Flags().StringVarP(&itemRef, "item", "i", "", "Item ID")
	_ = c.MarkFlagRequired("learner")
	_ = c.MarkFlagRequired("item")
	return c
}

func describeState(st review.State) string {
	if !st.NextReviewDate.IsValid() {
		return fmt.Sprintf("%s, %d attempts", st.Gate, st.AttemptCount)
	}
	return fmt.Sprintf("%s, next review %s, %d attempts", st.Gate, st.NextReviewDate, st.AttemptCount)
}

func newSubmitCmd() *cobra.Command {
	var (
		learner, itemRef string
		asJSON           bool
	)
	c := &cobra.Command{
		Use:   "submit <answer>",
		Short: "Answer an item",
		Long: "Answer an item. Single choice answers are zero-based indexes; true/false\n" +
			"accepts true, false, t, f, yes, no, y, n, o and x.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item", itemRef)
			if err != nil {
				return err
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			l, err := e.resolveLearner(ctx, learner)
			if err != nil {
				return err
			}
			res, err := e.svc.SubmitAnswer(ctx, l.ID, itemID, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printSubmitResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	c.Flags().StringVarP(&learner, "learner", "l", "", "Learner ID or name")
	c.Flags().StringVarP(&itemRef, "item", "i", "", "Item ID")
	c.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = c.MarkFlagRequired("learner")
	_ = c.MarkFlagRequired("item")
	return c
}

func printSubmitResult(w io.Writer, res scheduling.SubmitResult) {
	if res.IsCorrect {
		fmt.Fprintln(w, "✓ Correct")
	} else {
		fmt.Fprintln(w, "✗ Incorrect")
	}
	if res.Explanation != "" {
		fmt.Fprintln(w, "Explanation:", res.Explanation)
	}
	if fb := res.Feedback; fb != nil {
		fmt.Fprintln(w, "Feedback:   ", fb.Text)
		if len(fb.MissingKeywords) > 0 {
			fmt.Fprintln(w, "Missing:    ", strings.Join(fb.MissingKeywords, ", "))
		}
	}
	switch {
	case res.Gate == nil:
		fmt.Fprintln(w, "Not enrolled; the answer was recorded without scheduling.")
	case !res.IsFirstAttemptToday:
		fmt.Fprintf(w, "Already answered today; schedule unchanged (%s).\n", *res.Gate)
	default:
		next := "none"
		if res.NextReviewDate != nil {
			next = res.NextReviewDate.String()
		}
		fmt.Fprintf(w, "Gate: %s  Next review: %s  Attempts: %d\n", *res.Gate, next, *res.AttemptCount)
	}
	fmt.Fprintln(w, "Attempt:", res.AttemptID)
}

func newTodayCmd() *cobra.Command {
	var (
		learner, filter, sortBy string
		asJSON                  bool
	)
	c := &cobra.Command{
		Use:   "today",
		Short: "Show today's review list and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := scheduling.ParseSortOrder(sortBy)
			if err != nil {
				return err
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			l, err := e.resolveLearner(ctx, learner)
			if err != nil {
				return err
			}
			if err := e.catchUp(ctx); err != nil {
				e.log.Warn("snapshot catch-up failed", "error", err)
			}
			tr, err := e.svc.GetTodayReview(ctx, l.ID, filter, order)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), tr)
			}
			printTodayReview(cmd.OutOrStdout(), tr)
			return nil
		},
	}
	c.Flags().StringVarP(&learner, "learner", "l", "", "Learner ID or name")
	c.Flags().StringVarP(&filter, "filter", "f", "ALL", "ALL, GATE_1 or GATE_2")
	c.Flags().StringVar(&sortBy, "sort", "item", "item or incomplete")
	c.Flags().BoolVar(&asJSON, "json", false, "Print the review as JSON")
	_ = c.MarkFlagRequired("learner")
	return c
}

func printTodayReview(w io.Writer, tr scheduling.TodayReview) {
	d := tr.Dashboard
	fmt.Fprintf(w, "Today %s  (filter %s)\n", tr.Date, tr.Filter)
	fmt.Fprintf(w, "Total %d  Completed %d  Remaining %d  Progress %.1f%%\n",
		d.TotalCount, d.CompletedCount, d.IncompletedCount, d.ProgressRate)
	if len(tr.Items) == 0 {
		fmt.Fprintln(w, "Nothing to review.")
		return
	}
	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "%-5s  %-8s  %-13s  %-4s  %s\n", "ID", "Gate", "Type", "Done", "Question")
	for _, it := range tr.Items {
		done := ""
		if it.Completed {
			done = "✓"
		}
		fmt.Fprintf(w, "%-5d  %-8s  %-13s  %-4s  %s\n", it.ItemID, it.Gate, it.Type, done, truncate(it.Question, 40))
		for i, c := range it.Choices {
			fmt.Fprintf(w, "%44s%d) %s\n", "", i, c)
		}
	}
}

func newDueCmd() *cobra.Command {
	var learner string
	c := &cobra.Command{
		Use:   "due",
		Short: "List review states due today",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			l, err := e.resolveLearner(ctx, learner)
			if err != nil {
				return err
			}
			states, err := e.svc.DueItems(ctx, l.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(states) == 0 {
				fmt.Fprintln(out, "Nothing due today.")
				return nil
			}
			fmt.Fprintf(out, "%-5s  %-9s  %-10s  %-8s  %s\n", "Item", "Gate", "Next", "Attempts", "Snapshot")
			fmt.Fprintln(out, strings.Repeat("─", 56))
			for _, st := range states {
				next, snap := "-", "-"
				if st.NextReviewDate.IsValid() {
					next = st.NextReviewDate.String()
				}
				if st.TodaySnapshotDate.IsValid() {
					snap = fmt.Sprintf("%s@%s", st.TodaySnapshotGate, st.TodaySnapshotDate)
				}
				fmt.Fprintf(out, "%-5d  %-9s  %-10s  %-8d  %s\n", st.ItemID, st.Gate, next, st.AttemptCount, snap)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&learner, "learner", "l", "", "Learner ID or name")
	_ = c.MarkFlagRequired("learner")
	return c
}

func newHistoryCmd() *cobra.Command {
	var (
		learner, itemRef string
		limit            int
	)
	c := &cobra.Command{
		Use:   "history",
		Short: "Show recent attempts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var itemID int64
			if itemRef != "" {
				id, err := parseID("item", itemRef)
				if err != nil {
					return err
				}
				itemID = id
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			l, err := e.resolveLearner(ctx, learner)
			if err != nil {
				return err
			}
			attempts, err := e.svc.History(ctx, l.ID, itemID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No attempts found.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-16s  %-5s  %-3s  %-5s  %s\n", "Attempt", "Time", "Item", "OK", "First", "Answer")
			fmt.Fprintln(out, strings.Repeat("─", 96))
			for _, a := range attempts {
				ok, first := "✗", ""
				if a.Correct {
					ok = "✓"
				}
				if a.FirstOfDay {
					first = "yes"
				}
				fmt.Fprintf(out, "%-36s  %-16s  %-5d  %-3s  %-5s  %s\n",
					a.ID, a.CreatedAt.In(e.loc).Format("2006-01-02 15:04"), a.ItemID, ok, first, truncate(a.Answer, 24))
				if a.Feedback != nil && a.Feedback.Text != "" {
					fmt.Fprintf(out, "%38s%s\n", "", truncate(a.Feedback.Text, 56))
				}
			}
			return nil
		},
	}
	c.Flags().StringVarP(&learner, "learner", "l", "", "Learner ID or name")
	c.Flags().StringVarP(&itemRef, "item", "i", "", "Only this item")
	c.Flags().IntVarP(&limit, "limit", "n", 20, "Number of attempts to show")
	_ = c.MarkFlagRequired("learner")
	return c
}

func newRegradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regrade <attempt-id>",
		Short: "Re-run AI grading for a free-text attempt and attach the feedback",
		Long: "Re-run AI grading for a recorded free-text attempt. The feedback is attached\n" +
			"to the attempt; the recorded verdict and the review schedule do not change.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			fb, err := e.svc.RegradeAttempt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Feedback:", fb.Text)
			if len(fb.MissingKeywords) > 0 {
				fmt.Fprintln(out, "Missing: ", strings.Join(fb.MissingKeywords, ", "))
			}
			if fb.ScoringReason != "" {
				fmt.Fprintln(out, "Reason:  ", fb.ScoringReason)
			}
			return nil
		},
	}
}

func newReviewCmd() *cobra.Command {
	var learner, filter, sortBy string
	c := &cobra.Command{
		Use:   "review",
		Short: "Open the interactive review session",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := review.ParseGateFilter(filter)
			if err != nil {
				return err
			}
			order, err := scheduling.ParseSortOrder(sortBy)
			if err != nil {
				return err
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			l, err := e.resolveLearner(ctx, learner)
			if err != nil {
				return err
			}
			if err := e.catchUp(ctx); err != nil {
				e.log.Warn("snapshot catch-up failed", "error", err)
			}
			return app.Run(ctx, e.svc, app.Options{
				LearnerID:   l.ID,
				LearnerName: l.Name,
				Filter:      f,
				Order:       order,
			})
		},
	}
	c.Flags().StringVarP(&learner, "learner", "l", "", "Learner ID or name")
	c.Flags().StringVarP(&filter, "filter", "f", "ALL", "ALL, GATE_1 or GATE_2")
	c.Flags().StringVar(&sortBy, "sort", "item", "item or incomplete")
	_ = c.MarkFlagRequired("learner")
	return c
}
