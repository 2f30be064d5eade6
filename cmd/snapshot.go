package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/jobs"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

func newSnapshotCmd() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Run or inspect the daily review snapshot",
	}

	var date string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Capture the review set for a day (default: today)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			job, closeJob, err := e.snapshotJob(ctx)
			if err != nil {
				return err
			}
			defer closeJob()

			day := job.Today()
			if date != "" {
				day, err = civil.ParseDate(date)
				if err != nil {
					return fmt.Errorf("%w: --date %q", review.ErrInvalidInput, date)
				}
			}
			res, err := job.Run(ctx, day)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintf(out, "Snapshot for %s is already running elsewhere; skipped.\n", res.Date)
				return nil
			}
			fmt.Fprintf(out, "Snapshot for %s captured %d review states.\n", res.Date, res.RowsUpdated)
			return nil
		},
	}
	runCmd.Flags().StringVar(&date, "date", "", "Day to capture, YYYY-MM-DD")

	var limit int
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent snapshot runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			runs, err := e.repo.ListSnapshotRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No snapshot has run yet.")
				return nil
			}
			fmt.Fprintf(out, "%-10s  %6s  %s\n", "Date", "Rows", "Ran at")
			fmt.Fprintln(out, strings.Repeat("─", 40))
			for _, r := range runs {
				fmt.Fprintf(out, "%-10s  %6d  %s\n", r.Date, r.RowsUpdated, r.RanAt.In(e.loc).Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	statusCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")

	snapshotCmd.AddCommand(runCmd, statusCmd)
	return snapshotCmd
}

func newScheduleCmd() *cobra.Command {
	var (
		spec       string
		runOnStart bool
	)
	c := &cobra.Command{
		Use:   "schedule",
		Short: "Run the daily snapshot on a cron schedule until interrupted",
		Long: "Run the daily snapshot on a cron schedule until interrupted. With redis.addr\n" +
			"set, replicas share a lock so each day is captured by one runner.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if !cmd.Flags().Changed("cron") {
				spec = e.cfg.Snapshot.Schedule
			}
			if !cmd.Flags().Changed("run-on-start") {
				runOnStart = e.cfg.Snapshot.RunOnStart
			}

			job, closeJob, err := e.snapshotJob(ctx)
			if err != nil {
				return err
			}
			defer closeJob()

			sched, err := jobs.NewScheduler(job, spec, runOnStart, e.log)
			if err != nil {
				return fmt.Errorf("%w: %v", review.ErrInvalidInput, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot scheduled %q in %s. Press Ctrl+C to stop.\n", spec, e.loc)
			return sched.Run(ctx)
		},
	}
	c.Flags().StringVar(&spec, "cron", jobs.DefaultSchedule, "Cron spec (5 fields or @daily style)")
	c.Flags().BoolVar(&runOnStart, "run-on-start", true, "Capture today immediately on start")
	return c
}
