package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ebbinghaus",
		Short: "Spaced review on a three-gate schedule",
		Long: "Ebbinghaus schedules review items on a three-gate forgetting-curve schedule:\n" +
			"GATE_1, then GATE_2 a week later, then GRADUATED.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.String("config", "", "Config file (YAML, TOML or JSON)")
	f.String("db", "", "SQLite file path or Postgres DSN (overrides EBBINGHAUS_DATABASE_DSN)")
	f.String("driver", "", "Database driver: sqlite or postgres")
	f.String("timezone", "", "IANA zone that defines \"today\" (default: host zone)")
	f.String("log-mode", "", "Log mode: dev, prod or quiet")
	f.Bool("tracing", false, "Print OpenTelemetry spans to stderr")

	root.AddCommand(
		newLearnerCmd(),
		newItemCmd(),
		newEnrollCmd(),
		newSubmitCmd(),
		newTodayCmd(),
		newDueCmd(),
		newHistoryCmd(),
		newRegradeCmd(),
		newReviewCmd(),
		newSnapshotCmd(),
		newScheduleCmd(),
		newLLMCmd(),
		newVersionCmd(),
	)
	return root
}

func Execute() error {
	return newRootCmd().Execute()
}

// ExitCode maps an error from Execute to a process exit code: 2 for
// client errors (unknown learner/item, invalid input), 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, review.ErrNotFound), errors.Is(err, review.ErrInvalidInput):
		return 2
	}
	return 1
}
