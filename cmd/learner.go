package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLearnerCmd() *cobra.Command {
	learnerCmd := &cobra.Command{
		Use:   "learner",
		Short: "Manage learners",
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a learner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			l, err := e.repo.CreateLearner(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created learner %d (%s)\n", l.ID, l.Name)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List learners",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			learners, err := e.repo.ListLearners(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(learners) == 0 {
				fmt.Fprintln(out, "No learners yet. Add one with: ebbinghaus learner add <name>")
				return nil
			}
			fmt.Fprintf(out, "%-5s  %-24s  %s\n", "ID", "Name", "Created")
			fmt.Fprintln(out, strings.Repeat("─", 52))
			for _, l := range learners {
				fmt.Fprintf(out, "%-5d  %-24s  %s\n", l.ID, truncate(l.Name, 24), l.CreatedAt.In(e.loc).Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	learnerCmd.AddCommand(addCmd, listCmd)
	return learnerCmd
}
