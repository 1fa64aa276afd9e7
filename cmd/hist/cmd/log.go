package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "List commits",
	Long:  "List every commit, oldest first.",
	Args:  cobra.NoArgs,
	RunE:  runCommits,
}

var logCmd = &cobra.Command{
	Use:   "log <path>",
	Short: "Show the versions of a file",
	Long:  "Show every recorded version of a file with its byte range in the data blob.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

func init() {
	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(logCmd)
}

func runCommits(cmd *cobra.Command, args []string) error {
	repo, err := openRepo()
	if err != nil {
		return err
	}

	commits, err := repo.Commits()
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no commits)")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, c := range commits {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Date, c.ID, c.Description)
	}
	return w.Flush()
}

func runLog(cmd *cobra.Command, args []string) error {
	repo, err := openRepo()
	if err != nil {
		return err
	}

	versions, err := repo.History(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, v := range versions {
		fmt.Fprintf(w, "%s\t%s\t%d+%d\t%s\n", v.Date, v.CommitID, v.Pointer, v.Size, v.Description)
	}
	return w.Flush()
}
