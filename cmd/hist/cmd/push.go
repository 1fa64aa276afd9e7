package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Mirror the local history to the remote",
	Long: `Upload the local history to the remote, replacing what is there.

Refused when the remote has a commit missing locally (pull first) or when
the remote is already up to date.`,
	Args: cobra.NoArgs,
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	repo, err := openRepo()
	if err != nil {
		return err
	}
	if err := repo.Push(cmd.Context()); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	return nil
}
