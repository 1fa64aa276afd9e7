package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local history with the remote one",
	Long: `Download the remote history, replace the local one and check out its latest commit.

Local commits that were not pushed are discarded.`,
	Args: cobra.NoArgs,
	RunE: runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	repo, err := openRepo()
	if err != nil {
		return err
	}
	if err := repo.Pull(cmd.Context()); err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}
	return nil
}
