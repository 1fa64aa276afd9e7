package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var viewCmd = &cobra.Command{
	Use:   "view -i <commit-id>",
	Short: "Restore a commit into the working tree",
	Long: `Replace the working tree with the snapshot of a commit.

All non-ignored files are deleted first. With the best-effort policy a file
that has no version for the commit is restored at its latest version; the
strict policy restores the last version recorded at or before the commit.`,
	Args: cobra.NoArgs,
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringP("id", "i", "", "commit id")
	viewCmd.Flags().String("policy", "best-effort", "view policy (best-effort, strict)")
	viewCmd.MarkFlagRequired("id")

	viper.BindPFlag("view_policy", viewCmd.Flags().Lookup("policy"))

	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")

	repo, err := openRepo()
	if err != nil {
		return err
	}

	if err := repo.View(cmd.Context(), id); err != nil {
		return fmt.Errorf("view failed: %w", err)
	}
	return nil
}
