package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var commitCmd = &cobra.Command{
	Use:   "commit -d <description>",
	Short: "Record the working tree",
	Long:  "Record every changed file of the working tree as a new commit. The commit is logged even when nothing changed.",
	Args:  cobra.NoArgs,
	RunE:  runCommit,
}

func init() {
	commitCmd.Flags().StringP("description", "d", "", "commit description")
	commitCmd.Flags().Bool("atomic", false, "read every file before writing anything")
	commitCmd.MarkFlagRequired("description")

	viper.BindPFlag("atomic_commit", commitCmd.Flags().Lookup("atomic"))

	rootCmd.AddCommand(commitCmd)
}

func runCommit(cmd *cobra.Command, args []string) error {
	desc, _ := cmd.Flags().GetString("description")

	repo, err := openRepo()
	if err != nil {
		return err
	}

	res, err := repo.Commit(cmd.Context(), desc)
	if err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d changed)\n", res.Commit.ID, res.Commit.Description, len(res.Changed))
	return nil
}
