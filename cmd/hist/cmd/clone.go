package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cloneCmd = &cobra.Command{
	Use:   "clone -n <name>",
	Short: "Create the history from a remote",
	Long:  "Download a remote history into the working tree and check out its latest commit.",
	Args:  cobra.NoArgs,
	RunE:  runClone,
}

func init() {
	cloneCmd.Flags().StringP("name", "n", "", "remote name")
	cloneCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")

	repo, err := openRepo()
	if err != nil {
		return err
	}
	if err := repo.Clone(cmd.Context(), name); err != nil {
		return fmt.Errorf("clone failed: %w", err)
	}
	return nil
}
