package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setRemoteCmd = &cobra.Command{
	Use:   "set-remote -n <name>",
	Short: "Configure the remote",
	Long: `Record the remote this history syncs with. An existing remote is never replaced.

Remote names are s3://bucket[/prefix] (or a bare bucket name),
oci://registry/repo[:tag] and file://path.`,
	Args: cobra.NoArgs,
	RunE: runSetRemote,
}

func init() {
	setRemoteCmd.Flags().StringP("name", "n", "", "remote name")
	setRemoteCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(setRemoteCmd)
}

func runSetRemote(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")

	repo, err := openRepo()
	if err != nil {
		return err
	}
	if err := repo.SetRemote(name); err != nil {
		return fmt.Errorf("set remote failed: %w", err)
	}
	return nil
}
