package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the history for corruption",
	Long:  "Check every version index against its data blob and the commit log. Nothing is repaired.",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	repo, err := openRepo()
	if err != nil {
		return err
	}

	err = repo.Verify(cmd.Context())
	problems := multierr.Errors(err)
	for _, p := range problems {
		fmt.Fprintln(cmd.ErrOrStderr(), p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("verify failed: %d problem(s)", len(problems))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
