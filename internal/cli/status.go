package cli

import (
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check who is signed in",
		Long:  "Restore the session from stored cookies and ask the server who it belongs to.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			application.Start(cmd.Context())
			printIdentity(cmd.OutOrStdout(), application.State().Current())
			return nil
		},
	}
}
