package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMonitorCmd(st *state) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Scan for overdue and soon-due tasks and post alerts",
		Args:  cobra.NoArgs,
		RunE: st.with(func(cmd *cobra.Command, app *App, _ string) error {
			if !once {
				return app.Monitor.Run(cmd.Context())
			}
			alerted, err := app.Monitor.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alerted %d user(s)\n", alerted)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single scan and exit")
	return cmd
}
