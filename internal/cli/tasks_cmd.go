package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/liminal/internal/cli/formatter"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/spf13/cobra"
)

func newTasksCmd(st *state) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List active tasks with their scores",
		Args:  cobra.NoArgs,
		RunE: st.with(func(cmd *cobra.Command, app *App, userID string) error {
			var (
				tasks []*domain.Task
				err   error
			)
			if all {
				tasks, err = app.Tasks.List(cmd.Context(), userID)
			} else {
				tasks, err = app.Tasks.ListActive(cmd.Context(), userID)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTaskList(tasks, app.now()))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include done, blocked and paused tasks")
	return cmd
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}
