package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type state struct {
	build Builder
	opts  Options
}

// with builds the App for the duration of fn and resolves the acting user:
// --user wins over the configured one.
func (s *state) with(fn func(cmd *cobra.Command, app *App, userID string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		app, release, err := s.build(cmd.Context(), s.opts)
		if err != nil {
			return err
		}
		defer release()

		userID := s.opts.User
		if userID == "" && app.Config != nil {
			userID = app.Config.User
		}
		return fn(cmd, app, userID)
	}
}

// NewRootCmd creates the top-level "liminal" command. build is called once
// per command run, after flags are parsed.
func NewRootCmd(build Builder) *cobra.Command {
	st := &state{build: build}

	root := &cobra.Command{
		Use:           "liminal",
		Short:         "Conversational task assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bindGlobalFlags(root.PersistentFlags(), &st.opts)

	root.AddCommand(
		newChatCmd(st),
		newTasksCmd(st),
		newSuggestCmd(st),
		newMonitorCmd(st),
		newServeCmd(st),
	)
	return root
}

func bindGlobalFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVar(&o.ConfigPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&o.DBPath, "db", "", "SQLite database path (overrides config)")
	fs.StringVar(&o.User, "user", "", "Act as this user ID (overrides config)")
	fs.BoolVar(&o.Debug, "debug", false, "Enable debug logging")
}
