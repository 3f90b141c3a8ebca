package cli

import (
	"github.com/alexanderramin/liminal/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(st *state) *cobra.Command {
	var addr string
	var noMonitor bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API and websocket refresh channel",
		Args:  cobra.NoArgs,
		RunE: st.with(func(cmd *cobra.Command, app *App, userID string) error {
			if addr == "" {
				addr = app.Config.HTTPAddr
			}
			srv := server.New(server.Deps{
				Assistant:   app.Assistant,
				Scorer:      app.Scorer,
				Chats:       app.Chats,
				Hub:         app.Hub,
				DefaultUser: userID,
			}, app.Log)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return srv.ListenAndServe(ctx, addr) })
			if !noMonitor {
				g.Go(func() error { return app.Monitor.Run(ctx) })
			}
			return g.Wait()
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config http_addr)")
	cmd.Flags().BoolVar(&noMonitor, "no-monitor", false, "Do not run the deadline monitor")
	return cmd
}
