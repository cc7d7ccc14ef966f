package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/app"
)

func newRunCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the player",
		Long: `Run the player until interrupted. The kiosk page is served on the local
server address; point a full-screen browser at it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(o.cfg)
			if err := application.Err(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			startCtx, stopStart := context.WithTimeout(ctx, application.StartTimeout())
			defer stopStart()
			if err := application.Start(startCtx); err != nil {
				return err
			}

			<-ctx.Done()

			stopCtx, stopStop := context.WithTimeout(context.Background(), application.StopTimeout())
			defer stopStop()
			return application.Stop(stopCtx)
		},
	}
}
