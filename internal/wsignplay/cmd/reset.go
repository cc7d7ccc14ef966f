package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/app"
)

func newResetCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the device credential",
		Long: `Remove the stored device credential so the player pairs again. A running
player keeps its credential in memory until it is restarted or the backend
rejects it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := app.NewCredentialStore(o.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("error clearing credential: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Device credential removed")
			return nil
		},
	}
}
