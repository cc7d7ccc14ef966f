// Package cmd implements the wsignplay command line
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/config"
)

// rootOptions carries state shared by every subcommand
type rootOptions struct {
	cfgFile string
	debug   bool
	v       *viper.Viper
	cfg     *config.Config
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	o := &rootOptions{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "wsignplay",
		Short: "Wrale Signage player",
		Long: `wsignplay runs an unattended digital signage display. It pairs the
device with the signage backend, keeps the assigned playlist in sync, caches
media locally and loops content on a kiosk page without operator attention.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.v, o.cfgFile)
			if err != nil {
				return err
			}
			o.cfg = cfg
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "config file (default is player.yaml in /etc/wrale-signage)")
	flags.String("backend", "", "signage backend base URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&o.debug, "debug", false, "print extra detail")
	_ = o.v.BindPFlag("backend.url", flags.Lookup("backend"))
	_ = o.v.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newRunCmd(o),
		newStatusCmd(o),
		newResetCmd(o),
		newCacheCmd(o),
		newVersionCmd(o),
	)
	return rootCmd
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
