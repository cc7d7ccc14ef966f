package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/database"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/mediacache"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/util"
)

func newCacheCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the media cache",
	}
	cmd.AddCommand(newCacheListCmd(o))
	return cmd
}

func newCacheListCmd(o *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(o.cfg.Cache.Dir, 0o755); err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), filepath.Join(o.cfg.Cache.Dir, mediacache.IndexFile))
			if err != nil {
				return fmt.Errorf("error opening cache index: %w", err)
			}
			defer db.Close()

			cache, err := mediacache.New(db, mediacache.Options{Dir: o.cfg.Cache.Dir}, zerolog.Nop(), nil)
			if err != nil {
				return err
			}
			entries, err := cache.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing cache: %w", err)
			}

			if output == "json" {
				if entries == nil {
					entries = []mediacache.Entry{}
				}
				return util.PrintJSON(cmd.OutOrStdout(), entries)
			}

			tw := util.NewTabWriter(cmd.OutOrStdout())
			defer tw.Flush()
			fmt.Fprintf(tw, "KEY\tSIZE\tTYPE\tSTORED\tURL\n")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					shortFingerprint(e.Key),
					util.FormatBytes(e.Size),
					e.ContentType,
					e.StoredAt.Local().Format("2006-01-02 15:04"),
					e.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	return cmd
}
