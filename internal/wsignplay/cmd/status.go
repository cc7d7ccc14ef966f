package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	"github.com/wrale/wrale-signage-player/internal/wsignplay/util"
)

func newStatusCmd(o *rootOptions) *cobra.Command {
	var (
		addr   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running player",
		Example: `  # Show status of the local player
  wsignplay status

  # Machine-readable output
  wsignplay status -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = o.cfg.Server.Addr()
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, "http://"+addr+"/api/v1alpha1/status", nil)
			if err != nil {
				return err
			}
			hc := &http.Client{Timeout: 5 * time.Second}
			resp, err := hc.Do(req)
			if err != nil {
				return fmt.Errorf("player not reachable at %s: %w", addr, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status from player: %s", resp.Status)
			}

			var st v1alpha1.PlayerStatus
			if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
				return fmt.Errorf("error decoding status: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), st)
			}
			printStatus(cmd, st)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "player address (default is the configured server address)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	return cmd
}

func printStatus(cmd *cobra.Command, st v1alpha1.PlayerStatus) {
	tw := util.NewTabWriter(cmd.OutOrStdout())
	defer tw.Flush()

	fmt.Fprintf(tw, "STATE:\t%s\n", st.State)
	if st.Detail != "" {
		fmt.Fprintf(tw, "DETAIL:\t%s\n", st.Detail)
	}
	if st.PairingCode != "" {
		fmt.Fprintf(tw, "PAIRING CODE:\t%s\n", st.PairingCode)
	}
	fmt.Fprintf(tw, "SESSION:\t%s\n", st.SessionID)
	fmt.Fprintf(tw, "STARTED:\t%t\n", st.SessionStarted)
	fmt.Fprintf(tw, "ITEMS:\t%d\n", st.ActiveItems)
	if st.Current != nil {
		fmt.Fprintf(tw, "CURRENT:\t%s (%s)\n", st.Current.URL, st.Current.Type)
	}
	if st.ActiveFingerprint != "" {
		fmt.Fprintf(tw, "PLAYLIST:\t%s\n", shortFingerprint(st.ActiveFingerprint))
	}
	if st.PendingFingerprint != "" {
		fmt.Fprintf(tw, "PENDING:\t%s\n", shortFingerprint(st.PendingFingerprint))
	}
	var lastSync time.Time
	if st.LastSync != nil {
		lastSync = *st.LastSync
	}
	fmt.Fprintf(tw, "LAST SYNC:\t%s\n", util.FormatAge(lastSync, time.Now()))
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
