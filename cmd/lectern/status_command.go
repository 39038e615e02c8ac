package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/procstate"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and processing status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var status *api.DaemonStatus
			err := ctx.withClient(func(client *api.Client) error {
				var clientErr error
				status, clientErr = client.Status(cmd.Context())
				return clientErr
			})
			if err == nil && status != nil {
				fmt.Fprintf(out, "Daemon: running (pid %d)\n", status.PID)
				fmt.Fprintf(out, "State database: %s\n", status.StateDBPath)
				fmt.Fprintf(out, "Video provider: %s  Transcription: %s  Ingestion: %s\n",
					yesNo(status.Capabilities.VideoProvider),
					yesNo(status.Capabilities.Transcription),
					yesNo(status.Capabilities.Ingestion))
				fmt.Fprintln(out, renderPhaseTable(status.Phases))
				return nil
			}

			// Daemon unreachable; read the state database directly.
			return ctx.withStore(func(store *procstate.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Daemon: not running")
				fmt.Fprintf(out, "State database: %s\n", store.Path())
				fmt.Fprintln(out, renderPhaseTable(api.MergePhaseStats(stats)))
				return nil
			})
		},
	}
}

func renderPhaseTable(phases map[string]int) string {
	keys := make([]string, 0, len(phases))
	for phase := range phases {
		keys = append(keys, phase)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, phase := range keys {
		rows = append(rows, []string{phase, strconv.Itoa(phases[phase])})
	}
	return renderTable([]string{"Phase", "Units"}, rows, []columnAlignment{alignLeft, alignRight})
}
