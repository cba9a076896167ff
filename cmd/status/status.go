// Package status implements the status command: classify the whole
// collection and display the counts per set.
package status

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/webhoard/webhoard/cmd/common"
	"github.com/webhoard/webhoard/internal/folders"
	"github.com/webhoard/webhoard/internal/snapshot"
	"github.com/webhoard/webhoard/internal/status"
)

// recentLimit bounds how many recent snapshots the summary shows.
const recentLimit = 10

// Command returns the status command for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show collection health",
		Long: `Classify every index entry and archive folder and show the size of
each status set, plus the most recently added snapshots. Classification
is read-only and safe to run while archiving is in flight.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := common.OpenApp()
			if err != nil {
				return err
			}
			defer app.Close()

			snaps, err := app.Index.All(cmd.Context())
			if err != nil {
				return fmt.Errorf("load index: %w", err)
			}

			report, err := status.Classify(snaps, app.Folders, folders.NormalizeName)
			if err != nil {
				return fmt.Errorf("classify archive: %w", err)
			}

			var totalSize int64
			for _, snap := range snaps {
				totalSize += snap.ArchiveSize
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Collection root: %s\n", app.Cfg.Storage.DataDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Archive size:    %s\n\n", common.FormatBytes(totalSize))

			renderCounts(report)

			if invalid := report.Count(status.Invalid); invalid > 0 {
				fmt.Fprintf(cmd.OutOrStdout(),
					"\n%d folder(s) need attention; run \"webhoard init\" to repair.\n", invalid)
			}

			renderRecent(snaps, cmd.OutOrStdout())
			return nil
		},
	}

	return cmd
}

// renderCounts prints one row per status set.
func renderCounts(report status.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Status", "Count"})
	for _, st := range status.All {
		t.AppendRow(table.Row{string(st), report.Count(st)})
	}

	t.Render()
}

// renderRecent prints the newest snapshots. The index returns them in
// ascending timestamp order, so the tail is the most recent.
func renderRecent(snaps []*snapshot.Snapshot, out io.Writer) {
	if len(snaps) == 0 {
		return
	}

	recent := snaps
	if len(recent) > recentLimit {
		recent = recent[len(recent)-recentLimit:]
	}

	fmt.Fprintf(out, "\nMost recent %d snapshot(s):\n", len(recent))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Timestamp", "URL", "Title", "Outputs"})
	for i := len(recent) - 1; i >= 0; i-- {
		snap := recent[i]
		t.AppendRow(table.Row{
			string(snap.Timestamp),
			common.Truncate(snap.URL, 60),
			common.Truncate(snap.Title, 40),
			snap.NumOutputs,
		})
	}

	t.Render()
}
