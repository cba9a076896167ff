// Package list implements the list command: display the snapshots in
// the index, optionally filtered by status.
package list

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/webhoard/webhoard/cmd/common"
	"github.com/webhoard/webhoard/internal/folders"
	"github.com/webhoard/webhoard/internal/snapshot"
	"github.com/webhoard/webhoard/internal/status"
)

// Command returns the list command for use in the root command.
func Command() *cobra.Command {
	var (
		onlyStatus string
		after      string
		before     string
		reverse    bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots in the index",
		Long: `List every snapshot in the index in ascending timestamp order.

--status restricts the listing to one classification set; sets that are
folder-derived (orphaned, unrecognized) list directory names instead of
index entries. --after/--before bound the listing by timestamp, --reverse
flips the order, and --json emits machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bounds, err := parseBounds(after, before)
			if err != nil {
				return err
			}

			app, err := common.OpenApp()
			if err != nil {
				return err
			}
			defer app.Close()

			snaps, err := app.Index.All(cmd.Context())
			if err != nil {
				return fmt.Errorf("load index: %w", err)
			}

			if onlyStatus != "" {
				snaps, err = filterByStatus(snaps, app, onlyStatus)
				if err != nil {
					return err
				}
			}

			snaps = bounds.apply(snaps)
			if reverse {
				for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
					snaps[i], snaps[j] = snaps[j], snaps[i]
				}
			}
			return render(snaps, asJSON, cmd)
		},
	}

	cmd.Flags().StringVar(&onlyStatus, "status", "",
		"Only list entries in this status set (e.g. archived, orphaned)")
	cmd.Flags().StringVar(&after, "after", "",
		"Only list snapshots with timestamp at or after this value")
	cmd.Flags().StringVar(&before, "before", "",
		"Only list snapshots with timestamp strictly before this value")
	cmd.Flags().BoolVar(&reverse, "reverse", false,
		"List newest first")
	cmd.Flags().BoolVar(&asJSON, "json", false,
		"Emit JSON instead of a table")

	return cmd
}

// timeBounds is an optional [after, before) timestamp window.
type timeBounds struct {
	after  snapshot.Timestamp
	before snapshot.Timestamp
}

func parseBounds(after, before string) (timeBounds, error) {
	var bounds timeBounds
	var err error
	if after != "" {
		if bounds.after, err = snapshot.ParseTimestamp(after); err != nil {
			return bounds, fmt.Errorf("invalid --after: %w", err)
		}
	}
	if before != "" {
		if bounds.before, err = snapshot.ParseTimestamp(before); err != nil {
			return bounds, fmt.Errorf("invalid --before: %w", err)
		}
	}
	return bounds, nil
}

func (b timeBounds) apply(snaps []*snapshot.Snapshot) []*snapshot.Snapshot {
	if b.after == "" && b.before == "" {
		return snaps
	}
	filtered := make([]*snapshot.Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		if b.after != "" && !snap.Timestamp.AtOrAfter(b.after) {
			continue
		}
		if b.before != "" && !snap.Timestamp.Before(b.before) {
			continue
		}
		filtered = append(filtered, snap)
	}
	return filtered
}

// filterByStatus restricts the listing to one classification set,
// substituting a bare-timestamp record for folders with no readable
// identity.
func filterByStatus(snaps []*snapshot.Snapshot, app *common.App, name string) ([]*snapshot.Snapshot, error) {
	st, err := status.Parse(name)
	if err != nil {
		return nil, err
	}
	report, err := status.Classify(snaps, app.Folders, folders.NormalizeName)
	if err != nil {
		return nil, fmt.Errorf("classify archive: %w", err)
	}

	var filtered []*snapshot.Snapshot
	for _, key := range report.Keys(st) {
		if snap := report[st][key]; snap != nil {
			filtered = append(filtered, snap)
			continue
		}
		filtered = append(filtered, &snapshot.Snapshot{Timestamp: snapshot.Timestamp(key)})
	}
	return filtered, nil
}

func render(snaps []*snapshot.Snapshot, asJSON bool, cmd *cobra.Command) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}

	if len(snaps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Timestamp", "URL", "Title", "Tags", "Outputs", "Size"})
	for _, snap := range snaps {
		t.AppendRow(table.Row{
			string(snap.Timestamp),
			common.Truncate(snap.URL, 60),
			common.Truncate(snap.Title, 40),
			strings.Join(snap.Tags, ","),
			snap.NumOutputs,
			common.FormatBytes(snap.ArchiveSize),
		})
	}

	t.Render()
	return nil
}
