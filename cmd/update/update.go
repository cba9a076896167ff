// Package update implements the update command: re-archive existing
// snapshots, optionally filtered by status or resumed from a
// timestamp.
package update

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webhoard/webhoard/cmd/common"
	"github.com/webhoard/webhoard/internal/archiver"
	"github.com/webhoard/webhoard/internal/folders"
	"github.com/webhoard/webhoard/internal/snapshot"
	"github.com/webhoard/webhoard/internal/status"
)

// Command returns the update command for use in the root command.
func Command() *cobra.Command {
	var (
		resume     string
		overwrite  bool
		onlyStatus string
		methods    []string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Re-archive snapshots already in the index",
		Long: `Run archive methods over snapshots already in the index.

By default methods that previously succeeded are skipped, so update is
cheap to re-run; --overwrite forces re-invocation. --resume restarts an
interrupted batch from a timestamp: only snapshots at or after it are
processed, in ascending order. --status restricts the batch to one
classification set, e.g. --status=unarchived to retry failures only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := common.OpenApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			snaps, err := app.Index.All(ctx)
			if err != nil {
				return fmt.Errorf("load index: %w", err)
			}

			if onlyStatus != "" {
				snaps, err = filterByStatus(snaps, app, onlyStatus)
				if err != nil {
					return err
				}
			}

			result, err := app.NewArchiver().Archive(ctx, snaps, archiver.Options{
				Methods:     methods,
				Overwrite:   overwrite,
				ResumeAfter: snapshot.Timestamp(resume),
			})
			if err != nil {
				return fmt.Errorf("archiving failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Updated %d snapshot(s): %d method invocation(s), %d skipped\n",
				result.Selected, result.Invoked(), len(result.Outcomes)-result.Invoked())
			return nil
		},
	}

	cmd.Flags().StringVar(&resume, "resume", "",
		"Only process snapshots with timestamp at or after this value")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false,
		"Re-run methods even where a previous run succeeded")
	cmd.Flags().StringVar(&onlyStatus, "status", "",
		"Only process snapshots in this status set (e.g. unarchived)")
	cmd.Flags().StringSliceVar(&methods, "extractors", nil,
		"Comma-separated archive methods to run (default: all enabled)")

	return cmd
}

// filterByStatus restricts the batch to snapshots belonging to one
// classification set.
func filterByStatus(snaps []*snapshot.Snapshot, app *common.App, name string) ([]*snapshot.Snapshot, error) {
	st, err := status.Parse(name)
	if err != nil {
		return nil, err
	}

	report, err := status.Classify(snaps, app.Folders, folders.NormalizeName)
	if err != nil {
		return nil, fmt.Errorf("classify archive: %w", err)
	}

	selected := report[st]
	filtered := make([]*snapshot.Snapshot, 0, len(selected))
	for _, snap := range snaps {
		if _, ok := selected[string(snap.Timestamp)]; ok {
			filtered = append(filtered, snap)
		}
	}
	return filtered, nil
}
