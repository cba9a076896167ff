// Package remove implements the remove command: delete snapshots from
// the index, optionally deleting their archive folders too.
package remove

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webhoard/webhoard/cmd/common"
	"github.com/webhoard/webhoard/internal/index"
	"github.com/webhoard/webhoard/internal/snapshot"
)

// Command returns the remove command for use in the root command.
func Command() *cobra.Command {
	var (
		byURL      bool
		deleteData bool
	)

	cmd := &cobra.Command{
		Use:   "remove <timestamp>...",
		Short: "Remove snapshots from the index",
		Long: `Remove snapshots from the index by timestamp, or by URL with --url.

By default the archive folder is kept on disk and becomes orphaned;
--delete removes the folder as well. Removal of a timestamp that is not
in the index is an error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := common.OpenApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			removed := 0
			for _, arg := range args {
				ts := snapshot.Timestamp(arg)
				if byURL {
					snap, getErr := app.Index.GetByURL(ctx, arg)
					if getErr != nil {
						if errors.Is(getErr, index.ErrNotFound) {
							return fmt.Errorf("url not indexed: %s", arg)
						}
						return getErr
					}
					ts = snap.Timestamp
				}

				if err := app.Index.Delete(ctx, ts); err != nil {
					if errors.Is(err, index.ErrNotFound) {
						return fmt.Errorf("timestamp not indexed: %s", ts)
					}
					return err
				}

				if deleteData {
					if err := app.Folders.Remove(string(ts)); err != nil {
						app.Log.Warn("could not delete folder", "timestamp", ts, "error", err)
					}
				}
				removed++
				app.Log.Info("removed snapshot", "timestamp", ts, "deleted_data", deleteData)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshot(s)\n", removed)
			if !deleteData {
				fmt.Fprintln(cmd.OutOrStdout(),
					"Archive folders were kept; re-run with --delete to remove them")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&byURL, "url", false,
		"Treat arguments as URLs instead of timestamps")
	cmd.Flags().BoolVar(&deleteData, "delete", false,
		"Also delete the archive folders from disk")

	return cmd
}
