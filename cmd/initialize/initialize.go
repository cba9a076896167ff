// Package initialize implements the init command: create the
// collection layout, apply the index schema, and repair any
// inconsistencies between folders and index.
package initialize

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webhoard/webhoard/cmd/common"
	"github.com/webhoard/webhoard/internal/config"
	"github.com/webhoard/webhoard/internal/folders"
	"github.com/webhoard/webhoard/internal/status"
)

// Command returns the init command for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize or repair the collection",
		Long: `Create the collection layout (archive/, sources/, the sqlite index)
under the data directory, then reconcile folders with the index:
misnamed folders are renamed to their recorded timestamp, and orphaned
folders with readable metadata are adopted back into the index.

Safe to run on an existing collection; it never deletes data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig()
			if err != nil {
				return err
			}

			for _, dir := range []string{
				cfg.Storage.DataDir,
				cfg.ArchiveDir(),
				cfg.SourcesDir(),
			} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create %s: %w", dir, err)
				}
			}

			// Opening the index applies the schema.
			app, err := common.OpenApp()
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initialized collection at %s\n", cfg.Storage.DataDir)
			fmt.Fprintf(out, "  %s/\n", config.ArchiveDirName)
			fmt.Fprintf(out, "  %s/\n", config.SourcesDirName)
			fmt.Fprintf(out, "  %s\n", config.IndexFileName)

			result, err := app.NewRepairEngine().Repair(cmd.Context())
			if err != nil {
				return fmt.Errorf("repair failed: %w", err)
			}

			for _, relocation := range result.Fixed {
				fmt.Fprintf(out, "Relocated %s -> %s\n", relocation.From, relocation.To)
			}
			for _, ts := range result.Adopted {
				fmt.Fprintf(out, "Adopted orphaned folder %s\n", ts)
			}
			for _, conflict := range result.Unfixable {
				fmt.Fprintf(out, "Could not repair %s: %s\n", conflict.Folder, conflict.Reason)
			}

			// Report what remains broken after repair.
			snaps, err := app.Index.All(cmd.Context())
			if err != nil {
				return fmt.Errorf("load index: %w", err)
			}
			report, err := status.Classify(snaps, app.Folders, folders.NormalizeName)
			if err != nil {
				return fmt.Errorf("classify archive: %w", err)
			}

			fmt.Fprintf(out, "\n%d snapshot(s) indexed, %d folder(s) present\n",
				report.Count(status.Indexed), report.Count(status.Present))
			if invalid := report.Count(status.Invalid); invalid > 0 {
				fmt.Fprintf(out, "%d folder(s) still invalid:\n", invalid)
				for _, key := range report.Keys(status.Invalid) {
					fmt.Fprintf(out, "  %s\n", key)
				}
			}
			return nil
		},
	}

	return cmd
}
