// Package add implements the add command: import URLs into the index
// and archive the resulting snapshots.
package add

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webhoard/webhoard/cmd/common"
	"github.com/webhoard/webhoard/internal/archiver"
)

// Command returns the add command for use in the root command.
func Command() *cobra.Command {
	var (
		depth     int
		indexOnly bool
		overwrite bool
		methods   []string
	)

	cmd := &cobra.Command{
		Use:   "add [url|file|-]...",
		Short: "Import URLs and archive them",
		Long: `Import URLs into the collection and archive each new snapshot.

Arguments may be URLs, paths to local files (bookmark exports, RSS
feeds, plain URL lists), or "-" to read from stdin. The input format
is auto-detected. URLs already in the index are skipped.

With --depth=1 each imported page is fetched once and the links found
in it are imported as well. Deeper crawling is not supported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := common.OpenApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			imp := app.NewImporter()

			var raw strings.Builder
			for _, arg := range args {
				switch {
				case arg == "-":
					stdin, readErr := io.ReadAll(cmd.InOrStdin())
					if readErr != nil {
						return fmt.Errorf("read stdin: %w", readErr)
					}
					raw.Write(stdin)
				case fileExists(arg):
					data, readErr := os.ReadFile(arg)
					if readErr != nil {
						return fmt.Errorf("read %s: %w", arg, readErr)
					}
					raw.Write(data)
				default:
					raw.WriteString(arg)
				}
				raw.WriteString("\n")
			}

			created, err := imp.Import(ctx, raw.String(), depth)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %d new snapshot(s)\n", len(created))
			if indexOnly || len(created) == 0 {
				return nil
			}

			result, err := app.NewArchiver().Archive(ctx, created, archiver.Options{
				Methods:   methods,
				Overwrite: overwrite,
			})
			if err != nil {
				return fmt.Errorf("archiving failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d snapshot(s), %d method invocation(s)\n",
				result.Selected, result.Invoked())
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0,
		"Crawl depth: 0 imports only the given URLs, 1 also imports links found in them")
	cmd.Flags().BoolVar(&indexOnly, "index-only", false,
		"Only create index entries, do not archive")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false,
		"Re-run methods even where a previous run succeeded")
	cmd.Flags().StringSliceVar(&methods, "extractors", nil,
		"Comma-separated archive methods to run (default: all enabled)")

	return cmd
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
