// Package schedule implements the schedule command: re-import a set
// of sources on a cron schedule, archiving whatever is new.
package schedule

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/webhoard/webhoard/cmd/common"
	"github.com/webhoard/webhoard/internal/archiver"
	"github.com/webhoard/webhoard/internal/importer"
	"github.com/webhoard/webhoard/internal/logger"
	"github.com/webhoard/webhoard/internal/snapshot"
)

// Command returns the schedule command for use in the root command.
func Command() *cobra.Command {
	var (
		every     string
		depth     int
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "schedule <url|file>...",
		Short: "Periodically re-import and archive sources",
		Long: `Run in the foreground and re-import the given sources on a cron
schedule, archiving any URLs that are new to the index each run.

The schedule accepts standard five-field cron expressions as well as
the @hourly, @daily and @weekly shorthands. A run that overlaps a
still-active previous run is skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := common.OpenApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			job := &importJob{
				app:       app,
				sources:   args,
				depth:     depth,
				overwrite: overwrite,
				log:       app.Log.With("component", "schedule"),
			}

			scheduler := cron.New(cron.WithChain(
				cron.SkipIfStillRunning(cronLogger{app.Log}),
			))
			if _, err := scheduler.AddFunc(every, func() { job.run(ctx) }); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", every, err)
			}

			app.Log.Info("scheduler started", "schedule", every, "sources", len(args))
			scheduler.Start()

			<-ctx.Done()
			app.Log.Info("shutdown signal received")

			// Let an in-flight run finish before exiting.
			<-scheduler.Stop().Done()
			app.Log.Info("scheduler stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&every, "every", "@hourly",
		"Cron expression or @hourly/@daily/@weekly shorthand")
	cmd.Flags().IntVar(&depth, "depth", 0,
		"Crawl depth for each import run (0 or 1)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false,
		"Re-run methods even where a previous run succeeded")

	return cmd
}

// importJob is one scheduled import-and-archive pass over the
// configured sources.
type importJob struct {
	app       *common.App
	sources   []string
	depth     int
	overwrite bool
	log       logger.Interface
}

func (j *importJob) run(ctx context.Context) {
	imp := j.app.NewImporter()

	for _, source := range j.sources {
		if ctx.Err() != nil {
			return
		}

		created, err := importSource(ctx, imp, source, j.depth)
		if err != nil {
			j.log.Error("scheduled import failed", "source", source, "error", err)
			continue
		}
		if len(created) == 0 {
			j.log.Debug("no new urls", "source", source)
			continue
		}

		j.log.Info("importing new snapshots", "source", source, "count", len(created))
		result, err := j.app.NewArchiver().Archive(ctx, created, archiver.Options{
			Overwrite: j.overwrite,
		})
		if err != nil {
			j.log.Error("scheduled archiving failed", "source", source, "error", err)
			continue
		}
		j.log.Info("scheduled run finished",
			"source", source, "snapshots", result.Selected, "invocations", result.Invoked())
	}
}

// importSource treats a source as a local file when one exists at that
// path, and as a raw URL otherwise.
func importSource(ctx context.Context, imp *importer.Importer, source string, depth int) ([]*snapshot.Snapshot, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		return imp.ImportFile(ctx, source, depth)
	}
	return imp.Import(ctx, source, depth)
}

// cronLogger adapts the application logger to cron's logging interface.
type cronLogger struct {
	log logger.Interface
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append(keysAndValues, "error", err)...)
}
