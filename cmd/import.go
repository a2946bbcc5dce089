package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lfx/internal/formatter"
	"github.com/desertthunder/lfx/internal/shared"
	"github.com/desertthunder/lfx/internal/tasks"
)

// Import runs an incremental history import for the given account.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	if err := r.requireDB(); err != nil {
		return err
	}

	user := cmd.String("user")

	r.logger.Info("starting import", "user", user)
	r.writePlain("Importing listening history for '%s'...\n\n", user)

	// Create progress channel and goroutine to handle updates
	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.CheckAccount:
				r.writePlain("📊 %s\n", update.Message)
			case tasks.FetchHistory:
				// one line per page's worth keeps long runs readable
				if update.Step%200 == 0 || update.Step == update.Total {
					r.writePlain("   %s (%d/%d)\n", update.Message, update.Step, update.Total)
				}
			case tasks.ResolveDuration:
				// every record passes through resolution now, so sample it
				// at the same cadence as fetches
				if update.Step%200 == 0 {
					r.writePlain("🔎 %s\n", update.Message)
				}
			case tasks.Finalize:
				r.writePlain("💾 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.Import(ctx, user, progressCh)
	close(progressCh)

	if err != nil {
		if result != nil {
			r.writePlain("\nImport stopped early; archived %d scrobbles before the error.\n", result.Imported)
			r.writePlain("Re-run the command to resume where it left off.\n")
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Complete")
	r.writePlain("Records examined: %d\n", result.Seen)
	r.writePlain("Scrobbles archived: %d\n", result.Imported)
	r.writePlain("Skipped (bad identifiers): %d\n", result.SkippedInvalid)
	r.writePlain("Skipped (unknown duration): %d\n", result.SkippedUnknownDuration)
	if result.Aborted {
		r.writePlain("\nThe history stream ended early; re-run the command to resume.\n")
	}
	return nil
}

// Browse lists archived scrobbles with an optional name filter.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	user := cmd.String("user")
	match := cmd.String("match")
	limit := cmd.Int("limit")

	scrobbles, err := r.library.Scrobbles(user, match, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(scrobbles, cmd.Bool("pretty"))
	}

	if len(scrobbles) == 0 {
		r.writePlain("No scrobbles found.\n")
		return nil
	}

	r.writePlain("Found %d scrobbles:\n\n", len(scrobbles))
	for i, s := range scrobbles {
		album := ""
		if s.Track.Album != nil {
			album = fmt.Sprintf(" (%s)", s.Track.Album.Name)
		}
		r.writePlain("%d. %s - %s%s [%s]\n", i+1,
			s.Track.Artist.Name, s.Track.Name, album,
			s.Time.Format("2006-01-02 15:04"))
	}
	return nil
}

// Export writes archived scrobbles to a file in the requested format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	user := cmd.String("user")
	format := cmd.String("format")
	output := cmd.String("output")
	match := cmd.String("match")

	scrobbles, err := r.library.Scrobbles(user, match, 0)
	if err != nil {
		return err
	}

	if len(scrobbles) == 0 {
		return fmt.Errorf("%w: no scrobbles to export for '%s'", shared.ErrInvalidInput, user)
	}

	r.logger.Info("exporting scrobbles", "user", user, "count", len(scrobbles), "format", format)

	path, err := formatter.WriteExport(user, scrobbles, format, output)
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d scrobbles to %s\n", len(scrobbles), path)
	return nil
}
