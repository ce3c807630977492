package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/spotfetch/internal/formatter"
	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
	"github.com/desertthunder/spotfetch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// resolutionOutput pairs a track with its resolution for JSON output.
type resolutionOutput struct {
	Track  models.TrackDescriptor  `json:"track"`
	Result models.ResolutionResult `json:"result"`
}

func requireRef(cmd *cli.Command) (string, error) {
	ref := cmd.StringArg("ref")
	if ref == "" {
		ref = cmd.Args().First()
	}
	if ref == "" {
		return "", fmt.Errorf("%w: Spotify URL, URI or track ID", shared.ErrMissingArgument)
	}
	return ref, nil
}

// asCollection wraps a single track lookup so every exporter sees a collection.
func asCollection(tracks []models.TrackDescriptor, c *models.Collection) *models.Collection {
	if c != nil {
		return c
	}
	wrapped := &models.Collection{Kind: models.CollectionKind("track"), Tracks: tracks}
	if len(tracks) > 0 {
		wrapped.ID = tracks[0].ID
		wrapped.Name = tracks[0].String()
		wrapped.Image = tracks[0].AlbumImage
	}
	return wrapped
}

// boolOption returns the flag when the user set it, otherwise the config value.
func boolOption(cmd *cli.Command, name string, fallback bool) bool {
	if cmd.IsSet(name) {
		return cmd.Bool(name)
	}
	return fallback
}

// Download resolves a reference to tracks and localizes each of them.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	ref, err := requireRef(cmd)
	if err != nil {
		return err
	}

	tracks, collection, err := r.lookup(ctx, ref, cmd.Bool("no-cache"))
	if err != nil {
		return err
	}
	c := asCollection(tracks, collection)

	useTUI := cmd.Bool("tui")
	if useTUI {
		restore, err := r.tuiLogger()
		if err != nil {
			return err
		}
		defer restore()
	}

	engine := r.newEngine(EngineParams{
		Dir:          cmd.String("dir"),
		SkipExisting: boolOption(cmd, "skip-existing", r.config.Download.SkipExisting),
		Tag:          boolOption(cmd, "tag", r.config.Download.TagFiles),
	})

	var result *tasks.BatchResult
	switch {
	case useTUI:
		result, err = r.runTUI(ctx, c.Name, tracks, engine)
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}
	case cmd.Bool("json"):
		result = engine.RunBatch(ctx, tracks, nil)
		if err := r.writeJSON(result, cmd.Bool("pretty")); err != nil {
			return err
		}
	default:
		r.writePlain("📥 %s: %s (%d tracks)\n", c.Kind, c.Name, len(tracks))
		result = r.runWithProgress(ctx, engine, tracks)
		r.writeBatchSummary(result)
	}

	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d tracks", shared.ErrDownloadFailed, result.Failed, result.Total)
	}
	return nil
}

// runWithProgress runs the batch while printing progress updates as they arrive.
func (r *Runner) runWithProgress(ctx context.Context, engine *tasks.DownloadEngine, tracks []models.TrackDescriptor) *tasks.BatchResult {
	progressCh := make(chan tasks.ProgressUpdate, 50)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			switch update.Phase {
			case tasks.DownloadTracks:
				if bp, ok := update.Data.(models.BatchProgress); ok && bp.Current.Name == "" {
					r.writePlain("\n⬇ %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.RetryTrack:
				r.writePlain("  %s\n", update.Message)
			case tasks.ResolveTracks:
				r.writePlain("   %s\n", update.Message)
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result := engine.RunBatch(ctx, tracks, progressCh)
	close(progressCh)
	wg.Wait()
	return result
}

func (r *Runner) writeBatchSummary(result *tasks.BatchResult) {
	r.writePlain("\n")
	r.writePlainHeader("Download Complete!")
	r.writePlain("Downloaded: %d/%d\n", result.Succeeded, result.Total)
	if result.Skipped > 0 {
		r.writePlain("Already downloaded: %d\n", result.Skipped)
	}

	if result.Failed > 0 {
		r.writePlain("\nFailed to download %d tracks:\n", result.Failed)
		for _, item := range result.Items {
			if !item.Success {
				r.writePlain("  - %s: %s\n", item.Track.String(), item.Error)
			}
		}
	}
}

// Resolve prints a direct audio URL for every track without downloading.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	ref, err := requireRef(cmd)
	if err != nil {
		return err
	}

	tracks, _, err := r.lookup(ctx, ref, cmd.Bool("no-cache"))
	if err != nil {
		return err
	}

	engine := r.newEngine(EngineParams{})
	results := engine.ResolveAll(ctx, tracks, nil)

	resolved := 0
	out := make([]resolutionOutput, len(results))
	for i, res := range results {
		out[i] = resolutionOutput{Track: tracks[i], Result: res}
		if res.OK() {
			resolved++
		}
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(out, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else {
		for _, o := range out {
			if o.Result.OK() {
				r.writePlain("✓ %s\n    %s\n", o.Track.String(), o.Result.Location.Value)
			} else {
				r.writePlain("✗ %s\n    %s\n", o.Track.String(), o.Result.Reason)
			}
		}
	}

	if resolved == 0 && len(tracks) > 0 {
		return shared.ErrNoDownloadURL
	}
	return nil
}

// Info prints or exports the tracks behind a reference.
func (r *Runner) Info(ctx context.Context, cmd *cli.Command) error {
	ref, err := requireRef(cmd)
	if err != nil {
		return err
	}

	tracks, collection, err := r.lookup(ctx, ref, cmd.Bool("no-cache"))
	if err != nil {
		return err
	}
	c := asCollection(tracks, collection)

	if cmd.Bool("json") {
		return r.writeJSON(c, cmd.Bool("pretty"))
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		data, err := formatter.RenderCollection(c, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	if format == formatter.Markdown {
		result, err := formatter.WriteMarkdownExport(ctx, c, output, r.httpClient)
		if err != nil {
			return err
		}
		for _, w := range result.Warnings {
			r.logger.Warn(w)
		}
		r.writePlain("✓ Exported %s to %s\n", c.Name, result.Directory)
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
		return nil
	}

	path, err := formatter.WriteExport(c, format, output)
	if err != nil {
		return err
	}
	r.writePlain("✓ Exported %s to %s\n", c.Name, path)
	return nil
}
