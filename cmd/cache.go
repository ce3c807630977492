package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotfetch/internal/repositories"
	"github.com/urfave/cli/v3"
)

// CacheList prints cached collections, or cached tracks with --tracks.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	if cmd.Bool("tracks") {
		criteria := map[string]any{"limit": cmd.Int("limit")}
		if name := cmd.String("name"); name != "" {
			criteria["name"] = name
		}

		tracks, err := repositories.NewTrackRepository(db).List(criteria)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(tracks, cmd.Bool("pretty"))
		}

		r.writePlainHeader(fmt.Sprintf("Cached tracks (%d)", len(tracks)))
		for _, t := range tracks {
			r.writePlain("%s  %s\n", t.Track.ID, t.Track.String())
		}
		return nil
	}

	collections, err := repositories.NewCollectionRepository(db).List()
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(collections, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Cached collections (%d)", len(collections)))
	for _, c := range collections {
		r.writePlain("%-8s %s  %s (%d tracks)\n", c.Kind, c.ID, c.Name, c.TrackCount)
	}
	return nil
}

// CacheClear deletes every cached track and collection.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	collections, err := repositories.NewCollectionRepository(db).Clear()
	if err != nil {
		return err
	}
	tracks, err := repositories.NewTrackRepository(db).Clear()
	if err != nil {
		return err
	}

	r.logger.Info("cache cleared", "collections", collections, "tracks", tracks)
	r.writePlain("✓ Removed %d collections and %d tracks\n", collections, tracks)
	return nil
}
