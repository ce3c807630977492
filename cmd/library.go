package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/desertthunder/spotfetch/internal/formatter"
	"github.com/desertthunder/spotfetch/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibraryList prints ledger entries whose files still exist, pruning the rest.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	l := r.downloadLedger(cmd.String("dir"))

	entries, err := l.ListExisting()
	if err != nil {
		r.logger.Warn("failed to prune ledger", "path", l.Path(), "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	data, err := formatter.RenderLibrary(entries, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// LibraryRemove drops a ledger entry and optionally deletes its file.
func (r *Runner) LibraryRemove(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		path = cmd.Args().First()
	}
	if path == "" {
		return fmt.Errorf("%w: path of a downloaded file", shared.ErrMissingArgument)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	l := r.downloadLedger(cmd.String("dir"))
	removed, err := l.Remove(path)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s is not in %s", shared.ErrInvalidArgument, path, l.Path())
	}

	if cmd.Bool("delete") {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
		r.logger.Info("deleted file", "path", path)
	}

	r.writePlain("✓ Removed %s\n", path)
	return nil
}
