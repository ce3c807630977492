package main

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/desertthunder/spotfetch/internal/resolver"
	"github.com/desertthunder/spotfetch/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		path = r.configPath
	}
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Configuration written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)\n")
	r.writePlain("2. Run 'spotfetch setup ytdlp' if yt-dlp is not installed\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if _, err := r.database(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	return nil
}

// SetupYTDLP installs a managed yt-dlp binary unless one is configured or on $PATH.
func (r *Runner) SetupYTDLP(ctx context.Context, cmd *cli.Command) error {
	if exe := r.config.Index.Executable; exe != "" {
		r.writePlain("✓ Using configured yt-dlp at %s\n", exe)
		return nil
	}
	if path, err := exec.LookPath("yt-dlp"); err == nil {
		r.writePlain("✓ Found yt-dlp at %s\n", path)
		return nil
	}

	r.logger.Info("installing yt-dlp")
	path, err := resolver.InstallYTDLP(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	r.writePlain("✓ Installed yt-dlp to %s\n", path)
	r.writePlain("Set index.executable = %q in your config to pin it.\n", path)
	return nil
}
