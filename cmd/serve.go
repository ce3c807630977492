package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotfetch/internal/server"
	"github.com/desertthunder/spotfetch/internal/services"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP resolution API until interrupted.
//
// Requests without credential headers use the configured Spotify app, which is optional.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	sc := r.config.Server
	if host := cmd.String("host"); host != "" {
		sc.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		sc.Port = port
	}

	var catalog services.Catalog
	if r.catalog != nil || r.config.HasSpotifyCredentials() {
		c, err := r.catalogService(ctx, cmd.Bool("no-cache"))
		if err != nil {
			return err
		}
		catalog = c
	} else {
		r.logger.Warn("no Spotify credentials configured; requests must send client-id and client-secret headers")
	}

	engine := r.newEngine(EngineParams{})
	handler := server.NewTrackHandler(catalog, r.spotifyCatalog, engine, r.logger)
	router := server.NewAPIRouter(handler, r.logger, sc.RateLimit, sc.Burst)

	srv := server.NewServer(sc.Addr(), router, r.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
