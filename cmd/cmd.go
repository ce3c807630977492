// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "pretty",
		Usage: "Pretty-print JSON output",
		Value: true,
	}
}

func noCacheFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "no-cache",
		Usage: "Bypass the local catalog cache",
	}
}

// downloadCommand localizes every track behind a Spotify reference.
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"dl", "get"},
		Usage:     "Download audio for a Spotify track, album or playlist",
		ArgsUsage: "<url|uri|id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "ref"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Download directory (default: download.directory or ~/SpotifyDownloads)",
			},
			&cli.BoolFlag{
				Name:  "skip-existing",
				Usage: "Skip tracks already recorded in the ledger",
			},
			&cli.BoolFlag{
				Name:  "tag",
				Usage: "Write ID3 title, artist, album and cover art to native MP3 downloads",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress view",
			},
			jsonFlag(),
			prettyFlag(),
			noCacheFlag(),
		},
		Action: r.Download,
	}
}

// resolveCommand looks up direct stream URLs without downloading.
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Print a direct audio URL for each track of a Spotify reference",
		ArgsUsage: "<url|uri|id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "ref"},
		},
		Flags: []cli.Flag{
			jsonFlag(),
			prettyFlag(),
			noCacheFlag(),
		},
		Action: r.Resolve,
	}
}

// infoCommand prints or exports catalog metadata.
func infoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show the tracks behind a Spotify reference",
		ArgsUsage: "<url|uri|id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "ref"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv, markdown or text",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file (a directory for markdown exports) instead of stdout",
			},
			jsonFlag(),
			prettyFlag(),
			noCacheFlag(),
		},
		Action: r.Info,
	}
}

// libraryCommand inspects the download ledger.
func libraryCommand(r *Runner) *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "Download directory holding the ledger",
	}

	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Previously downloaded tracks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List downloaded tracks whose files still exist",
				Flags: []cli.Flag{
					dirFlag,
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: json, csv, markdown or text",
						Value:   "text",
					},
					jsonFlag(),
					prettyFlag(),
				},
				Action: r.LibraryList,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Forget a downloaded file",
				ArgsUsage: "<path>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					dirFlag,
					&cli.BoolFlag{
						Name:  "delete",
						Usage: "Also delete the file from disk",
					},
				},
				Action: r.LibraryRemove,
			},
		},
	}
}

// serveCommand starts the HTTP resolution API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API (GET /v1/track/{id})",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default: server.port)",
			},
			noCacheFlag(),
		},
		Action: r.Serve,
	}
}

// cacheCommand manages the SQLite catalog cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear the local catalog cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached albums and playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "tracks",
						Usage: "List cached tracks instead",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Filter cached tracks by name",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to list",
						Value: 50,
					},
					jsonFlag(),
					prettyFlag(),
				},
				Action: r.CacheList,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached track and collection",
				Action: r.CacheClear,
			},
		},
	}
}

// setupCommand handles first-run setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write the file (default: --config)",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the catalog cache and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "ytdlp",
				Usage:  "Install a managed yt-dlp binary if none is available",
				Action: r.SetupYTDLP,
			},
		},
	}
}
