package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotfetch/internal/audio"
	"github.com/desertthunder/spotfetch/internal/ledger"
	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/repositories"
	"github.com/desertthunder/spotfetch/internal/resolver"
	"github.com/desertthunder/spotfetch/internal/services"
	"github.com/desertthunder/spotfetch/internal/shared"
	"github.com/desertthunder/spotfetch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The catalog, database and index are created on first use so that commands like
// `setup config` work without credentials or a database.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	index      resolver.Index
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog // overrides the Spotify catalog built from credentials
	Index      resolver.Index   // overrides the yt-dlp index
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		index:      opts.Index,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downloadCommand, resolveCommand, infoCommand, libraryCommand, serveCommand, cacheCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database handle if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// Before loads the configuration file named by --config and applies global flag overrides.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if found, err := shared.FindConfigFile(path); err == nil {
		config, err := shared.LoadConfig(found)
		if err != nil {
			return ctx, err
		}
		r.config, r.configPath = config, found
		r.logger.Debug("loaded config", "path", found)
	} else {
		r.configPath = path
		r.logger.Debug("no config file, using defaults", "path", path)
	}

	if id := cmd.String("client-id"); id != "" {
		r.config.Credentials.Spotify.ClientID = id
	}
	if secret := cmd.String("client-secret"); secret != "" {
		r.config.Credentials.Spotify.ClientSecret = secret
	}
	return ctx, nil
}

// database opens the catalog cache and applies pending migrations on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

// spotifyCatalog creates an uncached Spotify catalog for the given credentials.
func (r *Runner) spotifyCatalog(ctx context.Context, clientID, clientSecret string) (services.Catalog, error) {
	return services.NewSpotifyCatalog(ctx, services.SpotifyOptions{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient:   r.httpClient,
		Logger:       r.logger,
	})
}

// catalogService returns the configured catalog, wrapped in the SQLite cache unless noCache is set.
func (r *Runner) catalogService(ctx context.Context, noCache bool) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	creds := r.config.Credentials.Spotify
	inner, err := r.spotifyCatalog(ctx, creds.ClientID, creds.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("%w (set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET or credentials.spotify in config)", err)
	}
	if noCache {
		return inner, nil
	}

	db, err := r.database()
	if err != nil {
		r.logger.Warn("catalog cache unavailable", "error", err)
		return inner, nil
	}
	return services.NewCachedCatalog(inner,
		repositories.NewTrackRepository(db), repositories.NewCollectionRepository(db), r.logger), nil
}

// lookup parses ref and fetches its tracks. The collection is nil for single tracks.
func (r *Runner) lookup(ctx context.Context, ref string, noCache bool) ([]models.TrackDescriptor, *models.Collection, error) {
	parsed, err := services.ParseReference(ref)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := r.catalogService(ctx, noCache)
	if err != nil {
		return nil, nil, err
	}

	r.logger.Info("fetching from catalog", "ref", parsed.String(), "catalog", catalog.Name())
	return services.Lookup(ctx, catalog, parsed)
}

func (r *Runner) videoIndex() resolver.Index {
	if r.index != nil {
		return r.index
	}
	ic := r.config.Index
	return resolver.NewYTDLPIndex(resolver.IndexOptions{
		Executable:        ic.Executable,
		SearchFormat:      ic.SearchFormat,
		SocketTimeout:     ic.SocketTimeout,
		Retries:           ic.Retries,
		CheckCertificates: ic.CheckCertificates,
	}, r.logger)
}

// downloadLedger opens the ledger in dir, or in the configured location when dir is empty.
func (r *Runner) downloadLedger(dir string) *ledger.Ledger {
	path := r.config.LedgerPath()
	if dir != "" && dir != r.config.DownloadDir() {
		path = ledgerIn(dir, r.config.Download.LedgerFile)
	}
	return ledger.New(path, ledger.WithLogger(r.logger))
}

// ledgerIn places the ledger file inside dir unless name is already absolute.
func ledgerIn(dir, name string) string {
	if name == "" {
		name = "downloads.json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// EngineParams are the per-invocation knobs of [Runner.newEngine].
type EngineParams struct {
	Dir          string
	SkipExisting bool
	Tag          bool
}

// newEngine wires the resolver, retrier, ledger and tagger into a download engine.
func (r *Runner) newEngine(p EngineParams) *tasks.DownloadEngine {
	dc := r.config.Download
	if p.Dir == "" {
		p.Dir = r.config.DownloadDir()
	}

	headers := resolver.NewHeaderRandomizer(nil)
	jitter := resolver.NewJitter(nil, nil)

	res := resolver.New(r.videoIndex(), resolver.Options{
		Dir:               p.Dir,
		Format:            r.config.Index.Format,
		CooldownMin:       dc.CooldownMin,
		CooldownMax:       dc.CooldownMax,
		DurationTolerance: dc.DurationTolerance,
		Headers:           headers,
		Jitter:            jitter,
		Logger:            r.logger,
	})

	opts := tasks.EngineOpts{
		Resolver: res,
		Retrier: tasks.NewRetrier(tasks.RetryOpts{
			MaxAttempts: dc.MaxAttempts,
			BackoffMin:  dc.BackoffMin,
			BackoffMax:  dc.BackoffMax,
			Headers:     headers,
			Jitter:      jitter,
			Logger:      r.logger,
		}),
		Ledger:       r.downloadLedger(p.Dir),
		Logger:       r.logger,
		SkipExisting: p.SkipExisting,
	}
	if p.Tag {
		opts.Tagger = audio.NewTagger(r.httpClient, r.logger)
	}
	return tasks.NewDownloadEngine(opts)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
