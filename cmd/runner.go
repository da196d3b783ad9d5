package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crossfade/internal/repositories"
	"github.com/desertthunder/crossfade/internal/services"
	"github.com/desertthunder/crossfade/internal/shared"
	"github.com/desertthunder/crossfade/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    tasks.ProviderCatalog
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    tasks.ProviderCatalog
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// Without a catalog the default Spotify and YouTube Music providers are built from the config.
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
	if opts.Catalog == nil {
		opts.Catalog = services.CatalogFromConfig(opts.Config, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, platformsCommand, playlistsCommand, transferCommand, statusCommand,
		jobsCommand, serveCommand, authCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. while a TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// api returns a client for the server at url, falling back to the configured address.
func (r *Runner) api(url string) *services.APIService {
	if url == "" {
		url = "http://" + r.config.Server.Addr()
	}
	return services.NewAPIService(url, r.httpClient)
}

// openDatabase opens the configured SQLite database and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// newEngine builds and starts a transfer engine from the config.
//
// When database.archive is enabled finished jobs and fetched tracks are persisted.
// The returned stop func shuts the engine down and closes the database.
func (r *Runner) newEngine(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Engine, func(context.Context) error, error) {
	opts := tasks.EngineOptsFromConfig(r.config.Transfer)
	opts.Catalog = r.catalog
	opts.Progress = progress
	opts.Logger = r.logger

	matcher, err := matchingFromConfig(r.config, r.logger)
	if err != nil {
		return nil, nil, err
	}
	opts.Matcher = matcher

	var db *sql.DB
	regOpts := tasks.RegistryOpts{TTL: r.config.Transfer.JobTTL(), Logger: r.logger}
	if r.config.Database.Archive {
		if db, err = r.openDatabase(); err != nil {
			return nil, nil, err
		}
		regOpts.Archiver = repositories.NewJobRepository(db)
		opts.Cacher = repositories.NewTrackCacheAdapter(repositories.NewTrackRepository(db))
	}
	opts.Registry = tasks.NewRegistry(regOpts)

	engine, err := tasks.NewEngine(opts)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	engine.Start(ctx)

	stop := func(ctx context.Context) error {
		err := engine.Shutdown(ctx)
		if db != nil {
			db.Close()
		}
		return err
	}
	return engine, stop, nil
}

// parseCredentials turns repeated key=value flags into [services.Credentials].
func parseCredentials(pairs []string) (services.Credentials, error) {
	creds := services.Credentials{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: credential must be key=value, got %q", shared.ErrInvalidArgument, redactPair(pair))
		}
		creds[key] = value
	}
	return creds, nil
}

// redactPair keeps the key of a malformed pair for error messages and drops anything after it.
func redactPair(pair string) string {
	if i := strings.IndexAny(pair, "=:"); i >= 0 {
		return pair[:i] + "=***"
	}
	if len(pair) > 4 {
		return pair[:4] + "***"
	}
	return "***"
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
