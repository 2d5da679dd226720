package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/opexdevelop/mediacache/internal/delivery"
	"github.com/opexdevelop/mediacache/internal/models"
	"github.com/opexdevelop/mediacache/internal/providers"
	"github.com/opexdevelop/mediacache/internal/queue"
	"github.com/opexdevelop/mediacache/internal/repositories"
	"github.com/opexdevelop/mediacache/internal/shared"
	"github.com/opexdevelop/mediacache/internal/storage"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
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
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, resolveCommand, fetchCommand, cacheCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig replaces the runner config when the command names a file.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	configPath := cmd.String("config")
	if configPath == "" {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current", "path", configPath, "error", err)
		return
	}
	r.config = config
}

// buildProviders wires the provider registry from configuration. YouTube gets
// the converter-plus-scraper composite; the other sources are single backends.
func (r *Runner) buildProviders() map[models.SourceKind]providers.Provider {
	yt := r.config.Providers.YouTube

	var headers *shared.CurlHeaders
	if yt.HeaderFile != "" {
		parsed, err := shared.ParseCurlFile(yt.HeaderFile)
		if err != nil {
			r.logger.Warn("failed to parse header file, continuing without", "path", yt.HeaderFile, "error", err)
		} else {
			headers = parsed
		}
	}

	converter := providers.NewConverter(yt.ConverterURL, r.httpClient, r.logger)
	invidious := providers.NewInvidious(yt.Instance, yt.DirectoryURL, headers, r.httpClient, r.logger)

	sp := r.config.Providers.Spotify

	return map[models.SourceKind]providers.Provider{
		models.SourceYouTube: providers.NewFallback(converter, invidious, r.logger),
		models.SourceSpotify: providers.NewSpotify(sp.ClientID, sp.ClientSecret, sp.APIURL, sp.DownloaderURL, r.logger),
		models.SourceTikTok:  providers.NewTikTok(r.config.Providers.TikTok.APIURL, r.httpClient, r.logger),
	}
}

// openStore opens the configured cache store backend.
func (r *Runner) openStore() (repositories.CacheStore, error) {
	switch r.config.Cache.Backend {
	case "sqlite", "":
		db, err := shared.NewDatabase(r.config.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Cache.MaxOpenConns, r.config.Cache.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repositories.NewSQLiteStore(db), nil
	case "redis":
		return repositories.NewRedisStore(r.config.Cache.RedisAddr, r.config.Cache.RedisDB), nil
	case "memory":
		return repositories.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, r.config.Cache.Backend)
	}
}

// openEngine assembles the delivery engine and its queue. The caller owns
// the returned cleanup.
func (r *Runner) openEngine() (*delivery.Engine, func(), error) {
	store, err := r.openStore()
	if err != nil {
		return nil, nil, err
	}

	objects := storage.NewHTTPStore(
		r.config.Storage.UploadURL,
		r.config.Storage.Token,
		r.config.Storage.MaxUploadBytes,
		r.httpClient,
		r.logger,
	)

	q := queue.New(r.config.Queue.TaskDelay(), r.logger)
	engine := delivery.NewEngine(r.buildProviders(), store, objects, q, r.logger)

	cleanup := func() {
		q.Close()
		if err := store.Close(); err != nil {
			r.logger.Warn("failed to close cache store", "error", err)
		}
	}

	return engine, cleanup, nil
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
