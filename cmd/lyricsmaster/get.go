package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/lyricsmaster/internal/config"
	"github.com/nao1215/lyricsmaster/internal/database"
	"github.com/nao1215/lyricsmaster/internal/log"
	"github.com/nao1215/lyricsmaster/internal/model"
	"github.com/nao1215/lyricsmaster/internal/pipeline"
	"github.com/nao1215/lyricsmaster/internal/provider"
	"github.com/nao1215/lyricsmaster/internal/report"
	"github.com/nao1215/lyricsmaster/internal/tor"
	"github.com/nao1215/lyricsmaster/internal/transport"
)

// errNothingFetched is returned when no album could be fetched. The report
// already says so, so Execute does not print it again.
var errNothingFetched = errors.New("no album could be fetched")

// NewGetCmd creates the get command.
func NewGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get ARTIST",
		Short: "Download the lyrics of an artist",
		Long: `Get downloads the lyrics of every album of ARTIST, of one album, or of one
song, and saves them as <folder>/LyricsMaster/<artist>/<album>/<song>.txt.

--album and --song match titles ignoring case; an exact title wins over a
partial one.

Examples:
  # Whole discography from the default provider
  lyricsmaster get "Reba McEntire"

  # One album from Genius
  lyricsmaster get -p genius -a "good kid" "Kendrick Lamar"

  # Through Tor, with a new identity before every album
  lyricsmaster get --tor --control-addr 9051 --control-password secret "Luther Allison"

  # With a private Tor daemon
  lyricsmaster get --embedded-tor "Luther Allison"

  # Markdown report to a file, lyrics served from the library when present
  lyricsmaster get --cache --markdown -o report.md "Bon Jovi"`,
		Args: cobra.ExactArgs(1),
		RunE: runGetCmd,
	}

	// Scope and provider
	cmd.Flags().StringP(config.FlagProvider, "p", config.DefaultProvider,
		"Lyrics provider (see 'lyricsmaster providers')")
	cmd.Flags().StringP("album", "a", "", "Only fetch the album whose title matches")
	cmd.Flags().StringP("song", "s", "", "Only fetch the song whose title matches")

	// Download behavior
	cmd.Flags().StringP(config.FlagFolder, "f", "",
		"Save lyrics below this folder (default: documents directory)")
	cmd.Flags().Bool("no-save", false, "Do not write lyrics files")
	cmd.Flags().IntP(config.FlagWorkers, "w", config.DefaultWorkers,
		"Number of songs fetched in parallel")
	cmd.Flags().DurationP(config.FlagTimeout, "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Bool("cache", false, "Reuse lyrics already stored in the library")

	// Tor
	cmd.Flags().Bool(config.FlagTor, false, "Route requests through a Tor SOCKS5 proxy")
	cmd.Flags().String(config.FlagSocksAddress, config.DefaultSocksAddress,
		"Tor SOCKS5 proxy address")
	cmd.Flags().String(config.FlagControlAddress, "",
		"Tor control port for identity rotation (port, host:port or socket path)")
	cmd.Flags().String(config.FlagControlPassword, "", "Tor control port password")
	cmd.Flags().String(config.FlagCookieFile, "", "Tor control cookie file")
	cmd.Flags().Bool("embedded-tor", false, "Start a private Tor daemon")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .lyricsmaster in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runGetCmd executes the get command.
func runGetCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer := log.New(log.Options{Verbose: cfg.Verbose, File: cfg.LogFile})
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runGet(ctx, cfg, getEnv{stdout: cmd.OutOrStdout(), stderr: cmd.ErrOrStderr(), logger: logger})
}

// getEnv carries what runGet needs besides the configuration.
type getEnv struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	// providerOpts are added to the provider options, after the logger.
	providerOpts []provider.Option
}

// buildConfig creates a Config from the configuration file and the flags.
// Flags given on the command line win over the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicit path must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Apply(file, flags.Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	stringFlags := map[string]*string{
		"album":                    &cfg.Album,
		"song":                     &cfg.Song,
		"output":                   &cfg.ReportFile,
		config.FlagProvider:        &cfg.Provider,
		config.FlagFolder:          &cfg.SaveDir,
		config.FlagSocksAddress:    &cfg.SocksAddress,
		config.FlagControlAddress:  &cfg.ControlAddress,
		config.FlagControlPassword: &cfg.ControlPassword,
		config.FlagCookieFile:      &cfg.CookieFile,
	}
	for name, dst := range stringFlags {
		// The file may have set these; only an explicit flag replaces them.
		if isFileBacked(name) && !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetString(name); err != nil {
			return nil, err
		}
	}

	boolFlags := map[string]*bool{
		"no-save":      &cfg.NoSave,
		"cache":        &cfg.Cache,
		"embedded-tor": &cfg.EmbeddedTor,
		"json":         &cfg.JSONReport,
		"markdown":     &cfg.MarkdownReport,
		config.FlagTor: &cfg.Tor,
	}
	for name, dst := range boolFlags {
		if isFileBacked(name) && !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetBool(name); err != nil {
			return nil, err
		}
	}

	if flags.Changed(config.FlagWorkers) {
		if cfg.Workers, err = flags.GetInt(config.FlagWorkers); err != nil {
			return nil, err
		}
	}
	if flags.Changed(config.FlagTimeout) {
		if cfg.Timeout, err = flags.GetDuration(config.FlagTimeout); err != nil {
			return nil, err
		}
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFile = getLogFileFlag(cmd)

	if len(args) > 0 {
		cfg.Artist = args[0]
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	if flag := cmd.Flags().Lookup("verbose"); flag != nil {
		return flag.Value.String() == "true"
	}
	return false
}

// getLogFileFlag retrieves the log file flag from the command or its parent.
func getLogFileFlag(cmd *cobra.Command) string {
	if flag := cmd.Flags().Lookup("log-file"); flag != nil {
		return flag.Value.String()
	}
	return ""
}

// isFileBacked reports whether the configuration file can set the flag.
func isFileBacked(name string) bool {
	switch name {
	case config.FlagProvider, config.FlagFolder, config.FlagWorkers, config.FlagTimeout,
		config.FlagTor, config.FlagSocksAddress, config.FlagControlAddress,
		config.FlagControlPassword, config.FlagCookieFile:
		return true
	default:
		return false
	}
}

// runGet fetches, saves and reports. It returns errNothingFetched when the
// report shows that no album was fetched.
func runGet(ctx context.Context, cfg *config.Config, env getEnv) error {
	logger := env.logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	controller, stop, err := startTor(ctx, cfg, env.stderr, logger)
	if err != nil {
		return err
	}
	defer stop()

	clientOpts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithRetryBackoff(cfg.RetryBackoff),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithMaxBodySize(cfg.MaxBodySize),
		transport.WithLogger(logger),
	}
	if controller != nil {
		clientOpts = append(clientOpts, transport.WithProxy(controller.SocksAddr()))
	}
	client, err := transport.NewClient(clientOpts...)
	if err != nil {
		return err
	}

	providerOpts := append([]provider.Option{provider.WithLogger(logger)}, env.providerOpts...)
	p, err := provider.New(cfg.Provider, client, providerOpts...)
	if err != nil {
		return err
	}

	dispatcherOpts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithLogger(logger),
	}
	if cfg.Cache {
		dispatcherOpts = append(dispatcherOpts, pipeline.WithCache(db))
	}
	if controller != nil && controller.ControlEnabled() {
		dispatcherOpts = append(dispatcherOpts, pipeline.WithRotator(controller))
	}

	result, rep, err := pipeline.NewDispatcher(p, client, dispatcherOpts...).GetLyrics(ctx, pipeline.Request{
		Artist: cfg.Artist,
		Album:  cfg.Album,
		Song:   cfg.Song,
	})
	if err != nil {
		return err
	}

	if !cfg.NoSave {
		if err := result.Save(cfg.SaveDir); err != nil {
			logger.Error("failed to save lyrics", "dir", model.SaveRoot(cfg.SaveDir), "error", err)
		}
	}
	if db != nil {
		saveToLibrary(ctx, db, cfg, result, rep, logger)
	}

	if err := outputReport(cfg, result, rep, env.stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if rep.Failed() {
		return errNothingFetched
	}
	return nil
}

// openLibrary opens the library database. A library that cannot be opened
// only fails the fetch when the cache was asked for; otherwise it is logged
// and the fetch runs without one.
func openLibrary(cfg *config.Config, logger *slog.Logger) (*database.LibraryDB, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err == nil {
		return db, nil
	}
	if cfg.Cache {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	logger.Warn("library unavailable, fetched lyrics will not be recorded",
		"dir", cfg.DBDir,
		"error", err,
	)
	return nil, nil
}

// startTor connects to the Tor daemon, starting an embedded one first when
// asked to. It returns a nil controller when Tor is not used. stop releases
// everything that was started and is never nil.
func startTor(ctx context.Context, cfg *config.Config, stderr io.Writer, logger *slog.Logger) (*tor.Controller, func(), error) {
	noop := func() {}
	if !cfg.UsesTor() {
		return nil, noop, nil
	}

	opts := []tor.ControllerOption{
		tor.WithRotationTimeout(cfg.RotationTimeout),
		tor.WithLogger(logger),
	}
	if cfg.ControlPassword != "" {
		opts = append(opts, tor.WithPassword(cfg.ControlPassword))
	}
	if cfg.CookieFile != "" {
		opts = append(opts, tor.WithCookieFile(cfg.CookieFile))
	}

	var controller *tor.Controller
	stopEmbedded := noop
	if cfg.EmbeddedTor {
		fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
		fmt.Fprintln(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.")

		embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := embedded.Start(ctx); err != nil {
			return nil, noop, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
		}
		stopEmbedded = func() {
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}

		var err error
		if controller, err = embedded.NewController(opts...); err != nil {
			stopEmbedded()
			return nil, noop, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
		}
	} else {
		if cfg.ControlAddress != "" {
			opts = append(opts, tor.WithControlAddr(cfg.ControlAddress))
		}
		controller = tor.NewController(cfg.SocksAddress, opts...)
	}

	if err := controller.Connect(ctx); err != nil {
		stopEmbedded()
		return nil, noop, err
	}

	logger.Info("Tor proxy connection verified",
		"socks", controller.SocksAddr(),
		"rotation", controller.ControlEnabled(),
	)

	stop := func() {
		if err := controller.Disconnect(); err != nil {
			logger.Warn("failed to close Tor control connection", "error", err)
		}
		stopEmbedded()
	}
	return controller, stop, nil
}

// saveToLibrary stores the fetched songs and the fetch record. Failures are
// logged: the lyrics files and the report matter more than the library.
func saveToLibrary(ctx context.Context, db *database.LibraryDB, cfg *config.Config, result model.Result, rep *pipeline.Report, logger *slog.Logger) {
	stored, err := db.SaveResult(ctx, rep.Provider, result)
	if err != nil {
		logger.Error("failed to store lyrics in library", "error", err)
	}

	_, err = db.RecordFetch(ctx, database.FetchRecord{
		Provider:  rep.Provider,
		Artist:    rep.Artist,
		Scope:     cfg.Scope(),
		Albums:    rep.AlbumsFetched,
		Songs:     rep.SongsFetched,
		Failures:  len(rep.Failures),
		StartedAt: rep.StartedAt,
	})
	if err != nil {
		logger.Error("failed to record fetch", "error", err)
		return
	}

	logger.Info("library updated", "path", db.Path(), "songs", stored)
}

// outputReport writes the report in the requested format, to the report
// file or to stdout.
func outputReport(cfg *config.Config, result model.Result, rep *pipeline.Report, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(result, rep)
	return err
}
