// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/maxify/internal/api/connect"
	"github.com/osa030/maxify/internal/app/duration"
	"github.com/osa030/maxify/internal/app/loader"
	"github.com/osa030/maxify/internal/app/playback"
	"github.com/osa030/maxify/internal/app/session"
	"github.com/osa030/maxify/internal/domain/track"
	"github.com/osa030/maxify/internal/infra/audio"
	"github.com/osa030/maxify/internal/infra/backend"
	"github.com/osa030/maxify/internal/infra/config"
	"github.com/osa030/maxify/internal/infra/logger"
)

var (
	app        = kingpin.New("maxify-player", "maxify playback session server")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// probe command
	probeCmd = app.Command("probe", "Measure track durations and exit")
	probeIDs = probeCmd.Arg("track-id", "Track IDs").Required().Strings()

	// library command
	libraryCmd    = app.Command("library", "List library tracks with corrected durations")
	libraryLimit  = libraryCmd.Flag("limit", "Number of tracks").Default("50").Int()
	libraryOffset = libraryCmd.Flag("offset", "Offset into the library").Default("0").Int()
)

func init() {
	// serve command (default) - no need to store the command
	app.Command("serve", "Run the player and control API (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	switch command {
	case probeCmd.FullCommand():
		err = probe(cfg, *probeIDs)
	case libraryCmd.FullCommand():
		err = library(cfg, *libraryLimit, *libraryOffset)
	default:
		err = run(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("Error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// components are the collaborators shared by every command.
type components struct {
	backend  *backend.Client
	loader   *loader.Loader
	cache    *duration.Cache
	resolver *duration.Resolver
}

func newComponents(cfg *config.Config) (*components, error) {
	backendClient, err := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create backend client")
	}
	if cfg.Backend.Token == "" {
		zlog.Warn().Msg("No backend token configured; requests are anonymous")
	}

	ldr := loader.New(backendClient, audio.NewProber(), loader.Config{
		ProbeTimeout: cfg.Probe.Timeout(),
	})
	cache := duration.NewCache(cfg.Cache.MaxEntries)
	resolver := duration.NewResolver(cache, ldr, duration.Config{
		RatePerSec: cfg.Probe.RatePerSec,
		Burst:      cfg.Probe.Burst,
	})

	return &components{
		backend:  backendClient,
		loader:   ldr,
		cache:    cache,
		resolver: resolver,
	}, nil
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	c, err := newComponents(cfg)
	if err != nil {
		return err
	}

	// Create output device
	device, err := audio.NewDevice(cfg.Output)
	if err != nil {
		return errors.Wrap(err, "failed to create output device")
	}

	// Create session manager
	engine := playback.NewEngine(device, c.loader, playback.Config{
		InitialVolume: cfg.Player.InitialVolume,
		EventBuffer:   cfg.Player.EventBuffer,
	})
	sessionMgr := session.NewManager(engine, c.cache)

	// Create RPC service
	var warmer apiconnect.Warmer
	if cfg.Probe.WarmQueue {
		warmer = c.resolver
	}
	playerService := apiconnect.NewPlayerService(sessionMgr, c.backend, warmer)

	// Create HTTP mux
	mux := http.NewServeMux()
	playerPath, playerHandler := apiconnect.NewPlayerServiceHandler(
		playerService,
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg.Control.Token)),
	)
	mux.Handle(playerPath, playerHandler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s output=%s", cfg.Server.Addr, cfg.Output.Type)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close session first to terminate active streams
	playerService.Close()
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	stats := c.loader.Stats()
	zlog.Info().Msgf("Server stopped: handles_created=%d handles_revoked=%d", stats.Created, stats.Revoked)

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// probe measures and prints the duration of each track.
func probe(cfg *config.Config, trackIDs []string) error {
	c, err := newComponents(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed := 0
	for _, id := range trackIDs {
		seconds, err := c.loader.ProbeDuration(ctx, id)
		if err != nil {
			failed++
			fmt.Printf("%s\terror: %v\n", id, err)
			continue
		}
		fmt.Printf("%s\t%s\n", id, track.FormatSeconds(float64(seconds)))
	}

	if failed > 0 {
		return errors.Newf("%d of %d probes failed", failed, len(trackIDs))
	}
	return nil
}

// library lists tracks, measuring durations the backend does not know.
func library(cfg *config.Config, limit, offset int) error {
	c, err := newComponents(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracks, err := c.backend.ListTracks(ctx, limit, offset)
	if err != nil {
		return errors.Wrap(err, "failed to list tracks")
	}
	tracks = c.resolver.ResolveAll(ctx, tracks)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tARTIST\tDURATION")
	for _, t := range tracks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Artist, t.FormatDuration())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d tracks, %d min\n", len(tracks), track.TotalMinutes(tracks))
	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
