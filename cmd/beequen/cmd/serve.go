package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/config"
	"github.com/beequen/beequen/internal/events"
	"github.com/beequen/beequen/internal/ipc"
	"github.com/beequen/beequen/internal/watch"
	"github.com/beequen/beequen/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the IPC bridge to UI clients",
	Long: `Start the local backend process.

Every IPC channel is served at POST /api/v1/ipc/{channel} with a body of
{"args": [...]}. UI clients follow state changes and the execute-from-menu
notification on GET /api/v1/sse/events.

Examples:
  # Start on the configured address (default 127.0.0.1:7360)
  beequen serve

  # Start on another port without CORS headers
  beequen serve --port 7400 --no-cors`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveNoCORS bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "host address to bind to (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default from config)")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false, "disable CORS headers")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	eventBus := events.New(100)
	defer eventBus.Close()

	a, err := openApp(cfg, logger, appOptions{Bus: eventBus, History: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	if cfg.Watch.Enabled {
		if err := watchStores(ctx, a); err != nil {
			logger.Warn("not watching data directory", slog.String("error", err.Error()))
		}
	}

	server, err := startBridge(a, eventBus)
	if err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down server...")

	if err := server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// startBridge registers every IPC channel on a new bridge and serves it with
// the event stream.
func startBridge(a *app, bus *events.EventBus) (*web.Server, error) {
	bridge := ipc.NewBridge(a.logger.Logger)
	svc := ipc.Services{
		Projects:  a.projects,
		Backends:  a.connector,
		Dialer:    a.connector,
		Settings:  a.settings,
		Workspace: a.ws,
	}
	if a.history != nil {
		svc.History = a.history
	}
	ipc.Register(bridge, svc)

	server := web.New(serverConfig(a.cfg), a.logger.Logger,
		web.WithEventBus(bus),
		web.WithBridge(bridge),
	)
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("starting server: %w", err)
	}
	a.logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("data_dir", a.cfg.Data.Dir),
		slog.Int("channels", len(bridge.Channels())),
	)
	return server, nil
}

// serverConfig applies the server section and the serve flags.
func serverConfig(cfg *config.Config) web.Config {
	sc := web.DefaultConfig()
	if cfg.Server.Host != "" {
		sc.Host = cfg.Server.Host
	}
	if cfg.Server.Port != 0 {
		sc.Port = cfg.Server.Port
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sc.CORSOrigins = cfg.Server.CORSOrigins
	}
	sc.EnableCORS = cfg.Server.EnableCORS

	if serveHost != "" {
		sc.Host = serveHost
	}
	if servePort != 0 {
		sc.Port = servePort
	}
	if serveNoCORS {
		sc.EnableCORS = false
	}
	return sc
}

// watchStores reloads the project and setting stores when another process
// edits their files. The watcher stops with ctx.
func watchStores(ctx context.Context, a *app) error {
	w, err := watch.New(a.cfg.Data.Dir, watch.WithLogger(a.logger.Logger))
	if err != nil {
		return err
	}
	w.Watch(config.ProjectsFile, a.projects)
	w.Watch(config.SettingFile, a.settings)

	go func() {
		if err := w.Run(ctx); err != nil {
			a.logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}
