package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/events"
	"github.com/beequen/beequen/internal/logging"
	"github.com/beequen/beequen/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the query editor",
	Long: `Open the tabbed query editor in the terminal.

Each project has its own tabs; every tab runs its query independently. Press
F1 inside the editor for the key bindings. Logs go to the file set by
log.file (default <data dir>/beequen.log) while the editor is open.

With --serve the editor also serves the IPC bridge, so other processes can
drive it, for example 'beequen menu execute' runs the current tab.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

var tuiServe bool

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().BoolVar(&tuiServe, "serve", false, "also serve the IPC bridge while the editor is open")
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	logger, logFile, err := logging.NewFile(cfg.LogPath(), level)
	if err != nil {
		return err
	}
	defer logFile.Close()

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

	if tuiServe {
		server, err := startBridge(a, eventBus)
		if err != nil {
			return err
		}
		defer func() {
			if err := server.Shutdown(context.Background()); err != nil {
				logger.Warn("server shutdown", slog.String("error", err.Error()))
			}
		}()
	}

	state := tui.NewUIStateManager(cfg.Data.Dir)
	if err := state.Load(); err != nil {
		logger.Warn("loading ui state", slog.String("error", err.Error()))
	}

	logger.Info("editor started", slog.String("data_dir", cfg.Data.Dir))
	if err := tui.Run(ctx, tui.Options{
		Workspace: a.ws,
		Projects:  a.projects,
		Settings:  a.settings,
		Bus:       eventBus,
		State:     state,
		Logger:    logger.Logger,
	}); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return nil
}
