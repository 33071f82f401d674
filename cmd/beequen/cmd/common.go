package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"github.com/beequen/beequen/internal/bigquery"
	"github.com/beequen/beequen/internal/config"
	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/events"
	"github.com/beequen/beequen/internal/history"
	"github.com/beequen/beequen/internal/logging"
	"github.com/beequen/beequen/internal/project"
	"github.com/beequen/beequen/internal/setting"
	"github.com/beequen/beequen/internal/workspace"
)

// loadConfig loads and validates the configuration, honoring --config and
// the flags bound to the global viper.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// newLogger creates the stderr logger of one-shot commands and the server.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// appOptions selects the optional parts of an app.
type appOptions struct {
	// Bus receives store and query events. Nil disables publishing.
	Bus *events.EventBus
	// History opens the history database when enabled in the config.
	History bool
}

// app holds the services shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	bus       *events.EventBus
	projects  *project.FileStore
	settings  *setting.Store
	connector *bigquery.Connector
	history   *history.Store
	ws        *workspace.Workspace

	closers []io.Closer
}

// openApp wires the stores, the backend connector and the workspace.
func openApp(cfg *config.Config, logger *logging.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger, bus: opts.Bus}

	// The connector evicts cached backends when a project changes, and the
	// store needs its observers at construction.
	var connector *bigquery.Connector
	observers := []project.Observer{
		project.ObserverFunc(func(reason, uuid string) { connector.ProjectChanged(reason, uuid) }),
	}
	settingOpts := []setting.Option{setting.WithLogger(logger.Logger)}
	wsOpts := []workspace.Option{workspace.WithLogger(logger.Logger)}
	if opts.Bus != nil {
		observers = append(observers, project.PublishChanges(opts.Bus))
		settingOpts = append(settingOpts, setting.WithPublisher(opts.Bus))
		wsOpts = append(wsOpts, workspace.WithPublisher(opts.Bus))
	}

	a.projects = project.NewFileStore(cfg.ProjectsPath(),
		project.WithLogger(logger.Logger),
		project.WithObserver(observers...),
	)
	a.closers = append(a.closers, a.projects)

	connector = bigquery.NewConnector(a.projects, backendOptions(cfg),
		bigquery.WithConnectorLogger(logger.Logger))
	a.connector = connector
	a.closers = append(a.closers, connector)

	a.settings = setting.NewStore(cfg.SettingPath(), settingOpts...)

	if opts.History && cfg.History.Enabled {
		h, err := history.Open(cfg.HistoryPath())
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("opening history: %w", err)
		}
		a.history = h
		a.closers = append(a.closers, h)
		wsOpts = append(wsOpts, workspace.WithRecorder(h))
	}

	a.ws = workspace.New(connector, wsOpts...)
	return a, nil
}

// Close waits for pending cancels and releases every resource in reverse
// order of creation.
func (a *app) Close() error {
	if a.ws != nil {
		a.ws.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// backendOptions maps the bigquery config section to backend options.
func backendOptions(cfg *config.Config) []bigquery.Option {
	var opts []bigquery.Option
	if cfg.BigQuery.Location != "" {
		opts = append(opts, bigquery.WithLocation(cfg.BigQuery.Location))
	}
	if cfg.BigQuery.MaxResultRows > 0 {
		opts = append(opts, bigquery.WithMaxResultRows(cfg.BigQuery.MaxResultRows))
	}
	if cfg.BigQuery.TableListBudget > 0 {
		opts = append(opts, bigquery.WithTableListBudget(cfg.BigQuery.TableListBudget, cfg.BigQuery.TableListWindow))
	}
	return opts
}

// resolveProject finds the project named by arg, which is a uuid or a
// BigQuery project id. An empty arg picks the only stored project.
func resolveProject(store project.Store, arg string) (*project.Project, error) {
	projects, err := store.List()
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, core.ErrValidation(core.CodeInvalidArgument,
			"no projects stored; add one with 'beequen project add <project-id>'")
	}

	if arg == "" {
		if len(projects) == 1 {
			return projects[0], nil
		}
		ids := make([]string, len(projects))
		for i, p := range projects {
			ids[i] = p.ProjectID
		}
		return nil, core.ErrValidation(core.CodeInvalidArgument,
			fmt.Sprintf("several projects stored (%s); choose one with --project", strings.Join(ids, ", ")))
	}

	var byID []*project.Project
	for _, p := range projects {
		if p.UUID == arg {
			return p, nil
		}
		if p.ProjectID == arg {
			byID = append(byID, p)
		}
	}
	switch len(byID) {
	case 0:
		return nil, &core.DomainError{
			Category: core.ErrCatNotFound,
			Code:     project.CodeProjectNotFound,
			Message:  fmt.Sprintf("no stored project has uuid or project id %s", arg),
			Cause:    project.ErrProjectNotFound,
		}
	case 1:
		return byID[0], nil
	default:
		return nil, core.ErrValidation(core.CodeInvalidArgument,
			fmt.Sprintf("%d projects use %s; choose one by uuid", len(byID), arg))
	}
}

// readQuery returns the SQL from args, from --file, or from stdin when the
// only argument is "-".
func readQuery(args []string, file string, stdin io.Reader) (string, error) {
	var sql string
	switch {
	case file != "":
		data, err := os.ReadFile(file) // #nosec G304 -- user supplied query file
		if err != nil {
			return "", fmt.Errorf("reading query file: %w", err)
		}
		sql = string(data)
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading query from stdin: %w", err)
		}
		sql = string(data)
	default:
		sql = strings.Join(args, " ")
	}

	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "", core.ErrValidation(core.CodeInvalidArgument, "no query given")
	}
	return sql, nil
}
