package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/clip"
	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/query"
	"github.com/beequen/beequen/internal/render"
	"github.com/beequen/beequen/internal/workspace"
)

var queryCmd = &cobra.Command{
	Use:   "query [SQL...]",
	Short: "Run a query and print its result",
	Long: `Run a query in a stored project and print the result.

The query is taken from the arguments, from --file, or from stdin when the
only argument is "-". Ctrl+C cancels the job.

Examples:
  beequen query 'select 1 as n'
  beequen query -p my-project --file report.sql -o csv > report.csv
  echo 'select current_date()' | beequen query -
  beequen query --dry-run 'select * from sales.orders'`,
	RunE: runQuery,
}

var (
	queryFile   string
	queryOutput string
	queryDryRun bool
	queryCopy   bool
)

// errQueryCanceled is returned when the job was canceled from the terminal.
var errQueryCanceled = errors.New("query canceled")

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "read the query from a file")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "table",
		"output format (table, json, yaml, csv, markdown)")
	queryCmd.Flags().BoolVar(&queryDryRun, "dry-run", false,
		"only estimate the bytes the query would process")
	queryCmd.Flags().BoolVar(&queryCopy, "copy", false,
		"also copy the output to the clipboard")
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(queryOutput)
	if err != nil {
		return err
	}
	sql, err := readQuery(args, queryFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, newLogger(cfg), appOptions{History: true})
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := resolveProject(a.projects, projectArg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	tab := a.ws.CreateTab(p.UUID)
	if _, err := a.ws.UpdateTab(p.UUID, tab.ID, workspace.TabUpdate{Text: &sql}); err != nil {
		return err
	}

	log := a.logger.WithProject(p.UUID).WithTab(tab.ID)
	log.Debug("running query", "project_id", p.ProjectID, "dry_run", queryDryRun)

	var out bytes.Buffer
	if queryDryRun {
		res, err := a.ws.DryRun(ctx, p.UUID, tab.ID)
		if err != nil {
			return err
		}
		if err := render.DryRun(&out, res, format); err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), out.Bytes(), format)
	}

	state, err := runTab(ctx, a.ws, p.UUID, tab.ID)
	if err != nil {
		return err
	}
	log.WithJob(state.JobID).Debug("query settled", "status", state.Status)
	switch state.Status {
	case core.StatusCompleted:
		if err := render.Result(&out, state.Result, format); err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), cmd.ErrOrStderr(), out.Bytes(), format)
	case core.StatusCanceled:
		_ = render.State(cmd.ErrOrStderr(), state)
		return errQueryCanceled
	default:
		return errors.New(state.Message)
	}
}

// submitGrace bounds how long an interrupted run waits for its job to be
// submitted so it can be canceled on the server.
const submitGrace = 10 * time.Second

// cancelRetry is how often an interrupted run retries the cancel while the
// job is still being submitted.
const cancelRetry = 50 * time.Millisecond

// runTab runs a tab until it settles. When ctx ends first the job is
// canceled and the canceled state is returned.
func runTab(ctx context.Context, ws *workspace.Workspace, projectUUID, tabID string) (*core.QueryState, error) {
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// Cancel first so the result of the aborted wait is discarded.
			cancelTab(ws, projectUUID, tabID, done)
			cancelRun()
		case <-done:
		}
	}()

	return ws.Run(runCtx, projectUUID, tabID)
}

// cancelTab cancels the job of a tab. A job still being submitted is waited
// for, up to submitGrace, so it does not keep running on the server after the
// client gave up on it.
func cancelTab(ws *workspace.Workspace, projectUUID, tabID string, done <-chan struct{}) {
	grace := time.NewTimer(submitGrace)
	defer grace.Stop()
	tick := time.NewTicker(cancelRetry)
	defer tick.Stop()

	for {
		err := ws.Cancel(context.Background(), projectUUID, tabID)
		if !errors.Is(err, query.ErrNotRunning) {
			return
		}
		select {
		case <-tick.C:
		case <-done:
			return
		case <-grace.C:
			return
		}
	}
}

// emit writes rendered output and, with --copy, puts it on the clipboard.
func emit(stdout, stderr io.Writer, data []byte, format render.Format) error {
	if _, err := stdout.Write(data); err != nil {
		return err
	}
	if !queryCopy {
		return nil
	}
	res, err := clip.Copy(string(data), format.Ext())
	if err != nil {
		return fmt.Errorf("copying output: %w", err)
	}
	fmt.Fprintln(stderr, res.String())
	return nil
}
