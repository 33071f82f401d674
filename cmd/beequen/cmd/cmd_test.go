package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beequen/beequen/internal/config"
	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/project"
	"github.com/beequen/beequen/internal/testutil"
	"github.com/beequen/beequen/internal/workspace"
)

func newStore(t *testing.T, ids ...string) *project.FileStore {
	t.Helper()
	store := project.NewFileStore(filepath.Join(t.TempDir(), "projects.json"))
	for _, id := range ids {
		if _, err := store.Create(project.CreateInput{ProjectID: id}); err != nil {
			t.Fatalf("creating %s: %v", id, err)
		}
	}
	return store
}

func TestResolveProject_Empty(t *testing.T) {
	_, err := resolveProject(newStore(t), "")
	if err == nil || !strings.Contains(ErrorMessage(err), "beequen project add") {
		t.Errorf("expected a hint to add a project, got %v", err)
	}
}

func TestResolveProject_OnlyProjectIsDefault(t *testing.T) {
	p, err := resolveProject(newStore(t, "alpha"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ProjectID != "alpha" {
		t.Errorf("expected alpha, got %s", p.ProjectID)
	}
}

func TestResolveProject_AmbiguousWithoutArg(t *testing.T) {
	_, err := resolveProject(newStore(t, "alpha", "beta"), "")
	if err == nil || !strings.Contains(ErrorMessage(err), "alpha, beta") {
		t.Errorf("expected the stored ids in the error, got %v", err)
	}
}

func TestResolveProject_ByUUIDOrID(t *testing.T) {
	store := newStore(t, "alpha", "beta")
	list, _ := store.List()

	p, err := resolveProject(store, list[1].UUID)
	if err != nil || p.ProjectID != "beta" {
		t.Errorf("by uuid: got %v, %v", p, err)
	}
	p, err = resolveProject(store, "alpha")
	if err != nil || p.UUID != list[0].UUID {
		t.Errorf("by project id: got %v, %v", p, err)
	}
}

func TestResolveProject_NotFound(t *testing.T) {
	_, err := resolveProject(newStore(t, "alpha"), "gamma")
	if !errors.Is(err, project.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestResolveProject_DuplicateProjectID(t *testing.T) {
	_, err := resolveProject(newStore(t, "alpha", "alpha"), "alpha")
	if err == nil || !strings.Contains(ErrorMessage(err), "by uuid") {
		t.Errorf("expected an ambiguity error, got %v", err)
	}
}

func TestReadQuery_FromArgs(t *testing.T) {
	sql, err := readQuery([]string{"select", "1"}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql != "select 1" {
		t.Errorf("expected 'select 1', got %q", sql)
	}
}

func TestReadQuery_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.sql")
	if err := os.WriteFile(path, []byte("\nselect 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	sql, err := readQuery(nil, path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql != "select 2" {
		t.Errorf("expected 'select 2', got %q", sql)
	}
}

func TestReadQuery_FromStdin(t *testing.T) {
	sql, err := readQuery([]string{"-"}, "", strings.NewReader("select 3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sql != "select 3" {
		t.Errorf("expected 'select 3', got %q", sql)
	}
}

func TestReadQuery_Empty(t *testing.T) {
	if _, err := readQuery(nil, "", nil); err == nil {
		t.Error("expected error when no query given")
	}
	if _, err := readQuery(nil, "/nonexistent/q.sql", nil); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestCallArgs(t *testing.T) {
	args := callArgs([]string{`{"projectId":"p"}`, "plain", "42"})

	encoded, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(encoded); got != `[{"projectId":"p"},"plain",42]` {
		t.Errorf("unexpected args %s", got)
	}
}

func TestServerConfig_FlagsOverrideConfig(t *testing.T) {
	t.Cleanup(func() { serveHost, servePort, serveNoCORS = "", 0, false })

	cfg := &config.Config{Server: config.ServerConfig{Host: "0.0.0.0", Port: 9000, EnableCORS: true}}
	sc := serverConfig(cfg)
	if sc.Host != "0.0.0.0" || sc.Port != 9000 || !sc.EnableCORS {
		t.Errorf("config not applied: %+v", sc)
	}

	servePort, serveNoCORS = 9100, true
	sc = serverConfig(cfg)
	if sc.Port != 9100 || sc.EnableCORS {
		t.Errorf("flags not applied: %+v", sc)
	}
}

func TestBackendOptions(t *testing.T) {
	cfg := &config.Config{}
	if got := len(backendOptions(cfg)); got != 0 {
		t.Errorf("expected no options for an empty section, got %d", got)
	}
	cfg.BigQuery = config.BigQueryConfig{Location: "EU", MaxResultRows: 10, TableListBudget: 5}
	if got := len(backendOptions(cfg)); got != 3 {
		t.Errorf("expected 3 options, got %d", got)
	}
}

func TestRootCmd_Structure(t *testing.T) {
	if rootCmd.Use != "beequen" {
		t.Errorf("expected 'beequen', got '%s'", rootCmd.Use)
	}
	want := []string{"serve", "tui", "query", "project", "setting", "datasets", "schema",
		"history", "doctor", "version", "menu", "call", "config"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing command %q", name)
		}
	}
}

// execute runs the root command with a fresh data directory.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--data-dir", dir}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestProjectCommands(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { projectNoValidate, projectOutput = false, "table" })

	out, err := execute(t, dir, "project", "add", "alpha", "--no-validate")
	if err != nil {
		t.Fatalf("project add: %v", err)
	}
	if !strings.Contains(out, "Added alpha") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = execute(t, dir, "project", "list", "-o", "json")
	if err != nil {
		t.Fatalf("project list: %v", err)
	}
	var listed []project.Project
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(listed) != 1 || listed[0].ProjectID != "alpha" {
		t.Fatalf("unexpected projects %+v", listed)
	}

	if _, err := execute(t, dir, "project", "remove", "alpha"); err != nil {
		t.Fatalf("project remove: %v", err)
	}
	store := project.NewFileStore(filepath.Join(dir, config.ProjectsFile))
	if list, _ := store.List(); len(list) != 0 {
		t.Errorf("expected no projects after remove, got %d", len(list))
	}
}

func TestSettingCommands(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { settingOutput = "json" })

	if _, err := execute(t, dir, "setting", "set", "editor.indent", "4space"); err != nil {
		t.Fatalf("setting set: %v", err)
	}
	out, err := execute(t, dir, "setting", "show", "-o", "json")
	if err != nil {
		t.Fatalf("setting show: %v", err)
	}
	if !strings.Contains(out, `"indent": "4space"`) {
		t.Errorf("unexpected setting %s", out)
	}

	if _, err := execute(t, dir, "setting", "set", "editor.mode", "emacs"); err == nil {
		t.Error("expected an invalid value to be rejected")
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beequen.yaml")
	t.Cleanup(func() { configInitPath, configInitForce = ".beequen.yaml", false })

	if _, err := execute(t, t.TempDir(), "config", "init", "--path", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != config.DefaultConfigYAML {
		t.Error("config file does not hold the default config")
	}

	if _, err := execute(t, t.TempDir(), "config", "init", "--path", path); err == nil {
		t.Error("expected an existing file to be kept without --force")
	}
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3", "abc", "today")
	t.Cleanup(func() { SetVersion("", "", "") })

	out, err := execute(t, t.TempDir(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "beequen 1.2.3") || !strings.Contains(out, "commit: abc") {
		t.Errorf("unexpected version output %q", out)
	}
}

// Interrupting a run while its job is being submitted still cancels the job
// once the backend hands out its id.
func TestRunTab_InterruptDuringSubmit(t *testing.T) {
	submitting := make(chan struct{})
	release := make(chan struct{})
	backend := testutil.NewMockBackend().WithSubmitFunc(
		func(context.Context, string) (core.ExecuteQueryResult, error) {
			close(submitting)
			<-release
			return core.ExecuteQueryResult{JobID: "j1"}, nil
		})
	ws := workspace.New(&testutil.MockProvider{Conn: backend})
	tab := ws.CreateTab("p1")

	ctx, interrupt := context.WithCancel(context.Background())
	type outcome struct {
		state *core.QueryState
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		s, err := runTab(ctx, ws, "p1", tab.ID)
		done <- outcome{s, err}
	}()

	select {
	case <-submitting:
	case <-time.After(2 * time.Second):
		t.Fatal("submit not started")
	}
	interrupt()
	time.Sleep(2 * cancelRetry)
	close(release)

	select {
	case id := <-backend.Canceled():
		if id != "j1" {
			t.Errorf("expected j1 to be canceled, got %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("submitted job was never canceled")
	}

	select {
	case out := <-done:
		if out.err != nil {
			t.Fatalf("unexpected error: %v", out.err)
		}
		if out.state.Status != core.StatusCanceled || out.state.JobID != "j1" {
			t.Errorf("expected canceled j1, got %+v", out.state)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}
	ws.Wait()
}
