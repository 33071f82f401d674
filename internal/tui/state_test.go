package tui

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUIStateManager_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	mgr := NewUIStateManager(dir)
	if err := mgr.Load(); err != nil {
		t.Fatalf("Load on a fresh dir: %v", err)
	}
	if got := mgr.Get().LastProject; got != "" {
		t.Errorf("LastProject = %q, want empty", got)
	}

	mgr.SetLastProject("p1")
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, UIStateFile)); err != nil {
		t.Fatalf("state file not written: %v", err)
	}

	again := NewUIStateManager(dir)
	defer again.Close()
	if err := again.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := again.Get().LastProject; got != "p1" {
		t.Errorf("LastProject = %q, want p1", got)
	}
	if got := again.Get().Version; got != CurrentUIStateVersion {
		t.Errorf("Version = %d, want %d", got, CurrentUIStateVersion)
	}
}

func TestUIStateManager_CorruptFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, UIStateFile), []byte("{oops"), 0o600); err != nil {
		t.Fatal(err)
	}

	mgr := NewUIStateManager(dir)
	defer mgr.Close()
	if err := mgr.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := mgr.Get().LastProject; got != "" {
		t.Errorf("LastProject = %q, want empty", got)
	}
}

func TestUIStateManager_Drafts(t *testing.T) {
	dir := t.TempDir()

	mgr := NewUIStateManager(dir)
	mgr.SetLastProject("p1")
	mgr.SetDraft("p1", "select 1")
	mgr.SetDraft("p2", "select 2")
	mgr.SetDraft("p2", "")
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	mgr.SetDraft("p3", "ignored after close")

	again := NewUIStateManager(dir)
	defer again.Close()
	if err := again.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := again.Draft("p1"); got != "select 1" {
		t.Errorf("Draft(p1) = %q, want %q", got, "select 1")
	}
	if got := again.Draft("p2"); got != "" {
		t.Errorf("Draft(p2) = %q, want empty", got)
	}
	if got := again.Draft("p3"); got != "" {
		t.Errorf("updates after Close should be dropped, got %q", got)
	}

	again.ForgetProject("p1")
	if s := again.Get(); s.LastProject != "" || len(s.Drafts) != 0 {
		t.Errorf("ForgetProject left %+v", s)
	}
}

func TestUIStateManager_LoadsVersion1(t *testing.T) {
	dir := t.TempDir()
	v1 := `{"version":1,"last_project":"p1","updated_at":"2025-01-01T00:00:00Z"}`
	if err := os.WriteFile(filepath.Join(dir, UIStateFile), []byte(v1), 0o600); err != nil {
		t.Fatal(err)
	}

	mgr := NewUIStateManager(dir)
	defer mgr.Close()
	if err := mgr.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := mgr.Get()
	if s.LastProject != "p1" || s.Version != CurrentUIStateVersion {
		t.Errorf("state = %+v, want p1 at version %d", s, CurrentUIStateVersion)
	}
}
