package clip

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stub(t *testing.T) {
	t.Helper()
	origNative, origOSC, origOut, origTTY, origTemp := nativeWriteAll, osc52WriteAll, osc52Out, osc52IsTTY, tempDir
	t.Cleanup(func() {
		nativeWriteAll, osc52WriteAll, osc52Out, osc52IsTTY, tempDir = origNative, origOSC, origOut, origTTY, origTemp
	})
	dir := t.TempDir()
	tempDir = func() string { return dir }
}

func TestCopy_Native(t *testing.T) {
	stub(t)
	var got string
	nativeWriteAll = func(s string) error { got = s; return nil }

	res, err := Copy("a,b\n1,2\n", ".csv")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if res.Method != MethodNative || got != "a,b\n1,2\n" {
		t.Errorf("Copy() = %+v, clipboard %q", res, got)
	}
	if res.String() != "copied to clipboard" {
		t.Errorf("String() = %q", res.String())
	}
}

func TestCopy_FallsBackToOSC52(t *testing.T) {
	stub(t)
	nativeWriteAll = func(string) error { return errors.New("no display") }
	var buf bytes.Buffer
	osc52Out = &buf
	osc52IsTTY = func() bool { return true }

	res, err := Copy("select 1", ".txt")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if res.Method != MethodOSC52 {
		t.Fatalf("Method = %q, want %q", res.Method, MethodOSC52)
	}
	if !strings.HasPrefix(buf.String(), "\x1b]52;") {
		t.Errorf("expected OSC52 sequence, got %q", buf.String())
	}
}

func TestCopy_FallsBackToFile(t *testing.T) {
	stub(t)
	nativeWriteAll = func(string) error { return errors.New("no display") }
	osc52IsTTY = func() bool { return false }

	res, err := Copy("n\n1\n", ".csv")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if res.Method != MethodFile {
		t.Fatalf("Method = %q, want %q", res.Method, MethodFile)
	}
	if !strings.HasPrefix(filepath.Base(res.FilePath), "beequen-results-") || filepath.Ext(res.FilePath) != ".csv" {
		t.Errorf("unexpected file name %s", res.FilePath)
	}
	data, err := os.ReadFile(res.FilePath)
	if err != nil || string(data) != "n\n1\n" {
		t.Errorf("file content = %q, %v", data, err)
	}
	if !strings.Contains(res.String(), res.FilePath) {
		t.Errorf("String() = %q", res.String())
	}
}

func TestCopy_Empty(t *testing.T) {
	stub(t)
	if _, err := Copy("", ".txt"); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestWriteAllOSC52_TooLarge(t *testing.T) {
	stub(t)
	osc52IsTTY = func() bool { return true }
	osc52Out = &bytes.Buffer{}

	if err := writeAllOSC52(strings.Repeat("x", osc52LimitBytes+1)); err == nil {
		t.Error("expected error for text exceeding OSC52 limit")
	}
}
