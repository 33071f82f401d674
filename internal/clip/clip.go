// Package clip copies rendered query results to the clipboard.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is the mechanism that made the content available.
type Method string

const (
	MethodNative Method = "native" // OS clipboard
	MethodOSC52  Method = "osc52"  // terminal clipboard escape sequence
	MethodFile   Method = "file"   // temp file, no clipboard was reachable
)

// Result tells where the content went.
type Result struct {
	Method   Method
	FilePath string // only set for MethodFile
}

// String describes the result for a status line.
func (r Result) String() string {
	switch r.Method {
	case MethodNative:
		return "copied to clipboard"
	case MethodOSC52:
		return "copied to terminal clipboard"
	default:
		return "clipboard unavailable, saved to " + r.FilePath
	}
}

// Swapped in tests.
var (
	nativeWriteAll           = atotto.WriteAll
	osc52WriteAll            = writeAllOSC52
	osc52Out       io.Writer = os.Stderr
	osc52IsTTY               = func() bool { return term.IsTerminal(int(os.Stderr.Fd())) }
	tempDir                  = os.TempDir
)

// Copy copies text, trying the native clipboard, then OSC52, then a temp
// file named after ext (for example ".csv").
func Copy(text, ext string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}
	if err := nativeWriteAll(text); err == nil {
		return Result{Method: MethodNative}, nil
	}
	if err := osc52WriteAll(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := writeTempFile(text, ext)
	if err != nil {
		return Result{}, fmt.Errorf("saving results: %w", err)
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

// Terminals drop or stall on large OSC52 payloads.
const osc52LimitBytes = 100_000

func writeAllOSC52(text string) error {
	if !osc52IsTTY() {
		return errors.New("stderr is not a terminal")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}

	seq := osc52.New(text).Limit(osc52LimitBytes)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("STY") != "" {
		seq = seq.Screen()
	}
	// stderr keeps the sequence out of the TUI's stdout renderer.
	_, err := seq.WriteTo(osc52Out)
	return err
}

func writeTempFile(text, ext string) (path string, err error) {
	f, err := os.CreateTemp(tempDir(), "beequen-results-*"+ext)
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
