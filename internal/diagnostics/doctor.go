package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/fsutil"
	"github.com/beequen/beequen/internal/history"
	"github.com/beequen/beequen/internal/project"
	"github.com/beequen/beequen/internal/setting"
)

// Status is the outcome of one check.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Icon returns the marker printed before a check.
func (s Status) Icon() string {
	switch s {
	case StatusOK:
		return "✓"
	case StatusWarn:
		return "⚠"
	default:
		return "✗"
	}
}

// Check is one line of the doctor report.
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

// Report is the result of Doctor.Run.
type Report struct {
	Checks []Check      `json:"checks"`
	Host   *HostMetrics `json:"host,omitempty"`
}

// Failed reports whether any check failed. Warnings do not count.
func (r Report) Failed() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return true
		}
	}
	return false
}

// MinFreeDisk is the free space below which the data disk is reported.
const MinFreeDisk = 100 * 1024 * 1024

// Doctor inspects the data directory and, optionally, the stored projects'
// ability to run jobs.
type Doctor struct {
	DataDir        string
	ProjectsPath   string
	SettingPath    string
	HistoryPath    string
	HistoryEnabled bool

	// Dialer, when set, makes Run submit the validation query for every
	// stored project.
	Dialer core.Dialer
	// SkipHost disables host metrics.
	SkipHost bool
}

// Run executes every check in order.
func (d *Doctor) Run(ctx context.Context) Report {
	var r Report
	r.Checks = append(r.Checks, d.checkDataDir())

	projects, check := d.checkProjects()
	r.Checks = append(r.Checks, check)
	for _, p := range projects {
		r.Checks = append(r.Checks, checkCredentials(p))
		if d.Dialer != nil {
			r.Checks = append(r.Checks, d.checkConnect(ctx, p))
		}
	}

	r.Checks = append(r.Checks, d.checkSetting(), d.checkHistory(ctx))

	if !d.SkipHost {
		host := CollectHost(d.diskPath())
		r.Host = &host
		r.Checks = append(r.Checks, checkDisk(host))
	}
	return r
}

func (d *Doctor) checkDataDir() Check {
	c := Check{Name: "data directory"}
	info, err := os.Stat(d.DataDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.Status = StatusWarn
		c.Detail = fmt.Sprintf("%s does not exist yet; it is created on the first save", d.DataDir)
		return c
	case err != nil:
		c.Status = StatusFail
		c.Detail = err.Error()
		return c
	case !info.IsDir():
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("%s is not a directory", d.DataDir)
		return c
	}

	f, err := os.CreateTemp(d.DataDir, ".beequen-doctor-*")
	if err != nil {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("%s is not writable: %v", d.DataDir, err)
		return c
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	c.Status = StatusOK
	c.Detail = d.DataDir
	return c
}

// checkProjects parses the project file itself; the store would read a
// corrupt file as an empty list.
func (d *Doctor) checkProjects() ([]*project.Project, Check) {
	c := Check{Name: "projects"}
	data, ok, err := fsutil.ReadOptional(d.ProjectsPath)
	if err != nil {
		c.Status = StatusFail
		c.Detail = err.Error()
		return nil, c
	}
	if !ok {
		c.Status = StatusOK
		c.Detail = "no projects yet"
		return nil, c
	}

	var projects []*project.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("%s is not valid JSON and is read as an empty list: %v", d.ProjectsPath, err)
		return nil, c
	}
	c.Status = StatusOK
	c.Detail = fmt.Sprintf("%d stored", len(projects))
	return projects, c
}

func checkCredentials(p *project.Project) Check {
	c := Check{Name: fmt.Sprintf("credentials %s", p.ProjectID)}
	path := p.CredentialsPath
	if path == "" {
		adc := applicationDefaultCredentials()
		if adc == "" {
			c.Status = StatusWarn
			c.Detail = "no key file and no application default credentials found"
			return c
		}
		path = adc
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the user's own project file
	if err != nil {
		c.Status = StatusFail
		c.Detail = err.Error()
		return c
	}
	var key struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &key); err != nil || key.Type == "" {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("%s is not a credentials file", path)
		return c
	}
	c.Status = StatusOK
	c.Detail = fmt.Sprintf("%s (%s)", path, key.Type)
	return c
}

// applicationDefaultCredentials returns the file gcloud writes for
// Application Default Credentials, or "" when there is none.
func applicationDefaultCredentials() string {
	if env := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); env != "" {
		return env
	}

	var dir string
	if runtime.GOOS == "windows" {
		dir = os.Getenv("APPDATA")
	} else if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".config")
	}
	if dir == "" {
		return ""
	}
	path := filepath.Join(dir, "gcloud", "application_default_credentials.json")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (d *Doctor) checkConnect(ctx context.Context, p *project.Project) Check {
	c := Check{Name: fmt.Sprintf("connect %s", p.ProjectID)}
	err := project.Validate(ctx, d.Dialer, project.CreateInput{
		ProjectID:       p.ProjectID,
		CredentialsPath: p.CredentialsPath,
	})
	if err != nil {
		c.Status = StatusFail
		c.Detail = core.MessageOf(err)
		return c
	}
	c.Status = StatusOK
	c.Detail = "validation query accepted"
	return c
}

func (d *Doctor) checkSetting() Check {
	c := Check{Name: "setting"}
	data, ok, err := fsutil.ReadOptional(d.SettingPath)
	if err != nil {
		c.Status = StatusFail
		c.Detail = err.Error()
		return c
	}
	if !ok {
		c.Status = StatusOK
		c.Detail = "using defaults"
		return c
	}
	if err := setting.CheckJSON(data); err != nil {
		c.Status = StatusWarn
		c.Detail = core.MessageOf(err)
		return c
	}
	c.Status = StatusOK
	c.Detail = d.SettingPath
	return c
}

func (d *Doctor) checkHistory(ctx context.Context) Check {
	c := Check{Name: "history"}
	if !d.HistoryEnabled {
		c.Status = StatusOK
		c.Detail = "disabled"
		return c
	}
	if _, err := os.Stat(d.HistoryPath); errors.Is(err, fs.ErrNotExist) {
		c.Status = StatusOK
		c.Detail = "not created yet"
		return c
	}

	store, err := history.Open(d.HistoryPath)
	if err != nil {
		c.Status = StatusFail
		c.Detail = err.Error()
		return c
	}
	defer store.Close()

	entries, err := store.List(ctx, "", 1)
	if err != nil {
		c.Status = StatusFail
		c.Detail = err.Error()
		return c
	}
	c.Status = StatusOK
	c.Detail = d.HistoryPath
	if len(entries) > 0 {
		c.Detail += fmt.Sprintf(", last query %s", humanize.Time(entries[0].StartedAt))
	}
	return c
}

func (d *Doctor) diskPath() string {
	for dir := d.DataDir; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		if parent := filepath.Dir(dir); parent == dir {
			return dir
		}
	}
}

func checkDisk(host HostMetrics) Check {
	c := Check{Name: "disk"}
	if host.DiskFree == 0 && host.DiskPercent == 0 {
		c.Status = StatusWarn
		c.Detail = fmt.Sprintf("cannot read usage of %s", host.DiskPath)
		return c
	}
	c.Detail = fmt.Sprintf("%s free on %s", humanize.IBytes(host.DiskFree), host.DiskPath)
	if host.DiskFree < MinFreeDisk {
		c.Status = StatusWarn
		return c
	}
	c.Status = StatusOK
	return c
}
