package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/diagnostics"
	"github.com/beequen/beequen/internal/render"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the data directory, credentials and host",
	Long: `Check that the data directory is usable, that the stored projects point
at readable credentials, and that the machine has room for results.

With --connect every project also submits the validation query.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var (
	doctorConnect bool
	doctorJSON    bool
	doctorNoHost  bool
)

var errDoctorFailed = errors.New("some checks failed")

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorConnect, "connect", false, "submit the validation query for every project")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "print the report as JSON")
	doctorCmd.Flags().BoolVar(&doctorNoHost, "no-host", false, "skip host resource checks")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	d := &diagnostics.Doctor{
		DataDir:        cfg.Data.Dir,
		ProjectsPath:   cfg.ProjectsPath(),
		SettingPath:    cfg.SettingPath(),
		HistoryPath:    cfg.HistoryPath(),
		HistoryEnabled: cfg.History.Enabled,
		SkipHost:       doctorNoHost,
	}
	if doctorConnect {
		a, err := openApp(cfg, newLogger(cfg), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		d.Dialer = a.connector
	}

	ctx, stop := signalContext()
	defer stop()
	report := d.Run(ctx)

	out := cmd.OutOrStdout()
	if doctorJSON {
		if err := render.Encoded(out, report, render.FormatJSON); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}
	if report.Failed() {
		return errDoctorFailed
	}
	return nil
}

func printReport(w io.Writer, r diagnostics.Report) {
	fmt.Fprintln(w, "Checking beequen...")
	fmt.Fprintln(w)
	for _, c := range r.Checks {
		fmt.Fprintf(w, "  %s %-24s %s\n", c.Status.Icon(), c.Name, c.Detail)
	}

	if h := r.Host; h != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Host:")
		fmt.Fprintf(w, "  %s/%s, %d threads", h.OS, h.Arch, h.CPUThreads)
		if h.CPUModel != "" {
			fmt.Fprintf(w, " (%s)", h.CPUModel)
		}
		fmt.Fprintln(w)
		if h.MemTotal > 0 {
			fmt.Fprintf(w, "  memory %s of %s used (%.0f%%)\n",
				humanize.IBytes(h.MemUsed), humanize.IBytes(h.MemTotal), h.MemPercent)
		}
		if h.LoadAvg1 > 0 {
			fmt.Fprintf(w, "  load %.2f\n", h.LoadAvg1)
		}
	}
}
