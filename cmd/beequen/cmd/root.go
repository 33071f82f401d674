package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beequen/beequen/internal/core"
)

var (
	cfgFile    string
	logLevel   string
	logFormat  string
	dataDir    string
	projectArg string // --project/-p: uuid or BigQuery project id

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "beequen",
	Short: "A SQL client for BigQuery",
	Long: `beequen runs SQL against Google BigQuery from the terminal.

Manage connection profiles with 'beequen project', run one-off queries with
'beequen query', or open the tabbed editor with 'beequen tui'. 'beequen serve'
exposes the same services to UI clients over a local HTTP bridge.

Running 'beequen' without arguments opens the editor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion records build information for the version command.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

// ErrorMessage returns the text shown for err: the message of a domain
// error, the full chain otherwise.
func ErrorMessage(err error) string {
	return core.MessageOf(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./.beequen.yaml, then ~/.config/beequen/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"directory holding projects, setting and history")
	rootCmd.PersistentFlags().StringVarP(&projectArg, "project", "p", "",
		"project uuid or BigQuery project id (default: the only stored project)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("data.dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}
