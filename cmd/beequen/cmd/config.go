package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/config"
	"github.com/beequen/beequen/internal/fsutil"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the data directory and the files in it",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var (
	configInitPath  string
	configInitForce bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configPathCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", ".beequen.yaml", "file to write")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if !configInitForce {
		if _, err := os.Stat(configInitPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configInitPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := fsutil.WriteFileAtomic(configInitPath, []byte(config.DefaultConfigYAML), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configInitPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "data dir:  %s\n", cfg.Data.Dir)
	fmt.Fprintf(out, "projects:  %s\n", cfg.ProjectsPath())
	fmt.Fprintf(out, "setting:   %s\n", cfg.SettingPath())
	fmt.Fprintf(out, "history:   %s\n", cfg.HistoryPath())
	fmt.Fprintf(out, "log:       %s\n", cfg.LogPath())
	return nil
}
