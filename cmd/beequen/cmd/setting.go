package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/render"
	"github.com/beequen/beequen/internal/setting"
)

var settingCmd = &cobra.Command{
	Use:   "setting",
	Short: "Show or change editor preferences",
}

var settingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective setting",
	Args:  cobra.NoArgs,
	RunE:  runSettingShow,
}

var settingSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one preference",
	Long: `Change one preference. Keys:

  ` + strings.Join(setting.Keys, "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: runSettingSet,
}

var settingImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Replace the setting with a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingImport,
}

var settingSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema the setting is validated against",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := cmd.OutOrStdout().Write(setting.Schema())
		return err
	},
}

var settingOutput string

func init() {
	rootCmd.AddCommand(settingCmd)
	settingCmd.AddCommand(settingShowCmd, settingSetCmd, settingImportCmd, settingSchemaCmd)

	settingShowCmd.Flags().StringVarP(&settingOutput, "output", "o", "json", "output format (json, yaml)")
}

func openSettingStore() (*setting.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return setting.NewStore(cfg.SettingPath(), setting.WithLogger(newLogger(cfg).Logger)), nil
}

func runSettingShow(cmd *cobra.Command, _ []string) error {
	format, err := render.ParseFormat(settingOutput)
	if err != nil {
		return err
	}
	store, err := openSettingStore()
	if err != nil {
		return err
	}
	s, err := store.Load()
	if err != nil {
		return err
	}
	return render.Encoded(cmd.OutOrStdout(), s, format)
}

func runSettingSet(cmd *cobra.Command, args []string) error {
	store, err := openSettingStore()
	if err != nil {
		return err
	}
	s, err := store.Load()
	if err != nil {
		return err
	}
	s, err = s.Set(args[0], args[1])
	if err != nil {
		return err
	}
	if err := store.Save(s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
	return nil
}

func runSettingImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0]) // #nosec G304 -- user supplied file
	if err != nil {
		return fmt.Errorf("reading setting file: %w", err)
	}
	store, err := openSettingStore()
	if err != nil {
		return err
	}
	if err := store.SaveJSON(data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Setting saved to %s\n", store.Path())
	return nil
}
