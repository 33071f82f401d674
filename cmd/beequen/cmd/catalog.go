package cmd

import (
	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/ipc"
	"github.com/beequen/beequen/internal/render"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List datasets and their tables",
	Long: `List the datasets of a project with their tables and views.

--filter keeps tables whose id contains the text (case-sensitive). A
"fuzzy:" prefix ranks tables by fuzzy match instead, e.g. --filter fuzzy:ordr.`,
	Args: cobra.NoArgs,
	RunE: runDatasets,
}

var schemaCmd = &cobra.Command{
	Use:   "schema <dataset> <table>",
	Short: "Print the schema of a table",
	Args:  cobra.ExactArgs(2),
	RunE:  runSchema,
}

var (
	datasetsFilter string
	catalogOutput  string
)

func init() {
	rootCmd.AddCommand(datasetsCmd, schemaCmd)

	datasetsCmd.Flags().StringVar(&datasetsFilter, "filter", "", "only tables matching this text")
	for _, c := range []*cobra.Command{datasetsCmd, schemaCmd} {
		c.Flags().StringVarP(&catalogOutput, "output", "o", "table",
			"output format (table, json, yaml, csv, markdown)")
	}
}

func runDatasets(cmd *cobra.Command, _ []string) error {
	format, err := render.ParseFormat(catalogOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, newLogger(cfg), appOptions{})
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

	backend, err := a.connector.Backend(ctx, p.UUID)
	if err != nil {
		return err
	}
	datasets, err := backend.ListDatasets(ctx)
	if err != nil {
		return err
	}
	return render.Datasets(cmd.OutOrStdout(), ipc.FilterDatasets(datasets, datasetsFilter), format)
}

func runSchema(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(catalogOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, newLogger(cfg), appOptions{})
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

	backend, err := a.connector.Backend(ctx, p.UUID)
	if err != nil {
		return err
	}
	fields, err := backend.GetTableSchema(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return render.Schema(cmd.OutOrStdout(), fields, format)
}
