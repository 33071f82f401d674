package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/project"
	"github.com/beequen/beequen/internal/render"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Manage connection profiles",
	Long: `Manage the stored connection profiles ("projects").

A project names the BigQuery project jobs run in and, optionally, a service
account key file. Without a key file Application Default Credentials are used
(see 'gcloud auth application-default login').`,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectAddCmd = &cobra.Command{
	Use:   "add <project-id>",
	Short: "Store a new project",
	Long: `Store a new project. The profile is checked first by submitting a
validation query; use --no-validate to store it anyway.`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectAdd,
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <uuid|project-id>",
	Short: "Change a stored project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectUpdate,
}

var projectRemoveCmd = &cobra.Command{
	Use:     "remove <uuid|project-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a stored project",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectRemove,
}

var projectValidateCmd = &cobra.Command{
	Use:   "validate [uuid|project-id]",
	Short: "Check that a stored project can run jobs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectValidate,
}

var (
	projectOutput      string
	projectCredentials string
	projectNewID       string
	projectNoValidate  bool
)

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd, projectAddCmd, projectUpdateCmd, projectRemoveCmd, projectValidateCmd)

	projectListCmd.Flags().StringVarP(&projectOutput, "output", "o", "table",
		"output format (table, json, yaml, csv, markdown)")

	for _, c := range []*cobra.Command{projectAddCmd, projectUpdateCmd} {
		c.Flags().StringVar(&projectCredentials, "credentials", "",
			"service account key file (empty: application default credentials)")
		c.Flags().BoolVar(&projectNoValidate, "no-validate", false,
			"store the profile without submitting the validation query")
	}
	projectUpdateCmd.Flags().StringVar(&projectNewID, "project-id", "", "new BigQuery project id")
}

func runProjectList(cmd *cobra.Command, _ []string) error {
	format, err := render.ParseFormat(projectOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := project.NewFileStore(cfg.ProjectsPath(), project.WithLogger(newLogger(cfg).Logger))
	defer store.Close()

	projects, err := store.List()
	if err != nil {
		return err
	}
	return render.Projects(cmd.OutOrStdout(), projects, format)
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, newLogger(cfg), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	input := project.CreateInput{ProjectID: args[0]}
	if input.CredentialsPath, err = absPath(projectCredentials); err != nil {
		return err
	}
	if !projectNoValidate {
		ctx, stop := signalContext()
		defer stop()
		if err := project.Validate(ctx, a.connector, input); err != nil {
			return err
		}
	}

	p, err := a.projects.Create(input)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", p.ProjectID, p.UUID)
	return nil
}

func runProjectUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, newLogger(cfg), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := resolveProject(a.projects, args[0])
	if err != nil {
		return err
	}
	if projectNewID != "" {
		p.ProjectID = projectNewID
	}
	if cmd.Flags().Changed("credentials") {
		if p.CredentialsPath, err = absPath(projectCredentials); err != nil {
			return err
		}
	}
	if !projectNoValidate {
		ctx, stop := signalContext()
		defer stop()
		if err := validateStored(ctx, a, p); err != nil {
			return err
		}
	}

	if err := a.projects.Update(p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", p.ProjectID, p.UUID)
	return nil
}

func runProjectRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, newLogger(cfg), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := resolveProject(a.projects, args[0])
	if err != nil {
		return err
	}
	if err := a.projects.Delete(p.UUID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", p.ProjectID, p.UUID)
	return nil
}

func runProjectValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg, newLogger(cfg), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	arg := projectArg
	if len(args) == 1 {
		arg = args[0]
	}
	p, err := resolveProject(a.projects, arg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	if err := validateStored(ctx, a, p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s can run jobs\n", p.ProjectID)
	return nil
}

func validateStored(ctx context.Context, a *app, p *project.Project) error {
	return project.Validate(ctx, a.connector, project.CreateInput{
		ProjectID:       p.ProjectID,
		CredentialsPath: p.CredentialsPath,
	})
}

// absPath makes a key file path independent of the working directory.
func absPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}
