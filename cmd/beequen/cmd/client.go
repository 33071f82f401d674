package cmd

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/beequen/beequen/internal/ipc"
	"github.com/beequen/beequen/internal/render"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Send menu notifications to a running editor",
}

var menuExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run the current tab of the editor attached to the server",
	Long: `Send executeQueryFromMenu to every UI connected to the server started by
'beequen serve' or 'beequen tui --serve'. Bind it to a desktop shortcut to
run the current query from outside the terminal.`,
	Args: cobra.NoArgs,
	RunE: runMenuExecute,
}

var callCmd = &cobra.Command{
	Use:   "call <channel> [json-arg...]",
	Short: "Invoke an IPC channel of a running server",
	Long: `Invoke an IPC channel and print its JSON result. Each argument is one
positional JSON value; bare words are sent as strings.

Examples:
  beequen call getProjects
  beequen call getDatasets 9b2f...-uuid
  beequen call createProject '{"projectId":"my-project"}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

var serverURL string

func init() {
	rootCmd.AddCommand(menuCmd, callCmd)
	menuCmd.AddCommand(menuExecuteCmd)

	for _, c := range []*cobra.Command{menuCmd, callCmd} {
		c.PersistentFlags().StringVar(&serverURL, "server", "",
			"server base URL (default from the server config section)")
	}
}

// newClient connects to --server, or to the configured server address.
func newClient() (*ipc.Client, error) {
	if serverURL != "" {
		return ipc.NewClient(serverURL), nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	sc := serverConfig(cfg)
	return ipc.NewClient("http://" + net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))), nil
}

func runMenuExecute(_ *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("no server running: %w", err)
	}
	return client.ExecuteFromMenu(ctx)
}

func runCall(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	var result json.RawMessage
	if err := client.Invoke(ctx, args[0], &result, callArgs(args[1:])...); err != nil {
		return err
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return render.Encoded(cmd.OutOrStdout(), result, render.FormatJSON)
}

// callArgs turns command line words into positional arguments. Valid JSON is
// passed through; anything else is sent as a string.
func callArgs(words []string) []any {
	args := make([]any, len(words))
	for i, w := range words {
		if json.Valid([]byte(w)) {
			args[i] = json.RawMessage(w)
		} else {
			args[i] = w
		}
	}
	return args
}
