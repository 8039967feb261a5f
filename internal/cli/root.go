package cli

import (
	"fmt"
	"os"
	"strings"

	"babysteps/internal/format"
	"babysteps/internal/store"
	"babysteps/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	PrettyJSON bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "babysteps",
		Short:        "Baby milestone timeline (local-first) CLI + web",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  babysteps

  # Serve the shared web timeline
  babysteps serve --addr :3336 --gate-password sprout

  # Scriptable commands
  babysteps milestones list
  babysteps milestones add --title "First smile" --date 2024-02-01 --description "Gummy grin"
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("BABYSTEPS_DIR", ""), "Path to data dir (default: ~/.babysteps)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newMilestonesCmd(app))
	cmd.AddCommand(newAdminsCmd(app))
	cmd.AddCommand(newExportCmd(app))

	return cmd
}

func runTUI(app *App) error {
	st, err := resolveStore(app)
	if err != nil {
		return err
	}
	return tui.Run(st)
}

func resolveStore(app *App) (store.Store, error) {
	dir := strings.TrimSpace(app.Dir)
	if dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return store.Store{}, err
		}
		dir = d
	}
	st := store.Store{Dir: dir}
	if err := st.Ensure(); err != nil {
		return store.Store{}, err
	}
	return st, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.WriteJSON(cmd.OutOrStdout(), v, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
