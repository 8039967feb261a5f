package cli

import (
	"os"
	"strings"

	"babysteps/internal/publish"

	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the timeline as markdown",
		Example: strings.TrimSpace(`
  babysteps export
  babysteps export --out journey.md
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := resolveStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			tl, err := st.GetTimeline(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			md, err := publish.RenderTimelineMarkdown(tl)
			if err != nil {
				return writeErr(cmd, err)
			}

			if p := strings.TrimSpace(out); p != "" {
				if err := os.WriteFile(p, []byte(md), 0o644); err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{
					"data": map[string]any{"path": p, "bytes": len(md)},
				})
			}
			_, err = cmd.OutOrStdout().Write([]byte(md))
			return err
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write to this file instead of stdout")
	return cmd
}
