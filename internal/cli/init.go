package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var babyName string
	var birthDate string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the data dir and the shared timeline",
		Example: strings.TrimSpace(`
  babysteps init
  babysteps init --baby-name "Nora" --birth-date 2024-01-01
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := resolveStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			if err := st.EnsureTimeline(ctx); err != nil {
				return writeErr(cmd, err)
			}
			name := strings.TrimSpace(babyName)
			birth := strings.TrimSpace(birthDate)
			if name != "" || birth != "" {
				cur, err := st.GetTimeline(ctx)
				if err != nil {
					return writeErr(cmd, err)
				}
				if name == "" {
					name = cur.BabyName
				}
				if birth == "" {
					birth = cur.BirthDate
				}
				if err := st.SaveTimeline(ctx, name, birth); err != nil {
					return writeErr(cmd, err)
				}
			}
			tl, err := st.GetTimeline(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"dir":      st.Dir,
					"timeline": tl,
				},
			})
		},
	}

	cmd.Flags().StringVar(&babyName, "baby-name", "", "Baby's display name")
	cmd.Flags().StringVar(&birthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")
	return cmd
}
