package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"babysteps/internal/model"
	"babysteps/internal/timeline"

	"github.com/spf13/cobra"
)

func newMilestonesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "milestones",
		Short:   "List, add, and delete milestones",
		Aliases: []string{"milestone"},
	}
	cmd.AddCommand(newMilestonesListCmd(app))
	cmd.AddCommand(newMilestonesAddCmd(app))
	cmd.AddCommand(newMilestonesDeleteCmd(app))
	return cmd
}

func newMilestonesListCmd(app *App) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List milestones in date order",
		Example: strings.TrimSpace(`
  babysteps milestones list
  babysteps milestones list --category growth
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
			items := timeline.SortByDate(tl.Items)
			want := model.ParseCategory(category)
			if strings.TrimSpace(category) != "" && want == model.CategoryNone {
				return writeErr(cmd, fmt.Errorf("unknown category %q", category))
			}
			items = timeline.Filter(items, want)
			counts := timeline.CountByCategory(tl.Items)
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"babyName":   tl.BabyName,
					"birthDate":  tl.BirthDate,
					"milestones": items,
					"total":      counts.All,
					"shown":      len(items),
				},
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only this category (milestone|first|growth|fun)")
	return cmd
}

func newMilestonesAddCmd(app *App) *cobra.Command {
	var title, date, description, category, photoFile string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a milestone",
		Example: strings.TrimSpace(`
  babysteps milestones add --title "First steps" --date 2024-11-02 --description "Three wobbly steps!" --category milestone
  babysteps milestones add --title "Beach day" --date 2024-07-14 --description "Sand everywhere" --photo-file ./beach.jpg
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := resolveStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()

			cat := model.ParseCategory(category)
			if strings.TrimSpace(category) != "" && cat == model.CategoryNone {
				return writeErr(cmd, fmt.Errorf("unknown category %q", category))
			}

			var photoData []byte
			if p := strings.TrimSpace(photoFile); p != "" {
				photoData, err = os.ReadFile(p)
				if err != nil {
					return writeErr(cmd, err)
				}
				if len(photoData) == 0 {
					return writeErr(cmd, errors.New("photo file is empty"))
				}
			}

			m, err := st.AddMilestone(ctx, model.Milestone{
				Title:       title,
				Date:        date,
				Description: description,
				Category:    cat,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			if len(photoData) > 0 {
				ext := strings.TrimPrefix(filepath.Ext(photoFile), ".")
				url, err := st.SavePhoto(m.ID, ext, photoData)
				if err != nil {
					return writeErr(cmd, err)
				}
				if err := st.SetMilestonePhoto(ctx, m.ID, url); err != nil {
					return writeErr(cmd, err)
				}
				m.Photo = url
			}

			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"milestone": m},
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Milestone title (required)")
	cmd.Flags().StringVar(&date, "date", "", "Date it happened, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&description, "description", "", "What happened (required, markdown ok)")
	cmd.Flags().StringVar(&category, "category", "", "Category (milestone|first|growth|fun)")
	cmd.Flags().StringVar(&photoFile, "photo-file", "", "Path to an image to attach")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newMilestonesDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <milestone-id>",
		Short:   "Delete a milestone by id",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := resolveStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			if err := st.DeleteMilestone(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"deleted": id},
			})
		},
	}
	return cmd
}
