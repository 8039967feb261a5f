package cli

import (
	"errors"
	"fmt"
	"strings"

	"babysteps/internal/session"
	"babysteps/internal/store"

	"github.com/spf13/cobra"
)

func newAdminsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admins",
		Short: "Manage admin accounts for the web timeline",
	}
	cmd.AddCommand(newAdminsAddCmd(app))
	cmd.AddCommand(newAdminsListCmd(app))
	cmd.AddCommand(newAdminsRemoveCmd(app))
	return cmd
}

func newAdminsAddCmd(app *App) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update an admin account",
		Example: strings.TrimSpace(`
  babysteps admins add --email mom@example.com --password "a long passphrase"
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := resolveStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" || !strings.Contains(email, "@") {
				return writeErr(cmd, fmt.Errorf("invalid email %q", email))
			}
			if len(password) < 8 {
				return writeErr(cmd, errors.New("password must be at least 8 characters"))
			}

			hash, err := session.HashPassword(password)
			if err != nil {
				return writeErr(cmd, err)
			}
			admins, _, err := store.LoadAdmins(st.Dir)
			if err != nil {
				return writeErr(cmd, err)
			}
			admins.Upsert(email, hash)
			if err := store.SaveAdmins(st.Dir, admins); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"email": email, "admins": len(admins.Admins)},
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAdminsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admin emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := resolveStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			admins, _, err := store.LoadAdmins(st.Dir)
			if err != nil {
				return writeErr(cmd, err)
			}
			emails := make([]string, 0, len(admins.Admins))
			for _, a := range admins.Admins {
				emails = append(emails, a.Email)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"admins": emails},
			})
		},
	}
}

func newAdminsRemoveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <email>",
		Short:   "Remove an admin account",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := resolveStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			admins, _, err := store.LoadAdmins(st.Dir)
			if err != nil {
				return writeErr(cmd, err)
			}
			email := strings.ToLower(strings.TrimSpace(args[0]))
			if !admins.Remove(email) {
				return writeErr(cmd, fmt.Errorf("no admin %q", email))
			}
			if err := store.SaveAdmins(st.Dir, admins); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"removed": email, "admins": len(admins.Admins)},
			})
		},
	}
	return cmd
}
