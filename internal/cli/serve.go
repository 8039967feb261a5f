package cli

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"

	"babysteps/internal/session"
	"babysteps/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var gatePassword string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the shared web timeline",
		Long: strings.TrimSpace(`
Serve the timeline as a single shared web page.

Everyone who knows the gate password can view. Writing (adding and
deleting milestones, renaming) additionally requires signing in with
an admin account created via 'babysteps admins add'.
`),
		Example: strings.TrimSpace(`
  babysteps serve --addr 127.0.0.1:3336 --gate-password sprout
  BABYSTEPS_GATE_PASSWORD=sprout babysteps serve --addr :3336
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := resolveStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}
			gate := strings.TrimSpace(gatePassword)
			if gate == "" {
				gate = strings.TrimSpace(os.Getenv("BABYSTEPS_GATE_PASSWORD"))
			}
			if gate == "" {
				return writeErr(cmd, errors.New("serve: missing --gate-password (or BABYSTEPS_GATE_PASSWORD)"))
			}

			// The default aggregate exists on disk before the first
			// visitor so the page and the change watcher agree.
			if err := st.EnsureTimeline(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}

			srv, err := web.NewServer(web.ServerConfig{
				Addr:         listenAddr,
				Dir:          st.Dir,
				GatePassword: gate,
			}, session.NewManager(st.Dir))
			if err != nil {
				return writeErr(cmd, err)
			}
			defer srv.Close()

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			url := "http://" + ln.Addr().String() + "/"
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr": ln.Addr().String(),
					"url":  url,
					"dir":  st.Dir,
				},
				"_hint": "open " + url,
			})

			slog.Info("serving timeline", "addr", ln.Addr().String(), "dir", st.Dir)
			if err := http.Serve(ln, srv.Handler()); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3336", "Listen address (host:port)")
	cmd.Flags().StringVar(&gatePassword, "gate-password", "", "Shared gate password for viewers")
	return cmd
}
