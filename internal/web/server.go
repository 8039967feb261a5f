// Package web serves the timeline: a public, gate-protected single
// page with admin-only write controls, plus an SSE stream that keeps
// open pages current when the store or the session changes.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"babysteps/internal/model"
	"babysteps/internal/session"
	"babysteps/internal/store"

	"github.com/starfederation/datastar-go/datastar"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

const (
	gateCookieName    = "babysteps_gate"
	sessionCookieName = "babysteps_session"
)

type ServerConfig struct {
	Addr string
	Dir  string

	// GatePassword guards the initial screen. It is a UX speed bump for
	// a shared family link, not an authorization mechanism; writes are
	// gated on admin sessions regardless.
	GatePassword string
}

type Server struct {
	cfg      ServerConfig
	tmpl     *template.Template
	st       store.Store
	sessions *session.Manager
	bc       *broadcaster

	stopSessionFeed func()
}

func NewServer(cfg ServerConfig, sessions *session.Manager) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	cfg.GatePassword = strings.TrimSpace(cfg.GatePassword)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if cfg.Dir == "" {
		return nil, errors.New("web: dir is empty")
	}
	if cfg.GatePassword == "" {
		return nil, errors.New("web: gate password is empty")
	}
	if sessions == nil {
		return nil, errors.New("web: nil session manager")
	}

	tmpl, err := template.ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:      cfg,
		tmpl:     tmpl,
		st:       store.Store{Dir: cfg.Dir},
		sessions: sessions,
	}
	srv.bc = newBroadcaster(srv.st)
	go srv.bc.watchLoop()

	// Login/logout anywhere re-renders every open stream so admin
	// affordances appear or vanish without a manual reload.
	srv.stopSessionFeed = sessions.Subscribe(func(_ *model.Identity) {
		srv.bc.broadcast()
	})
	return srv, nil
}

// Close stops the change watcher and releases the session
// subscription so no callback ever reaches a torn-down server.
func (s *Server) Close() {
	if s.stopSessionFeed != nil {
		s.stopSessionFeed()
	}
	s.bc.Stop()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /photos/{name}", s.handlePhoto)
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("POST /gate", s.handleGatePost)
	mux.HandleFunc("POST /login", s.handleLoginPost)
	mux.HandleFunc("POST /logout", s.handleLogoutPost)
	mux.HandleFunc("POST /milestones", s.handleMilestoneCreate)
	mux.HandleFunc("POST /milestones/{id}/delete", s.handleMilestoneDelete)
	mux.HandleFunc("POST /name", s.handleNamePost)
	return withRequestLog(mux)
}

func (s *Server) identityForRequest(r *http.Request) *model.Identity {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c == nil {
		return nil
	}
	return s.sessions.Current(c.Value)
}

func (s *Server) gatePassed(r *http.Request) bool {
	c, err := r.Cookie(gateCookieName)
	return err == nil && c != nil && c.Value == "ok"
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// handleEvents is the live-update stream: whenever the broadcaster
// reports a change it re-renders the main region for this viewer's
// filter and identity and patches it into the page.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.gatePassed(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	category := model.ParseCategory(r.URL.Query().Get("category"))

	sse := datastar.NewSSE(w, r)
	_ = sse.MarshalAndPatchSignals(map[string]any{"storeVersion": s.bc.currentFingerprint()})

	ch, cancel := s.bc.subscribe()
	defer cancel()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			html, err := s.renderMain(r, category)
			if err != nil {
				continue
			}
			_ = sse.PatchElements(html,
				datastar.WithSelector("#bs-main"),
				datastar.WithMode(datastar.ElementPatchModeOuter),
			)
			_ = sse.MarshalAndPatchSignals(map[string]any{"storeVersion": s.bc.currentFingerprint()})
		}
	}
}

func (s *Server) renderMain(r *http.Request, category model.Category) (string, error) {
	tl, err := s.st.GetTimeline(r.Context())
	if err != nil {
		return "", err
	}
	vm := s.timelineVM(tl, category, s.identityForRequest(r), "", "")
	return s.renderTemplate("timeline_main", vm)
}

// broadcaster watches the store fingerprint and fans change pings out
// to every subscribed stream. Session transitions are injected through
// broadcast() directly.
type broadcaster struct {
	st store.Store

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
	fp   string

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newBroadcaster(st store.Store) *broadcaster {
	return &broadcaster{
		st:     st,
		subs:   map[chan struct{}]struct{}{},
		stopCh: make(chan struct{}),
	}
}

func (b *broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

func (b *broadcaster) subscribe() (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}
}

func (b *broadcaster) broadcast() {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

func (b *broadcaster) currentFingerprint() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fp
}

func (b *broadcaster) setFingerprint(fp string) {
	b.mu.Lock()
	b.fp = fp
	b.mu.Unlock()
}

// poll compares the store fingerprint against the last observed one
// and reports whether something changed. A transition from "nothing
// stored yet" to a first write counts as a change.
func (b *broadcaster) poll(last string) (string, bool) {
	fp := b.st.Fingerprint()
	if fp == last {
		return last, false
	}
	b.setFingerprint(fp)
	return fp, true
}

func (b *broadcaster) watchLoop() {
	// Baseline is whatever is on disk at startup, which may be nothing:
	// the first-ever write must still reach open streams.
	lastFP := b.st.Fingerprint()
	b.setFingerprint(lastFP)

	t := time.NewTicker(1 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-t.C:
		}

		fp, changed := b.poll(lastFP)
		if !changed {
			continue
		}
		lastFP = fp
		b.broadcast()
	}
}
