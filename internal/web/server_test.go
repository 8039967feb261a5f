package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"babysteps/internal/model"
	"babysteps/internal/session"
	"babysteps/internal/store"
)

const (
	testGatePassword = "sprout"
	testAdminEmail   = "mom@example.com"
	testAdminPass    = "hunter2-but-longer"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	dir := t.TempDir()
	st := store.Store{Dir: dir}
	if err := st.Ensure(); err != nil {
		t.Fatalf("ensure store: %v", err)
	}

	hash, err := session.HashPassword(testAdminPass)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	var admins store.AdminsFile
	admins.Upsert(testAdminEmail, hash)
	if err := store.SaveAdmins(dir, admins); err != nil {
		t.Fatalf("save admins: %v", err)
	}

	srv, err := NewServer(ServerConfig{
		Addr:         "127.0.0.1:0",
		Dir:          dir,
		GatePassword: testGatePassword,
	}, session.NewManager(dir))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv, st
}

func gateCookie() *http.Cookie {
	return &http.Cookie{Name: gateCookieName, Value: "ok"}
}

func sessionCookieFor(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	id, err := srv.sessions.SignIn(context.Background(), testAdminEmail, testAdminPass)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	token, err := srv.sessions.IssueToken(*id, session.DefaultTokenTTL)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: token}
}

func doRequest(srv *Server, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	return w
}

func TestHome_ShowsGateUntilPasswordAccepted(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `action="/gate"`) {
		t.Fatalf("expected gate form, got:\n%s", w.Body.String())
	}

	form := url.Values{"password": {"  " + testGatePassword + "  "}}
	r := httptest.NewRequest("POST", "/gate", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = doRequest(srv, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == gateCookieName && c.Value == "ok" {
			found = true
		}
	}
	if !found {
		t.Fatalf("gate cookie not set")
	}
}

func TestGate_RejectsWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{"password": {"nope"}}
	r := httptest.NewRequest("POST", "/gate", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := doRequest(srv, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == gateCookieName {
			t.Fatalf("gate cookie set on failed attempt")
		}
	}
}

func TestHome_VisitorSeesNoAdminControls(t *testing.T) {
	srv, st := newTestServer(t)
	if _, err := st.AddMilestone(context.Background(), model.Milestone{
		Date: "2024-03-01", Title: "First smile", Description: "A big gummy grin.",
	}); err != nil {
		t.Fatalf("add milestone: %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(gateCookie())
	w := doRequest(srv, r)
	body := w.Body.String()
	if strings.Contains(body, `action="/logout"`) {
		t.Fatalf("visitor page has logout form")
	}
	if strings.Contains(body, "/delete") {
		t.Fatalf("visitor page has delete controls")
	}
	if !strings.Contains(body, "First smile") {
		t.Fatalf("visitor page is missing milestone content")
	}
}

func TestHome_AdminSeesControls(t *testing.T) {
	srv, st := newTestServer(t)
	m, err := st.AddMilestone(context.Background(), model.Milestone{
		Date: "2024-03-01", Title: "First smile", Description: "Grin.",
	})
	if err != nil {
		t.Fatalf("add milestone: %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(gateCookie())
	r.AddCookie(sessionCookieFor(t, srv))
	w := doRequest(srv, r)
	body := w.Body.String()
	if !strings.Contains(body, `action="/logout"`) {
		t.Fatalf("admin page has no logout form")
	}
	if !strings.Contains(body, "/milestones/"+m.ID+"/delete") {
		t.Fatalf("admin page has no delete form for %s", m.ID)
	}
}

func TestLogin_WrongCredentialsKeepModalOpenWithError(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{"email": {testAdminEmail}, "password": {"wrong"}}
	r := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(gateCookie())
	w := doRequest(srv, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Invalid email or password.") {
		t.Fatalf("missing inline login error")
	}
	if !strings.Contains(body, "showLogin: true") {
		t.Fatalf("login modal not reopened")
	}
	if !strings.Contains(body, testAdminEmail) {
		t.Fatalf("entered email not preserved")
	}
}

func TestLogin_SuccessSetsSessionCookie(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{"email": {"  " + strings.ToUpper(testAdminEmail) + " "}, "password": {testAdminPass}}
	r := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(gateCookie())
	w := doRequest(srv, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatalf("session cookie not set")
	}
	if id := srv.sessions.Current(token); id == nil || id.Email != testAdminEmail {
		t.Fatalf("cookie token does not resolve to admin: %+v", id)
	}
}

func TestMilestoneCreate_RequiresAdminSession(t *testing.T) {
	srv, st := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Sneaky")
	_ = mw.WriteField("date", "2024-04-01")
	_ = mw.WriteField("description", "Should not land.")
	_ = mw.Close()

	r := httptest.NewRequest("POST", "/milestones", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.AddCookie(gateCookie())
	w := doRequest(srv, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "banner=forbidden") {
		t.Fatalf("redirect %q does not carry forbidden banner", loc)
	}
	tl, err := st.GetTimeline(context.Background())
	if err != nil {
		t.Fatalf("get timeline: %v", err)
	}
	if len(tl.Items) != 0 {
		t.Fatalf("milestone was created without a session")
	}
}

func TestMilestoneCreate_AdminWithPhoto(t *testing.T) {
	srv, st := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "First bath")
	_ = mw.WriteField("date", "2024-02-10")
	_ = mw.WriteField("description", "Splashy and **loud**.")
	_ = mw.WriteField("category", "fun")
	fw, err := mw.CreateFormFile("photo", "bath.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = io.WriteString(fw, "\x89PNG fake pixels")
	_ = mw.Close()

	r := httptest.NewRequest("POST", "/milestones", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.AddCookie(gateCookie())
	r.AddCookie(sessionCookieFor(t, srv))
	w := doRequest(srv, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303: %s", w.Code, w.Body.String())
	}

	tl, err := st.GetTimeline(context.Background())
	if err != nil {
		t.Fatalf("get timeline: %v", err)
	}
	if len(tl.Items) != 1 {
		t.Fatalf("got %d milestones, want 1", len(tl.Items))
	}
	m := tl.Items[0]
	if m.Category != model.CategoryFun {
		t.Fatalf("category = %q", m.Category)
	}
	if !strings.HasPrefix(m.Photo, "data:image/png;base64,") {
		t.Fatalf("photo = %q, want data URI", m.Photo)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.AddCookie(gateCookie())
	body := doRequest(srv, r).Body.String()
	if !strings.Contains(body, "<strong>loud</strong>") {
		t.Fatalf("description markdown not rendered:\n%s", body)
	}
}

func TestMilestoneDelete_AdminRemovesCard(t *testing.T) {
	srv, st := newTestServer(t)
	m, err := st.AddMilestone(context.Background(), model.Milestone{
		Date: "2024-05-05", Title: "Rolled over", Description: "Both ways!",
	})
	if err != nil {
		t.Fatalf("add milestone: %v", err)
	}

	r := httptest.NewRequest("POST", "/milestones/"+m.ID+"/delete", strings.NewReader("category=growth"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(gateCookie())
	r.AddCookie(sessionCookieFor(t, srv))
	w := doRequest(srv, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "category=growth") {
		t.Fatalf("redirect %q lost the active filter", loc)
	}

	tl, err := st.GetTimeline(context.Background())
	if err != nil {
		t.Fatalf("get timeline: %v", err)
	}
	if len(tl.Items) != 0 {
		t.Fatalf("milestone not deleted")
	}
}

func TestHome_CategoryFilterShowsOnlyMatches(t *testing.T) {
	srv, st := newTestServer(t)
	ctx := context.Background()
	seed := []model.Milestone{
		{Date: "2024-01-10", Title: "Weighed in", Description: "4.1 kg", Category: model.CategoryGrowth},
		{Date: "2024-02-01", Title: "First laugh", Description: "At the cat.", Category: model.CategoryFirst},
	}
	for _, m := range seed {
		if _, err := st.AddMilestone(ctx, m); err != nil {
			t.Fatalf("add milestone: %v", err)
		}
	}

	r := httptest.NewRequest("GET", "/?category=growth", nil)
	r.AddCookie(gateCookie())
	body := doRequest(srv, r).Body.String()
	if !strings.Contains(body, "Weighed in") {
		t.Fatalf("growth milestone missing from filtered page")
	}
	if strings.Contains(body, "First laugh") {
		t.Fatalf("filtered page leaks other categories")
	}
}

func TestHome_EmptyStoreShowsInvite(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(gateCookie())
	body := doRequest(srv, r).Body.String()
	if !strings.Contains(body, "No milestones yet") {
		t.Fatalf("empty state missing:\n%s", body)
	}
}

func TestPhotoRoute_ServesStoredFileBehindGate(t *testing.T) {
	srv, st := newTestServer(t)
	urlPath, err := st.SavePhoto("mst-abc123", "jpg", []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("save photo: %v", err)
	}

	r := httptest.NewRequest("GET", urlPath, nil)
	w := doRequest(srv, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("ungated photo request: status = %d, want 403", w.Code)
	}

	r = httptest.NewRequest("GET", urlPath, nil)
	r.AddCookie(gateCookie())
	w = doRequest(srv, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "jpeg bytes" {
		t.Fatalf("photo body = %q", got)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestEvents_RequiresGate(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doRequest(srv, httptest.NewRequest("GET", "/events", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("ungated stream request: status = %d, want 403", w.Code)
	}
}

func TestEvents_StreamRerendersMainOnChange(t *testing.T) {
	srv, st := newTestServer(t)
	if _, err := st.AddMilestone(context.Background(), model.Milestone{
		Date: "2024-02-01", Title: "First smile", Description: "Grin.",
	}); err != nil {
		t.Fatalf("add milestone: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)
	r.AddCookie(gateCookie())
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Handler().ServeHTTP(w, r)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		srv.bc.mu.Lock()
		n := len(srv.bc.subs)
		srv.bc.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.bc.broadcast()
	time.Sleep(500 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not stop after cancel")
	}

	body := w.Body.String()
	if !strings.Contains(body, "storeVersion") {
		t.Fatalf("stream missing version signal:\n%s", body)
	}
	if !strings.Contains(body, `id="bs-main"`) || !strings.Contains(body, "First smile") {
		t.Fatalf("stream did not patch the main region:\n%s", body)
	}
}

func TestSessionTransition_PingsOpenStreams(t *testing.T) {
	srv, _ := newTestServer(t)

	ch, cancelSub := srv.bc.subscribe()
	defer cancelSub()

	if _, err := srv.sessions.SignIn(context.Background(), testAdminEmail, testAdminPass); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("no ping after sign-in")
	}
}

func TestBroadcaster_SubscribeAndCancel(t *testing.T) {
	b := newBroadcaster(store.Store{Dir: t.TempDir()})

	ch, cancel := b.subscribe()
	b.broadcast()
	select {
	case <-ch:
	default:
		t.Fatalf("no ping delivered to subscriber")
	}

	cancel()
	b.broadcast()
}

func TestBroadcaster_FirstWriteAfterEmptyStartCounts(t *testing.T) {
	st := store.Store{Dir: t.TempDir()}
	b := newBroadcaster(st)

	last := st.Fingerprint()
	if last != "" {
		t.Fatalf("fresh dir fingerprint = %q, want empty", last)
	}
	if _, err := st.AddMilestone(context.Background(), model.Milestone{
		Date: "2024-02-01", Title: "First smile", Description: "Grin.",
	}); err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	fp, changed := b.poll(last)
	if !changed || fp == "" {
		t.Fatalf("first write not detected: fp = %q, changed = %v", fp, changed)
	}
}

func TestTimelinePage_FormSubmitKeepsNativePost(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(gateCookie())
	r.AddCookie(sessionCookieFor(t, srv))
	body := doRequest(srv, r).Body.String()

	// The runtime prevents the native submit for any submit listener on
	// a form, so every such listener must re-trigger it imperatively or
	// the POST never happens.
	listeners := strings.Count(body, "data-on-submit")
	resubmits := strings.Count(body, "evt.target.submit()")
	if listeners == 0 {
		t.Fatalf("no submit listeners rendered")
	}
	if listeners != resubmits {
		t.Fatalf("%d submit listeners but %d imperative submits", listeners, resubmits)
	}
}

func TestBanner_DismissKeepsFilter(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest("GET", "/?category=growth&banner=forbidden", nil)
	r.AddCookie(gateCookie())
	body := doRequest(srv, r).Body.String()
	if !strings.Contains(body, "Sign in as an admin to do that.") {
		t.Fatalf("banner text missing:\n%s", body)
	}
	if !strings.Contains(body, `href="/?category=growth" class="banner-dismiss"`) {
		t.Fatalf("dismiss link lost the active filter:\n%s", body)
	}
}

func TestLogin_ErrorClearsOnEdit(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{"email": {testAdminEmail}, "password": {"wrong"}}
	r := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(gateCookie())
	body := doRequest(srv, r).Body.String()

	if !strings.Contains(body, "loginError: 'Invalid email or password.'") {
		t.Fatalf("error not seeded through the signal:\n%s", body)
	}
	if strings.Count(body, `data-on-input="$loginError = ''"`) != 2 {
		t.Fatalf("editing the credential fields does not clear the error:\n%s", body)
	}
}

func TestNewServer_RejectsIncompleteConfig(t *testing.T) {
	dir := t.TempDir()
	cases := []ServerConfig{
		{Addr: "", Dir: dir, GatePassword: "x"},
		{Addr: ":0", Dir: "", GatePassword: "x"},
		{Addr: ":0", Dir: dir, GatePassword: "   "},
	}
	for i, cfg := range cases {
		if _, err := NewServer(cfg, session.NewManager(dir)); err == nil {
			t.Fatalf("case %d: config %+v accepted", i, cfg)
		}
	}
}
