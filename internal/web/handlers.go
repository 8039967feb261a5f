package web

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"babysteps/internal/model"
	"babysteps/internal/session"
	"babysteps/internal/timeline"
)

const maxPhotoBytes = 8 << 20

type gateVM struct {
	Error string
}

type filterOptionVM struct {
	Value    string
	Label    string
	Icon     string
	Count    int
	Active   bool
	Disabled bool
}

type cardVM struct {
	ID              string
	Title           string
	DateLong        string
	DescriptionHTML template.HTML
	// template.URL so data URIs survive; the value is always either a
	// /photos/ path or a data URI built by readPhotoDataURI.
	Photo template.URL
	Icon  string
	Left  bool
}

type timelineVM struct {
	BabyName      string
	BirthDateLong string
	IsAdmin       bool
	AdminEmail    string
	Filter        string
	FilterLabel   string
	Filters       []filterOptionVM
	Cards         []cardVM
	TotalCount    int
	Banner        string
	LoginError    string
	LoginEmail    string
	ShowLogin     bool
	StreamURL     string
	Today         string
}

func (s *Server) timelineVM(tl *model.Timeline, category model.Category, id *model.Identity, banner, loginError string) timelineVM {
	sorted := timeline.SortByDate(tl.Items)
	counts := timeline.CountByCategory(sorted)
	shown := timeline.Filter(sorted, category)

	vm := timelineVM{
		BabyName:      tl.BabyName,
		BirthDateLong: timeline.FormatDate(tl.BirthDate),
		Filter:        string(category),
		FilterLabel:   timeline.Label(category),
		TotalCount:    counts.All,
		Banner:        banner,
		LoginError:    loginError,
		ShowLogin:     loginError != "",
		StreamURL:     "/events?category=" + url.QueryEscape(string(category)),
		Today:         time.Now().Format("2006-01-02"),
	}
	if id != nil {
		vm.IsAdmin = true
		vm.AdminEmail = id.Email
	}

	vm.Filters = append(vm.Filters, filterOptionVM{
		Value:  "",
		Label:  timeline.Label(model.CategoryNone),
		Icon:   "✨",
		Count:  counts.All,
		Active: category == model.CategoryNone,
	})
	for _, c := range model.Categories() {
		n := counts.ByCategory[c]
		vm.Filters = append(vm.Filters, filterOptionVM{
			Value:    string(c),
			Label:    timeline.Label(c),
			Icon:     timeline.Icon(c),
			Count:    n,
			Active:   category == c,
			Disabled: n == 0 && category != c,
		})
	}

	for i, m := range shown {
		vm.Cards = append(vm.Cards, cardVM{
			ID:              m.ID,
			Title:           m.Title,
			DateLong:        timeline.FormatDate(m.Date),
			DescriptionHTML: renderDescriptionHTML(m.Description),
			Photo:           template.URL(m.Photo),
			Icon:            timeline.Icon(m.Category),
			Left:            timeline.SideForIndex(i) == timeline.SideLeft,
		})
	}
	return vm
}

// Banner text is looked up from a fixed code so nothing
// request-controlled is ever reflected into the page.
func bannerMessage(code string) string {
	switch code {
	case "forbidden":
		return "Sign in as an admin to do that."
	case "invalid":
		return "That milestone could not be saved. Title, date, and description are all required."
	case "photo":
		return "That photo could not be read. The milestone was not saved."
	case "baddate":
		return "Dates must look like 2024-01-31."
	default:
		return ""
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !s.gatePassed(r) {
		s.writeHTMLTemplate(w, "gate", gateVM{})
		return
	}
	tl, err := s.st.GetTimeline(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	category := model.ParseCategory(r.URL.Query().Get("category"))
	banner := bannerMessage(r.URL.Query().Get("banner"))
	vm := s.timelineVM(tl, category, s.identityForRequest(r), banner, "")
	s.writeHTMLTemplate(w, "timeline", vm)
}

func (s *Server) handleGatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	attempt := strings.TrimSpace(r.PostFormValue("password"))

	// A small fixed delay keeps rapid guessing unrewarding without
	// adding real lockout machinery to a family page.
	time.Sleep(500 * time.Millisecond)

	if subtle.ConstantTimeCompare([]byte(attempt), []byte(s.cfg.GatePassword)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		s.writeHTMLTemplate(w, "gate", gateVM{Error: "Hmm, that's not it. Try again!"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     gateCookieName,
		Value:    "ok",
		Path:     "/",
		MaxAge:   int((180 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if !s.gatePassed(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	category := model.ParseCategory(r.PostFormValue("category"))

	id, err := s.sessions.SignIn(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, session.ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		tl, terr := s.st.GetTimeline(r.Context())
		if terr != nil {
			http.Error(w, terr.Error(), http.StatusInternalServerError)
			return
		}
		vm := s.timelineVM(tl, category, nil, "", "Invalid email or password.")
		vm.LoginEmail = email
		w.WriteHeader(http.StatusUnauthorized)
		s.writeHTMLTemplate(w, "timeline", vm)
		return
	}

	token, err := s.sessions.IssueToken(*id, session.DefaultTokenTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(session.DefaultTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, homeURL(category, ""), http.StatusSeeOther)
}

func (s *Server) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	_ = s.sessions.SignOut(r.Context())
	category := model.ParseCategory(r.PostFormValue("category"))
	http.Redirect(w, r, homeURL(category, ""), http.StatusSeeOther)
}

func (s *Server) handleMilestoneCreate(w http.ResponseWriter, r *http.Request) {
	if !s.gatePassed(r) || s.identityForRequest(r) == nil {
		http.Redirect(w, r, homeURL(model.CategoryNone, "forbidden"), http.StatusSeeOther)
		return
	}
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		http.Redirect(w, r, homeURL(model.CategoryNone, "photo"), http.StatusSeeOther)
		return
	}
	category := model.ParseCategory(r.PostFormValue("filter"))

	photo, err := readPhotoDataURI(r)
	if err != nil {
		http.Redirect(w, r, homeURL(category, "photo"), http.StatusSeeOther)
		return
	}

	m := model.Milestone{
		Date:        r.PostFormValue("date"),
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Photo:       photo,
		Category:    model.ParseCategory(r.PostFormValue("category")),
	}
	if _, err := s.st.AddMilestone(r.Context(), m); err != nil {
		http.Redirect(w, r, homeURL(category, "invalid"), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, homeURL(category, ""), http.StatusSeeOther)
}

func (s *Server) handleMilestoneDelete(w http.ResponseWriter, r *http.Request) {
	if !s.gatePassed(r) || s.identityForRequest(r) == nil {
		http.Redirect(w, r, homeURL(model.CategoryNone, "forbidden"), http.StatusSeeOther)
		return
	}
	category := model.ParseCategory(r.PostFormValue("category"))
	if err := s.st.DeleteMilestone(r.Context(), r.PathValue("id")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, homeURL(category, ""), http.StatusSeeOther)
}

func (s *Server) handleNamePost(w http.ResponseWriter, r *http.Request) {
	if !s.gatePassed(r) || s.identityForRequest(r) == nil {
		http.Redirect(w, r, homeURL(model.CategoryNone, "forbidden"), http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	tl, err := s.st.GetTimeline(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	name := strings.TrimSpace(r.PostFormValue("babyName"))
	birth := strings.TrimSpace(r.PostFormValue("birthDate"))
	if name == "" {
		name = tl.BabyName
	}
	if birth == "" {
		birth = tl.BirthDate
	}
	if _, perr := time.Parse("2006-01-02", birth); perr != nil {
		http.Redirect(w, r, homeURL(model.CategoryNone, "baddate"), http.StatusSeeOther)
		return
	}
	if err := s.st.SaveTimeline(r.Context(), name, birth); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	if !s.gatePassed(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	path, err := s.st.PhotoFilePath(r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func homeURL(category model.Category, banner string) string {
	q := url.Values{}
	if category != model.CategoryNone {
		q.Set("category", string(category))
	}
	if banner != "" {
		q.Set("banner", banner)
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// readPhotoDataURI turns the optional uploaded photo into a data URI
// so the milestone row stays self-contained. Absent photo is fine.
func readPhotoDataURI(r *http.Request) (string, error) {
	f, hdr, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}
	if len(data) > maxPhotoBytes {
		return "", fmt.Errorf("photo larger than %d bytes", maxPhotoBytes)
	}

	ct := hdr.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(filepath.Ext(hdr.Filename))
	}
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("unsupported photo type %q", ct)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
