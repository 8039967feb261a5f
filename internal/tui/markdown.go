package tui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"babysteps/internal/model"
	"babysteps/internal/timeline"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

var (
	mdRendererMu sync.Mutex
	// Cache renderers by wrap width. Creating a renderer with
	// WithAutoStyle can trigger terminal capability queries that may
	// block on some terminals, so pick the style once and reuse.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

func markdownStyle() string {
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	mdRendererMu.Unlock()

	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		if existing := mdRenderers[key]; existing != nil {
			r = existing
		} else {
			mdRenderers[key] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func renderDetail(m model.Milestone, width int) string {
	if width < 20 {
		width = 80
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", timeline.Icon(m.Category), m.Title)
	fmt.Fprintf(&b, "%s", timeline.FormatDate(m.Date))
	if m.Category != model.CategoryNone {
		fmt.Fprintf(&b, " · %s", timeline.Label(m.Category))
	}
	b.WriteString("\n\n")
	if strings.TrimSpace(m.Photo) != "" {
		if strings.HasPrefix(m.Photo, "data:") {
			b.WriteString("_Has an embedded photo (view on the web page)._\n\n")
		} else {
			fmt.Fprintf(&b, "_Photo: %s_\n\n", m.Photo)
		}
	}
	b.WriteString(m.Description)
	return renderMarkdown(b.String(), width-2)
}
