package tui

import (
	"fmt"
	"io"
	"strings"

	"babysteps/internal/timeline"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// compactItemDelegate renders one milestone per row: the date column in
// muted chrome, the rest in the default foreground.
type compactItemDelegate struct {
	date     lipgloss.Style
	normal   lipgloss.Style
	selected lipgloss.Style
}

func newCompactItemDelegate() compactItemDelegate {
	return compactItemDelegate{
		date:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"}),
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "235", Dark: "255"}).
			Background(lipgloss.AdaptiveColor{Light: "254", Dark: "236"}).
			Bold(true),
	}
}

func (d compactItemDelegate) Height() int  { return 1 }
func (d compactItemDelegate) Spacing() int { return 0 }
func (d compactItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d compactItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}

	it, ok := item.(milestoneItem)
	if !ok {
		return
	}

	line := fmt.Sprintf("%s  %s %s", it.m.Date, timeline.Icon(it.m.Category), it.m.Title)
	if lineW := xansi.StringWidth(line); lineW < contentW {
		line += strings.Repeat(" ", contentW-lineW)
	} else if lineW > contentW {
		line = xansi.Cut(line, 0, contentW)
	}

	if index == m.Index() {
		fmt.Fprint(w, d.selected.Render(line))
		return
	}
	// Date column ends at a fixed width (YYYY-MM-DD), so split styling there.
	if len(it.m.Date) == 10 && strings.HasPrefix(line, it.m.Date) {
		fmt.Fprint(w, d.date.Render(it.m.Date)+d.normal.Render(line[10:]))
		return
	}
	fmt.Fprint(w, d.normal.Render(line))
}
