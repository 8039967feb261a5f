package tui

import (
	"context"
	"fmt"
	"strings"

	"babysteps/internal/model"
	"babysteps/internal/store"
	"babysteps/internal/timeline"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type viewMode int

const (
	modeList viewMode = iota
	modeDetail
	modeConfirmDelete
)

// filterCycle is the order the f key walks through.
var filterCycle = []model.Category{
	model.CategoryNone,
	model.CategoryMilestone,
	model.CategoryFirst,
	model.CategoryGrowth,
	model.CategoryFun,
}

type milestoneItem struct {
	m model.Milestone
}

func (it milestoneItem) Title() string {
	return fmt.Sprintf("%s  %s %s", it.m.Date, timeline.Icon(it.m.Category), it.m.Title)
}

func (it milestoneItem) FilterValue() string { return it.m.Title }

type timelineLoadedMsg struct {
	tl  *model.Timeline
	err error
}

type milestoneDeletedMsg struct {
	err error
}

type appModel struct {
	st store.Store

	tl     *model.Timeline
	filter model.Category
	lst    list.Model
	mode   viewMode
	detail string
	status string

	width  int
	height int
}

func newAppModel(st store.Store) appModel {
	lst := list.New(nil, newCompactItemDelegate(), 0, 0)
	lst.SetShowTitle(true)
	lst.SetShowStatusBar(false)
	lst.SetFilteringEnabled(false)
	lst.SetShowHelp(false)
	lst.Title = "Loading..."
	return appModel{st: st, lst: lst}
}

func (m appModel) Init() tea.Cmd {
	return loadTimeline(m.st)
}

func loadTimeline(st store.Store) tea.Cmd {
	return func() tea.Msg {
		tl, err := st.GetTimeline(context.Background())
		return timelineLoadedMsg{tl: tl, err: err}
	}
}

func deleteMilestone(st store.Store, id string) tea.Cmd {
	return func() tea.Msg {
		return milestoneDeletedMsg{err: st.DeleteMilestone(context.Background(), id)}
	}
}

func (m appModel) selected() (model.Milestone, bool) {
	it, ok := m.lst.SelectedItem().(milestoneItem)
	if !ok {
		return model.Milestone{}, false
	}
	return it.m, true
}

func (m *appModel) refreshList() {
	if m.tl == nil {
		return
	}
	items := timeline.Filter(timeline.SortByDate(m.tl.Items), m.filter)
	rows := make([]list.Item, 0, len(items))
	for _, it := range items {
		rows = append(rows, milestoneItem{m: it})
	}
	m.lst.SetItems(rows)
	label := timeline.Label(m.filter)
	m.lst.Title = fmt.Sprintf("🍼 %s's Journey — %s (%d)", m.tl.BabyName, label, len(rows))
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.lst.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case timelineLoadedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.tl = msg.tl
		m.refreshList()
		return m, nil

	case milestoneDeletedMsg:
		m.mode = modeList
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.status = "Deleted."
		return m, loadTimeline(m.st)

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.lst, cmd = m.lst.Update(msg)
	return m, cmd
}

func (m appModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.mode {
	case modeDetail:
		switch key {
		case "esc", "q", "enter":
			m.mode = modeList
			m.detail = ""
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case modeConfirmDelete:
		switch key {
		case "y":
			if sel, ok := m.selected(); ok {
				return m, deleteMilestone(m.st, sel.ID)
			}
			m.mode = modeList
		case "n", "esc":
			m.mode = modeList
			m.status = ""
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "f":
		m.filter = nextFilter(m.filter)
		m.refreshList()
		return m, nil
	case "r":
		return m, loadTimeline(m.st)
	case "enter":
		if sel, ok := m.selected(); ok {
			m.detail = renderDetail(sel, m.width)
			m.mode = modeDetail
		}
		return m, nil
	case "d":
		if _, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
			m.status = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.lst, cmd = m.lst.Update(msg)
	return m, cmd
}

func nextFilter(cur model.Category) model.Category {
	for i, c := range filterCycle {
		if c == cur {
			return filterCycle[(i+1)%len(filterCycle)]
		}
	}
	return model.CategoryNone
}

var (
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"})
)

func (m appModel) View() string {
	switch m.mode {
	case modeDetail:
		return m.detail + "\n" + helpStyle.Render("esc: back  ctrl+c: quit")
	case modeConfirmDelete:
		sel, _ := m.selected()
		prompt := fmt.Sprintf("Delete %q? (y/n)", sel.Title)
		return m.lst.View() + "\n" + statusStyle.Render(prompt)
	}

	footer := helpStyle.Render("enter: detail  f: filter  d: delete  r: reload  q: quit")
	if strings.TrimSpace(m.status) != "" {
		footer = statusStyle.Render(m.status) + "  " + footer
	}
	return m.lst.View() + "\n" + footer
}
