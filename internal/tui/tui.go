// Package tui is the single-screen terminal front end of the inventory: a
// searchable grouped list with an add/edit form on top of it.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"hardware-inventory/internal/models"
)

// Store is what the UI needs from the inventory.
type Store interface {
	Save(models.HardwareItem) (models.HardwareItem, error)
	Delete(id string) error
	CostLock(name, brand, model string) (decimal.Decimal, bool)
	Search(query string) models.Groups
	Subscribe(fn func(models.Groups)) (cancel func())
}

// inventoryChangedMsg tells the list to re-read the store.
type inventoryChangedMsg struct{}

type viewState int

const (
	listView viewState = iota
	formView
	confirmDeleteView
)

// entry is one selectable line of the list.
type entry struct {
	key  string
	item models.HardwareItem
}

type Model struct {
	store Store
	state viewState

	search    textinput.Model
	searching bool

	groups  models.Groups // latest filtered snapshot
	entries []entry
	cursor  int

	form     itemForm
	toDelete models.HardwareItem

	status string
	err    error

	help          help.Model
	width, height int
}

func New(store Store) Model {
	search := textinput.New()
	search.Prompt = "Search: "
	search.Placeholder = "name, brand, model, serial or details"
	search.Cursor.Style = focusedStyle
	search.Width = 40

	m := Model{
		store:  store,
		search: search,
		help:   help.New(),
	}
	m.refresh()
	return m
}

// Run starts the UI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, store Store, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(store), opts...)

	// Subscribers run on the mutating goroutine, which may be the program's
	// own update loop, so the message is sent asynchronously.
	cancel := store.Subscribe(func(models.Groups) {
		go p.Send(inventoryChangedMsg{})
	})
	defer cancel()

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case inventoryChangedMsg:
		m.refresh()
		return m, nil

	case itemSavedMsg:
		m.state = listView
		if msg.isNew {
			m.status = fmt.Sprintf("Added %s (%s)", msg.item.Name, msg.item.SerialNumber)
		} else {
			m.status = fmt.Sprintf("Updated %s (%s)", msg.item.Name, msg.item.SerialNumber)
		}
		m.refresh()
		m.selectItem(msg.item.ID)
		return m, nil

	case backToListMsg:
		m.state = listView
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	switch m.state {
	case formView:
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	case confirmDeleteView:
		return m.updateConfirmDelete(msg)
	}

	if m.searching {
		return m.updateSearch(msg)
	}
	return m.updateList(msg)
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(kmsg, listKeys.Quit):
		return m, tea.Quit
	case key.Matches(kmsg, listKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(kmsg, listKeys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case key.Matches(kmsg, listKeys.Search):
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case key.Matches(kmsg, listKeys.Add):
		return m.openForm(nil)
	case key.Matches(kmsg, listKeys.Edit):
		if it, ok := m.selected(); ok {
			return m.openForm(&it)
		}
	case key.Matches(kmsg, listKeys.Delete):
		if it, ok := m.selected(); ok {
			m.toDelete = it
			m.state = confirmDeleteView
		}
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(kmsg, searchKeys.Done):
			m.searching = false
			m.search.Blur()
			return m, nil
		case key.Matches(kmsg, searchKeys.Clear):
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.refresh()
			return m, nil
		}
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.refresh()
	}
	return m, cmd
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(kmsg.String()) {
	case "y":
		m.state = listView
		if err := m.store.Delete(m.toDelete.ID); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Deleted %s (%s)", m.toDelete.Name, m.toDelete.SerialNumber)
		m.refresh()
	case "n", "esc":
		m.state = listView
	}
	return m, nil
}

func (m Model) openForm(edit *models.HardwareItem) (tea.Model, tea.Cmd) {
	m.form = newItemForm(m.store, edit)
	m.state = formView
	m.status, m.err = "", nil
	return m, m.form.Init()
}

// refresh re-reads the filtered snapshot, keeping the cursor on the same
// item when it is still listed.
func (m *Model) refresh() {
	prev, hadPrev := m.selected()

	m.groups = m.store.Search(m.search.Value())
	m.entries = nil
	for _, k := range m.groups.Keys() {
		for _, it := range m.groups[k] {
			m.entries = append(m.entries, entry{key: k, item: it})
		}
	}

	if hadPrev && m.selectItem(prev.ID) {
		return
	}
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selectItem(id string) bool {
	for i, e := range m.entries {
		if e.item.ID == id {
			m.cursor = i
			return true
		}
	}
	return false
}

func (m Model) selected() (models.HardwareItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return models.HardwareItem{}, false
	}
	return m.entries[m.cursor].item, true
}

func (m Model) View() string {
	switch m.state {
	case formView:
		return docStyle.Render(m.form.View())
	case confirmDeleteView:
		return docStyle.Render(m.confirmView())
	}
	return docStyle.Render(m.renderList())
}

func (m Model) renderList() string {
	rows := []string{titleStyle.Render("Hardware Inventory"), m.search.View(), ""}

	body, cursorLine := m.listLines()
	rows = append(rows, m.window(body, cursorLine)...)

	rows = append(rows, "")
	switch {
	case m.err != nil:
		rows = append(rows, errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.status != "":
		rows = append(rows, successStyle.Render(m.status))
	}

	if m.searching {
		rows = append(rows, m.help.View(searchKeys))
	} else {
		rows = append(rows, m.help.View(listKeys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// listLines renders group headers and items; cursorLine is the index of
// the selected item's line.
func (m Model) listLines() ([]string, int) {
	if len(m.entries) == 0 {
		if q := strings.TrimSpace(m.search.Value()); q != "" {
			return []string{helpStyle.Render(fmt.Sprintf("No hardware matches %q.", q))}, 0
		}
		return []string{helpStyle.Render("No hardware yet. Press a to add some.")}, 0
	}

	var lines []string
	cursorLine := 0
	lastKey := ""
	for i, e := range m.entries {
		if e.key != lastKey {
			lastKey = e.key
			lines = append(lines, groupHeader(e.key, m.groups[e.key]))
		}
		text := e.item.SerialNumber
		if e.item.Details != "" {
			text += "  " + helpStyle.Render(e.item.Details)
		}
		if i == m.cursor {
			cursorLine = len(lines)
			lines = append(lines, selectedItemStyle.Render("> "+text))
		} else {
			lines = append(lines, itemStyle.Render(text))
		}
	}
	return lines, cursorLine
}

func groupHeader(key string, items []models.HardwareItem) string {
	name, brand, model, _ := models.SplitGroupKey(key)
	cost := decimal.Zero
	if len(items) > 0 {
		cost = items[0].MonthlyCost
	}
	return groupHeaderStyle.Render(fmt.Sprintf("%s · %s · %s", name, brand, model)) +
		groupCostStyle.Render(fmt.Sprintf(" — %s/month (%d)", cost.StringFixed(2), len(items)))
}

// window trims lines to the terminal height, keeping the cursor visible.
func (m Model) window(lines []string, cursorLine int) []string {
	const chrome = 9 // title, search, status, help and margins
	limit := m.height - chrome
	if m.height == 0 || limit <= 0 || len(lines) <= limit {
		return lines
	}
	start := cursorLine - limit/2
	if start < 0 {
		start = 0
	}
	if start+limit > len(lines) {
		start = len(lines) - limit
	}
	return lines[start : start+limit]
}

func (m Model) confirmView() string {
	it := m.toDelete
	question := fmt.Sprintf("Delete %s · %s · %s (%s)?", it.Name, it.Brand, it.Model, it.SerialNumber)
	return dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		specialStyle.Render(question),
		"",
		helpStyle.Render("y: delete   n/esc: keep"),
	))
}
