// Package board is the full-screen terminal client: a table of todos with a
// details editor, kept current through the server's change feed.
package board

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Tomlord1122/todo-list/internal/client"
	"github.com/Tomlord1122/todo-list/internal/domain"
	"github.com/Tomlord1122/todo-list/internal/events"
)

const (
	displayDate = "2006-01-02 15:04"

	glyphDone    = "✅"
	glyphPending = "❌"
)

type mode int

const (
	modeTable mode = iota
	modeDetails
)

// Details editor fields. fieldCompleted is a toggle, not a text input.
const (
	fieldTitle = iota
	fieldDescription
	fieldDueDate
	fieldCreatedAt
	fieldCompleted
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title", "Description", "Due date", "Created at", "Completed"}

type (
	listLoadedMsg struct{ list domain.TodoList }
	loadFailedMsg struct{ err error }
	savedMsg      struct{ id uint32 }
	saveFailedMsg struct{ err error }

	watchStartedMsg struct{ sub *client.Subscription }
	changeMsg       struct{ event events.Event }
	watchStoppedMsg struct{ err error }
)

type Model struct {
	ctx    context.Context
	client *client.Client

	table table.Model
	list  domain.TodoList // last copy fetched successfully
	mode  mode

	editID    uint32
	inputs    [fieldCompleted]textinput.Model
	completed bool
	focus     int

	status    string
	statusErr bool

	sub    *client.Subscription
	width  int
	height int
}

// New returns a board backed by c. ctx bounds every request it makes.
func New(ctx context.Context, c *client.Client) Model {
	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	t.SetStyles(tableStyles())

	m := Model{
		ctx:    ctx,
		client: c,
		table:  t,
		status: "Loading...",
	}
	for i := range m.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 500
		m.inputs[i] = in
	}
	m.inputs[fieldDueDate].Placeholder = time.RFC3339
	m.inputs[fieldCreatedAt].Placeholder = time.RFC3339
	return m
}

func columns(width int) []table.Column {
	// Done, ID and the two dates are fixed; title and description share the rest.
	fixed := 5 + 6 + 17 + 17
	rest := width - fixed - 12
	if rest < 20 {
		rest = 20
	}
	return []table.Column{
		{Title: "Done", Width: 5},
		{Title: "ID", Width: 6},
		{Title: "Title", Width: rest * 2 / 5},
		{Title: "Description", Width: rest - rest*2/5},
		{Title: "Due Date", Width: 17},
		{Title: "Created On", Width: 17},
	}
}

func rows(list domain.TodoList) []table.Row {
	out := make([]table.Row, 0, len(list))
	for _, e := range list {
		done := glyphPending
		if e.Item.Completed {
			done = glyphDone
		}
		out = append(out, table.Row{
			done,
			strconv.FormatUint(uint64(e.ID), 10),
			e.Item.Title,
			e.Item.Description,
			e.Item.DueDate.Local().Format(displayDate),
			e.Item.CreatedAt.Local().Format(displayDate),
		})
	}
	return out
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.watch())
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		list, err := m.client.List(m.ctx)
		if err != nil {
			return loadFailedMsg{err}
		}
		return listLoadedMsg{list}
	}
}

func (m Model) watch() tea.Cmd {
	return func() tea.Msg {
		sub, err := m.client.Watch(m.ctx)
		if err != nil {
			return watchStoppedMsg{err}
		}
		return watchStartedMsg{sub}
	}
}

func nextChange(sub *client.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, err := sub.Next()
		if err != nil {
			return watchStoppedMsg{err}
		}
		return changeMsg{ev}
	}
}

func (m Model) save(id uint32, item domain.TodoItem) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.Update(m.ctx, id, item); err != nil {
			return saveFailedMsg{err}
		}
		return savedMsg{id}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columns(msg.Width))
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case listLoadedMsg:
		m.list = msg.list
		m.table.SetRows(rows(msg.list))
		m.setStatus(fmt.Sprintf("%d todos", len(msg.list)), false)
		return m, nil

	case loadFailedMsg:
		m.setStatus("Refresh failed: "+msg.err.Error(), true)
		return m, nil

	case savedMsg:
		m.mode = modeTable
		m.table.Focus()
		m.setStatus(fmt.Sprintf("Saved todo %d", msg.id), false)
		return m, m.refresh()

	case saveFailedMsg:
		m.setStatus("Save failed: "+msg.err.Error(), true)
		return m, nil

	case watchStartedMsg:
		m.sub = msg.sub
		return m, nextChange(msg.sub)

	case changeMsg:
		m.setStatus(fmt.Sprintf("Todo %d: %s", msg.event.ID, msg.event.Type), false)
		return m, tea.Batch(m.refresh(), nextChange(m.sub))

	case watchStoppedMsg:
		m.sub = nil
		if errors.Is(msg.err, client.ErrWatchDisabled) {
			return m, nil
		}
		m.setStatus("Live updates unavailable: "+msg.err.Error(), true)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.mode == modeDetails {
			return m.updateDetails(msg)
		}
		return m.updateTable(msg)
	}

	if m.mode == modeDetails {
		return m.updateFocusedInput(msg)
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "r":
		m.setStatus("Refreshing...", false)
		return m, m.refresh()
	case "enter":
		row := m.table.Cursor()
		if row < 0 || row >= len(m.list) {
			return m, nil
		}
		m.openDetails(m.list[row])
		return m, textinput.Blink
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// openDetails loads a copy of e into the editor. Edits stay local until saved.
func (m *Model) openDetails(e domain.Entry) {
	m.mode = modeDetails
	m.editID = e.ID
	m.inputs[fieldTitle].SetValue(e.Item.Title)
	m.inputs[fieldDescription].SetValue(e.Item.Description)
	m.inputs[fieldDueDate].SetValue(e.Item.DueDate.Format(time.RFC3339))
	m.inputs[fieldCreatedAt].SetValue(e.Item.CreatedAt.Format(time.RFC3339))
	for i := range m.inputs {
		m.inputs[i].CursorEnd()
	}
	m.completed = e.Item.Completed
	m.table.Blur()
	m.setFocus(fieldTitle)
}

func (m *Model) setFocus(field int) {
	m.focus = (field + fieldCount) % fieldCount
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m Model) updateDetails(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeTable
		m.table.Focus()
		m.setStatus("Changes discarded", false)
		return m, nil
	case "ctrl+s":
		item, err := m.editedItem()
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Saving todo %d...", m.editID), false)
		return m, m.save(m.editID, item)
	case "tab", "down":
		m.setFocus(m.focus + 1)
		return m, nil
	case "shift+tab", "up":
		m.setFocus(m.focus - 1)
		return m, nil
	case " ", "space", "enter":
		if m.focus == fieldCompleted {
			m.completed = !m.completed
			return m, nil
		}
		if msg.String() == "enter" {
			m.setFocus(m.focus + 1)
			return m, nil
		}
	}
	return m.updateFocusedInput(msg)
}

func (m Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.focus >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) editedItem() (domain.TodoItem, error) {
	due, err := time.Parse(time.RFC3339, strings.TrimSpace(m.inputs[fieldDueDate].Value()))
	if err != nil {
		return domain.TodoItem{}, fmt.Errorf("due date must look like %s", time.RFC3339)
	}
	created, err := time.Parse(time.RFC3339, strings.TrimSpace(m.inputs[fieldCreatedAt].Value()))
	if err != nil {
		return domain.TodoItem{}, fmt.Errorf("created at must look like %s", time.RFC3339)
	}
	return domain.TodoItem{
		Title:       m.inputs[fieldTitle].Value(),
		Description: m.inputs[fieldDescription].Value(),
		DueDate:     due.UTC(),
		CreatedAt:   created.UTC(),
		Completed:   m.completed,
	}, nil
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) View() string {
	var b strings.Builder
	if m.mode == modeDetails {
		b.WriteString(m.detailsView())
	} else {
		b.WriteString(titleStyle.Render("Todo List"))
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(m.table.View()))
	}
	b.WriteString("\n")
	if m.statusErr {
		b.WriteString(errorStyle.Render(m.status))
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	if m.mode == modeDetails {
		b.WriteString(helpStyle.Render("tab/↑/↓ move • space toggle completed • ctrl+s save • esc discard"))
	} else {
		b.WriteString(helpStyle.Render("↑/↓ select • enter details • r refresh • q quit"))
	}
	return b.String()
}

func (m Model) detailsView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Todo %d", m.editID)))
	b.WriteString("\n\n")
	for i, label := range fieldLabels {
		cursor := "  "
		if i == m.focus {
			cursor = "> "
		}
		b.WriteString(cursor)
		b.WriteString(labelStyle.Render(label))
		if i == fieldCompleted {
			glyph := glyphPending
			if m.completed {
				glyph = glyphDone
			}
			b.WriteString(glyph)
		} else {
			b.WriteString(m.inputs[i].View())
		}
		b.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimSuffix(b.String(), "\n")) + "\n" +
		mutedStyle.Render("Edits are local until saved.")
}

// Close releases the change feed connection.
func (m Model) Close() error {
	if m.sub == nil {
		return nil
	}
	return m.sub.Close()
}
