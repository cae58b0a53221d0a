// Package tui is a terminal front end for the explorer: the graph is drawn
// as a character canvas, the keyboard drives the camera and selection, and
// "/" opens a search prompt.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/explorer"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
)

// Explorer is what the model drives. *explorer.Explorer satisfies it.
type Explorer interface {
	ZoomIn()
	ZoomOut()
	Reset()
	Pan(dx, dy float64)
	NodeHover(id string)
	NodeUnhover()
	NodeClick(id string)
	BackgroundClick()
	Search(ctx context.Context, text string)
	ClearSearch()
	SetViewport(w, h float64)
	Frame() render.Frame
	Status() explorer.Status
}

// RefreshInterval is how often the model pulls a new frame.
const RefreshInterval = 50 * time.Millisecond

// panStep is the pan distance per arrow key, in pixels.
const panStep = 4 * CellWidth

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Reset   key.Binding
	Next    key.Binding
	Prev    key.Binding
	Enter   key.Binding
	Search  key.Binding
	Clear   key.Binding
	Quit    key.Binding
	Help    key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "pan up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "pan down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "pan left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "pan right"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "zoom out"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset view"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next node"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous node"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// Messages
type refreshMsg time.Time

// NavigateMsg reports a leaf click routed by the explorer.
type NavigateMsg struct{ Route string }

// Model represents the TUI application state
type Model struct {
	ctx context.Context
	ex  Explorer

	// Window dimensions
	width  int
	height int

	frame  render.Frame
	status explorer.Status

	// Tab cycling order and position within it
	order    []string
	selected int

	searching bool
	input     textinput.Model
	spinner   spinner.Model

	lastRoute string
	showHelp  bool
	quitting  bool
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, ex Explorer) Model {
	input := textinput.New()
	input.Placeholder = "search articles and categories"
	input.Prompt = "/ "
	input.CharLimit = 120
	input.Width = 40

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		ctx:      ctx,
		ex:       ex,
		input:    input,
		spinner:  s,
		selected: -1,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refresh())
}

func refresh() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		cols, rows := m.canvasSize()
		m.ex.SetViewport(float64(cols)*CellWidth, float64(rows)*CellHeight)
		return m, nil

	case refreshMsg:
		m.frame = m.ex.Frame()
		m.status = m.ex.Status()
		m.syncOrder()
		return m, refresh()

	case NavigateMsg:
		m.lastRoute = msg.Route
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		m.ex.Search(m.ctx, m.input.Value())
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		return m, nil
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, DefaultKeyMap.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, DefaultKeyMap.Up):
		m.ex.Pan(0, panStep)
	case key.Matches(msg, DefaultKeyMap.Down):
		m.ex.Pan(0, -panStep)
	case key.Matches(msg, DefaultKeyMap.Left):
		m.ex.Pan(panStep, 0)
	case key.Matches(msg, DefaultKeyMap.Right):
		m.ex.Pan(-panStep, 0)
	case key.Matches(msg, DefaultKeyMap.ZoomIn):
		m.ex.ZoomIn()
	case key.Matches(msg, DefaultKeyMap.ZoomOut):
		m.ex.ZoomOut()
	case key.Matches(msg, DefaultKeyMap.Reset):
		m.ex.Reset()
	case key.Matches(msg, DefaultKeyMap.Next):
		m.cycle(1)
	case key.Matches(msg, DefaultKeyMap.Prev):
		m.cycle(-1)
	case key.Matches(msg, DefaultKeyMap.Enter):
		if id := m.Selected(); id != "" {
			m.ex.NodeClick(id)
		} else {
			m.ex.BackgroundClick()
		}
	case key.Matches(msg, DefaultKeyMap.Search):
		m.searching = true
		m.input.SetValue(m.status.Query)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case key.Matches(msg, DefaultKeyMap.Clear):
		m.clearLayer()
	}
	return m, nil
}

// clearLayer peels back one layer: selection, then search, then lock.
func (m *Model) clearLayer() {
	switch {
	case m.selected >= 0:
		m.selected = -1
		m.ex.NodeUnhover()
	case m.status.Mode == "search" || m.status.Searching:
		m.input.SetValue("")
		m.ex.ClearSearch()
	default:
		m.ex.BackgroundClick()
	}
}

func (m *Model) cycle(dir int) {
	if len(m.order) == 0 {
		return
	}
	switch {
	case m.selected < 0 && dir > 0:
		m.selected = 0
	case m.selected < 0:
		m.selected = len(m.order) - 1
	default:
		m.selected = (m.selected + dir + len(m.order)) % len(m.order)
	}
	m.ex.NodeHover(m.order[m.selected])
}

// Selected returns the id picked with tab, or "".
func (m Model) Selected() string {
	if m.selected < 0 || m.selected >= len(m.order) {
		return ""
	}
	return m.order[m.selected]
}

// syncOrder rebuilds the tab order from the frame: tier first, then title.
// The current selection is kept when it survives.
func (m *Model) syncOrder() {
	cur := m.Selected()
	nodes := append([]render.NodeSprite(nil), m.frame.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Tier != nodes[j].Tier {
			return nodes[i].Tier < nodes[j].Tier
		}
		return nodes[i].Title < nodes[j].Title
	})
	m.order = make([]string, 0, len(nodes))
	m.selected = -1
	for i, n := range nodes {
		m.order = append(m.order, n.ID)
		if n.ID == cur {
			m.selected = i
		}
	}
}

func (m Model) canvasSize() (int, int) {
	// header and two footer lines
	return m.width, m.height - 3
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	cols, rows := m.canvasSize()
	canvas := NewCanvas(cols, rows)
	canvas.Draw(m.frame, m.Selected())

	return strings.Join([]string{
		m.renderHeader(),
		canvas.String(),
		m.renderStatus(),
		m.renderFooter(),
	}, "\n")
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("orbit")
	stats := mutedStyle.Render(fmt.Sprintf("%d nodes · %d links · zoom %.2f",
		m.status.Nodes, m.status.Links, m.status.Zoom))
	mode := modeStyle.Render(m.status.Mode)
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", mode, "  ", stats)
}

func (m Model) renderStatus() string {
	switch {
	case m.searching:
		return m.input.View()
	case m.status.Searching:
		return m.spinner.View() + " " + mutedStyle.Render("searching "+m.status.Query)
	case m.status.DataError:
		return errorStyle.Render(m.status.Message)
	case m.status.Message != "":
		return warningStyle.Render(m.status.Message)
	case m.lastRoute != "":
		return successStyle.Render("→ " + m.lastRoute)
	case m.Selected() != "":
		return selectedStyle.Render(m.selectedTitle())
	case !m.status.Settled:
		return mutedStyle.Render("settling layout…")
	}
	return ""
}

func (m Model) selectedTitle() string {
	id := m.Selected()
	for _, n := range m.frame.Nodes {
		if n.ID == id {
			return fmt.Sprintf("%s (%s)", n.Title, n.Tier)
		}
	}
	return id
}

func (m Model) renderFooter() string {
	k := DefaultKeyMap
	parts := []string{
		k.Next.Help().Key + " select",
		k.Enter.Help().Key + " open",
		k.Search.Help().Key + " search",
		"+/- zoom",
		k.Reset.Help().Key + " reset",
		k.Clear.Help().Key + " clear",
		k.Help.Help().Key + " help",
		k.Quit.Help().Key + " quit",
	}
	return footerStyle.Render(strings.Join(parts, " • "))
}

func (m Model) renderHelp() string {
	k := DefaultKeyMap
	bindings := []key.Binding{
		k.Up, k.Down, k.Left, k.Right, k.ZoomIn, k.ZoomOut, k.Reset,
		k.Next, k.Prev, k.Enter, k.Search, k.Clear, k.Help, k.Quit,
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys"))
	b.WriteString("\n")
	for _, kb := range bindings {
		h := kb.Help()
		b.WriteString(fmt.Sprintf("%s %s\n", selectedStyle.Render(fmt.Sprintf("%-10s", h.Key)), helpStyle.Render(h.Desc)))
	}
	return boxStyle.Render(b.String())
}
