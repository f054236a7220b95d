// Package tui is the interactive terminal reader.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yuanying/epubpager/internal/book"
	"github.com/yuanying/epubpager/internal/pagination"
	"github.com/yuanying/epubpager/internal/reader"
	"github.com/yuanying/epubpager/internal/render"
)

const (
	// header, footer and status line
	chromeRows = 3

	minFontSize = 50
	maxFontSize = 400
	fontStep    = 10
	maxMargin   = 10
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	positionStyle = lipgloss.NewStyle().Faint(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
)

// ---------------------------------------------------------------------------
// Bubble Tea messages
// ---------------------------------------------------------------------------

// loadedMsg hands the coordinator back after RenderAll.
type loadedMsg struct {
	err error
}

// viewLoadedMsg reports that the visible view finished loading.
type viewLoadedMsg struct{}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

// Model is the reader application. While loading is set the coordinator is
// owned by the RenderAll command and the model does not touch it.
type Model struct {
	session *book.Session
	logger  *slog.Logger
	keys    keyMap
	help    help.Model
	input   textinput.Model

	loading   bool
	failed    bool
	jumping   bool
	status    string
	statusErr bool
	width     int
	height    int
}

// New returns the reader application for session. Views are rendered by
// the command returned from Init.
func New(session *book.Session, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	input := textinput.New()
	input.Prompt = "go to: "
	input.Placeholder = "page number or chapter"
	input.CharLimit = 120

	return Model{
		session: session,
		logger:  logger,
		keys:    newKeyMap(),
		help:    help.New(),
		input:   input,
		loading: true,
		status:  "Loading…",
	}
}

// ---------------------------------------------------------------------------
// Bubble Tea interface: Init / Update / View
// ---------------------------------------------------------------------------

func (m Model) Init() tea.Cmd {
	return renderAll(m.session.Coordinator)
}

func renderAll(c *reader.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: c.RenderAll(context.Background())}
	}
}

func waitLoaded(r reader.Renderer) tea.Cmd {
	ch := r.Loaded()
	return func() tea.Msg {
		<-ch
		return viewLoadedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.session.Resize(m.pageSize())
		return m, nil
	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.failed = true
			m.logger.Error("loading failed", "error", msg.err)
			m.setError(fmt.Sprintf("Load failed: %v (r to retry)", msg.err))
			return m, nil
		}
		m.failed = false
		m.setStatus("")
		return m, nil
	case viewLoadedMsg:
		return m, nil
	case tea.KeyMsg:
		if m.jumping {
			return m.updateJump(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.loading {
		return m, nil
	}

	c := m.session.Coordinator
	rtl := m.session.Book().Direction() == pagination.RightToLeft
	switch {
	case key.Matches(msg, m.keys.Reload):
		if !m.failed {
			return m, nil
		}
		m.loading = true
		m.setStatus("Reloading…")
		return m, renderAll(c)
	case key.Matches(msg, m.keys.Forward):
		c.NextPage()
	case key.Matches(msg, m.keys.Backward):
		c.PreviousPage()
	case key.Matches(msg, m.keys.Right):
		if rtl {
			c.PreviousPage()
		} else {
			c.NextPage()
		}
	case key.Matches(msg, m.keys.Left):
		if rtl {
			c.NextPage()
		} else {
			c.PreviousPage()
		}
	case key.Matches(msg, m.keys.NextChapter):
		c.RenderNextView()
	case key.Matches(msg, m.keys.PrevChapter):
		c.RenderPreviousView()
	case key.Matches(msg, m.keys.First):
		c.GoToGlobalPage(1)
	case key.Matches(msg, m.keys.Goto):
		m.jumping = true
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Spread):
		s := c.Settings()
		s.SyntheticLayout = !s.SyntheticLayout
		c.UpdateSettings(s)
		if s.SyntheticLayout {
			m.setStatus("Two-page spread")
		} else {
			m.setStatus("Single page")
		}
	case key.Matches(msg, m.keys.Larger):
		m.updateFontSize(fontStep)
	case key.Matches(msg, m.keys.Smaller):
		m.updateFontSize(-fontStep)
	case key.Matches(msg, m.keys.WiderMargin):
		m.updateMargin(1)
	case key.Matches(msg, m.keys.NarrowerMargin):
		m.updateMargin(-1)
	case key.Matches(msg, m.keys.Theme):
		s := c.Settings()
		s.Theme = nextTheme(s.Theme)
		c.UpdateSettings(s)
		m.setStatus("Theme: " + s.Theme)
	default:
		return m, nil
	}
	return m, m.waitCurrent()
}

func (m Model) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.jumping = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.jumping = false
		m.input.Blur()
		m.jump(strings.TrimSpace(m.input.Value()))
		return m, m.waitCurrent()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// jump goes to a global page number or to the chapter best matching query.
func (m *Model) jump(query string) {
	if query == "" {
		return
	}
	c := m.session.Coordinator
	if n, err := strconv.Atoi(query); err == nil {
		if !c.GoToGlobalPage(n) {
			m.setError(fmt.Sprintf("Page %d is out of range (1-%d)", n, c.GlobalPagePosition().NumPages))
			return
		}
		m.setStatus("")
		return
	}
	e, ok := m.session.Book().FindTOC(query)
	if !ok {
		m.setError(fmt.Sprintf("No chapter matches %q", query))
		return
	}
	if !m.session.Jump(e) {
		m.setError(fmt.Sprintf("%q is not displayed", e.Label))
		return
	}
	m.setStatus("Jumped to " + e.Label)
}

// waitCurrent returns a command that waits for the visible view when it is
// still loading.
func (m Model) waitCurrent() tea.Cmd {
	r := m.session.Coordinator.CurrentView()
	if r == nil {
		return nil
	}
	select {
	case <-r.Loaded():
		return nil
	default:
		return waitLoaded(r)
	}
}

func (m *Model) updateFontSize(delta int) {
	c := m.session.Coordinator
	s := c.Settings()
	size := s.FontSize
	if size <= 0 {
		size = 100
	}
	s.FontSize = min(max(size+delta, minFontSize), maxFontSize)
	c.UpdateSettings(s)
	m.setStatus(fmt.Sprintf("Font size %d%%", s.FontSize))
}

func (m *Model) updateMargin(delta int) {
	c := m.session.Coordinator
	s := c.Settings()
	s.Margin = min(max(s.Margin+delta, 0), maxMargin)
	c.UpdateSettings(s)
	m.setStatus(fmt.Sprintf("Margin %d", s.Margin))
}

func nextTheme(current string) string {
	names := render.ThemeNames()
	i := slices.Index(names, current)
	return names[(i+1)%len(names)]
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

// pageSize returns the viewport left for pages once the chrome is drawn.
func (m Model) pageSize() (int, int) {
	return m.width, max(m.height-chromeRows, 1)
}

func (m Model) View() string {
	header := titleStyle.Render(m.session.Book().Title())

	var body, position string
	if m.loading {
		body = "Loading " + m.session.Book().Title() + "…"
	} else {
		c := m.session.Coordinator
		body = m.session.Frame()
		pos := c.GlobalPagePosition()
		position = positionStyle.Render(fmt.Sprintf("page %d of %d · chapter %d/%d",
			pos.CurrentPage, pos.NumPages, c.CurrentIndex()+1, c.Len()))
	}
	if _, rows := m.pageSize(); m.height > 0 {
		body = lipgloss.NewStyle().Height(rows).MaxHeight(rows).Render(body)
	}

	footer := m.help.View(m.keys)
	if position != "" {
		footer = lipgloss.JoinHorizontal(lipgloss.Top, position, "  ", footer)
	}

	var status string
	switch {
	case m.jumping:
		status = m.input.View()
	case m.statusErr:
		status = errorStyle.Render(m.status)
	default:
		status = statusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer, status)
}
