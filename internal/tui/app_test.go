package tui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yuanying/epubpager/internal/book"
	"github.com/yuanying/epubpager/internal/epubtest"
	"github.com/yuanying/epubpager/internal/reader"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paras(prefix string, n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, `<p id="%s%d">%s %d</p>`, prefix, i, prefix, i)
	}
	return sb.String()
}

// twoChapters has one page in the first chapter and three in the second at
// 20x5.
func twoChapters(direction string) epubtest.Book {
	return epubtest.Book{
		Title:     "Test Book",
		Direction: direction,
		Chapters: []epubtest.Chapter{
			{Title: "Alpha", Body: paras("a", 3)},
			{Title: "Beta", Body: paras("b", 6)},
		},
		NCX: true,
	}
}

func newTestModel(t *testing.T, b epubtest.Book, height int) Model {
	t.Helper()
	bk, err := book.Open(epubtest.WriteBook(t, b), discardLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { bk.Close() })
	s, err := bk.NewSession(book.SessionOptions{
		Settings:    reader.Settings{Theme: "default", FontSize: 100},
		Width:       20,
		Height:      height,
		LoadTimeout: 5 * time.Second,
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return New(s, discardLogger())
}

func loadedModel(t *testing.T, b epubtest.Book) Model {
	t.Helper()
	m := newTestModel(t, b, 5)
	m, _ = apply(t, m, m.Init()())
	if m.loading || m.failed {
		t.Fatalf("model not loaded: loading=%v failed=%v status=%q", m.loading, m.failed, m.status)
	}
	return m
}

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return got, cmd
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		m, _ = apply(t, m, k)
	}
	return m
}

func position(m Model) reader.Position {
	return m.session.Coordinator.GlobalPagePosition()
}

func TestModel_Navigation(t *testing.T) {
	m := loadedModel(t, twoChapters("ltr"))

	if view := m.View(); !strings.Contains(view, "page 1 of 4") || !strings.Contains(view, "Test Book") {
		t.Errorf("initial View() =\n%s", view)
	}

	tests := []struct {
		name     string
		key      tea.KeyMsg
		wantPage int
		wantView int
	}{
		{name: "forward crosses chapters", key: runeKey("j"), wantPage: 2, wantView: 1},
		{name: "space", key: tea.KeyMsg{Type: tea.KeySpace}, wantPage: 3, wantView: 1},
		{name: "right", key: tea.KeyMsg{Type: tea.KeyRight}, wantPage: 4, wantView: 1},
		{name: "forward at the end", key: runeKey("j"), wantPage: 4, wantView: 1},
		{name: "left", key: tea.KeyMsg{Type: tea.KeyLeft}, wantPage: 3, wantView: 1},
		{name: "previous chapter", key: runeKey("p"), wantPage: 1, wantView: 0},
		{name: "next chapter", key: runeKey("n"), wantPage: 3, wantView: 1},
		{name: "home", key: tea.KeyMsg{Type: tea.KeyHome}, wantPage: 1, wantView: 0},
	}
	for _, tt := range tests {
		m = press(t, m, tt.key)
		if got := position(m).CurrentPage; got != tt.wantPage {
			t.Errorf("%s: global page = %d, want %d", tt.name, got, tt.wantPage)
		}
		if got := m.session.Coordinator.CurrentIndex(); got != tt.wantView {
			t.Errorf("%s: view = %d, want %d", tt.name, got, tt.wantView)
		}
	}
}

func TestModel_RightToLeft(t *testing.T) {
	m := loadedModel(t, twoChapters("rtl"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if got := position(m).CurrentPage; got != 2 {
		t.Errorf("left in rtl: global page = %d, want 2", got)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if got := position(m).CurrentPage; got != 1 {
		t.Errorf("right in rtl: global page = %d, want 1", got)
	}
}

func TestModel_Settings(t *testing.T) {
	m := loadedModel(t, twoChapters("ltr"))
	c := m.session.Coordinator

	m = press(t, m, runeKey("s"))
	if !c.Settings().SyntheticLayout {
		t.Error("s did not enable the spread")
	}
	if m.status != "Two-page spread" {
		t.Errorf("status = %q", m.status)
	}

	m = press(t, m, runeKey("+"), runeKey("+"), runeKey("-"))
	if got := c.Settings().FontSize; got != 110 {
		t.Errorf("FontSize = %d, want 110", got)
	}

	m = press(t, m, runeKey("]"), runeKey("]"), runeKey("["), runeKey("["), runeKey("["))
	if got := c.Settings().Margin; got != 0 {
		t.Errorf("Margin = %d, want 0", got)
	}

	m = press(t, m, runeKey("t"))
	if got := c.Settings().Theme; got != "night" {
		t.Errorf("Theme = %q, want night", got)
	}
	if got := m.session.Current().Settings().Theme; got != "night" {
		t.Errorf("visible renderer theme = %q, want night", got)
	}
}

func TestModel_FontSizeBounds(t *testing.T) {
	m := loadedModel(t, twoChapters("ltr"))
	for i := 0; i < 40; i++ {
		m = press(t, m, runeKey("+"))
	}
	if got := m.session.Coordinator.Settings().FontSize; got != maxFontSize {
		t.Errorf("FontSize = %d, want %d", got, maxFontSize)
	}
}

func TestModel_Goto(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantError bool
	}{
		{name: "page number", query: "3", wantPage: 3},
		{name: "chapter", query: "beta", wantPage: 2},
		{name: "page out of range", query: "9", wantPage: 1, wantError: true},
		{name: "unknown chapter", query: "zzzzzzzz", wantPage: 1, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loadedModel(t, twoChapters("ltr"))

			m = press(t, m, runeKey("g"))
			if !m.jumping {
				t.Fatal("g did not open the prompt")
			}
			m = press(t, m, runeKey(tt.query))
			if view := m.View(); !strings.Contains(view, tt.query) {
				t.Errorf("prompt does not show the query:\n%s", view)
			}
			m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

			if m.jumping {
				t.Error("prompt still open after enter")
			}
			if got := position(m).CurrentPage; got != tt.wantPage {
				t.Errorf("global page = %d, want %d", got, tt.wantPage)
			}
			if m.statusErr != tt.wantError {
				t.Errorf("statusErr = %v, want %v (status %q)", m.statusErr, tt.wantError, m.status)
			}
		})
	}
}

func TestModel_GotoCancel(t *testing.T) {
	m := loadedModel(t, twoChapters("ltr"))
	m = press(t, m, runeKey("g"), runeKey("4"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.jumping {
		t.Error("esc did not close the prompt")
	}
	if got := position(m).CurrentPage; got != 1 {
		t.Errorf("global page = %d, want 1", got)
	}
}

func TestModel_Loading(t *testing.T) {
	m := newTestModel(t, twoChapters("ltr"), 5)

	if view := m.View(); !strings.Contains(view, "Loading") {
		t.Errorf("View() before load =\n%s", view)
	}
	m, cmd := apply(t, m, runeKey("j"))
	if cmd != nil {
		t.Error("navigation while loading returned a command")
	}
	if m.jumping {
		t.Error("prompt opened while loading")
	}

	_, cmd = apply(t, m, runeKey("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModel_LoadFailureAndRetry(t *testing.T) {
	m := newTestModel(t, twoChapters("ltr"), 5)

	m, _ = apply(t, m, loadedMsg{err: &reader.LoadTimeoutError{Outstanding: 1, Total: 2, Timeout: time.Second}})
	if !m.failed || !m.statusErr {
		t.Fatalf("failed = %v, statusErr = %v, want both true", m.failed, m.statusErr)
	}
	if !strings.Contains(m.View(), "r to retry") {
		t.Errorf("View() does not offer a retry:\n%s", m.View())
	}

	m, cmd := apply(t, m, runeKey("r"))
	if !m.loading || cmd == nil {
		t.Fatalf("r did not restart loading: loading = %v, cmd = %v", m.loading, cmd != nil)
	}
	msg, ok := cmd().(loadedMsg)
	if !ok || msg.err != nil {
		t.Fatalf("retry = %#v, want a successful loadedMsg", msg)
	}
	m, _ = apply(t, m, msg)
	if m.failed || m.loading || m.statusErr {
		t.Errorf("after retry failed = %v, loading = %v, statusErr = %v", m.failed, m.loading, m.statusErr)
	}
	if errors.Is(m.session.Coordinator.Err(), reader.ErrLoadTimeout) {
		t.Error("coordinator reports a timeout it never had")
	}
}

func TestModel_WindowSize(t *testing.T) {
	// At height 11 the second chapter fits on one page; a 20x8 window leaves
	// five rows for pages.
	m := newTestModel(t, twoChapters("ltr"), 11)
	m, _ = apply(t, m, m.Init()())
	if got := position(m).NumPages; got != 2 {
		t.Fatalf("pages at height 11 = %d, want 2", got)
	}

	m, _ = apply(t, m, tea.WindowSizeMsg{Width: 20, Height: 8})
	if got := position(m).NumPages; got != 4 {
		t.Errorf("pages after resize = %d, want 4", got)
	}
	if m.help.Width != 20 {
		t.Errorf("help width = %d, want 20", m.help.Width)
	}
}

func TestModel_Help(t *testing.T) {
	m := loadedModel(t, twoChapters("ltr"))
	short := m.View()
	m = press(t, m, runeKey("?"))
	if !m.help.ShowAll {
		t.Fatal("? did not expand the help")
	}
	if full := m.View(); !strings.Contains(full, "toggle spread") || strings.Contains(short, "toggle spread") {
		t.Errorf("full help not shown:\n%s", full)
	}
}

func TestNextTheme(t *testing.T) {
	tests := []struct {
		current string
		want    string
	}{
		{current: "default", want: "night"},
		{current: "night", want: "sepia"},
		{current: "sepia", want: "default"},
		{current: "unknown", want: "default"},
	}
	for _, tt := range tests {
		if got := nextTheme(tt.current); got != tt.want {
			t.Errorf("nextTheme(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
}
