package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Forward        key.Binding
	Backward       key.Binding
	Right          key.Binding
	Left           key.Binding
	NextChapter    key.Binding
	PrevChapter    key.Binding
	First          key.Binding
	Goto           key.Binding
	Spread         key.Binding
	Larger         key.Binding
	Smaller        key.Binding
	WiderMargin    key.Binding
	NarrowerMargin key.Binding
	Theme          key.Binding
	Reload         key.Binding
	Help           key.Binding
	Quit           key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Forward:        key.NewBinding(key.WithKeys(" ", "space", "pgdown", "j"), key.WithHelp("space", "next page")),
		Backward:       key.NewBinding(key.WithKeys("pgup", "k", "b"), key.WithHelp("b", "previous page")),
		Right:          key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "page right")),
		Left:           key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "page left")),
		NextChapter:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next chapter")),
		PrevChapter:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous chapter")),
		First:          key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first page")),
		Goto:           key.NewBinding(key.WithKeys("g", ":"), key.WithHelp("g", "go to page or chapter")),
		Spread:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "toggle spread")),
		Larger:         key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "larger text")),
		Smaller:        key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "smaller text")),
		WiderMargin:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "wider margin")),
		NarrowerMargin: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "narrower margin")),
		Theme:          key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "next theme")),
		Reload:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry loading")),
		Help:           key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Forward, k.Backward, k.Goto, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Forward, k.Backward, k.Right, k.Left, k.First},
		{k.NextChapter, k.PrevChapter, k.Goto},
		{k.Spread, k.Larger, k.Smaller, k.WiderMargin, k.NarrowerMargin, k.Theme},
		{k.Reload, k.Help, k.Quit},
	}
}
