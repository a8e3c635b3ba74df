package browsecmder

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/papercomputeco/wcagrag/pkg/cliui"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
)

type browseView int

const (
	viewResults browseView = iota
	viewDetail
)

// searchFunc runs one query against the index.
type searchFunc func(ctx context.Context, query string, k int) ([]retriever.Result, error)

type browseModel struct {
	ctx    context.Context
	search searchFunc
	k      int
	style  string

	input   textinput.Model
	results []retriever.Result
	query   string
	cursor  int
	view    browseView
	detail  string
	scroll  int
	loading bool
	err     error
	width   int
	height  int
	keys    browseKeyMap
	help    help.Model
}

var (
	browseTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	browseMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	browseHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("39")).Bold(true)
	browseErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type browseKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Search key.Binding
	Quit   key.Binding
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Down, k.Up, k.Enter, k.Back, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Search, k.Down, k.Up}, {k.Enter, k.Back, k.Quit}}
}

func defaultKeyMap() browseKeyMap {
	return browseKeyMap{
		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:  key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
		Back:   key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Search: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type resultsMsg struct {
	query   string
	results []retriever.Result
	err     error
}

func newBrowseModel(ctx context.Context, search searchFunc, k int, style, initial string) browseModel {
	input := textinput.New()
	input.Prompt = "search › "
	input.Placeholder = "describe a behavior, e.g. images without alt text"
	input.CharLimit = 256
	input.SetWidth(60)
	input.SetValue(initial)
	input.Focus()

	return browseModel{
		ctx:    ctx,
		search: search,
		k:      k,
		style:  style,
		input:  input,
		keys:   defaultKeyMap(),
		help:   help.New(),
	}
}

func (m browseModel) Init() tea.Cmd {
	if q := strings.TrimSpace(m.input.Value()); q != "" {
		return m.searchCmd(q)
	}
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(max(msg.Width-len(m.input.Prompt)-2, 10))
		return m, nil
	case resultsMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.query = msg.query
		m.results = msg.results
		m.cursor = 0
		m.view = viewResults
		m.input.Blur()
		return m, nil
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m browseModel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.input.Focused() {
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			return m, m.searchCmd(q)
		case "esc":
			if len(m.results) == 0 {
				return m, tea.Quit
			}
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.view = viewResults
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Down):
		return m.move(1), nil
	case key.Matches(msg, m.keys.Up):
		return m.move(-1), nil
	case key.Matches(msg, m.keys.Enter):
		if m.view == viewResults && len(m.results) > 0 {
			m.view = viewDetail
			m.scroll = 0
			m.detail = m.renderDetail(m.results[m.cursor])
		}
	case key.Matches(msg, m.keys.Back):
		m.view = viewResults
	}

	return m, nil
}

func (m browseModel) move(delta int) browseModel {
	if m.view == viewDetail {
		m.scroll = max(m.scroll+delta, 0)
		return m
	}
	if len(m.results) == 0 {
		return m
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.results)-1)
	return m
}

func (m *browseModel) searchCmd(query string) tea.Cmd {
	m.loading = true
	m.err = nil
	ctx, search, k := m.ctx, m.search, m.k
	return func() tea.Msg {
		results, err := search(ctx, query, k)
		return resultsMsg{query: query, results: results, err: err}
	}
}

func (m browseModel) renderDetail(r retriever.Result) string {
	md := cliui.GuidelineMarkdown(r.Guideline, r.Score)

	wrap := 80
	if m.width > 0 {
		wrap = min(m.width-4, 100)
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (m browseModel) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m browseModel) render() string {
	var b strings.Builder

	b.WriteString(browseTitleStyle.Render("WCAG 2.2 guidelines"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(browseErrorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	case m.loading:
		b.WriteString(browseMutedStyle.Render("searching…"))
		b.WriteString("\n")
	case m.view == viewDetail && len(m.results) > 0:
		b.WriteString(m.visibleDetail())
	default:
		b.WriteString(m.renderResults())
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m browseModel) renderResults() string {
	if m.query == "" {
		return browseMutedStyle.Render("type a query and press enter") + "\n"
	}
	if len(m.results) == 0 {
		return browseMutedStyle.Render(fmt.Sprintf("no guidelines match %q", m.query)) + "\n"
	}

	var b strings.Builder
	previewWidth := 72
	if m.width > 0 {
		previewWidth = max(m.width-8, 20)
	}
	for i, r := range m.results {
		line := fmt.Sprintf("%d. %s %s (%.4f)", i+1, r.Guideline.RefID, r.Guideline.Title, r.Score)
		if i == m.cursor {
			b.WriteString(browseHighlightStyle.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		b.WriteString("     " + browseMutedStyle.Render(cliui.Preview(r.Text, previewWidth)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m browseModel) visibleDetail() string {
	lines := strings.Split(m.detail, "\n")
	start := min(m.scroll, max(len(lines)-1, 0))
	end := len(lines)
	if m.height > 0 {
		end = min(start+max(m.height-8, 5), len(lines))
	}
	return strings.Join(lines[start:end], "\n") + "\n"
}
