package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"movierec/internal/chat"
	"movierec/internal/domain"
)

// MoviePort is the TUI-facing subset of the movie service.
type MoviePort interface {
	Titles() []string
	Recommend(ctx context.Context, title string) ([]domain.Recommendation, error)
	Chat(ctx context.Context, sess chat.Session, message string) (chat.Session, string, error)
}

type focus int

const (
	focusSelector focus = iota
	focusChat
)

type movieItem string

func (i movieItem) Title() string       { return string(i) }
func (i movieItem) Description() string { return "" }
func (i movieItem) FilterValue() string { return string(i) }

// recommendedMsg carries the result of an asynchronous Recommend call.
type recommendedMsg struct {
	title string
	recs  []domain.Recommendation
	err   error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service  MoviePort
	selector list.Model
	input    textinput.Model
	results  viewport.Model
	history  viewport.Model
	focus    focus
	session  chat.Session
	recs     []domain.Recommendation
	status   string
	loading  bool
	ready    bool
}

// New creates a new TUI model instance.
func New(service MoviePort) Model {
	titles := service.Titles()
	items := make([]list.Item, len(titles))
	for i, t := range titles {
		items[i] = movieItem(t)
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	sel := list.New(items, delegate, 0, 0)
	sel.Title = "What would you like to watch?"
	sel.SetShowHelp(false)
	// Quitting is Ctrl+C only; "q" and "esc" would otherwise close the app from the list.
	sel.KeyMap.Quit.SetEnabled(false)

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Recommend me a movie like Inception"
	ti.CharLimit = 0

	return Model{
		service:  service,
		selector: sel,
		input:    ti,
		results:  viewport.New(0, 0),
		history:  viewport.New(0, 0),
		status:   "Enter: recommend  Tab: chat  /: filter  Ctrl+C: quit",
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd { return nil }

// Update handles key, window and result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.layout(msg.Width, msg.Height)
		return m, nil
	case recommendedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.recs = nil
		} else {
			m.status = fmt.Sprintf("Because you picked %q", msg.title)
			m.recs = msg.recs
		}
		m.results.SetContent(m.renderResults())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.focus == focusSelector && m.selector.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "tab":
			return m.toggleFocus()
		case "enter":
			if m.focus == focusSelector {
				return m.recommendSelected()
			}
			return m.send()
		}
	}

	var cmd tea.Cmd
	if m.focus == focusChat {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.selector, cmd = m.selector.Update(msg)
	}
	return m, cmd
}

func (m Model) toggleFocus() (tea.Model, tea.Cmd) {
	if m.focus == focusSelector {
		m.focus = focusChat
		return m, m.input.Focus()
	}
	m.focus = focusSelector
	m.input.Blur()
	return m, nil
}

func (m Model) recommendSelected() (tea.Model, tea.Cmd) {
	item, ok := m.selector.SelectedItem().(movieItem)
	if !ok || m.loading {
		return m, nil
	}
	m.loading = true
	m.status = fmt.Sprintf("Finding movies like %q...", string(item))
	return m, recommend(m.service, string(item))
}

func recommend(svc MoviePort, title string) tea.Cmd {
	return func() tea.Msg {
		recs, err := svc.Recommend(context.Background(), title)
		return recommendedMsg{title: title, recs: recs, err: err}
	}
}

func (m Model) send() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	sess, _, err := m.service.Chat(context.Background(), m.session, text)
	if err != nil {
		m.status = "Error: " + err.Error()
		return m, nil
	}
	m.session = sess
	m.input.Reset()
	m.history.SetContent(m.renderHistory())
	m.history.GotoBottom()
	return m, nil
}

func (m *Model) layout(width, height int) {
	_, boxH := boxStyle.GetFrameSize()
	reserved := 1 + 1 + boxH*2 + 1 // header, status, box frames, input line
	body := max(6, height-reserved)
	left := max(20, width/2)
	right := max(20, width-left-4)

	m.selector.SetSize(left, body*2/3)
	m.results.Width = right
	m.results.Height = body * 2 / 3
	m.history.Width = width - 4
	m.history.Height = max(2, body-body*2/3-1)
	m.input.Width = width - 8
	m.results.SetContent(m.renderResults())
	m.history.SetContent(m.renderHistory())
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Movie Recommendation System")
	selBox, chatBox := boxStyle, boxStyle
	if m.focus == focusSelector {
		selBox = focusedBoxStyle
	} else {
		chatBox = focusedBoxStyle
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		selBox.Render(m.selector.View()),
		boxStyle.Render(m.results.View()),
	)
	bottom := chatBox.Render(m.history.View() + "\n" + m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + top + "\n" + bottom + "\n" + status
}

func (m Model) renderResults() string {
	if len(m.recs) == 0 {
		return "No recommendations yet."
	}
	var b strings.Builder
	for i, r := range m.recs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, titleStyle.Render(r.Movie.Title))
		fmt.Fprintf(&b, "   %s\n", posterStyle.Render(r.PosterURL))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderHistory() string {
	if len(m.session.Messages) == 0 {
		return "Movie Bot: ask me to recommend something."
	}
	lines := make([]string, len(m.session.Messages))
	for i, msg := range m.session.Messages {
		lines[i] = senderStyle.Render(string(msg.Sender)+":") + " " + msg.Text
	}
	return strings.Join(lines, "\n")
}

var (
	boxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusedBoxStyle = boxStyle.Copy().BorderForeground(lipgloss.Color("12"))
	headerStyle     = lipgloss.NewStyle().Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	posterStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	senderStyle     = lipgloss.NewStyle().Bold(true)
)
