package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PollFunc queries an instrument and renders its status for the given
// terminal width.
type PollFunc func(width int) (string, error)

// watchKeyMap defines key bindings for the watch screen
type watchKeyMap struct {
	Refresh key.Binding
	Pause   key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Pause, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh, k.Pause, k.Quit}}
}

// pollResultMsg carries the outcome of one poll
type pollResultMsg struct {
	content string
	err     error
	at      time.Time
}

// pollTickMsg schedules the next poll. seq ties the tick to the poll chain
// that scheduled it so a manual refresh does not start a second chain.
type pollTickMsg struct {
	seq int
}

// WatchModel is a Bubble Tea model that polls an instrument on a fixed
// interval and shows the latest rendered status.
type WatchModel struct {
	poll     PollFunc
	interval time.Duration

	Spinner spinner.Model
	Help    help.Model
	Keys    watchKeyMap

	content  string
	err      error
	polls    int
	failures int
	last     time.Time
	polling  bool
	paused   bool
	seq      int
	width    int
}

// NewWatchModel creates a watch model. A non-positive interval means one
// second.
func NewWatchModel(poll PollFunc, interval time.Duration) WatchModel {
	if interval <= 0 {
		interval = time.Second
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return WatchModel{
		poll:     poll,
		interval: interval,
		Spinner:  s,
		Help:     help.New(),
		Keys: watchKeyMap{
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh"),
			),
			Pause: key.NewBinding(
				key.WithKeys("p", " "),
				key.WithHelp("p", "pause"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		width: GetTerminalWidth(),
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.pollCmd())
}

func (m WatchModel) pollCmd() tea.Cmd {
	poll, width := m.poll, m.width
	return func() tea.Msg {
		content, err := poll(width)
		return pollResultMsg{content: content, err: err, at: time.Now()}
	}
}

func (m WatchModel) tickCmd() tea.Cmd {
	seq := m.seq
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return pollTickMsg{seq: seq}
	})
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Pause):
			m.paused = !m.paused
			if !m.paused && !m.polling {
				m.polling = true
				return m, m.pollCmd()
			}
		case key.Matches(msg, m.Keys.Refresh):
			if !m.polling {
				m.polling = true
				return m, m.pollCmd()
			}
		}

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		m.Help.Width = m.width

	case pollResultMsg:
		m.polling = false
		m.polls++
		m.last = msg.at
		m.err = msg.err
		if msg.err != nil {
			m.failures++
		} else {
			m.content = msg.content
		}
		if m.paused {
			return m, nil
		}
		m.seq++
		return m, m.tickCmd()

	case pollTickMsg:
		if msg.seq != m.seq || m.paused || m.polling {
			return m, nil
		}
		m.polling = true
		return m, m.pollCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	if m.content != "" {
		b.WriteString(m.content)
		b.WriteString("\n")
	}

	switch {
	case m.paused:
		b.WriteString(FooterStyle.Render("paused"))
	case m.polls == 0:
		b.WriteString("  " + m.Spinner.View() + " querying status...")
	default:
		b.WriteString("  " + m.Spinner.View() + " " + FooterStyle.UnsetPaddingLeft().Render(
			fmt.Sprintf("polled %d times, every %s, last at %s",
				m.polls, m.interval, m.last.Format("15:04:05"))))
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(ErrorMessageStyle.Render(fmt.Sprintf("  %s Poll failed (%d total): %v", FailureMarker, m.failures, m.err)))
		b.WriteString("\n")
	}

	b.WriteString("  " + m.Help.View(m.Keys))
	b.WriteString("\n")
	return b.String()
}

// Err returns the error of the most recent poll, if it failed
func (m WatchModel) Err() error {
	return m.err
}

// RunWatch runs a watch screen until the user quits
func RunWatch(poll PollFunc, interval time.Duration, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(NewWatchModel(poll, interval), opts...)
	_, err := p.Run()
	return err
}
