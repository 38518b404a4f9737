package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/muesli/reflow/wordwrap"
)

const (
	refreshInterval = 100 * time.Millisecond
	labelWidth      = 8
	chromeHeight    = 4
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	scriptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	pendingStyle   = lipgloss.NewStyle().Faint(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// conversation is the part of the orchestrator the renderer drives.
type conversation interface {
	StartListening(ctx context.Context) error
	StopListening(ctx context.Context) error
	Respond(ctx context.Context, question string, systemContext string) error
	AddScript(ctx context.Context, script conversations.Script) error
	Turns() []conversations.TurnSnapshot
	IsListening() bool
	IsRespondingFinished() bool
	Phase() orchestration.Phase
}

type refreshMsg time.Time

type operationDoneMsg struct {
	operation string
	err       error
}

type model struct {
	conversation   conversation
	scripts        []namedScript
	autoTurnTaking bool

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	width    int
	lastErr  string
}

func newModel(c conversation, scripts []namedScript, autoTurnTaking bool) model {
	return model{
		conversation:   c,
		scripts:        scripts,
		autoTurnTaking: autoTurnTaking,
		spinner:        spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// operation runs f off the update loop since starting a session dials out.
func operation(name string, f func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return operationDoneMsg{operation: name, err: f(context.Background())}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refresh())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.viewport.SetContent(m.renderTurns())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case operationDoneMsg:
		if msg.err != nil {
			m.lastErr = fmt.Sprintf("%s: %v", msg.operation, msg.err)
		} else {
			m.lastErr = ""
		}
		return m, nil

	case refreshMsg:
		if m.ready {
			atBottom := m.viewport.AtBottom()
			m.viewport.SetContent(m.renderTurns())
			if atBottom {
				m.viewport.GotoBottom()
			}
		}
		return m, refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case " ", "space":
		if m.conversation.IsListening() {
			return m, operation("stop listening", m.conversation.StopListening)
		}
		return m, operation("start listening", m.conversation.StartListening)

	case "r":
		return m, operation("respond", func(ctx context.Context) error {
			return m.conversation.Respond(ctx, "", "")
		})

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(key[0] - '1')
		if i >= len(m.scripts) {
			return m, nil
		}
		script := m.scripts[i]
		return m, operation("play "+script.name, func(ctx context.Context) error {
			return m.conversation.AddScript(ctx, script.script)
		})
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(m.lastErr))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m model) header() string {
	phase := m.conversation.Phase()
	status := phase.String()
	if phase != orchestration.PhaseIdle {
		status = m.spinner.View() + " " + status
	}
	return titleStyle.Render("ema-voice") + "  " + status
}

func (m model) help() string {
	help := "space: listen/stop  r: respond  q: quit"
	if m.autoTurnTaking {
		help = "space: listen/stop  r: respond  q: quit  (auto turn-taking)"
	}
	if len(m.scripts) > 0 {
		names := make([]string, 0, min(len(m.scripts), 9))
		for i, script := range m.scripts[:min(len(m.scripts), 9)] {
			names = append(names, fmt.Sprintf("%d: %s", i+1, script.name))
		}
		help += "\n" + strings.Join(names, "  ")
	}
	return help
}

func (m model) renderTurns() string {
	textWidth := max(m.width-labelWidth-1, 10)

	var b strings.Builder
	for _, turn := range m.conversation.Turns() {
		text := turn.VisibleText()
		if text == "" && !turn.IsActive {
			continue
		}

		label, style := turnLabel(turn.Kind)
		lines := strings.Split(wordwrap.String(text, textWidth), "\n")
		for i, line := range lines {
			prefix := strings.Repeat(" ", labelWidth)
			if i == 0 {
				prefix = style.Width(labelWidth).Render(label)
			}
			if turn.IsActive {
				line = pendingStyle.Render(line)
			}
			b.WriteString(prefix + " " + line + "\n")
		}
	}
	return b.String()
}

func turnLabel(kind conversations.Kind) (string, lipgloss.Style) {
	switch {
	case kind.IsUser():
		return "you", userStyle
	case kind == conversations.KindAssistantResponse:
		return "ema", assistantStyle
	}
	return "script", scriptStyle
}
