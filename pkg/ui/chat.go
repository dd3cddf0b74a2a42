package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/theapemachine/agentdeck/pkg/stores"
)

const gap = "\n\n"

/*
model is a terminal chat with one app. Every message is sent through the
transport in the background; the reply events are rendered when they arrive.
*/
type model struct {
	ctx       context.Context
	appName   string
	transport Transport
	viewport  viewport.Model
	textarea  textarea.Model
	messages  []string
	waiting   bool
}

func New(ctx context.Context, appName string, transport Transport) tea.Model {
	ta := textarea.New()
	ta.Placeholder = "Send a message to " + appName + "..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 4000

	ta.SetWidth(80)
	ta.SetHeight(3)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)
	vp.SetContent(fmt.Sprintf(
		"Chatting with %s.\nType a message and press Enter to send it.\nPress Ctrl+C or Esc to quit.",
		appName,
	))

	return model{
		ctx:       ctx,
		appName:   appName,
		transport: transport,
		viewport:  vp,
		textarea:  ta,
		messages:  []string{},
	}
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.textarea.SetWidth(msg.Width)
		m.viewport.Height = msg.Height - m.textarea.Height() - lipgloss.Height(gap) - 2
		m.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, defaultKeymap.quit):
			return m, tea.Quit
		case key.Matches(msg, defaultKeymap.send):
			text := strings.TrimSpace(m.textarea.Value())

			if text == "" || m.waiting {
				break
			}

			m.messages = append(m.messages, senderStyle.Render("You: ")+text)
			m.waiting = true
			m.textarea.Reset()
			m.refresh()

			return m, tea.Batch(tiCmd, vpCmd, m.send(text))
		}

	case replyMsg:
		m.waiting = false

		for _, event := range msg.events {
			if line := RenderEvent(event); line != "" {
				m.messages = append(m.messages, line)
			}
		}

		m.refresh()

	case errorMsg:
		m.waiting = false
		m.messages = append(m.messages, errorStyle.Render("Error: ")+msg.err.Error())
		m.refresh()
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m model) View() string {
	status := "ready"

	if m.waiting {
		status = "waiting for " + m.appName + "..."
	}

	return fmt.Sprintf(
		"%s\n%s%s%s\n%s",
		headerStyle.Render(m.appName),
		m.viewport.View(),
		gap,
		m.textarea.View(),
		statusBarStyle.Render(status),
	)
}

func (m model) send(text string) tea.Cmd {
	return func() tea.Msg {
		events, err := m.transport.Send(m.ctx, text)

		if err != nil {
			return errorMsg{err: err}
		}

		return replyMsg{events: events}
	}
}

func (m *model) refresh() {
	if len(m.messages) == 0 {
		return
	}

	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.Join(m.messages, "\n")))
	m.viewport.GotoBottom()
}

/*
RenderEvent formats one event for the terminal: tool calls and results as
muted lines, errors in red and text under the author's name. Events with
nothing to show render as an empty string.
*/
func RenderEvent(event *stores.Event) string {
	if event.ErrorMessage != "" {
		return errorStyle.Render("Error: ") + event.ErrorMessage
	}

	lines := []string{}

	for _, call := range event.FunctionCalls() {
		args, _ := json.Marshal(call.Args)
		lines = append(lines, toolStyle.Render(fmt.Sprintf("→ %s(%s)", call.Name, args)))
	}

	for _, response := range event.FunctionResponses() {
		lines = append(lines, toolStyle.Render("← "+response.Name))
	}

	if text := strings.TrimSpace(event.Text()); text != "" {
		lines = append(lines, agentStyle.Render(event.Author+": ")+text)
	}

	return strings.Join(lines, "\n")
}
