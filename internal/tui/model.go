// Package tui renders the chat view-model in a terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"chatwidget/internal/chat"
	"chatwidget/internal/model"
)

type focus int

const (
	focusCompose focus = iota
	focusList
	focusEdit
)

const (
	headerHeight = 3
	footerHeight = 4
)

// stateChangedMsg is returned by every command that ran a view-model
// operation.
type stateChangedMsg struct{}

type Model struct {
	vm *chat.ViewModel

	compose  textinput.Model
	edit     textinput.Model
	viewport viewport.Model
	styles   Styles

	focus    focus
	selected int
	width    int
	height   int
	state    chat.State
}

func New(vm *chat.ViewModel) Model {
	compose := textinput.New()
	compose.Placeholder = "Your question"
	compose.Prompt = "│ "
	compose.CharLimit = 4096
	compose.Width = 76
	compose.Focus()

	edit := textinput.New()
	edit.Prompt = "✎ "
	edit.CharLimit = 4096
	edit.Width = 72

	return Model{
		vm:       vm,
		compose:  compose,
		edit:     edit,
		viewport: viewport.New(80, 20),
		styles:   DefaultStyles(),
		focus:    focusCompose,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.run(m.vm.Load))
}

// run wraps a blocking view-model call in a command. The terminal runtime
// executes commands on their own goroutines, so several calls can be in
// flight at once.
func (m Model) run(op func(context.Context)) tea.Cmd {
	return func() tea.Msg {
		op(context.Background())
		return stateChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateChangedMsg:
		m.sync()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-headerHeight-footerHeight)
		m.compose.Width = max(10, msg.Width-4)
		m.edit.Width = max(10, msg.Width-8)
		m.render()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.focus {
		case focusCompose:
			return m.updateCompose(msg)
		case focusList:
			return m.updateList(msg)
		case focusEdit:
			return m.updateEdit(msg)
		}
	}

	// cursor blink and other widget messages
	var cmd tea.Cmd
	if m.focus == focusEdit {
		m.edit, cmd = m.edit.Update(msg)
	} else {
		m.compose, cmd = m.compose.Update(msg)
	}
	return m, cmd
}

func (m Model) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		return m, m.run(m.vm.Send)
	case tea.KeyTab:
		m.focus = focusList
		m.compose.Blur()
		m.selected = m.lastUserIndex()
		m.render()
		return m, nil
	}

	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	m.vm.SetComposeText(m.compose.Value())
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "esc":
		m.focus = focusCompose
		cmd := m.compose.Focus()
		m.render()
		return m, cmd
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.state.Messages)-1 {
			m.selected++
		}
	case "e":
		if target, ok := m.selectedUserMessage(); ok {
			m.vm.StartEdit(target.ID, target.Content)
			m.edit.SetValue(target.Content)
			m.edit.CursorEnd()
			m.focus = focusEdit
			cmd := m.edit.Focus()
			m.state = m.vm.Snapshot()
			m.render()
			return m, cmd
		}
	case "d":
		if target, ok := m.selectedUserMessage(); ok {
			id := target.ID
			return m, m.run(func(ctx context.Context) { m.vm.Delete(ctx, id) })
		}
	case "r":
		return m, m.run(m.vm.Load)
	}
	m.render()
	return m, nil
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.vm.CancelEdit()
		m.edit.Blur()
		m.focus = focusList
		m.state = m.vm.Snapshot()
		m.render()
		return m, nil
	case tea.KeyEnter:
		return m, m.run(m.vm.SaveEdit)
	}

	var cmd tea.Cmd
	m.edit, cmd = m.edit.Update(msg)
	m.vm.SetEditDraft(m.edit.Value())
	m.state = m.vm.Snapshot()
	m.render()
	return m, cmd
}

// sync pulls view-model state into the widgets after an operation finished.
func (m *Model) sync() {
	m.state = m.vm.Snapshot()

	if m.compose.Value() != m.state.ComposeText {
		m.compose.SetValue(m.state.ComposeText)
	}
	if m.focus == focusEdit && !m.state.Editing {
		m.edit.Blur()
		m.focus = focusList
	}
	if m.selected >= len(m.state.Messages) {
		m.selected = max(0, len(m.state.Messages)-1)
	}

	m.render()
	m.viewport.GotoBottom()
}

func (m Model) selectedUserMessage() (model.Message, bool) {
	if m.selected < 0 || m.selected >= len(m.state.Messages) {
		return model.Message{}, false
	}
	target := m.state.Messages[m.selected]
	return target, target.IsUser
}

func (m Model) lastUserIndex() int {
	for i := len(m.state.Messages) - 1; i >= 0; i-- {
		if m.state.Messages[i].IsUser {
			return i
		}
	}
	return max(0, len(m.state.Messages)-1)
}

func (m *Model) render() {
	var sb strings.Builder
	for i, message := range m.state.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderMessage(i, message))
	}
	m.viewport.SetContent(sb.String())
}

func (m Model) renderMessage(i int, message model.Message) string {
	if m.state.IsEditing(message.ID) && message.IsUser {
		return m.styles.Editing.Render(m.edit.View())
	}

	marker := "  "
	if m.focus == focusList && i == m.selected {
		marker = m.styles.Selected.Render("▸ ")
	}

	if message.IsUser {
		return marker + m.styles.User.Render("You: "+message.Content)
	}
	return marker + m.styles.Bot.Render("Bot: "+message.Content)
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("Hey👋, I'm ChatBot"))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Subtitle.Render("Ask me anything"))
	sb.WriteString("\n\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.InputArea.Render(m.compose.View()))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Help.Render(m.helpLine()))
	return sb.String()
}

func (m Model) helpLine() string {
	switch m.focus {
	case focusList:
		return "↑/↓ select • e edit • d delete • r reload • tab compose"
	case focusEdit:
		return "enter save • esc cancel"
	default:
		return fmt.Sprintf("enter send • tab messages (%d) • esc quit", len(m.state.Messages))
	}
}
