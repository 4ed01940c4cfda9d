package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwidget/internal/chat"
	"chatwidget/internal/model"
)

type stubBackend struct {
	mu      sync.Mutex
	list    []model.Message
	nextID  uint
	updErr  error
	deleted []uint
	updated map[uint]string
}

func newStubBackend(list ...model.Message) *stubBackend {
	next := uint(1)
	for _, m := range list {
		if m.ID >= next {
			next = m.ID + 1
		}
	}
	return &stubBackend{list: list, nextID: next, updated: map[uint]string{}}
}

func (b *stubBackend) ListMessages(context.Context) ([]model.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Message(nil), b.list...), nil
}

func (b *stubBackend) CreateMessage(_ context.Context, content string) ([]model.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	user := model.Message{ID: b.nextID, Content: content, IsUser: true}
	reply := model.Message{ID: b.nextID + 1, Content: "echo: " + content}
	b.nextID += 2
	b.list = append(b.list, user, reply)
	return []model.Message{user, reply}, nil
}

func (b *stubBackend) UpdateMessage(_ context.Context, id uint, content string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updErr != nil {
		return b.updErr
	}
	b.updated[id] = content
	for i := range b.list {
		if b.list[i].ID == id {
			b.list[i].Content = content
		}
	}
	return nil
}

func (b *stubBackend) DeleteMessage(_ context.Context, id uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	kept := b.list[:0:0]
	for _, m := range b.list {
		if m.ID != id && (m.IsUser || m.ID != id+1) {
			kept = append(kept, m)
		}
	}
	b.list = kept
	return nil
}

func newTestModel(t *testing.T, backend chat.Backend) (Model, *chat.ViewModel) {
	t.Helper()
	vm := chat.New(backend, chat.WithReporter(chat.ReporterFunc(func(chat.Op, error) {})))
	m := New(vm)
	return step(t, m, m.run(vm.Load)), vm
}

// step runs cmd, feeds its message back into the model and returns the
// resulting model.
func step(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, stateChangedMsg{}, msg)
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestInitialLoadShowsGreeting(t *testing.T) {
	m, _ := newTestModel(t, newStubBackend())

	require.Len(t, m.state.Messages, 1)
	assert.Equal(t, chat.GreetingContent, m.state.Messages[0].Content)

	view := m.View()
	assert.Contains(t, view, "I'm ChatBot")
	assert.Contains(t, view, "Ask me anything")
	assert.Contains(t, view, chat.GreetingContent)
}

func TestTypingAndEnterSendsMessage(t *testing.T) {
	backend := newStubBackend()
	m, vm := newTestModel(t, backend)

	m = typeText(t, m, "hello")
	assert.Equal(t, "hello", vm.Snapshot().ComposeText)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = step(t, m, cmd)

	require.Len(t, m.state.Messages, 3)
	assert.Equal(t, "hello", m.state.Messages[1].Content)
	assert.Equal(t, "echo: hello", m.state.Messages[2].Content)
	assert.Empty(t, m.compose.Value())
	assert.Contains(t, m.View(), "echo: hello")
}

func TestEditSelectedUserMessage(t *testing.T) {
	backend := newStubBackend(
		model.Message{ID: 1, Content: "hi", IsUser: true},
		model.Message{ID: 2, Content: "hello there"},
	)
	m, vm := newTestModel(t, backend)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusList, m.focus)
	require.Equal(t, 1, m.selected)

	m, _ = press(t, m, runeKey('e'))
	require.Equal(t, focusEdit, m.focus)
	assert.True(t, vm.Snapshot().IsEditing(1))

	m = typeText(t, m, "!")
	assert.Equal(t, "hi!", vm.Snapshot().EditDraft)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = step(t, m, cmd)

	assert.Equal(t, "hi!", backend.updated[1])
	assert.False(t, vm.Snapshot().Editing)
	assert.Equal(t, focusList, m.focus)
	assert.Equal(t, "hi!", m.state.Messages[1].Content)
}

func TestEditOnBotMessageIsIgnored(t *testing.T) {
	backend := newStubBackend(
		model.Message{ID: 1, Content: "hi", IsUser: true},
		model.Message{ID: 2, Content: "hello there"},
	)
	m, vm := newTestModel(t, backend)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, runeKey('j'))
	require.Equal(t, 2, m.selected)

	m, cmd := press(t, m, runeKey('e'))
	assert.Nil(t, cmd)
	assert.Equal(t, focusList, m.focus)
	assert.False(t, vm.Snapshot().Editing)
}

func TestFailedSaveKeepsEditOpen(t *testing.T) {
	backend := newStubBackend(model.Message{ID: 1, Content: "hi", IsUser: true})
	backend.updErr = errors.New("boom")
	m, vm := newTestModel(t, backend)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, runeKey('e'))
	m = typeText(t, m, "?")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = step(t, m, cmd)

	assert.Equal(t, focusEdit, m.focus)
	assert.Equal(t, "hi?", vm.Snapshot().EditDraft)
}

func TestEscCancelsEdit(t *testing.T) {
	backend := newStubBackend(model.Message{ID: 1, Content: "hi", IsUser: true})
	m, vm := newTestModel(t, backend)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, runeKey('e'))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, focusList, m.focus)
	assert.False(t, vm.Snapshot().Editing)
	assert.Empty(t, backend.updated)
}

func TestDeleteSelectedUserMessage(t *testing.T) {
	backend := newStubBackend(
		model.Message{ID: 1, Content: "hi", IsUser: true},
		model.Message{ID: 2, Content: "hello there"},
	)
	m, _ := newTestModel(t, backend)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd := press(t, m, runeKey('d'))
	m = step(t, m, cmd)

	assert.Equal(t, []uint{1}, backend.deleted)
	require.Len(t, m.state.Messages, 1)
	assert.Equal(t, chat.GreetingID, m.state.Messages[0].ID)
	assert.Equal(t, 0, m.selected)
}

func TestCtrlCQuits(t *testing.T) {
	m, _ := newTestModel(t, newStubBackend())

	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResizeAdjustsViewport(t *testing.T) {
	m, _ := newTestModel(t, newStubBackend())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = next.(Model)

	assert.Equal(t, 100, m.viewport.Width)
	assert.Equal(t, 40-headerHeight-footerHeight, m.viewport.Height)
}

func TestStateChangeScrollsToNewestMessage(t *testing.T) {
	var history []model.Message
	for i := uint(1); i <= 20; i++ {
		history = append(history, model.Message{ID: i, Content: fmt.Sprintf("message %d", i), IsUser: i%2 == 1})
	}
	vm := chat.New(newStubBackend(history...), chat.WithReporter(chat.ReporterFunc(func(chat.Op, error) {})))

	next, _ := New(vm).Update(tea.WindowSizeMsg{Width: 80, Height: headerHeight + footerHeight + 3})
	m := next.(Model)
	require.Equal(t, 3, m.viewport.Height)

	m = step(t, m, m.run(vm.Load))

	assert.True(t, m.viewport.AtBottom())
	assert.Positive(t, m.viewport.YOffset)
	assert.Contains(t, m.viewport.View(), "message 20")

	m.viewport.GotoTop()
	require.False(t, m.viewport.AtBottom())

	m = typeText(t, m, "one more")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = step(t, m, cmd)

	assert.True(t, m.viewport.AtBottom())
	assert.Contains(t, m.viewport.View(), "echo: one more")
}
