// Package chat holds the widget's view-model: the message list, the compose
// buffer and the single edit slot, reconciled against the backend after
// every mutation.
//
// The state lock is never held across a backend call. Overlapping operations
// each apply their result when they return, so the last one to finish wins.
package chat

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chatwidget/internal/model"
)

const (
	GreetingID      uint = 0
	GreetingContent      = "Welcome to the chatbot! How can I assist you today?"
)

// Greeting is the synthetic first entry of every loaded list. It is never
// sent to or stored by the backend.
func Greeting() model.Message {
	return model.Message{ID: GreetingID, Content: GreetingContent, IsUser: false}
}

type Backend interface {
	ListMessages(ctx context.Context) ([]model.Message, error)
	CreateMessage(ctx context.Context, content string) ([]model.Message, error)
	UpdateMessage(ctx context.Context, id uint, content string) error
	DeleteMessage(ctx context.Context, id uint) error
}

// State is a copy of the view-model's state. Messages is owned by the
// receiver.
type State struct {
	Messages    []model.Message
	ComposeText string
	Editing     bool
	EditingID   uint
	EditDraft   string
}

// IsEditing reports whether id is the message currently in edit.
func (s State) IsEditing(id uint) bool {
	return s.Editing && s.EditingID == id
}

type ViewModel struct {
	backend  Backend
	reporter Reporter
	onChange func()

	mu    sync.Mutex
	state State
}

type Option func(*ViewModel)

func WithReporter(r Reporter) Option {
	return func(vm *ViewModel) { vm.reporter = r }
}

// WithOnChange registers fn to run after every state change. fn runs on the
// goroutine that made the change, without the state lock held.
func WithOnChange(fn func()) Option {
	return func(vm *ViewModel) { vm.onChange = fn }
}

func New(backend Backend, opts ...Option) *ViewModel {
	vm := &ViewModel{backend: backend}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.reporter == nil {
		vm.reporter = NewLogReporter(zap.L())
	}
	return vm
}

func (vm *ViewModel) Snapshot() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	s := vm.state
	s.Messages = append([]model.Message(nil), vm.state.Messages...)
	return s
}

// Load replaces the list with the greeting followed by the server's list.
// On failure the current list is kept as is.
func (vm *ViewModel) Load(ctx context.Context) {
	messages, err := vm.backend.ListMessages(ctx)
	if err != nil {
		vm.reporter.Report(OpLoad, err)
		return
	}

	next := make([]model.Message, 0, len(messages)+1)
	next = append(next, Greeting())
	next = append(next, messages...)

	vm.update(func(s *State) { s.Messages = next })
}

func (vm *ViewModel) SetComposeText(text string) {
	vm.update(func(s *State) { s.ComposeText = text })
}

// Send posts the compose text as typed. Blank text is not sent. On success
// every returned message is appended and the compose text is cleared; on
// failure the compose text is kept.
func (vm *ViewModel) Send(ctx context.Context) {
	text := vm.Snapshot().ComposeText
	if strings.TrimSpace(text) == "" {
		return
	}

	created, err := vm.backend.CreateMessage(ctx, text)
	if err != nil {
		vm.reporter.Report(OpSend, err)
		return
	}

	vm.update(func(s *State) {
		next := make([]model.Message, 0, len(s.Messages)+len(created))
		next = append(next, s.Messages...)
		next = append(next, created...)
		s.Messages = next
		s.ComposeText = ""
	})
}

// Delete removes id on the server and reloads the list. Nothing is removed
// locally, and a failed delete skips the reload.
func (vm *ViewModel) Delete(ctx context.Context, id uint) {
	if err := vm.backend.DeleteMessage(ctx, id); err != nil {
		vm.reporter.Report(OpDelete, err)
		return
	}
	vm.Load(ctx)
}

// StartEdit opens the edit slot on id, discarding any unsaved draft of a
// message already in edit.
func (vm *ViewModel) StartEdit(id uint, content string) {
	vm.update(func(s *State) {
		s.Editing = true
		s.EditingID = id
		s.EditDraft = content
	})
}

func (vm *ViewModel) SetEditDraft(text string) {
	vm.update(func(s *State) {
		if s.Editing {
			s.EditDraft = text
		}
	})
}

// SaveEdit sends the draft for the message in edit. On success the edit slot
// closes and the list is reloaded. On failure the slot stays open with the
// draft intact so the save can be retried.
func (vm *ViewModel) SaveEdit(ctx context.Context) {
	s := vm.Snapshot()
	if !s.Editing {
		return
	}

	if err := vm.backend.UpdateMessage(ctx, s.EditingID, s.EditDraft); err != nil {
		vm.reporter.Report(OpSaveEdit, err)
		return
	}

	vm.update(clearEdit)
	vm.Load(ctx)
}

func (vm *ViewModel) CancelEdit() {
	vm.update(clearEdit)
}

func clearEdit(s *State) {
	s.Editing = false
	s.EditingID = 0
	s.EditDraft = ""
}

func (vm *ViewModel) update(fn func(*State)) {
	vm.mu.Lock()
	fn(&vm.state)
	vm.mu.Unlock()

	if vm.onChange != nil {
		vm.onChange()
	}
}
