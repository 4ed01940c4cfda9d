package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"chatwidget/internal/model"
)

var errNetwork = errors.New("dial tcp 127.0.0.1:8000: connection refused")

type fakeBackend struct {
	mu sync.Mutex

	list    []model.Message
	listErr error
	created []model.Message
	sendErr error
	updErr  error
	delErr  error

	calls []string
	sent  []string
	edits map[uint]string
}

func newFakeBackend(list ...model.Message) *fakeBackend {
	return &fakeBackend{list: list, edits: map[uint]string{}}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ListMessages(context.Context) ([]model.Message, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Message(nil), f.list...), nil
}

func (f *fakeBackend) CreateMessage(_ context.Context, content string) ([]model.Message, error) {
	f.record("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, content)
	f.list = append(f.list, f.created...)
	return append([]model.Message(nil), f.created...), nil
}

func (f *fakeBackend) UpdateMessage(_ context.Context, id uint, content string) error {
	f.record("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updErr != nil {
		return f.updErr
	}
	f.edits[id] = content
	for i := range f.list {
		if f.list[i].ID == id {
			f.list[i].Content = content
		}
	}
	return nil
}

func (f *fakeBackend) DeleteMessage(_ context.Context, id uint) error {
	f.record("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	kept := f.list[:0:0]
	for _, m := range f.list {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	f.list = kept
	return nil
}

type reported struct {
	op  Op
	err error
}

func newTestViewModel(backend Backend) (*ViewModel, *[]reported) {
	var reports []reported
	var mu sync.Mutex
	vm := New(backend, WithReporter(ReporterFunc(func(op Op, err error) {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, reported{op: op, err: err})
	})))
	return vm, &reports
}

func msg(id uint, content string, isUser bool) model.Message {
	return model.Message{ID: id, Content: content, IsUser: isUser}
}

func TestLoadPrependsGreeting(t *testing.T) {
	backend := newFakeBackend(msg(1, "hi", false))
	vm, reports := newTestViewModel(backend)

	vm.Load(context.Background())

	want := []model.Message{Greeting(), msg(1, "hi", false)}
	if diff := cmp.Diff(want, vm.Snapshot().Messages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, *reports)
}

func TestLoadGreetingFirstWhateverTheServerSends(t *testing.T) {
	cases := map[string][]model.Message{
		"empty":             nil,
		"server id zero":    {msg(0, "impostor", true)},
		"many out of order": {msg(9, "x", true), msg(3, "y", false)},
	}
	for name, list := range cases {
		t.Run(name, func(t *testing.T) {
			vm, _ := newTestViewModel(newFakeBackend(list...))
			vm.Load(context.Background())

			got := vm.Snapshot().Messages
			require.Len(t, got, len(list)+1)
			assert.Equal(t, Greeting(), got[0])
			if diff := cmp.Diff(list, got[1:], cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("server order not kept (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadFailureLeavesStateUntouched(t *testing.T) {
	backend := newFakeBackend()
	backend.listErr = errNetwork
	vm, reports := newTestViewModel(backend)

	vm.Load(context.Background())

	assert.Empty(t, vm.Snapshot().Messages, "failed initial load shows nothing, not even the greeting")
	require.Len(t, *reports, 1)
	assert.Equal(t, OpLoad, (*reports)[0].op)
	assert.ErrorIs(t, (*reports)[0].err, errNetwork)

	backend.listErr = nil
	backend.list = []model.Message{msg(1, "a", true)}
	vm.Load(context.Background())
	backend.listErr = errNetwork
	vm.Load(context.Background())

	assert.Len(t, vm.Snapshot().Messages, 2, "a later failure keeps the last good list")
}

func TestSendBlankIsNoop(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n "} {
		backend := newFakeBackend(msg(1, "hi", false))
		vm, reports := newTestViewModel(backend)
		vm.Load(context.Background())
		vm.SetComposeText(text)
		before := vm.Snapshot()

		vm.Send(context.Background())

		assert.Equal(t, []string{"list"}, backend.callLog(), "no backend call for %q", text)
		assert.Equal(t, before, vm.Snapshot())
		assert.Empty(t, *reports)
	}
}

func TestSendAppendsCreatedMessageAndClearsCompose(t *testing.T) {
	backend := newFakeBackend(msg(1, "hi", false))
	backend.created = []model.Message{msg(2, "hello", true)}
	vm, _ := newTestViewModel(backend)
	vm.Load(context.Background())

	vm.SetComposeText("hello")
	vm.Send(context.Background())

	s := vm.Snapshot()
	want := []model.Message{Greeting(), msg(1, "hi", false), msg(2, "hello", true)}
	if diff := cmp.Diff(want, s.Messages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "", s.ComposeText)
	assert.Equal(t, []string{"hello"}, backend.sent)
}

func TestSendAppendsEveryReturnedMessageInOrder(t *testing.T) {
	backend := newFakeBackend()
	backend.created = []model.Message{msg(5, "question", true), msg(6, "answer", false)}
	vm, _ := newTestViewModel(backend)
	vm.Load(context.Background())

	vm.SetComposeText("  question  ")
	vm.Send(context.Background())

	s := vm.Snapshot()
	want := []model.Message{Greeting(), msg(5, "question", true), msg(6, "answer", false)}
	if diff := cmp.Diff(want, s.Messages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"  question  "}, backend.sent, "text is sent as typed")
	assert.Equal(t, []string{"list", "create"}, backend.callLog(), "send does not reload")
}

func TestSendFailureKeepsComposeText(t *testing.T) {
	backend := newFakeBackend(msg(1, "hi", false))
	backend.sendErr = errNetwork
	vm, reports := newTestViewModel(backend)
	vm.Load(context.Background())
	vm.SetComposeText("hello")
	before := vm.Snapshot()

	vm.Send(context.Background())

	assert.Equal(t, before, vm.Snapshot())
	require.Len(t, *reports, 1)
	assert.Equal(t, OpSend, (*reports)[0].op)
}

func TestDeleteReloadsAndDropsID(t *testing.T) {
	backend := newFakeBackend(msg(1, "mine", true), msg(2, "reply", false))
	vm, _ := newTestViewModel(backend)
	vm.Load(context.Background())

	vm.Delete(context.Background(), 1)

	assert.Equal(t, []string{"list", "delete", "list"}, backend.callLog())
	for _, m := range vm.Snapshot().Messages {
		assert.NotEqual(t, uint(1), m.ID)
	}
	assert.Equal(t, Greeting(), vm.Snapshot().Messages[0])
}

func TestDeleteFailureSkipsReload(t *testing.T) {
	backend := newFakeBackend(msg(1, "hi", false))
	vm, reports := newTestViewModel(backend)
	vm.Load(context.Background())
	backend.delErr = errNetwork
	before := vm.Snapshot()

	vm.Delete(context.Background(), 1)

	assert.Equal(t, before, vm.Snapshot())
	assert.Equal(t, []string{"list", "delete"}, backend.callLog())
	require.Len(t, *reports, 1)
	assert.Equal(t, OpDelete, (*reports)[0].op)
}

func TestStartEditReplacesPreviousDraft(t *testing.T) {
	vm, _ := newTestViewModel(newFakeBackend())

	vm.StartEdit(1, "message A")
	vm.SetEditDraft("A with unsaved changes")
	vm.StartEdit(2, "message B")

	s := vm.Snapshot()
	assert.True(t, s.IsEditing(2))
	assert.False(t, s.IsEditing(1))
	assert.Equal(t, "message B", s.EditDraft)
}

func TestSetEditDraftIgnoredWhenNotEditing(t *testing.T) {
	vm, _ := newTestViewModel(newFakeBackend())

	vm.SetEditDraft("stray keystrokes")

	assert.Equal(t, State{}, vm.Snapshot())
}

func TestSaveEditUpdatesClosesAndReloads(t *testing.T) {
	backend := newFakeBackend(msg(1, "before", true))
	vm, _ := newTestViewModel(backend)
	vm.Load(context.Background())

	vm.StartEdit(1, "before")
	vm.SetEditDraft("after")
	vm.SaveEdit(context.Background())

	s := vm.Snapshot()
	assert.False(t, s.Editing)
	assert.Equal(t, "", s.EditDraft)
	assert.Equal(t, "after", backend.edits[1])
	assert.Equal(t, []string{"list", "update", "list"}, backend.callLog())
	assert.Equal(t, "after", s.Messages[1].Content)
}

func TestSaveEditFailureKeepsEditOpen(t *testing.T) {
	backend := newFakeBackend(msg(1, "before", true))
	backend.updErr = errNetwork
	vm, reports := newTestViewModel(backend)
	vm.Load(context.Background())

	vm.StartEdit(1, "before")
	vm.SetEditDraft("after")
	vm.SaveEdit(context.Background())

	s := vm.Snapshot()
	assert.True(t, s.IsEditing(1))
	assert.Equal(t, "after", s.EditDraft)
	assert.Equal(t, "before", s.Messages[1].Content)
	assert.Equal(t, []string{"list", "update"}, backend.callLog())
	require.Len(t, *reports, 1)
	assert.Equal(t, OpSaveEdit, (*reports)[0].op)
}

func TestSaveEditReloadFailureClosesEditWithStaleList(t *testing.T) {
	backend := newFakeBackend(msg(1, "before", true))
	vm, reports := newTestViewModel(backend)
	vm.Load(context.Background())
	vm.StartEdit(1, "before")
	vm.SetEditDraft("after")
	backend.listErr = errNetwork

	vm.SaveEdit(context.Background())

	s := vm.Snapshot()
	assert.False(t, s.Editing)
	assert.Equal(t, "before", s.Messages[1].Content)
	require.Len(t, *reports, 1)
	assert.Equal(t, OpLoad, (*reports)[0].op)
}

func TestSaveEditWithoutEditIsNoop(t *testing.T) {
	backend := newFakeBackend()
	vm, _ := newTestViewModel(backend)

	vm.SaveEdit(context.Background())

	assert.Empty(t, backend.callLog())
}

func TestCancelEditMakesNoCall(t *testing.T) {
	backend := newFakeBackend()
	vm, _ := newTestViewModel(backend)
	vm.StartEdit(3, "draft")

	vm.CancelEdit()

	assert.Equal(t, State{}, vm.Snapshot())
	assert.Empty(t, backend.callLog())
}

func TestConcurrentDeletesAreNotDeduplicated(t *testing.T) {
	backend := newFakeBackend(msg(1, "mine", true))
	vm, _ := newTestViewModel(backend)
	vm.Load(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vm.Delete(context.Background(), 1)
		}()
	}
	wg.Wait()

	deletes := 0
	for _, call := range backend.callLog() {
		if call == "delete" {
			deletes++
		}
	}
	assert.Equal(t, 2, deletes)
	assert.Equal(t, []model.Message{Greeting()}, vm.Snapshot().Messages)
}

func TestOnChangeFiresAfterStateChanges(t *testing.T) {
	backend := newFakeBackend(msg(1, "hi", false))
	changes := 0
	vm := New(backend, WithOnChange(func() { changes++ }), WithReporter(ReporterFunc(func(Op, error) {})))

	vm.Load(context.Background())
	vm.SetComposeText("x")
	vm.StartEdit(1, "hi")
	vm.CancelEdit()

	assert.Equal(t, 4, changes)

	backend.listErr = errNetwork
	vm.Load(context.Background())
	assert.Equal(t, 4, changes, "failed operations do not change state")
}

func TestSnapshotIsACopy(t *testing.T) {
	vm, _ := newTestViewModel(newFakeBackend(msg(1, "hi", false)))
	vm.Load(context.Background())

	s := vm.Snapshot()
	s.Messages[0].Content = "mutated"

	assert.Equal(t, GreetingContent, vm.Snapshot().Messages[0].Content)
}

func TestLogReporterWritesStructuredEntry(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewLogReporter(zap.New(core))

	r.Report(OpDelete, errNetwork)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "delete", entries[0].ContextMap()["op"])
	assert.Contains(t, entries[0].ContextMap()["error"], "connection refused")
}
