package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"chatwidget/internal/chat"
	"chatwidget/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		vm, failed := newRecordingViewModel()
		vm.Load(cmd.Context())
		if err := failed.err(); err != nil {
			return err
		}
		printMessages(cmd.OutOrStdout(), vm.Snapshot().Messages)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <text>",
	Short: "Send a message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vm, failed := newRecordingViewModel()
		vm.SetComposeText(strings.Join(args, " "))

		before := len(vm.Snapshot().Messages)
		vm.Send(cmd.Context())
		if err := failed.err(); err != nil {
			return err
		}

		s := vm.Snapshot()
		if len(s.Messages) == before {
			return fmt.Errorf("nothing to send")
		}
		printMessages(cmd.OutOrStdout(), s.Messages[before:])
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <text>",
	Short: "Replace one of your messages and regenerate its reply",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		vm, failed := newRecordingViewModel()
		vm.StartEdit(id, "")
		vm.SetEditDraft(strings.Join(args[1:], " "))
		vm.SaveEdit(cmd.Context())
		if err := failed.err(); err != nil {
			return err
		}
		printMessages(cmd.OutOrStdout(), vm.Snapshot().Messages)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your messages and its reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		vm, failed := newRecordingViewModel()
		vm.Delete(cmd.Context(), id)
		if err := failed.err(); err != nil {
			return err
		}
		printMessages(cmd.OutOrStdout(), vm.Snapshot().Messages)
		return nil
	},
}

// failures keeps the first error the view-model reported so one-shot
// commands can exit non-zero.
type failures struct {
	mu    sync.Mutex
	first error
}

func (f *failures) Report(op chat.Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.first == nil {
		f.first = fmt.Errorf("%s: %w", op, err)
	}
}

func (f *failures) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.first
}

func newRecordingViewModel() (*chat.ViewModel, *failures) {
	failed := &failures{}
	logged := chat.NewLogReporter(logger)
	vm := newViewModel(chat.WithReporter(chat.ReporterFunc(func(op chat.Op, err error) {
		logged.Report(op, err)
		failed.Report(op, err)
	})))
	return vm, failed
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid message id %q", raw)
	}
	return uint(id), nil
}

func printMessages(w io.Writer, messages []model.Message) {
	for _, m := range messages {
		who := "bot"
		if m.IsUser {
			who = "you"
		}
		fmt.Fprintf(w, "%4d  %-3s  %s\n", m.ID, who, m.Content)
	}
}
