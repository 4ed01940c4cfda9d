package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chatwidget/internal/chat"
	"chatwidget/internal/client"
	"chatwidget/internal/config"
	"chatwidget/internal/platform/logging"
	"chatwidget/internal/tui"
)

var (
	baseURL string
	logFile string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chatwidget",
	Short: "Terminal chat widget for the message backend",
	Long: `chatwidget shows the conversation stored by the message backend and lets
you send, edit and delete your messages.

Run without a subcommand to open the interactive widget.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runWidget,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "backend base URL (default from config, "+config.DefaultBaseURL+")")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "file that receives operation failures")

	rootCmd.AddCommand(listCmd, sendCmd, editCmd, deleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup resolves the backend address and opens the log file. The widget
// owns the terminal, so logs never go to stderr.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if baseURL == "" {
		baseURL = cfg.Client.BaseURL
	}
	if logFile == "" {
		logFile = cfg.Client.LogFile
	}

	logger, err = newLogger(logFile)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// newLogger writes to path. An empty path discards logs rather than falling
// back to stderr, which the widget draws over.
func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	return logging.New(false, path)
}

func newViewModel(opts ...chat.Option) *chat.ViewModel {
	backend := client.New(baseURL)
	opts = append([]chat.Option{chat.WithReporter(chat.NewLogReporter(logger))}, opts...)
	return chat.New(backend, opts...)
}

func runWidget(cmd *cobra.Command, _ []string) error {
	vm := newViewModel()

	p := tea.NewProgram(tui.New(vm), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("widget failed: %w", err)
	}
	return nil
}
