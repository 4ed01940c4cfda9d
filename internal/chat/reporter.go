package chat

import "go.uber.org/zap"

type Op string

const (
	OpLoad     Op = "load"
	OpSend     Op = "send"
	OpDelete   Op = "delete"
	OpSaveEdit Op = "save_edit"
)

// Reporter receives every backend failure the view-model swallows. Failures
// never reach the presentation layer through any other path.
type Reporter interface {
	Report(op Op, err error)
}

type ReporterFunc func(op Op, err error)

func (f ReporterFunc) Report(op Op, err error) { f(op, err) }

type logReporter struct {
	logger *zap.Logger
}

func NewLogReporter(logger *zap.Logger) Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logReporter{logger: logger}
}

func (r *logReporter) Report(op Op, err error) {
	r.logger.Error("chat operation failed", zap.String("op", string(op)), zap.Error(err))
}
