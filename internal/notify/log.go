package notify

import (
	"context"
	"log/slog"
)

// LogSender writes alerts to the structured log. It is the default
// channel when no webhook is configured, so alert plumbing stays
// exercised in development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With(slog.String("component", "notify_log"))}
}

func (l *LogSender) Send(ctx context.Context, title, message string) error {
	l.logger.InfoContext(ctx, "alert",
		slog.String("title", title),
		slog.String("message", message),
	)
	return nil
}

func (l *LogSender) Name() string { return "log" }
