package workflow

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"aerial/internal/logging"
	"aerial/internal/queue"
	"aerial/internal/services"
)

func (m *Manager) baseLogger() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return logging.NewNop()
}

func (m *Manager) runnerLogger() *slog.Logger {
	return m.baseLogger().With(logging.String(logging.FieldComponent, "workflow-runner"))
}

func (m *Manager) stageLoggerFor(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = m.baseLogger()
	}
	return logging.WithContext(ctx, base)
}

func withStageContext(ctx context.Context, stageName string, run *queue.Run, requestID string) context.Context {
	if run != nil {
		ctx = services.WithRunID(ctx, run.ID)
	}
	ctx = services.WithStage(ctx, stageName)
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func deriveStageLabel(status queue.Status) string {
	label := strings.ReplaceAll(string(status), "_", " ")
	words := strings.Fields(label)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	if len(words) == 0 {
		return string(status)
	}
	return strings.Join(words, " ")
}
