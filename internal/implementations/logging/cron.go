package logging

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"remindbot/internal/core/domain/logging"
)

type cronLogger struct {
	log logging.Logger
}

// NewCronLogger makes cron report through the application logger. Cron
// passes key/value pairs the same way zap's sugared logger does.
func NewCronLogger(log logging.Logger) cron.Logger {
	return &cronLogger{log: log}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), "Cron: "+msg+".", toEntries(keysAndValues...)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	entries := append(toEntries(keysAndValues...), logging.Entry("err", err))
	l.log.Error(context.Background(), "Cron: "+msg+".", entries...)
}

func toEntries(keysAndValues ...interface{}) []logging.LogEntry {
	entries := make([]logging.LogEntry, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		entries = append(entries, logging.Entry(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return entries
}
