package logsvc

import (
	"log"

	"github.com/trezcool/gradeledger/core"
)

// ConsoleLogger writes to a std logger only. Debug entries are dropped unless debug is set.
type ConsoleLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(std *log.Logger, debug bool) *ConsoleLogger {
	return &ConsoleLogger{std: std, debug: debug}
}

func (l ConsoleLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		printEntry(l.std, "DEBUG", msg, args)
	}
}

func (l ConsoleLogger) Info(msg string, args ...interface{}) {
	printEntry(l.std, "INFO", msg, args)
}

func (l ConsoleLogger) Warn(msg string, args ...interface{}) {
	printEntry(l.std, "WARN", msg, args)
}

func (l ConsoleLogger) Error(msg string, args ...interface{}) {
	printEntry(l.std, "ERROR", msg, args)
}

func (l ConsoleLogger) Fatal(msg string, args ...interface{}) {
	printEntry(l.std, "FATAL", msg, args)
	l.std.Fatal(msg)
}
