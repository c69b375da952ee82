package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/gradeledger/core"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns args into rollbar's (msg, error, extras) form and sets the Owner as the rollbar person.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	entry := parseArgs(args)
	if entry.owner != nil {
		rollbar.SetPerson(entry.owner.SessionID, entry.owner.StudentName, "")
	} else {
		rollbar.ClearPerson()
	}

	newArgs := make([]interface{}, 0, 3)
	newArgs = append(newArgs, msg)
	if entry.err != nil {
		newArgs = append(newArgs, entry.err)
	}
	if len(entry.extras) > 0 {
		newArgs = append(newArgs, entry.extras)
	}
	return newArgs
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	printEntry(l.std, "DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	printEntry(l.std, "INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	printEntry(l.std, "WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	printEntry(l.std, "ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	printEntry(l.std, "FATAL", msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
