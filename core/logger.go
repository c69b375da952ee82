package core

// Logger is implemented by the logging services.
// Args may carry errors, maps of extra data or the current Owner.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Owner identifies whose ledger a log entry is about.
type Owner struct {
	SessionID   string
	StudentName string
	RegNo       string
}
