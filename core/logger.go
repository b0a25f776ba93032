package core

// Logger logs application messages to one or more destinations.
// Implementations may inspect args for well-known types (errors, identities)
// and report them with extra context.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
