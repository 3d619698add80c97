// Package service holds application services that sit beside the workflow engine:
// notification delivery and the inbox, and per-user statements.
package service

// Logger interface for minimal logging dependency.
// utils.KVLogger satisfies it.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
