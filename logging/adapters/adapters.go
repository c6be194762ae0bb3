// Package adapters provides fixedkv.Logger adapters for popular logging
// libraries, so a Cache implementation's structured logs and the core
// engine's fatal "impossible" logs land in whatever logger the surrounding
// service already uses.
//
// The standard library's slog.Logger already implements fixedkv.Logger
// directly (both have Error/Warn/Info(msg string, args ...any)); this
// package only exists for loggers that don't.
package adapters
