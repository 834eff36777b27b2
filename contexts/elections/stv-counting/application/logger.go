package application

import "log/slog"

// ModuleName is the value of the "module" attribute on every log line this
// module writes.
const ModuleName = "elections/stv-counting"

// ResolveLogger guarantees a non-nil logger for application/worker code paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
