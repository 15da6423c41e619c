package tailor

import "log/slog"

// NopLogger returns a logger that drops every record.
// It is the supervisor's logger when WithLogger is not given.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// loggerOrNop returns l, or NopLogger if l is nil.
func loggerOrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return NopLogger()
	}

	return l
}
