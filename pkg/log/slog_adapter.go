package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes control-plane events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given
// slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Defects log at Error level,
// everything else at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}
	if event.Kind != "" {
		attrs = append(attrs, slog.String("kind", event.Kind))
	}
	if event.TransactionID != 0 {
		attrs = append(attrs, slog.Uint64("txn_id", uint64(event.TransactionID)))
	}
	if event.Status != "" {
		attrs = append(attrs, slog.String("status", event.Status))
	}
	if event.ClientID != 0 {
		attrs = append(attrs, slog.Int("client_id", event.ClientID))
	}
	if event.SessionID != 0 {
		attrs = append(attrs, slog.Int("session_id", event.SessionID))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}

	level := slog.LevelDebug
	if event.Category == CategoryDefect {
		level = slog.LevelError
	}
	a.logger.LogAttrs(context.Background(), level, "aware", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
