package log

import "context"

// Fields carries structured log attributes.
type Fields map[string]any

// Logger is the logging interface used across the backend. Implementations
// must tolerate nil fields.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)
	Error(ctx context.Context, msg string, err error, fields Fields)
	Fatal(ctx context.Context, msg string, err error, fields Fields)
	// With returns a new logger that includes fields on every entry.
	With(fields Fields) Logger
}
