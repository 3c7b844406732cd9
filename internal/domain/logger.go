package domain

import (
	"context"
)

// Logger is the structured logger used across the state layer.
// Every method takes the caller's context so request and session fields can be attached,
// followed by alternating key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // exits the process after logging

	// With creates a child logger with the provided structured context fields.
	With(fields ...any) Logger
}
