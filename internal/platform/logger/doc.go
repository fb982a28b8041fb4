// Package logger configures log/slog for the service and carries
// request- and job-scoped loggers through context.Context.
package logger
