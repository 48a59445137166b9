// Package logger provides structured logging for the service.
//
// It builds a JSON log/slog logger from configuration and carries
// request-scoped loggers through context.Context so that handlers,
// services and stores log with the same request attributes.
package logger
