// Package logger provides line-oriented console logging tagged with correlation
// ids. It plugs a fixed-format handler into the standard log/slog package, so
// components keep logging through *slog.Logger.
package logger
