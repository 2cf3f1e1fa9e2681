// Package logger builds the zerolog logger used by the command line, in
// console or JSON form, and bridges it to log/slog for the library packages.
package logger
