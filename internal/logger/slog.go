package logger

import (
	"log/slog"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// Slog returns a *slog.Logger that writes through log, so library packages
// logging with slog share the command's output and level.
func Slog(log zerolog.Logger) *slog.Logger {
	return slog.New(slogzerolog.Option{
		Level:  slogLevel(log.GetLevel()),
		Logger: &log,
	}.NewZerologHandler())
}

func slogLevel(level zerolog.Level) slog.Level {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel, zerolog.NoLevel:
		return slog.LevelDebug
	case zerolog.InfoLevel:
		return slog.LevelInfo
	case zerolog.WarnLevel:
		return slog.LevelWarn
	case zerolog.Disabled:
		return slog.LevelError + 4
	default:
		return slog.LevelError
	}
}
