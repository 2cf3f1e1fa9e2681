package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// New returns a console logger writing to out at the named level.
// An unknown level falls back to info and is reported with a warning.
func New(out io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}

	log := zerolog.New(output).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()

	return SetLevel(log, level)
}

// NewJSON returns a structured logger writing one JSON object per line.
func NewJSON(out io.Writer, level string) zerolog.Logger {
	return SetLevel(zerolog.New(out).With().Timestamp().Logger(), level)
}

// SetLevel returns log at the named level.
func SetLevel(log zerolog.Logger, levelStr string) zerolog.Logger {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	return log.Level(level)
}
