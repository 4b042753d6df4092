// Package logger provides the configured zerolog loggers.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const serviceName = "threadx"

var base = zerolog.New(os.Stdout).With().
	Str("service", serviceName).
	Timestamp().
	Logger()

// Init sets the global level and output format. Call once at startup,
// before any component logger is created.
func Init(level string, pretty bool) error {
	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return err
		}
		lvl = parsed
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	base = zerolog.New(out).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
	return nil
}

// New returns a logger tagged with the component name.
func New(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
