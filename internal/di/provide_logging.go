package di

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// ProvideLogger creates a new zerolog.Logger writing to stderr, keeping
// operator output on stdout free of log lines.
// On a terminal it uses console format with pretty printing.
// Otherwise, or when json is set, it uses JSON format.
func ProvideLogger(verbose, json bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var w io.Writer = os.Stderr
	if !json && isatty.IsTerminal(os.Stderr.Fd()) {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}
