package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// newHandler logs as text to terminals and as JSON lines everywhere else,
// unless format forces one or the other. Terminal output goes through
// colorable so escape sequences in messages render on Windows consoles.
func newHandler(f *os.File, format string, verbose bool) slog.Handler {
	fd := f.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	var w io.Writer = f
	if tty {
		w = colorable.NewColorable(f)
	}
	return buildHandler(w, format, tty, verbose)
}

func buildHandler(w io.Writer, format string, tty, verbose bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	if format == "json" || (format != "text" && !tty) {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
