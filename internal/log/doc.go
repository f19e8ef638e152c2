// Package log builds the application's slog.Logger.
//
// Every logger returned by New redacts secrets before they reach a handler:
// the Tor control password, the control cookie and anything that looks like
// a bearer token or a long key. Redaction is keyed on attribute names and on
// value shapes, and it also applies in verbose mode.
//
//	logger, closer := log.New(log.Options{Verbose: true, File: "lyricsmaster.log"})
//	defer closer.Close()
//	slog.SetDefault(logger)
//
// With a log file, output goes to stderr and to a size-rotated file.
package log
