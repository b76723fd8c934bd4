// Package main is the entry point for ttyecho: a raw-mode terminal echo
// session driven by the ttyloop event loop. It echoes every keystroke with
// control characters made visible and exits on Ctrl+C or the first I/O
// error, which it prints on the way out.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/raskyld/ttyloop"
)

var (
	logLevel = flag.String("log-level", "error", "log level (debug, info, warn, error)")
	logFile  = flag.String("log-file", "", "write logs to this file instead of stderr")
	greeting = flag.String("greeting", ttyloop.DefaultGreeting, "banner written before echoing starts")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	handler, closeLog, err := buildLogHandler()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ttyecho: %v\n", err)
		return 1
	}
	defer closeLog()

	loop, err := ttyloop.New(ttyloop.WithLog(handler))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ttyecho: failed to create loop: %v\n", err)
		return 1
	}
	adapter := ttyloop.NewLoopAdapter(loop)

	sess, err := ttyloop.NewSession(adapter, ttyloop.WithGreeting(*greeting))
	if err != nil {
		// A handle may have been bound before the failure; drain it so the
		// loop can close cleanly.
		adapter.WalkAndCloseAll()
		adapter.RunUntilStopped()
		adapter.Close()
		fmt.Println(err)
		return 1
	}

	err = sess.EnterRawMode()
	if err == nil {
		err = sess.Start()
	}
	if err == nil {
		// Blocks until the session stops itself (Ctrl+C or read error).
		err = adapter.RunUntilStopped()
	}

	// Mandatory whatever happened above: Shutdown restores the terminal and
	// reports the first error of the whole session.
	if serr := sess.Shutdown(); err == nil {
		err = serr
	}

	if err != nil {
		fmt.Println(err)
		return 1
	}
	return 0
}

func buildLogHandler() (slog.Handler, func(), error) {
	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("invalid log level %q", *logLevel)
	}

	out := os.Stderr
	closeLog := func() {}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}

	return slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}), closeLog, nil
}
