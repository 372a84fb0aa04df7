// Package main is the entry point for the repofs FUSE mount.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/arlyon/repofs/internal/cli"
	"github.com/arlyon/repofs/internal/termcolor"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	initLogger()

	mode, args := termcolor.ColorAuto, os.Args[1:]
	for len(args) > 0 && (args[0] == "--version" || args[0] == "--no-color" || strings.HasPrefix(args[0], "--color=")) {
		switch args[0] {
		case "--version":
			printVersion()
			return
		case "--no-color", "--color=never":
			mode = termcolor.ColorNever
		case "--color=always":
			mode = termcolor.ColorAlways
		}
		args = args[1:]
	}

	cw := termcolor.NewWriter(os.Stdout, mode)

	app := cli.NewApp("repofs", version)
	app.Register(&cli.Command{
		Name:    "mount",
		Summary: "mount a git repository's history as a read-only filesystem",
		Usage:   "repofs mount <repo> <mountpoint> [flags]",
		Examples: []string{
			"repofs mount . /mnt/repo",
			"repofs mount --hash-trees . /mnt/repo",
		},
		Run: func(args []string) int { return runMount(args, cw) },
	})
	app.Register(&cli.Command{
		Name:    "version",
		Summary: "print version information",
		Usage:   "repofs version",
		Run:     func(args []string) int { printVersion(); return 0 },
	})
	app.Register(&cli.Command{
		Name:    "check-update",
		Summary: "check for and install a newer release",
		Usage:   "repofs check-update [--check]",
		Run:     runCheckUpdate,
	})

	os.Exit(app.Run(args, cw))
}

func printVersion() {
	fmt.Printf("repofs %s\n", version)
	fmt.Printf("  commit:     %s\n", commit)
	fmt.Printf("  built:      %s\n", buildDate)
	fmt.Printf("  go version: %s\n", runtime.Version())
	fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// initLogger reads REPOFS_LOG_LEVEL and REPOFS_LOG_FORMAT from the
// environment, constructs the appropriate slog.Handler, and installs it as
// the default logger via slog.SetDefault.
func initLogger() {
	level := slog.LevelInfo
	switch getEnv("REPOFS_LOG_LEVEL", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if getEnv("REPOFS_LOG_FORMAT", "text") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
