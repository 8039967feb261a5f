package main

import (
	"log/slog"
	"os"

	"babysteps/internal/cli"
)

func main() {
	// Structured logs go to stderr so JSON command output on stdout
	// stays parseable.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
