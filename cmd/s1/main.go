// Package main is the entry point for the s1 gateway binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joocer/s1/internal/config"
	"github.com/joocer/s1/pkg/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env before anything reads the environment.
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx)
}
