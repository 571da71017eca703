package main

import (
	"fmt"
	"os"

	"github.com/Ramsey-B/advwell/config"
	"github.com/Ramsey-B/advwell/internal/app"
	"github.com/Ramsey-B/advwell/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}

	rootCmd := cli.NewRootCmd(&cli.App{Runtime: app.New(cfg, logger)})
	return rootCmd.Execute()
}
