// Package main is the entry point for the document chunking CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alqutdigital/doc-chunker/internal/config"
	"github.com/alqutdigital/doc-chunker/pkg/logger"
)

// Version information (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:           "chunker",
		Short:         "RAG document chunker",
		Long:          "CLI tool for splitting scraped documentation into validated, self-describing chunks.",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSplitCmd())
	rootCmd.AddCommand(newStatusCmd())

	return rootCmd.Execute()
}

func newLogger(cfg *config.Config) *logger.Logger {
	log := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})
	log.SetDefault()
	return log
}
