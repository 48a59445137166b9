// Package main loads catalog collections from a YAML file into the database.
//
// Usage:
//
//	seed -file data/catalog/sample.yaml
//	seed -file data/catalog/sample.yaml -dry-run
//
// A dry run validates the file and resolves it in memory without touching
// the database. A real run upserts every collection in one transaction and
// then drops the cached catalog entries of the seeded families when Redis
// is configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/tahfidz-api/internal/catalog"
	"github.com/phrazzld/tahfidz-api/internal/config"
	"github.com/phrazzld/tahfidz-api/internal/platform/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stdout)
	file := fs.String("file", "data/catalog/sample.yaml", "catalog YAML file to load")
	configPath := fs.String("config", "", "optional path to a config file")
	dryRun := fs.Bool("dry-run", false, "validate the file without writing to the database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sf, err := catalog.LoadSeedFile(*file)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		summary, err := dryRunSeed(ctx, sf, log)
		if err != nil {
			return err
		}
		printSummary(stdout, summary, true)
		return nil
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return fmt.Errorf("set up logger: %w", err)
	}

	summary, err := seedFromConfig(ctx, cfg, sf, log)
	if err != nil {
		return err
	}
	printSummary(stdout, summary, false)
	return nil
}

func printSummary(w io.Writer, s *catalog.SeedSummary, dryRun bool) {
	verb := "seeded"
	if dryRun {
		verb = "validated"
	}
	_, _ = fmt.Fprintf(w, "%s %d collections with %d units (families: %v)\n", verb, s.Collections, s.Units, s.Families)
}
